package main

import "github.com/Tiliavir/trivial-demand-tracker/cmd"

func main() {
	cmd.Execute()
}
