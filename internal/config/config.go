package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Tiliavir/trivial-demand-tracker/internal/storage"
	"github.com/Tiliavir/trivial-demand-tracker/internal/timecalc"
)

// Config is the root configuration for tdt, stored in ~/.tdt/config.yaml.
// Every key can be overridden with a TDT_<SECTION>_<KEY> environment variable.
type Config struct {
	Calendar CalendarConfig `mapstructure:"calendar"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Routines RoutinesConfig `mapstructure:"routines"`
	MSGraph  MSGraphConfig  `mapstructure:"msgraph"`
}

// CalendarConfig defines business hours.
type CalendarConfig struct {
	// WorkStart and WorkEnd are "HH:MM" wall-clock times.
	WorkStart string `mapstructure:"work_start"`
	WorkEnd   string `mapstructure:"work_end"`
	// Weekdays lists the qualifying days by English name.
	Weekdays []string `mapstructure:"weekdays"`
	// Timezone is an IANA name. Empty = system local time.
	Timezone string `mapstructure:"timezone"`
}

// StorageConfig selects where the demand snapshot lives.
type StorageConfig struct {
	Backend       string `mapstructure:"backend"`
	Dir           string `mapstructure:"dir"`
	Key           string `mapstructure:"key"`
	SQLitePath    string `mapstructure:"sqlite_path"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
}

// RoutinesConfig controls the routine recreation job.
type RoutinesConfig struct {
	// AutoRecreate runs the job before every command.
	AutoRecreate bool `mapstructure:"auto_recreate"`
}

// MSGraphConfig holds Microsoft Graph / To Do import settings.
type MSGraphConfig struct {
	// TenantID is the Azure AD tenant. Use "common" for personal/multi-tenant accounts.
	TenantID string `mapstructure:"tenant_id"`
	// ClientID is the Azure app (client) ID for the OAuth2 device code flow.
	ClientID string `mapstructure:"client_id"`
}

const (
	// DefaultTenantID is the Microsoft "common" tenant.
	DefaultTenantID = "common"
	// DefaultClientID is the well-known public Azure CLI app ID, usable for
	// the device code flow without an app registration.
	DefaultClientID = "04b07795-8542-4c4a-95af-30b2c573d5ab"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("calendar.work_start", timecalc.DefaultWorkStart.String())
	v.SetDefault("calendar.work_end", timecalc.DefaultWorkEnd.String())
	v.SetDefault("calendar.weekdays", []string{"monday", "tuesday", "wednesday", "thursday", "friday"})
	v.SetDefault("calendar.timezone", "")
	v.SetDefault("storage.backend", storage.KindFile)
	v.SetDefault("storage.dir", "")
	v.SetDefault("storage.key", storage.DefaultKey)
	v.SetDefault("storage.sqlite_path", "")
	v.SetDefault("storage.redis_addr", "localhost:6379")
	v.SetDefault("storage.redis_password", "")
	v.SetDefault("storage.redis_db", 0)
	v.SetDefault("routines.auto_recreate", false)
	v.SetDefault("msgraph.tenant_id", DefaultTenantID)
	v.SetDefault("msgraph.client_id", DefaultClientID)
}

// configTemplate is the annotated config written on first run.
const configTemplate = `# tdt configuration – ~/.tdt/config.yaml
#
# All settings are optional; the values below are the built-in defaults.
# Any key can be overridden from the environment, e.g.
#   TDT_CALENDAR_WORK_START=08:00 TDT_STORAGE_BACKEND=sqlite tdt dashboard

# ── Business hours ─────────────────────────────────────────────────────────
calendar:
  # Daily working window, HH:MM.
  work_start: "07:12"
  work_end: "17:30"
  # Days that count towards worked hours.
  weekdays: [monday, tuesday, wednesday, thursday, friday]
  # IANA timezone used to read and display timestamps, e.g. "America/Sao_Paulo".
  # Leave empty to use the system's local time.
  timezone: ""

# ── Demand snapshot ────────────────────────────────────────────────────────
storage:
  # file   – JSON file <dir>/<key>.json
  # sqlite – key-value table in <dir>/tdt.db (or sqlite_path)
  # redis  – string key on redis_addr
  backend: file
  # Data directory. Empty = ~/.tdt
  dir: ""
  key: demands
  sqlite_path: ""
  redis_addr: "localhost:6379"
  redis_password: ""
  redis_db: 0

# ── Routine demands ────────────────────────────────────────────────────────
routines:
  # Recreate yesterday's completed routine demands before each command.
  auto_recreate: false

# ── Microsoft To Do import ─────────────────────────────────────────────────
msgraph:
  # "common" works for personal Microsoft accounts and most organisations.
  tenant_id: common
  # The built-in value is the public Azure CLI app – no app registration needed.
  client_id: "04b07795-8542-4c4a-95af-30b2c573d5ab"
`

// DefaultPath returns the path to ~/.tdt/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".tdt", "config.yaml"), nil
}

// Load reads the config at path, creating it with annotated defaults on
// first run. An empty path means DefaultPath.
func Load(path string) (Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return defaultConfig(), err
		}
		path = p
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TDT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		// First run: write the annotated template so users can discover options.
		if writeErr := writeDefault(path); writeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create config file %s: %v\n", path, writeErr)
		}
	} else if err := v.ReadInConfig(); err != nil {
		return defaultConfig(), fmt.Errorf("parsing config file %s: %w\nTip: delete the file to regenerate defaults", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return defaultConfig(), fmt.Errorf("decoding config file %s: %w", path, err)
	}
	return cfg, nil
}

// defaultConfig returns a Config holding only the built-in defaults.
func defaultConfig() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return cfg
}

// writeDefault creates the config directory and writes the annotated default
// config template.
func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}

// Location resolves the configured timezone.
func (c CalendarConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("calendar.timezone: %w", err)
	}
	return loc, nil
}

// Build validates the section and returns the business-hours calendar.
func (c CalendarConfig) Build() (*timecalc.Calendar, error) {
	start, err := timecalc.ParseClock(c.WorkStart)
	if err != nil {
		return nil, fmt.Errorf("calendar.work_start: %w", err)
	}
	end, err := timecalc.ParseClock(c.WorkEnd)
	if err != nil {
		return nil, fmt.Errorf("calendar.work_end: %w", err)
	}
	days := make([]time.Weekday, 0, len(c.Weekdays))
	for _, name := range c.Weekdays {
		wd, err := ParseWeekday(name)
		if err != nil {
			return nil, fmt.Errorf("calendar.weekdays: %w", err)
		}
		days = append(days, wd)
	}
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	cal, err := timecalc.NewCalendar(start, end, days, loc)
	if err != nil {
		return nil, fmt.Errorf("calendar: %w", err)
	}
	return cal, nil
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// ParseWeekday accepts English day names, three-letter abbreviations, or
// 0 (Sunday) to 6 (Saturday).
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if wd, ok := weekdayNames[s]; ok {
		return wd, nil
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && n <= 6 {
		return time.Weekday(n), nil
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// Options converts the section into storage options.
func (s StorageConfig) Options() storage.Options {
	return storage.Options{
		Kind:          s.Backend,
		Dir:           s.Dir,
		SQLitePath:    s.SQLitePath,
		RedisAddr:     s.RedisAddr,
		RedisPassword: s.RedisPassword,
		RedisDB:       s.RedisDB,
	}
}
