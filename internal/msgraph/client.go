package msgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
)

const graphBaseURL = "https://graph.microsoft.com/v1.0"

// Client is an authenticated Microsoft Graph API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new Graph API client using the provided token and
// config. Refreshed tokens are written back to cache.
func NewClient(ctx context.Context, tok *oauth2.Token, cfg *oauth2.Config, cache *TokenCache) *Client {
	ts := cfg.TokenSource(ctx, tok)
	return &Client{
		httpClient: oauth2.NewClient(ctx, &savingTokenSource{ctx: ctx, ts: ts, cache: cache, last: tok.AccessToken}),
		baseURL:    graphBaseURL,
	}
}

// NewClientWithHTTP creates a client that sends requests through hc to
// baseURL. It is used against test servers and pre-authenticated transports.
func NewClientWithHTTP(hc *http.Client, baseURL string) *Client {
	return &Client{httpClient: hc, baseURL: baseURL}
}

// savingTokenSource wraps a TokenSource and persists refreshed tokens.
type savingTokenSource struct {
	ctx   context.Context
	ts    oauth2.TokenSource
	cache *TokenCache
	last  string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.ts.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		// Best-effort save; ignore errors.
		_ = s.cache.Save(s.ctx, tok)
	}
	return tok, nil
}

// TaskList is a Microsoft To Do task list.
type TaskList struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	WellknownListName string `json:"wellknownListName"` // "none", "defaultList", "flaggedEmails"
}

// TodoTask is a Microsoft To Do task.
type TodoTask struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"` // "notStarted", "inProgress", "completed", "waitingOnOthers", "deferred"
	Body   struct {
		Content     string `json:"content"`
		ContentType string `json:"contentType"` // "text" or "html"
	} `json:"body"`
	CreatedDateTime      string `json:"createdDateTime"`
	LastModifiedDateTime string `json:"lastModifiedDateTime"`
}

// page is the Graph API paged collection response.
type page[T any] struct {
	Value    []T    `json:"value"`
	NextLink string `json:"@odata.nextLink"`
}

// ListTaskLists returns all To Do lists of the signed-in user.
func (c *Client) ListTaskLists(ctx context.Context) ([]TaskList, error) {
	return getPaged[TaskList](ctx, c, c.baseURL+"/me/todo/lists")
}

// ListTasks returns all tasks of the given list.
func (c *Client) ListTasks(ctx context.Context, listID string) ([]TodoTask, error) {
	endpoint := fmt.Sprintf("%s/me/todo/lists/%s/tasks?$top=100", c.baseURL, url.PathEscape(listID))
	return getPaged[TodoTask](ctx, c, endpoint)
}

// getPaged follows @odata.nextLink until the collection is exhausted.
func getPaged[T any](ctx context.Context, c *Client, endpoint string) ([]T, error) {
	var all []T
	for endpoint != "" {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("graph API request failed: %w", err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading response body: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("graph API error %d: %s", resp.StatusCode, string(body))
		}

		var p page[T]
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("decoding graph response: %w", err)
		}

		all = append(all, p.Value...)
		endpoint = p.NextLink
	}
	return all, nil
}
