package osf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/monadic/nodes-delete/pkg/nodes"
)

// Client is the central connection manager for the OSF APIs.
// All tree fetches and bulk updates should go through this client.
type Client struct {
	httpClient *http.Client
	auth       *Auth
	mode       Mode
	apiBase    string
	webBase    string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURLs points the client at a different deployment.
func WithBaseURLs(apiBase, webBase string) Option {
	return func(c *Client) {
		c.apiBase = withTrailingSlash(apiBase)
		c.webBase = withTrailingSlash(webBase)
	}
}

// WithToken overrides the stored credentials.
func WithToken(token string) Option {
	return func(c *Client) {
		c.auth = &Auth{Token: token}
		if c.mode != Offline && token != "" {
			c.mode = Connected
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a new OSF client.
func NewClient(opts ...Option) *Client {
	auth, err := LoadAuth()
	if err != nil {
		auth = &Auth{}
	}
	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		auth:    auth,
		mode:    CurrentMode(),
		apiBase: APIBaseURL(),
		webBase: WebBaseURL(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mode returns the current operating mode.
func (c *Client) Mode() Mode {
	return c.mode
}

// WebBase returns the web base URL in use.
func (c *Client) WebBase() string {
	return c.webBase
}

// RequireOnline checks if we're online and returns an error message if not.
func (c *Client) RequireOnline() error {
	if c.mode == Offline {
		return fmt.Errorf("this command requires network access (unset %s)", EnvOffline)
	}
	return nil
}

// RequireConnected checks that a token is configured.
// Returns a user-friendly message if not.
func (c *Client) RequireConnected() error {
	if err := c.RequireOnline(); err != nil {
		return err
	}
	if c.mode == Online {
		return fmt.Errorf("this command requires an OSF personal access token.\n\nCreate one at %ssettings/tokens/\nThen export %s=<token>", c.webBase, EnvToken)
	}
	return nil
}

// TreeURL returns the tree endpoint used for nodeID.
func (c *Client) TreeURL(nodeID string) string {
	return TreeURL(c.webBase, nodeID)
}

// FetchTree loads the node hierarchy rooted at nodeID.
func (c *Client) FetchTree(ctx context.Context, nodeID string) (*nodes.NodeTree, error) {
	url := c.TreeURL(nodeID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var trees []*nodes.NodeTree
	if err := json.Unmarshal(body, &trees); err != nil {
		return nil, &APIError{Method: req.Method, URL: url, Status: http.StatusOK, Err: fmt.Errorf("decode tree: %w", err)}
	}
	if len(trees) == 0 || trees[0] == nil {
		return nil, &APIError{Method: req.Method, URL: url, Status: http.StatusOK, Err: nodes.ErrNilTree}
	}
	return trees[0], nil
}

// BulkPatch is one entry of a bulk request body.
type BulkPatch struct {
	Type       string          `json:"type"`
	ID         nodes.NodeID    `json:"id"`
	Attributes BulkPatchFields `json:"attributes"`
}

// BulkPatchFields carries the attributes being patched.
type BulkPatchFields struct {
	Public bool `json:"public"`
}

// BulkRequest is the JSON:API bulk document.
type BulkRequest struct {
	Data []BulkPatch `json:"data"`
}

// NewBulkRequest builds the body for a bulk update, preserving order.
func NewBulkRequest(changed []nodes.NodeSnapshot) BulkRequest {
	req := BulkRequest{Data: make([]BulkPatch, 0, len(changed))}
	for _, n := range changed {
		req.Data = append(req.Data, BulkPatch{
			Type:       NodesType,
			ID:         n.ID,
			Attributes: BulkPatchFields{Public: n.IsPublic},
		})
	}
	return req
}

// BulkUpdate sends the visibility of every entry in changed as one bulk
// request against the nodes collection. The server applies entries in order.
func (c *Client) BulkUpdate(ctx context.Context, changed []nodes.NodeSnapshot) error {
	payload, err := json.Marshal(NewBulkRequest(changed))
	if err != nil {
		return fmt.Errorf("encode bulk request: %w", err)
	}

	url := NodesURL(c.apiBase)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", BulkContentType)
	req.Header.Set("Accept", "application/vnd.api+json")

	_, err = c.do(req)
	return err
}

// do sends req with credentials and returns the body of a 2xx response.
func (c *Client) do(req *http.Request) ([]byte, error) {
	if c.auth != nil && c.auth.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.auth.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Method: req.Method, URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Method: req.Method, URL: req.URL.String(), Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			Method: req.Method,
			URL:    req.URL.String(),
			Status: resp.StatusCode,
			Errors: decodeErrors(body),
			Err:    fmt.Errorf("unexpected status %s", resp.Status),
		}
	}
	return body, nil
}
