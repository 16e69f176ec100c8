// Package bountyboard is the HTTP client for the secondary bounty marketplace:
// bounty creation, match status, candidate confirmation/rejection, and job-status
// sync. Authentication mirrors the main marketplace (per-identity X-API-Key).
package bountyboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/pkg/models"
)

// Client calls the bounty board HTTP API. It is safe for concurrent use.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// New returns a client authenticated with the given per-identity credential.
func New(baseURL, apiKey string) *Client {
	return &Client{BaseURL: baseURL, APIKey: apiKey}
}

func (c *Client) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("X-API-Key", c.APIKey)
	}
	resp, err := c.client().Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if errBody.Error != "" {
			return fmt.Errorf("bountyboard %s %s: %s", method, path, errBody.Error)
		}
		return fmt.Errorf("bountyboard %s %s: status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func bountyPath(bountyID, rest string) string {
	return "/bounties/" + url.PathEscape(bountyID) + rest
}

// CreateBountyRequest posts a new bounty.
type CreateBountyRequest struct {
	Title         string  `json:"title"`
	Description   string  `json:"description,omitempty"`
	Budget        float64 `json:"budget"`
	Category      string  `json:"category"`
	SourceChannel string  `json:"source_channel,omitempty"`
	Nonce         string  `json:"nonce,omitempty"`
}

// CreateBountyResult carries the remote-assigned id and the poster capability
// secret. The secret is returned exactly once; it cannot be re-derived.
type CreateBountyResult struct {
	BountyID     string `json:"bounty_id"`
	PosterSecret string `json:"poster_secret"`
}

// CreateBounty creates a bounty and returns its id and poster secret.
func (c *Client) CreateBounty(ctx context.Context, req CreateBountyRequest) (*CreateBountyResult, error) {
	var out CreateBountyResult
	err := c.doJSON(ctx, http.MethodPost, "/bounties", req, &out)
	if err != nil {
		return nil, err
	}
	if out.BountyID == "" || out.PosterSecret == "" {
		return nil, fmt.Errorf("bountyboard create: response missing bounty id or poster secret")
	}
	return &out, nil
}

// MatchStatus is the remote match state of a bounty.
type MatchStatus struct {
	Status     models.BountyStatus `json:"status"`
	Candidates []models.Candidate  `json:"candidates,omitempty"`
}

// GetMatchStatus fetches the remote status and candidate list for a bounty.
func (c *Client) GetMatchStatus(ctx context.Context, bountyID, posterSecret string) (*MatchStatus, error) {
	var out MatchStatus
	err := c.doJSON(ctx, http.MethodGet, bountyPath(bountyID, "/match?secret="+url.QueryEscape(posterSecret)), nil, &out)
	return &out, err
}

// ConfirmMatch binds a bounty to the chosen candidate and the created job.
func (c *Client) ConfirmMatch(ctx context.Context, bountyID, posterSecret, candidateID string, jobID int64) error {
	body := map[string]any{
		"secret":       posterSecret,
		"candidate_id": candidateID,
		"job_id":       jobID,
	}
	return c.doJSON(ctx, http.MethodPost, bountyPath(bountyID, "/confirm"), body, nil)
}

// RejectCandidates declines the current candidate set, reopening the bounty.
func (c *Client) RejectCandidates(ctx context.Context, bountyID, posterSecret string) error {
	body := map[string]any{"secret": posterSecret}
	return c.doJSON(ctx, http.MethodPost, bountyPath(bountyID, "/reject-candidates"), body, nil)
}

// SyncJobStatus reports the linked job's final status back to the board.
// Callers treat failures here as best-effort.
func (c *Client) SyncJobStatus(ctx context.Context, bountyID, posterSecret, status string) error {
	body := map[string]any{"secret": posterSecret, "status": status}
	return c.doJSON(ctx, http.MethodPost, bountyPath(bountyID, "/job-status"), body, nil)
}
