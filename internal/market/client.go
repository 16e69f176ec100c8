// Package market is the HTTP client for the ACP marketplace backend: agent
// lookup, job CRUD and job actions, offering registration, and token launch.
package market

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/pkg/models"
)

// Client calls the marketplace HTTP API. It is safe for concurrent use.
type Client struct {
	BaseURL    string       // e.g. "https://api.acp.example"
	APIKey     string       // per-identity credential, sent as X-API-Key
	HTTPClient *http.Client // optional; nil uses http.DefaultClient
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

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("X-API-Key", c.APIKey)
	}
	return c.client().Do(req)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	resp, err := c.do(ctx, method, path, body)
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
			return fmt.Errorf("market %s %s: %s", method, path, errBody.Error)
		}
		return fmt.Errorf("market %s %s: status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func jobPath(jobID int64) string {
	return "/jobs/" + strconv.FormatInt(jobID, 10)
}

// GetAgent returns the profile for a wallet address.
func (c *Client) GetAgent(ctx context.Context, wallet string) (*models.AgentInfo, error) {
	var out models.AgentInfo
	err := c.doJSON(ctx, http.MethodGet, "/agents/"+url.PathEscape(wallet), nil, &out)
	return &out, err
}

// BrowseAgents searches marketplace agents by free-text query.
func (c *Client) BrowseAgents(ctx context.Context, query string) ([]models.AgentInfo, error) {
	path := "/agents"
	if query != "" {
		path += "?q=" + url.QueryEscape(query)
	}
	var out []models.AgentInfo
	err := c.doJSON(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// GetJob fetches the current marketplace view of a job.
func (c *Client) GetJob(ctx context.Context, jobID int64) (*models.Job, error) {
	var out models.Job
	err := c.doJSON(ctx, http.MethodGet, jobPath(jobID), nil, &out)
	return &out, err
}

// CreateJobRequest is a buyer-side job creation against a provider's offering.
type CreateJobRequest struct {
	ProviderAddress string         `json:"provider_address"`
	Offering        string         `json:"offering"`
	Requirements    map[string]any `json:"requirements,omitempty"`
	Budget          float64        `json:"budget,omitempty"`
	Nonce           string         `json:"nonce,omitempty"`
}

// CreateJob creates a job and returns the marketplace-assigned job id.
func (c *Client) CreateJob(ctx context.Context, req CreateJobRequest) (int64, error) {
	var out struct {
		JobID int64 `json:"job_id"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/jobs", req, &out)
	return out.JobID, err
}

// AcceptJob signals seller-side acceptance of a job request.
func (c *Client) AcceptJob(ctx context.Context, jobID int64, reason string) error {
	return c.doJSON(ctx, http.MethodPost, jobPath(jobID)+"/accept", map[string]string{"reason": reason}, nil)
}

// RejectJob rejects a job request with a reason.
func (c *Client) RejectJob(ctx context.Context, jobID int64, reason string) error {
	return c.doJSON(ctx, http.MethodPost, jobPath(jobID)+"/reject", map[string]string{"reason": reason}, nil)
}

// RequestPayment asks the buyer to pay. funds, when non-nil, attaches a
// funds-transfer instruction for offerings that require external funds.
func (c *Client) RequestPayment(ctx context.Context, jobID int64, message string, funds *models.FundsRequest) error {
	body := map[string]any{"message": message}
	if funds != nil {
		body["funds_request"] = funds
	}
	return c.doJSON(ctx, http.MethodPost, jobPath(jobID)+"/request-payment", body, nil)
}

// DeliverJob sends the deliverable to the buyer, optionally instructing the
// marketplace to return funds via payable.
func (c *Client) DeliverJob(ctx context.Context, jobID int64, deliverable models.Deliverable, payable *models.PayableDetail) error {
	body := map[string]any{"deliverable": deliverable}
	if payable != nil {
		body["payable_detail"] = payable
	}
	return c.doJSON(ctx, http.MethodPost, jobPath(jobID)+"/deliver", body, nil)
}

// RegisterOffering publishes (or re-publishes) a seller offering.
func (c *Client) RegisterOffering(ctx context.Context, listing models.OfferingListing) error {
	return c.doJSON(ctx, http.MethodPost, "/offerings", listing, nil)
}

// DelistOffering removes a published offering by name.
func (c *Client) DelistOffering(ctx context.Context, name string) error {
	return c.doJSON(ctx, http.MethodDelete, "/offerings/"+url.PathEscape(name), nil, nil)
}

// LaunchToken launches an on-chain token for the active agent.
func (c *Client) LaunchToken(ctx context.Context, req models.TokenLaunch) (*models.TokenLaunchResult, error) {
	var out models.TokenLaunchResult
	err := c.doJSON(ctx, http.MethodPost, "/tokens", req, &out)
	return &out, err
}
