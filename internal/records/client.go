package records

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"intake/internal/config"
)

const defaultHTTPTimeout = 15 * time.Second

// Client talks to an Airtable-style REST record store.
type Client struct {
	cfg        config.Store
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client (used in tests).
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a record store client from the store configuration.
func NewClient(cfg config.Store, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.RequestTimeout > 0 {
		timeout = time.Duration(cfg.RequestTimeout) * time.Second
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type apiRecord struct {
	ID     string            `json:"id"`
	Fields map[string]string `json:"fields"`
}

type listResponse struct {
	Records []apiRecord `json:"records"`
}

func (c *Client) toRecord(raw apiRecord) Record {
	return Record{
		ID:            raw.ID,
		InterviewCode: raw.Fields[c.cfg.InterviewCodeField],
		Project:       raw.Fields[c.cfg.ProjectField],
		Transcript:    raw.Fields[c.cfg.TranscriptField],
	}
}

// ExactLookup returns the record whose interview code equals key, or nil when
// no record matches.
func (c *Client) ExactLookup(ctx context.Context, key string) (*Record, error) {
	formula := fmt.Sprintf("{%s}=%s", c.cfg.InterviewCodeField, formulaString(key))
	raw, err := c.list(ctx, formula, 1)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	record := c.toRecord(raw[0])
	return &record, nil
}

// FuzzyLookup returns every record whose interview code contains any of the
// given substring terms.
func (c *Client) FuzzyLookup(ctx context.Context, terms []string) ([]Record, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	clauses := make([]string, 0, len(terms))
	for _, term := range terms {
		clauses = append(clauses, fmt.Sprintf("FIND(%s, {%s})", formulaString(term), c.cfg.InterviewCodeField))
	}
	formula := clauses[0]
	if len(clauses) > 1 {
		formula = "OR(" + strings.Join(clauses, ", ") + ")"
	}
	raw, err := c.list(ctx, formula, 0)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(raw))
	for _, r := range raw {
		out = append(out, c.toRecord(r))
	}
	return out, nil
}

// UpdateTranscript writes text into the transcript field of the given record.
func (c *Client) UpdateTranscript(ctx context.Context, recordID, text string) error {
	payload := map[string]any{
		"fields": map[string]string{
			c.cfg.TranscriptField: text,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/%s/%s", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.BaseID, c.cfg.TableID, recordID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build update request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyStatus(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Authorize fetches a single record to validate credentials and connectivity.
func (c *Client) Authorize(ctx context.Context) error {
	_, err := c.list(ctx, "", 1)
	return err
}

func (c *Client) list(ctx context.Context, formula string, maxRecords int) ([]apiRecord, error) {
	endpoint := fmt.Sprintf("%s/%s/%s", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.BaseID, c.cfg.TableID)

	query := url.Values{}
	if formula != "" {
		query.Set("filterByFormula", formula)
	}
	if maxRecords > 0 {
		query.Set("maxRecords", fmt.Sprintf("%d", maxRecords))
	}
	if c.cfg.ViewID != "" {
		query.Set("view", c.cfg.ViewID)
	}
	query.Set("returnFieldsByFieldId", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build list request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyStatus(resp)
	}

	var parsed listResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnknown, err)
	}
	return parsed.Records, nil
}

func classifyStatus(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	detail := strings.TrimSpace(string(body))
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrInvalidCredentials, resp.StatusCode)
	default:
		if detail == "" {
			return fmt.Errorf("%w: status %d", ErrUnknown, resp.StatusCode)
		}
		return fmt.Errorf("%w: status %d: %s", ErrUnknown, resp.StatusCode, detail)
	}
}

func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrConnectivity, err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %v", ErrConnectivity, err)
	}
	return fmt.Errorf("%w: %v", ErrUnknown, err)
}

// formulaString quotes a value for use inside a filter formula.
func formulaString(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "\\'") + "'"
}
