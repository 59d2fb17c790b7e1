package dynamics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// Creates trigger server-side business logic that can run long, so
	// they get a wider timeout than reads and patches.
	defaultReadTimeout  = 30 * time.Second
	defaultWriteTimeout = 120 * time.Second

	maxResponseSizeBytes = 2 << 20
)

// ClientOption customizes Client.
type ClientOption func(*Client)

func WithReadClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.readClient = client
		}
	}
}

func WithWriteClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.writeClient = client
		}
	}
}

// Client issues authenticated OData Web API calls.
//
// Remote failures never escalate: each one degrades to a zero result
// wrapping ErrRemoteCall plus a diagnostic log line, and the caller
// decides what that means in context. No call is ever retried. Auth
// failures from the token source pass through wrapping ErrAuth.
type Client struct {
	baseURL     string
	tokens      TokenSource
	readClient  *http.Client
	writeClient *http.Client
}

func NewClient(cfg Config, tokens TokenSource, opts ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if tokens == nil {
		return nil, errors.New("token source is required")
	}

	client := &Client{
		baseURL:     cfg.BaseAPIURL(),
		tokens:      tokens,
		readClient:  &http.Client{Timeout: defaultReadTimeout},
		writeClient: &http.Client{Timeout: defaultWriteTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Get issues an authenticated GET and returns the parsed body on 200.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (map[string]any, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}

	status, _, raw, err := c.do(c.readClient, req)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("api get error")
		return nil, fmt.Errorf("%w: GET %s: %v", ErrRemoteCall, path, err)
	}
	if status != http.StatusOK {
		log.Warn().Int("status", status).Str("path", path).Str("body", string(raw)).Msg("api get failed")
		return nil, fmt.Errorf("%w: GET %s: status=%d", ErrRemoteCall, path, status)
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("api get returned unparsable body")
		return nil, fmt.Errorf("%w: GET %s: decode body: %v", ErrRemoteCall, path, err)
	}
	return body, nil
}

// Create POSTs a new record and returns its business key.
//
// A 204 carries the new record's GUID in the OData-EntityId header; the
// GUID is not the identifier the domain surfaces, so one follow-up GET
// selects idField and its value is returned instead.
func (c *Client) Create(ctx context.Context, entitySet string, payload map[string]any, idField string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodPost, entitySet, nil, payload)
	if err != nil {
		return "", err
	}

	status, header, raw, err := c.do(c.writeClient, req)
	if err != nil {
		log.Warn().Err(err).Str("entity_set", entitySet).Msg("api post error")
		return "", fmt.Errorf("%w: POST %s: %v", ErrRemoteCall, entitySet, err)
	}
	if status != http.StatusNoContent {
		log.Warn().Int("status", status).Str("entity_set", entitySet).Str("body", string(raw)).Msg("api post failed")
		return "", fmt.Errorf("%w: POST %s: status=%d", ErrRemoteCall, entitySet, status)
	}

	guid, ok := parseEntityID(header.Get("OData-EntityId"))
	if !ok {
		log.Warn().Str("entity_set", entitySet).Str("header", header.Get("OData-EntityId")).Msg("created entity id header missing or malformed")
		return "", fmt.Errorf("%w: POST %s: no entity id in response", ErrRemoteCall, entitySet)
	}

	record, err := c.Get(ctx, fmt.Sprintf("%s(%s)", entitySet, guid), url.Values{"$select": []string{idField}})
	if err != nil {
		return "", err
	}
	id := StringField(record, idField)
	if id == "" {
		log.Warn().Str("entity_set", entitySet).Str("guid", guid).Str("id_field", idField).Msg("created record has no business key")
		return "", fmt.Errorf("%w: POST %s: field %s absent on created record", ErrRemoteCall, entitySet, idField)
	}
	log.Debug().Str("entity_set", entitySet).Str("id", id).Msg("record created")
	return id, nil
}

// Patch applies a partial update. nil only on 204.
func (c *Client) Patch(ctx context.Context, path string, payload map[string]any) error {
	req, err := c.newRequest(ctx, http.MethodPatch, path, nil, payload)
	if err != nil {
		return err
	}

	status, _, raw, err := c.do(c.readClient, req)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("api patch error")
		return fmt.Errorf("%w: PATCH %s: %v", ErrRemoteCall, path, err)
	}
	if status != http.StatusNoContent {
		log.Warn().Int("status", status).Str("path", path).Str("body", string(raw)).Msg("api patch failed")
		return fmt.Errorf("%w: PATCH %s: status=%d", ErrRemoteCall, path, status)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, payload map[string]any) (*http.Request, error) {
	target := c.baseURL + "/" + strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: encode payload: %v", ErrRemoteCall, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrRemoteCall, err)
	}

	// Headers are attached freshly per call: the token may have been
	// refreshed since the previous request.
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("OData-MaxVersion", "4.0")
	req.Header.Set("OData-Version", "4.0")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	return req, nil
}

func (c *Client) do(httpClient *http.Client, req *http.Request) (int, http.Header, []byte, error) {
	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return resp.StatusCode, resp.Header, nil, err
	}
	return resp.StatusCode, resp.Header, raw, nil
}

// parseEntityID extracts the GUID from an OData-EntityId header value,
// e.g. ".../leads(11111111-1111-1111-1111-111111111111)".
func parseEntityID(header string) (string, bool) {
	open := strings.LastIndex(header, "(")
	if open < 0 {
		return "", false
	}
	end := strings.Index(header[open:], ")")
	if end < 0 {
		return "", false
	}
	guid := header[open+1 : open+end]
	if _, err := uuid.Parse(guid); err != nil {
		return "", false
	}
	return guid, true
}
