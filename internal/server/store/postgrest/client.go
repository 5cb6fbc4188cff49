// Package postgrest implements the remote backing store over the
// PostgREST-style REST interface exposed by Supabase: query-string
// filters (eq., gte.), Prefer headers for representations, and SQL
// functions under /rpc.
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/willcounter/internal/common"
	"github.com/dmitrijs2005/willcounter/internal/server/models"
)

// Client talks to the REST facade. Safe for concurrent use; all state is
// immutable after construction.
type Client struct {
	baseURL string
	key     string
	http    *http.Client
}

// New builds a client for the given Supabase base URL and service-role
// key. The timeout bounds every remote call so a slow store cannot stall
// request handling.
func New(baseURL, serviceKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		key:     serviceKey,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any, representation bool) (*http.Request, error) {
	u := c.baseURL + "/rest/v1" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", "application/json")
	if representation {
		req.Header.Set("Prefer", "return=representation")
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %v: %w", req.Method, req.URL.Path, err, common.ErrorRemoteUnavailable)
	}
	return resp, nil
}

// Ping probes the REST root. PostgREST answers 200 there; an empty or
// locked-down schema may answer 404, which still proves the store is up.
func (c *Client) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/", nil, nil, false)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("ping: status %d: %w", resp.StatusCode, common.ErrorRemoteUnavailable)
	}
	return nil
}

func (c *Client) GetUserByAuth0ID(ctx context.Context, auth0ID string) (*models.User, error) {
	query := url.Values{}
	query.Set("auth0_id", "eq."+auth0ID)
	query.Set("select", "*")

	req, err := c.newRequest(ctx, http.MethodGet, "/users", query, nil, false)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get user: status %d: %w", resp.StatusCode, common.ErrorRemoteUnavailable)
	}

	var users []models.User
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return nil, fmt.Errorf("get user: %v: %w", err, common.ErrorMalformedResponse)
	}
	if len(users) == 0 {
		return nil, common.ErrorNotFound
	}
	return &users[0], nil
}

func (c *Client) CreateUser(ctx context.Context, auth0ID, email string) (*models.User, error) {
	payload := map[string]string{"auth0_id": auth0ID, "email": email}

	req, err := c.newRequest(ctx, http.MethodPost, "/users", nil, payload, true)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		var created []models.User
		if err := json.NewDecoder(resp.Body).Decode(&created); err != nil || len(created) == 0 {
			return nil, fmt.Errorf("create user: %w", common.ErrorMalformedResponse)
		}
		return &created[0], nil
	case http.StatusConflict:
		return nil, common.ErrorConflict
	default:
		return nil, fmt.Errorf("create user: status %d: %w", resp.StatusCode, common.ErrorRemoteUnavailable)
	}
}

func (c *Client) UpdateLastLogin(ctx context.Context, userID, lastLogin string) (bool, error) {
	query := url.Values{}
	query.Set("id", "eq."+userID)

	req, err := c.newRequest(ctx, http.MethodPatch, "/users", query, map[string]string{"last_login": lastLogin}, true)
	if err != nil {
		return false, err
	}
	resp, err := c.do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("update last login: status %d: %w", resp.StatusCode, common.ErrorRemoteUnavailable)
	}

	var patched []models.User
	if err := json.NewDecoder(resp.Body).Decode(&patched); err != nil {
		return false, fmt.Errorf("update last login: %v: %w", err, common.ErrorMalformedResponse)
	}
	return len(patched) > 0, nil
}

func (c *Client) GetCount(ctx context.Context, userID, date string) (*models.WillCount, error) {
	query := url.Values{}
	query.Set("user_id", "eq."+userID)
	query.Set("date", "eq."+date)
	query.Set("select", "*")

	req, err := c.newRequest(ctx, http.MethodGet, "/will_counts", query, nil, false)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get count: status %d: %w", resp.StatusCode, common.ErrorRemoteUnavailable)
	}

	var counts []models.WillCount
	if err := json.NewDecoder(resp.Body).Decode(&counts); err != nil {
		return nil, fmt.Errorf("get count: %v: %w", err, common.ErrorMalformedResponse)
	}
	if len(counts) == 0 {
		return nil, common.ErrorNotFound
	}
	return &counts[0], nil
}

func (c *Client) CreateCount(ctx context.Context, rec *models.WillCount) (*models.WillCount, error) {
	payload := map[string]any{
		"user_id":    rec.UserID,
		"date":       rec.Date,
		"count":      rec.Count,
		"timestamps": rec.Timestamps,
		"created_at": rec.CreatedAt,
		"updated_at": rec.UpdatedAt,
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/will_counts", nil, payload, true)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		var created []models.WillCount
		if err := json.NewDecoder(resp.Body).Decode(&created); err != nil || len(created) == 0 {
			return nil, fmt.Errorf("create count: %w", common.ErrorMalformedResponse)
		}
		return &created[0], nil
	case http.StatusConflict:
		return nil, common.ErrorConflict
	default:
		return nil, fmt.Errorf("create count: status %d: %w", resp.StatusCode, common.ErrorRemoteUnavailable)
	}
}

// IncrementCount calls the increment_will_count SQL function, which bumps
// today's record for the user in one statement server-side.
func (c *Client) IncrementCount(ctx context.Context, userID string) (*models.WillCount, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/rpc/increment_will_count", nil, map[string]string{"p_user_id": userID}, false)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("increment rpc: status %d: %w", resp.StatusCode, common.ErrorRemoteUnavailable)
	}

	updated := &models.WillCount{}
	if err := json.NewDecoder(resp.Body).Decode(updated); err != nil {
		return nil, fmt.Errorf("increment rpc: %v: %w", err, common.ErrorMalformedResponse)
	}
	return updated, nil
}

func (c *Client) PatchCount(ctx context.Context, id string, count int, timestamps []string, updatedAt string) (*models.WillCount, error) {
	query := url.Values{}
	query.Set("id", "eq."+id)

	payload := map[string]any{
		"count":      count,
		"timestamps": timestamps,
		"updated_at": updatedAt,
	}

	req, err := c.newRequest(ctx, http.MethodPatch, "/will_counts", query, payload, true)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("patch count: status %d: %w", resp.StatusCode, common.ErrorRemoteUnavailable)
	}

	var patched []models.WillCount
	if err := json.NewDecoder(resp.Body).Decode(&patched); err != nil {
		return nil, fmt.Errorf("patch count: %v: %w", err, common.ErrorMalformedResponse)
	}
	if len(patched) == 0 {
		// No row matched the id, e.g. a fallback-resident record.
		return nil, common.ErrorNotFound
	}
	return &patched[0], nil
}

func (c *Client) ListCounts(ctx context.Context, userID, since string) ([]models.WillCount, error) {
	query := url.Values{}
	query.Set("user_id", "eq."+userID)
	query.Set("date", "gte."+since)
	query.Set("order", "date.desc")
	query.Set("select", "*")

	req, err := c.newRequest(ctx, http.MethodGet, "/will_counts", query, nil, false)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list counts: status %d: %w", resp.StatusCode, common.ErrorRemoteUnavailable)
	}

	var counts []models.WillCount
	if err := json.NewDecoder(resp.Body).Decode(&counts); err != nil {
		return nil, fmt.Errorf("list counts: %v: %w", err, common.ErrorMalformedResponse)
	}
	return counts, nil
}
