package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TestContext holds the HTTP client and the last response for one scenario.
type TestContext struct {
	BaseURL   string
	APIPrefix string
	client    *http.Client

	lastStatus int
	lastBody   []byte
	lastJSON   map[string]interface{}

	claimID   string
	damageIDs []string
}

// NewTestContext builds a context against baseURL. apiPrefix is prepended to
// every request path.
func NewTestContext(baseURL, apiPrefix string) *TestContext {
	return &TestContext{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		APIPrefix: apiPrefix,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Reset clears per-scenario state.
func (tc *TestContext) Reset() {
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.lastJSON = nil
	tc.claimID = ""
	tc.damageIDs = nil
}

func (tc *TestContext) POST(path string, body interface{}) error {
	return tc.do(http.MethodPost, path, body)
}

func (tc *TestContext) PATCH(path string, body interface{}) error {
	return tc.do(http.MethodPatch, path, body)
}

func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil)
}

func (tc *TestContext) DELETE(path string) error {
	return tc.do(http.MethodDelete, path, nil)
}

func (tc *TestContext) do(method, path string, body interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, tc.BaseURL+tc.APIPrefix+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	tc.lastJSON = nil
	if len(tc.lastBody) > 0 {
		var parsed map[string]interface{}
		if err := json.Unmarshal(tc.lastBody, &parsed); err == nil {
			tc.lastJSON = parsed
		}
	}
	return nil
}

func (tc *TestContext) GetLastResponseStatus() int {
	return tc.lastStatus
}

func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.lastBody
}

// GetResponseField returns a top-level field of the last JSON response.
func (tc *TestContext) GetResponseField(field string) (interface{}, error) {
	if tc.lastJSON == nil {
		return nil, fmt.Errorf("last response is not a JSON object: %s", string(tc.lastBody))
	}
	v, ok := tc.lastJSON[field]
	if !ok {
		return nil, fmt.Errorf("field %q not found in response", field)
	}
	return v, nil
}

func (tc *TestContext) ClaimID() string {
	return tc.claimID
}

func (tc *TestContext) SetClaimID(id string) {
	tc.claimID = id
	tc.damageIDs = nil
}

func (tc *TestContext) DamageIDs() []string {
	return append([]string(nil), tc.damageIDs...)
}

func (tc *TestContext) SetDamageIDs(ids []string) {
	tc.damageIDs = append([]string(nil), ids...)
}
