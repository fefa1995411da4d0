// Package testutil provides common test utilities for handler and service tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimdesk/pkg/platform/httputil"
)

// NewJSONRequest creates an HTTP request with a JSON body. A string body is
// sent verbatim so tests can post malformed JSON.
func NewJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()

	var bodyReader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		bodyReader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err, "failed to marshal request body")
		bodyReader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// DoRequest executes a request against a handler and returns the recorder.
func DoRequest(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// UnmarshalResponse unmarshals the response body into a T.
func UnmarshalResponse[T any](t *testing.T, rr *httptest.ResponseRecorder) *T {
	t.Helper()
	var result T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result), "failed to unmarshal response: %s", rr.Body.String())
	return &result
}

// AssertStatusAndError asserts the status and the error code of the body.
// It returns the decoded error body for further checks.
func AssertStatusAndError(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus int, expectedCode string) *httputil.ErrorResponse {
	t.Helper()
	assert.Equal(t, expectedStatus, rr.Code, "unexpected status code: %s", rr.Body.String())
	errResp := UnmarshalResponse[httputil.ErrorResponse](t, rr)
	assert.Equal(t, expectedCode, errResp.Error, "unexpected error code")
	return errResp
}

// AssertRule asserts the error body carries the given business rule tag.
func AssertRule(t *testing.T, rr *httptest.ResponseRecorder, rule string) {
	t.Helper()
	errResp := UnmarshalResponse[httputil.ErrorResponse](t, rr)
	assert.Equal(t, rule, errResp.Rule, "unexpected rule tag")
}
