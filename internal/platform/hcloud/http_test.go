package hcloud

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/imamik/tradefleet/internal/config"
	"github.com/imamik/tradefleet/internal/logging"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/hetznercloud/hcloud-go/v2/hcloud/schema"
)

// testServer creates an httptest server that can be used to mock Hetzner Cloud API responses.
type testServer struct {
	server *httptest.Server
	mux    *http.ServeMux
}

// newTestServer creates a new test server for mocking the Hetzner Cloud API.
func newTestServer() *testServer {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	ts := &testServer{
		server: server,
		mux:    mux,
	}
	ts.handleFunc("/actions", func(w http.ResponseWriter, _ *http.Request) {
		jsonResponse(w, http.StatusOK, schema.ActionListResponse{Actions: []schema.Action{}})
	})
	return ts
}

// close shuts down the test server.
func (ts *testServer) close() {
	ts.server.Close()
}

// client returns an hcloud.Client configured to use the test server.
func (ts *testServer) client() *hcloud.Client {
	return hcloud.NewClient(
		hcloud.WithToken("test-token"),
		hcloud.WithEndpoint(ts.server.URL),
	)
}

// realClient returns a RealClient configured to use the test server.
func (ts *testServer) realClient() *RealClient {
	return NewRealClient("test-token",
		WithHCloudClient(ts.client()),
		WithLogger(logging.Discard()),
		WithTimeouts(&config.Timeouts{
			ServerCreate:      30 * time.Second,
			Delete:            30 * time.Second,
			RetryMaxAttempts:  3,
			RetryInitialDelay: 10 * time.Millisecond,
		}),
	)
}

// handleFunc registers a handler for a specific path.
func (ts *testServer) handleFunc(pattern string, handler http.HandlerFunc) {
	ts.mux.HandleFunc(pattern, handler)
}

// jsonResponse writes a JSON response with the given status code and body.
func jsonResponse(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// errorResponse writes a Hetzner API error.
func errorResponse(w http.ResponseWriter, statusCode int, code hcloud.ErrorCode) {
	jsonResponse(w, statusCode, schema.ErrorResponse{
		Error: schema.Error{Code: string(code), Message: string(code)},
	})
}

func successAction(id int64) schema.Action {
	return schema.Action{ID: id, Status: "success", Progress: 100}
}
