package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// UpstreamServer is a fake AquaWiz cloud API for client tests. It issues
// rotating bearer tokens on /KH/auth and serves configurable graph
// responses, tracking call counts so tests can assert on the exact
// number of auth rounds and data requests.
type UpstreamServer struct {
	Server *httptest.Server

	// Account configuration. Set before issuing requests.
	Username string
	Password string
	TokenExp *int64                   // tokenExp field value; nil omits it
	Devices  []map[string]interface{} // devices list in the auth response

	// GraphResponse, when set, decides the status and body per graph
	// request. date is the decoded date query parameter, call the
	// 1-based graph call number. When nil every request returns 200
	// with GraphBody.
	GraphResponse func(date string, call int) (int, []byte)
	GraphBody     []byte

	// RejectNextGraph forces a 401 on the next graph request even with a
	// valid token, simulating server-side token invalidation.
	RejectNextGraph bool

	mu           sync.Mutex
	authCalls    int
	graphCalls   int
	tokenCounter int
	validToken   string
}

// NewUpstreamServer starts a fake AquaWiz API accepting the given
// credentials. The server shuts down on test cleanup.
func NewUpstreamServer(t *testing.T, username, password string) *UpstreamServer {
	t.Helper()

	u := &UpstreamServer{
		Username:  username,
		Password:  password,
		GraphBody: SamplePageJSON(1706745600000, 600000, []map[string]int64{DefaultFields()}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/KH/auth", u.handleAuth)
	mux.HandleFunc("/query/device/", u.handleGraph)

	u.Server = httptest.NewServer(mux)
	t.Cleanup(u.Server.Close)

	return u
}

// URL returns the server's base URL for Client.SetBaseURL.
func (u *UpstreamServer) URL() string {
	return u.Server.URL
}

// AuthCalls returns how many authentication requests were received.
func (u *UpstreamServer) AuthCalls() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.authCalls
}

// GraphCalls returns how many graph requests were received.
func (u *UpstreamServer) GraphCalls() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.graphCalls
}

// InvalidateToken makes the current token stale so the next graph
// request gets a 401 until the client re-authenticates.
func (u *UpstreamServer) InvalidateToken() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.validToken = ""
}

func (u *UpstreamServer) handleAuth(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		User     string `json:"user"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	u.mu.Lock()
	u.authCalls++
	if payload.User != u.Username || payload.Password != u.Password {
		u.mu.Unlock()
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	u.tokenCounter++
	u.validToken = fmt.Sprintf("token-%d", u.tokenCounter)
	token := u.validToken
	u.mu.Unlock()

	resp := map[string]interface{}{"access_token": token}
	if u.TokenExp != nil {
		resp["tokenExp"] = *u.TokenExp
	}
	if u.Devices != nil {
		resp["devices"] = u.Devices
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (u *UpstreamServer) handleGraph(w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.URL.Path, "/graph") {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	u.mu.Lock()
	u.graphCalls++
	call := u.graphCalls
	token := u.validToken
	reject := u.RejectNextGraph
	u.RejectNextGraph = false
	u.mu.Unlock()

	auth := r.Header.Get("Authorization")
	if reject || token == "" || auth != "Bearer "+token {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	if u.GraphResponse != nil {
		status, body := u.GraphResponse(r.URL.Query().Get("date"), call)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write(body)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(u.GraphBody)
}
