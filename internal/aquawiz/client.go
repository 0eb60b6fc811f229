// Package aquawiz implements the client for the AquaWiz cloud API.
// The client owns all network I/O for one account: bearer-token
// acquisition and early renewal, the date-stamped device data queries,
// the rate-limited historical range fetch, and decoding raw pages into
// sensor readings.
//
// The token lifecycle is the delicate part: tokens are renewed five
// minutes before expiry, and a 401 on a data request triggers exactly one
// re-authentication followed by exactly one retry. There is no other
// retry logic in this package; the caller's next poll cycle is the outer
// recovery mechanism.
package aquawiz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL is the production AquaWiz API root.
	DefaultBaseURL = "https://server.aquawiz.net/api/v1"

	authPath  = "/KH/auth"
	queryPath = "/query/device"

	// webOrigin is the AquaWiz web frontend. The API rejects requests
	// whose headers do not look like they came from it.
	webOrigin = "https://www.aquawiz.net"

	browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:140.0) Gecko/20100101 Firefox/140.0"

	// tokenRenewalWindow is how long before expiry a token is treated as
	// stale. A request at exactly expiry−window already renews.
	tokenRenewalWindow = 5 * time.Minute

	// defaultTokenLifetime applies when the auth response omits tokenExp
	// and the token carries no readable exp claim.
	defaultTokenLifetime = 3600 * time.Second

	// historyRequestGap is the minimum pause between successive day
	// requests of a historical fetch. The upstream throttles bursty
	// callers, so this is a floor, not a tuning knob.
	historyRequestGap = 500 * time.Millisecond

	// queryDateLayout formats the graph query date. The upstream expects
	// the wall-clock day with millisecond precision and a literal Z
	// suffix.
	queryDateLayout = "2006-01-02T15:04:05.000"

	requestTimeout = 30 * time.Second
)

// AuthResponse is the decoded body of a successful authentication.
// Beyond the token fields the body lists the devices registered to the
// account, which callers use to validate a configured device ID.
type AuthResponse struct {
	AccessToken string   `json:"access_token"`
	TokenExp    *int64   `json:"tokenExp,omitempty"` // Token lifetime in seconds; pointer to detect absence
	Devices     []Device `json:"devices,omitempty"`
}

// Device is one entry of the account's device list. The upstream is
// inconsistent about key names, so both variants are decoded and the
// accessors pick whichever is set.
type Device struct {
	ID         string `json:"id,omitempty"`
	DeviceID   string `json:"device_id,omitempty"`
	Name       string `json:"name,omitempty"`
	DeviceName string `json:"device_name,omitempty"`
}

// Identifier returns the device's ID regardless of which key the upstream
// used.
func (d Device) Identifier() string {
	if d.ID != "" {
		return d.ID
	}
	return d.DeviceID
}

// DisplayName returns a human-readable name, falling back to the ID.
func (d Device) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	if d.DeviceName != "" {
		return d.DeviceName
	}
	return fmt.Sprintf("Device %s", d.Identifier())
}

// Client talks to the AquaWiz cloud API for a single account. It holds a
// mutable auth session (token plus expiry) and a lazily created HTTP
// client shared across calls. A Client is intended for use from one
// active poll cycle at a time and does no internal locking.
type Client struct {
	baseURL    string
	httpClient *http.Client

	accessToken  string
	tokenExpires time.Time

	// now and requestGap are swapped in tests; requestGap never goes
	// below historyRequestGap in production paths.
	now        func() time.Time
	requestGap time.Duration
}

// NewClient creates a client pointed at the production API. The network
// session is created on first use; Close releases it.
func NewClient() *Client {
	return &Client{
		baseURL:    DefaultBaseURL,
		now:        time.Now,
		requestGap: historyRequestGap,
	}
}

// SetBaseURL overrides the API root. Used for tests and staging
// environments; must be called before the first request.
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// session returns the shared HTTP client, creating it when needed. The
// client stays usable after Close; closing only drops idle connections.
func (c *Client) session() *http.Client {
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: requestTimeout}
	}
	return c.httpClient
}

// Close releases the underlying network session. Safe to call multiple
// times and safe when no request was ever made.
func (c *Client) Close() {
	if c.httpClient != nil {
		c.httpClient.CloseIdleConnections()
	}
}

// Authenticate exchanges credentials for a bearer token and stores it on
// the client's session. The password travels in a clear body field; that
// is the remote contract, not a choice. Returns the full decoded body so
// callers can read the account's device list.
//
// Failure mapping: 401 is an *AuthError (never retried internally), any
// other non-200 status and all transport failures are *APIError.
func (c *Client) Authenticate(ctx context.Context, username, password string) (*AuthResponse, error) {
	payload := map[string]any{
		"user":     username,
		"password": password,
		"token":    map[string]string{"access_token": ""},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode auth payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+authPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.session().Do(req)
	if err != nil {
		return nil, &APIError{Op: "authenticate", Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var auth AuthResponse
		if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
			return nil, &APIError{Op: "authenticate", Err: fmt.Errorf("decode response: %w", err)}
		}
		c.accessToken = auth.AccessToken
		c.tokenExpires = c.now().Add(c.tokenLifetime(&auth))
		log.Debug().
			Time("expires", c.tokenExpires).
			Int("devices", len(auth.Devices)).
			Msg("Authenticated with AquaWiz API")
		return &auth, nil
	case http.StatusUnauthorized:
		return nil, &AuthError{Message: "invalid credentials"}
	default:
		text, _ := io.ReadAll(resp.Body)
		return nil, &APIError{Op: "authenticate", StatusCode: resp.StatusCode, Body: string(text)}
	}
}

// tokenLifetime determines how long the freshly issued token is valid.
// Order: the explicit tokenExp field, then the unverified exp claim of
// the JWT itself, then the 3600s default. The default matches observed
// upstream behavior; whether tokenExp is ever actually omitted is an
// assumption.
func (c *Client) tokenLifetime(auth *AuthResponse) time.Duration {
	if auth.TokenExp != nil {
		return time.Duration(*auth.TokenExp) * time.Second
	}

	if exp, ok := tokenExpClaim(auth.AccessToken); ok {
		if lifetime := exp.Sub(c.now()); lifetime > 0 {
			return lifetime
		}
	}

	return defaultTokenLifetime
}

// tokenExpClaim reads the exp claim from a JWT without verifying its
// signature. The token is only inspected, never trusted; the upstream is
// the sole authority on its validity.
func tokenExpClaim(token string) (time.Time, bool) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// ensureAuthenticated renews the token when it is missing or within the
// renewal window of expiry. This is the sole gate protecting the
// early-renewal invariant and must run before every data request.
func (c *Client) ensureAuthenticated(ctx context.Context, username, password string) error {
	if c.accessToken != "" && c.now().Before(c.tokenExpires.Add(-tokenRenewalWindow)) {
		return nil
	}
	_, err := c.Authenticate(ctx, username, password)
	return err
}

// GetDeviceData fetches one calendar day of samples for a device. A zero
// date means the start of today in local time. A 401 triggers exactly one
// re-authentication and one retry of the same request; a failing retry is
// an *APIError, never another auth round.
func (c *Client) GetDeviceData(ctx context.Context, username, password, deviceID string, date time.Time) (Page, error) {
	if err := c.ensureAuthenticated(ctx, username, password); err != nil {
		return Page{}, err
	}

	if date.IsZero() {
		date = startOfDay(c.now())
	}

	url := fmt.Sprintf("%s%s/%s/graph?date=%sZ", c.baseURL, queryPath, deviceID, date.Format(queryDateLayout))

	resp, err := c.doGraphRequest(ctx, url)
	if err != nil {
		return Page{}, &APIError{Op: "device data", Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return decodePage(resp.Body)
	case http.StatusUnauthorized:
		// Token rejected despite the renewal window; re-authenticate once
		// and retry the same request with the fresh token.
		if _, err := c.Authenticate(ctx, username, password); err != nil {
			return Page{}, err
		}

		retryResp, err := c.doGraphRequest(ctx, url)
		if err != nil {
			return Page{}, &APIError{Op: "device data retry", Err: err}
		}
		defer retryResp.Body.Close()

		if retryResp.StatusCode != http.StatusOK {
			text, _ := io.ReadAll(retryResp.Body)
			return Page{}, &APIError{Op: "device data retry", StatusCode: retryResp.StatusCode, Body: string(text)}
		}
		return decodePage(retryResp.Body)
	default:
		text, _ := io.ReadAll(resp.Body)
		return Page{}, &APIError{Op: "device data", StatusCode: resp.StatusCode, Body: string(text)}
	}
}

// doGraphRequest issues a GET against the graph endpoint with the full
// browser-mimicking header set. The upstream inspects these headers and
// returns non-200 responses to callers with a minimal set, so every
// header here is load-bearing.
func (c *Client) doGraphRequest(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Origin", webOrigin)
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Referer", webOrigin+"/")
	req.Header.Set("Sec-Fetch-Dest", "empty")
	req.Header.Set("Sec-Fetch-Mode", "cors")
	req.Header.Set("Sec-Fetch-Site", "same-site")

	return c.session().Do(req)
}

func decodePage(body io.Reader) (Page, error) {
	var page Page
	if err := json.NewDecoder(body).Decode(&page); err != nil {
		return Page{}, &APIError{Op: "device data", Err: fmt.Errorf("decode response: %w", err)}
	}
	return page, nil
}

// GetHistoricalData fetches pages for every calendar day from start
// (truncated to midnight) through end inclusive, in ascending order. A
// zero end means now. Days that fail are logged and skipped; the result
// contains only the pages that succeeded, so partial history is normal
// and never an error. Successive requests are spaced at least
// historyRequestGap apart.
func (c *Client) GetHistoricalData(ctx context.Context, username, password, deviceID string, start, end time.Time) ([]Page, error) {
	if end.IsZero() {
		end = c.now()
	}

	var pages []Page
	for day := startOfDay(start); !day.After(end); day = day.AddDate(0, 0, 1) {
		page, err := c.GetDeviceData(ctx, username, password, deviceID, day)
		if err != nil {
			log.Warn().
				Err(err).
				Str("device_id", deviceID).
				Str("day", day.Format("2006-01-02")).
				Msg("Failed to get historical data for day, skipping")
			continue
		}
		pages = append(pages, page)

		if next := day.AddDate(0, 0, 1); !next.After(end) {
			select {
			case <-ctx.Done():
				return pages, fmt.Errorf("historical fetch cancelled: %w", ctx.Err())
			case <-time.After(c.requestGap):
			}
		}
	}

	return pages, nil
}

// startOfDay truncates t to midnight in its own location.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
