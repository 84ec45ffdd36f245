// Package smartconnect is a REST client for the Angel One SmartAPI:
// login/token/session handling, request signing headers, and the market
// data endpoints the alert engine consumes (candles, quotes, LTP) plus
// order placement.
package smartconnect

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultRoot    = "https://apiconnect.angelone.in"
	defaultTimeout = 7 * time.Second
)

var routes = map[string]string{
	"api.login":        "/rest/auth/angelbroking/user/v1/loginByPassword",
	"api.logout":       "/rest/secure/angelbroking/user/v1/logout",
	"api.token":        "/rest/auth/angelbroking/jwt/v1/generateTokens",
	"api.user.profile": "/rest/secure/angelbroking/user/v1/getProfile",
	"api.candle.data":  "/rest/secure/angelbroking/historical/v1/getCandleData",
	"api.ltp.data":     "/rest/secure/angelbroking/order/v1/getLtpData",
	"api.market.data":  "/rest/secure/angelbroking/market/v1/quote",
	"api.order.place":  "/rest/secure/angelbroking/order/v1/placeOrder",
}

// ErrTokenExpired marks fatal authentication failures: the session token is
// invalid or expired and retrying without fresh credentials is pointless.
var ErrTokenExpired = errors.New("smartconnect: token expired or invalid")

// ErrRateLimited marks HTTP 429 responses; transient, retry after backoff.
var ErrRateLimited = errors.New("smartconnect: rate limited")

// APIError is an API-level failure: HTTP 200 with status=false, or an
// error_type payload such as TokenException.
type APIError struct {
	ErrorType string
	Code      string
	Message   string
}

func (e *APIError) Error() string {
	if e.ErrorType != "" {
		return fmt.Sprintf("smartconnect: %s: %s", e.ErrorType, e.Message)
	}
	return fmt.Sprintf("smartconnect: api error %s: %s", e.Code, e.Message)
}

// IsAuthError reports whether err indicates an expired/invalid session.
// Besides the ErrTokenExpired sentinel it matches the upstream error text,
// which is the only signal some endpoints give.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "token") ||
		strings.Contains(msg, "expired") ||
		strings.Contains(msg, "auth")
}

// Config configures a SmartConnect client. Credentials come from the
// caller's configuration object, never from process-global state.
type Config struct {
	APIKey      string
	AccessToken string // pre-issued JWT, optional

	RootURL  string        // default: https://apiconnect.angelone.in
	Timeout  time.Duration // default: 7s
	ProxyURL string        // optional HTTP proxy

	// Device fingerprint headers. Empty values are resolved from local
	// interfaces with hard fallbacks.
	ClientLocalIP  string
	ClientPublicIP string
	ClientMAC      string
}

// SmartConnect is the API client. Safe for use from a single evaluation
// goroutine; token mutation happens only during session calls.
type SmartConnect struct {
	apiKey       string
	accessToken  string
	refreshToken string
	feedToken    string

	rootURL    string
	httpClient *http.Client

	clientLocalIP  string
	clientPublicIP string
	clientMAC      string

	// SessionExpiryHook, if set, runs when the API reports TokenException.
	SessionExpiryHook func()
}

// New creates a SmartConnect client.
func New(cfg Config) *SmartConnect {
	if cfg.RootURL == "" {
		cfg.RootURL = defaultRoot
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.ClientLocalIP == "" {
		cfg.ClientLocalIP = firstNonEmpty(localIP(), "127.0.0.1")
	}
	if cfg.ClientPublicIP == "" {
		cfg.ClientPublicIP = cfg.ClientLocalIP
	}
	if cfg.ClientMAC == "" {
		cfg.ClientMAC = macAddress()
	}

	tr := &http.Transport{
		TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
	}
	if cfg.ProxyURL != "" {
		if purl, err := url.Parse(cfg.ProxyURL); err == nil {
			tr.Proxy = http.ProxyURL(purl)
		}
	}

	return &SmartConnect{
		apiKey:         cfg.APIKey,
		accessToken:    cfg.AccessToken,
		rootURL:        strings.TrimRight(cfg.RootURL, "/"),
		httpClient:     &http.Client{Transport: tr, Timeout: cfg.Timeout},
		clientLocalIP:  cfg.ClientLocalIP,
		clientPublicIP: cfg.ClientPublicIP,
		clientMAC:      cfg.ClientMAC,
	}
}

// HasSession reports whether an access token is held.
func (sc *SmartConnect) HasSession() bool { return sc.accessToken != "" }

// SetAccessToken installs a pre-issued JWT.
func (sc *SmartConnect) SetAccessToken(t string) { sc.accessToken = t }

// FeedToken returns the market feed token from the last login.
func (sc *SmartConnect) FeedToken() string { return sc.feedToken }

func (sc *SmartConnect) requestHeaders() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	h.Set("X-ClientLocalIP", sc.clientLocalIP)
	h.Set("X-ClientPublicIP", sc.clientPublicIP)
	h.Set("X-MACAddress", sc.clientMAC)
	h.Set("X-PrivateKey", sc.apiKey)
	h.Set("X-UserType", "USER")
	h.Set("X-SourceID", "WEB")
	if sc.accessToken != "" {
		h.Set("Authorization", "Bearer "+sc.accessToken)
	}
	return h
}

// envelope is the common SmartAPI response frame.
type envelope struct {
	Status    bool            `json:"status"`
	Message   string          `json:"message"`
	ErrorCode string          `json:"errorcode"`
	ErrorType string          `json:"error_type"`
	Data      json.RawMessage `json:"data"`
}

func (sc *SmartConnect) doRequest(ctx context.Context, method, route string, params any) (*envelope, error) {
	uri, ok := routes[route]
	if !ok {
		return nil, fmt.Errorf("smartconnect: unknown route %s", route)
	}

	var body io.Reader
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("smartconnect: marshal params: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, sc.rootURL+uri, body)
	if err != nil {
		return nil, err
	}
	req.Header = sc.requestHeaders()

	resp, err := sc.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("smartconnect: %s: %w", route, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("smartconnect: %s: read body: %w", route, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, route)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("smartconnect: %s: parse response (HTTP %d): %w", route, resp.StatusCode, err)
	}

	if env.ErrorType != "" {
		if env.ErrorType == "TokenException" {
			if sc.SessionExpiryHook != nil {
				sc.SessionExpiryHook()
			}
			return nil, fmt.Errorf("%w: %s", ErrTokenExpired, env.Message)
		}
		return nil, &APIError{ErrorType: env.ErrorType, Code: env.ErrorCode, Message: env.Message}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("smartconnect: %s: HTTP %d: %s", route, resp.StatusCode, env.Message)
	}
	if !env.Status {
		// AB1010/AG8002 are Angel One's invalid/expired token codes.
		if env.ErrorCode == "AB1010" || env.ErrorCode == "AG8002" {
			return nil, fmt.Errorf("%w: %s", ErrTokenExpired, env.Message)
		}
		return nil, &APIError{Code: env.ErrorCode, Message: env.Message}
	}
	return &env, nil
}

func (sc *SmartConnect) post(ctx context.Context, route string, params any) (*envelope, error) {
	return sc.doRequest(ctx, http.MethodPost, route, params)
}

func (sc *SmartConnect) get(ctx context.Context, route string) (*envelope, error) {
	return sc.doRequest(ctx, http.MethodGet, route, nil)
}

// ---- Session ----

// SessionTokens is the token set returned by a successful login.
type SessionTokens struct {
	JWTToken     string `json:"jwtToken"`
	RefreshToken string `json:"refreshToken"`
	FeedToken    string `json:"feedToken"`
}

// GenerateSession logs in with client code, password and a current TOTP
// code, and installs the returned tokens on the client.
func (sc *SmartConnect) GenerateSession(ctx context.Context, clientCode, password, totp string) (*SessionTokens, error) {
	env, err := sc.post(ctx, "api.login", map[string]string{
		"clientcode": clientCode,
		"password":   password,
		"totp":       totp,
	})
	if err != nil {
		return nil, err
	}
	var tokens SessionTokens
	if err := json.Unmarshal(env.Data, &tokens); err != nil {
		return nil, fmt.Errorf("smartconnect: login response: %w", err)
	}
	sc.accessToken = tokens.JWTToken
	sc.refreshToken = tokens.RefreshToken
	sc.feedToken = tokens.FeedToken
	return &tokens, nil
}

// RenewSession exchanges the refresh token for a fresh JWT.
func (sc *SmartConnect) RenewSession(ctx context.Context) (*SessionTokens, error) {
	env, err := sc.post(ctx, "api.token", map[string]string{
		"refreshToken": sc.refreshToken,
	})
	if err != nil {
		return nil, err
	}
	var tokens SessionTokens
	if err := json.Unmarshal(env.Data, &tokens); err != nil {
		return nil, fmt.Errorf("smartconnect: token response: %w", err)
	}
	if tokens.JWTToken != "" {
		sc.accessToken = tokens.JWTToken
	}
	if tokens.FeedToken != "" {
		sc.feedToken = tokens.FeedToken
	}
	return &tokens, nil
}

// Profile fetches the logged-in user profile; used as a connection probe.
func (sc *SmartConnect) Profile(ctx context.Context) (map[string]any, error) {
	env, err := sc.get(ctx, "api.user.profile")
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("smartconnect: profile response: %w", err)
	}
	return data, nil
}

// TerminateSession logs out.
func (sc *SmartConnect) TerminateSession(ctx context.Context, clientCode string) error {
	_, err := sc.post(ctx, "api.logout", map[string]string{"clientcode": clientCode})
	return err
}

// ---- fingerprint helpers ----

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func localIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, addr := range addrs {
		if ipNet, ok := addr.(*net.IPNet); ok && !ipNet.IP.IsLoopback() && ipNet.IP.To4() != nil {
			return ipNet.IP.String()
		}
	}
	return ""
}

func macAddress() string {
	ifs, _ := net.Interfaces()
	for _, ifc := range ifs {
		if len(ifc.HardwareAddr) > 0 {
			return ifc.HardwareAddr.String()
		}
	}
	return "00:11:22:33:44:55"
}
