// Package mpesa is a client for the Safaricom Daraja STK push endpoints.
package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mpesa-stk-gateway/internal/config"
	"github.com/mpesa-stk-gateway/internal/metrics"
)

const (
	SandboxBaseURL    = "https://sandbox.safaricom.co.ke"
	ProductionBaseURL = "https://api.safaricom.co.ke"

	tokenPath = "/oauth/v1/generate?grant_type=client_credentials"
	pushPath  = "/mpesa/stkpush/v1/processrequest"
	queryPath = "/mpesa/stkpushquery/v1/query"

	timestampLayout = "20060102150405"

	// tokens are refreshed this long before the provider expires them
	tokenExpiryMargin = time.Minute
)

// eastAfricaTime is the zone Daraja validates request timestamps against
var eastAfricaTime = time.FixedZone("EAT", 3*60*60)

// TokenStore caches the OAuth access token across replicas. GetToken returns "" on a miss.
type TokenStore interface {
	GetToken(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string, ttl time.Duration) error
}

type Client struct {
	cfg        config.MpesaConfig
	baseURL    string
	httpClient *http.Client
	tokens     TokenStore
	logger     *slog.Logger
	now        func() time.Time
}

// NewClient builds a client for the configured environment. tokens may be nil.
func NewClient(logger *slog.Logger, cfg config.MpesaConfig, tokens TokenStore) *Client {
	return &Client{
		cfg:        cfg,
		baseURL:    BaseURL(cfg),
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		tokens:     tokens,
		logger:     logger,
		now:        time.Now,
	}
}

// BaseURL resolves the API host, preferring an explicit override
func BaseURL(cfg config.MpesaConfig) string {
	if cfg.BaseURL != "" {
		return strings.TrimRight(cfg.BaseURL, "/")
	}
	if strings.EqualFold(cfg.Environment, "production") {
		return ProductionBaseURL
	}
	return SandboxBaseURL
}

// Timestamp formats t the way Daraja expects in the Timestamp field
func Timestamp(t time.Time) string {
	return t.In(eastAfricaTime).Format(timestampLayout)
}

// Password is base64(shortcode + passkey + timestamp)
func Password(shortCode, passKey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passKey + timestamp))
}

// AccessToken returns a bearer token, from the cache when one is configured and warm.
// A cold or failing cache results in exactly one call to the token endpoint.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if c.tokens != nil {
		token, err := c.tokens.GetToken(ctx)
		if err != nil {
			c.logger.Warn("Token cache read failed, requesting a new token", "error", err)
		} else if token != "" {
			return token, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+tokenPath, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	body, status, err := c.do(req, "token")
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", newAPIError("token", status, body)
	}

	var res tokenResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if res.AccessToken == "" {
		return "", &APIError{Endpoint: "token", StatusCode: status, Message: "empty access token"}
	}

	if c.tokens != nil {
		if err := c.tokens.SetToken(ctx, res.AccessToken, c.tokenTTL(res.ExpiresIn)); err != nil {
			c.logger.Warn("Failed to cache access token", "error", err)
		}
	}

	return res.AccessToken, nil
}

// STKPush submits a push request. A 200 answer is returned as-is even when ResponseCode
// is not "0"; any other status is an *APIError.
func (c *Client) STKPush(ctx context.Context, token string, p PushParams) (*STKPushResponse, error) {
	timestamp := Timestamp(c.now())
	payload := STKPushRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          Password(c.cfg.ShortCode, c.cfg.PassKey, timestamp),
		Timestamp:         timestamp,
		TransactionType:   c.cfg.TransactionType,
		Amount:            p.Amount,
		PartyA:            p.PhoneNumber,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       p.PhoneNumber,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  p.AccountReference,
		TransactionDesc:   p.Description,
	}

	body, status, err := c.postJSON(ctx, "push", pushPath, token, payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, newAPIError("push", status, body)
	}

	var res STKPushResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("failed to decode push response: %w", err)
	}
	return &res, nil
}

// STKQuery asks for the result of an earlier push. Daraja answers a push that is still
// waiting on the customer with a non-200 status, which surfaces as an *APIError.
func (c *Client) STKQuery(ctx context.Context, token, checkoutRequestID string) (*STKQueryResponse, []byte, error) {
	timestamp := Timestamp(c.now())
	payload := STKQueryRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          Password(c.cfg.ShortCode, c.cfg.PassKey, timestamp),
		Timestamp:         timestamp,
		CheckoutRequestID: checkoutRequestID,
	}

	body, status, err := c.postJSON(ctx, "query", queryPath, token, payload)
	if err != nil {
		return nil, nil, err
	}
	if status != http.StatusOK {
		return nil, nil, newAPIError("query", status, body)
	}

	var res STKQueryResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, nil, fmt.Errorf("failed to decode query response: %w", err)
	}
	return &res, body, nil
}

func (c *Client) postJSON(ctx context.Context, endpoint, path, token string, payload interface{}) ([]byte, int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode %s request: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	return c.do(req, endpoint)
}

func (c *Client) do(req *http.Request, endpoint string) ([]byte, int, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.MpesaRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, 0, fmt.Errorf("mpesa %s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}

	c.logger.Debug("M-Pesa response received",
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	return body, resp.StatusCode, nil
}

func (c *Client) tokenTTL(expiresIn string) time.Duration {
	ttl := c.cfg.TokenTTL
	if secs, err := strconv.Atoi(expiresIn); err == nil && secs > 0 {
		providerTTL := time.Duration(secs)*time.Second - tokenExpiryMargin
		if providerTTL > 0 && (ttl <= 0 || providerTTL < ttl) {
			ttl = providerTTL
		}
	}
	return ttl
}

func newAPIError(endpoint string, status int, body []byte) *APIError {
	apiErr := &APIError{Endpoint: endpoint, StatusCode: status}

	var res errorResponse
	if err := json.Unmarshal(body, &res); err == nil && (res.ErrorMessage != "" || res.ErrorCode != "") {
		apiErr.Code = res.ErrorCode
		apiErr.Message = res.ErrorMessage
		apiErr.RequestID = res.RequestID
		return apiErr
	}

	// push rejections sometimes come back in the success shape with a non-200 status
	var push STKPushResponse
	if err := json.Unmarshal(body, &push); err == nil && push.ResponseDescription != "" {
		apiErr.Code = push.ResponseCode
		apiErr.Message = push.ResponseDescription
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(body))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
