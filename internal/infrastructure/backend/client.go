// Package backend is the REST client for the hive backend. Every response is
// normalized into the canonical domain types before it leaves the package.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/beesense/hive-dashboard/internal/core/domain"
	"github.com/beesense/hive-dashboard/internal/core/ports"
	"github.com/beesense/hive-dashboard/internal/pkg/metrics"
)

const (
	defaultTimeout  = 10 * time.Second
	maxResponseBody = 4 << 20
)

// Config captures the settings for reaching the backend.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the hive backend. It implements ports.AuthBackend,
// ports.DemoIssuer and ports.HiveBackend.
type Client struct {
	baseURL string
	http    *http.Client
}

var (
	_ ports.AuthBackend = (*Client)(nil)
	_ ports.DemoIssuer  = (*Client)(nil)
	_ ports.HiveBackend = (*Client)(nil)
)

// NewClient returns a client for cfg. A default timeout is applied when none
// is provided; the session manager itself never times out a call.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// statusError is a non-2xx answer from the backend.
type statusError struct {
	Code    int
	Message string
}

func (e *statusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.Code)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Code, e.Message)
}

// ── Auth ──────────────────────────────────────────────────────────────────────

func (c *Client) Login(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	return c.auth(ctx, "login", "/auth/login", map[string]string{"email": email, "password": password})
}

func (c *Client) Register(ctx context.Context, name, email, password string) (*domain.AuthResult, error) {
	return c.auth(ctx, "register", "/auth/register", map[string]string{"name": name, "email": email, "password": password})
}

func (c *Client) DemoLogin(ctx context.Context) (*domain.AuthResult, error) {
	return c.auth(ctx, "demo", "/auth/demo-login", nil)
}

func (c *Client) auth(ctx context.Context, op, path string, body any) (*domain.AuthResult, error) {
	var w wireAuth
	if err := c.doJSON(ctx, op, http.MethodPost, path, "", body, &w); err != nil {
		return nil, domain.NewAuthError(op, authCause(err))
	}
	res := w.toDomain()
	return &res, nil
}

// authCause maps a transport or status failure onto the auth sentinels.
func authCause(err error) error {
	var se *statusError
	if !errors.As(err, &se) {
		return err
	}
	switch {
	case se.Code == http.StatusConflict:
		return fmt.Errorf("%w: %s", domain.ErrAccountExists, se.Message)
	case se.Code >= 500:
		return fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, se)
	default:
		return fmt.Errorf("%w: %v", domain.ErrInvalidCredentials, se)
	}
}

// ── Hives ─────────────────────────────────────────────────────────────────────

func (c *Client) ListHives(ctx context.Context, token string) ([]domain.Hive, error) {
	raw, err := c.doRaw(ctx, "list_hives", http.MethodGet, "/hives", token, nil)
	if err != nil {
		return nil, dataCause(err, domain.ErrHiveNotFound)
	}
	list, err := decodeList[wireHive](raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	return convert[wireHive, domain.Hive](list), nil
}

func (c *Client) GetHive(ctx context.Context, token, id string) (*domain.Hive, error) {
	var w wireHive
	if err := c.doJSON(ctx, "get_hive", http.MethodGet, "/hives/"+url.PathEscape(id), token, nil, &w); err != nil {
		return nil, dataCause(err, domain.ErrHiveNotFound)
	}
	h := w.toDomain()
	return &h, nil
}

func (c *Client) ListReadings(ctx context.Context, token, hiveID string, limit int) ([]domain.Reading, error) {
	path := "/hives/" + url.PathEscape(hiveID) + "/readings"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	raw, err := c.doRaw(ctx, "list_readings", http.MethodGet, path, token, nil)
	if err != nil {
		return nil, dataCause(err, domain.ErrHiveNotFound)
	}
	list, err := decodeList[wireReading](raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	readings := convert[wireReading, domain.Reading](list)
	for i := range readings {
		if readings[i].HiveID == "" {
			readings[i].HiveID = hiveID
		}
	}
	return readings, nil
}

// ── Alerts ────────────────────────────────────────────────────────────────────

func (c *Client) ListAlerts(ctx context.Context, token string, filter ports.AlertFilter) ([]domain.Alert, error) {
	q := url.Values{}
	if filter.HiveID != "" {
		q.Set("hive_id", filter.HiveID)
	}
	if filter.OpenOnly {
		q.Set("open", "true")
	}
	path := "/alerts"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	raw, err := c.doRaw(ctx, "list_alerts", http.MethodGet, path, token, nil)
	if err != nil {
		return nil, dataCause(err, domain.ErrAlertNotFound)
	}
	list, err := decodeList[wireAlert](raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	return convert[wireAlert, domain.Alert](list), nil
}

func (c *Client) AcknowledgeAlert(ctx context.Context, token, id string) (*domain.Alert, error) {
	var w wireAlert
	if err := c.doJSON(ctx, "ack_alert", http.MethodPost, "/alerts/"+url.PathEscape(id)+"/ack", token, nil, &w); err != nil {
		return nil, dataCause(err, domain.ErrAlertNotFound)
	}
	a := w.toDomain()
	return &a, nil
}

// Ping checks that the backend answers its liveness probe.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.doRaw(ctx, "ping", http.MethodGet, "/health", "", nil)
	return err
}

// dataCause maps failures of authenticated calls onto domain errors.
func dataCause(err error, notFound error) error {
	var se *statusError
	if !errors.As(err, &se) {
		return err
	}
	switch {
	case se.Code == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", domain.ErrUnauthenticated, se.Message)
	case se.Code == http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrForbidden, se.Message)
	case se.Code == http.StatusNotFound:
		return notFound
	case se.Code >= 500:
		return fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, se)
	default:
		return se
	}
}

// ── Transport ─────────────────────────────────────────────────────────────────

func (c *Client) doJSON(ctx context.Context, op, method, path, token string, body, out any) error {
	raw, err := c.doRaw(ctx, op, method, path, token, body)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", domain.ErrBackendUnavailable, op, err)
	}
	return nil
}

// doRaw performs the request and returns the body of a 2xx answer. Transport
// failures wrap domain.ErrBackendUnavailable; other answers are *statusError.
func (c *Client) doRaw(ctx context.Context, op, method, path, token string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.BackendRequestDuration.WithLabelValues(op, "error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()
	metrics.BackendRequestDuration.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s response: %v", domain.ErrBackendUnavailable, op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &statusError{Code: resp.StatusCode, Message: errorMessage(raw)}
	}
	return raw, nil
}

// errorMessage extracts {"error": "..."} or {"message": "..."} from an error body.
func errorMessage(raw []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if m := firstString(body.Error, body.Message); m != "" {
			return m
		}
	}
	return strings.TrimSpace(string(raw))
}
