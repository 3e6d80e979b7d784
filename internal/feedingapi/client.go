package feedingapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/five82/feeder/internal/model"
)

// Remote is the full remote boundary consumed by the engine: the booking
// mutations, the availability check, point reads and the change feed.
type Remote interface {
	StartBooking(ctx context.Context, pointID string) (BookingID, error)
	FinishBooking(ctx context.Context, pointID string, images []string) error
	CancelBooking(ctx context.Context, pointID string) error
	SetFavorite(ctx context.Context, pointID string, favorite bool) error
	CanBook(ctx context.Context, pointID string) (bool, error)
	FetchPoint(ctx context.Context, pointID string) (model.FeedingPoint, error)
	ListPoints(ctx context.Context) ([]model.FeedingPoint, error)
	FetchHistory(ctx context.Context, pointID string) ([]model.HistoryEntry, error)
	FetchChanges(ctx context.Context, since uint64, wait time.Duration) (ChangeBatch, error)
}

// Ensure Client implements Remote at compile time.
var _ Remote = (*Client)(nil)

// Client talks to the feeding HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
	token     string
	deviceID  string
}

// Options configure a Client.
type Options struct {
	Token       string
	DeviceID    string
	RequestRate float64 // requests per second; zero uses the default
	Timeout     time.Duration
}

const (
	defaultAPIBase     = "http://127.0.0.1:8088"
	defaultUserAgent   = "feeder/0.1"
	defaultRequestRate = 10
	requestBurst       = 5
	requestTimeout     = 10 * time.Second
	maxLongPollWait    = 30 * time.Second
)

// NewClient builds a Client for the API at apiBase.
func NewClient(apiBase string, opts Options) (*Client, error) {
	base, err := parseBaseURL(apiBase)
	if err != nil {
		return nil, err
	}
	rps := opts.RequestRate
	if rps <= 0 {
		rps = defaultRequestRate
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = requestTimeout
	}
	return &Client{
		baseURL: base,
		// The long-poll wait is added per request, so the client timeout
		// covers the largest wait plus the regular budget.
		http:      &http.Client{Timeout: timeout + maxLongPollWait},
		limiter:   rate.NewLimiter(rate.Limit(rps), requestBurst),
		userAgent: defaultUserAgent,
		token:     strings.TrimSpace(opts.Token),
		deviceID:  strings.TrimSpace(opts.DeviceID),
	}, nil
}

// StartBooking reserves the point for this device. A lost race returns
// model.ErrAlreadyBooked.
func (c *Client) StartBooking(ctx context.Context, pointID string) (BookingID, error) {
	if c == nil {
		return "", fmt.Errorf("client is nil")
	}
	var payload BookingResponse
	if err := c.mutate(ctx, http.MethodPost, pointPath(pointID, "bookings"), nil, &payload); err != nil {
		return "", err
	}
	return payload.BookingID, nil
}

// FinishBooking completes the feeding with the uploaded image keys.
func (c *Client) FinishBooking(ctx context.Context, pointID string, images []string) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if images == nil {
		images = []string{}
	}
	return c.mutate(ctx, http.MethodPost, pointPath(pointID, "bookings", "finish"), FinishRequest{Images: images}, nil)
}

// CancelBooking reverts the point to available.
func (c *Client) CancelBooking(ctx context.Context, pointID string) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	return c.mutate(ctx, http.MethodPost, pointPath(pointID, "bookings", "cancel"), nil, nil)
}

// SetFavorite marks or unmarks the point as a favorite of the current user.
func (c *Client) SetFavorite(ctx context.Context, pointID string, favorite bool) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	return c.mutate(ctx, http.MethodPut, pointPath(pointID, "favorite"), FavoriteRequest{Favorite: favorite}, nil)
}

// CanBook asks the server whether the point can be booked right now.
func (c *Client) CanBook(ctx context.Context, pointID string) (bool, error) {
	if c == nil {
		return false, fmt.Errorf("client is nil")
	}
	var payload BookableResponse
	if err := c.do(ctx, http.MethodGet, pointPath(pointID, "bookable"), &payload); err != nil {
		return false, err
	}
	return payload.Bookable, nil
}

// FetchPoint retrieves a single point.
func (c *Client) FetchPoint(ctx context.Context, pointID string) (model.FeedingPoint, error) {
	if c == nil {
		return model.FeedingPoint{}, fmt.Errorf("client is nil")
	}
	var payload model.FeedingPoint
	if err := c.do(ctx, http.MethodGet, pointPath(pointID), &payload); err != nil {
		return model.FeedingPoint{}, err
	}
	return payload, nil
}

// ListPoints retrieves every point visible to the user.
func (c *Client) ListPoints(ctx context.Context) ([]model.FeedingPoint, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload PointListResponse
	if err := c.do(ctx, http.MethodGet, "/api/points", &payload); err != nil {
		return nil, err
	}
	return payload.Items, nil
}

// FetchHistory retrieves the feeding history of a point.
func (c *Client) FetchHistory(ctx context.Context, pointID string) ([]model.HistoryEntry, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload HistoryResponse
	if err := c.do(ctx, http.MethodGet, pointPath(pointID, "history"), &payload); err != nil {
		return nil, err
	}
	return payload.Items, nil
}

// FetchChanges long-polls the change feed for events after since. The
// server holds the request open for up to wait when nothing is pending.
func (c *Client) FetchChanges(ctx context.Context, since uint64, wait time.Duration) (ChangeBatch, error) {
	if c == nil {
		return ChangeBatch{}, fmt.Errorf("client is nil")
	}
	wait = min(wait, maxLongPollWait)
	values := url.Values{}
	values.Set("since", strconv.FormatUint(since, 10))
	if wait > 0 {
		values.Set("wait_ms", strconv.FormatInt(wait.Milliseconds(), 10))
	}
	rel := &url.URL{Path: "/api/changes", RawQuery: values.Encode()}
	var payload ChangeBatch
	if err := c.doURL(ctx, http.MethodGet, rel, nil, "", &payload); err != nil {
		return ChangeBatch{}, err
	}
	return payload, nil
}

func (c *Client) do(ctx context.Context, method, path string, dest any) error {
	rel, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("parse path %q: %w", path, err)
	}
	return c.doURL(ctx, method, rel, nil, "", dest)
}

func (c *Client) mutate(ctx context.Context, method, path string, body, dest any) error {
	rel, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("parse path %q: %w", path, err)
	}
	return c.doURL(ctx, method, rel, body, uuid.NewString(), dest)
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, body any, idempotencyKey string, dest any) error {
	op := method + " " + rel.Path
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for request slot: %w", err)
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.deviceID != "" {
		req.Header.Set("X-Device-ID", c.deviceID)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &model.NetworkError{Op: op, Err: fmt.Errorf("execute request: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return statusError(op, resp)
	}
	if dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// statusError maps an error status onto the engine error taxonomy.
func statusError(op string, resp *http.Response) error {
	var envelope errorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &envelope)
	}
	message := strings.TrimSpace(envelope.Message)
	if message == "" {
		message = strings.TrimSpace(envelope.Error)
	}

	switch {
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%s: %w", op, model.ErrAlreadyBooked)
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return &model.MutationRejectedError{Message: message}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return &model.NetworkError{Op: op, Err: fmt.Errorf("api returned status %d", resp.StatusCode)}
	default:
		return fmt.Errorf("api %s returned status %d", op, resp.StatusCode)
	}
}

// pointPath builds an escaped path below /api/points/{id}.
func pointPath(pointID string, parts ...string) string {
	segments := append([]string{"/api/points", url.PathEscape(pointID)}, parts...)
	return strings.Join(segments, "/")
}

func parseBaseURL(apiBase string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiBase)
	if trimmed == "" {
		trimmed = defaultAPIBase
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_base %q: %w", apiBase, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
