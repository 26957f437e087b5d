package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"casetrack/internal/domain/entity"
	"casetrack/internal/observability/logging"
	"casetrack/internal/resilience/retry"
)

const (
	// DefaultOneSignalEndpoint is the OneSignal create-notification URL.
	DefaultOneSignalEndpoint = "https://onesignal.com/api/v1/notifications"

	DefaultTimeout = 10 * time.Second
	MinTimeout     = 1 * time.Second
	MaxTimeout     = 30 * time.Second

	providerName      = "onesignal"
	broadcastSegment  = "All"
	contentLanguage   = "en"
	maxErrorBodyBytes = 512
)

// OneSignalConfig configures the OneSignal REST client.
type OneSignalConfig struct {
	AppID    string
	APIKey   string
	Endpoint string

	// Timeout bounds each HTTP request; it is clamped to [MinTimeout, MaxTimeout].
	Timeout time.Duration

	// RequestsPerSecond and Burst configure the client side token bucket.
	RequestsPerSecond float64
	Burst             int

	// Retry governs re-sending after 429, 5xx and network failures.
	Retry retry.Config
}

// OneSignalNotifier posts notifications to the OneSignal REST API.
type OneSignalNotifier struct {
	config      OneSignalConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
	now         func() time.Time
}

// NewOneSignalNotifier creates a client with a pooled http.Client.
// Credentials are not checked here; call Validate before the first send.
func NewOneSignalNotifier(config OneSignalConfig) *OneSignalNotifier {
	if config.Endpoint == "" {
		config.Endpoint = DefaultOneSignalEndpoint
	}
	config.Timeout = ClampTimeout(config.Timeout)
	if config.Retry.MaxAttempts == 0 {
		config.Retry = retry.PushProviderConfig()
	}
	if config.Retry.OnRetry == nil {
		config.Retry.OnRetry = func(int, time.Duration, error) { recordRetry(providerName) }
	}

	return &OneSignalNotifier{
		config:      config,
		httpClient:  &http.Client{Timeout: config.Timeout},
		rateLimiter: NewRateLimiter(config.RequestsPerSecond, config.Burst),
		now:         time.Now,
	}
}

// ClampTimeout applies the default and the bounds to a request timeout.
func ClampTimeout(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return DefaultTimeout
	case d < MinTimeout:
		return MinTimeout
	case d > MaxTimeout:
		return MaxTimeout
	}
	return d
}

// Validate reports missing credentials without touching the network.
func (o *OneSignalNotifier) Validate() error {
	if o.config.AppID == "" {
		return ErrMissingAppID
	}
	if o.config.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// OneSignalPayload is the JSON body of a create-notification request.
type OneSignalPayload struct {
	AppID            string                `json:"app_id"`
	IncludedSegments []string              `json:"included_segments,omitempty"`
	Filters          []entity.FilterClause `json:"filters,omitempty"`
	Contents         map[string]string     `json:"contents"`
}

// oneSignalResponse is the create-notification response. Errors is either a
// list of messages or an object such as {"invalid_player_ids": [...]}.
type oneSignalResponse struct {
	ID         string          `json:"id"`
	Recipients int             `json:"recipients"`
	Errors     json.RawMessage `json:"errors"`
}

// BuildPayload maps a notification onto the OneSignal body: broadcast goes to
// the "All" segment, otherwise the role filters are sent as-is.
func (o *OneSignalNotifier) BuildPayload(n *entity.Notification) (OneSignalPayload, error) {
	payload := OneSignalPayload{
		AppID:    o.config.AppID,
		Contents: map[string]string{contentLanguage: n.Message},
	}
	switch {
	case n.Targeting.Broadcast:
		payload.IncludedSegments = []string{broadcastSegment}
	case len(n.Targeting.Filters) > 0:
		payload.Filters = n.Targeting.Filters
	default:
		return OneSignalPayload{}, ErrEmptyTargeting
	}
	return payload, nil
}

// Notify implements Notifier. It waits for the rate limiter, then posts the
// payload with bounded retry.
func (o *OneSignalNotifier) Notify(ctx context.Context, n *entity.Notification) (*Receipt, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	payload, err := o.BuildPayload(n)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal onesignal payload: %w", err)
	}

	logger := logging.WithNotification(logging.WithRequestID(ctx, slog.Default()), n)

	waited, err := o.rateLimiter.Wait(ctx)
	recordRateLimitWait(providerName, waited)
	if err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	var receipt *Receipt
	attempt := 0
	err = retry.WithBackoff(ctx, o.config.Retry, func() error {
		attempt++
		r, err := o.post(ctx, body)
		if err != nil {
			logger.Warn("onesignal request failed",
				slog.Int("attempt", attempt),
				slog.Any("error", err))
			return err
		}
		receipt = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("onesignal notification accepted",
		slog.String("provider_id", receipt.ID),
		slog.Int("recipients", receipt.Recipients),
		slog.Int("attempt", attempt))
	return receipt, nil
}

// post performs one HTTP exchange and classifies the outcome.
func (o *OneSignalNotifier) post(ctx context.Context, body []byte) (*Receipt, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Basic "+o.config.APIKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		recordProviderRequest(providerName, "error")
		return nil, fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		recordProviderRequest(providerName, "error")
		return nil, fmt.Errorf("read response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		recordProviderRequest(providerName, "429")
		recordRateLimitHit(providerName)
		return nil, &RateLimitError{
			Message:    "onesignal rate limit exceeded",
			RetryAfter: extractRetryAfter(resp, respBody, o.now()),
		}
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		recordProviderRequest(providerName, "2xx")
		return parseReceipt(resp.StatusCode, respBody)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		recordProviderRequest(providerName, "4xx")
		return nil, &ClientError{StatusCode: resp.StatusCode, Message: truncate(string(respBody), maxErrorBodyBytes)}
	case resp.StatusCode >= 500:
		recordProviderRequest(providerName, "5xx")
		return nil, &ServerError{StatusCode: resp.StatusCode, Message: truncate(string(respBody), maxErrorBodyBytes)}
	}

	recordProviderRequest(providerName, "error")
	return nil, &ResponseError{StatusCode: resp.StatusCode, Message: "unexpected status"}
}

func parseReceipt(status int, body []byte) (*Receipt, error) {
	var parsed oneSignalResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &ResponseError{StatusCode: status, Message: err.Error()}
	}

	var messages []string
	if len(parsed.Errors) > 0 && json.Unmarshal(parsed.Errors, &messages) == nil && len(messages) > 0 {
		return nil, &ResponseError{StatusCode: status, Message: truncate(fmt.Sprint(messages), maxErrorBodyBytes)}
	}
	if parsed.ID == "" {
		return nil, &ResponseError{StatusCode: status, Message: "missing notification id"}
	}
	if len(parsed.Errors) > 0 && string(parsed.Errors) != "null" && messages == nil {
		slog.Warn("onesignal accepted notification with partial errors",
			slog.String("provider_id", parsed.ID),
			slog.String("errors", truncate(string(parsed.Errors), maxErrorBodyBytes)))
	}

	return &Receipt{ID: parsed.ID, Recipients: parsed.Recipients}, nil
}
