package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"eventscan/internal/config"
	"eventscan/internal/logging"
	"eventscan/internal/models"

	"github.com/rs/zerolog"
)

var ErrNotConfigured = errors.New("notification credentials are not configured")

type recipient struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type sendRequest struct {
	NotificationID string            `json:"notificationId"`
	User           recipient         `json:"user"`
	MergeTags      map[string]string `json:"mergeTags"`
}

// Client sends templated emails through the NotificationAPI REST sender.
type Client struct {
	httpClient    *http.Client
	endpoint      string
	clientID      string
	clientSecret  string
	alertTemplate string
	retry         RetryPolicy
	logger        *zerolog.Logger
}

func NewClient(cfg config.NotifyConfig, httpClient *http.Client, logger *zerolog.Logger) (*Client, error) {
	if !cfg.NotificationsConfigured() {
		return nil, ErrNotConfigured
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	endpoint, err := url.JoinPath(cfg.BaseURL, url.PathEscape(cfg.ClientID), "sender")
	if err != nil {
		return nil, fmt.Errorf("build notification endpoint: %w", err)
	}

	return &Client{
		httpClient:    httpClient,
		endpoint:      endpoint,
		clientID:      cfg.ClientID,
		clientSecret:  cfg.ClientSecret,
		alertTemplate: cfg.AlertTemplate,
		retry:         DefaultRetryPolicy,
		logger:        logging.Component(logger, "notificationapi"),
	}, nil
}

// WithRetryPolicy replaces the retry policy.
func (c *Client) WithRetryPolicy(p RetryPolicy) *Client {
	c.retry = p
	return c
}

func (c *Client) SendAdminAlert(ctx context.Context, adminEmail string, kind models.AlertKind, bookingID string) error {
	return c.send(ctx, sendRequest{
		NotificationID: c.alertTemplate,
		User:           recipient{ID: adminEmail, Email: adminEmail},
		MergeTags: map[string]string{
			"type":      string(kind),
			"bookingId": bookingID,
		},
	})
}

func (c *Client) SendCustomerMessage(ctx context.Context, customerEmail string, kind models.MessageKind, bookingID string) error {
	return c.send(ctx, sendRequest{
		NotificationID: string(kind),
		User:           recipient{ID: customerEmail, Email: customerEmail},
		MergeTags:      map[string]string{"bookingId": bookingID},
	})
}

func (c *Client) send(ctx context.Context, req sendRequest) error {
	if strings.TrimSpace(req.User.Email) == "" {
		return fmt.Errorf("send %s: empty recipient", req.NotificationID)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", req.NotificationID, err)
	}

	err = c.retry.Do(ctx, func(ctx context.Context) error {
		return c.post(ctx, body)
	})
	if err != nil {
		return fmt.Errorf("send %s to %s: %w", req.NotificationID, req.User.Email, err)
	}

	c.logger.Info().Str("notification", req.NotificationID).Str("recipient", req.User.Email).Msg("Notification sent")
	return nil
}

func (c *Client) post(ctx context.Context, body []byte) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.clientID, c.clientSecret)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		return transient(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	statusErr := fmt.Errorf("notificationapi returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return transient(statusErr)
	}
	return statusErr
}
