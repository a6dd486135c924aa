// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	a2a "github.com/go-a2a/a2a-server"
	"github.com/go-a2a/a2a-server/internal/pool"
)

// PushNotificationSender delivers a task snapshot to a webhook.
type PushNotificationSender interface {
	SendNotification(ctx context.Context, task *a2a.Task, config *a2a.PushNotificationConfig) error
}

// Signer signs webhook request bodies. [*auth.KeyManager] implements it.
type Signer interface {
	Sign(audience string, body []byte) (string, error)
}

// HTTPPushNotificationSender POSTs the task as JSON to the configured URL.
//
// Each notification carries a delivery id in [a2a.NotificationIDHeader] that stays the same
// across retries, so receivers can drop duplicates. Authorization uses, in order, the bearer
// credentials of the config, or a JWT from the Signer binding the request body.
type HTTPPushNotificationSender struct {
	client  *http.Client
	timeout time.Duration
	retry   RetryConfig
	limiter *rate.Limiter
	signer  Signer
	logger  *slog.Logger
}

var _ PushNotificationSender = (*HTTPPushNotificationSender)(nil)

// HTTPPushNotificationSenderConfig holds configuration for HTTPPushNotificationSender.
type HTTPPushNotificationSenderConfig struct {
	Client    *http.Client
	Timeout   time.Duration // Per attempt, defaults to 10s
	Retry     RetryConfig   // Zero value selects DefaultRetryConfig
	RateLimit rate.Limit    // Notifications per second across all tasks; zero disables limiting
	Burst     int
	Signer    Signer
	Logger    *slog.Logger
}

// NewHTTPPushNotificationSender creates a new HTTP-based push notification sender.
func NewHTTPPushNotificationSender(config HTTPPushNotificationSenderConfig) *HTTPPushNotificationSender {
	client := config.Client
	if client == nil {
		client = &http.Client{}
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	retryCfg := config.Retry
	if retryCfg.MaxAttempts == 0 {
		retryCfg = DefaultRetryConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &HTTPPushNotificationSender{
		client:  client,
		timeout: timeout,
		retry:   retryCfg,
		signer:  config.Signer,
		logger:  logger,
	}
	if config.RateLimit > 0 {
		burst := config.Burst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(config.RateLimit, burst)
	}
	return s
}

// SendNotification delivers task to config.URL, retrying transient failures.
func (s *HTTPPushNotificationSender) SendNotification(ctx context.Context, task *a2a.Task, config *a2a.PushNotificationConfig) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid push notification config: %w", err)
	}

	buf := pool.Bytes.Get()
	defer pool.Bytes.Put(buf)
	if err := json.MarshalWrite(buf, task); err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}
	body := buf.Bytes()

	authz, err := s.authorization(config, body)
	if err != nil {
		return err
	}
	deliveryID := ulid.Make().String()

	return retry(ctx, s.retry, func(ctx context.Context) error {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		err := s.post(ctx, config, body, authz, deliveryID)
		if err != nil {
			s.logger.DebugContext(ctx, "push notification attempt failed",
				slog.String("task_id", task.ID),
				slog.String("delivery_id", deliveryID),
				slog.Any("error", err),
			)
		}
		return err
	})
}

func (s *HTTPPushNotificationSender) authorization(config *a2a.PushNotificationConfig, body []byte) (string, error) {
	if auth := config.Authentication; auth != nil && auth.Credentials != "" {
		for _, scheme := range auth.Schemes {
			if strings.EqualFold(scheme, "bearer") {
				return "Bearer " + auth.Credentials, nil
			}
		}
	}
	if s.signer == nil {
		return "", nil
	}
	token, err := s.signer.Sign(config.URL, body)
	if err != nil {
		return "", fmt.Errorf("failed to sign push notification: %w", err)
	}
	return "Bearer " + token, nil
}

func (s *HTTPPushNotificationSender) post(ctx context.Context, config *a2a.PushNotificationConfig, body []byte, authz, deliveryID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(a2a.NotificationIDHeader, deliveryID)
	if config.Token != "" {
		req.Header.Set(a2a.NotificationTokenHeader, config.Token)
	}
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &HTTPStatusError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
