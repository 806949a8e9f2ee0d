// Package camunda wraps the Zeebe gRPC client with connection checking and
// retry of transient command failures. Both the worker manager and the
// dispatch side connect through it.
package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"idv-workers/internal/common/config"
	"idv-workers/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

const (
	defaultConnectionTimeout = 10 * time.Second
	defaultRequestTimeout    = 10 * time.Second

	maxCommandRetries = 3
	retryBaseDelay    = 1 * time.Second
	retryMaxDelay     = 10 * time.Second
)

// Client is a connected Zeebe client. The zero value is not usable; construct
// with NewClient.
type Client struct {
	client         zbc.Client
	requestTimeout time.Duration
}

// NewClient connects to the broker and verifies the connection with a
// topology request before returning.
func NewClient(cfg config.CamundaConfig) (*Client, error) {
	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.BrokerAddress,
		UsePlaintextConnection: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create zeebe client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectionTimeout)
	defer cancel()

	if _, err := zeebeClient.NewTopologyCommand().Send(ctx); err != nil {
		zeebeClient.Close()
		return nil, fmt.Errorf("connect to zeebe broker at %s: %w", cfg.BrokerAddress, err)
	}

	requestTimeout := time.Duration(cfg.RequestTimeout) * time.Millisecond
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}

	return &Client{client: zeebeClient, requestTimeout: requestTimeout}, nil
}

// GetClient exposes the raw Zeebe client for job worker registration.
func (c *Client) GetClient() zbc.Client {
	return c.client
}

// RequestTimeout is the per-command deadline commands should run under.
func (c *Client) RequestTimeout() time.Duration {
	return c.requestTimeout
}

func (c *Client) Close() error {
	return c.client.Close()
}

// HealthCheck sends a topology request; used by the readiness endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultConnectionTimeout)
	defer cancel()

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}

// ExecuteWithRetry runs a Zeebe command, retrying transient failures with
// exponential backoff. Non-transient failures surface immediately.
func (c *Client) ExecuteWithRetry(ctx context.Context, operationName string, commandFunc func(context.Context) error) error {
	var lastErr error
	delay := retryBaseDelay

	for attempt := 0; attempt <= maxCommandRetries; attempt++ {
		cmdCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
		err := commandFunc(cmdCtx)
		cancel()
		if err == nil {
			return nil
		}

		lastErr = err
		if !isTransient(err) || attempt == maxCommandRetries {
			return mapCommandError(err, operationName, attempt)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%s cancelled after %d attempts: %w", operationName, attempt+1, ctx.Err())
		}
		delay *= 2
		if delay > retryMaxDelay {
			delay = retryMaxDelay
		}
	}

	return fmt.Errorf("%s failed after %d retries: %w", operationName, maxCommandRetries, lastErr)
}

func isTransient(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, phrase := range []string{
		"connection refused",
		"connection reset",
		"timeout",
		"deadline exceeded",
		"unavailable",
		"unreachable",
		"broken pipe",
	} {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// mapCommandError folds a failed Zeebe command into the standard error
// vocabulary so callers can classify it without string matching.
func mapCommandError(err error, operation string, attempt int) error {
	msg := err.Error()
	lowerMsg := strings.ToLower(msg)

	detail := fmt.Sprintf("zeebe command %s failed", operation)
	if attempt > 0 {
		detail += fmt.Sprintf(" after %d attempts", attempt+1)
	}

	switch {
	case strings.Contains(lowerMsg, "timeout") ||
		strings.Contains(lowerMsg, "deadline exceeded"):
		return errors.NewTimeoutError("zeebe", fmt.Errorf("%s: %s", detail, msg))
	case strings.Contains(lowerMsg, "not found"):
		return errors.NewResourceNotFoundError("zeebe", fmt.Sprintf("%s: %s", detail, msg))
	default:
		return errors.NewExternalServiceError("zeebe", fmt.Errorf("%s: %s", detail, msg))
	}
}
