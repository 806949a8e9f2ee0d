// Package confirmation starts out-of-band confirmation handshakes: after a
// vendor confirms a contact channel, a one-time code is delivered to that
// channel and the handshake handle is stored in the workflow session.
package confirmation

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"idv-workers/internal/common/errors"
	"idv-workers/internal/common/logger"

	"github.com/google/uuid"
)

// Delivery methods.
const (
	MethodSMS   = "sms"
	MethodEmail = "email"
)

// Session is the handle for one confirmation handshake.
type Session struct {
	ID             string    `json:"id"`
	Destination    string    `json:"destination"`
	DeliveryMethod string    `json:"deliveryMethod"`
	Code           string    `json:"code"`
	StartedAt      time.Time `json:"startedAt"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

// Expired reports whether the code window has closed.
func (s Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Matches checks a submitted code against the session, honoring expiry.
func (s Session) Matches(code string) bool {
	return !s.Expired() && code != "" && code == s.Code
}

// Sender delivers a confirmation code over one channel.
type Sender interface {
	SendCode(ctx context.Context, destination, code string) error
}

// Service generates codes and starts handshakes.
type Service struct {
	senders    map[string]Sender
	codeLength int
	codeTTL    time.Duration
	logger     logger.Logger
}

func NewService(senders map[string]Sender, codeLength int, codeTTL time.Duration, log logger.Logger) *Service {
	if codeLength <= 0 {
		codeLength = 6
	}
	if codeTTL <= 0 {
		codeTTL = 10 * time.Minute
	}
	return &Service{
		senders:    senders,
		codeLength: codeLength,
		codeTTL:    codeTTL,
		logger:     log,
	}
}

// Start generates a one-time code, delivers it to the destination, and
// returns the handshake handle for the caller's workflow state.
func (s *Service) Start(ctx context.Context, destination, method string) (Session, error) {
	sender, ok := s.senders[method]
	if !ok {
		return Session{}, fmt.Errorf("no sender configured for delivery method %q", method)
	}

	code, err := generateCode(s.codeLength)
	if err != nil {
		return Session{}, fmt.Errorf("generate confirmation code: %w", err)
	}

	now := time.Now().UTC()
	sess := Session{
		ID:             uuid.NewString(),
		Destination:    destination,
		DeliveryMethod: method,
		Code:           code,
		StartedAt:      now,
		ExpiresAt:      now.Add(s.codeTTL),
	}

	if err := sender.SendCode(ctx, destination, code); err != nil {
		return Session{}, errors.NewConfirmationSendFailedError(method, err)
	}

	s.logger.Info("confirmation handshake started", map[string]interface{}{
		"confirmationId": sess.ID,
		"method":         method,
	})
	return sess, nil
}

func generateCode(length int) (string, error) {
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
