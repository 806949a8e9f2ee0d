package confirmation

import (
	"context"
	"fmt"

	"idv-workers/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESAPI is the slice of the SES client the email sender needs.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// EmailSender delivers confirmation codes by email via AWS SES. Also used
// for the sign-up email confirmation flow.
type EmailSender struct {
	client    SESAPI
	fromEmail string
	logger    logger.Logger
}

func NewEmailSender(client SESAPI, fromEmail string, log logger.Logger) *EmailSender {
	return &EmailSender{client: client, fromEmail: fromEmail, logger: log}
}

func (s *EmailSender) SendCode(ctx context.Context, destination, code string) error {
	return s.send(ctx, destination,
		"Your verification code",
		fmt.Sprintf("Your verification code is %s. It expires shortly.", code),
	)
}

// SendSignUpConfirmation delivers the account sign-up confirmation link.
func (s *EmailSender) SendSignUpConfirmation(ctx context.Context, destination, confirmURL string) error {
	return s.send(ctx, destination,
		"Confirm your email address",
		fmt.Sprintf("Confirm your email address by visiting %s", confirmURL),
	)
}

func (s *EmailSender) send(ctx context.Context, destination, subject, body string) error {
	_, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(s.fromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{destination},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send confirmation email: %w", err)
	}

	s.logger.Debug("confirmation email sent", map[string]interface{}{
		"destination": destination,
	})
	return nil
}
