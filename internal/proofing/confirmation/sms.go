package confirmation

import (
	"context"
	"fmt"

	"idv-workers/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSAPI is the slice of the SNS client the SMS sender needs.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SMSSender delivers confirmation codes as transactional SMS via AWS SNS.
type SMSSender struct {
	client   SNSAPI
	senderID string
	logger   logger.Logger
}

func NewSMSSender(client SNSAPI, senderID string, log logger.Logger) *SMSSender {
	return &SMSSender{client: client, senderID: senderID, logger: log}
}

func (s *SMSSender) SendCode(ctx context.Context, destination, code string) error {
	attrs := map[string]types.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {
			DataType:    aws.String("String"),
			StringValue: aws.String("Transactional"),
		},
	}
	if s.senderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(s.senderID),
		}
	}

	_, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String(destination),
		Message:           aws.String(fmt.Sprintf("Your verification code is %s", code)),
		MessageAttributes: attrs,
	})
	if err != nil {
		return fmt.Errorf("publish confirmation sms: %w", err)
	}

	s.logger.Debug("confirmation sms published", map[string]interface{}{
		"destination": destination,
	})
	return nil
}
