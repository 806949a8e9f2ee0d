package confirmation

import (
	"context"
	"fmt"

	awsclient "idv-workers/internal/common/aws"
	"idv-workers/internal/common/config"
	"idv-workers/internal/common/logger"
)

// NewServiceFromConfig assembles a Service with real AWS-backed senders for
// every delivery channel enabled in configuration. At least one channel must
// be enabled.
func NewServiceFromConfig(ctx context.Context, conf config.ConfirmationConfig, awsConf config.AWSConfig, log logger.Logger) (*Service, error) {
	senders := map[string]Sender{}

	if awsConf.SNS.Enabled {
		snsClient, err := awsclient.NewSNSClient(ctx, awsConf.Region)
		if err != nil {
			return nil, fmt.Errorf("init sns client: %w", err)
		}
		senderID := conf.SMSSenderID
		if senderID == "" {
			senderID = awsConf.SNS.DefaultSMSSenderID
		}
		senders[MethodSMS] = NewSMSSender(snsClient, senderID, log)
	}

	if awsConf.SES.Enabled {
		sesClient, err := awsclient.NewSESClient(ctx, awsConf.Region)
		if err != nil {
			return nil, fmt.Errorf("init ses client: %w", err)
		}
		fromEmail := conf.FromEmail
		if fromEmail == "" {
			fromEmail = awsConf.SES.FromEmail
		}
		senders[MethodEmail] = NewEmailSender(sesClient, fromEmail, log)
	}

	if len(senders) == 0 {
		return nil, fmt.Errorf("no confirmation delivery channel enabled")
	}

	return NewService(senders, conf.CodeLength, conf.CodeTTL(), log), nil
}
