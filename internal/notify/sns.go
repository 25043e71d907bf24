package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/cuongbtq/iot-notifier/internal/config"
	"github.com/cuongbtq/iot-notifier/internal/worker/domain"
)

// SNSPublisher publishes alerts to an SNS topic
type SNSPublisher struct {
	client *sns.Client
	logger *slog.Logger
}

// NewSNSPublisher uses the default AWS credential chain. Publishes are
// attempted once; a retried 5xx could deliver the same alert twice.
func NewSNSPublisher(ctx context.Context, cfg config.PubSubConfig, region string, logger *slog.Logger) (*SNSPublisher, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithRetryMaxAttempts(1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return newSNSPublisherFromConfig(awsCfg, cfg.Endpoint, logger), nil
}

func newSNSPublisherFromConfig(awsCfg aws.Config, endpoint string, logger *slog.Logger) *SNSPublisher {
	client := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return &SNSPublisher{client: client, logger: logger}
}

// Name identifies the sink in logs and metrics
func (p *SNSPublisher) Name() string {
	return "sns"
}

// Publish sends the notification to n.Target
func (p *SNSPublisher) Publish(ctx context.Context, n domain.Notification) error {
	out, err := p.client.Publish(ctx, &sns.PublishInput{
		TargetArn: aws.String(n.Target),
		Subject:   aws.String(n.Subject),
		Message:   aws.String(n.Body),
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", n.Target, err)
	}

	p.logger.Debug("Published notification to SNS",
		slog.String("topic", n.Target),
		slog.String("subject", n.Subject),
		slog.String("message_id", aws.ToString(out.MessageId)),
	)
	return nil
}
