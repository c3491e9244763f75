// internal/common/aws/sns.go
package aws

import (
	"context"
	"encoding/json"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"email-analyzer/internal/categorization"
	apperrors "email-analyzer/internal/common/errors"
	"email-analyzer/internal/common/logger"
)

// SNSPublisher is the part of *sns.Client the alerter needs.
type SNSPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func NewSNSClient(ctx context.Context, region string) (*sns.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return sns.NewFromConfig(cfg), nil
}

// UrgentAlerter publishes an alert to an SNS topic whenever an email is
// categorized with high or critical urgency.
type UrgentAlerter struct {
	client   SNSPublisher
	topicARN string
	logger   logger.Logger
}

func NewUrgentAlerter(client SNSPublisher, topicARN string, log logger.Logger) *UrgentAlerter {
	return &UrgentAlerter{client: client, topicARN: topicARN, logger: log}
}

func (a *UrgentAlerter) AlertUrgent(ctx context.Context, alert categorization.Alert) error {
	message, err := json.Marshal(alert)
	if err != nil {
		return apperrors.NewAlertPublishFailedError(fmt.Errorf("encode alert: %w", err))
	}

	out, err := a.client.Publish(ctx, &sns.PublishInput{
		TopicArn: awssdk.String(a.topicARN),
		Subject:  awssdk.String(alertSubject(alert)),
		Message:  awssdk.String(string(message)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"urgency": {
				DataType:    awssdk.String("String"),
				StringValue: awssdk.String(string(alert.Urgency)),
			},
		},
	})
	if err != nil {
		return apperrors.NewAlertPublishFailedError(err)
	}

	a.logger.Info("Urgent email alert published", map[string]interface{}{
		"emailId":   alert.EmailID,
		"urgency":   alert.Urgency,
		"messageId": awssdk.ToString(out.MessageId),
	})
	return nil
}

// SNS subjects are limited to 100 characters.
func alertSubject(alert categorization.Alert) string {
	subject := fmt.Sprintf("Urgent email #%d: %s", alert.EmailID, alert.Subject)
	if r := []rune(subject); len(r) > 100 {
		subject = string(r[:97]) + "..."
	}
	return subject
}
