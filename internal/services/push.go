package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/MassBabyGeek/PumpPro-challenges/internal/config"
	model "github.com/MassBabyGeek/PumpPro-challenges/internal/models"
)

// Pusher diffuse une notification déjà enregistrée vers les appareils
type Pusher interface {
	Push(ctx context.Context, n *model.Notification) error
}

type snsPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSPusher publie sur un topic SNS ; les abonnements filtrent sur l'attribut user_id
type SNSPusher struct {
	client   snsPublisher
	topicARN string
}

// NewSNSPusher creates a pusher from the AWS default credential chain
func NewSNSPusher(ctx context.Context, cfg *config.Config) (*SNSPusher, error) {
	if !cfg.PushEnabled() {
		return nil, fmt.Errorf("SNS_TOPIC_ARN is not set")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return &SNSPusher{
		client:   sns.NewFromConfig(awsCfg),
		topicARN: cfg.SNSTopicARN,
	}, nil
}

func (p *SNSPusher) Push(ctx context.Context, n *model.Notification) error {
	message, err := snsMessage(n)
	if err != nil {
		return err
	}

	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn:         aws.String(p.topicARN),
		MessageStructure: aws.String("json"),
		Message:          aws.String(message),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"user_id": {DataType: aws.String("String"), StringValue: aws.String(n.UserID)},
			"type":    {DataType: aws.String("String"), StringValue: aws.String(string(n.Type))},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish notification %s: %w", n.ID, err)
	}
	return nil
}

// snsMessage construit le message multi-protocole (default + GCM)
func snsMessage(n *model.Notification) (string, error) {
	payload, err := model.EncodePayload(n.Payload)
	if err != nil {
		return "", err
	}

	data := map[string]string{
		"notificationId": n.ID,
		"type":           string(n.Type),
	}
	if len(payload) > 0 {
		data["payload"] = string(payload)
	}

	gcm, err := json.Marshal(map[string]any{
		"notification": map[string]string{
			"title": n.Title,
			"body":  n.Message,
		},
		"data": data,
	})
	if err != nil {
		return "", err
	}

	raw, err := json.Marshal(map[string]string{
		"default": n.Message,
		"GCM":     string(gcm),
	})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
