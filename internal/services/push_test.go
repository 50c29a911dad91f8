package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MassBabyGeek/PumpPro-challenges/internal/config"
	model "github.com/MassBabyGeek/PumpPro-challenges/internal/models"
)

type fakeSNS struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("m-1")}, nil
}

func TestSNSPusher_Push(t *testing.T) {
	client := &fakeSNS{}
	p := &SNSPusher{client: client, topicARN: "arn:aws:sns:eu-west-3:123456789012:pumppro"}

	n := &model.Notification{
		ID: "n1", UserID: "A", Type: model.NotificationChallenge,
		Title: "Challenge completed", Message: "You reached 10 sessions",
		Payload: model.ChallengePayload{ChallengeID: "C", CurrentValue: 10, TargetValue: 10, Unit: "sessions"},
	}
	require.NoError(t, p.Push(context.Background(), n))
	require.Len(t, client.inputs, 1)

	in := client.inputs[0]
	assert.Equal(t, "arn:aws:sns:eu-west-3:123456789012:pumppro", aws.ToString(in.TopicArn))
	assert.Equal(t, "json", aws.ToString(in.MessageStructure))
	assert.Equal(t, "A", aws.ToString(in.MessageAttributes["user_id"].StringValue))
	assert.Equal(t, "challenge", aws.ToString(in.MessageAttributes["type"].StringValue))

	var envelope map[string]string
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(in.Message)), &envelope))
	assert.Equal(t, "You reached 10 sessions", envelope["default"])

	var gcm struct {
		Notification map[string]string `json:"notification"`
		Data         map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(envelope["GCM"]), &gcm))
	assert.Equal(t, "Challenge completed", gcm.Notification["title"])
	assert.Equal(t, "n1", gcm.Data["notificationId"])
	assert.JSONEq(t, `{"challengeId":"C","currentValue":10,"targetValue":10,"unit":"sessions"}`, gcm.Data["payload"])
}

func TestSNSPusher_PublishError(t *testing.T) {
	p := &SNSPusher{client: &fakeSNS{err: errors.New("throttled")}, topicARN: "arn"}
	err := p.Push(context.Background(), &model.Notification{ID: "n1", UserID: "A", Type: model.NotificationFollow})
	assert.ErrorContains(t, err, "throttled")
}

func TestNewSNSPusher_RequiresTopic(t *testing.T) {
	_, err := NewSNSPusher(context.Background(), &config.Config{AWSRegion: "eu-west-3"})
	assert.Error(t, err)
}
