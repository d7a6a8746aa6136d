package infrastructure

import (
	"context"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/pkg/errors"

	"github.com/draftea/saga-orchestrator/shared/saga"
)

// SNSAPI is the subset of the SNS client used by the saga channel
type SNSAPI interface {
	CreateTopic(ctx context.Context, params *sns.CreateTopicInput, optFns ...func(*sns.Options)) (*sns.CreateTopicOutput, error)
	Subscribe(ctx context.Context, params *sns.SubscribeInput, optFns ...func(*sns.Options)) (*sns.SubscribeOutput, error)
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSPublisher publishes saga messages to one SNS topic per step channel
type SNSPublisher struct {
	client SNSAPI

	mu     sync.RWMutex
	topics map[string]string
}

// NewSNSPublisher creates a new SNSPublisher
func NewSNSPublisher(client SNSAPI) *SNSPublisher {
	return &SNSPublisher{
		client: client,
		topics: make(map[string]string),
	}
}

// EnsureTopic creates the topic for channelID and remembers its ARN.
// CreateTopic is idempotent on the SNS side.
func (p *SNSPublisher) EnsureTopic(ctx context.Context, channelID, topicName string) (string, error) {
	p.mu.RLock()
	arn, ok := p.topics[channelID]
	p.mu.RUnlock()
	if ok {
		return arn, nil
	}

	out, err := p.client.CreateTopic(ctx, &sns.CreateTopicInput{Name: aws.String(topicName)})
	if err != nil {
		return "", errors.Wrapf(err, "failed to create SNS topic %s", topicName)
	}
	if out.TopicArn == nil {
		return "", errors.Errorf("SNS returned no ARN for topic %s", topicName)
	}

	p.mu.Lock()
	p.topics[channelID] = *out.TopicArn
	p.mu.Unlock()
	return *out.TopicArn, nil
}

// Publish sends msg to the topic of channelID. It returns once SNS assigned
// a message id.
func (p *SNSPublisher) Publish(ctx context.Context, channelID string, msg saga.Message) error {
	p.mu.RLock()
	topicArn, ok := p.topics[channelID]
	p.mu.RUnlock()
	if !ok {
		return errors.Wrapf(ErrChannelNotFound, "publish to %s", channelID)
	}

	body, err := msg.Marshal()
	if err != nil {
		return errors.Wrap(err, "failed to marshal message")
	}

	attrs := map[string]types.MessageAttributeValue{
		"saga_id": {
			DataType:    aws.String("String"),
			StringValue: aws.String(msg.Saga.ID.String()),
		},
		"phase": {
			DataType:    aws.String("String"),
			StringValue: aws.String(msg.Saga.Phase.String()),
		},
		"index": {
			DataType:    aws.String("Number"),
			StringValue: aws.String(strconv.Itoa(msg.Saga.Index)),
		},
	}
	if msg.Saga.ID.IsZero() {
		delete(attrs, "saga_id")
	}

	res, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn:          aws.String(topicArn),
		Message:           aws.String(string(body)),
		MessageAttributes: attrs,
	})
	if err != nil {
		return errors.Wrap(err, "failed to publish to SNS")
	}
	if res.MessageId == nil {
		return errors.New("SNS did not acknowledge the message")
	}
	return nil
}
