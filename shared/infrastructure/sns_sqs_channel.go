package infrastructure

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/draftea/saga-orchestrator/shared/saga"
)

var _ saga.Channel = (*SNSSQSChannel)(nil)

// SNSSQSConfig names the AWS resources backing the step channels
type SNSSQSConfig struct {
	Region      string
	Endpoint    string // LocalStack or similar; empty for AWS
	TopicPrefix string
	QueuePrefix string
}

// SNSSQSChannel is a saga.Channel where every step channel is an SNS topic
// with one SQS queue subscribed to it. Messages are published through SNS
// and consumed from SQS.
type SNSSQSChannel struct {
	cfg       SNSSQSConfig
	publisher *SNSPublisher
	sqsClient SQSAPI
	snsClient SNSAPI
	logger    zerolog.Logger
	opts      []SQSSubscriberOption

	mu          sync.Mutex
	queueURLs   map[string]string
	subscribers []*SQSSubscriber
}

// NewSNSSQSChannel creates a channel on top of the given clients
func NewSNSSQSChannel(snsClient SNSAPI, sqsClient SQSAPI, cfg SNSSQSConfig, logger zerolog.Logger, opts ...SQSSubscriberOption) *SNSSQSChannel {
	return &SNSSQSChannel{
		cfg:       cfg,
		publisher: NewSNSPublisher(snsClient),
		snsClient: snsClient,
		sqsClient: sqsClient,
		logger:    logger,
		opts:      opts,
		queueURLs: make(map[string]string),
	}
}

// NewSNSSQSChannelFromConfig loads the default AWS config and builds the
// SNS and SQS clients from it.
func NewSNSSQSChannelFromConfig(ctx context.Context, cfg SNSSQSConfig, logger zerolog.Logger, opts ...SQSSubscriberOption) (*SNSSQSChannel, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS config")
	}

	snsClient := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	sqsClient := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return NewSNSSQSChannel(snsClient, sqsClient, cfg, logger, opts...), nil
}

// CreateIfAbsent creates the topic and queue of channelID and subscribes the
// queue to the topic with raw delivery, so queue bodies are wire messages.
func (c *SNSSQSChannel) CreateIfAbsent(ctx context.Context, channelID string) error {
	topicArn, err := c.publisher.EnsureTopic(ctx, channelID, c.cfg.TopicPrefix+channelID)
	if err != nil {
		return err
	}

	queueName := c.cfg.QueuePrefix + channelID
	queue, err := c.sqsClient.CreateQueue(ctx, &sqs.CreateQueueInput{QueueName: aws.String(queueName)})
	if err != nil {
		return errors.Wrapf(err, "failed to create SQS queue %s", queueName)
	}
	queueURL := aws.ToString(queue.QueueUrl)

	attrs, err := c.sqsClient.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(queueURL),
		AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameQueueArn},
	})
	if err != nil {
		return errors.Wrapf(err, "failed to read attributes of %s", queueName)
	}
	queueArn := attrs.Attributes[string(types.QueueAttributeNameQueueArn)]
	if queueArn == "" {
		return errors.Errorf("SQS returned no ARN for queue %s", queueName)
	}

	policy, err := queuePolicy(queueArn, topicArn)
	if err != nil {
		return err
	}
	_, err = c.sqsClient.SetQueueAttributes(ctx, &sqs.SetQueueAttributesInput{
		QueueUrl:   aws.String(queueURL),
		Attributes: map[string]string{string(types.QueueAttributeNamePolicy): policy},
	})
	if err != nil {
		return errors.Wrapf(err, "failed to set policy of %s", queueName)
	}

	_, err = c.snsClient.Subscribe(ctx, &sns.SubscribeInput{
		TopicArn:   aws.String(topicArn),
		Protocol:   aws.String("sqs"),
		Endpoint:   aws.String(queueArn),
		Attributes: map[string]string{"RawMessageDelivery": "true"},
	})
	if err != nil {
		return errors.Wrapf(err, "failed to subscribe %s to %s", queueName, topicArn)
	}

	c.mu.Lock()
	c.queueURLs[channelID] = queueURL
	c.mu.Unlock()

	c.logger.Debug().Str("channel", channelID).Str("topic_arn", topicArn).Str("queue_url", queueURL).Msg("sns/sqs channel ready")
	return nil
}

// Publish implements saga.Channel
func (c *SNSSQSChannel) Publish(ctx context.Context, channelID string, msg saga.Message) error {
	return c.publisher.Publish(ctx, channelID, msg)
}

// Subscribe starts one SQS subscriber per channel queue
func (c *SNSSQSChannel) Subscribe(ctx context.Context, handler saga.Handler, channelIDs ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	urls := make([]string, len(channelIDs))
	for i, channelID := range channelIDs {
		url, ok := c.queueURLs[channelID]
		if !ok {
			return errors.Wrapf(ErrChannelNotFound, "subscribe to %s", channelID)
		}
		urls[i] = url
	}

	for i, url := range urls {
		subscriber := NewSQSSubscriber(c.sqsClient, url, handler, c.logger.With().Str("channel", channelIDs[i]).Logger(), c.opts...)
		if err := subscriber.Start(ctx); err != nil {
			return errors.Wrap(err, "failed to start SQS subscriber")
		}
		c.subscribers = append(c.subscribers, subscriber)
	}
	return nil
}

// Close stops every subscriber
func (c *SNSSQSChannel) Close() error {
	c.mu.Lock()
	subscribers := c.subscribers
	c.subscribers = nil
	c.mu.Unlock()

	for _, subscriber := range subscribers {
		if err := subscriber.Stop(); err != nil {
			return errors.Wrap(err, "failed to stop SQS subscriber")
		}
	}
	return nil
}

func queuePolicy(queueArn, topicArn string) (string, error) {
	type statement struct {
		Effect    string         `json:"Effect"`
		Principal map[string]any `json:"Principal"`
		Action    string         `json:"Action"`
		Resource  string         `json:"Resource"`
		Condition map[string]any `json:"Condition"`
	}
	policy := struct {
		Version   string      `json:"Version"`
		Statement []statement `json:"Statement"`
	}{
		Version: "2012-10-17",
		Statement: []statement{{
			Effect:    "Allow",
			Principal: map[string]any{"Service": "sns.amazonaws.com"},
			Action:    "sqs:SendMessage",
			Resource:  queueArn,
			Condition: map[string]any{"ArnEquals": map[string]string{"aws:SourceArn": topicArn}},
		}},
	}

	b, err := json.Marshal(policy)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal queue policy")
	}
	return string(b), nil
}
