package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftea/saga-orchestrator/shared/saga"
)

const fakeAccount = "000000000000"

// fakeAWS routes SNS publishes into the SQS queues subscribed to the topic
type fakeAWS struct {
	mu            sync.Mutex
	subscriptions map[string][]string // topic arn -> queue urls
	subAttrs      map[string]string
	policies      map[string]string
	queues        map[string][]types.Message
	deleted       []string
	extended      []string
	published     int
}

func newFakeAWS() *fakeAWS {
	return &fakeAWS{
		subscriptions: make(map[string][]string),
		policies:      make(map[string]string),
		queues:        make(map[string][]types.Message),
	}
}

func queueURL(name string) string { return "https://sqs.local/" + fakeAccount + "/" + name }

func (f *fakeAWS) CreateTopic(ctx context.Context, in *sns.CreateTopicInput, _ ...func(*sns.Options)) (*sns.CreateTopicOutput, error) {
	return &sns.CreateTopicOutput{TopicArn: aws.String("arn:aws:sns:us-east-1:" + fakeAccount + ":" + aws.ToString(in.Name))}, nil
}

func (f *fakeAWS) Subscribe(ctx context.Context, in *sns.SubscribeInput, _ ...func(*sns.Options)) (*sns.SubscribeOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := aws.ToString(in.Endpoint)[strings.LastIndex(aws.ToString(in.Endpoint), ":")+1:]
	f.subscriptions[aws.ToString(in.TopicArn)] = append(f.subscriptions[aws.ToString(in.TopicArn)], queueURL(name))
	f.subAttrs = in.Attributes
	return &sns.SubscribeOutput{SubscriptionArn: aws.String(aws.ToString(in.TopicArn) + ":sub")}, nil
}

func (f *fakeAWS) Publish(ctx context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published++
	id := fmt.Sprintf("msg-%d", f.published)
	for _, url := range f.subscriptions[aws.ToString(in.TopicArn)] {
		f.queues[url] = append(f.queues[url], types.Message{
			MessageId:     aws.String(id),
			ReceiptHandle: aws.String("rh-" + id),
			Body:          in.Message,
		})
	}
	return &sns.PublishOutput{MessageId: aws.String(id)}, nil
}

func (f *fakeAWS) CreateQueue(ctx context.Context, in *sqs.CreateQueueInput, _ ...func(*sqs.Options)) (*sqs.CreateQueueOutput, error) {
	return &sqs.CreateQueueOutput{QueueUrl: aws.String(queueURL(aws.ToString(in.QueueName)))}, nil
}

func (f *fakeAWS) GetQueueAttributes(ctx context.Context, in *sqs.GetQueueAttributesInput, _ ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error) {
	url := aws.ToString(in.QueueUrl)
	name := url[strings.LastIndex(url, "/")+1:]
	return &sqs.GetQueueAttributesOutput{Attributes: map[string]string{
		"QueueArn": "arn:aws:sqs:us-east-1:" + fakeAccount + ":" + name,
	}}, nil
}

func (f *fakeAWS) SetQueueAttributes(ctx context.Context, in *sqs.SetQueueAttributesInput, _ ...func(*sqs.Options)) (*sqs.SetQueueAttributesOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.policies[aws.ToString(in.QueueUrl)] = in.Attributes["Policy"]
	return &sqs.SetQueueAttributesOutput{}, nil
}

func (f *fakeAWS) ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	url := aws.ToString(in.QueueUrl)
	queue := f.queues[url]
	n := min(int(in.MaxNumberOfMessages), len(queue))
	out := queue[:n]
	f.queues[url] = queue[n:]
	return &sqs.ReceiveMessageOutput{Messages: out}, nil
}

func (f *fakeAWS) DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, aws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func (f *fakeAWS) ChangeMessageVisibility(ctx context.Context, in *sqs.ChangeMessageVisibilityInput, _ ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extended = append(f.extended, aws.ToString(in.ReceiptHandle))
	return &sqs.ChangeMessageVisibilityOutput{}, nil
}

func (f *fakeAWS) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func (f *fakeAWS) Extended() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.extended...)
}

func newTestSNSSQSChannel(fake *fakeAWS) *SNSSQSChannel {
	return NewSNSSQSChannel(fake, fake, SNSSQSConfig{TopicPrefix: "saga-", QueuePrefix: "saga-"}, zerolog.Nop(),
		WithWaitTime(0, time.Millisecond),
	)
}

func TestSNSSQSChannel_CreateIfAbsent(t *testing.T) {
	fake := newFakeAWS()
	ch := newTestSNSSQSChannel(fake)

	require.NoError(t, ch.CreateIfAbsent(context.Background(), "flights"))

	topicArn := "arn:aws:sns:us-east-1:" + fakeAccount + ":saga-flights"
	assert.Equal(t, []string{queueURL("saga-flights")}, fake.subscriptions[topicArn])
	assert.Equal(t, "true", fake.subAttrs["RawMessageDelivery"])
	assert.Contains(t, fake.policies[queueURL("saga-flights")], topicArn)
	assert.Contains(t, fake.policies[queueURL("saga-flights")], "sqs:SendMessage")
}

func TestSNSSQSChannel_UnknownChannel(t *testing.T) {
	ch := newTestSNSSQSChannel(newFakeAWS())

	err := ch.Publish(context.Background(), "flights", saga.NewMessage("saga-1", 0, saga.PhaseForward, nil))
	assert.ErrorIs(t, err, ErrChannelNotFound)

	err = ch.Subscribe(context.Background(), func(context.Context, saga.Message) error { return nil }, "flights")
	assert.ErrorIs(t, err, ErrChannelNotFound)
}

func TestSNSSQSChannel_PublishAndConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fake := newFakeAWS()
	ch := newTestSNSSQSChannel(fake)
	defer ch.Close()

	require.NoError(t, ch.CreateIfAbsent(ctx, "flights"))
	delivered := make(chan saga.Message, 4)
	require.NoError(t, ch.Subscribe(ctx, collect(delivered), "flights"))

	msg := saga.NewMessage("saga-1", 0, saga.PhaseForward, []byte(`{"flight":"LA800"}`))
	require.NoError(t, ch.Publish(ctx, "flights", msg))

	got := receive(t, delivered)
	assert.Equal(t, msg.Saga, got.Saga)
	assert.JSONEq(t, `{"flight":"LA800"}`, string(got.Payload))

	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"rh-msg-1"}, fake.Deleted())
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSNSSQSChannel_HandlerErrorKeepsMessage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fake := newFakeAWS()
	ch := newTestSNSSQSChannel(fake)
	defer ch.Close()

	require.NoError(t, ch.CreateIfAbsent(ctx, "hotels"))
	require.NoError(t, ch.Subscribe(ctx, func(context.Context, saga.Message) error {
		return errors.New("publish failed")
	}, "hotels"))

	require.NoError(t, ch.Publish(ctx, "hotels", saga.NewMessage("saga-1", 0, saga.PhaseForward, nil)))

	assert.Eventually(t, func() bool {
		return len(fake.Extended()) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, fake.Deleted())
}

func TestSNSSQSChannel_UndecodableMessageIsAcked(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fake := newFakeAWS()
	ch := newTestSNSSQSChannel(fake)
	defer ch.Close()

	require.NoError(t, ch.CreateIfAbsent(ctx, "payments"))
	fake.queues[queueURL("saga-payments")] = []types.Message{{
		MessageId:     aws.String("junk"),
		ReceiptHandle: aws.String("rh-junk"),
		Body:          aws.String("not json"),
	}}

	called := make(chan saga.Message, 1)
	require.NoError(t, ch.Subscribe(ctx, collect(called), "payments"))

	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"rh-junk"}, fake.Deleted())
	}, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, called)
}
