package publishers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type fakeSQSClient struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQSClient) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-123")}, nil
}

func TestAWSSQSSenderSendSuccess(t *testing.T) {
	client := &fakeSQSClient{}
	sender := &awsSQSSender{
		queueURL: "https://example.com/queue",
		client:   client,
		log:      noopLogger{},
	}

	err := sender.Send(context.Background(), Event{
		ID:       "evt-1",
		TargetID: "api-health",
		State:    "down",
	})
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if client.input == nil {
		t.Fatalf("client was not called")
	}
	if got := aws.ToString(client.input.QueueUrl); got != "https://example.com/queue" {
		t.Fatalf("QueueUrl = %s", got)
	}
	attr, ok := client.input.MessageAttributes["target_id"]
	if !ok || attr.StringValue == nil || aws.ToString(attr.StringValue) != "api-health" {
		t.Fatalf("target_id attribute missing or wrong: %#v", attr)
	}
	if attr.DataType == nil || aws.ToString(attr.DataType) != "String" {
		t.Fatalf("DataType should be String, got %#v", attr.DataType)
	}
	if state := client.input.MessageAttributes["state"]; aws.ToString(state.StringValue) != "down" {
		t.Fatalf("state attribute missing or wrong: %#v", state)
	}
	if client.input.MessageBody == nil || !strings.Contains(aws.ToString(client.input.MessageBody), `"target_id":"api-health"`) {
		t.Fatalf("MessageBody missing target_id: %s", aws.ToString(client.input.MessageBody))
	}
}

func TestAWSSQSSenderSendError(t *testing.T) {
	client := &fakeSQSClient{err: errors.New("boom")}
	sender := &awsSQSSender{
		queueURL: "https://example.com/queue",
		client:   client,
		log:      noopLogger{},
	}

	err := sender.Send(context.Background(), Event{
		ID:       "evt-1",
		TargetID: "api-health",
		State:    "down",
	})
	if err == nil {
		t.Fatalf("expected error from Send")
	}
}

func TestNewSQSPublisherUsesStaticCredentials(t *testing.T) {
	pub, err := newSQSPublisher(context.Background(), PublisherConfig{
		ID:   "queue",
		Type: TypeSQS,
		SQS: &SQSPublisherConfig{
			QueueURL: "http://localhost:4566/000000000000/probe-events",
			Region:   "us-east-1",
			Endpoint: "http://localhost:4566",
			AWSCredentials: AWSCredentials{
				AccessKeyID:     "test",
				SecretAccessKey: "test",
			},
		},
	}, nil)
	if err != nil {
		t.Fatalf("newSQSPublisher: %v", err)
	}
	if pub.ID() != "queue" || pub.Type() != TypeSQS {
		t.Fatalf("unexpected publisher identity %s/%s", pub.Type(), pub.ID())
	}
	qp := pub.(*queuePublisher)
	if _, ok := qp.sender.(*awsSQSSender); !ok {
		t.Fatalf("expected sqs sender, got %T", qp.sender)
	}
}
