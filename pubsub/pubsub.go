package pubsub

import (
	"context"

	"cloud.google.com/go/pubsub/apiv1/pubsubpb"

	"github.com/AmmannChristian/go-gcpapis/apierr"
	"github.com/AmmannChristian/go-gcpapis/grpcclient"
)

// MaxMessages is the number of messages requested by Pull.
const MaxMessages = 100

// Publish sends one message with data and optional attrs to topic,
// in the format "projects/{project}/topics/{topic}".
func (c *Client) Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (*pubsubpb.PublishResponse, error) {
	ctx = grpcclient.WithRequestParams(ctx, grpcclient.Param("topic", topic))

	resp, err := c.publisher.Publish(ctx, &pubsubpb.PublishRequest{
		Topic: topic,
		Messages: []*pubsubpb.PubsubMessage{{
			Data:       data,
			Attributes: attrs,
		}},
	})
	if err != nil {
		return nil, apierr.FromRPC("pubsub.Publish", err)
	}

	c.logf("pubsub: published %v to %s", resp.GetMessageIds(), topic)
	return resp, nil
}

// Pull fetches up to MaxMessages messages from subscription without waiting
// for new ones. An empty response is not an error.
func (c *Client) Pull(ctx context.Context, subscription string) (*pubsubpb.PullResponse, error) {
	ctx = grpcclient.WithRequestParams(ctx, grpcclient.Param("subscription", subscription))

	resp, err := c.subscriber.Pull(ctx, &pubsubpb.PullRequest{
		Subscription:      subscription,
		MaxMessages:       MaxMessages,
		ReturnImmediately: true, //nolint:staticcheck // SA1019
	})
	if err != nil {
		return nil, apierr.FromRPC("pubsub.Pull", err)
	}

	c.logf("pubsub: pulled %d messages from %s", len(resp.GetReceivedMessages()), subscription)
	return resp, nil
}

// Acknowledge acknowledges the messages identified by ackIDs.
func (c *Client) Acknowledge(ctx context.Context, subscription string, ackIDs []string) error {
	ctx = grpcclient.WithRequestParams(ctx, grpcclient.Param("subscription", subscription))

	_, err := c.subscriber.Acknowledge(ctx, &pubsubpb.AcknowledgeRequest{
		Subscription: subscription,
		AckIds:       ackIDs,
	})
	if err != nil {
		return apierr.FromRPC("pubsub.Acknowledge", err)
	}

	c.logf("pubsub: acknowledged %d messages on %s", len(ackIDs), subscription)
	return nil
}
