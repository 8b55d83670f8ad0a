package messagepipeline_test

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/illmade-knight/go-intseq/pkg/messagepipeline"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleSimplePublisher_PublishAndStop(t *testing.T) {
	// Arrange
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	client := setupPubsub(t, "test-project", "replies", "replies-sub")

	publisher, err := messagepipeline.NewGoogleSimplePublisher(ctx, messagepipeline.NewGoogleSimplePublisherDefaults("replies"), client, zerolog.Nop())
	require.NoError(t, err)

	// Act
	err = publisher.Publish(ctx, []byte("hello simple publisher"), map[string]string{"request_id": "r-1"})

	// Assert
	require.NoError(t, err)

	receiveCtx, receiveCancel := context.WithTimeout(ctx, 5*time.Second)
	defer receiveCancel()
	var received *pubsub.Message
	err = client.Subscription("replies-sub").Receive(receiveCtx, func(_ context.Context, msg *pubsub.Message) {
		msg.Ack()
		if received == nil {
			received = msg
		}
		receiveCancel()
	})
	require.NoError(t, err)
	require.NotNil(t, received, "did not receive the published message")
	assert.Equal(t, "hello simple publisher", string(received.Data))
	assert.Equal(t, "r-1", received.Attributes["request_id"])
	published, failed := publisher.Counts()
	assert.Equal(t, uint64(1), published)
	assert.Zero(t, failed)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	assert.NoError(t, publisher.Stop(stopCtx))
	assert.NoError(t, publisher.Stop(stopCtx), "second stop is a no-op")
}

func TestGoogleSimplePublisher_MissingTopic(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	client := setupPubsub(t, "test-project", "replies", "replies-sub")

	_, err := messagepipeline.NewGoogleSimplePublisher(ctx, messagepipeline.NewGoogleSimplePublisherDefaults("absent"), client, zerolog.Nop())

	assert.ErrorContains(t, err, "does not exist")

	_, err = messagepipeline.NewGoogleSimplePublisher(ctx, messagepipeline.NewGoogleSimplePublisherDefaults("replies"), nil, zerolog.Nop())
	assert.Error(t, err)

	_, err = messagepipeline.NewGoogleSimplePublisher(ctx, &messagepipeline.GoogleSimplePublisherConfig{}, client, zerolog.Nop())
	assert.Error(t, err)
}
