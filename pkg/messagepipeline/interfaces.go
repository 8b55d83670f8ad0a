package messagepipeline

import (
	"context"
)

// MessageConsumer is a source of broker messages for StreamingService.
type MessageConsumer interface {
	// Messages is closed once the consumer has stopped.
	Messages() <-chan Message
	Start(ctx context.Context) error
	// Stop ends consumption and waits, bounded by ctx, for in-flight receives.
	Stop(ctx context.Context) error
	Done() <-chan struct{}
}

// MessageTransformer decodes a Message into a payload of type T.
//
// skip=true acks the message without processing it, so malformed input is
// dropped rather than redelivered forever. A non-nil error nacks it.
type MessageTransformer[T any] func(ctx context.Context, msg *Message) (payload *T, skip bool, err error)

// StreamProcessor handles one decoded payload. An error nacks the original.
type StreamProcessor[T any] func(ctx context.Context, original Message, payload *T) error
