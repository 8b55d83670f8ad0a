package messagepipeline

import (
	"time"
)

// Message is a broker message together with its settlement callbacks.
// Exactly one of Ack or Nack should be called.
type Message struct {
	MessageData
	Attributes map[string]string
	Ack        func()
	Nack       func()
}

// MessageData is the broker-independent part of a Message.
type MessageData struct {
	ID          string    `json:"id"`
	Payload     []byte    `json:"payload"`
	PublishTime time.Time `json:"publishTime"`
}
