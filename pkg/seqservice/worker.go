package seqservice

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/illmade-knight/go-intseq/pkg/messagepipeline"
	"github.com/illmade-knight/go-intseq/pkg/sequence"
	"github.com/rs/zerolog"
)

// RequestIDAttribute carries the request ID on request and reply messages.
const RequestIDAttribute = "request_id"

// NumbersRequest is the payload of an asynchronous batch query.
type NumbersRequest struct {
	RequestID string `json:"request_id,omitempty"`
	Sequence  string `json:"sequence"`
	Indices   []int  `json:"indices"`
}

// NumbersReply answers a NumbersRequest. Error is set, and Responses empty,
// when the request as a whole was refused.
type NumbersReply struct {
	RequestID string              `json:"request_id"`
	Sequence  string              `json:"sequence"`
	Responses []sequence.Response `json:"responses,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// NewRequestTransformer decodes NumbersRequest messages. Undecodable messages
// are skipped, so they are acknowledged and never redelivered. A request
// without an ID takes the message's request_id attribute, or a fresh UUID.
func NewRequestTransformer(logger zerolog.Logger) messagepipeline.MessageTransformer[NumbersRequest] {
	logger = logger.With().Str("component", "RequestTransformer").Logger()
	return func(_ context.Context, msg *messagepipeline.Message) (*NumbersRequest, bool, error) {
		var req NumbersRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			logger.Warn().Err(err).Str("msg_id", msg.ID).Msg("Dropping undecodable request.")
			return nil, true, nil
		}
		if req.Sequence == "" {
			logger.Warn().Str("msg_id", msg.ID).Msg("Dropping request without a sequence.")
			return nil, true, nil
		}
		if req.RequestID == "" {
			req.RequestID = msg.Attributes[RequestIDAttribute]
		}
		if req.RequestID == "" {
			req.RequestID = uuid.NewString()
		}
		return &req, false, nil
	}
}

// NewRequestProcessor answers requests with svc and publishes the reply. A
// failed publish is returned so the request is redelivered.
func NewRequestProcessor(svc *Service, publisher messagepipeline.SimplePublisher, logger zerolog.Logger) messagepipeline.StreamProcessor[NumbersRequest] {
	logger = logger.With().Str("component", "RequestProcessor").Logger()
	return func(ctx context.Context, original messagepipeline.Message, req *NumbersRequest) error {
		reply := NumbersReply{RequestID: req.RequestID, Sequence: req.Sequence}
		responses, err := svc.Numbers(ctx, req.Sequence, req.Indices)
		if err != nil {
			reply.Error = err.Error()
		} else {
			reply.Responses = responses
		}

		payload, err := json.Marshal(reply)
		if err != nil {
			return fmt.Errorf("failed to marshal reply: %w", err)
		}
		if err := publisher.Publish(ctx, payload, map[string]string{RequestIDAttribute: req.RequestID}); err != nil {
			return err
		}
		logger.Debug().Str("msg_id", original.ID).Str("request_id", req.RequestID).Int("count", len(req.Indices)).Msg("Replied to request.")
		return nil
	}
}
