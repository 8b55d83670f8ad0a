package sequence

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind is the explicit discriminant of a Response.
type Kind string

const (
	// KindInt carries a value that fits the native integer width.
	KindInt Kind = "int"
	// KindText carries the decimal digits of a value too big for KindInt.
	KindText Kind = "text"
	// KindError carries a human-readable failure message.
	KindError Kind = "error"
)

// Response is a tagged union: exactly one of Int, Text or Message is
// meaningful, selected by Kind. Consumers must switch on Kind and never infer
// it from which field looks populated.
type Response struct {
	Kind    Kind
	Int     int64
	Text    string
	Message string
}

// IntResponse wraps a native integer.
func IntResponse(v int64) Response { return Response{Kind: KindInt, Int: v} }

// TextResponse wraps a decimal digit string.
func TextResponse(digits string) Response { return Response{Kind: KindText, Text: digits} }

// ErrorResponse wraps a failure message.
func ErrorResponse(message string) Response { return Response{Kind: KindError, Message: message} }

// IsError reports whether the response carries a failure.
func (r Response) IsError() bool { return r.Kind == KindError }

// Value returns the decimal representation of a successful response, or the
// message of an error response.
func (r Response) Value() string {
	switch r.Kind {
	case KindInt:
		return strconv.FormatInt(r.Int, 10)
	case KindText:
		return r.Text
	default:
		return r.Message
	}
}

func (r Response) String() string {
	if r.Kind == KindError {
		return "error: " + r.Message
	}
	return r.Value()
}

type wireResponse struct {
	Type    Kind    `json:"type"`
	Int     *int64  `json:"int,omitempty"`
	Text    *string `json:"text,omitempty"`
	Message *string `json:"message,omitempty"`
}

// MarshalJSON encodes the response with an explicit "type" field and only the
// member that belongs to it.
func (r Response) MarshalJSON() ([]byte, error) {
	w := wireResponse{Type: r.Kind}
	switch r.Kind {
	case KindInt:
		w.Int = &r.Int
	case KindText:
		w.Text = &r.Text
	case KindError:
		w.Message = &r.Message
	default:
		return nil, fmt.Errorf("cannot marshal response with unknown kind %q", r.Kind)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a response, rejecting unknown or inconsistent tags.
func (r *Response) UnmarshalJSON(data []byte) error {
	var w wireResponse
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.Type {
	case KindInt:
		if w.Int == nil {
			return fmt.Errorf("int response is missing its value")
		}
		*r = IntResponse(*w.Int)
	case KindText:
		if w.Text == nil {
			return fmt.Errorf("text response is missing its digits")
		}
		*r = TextResponse(*w.Text)
	case KindError:
		if w.Message == nil {
			return fmt.Errorf("error response is missing its message")
		}
		*r = ErrorResponse(*w.Message)
	default:
		return fmt.Errorf("unknown response type %q", w.Type)
	}
	return nil
}
