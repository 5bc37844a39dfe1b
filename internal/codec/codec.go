package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

// ErrDecode matches every error returned by Decode.
var ErrDecode = errors.New("codec: malformed frame")

// DecodeError describes why a frame was rejected.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("codec: %s: %v", e.Reason, e.Err)
	}
	return "codec: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is reports ErrDecode as a match so callers need not know the concrete type.
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// Decode parses a raw frame. It never panics. Only envelope problems are
// returned, as a *DecodeError; payload fields are not validated.
func Decode(raw []byte) (Message, error) {
	if !gjson.ValidBytes(raw) {
		return nil, &DecodeError{Reason: "invalid json"}
	}

	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return nil, &DecodeError{Reason: "envelope is not an object"}
	}

	typ := root.Get("type")
	if typ.Type != gjson.String {
		return nil, &DecodeError{Reason: "missing string type"}
	}

	var body []byte
	payload := root.Get("payload")
	switch {
	case !payload.Exists(), payload.Type == gjson.Null:
	case payload.IsObject():
		body = []byte(payload.Raw)
	default:
		return nil, &DecodeError{Reason: "payload is not an object"}
	}

	p := gjson.ParseBytes(body)

	switch Kind(typ.Str) {
	case KindConnected:
		return Connected{}, nil
	case KindBookingStatusUpdated:
		return BookingStatusUpdated{
			BookingID: str(p.Get("booking_id")),
			PaymentID: str(p.Get("payment_id")),
			Status:    str(p.Get("status")),
		}, nil
	case KindNotificationNew:
		return NotificationNew{
			ID:        str(p.Get("id")),
			Title:     str(p.Get("title")),
			Message:   str(p.Get("message")),
			Category:  str(p.Get("category")),
			Data:      object(p.Get("data")),
			CreatedAt: timestamp(p.Get("created_at")),
		}, nil
	case KindChatMessage:
		return ChatMessage{
			ID:             str(p.Get("id")),
			ConversationID: str(p.Get("conversation_id")),
			SenderID:       str(p.Get("sender_id")),
			Content:        str(p.Get("content")),
			CreatedAt:      timestamp(p.Get("created_at")),
		}, nil
	case KindChatTyping:
		return ChatTyping{
			ConversationID: str(p.Get("conversation_id")),
			UserID:         str(p.Get("user_id")),
		}, nil
	default:
		return Unrecognized{Type: typ.Str, Payload: json.RawMessage(body)}, nil
	}
}

// Payload fields are read leniently: a field of an unexpected type is
// treated as missing and consumers apply their defaults.

// str returns strings as-is and numbers and booleans in their JSON form.
func str(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return r.Str
	case gjson.Number, gjson.True, gjson.False:
		return r.Raw
	}
	return ""
}

// timestamp parses an RFC 3339 string or unix seconds. Anything else is zero.
func timestamp(r gjson.Result) time.Time {
	switch r.Type {
	case gjson.String:
		t, err := time.Parse(time.RFC3339Nano, r.Str)
		if err != nil {
			return time.Time{}
		}
		return t
	case gjson.Number:
		if r.Num <= 0 {
			return time.Time{}
		}
		return time.Unix(r.Int(), 0).UTC()
	}
	return time.Time{}
}

func object(r gjson.Result) map[string]any {
	if !r.IsObject() {
		return nil
	}
	m, ok := r.Value().(map[string]any)
	if !ok {
		return nil
	}
	return m
}

// Encode renders a message as a wire frame.
func Encode(msg Message) ([]byte, error) {
	env := envelope{Type: string(msg.Kind())}

	switch m := msg.(type) {
	case Connected:
	case Unrecognized:
		if len(m.Payload) > 0 {
			env.Payload = m.Payload
		}
	default:
		env.Payload = m
	}

	return json.Marshal(env)
}
