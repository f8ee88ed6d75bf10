package ocpp

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Subprotocol is the WebSocket subprotocol negotiated with charge points.
const Subprotocol = "ocpp1.6"

// MessageType is the first element of every OCPP-J frame.
type MessageType int

const (
	MessageTypeCall       MessageType = 2
	MessageTypeCallResult MessageType = 3
	MessageTypeCallError  MessageType = 4
)

// String returns the log name of the message type.
func (t MessageType) String() string {
	switch t {
	case MessageTypeCall:
		return "CALL"
	case MessageTypeCallResult:
		return "CALLRESULT"
	case MessageTypeCallError:
		return "CALLERROR"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(t))
	}
}

// Frame is one decoded OCPP-J message.
type Frame struct {
	Type     MessageType
	UniqueID string

	// Action is set for Call frames only.
	Action string

	// Payload is set for Call and CallResult frames.
	Payload json.RawMessage

	// Error fields are set for CallError frames only.
	ErrorCode        ErrorCode
	ErrorDescription string
	ErrorDetails     json.RawMessage
}

var emptyObject = json.RawMessage(`{}`)

// Parse decodes a raw WebSocket message into a Frame.
func Parse(data []byte) (*Frame, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormation, err)
	}
	if len(parts) < 3 {
		return nil, fmt.Errorf("%w: %d elements", ErrFormation, len(parts))
	}

	var typ int
	if err := json.Unmarshal(parts[0], &typ); err != nil {
		return nil, fmt.Errorf("%w: message type: %v", ErrFormation, err)
	}

	f := &Frame{Type: MessageType(typ)}
	if err := json.Unmarshal(parts[1], &f.UniqueID); err != nil {
		return nil, fmt.Errorf("%w: unique id: %v", ErrFormation, err)
	}
	if f.UniqueID == "" {
		return nil, fmt.Errorf("%w: empty unique id", ErrFormation)
	}

	switch f.Type {
	case MessageTypeCall:
		if len(parts) != 4 {
			return nil, fmt.Errorf("%w: call has %d elements", ErrFormation, len(parts))
		}
		if err := json.Unmarshal(parts[2], &f.Action); err != nil || f.Action == "" {
			return nil, fmt.Errorf("%w: action", ErrFormation)
		}
		f.Payload = objectOrEmpty(parts[3])
	case MessageTypeCallResult:
		if len(parts) != 3 {
			return nil, fmt.Errorf("%w: call result has %d elements", ErrFormation, len(parts))
		}
		f.Payload = objectOrEmpty(parts[2])
	case MessageTypeCallError:
		if len(parts) < 4 || len(parts) > 5 {
			return nil, fmt.Errorf("%w: call error has %d elements", ErrFormation, len(parts))
		}
		var code string
		if err := json.Unmarshal(parts[2], &code); err != nil {
			return nil, fmt.Errorf("%w: error code", ErrFormation)
		}
		f.ErrorCode = ErrorCode(code)
		if err := json.Unmarshal(parts[3], &f.ErrorDescription); err != nil {
			return nil, fmt.Errorf("%w: error description", ErrFormation)
		}
		f.ErrorDetails = emptyObject
		if len(parts) == 5 {
			f.ErrorDetails = objectOrEmpty(parts[4])
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMessageType, typ)
	}
	return f, nil
}

func objectOrEmpty(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return emptyObject
	}
	return trimmed
}

// NewCall builds a Call frame, marshalling payload.
func NewCall(uniqueID, action string, payload any) (*Frame, error) {
	raw, err := marshalPayload(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", action, err)
	}
	return &Frame{Type: MessageTypeCall, UniqueID: uniqueID, Action: action, Payload: raw}, nil
}

// NewCallResult builds a CallResult frame answering uniqueID.
func NewCallResult(uniqueID string, payload any) (*Frame, error) {
	raw, err := marshalPayload(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding result payload: %w", err)
	}
	return &Frame{Type: MessageTypeCallResult, UniqueID: uniqueID, Payload: raw}, nil
}

// NewCallError builds a CallError frame answering uniqueID.
func NewCallError(uniqueID string, code ErrorCode, description string, details map[string]any) *Frame {
	raw := emptyObject
	if len(details) > 0 {
		if b, err := json.Marshal(details); err == nil {
			raw = b
		}
	}
	return &Frame{
		Type:             MessageTypeCallError,
		UniqueID:         uniqueID,
		ErrorCode:        code,
		ErrorDescription: description,
		ErrorDetails:     raw,
	}
}

func marshalPayload(payload any) (json.RawMessage, error) {
	switch p := payload.(type) {
	case nil:
		return emptyObject, nil
	case json.RawMessage:
		return objectOrEmpty(p), nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return objectOrEmpty(b), nil
}

// AsError returns the CallError carried by a CallError frame.
func (f *Frame) AsError() *CallError {
	ce := &CallError{Code: f.ErrorCode, Description: f.ErrorDescription}
	if len(f.ErrorDetails) > 0 {
		_ = json.Unmarshal(f.ErrorDetails, &ce.Details) //nolint:errcheck // details are informational
	}
	return ce
}

// MarshalJSON encodes the frame in its OCPP-J array form.
func (f *Frame) MarshalJSON() ([]byte, error) {
	switch f.Type {
	case MessageTypeCall:
		return json.Marshal([]any{int(MessageTypeCall), f.UniqueID, f.Action, objectOrEmpty(f.Payload)})
	case MessageTypeCallResult:
		return json.Marshal([]any{int(MessageTypeCallResult), f.UniqueID, objectOrEmpty(f.Payload)})
	case MessageTypeCallError:
		return json.Marshal([]any{int(MessageTypeCallError), f.UniqueID, string(f.ErrorCode), f.ErrorDescription, objectOrEmpty(f.ErrorDetails)})
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMessageType, int(f.Type))
	}
}
