package longchat

import (
	"encoding/json"
	"fmt"
)

// Shape discriminates the envelope forms a frame can arrive in.
type Shape int

const (
	// ShapeUnrecognized frames parsed as JSON but match neither envelope
	// form; only the wildcard handler sees them.
	ShapeUnrecognized Shape = iota

	// ShapeWrapped is the legacy onchat transport envelope.
	ShapeWrapped

	// ShapeFlat is a top-level event or action reply.
	ShapeFlat
)

// String returns the string representation of a Shape.
func (s Shape) String() string {
	switch s {
	case ShapeWrapped:
		return "wrapped"
	case ShapeFlat:
		return "flat"
	case ShapeUnrecognized:
		return "unrecognized"
	default:
		return fmt.Sprintf("shape_%d", int(s))
	}
}

// DecodeFrame normalizes one wire frame into the canonical event record.
//
// First match wins:
//  1. action "onchat" with a nested data object carrying an event field:
//     Key is the inner event, Data the inner data, Status resolved outer
//     first, then the inner payload's, then the wrapper's; Message resolved
//     outer first, then the inner payload's.
//  2. a top-level event or action field: Key is that value and the frame
//     passes through otherwise unchanged.
//  3. anything else is ShapeUnrecognized and reaches only the wildcard.
//
// A frame that fails to parse yields an error and no event at all.
func DecodeFrame(frame []byte) (Event, Shape, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Event{}, ShapeUnrecognized, WrapError(ErrorDecode, "malformed frame", err)
	}
	raw := json.RawMessage(frame)

	if env.Action == ActionChat && len(env.Data) > 0 {
		var inner wrapPayload
		if err := json.Unmarshal(env.Data, &inner); err == nil && inner.Event != "" {
			ev := Event{
				Key:    inner.Event,
				Action: env.Action,
				Data:   inner.Data,
				Raw:    raw,
			}
			ev.Status, ev.Message = resolveStatus(env, inner)
			return ev, ShapeWrapped, nil
		}
	}

	if env.Event != "" || env.Action != "" {
		key := env.Event
		if key == "" {
			key = env.Action
		}
		return Event{
			Key:     key,
			Action:  env.Action,
			Status:  env.Status,
			Message: env.Mes,
			Data:    env.Data,
			Raw:     raw,
		}, ShapeFlat, nil
	}

	return Event{Raw: raw}, ShapeUnrecognized, nil
}

// resolveStatus applies the placement priority for status and mes on wrapped
// frames: outer envelope, then the inner event payload, then the wrapper
// object itself (status only).
func resolveStatus(env Envelope, inner wrapPayload) (Status, string) {
	var probe struct {
		Status Status `json:"status"`
		Mes    string `json:"mes"`
	}
	if len(inner.Data) > 0 {
		// Best effort: arrays, scalars and bool-status payloads carry neither.
		_ = json.Unmarshal(inner.Data, &probe)
	}

	st := env.Status
	if st == StatusUnknown {
		st = probe.Status
	}
	if st == StatusUnknown {
		st = inner.Status
	}
	msg := env.Mes
	if msg == "" {
		msg = probe.Mes
	}
	return st, msg
}

// wireRequest is the outbound envelope.
type wireRequest struct {
	Action string `json:"action"`
	Data   any    `json:"data"`
}

// wireChatRequest is the nested object the chat-event set is wrapped in.
type wireChatRequest struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// EncodeRequest packages an outbound payload for key. Keys in the chat-event
// set are wrapped as {action:"onchat",data:{event,data}}; the literal
// "onchat" key means the caller built the wrapper body itself; every other
// key goes out flat as {action,data}.
func EncodeRequest(key string, payload any) ([]byte, error) {
	if payload == nil {
		payload = struct{}{}
	}

	var req wireRequest
	switch {
	case key == ActionChat:
		req = wireRequest{Action: ActionChat, Data: payload}
	case isChatEvent(key):
		req = wireRequest{Action: ActionChat, Data: wireChatRequest{Event: key, Data: payload}}
	default:
		req = wireRequest{Action: key, Data: payload}
	}

	frame, err := json.Marshal(req)
	if err != nil {
		return nil, WrapError(ErrorSerialization, "encode request", err)
	}
	return frame, nil
}
