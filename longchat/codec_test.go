package longchat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrameWrapped(t *testing.T) {
	frame := []byte(`{"action":"onchat","data":{"event":"LOGIN","status":"success","data":{"RE_LOGIN_CODE":"abc"}}}`)

	ev, shape, err := DecodeFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, ShapeWrapped, shape)
	assert.Equal(t, EventLogin, ev.Key)
	assert.Equal(t, ActionChat, ev.Action)
	assert.Equal(t, StatusSuccess, ev.Status)

	var grant struct {
		Code string `json:"RE_LOGIN_CODE"`
	}
	require.NoError(t, ev.UnmarshalData(&grant))
	assert.Equal(t, "abc", grant.Code)
}

func TestDecodeFrameStatusPriority(t *testing.T) {
	tests := []struct {
		name       string
		frame      string
		wantStatus Status
		wantMes    string
	}{
		{
			name:       "outer wins over payload and wrapper",
			frame:      `{"action":"onchat","status":"error","mes":"outer","data":{"event":"LOGIN","status":"success","data":{"status":"ok","mes":"inner"}}}`,
			wantStatus: StatusError,
			wantMes:    "outer",
		},
		{
			name:       "payload wins over wrapper",
			frame:      `{"action":"onchat","data":{"event":"LOGIN","status":"success","data":{"status":"error","mes":"bad password"}}}`,
			wantStatus: StatusError,
			wantMes:    "bad password",
		},
		{
			name:       "wrapper status as last resort",
			frame:      `{"action":"onchat","data":{"event":"LOGIN","status":"ok","data":{"name":"alice"}}}`,
			wantStatus: StatusOK,
			wantMes:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, shape, err := DecodeFrame([]byte(tt.frame))
			require.NoError(t, err)
			assert.Equal(t, ShapeWrapped, shape)
			assert.Equal(t, EventLogin, ev.Key)
			assert.Equal(t, tt.wantStatus, ev.Status)
			assert.Equal(t, tt.wantMes, ev.Message)
		})
	}
}

func TestDecodeFrameWrappedArrayPayload(t *testing.T) {
	frame := []byte(`{"action":"onchat","data":{"event":"GET_ROOM_CHAT_MES","status":"success","data":[{"from":"bob","mes":"hi"}]}}`)

	ev, shape, err := DecodeFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, ShapeWrapped, shape)
	assert.Equal(t, StatusSuccess, ev.Status)

	var history []Message
	require.NoError(t, ev.UnmarshalData(&history))
	require.Len(t, history, 1)
	assert.Equal(t, "bob", history[0].From)
	assert.Equal(t, "hi", history[0].Text)
}

func TestDecodeFrameWrappedBoolStatusPayload(t *testing.T) {
	// CHECK_USER_ONLINE replies carry a boolean status inside the payload;
	// it must not bleed into the canonical status.
	frame := []byte(`{"action":"onchat","data":{"event":"CHECK_USER_ONLINE","data":{"status":true}}}`)

	ev, shape, err := DecodeFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, ShapeWrapped, shape)
	assert.Equal(t, EventCheckUserOnline, ev.Key)
	assert.Equal(t, StatusUnknown, ev.Status)
}

func TestDecodeFrameFlat(t *testing.T) {
	ev, shape, err := DecodeFrame([]byte(`{"event":"SEND_CHAT","status":"success","data":{"from":"bob","mes":"yo"}}`))
	require.NoError(t, err)
	assert.Equal(t, ShapeFlat, shape)
	assert.Equal(t, EventSendChat, ev.Key)
	assert.Equal(t, StatusSuccess, ev.Status)

	// action stands in for event when event is absent
	ev, shape, err = DecodeFrame([]byte(`{"action":"PING","data":{}}`))
	require.NoError(t, err)
	assert.Equal(t, ShapeFlat, shape)
	assert.Equal(t, "PING", ev.Key)
}

func TestDecodeFrameOnchatWithoutInnerEvent(t *testing.T) {
	// An onchat frame whose data carries no event field degrades to a flat
	// frame keyed by the action.
	ev, shape, err := DecodeFrame([]byte(`{"action":"onchat","data":{"foo":1}}`))
	require.NoError(t, err)
	assert.Equal(t, ShapeFlat, shape)
	assert.Equal(t, ActionChat, ev.Key)
}

func TestDecodeFrameUnrecognized(t *testing.T) {
	ev, shape, err := DecodeFrame([]byte(`{"hello":"world"}`))
	require.NoError(t, err)
	assert.Equal(t, ShapeUnrecognized, shape)
	assert.Empty(t, ev.Key)
	assert.JSONEq(t, `{"hello":"world"}`, string(ev.Raw))
}

func TestDecodeFrameMalformed(t *testing.T) {
	_, _, err := DecodeFrame([]byte(`{not json`))
	require.Error(t, err)
	assert.ErrorIs(t, err, NewError(ErrorDecode, ""))
}

func TestEncodeRequestChatEventWrapped(t *testing.T) {
	frame, err := EncodeRequest(EventLogin, LoginPayload{User: "alice", Pass: "secret"})
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"action":"onchat","data":{"event":"LOGIN","data":{"user":"alice","pass":"secret"}}}`,
		string(frame))
}

func TestEncodeRequestOnchatPassthrough(t *testing.T) {
	frame, err := EncodeRequest(ActionChat, map[string]any{"event": "LOGIN", "data": map[string]any{"user": "a"}})
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"action":"onchat","data":{"event":"LOGIN","data":{"user":"a"}}}`,
		string(frame))
}

func TestEncodeRequestUnknownKeyFlat(t *testing.T) {
	frame, err := EncodeRequest("PING", map[string]any{"n": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"PING","data":{"n":1}}`, string(frame))
}

func TestEncodeRequestNilPayload(t *testing.T) {
	frame, err := EncodeRequest(EventLogout, nil)
	require.NoError(t, err)

	var req struct {
		Action string `json:"action"`
		Data   struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(frame, &req))
	assert.Equal(t, ActionChat, req.Action)
	assert.Equal(t, EventLogout, req.Data.Event)
	assert.JSONEq(t, `{}`, string(req.Data.Data))
}

func TestEncodeRequestRoundTripsThroughDecode(t *testing.T) {
	frame, err := EncodeRequest(EventSendChat, SendChatPayload{Type: ChatTypeRoom, To: "general", Mes: "hi"})
	require.NoError(t, err)

	ev, shape, err := DecodeFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, ShapeWrapped, shape)
	assert.Equal(t, EventSendChat, ev.Key)

	var body SendChatPayload
	require.NoError(t, ev.UnmarshalData(&body))
	assert.Equal(t, "general", body.To)
	assert.Equal(t, ChatTypeRoom, body.Type)
}
