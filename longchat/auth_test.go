package longchat

import (
	"encoding/json"
	"testing"

	"github.com/Thanh-ngan915/longchat-go/longchat/credstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginSuccessPersistsCredentials(t *testing.T) {
	sender := &fakeSender{}
	store := credstore.NewMemStore()
	a := NewAuthenticator(sender, store)

	require.NoError(t, a.Login("alice", "secret"))
	require.Len(t, sender.sent(), 1)
	assert.Equal(t, sentRequest{EventLogin, LoginPayload{User: "alice", Pass: "secret"}}, sender.sent()[0])

	a.handleAuthReply(Event{
		Key:    EventLogin,
		Status: StatusSuccess,
		Data:   json.RawMessage(`{"RE_LOGIN_CODE":"xyz"}`),
	})

	assert.True(t, a.Authenticated())
	rec, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, &credstore.Record{Name: "alice", Password: "secret", ReLoginCode: "xyz"}, rec)
}

func TestReLoginReplyWithoutStatusCountsAsSuccess(t *testing.T) {
	a := NewAuthenticator(&fakeSender{}, credstore.NewMemStore())
	a.handleAuthReply(Event{Key: EventReLogin})
	assert.True(t, a.Authenticated())
}

func TestLoginErrorFiresFailureCallback(t *testing.T) {
	a := NewAuthenticator(&fakeSender{}, credstore.NewMemStore())

	var failed *Event
	a.OnAuthFailed(func(ev Event) { failed = &ev })

	a.handleAuthReply(Event{Key: EventLogin, Status: StatusError, Message: "bad password"})

	assert.False(t, a.Authenticated())
	require.NotNil(t, failed)
	assert.Equal(t, "bad password", failed.Message)
}

func TestExpiredReLoginCodeIsCleared(t *testing.T) {
	store := credstore.NewMemStore()
	require.NoError(t, store.Save(&credstore.Record{Name: "alice", Password: "pw", ReLoginCode: "stale"}))
	a := NewAuthenticator(&fakeSender{}, store)

	a.handleAuthError(Event{Key: EventReLogin, Status: StatusError, Message: "code expired"})

	rec, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, rec.ReLoginCode)
	assert.Equal(t, "pw", rec.Password, "the password survives a code expiry")
}

func TestAuthPushNamesFailedEventInPayload(t *testing.T) {
	store := credstore.NewMemStore()
	require.NoError(t, store.Save(&credstore.Record{Name: "alice", ReLoginCode: "stale"}))
	a := NewAuthenticator(&fakeSender{}, store)

	a.handleAuthError(Event{
		Key:    EventAuth,
		Status: StatusError,
		Data:   json.RawMessage(`{"event":"RE_LOGIN"}`),
	})

	rec, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, rec.ReLoginCode)
}

func TestAuthErrorIgnoresNonErrorStatus(t *testing.T) {
	store := credstore.NewMemStore()
	require.NoError(t, store.Save(&credstore.Record{Name: "alice", ReLoginCode: "keep"}))
	a := NewAuthenticator(&fakeSender{}, store)

	a.handleAuthError(Event{Key: EventAuth, Status: StatusSuccess})

	rec, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "keep", rec.ReLoginCode)
}

func TestResumePrefersPassword(t *testing.T) {
	sender := &fakeSender{}
	store := credstore.NewMemStore()
	require.NoError(t, store.Save(&credstore.Record{Name: "alice", Password: "pw", ReLoginCode: "code"}))
	a := NewAuthenticator(sender, store)

	require.NoError(t, a.Resume())

	require.Len(t, sender.sent(), 1)
	assert.Equal(t, EventLogin, sender.sent()[0].Key)
}

func TestResumeFallsBackToReLoginCode(t *testing.T) {
	sender := &fakeSender{}
	store := credstore.NewMemStore()
	require.NoError(t, store.Save(&credstore.Record{Name: "alice", ReLoginCode: "code"}))
	a := NewAuthenticator(sender, store)

	require.NoError(t, a.Resume())

	require.Len(t, sender.sent(), 1)
	assert.Equal(t, sentRequest{EventReLogin, ReLoginPayload{User: "alice", Code: "code"}}, sender.sent()[0])
}

func TestResumeWithoutRecord(t *testing.T) {
	a := NewAuthenticator(&fakeSender{}, credstore.NewMemStore())
	err := a.Resume()
	assert.ErrorIs(t, err, credstore.ErrNotFound)
}

func TestLogout(t *testing.T) {
	sender := &fakeSender{}
	store := credstore.NewMemStore()
	require.NoError(t, store.Save(&credstore.Record{Name: "alice", Password: "pw"}))
	a := NewAuthenticator(sender, store)
	a.handleAuthReply(Event{Key: EventLogin, Status: StatusOK})
	require.True(t, a.Authenticated())

	require.NoError(t, a.Logout())

	assert.False(t, a.Authenticated())
	assert.Equal(t, EventLogout, sender.sent()[len(sender.sent())-1].Key)
	// The record is kept for the next login.
	_, err := store.Load()
	assert.NoError(t, err)
}

func TestAuthenticatorAttachHandlesDispatch(t *testing.T) {
	sender := &fakeSender{}
	store := credstore.NewMemStore()
	a := NewAuthenticator(sender, store)
	d := NewDispatcher()
	a.Attach(d)

	var authed bool
	a.OnAuthenticated(func(Event) { authed = true })

	require.NoError(t, a.Login("alice", "pw"))
	ev, shape, err := DecodeFrame([]byte(`{"action":"onchat","data":{"event":"LOGIN","status":"success","data":{"RE_LOGIN_CODE":"c"}}}`))
	require.NoError(t, err)
	d.Dispatch(ev, shape)

	assert.True(t, authed)
	rec, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "c", rec.ReLoginCode)
}
