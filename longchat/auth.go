package longchat

import (
	"encoding/json"
	"sync"

	"github.com/Thanh-ngan915/longchat-go/longchat/credstore"
)

// Authenticator drives the LOGIN / RE_LOGIN / REGISTER / LOGOUT flow and
// keeps the stored credential record in sync with server replies: a granted
// RE_LOGIN_CODE is persisted, an expired one is cleared.
type Authenticator struct {
	sender Sender
	store  credstore.Store
	logger Logger

	mu              sync.Mutex
	authenticated   bool
	pending         credstore.Record
	onAuthenticated func(Event)
	onAuthFailed    func(Event)
}

// NewAuthenticator returns an authenticator sending through s and persisting
// credentials in store.
func NewAuthenticator(s Sender, store credstore.Store) *Authenticator {
	return &Authenticator{sender: s, store: store, logger: noopLogger{}}
}

// SetLogger overrides the logger (optional).
func (a *Authenticator) SetLogger(l Logger) {
	if l == nil {
		return
	}
	a.mu.Lock()
	a.logger = l
	a.mu.Unlock()
}

// OnAuthenticated registers a callback fired on a successful auth reply.
func (a *Authenticator) OnAuthenticated(fn func(Event)) {
	a.mu.Lock()
	a.onAuthenticated = fn
	a.mu.Unlock()
}

// OnAuthFailed registers a callback fired on a rejected auth reply.
func (a *Authenticator) OnAuthFailed(fn func(Event)) {
	a.mu.Lock()
	a.onAuthFailed = fn
	a.mu.Unlock()
}

// Attach registers the auth reply handlers on d.
func (a *Authenticator) Attach(d *Dispatcher) {
	d.On(EventLogin, a.handleAuthReply)
	d.On(EventReLogin, a.handleAuthReply)
	d.On(EventAuth, a.handleAuthError)
}

// Detach removes the auth reply handlers from d.
func (a *Authenticator) Detach(d *Dispatcher) {
	d.Off(EventLogin)
	d.Off(EventReLogin)
	d.Off(EventAuth)
}

// Authenticated reports whether the last auth reply was a success.
func (a *Authenticator) Authenticated() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.authenticated
}

// Login sends credentials; on success they are persisted together with any
// granted re-login code.
func (a *Authenticator) Login(user, pass string) error {
	a.mu.Lock()
	a.pending = credstore.Record{Name: user, Password: pass}
	a.mu.Unlock()
	return a.sender.Send(EventLogin, LoginPayload{User: user, Pass: pass})
}

// ReLogin resumes a session with a stored re-login code.
func (a *Authenticator) ReLogin(user, code string) error {
	rec := credstore.Record{Name: user, ReLoginCode: code}
	if existing, err := a.store.Load(); err == nil && existing.Name == user {
		rec.Password = existing.Password
	}
	a.mu.Lock()
	a.pending = rec
	a.mu.Unlock()
	return a.sender.Send(EventReLogin, ReLoginPayload{User: user, Code: code})
}

// Register creates an account on the server.
func (a *Authenticator) Register(user, pass string) error {
	a.mu.Lock()
	a.pending = credstore.Record{Name: user, Password: pass}
	a.mu.Unlock()
	return a.sender.Send(EventRegister, LoginPayload{User: user, Pass: pass})
}

// Logout ends the session on the server and drops the authenticated flag.
// The stored record is kept so the user can log back in.
func (a *Authenticator) Logout() error {
	a.mu.Lock()
	a.authenticated = false
	a.mu.Unlock()
	return a.sender.Send(EventLogout, struct{}{})
}

// Resume logs in with the stored record: LOGIN when a password is present,
// RE_LOGIN when only a code survives. Returns credstore.ErrNotFound when
// there is nothing to resume.
func (a *Authenticator) Resume() error {
	rec, err := a.store.Load()
	if err != nil {
		return err
	}
	switch {
	case rec.Password != "":
		return a.Login(rec.Name, rec.Password)
	case rec.ReLoginCode != "":
		return a.ReLogin(rec.Name, rec.ReLoginCode)
	default:
		return NewError(ErrorInvalidConfig, "stored record has neither password nor re-login code")
	}
}

// handleAuthReply consumes LOGIN and RE_LOGIN replies. The server answers a
// re-login grant without a status field, so a RE_LOGIN reply counts as
// success unless it carries status "error".
func (a *Authenticator) handleAuthReply(ev Event) {
	if ev.Status.OK() || (ev.Key == EventReLogin && ev.Status != StatusError) {
		a.markAuthenticated(ev)
		return
	}
	a.handleAuthError(ev)
}

// handleAuthError consumes rejections, both AUTH pushes and failed replies.
// An expired re-login code is cleared so the next Resume falls back to LOGIN.
func (a *Authenticator) handleAuthError(ev Event) {
	if ev.Status != StatusError {
		return
	}
	a.mu.Lock()
	a.authenticated = false
	fn := a.onAuthFailed
	logger := a.logger
	a.mu.Unlock()

	logger.Warn("authentication failed", map[string]any{"event": ev.Key, "mes": ev.Message})
	if failedEvent(ev) == EventReLogin {
		if err := a.clearReLoginCode(); err != nil {
			logger.Warn("clearing re-login code failed", map[string]any{"error": err.Error()})
		}
	}
	if fn != nil {
		fn(ev)
	}
}

func (a *Authenticator) markAuthenticated(ev Event) {
	a.mu.Lock()
	a.authenticated = true
	rec := a.pending
	fn := a.onAuthenticated
	logger := a.logger
	a.mu.Unlock()

	var grant struct {
		Code string `json:"RE_LOGIN_CODE"`
	}
	if len(ev.Data) > 0 {
		_ = json.Unmarshal(ev.Data, &grant)
	}

	if rec.Name == "" {
		if existing, err := a.store.Load(); err == nil {
			rec = *existing
		}
	}
	if grant.Code != "" {
		rec.ReLoginCode = grant.Code
	}
	if rec.Name != "" {
		if err := a.store.Save(&rec); err != nil {
			logger.Warn("persisting credentials failed", map[string]any{"error": err.Error()})
		}
	}

	if fn != nil {
		fn(ev)
	}
}

func (a *Authenticator) clearReLoginCode() error {
	rec, err := a.store.Load()
	if err != nil {
		return err
	}
	rec.ReLoginCode = ""
	return a.store.Save(rec)
}

// failedEvent names the operation an error reply refers to; some rejections
// arrive under the AUTH key with the original event nested in the payload.
func failedEvent(ev Event) string {
	if len(ev.Data) > 0 {
		var probe struct {
			Event string `json:"event"`
		}
		if err := json.Unmarshal(ev.Data, &probe); err == nil && probe.Event != "" {
			return probe.Event
		}
	}
	return ev.Key
}
