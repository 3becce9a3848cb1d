package longchat

import "sync"

// Sender is the outbound half of the client that the poller and session
// depend on.
type Sender interface {
	Send(key string, payload any) error
}

// Poller performs the sequential presence sweep: one CHECK_USER_ONLINE
// request in flight at a time, the next issued only once the previous
// peer's reply arrived.
//
// Correlation is positional, not by request id: the server answers in
// request order and the poller advances a cursor per reply, so a dropped
// reply stalls the rest of that sweep. The protocol is isolated behind this
// type so request tagging can be added later without touching callers.
type Poller struct {
	mu       sync.Mutex
	sender   Sender
	logger   Logger
	status   map[string]bool // cumulative, survives restarts
	targets  []string
	cursor   int
	sweeping bool

	onResult   func(peer string, online bool)
	onComplete func(map[string]bool)
}

// NewPoller returns a poller sending through s.
func NewPoller(s Sender) *Poller {
	return &Poller{
		sender: s,
		logger: noopLogger{},
		status: make(map[string]bool),
	}
}

// SetLogger overrides the logger (optional).
func (p *Poller) SetLogger(l Logger) {
	if l == nil {
		return
	}
	p.mu.Lock()
	p.logger = l
	p.mu.Unlock()
}

// OnResult registers a callback fired after each peer's reply.
func (p *Poller) OnResult(fn func(peer string, online bool)) {
	p.mu.Lock()
	p.onResult = fn
	p.mu.Unlock()
}

// OnComplete registers a callback fired when a sweep finishes, with a copy
// of the cumulative map.
func (p *Poller) OnComplete(fn func(map[string]bool)) {
	p.mu.Lock()
	p.onComplete = fn
	p.mu.Unlock()
}

// Attach registers the poller's reply handler on d.
func (p *Poller) Attach(d *Dispatcher) { d.On(EventCheckUserOnline, p.HandleResponse) }

// Detach removes the poller's reply handler from d.
func (p *Poller) Detach(d *Dispatcher) { d.Off(EventCheckUserOnline) }

// Start begins a sweep over peers, replacing any sweep in flight and
// resetting the cursor. Results already collected are retained.
func (p *Poller) Start(peers []string) {
	p.mu.Lock()
	p.targets = append([]string(nil), peers...)
	p.cursor = 0
	p.sweeping = len(p.targets) > 0
	p.mu.Unlock()
	p.checkNext()
}

// Stop abandons the sweep in flight. Collected results are kept.
func (p *Poller) Stop() {
	p.mu.Lock()
	p.sweeping = false
	p.targets = nil
	p.cursor = 0
	p.mu.Unlock()
}

// Snapshot returns a copy of the cumulative online map.
func (p *Poller) Snapshot() map[string]bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Online reports the last observed status for peer.
func (p *Poller) Online(peer string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status[peer]
}

// Sweeping reports whether a sweep is in flight.
func (p *Poller) Sweeping() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sweeping
}

// HandleResponse consumes one CHECK_USER_ONLINE reply. The reply is
// attributed to the peer at the cursor, never to anything in the payload.
func (p *Poller) HandleResponse(ev Event) {
	var body struct {
		Status bool `json:"status"`
	}
	// Absent or malformed payloads count as offline.
	_ = ev.UnmarshalData(&body)

	p.mu.Lock()
	if !p.sweeping || p.cursor >= len(p.targets) {
		p.mu.Unlock()
		return
	}
	peer := p.targets[p.cursor]
	p.status[peer] = body.Status
	p.cursor++
	fn := p.onResult
	p.mu.Unlock()

	if fn != nil {
		fn(peer, body.Status)
	}
	p.checkNext()
}

// checkNext issues the request for the peer at the cursor, or finishes the
// sweep when the list is exhausted.
func (p *Poller) checkNext() {
	p.mu.Lock()
	if !p.sweeping {
		p.mu.Unlock()
		return
	}
	if p.cursor >= len(p.targets) {
		p.sweeping = false
		done := p.onComplete
		snap := p.snapshotLocked()
		p.mu.Unlock()
		if done != nil {
			done(snap)
		}
		return
	}
	peer := p.targets[p.cursor]
	logger := p.logger
	p.mu.Unlock()

	if err := p.sender.Send(EventCheckUserOnline, CheckUserPayload{User: peer}); err != nil {
		logger.Warn("presence check send failed", map[string]any{"peer": peer, "error": err.Error()})
	}
}

func (p *Poller) snapshotLocked() map[string]bool {
	snap := make(map[string]bool, len(p.status))
	for k, v := range p.status {
		snap[k] = v
	}
	return snap
}
