package longchat

import "encoding/json"

// Status classifies a server reply.
type Status string

const (
	StatusSuccess Status = "success"
	StatusOK      Status = "ok"
	StatusError   Status = "error"
	StatusUnknown Status = ""
)

// OK reports whether the status is affirmative. The server answers some
// requests with "success" and others with "ok".
func (s Status) OK() bool { return s == StatusSuccess || s == StatusOK }

// Envelope is the outer wire object a frame arrives in. The server mixes two
// shapes: the legacy wrapped transport envelope (action "onchat" with a nested
// event object inside Data) and flat event replies where Event or Action sits
// at the top level.
type Envelope struct {
	Action string          `json:"action,omitempty"`
	Event  string          `json:"event,omitempty"`
	Status Status          `json:"status,omitempty"`
	Mes    string          `json:"mes,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// wrapPayload is the nested object inside the legacy onchat envelope.
type wrapPayload struct {
	Event  string          `json:"event"`
	Status Status          `json:"status,omitempty"`
	Mes    string          `json:"mes,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Event is the canonical, shape-independent record handlers consume.
// Key is never empty when a specific-key handler fires.
type Event struct {
	Key     string
	Action  string // top-level action of the frame, "" when absent
	Status  Status
	Message string
	Data    json.RawMessage // event payload
	Raw     json.RawMessage // the full frame as received
}

// UnmarshalData decodes the event payload into v.
func (e Event) UnmarshalData(v any) error { return json.Unmarshal(e.Data, v) }

// Message is one chat message. The wire uses "mes" for the body text.
type Message struct {
	From string `json:"from"`
	To   string `json:"to,omitempty"`
	Type string `json:"type,omitempty"`
	Text string `json:"mes"`
	Time string `json:"time,omitempty"`
}

// Conversation is a peer decorated with the last observed presence. It is a
// read projection over the roster and the poller's online map, never stored
// on its own.
type Conversation struct {
	Name   string
	Online bool
}

// Room identifies a chat room; identity is the name string.
type Room struct {
	Name string `json:"name"`
}
