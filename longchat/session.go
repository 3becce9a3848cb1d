package longchat

import (
	"encoding/json"
	"strings"
	"sync"
)

// SelectionKind names what the session currently targets.
type SelectionKind int

const (
	NoSelection SelectionKind = iota
	PeerSelected
	RoomSelected
)

// String returns the string representation of a SelectionKind.
func (k SelectionKind) String() string {
	switch k {
	case PeerSelected:
		return "peer"
	case RoomSelected:
		return "room"
	default:
		return "none"
	}
}

// Membership tracks the two-phase joined state of a room: assumed locally at
// join-before-send time, reconciled to confirmed when the server's JOIN_ROOM
// reply arrives. A confirmation never downgrades back to assumed.
type Membership int

const (
	MembershipNone Membership = iota
	MembershipAssumed
	MembershipConfirmed
)

// Session holds selection, message history, the peer and room rosters and
// room membership. It is mutated only by events routed through the
// dispatcher and by explicit user actions.
type Session struct {
	mu     sync.Mutex
	sender Sender
	logger Logger

	kind   SelectionKind
	target string
	draft  string

	messages      []Message
	conversations []string
	rooms         []Room
	joined        map[string]Membership

	onConversations func([]string)
}

// NewSession returns an empty session sending through s.
func NewSession(s Sender) *Session {
	return &Session{
		sender: s,
		logger: noopLogger{},
		joined: make(map[string]Membership),
	}
}

// SetLogger overrides the logger (optional).
func (s *Session) SetLogger(l Logger) {
	if l == nil {
		return
	}
	s.mu.Lock()
	s.logger = l
	s.mu.Unlock()
}

// OnConversationsReplaced registers a callback fired whenever the peer
// roster is replaced, typically to restart a presence sweep.
func (s *Session) OnConversationsReplaced(fn func(peers []string)) {
	s.mu.Lock()
	s.onConversations = fn
	s.mu.Unlock()
}

// Attach registers the session's event handlers on d.
func (s *Session) Attach(d *Dispatcher) {
	d.On(EventSendChat, s.handleIncomingChat)
	d.On(EventRoomChatHistory, s.handleHistory)
	d.On(EventPeopleChatHistory, s.handlePeopleList)
	d.On(EventUserList, s.handleUserList)
	d.On(EventCreateRoom, s.handleRoomCreated)
	d.On(EventJoinRoom, s.handleRoomJoined)
}

// Detach removes the session's handlers from d.
func (s *Session) Detach(d *Dispatcher) {
	d.Off(EventSendChat)
	d.Off(EventRoomChatHistory)
	d.Off(EventPeopleChatHistory)
	d.Off(EventUserList)
	d.Off(EventCreateRoom)
	d.Off(EventJoinRoom)
}

// SelectPeer makes name the active conversation. History is always cleared
// and refetched, selecting the already-active peer included; nothing is
// cached across reselection.
func (s *Session) SelectPeer(name string) {
	s.mu.Lock()
	s.kind = PeerSelected
	s.target = name
	s.messages = nil
	s.draft = ""
	s.mu.Unlock()
	s.fetchHistory(name)
}

// SelectRoom makes room the active conversation, clearing history and draft.
func (s *Session) SelectRoom(room string) {
	s.mu.Lock()
	s.kind = RoomSelected
	s.target = room
	s.messages = nil
	s.draft = ""
	s.mu.Unlock()
	s.fetchHistory(room)
}

// ClearSelection drops the active conversation and its history.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	s.kind = NoSelection
	s.target = ""
	s.messages = nil
	s.draft = ""
	s.mu.Unlock()
}

// Selection returns the current selection kind and target name.
func (s *Session) Selection() (SelectionKind, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kind, s.target
}

// SetDraft stores the message being composed.
func (s *Session) SetDraft(text string) {
	s.mu.Lock()
	s.draft = text
	s.mu.Unlock()
}

// Draft returns the message being composed.
func (s *Session) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// SendMessage sends text to the active target, clearing the draft; with no
// active conversation it returns an error and the draft survives. For a
// room that is not yet in the joined set a JOIN_ROOM request is issued first
// and membership is assumed immediately, without waiting for confirmation,
// so the send is never blocked on the join reply.
func (s *Session) SendMessage(text string) error {
	s.mu.Lock()
	kind, target := s.kind, s.target
	s.mu.Unlock()

	switch kind {
	case PeerSelected:
		s.SetDraft("")
		return s.sender.Send(EventSendChat, SendChatPayload{Type: ChatTypePeople, To: target, Mes: text})
	case RoomSelected:
		s.SetDraft("")
		s.ensureJoined(target)
		return s.sender.Send(EventSendChat, SendChatPayload{Type: ChatTypeRoom, To: target, Mes: text})
	default:
		// A rejected send keeps the composed draft.
		return NewError(ErrorNoSelection, "no active conversation")
	}
}

// JoinRoom joins a room explicitly, marking membership assumed until the
// server confirms.
func (s *Session) JoinRoom(room string) error {
	s.mu.Lock()
	if s.joined[room] == MembershipNone {
		s.joined[room] = MembershipAssumed
	}
	s.mu.Unlock()
	return s.sender.Send(EventJoinRoom, JoinRoomPayload{Name: room})
}

// CreateRoom requests a new room from the server.
func (s *Session) CreateRoom(name string) error {
	return s.sender.Send(EventCreateRoom, CreateRoomPayload{Name: name})
}

// Membership reports the joined state for room.
func (s *Session) Membership(room string) Membership {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.joined[room]
}

// Messages returns a copy of the active conversation's history.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

// Conversations returns a copy of the peer roster.
func (s *Session) Conversations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.conversations...)
}

// Rooms returns a copy of the room roster.
func (s *Session) Rooms() []Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Room(nil), s.rooms...)
}

// ConversationList projects the peer roster against an online map, online
// entries first.
func (s *Session) ConversationList(online map[string]bool) []Conversation {
	s.mu.Lock()
	entries := make([]Conversation, 0, len(s.conversations))
	for _, name := range s.conversations {
		entries = append(entries, Conversation{Name: name, Online: online[name]})
	}
	s.mu.Unlock()
	return SortByPresence(entries)
}

// SortByPresence stably partitions entries: all online entries before all
// offline ones, relative order preserved within each group.
func SortByPresence(entries []Conversation) []Conversation {
	sorted := make([]Conversation, 0, len(entries))
	for _, e := range entries {
		if e.Online {
			sorted = append(sorted, e)
		}
	}
	for _, e := range entries {
		if !e.Online {
			sorted = append(sorted, e)
		}
	}
	return sorted
}

// Refresh asks the server for the people/rooms roster scoped to user.
func (s *Session) Refresh(user string) error {
	return s.sender.Send(EventPeopleChatHistory, HistoryRequest{Name: user, Page: 1})
}

// fetchHistory issues the history request for name. The server answers
// GET_ROOM_CHAT_MES for both people and room history.
func (s *Session) fetchHistory(name string) {
	if err := s.sender.Send(EventRoomChatHistory, HistoryRequest{Name: name, Page: 1}); err != nil {
		s.logger.Warn("history fetch failed", map[string]any{"target": name, "error": err.Error()})
	}
}

// ensureJoined implements join-before-send.
func (s *Session) ensureJoined(room string) {
	s.mu.Lock()
	if s.joined[room] != MembershipNone {
		s.mu.Unlock()
		return
	}
	s.joined[room] = MembershipAssumed
	s.mu.Unlock()
	if err := s.sender.Send(EventJoinRoom, JoinRoomPayload{Name: room}); err != nil {
		s.logger.Warn("join request failed", map[string]any{"room": room, "error": err.Error()})
	}
}

// handleIncomingChat appends one message to whatever history is active. The
// protocol does not say which conversation the message belongs to, so a
// message for a non-active target lands in the active list too.
func (s *Session) handleIncomingChat(ev Event) {
	if len(ev.Data) == 0 {
		return
	}
	var msg Message
	if err := ev.UnmarshalData(&msg); err != nil {
		s.logger.Warn("bad SEND_CHAT payload", map[string]any{"error": err.Error()})
		return
	}
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
}

// handleHistory replaces the active history when the reply carries an array.
func (s *Session) handleHistory(ev Event) {
	if len(ev.Data) == 0 {
		return
	}
	var history []Message
	if err := ev.UnmarshalData(&history); err != nil {
		// Non-array history payloads are ignored.
		return
	}
	s.mu.Lock()
	s.messages = history
	s.mu.Unlock()
}

// handlePeopleList splits the mixed GET_PEOPLE_CHAT_MES reply into the peer
// and room rosters, replacing both wholesale. An empty reply means the
// queried name matched nothing; the full user list is requested as a
// fallback instead.
func (s *Session) handlePeopleList(ev Event) {
	var items []json.RawMessage
	if err := ev.UnmarshalData(&items); err != nil {
		return
	}
	if len(items) == 0 {
		if err := s.sender.Send(EventUserList, struct{}{}); err != nil {
			s.logger.Warn("user list fallback failed", map[string]any{"error": err.Error()})
		}
		return
	}

	var people []string
	var rooms []Room
	for _, item := range items {
		var name string
		if err := json.Unmarshal(item, &name); err == nil {
			people = append(people, name)
			continue
		}
		var obj struct {
			Name string          `json:"name"`
			To   string          `json:"to"`
			Type json.RawMessage `json:"type"`
		}
		if err := json.Unmarshal(item, &obj); err != nil {
			continue
		}
		name = obj.Name
		if name == "" {
			name = obj.To
		}
		if name == "" {
			continue
		}
		// type 1 marks a room, type 0 a person; entries without a type
		// default to people. The server emits both numeric and string forms.
		if strings.Trim(string(obj.Type), `"`) == "1" {
			rooms = append(rooms, Room{Name: name})
		} else {
			people = append(people, name)
		}
	}

	s.mu.Lock()
	s.conversations = people
	s.rooms = rooms
	fn := s.onConversations
	s.mu.Unlock()
	if fn != nil {
		fn(append([]string(nil), people...))
	}
}

// handleUserList replaces the peer roster from the full user list.
func (s *Session) handleUserList(ev Event) {
	var items []json.RawMessage
	if err := ev.UnmarshalData(&items); err != nil {
		return
	}
	people := make([]string, 0, len(items))
	for _, item := range items {
		var name string
		if err := json.Unmarshal(item, &name); err == nil {
			people = append(people, name)
			continue
		}
		var obj struct {
			Name string `json:"name"`
			User string `json:"user"`
		}
		if err := json.Unmarshal(item, &obj); err != nil {
			continue
		}
		switch {
		case obj.Name != "":
			people = append(people, obj.Name)
		case obj.User != "":
			people = append(people, obj.User)
		}
	}

	s.mu.Lock()
	s.conversations = people
	fn := s.onConversations
	s.mu.Unlock()
	if fn != nil {
		fn(append([]string(nil), people...))
	}
}

// handleRoomCreated appends the created room to the roster.
func (s *Session) handleRoomCreated(ev Event) {
	name := nameFromData(ev.Data)
	if name == "" {
		s.logger.Debug("CREATE_ROOM reply without a room name", nil)
		return
	}
	s.mu.Lock()
	for _, r := range s.rooms {
		if r.Name == name {
			s.mu.Unlock()
			return
		}
	}
	s.rooms = append(s.rooms, Room{Name: name})
	s.mu.Unlock()
}

// handleRoomJoined reconciles an assumed membership to confirmed.
func (s *Session) handleRoomJoined(ev Event) {
	name := nameFromData(ev.Data)
	if name == "" {
		var flat struct {
			Room string `json:"room"`
		}
		_ = json.Unmarshal(ev.Raw, &flat)
		name = flat.Room
	}
	if name == "" {
		return
	}
	s.mu.Lock()
	s.joined[name] = MembershipConfirmed
	s.mu.Unlock()
}

// nameFromData pulls a name out of a payload that is either a bare string
// or an object with a name field.
func nameFromData(data json.RawMessage) string {
	if len(data) == 0 {
		return ""
	}
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		return name
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		return obj.Name
	}
	return ""
}
