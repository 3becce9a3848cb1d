package longchat

// ActionChat is the legacy transport action wrapping the chat-event set.
const ActionChat = "onchat"

// Wildcard is the reserved dispatcher key that receives every frame which
// parsed as JSON, whether or not it normalized to a known shape.
const Wildcard = "*"

// Server event keys.
const (
	EventRegister          = "REGISTER"
	EventLogin             = "LOGIN"
	EventReLogin           = "RE_LOGIN"
	EventLogout            = "LOGOUT"
	EventCreateRoom        = "CREATE_ROOM"
	EventJoinRoom          = "JOIN_ROOM"
	EventRoomChatHistory   = "GET_ROOM_CHAT_MES"
	EventPeopleChatHistory = "GET_PEOPLE_CHAT_MES"
	EventSendChat          = "SEND_CHAT"
	EventCheckUser         = "CHECK_USER"
	EventCheckUserOnline   = "CHECK_USER_ONLINE"
	EventUserList          = "GET_USER_LIST"

	// EventAuth carries authentication failures pushed by the server.
	EventAuth = "AUTH"
)

// SEND_CHAT target kinds.
const (
	ChatTypePeople = "people"
	ChatTypeRoom   = "room"
)

// chatEvents is the set of keys the server expects inside the onchat wrapper.
var chatEvents = map[string]struct{}{
	EventRegister:          {},
	EventLogin:             {},
	EventReLogin:           {},
	EventLogout:            {},
	EventCreateRoom:        {},
	EventJoinRoom:          {},
	EventRoomChatHistory:   {},
	EventPeopleChatHistory: {},
	EventSendChat:          {},
	EventCheckUser:         {},
	EventCheckUserOnline:   {},
	EventUserList:          {},
}

func isChatEvent(key string) bool {
	_, ok := chatEvents[key]
	return ok
}

// LoginPayload carries LOGIN and REGISTER credentials.
type LoginPayload struct {
	User string `json:"user"`
	Pass string `json:"pass"`
}

// ReLoginPayload resumes a session with a server-issued code.
type ReLoginPayload struct {
	User string `json:"user"`
	Code string `json:"code"`
}

// HistoryRequest fetches paged history for a peer or room name.
type HistoryRequest struct {
	Name string `json:"name"`
	Page int    `json:"page"`
}

// SendChatPayload publishes a message to a peer or a room.
type SendChatPayload struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Mes  string `json:"mes"`
}

// JoinRoomPayload subscribes to a room.
type JoinRoomPayload struct {
	Name string `json:"name"`
}

// CreateRoomPayload requests a new room.
type CreateRoomPayload struct {
	Name string `json:"name"`
}

// CheckUserPayload asks whether one user is online.
type CheckUserPayload struct {
	User string `json:"user"`
}
