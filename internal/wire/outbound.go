package wire

import (
	"encoding/json"

	"github.com/hacker-ring/weavespace-relay/internal/board"
	"github.com/hacker-ring/weavespace-relay/internal/presence"
)

// Outbound event names.
const (
	EventWhiteboardState    = "whiteboard-state"
	EventUsersUpdate        = "users-update"
	EventUserJoined         = "user-joined"
	EventUserLeft           = "user-left"
	EventUserCursor         = "user-cursor"
	EventUserDrawing        = "user-drawing"
	EventUserToolChange     = "user-tool-change"
	EventExistingVoiceUsers = "existing-voice-users"
	EventUserJoinedVoice    = "user-joined-voice"
	EventUserLeftVoice      = "user-left-voice"
	EventChatUserJoined     = "userJoined"
	EventChatUserLeft       = "userLeft"
	EventUserTyping         = "userTyping"
)

// Frame is a fully marshaled outbound message, built once and fanned out
// to any number of recipients.
type Frame []byte

// marshal wraps data in the envelope. Payload types here are all
// marshal-safe, so an error indicates a programming bug; it is still
// returned so callers can log instead of panicking.
func marshal(event string, data any) (Frame, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Event: event, Data: raw})
}

// WhiteboardState carries the full document, sent to a connection exactly
// once before any other event can reach it.
func WhiteboardState(doc board.Document) (Frame, error) {
	return marshal(EventWhiteboardState, doc)
}

// UsersUpdate carries the full presence list.
func UsersUpdate(users []presence.Record) (Frame, error) {
	return marshal(EventUsersUpdate, users)
}

func UserJoined(rec presence.Record) (Frame, error) {
	return marshal(EventUserJoined, rec)
}

// UserLeft carries just the departed connection id.
func UserLeft(id presence.ConnID) (Frame, error) {
	return marshal(EventUserLeft, id)
}

func UserCursor(id presence.ConnID, cursor board.Point) (Frame, error) {
	return marshal(EventUserCursor, struct {
		UserID presence.ConnID `json:"userId"`
		Cursor board.Point     `json:"cursor"`
	}{id, cursor})
}

func UserDrawing(id presence.ConnID, ev DrawingState) (Frame, error) {
	return marshal(EventUserDrawing, struct {
		UserID       presence.ConnID `json:"userId"`
		IsDrawing    bool            `json:"isDrawing"`
		CurrentShape json.RawMessage `json:"currentShape,omitempty"`
	}{id, ev.IsDrawing, ev.CurrentShape})
}

func UserToolChange(id presence.ConnID, tool string) (Frame, error) {
	return marshal(EventUserToolChange, struct {
		UserID presence.ConnID `json:"userId"`
		Tool   string          `json:"tool"`
	}{id, tool})
}

// ShapeUpdateFrame re-broadcasts a document mutation to the sender's
// peers, after clamping.
func ShapeUpdateFrame(ev ShapeUpdate) (Frame, error) {
	return marshal(EventShapeUpdate, ev)
}

func HistoryUpdateFrame(ev HistoryUpdate) (Frame, error) {
	return marshal(EventHistoryUpdate, ev)
}

// ExistingVoiceUsers lists the members already in a voice room, sent to
// the joiner so it can start one offer per peer.
func ExistingVoiceUsers(ids []presence.ConnID) (Frame, error) {
	if ids == nil {
		ids = []presence.ConnID{}
	}
	return marshal(EventExistingVoiceUsers, ids)
}

func UserJoinedVoice(id presence.ConnID) (Frame, error) {
	return marshal(EventUserJoinedVoice, id)
}

func UserLeftVoice(id presence.ConnID) (Frame, error) {
	return marshal(EventUserLeftVoice, id)
}

// VoiceOfferFrame annotates a relayed offer with the caller's id so the
// recipient knows whom to answer.
func VoiceOfferFrame(offer json.RawMessage, caller presence.ConnID) (Frame, error) {
	return marshal(EventVoiceOffer, struct {
		Offer  json.RawMessage `json:"offer"`
		Caller presence.ConnID `json:"caller"`
	}{offer, caller})
}

func VoiceAnswerFrame(answer json.RawMessage, answerer presence.ConnID) (Frame, error) {
	return marshal(EventVoiceAnswer, struct {
		Answer   json.RawMessage `json:"answer"`
		Answerer presence.ConnID `json:"answerer"`
	}{answer, answerer})
}

func VoiceICECandidateFrame(candidate json.RawMessage, from presence.ConnID) (Frame, error) {
	return marshal(EventVoiceICECandidate, struct {
		Candidate json.RawMessage `json:"candidate"`
		From      presence.ConnID `json:"from"`
	}{candidate, from})
}

type chatMembership struct {
	Username string          `json:"username"`
	UserID   presence.ConnID `json:"userId"`
}

func ChatUserJoined(username string, id presence.ConnID) (Frame, error) {
	return marshal(EventChatUserJoined, chatMembership{username, id})
}

func ChatUserLeft(username string, id presence.ConnID) (Frame, error) {
	return marshal(EventChatUserLeft, chatMembership{username, id})
}

// ChatMessageFrame echoes a chat message to the whole room, the sender
// included, annotated with the sender's display name and id.
func ChatMessageFrame(username, message string, timestamp json.RawMessage, id presence.ConnID) (Frame, error) {
	return marshal(EventChatMessage, struct {
		User      string          `json:"user"`
		Message   string          `json:"message"`
		Timestamp json.RawMessage `json:"timestamp,omitempty"`
		UserID    presence.ConnID `json:"userId"`
	}{username, message, timestamp, id})
}

func UserTyping(id presence.ConnID, username string, typing bool) (Frame, error) {
	return marshal(EventUserTyping, struct {
		UserID   presence.ConnID `json:"userId"`
		Username string          `json:"username"`
		IsTyping bool            `json:"isTyping"`
	}{id, username, typing})
}
