// Package wire defines the JSON protocol spoken over the WebSocket: the
// {"event","data"} envelope, the inbound event union, and the outbound
// frame constructors.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/hacker-ring/weavespace-relay/internal/board"
)

// Inbound event names.
const (
	EventShapeUpdate       = "shape-update"
	EventDrawingState      = "drawing-state"
	EventCursorMove        = "cursor-move"
	EventToolChange        = "tool-change"
	EventHistoryUpdate     = "history-update"
	EventJoinVoiceRoom     = "join-voice-room"
	EventLeaveVoiceRoom    = "leave-voice-room"
	EventVoiceOffer        = "voice-offer"
	EventVoiceAnswer       = "voice-answer"
	EventVoiceICECandidate = "voice-ice-candidate"
	EventJoinChat          = "joinChat"
	EventLeaveChat         = "leaveChat"
	EventChatMessage       = "chatMessage"
	EventTypingStart       = "typingStart"
	EventTypingStop        = "typingStop"
)

// envelope is the outer frame. The names are fixed; anything else in the
// envelope is a protocol error.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Inbound is the closed set of client-to-server events. The hub switches
// exhaustively over the concrete types.
type Inbound interface {
	inbound()
}

// ShapeUpdate mutates the shared document and is re-broadcast to everyone
// else. Action selects which of the optional fields must be present.
type ShapeUpdate struct {
	Action  ShapeAction   `json:"type"`
	Shape   *board.Shape  `json:"shape,omitempty"`
	ShapeID string        `json:"shapeId,omitempty"`
	Shapes  []board.Shape `json:"shapes,omitempty"`
}

type ShapeAction string

const (
	ShapeAdd        ShapeAction = "add"
	ShapeUpdateOne  ShapeAction = "update"
	ShapeDelete     ShapeAction = "delete"
	ShapeClear      ShapeAction = "clear"
	ShapeReplaceAll ShapeAction = "replace-all"
)

type DrawingState struct {
	IsDrawing    bool            `json:"isDrawing"`
	CurrentShape json.RawMessage `json:"currentShape,omitempty"`
}

type CursorMove struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type ToolChange struct {
	Tool string `json:"tool"`
}

type HistoryUpdate struct {
	History      [][]board.Shape `json:"history"`
	HistoryIndex int             `json:"historyIndex"`
}

type JoinVoiceRoom struct {
	RoomID string `json:"roomId"`
}

type LeaveVoiceRoom struct {
	RoomID string `json:"roomId"`
}

// VoiceOffer, VoiceAnswer and VoiceICECandidate are relayed to the single
// target connection verbatim. The SDP/ICE payloads are opaque to the
// server.
type VoiceOffer struct {
	Target string          `json:"target"`
	Offer  json.RawMessage `json:"offer"`
}

type VoiceAnswer struct {
	Target string          `json:"target"`
	Answer json.RawMessage `json:"answer"`
}

type VoiceICECandidate struct {
	Target    string          `json:"target"`
	Candidate json.RawMessage `json:"candidate"`
}

type JoinChat struct {
	RoomID string `json:"roomId"`
}

type LeaveChat struct {
	RoomID string `json:"roomId"`
}

// ChatMessage is echoed to the whole room, sender included. The timestamp
// is client-supplied and passed through untouched.
type ChatMessage struct {
	RoomID    string          `json:"roomId"`
	Message   string          `json:"message"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
}

type TypingStart struct {
	RoomID string `json:"roomId"`
}

type TypingStop struct {
	RoomID string `json:"roomId"`
}

func (ShapeUpdate) inbound()       {}
func (DrawingState) inbound()      {}
func (CursorMove) inbound()        {}
func (ToolChange) inbound()        {}
func (HistoryUpdate) inbound()     {}
func (JoinVoiceRoom) inbound()     {}
func (LeaveVoiceRoom) inbound()    {}
func (VoiceOffer) inbound()        {}
func (VoiceAnswer) inbound()       {}
func (VoiceICECandidate) inbound() {}
func (JoinChat) inbound()          {}
func (LeaveChat) inbound()         {}
func (ChatMessage) inbound()       {}
func (TypingStart) inbound()       {}
func (TypingStop) inbound()        {}

// ParseInbound decodes one client frame. The envelope is parsed strictly;
// payloads are validated per event. Any error means the frame is dropped
// by the caller, never that the connection is closed.
func ParseInbound(data []byte) (Inbound, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var env envelope
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("unexpected trailing data")
	}
	if env.Event == "" {
		return nil, fmt.Errorf("missing event name")
	}

	var (
		ev  Inbound
		err error
	)
	switch env.Event {
	case EventShapeUpdate:
		ev, err = decodePayload[ShapeUpdate](env.Data)
	case EventDrawingState:
		ev, err = decodePayload[DrawingState](env.Data)
	case EventCursorMove:
		ev, err = decodePayload[CursorMove](env.Data)
	case EventToolChange:
		ev, err = decodePayload[ToolChange](env.Data)
	case EventHistoryUpdate:
		ev, err = decodePayload[HistoryUpdate](env.Data)
	case EventJoinVoiceRoom:
		ev, err = decodePayload[JoinVoiceRoom](env.Data)
	case EventLeaveVoiceRoom:
		ev, err = decodePayload[LeaveVoiceRoom](env.Data)
	case EventVoiceOffer:
		ev, err = decodePayload[VoiceOffer](env.Data)
	case EventVoiceAnswer:
		ev, err = decodePayload[VoiceAnswer](env.Data)
	case EventVoiceICECandidate:
		ev, err = decodePayload[VoiceICECandidate](env.Data)
	case EventJoinChat:
		ev, err = decodePayload[JoinChat](env.Data)
	case EventLeaveChat:
		ev, err = decodePayload[LeaveChat](env.Data)
	case EventChatMessage:
		ev, err = decodePayload[ChatMessage](env.Data)
	case EventTypingStart:
		ev, err = decodePayload[TypingStart](env.Data)
	case EventTypingStop:
		ev, err = decodePayload[TypingStop](env.Data)
	default:
		return nil, fmt.Errorf("unknown event %q", env.Event)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", env.Event, err)
	}
	return ev, nil
}

type validator interface {
	validate() error
}

func decodePayload[T any](data json.RawMessage) (T, error) {
	var payload T
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, err
	}
	if v, ok := any(&payload).(validator); ok {
		if err := v.validate(); err != nil {
			return payload, err
		}
	}
	return payload, nil
}

func (s *ShapeUpdate) validate() error {
	switch s.Action {
	case ShapeAdd, ShapeUpdateOne:
		if s.Shape == nil {
			return fmt.Errorf("%s missing shape", s.Action)
		}
		return s.Shape.Validate()
	case ShapeDelete:
		if s.ShapeID == "" {
			return fmt.Errorf("delete missing shapeId")
		}
	case ShapeClear:
	case ShapeReplaceAll:
		for i := range s.Shapes {
			if err := s.Shapes[i].Validate(); err != nil {
				return fmt.Errorf("shapes[%d]: %w", i, err)
			}
		}
	default:
		return fmt.Errorf("unknown shape action %q", s.Action)
	}
	return nil
}

// Clamp normalizes every coordinate the update carries into the unit
// square before it is stored or relayed.
func (s *ShapeUpdate) Clamp() {
	if s.Shape != nil {
		s.Shape.ClampUnit()
	}
	for i := range s.Shapes {
		s.Shapes[i].ClampUnit()
	}
}

func (h *HistoryUpdate) validate() error {
	for i, entry := range h.History {
		for j := range entry {
			if err := entry[j].Validate(); err != nil {
				return fmt.Errorf("history[%d][%d]: %w", i, j, err)
			}
		}
	}
	return nil
}

func (j *JoinVoiceRoom) validate() error  { return requireRoom(j.RoomID) }
func (l *LeaveVoiceRoom) validate() error { return requireRoom(l.RoomID) }
func (j *JoinChat) validate() error       { return requireRoom(j.RoomID) }
func (l *LeaveChat) validate() error      { return requireRoom(l.RoomID) }
func (t *TypingStart) validate() error    { return requireRoom(t.RoomID) }
func (t *TypingStop) validate() error     { return requireRoom(t.RoomID) }

func (v *VoiceOffer) validate() error {
	return requireTarget(v.Target, len(v.Offer) == 0, "offer")
}

func (v *VoiceAnswer) validate() error {
	return requireTarget(v.Target, len(v.Answer) == 0, "answer")
}

func (v *VoiceICECandidate) validate() error {
	return requireTarget(v.Target, len(v.Candidate) == 0, "candidate")
}

func (c *ChatMessage) validate() error {
	if err := requireRoom(c.RoomID); err != nil {
		return err
	}
	if c.Message == "" {
		return fmt.Errorf("missing message")
	}
	return nil
}

func requireRoom(roomID string) error {
	if roomID == "" {
		return fmt.Errorf("missing roomId")
	}
	return nil
}

func requireTarget(target string, payloadMissing bool, payloadName string) error {
	if target == "" {
		return fmt.Errorf("missing target")
	}
	if payloadMissing {
		return fmt.Errorf("missing %s", payloadName)
	}
	return nil
}
