// Package hub routes every client event through one serialization point:
// a single mutex guarding the presence registry, the shared document and
// room membership. Handlers mutate state and enqueue outbound frames under
// that lock, so no two mutations ever interleave and a new connection's
// initial snapshot can never race a concurrent broadcast.
package hub

import (
	"log/slog"
	"sync"

	"github.com/hacker-ring/weavespace-relay/internal/board"
	"github.com/hacker-ring/weavespace-relay/internal/config"
	"github.com/hacker-ring/weavespace-relay/internal/metrics"
	"github.com/hacker-ring/weavespace-relay/internal/presence"
	"github.com/hacker-ring/weavespace-relay/internal/rooms"
	"github.com/hacker-ring/weavespace-relay/internal/wire"
)

type Hub struct {
	cfg config.Config
	log *slog.Logger

	mu       sync.Mutex
	registry *presence.Registry
	store    *board.Store
	rooms    *rooms.Manager
	clients  map[presence.ConnID]*Client
}

func New(cfg config.Config, log *slog.Logger) *Hub {
	return &Hub{
		cfg:      cfg,
		log:      log.With("component", "hub"),
		registry: presence.NewRegistry(),
		store:    board.NewStore(),
		rooms:    rooms.NewManager(),
		clients:  make(map[presence.ConnID]*Client),
	}
}

// Connect registers a new client and pushes its initial state: the full
// document snapshot, then the presence list, both before any other event
// can reach it. Peers learn about the arrival via user-joined.
func (h *Hub) Connect(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rec := h.registry.Register(c.id, c.username)
	c.username = rec.Username // empty name resolved to the default
	h.clients[c.id] = c

	c.enqueue(frameOrLog(h.log)(wire.WhiteboardState(h.store.Snapshot())))
	c.enqueue(frameOrLog(h.log)(wire.UsersUpdate(h.registry.List())))
	h.broadcastOthersLocked(c.id, frameOrLog(h.log)(wire.UserJoined(rec)))

	// Every connection is a workspace member for its whole lifetime.
	h.rooms.Join(rooms.Workspace, h.cfg.WorkspaceID, c.id)
	h.updateRoomGauges()

	metrics.ConnectionsTotal.Inc()
	metrics.ConnectionsActive.Set(float64(h.registry.Len()))

	h.log.Info("client connected", "conn_id", c.id, "username", c.username)
}

// Disconnect tears down a departed connection: vacate every room with one
// departure notice each, drop the presence record, then tell everyone.
// Idempotent, so the transport may report the disconnect more than once.
func (h *Hub) Disconnect(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)

	for _, vacated := range h.rooms.LeaveAll(c.id) {
		switch vacated.Namespace {
		case rooms.Voice:
			h.sendToRoomLocked(rooms.Voice, vacated.Room, frameOrLog(h.log)(wire.UserLeftVoice(c.id)), c.id)
		case rooms.Chat:
			h.sendToRoomLocked(rooms.Chat, vacated.Room, frameOrLog(h.log)(wire.ChatUserLeft(c.username, c.id)), c.id)
		case rooms.Workspace:
			// Covered by the process-wide user-left below.
		}
	}

	h.registry.Unregister(c.id)
	h.broadcastOthersLocked(c.id, frameOrLog(h.log)(wire.UserLeft(c.id)))
	h.broadcastOthersLocked(c.id, frameOrLog(h.log)(wire.UsersUpdate(h.registry.List())))

	h.updateRoomGauges()
	metrics.ConnectionsActive.Set(float64(h.registry.Len()))

	h.log.Info("client disconnected", "conn_id", c.id, "username", c.username)
}

// Handle applies one inbound event: mutate shared state, then fan out.
// The event union is closed, so the switch is exhaustive.
func (h *Hub) Handle(c *Client, ev wire.Inbound) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.id]; !ok {
		return // events racing disconnect teardown are dropped
	}

	switch ev := ev.(type) {
	case wire.ShapeUpdate:
		metrics.EventsTotal.WithLabelValues(wire.EventShapeUpdate).Inc()
		h.handleShapeUpdate(c, ev)

	case wire.DrawingState:
		metrics.EventsTotal.WithLabelValues(wire.EventDrawingState).Inc()
		h.registry.UpdateDrawing(c.id, ev.IsDrawing, ev.CurrentShape)
		h.broadcastOthersLocked(c.id, frameOrLog(h.log)(wire.UserDrawing(c.id, ev)))

	case wire.CursorMove:
		metrics.EventsTotal.WithLabelValues(wire.EventCursorMove).Inc()
		cursor := board.Point{X: board.ClampUnit(ev.X), Y: board.ClampUnit(ev.Y)}
		h.registry.UpdateCursor(c.id, cursor)
		h.broadcastOthersLocked(c.id, frameOrLog(h.log)(wire.UserCursor(c.id, cursor)))

	case wire.ToolChange:
		metrics.EventsTotal.WithLabelValues(wire.EventToolChange).Inc()
		h.registry.UpdateTool(c.id, ev.Tool)
		h.broadcastOthersLocked(c.id, frameOrLog(h.log)(wire.UserToolChange(c.id, ev.Tool)))

	case wire.HistoryUpdate:
		metrics.EventsTotal.WithLabelValues(wire.EventHistoryUpdate).Inc()
		h.store.SetHistory(ev.History, ev.HistoryIndex)
		h.broadcastOthersLocked(c.id, frameOrLog(h.log)(wire.HistoryUpdateFrame(ev)))

	case wire.JoinVoiceRoom:
		metrics.EventsTotal.WithLabelValues(wire.EventJoinVoiceRoom).Inc()
		existing := h.rooms.Join(rooms.Voice, ev.RoomID, c.id)
		c.enqueue(frameOrLog(h.log)(wire.ExistingVoiceUsers(existing)))
		h.sendToRoomLocked(rooms.Voice, ev.RoomID, frameOrLog(h.log)(wire.UserJoinedVoice(c.id)), c.id)
		h.updateRoomGauges()
		h.log.Info("joined voice room", "conn_id", c.id, "room", ev.RoomID, "members", len(existing)+1)

	case wire.LeaveVoiceRoom:
		metrics.EventsTotal.WithLabelValues(wire.EventLeaveVoiceRoom).Inc()
		h.rooms.Leave(rooms.Voice, ev.RoomID, c.id)
		h.sendToRoomLocked(rooms.Voice, ev.RoomID, frameOrLog(h.log)(wire.UserLeftVoice(c.id)), c.id)
		h.updateRoomGauges()
		h.log.Info("left voice room", "conn_id", c.id, "room", ev.RoomID)

	case wire.VoiceOffer:
		h.relayLocked("offer", c, ev.Target, frameOrLog(h.log)(wire.VoiceOfferFrame(ev.Offer, c.id)))

	case wire.VoiceAnswer:
		h.relayLocked("answer", c, ev.Target, frameOrLog(h.log)(wire.VoiceAnswerFrame(ev.Answer, c.id)))

	case wire.VoiceICECandidate:
		h.relayLocked("ice-candidate", c, ev.Target, frameOrLog(h.log)(wire.VoiceICECandidateFrame(ev.Candidate, c.id)))

	case wire.JoinChat:
		metrics.EventsTotal.WithLabelValues(wire.EventJoinChat).Inc()
		h.rooms.Join(rooms.Chat, ev.RoomID, c.id)
		h.sendToRoomLocked(rooms.Chat, ev.RoomID, frameOrLog(h.log)(wire.ChatUserJoined(c.username, c.id)), c.id)
		h.updateRoomGauges()

	case wire.LeaveChat:
		metrics.EventsTotal.WithLabelValues(wire.EventLeaveChat).Inc()
		h.rooms.Leave(rooms.Chat, ev.RoomID, c.id)
		h.sendToRoomLocked(rooms.Chat, ev.RoomID, frameOrLog(h.log)(wire.ChatUserLeft(c.username, c.id)), c.id)
		h.updateRoomGauges()

	case wire.ChatMessage:
		metrics.EventsTotal.WithLabelValues(wire.EventChatMessage).Inc()
		// Room-all scope: the sender receives its own message back, so
		// every member renders the same ordered transcript.
		frame := frameOrLog(h.log)(wire.ChatMessageFrame(c.username, ev.Message, ev.Timestamp, c.id))
		h.sendToRoomLocked(rooms.Chat, ev.RoomID, frame, "")
		metrics.ChatMessagesTotal.Inc()

	case wire.TypingStart:
		metrics.EventsTotal.WithLabelValues(wire.EventTypingStart).Inc()
		h.sendToRoomLocked(rooms.Chat, ev.RoomID, frameOrLog(h.log)(wire.UserTyping(c.id, c.username, true)), c.id)

	case wire.TypingStop:
		metrics.EventsTotal.WithLabelValues(wire.EventTypingStop).Inc()
		h.sendToRoomLocked(rooms.Chat, ev.RoomID, frameOrLog(h.log)(wire.UserTyping(c.id, c.username, false)), c.id)
	}
}

func (h *Hub) handleShapeUpdate(c *Client, ev wire.ShapeUpdate) {
	ev.Clamp()
	switch ev.Action {
	case wire.ShapeAdd:
		h.store.Add(*ev.Shape)
	case wire.ShapeUpdateOne:
		h.store.Update(*ev.Shape)
	case wire.ShapeDelete:
		h.store.Delete(ev.ShapeID)
	case wire.ShapeClear:
		h.store.Clear()
	case wire.ShapeReplaceAll:
		h.store.ReplaceAll(ev.Shapes)
	}
	metrics.DocumentShapes.Set(float64(h.store.ShapeCount()))
	h.broadcastOthersLocked(c.id, frameOrLog(h.log)(wire.ShapeUpdateFrame(ev)))
}

// relayLocked delivers a signaling payload to exactly one connection. A
// vanished target is a silent drop: the caller renegotiates, the relay
// does not error.
func (h *Hub) relayLocked(kind string, from *Client, target string, frame wire.Frame) {
	metrics.EventsTotal.WithLabelValues("voice-" + kind).Inc()
	to, ok := h.clients[presence.ConnID(target)]
	if !ok {
		metrics.DroppedEventsTotal.WithLabelValues(metrics.DropReasonUnknownTarget).Inc()
		h.log.Debug("relay target gone", "kind", kind, "from", from.id, "target", target)
		return
	}
	if frame != nil {
		to.enqueue(frame)
		metrics.SignalsRelayedTotal.WithLabelValues(kind).Inc()
	}
}

func (h *Hub) broadcastOthersLocked(sender presence.ConnID, frame wire.Frame) {
	if frame == nil {
		return
	}
	for id, c := range h.clients {
		if id != sender {
			c.enqueue(frame)
		}
	}
}

// sendToRoomLocked fans a frame out to a room's members. An empty exclude
// id means room-all.
func (h *Hub) sendToRoomLocked(ns rooms.Namespace, room string, frame wire.Frame, exclude presence.ConnID) {
	if frame == nil {
		return
	}
	for _, id := range h.rooms.Members(ns, room) {
		if id == exclude {
			continue
		}
		if c, ok := h.clients[id]; ok {
			c.enqueue(frame)
		}
	}
}

func (h *Hub) updateRoomGauges() {
	for _, ns := range []rooms.Namespace{rooms.Voice, rooms.Chat, rooms.Workspace} {
		metrics.RoomsActive.WithLabelValues(string(ns)).Set(float64(len(h.rooms.Rooms(ns))))
	}
}

// frameOrLog collapses a constructor's error path: payloads here are all
// marshal-safe, so a failure is a bug worth a log line, not a crash.
func frameOrLog(log *slog.Logger) func(frame wire.Frame, err error) wire.Frame {
	return func(frame wire.Frame, err error) wire.Frame {
		if err != nil {
			log.Error("encode frame", "error", err)
			return nil
		}
		return frame
	}
}

// VoiceRoomStatus summarizes one voice room for the health endpoint.
type VoiceRoomStatus struct {
	Room  string            `json:"room"`
	Users []presence.ConnID `json:"users"`
}

// Status is the hub snapshot served by /healthz.
type Status struct {
	ConnectedUsers int               `json:"connectedUsers"`
	VoiceRooms     []VoiceRoomStatus `json:"voiceRooms"`
}

func (h *Hub) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()

	st := Status{
		ConnectedUsers: h.registry.Len(),
		VoiceRooms:     []VoiceRoomStatus{},
	}
	for _, room := range h.rooms.Rooms(rooms.Voice) {
		st.VoiceRooms = append(st.VoiceRooms, VoiceRoomStatus{
			Room:  room,
			Users: h.rooms.Members(rooms.Voice, room),
		})
	}
	return st
}

// ChatMember identifies one member of a chat or workspace room.
type ChatMember struct {
	ID       presence.ConnID `json:"id"`
	Username string          `json:"username"`
}

// ChatRoomsStatus is the membership summary served by /api/chat/rooms.
type ChatRoomsStatus struct {
	ChatRooms           map[string][]ChatMember `json:"chatRooms"`
	TotalConnectedUsers int                     `json:"totalConnectedUsers"`
}

func (h *Hub) ChatRooms() ChatRoomsStatus {
	h.mu.Lock()
	defer h.mu.Unlock()

	st := ChatRoomsStatus{
		ChatRooms:           map[string][]ChatMember{},
		TotalConnectedUsers: h.registry.Len(),
	}
	for _, ns := range []rooms.Namespace{rooms.Chat, rooms.Workspace} {
		for _, room := range h.rooms.Rooms(ns) {
			members := []ChatMember{}
			for _, id := range h.rooms.Members(ns, room) {
				member := ChatMember{ID: id, Username: "Anonymous"}
				if rec, ok := h.registry.Get(id); ok {
					member.Username = rec.Username
				}
				members = append(members, member)
			}
			st.ChatRooms[room] = members
		}
	}
	return st
}
