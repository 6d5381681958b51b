// Package presence tracks who is connected to the workspace: one Record
// per live connection, carrying the ephemeral UI state other clients
// render (cursor, tool, drawing-in-progress).
package presence

import (
	"encoding/json"
	"math/rand"

	"github.com/google/uuid"

	"github.com/hacker-ring/weavespace-relay/internal/board"
)

// ConnID identifies a live connection. It is an opaque handle, not a
// username: one person opening two tabs yields two distinct ids.
type ConnID string

// NewConnID mints a fresh connection id.
func NewConnID() ConnID {
	return ConnID(uuid.NewString())
}

func (id ConnID) String() string { return string(id) }

// palette is the fixed set of cursor/user colors. Assignment is a
// pseudo-random pick, so collisions between users are possible and fine.
var palette = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4",
	"#FECA57", "#FF9FF3", "#54A0FF", "#5F27CD",
}

// Record is the presence state for one connection, in the shape clients
// expect on users-update and user-joined.
type Record struct {
	ID       ConnID      `json:"id"`
	Username string      `json:"username"`
	Cursor   board.Point `json:"cursor"`
	Color    string      `json:"color"`

	IsDrawing bool `json:"isDrawing"`
	// CurrentShape is the in-progress shape preview relayed while a user
	// drags. It is client-owned and opaque to the server.
	CurrentShape json.RawMessage `json:"currentShape,omitempty"`

	Tool string `json:"tool,omitempty"`
}

// Registry maps live connections to their presence records.
//
// Registry is not safe for concurrent use; the hub serializes access
// behind its mutex. Mutations never notify anyone — broadcasting is the
// hub's job.
type Registry struct {
	records map[ConnID]*Record
	order   []ConnID // registration order, so List is deterministic

	colorPick func(n int) int
}

func NewRegistry() *Registry {
	return &Registry{
		records:   make(map[ConnID]*Record),
		colorPick: rand.Intn,
	}
}

// Register creates the presence record for a new connection. An empty
// display name falls back to "Anonymous".
func (r *Registry) Register(id ConnID, username string) Record {
	if username == "" {
		username = "Anonymous"
	}
	rec := &Record{
		ID:       id,
		Username: username,
		Color:    palette[r.colorPick(len(palette))],
	}
	r.records[id] = rec
	r.order = append(r.order, id)
	return *rec
}

// Get returns the record for id, if registered.
func (r *Registry) Get(id ConnID) (Record, bool) {
	rec, ok := r.records[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// UpdateCursor moves a connection's cursor, clamped to the unit square.
// Unknown connections are a no-op.
func (r *Registry) UpdateCursor(id ConnID, cursor board.Point) {
	rec, ok := r.records[id]
	if !ok {
		return
	}
	rec.Cursor = board.Point{
		X: board.ClampUnit(cursor.X),
		Y: board.ClampUnit(cursor.Y),
	}
}

// UpdateDrawing records whether a connection is mid-stroke, along with the
// opaque in-progress shape its peers should preview.
func (r *Registry) UpdateDrawing(id ConnID, drawing bool, currentShape json.RawMessage) {
	rec, ok := r.records[id]
	if !ok {
		return
	}
	rec.IsDrawing = drawing
	rec.CurrentShape = currentShape
}

// UpdateTool records the connection's selected tool.
func (r *Registry) UpdateTool(id ConnID, tool string) {
	if rec, ok := r.records[id]; ok {
		rec.Tool = tool
	}
}

// Unregister drops a connection's record. Unknown ids are a no-op, so
// repeated disconnect teardown stays idempotent.
func (r *Registry) Unregister(id ConnID) {
	if _, ok := r.records[id]; !ok {
		return
	}
	delete(r.records, id)
	for i, other := range r.order {
		if other == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// List returns every registered record in registration order.
func (r *Registry) List() []Record {
	out := make([]Record, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.records[id])
	}
	return out
}

// Len reports the number of live connections.
func (r *Registry) Len() int {
	return len(r.records)
}
