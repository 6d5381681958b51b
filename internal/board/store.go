package board

// Document is the full whiteboard state pushed to a newly connected client.
// Shape order is the z-order for rendering.
type Document struct {
	Shapes       []Shape   `json:"shapes"`
	History      [][]Shape `json:"history"`
	HistoryIndex int       `json:"historyIndex"`
}

// Store owns the single shared document for a workspace.
//
// Conflict policy is last-writer-wins: the most recently applied mutation
// for a shape id fully replaces prior state, with no merge of concurrent
// edits. This mirrors the upstream collaboration semantics and is part of
// the contract, not an accident.
//
// Store is not safe for concurrent use. The hub serializes every mutation
// behind its own mutex (one serialization point for all shared state).
type Store struct {
	shapes []Shape
	index  map[string]int // shape id -> position in shapes

	history      [][]Shape
	historyIndex int
}

func NewStore() *Store {
	return &Store{
		index:   make(map[string]int),
		history: [][]Shape{{}},
	}
}

// Snapshot deep-copies the current document. Sent to a new connection
// exactly once, before any other event can reach it.
func (s *Store) Snapshot() Document {
	doc := Document{
		Shapes:       cloneShapes(s.shapes),
		History:      make([][]Shape, len(s.history)),
		HistoryIndex: s.historyIndex,
	}
	for i, entry := range s.history {
		doc.History[i] = cloneShapes(entry)
	}
	return doc
}

// ShapeCount reports the number of shapes currently in the document.
func (s *Store) ShapeCount() int {
	return len(s.shapes)
}

// Add appends a shape, or overwrites in place if the id already exists
// (defensive de-dup; the overwrite keeps the original z-position).
func (s *Store) Add(shape Shape) {
	if i, ok := s.index[shape.ID]; ok {
		s.shapes[i] = shape
		return
	}
	s.index[shape.ID] = len(s.shapes)
	s.shapes = append(s.shapes, shape)
}

// Update replaces the shape with a matching id; unknown ids are a no-op.
func (s *Store) Update(shape Shape) {
	if i, ok := s.index[shape.ID]; ok {
		s.shapes[i] = shape
	}
}

// Delete removes a shape by id; unknown ids are a no-op.
func (s *Store) Delete(id string) {
	i, ok := s.index[id]
	if !ok {
		return
	}
	s.shapes = append(s.shapes[:i], s.shapes[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.shapes); j++ {
		s.index[s.shapes[j].ID] = j
	}
}

// Clear empties the shape collection. History is untouched; clients send a
// separate history update when they commit the clear to their undo log.
func (s *Store) Clear() {
	s.shapes = nil
	s.index = make(map[string]int)
}

// ReplaceAll substitutes the whole collection (undo/redo and bulk remote
// replace). Later duplicates of an id win, matching receipt order.
func (s *Store) ReplaceAll(shapes []Shape) {
	s.shapes = nil
	s.index = make(map[string]int)
	for _, shape := range shapes {
		s.Add(shape)
	}
}

// SetHistory atomically replaces the undo/redo log and cursor. The store is
// a passive mirror: clients own undo computation, and the last writer wins.
// An index outside the new log is clamped to its bounds.
func (s *Store) SetHistory(history [][]Shape, index int) {
	if history == nil {
		history = [][]Shape{{}}
	}
	if index < 0 {
		index = 0
	}
	if index > len(history)-1 {
		index = len(history) - 1
	}
	s.history = history
	s.historyIndex = index
}

func cloneShapes(shapes []Shape) []Shape {
	out := make([]Shape, len(shapes))
	for i, shape := range shapes {
		out[i] = shape.clone()
	}
	return out
}
