// Package board holds the shared whiteboard document: a z-ordered shape
// collection plus the client-authoritative undo/redo history mirror.
package board

import (
	"errors"
	"fmt"
)

// Kind discriminates the shape variants a client can draw.
type Kind string

const (
	KindPencil    Kind = "pencil"
	KindRectangle Kind = "rectangle"
	KindCircle    Kind = "circle"
	KindLine      Kind = "line"
	KindText      Kind = "text"
	KindIcon      Kind = "icon"
)

// Point is a position in the unit square. All geometry is normalized to
// [0,1] so it is resolution-independent across clients.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Shape is one drawable primitive. The id is client-generated; a duplicate
// id overwrites the existing shape (last-writer-wins, no merge).
//
// Geometry fields are pointers so absent and zero are distinguishable when
// validating kind-specific payloads.
type Shape struct {
	ID    string `json:"id"`
	Type  Kind   `json:"type"`
	Color string `json:"color,omitempty"`

	StrokeWidth float64 `json:"strokeWidth,omitempty"`
	FontSize    float64 `json:"fontSize,omitempty"`

	// Pencil strokes: ordered point sequence, append-only while drawing.
	Points []Point `json:"points,omitempty"`

	// Rectangle / circle / line.
	StartX *float64 `json:"startX,omitempty"`
	StartY *float64 `json:"startY,omitempty"`
	EndX   *float64 `json:"endX,omitempty"`
	EndY   *float64 `json:"endY,omitempty"`

	// Text / icon position.
	X *float64 `json:"x,omitempty"`
	Y *float64 `json:"y,omitempty"`

	// Icon box.
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`

	Text string `json:"text,omitempty"`
	Icon string `json:"icon,omitempty"`
}

var errMissingGeometry = errors.New("missing geometry")

// Validate checks the invariants a shape must satisfy before it enters the
// document. It does not range-check coordinates; callers clamp via
// ClampUnit.
func (s *Shape) Validate() error {
	if s.ID == "" {
		return errors.New("shape missing id")
	}
	switch s.Type {
	case KindPencil:
		if len(s.Points) == 0 {
			return fmt.Errorf("pencil %q: %w", s.ID, errMissingGeometry)
		}
	case KindRectangle, KindCircle, KindLine:
		if s.StartX == nil || s.StartY == nil || s.EndX == nil || s.EndY == nil {
			return fmt.Errorf("%s %q: %w", s.Type, s.ID, errMissingGeometry)
		}
	case KindText:
		if s.X == nil || s.Y == nil {
			return fmt.Errorf("text %q: %w", s.ID, errMissingGeometry)
		}
		if s.Text == "" {
			return fmt.Errorf("text %q: missing text payload", s.ID)
		}
	case KindIcon:
		if s.X == nil || s.Y == nil {
			return fmt.Errorf("icon %q: %w", s.ID, errMissingGeometry)
		}
		if s.Icon == "" && s.Text == "" {
			return fmt.Errorf("icon %q: missing icon or text payload", s.ID)
		}
	default:
		return fmt.Errorf("unknown shape type %q", s.Type)
	}
	return nil
}

// ClampUnit forces every positional field into [0,1]. Shapes are never
// stored or relayed without this; clients with differing canvas sizes rely
// on all geometry staying in the unit square.
func (s *Shape) ClampUnit() {
	for i := range s.Points {
		s.Points[i].X = ClampUnit(s.Points[i].X)
		s.Points[i].Y = ClampUnit(s.Points[i].Y)
	}
	clampPtr(s.StartX)
	clampPtr(s.StartY)
	clampPtr(s.EndX)
	clampPtr(s.EndY)
	clampPtr(s.X)
	clampPtr(s.Y)
	clampPtr(s.Width)
	clampPtr(s.Height)
}

// ClampUnit clamps v into [0,1].
func ClampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampPtr(v *float64) {
	if v != nil {
		*v = ClampUnit(*v)
	}
}

// clone returns a deep copy so snapshots never alias store-owned slices.
func (s Shape) clone() Shape {
	out := s
	if s.Points != nil {
		out.Points = append([]Point(nil), s.Points...)
	}
	out.StartX = clonePtr(s.StartX)
	out.StartY = clonePtr(s.StartY)
	out.EndX = clonePtr(s.EndX)
	out.EndY = clonePtr(s.EndY)
	out.X = clonePtr(s.X)
	out.Y = clonePtr(s.Y)
	out.Width = clonePtr(s.Width)
	out.Height = clonePtr(s.Height)
	return out
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
