package rooms

import (
	"reflect"
	"testing"

	"github.com/hacker-ring/weavespace-relay/internal/presence"
)

func TestJoinReturnsExistingMembersInJoinOrder(t *testing.T) {
	m := NewManager()
	a, b, c := presence.ConnID("a"), presence.ConnID("b"), presence.ConnID("c")

	if got := m.Join(Voice, "standup", a); len(got) != 0 {
		t.Fatalf("first join returned existing members %v", got)
	}
	if got := m.Join(Voice, "standup", b); !reflect.DeepEqual(got, []presence.ConnID{a}) {
		t.Fatalf("second join returned %v, want [a]", got)
	}
	if got := m.Join(Voice, "standup", c); !reflect.DeepEqual(got, []presence.ConnID{a, b}) {
		t.Fatalf("third join returned %v, want [a b]", got)
	}
}

func TestDuplicateJoinIsIdempotent(t *testing.T) {
	m := NewManager()
	a, b := presence.ConnID("a"), presence.ConnID("b")
	m.Join(Chat, "general", a)
	m.Join(Chat, "general", b)

	got := m.Join(Chat, "general", a)
	if !reflect.DeepEqual(got, []presence.ConnID{b}) {
		t.Fatalf("re-join returned %v, want [b]", got)
	}
	if members := m.Members(Chat, "general"); len(members) != 2 {
		t.Fatalf("duplicate join grew the room: %v", members)
	}
}

func TestNamespacesAreDisjoint(t *testing.T) {
	m := NewManager()
	a := presence.ConnID("a")
	m.Join(Voice, "general", a)

	if got := m.Members(Chat, "general"); got != nil {
		t.Fatalf("chat namespace sees voice membership: %v", got)
	}
	m.Leave(Chat, "general", a)
	if got := m.Members(Voice, "general"); len(got) != 1 {
		t.Fatalf("leave in chat namespace touched voice room: %v", got)
	}
}

func TestLeaveGarbageCollectsEmptyRoom(t *testing.T) {
	m := NewManager()
	a, b := presence.ConnID("a"), presence.ConnID("b")
	m.Join(Voice, "standup", a)
	m.Join(Voice, "standup", b)

	m.Leave(Voice, "standup", a)
	if got := m.Members(Voice, "standup"); !reflect.DeepEqual(got, []presence.ConnID{b}) {
		t.Fatalf("Members = %v, want [b]", got)
	}
	if got := m.Rooms(Voice); len(got) != 1 {
		t.Fatalf("Rooms = %v", got)
	}

	m.Leave(Voice, "standup", b)
	if got := m.Rooms(Voice); len(got) != 0 {
		t.Fatalf("empty room not collected: %v", got)
	}
	if got := m.Members(Voice, "standup"); got != nil {
		t.Fatalf("Members of collected room = %v, want nil", got)
	}
}

func TestLeaveUnknownIsNoop(t *testing.T) {
	m := NewManager()
	m.Leave(Voice, "nope", presence.ConnID("a"))

	m.Join(Voice, "standup", presence.ConnID("a"))
	m.Leave(Voice, "standup", presence.ConnID("b"))
	if got := m.Members(Voice, "standup"); len(got) != 1 {
		t.Fatalf("Members = %v", got)
	}
}

func TestLeaveAllVacatesEveryNamespace(t *testing.T) {
	m := NewManager()
	a, b := presence.ConnID("a"), presence.ConnID("b")
	m.Join(Voice, "standup", a)
	m.Join(Chat, "general", a)
	m.Join(Chat, "random", a)
	m.Join(Workspace, "main-workspace", a)
	m.Join(Chat, "general", b)

	vacated := m.LeaveAll(a)
	if len(vacated) != 4 {
		t.Fatalf("vacated %d rooms, want 4: %v", len(vacated), vacated)
	}
	seen := map[Membership]bool{}
	for _, v := range vacated {
		seen[v] = true
	}
	for _, want := range []Membership{
		{Voice, "standup"},
		{Chat, "general"},
		{Chat, "random"},
		{Workspace, "main-workspace"},
	} {
		if !seen[want] {
			t.Errorf("missing vacated membership %+v", want)
		}
	}

	// Rooms with a remaining member survive; the rest are collected.
	if got := m.Members(Chat, "general"); !reflect.DeepEqual(got, []presence.ConnID{b}) {
		t.Errorf("general = %v, want [b]", got)
	}
	if got := m.Rooms(Voice); len(got) != 0 {
		t.Errorf("voice rooms = %v", got)
	}

	// Repeat teardown finds nothing.
	if again := m.LeaveAll(a); len(again) != 0 {
		t.Errorf("second LeaveAll vacated %v", again)
	}
}

func TestMembersReturnsCopy(t *testing.T) {
	m := NewManager()
	m.Join(Voice, "standup", presence.ConnID("a"))
	got := m.Members(Voice, "standup")
	got[0] = presence.ConnID("mutated")

	if fresh := m.Members(Voice, "standup"); fresh[0] != presence.ConnID("a") {
		t.Fatalf("Members aliases internal state: %v", fresh)
	}
}
