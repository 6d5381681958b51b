// Package rooms groups connections into named rooms across independent
// namespaces, so a voice room and a chat room with the same name never
// share membership.
package rooms

import "github.com/hacker-ring/weavespace-relay/internal/presence"

// Namespace partitions the room keyspace.
type Namespace string

const (
	Voice     Namespace = "voice"
	Chat      Namespace = "chat"
	Workspace Namespace = "workspace"
)

// Membership names one room a connection belongs to.
type Membership struct {
	Namespace Namespace
	Room      string
}

type room struct {
	members map[presence.ConnID]int // id -> position in order
	order   []presence.ConnID
}

// Manager tracks room membership. Rooms are created lazily on first join
// and garbage-collected when the last member leaves.
//
// Manager is not safe for concurrent use; the hub serializes access.
type Manager struct {
	namespaces map[Namespace]map[string]*room
}

func NewManager() *Manager {
	return &Manager{
		namespaces: map[Namespace]map[string]*room{
			Voice:     {},
			Chat:      {},
			Workspace: {},
		},
	}
}

// Join adds id to the room and returns the members that were already
// present, in join order. Joining a room twice is idempotent and returns
// the other members.
func (m *Manager) Join(ns Namespace, name string, id presence.ConnID) []presence.ConnID {
	rooms := m.namespaces[ns]
	rm, ok := rooms[name]
	if !ok {
		rm = &room{members: make(map[presence.ConnID]int)}
		rooms[name] = rm
	}
	existing := make([]presence.ConnID, 0, len(rm.order))
	for _, member := range rm.order {
		if member != id {
			existing = append(existing, member)
		}
	}
	if _, already := rm.members[id]; !already {
		rm.members[id] = len(rm.order)
		rm.order = append(rm.order, id)
	}
	return existing
}

// Leave removes id from the room. The room is deleted once empty. Leaving
// a room the connection is not in is a no-op.
func (m *Manager) Leave(ns Namespace, name string, id presence.ConnID) {
	rooms := m.namespaces[ns]
	rm, ok := rooms[name]
	if !ok {
		return
	}
	i, member := rm.members[id]
	if !member {
		return
	}
	delete(rm.members, id)
	rm.order = append(rm.order[:i], rm.order[i+1:]...)
	for j := i; j < len(rm.order); j++ {
		rm.members[rm.order[j]] = j
	}
	if len(rm.order) == 0 {
		delete(rooms, name)
	}
}

// Members returns the room's membership in join order, or nil if the room
// does not exist.
func (m *Manager) Members(ns Namespace, name string) []presence.ConnID {
	rm, ok := m.namespaces[ns][name]
	if !ok {
		return nil
	}
	return append([]presence.ConnID(nil), rm.order...)
}

// LeaveAll removes id from every room in every namespace and reports which
// rooms it vacated. Used on disconnect so each vacated room can be
// notified exactly once.
func (m *Manager) LeaveAll(id presence.ConnID) []Membership {
	var vacated []Membership
	for _, ns := range []Namespace{Voice, Chat, Workspace} {
		for name, rm := range m.namespaces[ns] {
			if _, member := rm.members[id]; member {
				vacated = append(vacated, Membership{Namespace: ns, Room: name})
				m.Leave(ns, name, id)
			}
		}
	}
	return vacated
}

// Rooms lists the names of live rooms in a namespace. Order is not
// specified.
func (m *Manager) Rooms(ns Namespace) []string {
	names := make([]string, 0, len(m.namespaces[ns]))
	for name := range m.namespaces[ns] {
		names = append(names, name)
	}
	return names
}
