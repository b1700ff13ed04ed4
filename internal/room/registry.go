package room

import (
	"strings"
	"sync"
)

// Registry owns every live room. Rooms are created lazily on first
// join and deleted when a battle ends or the last player leaves.
// Distinct rooms are fully independent; each carries its own lock.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// NormalizeID folds a client-supplied room id to its canonical form.
func NormalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// GetOrCreate returns the room for id, creating it if needed.
func (g *Registry) GetOrCreate(id string) *Room {
	id = NormalizeID(id)
	g.mu.Lock()
	defer g.mu.Unlock()
	if r, ok := g.rooms[id]; ok {
		return r
	}
	r := newRoom(id)
	g.rooms[id] = r
	return r
}

func (g *Registry) Get(id string) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.rooms[NormalizeID(id)]
	return r, ok
}

func (g *Registry) Delete(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.rooms, NormalizeID(id))
}

// Len reports how many rooms are live.
func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}
