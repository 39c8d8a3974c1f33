package reminder

import "sync"

// Registry maps process-local ids to reminders. Ids come from an explicit
// counter and removed slots become tombstones, so ids are never reused.
type Registry struct {
	mu    sync.RWMutex
	seq   int
	slots []*Reminder // slots[id-1]; nil is a tombstone
	live  int
}

func NewRegistry() *Registry { return &Registry{} }

// Register assigns the next id to r and stores it.
func (g *Registry) Register(r *Reminder) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	r.id = g.seq
	g.slots = append(g.slots, r)
	g.live++
	return r.id
}

// Get returns the reminder for id, or false for unknown ids and tombstones.
func (g *Registry) Get(id int) (*Reminder, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if id < 1 || id > len(g.slots) {
		return nil, false
	}
	r := g.slots[id-1]
	return r, r != nil
}

// FindByMessageID returns the live reminder created from messageID.
func (g *Registry) FindByMessageID(messageID string) (*Reminder, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, r := range g.slots {
		if r != nil && r.MessageID == messageID {
			return r, true
		}
	}
	return nil, false
}

// ListFor returns userID's pending reminders, oldest first.
func (g *Registry) ListFor(userID int64) []*Reminder {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []*Reminder
	for _, r := range g.slots {
		if r != nil && r.UserID == userID && r.State() == StatePending {
			out = append(out, r)
		}
	}
	return out
}

// Live returns every registered reminder, oldest first.
func (g *Registry) Live() []*Reminder {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Reminder, 0, g.live)
	for _, r := range g.slots {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// Tombstone marks id removed. It reports false when id was not live.
func (g *Registry) Tombstone(id int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if id < 1 || id > len(g.slots) || g.slots[id-1] == nil {
		return false
	}
	g.slots[id-1] = nil
	g.live--
	return true
}

// Len is the number of live slots.
func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.live
}

// HighWater is the last id handed out.
func (g *Registry) HighWater() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.seq
}
