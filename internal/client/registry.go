package client

import "sync"

// Registry tracks the pumps this process is running, keyed by session id.
// The refresh bridge snapshots it so an interrupted process can offer to
// resume its uploads on restart.
type Registry struct {
	pumps sync.Map // sessionID -> *Pump
}

// NewRegistry returns an empty pump registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers a pump under its task's session id.
func (r *Registry) Add(p *Pump) {
	r.pumps.Store(p.Task().SessionID, p)
}

// Get returns the pump for a session, or nil.
func (r *Registry) Get(sessionID string) *Pump {
	if val, ok := r.pumps.Load(sessionID); ok {
		return val.(*Pump)
	}
	return nil
}

// Remove drops a pump from the registry. Safe on absent ids.
func (r *Registry) Remove(sessionID string) {
	r.pumps.Delete(sessionID)
}

// Active returns pumps whose tasks are not yet terminal.
func (r *Registry) Active() []*Pump {
	out := make([]*Pump, 0)
	r.pumps.Range(func(_, value any) bool {
		p := value.(*Pump)
		if !p.Task().State().Terminal() {
			out = append(out, p)
		}
		return true
	})
	return out
}
