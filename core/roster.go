package core

// Roster is the fixed, ordered set of monitored agents with lookups by id
// and by session folder. It is built once and shared read-only.
type Roster struct {
	agents   []Agent
	byID     map[string]int
	byFolder map[string]int
}

// NewRoster indexes agents. Later duplicates of an id or folder lose to the
// first occurrence; config validation rejects them before this point.
func NewRoster(agents []Agent) *Roster {
	r := &Roster{
		agents:   append([]Agent(nil), agents...),
		byID:     make(map[string]int, len(agents)),
		byFolder: make(map[string]int, len(agents)),
	}
	for i, a := range r.agents {
		if _, ok := r.byID[a.ID]; !ok {
			r.byID[a.ID] = i
		}
		if _, ok := r.byFolder[a.Folder]; !ok {
			r.byFolder[a.Folder] = i
		}
	}
	return r
}

// Agents returns the roster in configured order.
func (r *Roster) Agents() []Agent {
	return append([]Agent(nil), r.agents...)
}

// Len returns the number of agents.
func (r *Roster) Len() int { return len(r.agents) }

// ByID looks an agent up by id.
func (r *Roster) ByID(id string) (Agent, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Agent{}, false
	}
	return r.agents[i], true
}

// ByFolder looks an agent up by session folder.
func (r *Roster) ByFolder(folder string) (Agent, bool) {
	i, ok := r.byFolder[folder]
	if !ok {
		return Agent{}, false
	}
	return r.agents[i], true
}

// Resolve maps an identifier used by the agent runtime to a roster agent.
// Runtimes address agents by folder name, so folders are tried first.
func (r *Roster) Resolve(identifier string) (Agent, bool) {
	if a, ok := r.ByFolder(identifier); ok {
		return a, true
	}
	return r.ByID(identifier)
}

// Orchestrator returns the agent flagged as orchestrator, or the first
// agent when none is flagged.
func (r *Roster) Orchestrator() (Agent, bool) {
	for _, a := range r.agents {
		if a.Orchestrator {
			return a, true
		}
	}
	if len(r.agents) == 0 {
		return Agent{}, false
	}
	return r.agents[0], true
}
