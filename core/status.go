package core

import "time"

// Agent is one roster member. Name, Emoji, Color and Desc are presentation
// data passed through to the snapshot untouched.
type Agent struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	Emoji        string `json:"emoji,omitempty" yaml:"emoji"`
	Color        string `json:"color,omitempty" yaml:"color"`
	Folder       string `json:"folder" yaml:"folder"` // session directory under the agents root
	Desc         string `json:"desc,omitempty" yaml:"desc"`
	Orchestrator bool   `json:"orchestrator,omitempty" yaml:"orchestrator"`
}

// Status is the lifecycle state derived for an agent.
type Status string

const (
	StatusOffline Status = "offline"
	StatusIdle    Status = "idle"
	StatusActive  Status = "active"
	StatusRunning Status = "running"
	StatusError   Status = "error"
)

// LogLine is a classified message shown in an agent's log excerpt.
type LogLine struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Time      string    `json:"time"` // locale time of day, display only
	Timestamp time.Time `json:"timestamp"`
	ToolCall  bool      `json:"toolCall,omitempty"`
}

// Tokens holds estimated token tallies.
type Tokens struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// Add accumulates other into t and keeps Total consistent.
func (t *Tokens) Add(other Tokens) {
	t.Input += other.Input
	t.Output += other.Output
	t.Total = t.Input + t.Output
}

// StatusRecord is the reduced state of one agent for one run.
type StatusRecord struct {
	Agent
	Status         Status       `json:"status"`
	Task           string       `json:"task"`
	Progress       int          `json:"progress"`
	StartedAt      *time.Time   `json:"startedAt,omitempty"`
	Logs           []LogLine    `json:"logs"`
	Communications []Delegation `json:"communications"`
	Tokens         Tokens       `json:"tokens"`
}

// DelegationKind tells structured spawn calls apart from keyword mentions.
type DelegationKind string

const (
	KindSpawn   DelegationKind = "spawn"
	KindMention DelegationKind = "mention"
)

// Delegation records one agent handing work to another.
type Delegation struct {
	Kind       DelegationKind `json:"kind"`
	From       string         `json:"from"` // agent id
	FromFolder string         `json:"fromFolder,omitempty"`
	To         string         `json:"to"` // agent id
	ToFolder   string         `json:"toFolder,omitempty"`
	Task       string         `json:"task"`
	Label      string         `json:"label,omitempty"`
	Time       string         `json:"time"` // locale time of day, display only
	Timestamp  time.Time      `json:"timestamp"`
}

// Metrics aggregates token tallies and status counts across the roster.
// ActiveAgents counts both active and running agents.
type Metrics struct {
	Tokens        Tokens `json:"tokens"`
	ActiveAgents  int    `json:"activeAgents"`
	IdleAgents    int    `json:"idleAgents"`
	OfflineAgents int    `json:"offlineAgents"`
}

// Snapshot is the published document. It is replaced wholesale on every run.
type Snapshot struct {
	GeneratedAt    time.Time               `json:"generatedAt"`
	Order          []string                `json:"order"` // roster order of agent ids
	Agents         map[string]StatusRecord `json:"agents"`
	Communications []Delegation            `json:"communications"`
	Metrics        Metrics                 `json:"metrics"`
}

// Records returns the agent records in roster order.
func (s *Snapshot) Records() []StatusRecord {
	out := make([]StatusRecord, 0, len(s.Order))
	for _, id := range s.Order {
		if r, ok := s.Agents[id]; ok {
			out = append(out, r)
		}
	}
	return out
}

// HistoryMessage is one message entry of a session history.
type HistoryMessage struct {
	Role      Role    `json:"role"`
	Content   Content `json:"content"`
	Timestamp string  `json:"timestamp"`
}

// History holds the most recent messages of one session, oldest first.
type History struct {
	SessionKey string           `json:"sessionKey"`
	Messages   []HistoryMessage `json:"messages"`
}
