package query

import (
	"context"
	"time"
)

// Gateway describes the read-only surface itself.
type Gateway struct {
	Status   string `json:"status"`
	Readonly bool   `json:"readonly"`
	Secure   bool   `json:"secure"`
}

// SessionTotals aggregates the listed sessions.
type SessionTotals struct {
	Total       int            `json:"total"`
	ByChannel   map[string]int `json:"byChannel"`
	ByKind      map[string]int `json:"byKind"`
	TotalTokens int            `json:"totalTokens"`
}

// AgentUsage aggregates one agent's listed sessions.
type AgentUsage struct {
	Sessions     int        `json:"sessions"`
	Tokens       int        `json:"tokens"`
	LastActivity *time.Time `json:"lastActivity"`
}

// MetricsDocument is the aggregate usage document published next to the
// status snapshot. It carries counts and timestamps only, never content.
type MetricsDocument struct {
	GeneratedAt time.Time             `json:"generatedAt"`
	Gateway     Gateway               `json:"gateway"`
	Sessions    SessionTotals         `json:"sessions"`
	Agents      map[string]AgentUsage `json:"agents"`
}

// OnlineGateway is the gateway block of every document this service builds.
var OnlineGateway = Gateway{Status: "online", Readonly: true, Secure: true}

// Metrics lists up to DefaultMetricsLimit sessions and aggregates them.
func (s *Service) Metrics(ctx context.Context) (*MetricsDocument, error) {
	list, err := s.List(ctx, DefaultMetricsLimit)
	if err != nil {
		return nil, err
	}
	doc := &MetricsDocument{
		GeneratedAt: s.Clock.Now(),
		Gateway:     OnlineGateway,
		Sessions: SessionTotals{
			Total:     list.Count,
			ByChannel: map[string]int{},
			ByKind:    map[string]int{},
		},
		Agents: s.Usage(list),
	}
	for _, sum := range list.Sessions {
		doc.Sessions.ByChannel[sum.Channel]++
		doc.Sessions.ByKind[sum.Kind]++
		doc.Sessions.TotalTokens += sum.TotalTokens
	}
	return doc, nil
}

// Usage groups listed sessions per roster agent id. Every roster agent and
// the OtherBucket are present, with zero usage when nothing was listed.
func (s *Service) Usage(list *SessionList) map[string]AgentUsage {
	usage := make(map[string]AgentUsage, s.Roster.Len()+1)
	for _, a := range s.Roster.Agents() {
		usage[a.ID] = AgentUsage{}
	}
	usage[OtherBucket] = AgentUsage{}

	for _, sum := range list.Sessions {
		bucket := OtherBucket
		if k, err := ParseKey(sum.Key); err == nil {
			if a, ok := s.Roster.ByFolder(k.Folder); ok {
				bucket = a.ID
			}
		}
		u := usage[bucket]
		u.Sessions++
		u.Tokens += sum.TotalTokens
		if u.LastActivity == nil || sum.UpdatedAt.After(*u.LastActivity) {
			at := sum.UpdatedAt
			u.LastActivity = &at
		}
		usage[bucket] = u
	}
	return usage
}
