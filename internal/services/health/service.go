// Package health reports whether the API's dependencies are reachable.
package health

import (
	"context"
	"time"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Status is the health payload.
type Status struct {
	OK       bool   `json:"ok"`
	Database string `json:"database"`
	Store    string `json:"store"`
	LLM      string `json:"llm"`
}

// Service encapsulates health-related checks.
type Service struct {
	DB        Pinger
	StoreKind string
	LLMKind   string
	Timeout   time.Duration
}

// NewService constructs a health service. db may be nil when running on memory repos.
func NewService(db Pinger, storeKind, llmKind string) *Service {
	return &Service{DB: db, StoreKind: storeKind, LLMKind: llmKind, Timeout: 2 * time.Second}
}

// Status pings the database and reports which backends are configured.
func (s *Service) Status(ctx context.Context) Status {
	st := Status{OK: true, Database: "memory", Store: s.StoreKind, LLM: s.LLMKind}
	if s.DB == nil {
		return st
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.DB.PingContext(pingCtx); err != nil {
		st.OK = false
		st.Database = "down"
		return st
	}
	st.Database = "up"
	return st
}
