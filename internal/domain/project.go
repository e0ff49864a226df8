package domain

import "time"

// Project is a logical, independently-persisted database hosted by this
// kernel. At most one project is ever IsActive; DatabasePath is stable for
// the project's lifetime and uniquely identifies its engine.
type Project struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	DatabasePath   string    `json:"database_path"`
	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
	IsActive       bool      `json:"is_active"`
}

type EngineStatus string

const (
	EngineInitialising EngineStatus = "initialising"
	EngineReady        EngineStatus = "ready"
	EngineClosed       EngineStatus = "closed"
)

// EngineHandle tracks the lifecycle of one project's Postgres engine.
// Only the Engine Adapter mutates CurrentSessionContext, and it always
// reflects at most one logical request in flight.
type EngineHandle struct {
	ProjectID             string
	Status                EngineStatus
	CurrentSessionContext *SessionContext
}
