// Package repositories implements the generic document repository and the typed
// domain repositories built on it.
package repositories

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/otakuparshva/ai-recruitment/internal/store"
)

// Repositories bundles the domain repositories sharing one engine.
type Repositories struct {
	Engine       *Engine
	Users        *UserRepository
	Jobs         *JobRepository
	Applications *ApplicationRepository
	Interviews   *InterviewRepository
	ActivityLogs *ActivityLogRepository
}

// New wires every domain repository onto conn.
func New(conn store.Connector, opts EngineOptions, logger *zap.Logger, metrics *store.Metrics) (*Repositories, error) {
	schemas, err := NewSchemas()
	if err != nil {
		return nil, fmt.Errorf("compile schemas: %w", err)
	}

	engine := NewEngine(conn, opts, logger.Named("repositories"), metrics)
	return &Repositories{
		Engine:       engine,
		Users:        NewUserRepository(engine, schemas.Users),
		Jobs:         NewJobRepository(engine, schemas.Jobs),
		Applications: NewApplicationRepository(engine, schemas.Applications),
		Interviews:   NewInterviewRepository(engine, schemas.Interviews),
		ActivityLogs: NewActivityLogRepository(engine, schemas.ActivityLogs),
	}, nil
}
