package repositories_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap/zaptest"

	"github.com/otakuparshva/ai-recruitment/internal/domain"
	"github.com/otakuparshva/ai-recruitment/internal/repositories"
	"github.com/otakuparshva/ai-recruitment/internal/retry"
	"github.com/otakuparshva/ai-recruitment/internal/store"
	"github.com/otakuparshva/ai-recruitment/internal/store/storetest"
)

const testDB = "recruitment_test"

// clock advances one second per reading so that timestamps are strictly ordered.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type harness struct {
	srv     *storetest.Server
	manager *store.Manager
	repos   *repositories.Repositories
	schemas *repositories.Schemas
}

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Strategy: retry.Linear}
}

func testEngineOptions() repositories.EngineOptions {
	opts := repositories.DefaultEngineOptions()
	opts.Policy = fastPolicy()
	opts.OperationTimeout = time.Second
	opts.Now = (&clock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}).Now
	return opts
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	srv := storetest.NewServer()

	opts := store.DefaultOptions("mongodb://localhost:27017", testDB)
	opts.Connect = fastPolicy()
	m := store.NewManager(srv.Dialer(), opts, logger, nil)
	require.NoError(t, m.Connect(ctx))
	t.Cleanup(func() { _ = m.Close(context.Background()) })

	require.NoError(t, store.NewProvisioner(m, store.DefaultIndexes(), fastPolicy(), logger).EnsureIndexes(ctx))

	repos, err := repositories.New(m, testEngineOptions(), logger, nil)
	require.NoError(t, err)
	schemas, err := repositories.NewSchemas()
	require.NoError(t, err)

	return &harness{srv: srv, manager: m, repos: repos, schemas: schemas}
}

func (h *harness) jobDocs() *repositories.DocumentRepository[domain.Job, *domain.Job] {
	return repositories.NewDocumentRepository[domain.Job, *domain.Job](h.repos.Engine, h.schemas.Jobs)
}

func newJob(creator primitive.ObjectID, title string) *domain.Job {
	return &domain.Job{
		Title:       title,
		Department:  "Engineering",
		Location:    "Remote",
		Description: "Build and operate backend services",
		Skills:      []domain.JobSkill{{Name: "Go", Proficiency: "advanced"}},
		SalaryMin:   50000,
		SalaryMax:   90000,
		CreatorID:   creator,
	}
}

func createUser(t *testing.T, h *harness, email string, role domain.Role) string {
	t.Helper()
	id, err := h.repos.Users.Create(context.Background(), domain.NewUser(email, role, "$2a$10$hash"))
	require.NoError(t, err)
	return id
}

func mustID(t *testing.T, hex string) primitive.ObjectID {
	t.Helper()
	id, err := domain.ParseID(hex)
	require.NoError(t, err)
	return id
}
