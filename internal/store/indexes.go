package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/otakuparshva/ai-recruitment/internal/domain"
	"github.com/otakuparshva/ai-recruitment/internal/retry"
)

// ErrIndexConflict reports an existing index whose definition differs from the required one.
var ErrIndexConflict = errors.New("index definition conflict")

// Connector hands out a live database handle.
type Connector interface {
	EnsureConnection(ctx context.Context) (Database, error)
}

// DefaultIndexes is the index set every deployment requires.
func DefaultIndexes() map[string][]IndexSpec {
	return map[string][]IndexSpec{
		domain.CollectionUsers: {
			{Keys: []IndexKey{Asc("email")}, Unique: true},
			{Keys: []IndexKey{Asc("role")}},
		},
		domain.CollectionJobs: {
			{Keys: []IndexKey{Asc("status")}},
			{Keys: []IndexKey{Asc("creator_id")}},
			{Keys: []IndexKey{Asc("department")}},
		},
		domain.CollectionApplications: {
			{Keys: []IndexKey{Asc("job_id")}},
			{Keys: []IndexKey{Asc("candidate_id")}},
			{Keys: []IndexKey{Asc("status")}},
		},
		domain.CollectionInterviews: {
			{Keys: []IndexKey{Asc("application_id")}},
		},
		domain.CollectionActivityLogs: {
			{Keys: []IndexKey{Desc("timestamp")}},
		},
	}
}

// Provisioner creates the required indexes once per process lifetime.
type Provisioner struct {
	conn    Connector
	indexes map[string][]IndexSpec
	policy  retry.Policy
	logger  *zap.Logger

	mu   sync.Mutex
	done atomic.Bool
}

// NewProvisioner creates a provisioner. Errors are classified with Classify.
func NewProvisioner(conn Connector, indexes map[string][]IndexSpec, policy retry.Policy, logger *zap.Logger) *Provisioner {
	if policy.Name == "" {
		policy.Name = "indexes"
	}
	if policy.Logger == nil {
		policy.Logger = logger
	}
	policy.Classify = Classify
	return &Provisioner{
		conn:    conn,
		indexes: indexes,
		policy:  policy,
		logger:  logger,
	}
}

// EnsureIndexes creates every index that does not exist yet. Existing indexes with the same
// definition are left alone; a conflicting definition fails without retry.
func (p *Provisioner) EnsureIndexes(ctx context.Context) error {
	if p.done.Load() {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done.Load() {
		return nil
	}

	collections := make([]string, 0, len(p.indexes))
	for name := range p.indexes {
		collections = append(collections, name)
	}
	sort.Strings(collections)

	err := p.policy.Do(ctx, func(ctx context.Context) error {
		db, err := p.conn.EnsureConnection(ctx)
		if err != nil {
			return err
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, name := range collections {
			name := name
			specs := p.indexes[name]
			g.Go(func() error {
				if err := db.Collection(name).CreateIndexes(gctx, specs); err != nil {
					return fmt.Errorf("create indexes on %s: %w", name, err)
				}
				return nil
			})
		}
		return g.Wait()
	})
	if err != nil {
		p.logger.Error("index provisioning failed", zap.Error(err))
		var de *domain.Error
		if errors.As(err, &de) {
			return err
		}
		return domain.NewError(domain.KindStore, "ensure indexes", "", err)
	}

	p.done.Store(true)
	p.logger.Info("indexes provisioned", zap.Strings("collections", collections))
	return nil
}

// ensureCollection lists the existing indexes of one collection and creates only the missing ones.
func (p *Provisioner) ensureCollection(ctx context.Context, c Collection, name string, specs []IndexSpec) error {
	existing, err := c.ListIndexes(ctx)
	if err != nil {
		return fmt.Errorf("list indexes on %s: %w", name, err)
	}
	missing, err := missingIndexes(existing, specs)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if len(missing) == 0 {
		return nil
	}
	if err := c.CreateIndexes(ctx, missing); err != nil {
		return fmt.Errorf("create indexes on %s: %w", name, err)
	}
	p.logger.Info("indexes created", zap.String("collection", name), zap.Strings("indexes", specNames(missing)))
	return nil
}

// missingIndexes returns the wanted specs that do not exist yet. An existing index sharing
// a wanted index's name or keys with a different definition is a conflict.
func missingIndexes(existing, wanted []IndexSpec) ([]IndexSpec, error) {
	var missing []IndexSpec
	for _, w := range wanted {
		found := false
		for _, have := range existing {
			sameName := have.IndexName() == w.IndexName()
			sameKeys := have.SameKeys(w)
			if !sameName && !sameKeys {
				continue
			}
			if !have.SameDefinition(w) {
				return nil, fmt.Errorf("%w: %s exists as %s", ErrIndexConflict, w.IndexName(), describeIndex(have))
			}
			found = true
			break
		}
		if !found {
			missing = append(missing, w)
		}
	}
	return missing, nil
}

func describeIndex(s IndexSpec) string {
	if s.Unique {
		return s.IndexName() + " (unique)"
	}
	return s.IndexName()
}

func specNames(specs []IndexSpec) []string {
	names := make([]string, 0, len(specs))
	for _, s := range specs {
		names = append(names, s.IndexName())
	}
	return names
}
