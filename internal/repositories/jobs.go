package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/otakuparshva/ai-recruitment/internal/domain"
	"github.com/otakuparshva/ai-recruitment/internal/schema"
)

// JobRepository stores job postings.
type JobRepository struct {
	docs   *DocumentRepository[domain.Job, *domain.Job]
	engine *Engine
}

func NewJobRepository(engine *Engine, s *schema.Schema[domain.Job]) *JobRepository {
	return &JobRepository{
		docs:   NewDocumentRepository[domain.Job, *domain.Job](engine, s),
		engine: engine,
	}
}

func (r *JobRepository) Create(ctx context.Context, job *domain.Job) (string, error) {
	id, err := r.docs.Insert(ctx, job)
	if err != nil {
		return "", err
	}
	return id.Hex(), nil
}

func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	filter, ok := idFilter(id)
	if !ok {
		return nil, nil
	}
	return r.docs.GetOne(ctx, filter)
}

// jobFilter returns ok=false when the creator id is malformed, meaning nothing can match.
func jobFilter(f domain.JobFilter) (bson.M, bool) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Department != "" {
		filter["department"] = f.Department
	}
	if f.CreatorID != "" {
		oid, err := domain.ParseID(f.CreatorID)
		if err != nil {
			return nil, false
		}
		filter["creator_id"] = oid
	}
	if !f.CreatedSince.IsZero() {
		filter["created_at"] = bson.M{"$gte": f.CreatedSince}
	}
	return filter, true
}

func (r *JobRepository) List(ctx context.Context, f domain.JobFilter, page domain.Page) ([]*domain.Job, error) {
	filter, ok := jobFilter(f)
	if !ok {
		return []*domain.Job{}, nil
	}
	return r.docs.GetMany(ctx, filter, pageOptions(page, newestFirst))
}

func (r *JobRepository) ListPending(ctx context.Context, page domain.Page) ([]*domain.Job, error) {
	return r.List(ctx, domain.JobFilter{Status: domain.JobStatusPending}, page)
}

func (r *JobRepository) Count(ctx context.Context, f domain.JobFilter) (int64, error) {
	filter, ok := jobFilter(f)
	if !ok {
		return 0, nil
	}
	return r.docs.Count(ctx, filter)
}

// Approve marks the job approved by adminID. A malformed admin id is an error, not "not found".
func (r *JobRepository) Approve(ctx context.Context, id, adminID string) (*domain.Job, error) {
	filter, ok := idFilter(id)
	if !ok {
		return nil, nil
	}
	admin, err := domain.ParseID(adminID)
	if err != nil {
		return nil, err
	}
	return r.docs.UpdateOne(ctx, filter, map[string]any{
		"status":      domain.JobStatusApproved,
		"approved_at": r.engine.Now(),
		"approved_by": admin,
	})
}

func (r *JobRepository) Reject(ctx context.Context, id string) (*domain.Job, error) {
	return r.setStatus(ctx, id, domain.JobStatusRejected)
}

func (r *JobRepository) Close(ctx context.Context, id string) (*domain.Job, error) {
	return r.setStatus(ctx, id, domain.JobStatusClosed)
}

func (r *JobRepository) setStatus(ctx context.Context, id string, status domain.JobStatus) (*domain.Job, error) {
	filter, ok := idFilter(id)
	if !ok {
		return nil, nil
	}
	return r.docs.UpdateOne(ctx, filter, map[string]any{"status": status})
}

// Purge hard-deletes a job posting.
func (r *JobRepository) Purge(ctx context.Context, id string) (int64, error) {
	filter, ok := idFilter(id)
	if !ok {
		return 0, nil
	}
	return r.docs.Delete(ctx, filter)
}

var _ domain.JobRepository = (*JobRepository)(nil)
