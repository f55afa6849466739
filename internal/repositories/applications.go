package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/otakuparshva/ai-recruitment/internal/domain"
	"github.com/otakuparshva/ai-recruitment/internal/schema"
)

// best matches first, then newest
var byMatchScore = []SortField{
	{Field: "match_score", Direction: Descending},
	{Field: "created_at", Direction: Descending},
}

// ApplicationRepository stores job applications.
type ApplicationRepository struct {
	docs *DocumentRepository[domain.Application, *domain.Application]
}

func NewApplicationRepository(engine *Engine, s *schema.Schema[domain.Application]) *ApplicationRepository {
	return &ApplicationRepository{docs: NewDocumentRepository[domain.Application, *domain.Application](engine, s)}
}

func (r *ApplicationRepository) Create(ctx context.Context, app *domain.Application) (string, error) {
	id, err := r.docs.Insert(ctx, app)
	if err != nil {
		return "", err
	}
	return id.Hex(), nil
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*domain.Application, error) {
	filter, ok := idFilter(id)
	if !ok {
		return nil, nil
	}
	return r.docs.GetOne(ctx, filter)
}

func (r *ApplicationRepository) FindByJobAndCandidate(ctx context.Context, jobID, candidateID string) (*domain.Application, error) {
	job, err := domain.ParseID(jobID)
	if err != nil {
		return nil, nil
	}
	candidate, err := domain.ParseID(candidateID)
	if err != nil {
		return nil, nil
	}
	return r.docs.GetOne(ctx, bson.M{"job_id": job, "candidate_id": candidate})
}

// ListByJob returns a job's applications, best match first.
func (r *ApplicationRepository) ListByJob(ctx context.Context, jobID string, page domain.Page) ([]*domain.Application, error) {
	job, err := domain.ParseID(jobID)
	if err != nil {
		return []*domain.Application{}, nil
	}
	return r.docs.GetMany(ctx, bson.M{"job_id": job}, pageOptions(page, byMatchScore))
}

// ListByCandidate returns a candidate's applications, newest first.
func (r *ApplicationRepository) ListByCandidate(ctx context.Context, candidateID string, page domain.Page) ([]*domain.Application, error) {
	candidate, err := domain.ParseID(candidateID)
	if err != nil {
		return []*domain.Application{}, nil
	}
	return r.docs.GetMany(ctx, bson.M{"candidate_id": candidate}, pageOptions(page, newestFirst))
}

func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id string, status domain.ApplicationStatus) (*domain.Application, error) {
	filter, ok := idFilter(id)
	if !ok {
		return nil, nil
	}
	return r.docs.UpdateOne(ctx, filter, map[string]any{"status": status})
}

func (r *ApplicationRepository) SetMatchScore(ctx context.Context, id string, score float64) (*domain.Application, error) {
	filter, ok := idFilter(id)
	if !ok {
		return nil, nil
	}
	return r.docs.UpdateOne(ctx, filter, map[string]any{"match_score": score})
}

func (r *ApplicationRepository) CountByJob(ctx context.Context, jobID string) (int64, error) {
	job, err := domain.ParseID(jobID)
	if err != nil {
		return 0, nil
	}
	return r.docs.Count(ctx, bson.M{"job_id": job})
}

// applicationFilter returns ok=false when an id is malformed, meaning nothing can match.
func applicationFilter(f domain.ApplicationFilter) (bson.M, bool) {
	filter := bson.M{}
	for field, id := range map[string]string{"job_id": f.JobID, "candidate_id": f.CandidateID} {
		if id == "" {
			continue
		}
		oid, err := domain.ParseID(id)
		if err != nil {
			return nil, false
		}
		filter[field] = oid
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if !f.CreatedSince.IsZero() {
		filter["created_at"] = bson.M{"$gte": f.CreatedSince}
	}
	return filter, true
}

func (r *ApplicationRepository) Count(ctx context.Context, f domain.ApplicationFilter) (int64, error) {
	filter, ok := applicationFilter(f)
	if !ok {
		return 0, nil
	}
	return r.docs.Count(ctx, filter)
}

var _ domain.ApplicationRepository = (*ApplicationRepository)(nil)
