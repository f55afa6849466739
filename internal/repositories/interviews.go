package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/otakuparshva/ai-recruitment/internal/domain"
	"github.com/otakuparshva/ai-recruitment/internal/schema"
)

// InterviewRepository stores screening interviews.
type InterviewRepository struct {
	docs   *DocumentRepository[domain.Interview, *domain.Interview]
	engine *Engine
}

func NewInterviewRepository(engine *Engine, s *schema.Schema[domain.Interview]) *InterviewRepository {
	return &InterviewRepository{
		docs:   NewDocumentRepository[domain.Interview, *domain.Interview](engine, s),
		engine: engine,
	}
}

func (r *InterviewRepository) Create(ctx context.Context, interview *domain.Interview) (string, error) {
	id, err := r.docs.Insert(ctx, interview)
	if err != nil {
		return "", err
	}
	return id.Hex(), nil
}

func (r *InterviewRepository) GetByID(ctx context.Context, id string) (*domain.Interview, error) {
	filter, ok := idFilter(id)
	if !ok {
		return nil, nil
	}
	return r.docs.GetOne(ctx, filter)
}

func (r *InterviewRepository) GetByApplication(ctx context.Context, applicationID string) (*domain.Interview, error) {
	app, err := domain.ParseID(applicationID)
	if err != nil {
		return nil, nil
	}
	return r.docs.GetOne(ctx, bson.M{"application_id": app})
}

// Complete records the answers and score and stamps the completion time.
func (r *InterviewRepository) Complete(ctx context.Context, id string, answers []domain.InterviewAnswer, score int) (*domain.Interview, error) {
	filter, ok := idFilter(id)
	if !ok {
		return nil, nil
	}
	if answers == nil {
		answers = []domain.InterviewAnswer{}
	}
	return r.docs.UpdateOne(ctx, filter, map[string]any{
		"answers":      answers,
		"score":        score,
		"status":       domain.InterviewStatusCompleted,
		"completed_at": r.engine.Now(),
	})
}

func (r *InterviewRepository) MarkReviewed(ctx context.Context, id string) (*domain.Interview, error) {
	filter, ok := idFilter(id)
	if !ok {
		return nil, nil
	}
	return r.docs.UpdateOne(ctx, filter, map[string]any{"status": domain.InterviewStatusReviewed})
}

var _ domain.InterviewRepository = (*InterviewRepository)(nil)
