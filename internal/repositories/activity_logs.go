package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/otakuparshva/ai-recruitment/internal/domain"
	"github.com/otakuparshva/ai-recruitment/internal/schema"
)

var latestFirst = []SortField{{Field: "timestamp", Direction: Descending}}

// ActivityLogRepository is append-only: it exposes no update or delete.
type ActivityLogRepository struct {
	docs *DocumentRepository[domain.ActivityLog, *domain.ActivityLog]
}

func NewActivityLogRepository(engine *Engine, s *schema.Schema[domain.ActivityLog]) *ActivityLogRepository {
	return &ActivityLogRepository{docs: NewDocumentRepository[domain.ActivityLog, *domain.ActivityLog](engine, s)}
}

func (r *ActivityLogRepository) Log(ctx context.Context, entry *domain.ActivityLog) (string, error) {
	id, err := r.docs.Insert(ctx, entry)
	if err != nil {
		return "", err
	}
	return id.Hex(), nil
}

// activityFilter returns ok=false when the user id is malformed, meaning nothing can match.
func activityFilter(f domain.ActivityFilter) (bson.M, bool) {
	filter := bson.M{}
	if f.UserID != "" {
		user, err := domain.ParseID(f.UserID)
		if err != nil {
			return nil, false
		}
		filter["user_id"] = user
	}
	if f.Action != "" {
		filter["action"] = f.Action
	}
	if f.EntityType != "" {
		filter["entity_type"] = f.EntityType
	}
	if !f.Since.IsZero() {
		filter["timestamp"] = bson.M{"$gte": f.Since}
	}
	return filter, true
}

func (r *ActivityLogRepository) List(ctx context.Context, f domain.ActivityFilter, page domain.Page) ([]*domain.ActivityLog, error) {
	filter, ok := activityFilter(f)
	if !ok {
		return []*domain.ActivityLog{}, nil
	}
	return r.docs.GetMany(ctx, filter, pageOptions(page, latestFirst))
}

func (r *ActivityLogRepository) Count(ctx context.Context, f domain.ActivityFilter) (int64, error) {
	filter, ok := activityFilter(f)
	if !ok {
		return 0, nil
	}
	return r.docs.Count(ctx, filter)
}

var _ domain.ActivityLogRepository = (*ActivityLogRepository)(nil)
