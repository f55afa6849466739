package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/otakuparshva/ai-recruitment/internal/domain"
	"github.com/otakuparshva/ai-recruitment/internal/schema"
)

// newestFirst is the default ordering of listings.
var newestFirst = []SortField{{Field: "created_at", Direction: Descending}}

// idFilter builds an _id filter; ok is false for a malformed id.
func idFilter(id string) (bson.M, bool) {
	oid, err := domain.ParseID(id)
	if err != nil {
		return nil, false
	}
	return bson.M{"_id": oid}, true
}

func pageOptions(page domain.Page, sort []SortField) FindOptions {
	return FindOptions{Skip: page.Skip, Limit: page.Limit, Sort: sort}
}

// UserRepository stores users; email is unique.
type UserRepository struct {
	docs *DocumentRepository[domain.User, *domain.User]
}

func NewUserRepository(engine *Engine, s *schema.Schema[domain.User]) *UserRepository {
	return &UserRepository{docs: NewDocumentRepository[domain.User, *domain.User](engine, s)}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (string, error) {
	id, err := r.docs.Insert(ctx, user)
	if err != nil {
		return "", err
	}
	return id.Hex(), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.docs.GetOne(ctx, bson.M{"email": domain.NormalizeEmail(email)})
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	filter, ok := idFilter(id)
	if !ok {
		return nil, nil
	}
	return r.docs.GetOne(ctx, filter)
}

func (r *UserRepository) Update(ctx context.Context, id string, fields map[string]any) (*domain.User, error) {
	filter, ok := idFilter(id)
	if !ok {
		return nil, nil
	}
	if email, isString := fields["email"].(string); isString {
		normalized := make(map[string]any, len(fields))
		for k, v := range fields {
			normalized[k] = v
		}
		normalized["email"] = domain.NormalizeEmail(email)
		fields = normalized
	}
	return r.docs.UpdateOne(ctx, filter, fields)
}

func userFilter(f domain.UserFilter) bson.M {
	filter := bson.M{}
	if f.Role != "" {
		filter["role"] = f.Role
	}
	if f.Active != nil {
		filter["is_active"] = *f.Active
	}
	if !f.CreatedSince.IsZero() {
		filter["created_at"] = bson.M{"$gte": f.CreatedSince}
	}
	return filter
}

func (r *UserRepository) List(ctx context.Context, f domain.UserFilter, page domain.Page) ([]*domain.User, error) {
	return r.docs.GetMany(ctx, userFilter(f), pageOptions(page, newestFirst))
}

func (r *UserRepository) Count(ctx context.Context, f domain.UserFilter) (int64, error) {
	return r.docs.Count(ctx, userFilter(f))
}

func (r *UserRepository) SetActive(ctx context.Context, id string, active bool) (*domain.User, error) {
	return r.Update(ctx, id, map[string]any{"is_active": active})
}

func (r *UserRepository) IncrementLoginAttempts(ctx context.Context, email string) (int64, error) {
	return r.docs.Increment(ctx, bson.M{"email": domain.NormalizeEmail(email)}, "login_attempts", 1)
}

func (r *UserRepository) ResetLoginAttempts(ctx context.Context, email string) (int64, error) {
	return r.docs.UpdateMany(ctx, bson.M{"email": domain.NormalizeEmail(email)}, map[string]any{"login_attempts": 0})
}

// Purge hard-deletes a user. Used only for explicit administrative removal.
func (r *UserRepository) Purge(ctx context.Context, id string) (int64, error) {
	filter, ok := idFilter(id)
	if !ok {
		return 0, nil
	}
	return r.docs.Delete(ctx, filter)
}

var _ domain.UserRepository = (*UserRepository)(nil)
