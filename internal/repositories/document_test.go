package repositories_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap/zaptest"

	"github.com/otakuparshva/ai-recruitment/internal/domain"
	"github.com/otakuparshva/ai-recruitment/internal/repositories"
	"github.com/otakuparshva/ai-recruitment/internal/schema"
	"github.com/otakuparshva/ai-recruitment/internal/store/storetest"
)

func TestDocumentRepository_InsertAssignsIDAndDefaults(t *testing.T) {
	h := newHarness(t)
	docs := h.jobDocs()

	job := newJob(primitive.NewObjectID(), "Backend Engineer")
	id, err := docs.Insert(context.Background(), job)
	require.NoError(t, err)

	assert.False(t, id.IsZero())
	assert.Equal(t, id, job.ID)
	assert.Equal(t, domain.JobStatusPending, job.Status)
	assert.False(t, job.CreatedAt.IsZero())
	assert.Equal(t, job.CreatedAt, job.UpdatedAt)

	stored, err := docs.GetOne(context.Background(), bson.M{"_id": id})
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, job.Title, stored.Title)
	assert.True(t, job.CreatedAt.Equal(stored.CreatedAt))
}

func TestDocumentRepository_InsertRejectsInvalidDocument(t *testing.T) {
	h := newHarness(t)
	docs := h.jobDocs()

	job := newJob(primitive.NewObjectID(), "Backend Engineer")
	job.SalaryMax = 1000

	_, err := docs.Insert(context.Background(), job)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)

	var ve *schema.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "salary_max", ve.Errors[0].Field)
	assert.Zero(t, h.srv.Calls(storetest.OpInsert), "invalid documents never reach the store")

	_, err = docs.Insert(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDocumentRepository_UniqueConflict(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	createUser(t, h, "ann@example.com", domain.RoleCandidate)

	_, err := h.repos.Users.Create(ctx, domain.NewUser("  ANN@example.com ", domain.RoleRecruiter, "hash"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, 2, h.srv.Calls(storetest.OpInsert), "duplicate keys are not retried")

	n, err := h.repos.Users.Count(ctx, domain.UserFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestDocumentRepository_Pagination(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	docs := h.jobDocs()

	oldestFirst := []repositories.SortField{{Field: "created_at", Direction: repositories.Ascending}}
	newestFirst := []repositories.SortField{{Field: "created_at", Direction: repositories.Descending}}

	empty, err := docs.GetMany(ctx, bson.M{}, repositories.FindOptions{Limit: 10, Sort: oldestFirst})
	require.NoError(t, err)
	require.NotNil(t, empty, "empty collection yields an empty list")
	assert.Empty(t, empty)

	creator := primitive.NewObjectID()
	for i := 0; i < 5; i++ {
		_, err := docs.Insert(ctx, newJob(creator, fmt.Sprintf("job-%d", i)))
		require.NoError(t, err)
	}

	titles := func(jobs []*domain.Job) []string {
		out := make([]string, 0, len(jobs))
		for _, j := range jobs {
			out = append(out, j.Title)
		}
		return out
	}

	tests := []struct {
		name string
		opts repositories.FindOptions
		want []string
	}{
		{"default limit", repositories.FindOptions{Sort: oldestFirst}, []string{"job-0", "job-1", "job-2", "job-3", "job-4"}},
		{"first page", repositories.FindOptions{Limit: 2, Sort: oldestFirst}, []string{"job-0", "job-1"}},
		{"last partial page", repositories.FindOptions{Skip: 4, Limit: 2, Sort: oldestFirst}, []string{"job-4"}},
		{"skip past end", repositories.FindOptions{Skip: 5, Sort: oldestFirst}, []string{}},
		{"fewer than limit", repositories.FindOptions{Limit: 10, Sort: oldestFirst}, []string{"job-0", "job-1", "job-2", "job-3", "job-4"}},
		{"limit equals count", repositories.FindOptions{Limit: 5, Sort: oldestFirst}, []string{"job-0", "job-1", "job-2", "job-3", "job-4"}},
		{"descending", repositories.FindOptions{Limit: 1, Sort: newestFirst}, []string{"job-4"}},
		{"skip with descending sort", repositories.FindOptions{Skip: 1, Limit: 2, Sort: newestFirst}, []string{"job-3", "job-2"}},
		{"skip to last with descending sort", repositories.FindOptions{Skip: 4, Limit: 3, Sort: newestFirst}, []string{"job-0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs, err := docs.GetMany(ctx, bson.M{}, tt.opts)
			require.NoError(t, err)
			require.NotNil(t, jobs)
			assert.Equal(t, tt.want, titles(jobs))
		})
	}
}

func TestDocumentRepository_LimitIsCapped(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	opts := testEngineOptions()
	opts.DefaultLimit = 10
	opts.MaxLimit = 3
	engine := repositories.NewEngine(h.manager, opts, zaptest.NewLogger(t), nil)
	docs := repositories.NewDocumentRepository[domain.Job, *domain.Job](engine, h.schemas.Jobs)

	for i := 0; i < 5; i++ {
		_, err := docs.Insert(ctx, newJob(primitive.NewObjectID(), fmt.Sprintf("job-%d", i)))
		require.NoError(t, err)
	}

	for _, limit := range []int64{0, 3, 50} {
		jobs, err := docs.GetMany(ctx, bson.M{}, repositories.FindOptions{Limit: limit})
		require.NoError(t, err)
		assert.Len(t, jobs, 3, "limit %d", limit)
	}
}

func TestDocumentRepository_InvalidFindOptions(t *testing.T) {
	h := newHarness(t)
	docs := h.jobDocs()

	tests := []struct {
		name string
		opts repositories.FindOptions
	}{
		{"negative skip", repositories.FindOptions{Skip: -1}},
		{"negative limit", repositories.FindOptions{Limit: -5}},
		{"unknown sort field", repositories.FindOptions{Sort: []repositories.SortField{{Field: "salary", Direction: repositories.Ascending}}}},
		{"bad direction", repositories.FindOptions{Sort: []repositories.SortField{{Field: "title", Direction: 2}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := docs.GetMany(context.Background(), bson.M{}, tt.opts)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
	assert.Zero(t, h.srv.Calls(storetest.OpFind))
}

func TestDocumentRepository_PartialUpdate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	id := createUser(t, h, "ann@example.com", domain.RoleCandidate)
	before, err := h.repos.Users.FindByID(ctx, id)
	require.NoError(t, err)

	after, err := h.repos.Users.Update(ctx, id, map[string]any{"first_name": "Ann", "email": "Ann.Lee@Example.com"})
	require.NoError(t, err)
	require.NotNil(t, after)

	assert.Equal(t, "Ann", after.FirstName)
	assert.Equal(t, "ann.lee@example.com", after.Email)
	assert.Equal(t, before.Role, after.Role)
	assert.Equal(t, before.PasswordHash, after.PasswordHash)
	assert.True(t, before.CreatedAt.Equal(after.CreatedAt))
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt), "updated_at is stamped")
}

func TestDocumentRepository_UpdateRejectsInvalidPatch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := createUser(t, h, "ann@example.com", domain.RoleCandidate)

	tests := []struct {
		name   string
		fields map[string]any
	}{
		{"empty", map[string]any{}},
		{"id", map[string]any{"_id": primitive.NewObjectID()}},
		{"operator", map[string]any{"$set": bson.M{"role": "admin"}}},
		{"dotted path", map[string]any{"profile.name": "x"}},
		{"unknown field", map[string]any{"salary": 10}},
		{"enum violation", map[string]any{"role": "superuser"}},
		{"wrong type", map[string]any{"is_active": "yes"}},
		{"negative counter", map[string]any{"login_attempts": -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.repos.Users.Update(ctx, id, tt.fields)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
	assert.Zero(t, h.srv.Calls(storetest.OpFindOneAndUpdate))
}

func TestDocumentRepository_UpdateMany(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	docs := h.jobDocs()

	creator := primitive.NewObjectID()
	for i := 0; i < 3; i++ {
		_, err := docs.Insert(ctx, newJob(creator, fmt.Sprintf("job-%d", i)))
		require.NoError(t, err)
	}

	res, err := docs.Update(ctx, bson.M{"creator_id": creator}, map[string]any{"location": "Berlin"}, repositories.UpdateOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Modified)
	assert.Nil(t, res.Document)

	n, err := docs.Count(ctx, bson.M{"location": "Berlin"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	doc, err := docs.UpdateOne(ctx, bson.M{"_id": primitive.NewObjectID()}, map[string]any{"title": "x"})
	require.NoError(t, err)
	assert.Nil(t, doc, "no match yields no post-image")
}

// TestDocumentRepository_UpdateValidatesMergedDocument tests that a patch breaking a rule
// between fields is refused before anything is written
func TestDocumentRepository_UpdateValidatesMergedDocument(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	docs := h.jobDocs()

	id, err := docs.Insert(ctx, newJob(primitive.NewObjectID(), "Backend Engineer"))
	require.NoError(t, err)

	_, err = docs.UpdateOne(ctx, bson.M{"_id": id}, map[string]any{"salary_min": 500000})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	var ve *schema.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "salary_max", ve.Errors[0].Field)
	assert.Zero(t, h.srv.Calls(storetest.OpFindOneAndUpdate))

	_, err = docs.UpdateMany(ctx, bson.M{"_id": id}, map[string]any{"salary_min": 500000})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, h.srv.Calls(storetest.OpUpdateMany))

	jobs, err := docs.GetMany(ctx, bson.M{}, repositories.FindOptions{})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, int64(50000), jobs[0].SalaryMin)

	raised, err := docs.UpdateOne(ctx, bson.M{"_id": id}, map[string]any{"salary_min": 60000, "salary_max": 120000})
	require.NoError(t, err)
	require.NotNil(t, raised)
	assert.Equal(t, int64(60000), raised.SalaryMin)
	assert.Equal(t, int64(120000), raised.SalaryMax)
}

func TestDocumentRepository_PartialUpdateStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	docs := h.jobDocs()

	id, err := docs.Insert(ctx, newJob(primitive.NewObjectID(), "Backend Engineer"))
	require.NoError(t, err)
	other, err := docs.Insert(ctx, newJob(primitive.NewObjectID(), "Data Engineer"))
	require.NoError(t, err)
	before, err := docs.GetOne(ctx, bson.M{"_id": id})
	require.NoError(t, err)

	res, err := docs.Update(ctx, bson.M{"_id": id}, map[string]any{"status": domain.JobStatusApproved}, repositories.UpdateOptions{ReturnUpdated: true})
	require.NoError(t, err)
	require.NotNil(t, res.Document)
	assert.Equal(t, int64(1), res.Modified)

	after := res.Document
	assert.Equal(t, domain.JobStatusApproved, after.Status)
	assert.Equal(t, before.Title, after.Title)
	assert.Equal(t, before.SalaryMin, after.SalaryMin)
	assert.Equal(t, before.Skills, after.Skills)
	assert.Nil(t, after.ApprovedBy)

	n, err := docs.Count(ctx, bson.M{"status": domain.JobStatusApproved})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	untouched, err := docs.GetOne(ctx, bson.M{"_id": other})
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, untouched.Status)
}

func TestDocumentRepository_UpdateManyRefusesCrossFields(t *testing.T) {
	h := newHarness(t)
	docs := h.jobDocs()

	for _, fields := range []map[string]any{
		{"status": domain.JobStatusClosed},
		{"salary_max": 100},
		{"title": "x", "approved_by": primitive.NewObjectID()},
	} {
		_, err := docs.UpdateMany(context.Background(), bson.M{}, fields)
		assert.ErrorIs(t, err, domain.ErrValidation, "%v", fields)
	}
	assert.Zero(t, h.srv.Calls(storetest.OpUpdateMany))
}

func TestDocumentRepository_Increment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	createUser(t, h, "ann@example.com", domain.RoleCandidate)

	for i := 0; i < 2; i++ {
		n, err := h.repos.Users.IncrementLoginAttempts(ctx, "ANN@example.com")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	}
	user, err := h.repos.Users.FindByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, user.LoginAttempts)

	n, err := h.repos.Users.ResetLoginAttempts(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	user, err = h.repos.Users.FindByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Zero(t, user.LoginAttempts)

	userDocs := repositories.NewDocumentRepository[domain.User, *domain.User](h.repos.Engine, h.schemas.Users)
	for _, field := range []string{"updated_at", "karma"} {
		_, err := userDocs.Increment(ctx, bson.M{}, field, 1)
		assert.ErrorIs(t, err, domain.ErrValidation, field)
	}
}

func TestDocumentRepository_Delete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	docs := h.jobDocs()

	id, err := docs.Insert(ctx, newJob(primitive.NewObjectID(), "job"))
	require.NoError(t, err)

	_, err = docs.Delete(ctx, bson.M{})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, h.srv.Calls(storetest.OpDeleteMany))

	n, err := docs.Delete(ctx, bson.M{"_id": id})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := docs.GetOne(ctx, bson.M{"_id": id})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDocumentRepository_StoredDocumentIsValidated(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.srv.Seed(testDB, domain.CollectionJobs, bson.M{"title": "", "status": "pending"}))

	_, err := h.jobDocs().GetMany(context.Background(), bson.M{}, repositories.FindOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "stored document")
}
