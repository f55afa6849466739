package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/otakuparshva/ai-recruitment/internal/domain"
)

func TestAdminUsecase_SystemStats(t *testing.T) {
	f := newAdminFixture(t)
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	f.uc.now = func() time.Time { return now }
	since := now.Add(-7 * 24 * time.Hour)

	active := true
	f.users.On("Count", mock.Anything, domain.UserFilter{}).Return(int64(10), nil)
	f.users.On("Count", mock.Anything, domain.UserFilter{Active: &active}).Return(int64(8), nil)
	f.users.On("Count", mock.Anything, domain.UserFilter{CreatedSince: since}).Return(int64(3), nil)
	f.users.On("Count", mock.Anything, domain.UserFilter{Role: domain.RoleCandidate}).Return(int64(7), nil)
	f.users.On("Count", mock.Anything, domain.UserFilter{Role: domain.RoleRecruiter}).Return(int64(2), nil)
	f.users.On("Count", mock.Anything, domain.UserFilter{Role: domain.RoleAdmin}).Return(int64(1), nil)

	f.jobs.On("Count", mock.Anything, domain.JobFilter{}).Return(int64(6), nil)
	f.jobs.On("Count", mock.Anything, domain.JobFilter{CreatedSince: since}).Return(int64(2), nil)
	f.jobs.On("Count", mock.Anything, domain.JobFilter{Status: domain.JobStatusPending}).Return(int64(1), nil)
	f.jobs.On("Count", mock.Anything, domain.JobFilter{Status: domain.JobStatusApproved}).Return(int64(4), nil)
	f.jobs.On("Count", mock.Anything, mock.Anything).Return(int64(0), nil)

	f.apps.On("Count", mock.Anything, domain.ApplicationFilter{}).Return(int64(12), nil)
	f.apps.On("Count", mock.Anything, domain.ApplicationFilter{CreatedSince: since}).Return(int64(5), nil)
	f.apps.On("Count", mock.Anything, domain.ApplicationFilter{Status: domain.ApplicationStatusHired}).Return(int64(2), nil)
	f.apps.On("Count", mock.Anything, mock.Anything).Return(int64(1), nil)

	f.activity.On("Count", mock.Anything, domain.ActivityFilter{Since: since}).Return(int64(30), nil)
	f.activity.On("Count", mock.Anything, domain.ActivityFilter{EntityType: "job", Since: since}).Return(int64(9), nil)
	f.activity.On("Count", mock.Anything, mock.Anything).Return(int64(4), nil)

	got, err := f.uc.SystemStats(context.Background(), 7*24*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, since, got.Since)
	assert.Equal(t, UserStats{Total: 10, Active: 8, New: 3, ByRole: RoleCounts{Candidate: 7, Recruiter: 2, Admin: 1}}, got.Users)
	assert.Equal(t, JobStats{Total: 6, New: 2, Pending: 1, Approved: 4}, got.Jobs)
	assert.Equal(t, int64(12), got.Applications.Total)
	assert.Equal(t, int64(5), got.Applications.New)
	assert.Equal(t, int64(2), got.Applications.ByStatus.Hired)
	assert.Equal(t, int64(1), got.Applications.ByStatus.Applied)
	assert.Equal(t, ActivityStats{Total: 30, User: 4, Job: 9, Application: 4, Interview: 4}, got.Activity)
}

func TestAdminUsecase_SystemStatsFailure(t *testing.T) {
	f := newAdminFixture(t)

	storeErr := domain.NewError(domain.KindTransient, "count", domain.CollectionJobs, errors.New("timeout"))
	f.users.On("Count", mock.Anything, mock.Anything).Return(int64(1), nil)
	f.jobs.On("Count", mock.Anything, mock.Anything).Return(int64(0), storeErr)
	f.apps.On("Count", mock.Anything, mock.Anything).Return(int64(1), nil)
	f.activity.On("Count", mock.Anything, mock.Anything).Return(int64(1), nil)

	got, err := f.uc.SystemStats(context.Background(), time.Hour)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, domain.ErrTransient)
}
