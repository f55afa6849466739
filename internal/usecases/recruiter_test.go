package usecases

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap/zaptest"

	"github.com/otakuparshva/ai-recruitment/internal/domain"
)

type recruiterFixture struct {
	users    *MockUserRepository
	jobs     *MockJobRepository
	apps     *MockApplicationRepository
	activity *MockActivityLogRepository
	uc       *RecruiterUsecase

	recruiter *domain.User
	job       *domain.Job
}

func newRecruiterFixture(t *testing.T) *recruiterFixture {
	t.Helper()
	recruiter := &domain.User{ID: primitive.NewObjectID(), Role: domain.RoleRecruiter, IsActive: true}
	f := &recruiterFixture{
		users:     new(MockUserRepository),
		jobs:      new(MockJobRepository),
		apps:      new(MockApplicationRepository),
		activity:  new(MockActivityLogRepository),
		recruiter: recruiter,
		job:       &domain.Job{ID: primitive.NewObjectID(), CreatorID: recruiter.ID, Status: domain.JobStatusApproved},
	}
	f.uc = NewRecruiterUsecase(f.users, f.jobs, f.apps, f.activity, NewLimiter(2), zaptest.NewLogger(t))
	return f
}

func (f *recruiterFixture) postInput() PostJobInput {
	return PostJobInput{
		RecruiterID: f.recruiter.ID.Hex(),
		Title:       " Backend Engineer ",
		Department:  "Engineering",
		Location:    "Remote",
		Description: "Build services",
		Skills:      []domain.JobSkill{{Name: "Go"}},
		SalaryMin:   50000,
		SalaryMax:   90000,
	}
}

func TestRecruiterUsecase_PostJob(t *testing.T) {
	f := newRecruiterFixture(t)
	in := f.postInput()

	jobID := primitive.NewObjectID()
	f.users.On("FindByID", mock.Anything, in.RecruiterID).Return(f.recruiter, nil)
	f.jobs.On("Create", mock.Anything, mock.AnythingOfType("*domain.Job")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Job).ID = jobID
		}).
		Return(jobID.Hex(), nil)
	f.activity.On("Log", mock.Anything, activityFor(ActionPostJob, f.recruiter.ID, jobID)).Return("log", nil)

	job, err := f.uc.PostJob(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "Backend Engineer", job.Title)
	assert.Equal(t, domain.JobStatusPending, job.Status)
	assert.Equal(t, f.recruiter.ID, job.CreatorID)
	assert.Nil(t, job.ApprovedBy)

	f.jobs.AssertExpectations(t)
	f.activity.AssertExpectations(t)
}

func TestRecruiterUsecase_PostJobRejected(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *recruiterFixture, in *PostJobInput)
		wantErr error
	}{
		{
			name:    "malformed recruiter id",
			setup:   func(f *recruiterFixture, in *PostJobInput) { in.RecruiterID = "nope" },
			wantErr: domain.ErrInvalidIdentifier,
		},
		{
			name: "unknown recruiter",
			setup: func(f *recruiterFixture, in *PostJobInput) {
				f.users.On("FindByID", mock.Anything, mock.Anything).Return(nil, nil)
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "candidate cannot post",
			setup: func(f *recruiterFixture, in *PostJobInput) {
				f.recruiter.Role = domain.RoleCandidate
				f.users.On("FindByID", mock.Anything, mock.Anything).Return(f.recruiter, nil)
			},
			wantErr: domain.ErrValidation,
		},
		{
			name: "inactive recruiter",
			setup: func(f *recruiterFixture, in *PostJobInput) {
				f.recruiter.IsActive = false
				f.users.On("FindByID", mock.Anything, mock.Anything).Return(f.recruiter, nil)
			},
			wantErr: domain.ErrValidation,
		},
		{
			name: "store rejects the document",
			setup: func(f *recruiterFixture, in *PostJobInput) {
				f.users.On("FindByID", mock.Anything, mock.Anything).Return(f.recruiter, nil)
				f.jobs.On("Create", mock.Anything, mock.Anything).
					Return("", domain.NewError(domain.KindValidation, "insert", domain.CollectionJobs, errors.New("salary_max")))
			},
			wantErr: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRecruiterFixture(t)
			in := f.postInput()
			tt.setup(f, &in)

			job, err := f.uc.PostJob(context.Background(), in)
			assert.Nil(t, job)
			assert.ErrorIs(t, err, tt.wantErr)
			f.activity.AssertNotCalled(t, "Log", mock.Anything, mock.Anything)
		})
	}
}

func TestRecruiterUsecase_MyJobs(t *testing.T) {
	f := newRecruiterFixture(t)

	filter := domain.JobFilter{CreatorID: f.recruiter.ID.Hex()}
	page := domain.Page{Skip: 5, Limit: 5}
	f.jobs.On("Count", mock.Anything, filter).Return(int64(6), nil)
	f.jobs.On("List", mock.Anything, filter, page).Return([]*domain.Job{f.job}, nil)

	got, err := f.uc.MyJobs(context.Background(), f.recruiter.ID.Hex(), page)
	require.NoError(t, err)
	assert.Equal(t, int64(6), got.Total)
	assert.Equal(t, int64(5), got.Skip)
	require.Len(t, got.Data, 1)

	_, err = f.uc.MyJobs(context.Background(), "bad", page)
	assert.ErrorIs(t, err, domain.ErrInvalidIdentifier)
	f.jobs.AssertNumberOfCalls(t, "List", 1)
}

func TestRecruiterUsecase_JobCandidates(t *testing.T) {
	f := newRecruiterFixture(t)
	jobID := f.job.ID.Hex()
	page := domain.Page{Limit: 10}

	f.jobs.On("GetByID", mock.Anything, jobID).Return(f.job, nil)
	f.apps.On("CountByJob", mock.Anything, jobID).Return(int64(2), nil)
	f.apps.On("ListByJob", mock.Anything, jobID, page).
		Return([]*domain.Application{{MatchScore: 90}, {MatchScore: 40}}, nil)

	got, err := f.uc.JobCandidates(context.Background(), jobID, f.recruiter.ID.Hex(), page)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Total)
	assert.Len(t, got.Data, 2)

	t.Run("another recruiter's job reads as missing", func(t *testing.T) {
		_, err := f.uc.JobCandidates(context.Background(), jobID, primitive.NewObjectID().Hex(), page)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		f.apps.AssertNumberOfCalls(t, "ListByJob", 1)
	})
}

func TestRecruiterUsecase_Decisions(t *testing.T) {
	tests := []struct {
		name       string
		decide     func(uc *RecruiterUsecase, ctx context.Context, jobID, candidateID, recruiterID string) (*domain.Application, error)
		wantStatus domain.ApplicationStatus
		wantAction string
	}{
		{"accept", (*RecruiterUsecase).AcceptCandidate, domain.ApplicationStatusHired, ActionAcceptCandidate},
		{"reject", (*RecruiterUsecase).RejectCandidate, domain.ApplicationStatusRejected, ActionRejectCandidate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRecruiterFixture(t)
			jobID, candidateID := f.job.ID.Hex(), primitive.NewObjectID().Hex()
			app := &domain.Application{ID: primitive.NewObjectID(), JobID: f.job.ID, Status: domain.ApplicationStatusInterviewed}

			f.jobs.On("GetByID", mock.Anything, jobID).Return(f.job, nil)
			f.apps.On("FindByJobAndCandidate", mock.Anything, jobID, candidateID).Return(app, nil)
			f.apps.On("UpdateStatus", mock.Anything, app.ID.Hex(), tt.wantStatus).
				Return(&domain.Application{ID: app.ID, Status: tt.wantStatus}, nil)
			f.activity.On("Log", mock.Anything, activityFor(tt.wantAction, f.recruiter.ID, app.ID)).Return("log", nil)

			got, err := tt.decide(f.uc, context.Background(), jobID, candidateID, f.recruiter.ID.Hex())
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, got.Status)
			f.apps.AssertExpectations(t)
			f.activity.AssertExpectations(t)
		})
	}
}

func TestRecruiterUsecase_DecisionEdgeCases(t *testing.T) {
	tests := []struct {
		name    string
		current domain.ApplicationStatus
		missing bool
		wantErr error
	}{
		{name: "repeat is a no-op", current: domain.ApplicationStatusHired},
		{name: "reversal is a conflict", current: domain.ApplicationStatusRejected, wantErr: domain.ErrConflict},
		{name: "no application", missing: true, wantErr: domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRecruiterFixture(t)
			jobID, candidateID := f.job.ID.Hex(), primitive.NewObjectID().Hex()

			var app *domain.Application
			if !tt.missing {
				app = &domain.Application{ID: primitive.NewObjectID(), Status: tt.current}
			}
			f.jobs.On("GetByID", mock.Anything, jobID).Return(f.job, nil)
			f.apps.On("FindByJobAndCandidate", mock.Anything, jobID, candidateID).Return(app, nil)

			got, err := f.uc.AcceptCandidate(context.Background(), jobID, candidateID, f.recruiter.ID.Hex())
			if tt.wantErr != nil {
				assert.Nil(t, got)
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, app, got)
			}
			f.apps.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
			f.activity.AssertNotCalled(t, "Log", mock.Anything, mock.Anything)
		})
	}
}
