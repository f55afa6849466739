package usecases

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/otakuparshva/ai-recruitment/internal/domain"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

var _ domain.UserRepository = (*MockUserRepository)(nil)

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) (string, error) {
	args := m.Called(ctx, user)
	return args.String(0), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	return userArg(args, 0), args.Error(1)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	return userArg(args, 0), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, id string, fields map[string]any) (*domain.User, error) {
	args := m.Called(ctx, id, fields)
	return userArg(args, 0), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, filter domain.UserFilter, page domain.Page) ([]*domain.User, error) {
	args := m.Called(ctx, filter, page)
	users, _ := args.Get(0).([]*domain.User)
	return users, args.Error(1)
}

func (m *MockUserRepository) Count(ctx context.Context, filter domain.UserFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) SetActive(ctx context.Context, id string, active bool) (*domain.User, error) {
	args := m.Called(ctx, id, active)
	return userArg(args, 0), args.Error(1)
}

func (m *MockUserRepository) IncrementLoginAttempts(ctx context.Context, email string) (int64, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) ResetLoginAttempts(ctx context.Context, email string) (int64, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) Purge(ctx context.Context, id string) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func userArg(args mock.Arguments, i int) *domain.User {
	u, _ := args.Get(i).(*domain.User)
	return u
}

// MockJobRepository is a mock implementation of JobRepository
type MockJobRepository struct {
	mock.Mock
}

var _ domain.JobRepository = (*MockJobRepository)(nil)

func (m *MockJobRepository) Create(ctx context.Context, job *domain.Job) (string, error) {
	args := m.Called(ctx, job)
	return args.String(0), args.Error(1)
}

func (m *MockJobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	args := m.Called(ctx, id)
	return jobArg(args, 0), args.Error(1)
}

func (m *MockJobRepository) List(ctx context.Context, filter domain.JobFilter, page domain.Page) ([]*domain.Job, error) {
	args := m.Called(ctx, filter, page)
	jobs, _ := args.Get(0).([]*domain.Job)
	return jobs, args.Error(1)
}

func (m *MockJobRepository) ListPending(ctx context.Context, page domain.Page) ([]*domain.Job, error) {
	args := m.Called(ctx, page)
	jobs, _ := args.Get(0).([]*domain.Job)
	return jobs, args.Error(1)
}

func (m *MockJobRepository) Count(ctx context.Context, filter domain.JobFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockJobRepository) Approve(ctx context.Context, id, adminID string) (*domain.Job, error) {
	args := m.Called(ctx, id, adminID)
	return jobArg(args, 0), args.Error(1)
}

func (m *MockJobRepository) Reject(ctx context.Context, id string) (*domain.Job, error) {
	args := m.Called(ctx, id)
	return jobArg(args, 0), args.Error(1)
}

func (m *MockJobRepository) Close(ctx context.Context, id string) (*domain.Job, error) {
	args := m.Called(ctx, id)
	return jobArg(args, 0), args.Error(1)
}

func (m *MockJobRepository) Purge(ctx context.Context, id string) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func jobArg(args mock.Arguments, i int) *domain.Job {
	j, _ := args.Get(i).(*domain.Job)
	return j
}

// MockApplicationRepository is a mock implementation of ApplicationRepository
type MockApplicationRepository struct {
	mock.Mock
}

var _ domain.ApplicationRepository = (*MockApplicationRepository)(nil)

func (m *MockApplicationRepository) Create(ctx context.Context, app *domain.Application) (string, error) {
	args := m.Called(ctx, app)
	return args.String(0), args.Error(1)
}

func (m *MockApplicationRepository) GetByID(ctx context.Context, id string) (*domain.Application, error) {
	args := m.Called(ctx, id)
	return appArg(args, 0), args.Error(1)
}

func (m *MockApplicationRepository) FindByJobAndCandidate(ctx context.Context, jobID, candidateID string) (*domain.Application, error) {
	args := m.Called(ctx, jobID, candidateID)
	return appArg(args, 0), args.Error(1)
}

func (m *MockApplicationRepository) ListByJob(ctx context.Context, jobID string, page domain.Page) ([]*domain.Application, error) {
	args := m.Called(ctx, jobID, page)
	apps, _ := args.Get(0).([]*domain.Application)
	return apps, args.Error(1)
}

func (m *MockApplicationRepository) ListByCandidate(ctx context.Context, candidateID string, page domain.Page) ([]*domain.Application, error) {
	args := m.Called(ctx, candidateID, page)
	apps, _ := args.Get(0).([]*domain.Application)
	return apps, args.Error(1)
}

func (m *MockApplicationRepository) UpdateStatus(ctx context.Context, id string, status domain.ApplicationStatus) (*domain.Application, error) {
	args := m.Called(ctx, id, status)
	return appArg(args, 0), args.Error(1)
}

func (m *MockApplicationRepository) SetMatchScore(ctx context.Context, id string, score float64) (*domain.Application, error) {
	args := m.Called(ctx, id, score)
	return appArg(args, 0), args.Error(1)
}

func (m *MockApplicationRepository) CountByJob(ctx context.Context, jobID string) (int64, error) {
	args := m.Called(ctx, jobID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockApplicationRepository) Count(ctx context.Context, filter domain.ApplicationFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func appArg(args mock.Arguments, i int) *domain.Application {
	a, _ := args.Get(i).(*domain.Application)
	return a
}

// MockInterviewRepository is a mock implementation of InterviewRepository
type MockInterviewRepository struct {
	mock.Mock
}

var _ domain.InterviewRepository = (*MockInterviewRepository)(nil)

func (m *MockInterviewRepository) Create(ctx context.Context, interview *domain.Interview) (string, error) {
	args := m.Called(ctx, interview)
	return args.String(0), args.Error(1)
}

func (m *MockInterviewRepository) GetByID(ctx context.Context, id string) (*domain.Interview, error) {
	args := m.Called(ctx, id)
	return interviewArg(args, 0), args.Error(1)
}

func (m *MockInterviewRepository) GetByApplication(ctx context.Context, applicationID string) (*domain.Interview, error) {
	args := m.Called(ctx, applicationID)
	return interviewArg(args, 0), args.Error(1)
}

func (m *MockInterviewRepository) Complete(ctx context.Context, id string, answers []domain.InterviewAnswer, score int) (*domain.Interview, error) {
	args := m.Called(ctx, id, answers, score)
	return interviewArg(args, 0), args.Error(1)
}

func (m *MockInterviewRepository) MarkReviewed(ctx context.Context, id string) (*domain.Interview, error) {
	args := m.Called(ctx, id)
	return interviewArg(args, 0), args.Error(1)
}

func interviewArg(args mock.Arguments, i int) *domain.Interview {
	iv, _ := args.Get(i).(*domain.Interview)
	return iv
}

// MockActivityLogRepository is a mock implementation of ActivityLogRepository
type MockActivityLogRepository struct {
	mock.Mock
}

var _ domain.ActivityLogRepository = (*MockActivityLogRepository)(nil)

func (m *MockActivityLogRepository) Log(ctx context.Context, entry *domain.ActivityLog) (string, error) {
	args := m.Called(ctx, entry)
	return args.String(0), args.Error(1)
}

func (m *MockActivityLogRepository) List(ctx context.Context, filter domain.ActivityFilter, page domain.Page) ([]*domain.ActivityLog, error) {
	args := m.Called(ctx, filter, page)
	logs, _ := args.Get(0).([]*domain.ActivityLog)
	return logs, args.Error(1)
}

func (m *MockActivityLogRepository) Count(ctx context.Context, filter domain.ActivityFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}
