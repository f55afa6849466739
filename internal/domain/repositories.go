package domain

import (
	"context"
	"time"
)

// Page bounds a listing. Limit 0 means the repository default.
type Page struct {
	Skip  int64
	Limit int64
}

// UserFilter narrows user listings. Zero values mean "any".
type UserFilter struct {
	Role   Role
	Active *bool
	// CreatedSince keeps users created at or after the instant.
	CreatedSince time.Time
}

// JobFilter narrows job listings. Zero values mean "any".
type JobFilter struct {
	Status       JobStatus
	Department   string
	CreatorID    string
	CreatedSince time.Time
}

// ApplicationFilter narrows application counts. Zero values mean "any".
type ApplicationFilter struct {
	JobID        string
	CandidateID  string
	Status       ApplicationStatus
	CreatedSince time.Time
}

// ActivityFilter narrows activity log listings. Zero values mean "any".
type ActivityFilter struct {
	UserID     string
	Action     string
	EntityType string
	Since      time.Time
}

// UserRepository defines persistence operations for users
type UserRepository interface {
	// Create inserts a user and returns its hex id; a duplicate email yields ErrConflict
	Create(ctx context.Context, user *User) (string, error)

	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)

	// Update applies a partial field set and returns the post-image
	Update(ctx context.Context, id string, fields map[string]any) (*User, error)

	List(ctx context.Context, filter UserFilter, page Page) ([]*User, error)
	Count(ctx context.Context, filter UserFilter) (int64, error)
	SetActive(ctx context.Context, id string, active bool) (*User, error)
	IncrementLoginAttempts(ctx context.Context, email string) (int64, error)
	ResetLoginAttempts(ctx context.Context, email string) (int64, error)
	Purge(ctx context.Context, id string) (int64, error)
}

// JobRepository defines persistence operations for job postings
type JobRepository interface {
	Create(ctx context.Context, job *Job) (string, error)
	GetByID(ctx context.Context, id string) (*Job, error)

	// List returns jobs newest first
	List(ctx context.Context, filter JobFilter, page Page) ([]*Job, error)
	ListPending(ctx context.Context, page Page) ([]*Job, error)
	Count(ctx context.Context, filter JobFilter) (int64, error)

	// Approve moves a job to approved and records the approver; nil when the job does not exist
	Approve(ctx context.Context, id, adminID string) (*Job, error)
	Reject(ctx context.Context, id string) (*Job, error)
	Close(ctx context.Context, id string) (*Job, error)
	Purge(ctx context.Context, id string) (int64, error)
}

// ApplicationRepository defines persistence operations for job applications
type ApplicationRepository interface {
	Create(ctx context.Context, app *Application) (string, error)
	GetByID(ctx context.Context, id string) (*Application, error)
	FindByJobAndCandidate(ctx context.Context, jobID, candidateID string) (*Application, error)
	ListByJob(ctx context.Context, jobID string, page Page) ([]*Application, error)
	ListByCandidate(ctx context.Context, candidateID string, page Page) ([]*Application, error)
	UpdateStatus(ctx context.Context, id string, status ApplicationStatus) (*Application, error)
	SetMatchScore(ctx context.Context, id string, score float64) (*Application, error)
	CountByJob(ctx context.Context, jobID string) (int64, error)

	// Count returns the number of applications matching filter; malformed ids count nothing
	Count(ctx context.Context, filter ApplicationFilter) (int64, error)
}

// InterviewRepository defines persistence operations for interviews
type InterviewRepository interface {
	Create(ctx context.Context, interview *Interview) (string, error)
	GetByID(ctx context.Context, id string) (*Interview, error)
	GetByApplication(ctx context.Context, applicationID string) (*Interview, error)
	Complete(ctx context.Context, id string, answers []InterviewAnswer, score int) (*Interview, error)
	MarkReviewed(ctx context.Context, id string) (*Interview, error)
}

// ActivityLogRepository is append-only
type ActivityLogRepository interface {
	Log(ctx context.Context, entry *ActivityLog) (string, error)

	// List returns entries newest first; a malformed user id yields an empty list
	List(ctx context.Context, filter ActivityFilter, page Page) ([]*ActivityLog, error)
	Count(ctx context.Context, filter ActivityFilter) (int64, error)
}

// HealthStatus is a point-in-time view of the store connection
type HealthStatus struct {
	Healthy             bool      `json:"healthy"`
	LastCheck           time.Time `json:"last_check"`
	LastError           string    `json:"last_error,omitempty"`
	ConsecutiveFailures int64     `json:"consecutive_failures"`
	Reconnects          int64     `json:"reconnects"`
}

// HealthChecker defines the interface for health checks
type HealthChecker interface {
	// CheckConnection pings the store without reconnecting
	CheckConnection(ctx context.Context) error

	// Health returns the last recorded status
	Health() HealthStatus
}
