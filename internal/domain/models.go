package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Collection names
const (
	CollectionUsers        = "users"
	CollectionJobs         = "jobs"
	CollectionApplications = "applications"
	CollectionInterviews   = "interviews"
	CollectionActivityLogs = "activity_logs"
)

// Role represents a user's role in the system
type Role string

const (
	RoleCandidate Role = "candidate"
	RoleRecruiter Role = "recruiter"
	RoleAdmin     Role = "admin"
)

// JobStatus represents the moderation state of a job posting
type JobStatus string

const (
	JobStatusPending  JobStatus = "pending"
	JobStatusApproved JobStatus = "approved"
	JobStatusRejected JobStatus = "rejected"
	JobStatusClosed   JobStatus = "closed"
)

// ApplicationStatus represents the hiring pipeline stage of an application
type ApplicationStatus string

const (
	ApplicationStatusApplied     ApplicationStatus = "applied"
	ApplicationStatusReviewed    ApplicationStatus = "reviewed"
	ApplicationStatusInterviewed ApplicationStatus = "interviewed"
	ApplicationStatusRejected    ApplicationStatus = "rejected"
	ApplicationStatusHired       ApplicationStatus = "hired"
)

// InterviewStatus represents the state of an interview
type InterviewStatus string

const (
	InterviewStatusPending   InterviewStatus = "pending"
	InterviewStatusCompleted InterviewStatus = "completed"
	InterviewStatusReviewed  InterviewStatus = "reviewed"
)

// User represents a candidate, recruiter or administrator account
type User struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email         string             `bson:"email" json:"email" validate:"required,email,lowercase,max=254"`
	Role          Role               `bson:"role" json:"role" validate:"required,oneof=candidate recruiter admin"`
	FirstName     string             `bson:"first_name,omitempty" json:"first_name,omitempty" validate:"max=50"`
	LastName      string             `bson:"last_name,omitempty" json:"last_name,omitempty" validate:"max=50"`
	PasswordHash  string             `bson:"password_hash" json:"-" validate:"required"`
	IsActive      bool               `bson:"is_active" json:"is_active"`
	LoginAttempts int                `bson:"login_attempts" json:"login_attempts" validate:"min=0"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at" validate:"required"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at" validate:"required"`
}

// NewUser builds an active user with a normalized email.
func NewUser(email string, role Role, passwordHash string) *User {
	return &User{
		Email:        NormalizeEmail(email),
		Role:         role,
		PasswordHash: passwordHash,
		IsActive:     true,
	}
}

// JobSkill is a skill requirement attached to a job posting
type JobSkill struct {
	Name        string `bson:"name" json:"name" validate:"required,max=100"`
	Category    string `bson:"category,omitempty" json:"category,omitempty" validate:"max=50"`
	Proficiency string `bson:"proficiency,omitempty" json:"proficiency,omitempty" validate:"omitempty,oneof=basic intermediate advanced expert"`
}

// Job represents a job posting
type Job struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title       string              `bson:"title" json:"title" validate:"required,max=100"`
	Department  string              `bson:"department" json:"department" validate:"required,max=100"`
	Location    string              `bson:"location" json:"location" validate:"required,max=100"`
	Description string              `bson:"description" json:"description" validate:"required"`
	Skills      []JobSkill          `bson:"skills" json:"skills" validate:"dive"`
	SalaryMin   int64               `bson:"salary_min" json:"salary_min" validate:"gt=0"`
	SalaryMax   int64               `bson:"salary_max" json:"salary_max" validate:"gt=0,gtefield=SalaryMin"`
	CreatorID   primitive.ObjectID  `bson:"creator_id" json:"creator_id" validate:"required"`
	Status      JobStatus           `bson:"status" json:"status" validate:"required,oneof=pending approved rejected closed"`
	CreatedAt   time.Time           `bson:"created_at" json:"created_at" validate:"required"`
	UpdatedAt   time.Time           `bson:"updated_at" json:"updated_at" validate:"required"`
	ApprovedAt  *time.Time          `bson:"approved_at,omitempty" json:"approved_at,omitempty"`
	ApprovedBy  *primitive.ObjectID `bson:"approved_by,omitempty" json:"approved_by,omitempty"`
}

// Application represents a candidate's application to a job
type Application struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	JobID       primitive.ObjectID `bson:"job_id" json:"job_id" validate:"required"`
	CandidateID primitive.ObjectID `bson:"candidate_id" json:"candidate_id" validate:"required"`
	ResumeKey   string             `bson:"resume_s3_key" json:"resume_key" validate:"required"`
	ResumeText  string             `bson:"resume_text" json:"resume_text"`
	MatchScore  float64            `bson:"match_score" json:"match_score" validate:"gte=0,lte=100"`
	Status      ApplicationStatus  `bson:"status" json:"status" validate:"required,oneof=applied reviewed interviewed rejected hired"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at" validate:"required"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at" validate:"required"`
}

// InterviewQuestion is a multiple-choice question
type InterviewQuestion struct {
	Question     string   `bson:"question" json:"question" validate:"required"`
	Options      []string `bson:"options" json:"options" validate:"min=2,max=5,dive,required"`
	CorrectIndex int      `bson:"correct_index" json:"correct_index" validate:"min=0"`
	Difficulty   float64  `bson:"difficulty" json:"difficulty" validate:"gt=0,lte=3"`
	SkillTested  string   `bson:"skill_tested,omitempty" json:"skill_tested,omitempty"`
}

// InterviewAnswer records the candidate's answer to one question
type InterviewAnswer struct {
	QuestionIndex int     `bson:"question_index" json:"question_index" validate:"min=0"`
	Answer        string  `bson:"answer" json:"answer"`
	IsCorrect     bool    `bson:"is_correct" json:"is_correct"`
	TimeTaken     float64 `bson:"time_taken" json:"time_taken" validate:"min=0"` // seconds
}

// Interview represents an automated screening interview for an application
type Interview struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ApplicationID  primitive.ObjectID  `bson:"application_id" json:"application_id" validate:"required"`
	Questions      []InterviewQuestion `bson:"questions" json:"questions" validate:"dive"`
	Answers        []InterviewAnswer   `bson:"answers" json:"answers" validate:"dive"`
	Score          int                 `bson:"score" json:"score" validate:"min=0"`
	TotalQuestions int                 `bson:"total_questions" json:"total_questions" validate:"min=0"`
	Status         InterviewStatus     `bson:"status" json:"status" validate:"required,oneof=pending completed reviewed"`
	CreatedAt      time.Time           `bson:"created_at" json:"created_at" validate:"required"`
	CompletedAt    *time.Time          `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}

// ActivityLog is an append-only audit record
type ActivityLog struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID  `bson:"user_id" json:"user_id" validate:"required"`
	Action     string              `bson:"action" json:"action" validate:"required,max=100"`
	EntityType string              `bson:"entity_type,omitempty" json:"entity_type,omitempty" validate:"max=50"`
	EntityID   *primitive.ObjectID `bson:"entity_id,omitempty" json:"entity_id,omitempty"`
	Timestamp  time.Time           `bson:"timestamp" json:"timestamp" validate:"required"`
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// storeTime truncates to the store's millisecond precision so that values read back compare equal.
func storeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func (u *User) GetID() primitive.ObjectID   { return u.ID }
func (u *User) SetID(id primitive.ObjectID) { u.ID = id }

// BeforeInsert fills timestamps and normalizes the email.
func (u *User) BeforeInsert(now time.Time) {
	u.Email = NormalizeEmail(u.Email)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = storeTime(now)
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}
}

func (j *Job) GetID() primitive.ObjectID   { return j.ID }
func (j *Job) SetID(id primitive.ObjectID) { j.ID = id }

// BeforeInsert fills timestamps and the default status.
func (j *Job) BeforeInsert(now time.Time) {
	if j.Status == "" {
		j.Status = JobStatusPending
	}
	if j.Skills == nil {
		j.Skills = []JobSkill{}
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = storeTime(now)
	}
	if j.UpdatedAt.IsZero() {
		j.UpdatedAt = j.CreatedAt
	}
}

func (a *Application) GetID() primitive.ObjectID   { return a.ID }
func (a *Application) SetID(id primitive.ObjectID) { a.ID = id }

// BeforeInsert fills timestamps and the default status.
func (a *Application) BeforeInsert(now time.Time) {
	if a.Status == "" {
		a.Status = ApplicationStatusApplied
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = storeTime(now)
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}
}

func (i *Interview) GetID() primitive.ObjectID   { return i.ID }
func (i *Interview) SetID(id primitive.ObjectID) { i.ID = id }

// BeforeInsert fills the creation time, default status and question count.
func (i *Interview) BeforeInsert(now time.Time) {
	if i.Status == "" {
		i.Status = InterviewStatusPending
	}
	if i.Questions == nil {
		i.Questions = []InterviewQuestion{}
	}
	if i.Answers == nil {
		i.Answers = []InterviewAnswer{}
	}
	if i.TotalQuestions == 0 {
		i.TotalQuestions = len(i.Questions)
	}
	if i.CreatedAt.IsZero() {
		i.CreatedAt = storeTime(now)
	}
}

func (l *ActivityLog) GetID() primitive.ObjectID   { return l.ID }
func (l *ActivityLog) SetID(id primitive.ObjectID) { l.ID = id }

// BeforeInsert stamps the log entry.
func (l *ActivityLog) BeforeInsert(now time.Time) {
	if l.Timestamp.IsZero() {
		l.Timestamp = storeTime(now)
	}
}
