package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/otakuparshva/ai-recruitment/internal/domain"
)

// maxResumeText is the number of characters of extracted resume text stored with an application.
const maxResumeText = 2000

// ApplyInput is a candidate's application for a job.
type ApplyInput struct {
	JobID       string `json:"-"`
	CandidateID string `json:"candidate_id"`
	ResumeKey   string `json:"resume_key"`
	ResumeText  string `json:"resume_text"`
}

// StartInterviewInput opens a screening interview for the candidate's application to a job.
type StartInterviewInput struct {
	JobID       string                     `json:"-"`
	CandidateID string                     `json:"candidate_id"`
	Questions   []domain.InterviewQuestion `json:"questions"`
}

// SubmitInterviewInput carries the candidate's answers. Correctness is graded against the stored questions.
type SubmitInterviewInput struct {
	JobID       string                   `json:"-"`
	CandidateID string                   `json:"candidate_id"`
	Answers     []domain.InterviewAnswer `json:"answers"`
}

// CandidateUsecase covers the candidate side of the application flow.
type CandidateUsecase struct {
	users      domain.UserRepository
	jobs       domain.JobRepository
	apps       domain.ApplicationRepository
	interviews domain.InterviewRepository
	limiter    *Limiter
	activity   activityRecorder
	logger     *zap.Logger
}

func NewCandidateUsecase(
	users domain.UserRepository,
	jobs domain.JobRepository,
	apps domain.ApplicationRepository,
	interviews domain.InterviewRepository,
	activity domain.ActivityLogRepository,
	limiter *Limiter,
	logger *zap.Logger,
) *CandidateUsecase {
	return &CandidateUsecase{
		users:      users,
		jobs:       jobs,
		apps:       apps,
		interviews: interviews,
		limiter:    limiter,
		activity:   activityRecorder{repo: activity, logger: logger},
		logger:     logger,
	}
}

// Apply files an application for an approved job. A second application by the same
// candidate for the same job is a conflict.
func (u *CandidateUsecase) Apply(ctx context.Context, in ApplyInput) (*domain.Application, error) {
	const op = "apply"
	return withSlot(ctx, u.limiter, func() (*domain.Application, error) {
		job, err := u.jobs.GetByID(ctx, in.JobID)
		if err != nil {
			return nil, err
		}
		if job == nil {
			return nil, notFound(op, domain.CollectionJobs, in.JobID)
		}
		if job.Status != domain.JobStatusApproved {
			return nil, domain.NewError(domain.KindValidation, op, domain.CollectionJobs, errors.New("job is not open for applications"))
		}

		candidate, err := u.users.FindByID(ctx, in.CandidateID)
		if err != nil {
			return nil, err
		}
		if candidate == nil {
			return nil, notFound(op, domain.CollectionUsers, in.CandidateID)
		}
		if candidate.Role != domain.RoleCandidate || !candidate.IsActive {
			return nil, domain.NewError(domain.KindValidation, op, domain.CollectionUsers, errors.New("only active candidates can apply"))
		}

		existing, err := u.apps.FindByJobAndCandidate(ctx, in.JobID, in.CandidateID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, domain.NewError(domain.KindConflict, op, domain.CollectionApplications, errors.New("already applied for this job"))
		}

		app := &domain.Application{
			JobID:       job.ID,
			CandidateID: candidate.ID,
			ResumeKey:   strings.TrimSpace(in.ResumeKey),
			ResumeText:  truncate(in.ResumeText, maxResumeText),
		}
		if _, err := u.apps.Create(ctx, app); err != nil {
			return nil, err
		}

		u.activity.record(ctx, candidate.ID, ActionApplyJob, "application", app.ID)
		u.logger.Info("application submitted",
			zap.String("job_id", in.JobID),
			zap.String("candidate_id", in.CandidateID),
		)
		return app, nil
	})
}

// MyApplications lists the candidate's applications, newest first.
func (u *CandidateUsecase) MyApplications(ctx context.Context, candidateID string, page domain.Page) ([]*domain.Application, error) {
	return withSlot(ctx, u.limiter, func() ([]*domain.Application, error) {
		return u.apps.ListByCandidate(ctx, candidateID, page)
	})
}

// StartInterview opens the interview for the candidate's application. An interview that is still
// pending is returned as is so that an interrupted session can resume.
func (u *CandidateUsecase) StartInterview(ctx context.Context, in StartInterviewInput) (*domain.Interview, error) {
	const op = "start interview"
	return withSlot(ctx, u.limiter, func() (*domain.Interview, error) {
		app, err := u.openApplication(ctx, op, in.JobID, in.CandidateID)
		if err != nil {
			return nil, err
		}

		existing, err := u.interviews.GetByApplication(ctx, app.ID.Hex())
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if existing.Status == domain.InterviewStatusPending {
				return existing, nil
			}
			return nil, domain.NewError(domain.KindConflict, op, domain.CollectionInterviews, errors.New("interview already submitted"))
		}
		if len(in.Questions) == 0 {
			return nil, domain.NewError(domain.KindValidation, op, domain.CollectionInterviews, errors.New("interview needs at least one question"))
		}

		interview := &domain.Interview{ApplicationID: app.ID, Questions: in.Questions}
		if _, err := u.interviews.Create(ctx, interview); err != nil {
			return nil, err
		}

		u.activity.record(ctx, app.CandidateID, ActionStartInterview, "interview", interview.ID)
		u.logger.Info("interview started",
			zap.String("application_id", app.ID.Hex()),
			zap.Int("questions", len(in.Questions)),
		)
		return interview, nil
	})
}

// SubmitInterview grades and completes the pending interview and moves the application to interviewed.
func (u *CandidateUsecase) SubmitInterview(ctx context.Context, in SubmitInterviewInput) (*domain.Interview, error) {
	const op = "submit interview"
	return withSlot(ctx, u.limiter, func() (*domain.Interview, error) {
		app, err := u.openApplication(ctx, op, in.JobID, in.CandidateID)
		if err != nil {
			return nil, err
		}

		interview, err := u.interviews.GetByApplication(ctx, app.ID.Hex())
		if err != nil {
			return nil, err
		}
		if interview == nil {
			return nil, notFound(op, domain.CollectionInterviews, app.ID.Hex())
		}
		if interview.Status != domain.InterviewStatusPending {
			if app.Status == domain.ApplicationStatusInterviewed {
				return nil, domain.NewError(domain.KindConflict, op, domain.CollectionInterviews, errors.New("interview already submitted"))
			}
			// an earlier submission completed the interview but not the application
			return interview, u.markInterviewed(ctx, app)
		}

		answers, score, err := grade(interview.Questions, in.Answers)
		if err != nil {
			return nil, domain.NewError(domain.KindValidation, op, domain.CollectionInterviews, err)
		}
		done, err := u.interviews.Complete(ctx, interview.ID.Hex(), answers, score)
		if err != nil {
			return nil, err
		}
		if done == nil {
			return nil, notFound(op, domain.CollectionInterviews, interview.ID.Hex())
		}
		if err := u.markInterviewed(ctx, app); err != nil {
			return nil, err
		}

		u.activity.record(ctx, app.CandidateID, ActionCompleteInterview, "interview", done.ID)
		u.logger.Info("interview submitted",
			zap.String("application_id", app.ID.Hex()),
			zap.Int("score", score),
			zap.Int("total", done.TotalQuestions),
		)
		return done, nil
	})
}

// openApplication loads the candidate's application and refuses one that was already decided.
func (u *CandidateUsecase) openApplication(ctx context.Context, op, jobID, candidateID string) (*domain.Application, error) {
	app, err := u.apps.FindByJobAndCandidate(ctx, jobID, candidateID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, notFound(op, domain.CollectionApplications, jobID)
	}
	switch app.Status {
	case domain.ApplicationStatusHired, domain.ApplicationStatusRejected:
		return nil, domain.NewError(domain.KindValidation, op, domain.CollectionApplications, fmt.Errorf("application is already %s", app.Status))
	}
	return app, nil
}

func (u *CandidateUsecase) markInterviewed(ctx context.Context, app *domain.Application) error {
	if _, err := u.apps.UpdateStatus(ctx, app.ID.Hex(), domain.ApplicationStatusInterviewed); err != nil {
		u.logger.Error("failed to mark application interviewed",
			zap.String("application_id", app.ID.Hex()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// grade marks each answer against its question and returns the number answered correctly.
func grade(questions []domain.InterviewQuestion, answers []domain.InterviewAnswer) ([]domain.InterviewAnswer, int, error) {
	graded := make([]domain.InterviewAnswer, 0, len(answers))
	seen := make(map[int]bool, len(answers))
	score := 0
	for _, a := range answers {
		if a.QuestionIndex < 0 || a.QuestionIndex >= len(questions) {
			return nil, 0, fmt.Errorf("question_index %d out of range for %d questions", a.QuestionIndex, len(questions))
		}
		if seen[a.QuestionIndex] {
			return nil, 0, fmt.Errorf("question %d answered twice", a.QuestionIndex)
		}
		seen[a.QuestionIndex] = true

		q := questions[a.QuestionIndex]
		a.Answer = strings.TrimSpace(a.Answer)
		a.IsCorrect = q.CorrectIndex < len(q.Options) && a.Answer == q.Options[q.CorrectIndex]
		if a.IsCorrect {
			score++
		}
		graded = append(graded, a)
	}
	return graded, score, nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
