package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/otakuparshva/ai-recruitment/internal/domain"
)

// PostJobInput is a recruiter's new job posting.
type PostJobInput struct {
	RecruiterID string            `json:"recruiter_id"`
	Title       string            `json:"title"`
	Department  string            `json:"department"`
	Location    string            `json:"location"`
	Description string            `json:"description"`
	Skills      []domain.JobSkill `json:"skills"`
	SalaryMin   int64             `json:"salary_min"`
	SalaryMax   int64             `json:"salary_max"`
}

// RecruiterUsecase covers posting jobs and deciding on their applicants.
type RecruiterUsecase struct {
	users    domain.UserRepository
	jobs     domain.JobRepository
	apps     domain.ApplicationRepository
	limiter  *Limiter
	activity activityRecorder
	logger   *zap.Logger
}

func NewRecruiterUsecase(
	users domain.UserRepository,
	jobs domain.JobRepository,
	apps domain.ApplicationRepository,
	activity domain.ActivityLogRepository,
	limiter *Limiter,
	logger *zap.Logger,
) *RecruiterUsecase {
	return &RecruiterUsecase{
		users:    users,
		jobs:     jobs,
		apps:     apps,
		limiter:  limiter,
		activity: activityRecorder{repo: activity, logger: logger},
		logger:   logger,
	}
}

// PostJob creates a job awaiting moderation on behalf of an active recruiter.
func (u *RecruiterUsecase) PostJob(ctx context.Context, in PostJobInput) (*domain.Job, error) {
	const op = "post job"
	return withSlot(ctx, u.limiter, func() (*domain.Job, error) {
		recruiter, err := u.activeRecruiter(ctx, op, in.RecruiterID)
		if err != nil {
			return nil, err
		}

		job := &domain.Job{
			Title:       strings.TrimSpace(in.Title),
			Department:  strings.TrimSpace(in.Department),
			Location:    strings.TrimSpace(in.Location),
			Description: strings.TrimSpace(in.Description),
			Skills:      in.Skills,
			SalaryMin:   in.SalaryMin,
			SalaryMax:   in.SalaryMax,
			CreatorID:   recruiter.ID,
			Status:      domain.JobStatusPending,
		}
		if _, err := u.jobs.Create(ctx, job); err != nil {
			return nil, err
		}

		u.activity.record(ctx, recruiter.ID, ActionPostJob, "job", job.ID)
		u.logger.Info("job posted",
			zap.String("job_id", job.ID.Hex()),
			zap.String("recruiter_id", in.RecruiterID),
		)
		return job, nil
	})
}

// MyJobs lists the recruiter's postings in every status, newest first.
func (u *RecruiterUsecase) MyJobs(ctx context.Context, recruiterID string, page domain.Page) (*Paged[*domain.Job], error) {
	if _, err := domain.ParseID(recruiterID); err != nil {
		return nil, err
	}
	filter := domain.JobFilter{CreatorID: recruiterID}
	return withSlot(ctx, u.limiter, func() (*Paged[*domain.Job], error) {
		total, err := u.jobs.Count(ctx, filter)
		if err != nil {
			return nil, err
		}
		jobs, err := u.jobs.List(ctx, filter, page)
		if err != nil {
			return nil, err
		}
		return &Paged[*domain.Job]{Data: jobs, Total: total, Skip: page.Skip, Limit: page.Limit}, nil
	})
}

// JobCandidates lists the applications to one of the recruiter's jobs, best match first.
func (u *RecruiterUsecase) JobCandidates(ctx context.Context, jobID, recruiterID string, page domain.Page) (*Paged[*domain.Application], error) {
	const op = "job candidates"
	return withSlot(ctx, u.limiter, func() (*Paged[*domain.Application], error) {
		if _, err := u.ownedJob(ctx, op, jobID, recruiterID); err != nil {
			return nil, err
		}
		total, err := u.apps.CountByJob(ctx, jobID)
		if err != nil {
			return nil, err
		}
		apps, err := u.apps.ListByJob(ctx, jobID, page)
		if err != nil {
			return nil, err
		}
		return &Paged[*domain.Application]{Data: apps, Total: total, Skip: page.Skip, Limit: page.Limit}, nil
	})
}

// AcceptCandidate marks the candidate's application hired.
func (u *RecruiterUsecase) AcceptCandidate(ctx context.Context, jobID, candidateID, recruiterID string) (*domain.Application, error) {
	return u.decide(ctx, "accept candidate", jobID, candidateID, recruiterID, domain.ApplicationStatusHired, ActionAcceptCandidate)
}

// RejectCandidate marks the candidate's application rejected.
func (u *RecruiterUsecase) RejectCandidate(ctx context.Context, jobID, candidateID, recruiterID string) (*domain.Application, error) {
	return u.decide(ctx, "reject candidate", jobID, candidateID, recruiterID, domain.ApplicationStatusRejected, ActionRejectCandidate)
}

// decide moves an application to a final status. Repeating the same decision is a no-op;
// reversing one is a conflict.
func (u *RecruiterUsecase) decide(ctx context.Context, op, jobID, candidateID, recruiterID string, status domain.ApplicationStatus, action string) (*domain.Application, error) {
	return withSlot(ctx, u.limiter, func() (*domain.Application, error) {
		job, err := u.ownedJob(ctx, op, jobID, recruiterID)
		if err != nil {
			return nil, err
		}

		app, err := u.apps.FindByJobAndCandidate(ctx, jobID, candidateID)
		if err != nil {
			return nil, err
		}
		if app == nil {
			return nil, notFound(op, domain.CollectionApplications, candidateID)
		}
		switch app.Status {
		case status:
			return app, nil
		case domain.ApplicationStatusHired, domain.ApplicationStatusRejected:
			return nil, domain.NewError(domain.KindConflict, op, domain.CollectionApplications,
				fmt.Errorf("application is already %s", app.Status))
		}

		updated, err := u.apps.UpdateStatus(ctx, app.ID.Hex(), status)
		if err != nil {
			u.logger.Error("failed to update application status",
				zap.String("application_id", app.ID.Hex()),
				zap.String("status", string(status)),
				zap.Error(err),
			)
			return nil, err
		}
		if updated == nil {
			return nil, notFound(op, domain.CollectionApplications, app.ID.Hex())
		}

		u.activity.record(ctx, job.CreatorID, action, "application", updated.ID)
		u.logger.Info("candidate decision recorded",
			zap.String("job_id", jobID),
			zap.String("candidate_id", candidateID),
			zap.String("status", string(status)),
		)
		return updated, nil
	})
}

func (u *RecruiterUsecase) activeRecruiter(ctx context.Context, op, recruiterID string) (*domain.User, error) {
	if _, err := domain.ParseID(recruiterID); err != nil {
		return nil, err
	}
	recruiter, err := u.users.FindByID(ctx, recruiterID)
	if err != nil {
		return nil, err
	}
	if recruiter == nil {
		return nil, notFound(op, domain.CollectionUsers, recruiterID)
	}
	if recruiter.Role != domain.RoleRecruiter || !recruiter.IsActive {
		return nil, domain.NewError(domain.KindValidation, op, domain.CollectionUsers, errors.New("only active recruiters can manage jobs"))
	}
	return recruiter, nil
}

// ownedJob loads a job posted by recruiterID. Another recruiter's job reads as missing.
func (u *RecruiterUsecase) ownedJob(ctx context.Context, op, jobID, recruiterID string) (*domain.Job, error) {
	recruiter, err := domain.ParseID(recruiterID)
	if err != nil {
		return nil, err
	}
	job, err := u.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil || job.CreatorID != recruiter {
		return nil, notFound(op, domain.CollectionJobs, jobID)
	}
	return job, nil
}
