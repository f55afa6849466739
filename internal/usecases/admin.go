package usecases

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/otakuparshva/ai-recruitment/internal/domain"
)

// AdminUsecase covers job moderation, user management, the activity feed and system stats.
type AdminUsecase struct {
	users     domain.UserRepository
	jobs      domain.JobRepository
	apps      domain.ApplicationRepository
	processor domain.JobBatchProcessor
	limiter   *Limiter
	activity  activityRecorder
	logger    *zap.Logger
	now       func() time.Time
}

func NewAdminUsecase(
	users domain.UserRepository,
	jobs domain.JobRepository,
	apps domain.ApplicationRepository,
	activity domain.ActivityLogRepository,
	processor domain.JobBatchProcessor,
	limiter *Limiter,
	logger *zap.Logger,
) *AdminUsecase {
	return &AdminUsecase{
		users:     users,
		jobs:      jobs,
		apps:      apps,
		processor: processor,
		limiter:   limiter,
		activity:  activityRecorder{repo: activity, logger: logger},
		logger:    logger,
		now:       time.Now,
	}
}

// PendingJobs lists jobs awaiting moderation, newest first, with the pending total.
func (u *AdminUsecase) PendingJobs(ctx context.Context, page domain.Page) (*Paged[*domain.Job], error) {
	return u.ListJobs(ctx, domain.JobFilter{Status: domain.JobStatusPending}, page)
}

func (u *AdminUsecase) ListJobs(ctx context.Context, filter domain.JobFilter, page domain.Page) (*Paged[*domain.Job], error) {
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

// ApproveJob approves a job and records the decision in the activity log.
func (u *AdminUsecase) ApproveJob(ctx context.Context, jobID, adminID string) (*domain.Job, error) {
	return withSlot(ctx, u.limiter, func() (*domain.Job, error) {
		job, err := u.approve(ctx, jobID, adminID)
		if err == nil && job == nil {
			return nil, notFound("approve job", domain.CollectionJobs, jobID)
		}
		return job, err
	})
}

// approve returns nil, nil when the job does not exist.
func (u *AdminUsecase) approve(ctx context.Context, jobID, adminID string) (*domain.Job, error) {
	admin, err := domain.ParseID(adminID)
	if err != nil {
		return nil, err
	}
	job, err := u.jobs.Approve(ctx, jobID, adminID)
	if err != nil {
		u.logger.Error("failed to approve job", zap.String("job_id", jobID), zap.Error(err))
		return nil, err
	}
	if job == nil {
		return nil, nil
	}

	u.activity.record(ctx, admin, ActionApproveJob, "job", job.ID)
	u.logger.Info("job approved", zap.String("job_id", jobID), zap.String("admin_id", adminID))
	return job, nil
}

func (u *AdminUsecase) RejectJob(ctx context.Context, jobID, adminID string) (*domain.Job, error) {
	admin, err := domain.ParseID(adminID)
	if err != nil {
		return nil, err
	}
	return withSlot(ctx, u.limiter, func() (*domain.Job, error) {
		job, err := u.jobs.Reject(ctx, jobID)
		if err != nil {
			u.logger.Error("failed to reject job", zap.String("job_id", jobID), zap.Error(err))
			return nil, err
		}
		if job == nil {
			return nil, notFound("reject job", domain.CollectionJobs, jobID)
		}

		u.activity.record(ctx, admin, ActionRejectJob, "job", job.ID)
		u.logger.Info("job rejected", zap.String("job_id", jobID), zap.String("admin_id", adminID))
		return job, nil
	})
}

// BulkApprove approves every job on the worker pool. Results follow the order of jobIDs;
// unknown jobs are reported as skipped.
func (u *AdminUsecase) BulkApprove(ctx context.Context, adminID string, jobIDs []string) ([]*domain.BatchResult, error) {
	if _, err := domain.ParseID(adminID); err != nil {
		return nil, err
	}

	results := u.processor.Process(ctx, jobIDs, func(ctx context.Context, jobID string) (*domain.Job, error) {
		return withSlot(ctx, u.limiter, func() (*domain.Job, error) {
			return u.approve(ctx, jobID, adminID)
		})
	})

	var approved, skipped, failed int
	for _, res := range results {
		switch res.Status {
		case domain.BatchStatusSuccess:
			approved++
		case domain.BatchStatusSkipped:
			skipped++
		default:
			failed++
		}
	}
	u.logger.Info("bulk approval finished",
		zap.String("admin_id", adminID),
		zap.Int("total", len(jobIDs)),
		zap.Int("approved", approved),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)
	return results, nil
}

// ToggleUserActive flips the user's active flag and records who did it.
func (u *AdminUsecase) ToggleUserActive(ctx context.Context, userID, adminID string) (*domain.User, error) {
	admin, err := domain.ParseID(adminID)
	if err != nil {
		return nil, err
	}
	return withSlot(ctx, u.limiter, func() (*domain.User, error) {
		user, err := u.users.FindByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, notFound("toggle user", domain.CollectionUsers, userID)
		}

		updated, err := u.users.SetActive(ctx, userID, !user.IsActive)
		if err != nil {
			return nil, err
		}
		if updated == nil {
			return nil, notFound("toggle user", domain.CollectionUsers, userID)
		}

		action := ActionDeactivateUser
		if updated.IsActive {
			action = ActionActivateUser
		}
		u.activity.record(ctx, admin, action, "user", updated.ID)
		u.logger.Info("user status changed",
			zap.String("user_id", userID),
			zap.Bool("active", updated.IsActive),
			zap.String("admin_id", adminID),
		)
		return updated, nil
	})
}

func (u *AdminUsecase) ListUsers(ctx context.Context, filter domain.UserFilter, page domain.Page) (*Paged[*domain.User], error) {
	return withSlot(ctx, u.limiter, func() (*Paged[*domain.User], error) {
		total, err := u.users.Count(ctx, filter)
		if err != nil {
			return nil, err
		}
		users, err := u.users.List(ctx, filter, page)
		if err != nil {
			return nil, err
		}
		return &Paged[*domain.User]{Data: users, Total: total, Skip: page.Skip, Limit: page.Limit}, nil
	})
}

// ActivityFeed lists audit entries, latest first.
func (u *AdminUsecase) ActivityFeed(ctx context.Context, filter domain.ActivityFilter, page domain.Page) ([]*domain.ActivityLog, error) {
	return withSlot(ctx, u.limiter, func() ([]*domain.ActivityLog, error) {
		return u.activity.repo.List(ctx, filter, page)
	})
}
