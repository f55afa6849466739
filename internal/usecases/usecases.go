// Package usecases implements the admin, recruiter and candidate services on top of the domain repositories.
package usecases

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/otakuparshva/ai-recruitment/internal/domain"
)

// Activity actions recorded in the audit log.
const (
	ActionApproveJob     = "approve_job"
	ActionRejectJob      = "reject_job"
	ActionActivateUser   = "activate_user"
	ActionDeactivateUser = "deactivate_user"
	ActionApplyJob       = "apply_job"

	ActionPostJob           = "post_job"
	ActionAcceptCandidate   = "accept_candidate"
	ActionRejectCandidate   = "reject_candidate"
	ActionStartInterview    = "start_interview"
	ActionCompleteInterview = "complete_interview"
)

// Paged is one page of a listing together with the total number of matches.
type Paged[T any] struct {
	Data  []T   `json:"data"`
	Total int64 `json:"total"`
	Skip  int64 `json:"skip"`
	Limit int64 `json:"limit"`
}

// activityRecorder appends audit entries. A failed entry is logged and never fails the operation.
type activityRecorder struct {
	repo   domain.ActivityLogRepository
	logger *zap.Logger
}

func (a activityRecorder) record(ctx context.Context, userID primitive.ObjectID, action, entityType string, entityID primitive.ObjectID) {
	entry := &domain.ActivityLog{
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
	}
	if !entityID.IsZero() {
		entry.EntityID = &entityID
	}

	if _, err := a.repo.Log(ctx, entry); err != nil {
		a.logger.Warn("failed to record activity",
			zap.String("action", action),
			zap.String("user_id", userID.Hex()),
			zap.Error(err),
		)
	}
}

func notFound(op, collection, id string) error {
	return domain.NewError(domain.KindNotFound, op, collection, fmt.Errorf("%q does not exist", id))
}

// withSlot runs fn while holding a limiter slot.
func withSlot[T any](ctx context.Context, l *Limiter, fn func() (T, error)) (T, error) {
	if err := l.Acquire(ctx); err != nil {
		var zero T
		return zero, domain.NewError(domain.KindTransient, "acquire slot", "", err)
	}
	defer l.Release()
	return fn()
}
