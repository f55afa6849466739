package usecases

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/otakuparshva/ai-recruitment/internal/domain"
)

// statsConcurrency bounds the count queries one stats request runs at a time.
const statsConcurrency = 4

type RoleCounts struct {
	Candidate int64 `json:"candidate"`
	Recruiter int64 `json:"recruiter"`
	Admin     int64 `json:"admin"`
}

type UserStats struct {
	Total  int64      `json:"total"`
	Active int64      `json:"active"`
	New    int64      `json:"new"`
	ByRole RoleCounts `json:"by_role"`
}

type JobStats struct {
	Total    int64 `json:"total"`
	New      int64 `json:"new"`
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
	Closed   int64 `json:"closed"`
}

type ApplicationStatusCounts struct {
	Applied     int64 `json:"applied"`
	Reviewed    int64 `json:"reviewed"`
	Interviewed int64 `json:"interviewed"`
	Rejected    int64 `json:"rejected"`
	Hired       int64 `json:"hired"`
}

type ApplicationStats struct {
	Total    int64                   `json:"total"`
	New      int64                   `json:"new"`
	ByStatus ApplicationStatusCounts `json:"by_status"`
}

// ActivityStats counts audit entries recorded inside the window, by entity type.
type ActivityStats struct {
	Total       int64 `json:"total"`
	User        int64 `json:"user"`
	Job         int64 `json:"job"`
	Application int64 `json:"application"`
	Interview   int64 `json:"interview"`
}

// SystemStats is a snapshot of the system. "New" counts and activity cover documents
// created at or after Since; everything else is all-time.
type SystemStats struct {
	Since        time.Time        `json:"since"`
	Users        UserStats        `json:"users"`
	Jobs         JobStats         `json:"jobs"`
	Applications ApplicationStats `json:"applications"`
	Activity     ActivityStats    `json:"activity"`
}

type countQuery struct {
	dst   *int64
	count func(ctx context.Context) (int64, error)
}

// SystemStats counts users, jobs, applications and recent activity. The counts run
// concurrently and are not a consistent snapshot.
func (u *AdminUsecase) SystemStats(ctx context.Context, window time.Duration) (*SystemStats, error) {
	since := u.now().UTC().Add(-window)
	return withSlot(ctx, u.limiter, func() (*SystemStats, error) {
		s := &SystemStats{Since: since}
		queries := append(u.userCounts(&s.Users, since), u.jobCounts(&s.Jobs, since)...)
		queries = append(queries, u.applicationCounts(&s.Applications, since)...)
		queries = append(queries, u.activityCounts(&s.Activity, since)...)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(statsConcurrency)
		for _, q := range queries {
			q := q
			g.Go(func() error {
				n, err := q.count(gctx)
				if err != nil {
					return err
				}
				*q.dst = n
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return s, nil
	})
}

func (u *AdminUsecase) userCounts(s *UserStats, since time.Time) []countQuery {
	users := func(f domain.UserFilter) func(context.Context) (int64, error) {
		return func(ctx context.Context) (int64, error) { return u.users.Count(ctx, f) }
	}
	active := true
	return []countQuery{
		{&s.Total, users(domain.UserFilter{})},
		{&s.Active, users(domain.UserFilter{Active: &active})},
		{&s.New, users(domain.UserFilter{CreatedSince: since})},
		{&s.ByRole.Candidate, users(domain.UserFilter{Role: domain.RoleCandidate})},
		{&s.ByRole.Recruiter, users(domain.UserFilter{Role: domain.RoleRecruiter})},
		{&s.ByRole.Admin, users(domain.UserFilter{Role: domain.RoleAdmin})},
	}
}

func (u *AdminUsecase) jobCounts(s *JobStats, since time.Time) []countQuery {
	jobs := func(f domain.JobFilter) func(context.Context) (int64, error) {
		return func(ctx context.Context) (int64, error) { return u.jobs.Count(ctx, f) }
	}
	return []countQuery{
		{&s.Total, jobs(domain.JobFilter{})},
		{&s.New, jobs(domain.JobFilter{CreatedSince: since})},
		{&s.Pending, jobs(domain.JobFilter{Status: domain.JobStatusPending})},
		{&s.Approved, jobs(domain.JobFilter{Status: domain.JobStatusApproved})},
		{&s.Rejected, jobs(domain.JobFilter{Status: domain.JobStatusRejected})},
		{&s.Closed, jobs(domain.JobFilter{Status: domain.JobStatusClosed})},
	}
}

func (u *AdminUsecase) applicationCounts(s *ApplicationStats, since time.Time) []countQuery {
	apps := func(f domain.ApplicationFilter) func(context.Context) (int64, error) {
		return func(ctx context.Context) (int64, error) { return u.apps.Count(ctx, f) }
	}
	return []countQuery{
		{&s.Total, apps(domain.ApplicationFilter{})},
		{&s.New, apps(domain.ApplicationFilter{CreatedSince: since})},
		{&s.ByStatus.Applied, apps(domain.ApplicationFilter{Status: domain.ApplicationStatusApplied})},
		{&s.ByStatus.Reviewed, apps(domain.ApplicationFilter{Status: domain.ApplicationStatusReviewed})},
		{&s.ByStatus.Interviewed, apps(domain.ApplicationFilter{Status: domain.ApplicationStatusInterviewed})},
		{&s.ByStatus.Rejected, apps(domain.ApplicationFilter{Status: domain.ApplicationStatusRejected})},
		{&s.ByStatus.Hired, apps(domain.ApplicationFilter{Status: domain.ApplicationStatusHired})},
	}
}

func (u *AdminUsecase) activityCounts(s *ActivityStats, since time.Time) []countQuery {
	activity := func(entityType string) func(context.Context) (int64, error) {
		f := domain.ActivityFilter{EntityType: entityType, Since: since}
		return func(ctx context.Context) (int64, error) { return u.activity.repo.Count(ctx, f) }
	}
	return []countQuery{
		{&s.Total, activity("")},
		{&s.User, activity("user")},
		{&s.Job, activity("job")},
		{&s.Application, activity("application")},
		{&s.Interview, activity("interview")},
	}
}
