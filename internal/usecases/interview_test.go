package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/otakuparshva/ai-recruitment/internal/domain"
)

func sampleQuestions() []domain.InterviewQuestion {
	return []domain.InterviewQuestion{
		{Question: "Which keyword starts a goroutine?", Options: []string{"go", "async", "spawn"}, CorrectIndex: 0, Difficulty: 1},
		{Question: "What does reading a nil map return?", Options: []string{"panic", "zero value"}, CorrectIndex: 1, Difficulty: 1.5},
		{Question: "Which package holds Context?", Options: []string{"sync", "context"}, CorrectIndex: 1, Difficulty: 0.5},
	}
}

func (f *candidateFixture) application(status domain.ApplicationStatus) *domain.Application {
	return &domain.Application{ID: primitive.NewObjectID(), JobID: f.job.ID, CandidateID: f.candidate.ID, Status: status}
}

func TestCandidateUsecase_StartInterview(t *testing.T) {
	f := newCandidateFixture(t)
	app := f.application(domain.ApplicationStatusReviewed)
	in := StartInterviewInput{JobID: f.job.ID.Hex(), CandidateID: f.candidate.ID.Hex(), Questions: sampleQuestions()}

	interviewID := primitive.NewObjectID()
	f.apps.On("FindByJobAndCandidate", mock.Anything, in.JobID, in.CandidateID).Return(app, nil)
	f.interviews.On("GetByApplication", mock.Anything, app.ID.Hex()).Return(nil, nil)
	f.interviews.On("Create", mock.Anything, mock.MatchedBy(func(iv *domain.Interview) bool {
		return iv.ApplicationID == app.ID && len(iv.Questions) == 3
	})).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Interview).ID = interviewID
		}).
		Return(interviewID.Hex(), nil)
	f.activity.On("Log", mock.Anything, activityFor(ActionStartInterview, f.candidate.ID, interviewID)).Return("log", nil)

	got, err := f.uc.StartInterview(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, interviewID, got.ID)
	f.interviews.AssertExpectations(t)
	f.activity.AssertExpectations(t)
}

func TestCandidateUsecase_StartInterviewEdgeCases(t *testing.T) {
	tests := []struct {
		name      string
		app       domain.ApplicationStatus
		noApp     bool
		existing  *domain.Interview
		questions []domain.InterviewQuestion
		wantErr   error
		resumes   bool
	}{
		{name: "no application", noApp: true, questions: sampleQuestions(), wantErr: domain.ErrNotFound},
		{name: "decided application", app: domain.ApplicationStatusRejected, questions: sampleQuestions(), wantErr: domain.ErrValidation},
		{name: "no questions", app: domain.ApplicationStatusApplied, wantErr: domain.ErrValidation},
		{
			name:     "pending interview resumes",
			app:      domain.ApplicationStatusApplied,
			existing: &domain.Interview{ID: primitive.NewObjectID(), Status: domain.InterviewStatusPending},
			resumes:  true,
		},
		{
			name:     "submitted interview is a conflict",
			app:      domain.ApplicationStatusInterviewed,
			existing: &domain.Interview{ID: primitive.NewObjectID(), Status: domain.InterviewStatusCompleted},
			wantErr:  domain.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCandidateFixture(t)
			var app *domain.Application
			if !tt.noApp {
				app = f.application(tt.app)
				f.interviews.On("GetByApplication", mock.Anything, app.ID.Hex()).Return(tt.existing, nil)
			}
			f.apps.On("FindByJobAndCandidate", mock.Anything, mock.Anything, mock.Anything).Return(app, nil)

			got, err := f.uc.StartInterview(context.Background(), StartInterviewInput{
				JobID:       f.job.ID.Hex(),
				CandidateID: f.candidate.ID.Hex(),
				Questions:   tt.questions,
			})
			if tt.resumes {
				require.NoError(t, err)
				assert.Equal(t, tt.existing, got)
			} else {
				assert.Nil(t, got)
				assert.ErrorIs(t, err, tt.wantErr)
			}
			f.interviews.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			f.activity.AssertNotCalled(t, "Log", mock.Anything, mock.Anything)
		})
	}
}

func TestCandidateUsecase_SubmitInterview(t *testing.T) {
	f := newCandidateFixture(t)
	app := f.application(domain.ApplicationStatusApplied)
	pending := &domain.Interview{
		ID:             primitive.NewObjectID(),
		ApplicationID:  app.ID,
		Questions:      sampleQuestions(),
		TotalQuestions: 3,
		Status:         domain.InterviewStatusPending,
	}

	answers := []domain.InterviewAnswer{
		{QuestionIndex: 0, Answer: " go ", IsCorrect: false, TimeTaken: 3},
		{QuestionIndex: 1, Answer: "panic", IsCorrect: true, TimeTaken: 8},
		{QuestionIndex: 2, Answer: "context", TimeTaken: 2},
	}
	graded := []domain.InterviewAnswer{
		{QuestionIndex: 0, Answer: "go", IsCorrect: true, TimeTaken: 3},
		{QuestionIndex: 1, Answer: "panic", IsCorrect: false, TimeTaken: 8},
		{QuestionIndex: 2, Answer: "context", IsCorrect: true, TimeTaken: 2},
	}
	now := time.Now().UTC()
	done := &domain.Interview{ID: pending.ID, Answers: graded, Score: 2, TotalQuestions: 3, Status: domain.InterviewStatusCompleted, CompletedAt: &now}

	f.apps.On("FindByJobAndCandidate", mock.Anything, f.job.ID.Hex(), f.candidate.ID.Hex()).Return(app, nil)
	f.interviews.On("GetByApplication", mock.Anything, app.ID.Hex()).Return(pending, nil)
	f.interviews.On("Complete", mock.Anything, pending.ID.Hex(), graded, 2).Return(done, nil)
	f.apps.On("UpdateStatus", mock.Anything, app.ID.Hex(), domain.ApplicationStatusInterviewed).
		Return(&domain.Application{ID: app.ID, Status: domain.ApplicationStatusInterviewed}, nil)
	f.activity.On("Log", mock.Anything, activityFor(ActionCompleteInterview, f.candidate.ID, pending.ID)).Return("log", nil)

	got, err := f.uc.SubmitInterview(context.Background(), SubmitInterviewInput{
		JobID:       f.job.ID.Hex(),
		CandidateID: f.candidate.ID.Hex(),
		Answers:     answers,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, got.Score, "client-reported correctness is ignored")
	f.interviews.AssertExpectations(t)
	f.apps.AssertExpectations(t)
	f.activity.AssertExpectations(t)
}

func TestCandidateUsecase_SubmitInterviewRejected(t *testing.T) {
	tests := []struct {
		name    string
		answers []domain.InterviewAnswer
	}{
		{"unknown question", []domain.InterviewAnswer{{QuestionIndex: 3, Answer: "go"}}},
		{"negative index", []domain.InterviewAnswer{{QuestionIndex: -1, Answer: "go"}}},
		{"question answered twice", []domain.InterviewAnswer{{QuestionIndex: 0, Answer: "go"}, {QuestionIndex: 0, Answer: "spawn"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCandidateFixture(t)
			app := f.application(domain.ApplicationStatusApplied)
			f.apps.On("FindByJobAndCandidate", mock.Anything, mock.Anything, mock.Anything).Return(app, nil)
			f.interviews.On("GetByApplication", mock.Anything, app.ID.Hex()).
				Return(&domain.Interview{ID: primitive.NewObjectID(), Questions: sampleQuestions(), Status: domain.InterviewStatusPending}, nil)

			_, err := f.uc.SubmitInterview(context.Background(), SubmitInterviewInput{
				JobID:       f.job.ID.Hex(),
				CandidateID: f.candidate.ID.Hex(),
				Answers:     tt.answers,
			})
			assert.ErrorIs(t, err, domain.ErrValidation)
			f.interviews.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCandidateUsecase_SubmitInterviewTwice(t *testing.T) {
	completed := &domain.Interview{ID: primitive.NewObjectID(), Status: domain.InterviewStatusCompleted}

	t.Run("already recorded", func(t *testing.T) {
		f := newCandidateFixture(t)
		app := f.application(domain.ApplicationStatusInterviewed)
		f.apps.On("FindByJobAndCandidate", mock.Anything, mock.Anything, mock.Anything).Return(app, nil)
		f.interviews.On("GetByApplication", mock.Anything, app.ID.Hex()).Return(completed, nil)

		_, err := f.uc.SubmitInterview(context.Background(), SubmitInterviewInput{JobID: f.job.ID.Hex(), CandidateID: f.candidate.ID.Hex()})
		assert.ErrorIs(t, err, domain.ErrConflict)
		f.apps.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("finishes an interrupted submission", func(t *testing.T) {
		f := newCandidateFixture(t)
		app := f.application(domain.ApplicationStatusApplied)
		f.apps.On("FindByJobAndCandidate", mock.Anything, mock.Anything, mock.Anything).Return(app, nil)
		f.interviews.On("GetByApplication", mock.Anything, app.ID.Hex()).Return(completed, nil)
		f.apps.On("UpdateStatus", mock.Anything, app.ID.Hex(), domain.ApplicationStatusInterviewed).
			Return(&domain.Application{ID: app.ID, Status: domain.ApplicationStatusInterviewed}, nil)

		got, err := f.uc.SubmitInterview(context.Background(), SubmitInterviewInput{JobID: f.job.ID.Hex(), CandidateID: f.candidate.ID.Hex()})
		require.NoError(t, err)
		assert.Equal(t, completed, got)
		f.interviews.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.apps.AssertExpectations(t)
	})
}
