package domain

import (
	"embed"
	"errors"
	"fmt"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// PatchSchema returns the JSON Schema describing the fields a partial update of the collection may set.
func PatchSchema(collection string) ([]byte, error) {
	data, err := schemaFS.ReadFile("schemas/" + collection + ".json")
	if err != nil {
		return nil, fmt.Errorf("no schema for collection %s: %w", collection, err)
	}
	return data, nil
}

// CheckJobApproval enforces that an approver is recorded only on jobs that went through approval,
// together with the approval time. An approved job without an approver is allowed.
func CheckJobApproval(j *Job) error {
	switch {
	case j.ApprovedBy != nil && j.ApprovedAt == nil:
		return errors.New("approved_by requires approved_at")
	case j.Status == JobStatusPending && j.ApprovedBy != nil:
		return errors.New("pending job cannot have an approver")
	}
	return nil
}

// CheckInterviewQuestions verifies every correct_index points at an existing option.
func CheckInterviewQuestions(i *Interview) error {
	for n, q := range i.Questions {
		if q.CorrectIndex >= len(q.Options) {
			return fmt.Errorf("question %d: correct_index %d out of range for %d options", n, q.CorrectIndex, len(q.Options))
		}
	}
	return nil
}

// CheckInterviewAnswers verifies answers reference existing questions.
func CheckInterviewAnswers(i *Interview) error {
	for n, a := range i.Answers {
		if a.QuestionIndex >= len(i.Questions) {
			return fmt.Errorf("answer %d: question_index %d out of range", n, a.QuestionIndex)
		}
	}
	return nil
}

// CheckInterviewCompletion requires a completion time once the interview left pending.
func CheckInterviewCompletion(i *Interview) error {
	if i.Status != InterviewStatusPending && i.CompletedAt == nil {
		return fmt.Errorf("%s interview requires completed_at", i.Status)
	}
	return nil
}

// CheckActivityEntity requires entity_type whenever entity_id is present.
func CheckActivityEntity(l *ActivityLog) error {
	if l.EntityID != nil && l.EntityType == "" {
		return errors.New("entity_id requires entity_type")
	}
	return nil
}
