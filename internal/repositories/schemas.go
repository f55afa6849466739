package repositories

import (
	"github.com/otakuparshva/ai-recruitment/internal/domain"
	"github.com/otakuparshva/ai-recruitment/internal/schema"
)

// Schemas holds the compiled schema of every collection.
type Schemas struct {
	Registry     *schema.Registry
	Users        *schema.Schema[domain.User]
	Jobs         *schema.Schema[domain.Job]
	Applications *schema.Schema[domain.Application]
	Interviews   *schema.Schema[domain.Interview]
	ActivityLogs *schema.Schema[domain.ActivityLog]
}

// NewSchemas compiles the entity schemas into a fresh registry.
func NewSchemas() (*Schemas, error) {
	reg := schema.NewRegistry()
	s := &Schemas{Registry: reg}

	var err error
	if s.Users, err = register[domain.User](reg, domain.CollectionUsers, "updated_at"); err != nil {
		return nil, err
	}
	if s.Jobs, err = register[domain.Job](reg, domain.CollectionJobs, "updated_at",
		schema.Rule[domain.Job]{Field: "approved_by", Depends: []string{"status", "approved_at"}, Check: domain.CheckJobApproval},
	); err != nil {
		return nil, err
	}
	if s.Applications, err = register[domain.Application](reg, domain.CollectionApplications, "updated_at"); err != nil {
		return nil, err
	}
	if s.Interviews, err = register[domain.Interview](reg, domain.CollectionInterviews, "",
		schema.Rule[domain.Interview]{Field: "questions", Check: domain.CheckInterviewQuestions},
		schema.Rule[domain.Interview]{Field: "answers", Depends: []string{"questions"}, Check: domain.CheckInterviewAnswers},
		schema.Rule[domain.Interview]{Field: "completed_at", Depends: []string{"status"}, Check: domain.CheckInterviewCompletion},
	); err != nil {
		return nil, err
	}
	if s.ActivityLogs, err = register[domain.ActivityLog](reg, domain.CollectionActivityLogs, "",
		schema.Rule[domain.ActivityLog]{Field: "entity_type", Depends: []string{"entity_id"}, Check: domain.CheckActivityEntity},
	); err != nil {
		return nil, err
	}
	return s, nil
}

func register[T any](reg *schema.Registry, collection, touchField string, rules ...schema.Rule[T]) (*schema.Schema[T], error) {
	patch, err := domain.PatchSchema(collection)
	if err != nil {
		return nil, err
	}
	return schema.Register(reg, schema.Definition[T]{
		Collection:  collection,
		PatchSchema: patch,
		TouchField:  touchField,
		Rules:       rules,
	})
}
