// Package schema provides the per-entity validation registry used on every read and write.
//
// Full documents are checked against validator struct tags plus cross-field rules.
// Partial updates are checked against the collection's JSON Schema, which lists every
// field an update may set.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
)

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Collection string
	Errors     []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	parts := make([]string, 0, len(ve.Errors))
	for _, e := range ve.Errors {
		parts = append(parts, e.Field+": "+e.Message)
	}
	if ve.Collection == "" {
		return "validation failed: " + strings.Join(parts, "; ")
	}
	return fmt.Sprintf("%s validation failed: %s", ve.Collection, strings.Join(parts, "; "))
}

// Rule is a cross-field constraint that struct tags cannot express.
// Field is reported on failure; Depends lists the other fields Check reads.
type Rule[T any] struct {
	Field   string
	Depends []string
	Check   func(*T) error
}

// Definition describes one entity schema.
type Definition[T any] struct {
	Collection  string
	PatchSchema []byte
	// TouchField is stamped with the current time on every update; empty disables it.
	TouchField string
	Rules      []Rule[T]
}

// Schema validates documents of one collection.
type Schema[T any] struct {
	collection string
	validate   *validator.Validate
	patch      *gojsonschema.Schema
	fields     map[string]struct{}
	coupled    map[string]struct{}
	names      map[string]string
	touchField string
	rules      []Rule[T]
}

// Registry holds the schemas of every collection.
type Registry struct {
	mu       sync.RWMutex
	validate *validator.Validate
	schemas  map[string]any
}

// NewRegistry creates an empty registry. Field names in errors use the document (bson) names.
func NewRegistry() *Registry {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("bson"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return fld.Name
		}
		return name
	})
	return &Registry{validate: v, schemas: make(map[string]any)}
}

// Register compiles and stores the schema for def.Collection.
func Register[T any](r *Registry, def Definition[T]) (*Schema[T], error) {
	if def.Collection == "" {
		return nil, errors.New("schema: collection name is required")
	}

	patch, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(def.PatchSchema))
	if err != nil {
		return nil, fmt.Errorf("schema %s: compile patch schema: %w", def.Collection, err)
	}

	var doc struct {
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(def.PatchSchema, &doc); err != nil {
		return nil, fmt.Errorf("schema %s: read properties: %w", def.Collection, err)
	}
	fields := make(map[string]struct{}, len(doc.Properties))
	for name := range doc.Properties {
		fields[name] = struct{}{}
	}
	if def.TouchField != "" {
		if _, ok := fields[def.TouchField]; !ok {
			return nil, fmt.Errorf("schema %s: touch field %q is not a property", def.Collection, def.TouchField)
		}
	}

	names, coupled := inspect[T]()
	for _, rule := range def.Rules {
		coupled[rule.Field] = struct{}{}
		for _, f := range rule.Depends {
			coupled[f] = struct{}{}
		}
	}

	s := &Schema[T]{
		collection: def.Collection,
		validate:   r.validate,
		patch:      patch,
		fields:     fields,
		coupled:    coupled,
		names:      names,
		touchField: def.TouchField,
		rules:      def.Rules,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.schemas[def.Collection]; exists {
		return nil, fmt.Errorf("schema %s: already registered", def.Collection)
	}
	r.schemas[def.Collection] = s
	return s, nil
}

// Lookup returns the schema registered for collection with entity type T.
func Lookup[T any](r *Registry, collection string) (*Schema[T], error) {
	r.mu.RLock()
	raw, ok := r.schemas[collection]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("schema %s: not registered", collection)
	}
	s, ok := raw.(*Schema[T])
	if !ok {
		return nil, fmt.Errorf("schema %s: registered with a different entity type", collection)
	}
	return s, nil
}

// Collections lists registered collection names in sorted order.
func (r *Registry) Collections() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Schema[T]) Collection() string { return s.collection }
func (s *Schema[T]) TouchField() string { return s.touchField }

// HasField reports whether an update may set the named top-level field.
func (s *Schema[T]) HasField(name string) bool {
	_, ok := s.fields[name]
	return ok
}

// CrossField returns, sorted, the keys of fields whose validity depends on other fields
// of the document. Such fields can only be checked against a whole document.
func (s *Schema[T]) CrossField(fields map[string]any) []string {
	var out []string
	for name := range fields {
		if _, ok := s.coupled[name]; ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// CrossFieldNames lists every cross-field of the schema, sorted.
func (s *Schema[T]) CrossFieldNames() []string {
	out := make([]string, 0, len(s.coupled))
	for name := range s.coupled {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Validate checks a full document.
func (s *Schema[T]) Validate(doc *T) error {
	if doc == nil {
		return &ValidationError{Collection: s.collection, Errors: []FieldError{{Field: "(root)", Message: "document is nil"}}}
	}

	var fieldErrs []FieldError
	if err := s.validate.Struct(doc); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("schema %s: %w", s.collection, err)
		}
		for _, fe := range verrs {
			fieldErrs = append(fieldErrs, FieldError{Field: fieldPath(fe), Message: s.describe(fe)})
		}
	}
	for _, rule := range s.rules {
		if err := rule.Check(doc); err != nil {
			fieldErrs = append(fieldErrs, FieldError{Field: rule.Field, Message: err.Error()})
		}
	}

	if len(fieldErrs) > 0 {
		return &ValidationError{Collection: s.collection, Errors: fieldErrs}
	}
	return nil
}

// ValidatePatch checks a partial field set against the collection's JSON Schema.
func (s *Schema[T]) ValidatePatch(fields map[string]any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return &ValidationError{Collection: s.collection, Errors: []FieldError{{Field: "(root)", Message: err.Error()}}}
	}

	result, err := s.patch.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema %s: validate patch: %w", s.collection, err)
	}
	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Collection: s.collection,
		Errors:     make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return validationErr
}

// fieldPath drops the struct name from the validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// inspect maps the top-level struct fields of T to their document names and collects the
// fields tied together by cross-field validator tags.
func inspect[T any]() (map[string]string, map[string]struct{}) {
	names := make(map[string]string)
	coupled := make(map[string]struct{})

	typ := reflect.TypeOf((*T)(nil)).Elem()
	if typ.Kind() != reflect.Struct {
		return names, coupled
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		names[f.Name] = docName(f)
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		for _, tag := range strings.Split(f.Tag.Get("validate"), ",") {
			key, param, ok := strings.Cut(tag, "=")
			if !ok || !crossFieldTag(key) {
				continue
			}
			coupled[names[f.Name]] = struct{}{}
			for _, other := range strings.Fields(param) {
				if name, ok := names[other]; ok {
					coupled[name] = struct{}{}
				}
			}
		}
	}
	return names, coupled
}

func crossFieldTag(key string) bool {
	switch {
	case strings.HasSuffix(key, "field"):
		return true
	case strings.HasPrefix(key, "required_with"), strings.HasPrefix(key, "excluded_with"):
		return true
	}
	return false
}

func docName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("bson"), ",", 2)[0]
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}

// fieldName turns a struct field name from a validator param into its document name.
func (s *Schema[T]) fieldName(goName string) string {
	if name, ok := s.names[goName]; ok {
		return name
	}
	return goName
}

func (s *Schema[T]) describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "email":
		return "must be a valid email address"
	case "lowercase":
		return "must be lowercase"
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "gtefield":
		return fmt.Sprintf("must be greater than or equal to %s", s.fieldName(fe.Param()))
	default:
		return fmt.Sprintf("failed %q constraint", fe.Tag())
	}
}
