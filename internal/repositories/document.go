package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/otakuparshva/ai-recruitment/internal/domain"
	"github.com/otakuparshva/ai-recruitment/internal/schema"
	"github.com/otakuparshva/ai-recruitment/internal/store"
)

// maxGuardedUpdates bounds read-validate-write cycles lost to concurrent writers.
const maxGuardedUpdates = 3

// Document is the constraint for entities stored by DocumentRepository: a pointer to T carrying an id.
type Document[T any] interface {
	*T
	GetID() primitive.ObjectID
	SetID(primitive.ObjectID)
}

// beforeInserter fills defaults right before the first insert attempt.
type beforeInserter interface {
	BeforeInsert(now time.Time)
}

// Direction of a sort key
type Direction int

const (
	Ascending  Direction = 1
	Descending Direction = -1
)

// SortField is one key of a sort order.
type SortField struct {
	Field     string
	Direction Direction
}

// FindOptions control GetMany. Limit 0 means the engine default; larger values are capped.
type FindOptions struct {
	Skip  int64
	Limit int64
	Sort  []SortField
}

// UpdateOptions control Update.
type UpdateOptions struct {
	// ReturnUpdated updates only the first match and returns its post-image.
	ReturnUpdated bool
}

// UpdateResult is the outcome of Update. Document is set only with ReturnUpdated.
type UpdateResult[P any] struct {
	Modified int64
	Document P
}

// DocumentRepository is the generic, schema-validated CRUD surface of one collection.
type DocumentRepository[T any, P Document[T]] struct {
	engine     *Engine
	schema     *schema.Schema[T]
	collection string
}

// NewDocumentRepository binds a schema to the engine.
func NewDocumentRepository[T any, P Document[T]](engine *Engine, s *schema.Schema[T]) *DocumentRepository[T, P] {
	return &DocumentRepository[T, P]{
		engine:     engine,
		schema:     s,
		collection: s.Collection(),
	}
}

// Collection returns the collection name.
func (r *DocumentRepository[T, P]) Collection() string {
	return r.collection
}

// Insert validates and stores doc, returning its id.
//
// The id is assigned before the first attempt. When a retried attempt reports a duplicate key
// and the document with that id exists, the earlier attempt landed and the insert succeeds.
func (r *DocumentRepository[T, P]) Insert(ctx context.Context, doc P) (primitive.ObjectID, error) {
	const op = "insert"
	if (*T)(doc) == nil {
		return primitive.NilObjectID, r.invalid(op, errors.New("document is nil"))
	}

	if bi, ok := any(doc).(beforeInserter); ok {
		bi.BeforeInsert(r.engine.Now())
	}
	if doc.GetID().IsZero() {
		doc.SetID(primitive.NewObjectID())
	}
	if err := r.schema.Validate((*T)(doc)); err != nil {
		return primitive.NilObjectID, r.invalid(op, err)
	}

	id := doc.GetID()
	attempt := 0
	err := r.engine.run(ctx, op, r.collection, func(ctx context.Context, c store.Collection) error {
		attempt++
		err := c.InsertOne(ctx, doc)
		if err == nil || attempt == 1 || !store.IsDuplicateKey(err) {
			return err
		}
		_, ferr := c.FindOne(ctx, bson.M{"_id": id})
		switch {
		case ferr == nil:
			r.engine.logger.Info("insert acknowledged on retry",
				zap.String("collection", r.collection),
				zap.String("id", id.Hex()),
				zap.Int("attempt", attempt),
			)
			return nil
		case errors.Is(ferr, mongo.ErrNoDocuments):
			return err
		default:
			return ferr
		}
	})
	if err != nil {
		return primitive.NilObjectID, err
	}
	return id, nil
}

// GetOne returns the first document matching filter, or nil when none does.
func (r *DocumentRepository[T, P]) GetOne(ctx context.Context, filter bson.M) (P, error) {
	const op = "get_one"
	var raw bson.Raw
	err := r.engine.run(ctx, op, r.collection, func(ctx context.Context, c store.Collection) error {
		found, err := c.FindOne(ctx, filter)
		if errors.Is(err, mongo.ErrNoDocuments) {
			raw = nil
			return nil
		}
		if err != nil {
			return err
		}
		raw = found
		return nil
	})
	if err != nil || raw == nil {
		return nil, err
	}
	return r.decode(op, raw)
}

// GetMany returns the documents matching filter, sorted before skip and limit are applied.
// The result is never nil.
func (r *DocumentRepository[T, P]) GetMany(ctx context.Context, filter bson.M, opts FindOptions) ([]P, error) {
	const op = "get_many"
	findOpts, err := r.findOptions(opts)
	if err != nil {
		return nil, r.invalid(op, err)
	}

	var raws []bson.Raw
	err = r.engine.run(ctx, op, r.collection, func(ctx context.Context, c store.Collection) error {
		found, err := c.Find(ctx, filter, findOpts)
		if err != nil {
			return err
		}
		raws = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	docs := make([]P, 0, len(raws))
	for _, raw := range raws {
		doc, err := r.decode(op, raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Update sets the given fields. Without ReturnUpdated every match is updated and the modified
// count is returned; with it only the first match is updated and its post-image returned.
//
// With ReturnUpdated the merged document is validated before anything is written. The bulk form
// cannot see the documents it changes, so it refuses fields tied to other fields by a rule.
func (r *DocumentRepository[T, P]) Update(ctx context.Context, filter bson.M, fields map[string]any, opts UpdateOptions) (UpdateResult[P], error) {
	const op = "update"
	var result UpdateResult[P]

	set, err := r.patch(fields)
	if err != nil {
		return result, r.invalid(op, err)
	}

	if !opts.ReturnUpdated {
		if coupled := r.schema.CrossField(set); len(coupled) > 0 {
			return result, r.invalid(op, fmt.Errorf("fields %v depend on other fields and must be updated one document at a time", coupled))
		}
		update := bson.M{"$set": set}
		err := r.engine.run(ctx, op, r.collection, func(ctx context.Context, c store.Collection) error {
			n, err := c.UpdateMany(ctx, filter, update)
			if err != nil {
				return err
			}
			result.Modified = n
			return nil
		})
		return result, err
	}

	var raw bson.Raw
	err = r.engine.run(ctx, op, r.collection, func(ctx context.Context, c store.Collection) error {
		found, err := r.guardedUpdate(ctx, c, op, filter, set)
		raw = found
		return err
	})
	if err != nil || raw == nil {
		return result, err
	}

	doc, err := r.decode(op, raw)
	if err != nil {
		return result, err
	}
	result.Modified = 1
	result.Document = doc
	return result, nil
}

// guardedUpdate reads the first match, validates it merged with set and writes set only if the
// document still holds the values the validation relied on. A concurrent change restarts the
// cycle up to maxGuardedUpdates times. It returns nil when nothing matches.
func (r *DocumentRepository[T, P]) guardedUpdate(ctx context.Context, c store.Collection, op string, filter, set bson.M) (bson.Raw, error) {
	for i := 0; i < maxGuardedUpdates; i++ {
		current, err := c.FindOne(ctx, filter)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		var cur bson.D
		if err := bson.Unmarshal(current, &cur); err != nil {
			return nil, domain.NewError(domain.KindStore, op, r.collection, fmt.Errorf("decode: %w", err))
		}
		if err := r.validateMerged(cur, set); err != nil {
			return nil, r.invalid(op, err)
		}

		updated, err := c.FindOneAndUpdate(ctx, r.guard(filter, cur), bson.M{"$set": set})
		if errors.Is(err, mongo.ErrNoDocuments) {
			r.engine.logger.Debug("document changed during update, retrying",
				zap.String("collection", r.collection),
				zap.Int("attempt", i+1),
			)
			continue
		}
		return updated, err
	}
	return nil, domain.NewError(domain.KindConflict, op, r.collection,
		fmt.Errorf("document kept changing during update (%d attempts)", maxGuardedUpdates))
}

// validateMerged checks the full document that applying set to cur would produce.
func (r *DocumentRepository[T, P]) validateMerged(cur bson.D, set bson.M) error {
	merged := make(bson.D, 0, len(cur)+len(set))
	seen := make(map[string]bool, len(set))
	for _, e := range cur {
		if v, ok := set[e.Key]; ok {
			merged = append(merged, bson.E{Key: e.Key, Value: v})
			seen[e.Key] = true
			continue
		}
		merged = append(merged, e)
	}
	for k, v := range set {
		if !seen[k] {
			merged = append(merged, bson.E{Key: k, Value: v})
		}
	}

	data, err := bson.Marshal(merged)
	if err != nil {
		return fmt.Errorf("encode merged document: %w", err)
	}
	var doc T
	if err := bson.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode merged document: %w", err)
	}
	return r.schema.Validate(&doc)
}

// guard narrows filter to the document that was read and to the values of its cross-fields.
// The current values satisfied filter, so replacing a filter key with its exact value keeps
// the match equivalent for this document.
func (r *DocumentRepository[T, P]) guard(filter bson.M, cur bson.D) bson.M {
	values := make(map[string]any, len(cur))
	for _, e := range cur {
		values[e.Key] = e.Value
	}

	g := make(bson.M, len(filter)+4)
	for k, v := range filter {
		g[k] = v
	}
	g["_id"] = values["_id"]
	for _, name := range r.schema.CrossFieldNames() {
		g[name] = values[name]
	}
	return g
}

// UpdateOne updates the first match and returns its post-image, or nil when nothing matched.
func (r *DocumentRepository[T, P]) UpdateOne(ctx context.Context, filter bson.M, fields map[string]any) (P, error) {
	res, err := r.Update(ctx, filter, fields, UpdateOptions{ReturnUpdated: true})
	return res.Document, err
}

// UpdateMany updates every match and returns the modified count.
func (r *DocumentRepository[T, P]) UpdateMany(ctx context.Context, filter bson.M, fields map[string]any) (int64, error) {
	res, err := r.Update(ctx, filter, fields, UpdateOptions{})
	return res.Modified, err
}

// Increment atomically adds delta to a numeric field of every match.
func (r *DocumentRepository[T, P]) Increment(ctx context.Context, filter bson.M, field string, delta int64) (int64, error) {
	const op = "increment"
	if !r.schema.HasField(field) || field == r.schema.TouchField() {
		return 0, r.invalid(op, fmt.Errorf("cannot increment field %q", field))
	}

	update := bson.M{"$inc": bson.M{field: delta}}
	if touch := r.schema.TouchField(); touch != "" {
		update["$set"] = bson.M{touch: r.engine.Now()}
	}

	var modified int64
	err := r.engine.run(ctx, op, r.collection, func(ctx context.Context, c store.Collection) error {
		n, err := c.UpdateMany(ctx, filter, update)
		if err != nil {
			return err
		}
		modified = n
		return nil
	})
	return modified, err
}

// Delete removes every match and returns the count. An empty filter is rejected.
func (r *DocumentRepository[T, P]) Delete(ctx context.Context, filter bson.M) (int64, error) {
	const op = "delete"
	if len(filter) == 0 {
		return 0, r.invalid(op, errors.New("refusing to delete with an empty filter"))
	}

	var deleted int64
	err := r.engine.run(ctx, op, r.collection, func(ctx context.Context, c store.Collection) error {
		n, err := c.DeleteMany(ctx, filter)
		if err != nil {
			return err
		}
		deleted = n
		return nil
	})
	return deleted, err
}

// Count returns the number of matches.
func (r *DocumentRepository[T, P]) Count(ctx context.Context, filter bson.M) (int64, error) {
	var n int64
	err := r.engine.run(ctx, "count", r.collection, func(ctx context.Context, c store.Collection) error {
		count, err := c.CountDocuments(ctx, filter)
		if err != nil {
			return err
		}
		n = count
		return nil
	})
	return n, err
}

// patch validates a partial field set and stamps the touch field.
func (r *DocumentRepository[T, P]) patch(fields map[string]any) (bson.M, error) {
	if len(fields) == 0 {
		return nil, errors.New("no fields to update")
	}

	set := make(bson.M, len(fields)+1)
	for k, v := range fields {
		switch {
		case k == "_id":
			return nil, errors.New("_id cannot be updated")
		case k == "" || strings.HasPrefix(k, "$") || strings.Contains(k, "."):
			return nil, fmt.Errorf("invalid field name %q", k)
		}
		set[k] = v
	}
	if touch := r.schema.TouchField(); touch != "" {
		if _, ok := set[touch]; !ok {
			set[touch] = r.engine.Now()
		}
	}

	if err := r.schema.ValidatePatch(set); err != nil {
		return nil, err
	}
	return set, nil
}

func (r *DocumentRepository[T, P]) findOptions(opts FindOptions) (store.FindOptions, error) {
	if opts.Skip < 0 {
		return store.FindOptions{}, fmt.Errorf("skip must not be negative, got %d", opts.Skip)
	}
	if opts.Limit < 0 {
		return store.FindOptions{}, fmt.Errorf("limit must not be negative, got %d", opts.Limit)
	}

	limit := opts.Limit
	if limit == 0 {
		limit = r.engine.defaultLimit
	}
	if limit > r.engine.maxLimit {
		limit = r.engine.maxLimit
	}

	var sort bson.D
	for _, s := range opts.Sort {
		if s.Field != "_id" && !r.schema.HasField(s.Field) {
			return store.FindOptions{}, fmt.Errorf("unknown sort field %q", s.Field)
		}
		if s.Direction != Ascending && s.Direction != Descending {
			return store.FindOptions{}, fmt.Errorf("invalid sort direction %d for %q", s.Direction, s.Field)
		}
		sort = append(sort, bson.E{Key: s.Field, Value: int(s.Direction)})
	}

	return store.FindOptions{Sort: sort, Skip: opts.Skip, Limit: limit}, nil
}

// decode unmarshals a stored document and validates it.
func (r *DocumentRepository[T, P]) decode(op string, raw bson.Raw) (P, error) {
	var v T
	if err := bson.Unmarshal(raw, &v); err != nil {
		return nil, domain.NewError(domain.KindStore, op, r.collection, fmt.Errorf("decode: %w", err))
	}
	if err := r.schema.Validate(&v); err != nil {
		return nil, domain.NewError(domain.KindValidation, op, r.collection, fmt.Errorf("stored document: %w", err))
	}
	return P(&v), nil
}

func (r *DocumentRepository[T, P]) invalid(op string, err error) error {
	return domain.NewError(domain.KindValidation, op, r.collection, err)
}
