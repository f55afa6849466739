// Package storetest provides an in-memory document server implementing the store driver
// interfaces, with fault injection for connection and operation failures.
package storetest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/otakuparshva/ai-recruitment/internal/store"
)

// Operation names accepted by FailOps and LoseAcks.
const (
	OpInsert           = "insert"
	OpFindOne          = "find_one"
	OpFind             = "find"
	OpFindOneAndUpdate = "find_one_and_update"
	OpUpdateMany       = "update_many"
	OpDeleteMany       = "delete_many"
	OpCount            = "count"
	OpCreateIndexes    = "create_indexes"
	OpListIndexes      = "list_indexes"
)

// NetworkError is a transient error as the driver reports a dropped connection.
func NetworkError() error {
	return mongo.CommandError{
		Code:    89,
		Name:    "NetworkTimeout",
		Message: "connection reset by peer",
		Labels:  []string{"NetworkError"},
	}
}

type fault struct {
	remaining int // negative means forever
	err       error
}

// take consumes one injected failure, returning nil when none is armed.
func (f *fault) take() error {
	if f == nil || f.remaining == 0 {
		return nil
	}
	if f.remaining > 0 {
		f.remaining--
	}
	return f.err
}

type coll struct {
	docs    []bson.M
	indexes []store.IndexSpec
}

// Server is a shared in-memory store. Every client dialed from it sees the same data.
type Server struct {
	mu       sync.Mutex
	dbs      map[string]map[string]*coll
	dials    int
	pings    int
	dialF    *fault
	pingF    *fault
	opF      map[string]*fault
	lostAcks map[string]*fault
	opCount  map[string]int
	clients  []*client
}

// NewServer creates an empty server.
func NewServer() *Server {
	return &Server{
		dbs:      make(map[string]map[string]*coll),
		opF:      make(map[string]*fault),
		lostAcks: make(map[string]*fault),
		opCount:  make(map[string]int),
	}
}

// Dialer returns a store.Dialer connected to this server.
func (s *Server) Dialer() store.Dialer { return dialer{s: s} }

// FailDials makes the next n dials fail with err (NetworkError when nil); n < 0 fails forever.
func (s *Server) FailDials(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dialF = newFault(n, err)
}

// FailPings makes the next n liveness pings fail.
func (s *Server) FailPings(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pingF = newFault(n, err)
}

// FailOps makes the next n calls of op fail before they touch any data.
func (s *Server) FailOps(op string, n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opF[op] = newFault(n, err)
}

// LoseAcks makes the next n calls of op apply their effect and then report a network error.
func (s *Server) LoseAcks(op string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lostAcks[op] = newFault(n, nil)
}

// Dials is the number of dial attempts so far.
func (s *Server) Dials() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dials
}

// Pings is the number of pings so far.
func (s *Server) Pings() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pings
}

// Calls is the number of times op was invoked, failed calls included.
func (s *Server) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opCount[op]
}

// DropConnections disconnects every client dialed so far, as a server restart would.
func (s *Server) DropConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients {
		c.mu.Lock()
		c.disconnected = true
		c.mu.Unlock()
	}
}

// Indexes lists the indexes of a collection, _id_ included.
func (s *Server) Indexes(db, name string) []store.IndexSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.collection(db, name)
	return append([]store.IndexSpec(nil), c.indexes...)
}

// Docs returns copies of the stored documents in insertion order.
func (s *Server) Docs(db, name string) []bson.M {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.collection(db, name)
	out := make([]bson.M, 0, len(c.docs))
	for _, d := range c.docs {
		out = append(out, clone(d))
	}
	return out
}

// Seed inserts documents directly, bypassing indexes and faults.
func (s *Server) Seed(db, name string, docs ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.collection(db, name)
	for _, d := range docs {
		m, err := normalize(d)
		if err != nil {
			return err
		}
		if _, ok := m["_id"]; !ok {
			m["_id"] = primitive.NewObjectID()
		}
		c.docs = append(c.docs, m)
	}
	return nil
}

func newFault(n int, err error) *fault {
	if err == nil {
		err = NetworkError()
	}
	return &fault{remaining: n, err: err}
}

// collection must be called with mu held.
func (s *Server) collection(db, name string) *coll {
	colls, ok := s.dbs[db]
	if !ok {
		colls = make(map[string]*coll)
		s.dbs[db] = colls
	}
	c, ok := colls[name]
	if !ok {
		c = &coll{indexes: []store.IndexSpec{{Name: "_id_", Keys: []store.IndexKey{store.Asc("_id")}, Unique: true}}}
		colls[name] = c
	}
	return c
}

// begin must be called with mu held; it records the call and returns an injected failure.
func (s *Server) begin(op string) error {
	s.opCount[op]++
	return s.opF[op].take()
}

// ackLost must be called with mu held after op applied its effect.
func (s *Server) ackLost(op string) error {
	return s.lostAcks[op].take()
}

type dialer struct {
	s *Server
}

func (d dialer) Dial(ctx context.Context, _ store.DialOptions) (store.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	d.s.dials++
	if err := d.s.dialF.take(); err != nil {
		return nil, err
	}
	c := &client{s: d.s}
	d.s.clients = append(d.s.clients, c)
	return c, nil
}

type client struct {
	s            *Server
	mu           sync.Mutex
	disconnected bool
}

func (c *client) isDisconnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnected
}

func (c *client) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.pings++
	if c.isDisconnected() {
		return mongo.ErrClientDisconnected
	}
	return c.s.pingF.take()
}

func (c *client) Database(name string) store.Database {
	return &database{c: c, name: name}
}

func (c *client) Disconnect(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disconnected {
		return mongo.ErrClientDisconnected
	}
	c.disconnected = true
	return nil
}

type database struct {
	c    *client
	name string
}

func (d *database) Collection(name string) store.Collection {
	return &collection{c: d.c, db: d.name, name: name}
}

type collection struct {
	c    *client
	db   string
	name string
}

// lock acquires the server lock and runs the common preamble of every operation.
func (cl *collection) lock(ctx context.Context, op string) (*coll, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, func() {}, err
	}
	s := cl.c.s
	s.mu.Lock()
	if err := s.begin(op); err != nil {
		s.mu.Unlock()
		return nil, func() {}, err
	}
	if cl.c.isDisconnected() {
		s.mu.Unlock()
		return nil, func() {}, mongo.ErrClientDisconnected
	}
	return s.collection(cl.db, cl.name), s.mu.Unlock, nil
}

func (cl *collection) InsertOne(ctx context.Context, doc any) error {
	c, unlock, err := cl.lock(ctx, OpInsert)
	defer unlock()
	if err != nil {
		return err
	}

	m, err := normalize(doc)
	if err != nil {
		return err
	}
	if _, ok := m["_id"]; !ok {
		m["_id"] = primitive.NewObjectID()
	}
	if name, dup := c.violates(m, -1); dup {
		return writeDupError(cl.db, cl.name, name)
	}
	c.docs = append(c.docs, m)
	return cl.c.s.ackLost(OpInsert)
}

func (cl *collection) FindOne(ctx context.Context, filter bson.M) (bson.Raw, error) {
	c, unlock, err := cl.lock(ctx, OpFindOne)
	defer unlock()
	if err != nil {
		return nil, err
	}

	f, err := normalize(filter)
	if err != nil {
		return nil, err
	}
	for _, d := range c.docs {
		if matches(d, f) {
			return bson.Marshal(d)
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (cl *collection) Find(ctx context.Context, filter bson.M, o store.FindOptions) ([]bson.Raw, error) {
	c, unlock, err := cl.lock(ctx, OpFind)
	defer unlock()
	if err != nil {
		return nil, err
	}

	f, err := normalize(filter)
	if err != nil {
		return nil, err
	}
	var found []bson.M
	for _, d := range c.docs {
		if matches(d, f) {
			found = append(found, d)
		}
	}
	sortDocs(found, o.Sort)

	if o.Skip > 0 {
		if o.Skip >= int64(len(found)) {
			found = nil
		} else {
			found = found[o.Skip:]
		}
	}
	if o.Limit > 0 && int64(len(found)) > o.Limit {
		found = found[:o.Limit]
	}

	out := make([]bson.Raw, 0, len(found))
	for _, d := range found {
		raw, err := bson.Marshal(d)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

func (cl *collection) FindOneAndUpdate(ctx context.Context, filter, update bson.M) (bson.Raw, error) {
	c, unlock, err := cl.lock(ctx, OpFindOneAndUpdate)
	defer unlock()
	if err != nil {
		return nil, err
	}

	f, err := normalize(filter)
	if err != nil {
		return nil, err
	}
	u, err := normalize(update)
	if err != nil {
		return nil, err
	}
	for i, d := range c.docs {
		if !matches(d, f) {
			continue
		}
		next, _, err := applyUpdate(d, u)
		if err != nil {
			return nil, err
		}
		if name, dup := c.violates(next, i); dup {
			return nil, mongo.CommandError{Code: 11000, Name: "DuplicateKey", Message: dupMessage(cl.db, cl.name, name)}
		}
		c.docs[i] = next
		raw, err := bson.Marshal(next)
		if err != nil {
			return nil, err
		}
		if err := cl.c.s.ackLost(OpFindOneAndUpdate); err != nil {
			return nil, err
		}
		return raw, nil
	}
	return nil, mongo.ErrNoDocuments
}

func (cl *collection) UpdateMany(ctx context.Context, filter, update bson.M) (int64, error) {
	c, unlock, err := cl.lock(ctx, OpUpdateMany)
	defer unlock()
	if err != nil {
		return 0, err
	}

	f, err := normalize(filter)
	if err != nil {
		return 0, err
	}
	u, err := normalize(update)
	if err != nil {
		return 0, err
	}

	var modified int64
	for i, d := range c.docs {
		if !matches(d, f) {
			continue
		}
		next, changed, err := applyUpdate(d, u)
		if err != nil {
			return modified, err
		}
		if !changed {
			continue
		}
		if name, dup := c.violates(next, i); dup {
			return modified, writeDupError(cl.db, cl.name, name)
		}
		c.docs[i] = next
		modified++
	}
	return modified, cl.c.s.ackLost(OpUpdateMany)
}

func (cl *collection) DeleteMany(ctx context.Context, filter bson.M) (int64, error) {
	c, unlock, err := cl.lock(ctx, OpDeleteMany)
	defer unlock()
	if err != nil {
		return 0, err
	}

	f, err := normalize(filter)
	if err != nil {
		return 0, err
	}
	kept := c.docs[:0]
	var deleted int64
	for _, d := range c.docs {
		if matches(d, f) {
			deleted++
			continue
		}
		kept = append(kept, d)
	}
	c.docs = kept
	return deleted, cl.c.s.ackLost(OpDeleteMany)
}

func (cl *collection) CountDocuments(ctx context.Context, filter bson.M) (int64, error) {
	c, unlock, err := cl.lock(ctx, OpCount)
	defer unlock()
	if err != nil {
		return 0, err
	}

	f, err := normalize(filter)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, d := range c.docs {
		if matches(d, f) {
			n++
		}
	}
	return n, nil
}

func (cl *collection) CreateIndexes(ctx context.Context, specs []store.IndexSpec) error {
	c, unlock, err := cl.lock(ctx, OpCreateIndexes)
	defer unlock()
	if err != nil {
		return err
	}

	// Validate the whole batch first so a failing request creates nothing.
	var added []store.IndexSpec
	for _, spec := range specs {
		spec.Name = spec.IndexName()
		exists := false
		for _, have := range append(append([]store.IndexSpec(nil), c.indexes...), added...) {
			switch {
			case have.Name == spec.Name && have.SameDefinition(spec):
				exists = true
			case have.Name == spec.Name:
				return mongo.CommandError{Code: 86, Name: "IndexKeySpecsConflict",
					Message: fmt.Sprintf("An existing index has the same name as the requested index: %s", spec.Name)}
			case have.SameKeys(spec):
				return mongo.CommandError{Code: 85, Name: "IndexOptionsConflict",
					Message: fmt.Sprintf("Index already exists with a different name: %s", have.Name)}
			}
		}
		if exists {
			continue
		}
		if spec.Unique {
			if err := c.checkUnique(spec); err != nil {
				return mongo.CommandError{Code: 11000, Name: "DuplicateKey", Message: dupMessage(cl.db, cl.name, spec.Name)}
			}
		}
		added = append(added, spec)
	}
	c.indexes = append(c.indexes, added...)
	return nil
}

func (cl *collection) ListIndexes(ctx context.Context) ([]store.IndexSpec, error) {
	c, unlock, err := cl.lock(ctx, OpListIndexes)
	defer unlock()
	if err != nil {
		return nil, err
	}
	return append([]store.IndexSpec(nil), c.indexes...), nil
}

// violates reports the first unique index that doc collides with, ignoring position skip.
func (c *coll) violates(doc bson.M, skip int) (string, bool) {
	for _, idx := range c.indexes {
		if !idx.Unique {
			continue
		}
		key := indexKey(doc, idx)
		for i, other := range c.docs {
			if i == skip {
				continue
			}
			if equalKeys(key, indexKey(other, idx)) {
				return idx.IndexName(), true
			}
		}
	}
	return "", false
}

func (c *coll) checkUnique(idx store.IndexSpec) error {
	for i, a := range c.docs {
		for _, b := range c.docs[i+1:] {
			if equalKeys(indexKey(a, idx), indexKey(b, idx)) {
				return fmt.Errorf("duplicate values for %s", idx.IndexName())
			}
		}
	}
	return nil
}

func indexKey(doc bson.M, idx store.IndexSpec) []any {
	key := make([]any, 0, len(idx.Keys))
	for _, k := range idx.Keys {
		key = append(key, doc[k.Field])
	}
	return key
}

func equalKeys(a, b []any) bool {
	for i := range a {
		if !equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func dupMessage(db, name, index string) string {
	return fmt.Sprintf("E11000 duplicate key error collection: %s.%s index: %s", db, name, index)
}

func writeDupError(db, name, index string) error {
	return mongo.WriteException{WriteErrors: []mongo.WriteError{{
		Index:   0,
		Code:    11000,
		Message: dupMessage(db, name, index),
	}}}
}

// applyUpdate returns the updated copy of doc and whether anything changed.
func applyUpdate(doc, update bson.M) (bson.M, bool, error) {
	next := clone(doc)
	changed := false
	for op, raw := range update {
		fields, ok := asM(raw)
		if !ok {
			return nil, false, mongo.CommandError{Code: 9, Name: "FailedToParse", Message: fmt.Sprintf("%s requires a document", op)}
		}
		switch op {
		case "$set":
			for k, v := range fields {
				if k == "_id" {
					return nil, false, mongo.CommandError{Code: 66, Name: "ImmutableField", Message: "Performing an update on the path '_id' would modify the immutable field '_id'"}
				}
				if cur, ok := next[k]; !ok || !equal(cur, v) {
					next[k] = v
					changed = true
				}
			}
		case "$inc":
			for k, v := range fields {
				sum, err := add(next[k], v)
				if err != nil {
					return nil, false, err
				}
				if !equal(next[k], sum) {
					changed = true
				}
				next[k] = sum
			}
		default:
			if strings.HasPrefix(op, "$") {
				return nil, false, mongo.CommandError{Code: 9, Name: "FailedToParse", Message: fmt.Sprintf("unsupported update operator %s", op)}
			}
			return nil, false, mongo.CommandError{Code: 9, Name: "FailedToParse", Message: "update document requires atomic operators"}
		}
	}
	return next, changed, nil
}

func add(cur, delta any) (any, error) {
	if cur == nil {
		cur = int32(0)
	}
	a, aok := number(cur)
	b, bok := number(delta)
	if !aok || !bok {
		return nil, mongo.CommandError{Code: 14, Name: "TypeMismatch", Message: "Cannot apply $inc to a value of non-numeric type"}
	}
	_, af := cur.(float64)
	_, bf := delta.(float64)
	switch {
	case af || bf:
		return a + b, nil
	case isInt64(cur) || isInt64(delta):
		return int64(a) + int64(b), nil
	default:
		return int32(int64(a) + int64(b)), nil
	}
}

func isInt64(v any) bool {
	_, ok := v.(int64)
	return ok
}

// normalize converts v into the representation the store keeps: plain bson.M with driver types.
func normalize(v any) (bson.M, error) {
	if v == nil {
		return bson.M{}, nil
	}
	data, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func clone(m bson.M) bson.M {
	out := make(bson.M, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
