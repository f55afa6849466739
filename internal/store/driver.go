// Package store owns the connection to the document database: the driver abstraction,
// the MongoDB adapter, the connection manager, error classification and index provisioning.
package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// DialOptions are the settings used to open a client.
type DialOptions struct {
	URI                    string
	AppName                string
	ConnectTimeout         time.Duration
	SocketTimeout          time.Duration
	ServerSelectionTimeout time.Duration
	HeartbeatInterval      time.Duration
	MaxPoolSize            uint64
}

// Dialer opens clients. MongoDialer is the production implementation.
type Dialer interface {
	Dial(ctx context.Context, opts DialOptions) (Client, error)
}

// Client is an open connection pool to the store.
type Client interface {
	Ping(ctx context.Context) error
	Database(name string) Database
	Disconnect(ctx context.Context) error
}

// Database resolves collections.
type Database interface {
	Collection(name string) Collection
}

// FindOptions control ordering and paging of Find.
type FindOptions struct {
	Sort  bson.D
	Skip  int64
	Limit int64
}

// IndexKey is one field of an index, Order is 1 or -1.
type IndexKey struct {
	Field string
	Order int
}

// IndexSpec describes an index.
type IndexSpec struct {
	Name   string
	Keys   []IndexKey
	Unique bool
}

// Collection is the set of primitives the repositories are built on.
// FindOne and FindOneAndUpdate return mongo.ErrNoDocuments when nothing matches.
type Collection interface {
	InsertOne(ctx context.Context, doc any) error
	FindOne(ctx context.Context, filter bson.M) (bson.Raw, error)
	Find(ctx context.Context, filter bson.M, opts FindOptions) ([]bson.Raw, error)
	// FindOneAndUpdate applies update to the first match and returns the post-image.
	FindOneAndUpdate(ctx context.Context, filter, update bson.M) (bson.Raw, error)
	UpdateMany(ctx context.Context, filter, update bson.M) (int64, error)
	DeleteMany(ctx context.Context, filter bson.M) (int64, error)
	CountDocuments(ctx context.Context, filter bson.M) (int64, error)
	CreateIndexes(ctx context.Context, specs []IndexSpec) error
	ListIndexes(ctx context.Context) ([]IndexSpec, error)
}

// Asc and Desc build single-field index keys.
func Asc(field string) IndexKey  { return IndexKey{Field: field, Order: 1} }
func Desc(field string) IndexKey { return IndexKey{Field: field, Order: -1} }

// IndexName returns the explicit name or the store's default "field_order" naming.
func (s IndexSpec) IndexName() string {
	if s.Name != "" {
		return s.Name
	}
	name := ""
	for i, k := range s.Keys {
		if i > 0 {
			name += "_"
		}
		order := "1"
		if k.Order < 0 {
			order = "-1"
		}
		name += k.Field + "_" + order
	}
	return name
}

// SameDefinition reports whether two specs describe the same index.
func (s IndexSpec) SameDefinition(o IndexSpec) bool {
	return s.Unique == o.Unique && s.SameKeys(o)
}

// SameKeys reports whether two specs index the same keys in the same order.
func (s IndexSpec) SameKeys(o IndexSpec) bool {
	if len(s.Keys) != len(o.Keys) {
		return false
	}
	for i := range s.Keys {
		if s.Keys[i] != o.Keys[i] {
			return false
		}
	}
	return true
}

// KeysDocument renders the keys in index order.
func (s IndexSpec) KeysDocument() bson.D {
	d := make(bson.D, 0, len(s.Keys))
	for _, k := range s.Keys {
		d = append(d, bson.E{Key: k.Field, Value: k.Order})
	}
	return d
}
