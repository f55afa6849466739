package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const namespaceNotFound = 26

// MongoDialer opens real MongoDB clients.
type MongoDialer struct{}

func (MongoDialer) Dial(ctx context.Context, o DialOptions) (Client, error) {
	opts := options.Client().
		ApplyURI(o.URI).
		SetRetryWrites(true).
		SetRetryReads(true)
	if o.AppName != "" {
		opts.SetAppName(o.AppName)
	}
	if o.ConnectTimeout > 0 {
		opts.SetConnectTimeout(o.ConnectTimeout)
	}
	if o.SocketTimeout > 0 {
		opts.SetSocketTimeout(o.SocketTimeout)
	}
	if o.ServerSelectionTimeout > 0 {
		opts.SetServerSelectionTimeout(o.ServerSelectionTimeout)
	}
	if o.HeartbeatInterval > 0 {
		opts.SetHeartbeatInterval(o.HeartbeatInterval)
	}
	if o.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(o.MaxPoolSize)
	}

	c, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	return &mongoClient{client: c}, nil
}

type mongoClient struct {
	client *mongo.Client
}

func (c *mongoClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

func (c *mongoClient) Database(name string) Database {
	return &mongoDatabase{db: c.client.Database(name)}
}

func (c *mongoClient) Disconnect(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

type mongoDatabase struct {
	db *mongo.Database
}

func (d *mongoDatabase) Collection(name string) Collection {
	return &mongoCollection{coll: d.db.Collection(name)}
}

type mongoCollection struct {
	coll *mongo.Collection
}

func (c *mongoCollection) InsertOne(ctx context.Context, doc any) error {
	_, err := c.coll.InsertOne(ctx, doc)
	return err
}

func (c *mongoCollection) FindOne(ctx context.Context, filter bson.M) (bson.Raw, error) {
	return c.coll.FindOne(ctx, filter).Raw()
}

func (c *mongoCollection) Find(ctx context.Context, filter bson.M, o FindOptions) ([]bson.Raw, error) {
	opts := options.Find()
	if len(o.Sort) > 0 {
		opts.SetSort(o.Sort)
	}
	if o.Skip > 0 {
		opts.SetSkip(o.Skip)
	}
	if o.Limit > 0 {
		opts.SetLimit(o.Limit)
	}

	cur, err := c.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	docs := make([]bson.Raw, 0)
	for cur.Next(ctx) {
		// cur.Current is reused by the next call
		docs = append(docs, append(bson.Raw(nil), cur.Current...))
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (c *mongoCollection) FindOneAndUpdate(ctx context.Context, filter, update bson.M) (bson.Raw, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	return c.coll.FindOneAndUpdate(ctx, filter, update, opts).Raw()
}

func (c *mongoCollection) UpdateMany(ctx context.Context, filter, update bson.M) (int64, error) {
	res, err := c.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (c *mongoCollection) DeleteMany(ctx context.Context, filter bson.M) (int64, error) {
	res, err := c.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (c *mongoCollection) CountDocuments(ctx context.Context, filter bson.M) (int64, error) {
	return c.coll.CountDocuments(ctx, filter)
}

func (c *mongoCollection) CreateIndexes(ctx context.Context, specs []IndexSpec) error {
	if len(specs) == 0 {
		return nil
	}
	models := make([]mongo.IndexModel, 0, len(specs))
	for _, spec := range specs {
		opts := options.Index().SetName(spec.IndexName())
		if spec.Unique {
			opts.SetUnique(true)
		}
		models = append(models, mongo.IndexModel{Keys: spec.KeysDocument(), Options: opts})
	}
	_, err := c.coll.Indexes().CreateMany(ctx, models)
	return err
}

// ListIndexes returns no indexes for a collection that does not exist yet.
func (c *mongoCollection) ListIndexes(ctx context.Context) ([]IndexSpec, error) {
	cur, err := c.coll.Indexes().List(ctx)
	if isNamespaceNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var specs []IndexSpec
	for cur.Next(ctx) {
		var raw struct {
			Name   string `bson:"name"`
			Key    bson.D `bson:"key"`
			Unique bool   `bson:"unique"`
		}
		if err := cur.Decode(&raw); err != nil {
			return nil, err
		}
		spec := IndexSpec{Name: raw.Name, Unique: raw.Unique}
		for _, e := range raw.Key {
			spec.Keys = append(spec.Keys, IndexKey{Field: e.Key, Order: keyOrder(e.Value)})
		}
		specs = append(specs, spec)
	}
	return specs, cur.Err()
}

func isNamespaceNotFound(err error) bool {
	var ce mongo.CommandError
	return errors.As(err, &ce) && ce.Code == namespaceNotFound
}

// keyOrder normalizes the numeric key direction; text/hashed keys map to 0.
func keyOrder(v any) int {
	switch n := v.(type) {
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}
