// Package mongodb stores records as documents keyed by record id:
//
//	{
//	  _id: <id>,
//	  speckle_type: <type>,
//	  totalChildrenCount: <n>,
//	  closure: [<descendant ids>],
//	  data: <record JSON as binary>
//	}
//
// data holds the exact bytes the id was computed over and is what
// GetObject returns. The other fields are copies for querying, e.g. every
// record that contains a given descendant.
package mongodb

import (
	"context"
	stderrors "errors"
	"sort"

	"github.com/ajitpratap0/objectdag/pkg/config"
	"github.com/ajitpratap0/objectdag/pkg/errors"
	"github.com/ajitpratap0/objectdag/pkg/logger"
	"github.com/ajitpratap0/objectdag/pkg/models"
	"github.com/ajitpratap0/objectdag/pkg/transport/core"
	"github.com/ajitpratap0/objectdag/pkg/transport/registry"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// TypeName is the registry name of this transport.
const TypeName = "mongodb"

// Defaults for the database and collection options.
const (
	DefaultDatabase   = "objectdag"
	DefaultCollection = "objects"
)

func init() {
	registry.Register(TypeName, func(ctx context.Context, cfg *config.TransportConfig) (core.Transport, error) {
		return Open(ctx, cfg)
	})
}

type document struct {
	ID                 string   `bson:"_id"`
	Type               string   `bson:"speckle_type,omitempty"`
	TotalChildrenCount int      `bson:"totalChildrenCount"`
	Closure            []string `bson:"closure,omitempty"`
	Data               []byte   `bson:"data"`
}

func newDocument(rec *core.Record) document {
	doc := document{
		ID:                 rec.ID,
		TotalChildrenCount: rec.TotalChildrenCount(),
		Data:               rec.JSON,
	}
	if typ, ok := rec.Fields.Get(models.TypeKey); ok {
		doc.Type, _ = typ.(string)
	}
	for id := range rec.Closure() {
		doc.Closure = append(doc.Closure, id)
	}
	sort.Strings(doc.Closure)
	return doc
}

// insertFields returns the document without _id, for $setOnInsert.
func (d document) insertFields() bson.D {
	fields := bson.D{}
	if d.Type != "" {
		fields = append(fields, bson.E{Key: "speckle_type", Value: d.Type})
	}
	fields = append(fields, bson.E{Key: "totalChildrenCount", Value: d.TotalChildrenCount})
	if len(d.Closure) > 0 {
		fields = append(fields, bson.E{Key: "closure", Value: d.Closure})
	}
	return append(fields, bson.E{Key: "data", Value: d.Data})
}

// Transport stores records in a MongoDB collection.
type Transport struct {
	name       string
	client     *mongo.Client
	collection *mongo.Collection
	logger     *zap.Logger
}

// Open connects using the "uri" option. "database" and "collection"
// override the defaults.
func Open(ctx context.Context, cfg *config.TransportConfig) (*Transport, error) {
	uri, err := cfg.RequireOption("uri")
	if err != nil {
		return nil, err
	}

	clientOpts := options.Client().ApplyURI(uri)
	if cfg.Timeouts.Connection > 0 {
		clientOpts.SetConnectTimeout(cfg.Timeouts.Connection)
		clientOpts.SetServerSelectionTimeout(cfg.Timeouts.Connection)
	}
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to connect to MongoDB")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to ping MongoDB")
	}

	coll := client.Database(cfg.Option("database", DefaultDatabase)).
		Collection(cfg.Option("collection", DefaultCollection))
	return New(cfg.Name, client, coll), nil
}

// New wraps an existing collection. The client is disconnected on Close
// when non-nil.
func New(name string, client *mongo.Client, coll *mongo.Collection) *Transport {
	return &Transport{
		name:       name,
		client:     client,
		collection: coll,
		logger:     logger.Get().With(zap.String("transport", name), zap.String("collection", coll.Name())),
	}
}

// Name implements core.Transport.
func (t *Transport) Name() string {
	return t.name
}

// SaveObject implements core.Transport. The write is an upsert that only
// sets fields on insert, so an existing document is never rewritten.
func (t *Transport) SaveObject(ctx context.Context, rec *core.Record) error {
	filter := bson.D{{Key: "_id", Value: rec.ID}}
	update := bson.D{{Key: "$setOnInsert", Value: newDocument(rec).insertFields()}}
	res, err := t.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to upsert record").
			WithDetail("id", rec.ID)
	}
	if res.UpsertedCount == 0 {
		t.logger.Debug("record already stored", zap.String("id", rec.ID))
	}
	return nil
}

// GetObject implements core.Reader.
func (t *Transport) GetObject(ctx context.Context, id string) ([]byte, error) {
	var doc document
	err := t.collection.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, core.NotFound(t.name, id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to read record").
			WithDetail("id", id)
	}
	return doc.Data, nil
}

// Containing returns the ids of stored records that have id among their
// descendants.
func (t *Transport) Containing(ctx context.Context, id string) ([]string, error) {
	opts := options.Find().SetProjection(bson.D{{Key: "_id", Value: 1}}).SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := t.collection.Find(ctx, bson.D{{Key: "closure", Value: id}}, opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to query records").
			WithDetail("descendant", id)
	}
	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to read query results").
			WithDetail("descendant", id)
	}
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids, nil
}

// Close implements core.Closer.
func (t *Transport) Close(ctx context.Context) error {
	if t.client == nil {
		return nil
	}
	return t.client.Disconnect(ctx)
}
