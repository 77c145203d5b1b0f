package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/giovaniif/stock-records/domain/record"
)

const (
	recordsCollection = "stock_records"
	maxUpdateAttempts = 5
)

var ErrConcurrentUpdate = errors.New("stock record changed concurrently")

// documentID is stored as the _id sub-document, so the pair itself is the
// unique key.
type documentID struct {
	ProductID string `bson:"product_id"`
	Location  string `bson:"location"`
}

type recordDocument struct {
	Id               documentID `bson:"_id"`
	OnHand           int32      `bson:"on_hand"`
	Reserved         int32      `bson:"reserved"`
	ReorderThreshold int32      `bson:"reorder_threshold"`
	MaxCapacity      int32      `bson:"max_capacity"`
	Version          int64      `bson:"version"`
	UpdatedAt        time.Time  `bson:"updated_at"`
}

func toDocument(r *record.StockRecord, version int64) recordDocument {
	return recordDocument{
		Id:               documentID{ProductID: r.ProductID(), Location: r.Location()},
		OnHand:           r.OnHand(),
		Reserved:         r.Reserved(),
		ReorderThreshold: r.ReorderThreshold(),
		MaxCapacity:      r.MaxCapacity(),
		Version:          version,
		UpdatedAt:        time.Now().UTC(),
	}
}

func (d recordDocument) toRecord() (*record.StockRecord, error) {
	return record.Restore(d.Id.ProductID, d.Id.Location, d.OnHand, d.Reserved, d.ReorderThreshold, d.MaxCapacity)
}

// documentStore is the slice of a collection the repository needs.
// replace reports whether a document with the expected version was found.
type documentStore interface {
	insert(ctx context.Context, doc recordDocument) error
	findOne(ctx context.Context, id documentID) (recordDocument, error)
	findAll(ctx context.Context) ([]recordDocument, error)
	replace(ctx context.Context, expectedVersion int64, doc recordDocument) (bool, error)
}

type mongoCollection struct {
	collection *mongo.Collection
}

func (c mongoCollection) insert(ctx context.Context, doc recordDocument) error {
	_, err := c.collection.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return record.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("mongo insert: %w", err)
	}
	return nil
}

func (c mongoCollection) findOne(ctx context.Context, id documentID) (recordDocument, error) {
	var doc recordDocument
	err := c.collection.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return recordDocument{}, record.ErrNotFound
	}
	if err != nil {
		return recordDocument{}, fmt.Errorf("mongo find: %w", err)
	}
	return doc, nil
}

func (c mongoCollection) findAll(ctx context.Context) ([]recordDocument, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id.product_id", Value: 1}, {Key: "_id.location", Value: 1}})
	cursor, err := c.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find: %w", err)
	}
	var docs []recordDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo decode: %w", err)
	}
	return docs, nil
}

func (c mongoCollection) replace(ctx context.Context, expectedVersion int64, doc recordDocument) (bool, error) {
	filter := bson.D{{Key: "_id", Value: doc.Id}, {Key: "version", Value: expectedVersion}}
	result, err := c.collection.ReplaceOne(ctx, filter, doc)
	if err != nil {
		return false, fmt.Errorf("mongo replace: %w", err)
	}
	return result.MatchedCount == 1, nil
}

// RecordRepositoryMongo guards updates with a version field instead of locks.
type RecordRepositoryMongo struct {
	client *mongo.Client
	store  documentStore
}

func NewRecordRepositoryMongo(ctx context.Context, uri, dbName string) (*RecordRepositoryMongo, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return &RecordRepositoryMongo{
		client: client,
		store:  mongoCollection{collection: client.Database(dbName).Collection(recordsCollection)},
	}, nil
}

func (r *RecordRepositoryMongo) Create(ctx context.Context, created *record.StockRecord) error {
	return r.store.insert(ctx, toDocument(created, 1))
}

func (r *RecordRepositoryMongo) Get(ctx context.Context, productID, location string) (*record.StockRecord, error) {
	doc, err := r.store.findOne(ctx, documentID{ProductID: productID, Location: location})
	if err != nil {
		return nil, err
	}
	return doc.toRecord()
}

func (r *RecordRepositoryMongo) List(ctx context.Context) ([]*record.StockRecord, error) {
	docs, err := r.store.findAll(ctx)
	if err != nil {
		return nil, err
	}
	list := make([]*record.StockRecord, 0, len(docs))
	for _, doc := range docs {
		found, err := doc.toRecord()
		if err != nil {
			return nil, err
		}
		list = append(list, found)
	}
	return list, nil
}

// Update re-reads and re-applies fn when another writer bumped the version
// in between, up to maxUpdateAttempts times.
func (r *RecordRepositoryMongo) Update(ctx context.Context, productID, location string, fn func(*record.StockRecord) error) (*record.StockRecord, error) {
	id := documentID{ProductID: productID, Location: location}
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		doc, err := r.store.findOne(ctx, id)
		if err != nil {
			return nil, err
		}
		working, err := doc.toRecord()
		if err != nil {
			return nil, err
		}
		if err := fn(working); err != nil {
			return nil, err
		}

		replaced, err := r.store.replace(ctx, doc.Version, toDocument(working, doc.Version+1))
		if err != nil {
			return nil, err
		}
		if replaced {
			return working, nil
		}
	}
	return nil, fmt.Errorf("mongo update %s: %w", record.Key(productID, location), ErrConcurrentUpdate)
}

func (r *RecordRepositoryMongo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

func (r *RecordRepositoryMongo) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
