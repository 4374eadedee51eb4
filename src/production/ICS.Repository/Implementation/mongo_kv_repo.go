package implementation

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	interfaces "gitlab.com/maplesense1/mpt.iclock_server/src/production/ICS.Repository/Interfaces"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// kvDocument is the stored shape: the key doubles as the document _id and
// the value keeps its JSON encoding.
type kvDocument struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value,omitempty"`
	UpdatedAt time.Time `bson:"updated_at,omitempty"`
}

type MongoKVStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func NewMongoKVStore(client *mongo.Client, coll *mongo.Collection) *MongoKVStore {
	return &MongoKVStore{client: client, coll: coll}
}

func (s *MongoKVStore) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	var doc kvDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, interfaces.NewStoreError("get", key, err)
	}

	if err := decodeValue([]byte(doc.Value), dst); err != nil {
		return false, interfaces.NewStoreError("get", key, err)
	}
	return true, nil
}

// Put upserts the value
func (s *MongoKVStore) Put(ctx context.Context, key string, value interface{}) error {
	raw, err := encodeValue(value)
	if err != nil {
		return interfaces.NewStoreError("put", key, err)
	}

	doc := kvDocument{Key: key, Value: string(raw), UpdatedAt: time.Now().UTC()}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.coll.ReplaceOne(ctx, bson.M{"_id": key}, doc, opts); err != nil {
		return interfaces.NewStoreError("put", key, err)
	}
	return nil
}

func (s *MongoKVStore) Delete(ctx context.Context, key string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return interfaces.NewStoreError("delete", key, err)
	}
	return nil
}

func (s *MongoKVStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	filter := bson.M{"_id": bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}}
	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, interfaces.NewStoreError("keys", prefix, err)
	}

	var docs []kvDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, interfaces.NewStoreError("keys", prefix, err)
	}

	keys := make([]string, 0, len(docs))
	for _, doc := range docs {
		keys = append(keys, doc.Key)
	}
	return keys, nil
}

func (s *MongoKVStore) Ping(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("mongo client is nil")
	}
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoKVStore) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
