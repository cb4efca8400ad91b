package operators

import (
	"context"
	"errors"
	"sync"

	"extci/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("operator does not exist")

type Store interface {
	Get(ctx context.Context, username string) (*models.Operator, error)
	Put(ctx context.Context, op models.Operator) error
}

type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

func (s *MongoStore) Get(ctx context.Context, username string) (*models.Operator, error) {
	var op models.Operator
	err := s.coll.FindOne(ctx, bson.M{"username": username}).Decode(&op)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if op.Password == "" {
		return nil, ErrNotFound
	}
	return &op, nil
}

// Put upserts op keyed by username.
func (s *MongoStore) Put(ctx context.Context, op models.Operator) error {
	_, err := s.coll.UpdateOne(
		ctx,
		bson.M{"username": op.Username},
		bson.M{"$set": bson.M{"username": op.Username, "password": op.Password}},
		options.Update().SetUpsert(true),
	)
	return err
}

type MemoryStore struct {
	mu  sync.RWMutex
	ops map[string]models.Operator
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ops: map[string]models.Operator{}}
}

func (s *MemoryStore) Get(_ context.Context, username string) (*models.Operator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	op, ok := s.ops[username]
	if !ok {
		return nil, ErrNotFound
	}
	return &op, nil
}

func (s *MemoryStore) Put(_ context.Context, op models.Operator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops[op.Username] = op
	return nil
}
