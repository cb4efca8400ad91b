package db

import (
	"context"
	"errors"

	"extci/internal/jobs"
	"extci/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store persists jobs in MongoDB, one document per job keyed by "id".
type Store struct {
	coll *mongo.Collection
}

func NewStore(coll *mongo.Collection) *Store {
	return &Store{coll: coll}
}

// EnsureIndexes creates the lookup indexes the store relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "ref", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	return err
}

func (s *Store) Create(ctx context.Context, job models.Job) error {
	_, err := s.coll.InsertOne(ctx, job)
	return err
}

func (s *Store) Get(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	if err := s.coll.FindOne(ctx, bson.M{"id": id}).Decode(&job); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, jobs.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

func (s *Store) List(ctx context.Context, filter jobs.ListFilter) ([]models.Job, error) {
	query, opts := listQuery(filter)

	cursor, err := s.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	list := []models.Job{}
	if err := cursor.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// listQuery returns the newest jobs first.
func listQuery(filter jobs.ListFilter) (bson.M, *options.FindOptions) {
	query := bson.M{}
	if filter.Ref != "" {
		query["ref"] = filter.Ref
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	return query, opts
}

func (s *Store) Update(ctx context.Context, job models.Job) error {
	res, err := s.coll.ReplaceOne(ctx, bson.M{"id": job.ID}, job)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return jobs.ErrNotFound
	}
	return nil
}
