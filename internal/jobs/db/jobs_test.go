package db

import (
	"context"
	"testing"

	"extci/internal/jobs"
	"extci/internal/models"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestListQuery(t *testing.T) {
	query, opts := listQuery(jobs.ListFilter{})
	require.Empty(t, query)
	require.Nil(t, opts.Limit)
	require.Equal(t, bson.D{{Key: "createdAt", Value: -1}}, opts.Sort)

	query, opts = listQuery(jobs.ListFilter{Ref: "refs/heads/master", Status: models.JobStatusFailure, Limit: 20})
	require.Equal(t, bson.M{"ref": "refs/heads/master", "status": models.JobStatusFailure}, query)
	require.NotNil(t, opts.Limit)
	require.EqualValues(t, 20, *opts.Limit)
}

func TestStoreAgainstMockDeployment(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("get decodes job", func(mt *mtest.T) {
		store := NewStore(mt.Coll)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "id", Value: "job-1"},
			{Key: "ref", Value: "refs/heads/master"},
			{Key: "status", Value: "failure"},
			{Key: "failure", Value: "compile"},
		}))

		job, err := store.Get(context.Background(), "job-1")
		require.NoError(mt, err)
		require.Equal(mt, "job-1", job.ID)
		require.Equal(mt, models.JobStatusFailure, job.Status)
		require.Equal(mt, models.FailureCompile, job.Failure)
	})

	mt.Run("get missing job", func(mt *mtest.T) {
		store := NewStore(mt.Coll)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := store.Get(context.Background(), "nope")
		require.ErrorIs(mt, err, jobs.ErrNotFound)
	})

	mt.Run("list keeps cursor order", func(mt *mtest.T) {
		store := NewStore(mt.Coll)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "id", Value: "new"}, {Key: "ref", Value: "refs/heads/master"}},
			bson.D{{Key: "id", Value: "old"}, {Key: "ref", Value: "refs/heads/master"}},
		))

		list, err := store.List(context.Background(), jobs.ListFilter{Ref: "refs/heads/master"})
		require.NoError(mt, err)
		require.Len(mt, list, 2)
		require.Equal(mt, "new", list[0].ID)
		require.Equal(mt, "old", list[1].ID)
	})

	mt.Run("update of unknown job", func(mt *mtest.T) {
		store := NewStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		err := store.Update(context.Background(), models.Job{ID: "ghost"})
		require.ErrorIs(mt, err, jobs.ErrNotFound)
	})

	mt.Run("create", func(mt *mtest.T) {
		store := NewStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		require.NoError(mt, store.Create(context.Background(), models.NewJob("job-2", models.PushEvent{Ref: "refs/heads/master"})))
	})
}
