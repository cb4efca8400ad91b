package db

import (
	"context"
	"fmt"
	"time"

	"extci/internal/env"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var Ctx = context.Background()
var RDB *redis.Client
var Client *mongo.Client

var (
	Jobs      *mongo.Collection
	Events    *mongo.Collection
	Operators *mongo.Collection
)

const connectTimeout = 10 * time.Second

func InitDB(deployment string) error {
	ctx, cancel := context.WithTimeout(Ctx, connectTimeout)
	defer cancel()

	var err error
	Client, err = mongo.Connect(
		ctx,
		options.Client().ApplyURI(env.Cfg.MongoURI),
	)
	if err != nil {
		return err
	}

	if err := Client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("could not connect to mongodb: %w", err)
	}

	database := env.Cfg.MongoDatabase
	if deployment != "" && deployment != "prod" {
		database += "_" + deployment
	}

	// loading collections
	Jobs = GetCollection(database, "jobs", Client)
	Events = GetCollection(database, "events", Client)
	Operators = GetCollection(database, "operators", Client)

	return nil
}

func GetCollection(database string, collectionName string, client *mongo.Client) *mongo.Collection {
	return client.Database(database).Collection(collectionName)
}

func InitCache() error {
	RDB = redis.NewClient(&redis.Options{
		Addr: env.Cfg.RedisAddr,
		DB:   env.Cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(Ctx, connectTimeout)
	defer cancel()

	if err := RDB.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("could not connect to redis: %w", err)
	}
	return nil
}

// Close releases both connections. It is safe to call before Init.
func Close() {
	if RDB != nil {
		_ = RDB.Close()
	}
	if Client != nil {
		ctx, cancel := context.WithTimeout(Ctx, connectTimeout)
		defer cancel()
		_ = Client.Disconnect(ctx)
	}
}
