package database

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const pingTimeout = 10 * time.Second

// pingWithin bounds a startup connectivity check.
func pingWithin(ctx context.Context, ping func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return ping(ctx)
}

// Mongo is the process-wide MongoDB handle. It is built once in main and passed to the repositories.
type Mongo struct {
	Client *mongo.Client
	DB     *mongo.Database

	// SupportsTransactions is false against a standalone server (no replica set).
	SupportsTransactions bool

	log logrus.FieldLogger
}

func ConnectMongo(ctx context.Context, mongoURI, dbName string, log logrus.FieldLogger) (*Mongo, error) {
	// Atlas clusters can take a while to answer the first handshake
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(mongoURI)
	clientOptions.SetServerSelectionTimeout(10 * time.Second)

	log.Info("connecting to MongoDB")
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	ping := func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) }
	if err := pingWithin(ctx, ping); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	m := &Mongo{
		Client: client,
		DB:     client.Database(dbName),
		log:    log,
	}
	m.SupportsTransactions = detectTransactions(ctx, m.DB)

	log.WithField("database", dbName).Info("connected to MongoDB")
	return m, nil
}

// detectTransactions asks the server whether it is a replica set member or a mongos.
func detectTransactions(ctx context.Context, db *mongo.Database) bool {
	var hello struct {
		SetName string `bson:"setName"`
		Msg     string `bson:"msg"`
	}
	if err := db.RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		return false
	}
	return hello.SetName != "" || hello.Msg == "isdbgrid"
}

// ErrNoTransactions is returned by RequireTransactions against a standalone server.
var ErrNoTransactions = errors.New("MongoDB does not support transactions: run a replica set or set MONGO_ALLOW_STANDALONE in development")

// RequireTransactions fails when the server cannot pair entry and mood writes atomically,
// unless allowStandalone is set.
func (m *Mongo) RequireTransactions(allowStandalone bool) error {
	if m.SupportsTransactions {
		return nil
	}
	if !allowStandalone {
		return ErrNoTransactions
	}
	m.log.Warn("MongoDB is not a replica set; paired writes will run without a transaction")
	return nil
}

// WithTransaction runs fn inside a session transaction. The transaction aborts if fn returns an error.
// Against a standalone server fn runs directly; RequireTransactions limits that to development.
func (m *Mongo) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !m.SupportsTransactions {
		return fn(ctx)
	}

	session, err := m.Client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// Ping is used by the health endpoint.
func (m *Mongo) Ping(ctx context.Context) error {
	return m.Client.Ping(ctx, readpref.Primary())
}

func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return m.Client.Disconnect(ctx)
}
