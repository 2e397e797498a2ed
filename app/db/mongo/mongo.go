package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mp3bot/m/v2/app/db"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const DocumentsCollection = "documents"

// Client is a mongo client storing whole documents in a single collection.
// Documents are kept as JSON strings so they match the file and redis stores byte for byte.
type Client struct {
	*mongo.Client
	dbName string
}

type storedDocument struct {
	ID        string    `bson:"_id"`
	Data      string    `bson:"data"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// NewClient creates a new mongo client
func NewClient(connection string, dbName string) *Client {
	return &Client{
		Client: mustConnect(connection),
		dbName: dbName,
	}
}

// mustConnect connects to mongo and panics on error
func mustConnect(connection string) *mongo.Client {
	client, err := mongo.NewClient(options.Client().ApplyURI(connection).SetMaxConnecting(25))
	if err != nil {
		logrus.WithError(err).Panic("failed to create mongo client")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = client.Connect(ctx)
	if err != nil {
		logrus.WithError(err).Panic("failed to connect to mongo")
	}

	return client
}

func (c *Client) collection() *mongo.Collection {
	return c.Database(c.dbName).Collection(DocumentsCollection)
}

func (c *Client) Load(ctx context.Context, name string, v any) error {
	var stored storedDocument
	err := c.collection().FindOne(ctx, bson.M{"_id": name}).Decode(&stored)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return db.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("Load: failed to find %s: %w", name, err)
	}
	if err := json.Unmarshal([]byte(stored.Data), v); err != nil {
		return fmt.Errorf("Load: failed to parse %s: %w", name, err)
	}
	return nil
}

func (c *Client) Save(ctx context.Context, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("Save: failed to marshal %s: %w", name, err)
	}
	document := storedDocument{ID: name, Data: string(data), UpdatedAt: time.Now().UTC()}
	_, err = c.collection().ReplaceOne(ctx, bson.M{"_id": name}, document, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("Save: failed to upsert %s: %w", name, err)
	}
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx, readpref.Primary())
}

func (c *Client) Close(ctx context.Context) error {
	return c.Disconnect(ctx)
}
