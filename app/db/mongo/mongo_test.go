package mongo

import (
	"context"
	"errors"
	"strings"
	"testing"

	"mp3bot/m/v2/app/db"

	"github.com/stretchr/testify/assert"
	"github.com/tryvium-travels/memongo"
)

var MockMongoServer *memongo.Server

func TestMain(m *testing.M) {
	MockMongoServer, _ = memongo.Start("6.0.13")
	if MockMongoServer != nil {
		defer MockMongoServer.Stop()
	}
	m.Run()
}

func newTestClient(t *testing.T) *Client {
	if MockMongoServer == nil {
		t.Skip("memongo server is not available")
	}
	uri := MockMongoServer.URIWithRandomDB()
	dbName := uri[strings.LastIndex(uri, "/")+1:]
	return NewClient(uri, dbName)
}

type subscription struct {
	ExpiresAt   string `json:"expiresAt"`
	ActivatedBy string `json:"activatedBy"`
}

func TestSaveAndLoad(t *testing.T) {
	client := newTestClient(t)
	defer client.Close(context.Background())
	ctx := context.Background()

	err := client.Save(ctx, "subscriptions", map[string]subscription{"292902807": {ExpiresAt: "2024-08-06T12:00:00Z", ActivatedBy: "payment"}})
	assert.NoError(t, err)
	err = client.Save(ctx, "subscriptions", map[string]subscription{"292902807": {ExpiresAt: "2024-09-05T12:00:00Z", ActivatedBy: "admin"}})
	assert.NoError(t, err)

	var got map[string]subscription
	assert.NoError(t, client.Load(ctx, "subscriptions", &got))
	assert.Equal(t, "admin", got["292902807"].ActivatedBy)
	assert.Equal(t, "2024-09-05T12:00:00Z", got["292902807"].ExpiresAt)

	count, err := client.Database(client.dbName).Collection(DocumentsCollection).CountDocuments(ctx, map[string]any{})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestLoadMissing(t *testing.T) {
	client := newTestClient(t)
	defer client.Close(context.Background())

	var got map[string]subscription
	err := client.Load(context.Background(), "payments", &got)
	assert.True(t, errors.Is(err, db.ErrNotFound))
	assert.NoError(t, client.Ping(context.Background()))
}
