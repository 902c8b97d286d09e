package services_test

import (
	"context"
	"os"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"swisswheels/app/internal/db"
)

// setupTestDB connects to the test MongoDB, drops the named collections and
// recreates the indexes the services rely on. Tests using it are skipped when
// MONGO_URI_TEST is not set.
func setupTestDB(t *testing.T, dbName string, collections ...string) *mongo.Database {
	t.Helper()

	godotenv.Load("../../.env")
	uri := os.Getenv("MONGO_URI_TEST")
	if uri == "" {
		t.Skip("MONGO_URI_TEST not set, skipping MongoDB-backed test")
	}

	// Drop first so ConnectDB recreates the indexes on empty collections.
	raw, err := mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
	require.NoError(t, err, "failed to connect to test MongoDB")
	for _, coll := range collections {
		require.NoError(t, raw.Database(dbName).Collection(coll).Drop(context.Background()))
	}
	require.NoError(t, raw.Disconnect(context.Background()))

	client, database, err := db.ConnectDB(uri, dbName)
	require.NoError(t, err, "failed to connect to test MongoDB")
	t.Cleanup(func() {
		for _, coll := range collections {
			_ = database.Collection(coll).Drop(context.Background())
		}
		_ = db.DisconnectDB(client)
	})
	return database
}
