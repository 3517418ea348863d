package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const testDatabase = "twitch_hype_bot_test"

// MongoFixture is a throwaway collection in a live MongoDB.
type MongoFixture struct {
	URL        string
	Database   string
	Collection *mongo.Collection
}

// SetupMongo connects to TEST_MONGO_URL and creates a uniquely named
// collection that is dropped when the test ends. Skips when unset.
func SetupMongo(t *testing.T) *MongoFixture {
	t.Helper()

	_ = godotenv.Load("../../.env")

	uri := os.Getenv("TEST_MONGO_URL")
	if uri == "" {
		t.Skip("TEST_MONGO_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	coll := client.Database(testDatabase).Collection(uniqueName("hype_stats"))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = coll.Drop(ctx)
		_ = client.Disconnect(ctx)
	})

	return &MongoFixture{URL: uri, Database: testDatabase, Collection: coll}
}

// PostgresFixture is a throwaway document table in a live PostgreSQL.
type PostgresFixture struct {
	DSN   string
	Table string
	Conn  *pgx.Conn
}

// SetupPostgres connects to TEST_DATABASE_URL and creates a uniquely named
// hype stats table that is dropped when the test ends. Skips when unset.
func SetupPostgres(t *testing.T) *PostgresFixture {
	t.Helper()

	_ = godotenv.Load("../../.env")

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	table := uniqueName("hype_stats")
	ident := pgx.Identifier{table}.Sanitize()
	_, err = conn.Exec(ctx, `CREATE TABLE `+ident+` (
		id        BIGSERIAL PRIMARY KEY,
		timestamp TIMESTAMPTZ NOT NULL,
		doc       JSONB NOT NULL DEFAULT '{}'
	)`)
	if err != nil {
		conn.Close(ctx)
		t.Fatalf("create table: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, _ = conn.Exec(ctx, `DROP TABLE IF EXISTS `+ident)
		conn.Close(ctx)
	})

	return &PostgresFixture{DSN: dsn, Table: table, Conn: conn}
}

func uniqueName(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
}
