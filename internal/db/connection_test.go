package db_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/kjannette/hype-stats-backend/internal/db"
	"github.com/kjannette/hype-stats-backend/internal/models"
	"github.com/kjannette/hype-stats-backend/internal/testutil"
)

var dayStart = time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)

// shuffled so ordering has to come from the query
var fixtureTimes = []time.Time{
	dayStart.Add(8 * time.Hour),
	dayStart.Add(-1 * time.Minute),
	dayStart.Add(23*time.Hour + 59*time.Minute),
	dayStart,
}

var wantTimes = []time.Time{
	dayStart,
	dayStart.Add(8 * time.Hour),
	dayStart.Add(23*time.Hour + 59*time.Minute),
}

func TestNewDialer_Schemes(t *testing.T) {
	cases := []struct {
		url  string
		want any
	}{
		{"mongodb://localhost:27017", &db.MongoDialer{}},
		{"mongodb+srv://cluster0.example.net", &db.MongoDialer{}},
		{"mongodb://h1:27017,h2:27017/?replicaSet=rs0", &db.MongoDialer{}},
		{"mongodb://h1:27017,h2:27017,h3:27017/?replicaSet=rs0", &db.MongoDialer{}},
		{"mongodb://bot:pw@h1:27017,h2:27017/twitch_hype_bot?authSource=admin", &db.MongoDialer{}},
		{"mongodb://h1:27017/?readPreference=secondaryPreferred", &db.MongoDialer{}},
		{"postgres://u:p@localhost:5432/hype", &db.PostgresDialer{}},
		{"postgres://u:p@pg1:5432,pg2:5432/hype?target_session_attrs=read-write", &db.PostgresDialer{}},
		{"postgresql://u:p@localhost:5432/hype", &db.PostgresDialer{}},
	}
	for _, tc := range cases {
		d, err := db.NewDialer(tc.url, "twitch_hype_bot", "hype_stats")
		require.NoError(t, err, tc.url)
		assert.IsType(t, tc.want, d, tc.url)
	}
}

func TestNewDialer_Unsupported(t *testing.T) {
	_, err := db.NewDialer("redis://localhost:6379", "twitch_hype_bot", "hype_stats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}

func TestNewDialer_MalformedURL(t *testing.T) {
	cases := []string{
		"localhost:27017",
		"mongodb://h1:27017/?connectTimeoutMS=abc",
		"mongodb://h1:27017/?replicaSet",
		"mongodb://h1:notaport",
		"postgres://u:p@localhost:5432/hype?sslmode=sometimes",
		"postgres://u:p@localhost:notaport/hype",
	}
	for _, url := range cases {
		d, err := db.NewDialer(url, "twitch_hype_bot", "hype_stats")
		assert.Error(t, err, url)
		assert.Nil(t, d, url)
	}
}

func TestNewPostgresDialer_InvalidTable(t *testing.T) {
	for _, name := range []string{"", "hype stats", "1stats", "stats;drop"} {
		_, err := db.NewPostgresDialer("postgres://localhost/hype", name)
		assert.Error(t, err, "table %q", name)
	}
}

func TestMongoDialer_Unreachable(t *testing.T) {
	d, err := db.NewMongoDialer(
		"mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=250&connectTimeoutMS=250",
		"twitch_hype_bot", "hype_stats",
	)
	require.NoError(t, err)

	conn, err := d.Dial(context.Background())
	require.Error(t, err)
	assert.Nil(t, conn)
	assert.True(t, errors.Is(err, db.ErrConnect), "got %v", err)
}

func TestPostgresDialer_Unreachable(t *testing.T) {
	d, err := db.NewPostgresDialer("postgres://u:p@127.0.0.1:1/hype?connect_timeout=1", "hype_stats")
	require.NoError(t, err)

	conn, err := d.Dial(context.Background())
	require.Error(t, err)
	assert.Nil(t, conn)
	assert.True(t, errors.Is(err, db.ErrConnect), "got %v", err)
}

func TestMongoConn_FindSince(t *testing.T) {
	fx := testutil.SetupMongo(t)
	ctx := context.Background()

	for i, ts := range fixtureTimes {
		_, err := fx.Collection.InsertOne(ctx, bson.M{
			"timestamp": ts,
			"channel":   "hypechan",
			"seq":       i,
			"meta":      bson.M{"source": "eventsub"},
		})
		require.NoError(t, err)
	}

	d, err := db.NewMongoDialer(fx.URL, fx.Database, fx.Collection.Name())
	require.NoError(t, err)
	conn, err := d.Dial(ctx)
	require.NoError(t, err)
	defer conn.Close(ctx)

	require.NoError(t, conn.Ping(ctx))

	recs, err := conn.FindSince(ctx, dayStart)
	require.NoError(t, err)
	assertTimes(t, recs)

	for _, r := range recs {
		assert.Contains(t, r, "_id")
		assert.Equal(t, "hypechan", r["channel"])
		assert.IsType(t, bson.M{}, r["meta"])
	}

	body, err := json.Marshal(recs)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"meta":{"source":"eventsub"}`)
}

func TestMongoConn_FindSince_Empty(t *testing.T) {
	fx := testutil.SetupMongo(t)
	ctx := context.Background()

	d, err := db.NewMongoDialer(fx.URL, fx.Database, fx.Collection.Name())
	require.NoError(t, err)
	conn, err := d.Dial(ctx)
	require.NoError(t, err)
	defer conn.Close(ctx)

	recs, err := conn.FindSince(ctx, dayStart)
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestMongoDialer_UsesURLReadPreference(t *testing.T) {
	fx := testutil.SetupMongo(t)
	ctx := context.Background()

	sep := "?"
	if strings.Contains(fx.URL, "?") {
		sep = "&"
	}
	uri := fx.URL + sep + "readPreference=secondaryPreferred"

	d, err := db.NewMongoDialer(uri, fx.Database, fx.Collection.Name())
	require.NoError(t, err)
	conn, err := d.Dial(ctx)
	require.NoError(t, err)
	defer conn.Close(ctx)

	require.NoError(t, conn.Ping(ctx))
	recs, err := conn.FindSince(ctx, dayStart)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestPostgresConn_FindSince(t *testing.T) {
	fx := testutil.SetupPostgres(t)
	ctx := context.Background()

	for i, ts := range fixtureTimes {
		doc := map[string]any{"channel": "hypechan", "seq": i, "meta": map[string]any{"source": "eventsub"}}
		_, err := fx.Conn.Exec(ctx,
			`INSERT INTO `+fx.Table+` (timestamp, doc) VALUES ($1, $2)`, ts, doc)
		require.NoError(t, err)
	}

	d, err := db.NewPostgresDialer(fx.DSN, fx.Table)
	require.NoError(t, err)
	conn, err := d.Dial(ctx)
	require.NoError(t, err)
	defer conn.Close(ctx)

	require.NoError(t, conn.Ping(ctx))

	recs, err := conn.FindSince(ctx, dayStart)
	require.NoError(t, err)
	assertTimes(t, recs)

	for _, r := range recs {
		assert.Contains(t, r, "_id")
		assert.Equal(t, "hypechan", r["channel"])
		assert.Equal(t, map[string]any{"source": "eventsub"}, r["meta"])
	}
}

func assertTimes(t *testing.T, recs []models.StatsRecord) {
	t.Helper()
	require.Len(t, recs, len(wantTimes))
	for i, r := range recs {
		ts, ok := r.Timestamp()
		require.True(t, ok, "record %d has no timestamp", i)
		assert.True(t, ts.Equal(wantTimes[i]), "record %d: got %s want %s", i, ts, wantTimes[i])
	}
}
