package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/kjannette/hype-stats-backend/internal/models"
)

type MongoDialer struct {
	uri        string
	database   string
	collection string
}

// NewMongoDialer checks uri with the driver's own connection string parser,
// which accepts replica-set host lists and rejects unknown or bad options.
func NewMongoDialer(uri, database, collection string) (*MongoDialer, error) {
	if _, err := connstring.ParseAndValidate(syntaxOnly(uri)); err != nil {
		return nil, fmt.Errorf("invalid mongo url: %w", err)
	}
	return &MongoDialer{uri: uri, database: database, collection: collection}, nil
}

// syntaxOnly rewrites a mongodb+srv URL to plain mongodb so validation does
// not resolve SRV records; the lookup happens on Dial.
func syntaxOnly(uri string) string {
	if rest, ok := strings.CutPrefix(uri, connstring.SchemeMongoDBSRV+"://"); ok {
		return connstring.SchemeMongoDB + "://" + rest
	}
	return uri
}

// Dial connects a new client and pings it so that an unreachable server
// fails here rather than on the first query. The ping honours the
// readPreference from the URL.
func (d *MongoDialer) Dial(ctx context.Context) (Conn, error) {
	opts := options.Client().
		ApplyURI(d.uri).
		// Nested documents decode to maps so they encode to JSON objects.
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, connectErr(err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, connectErr(err)
	}

	return &mongoConn{
		client: client,
		coll:   client.Database(d.database).Collection(d.collection),
	}, nil
}

type mongoConn struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func (c *mongoConn) FindSince(ctx context.Context, since time.Time) ([]models.StatsRecord, error) {
	filter := bson.M{"timestamp": bson.M{"$gte": since}}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})

	cur, err := c.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, queryErr(err)
	}
	defer cur.Close(ctx)

	out := []models.StatsRecord{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, queryErr(err)
	}
	return out, nil
}

func (c *mongoConn) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx, nil); err != nil {
		return connectErr(err)
	}
	return nil
}

func (c *mongoConn) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
