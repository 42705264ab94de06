package datastore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shashiranjanraj/canteen/app/models"
)

// Mongo stores orders as documents keyed by a uuid string _id.
type Mongo struct {
	client *mongo.Client
	col    *mongo.Collection
}

// DialMongo connects, pings and makes sure the qr_code and order_date
// indexes exist.
func DialMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).
		SetConnectTimeout(5*time.Second).
		SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("datastore/mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("datastore/mongo: ping: %w", err)
	}

	col := client.Database(database).Collection("orders")
	_, err = col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "qr_code", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "order_date", Value: 1}}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("datastore/mongo: indexes: %w", err)
	}

	return &Mongo{client: client, col: col}, nil
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) error { return m.client.Disconnect(ctx) }

func (m *Mongo) Create(ctx context.Context, o *models.Order) (*models.Order, error) {
	rec := cloneOrder(o)
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if _, err := m.col.InsertOne(ctx, rec); err != nil {
		return nil, backendErr("create", err)
	}
	return rec, nil
}

func (m *Mongo) FindOne(ctx context.Context, f Filter) (*models.Order, error) {
	f, err := f.Validate()
	if err != nil {
		return nil, err
	}

	var o models.Order
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}})
	err = m.col.FindOne(ctx, mongoFilter(f), opts).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, backendErr("find", err)
	}
	return &o, nil
}

func (m *Mongo) Update(ctx context.Context, id string, p Patch, guard Filter) error {
	p, err := p.Validate()
	if err != nil {
		return err
	}
	guard, err = guard.Validate()
	if err != nil {
		return err
	}

	sel := mongoFilter(guard)
	sel = append(sel, bson.E{Key: "_id", Value: id})

	set := bson.D{}
	for _, k := range p.Keys() {
		set = append(set, bson.E{Key: k, Value: p[k]})
	}

	res, err := m.col.UpdateOne(ctx, sel, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return backendErr("update", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := m.col.CountDocuments(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return backendErr("update", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

func mongoFilter(f Filter) bson.D {
	d := bson.D{}
	for _, k := range f.Keys() {
		key := k
		if k == "id" {
			key = "_id"
		}
		d = append(d, bson.E{Key: key, Value: f[k]})
	}
	return d
}
