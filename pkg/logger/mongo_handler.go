package logger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mongoQueueSize = 4096
	mongoBatchSize = 50
	mongoFlushTick = 2 * time.Second
)

// logDoc is one record in the logs collection. Request and order keys are
// lifted out of attrs and indexed so a token's history can be queried
// directly, e.g. {qr_code: "ORD-..."}.
type logDoc struct {
	Time      time.Time `bson:"time"`
	Level     string    `bson:"level"`
	Msg       string    `bson:"msg"`
	RequestID string    `bson:"request_id,omitempty"`
	OrderID   string    `bson:"order_id,omitempty"`
	QRCode    string    `bson:"qr_code,omitempty"`
	Attrs     bson.M    `bson:"attrs,omitempty"`
}

// sink batches documents from one goroutine. Full queues drop records
// rather than block a request.
type sink struct {
	write    func(ctx context.Context, docs []any) error
	shutdown func(ctx context.Context) error
	queue    chan logDoc
	done     chan struct{}
	stopped  chan struct{}
	once     sync.Once
}

func newSink(write func(context.Context, []any) error, shutdown func(context.Context) error) *sink {
	s := &sink{
		write:    write,
		shutdown: shutdown,
		queue:    make(chan logDoc, mongoQueueSize),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *sink) run() {
	defer close(s.stopped)
	tick := time.NewTicker(mongoFlushTick)
	defer tick.Stop()

	batch := make([]any, 0, mongoBatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = s.write(ctx, batch)
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case d := <-s.queue:
			if batch = append(batch, d); len(batch) >= mongoBatchSize {
				flush()
			}
		case <-tick.C:
			flush()
		case <-s.done:
			for {
				select {
				case d := <-s.queue:
					batch = append(batch, d)
				default:
					flush()
					return
				}
			}
		}
	}
}

func (s *sink) close() {
	s.once.Do(func() {
		close(s.done)
		<-s.stopped
		if s.shutdown != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.shutdown(ctx)
		}
	})
}

// MongoHandler is a slog.Handler writing Info and above to MongoDB.
type MongoHandler struct {
	sink   *sink
	attrs  []slog.Attr
	prefix string
}

// NewMongoHandler connects to uri and writes into db.collection.
func NewMongoHandler(uri, db, collection string) (*MongoHandler, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).
		SetServerSelectionTimeout(5*time.Second).
		SetMaxPoolSize(4))
	if err != nil {
		return nil, fmt.Errorf("logger/mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("logger/mongo: ping: %w", err)
	}

	col := client.Database(db).Collection(collection)
	_, _ = col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "time", Value: -1}}},
		{Keys: bson.D{{Key: "qr_code", Value: 1}, {Key: "time", Value: -1}}},
	})

	write := func(ctx context.Context, docs []any) error {
		_, err := col.InsertMany(ctx, docs)
		return err
	}
	return &MongoHandler{sink: newSink(write, client.Disconnect)}, nil
}

func (h *MongoHandler) Enabled(_ context.Context, l slog.Level) bool { return l >= slog.LevelInfo }

func (h *MongoHandler) Handle(_ context.Context, r slog.Record) error {
	doc := logDoc{Time: r.Time.UTC(), Level: r.Level.String(), Msg: r.Message}
	add := func(a slog.Attr) bool {
		v := a.Value.Resolve()
		switch a.Key {
		case "request_id":
			doc.RequestID = v.String()
		case "order_id":
			doc.OrderID = v.String()
		case "qr_code":
			doc.QRCode = v.String()
		default:
			if doc.Attrs == nil {
				doc.Attrs = bson.M{}
			}
			if err, ok := v.Any().(error); ok {
				doc.Attrs[h.prefix+a.Key] = err.Error()
			} else {
				doc.Attrs[h.prefix+a.Key] = v.Any()
			}
		}
		return true
	}
	for _, a := range h.attrs {
		add(a)
	}
	r.Attrs(add)

	select {
	case h.sink.queue <- doc:
	default:
	}
	return nil
}

func (h *MongoHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &c
}

func (h *MongoHandler) WithGroup(name string) slog.Handler {
	c := *h
	c.prefix = h.prefix + name + "."
	return &c
}

// Close flushes what is queued and disconnects. Safe to call twice.
func (h *MongoHandler) Close() { h.sink.close() }
