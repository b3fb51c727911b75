package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/atelier/profile-portal/internal/core/ports"
)

// Enqueuer accepts changes for ordered delivery.
type Enqueuer interface {
	Enqueue(ctx context.Context, change ports.DocumentChange) error
}

const (
	defaultRetryDelay  = time.Second
	defaultMaxBackoff  = 30 * time.Second
	defaultMaxFailures = 8
)

var (
	errStreamEnded = errors.New("change stream ended")
	errOpenStream  = errors.New("open change stream")
)

// changeStream is the part of *mongo.ChangeStream the watcher reads.
type changeStream interface {
	Next(ctx context.Context) bool
	Decode(v interface{}) error
	Err() error
	Close(ctx context.Context) error
	ResumeToken() bson.Raw
}

// Watcher tails the database change stream and forwards every document write
// to the dispatcher. Change streams need a replica set. A stream that ends or
// fails is reopened after the last seen event with exponential backoff; Run
// gives up after maxFailures consecutive attempts that delivered nothing.
type Watcher struct {
	open  func(ctx context.Context, resumeAfter bson.Raw) (changeStream, error)
	queue Enqueuer
	log   zerolog.Logger

	retryDelay  time.Duration
	maxBackoff  time.Duration
	maxFailures int
}

func NewWatcher(db *mongo.Database, queue Enqueuer, log zerolog.Logger) *Watcher {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "operationType", Value: bson.D{{Key: "$in", Value: watchedOperations}}}}}},
	}
	return &Watcher{
		open: func(ctx context.Context, resumeAfter bson.Raw) (changeStream, error) {
			opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
			if resumeAfter != nil {
				opts.SetResumeAfter(resumeAfter)
			}
			cs, err := db.Watch(ctx, pipeline, opts)
			if err != nil {
				return nil, err
			}
			return cs, nil
		},
		queue:       queue,
		log:         log.With().Str("database", db.Name()).Logger(),
		retryDelay:  defaultRetryDelay,
		maxBackoff:  defaultMaxBackoff,
		maxFailures: defaultMaxFailures,
	}
}

type changeEvent struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID bson.RawValue `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument bson.Raw `bson:"fullDocument"`
}

var watchedOperations = bson.A{"insert", "update", "replace", "delete"}

// Run blocks until ctx is cancelled, reopening the stream whenever it ends.
func (w *Watcher) Run(ctx context.Context) error {
	var resume bson.Raw
	failures := 0
	delay := w.retryDelay

	for {
		delivered, token, err := w.watch(ctx, resume)
		if ctx.Err() != nil {
			return nil
		}
		switch {
		case token != nil:
			resume = token
		case errors.Is(err, errOpenStream) && resume != nil:
			// the resume point may have left the oplog; start from now
			resume = nil
		}
		if delivered > 0 {
			failures = 0
			delay = w.retryDelay
		}
		failures++
		if failures > w.maxFailures {
			return fmt.Errorf("change stream: giving up after %d attempts: %w", failures-1, err)
		}

		w.log.Warn().Err(err).Dur("retry_in", delay).Int("attempt", failures).Msg("change stream interrupted")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		delay = min(delay*2, w.maxBackoff)
	}
}

// watch consumes one stream until it ends. It reports how many changes were
// enqueued and the resume token of the last event read.
func (w *Watcher) watch(ctx context.Context, resumeAfter bson.Raw) (int, bson.Raw, error) {
	cs, err := w.open(ctx, resumeAfter)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", errOpenStream, err)
	}
	defer cs.Close(context.WithoutCancel(ctx))

	w.log.Info().Bool("resumed", resumeAfter != nil).Msg("watching document changes")

	var token bson.Raw
	delivered := 0
	for cs.Next(ctx) {
		token = cs.ResumeToken()
		var ev changeEvent
		if err := cs.Decode(&ev); err != nil {
			w.log.Warn().Err(err).Msg("undecodable change event")
			continue
		}
		change, ok := toChange(ev)
		if !ok {
			continue
		}
		if err := w.queue.Enqueue(ctx, change); err != nil {
			return delivered, token, err
		}
		delivered++
	}

	if err := cs.Err(); err != nil {
		return delivered, token, fmt.Errorf("change stream: %w", err)
	}
	return delivered, token, errStreamEnded
}

// toChange skips documents whose _id is not a path, such as GridFS chunks.
func toChange(ev changeEvent) (ports.DocumentChange, bool) {
	path, ok := ev.DocumentKey.ID.StringValueOK()
	if !ok || path == "" {
		return ports.DocumentChange{}, false
	}
	if ev.OperationType == "delete" || len(ev.FullDocument) == 0 {
		return ports.DocumentChange{Path: path, Deleted: true}, true
	}
	return ports.DocumentChange{Path: path, Data: ev.FullDocument}, true
}
