// Package mongo archives committed activity records to MongoDB for
// retention beyond the primary store.
package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Rrens/workspace-access/internal/config"
	"github.com/Rrens/workspace-access/internal/domain"
)

// activityDocument is the archived shape of an activity record
type activityDocument struct {
	ID          string         `bson:"_id"`
	WorkspaceID string         `bson:"workspace_id"`
	Seq         int64          `bson:"seq"`
	ActorID     *string        `bson:"actor_id,omitempty"`
	Action      string         `bson:"action"`
	TargetType  string         `bson:"target_type"`
	TargetID    string         `bson:"target_id"`
	Details     map[string]any `bson:"details,omitempty"`
	CreatedAt   time.Time      `bson:"created_at"`
}

func toDocument(r domain.ActivityRecord) activityDocument {
	doc := activityDocument{
		ID:          r.ID.String(),
		WorkspaceID: r.WorkspaceID.String(),
		Seq:         r.Seq,
		Action:      r.Action,
		TargetType:  r.TargetType,
		TargetID:    r.TargetID,
		Details:     r.Details,
		CreatedAt:   r.CreatedAt,
	}
	if r.ActorID != nil {
		actor := r.ActorID.String()
		doc.ActorID = &actor
	}
	return doc
}

func (d activityDocument) record() (domain.ActivityRecord, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return domain.ActivityRecord{}, fmt.Errorf("invalid archived id %q: %w", d.ID, err)
	}
	workspaceID, err := uuid.Parse(d.WorkspaceID)
	if err != nil {
		return domain.ActivityRecord{}, fmt.Errorf("invalid archived workspace id %q: %w", d.WorkspaceID, err)
	}
	rec := domain.ActivityRecord{
		ID:          id,
		WorkspaceID: workspaceID,
		Seq:         d.Seq,
		Action:      d.Action,
		TargetType:  d.TargetType,
		TargetID:    d.TargetID,
		Details:     d.Details,
		CreatedAt:   d.CreatedAt.UTC(),
	}
	if d.ActorID != nil {
		actor, err := uuid.Parse(*d.ActorID)
		if err != nil {
			return domain.ActivityRecord{}, fmt.Errorf("invalid archived actor id %q: %w", *d.ActorID, err)
		}
		rec.ActorID = &actor
	}
	return rec, nil
}

// Archive stores activity records in a MongoDB collection
type Archive struct {
	client     *mongo.Client
	collection *mongo.Collection
	timeout    time.Duration
}

// NewArchive connects to MongoDB and prepares the archive collection
func NewArchive(ctx context.Context, cfg config.ArchiveConfig) (*Archive, error) {
	clientOpts := options.Client().ApplyURI(cfg.URI)
	if cfg.Timeout > 0 {
		clientOpts.SetConnectTimeout(cfg.Timeout)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	a := &Archive{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		timeout:    cfg.Timeout,
	}
	if err := a.ensureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *Archive) ensureIndexes(ctx context.Context) error {
	_, err := a.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "workspace_id", Value: 1}, {Key: "seq", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create archive index: %w", err)
	}
	return nil
}

func (a *Archive) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

// Archive inserts records. Records already archived are skipped, so a
// retried export is harmless.
func (a *Archive) Archive(ctx context.Context, records []domain.ActivityRecord) error {
	if len(records) == 0 {
		return nil
	}
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	docs := make([]any, 0, len(records))
	for _, r := range records {
		docs = append(docs, toDocument(r))
	}

	_, err := a.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil && !onlyDuplicates(err) {
		return fmt.Errorf("failed to archive activity: %w", err)
	}
	return nil
}

func onlyDuplicates(err error) bool {
	bwe, ok := err.(mongo.BulkWriteException)
	if !ok {
		return false
	}
	if bwe.WriteConcernError != nil || len(bwe.WriteErrors) == 0 {
		return false
	}
	for _, we := range bwe.WriteErrors {
		if !mongo.IsDuplicateKeyError(we) {
			return false
		}
	}
	return true
}

// ListAfter reads archived records of a workspace in sequence order
func (a *Archive) ListAfter(ctx context.Context, workspaceID uuid.UUID, afterSeq int64, limit int) ([]domain.ActivityRecord, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := a.collection.Find(ctx, bson.M{
		"workspace_id": workspaceID.String(),
		"seq":          bson.M{"$gt": afterSeq},
	}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query archive: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []activityDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode archive: %w", err)
	}

	out := make([]domain.ActivityRecord, 0, len(docs))
	for _, d := range docs {
		rec, err := d.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Ping verifies MongoDB connectivity
func (a *Archive) Ping(ctx context.Context) error {
	return a.client.Ping(ctx, nil)
}

// Close disconnects from MongoDB
func (a *Archive) Close() error {
	return a.client.Disconnect(context.Background())
}
