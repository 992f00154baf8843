package migrations

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"triage/internal/constants"
)

// EnsureAuditIndexes creates the indexes the audit MongoStore queries by.
// The collection itself is created on first insert.
func EnsureAuditIndexes(ctx context.Context, db *mongo.Database) error {
	collection := db.Collection(constants.AuditEventsCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_audit_events_created_at"),
		},
		{
			Keys:    bson.D{{Key: "entity_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_audit_events_entity_created_at"),
		},
		{
			Keys:    bson.D{{Key: "action", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_audit_events_action_created_at"),
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		if !strings.Contains(err.Error(), "already exists") {
			return fmt.Errorf("failed to create audit indexes: %w", err)
		}
	}

	return nil
}
