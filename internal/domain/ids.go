package domain

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ParseID converts a 24-character hex string into an ObjectID.
// The all-zero id is rejected.
func ParseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(hex))
	if err != nil {
		return primitive.NilObjectID, NewError(KindInvalidIdentifier, "parse id", "", fmt.Errorf("%q: %w", hex, err))
	}
	if id.IsZero() {
		return primitive.NilObjectID, NewError(KindInvalidIdentifier, "parse id", "", fmt.Errorf("%q: zero object id", hex))
	}
	return id, nil
}

// ParseIDs parses every id, stopping at the first invalid one.
func ParseIDs(hexes []string) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(hexes))
	for _, h := range hexes {
		id, err := ParseID(h)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
