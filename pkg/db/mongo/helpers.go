package mongo

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithTimeout bounds ctx by timeout unless it already expires sooner. Session
// contexts are returned unchanged so transactions keep their session.
func WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		return context.WithDeadline(ctx, deadline)
	}
	return context.WithTimeout(ctx, timeout)
}

// IDOrSlugFilter matches a document by ObjectID when ref is a valid hex id
// and by slug otherwise.
func IDOrSlugFilter(ref string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(ref); err == nil {
		return bson.M{"_id": oid}
	}
	return bson.M{"slug": ref}
}

// ContainsInsensitive builds a case-insensitive regex match for user input.
func ContainsInsensitive(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

// ParseIDs converts hex ids, failing on the first malformed one.
func ParseIDs(ids []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, err
		}
		out = append(out, oid)
	}
	return out, nil
}

func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// SortFrom turns a "field" or "-field" query value into a sort document.
// Only keys present in allowed are honoured; allowed maps the public name to
// the stored field path.
func SortFrom(value string, allowed map[string]string, fallback bson.D) bson.D {
	if value == "" {
		return fallback
	}
	dir := 1
	key := value
	if key[0] == '-' {
		dir = -1
		key = key[1:]
	}
	field, ok := allowed[key]
	if !ok {
		return fallback
	}
	return bson.D{{Key: field, Value: dir}, {Key: "_id", Value: dir}}
}
