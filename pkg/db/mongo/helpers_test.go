package mongo

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestWithTimeout(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), time.Second)
	defer cancel()
	deadline, ok := ctx.Deadline()
	if !ok || time.Until(deadline) > time.Second {
		t.Errorf("expected deadline within 1s, got %v", deadline)
	}

	parent, parentCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer parentCancel()
	ctx, cancel = WithTimeout(parent, time.Hour)
	defer cancel()
	deadline, _ = ctx.Deadline()
	if time.Until(deadline) > 50*time.Millisecond {
		t.Error("shorter parent deadline must win")
	}
}

func TestIDOrSlugFilter(t *testing.T) {
	oid := primitive.NewObjectID()
	if f := IDOrSlugFilter(oid.Hex()); f["_id"] != oid {
		t.Errorf("expected id filter, got %v", f)
	}
	if f := IDOrSlugFilter("colosseum-tour"); f["slug"] != "colosseum-tour" {
		t.Errorf("expected slug filter, got %v", f)
	}
}

func TestContainsInsensitive(t *testing.T) {
	re := ContainsInsensitive("a.b(c")
	if re.Pattern != `a\.b\(c` || re.Options != "i" {
		t.Errorf("unexpected regex %+v", re)
	}
}

func TestParseIDs(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	ids, err := ParseIDs([]string{a.Hex(), b.Hex()})
	if err != nil || len(ids) != 2 || ids[1] != b {
		t.Fatalf("unexpected %v %v", ids, err)
	}
	if _, err := ParseIDs([]string{"nope"}); err == nil {
		t.Error("expected error for malformed id")
	}
}

func TestSortFrom(t *testing.T) {
	allowed := map[string]string{"name": "name", "created": "createdAt"}
	fallback := bson.D{{Key: "createdAt", Value: -1}}

	got := SortFrom("-created", allowed, fallback)
	if got[0].Key != "createdAt" || got[0].Value != -1 {
		t.Errorf("unexpected sort %v", got)
	}
	if got := SortFrom("name", allowed, fallback); got[0].Value != 1 {
		t.Errorf("unexpected sort %v", got)
	}
	if got := SortFrom("password", allowed, fallback); got[0].Key != "createdAt" {
		t.Errorf("unknown keys must fall back, got %v", got)
	}
}
