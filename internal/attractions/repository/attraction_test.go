package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tourhub/pkg/model"
)

func TestAttractionFilter_Query(t *testing.T) {
	lo, hi := 10.0, 50.0
	featured := true
	tenant := primitive.NewObjectID()
	dest := primitive.NewObjectID()

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, bson.M{}, AttractionFilter{}.query())
	})

	t.Run("price range is inclusive", func(t *testing.T) {
		q := AttractionFilter{MinPrice: &lo, MaxPrice: &hi}.query()
		assert.Equal(t, bson.M{"$gte": 10.0, "$lte": 50.0}, q["pricing.basePrice"])
	})

	t.Run("open ended price", func(t *testing.T) {
		q := AttractionFilter{MaxPrice: &hi}.query()
		assert.Equal(t, bson.M{"$lte": 50.0}, q["pricing.basePrice"])
	})

	t.Run("scalar filters", func(t *testing.T) {
		q := AttractionFilter{
			Status:      model.AttractionStatusActive,
			Destination: &dest,
			Featured:    &featured,
			Badge:       "best-seller",
		}.query()
		assert.Equal(t, model.AttractionStatusActive, q["status"])
		assert.Equal(t, dest, q["destination"])
		assert.Equal(t, true, q["featured"])
		assert.Equal(t, "best-seller", q["badges"])
		assert.NotContains(t, q, "$and")
	})

	t.Run("search and tenant combine", func(t *testing.T) {
		q := AttractionFilter{Search: "boat (tour)", Tenant: &tenant}.query()
		and, ok := q["$and"].([]bson.M)
		if assert.True(t, ok) && assert.Len(t, and, 2) {
			search := and[0]["$or"].([]bson.M)
			assert.Equal(t, primitive.Regex{Pattern: `boat \(tour\)`, Options: "i"}, search[0]["title"])

			scope := and[1]["$or"].([]bson.M)
			assert.Equal(t, tenant, scope[0]["tenants"])
			assert.Equal(t, bson.M{"$size": 0}, scope[1]["tenants"])
		}
	})
}

func TestIsValidSort(t *testing.T) {
	for _, s := range []string{"", "price", "-price", "rating", "newest", "popular", "title"} {
		assert.True(t, IsValidSort(s), s)
	}
	for _, s := range []string{"-title", "cheapest", "createdAt"} {
		assert.False(t, IsValidSort(s), s)
	}
}
