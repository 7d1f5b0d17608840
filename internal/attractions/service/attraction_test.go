package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	attractionserrors "tourhub/internal/attractions/errors"
	"tourhub/internal/attractions/repository"
	catalogerrors "tourhub/internal/catalog/errors"
	"tourhub/pkg/auth"
	"tourhub/pkg/config"
	apperrors "tourhub/pkg/errors"
	"tourhub/pkg/logger"
	"tourhub/pkg/model"
	"tourhub/pkg/validation"
)

type mockAttractionRepository struct {
	createFunc    func(ctx context.Context, a *model.Attraction) error
	findByRefFunc func(ctx context.Context, ref string) (*model.Attraction, error)
	findAllFunc   func(ctx context.Context, f repository.AttractionFilter, limit int, skip int64) ([]*model.Attraction, error)
	countFunc     func(ctx context.Context, f repository.AttractionFilter) (int64, error)
	updateFunc    func(ctx context.Context, id primitive.ObjectID, set bson.M) (*model.Attraction, error)

	views int
}

func (m *mockAttractionRepository) Create(ctx context.Context, a *model.Attraction) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, a)
	}
	a.ID = primitive.NewObjectID()
	return nil
}

func (m *mockAttractionRepository) FindByRef(ctx context.Context, ref string) (*model.Attraction, error) {
	if m.findByRefFunc != nil {
		return m.findByRefFunc(ctx, ref)
	}
	return nil, fmt.Errorf("%w: %s", attractionserrors.ErrNotFound, ref)
}

func (m *mockAttractionRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Attraction, error) {
	return m.FindByRef(ctx, id.Hex())
}

func (m *mockAttractionRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*model.Attraction, error) {
	return []*model.Attraction{}, nil
}

func (m *mockAttractionRepository) FindAll(ctx context.Context, f repository.AttractionFilter, limit int, skip int64) ([]*model.Attraction, error) {
	if m.findAllFunc != nil {
		return m.findAllFunc(ctx, f, limit, skip)
	}
	return []*model.Attraction{}, nil
}

func (m *mockAttractionRepository) Count(ctx context.Context, f repository.AttractionFilter) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx, f)
	}
	return 0, nil
}

func (m *mockAttractionRepository) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*model.Attraction, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, set)
	}
	return &model.Attraction{ID: id}, nil
}

func (m *mockAttractionRepository) IncrementViewCount(ctx context.Context, id primitive.ObjectID) error {
	m.views++
	return nil
}

func (m *mockAttractionRepository) IncrementBookingCount(ctx context.Context, id primitive.ObjectID, delta int) error {
	return nil
}

type stubCatalog struct {
	category    *model.Category
	destination *model.Destination
}

func (s stubCatalog) categoryLookup() CategoryLookup       { return categoryFunc(s.findCategory) }
func (s stubCatalog) destinationLookup() DestinationLookup { return destinationFunc(s.findDestination) }

func (s stubCatalog) findCategory(ctx context.Context, ref string, activeOnly bool) (*model.Category, error) {
	if s.category != nil && (ref == s.category.Slug || ref == s.category.ID.Hex()) {
		return s.category, nil
	}
	return nil, fmt.Errorf("%w: %s", catalogerrors.ErrCategoryNotFound, ref)
}

func (s stubCatalog) findDestination(ctx context.Context, ref string, activeOnly bool) (*model.Destination, error) {
	if s.destination != nil && (ref == s.destination.Slug || ref == s.destination.ID.Hex()) {
		return s.destination, nil
	}
	return nil, fmt.Errorf("%w: %s", catalogerrors.ErrDestinationNotFound, ref)
}

type categoryFunc func(ctx context.Context, ref string, activeOnly bool) (*model.Category, error)

func (f categoryFunc) FindByRef(ctx context.Context, ref string, activeOnly bool) (*model.Category, error) {
	return f(ctx, ref, activeOnly)
}

type destinationFunc func(ctx context.Context, ref string, activeOnly bool) (*model.Destination, error)

func (f destinationFunc) FindByRef(ctx context.Context, ref string, activeOnly bool) (*model.Destination, error) {
	return f(ctx, ref, activeOnly)
}

func newCatalog() stubCatalog {
	return stubCatalog{
		category:    &model.Category{ID: primitive.NewObjectID(), Slug: "boat-tours"},
		destination: &model.Destination{ID: primitive.NewObjectID(), Slug: "lisbon"},
	}
}

func newTestService(repo *mockAttractionRepository, catalog stubCatalog) *attractionService {
	log := logger.Nop()
	cfg := &config.Config{Log: log, DefaultCurrency: "EUR"}
	svc := NewAttractionService(repo, catalog.categoryLookup(), catalog.destinationLookup(), validation.New(log), cfg).(*attractionService)
	svc.now = func() time.Time { return monday }
	return svc
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus
	}
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		return 400
	}
	t.Fatalf("unexpected error type %T: %v", err, err)
	return 0
}

var (
	superAdmin = &auth.Principal{UserID: primitive.NewObjectID(), Role: model.RoleSuperAdmin}
	customer   = &auth.Principal{UserID: primitive.NewObjectID(), Role: model.RoleCustomer}
)

func editorOf(tenants ...primitive.ObjectID) *auth.Principal {
	return &auth.Principal{UserID: primitive.NewObjectID(), Role: model.RoleEditor, Tenants: tenants}
}

func TestList_StatusVisibility(t *testing.T) {
	var got repository.AttractionFilter
	repo := &mockAttractionRepository{
		findAllFunc: func(ctx context.Context, f repository.AttractionFilter, limit int, skip int64) ([]*model.Attraction, error) {
			got = f
			return []*model.Attraction{}, nil
		},
	}
	svc := newTestService(repo, newCatalog())

	tests := []struct {
		name      string
		actor     *auth.Principal
		requested model.AttractionStatus
		want      model.AttractionStatus
	}{
		{"anonymous", nil, "", model.AttractionStatusActive},
		{"anonymous asking for drafts", nil, model.AttractionStatusDraft, model.AttractionStatusActive},
		{"customer asking for archived", customer, model.AttractionStatusArchived, model.AttractionStatusActive},
		{"staff sees everything", editorOf(), "", ""},
		{"staff filters drafts", editorOf(), model.AttractionStatusDraft, model.AttractionStatusDraft},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.List(context.Background(), tt.actor, ListQuery{Status: tt.requested, Page: 1, Limit: 20})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Status)
		})
	}
}

func TestList_Filters(t *testing.T) {
	catalog := newCatalog()
	var got repository.AttractionFilter
	var gotSkip int64
	repo := &mockAttractionRepository{
		findAllFunc: func(ctx context.Context, f repository.AttractionFilter, limit int, skip int64) ([]*model.Attraction, error) {
			got, gotSkip = f, skip
			return []*model.Attraction{{Title: "Sunset cruise"}}, nil
		},
		countFunc: func(ctx context.Context, f repository.AttractionFilter) (int64, error) {
			return 21, nil
		},
	}
	svc := newTestService(repo, catalog)

	lo, hi := 20.0, 80.0
	tenant := primitive.NewObjectID()
	items, total, err := svc.List(context.Background(), nil, ListQuery{
		Destination: "lisbon",
		Category:    catalog.category.ID.Hex(),
		MinPrice:    &lo,
		MaxPrice:    &hi,
		Badge:       "Best Seller",
		Sort:        "-price",
		Tenant:      &tenant,
		Page:        2,
		Limit:       20,
	})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int64(21), total)
	assert.Equal(t, int64(20), gotSkip)
	assert.Equal(t, catalog.destination.ID, *got.Destination)
	assert.Equal(t, catalog.category.ID, *got.Category)
	assert.Equal(t, "best-seller", got.Badge)
	assert.Equal(t, &tenant, got.Tenant)
	assert.Equal(t, 80.0, *got.MaxPrice)
}

func TestList_Invalid(t *testing.T) {
	svc := newTestService(&mockAttractionRepository{}, newCatalog())
	lo, hi := 90.0, 10.0

	_, _, err := svc.List(context.Background(), nil, ListQuery{MinPrice: &lo, MaxPrice: &hi, Page: 1, Limit: 20})
	assert.Equal(t, 400, statusOf(t, err))

	_, _, err = svc.List(context.Background(), nil, ListQuery{Sort: "cheapest", Page: 1, Limit: 20})
	assert.Equal(t, 400, statusOf(t, err))

	_, _, err = svc.List(context.Background(), nil, ListQuery{Status: "deleted", Page: 1, Limit: 20})
	assert.Equal(t, 400, statusOf(t, err))
}

func TestList_UnknownDestinationIsEmpty(t *testing.T) {
	repo := &mockAttractionRepository{
		findAllFunc: func(ctx context.Context, f repository.AttractionFilter, limit int, skip int64) ([]*model.Attraction, error) {
			t.Fatal("repository should not be queried")
			return nil, nil
		},
	}
	svc := newTestService(repo, newCatalog())

	items, total, err := svc.List(context.Background(), nil, ListQuery{Destination: "atlantis", Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, total)
}

func TestGet_Visibility(t *testing.T) {
	tenantA, tenantB := primitive.NewObjectID(), primitive.NewObjectID()
	draft := &model.Attraction{ID: primitive.NewObjectID(), Slug: "draft", Status: model.AttractionStatusDraft}
	scoped := &model.Attraction{ID: primitive.NewObjectID(), Slug: "scoped", Status: model.AttractionStatusActive, Tenants: []primitive.ObjectID{tenantA}}
	repo := &mockAttractionRepository{
		findByRefFunc: func(ctx context.Context, ref string) (*model.Attraction, error) {
			switch ref {
			case "draft":
				return draft, nil
			case "scoped":
				return scoped, nil
			}
			return nil, attractionserrors.ErrNotFound
		},
	}
	svc := newTestService(repo, newCatalog())

	_, err := svc.Get(context.Background(), nil, "draft", nil)
	assert.Equal(t, 404, statusOf(t, err))

	a, err := svc.Get(context.Background(), editorOf(), "draft", nil)
	require.NoError(t, err)
	assert.Equal(t, draft, a)
	assert.Zero(t, repo.views, "staff reads are not counted")

	_, err = svc.Get(context.Background(), customer, "scoped", &tenantB)
	assert.Equal(t, 404, statusOf(t, err))

	a, err = svc.Get(context.Background(), customer, "scoped", &tenantA)
	require.NoError(t, err)
	assert.Equal(t, 1, a.Stats.ViewCount)
	assert.Equal(t, 1, repo.views)

	_, err = svc.Get(context.Background(), nil, "missing", nil)
	assert.Equal(t, 404, statusOf(t, err))
}

func TestAvailability(t *testing.T) {
	active := &model.Attraction{ID: primitive.NewObjectID(), Status: model.AttractionStatusActive}
	repo := &mockAttractionRepository{
		findByRefFunc: func(ctx context.Context, ref string) (*model.Attraction, error) {
			return active, nil
		},
	}
	svc := newTestService(repo, newCatalog())

	out, err := svc.Availability(context.Background(), "any", nil, nil, 5)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", out.From)
	assert.Len(t, out.Days, 5)

	_, err = svc.Availability(context.Background(), "any", nil, nil, MaxAvailabilityDays+1)
	assert.Equal(t, 400, statusOf(t, err))

	active.Status = model.AttractionStatusArchived
	_, err = svc.Availability(context.Background(), "any", nil, nil, 5)
	assert.Equal(t, 404, statusOf(t, err))
}

func validRequest(catalog stubCatalog) *AttractionRequest {
	return &AttractionRequest{
		Title:       "  Sunset   Sailing ",
		Description: "Two hours on the Tagus.",
		Destination: catalog.destination.Slug,
		Category:    catalog.category.Slug,
		Pricing: model.Pricing{
			BasePrice: 45,
			Options: []model.PricingOption{
				{Name: "Adult", Price: 45, MinQuantity: 1, MaxQuantity: 10},
				{ID: "Child", Name: "Child", Price: 25},
			},
		},
		Badges: []string{"Best Seller", "best-seller", "New"},
	}
}

func TestCreate(t *testing.T) {
	catalog := newCatalog()
	repo := &mockAttractionRepository{}
	svc := newTestService(repo, catalog)

	a, err := svc.Create(context.Background(), superAdmin, validRequest(catalog))
	require.NoError(t, err)
	assert.Equal(t, "Sunset Sailing", a.Title)
	assert.Equal(t, "sunset-sailing", a.Slug)
	assert.Equal(t, "EUR", a.Pricing.Currency)
	assert.Equal(t, "adult", a.Pricing.Options[0].ID)
	assert.Equal(t, "child", a.Pricing.Options[1].ID)
	assert.Equal(t, []string{"best-seller", "new"}, a.Badges)
	assert.Equal(t, catalog.destination.ID, a.Destination)
	assert.Equal(t, catalog.category.ID, a.Category)
	assert.Equal(t, model.AttractionStatusDraft, a.Status)
	assert.Equal(t, model.AvailabilityDaily, a.Availability.Type)
	assert.Empty(t, a.Tenants, "super admin attractions are shared by default")
	assert.Equal(t, superAdmin.UserID, *a.CreatedBy)
}

func TestCreate_Errors(t *testing.T) {
	catalog := newCatalog()
	tenant := primitive.NewObjectID()

	tests := []struct {
		name   string
		actor  *auth.Principal
		mutate func(r *AttractionRequest)
		create func(ctx context.Context, a *model.Attraction) error
		want   int
	}{
		{"unknown destination", superAdmin, func(r *AttractionRequest) { r.Destination = "atlantis" }, nil, 400},
		{"unknown category", superAdmin, func(r *AttractionRequest) { r.Category = "nope" }, nil, 400},
		{"duplicate option ids", superAdmin, func(r *AttractionRequest) { r.Pricing.Options[1].ID = "adult" }, nil, 400},
		{"min above max", superAdmin, func(r *AttractionRequest) { r.Pricing.Options[0].MinQuantity = 11 }, nil, 400},
		{"bad currency", superAdmin, func(r *AttractionRequest) { r.Pricing.Currency = "EURO" }, nil, 400},
		{"bad time slot", superAdmin, func(r *AttractionRequest) { r.Availability.TimeSlots = []string{"25:00"} }, nil, 400},
		{"editor without tenants", editorOf(), func(r *AttractionRequest) {}, nil, 403},
		{"editor assigning foreign tenant", editorOf(tenant), func(r *AttractionRequest) {
			r.Tenants = []string{primitive.NewObjectID().Hex()}
		}, nil, 403},
		{"duplicate slug", superAdmin, func(r *AttractionRequest) {}, func(ctx context.Context, a *model.Attraction) error {
			return attractionserrors.ErrDuplicateSlug
		}, 409},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&mockAttractionRepository{createFunc: tt.create}, catalog)
			req := validRequest(catalog)
			tt.mutate(req)
			_, err := svc.Create(context.Background(), tt.actor, req)
			require.Error(t, err)
			assert.Equal(t, tt.want, statusOf(t, err))
		})
	}
}

func TestCreate_EditorDefaultsToOwnTenants(t *testing.T) {
	catalog := newCatalog()
	tenant := primitive.NewObjectID()
	svc := newTestService(&mockAttractionRepository{}, catalog)

	a, err := svc.Create(context.Background(), editorOf(tenant), validRequest(catalog))
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{tenant}, a.Tenants)
}

func TestUpdateAndArchive_Permissions(t *testing.T) {
	tenant := primitive.NewObjectID()
	shared := &model.Attraction{ID: primitive.NewObjectID(), Slug: "shared", Status: model.AttractionStatusActive}
	owned := &model.Attraction{ID: primitive.NewObjectID(), Slug: "owned", Status: model.AttractionStatusActive, Tenants: []primitive.ObjectID{tenant}}

	var lastSet bson.M
	repo := &mockAttractionRepository{
		findByRefFunc: func(ctx context.Context, ref string) (*model.Attraction, error) {
			if ref == "shared" {
				return shared, nil
			}
			return owned, nil
		},
		updateFunc: func(ctx context.Context, id primitive.ObjectID, set bson.M) (*model.Attraction, error) {
			lastSet = set
			return owned, nil
		},
	}
	svc := newTestService(repo, newCatalog())
	editor := editorOf(tenant)

	featured := true
	_, err := svc.Update(context.Background(), editor, "shared", &UpdateAttractionRequest{Featured: &featured})
	assert.Equal(t, 403, statusOf(t, err))

	_, err = svc.Update(context.Background(), editor, "owned", &UpdateAttractionRequest{Featured: &featured, Badges: []string{"Top Pick"}})
	require.NoError(t, err)
	assert.Equal(t, bson.M{"featured": true, "badges": []string{"top-pick"}}, lastSet)

	require.NoError(t, svc.Archive(context.Background(), editor, "owned"))
	assert.Equal(t, bson.M{"status": model.AttractionStatusArchived}, lastSet)

	assert.Equal(t, 403, statusOf(t, svc.Archive(context.Background(), editor, "shared")))
	require.NoError(t, svc.Archive(context.Background(), superAdmin, "shared"))
}
