package tree

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/raine/category-admin/internal/catalog"
	"github.com/raine/category-admin/internal/mockapi"
	"github.com/stretchr/testify/mock"
)

var testAdmin = &Operator{ID: "1", Name: "alice", Role: RoleAdmin}

type serviceMock struct {
	mock.Mock
}

func (m *serviceMock) Hierarchy(ctx context.Context) ([]catalog.Category, error) {
	args := m.Called(ctx)
	categories, _ := args.Get(0).([]catalog.Category)
	return categories, args.Error(1)
}

func (m *serviceMock) MainCategories(ctx context.Context) ([]catalog.Category, error) {
	args := m.Called(ctx)
	categories, _ := args.Get(0).([]catalog.Category)
	return categories, args.Error(1)
}

func (m *serviceMock) Create(ctx context.Context, input catalog.CategoryInput) (catalog.Category, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(catalog.Category), args.Error(1)
}

func (m *serviceMock) Update(ctx context.Context, id string, input catalog.CategoryInput) (catalog.Category, error) {
	args := m.Called(ctx, id, input)
	return args.Get(0).(catalog.Category), args.Error(1)
}

func (m *serviceMock) Delete(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

type notification struct {
	level Level
	msg   string
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []notification
}

func (n *recordingNotifier) Notify(level Level, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, notification{level, msg})
}

func (n *recordingNotifier) last() notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.notes) == 0 {
		return notification{}
	}
	return n.notes[len(n.notes)-1]
}

type fixedConfirmer struct {
	answer  bool
	prompts []string
}

func (c *fixedConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	c.prompts = append(c.prompts, prompt)
	return c.answer, nil
}

func strPtr(s string) *string { return &s }

// sampleHierarchy is root A with children B and C, plus a leaf root D.
func sampleHierarchy() []catalog.Category {
	return []catalog.Category{
		{
			ID: "a", Name: "Home Repair", Icon: "🔧", Level: 0, IsActive: true,
			HasChildren: true, SubCategoriesCount: 2, ServicesCount: 4,
			Children: []catalog.Category{
				{ID: "b", Name: "Plumbing", ParentID: strPtr("a"), Level: 1, IsActive: true, ServicesCount: 3},
				{ID: "c", Name: "Electrical", ParentID: strPtr("a"), Level: 1, IsActive: true, ServicesCount: 1},
			},
		},
		{ID: "d", Name: "Cleaning", Level: 0, IsActive: true},
	}
}

func sampleMains() []catalog.Category {
	roots := sampleHierarchy()
	for i := range roots {
		roots[i].Children = nil
	}
	return roots
}

// newMockBackend starts the in-memory backend seeded with the sample
// hierarchy and returns a view wired to it through the cached client.
func newMockBackend(t *testing.T, confirmer Confirmer) (*View, *mockapi.Store, *recordingNotifier) {
	store := mockapi.NewStore()
	store.Seed("a", "Home Repair", "", 0)
	store.Seed("b", "Plumbing", "a", 3)
	store.Seed("c", "Electrical", "a", 1)

	ts := httptest.NewServer(mockapi.NewServer(store, "token").Router())
	t.Cleanup(ts.Close)

	client := catalog.NewClient(catalog.ClientOpts{BaseURL: ts.URL, Token: "token"})
	notifier := &recordingNotifier{}
	view := New(catalog.NewCachedService(client, 0), testAdmin, notifier, confirmer)
	return view, store, notifier
}
