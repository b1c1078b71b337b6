package tree

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/raine/category-admin/internal/catalog"
	"github.com/raine/category-admin/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func expectRefetch(svc *serviceMock) {
	svc.On("Hierarchy", mock.Anything).Return(sampleHierarchy(), nil).Once()
	svc.On("MainCategories", mock.Anything).Return(sampleMains(), nil).Once()
}

func TestCreateCategory_BlankNameMakesNoRequest(t *testing.T) {
	for _, name := range []string{"", "   ", "\t\n"} {
		svc := new(serviceMock)
		notifier := &recordingNotifier{}
		view := New(svc, testAdmin, notifier, &fixedConfirmer{})
		view.OpenCreate()

		err := view.CreateCategory(context.Background(), FormData{Name: name, ParentID: NoParent})

		require.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.Equal(t, LevelError, notifier.last().level)
		assert.Equal(t, "Category name is required", notifier.last().msg)
		assert.Equal(t, DialogCreate, view.Dialog())
		svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	}
}

func TestCreateCategory_NoneParentSendsNull(t *testing.T) {
	svc := new(serviceMock)
	svc.On("Create", mock.Anything, catalog.CategoryInput{Name: "Plumbing", ParentID: nil, IsActive: true}).
		Return(catalog.Category{ID: "new", Name: "Plumbing"}, nil).Once()
	expectRefetch(svc)

	notifier := &recordingNotifier{}
	view := New(svc, testAdmin, notifier, &fixedConfirmer{})
	view.OpenCreate()

	err := view.CreateCategory(context.Background(), FormData{Name: "  Plumbing ", ParentID: NoParent, IsActive: true})
	require.NoError(t, err)
	svc.AssertExpectations(t)

	assert.Equal(t, DialogNone, view.Dialog())
	assert.Equal(t, NewFormData(), view.Form())
	assert.Equal(t, notification{LevelSuccess, "Category created"}, notifier.last())
}

func TestCreateCategory_EmptyParentSendsNull(t *testing.T) {
	input := FormData{Name: "Garden", ParentID: ""}.Input()
	assert.Nil(t, input.ParentID)

	input = FormData{Name: "Garden", ParentID: "a"}.Input()
	require.NotNil(t, input.ParentID)
	assert.Equal(t, "a", *input.ParentID)
}

func TestCreateCategory_FailureKeepsDialog(t *testing.T) {
	svc := new(serviceMock)
	svc.On("Create", mock.Anything, mock.Anything).
		Return(catalog.Category{}, &catalog.APIError{Status: 409, Message: "name already taken"}).Once()

	notifier := &recordingNotifier{}
	view := New(svc, testAdmin, notifier, &fixedConfirmer{})
	view.OpenCreate()

	form := FormData{Name: "Plumbing", Description: "Pipes", ParentID: "a", IsActive: true}
	err := view.CreateCategory(context.Background(), form)
	require.Error(t, err)

	assert.Equal(t, notification{LevelError, "name already taken"}, notifier.last())
	assert.Equal(t, DialogCreate, view.Dialog())
	assert.Equal(t, form, view.Form())
	svc.AssertNotCalled(t, "Hierarchy", mock.Anything)
}

func TestCreateCategory_GenericFailureMessage(t *testing.T) {
	svc := new(serviceMock)
	svc.On("Create", mock.Anything, mock.Anything).Return(catalog.Category{}, errors.New("connection refused")).Once()

	notifier := &recordingNotifier{}
	view := New(svc, testAdmin, notifier, &fixedConfirmer{})

	require.Error(t, view.CreateCategory(context.Background(), FormData{Name: "Plumbing"}))
	assert.Equal(t, "Failed to create category", notifier.last().msg)
}

func TestCreateCategory_RejectsWhilePending(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	svc := new(serviceMock)
	svc.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			close(started)
			<-release
		}).
		Return(catalog.Category{ID: "new"}, nil).Once()
	expectRefetch(svc)

	view := New(svc, testAdmin, &recordingNotifier{}, &fixedConfirmer{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, view.CreateCategory(context.Background(), FormData{Name: "First"}))
	}()

	<-started
	assert.True(t, view.Pending(storage.OpCreate))
	err := view.CreateCategory(context.Background(), FormData{Name: "Second"})
	assert.ErrorIs(t, err, ErrPending)

	close(release)
	wg.Wait()
	assert.False(t, view.Pending(storage.OpCreate))
	svc.AssertExpectations(t)
}

func TestUpdateCategory_RequiresSelection(t *testing.T) {
	svc := new(serviceMock)
	view := New(svc, testAdmin, &recordingNotifier{}, &fixedConfirmer{})

	err := view.UpdateCategory(context.Background(), "a", FormData{Name: "Home"})
	assert.ErrorIs(t, err, ErrNoSelection)
	svc.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateCategory_NoneParentAndRefetch(t *testing.T) {
	svc := new(serviceMock)
	expectRefetch(svc)
	svc.On("Update", mock.Anything, "b", catalog.CategoryInput{Name: "Pipes", ParentID: nil, IsActive: true}).
		Return(catalog.Category{ID: "b", Name: "Pipes"}, nil).Once()
	expectRefetch(svc)

	view := New(svc, testAdmin, &recordingNotifier{}, &fixedConfirmer{})
	require.NoError(t, view.Refresh(context.Background()))

	form, err := view.OpenEdit("b")
	require.NoError(t, err)
	assert.Equal(t, "a", form.ParentID)
	assert.Equal(t, "Plumbing", form.Name)

	form.Name = "Pipes"
	form.ParentID = NoParent
	require.NoError(t, view.UpdateCategory(context.Background(), "b", form))

	svc.AssertExpectations(t)
	svc.AssertNumberOfCalls(t, "Hierarchy", 2)
	assert.Equal(t, DialogNone, view.Dialog())
	_, selected := view.Selected()
	assert.False(t, selected)
}

func TestUpdateCategory_RejectsSelfParent(t *testing.T) {
	svc := new(serviceMock)
	expectRefetch(svc)

	view := New(svc, testAdmin, &recordingNotifier{}, &fixedConfirmer{})
	require.NoError(t, view.Refresh(context.Background()))
	form, err := view.OpenEdit("a")
	require.NoError(t, err)

	form.ParentID = "a"
	err = view.UpdateCategory(context.Background(), "a", form)
	assert.True(t, IsValidationError(err))
	svc.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteCategory_DeclinedMakesNoRequest(t *testing.T) {
	svc := new(serviceMock)
	confirmer := &fixedConfirmer{answer: false}
	view := New(svc, testAdmin, &recordingNotifier{}, confirmer)

	err := view.DeleteCategory(context.Background(), "d")
	assert.ErrorIs(t, err, ErrDeleteCancelled)
	assert.Len(t, confirmer.prompts, 1)
	svc.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestDeleteCategory_RejectionShownVerbatim(t *testing.T) {
	svc := new(serviceMock)
	expectRefetch(svc)
	svc.On("Delete", mock.Anything, "a").
		Return("", &catalog.APIError{Status: 409, Message: `category "Home Repair" has 2 subcategories, remove them first`}).Once()

	notifier := &recordingNotifier{}
	view := New(svc, testAdmin, notifier, &fixedConfirmer{answer: true})
	require.NoError(t, view.Refresh(context.Background()))
	view.ToggleExpansion("a")
	before := view.Render()

	require.Error(t, view.DeleteCategory(context.Background(), "a"))

	assert.Equal(t, notification{LevelError, `category "Home Repair" has 2 subcategories, remove them first`}, notifier.last())
	assert.Equal(t, before, view.Render())
	svc.AssertNumberOfCalls(t, "Hierarchy", 1)
}

func TestDeleteCategory_SuccessRefetches(t *testing.T) {
	svc := new(serviceMock)
	expectRefetch(svc)
	svc.On("Delete", mock.Anything, "d").Return("Category deleted", nil).Once()
	expectRefetch(svc)

	notifier := &recordingNotifier{}
	confirmer := &fixedConfirmer{answer: true}
	view := New(svc, testAdmin, notifier, confirmer)
	require.NoError(t, view.Refresh(context.Background()))

	require.NoError(t, view.DeleteCategory(context.Background(), "d"))
	assert.Contains(t, confirmer.prompts[0], `"Cleaning"`)
	assert.Equal(t, notification{LevelSuccess, "Category deleted"}, notifier.last())
	svc.AssertExpectations(t)
}

func TestLoadHierarchy_FailureKeepsPreviousTree(t *testing.T) {
	svc := new(serviceMock)
	svc.On("Hierarchy", mock.Anything).Return(sampleHierarchy(), nil).Once()
	svc.On("Hierarchy", mock.Anything).Return(nil, errors.New("timeout")).Once()

	view := New(svc, testAdmin, &recordingNotifier{}, &fixedConfirmer{})
	_, err := view.LoadHierarchy(context.Background())
	require.NoError(t, err)
	before := view.Render()

	roots, err := view.LoadHierarchy(context.Background())
	require.Error(t, err)
	assert.Len(t, roots, 2)
	assert.Equal(t, before, view.Render())
}

func TestLoadHierarchy_FailureWithoutDataShowsEmptyState(t *testing.T) {
	svc := new(serviceMock)
	svc.On("Hierarchy", mock.Anything).Return(nil, errors.New("timeout")).Once()

	view := New(svc, testAdmin, &recordingNotifier{}, &fixedConfirmer{})
	_, err := view.LoadHierarchy(context.Background())
	require.Error(t, err)
	assert.Contains(t, view.Render(), loadErrorMessage)
}

func TestRefresh_HierarchyFailureKeepsMainLoad(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/categories/hierarchy":
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"message":"hierarchy unavailable"}`))
		case "/categories/main":
			time.Sleep(100 * time.Millisecond)
			w.Write([]byte(`{"categories":[{"id":"m1","name":"Home Repair","level":0}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	client := catalog.NewClient(catalog.ClientOpts{BaseURL: ts.URL, Timeout: 5 * time.Second})
	view := New(catalog.NewCachedService(client, 0), testAdmin, &recordingNotifier{}, &fixedConfirmer{})

	err := view.Refresh(context.Background())
	require.Error(t, err)

	var apiErr *catalog.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)

	options := view.ParentOptions()
	require.Len(t, options, 2)
	assert.Equal(t, "m1", options[1].ID)
}

func TestNonAdminMakesNoRequests(t *testing.T) {
	svc := new(serviceMock)
	provider := &Operator{ID: "2", Name: "bob", Role: RoleServiceProvider}
	view := New(svc, provider, &recordingNotifier{}, &fixedConfirmer{answer: true})
	ctx := context.Background()

	_, err := view.LoadHierarchy(ctx)
	assert.ErrorIs(t, err, ErrNotAdmin)
	assert.ErrorIs(t, view.CreateCategory(ctx, FormData{Name: "x"}), ErrNotAdmin)
	assert.ErrorIs(t, view.DeleteCategory(ctx, "a"), ErrNotAdmin)
	assert.ErrorIs(t, RequireAdmin(nil), ErrNotAdmin)
	svc.AssertExpectations(t)
}

func TestMutationsAreJournaled(t *testing.T) {
	journal, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer journal.Close()

	svc := new(serviceMock)
	svc.On("Create", mock.Anything, mock.Anything).Return(catalog.Category{ID: "new"}, nil).Once()
	expectRefetch(svc)
	svc.On("Delete", mock.Anything, "a").Return("", &catalog.APIError{Status: 409, Message: "has children"}).Once()

	view := New(svc, testAdmin, &recordingNotifier{}, &fixedConfirmer{answer: true}, WithJournal(journal))
	require.NoError(t, view.CreateCategory(context.Background(), FormData{Name: "Plumbing"}))
	require.Error(t, view.DeleteCategory(context.Background(), "a"))

	mutations, err := journal.RecentMutations(10)
	require.NoError(t, err)
	require.Len(t, mutations, 2)
	ops := map[string]storage.Mutation{}
	for _, m := range mutations {
		ops[m.Op] = m
	}
	assert.Equal(t, storage.OutcomeSucceeded, ops[storage.OpCreate].Outcome)
	assert.Equal(t, "new", ops[storage.OpCreate].CategoryID)
	assert.Equal(t, "alice", ops[storage.OpCreate].Operator)
	assert.Equal(t, storage.OutcomeFailed, ops[storage.OpDelete].Outcome)
	assert.Equal(t, "has children", ops[storage.OpDelete].Message)
}

func TestScenario_HierarchyExpandsOneTier(t *testing.T) {
	view, _, _ := newMockBackend(t, &fixedConfirmer{})
	ctx := context.Background()

	_, err := view.LoadHierarchy(ctx)
	require.NoError(t, err)

	rows := view.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "Home Repair", rows[0].Category.Name)
	assert.True(t, rows[0].Expandable)
	assert.False(t, rows[0].Expanded)

	assert.True(t, view.ToggleExpansion("a"))
	rows = view.Rows()
	require.Len(t, rows, 3)
	assert.True(t, rows[0].Expanded)
	for _, row := range rows[1:] {
		assert.Equal(t, 1, row.Depth)
		assert.False(t, row.Expandable)
		assert.Equal(t, []Action{ActionEdit, ActionDelete}, row.Actions)
	}
	assert.Equal(t, "Plumbing", rows[1].Category.Name)
	assert.Equal(t, "Electrical", rows[2].Category.Name)

	assert.False(t, view.ToggleExpansion("a"))
	assert.Len(t, view.Rows(), 1)
}

func TestScenario_CreateAndDeleteAgainstBackend(t *testing.T) {
	confirmer := &fixedConfirmer{answer: false}
	view, store, notifier := newMockBackend(t, confirmer)
	ctx := context.Background()
	require.NoError(t, view.Refresh(ctx))

	view.OpenCreate()
	require.NoError(t, view.CreateCategory(ctx, FormData{Name: "Cleaning", ParentID: NoParent, IsActive: true}))
	require.Len(t, view.Rows(), 2)
	created := view.Rows()[1].Category
	assert.Equal(t, "Cleaning", created.Name)
	assert.True(t, created.IsMain())

	// Declined confirmation leaves the backend untouched.
	assert.ErrorIs(t, view.DeleteCategory(ctx, created.ID), ErrDeleteCancelled)
	assert.Equal(t, 4, store.Len())

	confirmer.answer = true
	require.NoError(t, view.DeleteCategory(ctx, created.ID))
	assert.Equal(t, 3, store.Len())
	assert.Len(t, view.Rows(), 1)

	// The backend refuses to delete a category with children.
	require.Error(t, view.DeleteCategory(ctx, "a"))
	assert.Equal(t, `category "Home Repair" has 2 subcategories, remove them first`, notifier.last().msg)
	assert.Equal(t, 3, store.Len())
}

func TestScenario_DescendantParentRejectedByBackend(t *testing.T) {
	view, _, notifier := newMockBackend(t, &fixedConfirmer{})
	ctx := context.Background()
	require.NoError(t, view.Refresh(ctx))

	form, err := view.OpenEdit("a")
	require.NoError(t, err)
	form.ParentID = "b"

	require.Error(t, view.UpdateCategory(ctx, "a", form))
	assert.Equal(t, "cannot move a category under its own descendant", notifier.last().msg)
	assert.Equal(t, DialogEdit, view.Dialog())
}

func TestScenario_CreateSendsNullParentOnTheWire(t *testing.T) {
	var mu sync.Mutex
	var posted map[string]any
	var methods []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		methods = append(methods, r.Method+" "+r.URL.Path)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodPost:
			mu.Lock()
			json.NewDecoder(r.Body).Decode(&posted)
			mu.Unlock()
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":"p1","name":"Plumbing","level":0}`))
		default:
			w.Write([]byte(`[]`))
		}
	}))
	defer ts.Close()

	client := catalog.NewClient(catalog.ClientOpts{BaseURL: ts.URL, Timeout: 5 * time.Second})
	view := New(catalog.NewCachedService(client, 0), testAdmin, &recordingNotifier{}, &fixedConfirmer{})

	require.NoError(t, view.CreateCategory(context.Background(), FormData{Name: "Plumbing", ParentID: NoParent}))

	mu.Lock()
	defer mu.Unlock()
	require.Contains(t, posted, "parentId")
	assert.Nil(t, posted["parentId"])
	assert.Equal(t, "POST /categories", methods[0])
	assert.ElementsMatch(t, []string{"GET /categories/hierarchy", "GET /categories/main"}, methods[1:])
}
