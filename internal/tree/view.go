package tree

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/raine/category-admin/internal/catalog"
	"github.com/raine/category-admin/internal/storage"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoSelection     = errors.New("no category selected for editing")
	ErrPending         = errors.New("a request of this kind is already in progress")
	ErrDeleteCancelled = errors.New("delete cancelled")
	ErrUnknownCategory = errors.New("unknown category")
)

// Dialog is the dialog currently open in the view.
type Dialog int

const (
	DialogNone Dialog = iota
	DialogCreate
	DialogEdit
)

// Level classifies operator notifications.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

// Notifier shows transient messages to the operator.
type Notifier interface {
	Notify(level Level, msg string)
}

// Confirmer asks the operator a blocking yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// Invalidator is implemented by services that cache query results.
type Invalidator interface {
	Invalidate()
}

type mutationKind string

const (
	mutationCreate mutationKind = storage.OpCreate
	mutationUpdate mutationKind = storage.OpUpdate
	mutationDelete mutationKind = storage.OpDelete
)

// View is the category hierarchy tree. It owns the view state (expanded
// nodes, dialog, form) and treats the backend as the only source of truth:
// mutations never patch the local tree, they trigger a re-fetch.
type View struct {
	svc       catalog.Service
	operator  *Operator
	notifier  Notifier
	confirmer Confirmer
	journal   storage.Journal
	maxDepth  int

	mu       sync.Mutex
	expanded map[string]bool
	selected *catalog.Category
	dialog   Dialog
	form     FormData
	roots    []catalog.Category
	mains    []catalog.Category
	loaded   bool
	loadErr  error
	pending  map[mutationKind]bool
}

type Option func(*View)

// WithJournal records every mutation attempt in j.
func WithJournal(j storage.Journal) Option {
	return func(v *View) {
		v.journal = j
	}
}

// WithMaxDepth overrides the number of rendered tiers.
func WithMaxDepth(depth int) Option {
	return func(v *View) {
		if depth > 0 {
			v.maxDepth = depth
		}
	}
}

func New(svc catalog.Service, operator *Operator, notifier Notifier, confirmer Confirmer, opts ...Option) *View {
	v := &View{
		svc:       svc,
		operator:  operator,
		notifier:  notifier,
		confirmer: confirmer,
		maxDepth:  MaxRenderDepth,
		expanded:  make(map[string]bool),
		form:      NewFormData(),
		pending:   make(map[mutationKind]bool),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ToggleExpansion flips the expanded state of a node and returns the new
// state. It makes no request.
func (v *View) ToggleExpansion(categoryID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.expanded[categoryID] {
		delete(v.expanded, categoryID)
		return false
	}
	v.expanded[categoryID] = true
	return true
}

func (v *View) IsExpanded(categoryID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.expanded[categoryID]
}

// LoadHierarchy fetches the main categories with their children. On failure
// the previously loaded tree is kept.
func (v *View) LoadHierarchy(ctx context.Context) ([]catalog.Category, error) {
	if err := RequireAdmin(v.operator); err != nil {
		return nil, err
	}

	roots, err := v.svc.Hierarchy(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		log.Warn().Err(err).Msg("failed to load category hierarchy")
		v.loadErr = err
		return v.roots, err
	}
	v.roots = roots
	v.loaded = true
	v.loadErr = nil
	return roots, nil
}

// LoadMainCategories fetches the flat main category list used by the
// parent selector.
func (v *View) LoadMainCategories(ctx context.Context) ([]catalog.Category, error) {
	if err := RequireAdmin(v.operator); err != nil {
		return nil, err
	}

	mains, err := v.svc.MainCategories(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		log.Warn().Err(err).Msg("failed to load main categories")
		return v.mains, err
	}
	v.mains = mains
	return mains, nil
}

// Refresh drops cached queries and re-fetches the hierarchy and main
// category lists. Each load runs to completion on its own; a failure of one
// does not cancel the other.
func (v *View) Refresh(ctx context.Context) error {
	if err := RequireAdmin(v.operator); err != nil {
		return err
	}
	if inv, ok := v.svc.(Invalidator); ok {
		inv.Invalidate()
	}

	var g errgroup.Group
	g.Go(func() error {
		_, err := v.LoadHierarchy(ctx)
		return err
	})
	g.Go(func() error {
		_, err := v.LoadMainCategories(ctx)
		return err
	})
	return g.Wait()
}

// OpenCreate opens the create dialog with a fresh form.
func (v *View) OpenCreate() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.dialog = DialogCreate
	v.selected = nil
	v.form = NewFormData()
}

// OpenEdit selects a category and pre-fills the edit dialog from it.
func (v *View) OpenEdit(categoryID string) (FormData, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	category, ok := catalog.Find(v.roots, categoryID)
	if !ok {
		category, ok = catalog.Find(v.mains, categoryID)
	}
	if !ok {
		return FormData{}, fmt.Errorf("%w: %s", ErrUnknownCategory, categoryID)
	}

	v.dialog = DialogEdit
	v.selected = &category
	v.form = FormDataFrom(category)
	return v.form, nil
}

// CloseDialog closes any open dialog and clears the form.
func (v *View) CloseDialog() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closeDialogLocked()
}

func (v *View) closeDialogLocked() {
	v.dialog = DialogNone
	v.selected = nil
	v.form = NewFormData()
}

func (v *View) Dialog() Dialog {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.dialog
}

func (v *View) Form() FormData {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.form
}

// Selected returns the category open in the edit dialog.
func (v *View) Selected() (catalog.Category, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.selected == nil {
		return catalog.Category{}, false
	}
	return *v.selected, true
}

// CreateCategory validates the form and creates a category. Validation
// failures are reported without any request. On a backend failure the
// dialog stays open with the entered values.
func (v *View) CreateCategory(ctx context.Context, form FormData) error {
	if err := RequireAdmin(v.operator); err != nil {
		return err
	}

	v.mu.Lock()
	v.form = form
	v.mu.Unlock()

	if err := form.Validate(); err != nil {
		v.notify(LevelError, err.Error())
		return err
	}
	if !v.begin(mutationCreate) {
		return ErrPending
	}
	defer v.end(mutationCreate)

	input := form.Input()
	created, err := v.svc.Create(ctx, input)
	if err != nil {
		msg := catalog.UserMessage(err, "Failed to create category")
		v.notify(LevelError, msg)
		v.record(storage.OpCreate, "", input.Name, input.ParentID, err, msg)
		return err
	}

	log.Info().Str("id", created.ID).Str("name", created.Name).Msg("category created")
	v.record(storage.OpCreate, created.ID, input.Name, input.ParentID, nil, "")
	v.notify(LevelSuccess, "Category created")

	v.mu.Lock()
	v.closeDialogLocked()
	v.mu.Unlock()

	v.refetch(ctx)
	return nil
}

// UpdateCategory saves the edit dialog for the selected category. It
// rejects making a category its own parent; choosing one of its
// descendants is left to the backend.
func (v *View) UpdateCategory(ctx context.Context, categoryID string, form FormData) error {
	if err := RequireAdmin(v.operator); err != nil {
		return err
	}

	v.mu.Lock()
	if v.selected == nil || v.selected.ID != categoryID {
		v.mu.Unlock()
		v.notify(LevelError, "Select a category to edit first")
		return ErrNoSelection
	}
	v.form = form
	v.mu.Unlock()

	if err := form.Validate(); err != nil {
		v.notify(LevelError, err.Error())
		return err
	}
	input := form.Input()
	if input.ParentID != nil && *input.ParentID == categoryID {
		err := &ValidationError{Message: "A category cannot be its own parent"}
		v.notify(LevelError, err.Error())
		return err
	}
	if !v.begin(mutationUpdate) {
		return ErrPending
	}
	defer v.end(mutationUpdate)

	updated, err := v.svc.Update(ctx, categoryID, input)
	if err != nil {
		msg := catalog.UserMessage(err, "Failed to update category")
		v.notify(LevelError, msg)
		v.record(storage.OpUpdate, categoryID, input.Name, input.ParentID, err, msg)
		return err
	}

	log.Info().Str("id", updated.ID).Str("name", updated.Name).Msg("category updated")
	v.record(storage.OpUpdate, categoryID, input.Name, input.ParentID, nil, "")
	v.notify(LevelSuccess, "Category updated")

	v.mu.Lock()
	v.closeDialogLocked()
	v.mu.Unlock()

	v.refetch(ctx)
	return nil
}

// DeleteCategory asks for confirmation and deletes a category. A rejection
// from the backend is shown verbatim and the tree is left as it was.
func (v *View) DeleteCategory(ctx context.Context, categoryID string) error {
	if err := RequireAdmin(v.operator); err != nil {
		return err
	}

	name := categoryID
	v.mu.Lock()
	if c, ok := catalog.Find(v.roots, categoryID); ok {
		name = c.Name
	}
	v.mu.Unlock()

	ok, err := v.confirmer.Confirm(ctx, fmt.Sprintf("Delete category %q? This cannot be undone.", name))
	if err != nil {
		return err
	}
	if !ok {
		return ErrDeleteCancelled
	}
	if !v.begin(mutationDelete) {
		return ErrPending
	}
	defer v.end(mutationDelete)

	msg, err := v.svc.Delete(ctx, categoryID)
	if err != nil {
		reason := catalog.UserMessage(err, "Failed to delete category")
		v.notify(LevelError, reason)
		v.record(storage.OpDelete, categoryID, name, nil, err, reason)
		return err
	}

	log.Info().Str("id", categoryID).Msg("category deleted")
	v.record(storage.OpDelete, categoryID, name, nil, nil, msg)
	if msg == "" {
		msg = "Category deleted"
	}
	v.notify(LevelSuccess, msg)

	v.mu.Lock()
	delete(v.expanded, categoryID)
	if v.selected != nil && v.selected.ID == categoryID {
		v.closeDialogLocked()
	}
	v.mu.Unlock()

	v.refetch(ctx)
	return nil
}

// refetch reloads both lists after a successful mutation. Failures keep
// the previous data and are only logged.
func (v *View) refetch(ctx context.Context) {
	if err := v.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to re-fetch categories after mutation")
	}
}

func (v *View) begin(kind mutationKind) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.pending[kind] {
		return false
	}
	v.pending[kind] = true
	return true
}

func (v *View) end(kind mutationKind) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.pending, kind)
}

// Pending reports whether a mutation of the given kind is in flight.
func (v *View) Pending(op string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pending[mutationKind(op)]
}

func (v *View) notify(level Level, msg string) {
	if v.notifier != nil {
		v.notifier.Notify(level, msg)
	}
}

func (v *View) record(op, categoryID, name string, parentID *string, err error, msg string) {
	if v.journal == nil {
		return
	}
	m := &storage.Mutation{
		Operator:     v.operator.Name,
		Op:           op,
		CategoryID:   categoryID,
		CategoryName: name,
		ParentID:     parentID,
		Outcome:      storage.OutcomeSucceeded,
		Message:      msg,
	}
	if err != nil {
		m.Outcome = storage.OutcomeFailed
	}
	if jErr := v.journal.RecordMutation(m); jErr != nil {
		log.Warn().Err(jErr).Str("op", op).Msg("failed to record mutation")
	}
}
