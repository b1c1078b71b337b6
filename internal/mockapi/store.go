package mockapi

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/raine/category-admin/internal/catalog"
)

var (
	errNotFound = errors.New("category not found")
	errConflict = errors.New("conflict")
	errInvalid  = errors.New("invalid")
)

// record is the stored form of a category. Counters, level of children
// and the children list are derived on read.
type record struct {
	id            string
	name          string
	description   string
	icon          string
	parentID      string
	isActive      bool
	sortOrder     int
	servicesCount int
}

// Store is an in-memory category table enforcing the rules a real backend
// applies: parents must exist, no cycles, and categories with children or
// services attached cannot be deleted.
type Store struct {
	mu      sync.RWMutex
	records map[string]*record
	seq     int
}

func NewStore() *Store {
	return &Store{records: make(map[string]*record)}
}

// Seed inserts a category with a fixed id. Intended for tests and demo data.
func (s *Store) Seed(id, name, parentID string, servicesCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.records[id] = &record{
		id:            id,
		name:          name,
		parentID:      parentID,
		isActive:      true,
		sortOrder:     s.seq,
		servicesCount: servicesCount,
	}
}

// SetServicesCount changes the number of services attached to a category.
func (s *Store) SetServicesCount(id string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[id]; ok {
		r.servicesCount = n
	}
}

// Len returns the number of stored categories.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Hierarchy returns main categories with one tier of children.
func (s *Store) Hierarchy() []catalog.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roots := s.childrenOf("")
	result := make([]catalog.Category, 0, len(roots))
	for _, r := range roots {
		c := s.toCategory(r)
		for _, child := range s.childrenOf(r.id) {
			c.Children = append(c.Children, s.toCategory(child))
		}
		result = append(result, c)
	}
	return result
}

// Main returns main categories without children.
func (s *Store) Main() []catalog.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roots := s.childrenOf("")
	result := make([]catalog.Category, 0, len(roots))
	for _, r := range roots {
		result = append(result, s.toCategory(r))
	}
	return result
}

func (s *Store) Create(input catalog.CategoryInput) (catalog.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parentID := deref(input.ParentID)
	if parentID != "" {
		if _, ok := s.records[parentID]; !ok {
			return catalog.Category{}, fmt.Errorf("%w: parent category %s does not exist", errInvalid, parentID)
		}
	}

	s.seq++
	r := &record{
		id:          uuid.New().String(),
		name:        strings.TrimSpace(input.Name),
		description: input.Description,
		icon:        input.Icon,
		parentID:    parentID,
		isActive:    input.IsActive,
		sortOrder:   s.seq,
	}
	s.records[r.id] = r
	return s.toCategory(r), nil
}

func (s *Store) Update(id string, input catalog.CategoryInput) (catalog.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return catalog.Category{}, errNotFound
	}

	parentID := deref(input.ParentID)
	if parentID == id {
		return catalog.Category{}, fmt.Errorf("%w: a category cannot be its own parent", errInvalid)
	}
	if parentID != "" {
		if _, ok := s.records[parentID]; !ok {
			return catalog.Category{}, fmt.Errorf("%w: parent category %s does not exist", errInvalid, parentID)
		}
		if s.isDescendant(parentID, id) {
			return catalog.Category{}, fmt.Errorf("%w: cannot move a category under its own descendant", errInvalid)
		}
	}

	r.name = strings.TrimSpace(input.Name)
	r.description = input.Description
	r.icon = input.Icon
	r.parentID = parentID
	r.isActive = input.IsActive
	return s.toCategory(r), nil
}

func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return errNotFound
	}
	if n := len(s.childrenOf(id)); n > 0 {
		return fmt.Errorf("%w: category %q has %d subcategories, remove them first", errConflict, r.name, n)
	}
	if r.servicesCount > 0 {
		return fmt.Errorf("%w: category %q has %d services attached", errConflict, r.name, r.servicesCount)
	}
	delete(s.records, id)
	return nil
}

// isDescendant reports whether candidate lies below ancestor.
func (s *Store) isDescendant(candidate, ancestor string) bool {
	seen := make(map[string]bool)
	for cur := candidate; cur != "" && !seen[cur]; {
		seen[cur] = true
		r, ok := s.records[cur]
		if !ok {
			return false
		}
		if r.parentID == ancestor {
			return true
		}
		cur = r.parentID
	}
	return false
}

func (s *Store) childrenOf(parentID string) []*record {
	var children []*record
	for _, r := range s.records {
		if r.parentID == parentID {
			children = append(children, r)
		}
	}
	sort.Slice(children, func(i, j int) bool {
		if children[i].sortOrder != children[j].sortOrder {
			return children[i].sortOrder < children[j].sortOrder
		}
		return children[i].name < children[j].name
	})
	return children
}

func (s *Store) level(r *record) int {
	level := 0
	seen := map[string]bool{r.id: true}
	for cur := r.parentID; cur != "" && !seen[cur]; level++ {
		seen[cur] = true
		parent, ok := s.records[cur]
		if !ok {
			break
		}
		cur = parent.parentID
	}
	return level
}

func (s *Store) toCategory(r *record) catalog.Category {
	subCount := len(s.childrenOf(r.id))
	c := catalog.Category{
		ID:                 r.id,
		Name:               r.name,
		Description:        r.description,
		Icon:               r.icon,
		Level:              s.level(r),
		IsActive:           r.isActive,
		SortOrder:          r.sortOrder,
		SubCategoriesCount: subCount,
		ServicesCount:      r.servicesCount,
		HasChildren:        subCount > 0,
	}
	if r.parentID != "" {
		parentID := r.parentID
		c.ParentID = &parentID
	}
	return c
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
