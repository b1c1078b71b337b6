package catalog

// Category is a node in the service taxonomy. Main categories have no parent
// and level 0.
type Category struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Description        string     `json:"description,omitempty"`
	Icon               string     `json:"icon,omitempty"`
	ParentID           *string    `json:"parentId"`
	Level              int        `json:"level"`
	IsActive           bool       `json:"isActive"`
	SortOrder          int        `json:"sortOrder"`
	SubCategoriesCount int        `json:"subCategoriesCount"`
	ServicesCount      int        `json:"servicesCount"`
	HasChildren        bool       `json:"hasChildren"`
	Children           []Category `json:"children,omitempty"`
}

// IsMain reports whether the category is a top-level category.
func (c Category) IsMain() bool {
	return c.ParentID == nil || *c.ParentID == ""
}

// CategoryInput is the request body for create and update. ParentID is
// always sent, as null for main categories.
type CategoryInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	ParentID    *string `json:"parentId"`
	IsActive    bool    `json:"isActive"`
}

// Find returns the category with the given id from a forest, searching
// children recursively.
func Find(categories []Category, id string) (Category, bool) {
	for _, c := range categories {
		if c.ID == id {
			return c, true
		}
		if found, ok := Find(c.Children, id); ok {
			return found, true
		}
	}
	return Category{}, false
}
