package tree

import "github.com/raine/category-admin/internal/catalog"

// ParentOption is one entry of the parent selector.
type ParentOption struct {
	ID    string
	Label string
}

// ParentOptions lists the choices for the parent selector: the NoParent
// sentinel followed by the main categories. While editing, the category
// being edited is left out. Its descendants are not.
func (v *View) ParentOptions() []ParentOption {
	v.mu.Lock()
	defer v.mu.Unlock()

	candidates := v.mains
	if len(candidates) == 0 {
		candidates = v.roots
	}

	excluded := ""
	if v.dialog == DialogEdit && v.selected != nil {
		excluded = v.selected.ID
	}

	options := make([]ParentOption, 0, len(candidates)+1)
	options = append(options, ParentOption{ID: NoParent, Label: "None (main category)"})
	for _, c := range candidates {
		if c.ID == excluded {
			continue
		}
		options = append(options, ParentOption{ID: c.ID, Label: optionLabel(c)})
	}
	return options
}

func optionLabel(c catalog.Category) string {
	if c.Icon != "" {
		return c.Icon + " " + c.Name
	}
	return c.Name
}
