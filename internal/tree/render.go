package tree

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/raine/category-admin/internal/catalog"
)

// MaxRenderDepth is the number of tiers the tree renders: main categories
// and one tier of children. Deeper levels exist in the data model but are
// not shown.
const MaxRenderDepth = 2

const (
	emptyMessage     = "No categories yet. Use \"new\" to create the first one."
	loadErrorMessage = "Categories could not be loaded."
	indentUnit       = "    "
)

// Action is an operation offered on a rendered row.
type Action string

const (
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// Row is one rendered line of the tree.
type Row struct {
	Category   catalog.Category
	Depth      int
	Expandable bool
	Expanded   bool
	Actions    []Action
}

var (
	nameStyle    = lipgloss.NewStyle().Bold(true)
	badgeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))
	counterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
)

// Rows flattens the loaded tree into rendered rows, descending into a node
// only when it is expandable and expanded.
func (v *View) Rows() []Row {
	v.mu.Lock()
	defer v.mu.Unlock()

	var rows []Row
	for _, root := range v.roots {
		rows = v.appendRows(rows, root, 0)
	}
	return rows
}

func (v *View) appendRows(rows []Row, c catalog.Category, depth int) []Row {
	expandable := c.HasChildren && depth+1 < v.maxDepth
	expanded := expandable && v.expanded[c.ID]

	rows = append(rows, Row{
		Category:   c,
		Depth:      depth,
		Expandable: expandable,
		Expanded:   expanded,
		Actions:    []Action{ActionEdit, ActionDelete},
	})
	if !expanded {
		return rows
	}
	for _, child := range c.Children {
		rows = v.appendRows(rows, child, depth+1)
	}
	return rows
}

// Render draws the tree as text. When nothing has ever been loaded an
// empty-state message is shown instead.
func (v *View) Render() string {
	rows := v.Rows()
	if len(rows) == 0 {
		v.mu.Lock()
		failed := !v.loaded && v.loadErr != nil
		v.mu.Unlock()
		if failed {
			return mutedStyle.Render(loadErrorMessage)
		}
		return mutedStyle.Render(emptyMessage)
	}

	var b strings.Builder
	for _, row := range rows {
		b.WriteString(renderRow(row))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderRow(row Row) string {
	c := row.Category

	marker := " "
	switch {
	case row.Expandable && row.Expanded:
		marker = "▾"
	case row.Expandable:
		marker = "▸"
	case row.Depth > 0:
		marker = "•"
	}

	parts := []string{strings.Repeat(indentUnit, row.Depth) + marker}
	if c.Icon != "" {
		parts = append(parts, c.Icon)
	}
	parts = append(parts, nameStyle.Render(c.Name))
	parts = append(parts, badgeStyle.Render(fmt.Sprintf("[L%d]", c.Level)))
	if !c.IsActive {
		parts = append(parts, mutedStyle.Render("(inactive)"))
	}
	parts = append(parts, counterStyle.Render(fmt.Sprintf("sub: %d · services: %d", c.SubCategoriesCount, c.ServicesCount)))

	actions := make([]string, len(row.Actions))
	for i, a := range row.Actions {
		actions[i] = string(a)
	}
	parts = append(parts, idStyle.Render(fmt.Sprintf("id:%s [%s]", c.ID, strings.Join(actions, "|"))))

	return strings.Join(parts, " ")
}
