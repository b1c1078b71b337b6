package console

import (
	"context"
	"errors"

	"github.com/charmbracelet/huh"
	"github.com/raine/category-admin/internal/tree"
)

// ErrDialogAborted is returned when the operator dismisses a dialog.
var ErrDialogAborted = errors.New("dialog aborted")

// Dialogs collects input from the operator. HuhDialogs is the terminal
// implementation; tests substitute their own.
type Dialogs interface {
	tree.Confirmer
	CategoryForm(ctx context.Context, title string, form tree.FormData, parents []tree.ParentOption) (tree.FormData, error)
}

// HuhDialogs renders dialogs as interactive huh forms.
type HuhDialogs struct {
	theme *huh.Theme
}

func NewHuhDialogs() *HuhDialogs {
	return &HuhDialogs{theme: huh.ThemeBase16()}
}

// CategoryForm shows the create/edit dialog pre-filled with form.
func (d *HuhDialogs) CategoryForm(ctx context.Context, title string, form tree.FormData, parents []tree.ParentOption) (tree.FormData, error) {
	options := make([]huh.Option[string], len(parents))
	for i, p := range parents {
		options[i] = huh.NewOption(p.Label, p.ID)
	}

	f := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				Description("Name").
				Value(&form.Name).
				Validate(func(s string) error {
					return tree.FormData{Name: s}.Validate()
				}),
			huh.NewText().
				Title("Description").
				Value(&form.Description),
			huh.NewInput().
				Title("Icon").
				Description("Emoji or short icon name").
				Value(&form.Icon),
			huh.NewSelect[string]().
				Title("Parent category").
				Options(options...).
				Value(&form.ParentID),
			huh.NewConfirm().
				Title("Active").
				Affirmative("Yes").
				Negative("No").
				Value(&form.IsActive),
		),
	).WithTheme(d.theme)

	if err := f.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return form, ErrDialogAborted
		}
		return form, err
	}
	return form, nil
}

// Confirm asks a blocking yes/no question. Aborting the prompt counts as no.
func (d *HuhDialogs) Confirm(ctx context.Context, prompt string) (bool, error) {
	var ok bool
	f := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(prompt).
				Affirmative("Delete").
				Negative("Cancel").
				Value(&ok),
		),
	).WithTheme(d.theme)

	if err := f.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}
