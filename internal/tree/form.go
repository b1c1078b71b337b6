package tree

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/raine/category-admin/internal/catalog"
)

// NoParent is the parent selector value meaning "this is a main category".
const NoParent = "none"

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("notblank", validateNotBlank)
}

// FormData holds the in-progress values of the create/edit dialog.
type FormData struct {
	Name        string `validate:"notblank,max=120"`
	Description string `validate:"max=1000"`
	Icon        string `validate:"max=64"`
	ParentID    string
	IsActive    bool
}

// NewFormData returns the values a fresh create dialog starts with.
func NewFormData() FormData {
	return FormData{ParentID: NoParent, IsActive: true}
}

// FormDataFrom pre-fills the edit dialog from an existing category.
func FormDataFrom(c catalog.Category) FormData {
	form := FormData{
		Name:        c.Name,
		Description: c.Description,
		Icon:        c.Icon,
		ParentID:    NoParent,
		IsActive:    c.IsActive,
	}
	if !c.IsMain() {
		form.ParentID = *c.ParentID
	}
	return form
}

// ValidationError is a client-side rejection. No request is made when one
// is returned.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidationError reports whether err is a client-side validation error.
func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// Validate checks the form and returns a *ValidationError describing the
// first problem found.
func (f FormData) Validate() error {
	if err := validate.Struct(f); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			return &ValidationError{Message: formatFieldError(validationErrors[0])}
		}
		return &ValidationError{Message: err.Error()}
	}
	return nil
}

// Input converts the form into a request body. Surrounding whitespace is
// trimmed and the NoParent sentinel or an empty parent becomes null.
func (f FormData) Input() catalog.CategoryInput {
	return catalog.CategoryInput{
		Name:        strings.TrimSpace(f.Name),
		Description: strings.TrimSpace(f.Description),
		Icon:        strings.TrimSpace(f.Icon),
		ParentID:    normalizeParentID(f.ParentID),
		IsActive:    f.IsActive,
	}
}

func normalizeParentID(parentID string) *string {
	parentID = strings.TrimSpace(parentID)
	if parentID == "" || parentID == NoParent {
		return nil
	}
	return &parentID
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(e.Field())

	switch e.Tag() {
	case "notblank", "required":
		return fmt.Sprintf("Category %s is required", field)
	case "max":
		return fmt.Sprintf("Category %s must be at most %s characters", field, e.Param())
	default:
		return fmt.Sprintf("Category %s is invalid (%s)", field, e.Tag())
	}
}
