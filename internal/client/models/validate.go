package models

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidationError carries a message that can be shown to the user as is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return common.ErrorValidation
}

// Validate checks v against its `validate` tags. Strings tagged required
// must contain more than whitespace, so callers should trim first.
func Validate(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}

	fe := verrs[0]
	return &ValidationError{Field: fe.Field(), Message: messageFor(fe)}
}

func messageFor(fe validator.FieldError) string {
	field := fieldLabel(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Please enter a %s", field)
	case "max":
		return fmt.Sprintf("The %s must be at most %s characters", field, fe.Param())
	case "hexcolor":
		return fmt.Sprintf("The %s must be a hex color like #AABBCC", field)
	default:
		return fmt.Sprintf("The %s is invalid", field)
	}
}

var fieldLabels = map[string]string{
	"ItemID":   "related item",
	"NotifyAt": "reminder time",
}

func fieldLabel(name string) string {
	if l, ok := fieldLabels[name]; ok {
		return l
	}
	return strings.ToLower(name)
}

// ValidateItem trims and validates an item create input.
func ValidateItem(in *ItemInput) error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Description != nil {
		d := strings.TrimSpace(*in.Description)
		in.Description = &d
	}
	return Validate(in)
}

// ValidateItemPatch trims and validates a partial item update.
// A patch may not blank the title.
func ValidateItemPatch(p *ItemPatch) error {
	if p.Title != nil {
		t := strings.TrimSpace(*p.Title)
		if t == "" {
			return &ValidationError{Field: "Title", Message: "Please enter a title"}
		}
		p.Title = &t
	}
	return Validate(p)
}

// ValidateCategory trims and validates a category input.
func ValidateCategory(in *CategoryInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Color = strings.TrimSpace(in.Color)
	in.Icon = strings.TrimSpace(in.Icon)
	return Validate(in)
}

// ValidateTag trims and validates a tag input.
func ValidateTag(in *TagInput) error {
	in.Name = strings.TrimSpace(in.Name)
	return Validate(in)
}

// ValidateReminder validates a reminder input.
func ValidateReminder(in *ReminderInput) error {
	return Validate(in)
}
