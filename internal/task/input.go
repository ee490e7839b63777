package task

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultPriority = PriorityMedium
	DefaultStatus   = StatusTodo
	MinTitleLength  = 3
)

type CreateInput struct {
	Title       string   `validate:"required,min=3,max=256"`
	Description string   `validate:"max=4096"`
	Priority    Priority `validate:"required,oneof=low medium high"`
	Status      Status   `validate:"required,oneof=todo inprogress completed"`
}

// UpdateInput carries a partial update; nil fields are left unchanged.
type UpdateInput struct {
	ID          int       `validate:"required,gt=0"`
	Title       *string   `validate:"omitempty,min=3,max=256"`
	Description *string   `validate:"omitempty,max=4096"`
	Priority    *Priority `validate:"omitempty,oneof=low medium high"`
	Status      *Status   `validate:"omitempty,oneof=todo inprogress completed"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Normalize trims the title and fills in the default priority and status.
func (in CreateInput) Normalize() CreateInput {
	in.Title = strings.TrimSpace(in.Title)
	if in.Priority == "" {
		in.Priority = DefaultPriority
	}
	if in.Status == "" {
		in.Status = DefaultStatus
	}
	return in
}

func (in CreateInput) Validate() error {
	return validationError(validate.Struct(in))
}

func (in UpdateInput) Validate() error {
	return validationError(validate.Struct(in))
}

// Apply returns t with the fields set in the update.
func (in UpdateInput) Apply(t Task) Task {
	if in.Title != nil {
		t.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	return t
}

func validationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "gt":
		return field + " must be positive"
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
