package validation

import (
	"reflect"
	"sort"
	"strings"

	"example.com/pacific/relief/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	RegisterCustomValidations()
}

// FieldErrors maps a JSON field name to the reason it was rejected
type FieldErrors map[string]string

// Error implements the error interface
func (f FieldErrors) Error() string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+f[name])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// RegisterCustomValidations registers custom validation functions
func RegisterCustomValidations() {
	validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	validate.RegisterValidation("event_status", func(fl validator.FieldLevel) bool {
		return models.EventStatus(fl.Field().String()).Valid()
	})

	validate.RegisterValidation("request_status", func(fl validator.FieldLevel) bool {
		return models.RequestStatus(fl.Field().String()).Valid()
	})

	validate.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return models.Category(fl.Field().String()).Valid()
	})

	validate.RegisterValidation("urgency", func(fl validator.FieldLevel) bool {
		return models.Urgency(fl.Field().String()).Valid()
	})
}

// ValidateStruct validates a payload using its validate tags. Rule
// violations are returned as FieldErrors.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(err, "failed to validate payload")
	}

	fields := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = reason(fe.Tag())
	}
	return fields
}

// ValidatePatch checks every field present in a request patch. Required
// fields may not be cleared; assignee fields accept null.
func ValidatePatch(p models.RequestPatch) error {
	fields := make(FieldErrors)

	checkRequired(fields, "event_id", p.EventID, "notblank")
	checkRequired(fields, "status", p.Status, "request_status")
	checkRequired(fields, "urgency", p.Urgency, "urgency")
	checkRequired(fields, "category", p.Category, "category")
	checkRequired(fields, "location", p.Location, "notblank")
	checkRequired(fields, "description", p.Description, "notblank")

	if len(fields) == 0 {
		return nil
	}
	return fields
}

func checkRequired[T any](fields FieldErrors, name string, value models.Optional[T], tag string) {
	if !value.Set {
		return
	}
	if value.Null {
		fields[name] = "may not be null"
		return
	}

	if err := validate.Var(value.Value, tag); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fields[name] = reason(verrs[0].Tag())
			return
		}
		fields[name] = err.Error()
	}
}

func reason(tag string) string {
	switch tag {
	case "required":
		return "is required"
	case "notblank":
		return "must not be blank"
	case "event_status":
		return "must be one of planned, active, closed"
	case "request_status":
		return "must be one of new, assigned, in_progress, completed"
	case "category":
		return "must be one of water, food, medical, shelter, transport, other"
	case "urgency":
		return "must be one of low, medium, high"
	}
	return "failed " + tag + " validation"
}
