package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/dmitrijs2005/recipelab/internal/common"
	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// ValidationError lists the fields that failed validation, by JSON path.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", common.ErrValidation, strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Unwrap() error {
	return common.ErrValidation
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	ve := &ValidationError{}
	for _, fe := range verrs {
		ns := fe.Namespace()
		if _, rest, ok := strings.Cut(ns, "."); ok {
			ns = rest
		}
		ve.Fields = append(ve.Fields, ns)
	}
	return ve
}

// ValidateContent checks generator output against the recipe schema.
func ValidateContent(c *Content) error {
	if err := getValidator().Struct(c); err != nil {
		return toValidationError(err)
	}
	return nil
}

// ValidateAvatar checks a profile avatar description.
func ValidateAvatar(a *Avatar) error {
	if err := getValidator().Struct(a); err != nil {
		return toValidationError(err)
	}
	return nil
}

// ValidateImported checks the structural shape of a recipe read from an
// export file. Content is checked against the schema as well.
func ValidateImported(r *Recipe) error {
	var fields []string
	if r.ID == "" {
		fields = append(fields, "id")
	}
	if r.RootID == "" {
		fields = append(fields, "rootId")
	}
	if r.Depth < 0 {
		fields = append(fields, "depth")
	}
	if r.CreatedBy.ID == "" {
		fields = append(fields, "createdBy.ownerId")
	}
	if r.IsRoot() && r.ID != "" && (r.RootID != r.ID || r.Depth != 0) {
		fields = append(fields, "rootId")
	}
	if !r.IsRoot() && r.Depth == 0 {
		fields = append(fields, "depth")
	}
	if err := ValidateContent(&r.Content); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			fields = append(fields, ve.Fields...)
		} else {
			return err
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
