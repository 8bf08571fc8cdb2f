package validation

import (
	stderrors "errors"
	"fmt"
	"strings"

	errors "github.com/frahmantamala/helpdesk-access/internal"
	"github.com/frahmantamala/helpdesk-access/internal/access"
)

const maxSubjectIDLength = 128

type ValidatorFunc func(interface{}) *errors.AppError

type FieldValidator struct {
	FieldName  string
	Value      interface{}
	Validators []ValidatorFunc
}

type ValidationBuilder struct {
	fields []FieldValidator
	errors []errors.ValidationError
}

func NewValidator() *ValidationBuilder {
	return &ValidationBuilder{
		fields: make([]FieldValidator, 0),
		errors: make([]errors.ValidationError, 0),
	}
}

func (v *ValidationBuilder) Field(name string, value interface{}) *FieldValidator {
	fv := FieldValidator{
		FieldName:  name,
		Value:      value,
		Validators: make([]ValidatorFunc, 0),
	}
	v.fields = append(v.fields, fv)
	return &v.fields[len(v.fields)-1]
}

func (fv *FieldValidator) Required() *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		switch v := value.(type) {
		case string:
			if strings.TrimSpace(v) == "" {
				return errors.NewValidationFieldError(fv.FieldName, fmt.Sprintf("%s is required", fv.FieldName), errors.ErrCodeValidationFailed)
			}
		case *string:
			if v == nil || strings.TrimSpace(*v) == "" {
				return errors.NewValidationFieldError(fv.FieldName, fmt.Sprintf("%s is required", fv.FieldName), errors.ErrCodeValidationFailed)
			}
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) MaxLength(max int) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := value.(string); ok {
			if len(v) > max {
				message := fmt.Sprintf("%s must not exceed %d characters", fv.FieldName, max)
				return errors.NewValidationFieldError(fv.FieldName, message, errors.ErrCodeValidationFailed)
			}
		}
		return nil
	})
	return fv
}

// Rule runs a domain check and reports its error against this field.
func (fv *FieldValidator) Rule(check func() error) *FieldValidator {
	fv.Validators = append(fv.Validators, func(interface{}) *errors.AppError {
		if err := check(); err != nil {
			return FromAccessError(fv.FieldName, err)
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) Custom(validator func(interface{}) *errors.AppError) *FieldValidator {
	fv.Validators = append(fv.Validators, validator)
	return fv
}

func (v *ValidationBuilder) Validate() *errors.AppError {
	var validationErrors []errors.ValidationError

	for _, field := range v.fields {
		for _, validator := range field.Validators {
			if err := validator(field.Value); err != nil {
				if appErr, ok := errors.IsAppError(err); ok {

					if details, ok := appErr.Details.(errors.ValidationErrors); ok {
						validationErrors = append(validationErrors, details.Errors...)
					} else {
						validationErrors = append(validationErrors, errors.ValidationError{
							Field:   field.FieldName,
							Message: appErr.Message,
							Code:    string(appErr.Code),
						})
					}
				}
				// first failure per field is enough
				break
			}
		}
	}

	if len(validationErrors) > 0 {
		return errors.NewValidationError("Validation failed", errors.ErrCodeValidationFailed).
			WithDetails(errors.ValidationErrors{Errors: validationErrors})
	}

	return nil
}

// FromAccessError converts an access write-time error into a field error.
func FromAccessError(field string, err error) *errors.AppError {
	code := errors.ErrCodeValidationFailed
	switch {
	case stderrors.Is(err, access.ErrRoleNotFound):
		code = errors.ErrCodeUnknownRole
	case stderrors.Is(err, access.ErrPermissionNotFound):
		code = errors.ErrCodeUnknownPermission
	case stderrors.Is(err, access.ErrMalformedScope), stderrors.Is(err, access.ErrUnknownScopeKind):
		code = errors.ErrCodeInvalidScope
	case stderrors.Is(err, access.ErrScopeKindMismatch):
		code = errors.ErrCodeScopeKindMismatch
	case stderrors.Is(err, access.ErrUnknownDecision):
		code = errors.ErrCodeInvalidDecision
	case stderrors.Is(err, access.ErrUnknownGrantKind):
		code = errors.ErrCodeInvalidGrantKind
	case stderrors.Is(err, access.ErrInvalidGrantWindow):
		code = errors.ErrCodeInvalidGrantWindow
	}
	message := strings.TrimPrefix(err.Error(), "access: ")
	return errors.NewValidationFieldError(field, message, code)
}

func ValidateSubjectID(subjectID string) *errors.AppError {
	validator := NewValidator()
	validator.Field("subject_id", subjectID).
		Required().
		MaxLength(maxSubjectIDLength)
	return validator.Validate()
}

func ValidateAssignments(catalog *access.Catalog, assignments []access.RoleAssignment) *errors.AppError {
	validator := NewValidator()
	seen := make(map[string]struct{}, len(assignments))
	for i, a := range assignments {
		a := a
		field := fmt.Sprintf("assignments[%d]", i)
		validator.Field(field, a).
			Rule(func() error { return access.ValidateAssignment(catalog, a) }).
			Custom(func(interface{}) *errors.AppError {
				key := a.RoleKey + "|" + a.Scope.Normalize().String()
				if _, dup := seen[key]; dup {
					return errors.NewValidationFieldError(field, "duplicate assignment", errors.ErrCodeValidationFailed)
				}
				seen[key] = struct{}{}
				return nil
			})
	}
	return validator.Validate()
}

func ValidateOverride(catalog *access.Catalog, o access.Override) *errors.AppError {
	validator := NewValidator()
	validator.Field("permission", string(o.Permission)).
		Required().
		Rule(func() error { return o.Validate(catalog) })
	return validator.Validate()
}

func ValidateGrant(catalog *access.Catalog, g access.Grant) *errors.AppError {
	validator := NewValidator()
	validator.Field("kind", string(g.Kind)).
		Required().
		Rule(func() error { return g.Validate(catalog) })
	validator.Field("reason", g.Reason).
		MaxLength(500)
	return validator.Validate()
}
