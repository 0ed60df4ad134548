// Package validation centralizes struct validation for filter, aggregation
// and drill-down specs. Domain vocabularies (severity labels, road types,
// weekday names) are registered as custom rules so spec structs can tag
// fields instead of re-checking membership by hand.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/couchcryptid/crash-data-engine/internal/domain"
)

var (
	v    *validator.Validate
	once sync.Once
)

// Validator returns the process-wide validator with the crash-domain rules
// registered. Safe for concurrent use.
func Validator() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("severity_label", memberOf(domain.SeverityLabels()))
		_ = v.RegisterValidation("road_type_label", memberOf(domain.RoadTypeLabels()))
		_ = v.RegisterValidation("weekday_name", memberOf(domain.WeekdayNames()))
	})
	return v
}

// memberOf builds a rule accepting only the given string values.
func memberOf(values []string) validator.Func {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		set[value] = struct{}{}
	}
	return func(fl validator.FieldLevel) bool {
		_, ok := set[fl.Field().String()]
		return ok
	}
}

// ValidateStruct validates a tagged struct and returns a descriptive error
// naming the first offending field, or nil when the struct is valid.
func ValidateStruct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required", "required_if", "required_unless":
		return fmt.Errorf("%s is required", field)
	case "severity_label":
		return fmt.Errorf("%s: %q is not a severity label", field, fe.Value())
	case "road_type_label":
		return fmt.Errorf("%s: %q is not a road type label", field, fe.Value())
	case "weekday_name":
		return fmt.Errorf("%s: %q is not a weekday name", field, fe.Value())
	case "oneof":
		return fmt.Errorf("%s: %q is not one of %s", field, fe.Value(), fe.Param())
	case "min", "max", "gte", "lte", "gt", "ltefield", "gtefield":
		return fmt.Errorf("%s must satisfy %s=%s", field, fe.Tag(), fe.Param())
	}
	return fmt.Errorf("invalid %s", field)
}
