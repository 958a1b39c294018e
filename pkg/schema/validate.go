package schema

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/aretw0/tooldeck/pkg/domain"
)

// Validate checks if data conforms to the form.
// Choice fields are checked against opts (or their static choices).
// Returns an *AggregateError with all validation failures found.
func Validate(form Form, data domain.FormData, opts domain.ToolOptions) error {
	var errs []error
	for _, field := range form.Fields {
		errs = append(errs, validateField(field, field.Name, data[field.Name], opts)...)
	}
	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

func validateField(field Field, key string, value any, opts domain.ToolOptions) []error {
	if isEmpty(value) {
		if field.Required || (field.Kind == KindGroup && field.MinEntries() > 0) {
			return []error{&ValidationError{Key: key, Reason: requiredReason(field)}}
		}
		return nil
	}

	fail := func(reason string) []error {
		return []error{&ValidationError{Key: key, Reason: reason, Value: value}}
	}

	switch field.Kind {
	case KindNumber:
		n, ok := value.(float64)
		if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
			return fail("must be a number")
		}
		if field.Positive && n <= 0 {
			return fail("must be a positive number")
		}
		if field.Min != nil && n < *field.Min {
			return fail(fmt.Sprintf("must be at least %s", formatNumber(*field.Min)))
		}
		if field.Max != nil && n > *field.Max {
			return fail(fmt.Sprintf("must be at most %s", formatNumber(*field.Max)))
		}

	case KindSelect, KindRadio:
		s, ok := value.(string)
		if !ok {
			return fail("must be a single choice")
		}
		if allowed := field.Allowed(opts); len(allowed) > 0 && !slices.Contains(allowed, s) {
			return fail(fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")))
		}

	case KindMultiSelect:
		items, ok := value.([]any)
		if !ok {
			return fail("must be a list of choices")
		}
		if len(items) < field.MinEntries() {
			return fail(fmt.Sprintf("select at least %d", field.MinEntries()))
		}
		allowed := field.Allowed(opts)
		for i, item := range items {
			s, ok := item.(string)
			if !ok || (len(allowed) > 0 && !slices.Contains(allowed, s)) {
				return []error{&ValidationError{
					Key:    fmt.Sprintf("%s[%d]", key, i),
					Reason: "is not an available choice",
					Value:  item,
				}}
			}
		}

	case KindCheckbox:
		if _, ok := value.(bool); !ok {
			return fail("must be true or false")
		}

	case KindGroup:
		entries, ok := value.([]any)
		if !ok {
			return fail("must be a list of entries")
		}
		if len(entries) < field.MinEntries() {
			return fail(fmt.Sprintf("at least %d %s required", field.MinEntries(), plural(field.MinEntries(), "entry", "entries")))
		}
		var errs []error
		for i, raw := range entries {
			entry, ok := raw.(map[string]any)
			if !ok {
				errs = append(errs, &ValidationError{Key: fmt.Sprintf("%s[%d]", key, i), Reason: "must be an object", Value: raw})
				continue
			}
			for _, sub := range field.Fields {
				subKey := fmt.Sprintf("%s[%d].%s", key, i, sub.Name)
				errs = append(errs, validateField(sub, subKey, entry[sub.Name], opts)...)
			}
		}
		return errs

	default:
		s, ok := value.(string)
		if !ok {
			return fail("must be text")
		}
		if field.Required && strings.TrimSpace(s) == "" {
			return fail(requiredReason(field))
		}
	}
	return nil
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	default:
		return false
	}
}

func requiredReason(field Field) string {
	switch field.Kind {
	case KindGroup:
		return fmt.Sprintf("at least %d %s required", field.MinEntries(), plural(field.MinEntries(), "entry", "entries"))
	case KindMultiSelect:
		return "select at least one"
	case KindSelect, KindRadio:
		return "please select a value"
	default:
		return "required"
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
