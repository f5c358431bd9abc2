package validator

import (
	"context"
	"strings"
	"unicode/utf8"
)

func TrimSpace() Rule[string] {
	return func(_ context.Context, v string) (string, error) {
		return strings.TrimSpace(v), nil
	}
}

func Lowercase() Rule[string] {
	return func(_ context.Context, v string) (string, error) {
		return strings.ToLower(v), nil
	}
}

// DefaultTo substitutes def for an empty value.
func DefaultTo(def string) Rule[string] {
	return func(_ context.Context, v string) (string, error) {
		if v == "" {
			return def, nil
		}
		return v, nil
	}
}

func Required(message string) Rule[string] {
	return func(_ context.Context, v string) (string, error) {
		if v == "" {
			return v, Fail(message)
		}
		return v, nil
	}
}

func MinLength(n int, message string) Rule[string] {
	return func(_ context.Context, v string) (string, error) {
		if utf8.RuneCountInString(v) < n {
			return v, Fail(message)
		}
		return v, nil
	}
}

func MaxLength(n int, message string) Rule[string] {
	return func(_ context.Context, v string) (string, error) {
		if utf8.RuneCountInString(v) > n {
			return v, Fail(message)
		}
		return v, nil
	}
}

// Tag applies a go-playground validation tag.
func Tag(tag, message string) Rule[string] {
	return func(_ context.Context, v string) (string, error) {
		if !Var(v, tag) {
			return v, Fail(message)
		}
		return v, nil
	}
}

// Equals compares against another field's value read at run time.
func Equals(other *string, message string) Rule[string] {
	return func(_ context.Context, v string) (string, error) {
		if v != *other {
			return v, Fail(message)
		}
		return v, nil
	}
}

func OneOf(message string, allowed ...string) Rule[string] {
	return func(_ context.Context, v string) (string, error) {
		for _, a := range allowed {
			if v == a {
				return v, nil
			}
		}
		return v, Fail(message)
	}
}

// Check adapts a predicate that may hit an external collaborator. ok=false
// fails the field with message; a non-nil error aborts the pipeline.
func Check[T any](message string, fn func(ctx context.Context, v T) (bool, error)) Rule[T] {
	return func(ctx context.Context, v T) (T, error) {
		ok, err := fn(ctx, v)
		if err != nil {
			return v, External(err)
		}
		if !ok {
			return v, Fail(message)
		}
		return v, nil
	}
}

// Optional skips the wrapped rules when the value is empty.
func Optional(rules ...Rule[string]) Rule[string] {
	return func(ctx context.Context, v string) (string, error) {
		if v == "" {
			return v, nil
		}
		for _, r := range rules {
			next, err := r(ctx, v)
			if err != nil {
				return v, err
			}
			v = next
		}
		return v, nil
	}
}
