package validator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Rule checks, and may normalize, one value. It returns a *Invalid error for
// user-correctable input and any other error for an external failure.
type Rule[T any] func(ctx context.Context, v T) (T, error)

// Invalid is a user-correctable failure of a single field.
type Invalid struct {
	Message string
}

func (e *Invalid) Error() string { return e.Message }

func Fail(message string) error { return &Invalid{Message: message} }

// ExternalError marks a failure of a collaborator (database, blob store)
// encountered while validating. It aborts the whole pass.
type ExternalError struct {
	Err error
}

func (e *ExternalError) Error() string { return "external: " + e.Err.Error() }
func (e *ExternalError) Unwrap() error { return e.Err }

func External(err error) error {
	if err == nil {
		return nil
	}
	var ext *ExternalError
	if errors.As(err, &ext) {
		return err
	}
	return &ExternalError{Err: err}
}

func IsExternal(err error) bool {
	var ext *ExternalError
	return errors.As(err, &ext)
}

// Errors holds the first message per invalid field.
type Errors map[string]string

func (e Errors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Pipeline validates a set of fields in declaration order.
type Pipeline struct {
	steps []step
}

type step struct {
	field string
	run   func(ctx context.Context) error
}

func New() *Pipeline { return &Pipeline{} }

// Field appends a field to p. Rules run in order against *value and each
// rule's output is written back, even when a later rule fails, so normalizing
// rules should come first. A field's chain stops at its first Invalid.
func Field[T any](p *Pipeline, name string, value *T, rules ...Rule[T]) *Pipeline {
	p.steps = append(p.steps, step{
		field: name,
		run: func(ctx context.Context) error {
			current := *value
			defer func() { *value = current }()
			for _, rule := range rules {
				next, err := rule(ctx, current)
				if err != nil {
					return err
				}
				current = next
			}
			return nil
		},
	})
	return p
}

// Run evaluates every field. A non-nil error is either Errors (user input)
// or an *ExternalError, which stops evaluation immediately.
func (p *Pipeline) Run(ctx context.Context) error {
	errs := Errors{}
	for _, s := range p.steps {
		err := s.run(ctx)
		if err == nil {
			continue
		}
		var inv *Invalid
		if !errors.As(err, &inv) {
			return External(err)
		}
		if _, seen := errs[s.field]; !seen {
			errs[s.field] = inv.Message
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
