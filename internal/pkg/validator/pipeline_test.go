package validator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeline_CollectsFirstMessagePerField(t *testing.T) {
	name := "   "
	email := "not-an-email"
	password := "short"
	confirm := "different"

	p := New()
	Field(p, "name", &name, TrimSpace(), Required("Name is required"))
	Field(p, "email", &email, TrimSpace(), Required("Email is required"), Tag("email", "Email is invalid"))
	Field(p, "password", &password, MinLength(8, "Password must be at least 8 characters"), MaxLength(3, "too long"))
	Field(p, "passwordConfirm", &confirm, Equals(&password, "Passwords do not match"))

	err := p.Run(context.Background())
	var errs Errors
	require.True(t, errors.As(err, &errs))
	assert.Equal(t, Errors{
		"name":            "Name is required",
		"email":           "Email is invalid",
		"password":        "Password must be at least 8 characters",
		"passwordConfirm": "Passwords do not match",
	}, errs)
	assert.Equal(t, "", name, "normalizing rules write back")
}

func TestPipeline_ExternalErrorShortCircuits(t *testing.T) {
	dbDown := errors.New("connection refused")
	email := "a@example.com"
	later := ""
	ranLater := false

	p := New()
	Field(p, "email", &email, Check("Email already in use", func(context.Context, string) (bool, error) {
		return false, dbDown
	}))
	Field(p, "name", &later, func(_ context.Context, v string) (string, error) {
		ranLater = true
		return v, nil
	})

	err := p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsExternal(err))
	assert.ErrorIs(t, err, dbDown)
	assert.False(t, ranLater)
}

func TestPipeline_PassesAndNormalizes(t *testing.T) {
	email := "  Bob@Example.com "
	folder := ""
	duration := "1d"

	p := New()
	Field(p, "email", &email, TrimSpace(), Lowercase(), Tag("email", "Email is invalid"))
	Field(p, "folder", &folder, Optional(Tag("uuid", "Folder is invalid")))
	Field(p, "duration", &duration, OneOf("Invalid duration", "12h", "1d", "3d", "1w"))

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, "bob@example.com", email)
}

func TestDefaultTo(t *testing.T) {
	name := " "
	p := New()
	Field(p, "name", &name, TrimSpace(), DefaultTo("Untitled"))
	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, "Untitled", name)
}
