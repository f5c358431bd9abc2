package naming

import (
	"context"
	"fmt"
	"strings"

	"filevault/internal/repository"
)

// DefaultName is used when the requested name is blank.
const DefaultName = "Untitled"

// Scope is the sibling set within which a name must be unique.
type Scope interface {
	siblingsWithPrefix(ctx context.Context, repos *repository.Repositories, prefix string) ([]string, error)
}

// FileScope selects the uploader's root space (FolderID nil) or one folder.
type FileScope struct {
	UploaderID string
	FolderID   *string
}

func (s FileScope) siblingsWithPrefix(ctx context.Context, repos *repository.Repositories, prefix string) ([]string, error) {
	return repos.Files.NamesWithPrefix(ctx, s.UploaderID, s.FolderID, prefix)
}

// FolderScope selects the owner's folders. ExcludeID leaves the folder being
// renamed out of the comparison.
type FolderScope struct {
	OwnerID   string
	ExcludeID string
}

func (s FolderScope) siblingsWithPrefix(ctx context.Context, repos *repository.Repositories, prefix string) ([]string, error) {
	return repos.Folders.NamesWithPrefix(ctx, s.OwnerID, prefix, s.ExcludeID)
}

// Resolver derives the name to persist for a new or renamed item.
//
// Resolution is best-effort: two concurrent calls for the same base can
// return the same name. Folders are backed by a unique index, so the loser
// of that race fails at insert time instead.
type Resolver struct {
	repos *repository.Repositories
}

func NewResolver(repos *repository.Repositories) *Resolver {
	return &Resolver{repos: repos}
}

// Resolve trims requested, substitutes DefaultName for blanks and, when k
// siblings already start with the name, appends " (k+1)". If that exact
// candidate is itself taken the suffix is bumped until it is free.
func (r *Resolver) Resolve(ctx context.Context, requested string, scope Scope) (string, error) {
	return r.ResolveWith(ctx, r.repos, requested, scope)
}

// ResolveWith is Resolve over an explicit repository set, e.g. a transaction.
func (r *Resolver) ResolveWith(ctx context.Context, repos *repository.Repositories, requested string, scope Scope) (string, error) {
	base := Normalize(requested)

	siblings, err := scope.siblingsWithPrefix(ctx, repos, base)
	if err != nil {
		return "", fmt.Errorf("load sibling names: %w", err)
	}
	return Disambiguate(base, siblings), nil
}

// Normalize trims and defaults a requested name.
func Normalize(requested string) string {
	base := strings.TrimSpace(requested)
	if base == "" {
		return DefaultName
	}
	return base
}

// Disambiguate applies the suffix rule to base given the sibling names that
// start with it.
func Disambiguate(base string, siblings []string) string {
	taken := make(map[string]struct{}, len(siblings))
	k := 0
	for _, s := range siblings {
		if strings.HasPrefix(s, base) {
			taken[s] = struct{}{}
			k++
		}
	}
	if k == 0 {
		return base
	}

	n := k + 1
	for {
		candidate := fmt.Sprintf("%s (%d)", base, n)
		if _, exists := taken[candidate]; !exists {
			return candidate
		}
		n++
	}
}
