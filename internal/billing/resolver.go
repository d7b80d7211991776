package billing

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// IdentityLookup is one step of a user resolution chain. It returns "" when
// the step has nothing to offer.
type IdentityLookup struct {
	Name   string
	Lookup func(ctx context.Context) (string, error)
}

// Static is a lookup step backed by a value already present on the event.
func Static(name, userID string) IdentityLookup {
	return IdentityLookup{
		Name:   name,
		Lookup: func(context.Context) (string, error) { return userID, nil },
	}
}

// ResolveUser runs the steps in order and returns the first non-empty user id
// together with the name of the step that produced it. A failing step is
// logged and skipped.
func ResolveUser(ctx context.Context, logger zerolog.Logger, steps ...IdentityLookup) (userID, resolvedBy string) {
	for _, step := range steps {
		id, err := step.Lookup(ctx)
		if err != nil {
			logger.Warn().Err(err).Str("resolver", step.Name).Msg("User lookup failed; trying next resolver")
			continue
		}
		if id = strings.TrimSpace(id); id != "" {
			return id, step.Name
		}
	}
	return "", ""
}
