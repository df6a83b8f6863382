package idgen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// DefaultMaxAttempts bounds candidate generation when none is configured.
const DefaultMaxAttempts = 5

// ErrGenerationExhausted is returned when every attempt produced a taken id.
var ErrGenerationExhausted = errors.New("ticket id generation exhausted")

// Generator produces human-shareable ticket ids and retries on collision.
type Generator struct {
	// Candidate returns a fresh id candidate.
	Candidate func() string
	// Exists is an optional pre-check against the store.
	Exists func(ctx context.Context, id string) (bool, error)
	// IsCollision reports whether an insert error is a uniqueness violation on the id.
	IsCollision func(err error) bool
	MaxAttempts int
}

// NewGenerator returns a Generator using the INC- uuid candidate format.
func NewGenerator(exists func(ctx context.Context, id string) (bool, error), isCollision func(error) bool, maxAttempts int) *Generator {
	return &Generator{
		Candidate:   IncidentKey,
		Exists:      exists,
		IsCollision: isCollision,
		MaxAttempts: maxAttempts,
	}
}

// IncidentKey returns an id such as INC-3FA85F64.
func IncidentKey() string {
	return "INC-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// Attempts is the effective attempt budget.
func (g *Generator) Attempts() int {
	if g.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return g.MaxAttempts
}

func (g *Generator) candidate() string {
	if g.Candidate == nil {
		return IncidentKey()
	}
	return g.Candidate()
}

// Insert generates an id and hands it to insert, regenerating when the store
// rejects it as a duplicate. Both pre-check hits and insert collisions consume
// the same attempt budget.
func (g *Generator) Insert(ctx context.Context, insert func(ctx context.Context, id string) error) (string, error) {
	for i := 0; i < g.Attempts(); i++ {
		id := g.candidate()
		if g.Exists != nil {
			taken, err := g.Exists(ctx, id)
			if err != nil {
				return "", fmt.Errorf("check ticket id: %w", err)
			}
			if taken {
				continue
			}
		}
		err := insert(ctx, id)
		if err == nil {
			return id, nil
		}
		if g.IsCollision != nil && g.IsCollision(err) {
			continue
		}
		return "", err
	}
	return "", ErrGenerationExhausted
}
