package headless

import (
	"context"
	"errors"

	"github.com/devilsangel360live/Hearth/internal/recipe"
)

// Noop implements Fetcher but always returns an error to indicate that
// headless browsing is not available in the current deployment.
type Noop struct{}

// NewNoop creates a new Noop fetcher.
func NewNoop() *Noop {
	return &Noop{}
}

// Fetch returns an error since this is a stub implementation.
func (Noop) Fetch(_ context.Context, _ recipe.FetchRequest) (recipe.FetchResponse, error) {
	return recipe.FetchResponse{}, errors.New("headless fetcher not configured")
}
