package extract

import (
	"go.uber.org/zap"

	"github.com/devilsangel360live/Hearth/internal/metrics"
	"github.com/devilsangel360live/Hearth/internal/recipe"
)

// Strategy pulls a candidate recipe out of a parsed page. Returning
// (nil, nil) means the page holds nothing for this strategy; an error means
// the strategy found material it could not decode. Either way the chain
// moves on to the next strategy.
type Strategy interface {
	Name() string
	Extract(p *Page) (*recipe.Candidate, error)
}

// Chain runs strategies in priority order and stops at the first candidate
// the validity gate accepts.
type Chain struct {
	strategies []Strategy
	logger     *zap.Logger
}

func NewChain(logger *zap.Logger, strategies ...Strategy) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{strategies: strategies, logger: logger}
}

// DefaultChain wires the standard order: structured data, microdata,
// selector patterns, site-specific scrapers, heuristic fallback.
func DefaultChain(logger *zap.Logger) *Chain {
	return NewChain(logger,
		StructuredData{},
		Microdata{},
		SelectorPatterns{},
		NewSites(DefaultRegistry()),
		Heuristic{},
	)
}

// Run returns the first accepted candidate and the name of the strategy
// that produced it. When every strategy comes up empty it returns
// recipe.ErrNoRecipe.
func (c *Chain) Run(p *Page) (*recipe.Candidate, string, error) {
	for _, s := range c.strategies {
		cand, err := s.Extract(p)
		if err != nil {
			c.logger.Debug("strategy error",
				zap.String("strategy", s.Name()),
				zap.String("url", p.URL),
				zap.Error(err))
			continue
		}
		if cand == nil {
			continue
		}
		if !Accept(cand) {
			c.logger.Debug("candidate rejected",
				zap.String("strategy", s.Name()),
				zap.String("url", p.URL))
			continue
		}
		metrics.ObserveStrategyHit(s.Name())
		return cand, s.Name(), nil
	}
	return nil, "", recipe.ErrNoRecipe
}
