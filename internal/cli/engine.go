package cli

import (
	"fmt"

	"github.com/MikeSquared-Agency/wayfinder/internal/config"
	"github.com/MikeSquared-Agency/wayfinder/internal/engine"
	"github.com/MikeSquared-Agency/wayfinder/internal/rubric"
	"github.com/MikeSquared-Agency/wayfinder/internal/signal"
)

// newEngine builds the decision engine from the tuning file and card flags.
func newEngine(cfg config.Config) (*engine.Engine, error) {
	params, err := config.LoadTuning(cfg.TuningFile)
	if err != nil {
		return nil, fmt.Errorf("loading tuning: %w", err)
	}
	return engine.New(rubric.NewScorer(params), engine.Defaults{
		AllowCardPrompt: cfg.AllowCardPrompts,
		CardPromptTone:  signal.ParseCardPromptTone(cfg.CardPromptTone),
	}), nil
}
