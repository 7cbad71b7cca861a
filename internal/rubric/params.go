package rubric

// Params holds the heuristic thresholds the scorer uses. The defaults are the
// tuned production values; a YAML tuning file may override any of them.
type Params struct {
	// SubstantiveMinRunes is the trimmed length a user turn needs to count as substantive.
	SubstantiveMinRunes int `yaml:"substantive_min_runes"`
	// RecentWindow is how many trailing turns (either role) the scorer looks at.
	RecentWindow int `yaml:"recent_window"`
	// MaxContextDepth caps ContextDepth.
	MaxContextDepth int `yaml:"max_context_depth"`
	// LowEngagementRatio: below this substantive/user-turn ratio the user is blocked.
	LowEngagementRatio float64 `yaml:"low_engagement_ratio"`
	// HighEngagementRatio: at or above this ratio, with follow-through, the user is leaning in.
	HighEngagementRatio float64 `yaml:"high_engagement_ratio"`
	// TerseMaxRunes: replies shorter than this are terse.
	TerseMaxRunes int `yaml:"terse_max_runes"`
	// HighEnergyMinTurns and HighEnergyMeanRunes gate the high energy level.
	HighEnergyMinTurns  int `yaml:"high_energy_min_turns"`
	HighEnergyMeanRunes int `yaml:"high_energy_mean_runes"`
	// IdeaLookback is how many of the latest user turns are checked for idea requests.
	IdeaLookback int `yaml:"idea_lookback"`
}

// DefaultParams returns the production thresholds.
func DefaultParams() Params {
	return Params{
		SubstantiveMinRunes: 40,
		RecentWindow:        8,
		MaxContextDepth:     6,
		LowEngagementRatio:  0.34,
		HighEngagementRatio: 0.6,
		TerseMaxRunes:       20,
		HighEnergyMinTurns:  3,
		HighEnergyMeanRunes: 120,
		IdeaLookback:        2,
	}
}

// withDefaults fills zero or negative fields from DefaultParams so a partial
// tuning file never disables a heuristic.
func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.SubstantiveMinRunes <= 0 {
		p.SubstantiveMinRunes = d.SubstantiveMinRunes
	}
	if p.RecentWindow <= 0 {
		p.RecentWindow = d.RecentWindow
	}
	if p.MaxContextDepth <= 0 {
		p.MaxContextDepth = d.MaxContextDepth
	}
	if p.LowEngagementRatio <= 0 {
		p.LowEngagementRatio = d.LowEngagementRatio
	}
	if p.HighEngagementRatio <= 0 {
		p.HighEngagementRatio = d.HighEngagementRatio
	}
	if p.TerseMaxRunes <= 0 {
		p.TerseMaxRunes = d.TerseMaxRunes
	}
	if p.HighEnergyMinTurns <= 0 {
		p.HighEnergyMinTurns = d.HighEnergyMinTurns
	}
	if p.HighEnergyMeanRunes <= 0 {
		p.HighEnergyMeanRunes = d.HighEnergyMeanRunes
	}
	if p.IdeaLookback <= 0 {
		p.IdeaLookback = d.IdeaLookback
	}
	return p
}
