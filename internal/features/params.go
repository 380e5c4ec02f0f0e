package features

// Params is the immutable configuration for one domain's derivations. It is
// passed by value into every transform call so per-domain variation needs no
// subclassing and tests can tighten windows freely.
type Params struct {
	// Momentum horizons in panel rows (~1w, 2w, 1m, 1q of trading days).
	MomentumHorizons []int

	// Volatility horizons for the rolling std of daily returns.
	VolatilityHorizons []int

	// Moving-average windows with their observed-count floors.
	TrendWindows    []TrendWindow
	SlopeWindows    []int

	// Rolling standardization for time-series domains.
	NormWindow     int
	NormMinPeriods int

	// Fundamentals normalization pipeline.
	WinsorLower      float64
	WinsorUpper      float64
	WinsorExpanding  bool // restrict winsor quantiles to an expanding window
	ZScoreWindow     int  // fiscal periods
	ZScoreMinPeriods int
	EarningsCVWindow int
}

// TrendWindow pairs a moving-average window with its observed-count floor.
type TrendWindow struct {
	Window     int
	MinPeriods int
}

// DefaultParams returns the production parameter set.
func DefaultParams() Params {
	return Params{
		MomentumHorizons:   []int{5, 10, 21, 63},
		VolatilityHorizons: []int{21, 63},
		TrendWindows: []TrendWindow{
			{Window: 5, MinPeriods: 3},
			{Window: 21, MinPeriods: 10},
			{Window: 63, MinPeriods: 30},
		},
		SlopeWindows:     []int{21, 63},
		NormWindow:       252, // ~1 trading year
		NormMinPeriods:   126,
		WinsorLower:      0.05,
		WinsorUpper:      0.95,
		WinsorExpanding:  false,
		ZScoreWindow:     12,
		ZScoreMinPeriods: 3,
		EarningsCVWindow: 4,
	}
}
