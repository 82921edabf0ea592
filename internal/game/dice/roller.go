package dice

import "go.uber.org/zap"

const percentResolution = 1_000_000

// Roller wraps a Source and logger. Every roll is logged at debug level with
// its label so a seeded run can be audited afterwards.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that rolls with src and logs to logger.
//
// Precondition: src must be non-nil. A nil logger is replaced by a no-op logger.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Roller{src: src, logger: logger}
}

// Chance returns a uniform value in [0, 1).
func (r *Roller) Chance(label string) float64 {
	v := float64(r.src.Intn(percentResolution)) / percentResolution
	r.logger.Debug("chance roll", zap.String("label", label), zap.Float64("value", v))
	return v
}

// Percent returns a uniform value in [0, 100).
func (r *Roller) Percent(label string) float64 {
	v := float64(r.src.Intn(percentResolution)) / percentResolution * 100
	r.logger.Debug("percent roll", zap.String("label", label), zap.Float64("value", v))
	return v
}

// Range returns a uniform value in [lo, hi). When hi <= lo it returns lo.
func (r *Roller) Range(label string, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	v := lo + float64(r.src.Intn(percentResolution))/percentResolution*(hi-lo)
	r.logger.Debug("range roll", zap.String("label", label), zap.Float64("value", v))
	return v
}

// Intn returns a uniform int in [0, n). n <= 0 yields 0.
func (r *Roller) Intn(label string, n int) int {
	if n <= 0 {
		return 0
	}
	v := r.src.Intn(n)
	r.logger.Debug("index roll", zap.String("label", label), zap.Int("n", n), zap.Int("value", v))
	return v
}

// Quantity rolls expr and logs the audit string.
//
// Postcondition: result.Total() == sum(result.Dice) + expr.Modifier.
func (r *Roller) Quantity(label string, expr Expression) RollResult {
	result := Roll(expr, r.src)
	r.logger.Debug("dice roll",
		zap.String("label", label),
		zap.String("expression", result.Expression),
		zap.Ints("dice", result.Dice),
		zap.Int("modifier", result.Modifier),
		zap.Int("total", result.Total()),
	)
	return result
}
