package dice

import "go.uber.org/zap"

// Roller is a Source that also rolls expressions, logging each at debug
// level. Lua mechanics roll through it.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller returns a Roller drawing from src. A nil logger discards
// roll logs.
//
// Precondition: src must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Roller{src: src, logger: logger}
}

// Intn delegates to the wrapped Source.
//
// Precondition: n > 0.
func (r *Roller) Intn(n int) int {
	return r.src.Intn(n)
}

// RollExpr parses and rolls expr, logging the result.
func (r *Roller) RollExpr(expr string) (RollResult, error) {
	res, err := RollExpr(expr, r.src)
	if err != nil {
		r.logger.Debug("dice roll rejected", zap.String("expression", expr), zap.Error(err))
		return RollResult{}, err
	}
	r.logger.Debug("dice roll",
		zap.String("expression", res.Expression),
		zap.Ints("dice", res.Dice),
		zap.Int("total", res.Total()),
	)
	return res, nil
}
