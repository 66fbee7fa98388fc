// Package optimizer searches for the overhead or profit percentage that
// brings a bid as close as possible to a target total without exceeding it.
package optimizer

import (
	"fmt"

	"github.com/iwvelando/bid-estimator/internal/estimate"
	"github.com/iwvelando/bid-estimator/pkg/constants"
	"github.com/iwvelando/bid-estimator/pkg/money"
	"github.com/iwvelando/bid-estimator/pkg/optimization"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Field names the markup percentage being solved for.
type Field string

const (
	FieldProfitPct   Field = "profitPct"
	FieldOverheadPct Field = "overheadPct"
)

// DefaultMaxIterations bounds the bisection.
const DefaultMaxIterations = 64

// ParseField maps a request value to a Field. Empty selects FieldProfitPct.
func ParseField(value string) (Field, error) {
	switch Field(value) {
	case "", FieldProfitPct:
		return FieldProfitPct, nil
	case FieldOverheadPct:
		return FieldOverheadPct, nil
	}
	return "", fmt.Errorf("%w: solve field must be %s or %s, got %q",
		estimate.ErrInvalidParameter, FieldProfitPct, FieldOverheadPct, value)
}

// Runner solves for markup percentages.
type Runner struct {
	logger        *zap.Logger
	maxIterations int
}

// NewRunner returns a Runner. Non-positive maxIterations selects
// DefaultMaxIterations.
func NewRunner(logger *zap.Logger, maxIterations int) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &Runner{logger: logger, maxIterations: maxIterations}
}

type evaluation struct {
	hundredths int64
	est        estimate.Estimate
	target     decimal.Decimal
}

func (e evaluation) feasible() bool {
	return e.est.FinalTotal.LessThanOrEqual(e.target)
}

// Solve finds the largest percentage, in hundredths of a percent within
// [0, 100], for which the final total does not exceed target. The returned
// estimate is computed with that percentage. When even 0% exceeds target the
// 0% estimate is returned with Converged false.
func (r *Runner) Solve(items []estimate.LineItem, params estimate.Params, field Field, target decimal.Decimal) (optimization.Summary, estimate.Estimate, error) {
	if target.IsNegative() {
		return optimization.Summary{}, estimate.Estimate{}, fmt.Errorf("%w: target total %s must be >= 0", estimate.ErrInvalidParameter, target)
	}
	field, err := ParseField(string(field))
	if err != nil {
		return optimization.Summary{}, estimate.Estimate{}, err
	}

	original := params.ProfitPct
	if field == FieldOverheadPct {
		original = params.OverheadPct
	}

	evaluate := func(hundredths int64) (evaluation, error) {
		pct := decimal.New(hundredths, -constants.CurrencyPlaces)
		p := params
		if field == FieldOverheadPct {
			p.OverheadPct = pct
		} else {
			p.ProfitPct = pct
		}
		est, err := estimate.Compute(items, p)
		if err != nil {
			return evaluation{}, err
		}
		return evaluation{hundredths: hundredths, est: est, target: target}, nil
	}

	upperBound := int64(constants.MaxPercentage * constants.PercentageMultiplier)
	lowerEval, err := evaluate(0)
	if err != nil {
		return optimization.Summary{}, estimate.Estimate{}, err
	}
	upperEval, err := evaluate(upperBound)
	if err != nil {
		return optimization.Summary{}, estimate.Estimate{}, err
	}

	iterations := 0
	finalEval := upperEval
	var notes []string

	switch {
	case !lowerEval.feasible():
		finalEval = lowerEval
		notes = append(notes, fmt.Sprintf("target %s is below the bid at 0%% (%s)",
			money.Currency(target), money.Currency(lowerEval.est.FinalTotal)))
	case upperEval.feasible():
		if !upperEval.est.FinalTotal.Equal(target) {
			notes = append(notes, fmt.Sprintf("target %s is above the bid at 100%% (%s)",
				money.Currency(target), money.Currency(upperEval.est.FinalTotal)))
		}
	default:
		finalEval = lowerEval
		lower, upper := lowerEval.hundredths, upperEval.hundredths
		for iterations < r.maxIterations && upper-lower > 1 {
			mid := lower + (upper-lower)/2
			evalMid, err := evaluate(mid)
			if err != nil {
				return optimization.Summary{}, estimate.Estimate{}, err
			}
			iterations++
			if evalMid.feasible() {
				finalEval = evalMid
				lower = mid
			} else {
				upper = mid
			}
		}
	}

	converged := finalEval.feasible() && len(notes) == 0
	summary := optimization.Summary{
		Field:      string(field),
		Original:   original.String(),
		Value:      decimal.New(finalEval.hundredths, -constants.CurrencyPlaces).String(),
		Target:     money.Fixed(target),
		FinalTotal: money.Fixed(finalEval.est.FinalTotal),
		Headroom:   money.Fixed(target.Sub(finalEval.est.FinalTotal)),
		Iterations: iterations,
		Converged:  converged,
		Notes:      notes,
	}

	r.logger.Debug("solved markup for target total",
		zap.String("op", "optimizer.Solve"),
		zap.String("field", summary.Field),
		zap.String("value", summary.Value),
		zap.String("target", summary.Target),
		zap.String("finalTotal", summary.FinalTotal),
		zap.Int("iterations", iterations),
		zap.Bool("converged", converged),
	)

	return summary, finalEval.est, nil
}
