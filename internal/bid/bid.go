// Package bid builds a priced estimate for one analysis run: it seeds line
// items from detected device counts, applies price overrides and markup, and
// renders the breakdown.
package bid

import (
	"sort"

	"github.com/google/uuid"
	"github.com/iwvelando/bid-estimator/internal/catalog"
	"github.com/iwvelando/bid-estimator/internal/detection"
	"github.com/iwvelando/bid-estimator/internal/estimate"
	"github.com/iwvelando/bid-estimator/internal/optimizer"
	"github.com/iwvelando/bid-estimator/pkg/optimization"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Request holds the inputs of one estimate run.
type Request struct {
	Trade  string
	Counts map[string]int
	Prices map[string]decimal.Decimal
	Params estimate.Params
	// IncludeZero keeps zero-quantity devices in the rendered rows.
	IncludeZero bool
	// Target, when set, replaces one markup percentage with the largest
	// value that keeps the final total at or below Target.Total.
	Target *Target
}

// Target is a desired final total and the markup solved for to reach it.
type Target struct {
	Total decimal.Decimal
	Field optimizer.Field
}

// Result is a computed bid together with the catalog it was priced against.
type Result struct {
	ID          string
	Trade       string
	Estimate    estimate.Estimate
	Rows        []estimate.Row
	Catalog     *catalog.Catalog
	UnknownKeys []string
	Solve       *optimization.Summary
}

// Build prices a request against the trade's subset of cat. Counts and price
// overrides for devices outside the trade are ignored and reported in
// UnknownKeys.
func Build(logger *zap.Logger, cat *catalog.Catalog, req Request) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	tradeCatalog, err := cat.Trade(req.Trade)
	if err != nil {
		return nil, err
	}

	items, unknown := tradeCatalog.Seed(req.Counts, req.Prices)
	for key := range req.Prices {
		if _, ok := tradeCatalog.Entry(key); !ok && !contains(unknown, key) {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)

	if len(unknown) > 0 {
		logger.Warn("ignoring devices not in trade catalog",
			zap.String("op", "bid.Build"),
			zap.String("trade", req.Trade),
			zap.Strings("keys", unknown),
		)
	}

	est, err := estimate.Compute(items, req.Params)
	if err != nil {
		return nil, err
	}

	var solve *optimization.Summary
	if req.Target != nil {
		summary, solved, err := optimizer.NewRunner(logger, 0).Solve(items, req.Params, req.Target.Field, req.Target.Total)
		if err != nil {
			return nil, err
		}
		est = solved
		solve = &summary
	}

	rendered := est
	if !req.IncludeZero {
		rendered = est.Nonzero()
	}

	result := &Result{
		ID:          uuid.NewString(),
		Trade:       req.Trade,
		Estimate:    est,
		Rows:        estimate.ToTable(rendered, tradeCatalog),
		Catalog:     tradeCatalog,
		UnknownKeys: unknown,
		Solve:       solve,
	}

	logger.Debug("estimate computed",
		zap.String("op", "bid.Build"),
		zap.String("id", result.ID),
		zap.String("trade", req.Trade),
		zap.Int("lineItems", len(est.LineItems)),
		zap.String("finalTotal", est.FinalTotal.StringFixed(2)),
	)
	return result, nil
}

// FromReply parses a blueprint analysis reply and uses its total counts as
// the request's counts.
func FromReply(reply string, req Request) (Request, *detection.Result, error) {
	parsed, err := detection.Parse(reply)
	if err != nil {
		return req, nil, err
	}
	counts, err := parsed.Counts()
	if err != nil {
		return req, nil, err
	}
	req.Counts = counts
	return req, parsed, nil
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
