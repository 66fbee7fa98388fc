package integration

import (
	"os"
	"testing"
	"time"

	"github.com/iwvelando/bid-estimator/internal/bid"
	"github.com/iwvelando/bid-estimator/internal/catalog"
	"github.com/iwvelando/bid-estimator/internal/config"
	"github.com/iwvelando/bid-estimator/internal/estimate"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TestPerformance tests performance characteristics
func TestPerformance(t *testing.T) {
	logger := zap.NewNop()

	start := time.Now()
	conf, err := config.LoadConfiguration("../test_config.yaml")
	if err != nil {
		t.Fatalf("LoadConfiguration failed: %v", err)
	}
	cat, err := conf.Catalog()
	if err != nil {
		t.Fatalf("Catalog failed: %v", err)
	}
	params, err := conf.Params()
	if err != nil {
		t.Fatalf("Params failed: %v", err)
	}
	loadTime := time.Since(start)

	reply, err := os.ReadFile("../sample_reply.txt")
	if err != nil {
		t.Fatalf("failed to read sample reply: %v", err)
	}

	start = time.Now()
	req, _, err := bid.FromReply(string(reply), bid.Request{Trade: "all", Params: params})
	if err != nil {
		t.Fatalf("FromReply failed: %v", err)
	}
	parseTime := time.Since(start)

	start = time.Now()
	for i := 0; i < 1000; i++ {
		if _, err := bid.Build(logger, cat, req); err != nil {
			t.Fatalf("Build failed on iteration %d: %v", i, err)
		}
	}
	buildTime := time.Since(start)

	totalTime := loadTime + parseTime + buildTime

	t.Logf("Performance metrics:")
	t.Logf("  Load config: %v", loadTime)
	t.Logf("  Parse reply: %v", parseTime)
	t.Logf("  Build 1000 estimates: %v", buildTime)
	t.Logf("  Total time: %v", totalTime)

	if totalTime > 10*time.Second {
		t.Errorf("Total processing time %v exceeds 10 second threshold", totalTime)
	}
}

// TestDataConsistency validates that multiple runs produce identical results
func TestDataConsistency(t *testing.T) {
	first := runSample(t, "all")

	for i := 0; i < 5; i++ {
		again := runSample(t, "all")
		if !again.Estimate.FinalTotal.Equal(first.Estimate.FinalTotal) {
			t.Fatalf("run %d total %s differs from %s", i, again.Estimate.FinalTotal, first.Estimate.FinalTotal)
		}
		if len(again.Rows) != len(first.Rows) {
			t.Fatalf("run %d produced %d rows, expected %d", i, len(again.Rows), len(first.Rows))
		}
		for j := range first.Rows {
			if again.Rows[j].Device != first.Rows[j].Device || !again.Rows[j].Total.Equal(first.Rows[j].Total) {
				t.Fatalf("run %d row %d = %+v, expected %+v", i, j, again.Rows[j], first.Rows[j])
			}
		}
		if again.ID == first.ID {
			t.Fatalf("run %d reused estimate ID %s", i, again.ID)
		}
	}
}

// TestMarkupVariations prices the same material under a grid of markups and
// checks the totals stay consistent with their components.
func TestMarkupVariations(t *testing.T) {
	items, _ := catalog.Default().Seed(map[string]int{
		catalog.SmokeDetectorsFireAlarm: 37,
		catalog.HornStrobes:             19,
		catalog.SprinklerHeads:          211,
	}, map[string]decimal.Decimal{
		catalog.SprinklerHeads: decimal.RequireFromString("84.99"),
	})

	for _, overhead := range []int64{0, 5, 10, 12, 30, 100} {
		for _, profit := range []int64{0, 7, 15, 33, 100} {
			for _, basis := range []estimate.ProfitBasis{estimate.ProfitOnCostPlusOverhead, estimate.ProfitOnMaterial} {
				est, err := estimate.Compute(items, estimate.Params{
					OverheadPct: decimal.NewFromInt(overhead),
					ProfitPct:   decimal.NewFromInt(profit),
					MiscCost:    decimal.RequireFromString("12.34"),
					ProfitBasis: basis,
				})
				if err != nil {
					t.Fatalf("Compute(%d, %d, %s) error = %v", overhead, profit, basis, err)
				}

				sum := est.MaterialSubtotal.Add(est.OverheadAmount).Add(est.ProfitAmount).Add(est.MiscCost)
				if !sum.Equal(est.FinalTotal) {
					t.Errorf("Compute(%d, %d, %s) total %s != components %s", overhead, profit, basis, est.FinalTotal, sum)
				}
				if est.OverheadAmount.Exponent() < -2 || est.ProfitAmount.Exponent() < -2 {
					t.Errorf("Compute(%d, %d, %s) amounts not rounded to cents: %s, %s",
						overhead, profit, basis, est.OverheadAmount, est.ProfitAmount)
				}
			}
		}
	}
}
