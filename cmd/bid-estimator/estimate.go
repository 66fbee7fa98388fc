package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/iwvelando/bid-estimator/internal/bid"
	"github.com/iwvelando/bid-estimator/internal/config"
	"github.com/iwvelando/bid-estimator/internal/detection"
	"github.com/iwvelando/bid-estimator/internal/estimate"
	"github.com/iwvelando/bid-estimator/internal/optimizer"
	"github.com/iwvelando/bid-estimator/pkg/constants"
	"github.com/iwvelando/bid-estimator/pkg/money"
	"github.com/iwvelando/bid-estimator/pkg/output"
	"github.com/iwvelando/bid-estimator/pkg/validation"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type estimateCmd struct {
	app          *app
	detection    string
	counts       []string
	prices       []string
	trade        string
	overhead     string
	profit       string
	misc         string
	profitBasis  string
	outputFormat string
	out          string
	title        string
	includeZero  bool
	targetTotal  string
	solveFor     string
}

func newEstimateCmd(a *app) *cobra.Command {
	ec := &estimateCmd{app: a}
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Compute a bid from a detection reply or manual device counts",
		RunE:  ec.run,
	}

	cmd.Flags().StringVar(&ec.detection, "detection", "", "file holding the blueprint analysis reply")
	cmd.Flags().StringArrayVar(&ec.counts, "count", nil, "device count as key=n, repeatable; overrides detected counts")
	cmd.Flags().StringArrayVar(&ec.prices, "price", nil, "unit price override as key=price, repeatable")
	cmd.Flags().StringVar(&ec.trade, "trade", "", "trade to price (defaults to estimate.trade)")
	cmd.Flags().StringVar(&ec.overhead, "overhead", "", "overhead percentage override")
	cmd.Flags().StringVar(&ec.profit, "profit", "", "profit percentage override")
	cmd.Flags().StringVar(&ec.misc, "misc", "", "miscellaneous cost override")
	cmd.Flags().StringVar(&ec.profitBasis, "profit-basis", "", "profit basis: costPlusOverhead or material")
	cmd.Flags().StringVar(&ec.outputFormat, "output-format", "", "type of output override: pretty, csv, text, xlsx")
	cmd.Flags().StringVar(&ec.out, "out", "", "write output to this file instead of stdout (required for xlsx)")
	cmd.Flags().StringVar(&ec.title, "title", "", "title shown on the estimate")
	cmd.Flags().BoolVar(&ec.includeZero, "include-zero", false, "keep devices with a zero count in the breakdown")
	cmd.Flags().StringVar(&ec.targetTotal, "target-total", "", "solve a markup percentage so the total bid stays at or below this amount")
	cmd.Flags().StringVar(&ec.solveFor, "solve-for", "", "markup solved by --target-total: profitPct or overheadPct")

	return cmd
}

func (ec *estimateCmd) run(cmd *cobra.Command, _ []string) error {
	conf, logger, err := ec.app.setup()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	outputFormat := conf.Output.Format
	if ec.outputFormat != "" {
		outputFormat = ec.outputFormat
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		return err
	}
	if outputFormat == constants.OutputFormatXLSX && ec.out == "" {
		return fmt.Errorf("--out is required for %s output", constants.OutputFormatXLSX)
	}

	cat, err := conf.Catalog()
	if err != nil {
		return fmt.Errorf("failed to build catalog: %w", err)
	}

	req, err := ec.request(conf)
	if err != nil {
		return err
	}

	title := ec.title
	var devices []detection.Device
	if ec.detection != "" {
		reply, err := os.ReadFile(ec.detection)
		if err != nil {
			return fmt.Errorf("failed to read detection reply: %w", err)
		}
		manual := req.Counts
		var parsed *detection.Result
		req, parsed, err = bid.FromReply(string(reply), req)
		if err != nil {
			return fmt.Errorf("failed to parse detection reply %s: %w", ec.detection, err)
		}
		for key, n := range manual {
			req.Counts[key] = n
		}
		if title == "" {
			title = parsed.DrawingInfo.Title
		}
		devices = parsed.Devices
	}

	result, err := bid.Build(logger, cat, req)
	if err != nil {
		return err
	}

	logger.Info("estimate computed",
		zap.String("op", "estimate"),
		zap.String("id", result.ID),
		zap.String("trade", result.Trade),
		zap.String("finalTotal", money.Fixed(result.Estimate.FinalTotal)),
	)
	if result.Solve != nil {
		logger.Info("markup solved for target total",
			zap.String("op", "estimate"),
			zap.String("field", result.Solve.Field),
			zap.String("value", result.Solve.Value),
			zap.String("headroom", result.Solve.Headroom),
			zap.Bool("converged", result.Solve.Converged),
			zap.Strings("notes", result.Solve.Notes),
		)
	}

	data, err := render(outputFormat, title, result, devices)
	if err != nil {
		return err
	}

	if ec.out == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(ec.out, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", ec.out, err)
	}
	logger.Info("estimate written",
		zap.String("op", "estimate"),
		zap.String("path", ec.out),
		zap.String("format", outputFormat),
	)
	return nil
}

// request merges flag overrides over the configured defaults.
func (ec *estimateCmd) request(conf *config.Configuration) (bid.Request, error) {
	params, err := conf.Params()
	if err != nil {
		return bid.Request{}, err
	}

	overrides := []struct {
		flag  string
		value string
		dest  *decimal.Decimal
	}{
		{"overhead", ec.overhead, &params.OverheadPct},
		{"profit", ec.profit, &params.ProfitPct},
		{"misc", ec.misc, &params.MiscCost},
	}
	for _, o := range overrides {
		if o.value == "" {
			continue
		}
		v, err := money.Parse(o.value)
		if err != nil {
			return bid.Request{}, fmt.Errorf("invalid --%s %q", o.flag, o.value)
		}
		*o.dest = v
	}
	if ec.profitBasis != "" {
		basis, err := estimate.ParseProfitBasis(ec.profitBasis)
		if err != nil {
			return bid.Request{}, err
		}
		params.ProfitBasis = basis
	}

	counts, err := parseCounts(ec.counts)
	if err != nil {
		return bid.Request{}, err
	}
	prices, err := parsePrices(ec.prices)
	if err != nil {
		return bid.Request{}, err
	}

	trade := conf.Estimate.Trade
	if ec.trade != "" {
		trade = ec.trade
	}

	var target *bid.Target
	if ec.targetTotal != "" {
		total, err := money.Parse(ec.targetTotal)
		if err != nil {
			return bid.Request{}, fmt.Errorf("invalid --target-total %q", ec.targetTotal)
		}
		field, err := optimizer.ParseField(ec.solveFor)
		if err != nil {
			return bid.Request{}, err
		}
		target = &bid.Target{Total: total, Field: field}
	} else if ec.solveFor != "" {
		return bid.Request{}, fmt.Errorf("--solve-for requires --target-total")
	}

	return bid.Request{
		Trade:       trade,
		Counts:      counts,
		Prices:      prices,
		Params:      params,
		IncludeZero: ec.includeZero,
		Target:      target,
	}, nil
}

func render(format, title string, result *bid.Result, devices []detection.Device) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case constants.OutputFormatPretty:
		output.PrettyFormat(&buf, title, result.Rows)
	case constants.OutputFormatCSV:
		if err := output.CsvFormat(&buf, result.Rows); err != nil {
			return nil, fmt.Errorf("failed to write CSV: %w", err)
		}
	case constants.OutputFormatText:
		writeText(&buf, title, result, devices)
	case constants.OutputFormatXLSX:
		return output.XlsxBytes(title, result.Rows)
	}
	return buf.Bytes(), nil
}

func writeText(w io.Writer, title string, result *bid.Result, devices []detection.Device) {
	if title != "" {
		fmt.Fprintf(w, "%s\n", title)
	}
	fmt.Fprint(w, output.TextSummary(result.Estimate, result.Catalog))
	if len(devices) > 0 {
		fmt.Fprintln(w, "Detailed Device Breakdown:")
		for _, device := range devices {
			fmt.Fprintf(w, "- %s: %d%s\n", device.DeviceType, device.Count(), deviceDetails(device))
		}
	}
	if s := result.Solve; s != nil {
		fmt.Fprintf(w, "Solved %s: %s%% (target $%s, headroom $%s)\n", s.Field, s.Value, s.Target, s.Headroom)
		for _, note := range s.Notes {
			fmt.Fprintf(w, "Note: %s\n", note)
		}
	}
}

// deviceDetails renders the optional system, voltage and circuit of a
// detected device, e.g. " (fire_alarm, 24VDC, circuit SLC-1)".
func deviceDetails(device detection.Device) string {
	var parts []string
	if device.SystemType != "" {
		parts = append(parts, device.SystemType)
	}
	if device.Voltage != "" {
		parts = append(parts, device.Voltage)
	}
	if device.Circuit != "" {
		parts = append(parts, "circuit "+device.Circuit)
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func parseCounts(values []string) (map[string]int, error) {
	counts := make(map[string]int, len(values))
	for _, value := range values {
		key, raw, err := splitKeyValue(value)
		if err != nil {
			return nil, fmt.Errorf("invalid --count: %w", err)
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid --count %q: count must be an integer", value)
		}
		counts[key] = n
	}
	return counts, nil
}

func parsePrices(values []string) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal, len(values))
	for _, value := range values {
		key, raw, err := splitKeyValue(value)
		if err != nil {
			return nil, fmt.Errorf("invalid --price: %w", err)
		}
		price, err := money.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid --price %q: %v", value, err)
		}
		prices[key] = price
	}
	return prices, nil
}

func splitKeyValue(value string) (string, string, error) {
	key, raw, ok := strings.Cut(value, "=")
	key = strings.TrimSpace(key)
	raw = strings.TrimSpace(raw)
	if !ok || key == "" || raw == "" {
		return "", "", fmt.Errorf("expected key=value, got %q", value)
	}
	return key, raw, nil
}
