// Package constants provides shared constants for the bid-estimator application.
package constants

import "time"

// Currency constants
const (
	// CurrencyPlaces is the number of decimal places kept for currency amounts
	CurrencyPlaces = 2

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100

	// MaxPercentage is the upper bound accepted for overhead and profit
	MaxPercentage = 100
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatText is the plain-text bid summary
	OutputFormatText = "text"

	// OutputFormatXLSX is the spreadsheet workbook format
	OutputFormatXLSX = "xlsx"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// EnvPrefix is the prefix for environment variable overrides (BID_...)
	EnvPrefix = "BID"
)

// Estimate defaults applied when the configuration omits them
const (
	// DefaultOverheadPct is the overhead percentage used when none is configured
	DefaultOverheadPct = 10

	// DefaultProfitPct is the profit percentage used when none is configured
	DefaultProfitPct = 15

	// DefaultTrade is the trade used when none is selected
	DefaultTrade = "fire_alarm"

	// AllTrade is the trade name that always covers every catalog device
	AllTrade = "all"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for detection replies (1 MB)
	DefaultMaxUploadSizeBytes int64 = 1024 * 1024

	// DefaultReadHeaderTimeout bounds how long a client may take to send headers
	DefaultReadHeaderTimeout = 10 * time.Second

	// DefaultShutdownTimeout bounds graceful shutdown of in-flight requests
	DefaultShutdownTimeout = 15 * time.Second

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"
)
