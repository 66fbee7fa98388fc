// Package config defines the data structures related to configuration and
// includes functions for loading the config and building the catalog,
// estimate parameters and classifier it describes.
package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/iwvelando/bid-estimator/internal/catalog"
	"github.com/iwvelando/bid-estimator/internal/classify"
	"github.com/iwvelando/bid-estimator/internal/estimate"
	"github.com/iwvelando/bid-estimator/pkg/constants"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for bid-estimator.
type Configuration struct {
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging,omitempty"`
	Output     OutputConfig     `mapstructure:"output" yaml:"output,omitempty"`
	Estimate   EstimateConfig   `mapstructure:"estimate" yaml:"estimate"`
	Devices    []DeviceConfig   `mapstructure:"devices" yaml:"devices,omitempty"`
	Trades     []TradeConfig    `mapstructure:"trades" yaml:"trades,omitempty"`
	Classifier ClassifierConfig `mapstructure:"classifier" yaml:"classifier,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level,omitempty"`           // debug, info, warn, error
	Format     string `mapstructure:"format" yaml:"format,omitempty"`         // json, console
	OutputFile string `mapstructure:"outputFile" yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format,omitempty"` // pretty, csv, text, xlsx
}

// EstimateConfig holds the markup applied to every bid.
type EstimateConfig struct {
	Trade       string  `mapstructure:"trade" yaml:"trade"`
	OverheadPct float64 `mapstructure:"overheadPct" yaml:"overheadPct"`
	ProfitPct   float64 `mapstructure:"profitPct" yaml:"profitPct"`
	MiscCost    float64 `mapstructure:"miscCost" yaml:"miscCost"`
	ProfitBasis string  `mapstructure:"profitBasis" yaml:"profitBasis,omitempty"` // costPlusOverhead, material
}

// DeviceConfig is one catalog entry.
type DeviceConfig struct {
	Key              string  `mapstructure:"key" yaml:"key"`
	DisplayName      string  `mapstructure:"displayName" yaml:"displayName"`
	DefaultUnitPrice float64 `mapstructure:"defaultUnitPrice" yaml:"defaultUnitPrice"`
}

// TradeConfig names a subset of devices.
type TradeConfig struct {
	Name        string   `mapstructure:"name" yaml:"name"`
	DisplayName string   `mapstructure:"displayName" yaml:"displayName,omitempty"`
	Devices     []string `mapstructure:"devices" yaml:"devices"`
}

// ClassifierConfig replaces the default device classification rules when
// Rules is not empty.
type ClassifierConfig struct {
	DefaultCategory string       `mapstructure:"defaultCategory" yaml:"defaultCategory,omitempty"`
	Rules           []RuleConfig `mapstructure:"rules" yaml:"rules,omitempty"`
}

// RuleConfig is one weighted classification pattern.
type RuleConfig struct {
	Pattern  string `mapstructure:"pattern" yaml:"pattern"`
	Weight   int    `mapstructure:"weight" yaml:"weight"`
	Category string `mapstructure:"category" yaml:"category"`
	Scope    string `mapstructure:"scope" yaml:"scope,omitempty"` // any, context
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}
	return decode(v)
}

// LoadConfigurationFromReader loads YAML configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}
	return decode(v)
}

// Default returns the configuration used when no file is given.
func Default() *Configuration {
	conf, err := decode(newViper())
	if err != nil {
		// Defaults alone always decode.
		panic(err)
	}
	return conf
}

// envOnlyKeys can be set from BID_* variables without appearing in the file.
var envOnlyKeys = []string{
	"logging.level",
	"logging.format",
	"logging.outputFile",
	"classifier.defaultCategory",
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yml")
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Keys without a default are only seen by Unmarshal when bound.
	for _, key := range envOnlyKeys {
		_ = v.BindEnv(key)
	}

	v.SetDefault("output.format", constants.OutputFormatPretty)
	v.SetDefault("estimate.trade", constants.DefaultTrade)
	v.SetDefault("estimate.overheadPct", constants.DefaultOverheadPct)
	v.SetDefault("estimate.profitPct", constants.DefaultProfitPct)
	v.SetDefault("estimate.miscCost", 0)
	v.SetDefault("estimate.profitBasis", string(estimate.ProfitOnCostPlusOverhead))
	return v
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	return &configuration, nil
}

// Catalog builds the device catalog. Without configured devices the default
// fire protection catalog is used; configured trades are added on top.
func (c *Configuration) Catalog() (*catalog.Catalog, error) {
	cat := catalog.New()
	if len(c.Devices) == 0 {
		cat = catalog.Default()
	}

	for _, device := range c.Devices {
		err := cat.Add(catalog.Entry{
			Key:              device.Key,
			DisplayName:      device.DisplayName,
			DefaultUnitPrice: decimal.NewFromFloat(device.DefaultUnitPrice),
		})
		if err != nil {
			return nil, err
		}
	}

	for _, trade := range c.Trades {
		err := cat.AddTrade(catalog.Trade{
			Name:        trade.Name,
			DisplayName: trade.DisplayName,
			DeviceKeys:  trade.Devices,
		})
		if err != nil {
			return nil, err
		}
	}

	return cat, nil
}

// TradeCatalog returns the catalog restricted to the configured trade.
func (c *Configuration) TradeCatalog() (*catalog.Catalog, error) {
	cat, err := c.Catalog()
	if err != nil {
		return nil, err
	}
	return cat.Trade(c.Estimate.Trade)
}

// Params returns the configured markup as estimate parameters.
func (c *Configuration) Params() (estimate.Params, error) {
	basis, err := estimate.ParseProfitBasis(c.Estimate.ProfitBasis)
	if err != nil {
		return estimate.Params{}, err
	}
	return estimate.Params{
		OverheadPct: decimal.NewFromFloat(c.Estimate.OverheadPct),
		ProfitPct:   decimal.NewFromFloat(c.Estimate.ProfitPct),
		MiscCost:    decimal.NewFromFloat(c.Estimate.MiscCost),
		ProfitBasis: basis,
	}, nil
}

// Classifier builds the device classifier from the configured rules, or the
// default rules when none are configured.
func (c *Configuration) Classifier() (*classify.Classifier, error) {
	defaultCategory := c.Classifier.DefaultCategory
	if defaultCategory == "" {
		defaultCategory = classify.FireAlarm
	}
	if len(c.Classifier.Rules) == 0 {
		return classify.New(classify.DefaultRules(), defaultCategory), nil
	}

	rules := make([]classify.Rule, 0, len(c.Classifier.Rules))
	for _, rc := range c.Classifier.Rules {
		rule, err := classify.NewRule(rc.Pattern, rc.Weight, rc.Category, classify.Scope(rc.Scope))
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return classify.New(rules, defaultCategory), nil
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	for _, device := range c.Devices {
		if device.DefaultUnitPrice == 0 {
			warnings = append(warnings, fmt.Sprintf("Device '%s' has no default unit price - it will add nothing to the bid unless priced", device.Key))
		}
		if strings.TrimSpace(device.DisplayName) == "" {
			warnings = append(warnings, fmt.Sprintf("Device '%s' has no display name - the key will be shown instead", device.Key))
		}
	}

	for _, trade := range c.Trades {
		if len(trade.Devices) == 0 {
			warnings = append(warnings, fmt.Sprintf("Trade '%s' has no devices", trade.Name))
		}
	}

	if c.Estimate.OverheadPct == 0 && c.Estimate.ProfitPct == 0 {
		warnings = append(warnings, "Overhead and profit are both 0% - the bid will equal material cost")
	}
	if c.Estimate.ProfitPct > 50 {
		warnings = append(warnings, fmt.Sprintf("Profit of %.1f%% is unusually high", c.Estimate.ProfitPct))
	}
	if c.Estimate.OverheadPct > 30 {
		warnings = append(warnings, fmt.Sprintf("Overhead of %.1f%% is unusually high", c.Estimate.OverheadPct))
	}

	return warnings
}
