package catalog

import "github.com/shopspring/decimal"

// Device keys of the default fire protection catalog. They match the
// total_counts keys the blueprint analysis prompt asks for.
const (
	SmokeDetectorsFireAlarm  = "smoke_detectors_fire_alarm"
	HeatDetectors            = "heat_detectors"
	PullStations             = "pull_stations"
	HornStrobes              = "horn_strobes"
	SmokeDetectorsElectrical = "smoke_detectors_electrical"
	CODetectorsElectrical    = "co_detectors_electrical"
	SprinklerHeads           = "sprinkler_heads"
)

// Default returns the fire protection catalog with its standard unit prices
// and the fire_alarm, electrical and sprinkler trades.
func Default() *Catalog {
	c := New()
	entries := []Entry{
		{Key: SmokeDetectorsFireAlarm, DisplayName: "Smoke Detector (Fire Alarm)", DefaultUnitPrice: decimal.NewFromInt(250)},
		{Key: HeatDetectors, DisplayName: "Heat Detector", DefaultUnitPrice: decimal.NewFromInt(200)},
		{Key: PullStations, DisplayName: "Pull Station", DefaultUnitPrice: decimal.NewFromInt(150)},
		{Key: HornStrobes, DisplayName: "Horn/Strobe", DefaultUnitPrice: decimal.NewFromInt(175)},
		{Key: SmokeDetectorsElectrical, DisplayName: "Smoke Detector (120VAC)", DefaultUnitPrice: decimal.NewFromInt(75)},
		{Key: CODetectorsElectrical, DisplayName: "CO Detector (120VAC)", DefaultUnitPrice: decimal.NewFromInt(80)},
		{Key: SprinklerHeads, DisplayName: "Sprinkler Head", DefaultUnitPrice: decimal.NewFromInt(85)},
	}
	for _, entry := range entries {
		if err := c.Add(entry); err != nil {
			panic(err)
		}
	}

	trades := []Trade{
		{Name: "fire_alarm", DisplayName: "Fire Alarm Only", DeviceKeys: []string{SmokeDetectorsFireAlarm, HeatDetectors, PullStations, HornStrobes}},
		{Name: "electrical", DisplayName: "Electrical Only", DeviceKeys: []string{SmokeDetectorsElectrical, CODetectorsElectrical}},
		{Name: "sprinkler", DisplayName: "Sprinkler", DeviceKeys: []string{SprinklerHeads}},
	}
	for _, trade := range trades {
		if err := c.AddTrade(trade); err != nil {
			panic(err)
		}
	}
	return c
}
