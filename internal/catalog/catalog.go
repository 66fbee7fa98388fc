// Package catalog defines the device catalog and trades a bid is priced
// against, and seeds estimate line items from detected device counts.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/iwvelando/bid-estimator/internal/estimate"
	"github.com/iwvelando/bid-estimator/pkg/constants"
	"github.com/iwvelando/bid-estimator/pkg/money"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidEntry is returned for entries with an empty key or a negative
	// or sub-cent price.
	ErrInvalidEntry = errors.New("invalid catalog entry")

	// ErrDuplicateKey is returned when a key is added twice.
	ErrDuplicateKey = errors.New("duplicate device key")

	// ErrUnknownTrade is returned when a trade name is not defined.
	ErrUnknownTrade = errors.New("unknown trade")
)

// Entry is a priced device type.
type Entry struct {
	Key              string          `json:"key"`
	DisplayName      string          `json:"displayName"`
	DefaultUnitPrice decimal.Decimal `json:"defaultUnitPrice"`
}

// Trade is a named subset of the catalog, e.g. fire alarm or electrical.
type Trade struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName"`
	DeviceKeys  []string `json:"devices"`
}

// Catalog keeps entries in declaration order.
type Catalog struct {
	entries []Entry
	index   map[string]int
	trades  map[string]Trade
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{
		index:  make(map[string]int),
		trades: make(map[string]Trade),
	}
}

// Add appends an entry.
func (c *Catalog) Add(entry Entry) error {
	entry.Key = strings.TrimSpace(entry.Key)
	if entry.Key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidEntry)
	}
	if entry.DefaultUnitPrice.IsNegative() {
		return fmt.Errorf("%w: %s has negative price %s", ErrInvalidEntry, entry.Key, entry.DefaultUnitPrice)
	}
	if !money.IsCents(entry.DefaultUnitPrice) {
		return fmt.Errorf("%w: %s price %s has fractional cents", ErrInvalidEntry, entry.Key, entry.DefaultUnitPrice)
	}
	if _, exists := c.index[entry.Key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, entry.Key)
	}
	if entry.DisplayName == "" {
		entry.DisplayName = entry.Key
	}
	c.index[entry.Key] = len(c.entries)
	c.entries = append(c.entries, entry)
	return nil
}

// AddTrade registers a trade. Every device key must already be in the catalog.
func (c *Catalog) AddTrade(trade Trade) error {
	if trade.Name == "" {
		return fmt.Errorf("%w: trade without a name", ErrInvalidEntry)
	}
	if trade.Name == constants.AllTrade {
		return fmt.Errorf("%w: %q is reserved", ErrInvalidEntry, constants.AllTrade)
	}
	for _, key := range trade.DeviceKeys {
		if _, ok := c.index[key]; !ok {
			return fmt.Errorf("%w: trade %s references unknown device %s", ErrInvalidEntry, trade.Name, key)
		}
	}
	if trade.DisplayName == "" {
		trade.DisplayName = trade.Name
	}
	trade.DeviceKeys = append([]string(nil), trade.DeviceKeys...)
	c.trades[trade.Name] = trade
	return nil
}

// Entry looks up a device by key.
func (c *Catalog) Entry(key string) (Entry, bool) {
	i, ok := c.index[key]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Entries returns a copy of all entries in catalog order.
func (c *Catalog) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// DisplayName returns the entry's label, or the key itself when unknown.
func (c *Catalog) DisplayName(key string) string {
	if entry, ok := c.Entry(key); ok {
		return entry.DisplayName
	}
	return key
}

// Trades returns the registered trades sorted by name, followed by "all".
func (c *Catalog) Trades() []Trade {
	names := make([]string, 0, len(c.trades))
	for name := range c.trades {
		names = append(names, name)
	}
	sort.Strings(names)

	trades := make([]Trade, 0, len(names)+1)
	for _, name := range names {
		trades = append(trades, c.trades[name])
	}
	return append(trades, c.allTrade())
}

// Trade returns a catalog restricted to the named trade. Entries keep the
// parent catalog's order regardless of the order the trade lists them in.
func (c *Catalog) Trade(name string) (*Catalog, error) {
	if name == "" || name == constants.AllTrade {
		return c, nil
	}
	trade, ok := c.trades[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTrade, name)
	}

	members := make(map[string]struct{}, len(trade.DeviceKeys))
	for _, key := range trade.DeviceKeys {
		members[key] = struct{}{}
	}

	sub := New()
	for _, entry := range c.entries {
		if _, ok := members[entry.Key]; ok {
			// Entries were validated when added to c.
			_ = sub.Add(entry)
		}
	}
	return sub, nil
}

// Seed builds one line item per entry in catalog order. Counts for keys not
// in the catalog are dropped and returned as unknown; entries without a count
// get quantity 0. Prices override the catalog default per key.
func (c *Catalog) Seed(counts map[string]int, prices map[string]decimal.Decimal) ([]estimate.LineItem, []string) {
	items := make([]estimate.LineItem, 0, len(c.entries))
	for _, entry := range c.entries {
		price := entry.DefaultUnitPrice
		if override, ok := prices[entry.Key]; ok {
			price = override
		}
		items = append(items, estimate.LineItem{
			DeviceKey: entry.Key,
			Quantity:  counts[entry.Key],
			UnitPrice: price,
		})
	}

	var unknown []string
	for key := range counts {
		if _, ok := c.index[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	return items, unknown
}

func (c *Catalog) allTrade() Trade {
	keys := make([]string, 0, len(c.entries))
	for _, entry := range c.entries {
		keys = append(keys, entry.Key)
	}
	return Trade{Name: constants.AllTrade, DisplayName: "All Devices", DeviceKeys: keys}
}
