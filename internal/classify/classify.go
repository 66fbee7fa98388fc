// Package classify decides whether drawing text describes an electrical or a
// fire alarm device by scoring weighted pattern rules.
package classify

import (
	"fmt"
	"regexp"
	"sort"
)

// Categories produced by the default rules.
const (
	Electrical = "electrical"
	FireAlarm  = "fire_alarm"
)

// Scope selects which input a rule is evaluated against.
type Scope string

const (
	// ScopeAny matches against the device text and the page context.
	ScopeAny Scope = "any"

	// ScopeContext matches against the page context (drawing title) only.
	ScopeContext Scope = "context"
)

// Rule adds Weight to Category when Pattern matches. A negative weight
// cancels points awarded by other rules.
type Rule struct {
	Pattern  *regexp.Regexp
	Weight   int
	Category string
	Scope    Scope
}

// NewRule compiles a case-insensitive rule. An empty scope means ScopeAny.
func NewRule(pattern string, weight int, category string, scope Scope) (Rule, error) {
	if category == "" {
		return Rule{}, fmt.Errorf("rule %q has no category", pattern)
	}
	if scope == "" {
		scope = ScopeAny
	}
	if scope != ScopeAny && scope != ScopeContext {
		return Rule{}, fmt.Errorf("rule %q has unknown scope %q", pattern, scope)
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("rule %q: %w", pattern, err)
	}
	return Rule{Pattern: re, Weight: weight, Category: category, Scope: scope}, nil
}

// Classification is the outcome of scoring one piece of text.
type Classification struct {
	Category string         `json:"category"`
	Scores   map[string]int `json:"scores"`
	Matches  []string       `json:"matches,omitempty"`
	// Mixed is set when more than one category scored above zero.
	Mixed bool `json:"mixed"`
}

// Classifier evaluates an ordered list of rules.
type Classifier struct {
	rules           []Rule
	defaultCategory string
}

// New returns a classifier. Ties, including no match at all, resolve to
// defaultCategory.
func New(rules []Rule, defaultCategory string) *Classifier {
	return &Classifier{rules: append([]Rule(nil), rules...), defaultCategory: defaultCategory}
}

// NewDefault returns a classifier with DefaultRules and a fire alarm default.
func NewDefault() *Classifier {
	return New(DefaultRules(), FireAlarm)
}

// Classify scores text and its page context.
func (c *Classifier) Classify(text, context string) Classification {
	scores := make(map[string]int)
	var matches []string

	for _, rule := range c.rules {
		matched := rule.Pattern.MatchString(context)
		if !matched && rule.Scope == ScopeAny {
			matched = rule.Pattern.MatchString(text)
		}
		if !matched {
			continue
		}
		scores[rule.Category] += rule.Weight
		matches = append(matches, rule.Category+":"+rule.Pattern.String())
	}

	best := c.defaultCategory
	bestScore := 0
	tied := false
	categories := make([]string, 0, len(scores))
	for category := range scores {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	positive := 0
	for _, category := range categories {
		score := scores[category]
		if score > 0 {
			positive++
		}
		switch {
		case score > bestScore:
			best, bestScore, tied = category, score, false
		case score == bestScore && score > 0:
			tied = true
		}
	}
	if tied || bestScore == 0 {
		best = c.defaultCategory
	}

	return Classification{
		Category: best,
		Scores:   scores,
		Matches:  matches,
		Mixed:    positive > 1,
	}
}

// DefaultRules returns the voltage, panel and circuit indicators used on
// fire protection and electrical drawings. A drawing title naming only one
// system is worth two points; a title naming both cancels the bonus.
func DefaultRules() []Rule {
	const titleNamesBoth = `\bELECTRICAL\b.*\bFIRE ALARM\b|\bFIRE ALARM\b.*\bELECTRICAL\b`

	specs := []struct {
		pattern  string
		weight   int
		category string
		scope    Scope
	}{
		{`\bELECTRICAL\b`, 2, Electrical, ScopeContext},
		{`\bFIRE ALARM\b`, 2, FireAlarm, ScopeContext},
		{titleNamesBoth, -2, Electrical, ScopeContext},
		{titleNamesBoth, -2, FireAlarm, ScopeContext},

		{`\b(120|277|208|240)\s?V(AC)?\b`, 1, Electrical, ScopeAny},
		{`\bELECTRICAL PANEL\b`, 1, Electrical, ScopeAny},
		{`\bPANEL SCHEDULE\b`, 1, Electrical, ScopeAny},
		{`\bBRANCH CIRCUIT\b`, 1, Electrical, ScopeAny},
		{`\bRECEPTACLE\b`, 1, Electrical, ScopeAny},
		{`\b(JUNCTION BOX|J-BOX)\b`, 1, Electrical, ScopeAny},
		{`\bLINE VOLTAGE\b`, 1, Electrical, ScopeAny},

		{`\b(FACP|FIRE ALARM CONTROL PANEL)\b`, 1, FireAlarm, ScopeAny},
		{`\b(NAC|NOTIFICATION APPLIANCE CIRCUIT)\b`, 1, FireAlarm, ScopeAny},
		{`\b(SLC|SIGNALING LINE CIRCUIT)\b`, 1, FireAlarm, ScopeAny},
		{`\bADDRESSABLE\b`, 1, FireAlarm, ScopeAny},
		{`\b(MODULE|MONITOR)\b`, 1, FireAlarm, ScopeAny},
		{`\b(PULL|MANUAL) STATION\b`, 1, FireAlarm, ScopeAny},
		{`\bHORN[ /]STROBE\b`, 1, FireAlarm, ScopeAny},
		{`\bANNUNCIATOR\b`, 1, FireAlarm, ScopeAny},
		{`\b(DUCT|HEAT|BEAM) DETECTOR\b`, 1, FireAlarm, ScopeAny},
		{`\bFIRE ALARM\b`, 1, FireAlarm, ScopeAny},
		{`\bFA-`, 1, FireAlarm, ScopeAny},
		{`\bCLASS [AB]\b`, 1, FireAlarm, ScopeAny},
		{`\b24\s?V\s?DC\b`, 1, FireAlarm, ScopeAny},
		{`\bLOW VOLTAGE\b`, 1, FireAlarm, ScopeAny},
	}

	rules := make([]Rule, 0, len(specs))
	for _, s := range specs {
		rule, err := NewRule(s.pattern, s.weight, s.category, s.scope)
		if err != nil {
			panic(err)
		}
		rules = append(rules, rule)
	}
	return rules
}
