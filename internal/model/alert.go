package model

import (
	"errors"
	"fmt"
)

// Condition is the comparison applied between the two indicator values.
type Condition string

const (
	CondAbove  Condition = "above"
	CondBelow  Condition = "below"
	CondEquals Condition = "equals"
)

// ParseCondition validates a stored condition string.
func ParseCondition(s string) (Condition, error) {
	switch Condition(s) {
	case CondAbove, CondBelow, CondEquals:
		return Condition(s), nil
	}
	return "", fmt.Errorf("unknown condition %q", s)
}

// AlertScope identifies the stock set an alert watches.
type AlertScope string

const (
	ScopeSingle AlertScope = "single"
	ScopeGroup  AlertScope = "multiple"
)

// Instrument is one tradable stock: display symbol plus the broker's
// numeric symbol token.
type Instrument struct {
	Symbol   string `json:"symbol"`
	Token    string `json:"token"`
	Exchange string `json:"exchange"`
	Name     string `json:"name,omitempty"`
}

// AlertDefinition is one user-configured alert. The CRUD layer owns these
// records; the engine reads them and flips Active false exactly once when
// the alert fires.
type AlertDefinition struct {
	ID         int64
	UserID     int64
	Scope      AlertScope
	Stock      Instrument   // single scope
	GroupName  string       // group scope
	Members    []Instrument // group scope
	Indicator1 IndicatorSpec
	Indicator2 IndicatorSpec
	Condition  Condition
	Crossover  bool // require a prior-bar ordering flip, not just the instantaneous comparison
	Timeframe  Timeframe
	Active     bool
}

// Validate enforces the scope invariants.
func (a *AlertDefinition) Validate() error {
	switch a.Scope {
	case ScopeSingle:
		if a.Stock.Symbol == "" {
			return errors.New("single-stock alert requires a symbol")
		}
	case ScopeGroup:
		if len(a.Members) == 0 {
			return errors.New("group alert requires a non-empty member set")
		}
	default:
		return fmt.Errorf("unknown alert scope %q", a.Scope)
	}
	return nil
}

// Instruments resolves the scope to the concrete stock list to evaluate.
func (a *AlertDefinition) Instruments() []Instrument {
	if a.Scope == ScopeSingle {
		return []Instrument{a.Stock}
	}
	return a.Members
}

// EvaluationResult is the per-(alert, symbol) outcome. Consumed immediately
// by the notification step; never persisted.
type EvaluationResult struct {
	Symbol    string
	Triggered bool
	Value1    float64
	Value2    float64
	Synthetic bool // values derived from fallback data
}

// NotificationPreference routes a user's alert deliveries.
type NotificationPreference struct {
	UserID       int64
	Email        string
	EmailEnabled bool
	SMSEnabled   bool
	PhoneNumber  string
	Frequency    string // "immediate" or "daily"
}
