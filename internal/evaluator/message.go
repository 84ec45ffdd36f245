package evaluator

import (
	"fmt"
	"strings"

	"tradingalerts/internal/model"
)

// renderAlert builds the notification subject and body for a fired alert.
// Group alerts aggregate every triggered member into one message. Values
// derived from synthetic fallback data carry an explicit provenance note.
func renderAlert(a *model.AlertDefinition, triggered []model.EvaluationResult, synthetic bool) (subject, message string) {
	relation := fmt.Sprintf("%s %s %s", a.Indicator1, conditionVerb(a), a.Indicator2)

	if a.Scope == model.ScopeSingle {
		r := triggered[0]
		subject = fmt.Sprintf("Alert: %s %s", r.Symbol, relation)
		message = fmt.Sprintf("%s on %s: %s (%.4f vs %.4f).",
			r.Symbol, a.Timeframe, relation, r.Value1, r.Value2)
	} else {
		subject = fmt.Sprintf("Alert: %d stock(s) in %q %s", len(triggered), a.GroupName, relation)
		var b strings.Builder
		fmt.Fprintf(&b, "Group %q on %s — %s:\n", a.GroupName, a.Timeframe, relation)
		for _, r := range triggered {
			fmt.Fprintf(&b, "  %s: %.4f vs %.4f\n", r.Symbol, r.Value1, r.Value2)
		}
		message = b.String()
	}

	if synthetic {
		message += "\nNote: market data was unavailable; values are based on estimated data."
	}
	return subject, message
}

func conditionVerb(a *model.AlertDefinition) string {
	if a.Crossover {
		switch a.Condition {
		case model.CondAbove:
			return "crossed above"
		case model.CondBelow:
			return "crossed below"
		}
	}
	return string(a.Condition)
}
