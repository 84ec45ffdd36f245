// Package evaluator is the alert evaluation orchestrator: it walks the
// active alerts, fetches candles, resolves both indicator sides, applies
// the condition and fires notifications for alerts that trigger.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"tradingalerts/internal/condition"
	"tradingalerts/internal/indicator"
	"tradingalerts/internal/markethours"
	"tradingalerts/internal/marketdata"
	"tradingalerts/internal/metrics"
	"tradingalerts/internal/model"
)

// Config configures the evaluation loop.
type Config struct {
	Interval        time.Duration // pass spacing in continuous mode, default 5m
	MarketHoursOnly bool          // skip passes while NSE is closed
	LookbackMargin  int           // extra bars fetched beyond the warm-up window, default 50
}

// Service drives evaluation passes over all active alerts.
type Service struct {
	cfg      Config
	store    model.AlertStore
	provider model.Provider
	notifier model.Notifier
	prom     *metrics.Metrics
	health   *metrics.HealthStatus

	now func() time.Time
}

// New wires the orchestrator. prom may be nil.
func New(cfg Config, store model.AlertStore, provider model.Provider, notifier model.Notifier, prom *metrics.Metrics) *Service {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.LookbackMargin <= 0 {
		cfg.LookbackMargin = 50
	}
	return &Service{
		cfg:      cfg,
		store:    store,
		provider: provider,
		notifier: notifier,
		prom:     prom,
		now:      time.Now,
	}
}

// WithHealth lets completed passes stamp the health endpoint.
func (s *Service) WithHealth(h *metrics.HealthStatus) *Service {
	s.health = h
	return s
}

// Summary reports what one pass did.
type Summary struct {
	Alerts    int // active alerts seen
	Checked   int // (alert, symbol) units evaluated
	Triggered int // alerts fired
	Skipped   int // units skipped (data errors, short series)
}

// RunOnce performs a single evaluation pass. Per-unit failures are isolated:
// one symbol's bad data never blocks the rest of the pass. Only a fatal
// authentication failure aborts, since every later fetch would fail the
// same way.
func (s *Service) RunOnce(ctx context.Context) (Summary, error) {
	start := s.now()
	var sum Summary

	alerts, err := s.store.ListActive(ctx)
	if err != nil {
		return sum, fmt.Errorf("list active alerts: %w", err)
	}
	sum.Alerts = len(alerts)
	if s.prom != nil {
		s.prom.ActiveAlerts.Set(float64(len(alerts)))
	}
	log.Printf("[evaluator] pass started: %d active alerts", len(alerts))

	for i := range alerts {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if err := s.evaluateAlert(ctx, &alerts[i], &sum); err != nil {
			if errors.Is(err, marketdata.ErrAuth) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return sum, err
			}
			sum.Skipped++
			log.Printf("[evaluator] alert #%d skipped: %v", alerts[i].ID, err)
		}
	}

	if s.prom != nil {
		s.prom.PassesTotal.Inc()
		s.prom.PassDuration.Observe(s.now().Sub(start).Seconds())
	}
	if s.health != nil {
		s.health.SetLastPassAt(s.now())
	}
	log.Printf("[evaluator] pass done in %s: checked=%d triggered=%d skipped=%d",
		s.now().Sub(start).Round(time.Millisecond), sum.Checked, sum.Triggered, sum.Skipped)
	return sum, nil
}

// evaluateAlert resolves the alert's stock set, evaluates every member and
// fires at most one notification. Group alerts aggregate all triggered
// members into a single message.
func (s *Service) evaluateAlert(ctx context.Context, a *model.AlertDefinition, sum *Summary) error {
	var triggered []model.EvaluationResult
	synthetic := false

	for _, inst := range a.Instruments() {
		res, err := s.evaluateSymbol(ctx, a, inst)
		if err != nil {
			if errors.Is(err, marketdata.ErrAuth) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			sum.Skipped++
			if s.prom != nil {
				s.prom.AlertsSkipped.WithLabelValues("data").Inc()
			}
			log.Printf("[evaluator] alert #%d %s skipped: %v", a.ID, inst.Symbol, err)
			continue
		}
		sum.Checked++
		if s.prom != nil {
			s.prom.AlertsChecked.Inc()
		}
		if res.Triggered {
			triggered = append(triggered, res)
			synthetic = synthetic || res.Synthetic
		}
	}

	if len(triggered) == 0 {
		return nil
	}

	// The flip is the commit point: whoever wins the 1→0 transition owns
	// the single notification for this activation.
	fired, err := s.store.Deactivate(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("deactivate: %w", err)
	}
	if !fired {
		log.Printf("[evaluator] alert #%d already fired elsewhere; not notifying", a.ID)
		return nil
	}
	sum.Triggered++
	if s.prom != nil {
		s.prom.AlertsTriggered.Inc()
	}

	subject, message := renderAlert(a, triggered, synthetic)
	pref, err := s.store.Preferences(ctx, a.UserID)
	if err != nil {
		// Alert stays fired; delivery is best-effort past the flip.
		log.Printf("[evaluator] alert #%d fired but preferences lookup failed: %v", a.ID, err)
		return nil
	}
	results := s.notifier.NotifyUser(ctx, pref, subject, message)
	for channel, derr := range results {
		if s.prom != nil {
			s.prom.RecordNotification(channel, derr)
		}
	}
	log.Printf("[evaluator] alert #%d fired for user %d (%d symbol(s))", a.ID, a.UserID, len(triggered))
	return nil
}

// evaluateSymbol computes both indicator sides on one symbol's series and
// applies the alert's condition.
func (s *Service) evaluateSymbol(ctx context.Context, a *model.AlertDefinition, inst model.Instrument) (model.EvaluationResult, error) {
	res := model.EvaluationResult{Symbol: inst.Symbol}

	to := s.now()
	bars := requiredBars(a.Indicator1)
	if b := requiredBars(a.Indicator2); b > bars {
		bars = b
	}
	bars += s.cfg.LookbackMargin
	from := to.Add(-time.Duration(bars) * a.Timeframe.BarDuration())

	series, err := s.provider.Fetch(ctx, inst, a.Timeframe, from, to)
	if err != nil {
		return res, err
	}
	res.Synthetic = series.Synthetic()

	if a.Crossover {
		prev1, cur1, ok1 := indicator.LatestPair(series, a.Indicator1)
		prev2, cur2, ok2 := indicator.LatestPair(series, a.Indicator2)
		if !ok1 || !ok2 {
			return res, fmt.Errorf("insufficient data for %s on %s (%d bars)", a.Indicator1, inst.Symbol, series.Len())
		}
		res.Value1, res.Value2 = cur1, cur2
		res.Triggered = condition.EvaluateCrossover(prev1, prev2, cur1, cur2, a.Condition)
		return res, nil
	}

	v1, ok1 := indicator.Latest(series, a.Indicator1)
	v2, ok2 := indicator.Latest(series, a.Indicator2)
	if !ok1 || !ok2 {
		return res, fmt.Errorf("insufficient data for %s on %s (%d bars)", a.Indicator1, inst.Symbol, series.Len())
	}
	res.Value1, res.Value2 = v1, v2
	res.Triggered = condition.Evaluate(v1, v2, a.Condition)
	return res, nil
}

// Run evaluates continuously until ctx is cancelled. A fatal authentication
// failure stops the loop; retrying it every interval would only hammer the
// broker with dead credentials.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if s.cfg.MarketHoursOnly && !markethours.IsMarketOpen(s.now()) {
			if s.prom != nil {
				s.prom.MarketState.Set(0)
			}
			log.Printf("[evaluator] %s; sleeping", markethours.StatusString(s.now()))
		} else {
			if s.prom != nil {
				s.prom.MarketState.Set(1)
			}
			if _, err := s.RunOnce(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				if errors.Is(err, marketdata.ErrAuth) {
					return err
				}
				log.Printf("[evaluator] pass failed: %v", err)
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// requiredBars is the minimum series length for the indicator to produce a
// value, plus one so crossover checks have a prior bar.
func requiredBars(spec model.IndicatorSpec) int {
	switch spec.Kind {
	case model.KindPrice:
		return 2
	case model.KindRSI, model.KindATR:
		return spec.Period + 2
	case model.KindMACD, model.KindMACDSignal:
		return spec.SlowPeriod + spec.SignalPeriod + 1
	default:
		return spec.Period + 1
	}
}
