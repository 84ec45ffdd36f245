// Package marketdata fetches OHLCV candle series from the Angel One broker
// API, with session management, retry/backoff against a flaky upstream, a
// minimum inter-request gap for rate limits, and a synthetic fallback so
// downstream indicator code always has a series to work on in degraded mode.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/pquerna/otp/totp"

	"tradingalerts/internal/metrics"
	"tradingalerts/internal/model"
	"tradingalerts/pkg/smartconnect"
)

// ErrAuth marks fatal authentication failures. Retries are abandoned
// immediately and the caller should stop a continuous run rather than loop.
var ErrAuth = errors.New("marketdata: authentication failed")

const (
	defaultRetryCount    = 3
	defaultRetryDelay    = 2 * time.Second
	defaultMinRequestGap = 500 * time.Millisecond
	maxSeriesBars        = 500
)

// SeriesCache memoizes fetched series between passes. Implementations must
// treat failures as cache misses; a nil cache disables caching.
type SeriesCache interface {
	GetSeries(ctx context.Context, key string) (*model.Series, bool)
	PutSeries(ctx context.Context, key string, s *model.Series)
}

// Config configures the Angel One provider.
type Config struct {
	APIKey      string
	ClientCode  string
	Password    string
	TOTPSecret  string
	AccessToken string // pre-issued JWT, skips login when set

	RetryCount    int           // default 3
	RetryDelay    time.Duration // backoff base, default 2s
	MinRequestGap time.Duration // happy-path rate limiting, default 500ms
}

// Provider implements model.Provider against the Angel One candle API.
type Provider struct {
	cfg     Config
	client  *smartconnect.SmartConnect
	cache   SeriesCache
	metrics *metrics.Metrics // optional

	mu          sync.Mutex
	lastRequest time.Time
	rnd         *rand.Rand
}

// New creates a Provider. cache may be nil.
func New(cfg Config, client *smartconnect.SmartConnect, cache SeriesCache) *Provider {
	if cfg.RetryCount <= 0 {
		cfg.RetryCount = defaultRetryCount
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.MinRequestGap <= 0 {
		cfg.MinRequestGap = defaultMinRequestGap
	}
	return &Provider{
		cfg:    cfg,
		client: client,
		cache:  cache,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithMetrics attaches instrumentation. Without it the provider runs
// unobserved, which the tests rely on.
func (p *Provider) WithMetrics(m *metrics.Metrics) *Provider {
	p.metrics = m
	return p
}

// connect establishes a session when none is held: a pre-issued token wins,
// otherwise login with a freshly generated TOTP code.
func (p *Provider) connect(ctx context.Context) error {
	if p.client.HasSession() {
		return nil
	}
	if p.cfg.AccessToken != "" {
		p.client.SetAccessToken(p.cfg.AccessToken)
		return nil
	}
	code, err := totp.GenerateCode(p.cfg.TOTPSecret, time.Now())
	if err != nil {
		return fmt.Errorf("%w: totp: %v", ErrAuth, err)
	}
	if _, err := p.client.GenerateSession(ctx, p.cfg.ClientCode, p.cfg.Password, code); err != nil {
		if smartconnect.IsAuthError(err) {
			return fmt.Errorf("%w: %v", ErrAuth, err)
		}
		return err
	}
	log.Printf("[marketdata] session established for %s", p.cfg.ClientCode)
	return nil
}

// throttle enforces the minimum inter-request delay, happy path included.
func (p *Provider) throttle(ctx context.Context) error {
	p.mu.Lock()
	now := time.Now()
	wait := p.cfg.MinRequestGap - now.Sub(p.lastRequest)
	if wait > 0 {
		// Reserve the send slot so concurrent callers queue behind it.
		p.lastRequest = now.Add(wait)
	} else {
		p.lastRequest = now
	}
	p.mu.Unlock()
	if wait <= 0 {
		return nil
	}
	return sleepCtx(ctx, wait)
}

// backoff computes the delay before retry `attempt` (0-based): exponential
// in the base delay plus a small random jitter so concurrent callers do not
// retry in lockstep.
func (p *Provider) backoff(attempt int) time.Duration {
	base := p.cfg.RetryDelay * (1 << attempt)
	p.mu.Lock()
	jitter := time.Duration(p.rnd.Int63n(int64(time.Second)))
	p.mu.Unlock()
	return base + jitter
}

// Fetch retrieves the candle series for one instrument and timeframe.
// Transient failures are retried with exponential backoff; on exhaustion a
// synthetic series tagged SourceSynthetic is returned so evaluation can
// continue in degraded mode. Only fatal-auth failures surface as errors.
func (p *Provider) Fetch(ctx context.Context, inst model.Instrument, tf model.Timeframe, from, to time.Time) (*model.Series, error) {
	key := cacheKey(inst, tf, from, to)
	if p.cache != nil {
		if s, ok := p.cache.GetSeries(ctx, key); ok {
			if p.metrics != nil {
				p.metrics.CacheHits.Inc()
			}
			return s, nil
		}
	}

	var lastErr error
	for attempt := 0; attempt < p.cfg.RetryCount; attempt++ {
		if attempt > 0 {
			if p.metrics != nil {
				p.metrics.FetchRetries.Inc()
			}
			delay := p.backoff(attempt - 1)
			log.Printf("[marketdata] %s attempt %d failed: %v; retrying in %s", inst.Symbol, attempt, lastErr, delay.Round(time.Millisecond))
			if err := sleepCtx(ctx, delay); err != nil {
				return nil, err
			}
		}

		if err := p.connect(ctx); err != nil {
			if errors.Is(err, ErrAuth) {
				return nil, err
			}
			lastErr = err
			continue
		}
		if err := p.throttle(ctx); err != nil {
			return nil, err
		}

		start := time.Now()
		rows, err := p.client.CandleData(ctx, smartconnect.CandleRequest{
			Exchange:    inst.Exchange,
			SymbolToken: inst.Token,
			Interval:    tf.AngelInterval(),
			FromDate:    from.Format("2006-01-02 15:04"),
			ToDate:      to.Format("2006-01-02 15:04"),
		})
		if p.metrics != nil {
			p.metrics.FetchAttempts.Inc()
			p.metrics.FetchDuration.Observe(time.Since(start).Seconds())
		}
		if err != nil {
			if smartconnect.IsAuthError(err) {
				return nil, fmt.Errorf("%w: %v", ErrAuth, err)
			}
			lastErr = err
			continue
		}

		s := buildSeries(inst, tf, rows)
		if s.Len() == 0 {
			lastErr = fmt.Errorf("empty candle response for %s", inst.Symbol)
			continue
		}
		if p.cache != nil {
			p.cache.PutSeries(ctx, key, s)
		}
		return s, nil
	}

	log.Printf("[marketdata] %s unreachable after %d attempts (%v); using synthetic series", inst.Symbol, p.cfg.RetryCount, lastErr)
	if p.metrics != nil {
		p.metrics.SyntheticFallbacks.Inc()
	}
	limit := barCount(tf, from, to)
	return Synthetic(inst, tf, limit, to), nil
}

// buildSeries converts broker rows into an ordered, deduplicated series.
func buildSeries(inst model.Instrument, tf model.Timeframe, rows []smartconnect.CandleRow) *model.Series {
	candles := make([]model.Candle, 0, len(rows))
	for _, r := range rows {
		candles = append(candles, model.Candle{
			TS:     r.Timestamp,
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		})
	}
	sort.Slice(candles, func(i, j int) bool { return candles[i].TS.Before(candles[j].TS) })

	// Drop duplicate timestamps, keeping the first occurrence.
	dedup := candles[:0]
	for i, c := range candles {
		if i > 0 && !c.TS.After(dedup[len(dedup)-1].TS) {
			continue
		}
		dedup = append(dedup, c)
	}

	return &model.Series{
		Symbol:    inst.Symbol,
		Exchange:  inst.Exchange,
		Timeframe: tf,
		Candles:   dedup,
		Source:    model.SourceLive,
		FetchedAt: time.Now().UTC(),
	}
}

func barCount(tf model.Timeframe, from, to time.Time) int {
	n := int(to.Sub(from)/tf.BarDuration()) + 1
	if n < 2 {
		n = 2
	}
	if n > maxSeriesBars {
		n = maxSeriesBars
	}
	return n
}

func cacheKey(inst model.Instrument, tf model.Timeframe, from, to time.Time) string {
	return fmt.Sprintf("series:%s:%s:%s:%d:%d", inst.Exchange, inst.Token, tf, from.Unix(), to.Unix())
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
