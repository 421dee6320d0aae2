package scheduler

import "time"

// buckets is a tenant's array of (rate, burst, token) triples, refilled per
// spec.md §4.7's two-phase rule: capped refill up to the queue's last
// empty-to-nonempty transition t_e, then uncapped refill from there to now,
// so a long-idle best-effort tenant is never throttled forever by a burst
// cap it was never near. t_e is owned by the tenant (occupancy accounting
// also measures the current busy stretch from it) and passed in at refill
// time.
type buckets struct {
	cfg        []BucketConfig
	tokens     []float64
	lastUpdate time.Time
}

func newBuckets(cfg []BucketConfig, now time.Time) *buckets {
	tokens := make([]float64, len(cfg))
	for i, c := range cfg {
		tokens[i] = c.Burst
	}
	return &buckets{cfg: cfg, tokens: tokens, lastUpdate: now}
}

// refill advances the buckets to now, applying the capped phase up to tE
// and the uncapped phase from tE (or lastUpdate, whichever is later) to
// now. Safe to call redundantly within the same scheduling step.
func (b *buckets) refill(now, tE time.Time) {
	cappedUntil := tE
	if cappedUntil.Before(b.lastUpdate) {
		cappedUntil = b.lastUpdate
	}
	if cappedUntil.After(now) {
		cappedUntil = now
	}

	cappedElapsed := cappedUntil.Sub(b.lastUpdate).Seconds()
	uncappedElapsed := now.Sub(cappedUntil).Seconds()

	for i, c := range b.cfg {
		if cappedElapsed > 0 {
			b.tokens[i] += c.Rate * cappedElapsed
			if b.tokens[i] > c.Burst {
				b.tokens[i] = c.Burst
			}
		}
		if uncappedElapsed > 0 {
			b.tokens[i] += c.Rate * uncappedElapsed
		}
	}
	b.lastUpdate = now
}

// withinLimits reports whether work can be drawn from every bucket without
// going negative.
func (b *buckets) withinLimits(work float64) bool {
	for _, t := range b.tokens {
		if work > t {
			return false
		}
	}
	return true
}

// charge subtracts work from every bucket, flooring at 0 so best-effort
// dispatch never drives a bucket arbitrarily negative.
func (b *buckets) charge(work float64) {
	for i := range b.tokens {
		b.tokens[i] -= work
		if b.tokens[i] < 0 {
			b.tokens[i] = 0
		}
	}
}

// levels returns a snapshot of the current token level in each bucket, for
// metrics reporting.
func (b *buckets) levels() []float64 {
	return append([]float64(nil), b.tokens...)
}

