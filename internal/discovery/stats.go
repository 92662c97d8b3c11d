package discovery

import "sync/atomic"

// Counters is a snapshot of one protocol's rolling counters.
type Counters struct {
	Notifications uint64
	DecodeErrors  uint64
	NoQuote       uint64
	NotTradeable  uint64
	Ignored       uint64
	Emitted       uint64
}

// Stats accumulates per-protocol counters between reporting ticks.
// Safe for concurrent use.
type Stats struct {
	notifications atomic.Uint64
	decodeErrors  atomic.Uint64
	noQuote       atomic.Uint64
	notTradeable  atomic.Uint64
	ignored       atomic.Uint64
	emitted       atomic.Uint64
}

// Observe records one notification and its outcome.
func (s *Stats) Observe(o Outcome) {
	s.notifications.Add(1)
	switch o {
	case OutcomeEmitted:
		s.emitted.Add(1)
	case OutcomeDecodeError:
		s.decodeErrors.Add(1)
	case OutcomeNoQuote:
		s.noQuote.Add(1)
	case OutcomeNotTradeable:
		s.notTradeable.Add(1)
	case OutcomeIgnored:
		s.ignored.Add(1)
	}
}

// Reset returns the current counters and zeroes them.
func (s *Stats) Reset() Counters {
	return Counters{
		Notifications: s.notifications.Swap(0),
		DecodeErrors:  s.decodeErrors.Swap(0),
		NoQuote:       s.noQuote.Swap(0),
		NotTradeable:  s.notTradeable.Swap(0),
		Ignored:       s.ignored.Swap(0),
		Emitted:       s.emitted.Swap(0),
	}
}
