package uavcan

import "time"

// Duration is a monotonic time span, the result of subtracting two
// Instants.
type Duration = time.Duration

// Instant is a monotonic point in time. It is deliberately a distinct
// type from Clock: a Clock produces Instants, and nothing in this
// package other than SystemClock calls time.Now(), which keeps the
// transport core replayable against a fake clock.
type Instant struct {
	t time.Time
}

// NewInstant wraps a time.Time as an Instant. Drivers use this to
// stamp Frame.Timestamp at the moment of reception.
func NewInstant(t time.Time) Instant {
	return Instant{t: t}
}

// Sub returns the duration elapsed between u and i (i - u).
func (i Instant) Sub(u Instant) Duration {
	return i.t.Sub(u.t)
}

// Add returns the Instant d after i.
func (i Instant) Add(d Duration) Instant {
	return Instant{t: i.t.Add(d)}
}

// Before reports whether i occurs before u.
func (i Instant) Before(u Instant) bool {
	return i.t.Before(u.t)
}

// After reports whether i occurs after u.
func (i Instant) After(u Instant) bool {
	return i.t.After(u.t)
}

// IsZero reports whether i is the zero Instant.
func (i Instant) IsZero() bool {
	return i.t.IsZero()
}

func (i Instant) String() string {
	return i.t.Format(time.RFC3339Nano)
}

// Clock produces Instants. The real-time implementation is
// SystemClock; a test can inject a fake.
type Clock interface {
	Now() Instant
}

// SystemClock is a Clock backed by the host's monotonic wall clock.
type SystemClock struct{}

func (SystemClock) Now() Instant {
	return NewInstant(time.Now())
}
