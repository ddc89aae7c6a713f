// Package calibrate inverts opaque plugin parameter mappings. The only
// observable signal is the formatted display string a plugin renders for a
// normalized value, so the search treats the mapping as a black box.
package calibrate

import (
	"math"

	"github.com/james-see/wav2instrument/pkg/units"
)

// Probe is the write/read surface over one live plugin parameter. Probes
// are read-after-write against mutable plugin state: callers must never
// reorder or interleave them.
type Probe interface {
	Set(normalized float64)
	ReadFormatted() string
}

// Kind classifies what a calibration target measures
type Kind int

const (
	// KindTime targets are durations in milliseconds. Probed values
	// rendered in seconds are scaled to milliseconds before comparison.
	KindTime Kind = iota
	// KindLevel targets are levels in decibels
	KindLevel
)

// Search resolution of the two-phase scan
const (
	coarseSteps = 200
	refineSub   = 50
)

// Result is the outcome of one calibration
type Result struct {
	// Value is the normalized value committed to the parameter
	Value float64
	// Residual is the absolute error between the probed reading at Value
	// and the target, in the target's unit
	Residual float64
	// Converged is false when no probed point ever exposed the target's
	// unit kind. The parameter is then left at normalized 0, which is a
	// degraded no-op rather than a failure.
	Converged bool
}

// Calibrate finds the normalized value in [0, domainMax] whose probed
// reading best matches target. The mapping is not guaranteed monotonic or
// continuous, so this is a linear coarse pass over the whole domain
// followed by a fine pass around the coarse best, not a bisection. The
// winner is written back as the final probe state. Unparseable readings
// are skipped; a reading with an unknown unit is accepted as-is.
func Calibrate(probe Probe, target float64, kind Kind, domainMax float64) Result {
	if domainMax <= 0 {
		domainMax = 1
	}

	best := Result{Value: 0, Residual: math.Inf(1), Converged: false}
	coarseStep := domainMax / coarseSteps

	for i := 0; i <= coarseSteps; i++ {
		n := float64(i) * coarseStep
		if err, ok := measure(probe, n, target, kind); ok && err < best.Residual {
			best = Result{Value: n, Residual: err, Converged: true}
		}
	}

	if best.Converged {
		fineStep := coarseStep / refineSub
		lo := math.Max(0, best.Value-coarseStep)
		hi := math.Min(domainMax, best.Value+coarseStep)
		for n := lo; n <= hi; n += fineStep {
			if err, ok := measure(probe, n, target, kind); ok && err < best.Residual {
				best.Value = n
				best.Residual = err
			}
		}
	}

	// Commit the winner; the last probe left the parameter elsewhere.
	probe.Set(best.Value)
	return best
}

// measure sets the parameter, reads it back and returns the absolute error
// to target. ok is false when the reading is unparseable or its unit does
// not belong to the target kind.
func measure(probe Probe, n, target float64, kind Kind) (err float64, ok bool) {
	probe.Set(n)
	value, unit, ok := units.ExtractValue(probe.ReadFormatted())
	if !ok {
		return 0, false
	}
	if !kindAccepts(kind, unit) {
		return 0, false
	}
	if kind == KindTime && unit == units.UnitSecond {
		value *= 1000
	}
	return math.Abs(value - target), true
}

// kindAccepts reports whether a probed unit is usable for the target kind.
// Unknown units are always acceptable: some plugins render bare numbers.
func kindAccepts(kind Kind, unit units.Unit) bool {
	switch unit {
	case units.UnitUnknown:
		return true
	case units.UnitDecibel:
		return kind == KindLevel
	case units.UnitMillisecond, units.UnitSecond:
		return kind == KindTime
	}
	return false
}
