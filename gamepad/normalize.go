package gamepad

import (
	"math"

	"github.com/soar/padkit/backend"
)

// Fallback native ranges for backends that report no axis metadata,
// following the common 16-bit driver convention.
const (
	defaultAxisMin = -32768
	defaultAxisMax = 32767
	defaultTrigMin = 0
	defaultTrigMax = 32767
)

// normalizeAxis rescales a native axis value into [-1, 1], or [0, 1] for
// unidirectional trigger axes.
func normalizeAxis(info backend.AxisInfo, haveInfo bool, raw int32, trigger bool) float32 {
	if !haveInfo {
		if trigger {
			info = backend.AxisInfo{Min: defaultTrigMin, Max: defaultTrigMax}
		} else {
			info = backend.AxisInfo{Min: defaultAxisMin, Max: defaultAxisMax}
		}
	}
	if info.Max <= info.Min {
		return 0
	}
	span := float32(info.Max) - float32(info.Min)
	frac := (float32(raw) - float32(info.Min)) / span
	// Flipping the fraction inverts within the axis's own range, keeping
	// triggers unidirectional.
	if info.Inverted {
		frac = 1 - frac
	}

	if trigger {
		return clamp(frac, 0, 1)
	}
	return clamp(2*frac-1, -1, 1)
}

// normalizeButtonValue rescales an analog button reading into [0, 1].
func normalizeButtonValue(info backend.AxisInfo, haveInfo bool, raw int32) float32 {
	if !haveInfo {
		info = backend.AxisInfo{Min: defaultTrigMin, Max: defaultTrigMax}
	}
	if info.Max <= info.Min {
		return 0
	}
	frac := (float32(raw) - float32(info.Min)) / (float32(info.Max) - float32(info.Min))
	return clamp(frac, 0, 1)
}

// applyDeadzone applies a radial deadzone to a two-dimensional stick
// reading. Inside the threshold both components collapse to zero; outside,
// the remaining range is remapped so output magnitude still spans [0, 1]
// smoothly from the deadzone edge.
func applyDeadzone(x, y, threshold float32) (float32, float32) {
	if threshold <= 0 {
		return x, y
	}
	mag := float32(math.Sqrt(float64(x*x + y*y)))
	if mag <= threshold {
		return 0, 0
	}
	scale := ((mag - threshold) / (1 - threshold)) / mag
	return clamp(x*scale, -1, 1), clamp(y*scale, -1, 1)
}

// applyDeadzoneScalar is the one-dimensional variant used for lone axes and
// triggers.
func applyDeadzoneScalar(v, threshold float32) float32 {
	if threshold <= 0 {
		return v
	}
	mag := v
	if mag < 0 {
		mag = -mag
	}
	if mag <= threshold {
		return 0
	}
	scaled := (mag - threshold) / (1 - threshold)
	if v < 0 {
		return clamp(-scaled, -1, 1)
	}
	return clamp(scaled, 0, 1)
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
