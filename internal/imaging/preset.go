package imaging

import (
	"fmt"
	"strings"
)

// Preset is the closed set of named shorthand configurations:
// {high, medium, low}.
type Preset string

const (
	PresetHigh   Preset = "high"
	PresetMedium Preset = "medium"
	PresetLow    Preset = "low"
)

// ResolvePreset is the pure function preset -> OptimizationConfig.
// Matching is case-insensitive; any other value fails with
// ErrInvalidPreset.
func ResolvePreset(name string) (OptimizationConfig, error) {
	switch Preset(strings.ToLower(name)) {
	case PresetHigh:
		return NewOptimizationConfig(40, true, false, true, nil)
	case PresetMedium:
		return NewOptimizationConfig(60, true, false, true, nil)
	case PresetLow:
		return NewOptimizationConfig(80, true, false, false, nil)
	default:
		return OptimizationConfig{}, fmt.Errorf("%w: %q", ErrInvalidPreset, name)
	}
}
