// Package pipeline - frame processing orchestration.
package pipeline

import (
	"github.com/spf13/viper"

	"github.com/anpr-ai/go-anpr/watchlist"
)

// Settings are the recognized runtime options. They map 1:1 onto the
// `detection.*` keys of the configuration file.
type Settings struct {
	// MinConfidence overrides the per-class defaults when positive.
	MinConfidence float32
	// EnableSecondaryColor reports a second vehicle color when present.
	EnableSecondaryColor bool
	// EnableGrayFiltering enables gray-ratio noise exclusion in color
	// extraction.
	EnableGrayFiltering bool
	// GrayExclusionThresholdPercent is the minimum gray sample share (0-100)
	// for gray to stay a candidate color.
	GrayExclusionThresholdPercent float32
	// EnableGpuAcceleration requests a GPU/NPU execution provider.
	EnableGpuAcceleration bool
	// EnableOcr turns plate recognition on. Modes that do not need a plate
	// never run OCR regardless.
	EnableOcr bool
	// ActiveDetectionMode selects which attributes drive watchlist matching.
	ActiveDetectionMode watchlist.Mode
}

// Default confidence thresholds per detector.
const (
	DefaultPlateConfidence   = 0.5
	DefaultVehicleConfidence = 0.3
)

// DefaultSettings returns the settings used when no configuration exists.
func DefaultSettings() Settings {
	return Settings{
		EnableSecondaryColor:          true,
		EnableGrayFiltering:           true,
		GrayExclusionThresholdPercent: 25,
		EnableOcr:                     true,
		ActiveDetectionMode:           watchlist.ModePlate,
	}
}

// LoadSettings reads settings from a viper instance, falling back to
// defaults for missing keys.
func LoadSettings(v *viper.Viper) Settings {
	d := DefaultSettings()
	v.SetDefault("detection.min_confidence", d.MinConfidence)
	v.SetDefault("detection.enable_secondary_color", d.EnableSecondaryColor)
	v.SetDefault("detection.enable_gray_filtering", d.EnableGrayFiltering)
	v.SetDefault("detection.gray_exclusion_threshold_percent", d.GrayExclusionThresholdPercent)
	v.SetDefault("detection.enable_gpu_acceleration", d.EnableGpuAcceleration)
	v.SetDefault("detection.enable_ocr", d.EnableOcr)
	v.SetDefault("detection.mode", d.ActiveDetectionMode.String())

	return Settings{
		MinConfidence:                 float32(v.GetFloat64("detection.min_confidence")),
		EnableSecondaryColor:          v.GetBool("detection.enable_secondary_color"),
		EnableGrayFiltering:           v.GetBool("detection.enable_gray_filtering"),
		GrayExclusionThresholdPercent: float32(v.GetFloat64("detection.gray_exclusion_threshold_percent")),
		EnableGpuAcceleration:         v.GetBool("detection.enable_gpu_acceleration"),
		EnableOcr:                     v.GetBool("detection.enable_ocr"),
		ActiveDetectionMode:           watchlist.ParseMode(v.GetString("detection.mode")),
	}
}

// VehicleConfidence returns the effective vehicle detector threshold.
func (s Settings) VehicleConfidence() float32 {
	if s.MinConfidence > 0 {
		return s.MinConfidence
	}
	return DefaultVehicleConfidence
}

// PlateConfidence returns the effective plate detector threshold.
func (s Settings) PlateConfidence() float32 {
	if s.MinConfidence > 0 {
		return s.MinConfidence
	}
	return DefaultPlateConfidence
}
