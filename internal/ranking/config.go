package ranking

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/onnwee/oppscore/internal/record"
)

// Bonuses defines the additive exact-match bonuses.
type Bonuses struct {
	Classification float64 `json:"classification"` // default: 0.2
	Organization   float64 `json:"organization"`   // default: 0.1
	Category       float64 `json:"category"`       // default: 0.1
}

// Fields names the categorical attributes compared for each bonus.
type Fields struct {
	Classification string `json:"classification"`
	Organization   string `json:"organization"`
	Category       string `json:"category"`
}

// Calibration holds all tunable ranking parameters.
type Calibration struct {
	Bonuses   Bonuses `json:"bonuses"`
	Fields    Fields  `json:"fields"`
	Threshold float64 `json:"threshold"` // minimum composite score kept (default: 0.1)
	Limit     int     `json:"limit"`     // maximum results returned (default: 10)
}

// CalibrationConfig represents the JSON structure of the calibration file.
type CalibrationConfig struct {
	Version string `json:"version"` // Config version for future compatibility
	Calibration
}

// Defaults for threshold and limit.
const (
	DefaultThreshold = 0.1
	DefaultLimit     = 10
)

// DefaultCalibration returns the default calibration.
//
// composite = min(1, text + 0.2*classification + 0.1*organization + 0.1*category)
func DefaultCalibration() *Calibration {
	return &Calibration{
		Bonuses: Bonuses{
			Classification: 0.2,
			Organization:   0.1,
			Category:       0.1,
		},
		Fields: Fields{
			Classification: record.FieldClassification,
			Organization:   record.FieldOrganization,
			Category:       record.FieldCategory,
		},
		Threshold: DefaultThreshold,
		Limit:     DefaultLimit,
	}
}

// LoadCalibration loads ranking calibration from a JSON file.
// If the file can't be read or parsed, it returns the defaults with an error.
// Partial configurations are merged onto the defaults.
func LoadCalibration(filePath string) (*Calibration, error) {
	if filePath == "" {
		return DefaultCalibration(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultCalibration(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var config CalibrationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Warn("failed to parse calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultCalibration(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	defaults := DefaultCalibration()
	merged := MergeCalibration(defaults, &config.Calibration)
	logCalibrationOverrides(defaults, merged)

	return merged, nil
}

// MergeCalibration merges override values onto base. Only non-zero
// (non-empty for field names) values from the override are applied.
func MergeCalibration(base *Calibration, override *Calibration) *Calibration {
	if base == nil {
		return DefaultCalibration()
	}

	result := *base
	if override == nil {
		return &result
	}

	if override.Bonuses.Classification != 0 {
		result.Bonuses.Classification = override.Bonuses.Classification
	}
	if override.Bonuses.Organization != 0 {
		result.Bonuses.Organization = override.Bonuses.Organization
	}
	if override.Bonuses.Category != 0 {
		result.Bonuses.Category = override.Bonuses.Category
	}

	if override.Fields.Classification != "" {
		result.Fields.Classification = override.Fields.Classification
	}
	if override.Fields.Organization != "" {
		result.Fields.Organization = override.Fields.Organization
	}
	if override.Fields.Category != "" {
		result.Fields.Category = override.Fields.Category
	}

	if override.Threshold != 0 {
		result.Threshold = override.Threshold
	}
	if override.Limit != 0 {
		result.Limit = override.Limit
	}

	return &result
}

// logCalibrationOverrides logs which values were overridden from defaults.
func logCalibrationOverrides(defaults *Calibration, loaded *Calibration) {
	var overrides []string

	floatOverride := func(name string, def, got float64) {
		if got != def {
			overrides = append(overrides, fmt.Sprintf("%s: %.2f -> %.2f", name, def, got))
		}
	}
	stringOverride := func(name, def, got string) {
		if got != def {
			overrides = append(overrides, fmt.Sprintf("%s: %s -> %s", name, def, got))
		}
	}

	floatOverride("bonuses.classification", defaults.Bonuses.Classification, loaded.Bonuses.Classification)
	floatOverride("bonuses.organization", defaults.Bonuses.Organization, loaded.Bonuses.Organization)
	floatOverride("bonuses.category", defaults.Bonuses.Category, loaded.Bonuses.Category)
	stringOverride("fields.classification", defaults.Fields.Classification, loaded.Fields.Classification)
	stringOverride("fields.organization", defaults.Fields.Organization, loaded.Fields.Organization)
	stringOverride("fields.category", defaults.Fields.Category, loaded.Fields.Category)
	floatOverride("threshold", defaults.Threshold, loaded.Threshold)
	if loaded.Limit != defaults.Limit {
		overrides = append(overrides, fmt.Sprintf("limit: %d -> %d", defaults.Limit, loaded.Limit))
	}

	if len(overrides) > 0 {
		slog.Info("loaded ranking calibration with overrides",
			"overrides", overrides)
	} else {
		slog.Info("loaded ranking calibration (using all defaults)")
	}
}
