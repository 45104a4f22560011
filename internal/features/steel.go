package features

import (
	"strings"

	"github.com/locowear/wheelwear/internal/models"
)

// UnknownSteel replaces a missing steel batch id
const UnknownSteel = "unknown"

var nullMarkers = map[string]bool{
	"":      true,
	"nan":   true,
	"none":  true,
	"null":  true,
	"<nil>": true,
}

// NormalizeSteelNum canonicalises a steel batch id: "123.0" -> "123",
// "  45 " -> "45", and empty or null markers -> "unknown".
func NormalizeSteelNum(value any) string {
	if value == nil {
		return UnknownSteel
	}

	s := models.TrimFloatArtifact(formatCategorical(value))
	if nullMarkers[strings.ToLower(s)] {
		return UnknownSteel
	}
	return s
}
