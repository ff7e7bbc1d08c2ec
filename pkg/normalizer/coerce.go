package normalizer

import (
	"math"
	"strconv"
	"strings"

	"github.com/synaptica-ai/noshow/pkg/common/models"
)

const (
	byteOrderMark = "\ufeff"
	nbsp          = "\u00a0"
)

func CleanHeader(value string) string {
	value = strings.ReplaceAll(value, byteOrderMark, "")
	value = strings.ReplaceAll(value, nbsp, " ")
	return strings.TrimSpace(value)
}

func CleanCell(value string) string {
	return strings.TrimSpace(strings.ReplaceAll(value, nbsp, " "))
}

// CoerceFlag maps values that numerically equal 0 or 1 to "0"/"1". Any other
// value comes back trimmed with ok=false.
func CoerceFlag(raw string) (string, bool) {
	value := CleanCell(raw)
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return value, false
	}
	switch parsed {
	case 0:
		return models.FlagFalse, true
	case 1:
		return models.FlagTrue, true
	}
	return value, false
}

func parseAge(raw string) *float64 {
	if raw == "" {
		return nil
	}
	age, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(age) || math.IsInf(age, 0) {
		return nil
	}
	return &age
}
