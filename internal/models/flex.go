package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FlexString decodes a JSON string, number or boolean into its string form.
// Valid is false for null or a missing field.
type FlexString struct {
	Value string
	Valid bool
}

// NewFlexString returns a valid FlexString
func NewFlexString(s string) FlexString {
	return FlexString{Value: s, Valid: true}
}

func (f *FlexString) UnmarshalJSON(raw []byte) error {
	if len(raw) == 0 || string(raw) == "null" {
		*f = FlexString{}
		return nil
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		*f = FlexString{Value: strVal, Valid: true}
		return nil
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		if numVal == float64(int64(numVal)) {
			*f = FlexString{Value: fmt.Sprintf("%d", int64(numVal)), Valid: true}
		} else {
			*f = FlexString{Value: fmt.Sprintf("%g", numVal), Valid: true}
		}
		return nil
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		*f = FlexString{Value: fmt.Sprintf("%t", boolVal), Valid: true}
		return nil
	}

	return fmt.Errorf("expected string, number or null, got %s", string(raw))
}

func (f FlexString) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// TrimFloatArtifact strips whitespace and any trailing ".0" left behind when an
// integer identifier was serialised as a float ("123.0" -> "123").
func TrimFloatArtifact(s string) string {
	s = strings.TrimSpace(s)
	for strings.HasSuffix(s, ".0") {
		s = strings.TrimSpace(strings.TrimSuffix(s, ".0"))
	}
	return s
}

// CanonicalNumber normalises a locomotive number so "1234" and "1234.0" join
func CanonicalNumber(s string) string {
	return TrimFloatArtifact(s)
}
