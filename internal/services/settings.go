package services

import "github.com/tidwall/gjson"

// ScaleSettings is the decoded per-question configuration for scale-typed
// questions. Other question types carry no interpretable settings.
type ScaleSettings struct {
	Min  int
	Max  int
	Step int
}

const (
	defaultScaleMin  = 0
	defaultScaleMax  = 10
	defaultScaleStep = 1
)

// ParseScaleSettings decodes the raw settings blob of a scale question.
// Malformed or missing fields fall back to defaults; it never fails.
func ParseScaleSettings(raw []byte) ScaleSettings {
	s := ScaleSettings{Min: defaultScaleMin, Max: defaultScaleMax, Step: defaultScaleStep}
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return s
	}
	if v := gjson.GetBytes(raw, "min"); v.Exists() && v.Int() >= 0 {
		s.Min = int(v.Int())
	}
	if v := gjson.GetBytes(raw, "max"); v.Exists() && v.Int() > 0 {
		s.Max = int(v.Int())
	}
	if v := gjson.GetBytes(raw, "step"); v.Exists() && v.Int() > 0 {
		s.Step = int(v.Int())
	}
	if s.Max < s.Min {
		return ScaleSettings{Min: defaultScaleMin, Max: defaultScaleMax, Step: defaultScaleStep}
	}
	return s
}
