package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// InstructionDelimiter joins instruction steps when they arrive as one string.
const InstructionDelimiter = "|"

// AssetDescription is the form input sent to the planning API.
type AssetDescription struct {
	Name            string `json:"name" validate:"required"`
	Model           string `json:"model" validate:"required"`
	Serial          string `json:"serial" validate:"required"`
	Category        string `json:"category" validate:"required"`
	Hours           int    `json:"hours" validate:"gte=0"`
	Cycles          int    `json:"cycles" validate:"gte=0"`
	Environment     string `json:"environment" validate:"required"`
	DateOfPlanStart string `json:"date_of_plan_start,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// MaintenanceTask is one entry of a generated PM plan.
type MaintenanceTask struct {
	TaskName                string       `json:"task_name"`
	MaintenanceInterval     string       `json:"maintenance_interval"`
	Instructions            Instructions `json:"instructions"`
	Reason                  string       `json:"reason"`
	EngineeringRationale    string       `json:"engineering_rationale"`
	SafetyPrecautions       string       `json:"safety_precautions"`
	CommonFailuresPrevented string       `json:"common_failures_prevented"`
	UsageInsights           string       `json:"usage_insights"`
	ScheduledDates          []string     `json:"scheduled_dates"`
	AssetName               string       `json:"asset_name,omitempty"`
	AssetModel              string       `json:"asset_model,omitempty"`
}

// Instructions is an ordered list of trimmed steps. On the wire it is either
// a JSON array of strings or a single string joined by InstructionDelimiter.
type Instructions []string

// SplitInstructions splits a joined string into trimmed steps. Text without
// InstructionDelimiter is split into lines instead, skipping blank ones, which
// is the numbered form the planning API emits.
func SplitInstructions(s string) Instructions {
	if !strings.Contains(s, InstructionDelimiter) && strings.Contains(s, "\n") {
		steps := Instructions{}
		for _, line := range strings.Split(s, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				steps = append(steps, line)
			}
		}
		return steps
	}

	parts := strings.Split(s, InstructionDelimiter)
	steps := make(Instructions, 0, len(parts))
	for _, p := range parts {
		steps = append(steps, strings.TrimSpace(p))
	}
	return steps
}

// UnmarshalJSON accepts either wire form. Any other value becomes a single
// step holding its literal text.
func (in *Instructions) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*in = nil
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*in = SplitInstructions(s)
		return nil
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		steps := make(Instructions, 0, len(raw))
		for _, r := range raw {
			var s string
			if err := json.Unmarshal(r, &s); err != nil {
				// non-string steps are kept in their literal form
				s = string(r)
			}
			steps = append(steps, strings.TrimSpace(s))
		}
		*in = steps
		return nil
	default:
		*in = Instructions{flexString(data)}
		return nil
	}
}

// UnmarshalJSON decodes a task leniently. Plans come from model output, so a
// text field may hold any JSON scalar and scheduled_dates may be one string.
func (t *MaintenanceTask) UnmarshalJSON(data []byte) error {
	var raw struct {
		TaskName                json.RawMessage `json:"task_name"`
		MaintenanceInterval     json.RawMessage `json:"maintenance_interval"`
		Instructions            Instructions    `json:"instructions"`
		Reason                  json.RawMessage `json:"reason"`
		EngineeringRationale    json.RawMessage `json:"engineering_rationale"`
		SafetyPrecautions       json.RawMessage `json:"safety_precautions"`
		CommonFailuresPrevented json.RawMessage `json:"common_failures_prevented"`
		UsageInsights           json.RawMessage `json:"usage_insights"`
		ScheduledDates          json.RawMessage `json:"scheduled_dates"`
		AssetName               json.RawMessage `json:"asset_name"`
		AssetModel              json.RawMessage `json:"asset_model"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*t = MaintenanceTask{
		TaskName:                flexString(raw.TaskName),
		MaintenanceInterval:     flexString(raw.MaintenanceInterval),
		Instructions:            raw.Instructions,
		Reason:                  flexString(raw.Reason),
		EngineeringRationale:    flexString(raw.EngineeringRationale),
		SafetyPrecautions:       flexString(raw.SafetyPrecautions),
		CommonFailuresPrevented: flexString(raw.CommonFailuresPrevented),
		UsageInsights:           flexString(raw.UsageInsights),
		ScheduledDates:          flexStrings(raw.ScheduledDates),
		AssetName:               flexString(raw.AssetName),
		AssetModel:              flexString(raw.AssetModel),
	}
	return nil
}

// flexString renders any JSON value as text: strings as-is, lists joined by
// ", ", everything else in its literal form.
func flexString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	if raw[0] == '[' {
		var items []json.RawMessage
		if json.Unmarshal(raw, &items) == nil {
			parts := make([]string, 0, len(items))
			for _, item := range items {
				parts = append(parts, flexString(item))
			}
			return strings.Join(parts, ", ")
		}
	}
	return string(raw)
}

// flexStrings accepts a list or a single value.
func flexStrings(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err == nil {
			out := make([]string, 0, len(items))
			for _, item := range items {
				out = append(out, flexString(item))
			}
			return out
		}
	}
	if s := flexString(raw); s != "" {
		return []string{s}
	}
	return nil
}
