package planner

import (
	"bytes"
	"encoding/json"
	"fmt"

	e "github.com/gartstein/arctecfox/internal/arctecfox/errors"
	"github.com/gartstein/arctecfox/internal/arctecfox/models"
)

type planSource int

const (
	sourceNone planSource = iota
	sourceTopLevel
	sourceNested
)

func (s planSource) String() string {
	switch s {
	case sourceTopLevel:
		return "pm_plan"
	case sourceNested:
		return "data.maintenance_plan"
	default:
		return "none"
	}
}

type planEnvelope struct {
	PMPlan json.RawMessage `json:"pm_plan"`
	Data   *struct {
		MaintenancePlan json.RawMessage `json:"maintenance_plan"`
	} `json:"data"`
}

// locatePlan picks the plan value by priority: pm_plan, then
// data.maintenance_plan. A missing key or a falsy value (null, false, 0, "")
// counts as absent.
func locatePlan(body []byte) (planSource, json.RawMessage, error) {
	var env planEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return sourceNone, nil, fmt.Errorf("%w: %v", e.ErrInvalidResponseShape, err)
	}
	if present(env.PMPlan) {
		return sourceTopLevel, env.PMPlan, nil
	}
	if env.Data != nil && present(env.Data.MaintenancePlan) {
		return sourceNested, env.Data.MaintenancePlan, nil
	}
	return sourceNone, nil, nil
}

// decodePlan resolves the task list from a planning API response body.
// Neither key present yields an empty list; a resolved value that is not
// an array fails with ErrInvalidResponseShape.
func decodePlan(body []byte) ([]models.MaintenanceTask, error) {
	source, raw, err := locatePlan(body)
	if err != nil {
		return nil, err
	}
	if source == sourceNone {
		return []models.MaintenanceTask{}, nil
	}

	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: %s is not a list", e.ErrInvalidResponseShape, source)
	}
	tasks := []models.MaintenanceTask{}
	if err := json.Unmarshal(raw, &tasks); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", e.ErrInvalidResponseShape, source, err)
	}
	return tasks, nil
}

func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return false
	}
	switch trimmed[0] {
	case 'n', 'f':
		return false
	case '"':
		var s string
		return json.Unmarshal(trimmed, &s) != nil || s != ""
	case '[', '{', 't':
		return true
	default:
		var n float64
		return json.Unmarshal(trimmed, &n) != nil || n != 0
	}
}

// reportedFailure returns the message of a JSON body carrying a non-empty
// "error" field. The planning API reports generation failures this way with
// a 200 status.
func reportedFailure(body []byte) (string, bool) {
	var report struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &report) != nil || !present(report.Error) {
		return "", false
	}
	var msg string
	if json.Unmarshal(report.Error, &msg) != nil {
		msg = string(bytes.TrimSpace(report.Error))
	}
	return msg, true
}
