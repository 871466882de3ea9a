// Package planapi serves POST /api/generate_pm_plan: it asks a language
// model for a preventive maintenance plan and returns it as JSON or as an
// xlsx workbook.
package planapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gartstein/arctecfox/internal/arctecfox/models"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	FormatJSON  = "json"
	FormatExcel = "excel"

	invalidJSONMessage = "AI returned invalid JSON"
)

var errInvalidPlan = errors.New("AI returned an invalid maintenance plan")

// Task is one plan entry as produced by the model. Unknown keys are kept.
type Task map[string]interface{}

// Handler serves plan generation requests.
type Handler struct {
	generator Generator
	requests  *RequestLog
	validate  *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

type Option func(*Handler)

// WithRequestLog records every accepted request.
func WithRequestLog(log *RequestLog) Option {
	return func(h *Handler) { h.requests = log }
}

// WithClock overrides the clock used for the default plan start.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

func NewHandler(generator Generator, logger *zap.Logger, opts ...Option) *Handler {
	h := &Handler{
		generator: generator,
		validate:  validator.New(),
		logger:    logger.Named("planapi"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatExcel {
		writeError(w, http.StatusBadRequest, "invalid_input", fmt.Sprintf("format must be %q or %q", FormatJSON, FormatExcel))
		return
	}

	var asset models.AssetDescription
	if err := json.NewDecoder(r.Body).Decode(&asset); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid request body: "+err.Error())
		return
	}
	if err := h.validate.Struct(asset); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	h.logger.Info("PM plan request", zap.String("format", format), zap.String("asset", asset.Name))
	if h.requests != nil {
		if err := h.requests.Append(h.now(), asset); err != nil {
			h.logger.Warn("Request log write failed", zap.Error(err))
		}
	}

	tasks, err := h.generate(r, asset)
	if err != nil {
		h.logger.Error("Error generating plan", zap.Error(err))
		writePlan(w, map[string]interface{}{"error": err.Error(), "pm_plan": []Task{}})
		return
	}

	if format == FormatExcel {
		data, err := Workbook(tasks)
		if err != nil {
			h.logger.Error("Error building workbook", zap.Error(err))
			writePlan(w, map[string]interface{}{"error": err.Error(), "pm_plan": []Task{}})
			return
		}
		w.Header().Set("Content-Type", WorkbookContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="PM_Plan.xlsx"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	writePlan(w, map[string]interface{}{"pm_plan": tasks})
}

func (h *Handler) generate(r *http.Request, asset models.AssetDescription) ([]Task, error) {
	raw, err := h.generator.Generate(r.Context(), systemInstruction, BuildPrompt(asset, h.now()))
	if err != nil {
		return nil, err
	}
	h.logger.Debug("Raw model response", zap.String("content", raw))

	tasks, err := parsePlan(raw)
	if err != nil {
		return nil, err
	}
	for _, task := range tasks {
		task["asset_name"] = asset.Name
		task["asset_model"] = asset.Model
		if numbered, ok := numberInstructions(task["instructions"]); ok {
			task["instructions"] = numbered
		}
	}
	return tasks, nil
}

// parsePlan extracts maintenance_plan from the model output. A missing key
// is an empty plan.
func parsePlan(raw string) ([]Task, error) {
	if !json.Valid([]byte(raw)) {
		return nil, errors.New(invalidJSONMessage)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return nil, errInvalidPlan
	}
	plan, ok := envelope["maintenance_plan"]
	if !ok || string(plan) == "null" {
		return []Task{}, nil
	}

	tasks := []Task{}
	if err := json.Unmarshal(plan, &tasks); err != nil {
		return nil, errInvalidPlan
	}
	for _, task := range tasks {
		if task == nil {
			return nil, errInvalidPlan
		}
	}
	return tasks, nil
}

// numberInstructions turns a step list, or a string joined by
// models.InstructionDelimiter, into "1. step" lines. Any other value is
// left alone.
func numberInstructions(value interface{}) (string, bool) {
	var steps []string
	switch v := value.(type) {
	case string:
		if !strings.Contains(v, models.InstructionDelimiter) {
			return "", false
		}
		for _, s := range strings.Split(v, models.InstructionDelimiter) {
			if s = strings.TrimSpace(s); s != "" {
				steps = append(steps, s)
			}
		}
	case []interface{}:
		for _, s := range v {
			steps = append(steps, strings.TrimSpace(fmt.Sprint(s)))
		}
	default:
		return "", false
	}

	lines := make([]string, len(steps))
	for i, s := range steps {
		lines[i] = fmt.Sprintf("%d. %s", i+1, s)
	}
	return strings.Join(lines, "\n"), true
}

func writePlan(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"code": code, "message": message})
}
