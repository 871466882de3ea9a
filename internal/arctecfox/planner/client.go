// Package planner is the client side of the planning API: it requests a
// maintenance plan for an asset and exports the same plan as a spreadsheet.
package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	e "github.com/gartstein/arctecfox/internal/arctecfox/errors"
	"github.com/gartstein/arctecfox/internal/arctecfox/models"
	"go.uber.org/zap"
)

const generatePath = "/api/generate_pm_plan"

// Spreadsheet is an exported plan ready to be saved.
type Spreadsheet struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Client talks to the planning API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(baseURL string, logger *zap.Logger, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		logger:     logger.Named("planner"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GeneratePlan posts the asset description and returns the task list.
func (c *Client) GeneratePlan(ctx context.Context, asset models.AssetDescription) ([]models.MaintenanceTask, error) {
	resp, err := c.post(ctx, asset, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read plan response: %w", err)
	}
	if err := checkStatus(resp, body); err != nil {
		return nil, err
	}
	if msg, ok := reportedFailure(body); ok {
		c.logger.Error("Plan generation failed", zap.String("asset", asset.Name), zap.String("error", msg))
		return nil, &e.RemoteError{Status: resp.StatusCode, Message: msg}
	}

	tasks, err := decodePlan(body)
	if err != nil {
		c.logger.Error("Plan response rejected", zap.Error(err))
		return nil, err
	}
	c.logger.Info("Plan generated", zap.String("asset", asset.Name), zap.Int("tasks", len(tasks)))
	return tasks, nil
}

// ExportPlanAsSpreadsheet requests the plan in spreadsheet form. It is a
// separate round-trip and does not reuse an earlier GeneratePlan result.
func (c *Client) ExportPlanAsSpreadsheet(ctx context.Context, asset models.AssetDescription) (*Spreadsheet, error) {
	resp, err := c.post(ctx, asset, "excel")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read spreadsheet: %w", err)
	}
	if err := checkStatus(resp, data); err != nil {
		return nil, err
	}
	contentType := resp.Header.Get("Content-Type")
	if msg, ok := reportedFailure(data); ok || isJSON(contentType) {
		if !ok {
			msg = "planning API returned JSON instead of a spreadsheet"
		}
		c.logger.Error("Spreadsheet export failed", zap.String("asset", asset.Name), zap.String("error", msg))
		return nil, &e.RemoteError{Status: resp.StatusCode, Message: msg}
	}

	return &Spreadsheet{
		Filename:    SpreadsheetFilename(asset.Name),
		ContentType: contentType,
		Data:        data,
	}, nil
}

// SpreadsheetFilename derives the saved file name from the asset name.
func SpreadsheetFilename(assetName string) string {
	if strings.TrimSpace(assetName) == "" {
		assetName = "Asset"
	}
	return fmt.Sprintf("PM_Plan_%s.xlsx", assetName)
}

func (c *Client) post(ctx context.Context, asset models.AssetDescription, format string) (*http.Response, error) {
	payload, err := json.Marshal(asset)
	if err != nil {
		return nil, fmt.Errorf("encode asset: %w", err)
	}

	endpoint := c.baseURL + generatePath
	if format != "" {
		endpoint += "?" + url.Values{"format": {format}}.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &e.RemoteError{Message: err.Error()}
	}
	return resp, nil
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}

func checkStatus(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg := strings.TrimSpace(string(body))
	var detail struct {
		Detail  interface{} `json:"detail"`
		Message string      `json:"message"`
		Error   string      `json:"error"`
	}
	if json.Unmarshal(body, &detail) == nil {
		switch {
		case detail.Message != "":
			msg = detail.Message
		case detail.Error != "":
			msg = detail.Error
		case detail.Detail != nil:
			msg = fmt.Sprint(detail.Detail)
		}
	}
	if msg == "" {
		msg = resp.Status
	}
	return &e.RemoteError{Status: resp.StatusCode, Message: msg}
}
