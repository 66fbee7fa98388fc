package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iwvelando/bid-estimator/internal/catalog"
	"github.com/iwvelando/bid-estimator/internal/classify"
	"github.com/iwvelando/bid-estimator/internal/config"
	"github.com/iwvelando/bid-estimator/pkg/constants"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const sampleReply = `Here is the analysis of the drawing:
{
  "drawing_info": {"title": "Level 1 Fire Alarm Plan", "number": "FA-101", "type": "fire alarm", "scale": "1/8\" = 1'-0\""},
  "devices": [
    {"device_type": "smoke detector", "quantity": 10, "system_type": "fire_alarm", "locations": ["corridor"]},
    {"device_type": "pull station", "quantity": 4, "system_type": "fire_alarm"}
  ],
  "notes": ["  verify ceiling heights  ", ""],
  "total_counts": {"smoke_detectors_fire_alarm": 10, "pull_stations": 4, "heat_detectors": 0}
}
Let me know if you need anything else.`

func newTestHandler(t *testing.T, maxUploadSize int64) http.Handler {
	t.Helper()
	handler, err := NewHandler(zap.NewNop(), config.Default(), maxUploadSize, "")
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	return handler
}

func TestHandleVersion(t *testing.T) {
	handler, err := NewHandler(zap.NewNop(), nil, 0, " 1.2.3 ")
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["version"] != "1.2.3" {
		t.Fatalf("expected version 1.2.3, got %q", resp["version"])
	}
}

func TestHandleVersionDefaultsToDev(t *testing.T) {
	handler := newTestHandler(t, constants.DefaultMaxUploadSizeBytes)

	req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if !strings.Contains(rr.Body.String(), `"dev"`) {
		t.Fatalf("expected dev version, got %s", rr.Body.String())
	}
}

func TestHandleCatalog(t *testing.T) {
	handler := newTestHandler(t, constants.DefaultMaxUploadSizeBytes)

	tests := []struct {
		name        string
		query       string
		wantStatus  int
		wantDevices int
	}{
		{name: "All devices by default", query: "", wantStatus: http.StatusOK, wantDevices: 7},
		{name: "Electrical trade", query: "?trade=electrical", wantStatus: http.StatusOK, wantDevices: 2},
		{name: "Unknown trade", query: "?trade=plumbing", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/catalog"+tt.query, nil)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp catalogResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if len(resp.Devices) != tt.wantDevices {
				t.Fatalf("expected %d devices, got %d", tt.wantDevices, len(resp.Devices))
			}
			if len(resp.Trades) != 4 {
				t.Fatalf("expected 4 trades, got %d", len(resp.Trades))
			}
		})
	}
}

func TestHandleEstimateSuccess(t *testing.T) {
	handler := newTestHandler(t, constants.DefaultMaxUploadSizeBytes)

	payload := map[string]interface{}{
		"trade": "fire_alarm",
		"quantities": map[string]int{
			catalog.SmokeDetectorsFireAlarm: 10,
			catalog.PullStations:            4,
			"bogus":                         3,
		},
	}
	rr := performJSON(t, handler, payload, "/api/estimate")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp estimateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.MaterialSubtotal != "3100.00" {
		t.Fatalf("expected subtotal 3100.00, got %s", resp.MaterialSubtotal)
	}
	if resp.OverheadAmount != "310.00" {
		t.Fatalf("expected overhead 310.00, got %s", resp.OverheadAmount)
	}
	if resp.ProfitAmount != "511.50" {
		t.Fatalf("expected profit 511.50, got %s", resp.ProfitAmount)
	}
	if resp.FinalTotal != "3921.50" {
		t.Fatalf("expected total 3921.50, got %s", resp.FinalTotal)
	}
	if len(resp.LineItems) != 4 {
		t.Fatalf("expected 4 line items, got %d", len(resp.LineItems))
	}
	// 2 nonzero devices + SUBTOTAL, Overhead, Profit, TOTAL BID.
	if len(resp.Rows) != 6 {
		t.Fatalf("expected 6 rows, got %d", len(resp.Rows))
	}
	if last := resp.Rows[len(resp.Rows)-1]; last.Device != "TOTAL BID" || !last.Summary {
		t.Fatalf("unexpected last row %+v", last)
	}
	if len(resp.UnknownKeys) != 1 || resp.UnknownKeys[0] != "bogus" {
		t.Fatalf("expected bogus to be reported, got %v", resp.UnknownKeys)
	}
	if !strings.HasPrefix(resp.CSV, "Device,Count,Unit Price,Total\n") {
		t.Fatalf("unexpected CSV %q", resp.CSV)
	}
	if !strings.Contains(resp.Text, "TOTAL BID: $3,921.50") {
		t.Fatalf("unexpected text summary %q", resp.Text)
	}
	if resp.ID == "" || resp.Duration == "" {
		t.Fatal("expected id and duration in response")
	}
}

func TestHandleEstimateOverrides(t *testing.T) {
	handler := newTestHandler(t, constants.DefaultMaxUploadSizeBytes)

	payload := map[string]interface{}{
		"quantities":  map[string]int{catalog.SmokeDetectorsFireAlarm: 10, catalog.PullStations: 4},
		"unitPrices":  map[string]string{catalog.PullStations: "150"},
		"overheadPct": 10,
		"profitPct":   15,
		"miscCost":    "78.50",
		"profitBasis": "costPlusOverhead",
		"includeZero": true,
	}
	rr := performJSON(t, handler, payload, "/api/estimate")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp estimateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.FinalTotal != "4000.00" {
		t.Fatalf("expected total 4000.00, got %s", resp.FinalTotal)
	}
	if resp.Trade != constants.DefaultTrade {
		t.Fatalf("expected default trade, got %s", resp.Trade)
	}
	// 4 devices + SUBTOTAL, Overhead, Profit, Misc, TOTAL BID.
	if len(resp.Rows) != 9 {
		t.Fatalf("expected 9 rows, got %d", len(resp.Rows))
	}
}

func TestHandleEstimateValidation(t *testing.T) {
	handler := newTestHandler(t, constants.DefaultMaxUploadSizeBytes)

	tests := []struct {
		name    string
		payload map[string]interface{}
		wantMsg string
	}{
		{
			name:    "Negative quantity",
			payload: map[string]interface{}{"quantities": map[string]int{catalog.PullStations: -1}},
			wantMsg: "quantity[pull_stations]",
		},
		{
			name:    "Overhead above 100",
			payload: map[string]interface{}{"overheadPct": 101},
			wantMsg: "overheadPct",
		},
		{
			name:    "Negative misc",
			payload: map[string]interface{}{"miscCost": -5},
			wantMsg: "miscCost",
		},
		{
			name:    "Unknown profit basis",
			payload: map[string]interface{}{"profitBasis": "revenue"},
			wantMsg: "profitBasis",
		},
		{
			name:    "Unknown trade",
			payload: map[string]interface{}{"trade": "plumbing"},
			wantMsg: "unknown trade",
		},
		{
			name: "Sub-cent unit price",
			payload: map[string]interface{}{
				"quantities": map[string]int{catalog.PullStations: 1},
				"unitPrices": map[string]string{catalog.PullStations: "0.125"},
			},
			wantMsg: "unitPrice[pull_stations]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := performJSON(t, handler, tt.payload, "/api/estimate")
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
			}
			var resp map[string]string
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode error response: %v", err)
			}
			if !strings.Contains(resp["error"], tt.wantMsg) {
				t.Fatalf("expected error to mention %q, got %q", tt.wantMsg, resp["error"])
			}
		})
	}
}

func TestHandleEstimateInvalidJSON(t *testing.T) {
	handler := newTestHandler(t, constants.DefaultMaxUploadSizeBytes)

	req := httptest.NewRequest(http.MethodPost, "/api/estimate", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleEstimateMethodNotAllowed(t *testing.T) {
	handler := newTestHandler(t, constants.DefaultMaxUploadSizeBytes)

	req := httptest.NewRequest(http.MethodGet, "/api/estimate", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rr.Code)
	}
}

func TestHandleDetectionSuccess(t *testing.T) {
	handler := newTestHandler(t, constants.DefaultMaxUploadSizeBytes)

	rr := performUpload(t, handler, sampleReply, "reply.txt", map[string]string{
		"title":     "Level 1",
		"profitPct": "15",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp estimateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.FinalTotal != "3921.50" {
		t.Fatalf("expected total 3921.50, got %s", resp.FinalTotal)
	}
	if resp.Title != "Level 1" {
		t.Fatalf("expected title Level 1, got %q", resp.Title)
	}
	if resp.Drawing == nil || resp.Drawing.Number != "FA-101" {
		t.Fatalf("expected drawing info in response, got %+v", resp.Drawing)
	}
	if len(resp.Notes) != 1 || resp.Notes[0] != "verify ceiling heights" {
		t.Fatalf("expected normalized notes, got %v", resp.Notes)
	}
	if len(resp.Devices) != 2 {
		t.Fatalf("expected 2 devices in breakdown, got %+v", resp.Devices)
	}
	smoke := resp.Devices[0]
	if smoke.DeviceType != "smoke detector" || smoke.Quantity != 10 || smoke.SystemType != "fire_alarm" {
		t.Fatalf("unexpected first device %+v", smoke)
	}
	if len(smoke.Locations) != 1 || smoke.Locations[0] != "corridor" {
		t.Fatalf("expected corridor location, got %v", smoke.Locations)
	}
	if resp.Devices[1].DeviceType != "pull station" || resp.Devices[1].Quantity != 4 {
		t.Fatalf("unexpected second device %+v", resp.Devices[1])
	}
}

func TestHandleDetectionErrors(t *testing.T) {
	handler := newTestHandler(t, constants.DefaultMaxUploadSizeBytes)

	tests := []struct {
		name    string
		reply   string
		fields  map[string]string
		wantMsg string
	}{
		{name: "No JSON", reply: "I could not read this drawing.", wantMsg: "no JSON found"},
		{name: "Malformed JSON", reply: `{"total_counts": {`, wantMsg: "no JSON found"},
		{name: "Broken object", reply: `{"total_counts": [}`, wantMsg: "failed to parse JSON"},
		{name: "Fractional count", reply: `{"total_counts": {"pull_stations": 2.5}}`, wantMsg: "invalid device count"},
		{name: "Bad form field", reply: `{"total_counts": {}}`, fields: map[string]string{"overheadPct": "lots"}, wantMsg: "invalid overheadPct"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := performUpload(t, handler, tt.reply, "reply.txt", tt.fields)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
			}
			var resp map[string]string
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode error response: %v", err)
			}
			if !strings.Contains(resp["error"], tt.wantMsg) {
				t.Fatalf("expected error to mention %q, got %q", tt.wantMsg, resp["error"])
			}
		})
	}
}

func TestHandleDetectionUploadTooLarge(t *testing.T) {
	handler := newTestHandler(t, 64)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "reply.txt")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte(strings.Repeat("a", 128))); err != nil {
		t.Fatalf("failed to write oversized payload: %v", err)
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/estimate/detection", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d", rr.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if !strings.Contains(resp["error"], "upload exceeds limit") {
		t.Fatalf("expected upload limit error message, got %q", resp["error"])
	}
}

func TestHandleDetectionMissingFile(t *testing.T) {
	handler := newTestHandler(t, constants.DefaultMaxUploadSizeBytes)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/estimate/detection", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if resp["error"] != "missing detection reply file" {
		t.Fatalf("expected missing file error, got %q", resp["error"])
	}
}

func TestHandleXlsx(t *testing.T) {
	handler := newTestHandler(t, constants.DefaultMaxUploadSizeBytes)

	payload := map[string]interface{}{
		"title":      "plan.pdf",
		"quantities": map[string]int{catalog.SmokeDetectorsFireAlarm: 10, catalog.PullStations: 4},
	}
	rr := performJSON(t, handler, payload, "/api/estimate/xlsx")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Content-Disposition"); !strings.Contains(got, "estimate_plan.xlsx") {
		t.Fatalf("unexpected Content-Disposition %q", got)
	}

	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	if err != nil {
		t.Fatalf("failed to open workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatalf("failed to read rows: %v", err)
	}
	// Header + 2 devices + 4 summary rows.
	if len(rows) != 7 {
		t.Fatalf("expected 7 rows, got %d", len(rows))
	}
	if rows[len(rows)-1][0] != "TOTAL BID" {
		t.Fatalf("expected TOTAL BID last, got %v", rows[len(rows)-1])
	}
}

func TestHandleClassify(t *testing.T) {
	handler := newTestHandler(t, constants.DefaultMaxUploadSizeBytes)

	tests := []struct {
		name     string
		payload  map[string]interface{}
		category string
	}{
		{
			name:     "Line voltage smoke",
			payload:  map[string]interface{}{"text": "Smoke detector 120VAC on branch circuit"},
			category: classify.Electrical,
		},
		{
			name:     "Addressable device",
			payload:  map[string]interface{}{"text": "Addressable smoke detector on SLC"},
			category: classify.FireAlarm,
		},
		{
			name:     "No indicators",
			payload:  map[string]interface{}{"text": "Smoke detector"},
			category: classify.FireAlarm,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := performJSON(t, handler, tt.payload, "/api/classify")
			if rr.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
			}
			var resp classify.Classification
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Category != tt.category {
				t.Fatalf("expected %s, got %s", tt.category, resp.Category)
			}
		})
	}
}

func TestHandleConfigExport(t *testing.T) {
	handler := newTestHandler(t, constants.DefaultMaxUploadSizeBytes)

	payload := map[string]interface{}{
		"trades": []interface{}{
			map[string]interface{}{"name": "detection", "devices": []interface{}{"smoke"}},
		},
		"devices": []interface{}{
			map[string]interface{}{"key": "smoke", "displayName": "Smoke", "defaultUnitPrice": 250.0},
		},
		"estimate": map[string]interface{}{
			"overheadPct": 10.0,
			"profitPct":   15.0,
		},
		"output": map[string]interface{}{
			"format": "pretty",
		},
		"logging": map[string]interface{}{
			"level": "info",
		},
	}

	rr := performJSON(t, handler, payload, "/api/config/export")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		ConfigYAML string   `json:"configYaml"`
		Warnings   []string `json:"warnings"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.ConfigYAML == "" {
		t.Fatal("expected configYaml in response")
	}

	var topLevel []string
	for _, line := range strings.Split(strings.TrimRight(resp.ConfigYAML, "\n"), "\n") {
		if line == "" || strings.HasPrefix(line, " ") || strings.HasPrefix(line, "-") {
			continue
		}
		topLevel = append(topLevel, strings.TrimSuffix(line, ":"))
	}

	expected := []string{"logging", "output", "estimate", "devices", "trades"}
	if strings.Join(topLevel, ",") != strings.Join(expected, ",") {
		t.Fatalf("expected key order %v, got %v", expected, topLevel)
	}
}

func TestHandleConfigExportInvalidCatalog(t *testing.T) {
	handler := newTestHandler(t, constants.DefaultMaxUploadSizeBytes)

	payload := map[string]interface{}{
		"devices": []interface{}{
			map[string]interface{}{"key": "smoke", "defaultUnitPrice": -1.0},
		},
	}

	rr := performJSON(t, handler, payload, "/api/config/export")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestExportFilename(t *testing.T) {
	tests := map[string]string{
		"":               "estimate_bid.xlsx",
		"plan.pdf":       "estimate_plan.xlsx",
		"a/b\"c":         "estimate_a_b_c.xlsx",
		"Level 1 FA.PDF": "estimate_Level 1 FA.xlsx",
	}
	for input, expected := range tests {
		if got := exportFilename(input, "xlsx"); got != expected {
			t.Fatalf("exportFilename(%q) = %q, expected %q", input, got, expected)
		}
	}
}

func performUpload(t *testing.T, handler http.Handler, content, filename string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatalf("failed to write form field: %v", err)
		}
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("failed to write form data: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/estimate/detection", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	return rr
}

func performJSON(t *testing.T, handler http.Handler, payload map[string]interface{}, path string) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	return rr
}

func TestHandleEstimateTargetTotal(t *testing.T) {
	handler := newTestHandler(t, constants.DefaultMaxUploadSizeBytes)

	payload := map[string]interface{}{
		"quantities":  map[string]int{catalog.SmokeDetectorsFireAlarm: 10, catalog.PullStations: 4},
		"targetTotal": "3500",
	}
	rr := performJSON(t, handler, payload, "/api/estimate")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp estimateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Solve == nil || !resp.Solve.Converged {
		t.Fatalf("expected converged solve summary, got %+v", resp.Solve)
	}
	if resp.ProfitPct != "2.63" || resp.FinalTotal != "3499.68" {
		t.Fatalf("expected profit 2.63 and total 3499.68, got %s and %s", resp.ProfitPct, resp.FinalTotal)
	}

	payload["solveFor"] = "margin"
	rr = performJSON(t, handler, payload, "/api/estimate")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for unknown solve field, got %d", rr.Code)
	}
}

func TestHandleJSONBodyTooLarge(t *testing.T) {
	handler := newTestHandler(t, 64)
	body := `{"title": "` + strings.Repeat("x", 128) + `"}`

	for _, path := range []string{"/api/estimate", "/api/estimate/xlsx", "/api/classify", "/api/config/export"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusRequestEntityTooLarge {
				t.Fatalf("expected status 413, got %d: %s", rr.Code, rr.Body.String())
			}
			if !strings.Contains(rr.Body.String(), "exceeds limit of 64 bytes") {
				t.Fatalf("unexpected error body %s", rr.Body.String())
			}
		})
	}
}
