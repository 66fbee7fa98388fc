package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/iwvelando/bid-estimator/internal/bid"
	"github.com/iwvelando/bid-estimator/internal/catalog"
	"github.com/iwvelando/bid-estimator/internal/classify"
	"github.com/iwvelando/bid-estimator/internal/config"
	"github.com/iwvelando/bid-estimator/internal/detection"
	"github.com/iwvelando/bid-estimator/internal/estimate"
	"github.com/iwvelando/bid-estimator/internal/optimizer"
	"github.com/iwvelando/bid-estimator/pkg/constants"
	"github.com/iwvelando/bid-estimator/pkg/money"
	"github.com/iwvelando/bid-estimator/pkg/optimization"
	"github.com/iwvelando/bid-estimator/pkg/output"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type handler struct {
	logger        *zap.Logger
	maxUploadSize int64
	version       string
	catalog       *catalog.Catalog
	classifier    *classify.Classifier
	defaults      config.EstimateConfig
}

// NewHandler constructs the HTTP handler that serves the estimate API. The
// catalog, default markup and classifier rules come from conf.
func NewHandler(logger *zap.Logger, conf *config.Configuration, maxUploadSize int64, version string) (http.Handler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if conf == nil {
		conf = config.Default()
	}

	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	cat, err := conf.Catalog()
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog: %w", err)
	}
	classifier, err := conf.Classifier()
	if err != nil {
		return nil, fmt.Errorf("failed to build classifier: %w", err)
	}

	h := &handler{
		logger:        logger,
		maxUploadSize: maxUploadSize,
		version:       trimmedVersion,
		catalog:       cat,
		classifier:    classifier,
		defaults:      conf.Estimate,
	}

	router := chi.NewRouter()
	router.Use(requestLogger(logger))
	router.Use(middleware.Recoverer)

	router.Route("/api", func(r chi.Router) {
		r.Get("/version", h.handleVersion)
		r.Get("/catalog", h.handleCatalog)
		r.Post("/estimate", h.handleEstimate)
		r.Post("/estimate/detection", h.handleDetection)
		r.Post("/estimate/xlsx", h.handleXlsx)
		r.Post("/classify", h.handleClassify)
		r.Post("/config/export", h.handleConfigExport)
	})

	return router, nil
}

// requestLogger logs one line per request with its status and duration.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("request served",
				zap.String("op", "server.request"),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_ip", r.RemoteAddr),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

type estimateRequest struct {
	Title       string                     `json:"title"`
	Trade       string                     `json:"trade"`
	Quantities  map[string]int             `json:"quantities"`
	UnitPrices  map[string]decimal.Decimal `json:"unitPrices"`
	OverheadPct *decimal.Decimal           `json:"overheadPct"`
	ProfitPct   *decimal.Decimal           `json:"profitPct"`
	MiscCost    *decimal.Decimal           `json:"miscCost"`
	ProfitBasis string                     `json:"profitBasis"`
	IncludeZero bool                       `json:"includeZero"`
	TargetTotal *decimal.Decimal           `json:"targetTotal"`
	SolveFor    string                     `json:"solveFor"`
}

type estimateResponse struct {
	ID               string                 `json:"id"`
	Title            string                 `json:"title,omitempty"`
	Trade            string                 `json:"trade"`
	LineItems        []lineItemView         `json:"lineItems"`
	OverheadPct      string                 `json:"overheadPct"`
	ProfitPct        string                 `json:"profitPct"`
	ProfitBasis      string                 `json:"profitBasis"`
	MaterialSubtotal string                 `json:"materialSubtotal"`
	OverheadAmount   string                 `json:"overheadAmount"`
	ProfitAmount     string                 `json:"profitAmount"`
	MiscCost         string                 `json:"miscCost"`
	FinalTotal       string                 `json:"finalTotal"`
	Rows             []rowView              `json:"rows"`
	CSV              string                 `json:"csv"`
	Text             string                 `json:"text"`
	UnknownKeys      []string               `json:"unknownKeys,omitempty"`
	Drawing          *detection.DrawingInfo `json:"drawing,omitempty"`
	Devices          []deviceView           `json:"devices,omitempty"`
	Notes            []string               `json:"notes,omitempty"`
	Solve            *optimization.Summary  `json:"solve,omitempty"`
	Duration         string                 `json:"duration"`
}

type lineItemView struct {
	DeviceKey string `json:"deviceKey"`
	Device    string `json:"device"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
	LineTotal string `json:"lineTotal"`
}

// deviceView is one entry of the detailed device breakdown.
type deviceView struct {
	DeviceType string   `json:"deviceType"`
	Quantity   int      `json:"quantity"`
	SystemType string   `json:"systemType,omitempty"`
	Model      string   `json:"model,omitempty"`
	Voltage    string   `json:"voltage,omitempty"`
	Circuit    string   `json:"circuit,omitempty"`
	Locations  []string `json:"locations,omitempty"`
}

type rowView struct {
	Device    string `json:"device"`
	Quantity  string `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
	Total     string `json:"total"`
	Summary   bool   `json:"summary,omitempty"`
}

type catalogResponse struct {
	Trade   string          `json:"trade"`
	Devices []catalog.Entry `json:"devices"`
	Trades  []catalog.Trade `json:"trades"`
}

type classifyRequest struct {
	Text    string `json:"text"`
	Context string `json:"context"`
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleCatalog(w http.ResponseWriter, r *http.Request) {
	trade := r.URL.Query().Get("trade")
	if trade == "" {
		trade = constants.AllTrade
	}
	sub, err := h.catalog.Trade(trade)
	if err != nil {
		h.respondErrorWithOp(w, statusFor(err), err.Error(), "server.handleCatalog")
		return
	}
	h.writeJSON(w, http.StatusOK, catalogResponse{
		Trade:   trade,
		Devices: sub.Entries(),
		Trades:  h.catalog.Trades(),
	})
}

func (h *handler) handleEstimate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleEstimate"
	start := time.Now()

	req, ok := h.decodeEstimateRequest(w, r, op)
	if !ok {
		return
	}
	bidReq, err := h.toBidRequest(req)
	if err != nil {
		h.respondErrorWithOp(w, statusFor(err), err.Error(), op)
		return
	}
	h.runEstimate(w, bidReq, req.Title, nil, start, op)
}

func (h *handler) handleDetection(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleDetection"
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), op)
			return
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err), op)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, "missing detection reply file", op)
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.logger.Warn("failed to close uploaded file",
				zap.String("op", op),
				zap.Error(closeErr),
			)
		}
	}()

	reply, err := io.ReadAll(file)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to read detection reply: %v", err), op)
		return
	}

	req, err := estimateRequestFromForm(r)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}
	if req.Title == "" {
		req.Title = header.Filename
	}

	bidReq, err := h.toBidRequest(req)
	if err != nil {
		h.respondErrorWithOp(w, statusFor(err), err.Error(), op)
		return
	}
	bidReq, parsed, err := bid.FromReply(string(reply), bidReq)
	if err != nil {
		h.respondErrorWithOp(w, statusFor(err), err.Error(), op)
		return
	}

	h.runEstimate(w, bidReq, req.Title, parsed, start, op)
}

func (h *handler) handleXlsx(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleXlsx"

	req, ok := h.decodeEstimateRequest(w, r, op)
	if !ok {
		return
	}
	bidReq, err := h.toBidRequest(req)
	if err != nil {
		h.respondErrorWithOp(w, statusFor(err), err.Error(), op)
		return
	}
	result, err := bid.Build(h.logger, h.catalog, bidReq)
	if err != nil {
		h.respondErrorWithOp(w, statusFor(err), err.Error(), op)
		return
	}

	data, err := output.XlsxBytes(req.Title, result.Rows)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to render workbook: %v", err), op)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename(req.Title, "xlsx")))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Error("failed to write workbook", zap.String("op", op), zap.Error(err))
	}
}

func (h *handler) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if !h.decodeJSON(w, r, &req, "server.handleClassify") {
		return
	}
	h.writeJSON(w, http.StatusOK, h.classifier.Classify(req.Text, req.Context))
}

func (h *handler) handleConfigExport(w http.ResponseWriter, r *http.Request) {
	var payload map[string]interface{}
	if !h.decodeJSON(w, r, &payload, "server.handleConfigExport") {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}

	yamlBytes, err := marshalOrderedConfigYAML(payload)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to encode configuration: %v", err), "server.handleConfigExport")
		return
	}

	conf, err := config.LoadConfigurationFromReader(strings.NewReader(string(yamlBytes)))
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), "server.handleConfigExport")
		return
	}
	if _, err := conf.Catalog(); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), "server.handleConfigExport")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"configYaml": string(yamlBytes),
		"warnings":   conf.ValidateConfiguration(),
	})
}

func (h *handler) decodeEstimateRequest(w http.ResponseWriter, r *http.Request, op string) (estimateRequest, bool) {
	var req estimateRequest
	ok := h.decodeJSON(w, r, &req, op)
	return req, ok
}

// decodeJSON reads a JSON body of at most maxUploadSize bytes into dest.
// Oversized bodies are answered with 413, malformed ones with 400.
func (h *handler) decodeJSON(w http.ResponseWriter, r *http.Request, dest interface{}, op string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds limit of %d bytes", h.maxUploadSize), op)
			return false
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		return false
	}
	return true
}

// toBidRequest fills unset markup fields from the configured defaults.
func (h *handler) toBidRequest(req estimateRequest) (bid.Request, error) {
	trade := req.Trade
	if trade == "" {
		trade = h.defaults.Trade
	}
	basisValue := req.ProfitBasis
	if basisValue == "" {
		basisValue = h.defaults.ProfitBasis
	}
	basis, err := estimate.ParseProfitBasis(basisValue)
	if err != nil {
		return bid.Request{}, err
	}

	var target *bid.Target
	if req.TargetTotal != nil {
		field, err := optimizer.ParseField(req.SolveFor)
		if err != nil {
			return bid.Request{}, err
		}
		target = &bid.Target{Total: *req.TargetTotal, Field: field}
	}

	return bid.Request{
		Trade:  trade,
		Counts: req.Quantities,
		Prices: req.UnitPrices,
		Params: estimate.Params{
			OverheadPct: orDefault(req.OverheadPct, h.defaults.OverheadPct),
			ProfitPct:   orDefault(req.ProfitPct, h.defaults.ProfitPct),
			MiscCost:    orDefault(req.MiscCost, h.defaults.MiscCost),
			ProfitBasis: basis,
		},
		IncludeZero: req.IncludeZero,
		Target:      target,
	}, nil
}

func (h *handler) runEstimate(w http.ResponseWriter, req bid.Request, title string, parsed *detection.Result, start time.Time, op string) {
	result, err := bid.Build(h.logger, h.catalog, req)
	if err != nil {
		h.respondErrorWithOp(w, statusFor(err), err.Error(), op)
		return
	}

	est := result.Estimate
	elapsed := time.Since(start)
	response := estimateResponse{
		ID:               result.ID,
		Title:            title,
		Trade:            result.Trade,
		LineItems:        buildLineItems(est, result.Catalog),
		OverheadPct:      money.Percent(est.OverheadPct),
		ProfitPct:        money.Percent(est.ProfitPct),
		ProfitBasis:      string(est.ProfitBasis),
		MaterialSubtotal: money.Fixed(est.MaterialSubtotal),
		OverheadAmount:   money.Fixed(est.OverheadAmount),
		ProfitAmount:     money.Fixed(est.ProfitAmount),
		MiscCost:         money.Fixed(est.MiscCost),
		FinalTotal:       money.Fixed(est.FinalTotal),
		Rows:             buildRows(result.Rows),
		CSV:              output.CsvString(result.Rows),
		Text:             output.TextSummary(est, result.Catalog),
		UnknownKeys:      result.UnknownKeys,
		Solve:            result.Solve,
		Duration:         elapsed.String(),
	}
	if parsed != nil {
		drawing := parsed.DrawingInfo
		response.Drawing = &drawing
		response.Devices = buildDevices(parsed.Devices)
		response.Notes = normalizeNotes(parsed.Notes)
	}

	h.logger.Info("estimate computed",
		zap.String("op", op),
		zap.String("id", result.ID),
		zap.String("trade", result.Trade),
		zap.String("finalTotal", response.FinalTotal),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, response)
}

func estimateRequestFromForm(r *http.Request) (estimateRequest, error) {
	req := estimateRequest{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Trade:       strings.TrimSpace(r.FormValue("trade")),
		ProfitBasis: strings.TrimSpace(r.FormValue("profitBasis")),
		IncludeZero: coerceBool(r.FormValue("includeZero")),
		SolveFor:    strings.TrimSpace(r.FormValue("solveFor")),
	}

	fields := []struct {
		name string
		dest **decimal.Decimal
	}{
		{"overheadPct", &req.OverheadPct},
		{"profitPct", &req.ProfitPct},
		{"miscCost", &req.MiscCost},
		{"targetTotal", &req.TargetTotal},
	}
	for _, field := range fields {
		raw := strings.TrimSpace(r.FormValue(field.name))
		if raw == "" {
			continue
		}
		value, err := money.Parse(raw)
		if err != nil {
			return req, fmt.Errorf("invalid %s %q", field.name, raw)
		}
		*field.dest = &value
	}
	return req, nil
}

func buildLineItems(est estimate.Estimate, names estimate.Namer) []lineItemView {
	items := make([]lineItemView, 0, len(est.LineItems))
	for _, item := range est.LineItems {
		items = append(items, lineItemView{
			DeviceKey: item.DeviceKey,
			Device:    names.DisplayName(item.DeviceKey),
			Quantity:  item.Quantity,
			UnitPrice: money.Fixed(item.UnitPrice),
			LineTotal: money.Fixed(item.LineTotal()),
		})
	}
	return items
}

func buildDevices(devices []detection.Device) []deviceView {
	if len(devices) == 0 {
		return nil
	}
	views := make([]deviceView, 0, len(devices))
	for _, device := range devices {
		views = append(views, deviceView{
			DeviceType: device.DeviceType,
			Quantity:   device.Count(),
			SystemType: device.SystemType,
			Model:      device.Model,
			Voltage:    device.Voltage,
			Circuit:    device.Circuit,
			Locations:  device.Locations,
		})
	}
	return views
}

func buildRows(rows []estimate.Row) []rowView {
	views := make([]rowView, 0, len(rows))
	for _, row := range rows {
		views = append(views, rowView{
			Device:    row.Device,
			Quantity:  row.Quantity,
			UnitPrice: row.UnitPrice,
			Total:     money.Fixed(row.Total),
			Summary:   row.Summary,
		})
	}
	return views
}

func orDefault(value *decimal.Decimal, fallback float64) decimal.Decimal {
	if value != nil {
		return *value
	}
	return decimal.NewFromFloat(fallback)
}

// statusFor maps input errors to 400 and everything else to 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, estimate.ErrInvalidParameter),
		errors.Is(err, catalog.ErrUnknownTrade),
		errors.Is(err, detection.ErrNoJSON),
		errors.Is(err, detection.ErrInvalidCount):
		return http.StatusBadRequest
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// exportFilename mirrors the upload name, e.g. "plan.pdf" -> "estimate_plan.xlsx".
func exportFilename(title, ext string) string {
	base := strings.TrimSpace(title)
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	base = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == '"' {
			return '_'
		}
		return r
	}, base)
	if base == "" {
		base = "bid"
	}
	return "estimate_" + base + "." + ext
}

func marshalOrderedConfigYAML(payload map[string]interface{}) ([]byte, error) {
	items := make([]orderedItem, 0, len(payload))
	seen := make(map[string]struct{})

	for _, key := range []string{"logging", "output", "estimate", "devices", "trades"} {
		if value, ok := payload[key]; ok {
			items = append(items, orderedItem{key: key, value: value})
			seen[key] = struct{}{}
		}
	}

	remainingKeys := make([]string, 0, len(payload))
	for key := range payload {
		if _, already := seen[key]; already {
			continue
		}
		remainingKeys = append(remainingKeys, key)
	}
	sort.Strings(remainingKeys)
	for _, key := range remainingKeys {
		items = append(items, orderedItem{key: key, value: payload[key]})
	}

	return yaml.Marshal(orderedConfig{items: items})
}

type orderedConfig struct {
	items []orderedItem
}

type orderedItem struct {
	key   string
	value interface{}
}

func (o orderedConfig) MarshalYAML() (interface{}, error) {
	mapNode := &yaml.Node{
		Kind: yaml.MappingNode,
		Tag:  "!!map",
	}

	for _, item := range o.items {
		keyNode := &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!str",
			Value: item.key,
		}
		valueNode := &yaml.Node{}
		if err := valueNode.Encode(item.value); err != nil {
			return nil, err
		}
		mapNode.Content = append(mapNode.Content, keyNode, valueNode)
	}

	return mapNode, nil
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("estimate request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func normalizeNotes(notes []string) []string {
	if len(notes) == 0 {
		return nil
	}

	filtered := make([]string, 0, len(notes))
	for _, note := range notes {
		if trimmed := strings.TrimSpace(note); trimmed != "" {
			filtered = append(filtered, trimmed)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	return filtered
}

func coerceBool(value string) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return false
	}
	parsed, err := strconv.ParseBool(trimmed)
	return err == nil && parsed
}
