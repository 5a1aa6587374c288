// Package api - Thin HTTP surface
// The API is only responsible for input decoding, engine orchestration
// and output serialization. It never performs composition or validation
// logic itself.
package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"contract-billing/core/catalog"
	"contract-billing/core/compose"
	"contract-billing/core/line"
	"contract-billing/core/preset"
	"contract-billing/core/validate"
	"contract-billing/db"
	"contract-billing/internal/errors"
	"contract-billing/internal/logging"
)

// Server is the HTTP API server
type Server struct {
	mux     *http.ServeMux
	store   *db.Store
	version string
	logger  *zap.Logger
}

// NewServer creates the API server over a store
func NewServer(version string, store *db.Store) *Server {
	s := &Server{
		mux:     http.NewServeMux(),
		store:   store,
		version: version,
		logger:  logging.Named("api"),
	}
	s.registerRoutes()
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	// Core endpoints
	s.mux.HandleFunc("POST /compose", s.handleCompose)
	s.mux.HandleFunc("POST /compose/custom", s.handleComposeCustom)
	s.mux.HandleFunc("POST /validate", s.handleValidate)

	// Preset and catalog lookups
	s.mux.HandleFunc("GET /presets", s.handleListPresets)
	s.mux.HandleFunc("GET /presets/{id}", s.handleGetPreset)
	s.mux.HandleFunc("GET /catalog", s.handleCatalog)
	s.mux.HandleFunc("GET /presets/{id}/eligible-services", s.handleEligibleServices)

	// Contract lines
	s.mux.HandleFunc("PUT /contracts/{contractID}/lines/{lineID}", s.handleSaveLine)
	s.mux.HandleFunc("GET /contracts/{contractID}/lines", s.handleListLines)
	s.mux.HandleFunc("DELETE /contracts/{contractID}/lines/{lineID}", s.handleDeleteLine)

	// Supporting endpoints
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /version", s.handleVersion)
}

// handleCompose handles POST /compose
func (s *Server) handleCompose(w http.ResponseWriter, r *http.Request) {
	var req ComposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "INVALID_JSON", err.Error(), http.StatusBadRequest)
		return
	}
	if req.PresetID == "" {
		s.writeError(w, "INVALID_REQUEST", "preset_id is required", http.StatusBadRequest)
		return
	}

	def, err := s.store.GetPreset(r.Context(), req.PresetID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	set, err := DecodeOverrides(def.LineType, req.Overrides)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	cfg, err := compose.Compose(def, set, req.ContractID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, cfg, http.StatusOK)
}

// handleComposeCustom handles POST /compose/custom
func (s *Server) handleComposeCustom(w http.ResponseWriter, r *http.Request) {
	var req ComposeCustomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "INVALID_JSON", err.Error(), http.StatusBadRequest)
		return
	}

	lineType, err := line.ParseLineType(req.LineType)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	period := line.PeriodMonthly
	if req.BillingPeriod != "" {
		period, err = line.ParseBillingPeriod(req.BillingPeriod)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
	}

	var base compose.BaseOverrides
	if len(req.Base) > 0 {
		base, err = DecodeBase(lineType, req.Base)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
	}

	entries, err := s.store.ListServices(r.Context(), catalog.Filter{})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	services, err := CustomServices(req.Services)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	cfg, err := compose.ComposeCustom(lineType, period, base, services, entries, req.ContractID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, cfg, http.StatusOK)
}

// handleValidate handles POST /validate
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var cfg line.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		s.writeError(w, "INVALID_JSON", err.Error(), http.StatusBadRequest)
		return
	}

	res := validate.Validate(cfg)
	s.writeJSON(w, ValidationResponse{OK: res.OK(), Errors: res.Errors}, http.StatusOK)
}

// handleSaveLine handles PUT /contracts/{contractID}/lines/{lineID}.
// The configuration is validated before the store is touched; a failing
// configuration is never persisted.
func (s *Server) handleSaveLine(w http.ResponseWriter, r *http.Request) {
	contractID := r.PathValue("contractID")
	lineID := r.PathValue("lineID")

	var cfg line.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		s.writeError(w, "INVALID_JSON", err.Error(), http.StatusBadRequest)
		return
	}
	if cfg.LineID == "" {
		cfg.LineID = lineID
	}
	if cfg.LineID != lineID {
		s.writeError(w, "INVALID_REQUEST", "line id in body does not match path", http.StatusBadRequest)
		return
	}

	if res := validate.Validate(cfg); !res.OK() {
		s.writeValidationFailure(w, res)
		return
	}

	if err := s.store.SaveLine(r.Context(), contractID, cfg); err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, cfg, http.StatusOK)
}

// handleListLines handles GET /contracts/{contractID}/lines
func (s *Server) handleListLines(w http.ResponseWriter, r *http.Request) {
	cfgs, err := s.store.ListLines(r.Context(), r.PathValue("contractID"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if cfgs == nil {
		cfgs = []line.Config{}
	}
	s.writeJSON(w, cfgs, http.StatusOK)
}

// handleDeleteLine handles DELETE /contracts/{contractID}/lines/{lineID}
func (s *Server) handleDeleteLine(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeleteLine(r.Context(), r.PathValue("contractID"), r.PathValue("lineID"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListPresets handles GET /presets
func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	defs, err := s.store.ListPresets(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if defs == nil {
		defs = []preset.Definition{}
	}
	s.writeJSON(w, defs, http.StatusOK)
}

// handleGetPreset handles GET /presets/{id}
func (s *Server) handleGetPreset(w http.ResponseWriter, r *http.Request) {
	def, err := s.store.GetPreset(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, def, http.StatusOK)
}

// handleEligibleServices handles GET /presets/{id}/eligible-services
func (s *Server) handleEligibleServices(w http.ResponseWriter, r *http.Request) {
	def, err := s.store.GetPreset(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	entries, err := s.store.ListServices(r.Context(), catalog.Filter{ActiveOnly: true})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	eligible := preset.EligibleServices(def, entries)
	if eligible == nil {
		eligible = []catalog.Entry{}
	}
	s.writeJSON(w, eligible, http.StatusOK)
}

// handleCatalog handles GET /catalog
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	filter := catalog.Filter{NameContains: r.URL.Query().Get("q")}
	if method := r.URL.Query().Get("billing_method"); method != "" {
		t, err := line.ParseLineType(method)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		filter.BillingMethod = t
	}
	if r.URL.Query().Get("active") == "true" {
		filter.ActiveOnly = true
	}

	entries, err := s.store.ListServices(r.Context(), filter)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if entries == nil {
		entries = []catalog.Entry{}
	}
	s.writeJSON(w, entries, http.StatusOK)
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// handleVersion handles GET /version
func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]string{"version": s.version}, http.StatusOK)
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, code, message string, status int) {
	s.writeJSON(w, ErrorEnvelope{Error: ErrorBody{Code: code, Message: message}}, status)
}

func (s *Server) writeValidationFailure(w http.ResponseWriter, res validate.Result) {
	s.writeJSON(w, ErrorEnvelope{Error: ErrorBody{
		Code:    string(errors.TypeValidation),
		Message: "configuration failed validation",
		Fields:  res.Errors,
	}}, http.StatusUnprocessableEntity)
}

// writeDomainError maps typed domain errors to HTTP statuses.
// Store failures stay opaque: a 500 with the storage code, nothing more.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	e, ok := err.(*errors.Error)
	if !ok {
		s.writeError(w, string(errors.TypeInternal), err.Error(), http.StatusInternalServerError)
		return
	}

	status := http.StatusInternalServerError
	switch e.Type {
	case errors.TypeNotFound:
		status = http.StatusNotFound
	case errors.TypeParsing, errors.TypeComposition, errors.TypeUnknownServiceOverride,
		errors.TypeInvalidRate, errors.TypeInvalidQuantity:
		status = http.StatusBadRequest
	case errors.TypeValidation:
		status = http.StatusUnprocessableEntity
	case errors.TypeStorage, errors.TypeInternal:
		status = http.StatusInternalServerError
	}

	s.writeError(w, string(e.Type), e.Message, status)
}
