// Package api is the HTTP binding over the engine façade: JSON request
// records in, JSON result records out, one route per public operation.
// Nothing in here computes; every handler decodes, calls
// internal/engineapi, and encodes.
package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"quantrisk/internal/config"
	"quantrisk/internal/copula"
	"quantrisk/internal/correlation"
	"quantrisk/internal/engineapi"
	"quantrisk/internal/engineerr"
	"quantrisk/internal/event"
	"quantrisk/internal/logger"
	"quantrisk/internal/scenario"
	"quantrisk/internal/sde"
	"quantrisk/internal/stress"
)

// Server holds the ambient config and the request-coalescing group for
// heavy deterministic runs.
type Server struct {
	cfg *config.Config

	// simGroup coalesces concurrent identical simulation requests:
	// same body + same seed means same result, so only one computes.
	simGroup singleflight.Group
}

// NewServer creates a Server with the given ambient config.
func NewServer(cfg *config.Config) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Server{cfg: cfg}
}

// Handler returns the HTTP handler with all API routes and CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/templates", s.handleTemplates)
	mux.HandleFunc("GET /api/stress/catalog", s.handleStressCatalog)
	mux.HandleFunc("POST /api/simulate", s.handleSimulate)
	mux.HandleFunc("POST /api/simulate/event", s.handleSimulateEvent)
	mux.HandleFunc("POST /api/simulate/event/compare", s.handleSimulateEventCompare)
	mux.HandleFunc("POST /api/sensitivity", s.handleSensitivity)
	mux.HandleFunc("POST /api/stress", s.handleStress)
	mux.HandleFunc("POST /api/estimate/gbm", s.handleEstimateGBM)
	mux.HandleFunc("POST /api/estimate/ou", s.handleEstimateOU)
	mux.HandleFunc("POST /api/estimate/recommend", s.handleRecommend)
	mux.HandleFunc("POST /api/bayes/beta", s.handleBayesBeta)
	mux.HandleFunc("POST /api/bayes/normal", s.handleBayesNormal)
	mux.HandleFunc("POST /api/bayes/nig", s.handleBayesNIG)
	mux.HandleFunc("POST /api/bayes/ab", s.handleBayesAB)
	mux.HandleFunc("POST /api/bayes/thompson", s.handleBayesThompson)
	mux.HandleFunc("POST /api/bayes/elicit", s.handleBayesElicit)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		allowedOrigin := ""
		if origin != "" && isAllowedCORSOrigin(origin, r.Host) {
			allowedOrigin = origin
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			w.Header().Set("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			if origin != "" && allowedOrigin == "" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isAllowedCORSOrigin(origin, requestHost string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	originHost := normalizeHost(u.Host)
	reqHost := normalizeHost(requestHost)
	if originHost == "" || reqHost == "" {
		return false
	}
	if originHost == reqHost {
		return true
	}
	return isLoopbackHost(originHost) && isLoopbackHost(reqHost)
}

func normalizeHost(hostPort string) string {
	if hostPort == "" {
		return ""
	}
	u, err := url.Parse("http://" + hostPort)
	if err != nil {
		return strings.ToLower(strings.Trim(hostPort, "[]"))
	}
	return strings.ToLower(u.Hostname())
}

func isLoopbackHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeEngineError maps the engine's typed error kinds to HTTP codes.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engineerr.InvalidParameter),
		errors.Is(err, engineerr.CorrelationIllDefined),
		errors.Is(err, engineerr.CopulaDimensionUnsupported),
		errors.Is(err, engineerr.UnknownVariable),
		errors.Is(err, engineerr.InsufficientData):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engineerr.NoObservations):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, engineerr.Cancelled):
		writeError(w, http.StatusRequestTimeout, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// --- request payloads ---

type variablePayload struct {
	Name         string  `json:"name"`
	SDEModel     string  `json:"sde_model"`
	InitialValue float64 `json:"initial_value"`
	Mu           float64 `json:"mu"`
	Sigma        float64 `json:"sigma"`
	Theta        float64 `json:"theta"`
	Kappa        float64 `json:"kappa"`
	Xi           float64 `json:"xi"`
	Rho          float64 `json:"rho"`
	V0           float64 `json:"v0"`
	Lambda       float64 `json:"lambda"`
	JumpMu       float64 `json:"jump_mu"`
	JumpSigma    float64 `json:"jump_sigma"`
}

type copulaPayload struct {
	Family   string  `json:"family"`
	Rho      float64 `json:"rho"`
	Nu       float64 `json:"nu"`
	Theta    float64 `json:"theta"`
	Rotation int     `json:"rotation"`
}

type covenantPayload struct {
	Variable  string  `json:"variable"`
	Op        string  `json:"op"`
	Threshold float64 `json:"threshold"`
}

type configPayload struct {
	NScenarios     int     `json:"n_scenarios"`
	HorizonMonths  float64 `json:"horizon_months"`
	DtMonths       float64 `json:"dt_months"`
	TimeStepUnit   string  `json:"time_step_unit"`
	Discretization string  `json:"discretization"`
	RandomSeed     *uint64 `json:"random_seed"`
}

type simulationRequest struct {
	Config      configPayload     `json:"config"`
	Variables   []variablePayload `json:"variables"`
	Correlation [][]float64       `json:"correlation,omitempty"`
	Copula      *copulaPayload    `json:"copula,omitempty"`
	Covenants   []covenantPayload `json:"covenants,omitempty"`
}

type eventRequest struct {
	Event       *event.Event      `json:"event"`
	Config      configPayload     `json:"config"`
	Variables   []variablePayload `json:"variables"`
	Copula      *copulaPayload    `json:"copula,omitempty"`
	Rho         float64           `json:"rho,omitempty"`
	Correlation [][]float64       `json:"correlation,omitempty"`
}

type sensitivityRequest struct {
	Config      configPayload     `json:"config"`
	Variables   []variablePayload `json:"variables"`
	Correlation [][]float64       `json:"correlation,omitempty"`
	Copula      *copulaPayload    `json:"copula,omitempty"`
	Vary        string            `json:"vary"`
	Lo          float64           `json:"lo"`
	Hi          float64           `json:"hi"`
	Output      string            `json:"output"`
	NSteps      int               `json:"n_steps"`
}

type stressRequest struct {
	Config      configPayload     `json:"config"`
	Variables   []variablePayload `json:"variables"`
	Correlation [][]float64       `json:"correlation,omitempty"`
	Copula      *copulaPayload    `json:"copula,omitempty"`
	Scenario    string            `json:"scenario,omitempty"`
	Custom      *stress.Scenario  `json:"custom,omitempty"`
}

// dtMonthsFor resolves the request's time resolution: an explicit
// dt_months wins, otherwise the named unit, otherwise monthly.
func dtMonthsFor(c configPayload) (float64, error) {
	if c.DtMonths > 0 {
		return c.DtMonths, nil
	}
	switch c.TimeStepUnit {
	case "", "monthly":
		return 1, nil
	case "daily":
		return 12.0 / 252, nil
	case "weekly":
		return 12.0 / 52, nil
	case "quarterly":
		return 3, nil
	case "yearly":
		return 12, nil
	default:
		return 0, engineerr.Wrap(engineerr.InvalidParameter, "unknown time_step_unit %q", c.TimeStepUnit)
	}
}

func (s *Server) toScenarioConfig(c configPayload) (scenario.Config, error) {
	dtMonths, err := dtMonthsFor(c)
	if err != nil {
		return scenario.Config{}, err
	}
	cfg := scenario.Config{
		NScenarios:    c.NScenarios,
		HorizonMonths: c.HorizonMonths,
		DtMonths:      dtMonths,
		RandomSeed:    c.RandomSeed,
		MaxWorkers:    s.cfg.MaxWorkers,
	}
	if cfg.NScenarios == 0 {
		cfg.NScenarios = s.cfg.DefaultScenarios
	}
	switch c.Discretization {
	case "", "euler":
		cfg.Discretization = scenario.DiscretizationEuler
	case "milstein":
		cfg.Discretization = scenario.DiscretizationMilstein
	default:
		return scenario.Config{}, engineerr.Wrap(engineerr.InvalidParameter, "unknown discretization %q", c.Discretization)
	}
	return cfg, nil
}

func toVariables(payloads []variablePayload) ([]scenario.Variable, error) {
	if len(payloads) == 0 {
		return nil, engineerr.Wrap(engineerr.InvalidParameter, "at least one variable is required")
	}
	out := make([]scenario.Variable, len(payloads))
	for i, p := range payloads {
		if p.Name == "" {
			return nil, engineerr.Wrap(engineerr.InvalidParameter, "variable %d has no name", i)
		}
		out[i] = scenario.Variable{
			Name: p.Name,
			Model: sde.Params{
				Kind:         sde.ModelKind(p.SDEModel),
				InitialValue: p.InitialValue,
				Mu:           p.Mu,
				Sigma:        p.Sigma,
				Theta:        p.Theta,
				Kappa:        p.Kappa,
				Xi:           p.Xi,
				Rho:          p.Rho,
				V0:           p.V0,
				Lambda:       p.Lambda,
				JumpMu:       p.JumpMu,
				JumpSigma:    p.JumpSigma,
			},
		}
	}
	return out, nil
}

func toCopulaSpec(p *copulaPayload, d int) *copula.Spec {
	if p == nil {
		return nil
	}
	return &copula.Spec{
		Family:   copula.Family(p.Family),
		Dim:      d,
		Rho:      p.Rho,
		Nu:       p.Nu,
		Theta:    p.Theta,
		Rotation: copula.Rotation(p.Rotation),
	}
}

func toDependence(corr [][]float64, cop *copulaPayload, d int) scenario.Dependence {
	dep := scenario.Dependence{}
	if cop != nil {
		dep.Copula = toCopulaSpec(cop, d)
		return dep
	}
	if len(corr) > 0 {
		m := make(correlation.Matrix, len(corr))
		for i := range corr {
			m[i] = append([]float64(nil), corr[i]...)
		}
		dep.Correlation = m
	}
	return dep
}

func toCovenants(payloads []covenantPayload) []scenario.Covenant {
	out := make([]scenario.Covenant, len(payloads))
	for i, p := range payloads {
		out[i] = scenario.Covenant{
			Variable:  p.Variable,
			Op:        scenario.CompOp(p.Op),
			Threshold: p.Threshold,
		}
	}
	return out
}

// decode reads and unmarshals the body, returning the raw bytes so
// deterministic requests can be coalesced by content hash.
func decode(r *http.Request, v interface{}) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return nil, err
	}
	return body, nil
}

// requestContext applies the ambient request timeout.
func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.cfg.RequestTimeoutSeconds <= 0 {
		return r.Context(), func() {}
	}
	return context.WithTimeout(r.Context(), time.Duration(s.cfg.RequestTimeoutSeconds)*time.Second)
}

// coalesce runs fn through the singleflight group when the request is
// deterministic (seeded); unseeded requests always compute fresh.
func (s *Server) coalesce(endpoint string, body []byte, seeded bool, fn func() (interface{}, error)) (interface{}, error) {
	if !seeded {
		return fn()
	}
	sum := sha256.Sum256(body)
	key := endpoint + ":" + hex.EncodeToString(sum[:])
	v, err, _ := s.simGroup.Do(key, fn)
	return v, err
}

// --- handlers ---

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status":      "ready",
		"max_workers": s.cfg.MaxWorkers,
	})
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, correlation.Templates)
}

func (s *Server) handleStressCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, stress.Catalog)
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulationRequest
	body, err := decode(r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	cfg, err := s.toScenarioConfig(req.Config)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	vars, err := toVariables(req.Variables)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	dep := toDependence(req.Correlation, req.Copula, len(vars))

	ctx, cancel := s.requestContext(r)
	defer cancel()

	res, err := s.coalesce("simulate", body, cfg.RandomSeed != nil, func() (interface{}, error) {
		return engineapi.RunSimulation(ctx, cfg, vars, dep, toCovenants(req.Covenants))
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	sim := res.(*engineapi.SimulationResult)
	if sim.Degraded {
		logger.Warn("SIM", fmt.Sprintf("run %s degraded: %v", sim.RunID, sim.DegradedReasons))
	}
	writeJSON(w, sim)
}

func (s *Server) handleSimulateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	body, err := decode(r, &req)
	if err != nil || req.Event == nil {
		writeError(w, http.StatusBadRequest, "invalid json: event is required")
		return
	}
	cfg, err := s.toScenarioConfig(req.Config)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	vars, err := toVariables(req.Variables)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	res, err := s.coalesce("event", body, cfg.RandomSeed != nil, func() (interface{}, error) {
		return engineapi.RunEventSimulation(ctx, req.Event, vars, toCopulaSpec(req.Copula, len(vars)), cfg)
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleSimulateEventCompare(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	body, err := decode(r, &req)
	if err != nil || req.Event == nil {
		writeError(w, http.StatusBadRequest, "invalid json: event is required")
		return
	}
	cfg, err := s.toScenarioConfig(req.Config)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	vars, err := toVariables(req.Variables)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	res, err := s.coalesce("compare", body, cfg.RandomSeed != nil, func() (interface{}, error) {
		return engineapi.RunEventSimulationWithComparison(ctx, req.Event, vars, cfg, req.Rho)
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleSensitivity(w http.ResponseWriter, r *http.Request) {
	var req sensitivityRequest
	if _, err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	cfg, err := s.toScenarioConfig(req.Config)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if cfg.NScenarios > s.cfg.SensitivityMaxScenarios {
		cfg.NScenarios = s.cfg.SensitivityMaxScenarios
	}
	vars, err := toVariables(req.Variables)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	dep := toDependence(req.Correlation, req.Copula, len(vars))

	ctx, cancel := s.requestContext(r)
	defer cancel()

	res, err := engineapi.RunSensitivity(ctx, cfg, vars, dep, req.Vary, req.Lo, req.Hi, req.Output, req.NSteps)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleStress(w http.ResponseWriter, r *http.Request) {
	var req stressRequest
	if _, err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	cfg, err := s.toScenarioConfig(req.Config)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	vars, err := toVariables(req.Variables)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	var sc stress.Scenario
	switch {
	case req.Custom != nil:
		sc = *req.Custom
	case req.Scenario != "":
		named, ok := stress.Catalog[req.Scenario]
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown stress scenario %q", req.Scenario))
			return
		}
		sc = named
	default:
		writeError(w, http.StatusBadRequest, "scenario or custom is required")
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	res, err := engineapi.RunStress(ctx, cfg, vars, toDependence(req.Correlation, req.Copula, len(vars)), sc)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleEstimateGBM(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prices []float64 `json:"prices"`
		Dt     float64   `json:"dt"`
	}
	if _, err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := engineapi.EstimateGBM(req.Prices, req.Dt)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleEstimateOU(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Values []float64 `json:"values"`
		Dt     float64   `json:"dt"`
	}
	if _, err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := engineapi.EstimateOU(req.Values, req.Dt)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Values []float64 `json:"values"`
		Name   string    `json:"name"`
		Kind   string    `json:"kind"`
	}
	if _, err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	writeJSON(w, engineapi.RecommendProcess(req.Values, req.Name, req.Kind))
}

func (s *Server) handleBayesBeta(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prior     engineapi.BetaPrior `json:"prior"`
		Successes int                 `json:"successes"`
		Failures  int                 `json:"failures"`
	}
	if _, err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := engineapi.UpdateBeta(req.Prior, req.Successes, req.Failures)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleBayesNormal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prior         engineapi.NormalPrior `json:"prior"`
		Observations  []float64             `json:"observations"`
		KnownVariance float64               `json:"known_variance"`
	}
	if _, err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := engineapi.UpdateNormal(req.Prior, req.Observations, req.KnownVariance)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleBayesNIG(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prior        engineapi.NIGPrior `json:"prior"`
		Observations []float64          `json:"observations"`
	}
	if _, err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := engineapi.UpdateNIG(req.Prior, req.Observations)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleBayesAB(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prior              engineapi.BetaPrior `json:"prior"`
		ControlSuccesses   int                 `json:"control_successes"`
		ControlFailures    int                 `json:"control_failures"`
		TreatmentSuccesses int                 `json:"treatment_successes"`
		TreatmentFailures  int                 `json:"treatment_failures"`
		Seed               *uint64             `json:"seed"`
	}
	if _, err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := engineapi.ABTest(req.Prior, req.ControlSuccesses, req.ControlFailures, req.TreatmentSuccesses, req.TreatmentFailures, req.Seed)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleBayesThompson(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Arms []engineapi.BetaPrior `json:"arms"`
		Seed *uint64               `json:"seed"`
	}
	if _, err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	pick, err := engineapi.Thompson(req.Arms, req.Seed)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, map[string]int{"selected_arm": pick})
}

func (s *Server) handleBayesElicit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode       float64 `json:"mode"`
		Confidence float64 `json:"confidence"`
	}
	if _, err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	prior, err := engineapi.ElicitPrior(req.Mode, req.Confidence)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, prior)
}
