package httpserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	electionservice "agora/contexts/governance/election-service"
	domainerrors "agora/contexts/governance/election-service/domain/errors"
	httptransport "agora/contexts/governance/election-service/transport/http"

	_ "agora/internal/platform/httpserver/docs"
	json "github.com/goccy/go-json"
	httpSwagger "github.com/swaggo/http-swagger"
)

const (
	moduleName      = "internal/platform/httpserver"
	shutdownTimeout = 10 * time.Second
	maxBodyBytes    = 1 << 20
)

type Server struct {
	mux       *http.ServeMux
	logger    *slog.Logger
	addr      string
	elections electionservice.Module
}

func New(elections electionservice.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:       http.NewServeMux(),
		logger:    logger,
		addr:      addr,
		elections: elections,
	}
	s.registerRoutes()
	return s
}

// Handler exposes the routed mux, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", moduleName,
		"layer", "platform",
		"addr", s.addr,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("http server stopping",
		"event", "http_server_stopping",
		"module", moduleName,
		"layer", "platform",
	)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("GET /api/elections", s.handleListElections)
	s.mux.HandleFunc("POST /api/elections", s.handleCreateElection)
	s.mux.HandleFunc("GET /api/elections/{election_id}", s.handleGetElection)
	s.mux.HandleFunc("PUT /api/elections/{election_id}", s.handleUpdateElection)
	s.mux.HandleFunc("POST /api/elections/{election_id}/validate", s.handleTransitionElection("validate"))
	s.mux.HandleFunc("POST /api/elections/{election_id}/close", s.handleTransitionElection("close"))
	s.mux.HandleFunc("POST /api/elections/{election_id}/cancel", s.handleTransitionElection("cancel"))
	s.mux.HandleFunc("POST /api/elections/{election_id}/positions", s.handleAddPosition)
	s.mux.HandleFunc("DELETE /api/elections/{election_id}/positions/{position_id}", s.handleDeletePosition)

	s.mux.HandleFunc("GET /api/elections/{election_id}/candidatures", s.handleListElectionCandidacies)
	s.mux.HandleFunc("POST /api/elections/{election_id}/candidatures", s.handleSubmitCandidacy)
	s.mux.HandleFunc("PUT /api/candidatures/{candidacy_id}", s.handleUpdateCandidacy)
	s.mux.HandleFunc("POST /api/candidatures/{candidacy_id}/validate", s.handleDecideCandidacy(true))
	s.mux.HandleFunc("POST /api/candidatures/{candidacy_id}/reject", s.handleDecideCandidacy(false))
	s.mux.HandleFunc("GET /api/me/candidatures", s.handleListMyCandidacies)

	s.mux.HandleFunc("POST /api/elections/{election_id}/votes", s.handleCastVote)
	s.mux.HandleFunc("GET /api/me/elections/{election_id}/votes", s.handleListMyVotes)
	s.mux.HandleFunc("GET /api/elections/{election_id}/results", s.handleResults)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListElections godoc
// @Summary List elections
// @Tags elections
// @Produce json
// @Param status query string false "Election status filter"
// @Success 200 {object} httptransport.Result
// @Router /api/elections [get]
func (s *Server) handleListElections(w http.ResponseWriter, r *http.Request) {
	items, err := s.elections.Handler.ListElectionsHandler(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, items)
}

func (s *Server) handleCreateElection(w http.ResponseWriter, r *http.Request) {
	var req httptransport.ElectionRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	resp, err := s.elections.Handler.CreateElectionHandler(r.Context(), userID(r), req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeResult(w, http.StatusCreated, resp)
}

func (s *Server) handleGetElection(w http.ResponseWriter, r *http.Request) {
	resp, err := s.elections.Handler.GetElectionHandler(r.Context(), r.PathValue("election_id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateElection(w http.ResponseWriter, r *http.Request) {
	var req httptransport.ElectionRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	resp, err := s.elections.Handler.UpdateElectionHandler(r.Context(), userID(r), r.PathValue("election_id"), req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, resp)
}

func (s *Server) handleTransitionElection(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := s.elections.Handler.TransitionElectionHandler(r.Context(), userID(r), r.PathValue("election_id"), action)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		writeResult(w, http.StatusOK, resp)
	}
}

func (s *Server) handleAddPosition(w http.ResponseWriter, r *http.Request) {
	var req httptransport.PositionRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	resp, err := s.elections.Handler.AddPositionHandler(r.Context(), userID(r), r.PathValue("election_id"), req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeResult(w, http.StatusCreated, resp)
}

func (s *Server) handleDeletePosition(w http.ResponseWriter, r *http.Request) {
	err := s.elections.Handler.DeletePositionHandler(
		r.Context(),
		userID(r),
		r.PathValue("election_id"),
		r.PathValue("position_id"),
	)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, nil)
}

func (s *Server) handleListElectionCandidacies(w http.ResponseWriter, r *http.Request) {
	items, err := s.elections.Handler.ListElectionCandidaciesHandler(
		r.Context(),
		r.PathValue("election_id"),
		r.URL.Query().Get("status"),
	)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, items)
}

// handleSubmitCandidacy godoc
// @Summary Submit a candidacy for one or several positions
// @Tags candidacies
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Authenticated user"
// @Param election_id path string true "Election ID"
// @Param request body httptransport.SubmitCandidacyRequest true "Candidacy"
// @Success 201 {object} httptransport.Result
// @Failure 409 {object} httptransport.Result
// @Router /api/elections/{election_id}/candidatures [post]
func (s *Server) handleSubmitCandidacy(w http.ResponseWriter, r *http.Request) {
	var req httptransport.SubmitCandidacyRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	items, err := s.elections.Handler.SubmitCandidacyHandler(r.Context(), userID(r), r.PathValue("election_id"), req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeResult(w, http.StatusCreated, items)
}

func (s *Server) handleUpdateCandidacy(w http.ResponseWriter, r *http.Request) {
	var req httptransport.UpdateCandidacyRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	items, err := s.elections.Handler.UpdateCandidacyHandler(r.Context(), userID(r), r.PathValue("candidacy_id"), req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, items)
}

func (s *Server) handleDecideCandidacy(approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req httptransport.DecideCandidacyRequest
		if r.ContentLength != 0 && !s.decodeBody(w, r, &req) {
			return
		}
		resp, err := s.elections.Handler.DecideCandidacyHandler(
			r.Context(),
			userID(r),
			r.PathValue("candidacy_id"),
			approve,
			req,
		)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		writeResult(w, http.StatusOK, resp)
	}
}

func (s *Server) handleListMyCandidacies(w http.ResponseWriter, r *http.Request) {
	items, err := s.elections.Handler.ListMyCandidaciesHandler(r.Context(), userID(r), r.URL.Query().Get("election_id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, items)
}

// handleCastVote godoc
// @Summary Cast a ballot for one position
// @Tags votes
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Authenticated user"
// @Param election_id path string true "Election ID"
// @Param request body httptransport.CastVoteRequest true "Ballot, candidacy_id omitted for a blank vote"
// @Success 201 {object} httptransport.Result
// @Failure 409 {object} httptransport.Result
// @Router /api/elections/{election_id}/votes [post]
func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	var req httptransport.CastVoteRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	resp, err := s.elections.Handler.CastVoteHandler(r.Context(), userID(r), r.PathValue("election_id"), req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeResult(w, http.StatusCreated, resp)
}

func (s *Server) handleListMyVotes(w http.ResponseWriter, r *http.Request) {
	items, err := s.elections.Handler.ListMyVotesHandler(r.Context(), userID(r), r.PathValue("election_id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, items)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	resp, err := s.elections.Handler.ResultsHandler(r.Context(), r.PathValue("election_id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, resp)
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := decoder.Decode(target); err != nil {
		s.logger.Debug("request body rejected",
			"event", "http_request_body_invalid",
			"module", moduleName,
			"layer", "platform",
			"path", r.URL.Path,
			"error", err.Error(),
		)
		s.writeDomainError(w, r, domainerrors.ErrInvalidInput)
		return false
	}
	return true
}

func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := httptransport.ErrorStatus(err)
	result := httptransport.Result{Success: false, Error: message}
	if batch, ok := domainerrors.AsBatch(err); ok {
		result.FailedPositions = batch.FailedPositions()
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"event", "http_request_failed",
			"module", moduleName,
			"layer", "platform",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err.Error(),
		)
	}
	writeJSON(w, status, result)
}

func writeResult(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, httptransport.Result{Success: true, Data: data})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-Id"))
}
