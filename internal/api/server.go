package api

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"celo-nlte/internal/contact"
	"celo-nlte/internal/draft"
	"celo-nlte/internal/engine"
	xerrors "celo-nlte/internal/errors"
	"celo-nlte/internal/nlp"
	"celo-nlte/internal/observability/metrics"
	"celo-nlte/internal/transfer"
	"celo-nlte/pkg/logger"
)

// Server exposes the interpreter over REST.
type Server struct {
	addr      string
	engine    *engine.Engine
	contacts  contact.Store
	transfers *transfer.Service
	log       *slog.Logger
}

// NewServer constructs the API server.
func NewServer(addr string, eng *engine.Engine, contacts contact.Store, transfers *transfer.Service) *Server {
	return &Server{
		addr:      addr,
		engine:    eng,
		contacts:  contacts,
		transfers: transfers,
		log:       logger.Named("api"),
	}
}

// Start serves until the context is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, s.Routes()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !stdErrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Routes builds the full handler tree. Exposed for tests.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/parse", s.instrument("parse", s.handleParse))
	mux.HandleFunc("/api/v1/draft", s.instrument("draft", s.handleDraft))
	mux.HandleFunc("/api/v1/contacts", s.instrument("contacts", s.handleContacts))
	mux.HandleFunc("/api/v1/contacts/", s.instrument("contact_detail", s.handleContactDetail))
	mux.HandleFunc("/api/v1/transfers", s.instrument("transfers", s.handleTransfers))
	mux.HandleFunc("/api/v1/transfers/", s.instrument("transfer_detail", s.handleTransferDetail))
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

type parseRequest struct {
	Text    string `json:"text"`
	UserKey string `json:"user_key"`
}

type parseResponse struct {
	nlp.ParsedCommand
	Description       string `json:"description"`
	ConfidencePercent int    `json:"confidence_percent"`
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "only POST is supported", http.StatusMethodNotAllowed)
		return
	}
	var req parseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	parsed := s.engine.Parse(r.Context(), nlp.Command{Text: req.Text, Timestamp: time.Now().UnixMilli()}, req.UserKey)
	metrics.ObserveParse(string(parsed.Intent))

	writeJSON(w, http.StatusOK, parseResponse{
		ParsedCommand:     parsed,
		Description:       nlp.Describe(parsed),
		ConfidencePercent: nlp.ConfidencePercent(parsed),
	})
}

type draftRequest struct {
	Text        string `json:"text"`
	UserKey     string `json:"user_key"`
	FromAddress string `json:"from_address"`
}

type draftResponse struct {
	*draft.Draft
	Description string `json:"description"`
	TotalCost   string `json:"total_cost"`
}

func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "only POST is supported", http.StatusMethodNotAllowed)
		return
	}
	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	parsed := s.engine.Parse(r.Context(), nlp.Command{Text: req.Text, Timestamp: time.Now().UnixMilli()}, req.UserKey)
	metrics.ObserveParse(string(parsed.Intent))

	d, err := s.engine.DraftTransaction(r.Context(), parsed, req.FromAddress)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draftResponse{
		Draft:       d,
		Description: draft.Description(d),
		TotalCost:   draft.TotalCost(d),
	})
}

type addContactRequest struct {
	UserKey string `json:"user_key"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

func (s *Server) handleContacts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		userKey := r.URL.Query().Get("user_key")
		list, err := s.contacts.List(r.Context(), userKey)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	case http.MethodPost:
		var req addContactRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "malformed request body", http.StatusBadRequest)
			return
		}
		added, err := s.contacts.Add(r.Context(), req.UserKey, contact.Contact{Name: req.Name, Address: req.Address})
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, added)
	default:
		http.Error(w, "only GET/POST are supported", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleContactDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "only DELETE is supported", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/contacts/")
	if id == "" {
		http.Error(w, "contact id is required", http.StatusBadRequest)
		return
	}
	userKey := r.URL.Query().Get("user_key")
	if err := s.contacts.Remove(r.Context(), userKey, id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTransfers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		userKey := r.URL.Query().Get("user_key")
		list, err := s.transfers.List(r.Context(), userKey)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	case http.MethodPost:
		var req transfer.ScheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "malformed request body", http.StatusBadRequest)
			return
		}
		t, err := s.transfers.Schedule(r.Context(), req)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, t)
	default:
		http.Error(w, "only GET/POST are supported", http.StatusMethodNotAllowed)
	}
}

// transferOutcomeRequest is the status callback a worker posts once a
// dispatched transfer reaches a terminal state.
type transferOutcomeRequest struct {
	Status string `json:"status"`
	TxHash string `json:"tx_hash,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) handleTransferDetail(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/transfers/")
	if id == "" {
		http.Error(w, "transfer id is required", http.StatusBadRequest)
		return
	}
	userKey := r.URL.Query().Get("user_key")

	switch r.Method {
	case http.MethodGet:
		t, err := s.transfers.Get(r.Context(), id, userKey)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	case http.MethodPost:
		var req transferOutcomeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "malformed request body", http.StatusBadRequest)
			return
		}
		if err := s.transfers.RecordOutcome(r.Context(), id, transfer.Status(req.Status), req.TxHash, req.Error); err != nil {
			s.writeError(w, err)
			return
		}
		metrics.ObserveTransferOutcome(req.Status)
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		if err := s.transfers.Cancel(r.Context(), id, userKey); err != nil {
			s.writeError(w, err)
			return
		}
		metrics.ObserveTransferOutcome(string(transfer.StatusCancelled))
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "only GET/POST/DELETE are supported", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// instrument records request metrics per logical handler.
func (s *Server) instrument(name string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(recorder, r)
		metrics.ObserveHTTPRequest(name, r.Method, recorder.status, time.Since(start))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch xerrors.CodeOf(err) {
	case xerrors.CodeInvalidArgument, transfer.CodeTransferValidation:
		status = http.StatusBadRequest
	case xerrors.CodeNotFound, transfer.CodeTransferNotFound, contact.CodeContactNotFound:
		status = http.StatusNotFound
	case xerrors.CodeConflict, transfer.CodeTransferConflict, contact.CodeDuplicateAddress:
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", slog.Any("error", err))
	}
	writeJSON(w, status, map[string]string{
		"code":  string(xerrors.CodeOf(err)),
		"error": err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// withContext refuses new requests once the root context is gone.
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			http.Error(w, "server shutting down", http.StatusServiceUnavailable)
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
