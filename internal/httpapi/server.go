package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ent0n29/duet/internal/config"
	"github.com/ent0n29/duet/internal/conversation"
	"github.com/ent0n29/duet/internal/observability"
	"github.com/ent0n29/duet/internal/persona"
	"github.com/ent0n29/duet/internal/speech"
	"github.com/ent0n29/duet/internal/transcript"
)

// Conversation is the session surface the API drives.
type Conversation interface {
	Start(ctx context.Context) (string, error)
	Stop() bool
	Status() conversation.Status
	Transcript() []transcript.Turn
	Personas() persona.Pair
	UpdatePersonas(p persona.Pair) error
	Replay(ctx context.Context, ordinal int) (transcript.Turn, speech.Artifact, error)
	Subscribe(buffer int) (<-chan conversation.Event, func())
}

type Server struct {
	cfg      config.Config
	conv     Conversation
	metrics  *observability.Metrics
	logger   *zap.Logger
	upgrader websocket.Upgrader
	replay   *rate.Limiter
}

func New(cfg config.Config, conv Conversation, metrics *observability.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	perMinute := cfg.ReplayRatePerMinute
	if perMinute <= 0 {
		perMinute = 30
	}
	return &Server{
		cfg:     cfg,
		conv:    conv,
		metrics: metrics,
		logger:  logger,
		replay:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only same-origin browsers may drive the run unless configured otherwise.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", s.metrics.Handler())
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	r.Get("/v1/personas", s.handleGetPersonas)
	r.Put("/v1/personas", s.handlePutPersonas)

	r.Post("/v1/conversation/start", s.handleStart)
	r.Post("/v1/conversation/stop", s.handleStop)
	r.Get("/v1/conversation", s.handleGetConversation)
	r.Get("/v1/conversation/turns/{ordinal}/audio", s.handleReplay)
	r.Get("/v1/conversation/ws", s.handleWS)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"textgen_provider": s.cfg.TextGenProvider,
		"voice_provider":   s.cfg.VoiceProvider,
	})
}

// handleReady reports whether a run may be started.
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	st := s.conv.Status()
	if !st.Configured {
		respondJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_configured",
			"detail": conversation.ErrNotConfigured.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"active": st.Active,
	})
}

func (s *Server) handlePerfLatency(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.metrics.LatencySnapshot())
}

func (s *Server) handleGetPersonas(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.conv.Personas())
}

func (s *Server) handlePutPersonas(w http.ResponseWriter, r *http.Request) {
	var pair persona.Pair
	if err := decodeJSON(r, &pair); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := s.conv.UpdatePersonas(pair); err != nil {
		s.respondConversationError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.conv.Personas())
}

type startResponse struct {
	RunID string `json:"run_id"`
	State string `json:"state"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	runID, err := s.conv.Start(r.Context())
	if err != nil {
		s.respondConversationError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, startResponse{RunID: runID, State: s.conv.Status().State.String()})
}

func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request) {
	stopping := s.conv.Stop()
	respondJSON(w, http.StatusOK, map[string]any{
		"stopping": stopping,
		"status":   s.conv.Status(),
	})
}

type conversationResponse struct {
	Status   conversation.Status `json:"status"`
	Personas persona.Pair        `json:"personas"`
	Turns    []transcript.Turn   `json:"turns"`
}

func (s *Server) handleGetConversation(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, conversationResponse{
		Status:   s.conv.Status(),
		Personas: s.conv.Personas(),
		Turns:    s.conv.Transcript(),
	})
}

func (s *Server) respondConversationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, conversation.ErrRunActive):
		respondError(w, http.StatusConflict, "run_active", err.Error())
	case errors.Is(err, conversation.ErrPersonaLocked):
		respondError(w, http.StatusConflict, "persona_locked", err.Error())
	case errors.Is(err, conversation.ErrNotConfigured):
		respondError(w, http.StatusPreconditionFailed, "not_configured", err.Error())
	case errors.Is(err, persona.ErrInvalidPersona):
		respondError(w, http.StatusBadRequest, "invalid_persona", err.Error())
	case errors.Is(err, conversation.ErrTurnNotFound):
		respondError(w, http.StatusNotFound, "turn_not_found", err.Error())
	case errors.Is(err, conversation.ErrNoSynthesizer):
		respondError(w, http.StatusNotImplemented, "speech_unavailable", err.Error())
	default:
		s.logger.Error("request failed", zap.Error(err))
		respondError(w, http.StatusBadGateway, "provider_error", err.Error())
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
