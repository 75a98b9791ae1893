// Package api exposes the voice agents over HTTP, a websocket event stream
// and MCP.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/Chative-Voice-Agents/agent/agents/orchestrator"
	contractx "github.com/tanpawarit/Chative-Voice-Agents/agent/contract"
	nodex "github.com/tanpawarit/Chative-Voice-Agents/agent/nodes/orchestrator"
	promptx "github.com/tanpawarit/Chative-Voice-Agents/agent/prompt"
	statex "github.com/tanpawarit/Chative-Voice-Agents/agent/state"
	toolx "github.com/tanpawarit/Chative-Voice-Agents/agent/tool"
	"github.com/tanpawarit/Chative-Voice-Agents/pkg/broadcast"
)

const maxBodySize = 1 << 20

// Service is the session surface of the orchestrator.
type Service interface {
	StartSession(ctx context.Context, agentType contractx.AgentType) (orchestrator.Started, error)
	Session(ctx context.Context, sessionID string) (statex.View, error)
	Tools(ctx context.Context, sessionID string) ([]toolx.Descriptor, error)
	CallTool(ctx context.Context, sessionID, tool, args string) (contractx.ToolResult, error)
	HandleMessage(ctx context.Context, sessionID string, text string) (nodex.GraphOutput, error)
	EndSession(ctx context.Context, sessionID string) (statex.View, error)
}

// Directory lists the registered agents.
type Directory interface {
	List() []contractx.Agent
	Tools(ctx context.Context, agentType contractx.AgentType) ([]toolx.Descriptor, error)
}

type AppDeps struct {
	Service Service
	Agents  Directory
	Voices  map[contractx.AgentType]promptx.VoiceProfile
	// Events feeds the websocket stream. Nil disables /events.
	Events *broadcast.Hub
	Token  string
}

type AgentInfo struct {
	Type        contractx.AgentType   `json:"type"`
	Description string                `json:"description"`
	Voice       *promptx.VoiceProfile `json:"voice,omitempty"`
}

type StartRequest struct {
	Agent string `json:"agent"`
}

type MessageRequest struct {
	Text string `json:"text"`
}

type MessageResponse struct {
	Reply       string                 `json:"reply"`
	ToolResults []contractx.ToolResult `json:"tool_results,omitempty"`
	State       any                    `json:"state,omitempty"`
}

func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/agents", handleListAgents(deps))
		r.Get("/agents/{agent}/tools", handleAgentTools(deps))

		r.Post("/sessions", handleStartSession(deps))
		r.Get("/sessions/{id}", handleGetSession(deps))
		r.Delete("/sessions/{id}", handleEndSession(deps))
		r.Get("/sessions/{id}/tools", handleSessionTools(deps))
		r.Post("/sessions/{id}/tools/{tool}", handleCallTool(deps))
		r.Post("/sessions/{id}/messages", handleMessage(deps))
		r.Get("/sessions/{id}/events", handleEvents(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleListAgents(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agents := deps.Agents.List()
		out := make([]AgentInfo, 0, len(agents))
		for _, a := range agents {
			info := AgentInfo{Type: a.Type(), Description: a.Description()}
			if v, ok := deps.Voices[a.Type()]; ok {
				info.Voice = &v
			}
			out = append(out, info)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleAgentTools(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentType, err := contractx.ParseAgentType(chi.URLParam(r, "agent"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		tools, err := deps.Agents.Tools(r.Context(), agentType)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tools)
	}
}

func handleStartSession(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StartRequest
		if err := decodeBody(w, r, &req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		agentType, err := contractx.ParseAgentType(req.Agent)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		started, err := deps.Service.StartSession(r.Context(), agentType)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, started)
	}
}

func handleGetSession(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := deps.Service.Session(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func handleEndSession(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := deps.Service.EndSession(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func handleSessionTools(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tools, err := deps.Service.Tools(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tools)
	}
}

// handleCallTool passes the request body through as the raw tool arguments.
// A tool that ran but failed still answers 200 with the error in the result.
func handleCallTool(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		defer r.Body.Close()

		raw, err := io.ReadAll(r.Body)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		args := strings.TrimSpace(string(raw))
		if args != "" && (!strings.HasPrefix(args, "{") || !sonic.Valid([]byte(args))) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "tool arguments must be a JSON object")
			return
		}

		res, err := deps.Service.CallTool(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "tool"), args)
		if err != nil && (res.Error == "" || errors.Is(err, contractx.ErrUnknownTool)) {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleMessage(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MessageRequest
		if err := decodeBody(w, r, &req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		out, err := deps.Service.HandleMessage(r.Context(), chi.URLParam(r, "id"), req.Text)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageResponse{
			Reply:       out.Reply,
			ToolResults: out.ToolResults,
			State:       out.View.State,
		})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer r.Body.Close()

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	return sonic.Unmarshal(raw, v)
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, contractx.ErrSessionNotFound),
		errors.Is(err, contractx.ErrUnknownAgent),
		errors.Is(err, contractx.ErrUnknownTool):
		httpError(w, http.StatusNotFound, "not_found_error", "%v", err)
	case errors.Is(err, orchestrator.ErrInvalidMessage),
		errors.Is(err, orchestrator.ErrInvalidSession),
		errors.Is(err, contractx.ErrValidation):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
	case errors.Is(err, orchestrator.ErrNoModel):
		httpError(w, http.StatusServiceUnavailable, "unavailable_error", "%v", err)
	case errors.Is(err, contractx.ErrModelInvoke),
		errors.Is(err, contractx.ErrSchemaViolation),
		errors.Is(err, orchestrator.ErrToolLoop):
		httpError(w, http.StatusBadGateway, "model_error", "%v", err)
	default:
		log.Error().Err(err).Msg("api: request failed")
		httpError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}
