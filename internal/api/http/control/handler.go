package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/oshokin/power-sentinel/internal/control"
	"github.com/oshokin/power-sentinel/internal/domain/sentinel"
	"github.com/oshokin/power-sentinel/internal/logger"
	"github.com/oshokin/power-sentinel/internal/metrics"
)

// Headers carrying the caller identity.
const (
	HostnameHeader = "X-Sentinel-Hostname"
	UsernameHeader = "X-Sentinel-Username"
)

const (
	// maxBodyBytes bounds a function call body.
	maxBodyBytes = 4 << 10
	// readHeaderTimeout bounds slow clients.
	readHeaderTimeout = 5 * time.Second
	// shutdownTimeout bounds graceful shutdown.
	shutdownTimeout = 5 * time.Second
)

// Surface abstracts the command surface the transport layer depends on.
type Surface interface {
	Call(ctx context.Context, name, argument string, actor *sentinel.Actor) (int64, error)
	Variable(name string) (any, error)
}

// VariableResponse is the body of a variable read.
type VariableResponse struct {
	Name   string `json:"name"`
	Result any    `json:"result"`
}

// FunctionRequest is the JSON body of a function call.
type FunctionRequest struct {
	Arg string `json:"arg"`
}

// FunctionResponse is the body of a function call.
type FunctionResponse struct {
	Name        string `json:"name"`
	ReturnValue int64  `json:"return_value"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handler serves the control API.
type Handler struct {
	// surface executes commands and exposes variables.
	surface Surface
}

// NewHandler returns a handler over surface.
func NewHandler(surface Surface) *Handler {
	return &Handler{
		surface: surface,
	}
}

// NewRouter returns a router with the control API, metrics and health routes.
func NewRouter(surface Surface) *mux.Router {
	router := mux.NewRouter()

	NewHandler(surface).RegisterRoutes(router)

	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	return router
}

// RegisterRoutes registers the control API routes with the router.
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/v1/variables", h.ListVariables).Methods(http.MethodGet)
	router.HandleFunc("/v1/variables/{name}", h.GetVariable).Methods(http.MethodGet)
	router.HandleFunc("/v1/functions/{name}", h.CallFunction).Methods(http.MethodPost)
}

// ListVariables returns the exposed variable names.
func (*Handler) ListVariables(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, control.VariableNames())
}

// GetVariable returns one variable.
func (h *Handler) GetVariable(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	value, err := h.surface.Variable(name)
	if err != nil {
		respondError(w, statusOf(err), err.Error())

		return
	}

	respondJSON(w, http.StatusOK, VariableResponse{Name: name, Result: value})
}

// CallFunction runs one command. The argument comes from the "arg" form
// field or, for JSON bodies, from the "arg" property.
func (h *Handler) CallFunction(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	argument, err := readArgument(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())

		return
	}

	code, err := h.surface.Call(r.Context(), name, argument, actorFromRequest(r))
	if err != nil {
		respondError(w, statusOf(err), err.Error())

		return
	}

	respondJSON(w, http.StatusOK, FunctionResponse{Name: name, ReturnValue: code})
}

// Serve listens on address and serves handler until ctx is canceled.
func Serve(ctx context.Context, address string, handler http.Handler) error {
	ctx = logger.WithName(ctx, "http-control")

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", address, err)
	}

	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	logger.InfoKV(ctx, "Control HTTP server listening", "listen_address", lis.Addr().String())

	// Closed after Shutdown so we only return once the server is down.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.ErrorKV(ctx, "HTTP server shutdown failed", "error", err)
		}

		close(done)
	}()

	if err := server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve HTTP: %w", err)
	}

	<-done
	logger.Info(ctx, "HTTP server stopped")

	return nil
}

func readArgument(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req FunctionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", fmt.Errorf("decode request: %w", err)
		}

		return req.Arg, nil
	}

	if err := r.ParseForm(); err != nil {
		return "", fmt.Errorf("parse form: %w", err)
	}

	return r.FormValue("arg"), nil
}

func actorFromRequest(r *http.Request) *sentinel.Actor {
	hostname := r.Header.Get(HostnameHeader)
	username := r.Header.Get(UsernameHeader)

	if hostname == "" && username == "" {
		return nil
	}

	return &sentinel.Actor{
		Hostname: hostname,
		Username: username,
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, control.ErrUnknownCommand), errors.Is(err, control.ErrUnknownVariable):
		return http.StatusNotFound
	case errors.Is(err, control.ErrThrottled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, ErrorResponse{Error: message})
}
