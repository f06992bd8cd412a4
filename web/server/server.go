package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/Bucknalla/galileo-acquisition-sim/acquisition"
	"github.com/Bucknalla/galileo-acquisition-sim/internal/logging"
	"github.com/Bucknalla/galileo-acquisition-sim/internal/metrics"
)

type WebServer struct {
	simulator *acquisition.Simulator
	hub       *Hub
	upgrader  websocket.Upgrader
	logger    logging.Logger
}

func NewWebServer(config acquisition.Config, logger logging.Logger) (*WebServer, error) {
	simulator, err := acquisition.NewSimulator(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create simulator: %w", err)
	}

	ws := &WebServer{
		simulator: simulator,
		hub:       NewHub(logger),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for development
			},
		},
		logger: logger,
	}

	metrics.Instrument(simulator)

	simulator.AddStatusCallback(func(status acquisition.Status) {
		ws.hub.Publish(message{Type: "state", Data: status})
	})
	simulator.OnPhaseChange(func(t acquisition.PhaseTransition) {
		ws.logger.Info(context.Background(), "phase change",
			logging.RunID(t.RunID),
			logging.Phase(string(t.From), string(t.To)),
			logging.Int("progress", t.Progress))
		ws.hub.Publish(message{Type: "phase", Data: t})
	})

	return ws, nil
}

// Router builds the HTTP routes. staticDir may be empty to disable static
// file serving.
func (ws *WebServer) Router(staticDir string) http.Handler {
	r := mux.NewRouter()
	r.Use(metrics.Middleware)
	r.MethodNotAllowedHandler = http.HandlerFunc(ws.handleMethodNotAllowed)

	// API routes live on the root router so method mismatches answer 405
	r.HandleFunc("/api/start", ws.handleStart).Methods(http.MethodPost)
	r.HandleFunc("/api/stop", ws.handleStop).Methods(http.MethodPost)
	r.HandleFunc("/api/status", ws.handleGetStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/roster", ws.handleGetRoster).Methods(http.MethodGet)
	r.HandleFunc("/api/spectrum", ws.handleGetSpectrum).Methods(http.MethodGet)
	r.HandleFunc("/api/ws", ws.handleWebSocket)

	r.Handle("/metrics", metrics.Handler())
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ws.writeJSON(w, r, map[string]string{"status": "ok"})
	})

	// Handle favicon.ico requests
	r.HandleFunc("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	if staticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir)))
	}

	return r
}

func (ws *WebServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.logger.Warn(r.Context(), "websocket upgrade failed", logging.Err(err))
		return
	}

	c := ws.hub.register(conn)
	defer ws.hub.unregister(c)
	logger := ws.logger.With(logging.String("client_id", c.id))

	// Send current status immediately
	if err := c.writeJSON(message{Type: "status", Data: ws.simulator.Status()}); err != nil {
		logger.Warn(r.Context(), "error sending status", logging.Err(err))
		return
	}

	// Clients only send "start" commands; anything else is logged and ignored
	for {
		var msg map[string]interface{}
		if err := conn.ReadJSON(&msg); err != nil {
			logger.Debug(r.Context(), "websocket read ended", logging.Err(err))
			return
		}

		if msg["type"] == "start" {
			runID := ws.simulator.Start()
			logger.Info(r.Context(), "run started via websocket", logging.RunID(runID))
			continue
		}
		logger.Debug(r.Context(), "ignoring websocket message", logging.Any("message", msg))
	}
}

func (ws *WebServer) handleStart(w http.ResponseWriter, r *http.Request) {
	// An empty body starts a run with the current configuration
	var jsonConfig map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&jsonConfig); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	if len(jsonConfig) > 0 {
		config := parseConfig(ws.simulator.Config(), jsonConfig)
		if err := ws.simulator.UpdateConfig(config); err != nil {
			http.Error(w, fmt.Sprintf("Invalid configuration: %v", err), http.StatusBadRequest)
			return
		}
	}

	runID := ws.simulator.Start()
	ws.logger.Info(r.Context(), "run started", logging.RunID(runID))

	ws.writeJSON(w, r, map[string]string{"status": "started", "run_id": runID})
}

func (ws *WebServer) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := ws.simulator.Stop(); err != nil && !errors.Is(err, acquisition.ErrSimulatorNotRunning) {
		ws.logger.Error(r.Context(), "failed to stop simulator", logging.Err(err))
		http.Error(w, fmt.Sprintf("Failed to stop simulator: %v", err), http.StatusInternalServerError)
		return
	}
	ws.logger.Info(r.Context(), "run stopped", logging.RunID(ws.simulator.State().RunID))

	ws.writeJSON(w, r, map[string]string{"status": "stopped"})
}

func (ws *WebServer) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	ws.writeJSON(w, r, ws.simulator.Status())
}

func (ws *WebServer) handleGetRoster(w http.ResponseWriter, r *http.Request) {
	ws.writeJSON(w, r, acquisition.Roster)
}

func (ws *WebServer) handleGetSpectrum(w http.ResponseWriter, r *http.Request) {
	ws.writeJSON(w, r, ws.simulator.SpectrumBars())
}

func (ws *WebServer) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	ws.logger.Debug(r.Context(), "method not allowed",
		logging.String("method", r.Method), logging.String("path", r.URL.Path))
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}

func (ws *WebServer) writeJSON(w http.ResponseWriter, r *http.Request, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		ws.logger.Warn(r.Context(), "failed to write response",
			logging.String("path", r.URL.Path), logging.Err(err))
	}
}

// parseConfig overlays the JSON fields onto base
func parseConfig(base acquisition.Config, jsonConfig map[string]interface{}) acquisition.Config {
	config := base

	// Helper function to safely convert interface{} to int
	getInt := func(key string, defaultValue int) int {
		if val, ok := jsonConfig[key]; ok {
			if f, ok := val.(float64); ok {
				return int(f)
			}
		}
		return defaultValue
	}

	// Helper function to safely convert interface{} to bool
	getBool := func(key string, defaultValue bool) bool {
		if val, ok := jsonConfig[key]; ok {
			if b, ok := val.(bool); ok {
				return b
			}
		}
		return defaultValue
	}

	// Helper function to safely convert interface{} to time.Duration
	getDuration := func(key string, defaultValue time.Duration) time.Duration {
		if val, ok := jsonConfig[key]; ok {
			if s, ok := val.(string); ok {
				if d, err := time.ParseDuration(s); err == nil {
					return d
				}
			}
		}
		return defaultValue
	}

	config.TickInterval = getDuration("tick_interval", config.TickInterval)
	config.SpectrumInterval = getDuration("spectrum_interval", config.SpectrumInterval)
	config.Step = getInt("step", config.Step)
	config.RevealEnd = getInt("reveal_end", config.RevealEnd)
	config.RerollReveal = getBool("reroll", config.RerollReveal)

	return config
}
