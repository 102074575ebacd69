// Package dashboard serves the live view of a churn run. It exposes the
// latest run's evaluation at any threshold, its ROC curve and the EDA report
// as JSON, Prometheus metrics, and a WebSocket stream of training epochs.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"churnlab/internal/eda"
	"churnlab/internal/eval"
	"churnlab/internal/metrics"
	"churnlab/internal/ml"
	"churnlab/internal/storage"
)

// Message types sent over the WebSocket.
const (
	MessageHistory = "history" // sent once on connect
	MessageEpoch   = "epoch"
	MessageRun     = "run" // a new run finished
)

// Message is one WebSocket frame.
type Message struct {
	Type    string        `json:"type"`
	Epoch   *ml.EpochLog  `json:"epoch,omitempty"`
	History []ml.EpochLog `json:"history,omitempty"`
	Run     *RunSummary   `json:"run,omitempty"`
}

// RunSummary is the part of a run the dashboard shows without a threshold.
type RunSummary struct {
	ID        string       `json:"id"`
	CreatedAt time.Time    `json:"createdAt"`
	Threshold float64      `json:"threshold"`
	AUC       float64      `json:"auc"`
	Metrics   eval.Metrics `json:"metrics"`
	Epochs    int          `json:"epochs"`
}

func summarize(run *storage.RunRecord) *RunSummary {
	return &RunSummary{
		ID:        run.ID,
		CreatedAt: run.CreatedAt,
		Threshold: run.Threshold,
		AUC:       run.ROC.AUC,
		Metrics:   run.Metrics,
		Epochs:    len(run.History),
	}
}

// Evaluation cache lifetimes.
const (
	evalCacheTTL     = 10 * time.Minute
	evalCacheCleanup = 20 * time.Minute
)

// Dashboard serves the HTTP API and streams epochs to WebSocket clients.
type Dashboard struct {
	recorder         metrics.Recorder
	server           *http.Server
	router           *mux.Router
	upgrader         websocket.Upgrader
	clients          map[*websocket.Conn]bool
	clientsMu        sync.RWMutex
	broadcastChannel chan Message
	stopChannel      chan struct{}
	isRunning        bool
	mu               sync.RWMutex

	stateMu sync.RWMutex
	run     *storage.RunRecord
	report  *eda.Report
	history []ml.EpochLog
	evals   *cache.Cache
}

// NewDashboard creates a dashboard listening on port. gatherer backs /metrics;
// recorder may be nil.
func NewDashboard(recorder metrics.Recorder, gatherer prometheus.Gatherer, port int) *Dashboard {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	d := &Dashboard{
		recorder:         recorder,
		upgrader:         websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:          make(map[*websocket.Conn]bool),
		broadcastChannel: make(chan Message, 100),
		stopChannel:      make(chan struct{}),
		evals:            cache.New(evalCacheTTL, evalCacheCleanup),
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", d.handleHealth).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")
	r.HandleFunc("/api/run", d.handleRun).Methods("GET")
	r.HandleFunc("/api/evaluate", d.handleEvaluate).Methods("GET")
	r.HandleFunc("/api/roc", d.handleROC).Methods("GET")
	r.HandleFunc("/api/eda", d.handleEDA).Methods("GET")
	r.HandleFunc("/api/history", d.handleHistory).Methods("GET")
	r.HandleFunc("/ws", d.handleWebSocket).Methods("GET")
	d.router = r

	d.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return d
}

// Handler returns the router, for embedding or tests.
func (d *Dashboard) Handler() http.Handler { return d.router }

// Start starts the broadcaster and the HTTP server.
func (d *Dashboard) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.isRunning {
		return fmt.Errorf("dashboard is already running")
	}

	go d.clientBroadcaster()

	go func() {
		log.Info().Str("address", d.server.Addr).Msg("Starting dashboard server")
		if err := d.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Dashboard server failed")
		}
	}()

	d.isRunning = true
	return nil
}

// Stop closes every client and shuts the server down.
func (d *Dashboard) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.isRunning {
		return nil
	}

	close(d.stopChannel)

	d.clientsMu.Lock()
	for client := range d.clients {
		client.Close()
	}
	d.clients = make(map[*websocket.Conn]bool)
	d.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := d.server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown dashboard server")
		return err
	}

	d.isRunning = false
	log.Info().Msg("Dashboard stopped")
	return nil
}

// PublishEpoch records an epoch and queues it for every client. It never
// blocks the trainer; updates are dropped when the queue is full.
func (d *Dashboard) PublishEpoch(e ml.EpochLog) {
	d.stateMu.Lock()
	if e.Epoch == 1 {
		d.history = d.history[:0]
	}
	d.history = append(d.history, e)
	d.stateMu.Unlock()

	d.enqueue(Message{Type: MessageEpoch, Epoch: &e})
}

// SetRun makes run the one served by the API and drops cached evaluations.
func (d *Dashboard) SetRun(run storage.RunRecord) {
	d.stateMu.Lock()
	d.run = &run
	d.stateMu.Unlock()
	d.evals.Flush()

	d.enqueue(Message{Type: MessageRun, Run: summarize(&run)})
}

// SetEDA sets the report served by /api/eda.
func (d *Dashboard) SetEDA(r eda.Report) {
	d.stateMu.Lock()
	d.report = &r
	d.stateMu.Unlock()
}

func (d *Dashboard) enqueue(m Message) {
	select {
	case d.broadcastChannel <- m:
	default:
		log.Warn().Str("type", m.Type).Msg("Dashboard broadcast queue full, dropping update")
	}
}

func (d *Dashboard) clientBroadcaster() {
	for {
		select {
		case m := <-d.broadcastChannel:
			d.broadcastToClients(m)
		case <-d.stopChannel:
			return
		}
	}
}

func (d *Dashboard) broadcastToClients(m Message) {
	data, err := json.Marshal(m)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal dashboard message")
		return
	}

	d.clientsMu.Lock()
	defer d.clientsMu.Unlock()
	for client := range d.clients {
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Debug().Err(err).Msg("Dropping WebSocket client")
			client.Close()
			delete(d.clients, client)
		}
	}
}

func (d *Dashboard) currentRun() *storage.RunRecord {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	return d.run
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (d *Dashboard) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"has_run": d.currentRun() != nil,
	})
}

func (d *Dashboard) handleRun(w http.ResponseWriter, r *http.Request) {
	run := d.currentRun()
	if run == nil {
		writeError(w, http.StatusNotFound, "no run available")
		return
	}
	writeJSON(w, http.StatusOK, summarize(run))
}

// handleEvaluate re-scores the validation predictions at ?threshold=, which
// defaults to the run's own threshold.
func (d *Dashboard) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	run := d.currentRun()
	if run == nil {
		writeError(w, http.StatusNotFound, "no run available")
		return
	}

	threshold := run.Threshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		t, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "threshold must be a number")
			return
		}
		threshold = t
	}

	key := run.ID + "/" + strconv.FormatFloat(threshold, 'g', -1, 64)
	if cached, ok := d.evals.Get(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	start := time.Now()
	m, err := run.Validation.MetricsAt(threshold)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	d.recorder.EvaluationObserve(time.Since(start))
	d.evals.Set(key, m, cache.DefaultExpiration)
	writeJSON(w, http.StatusOK, m)
}

func (d *Dashboard) handleROC(w http.ResponseWriter, r *http.Request) {
	run := d.currentRun()
	if run == nil {
		writeError(w, http.StatusNotFound, "no run available")
		return
	}
	writeJSON(w, http.StatusOK, run.ROC)
}

func (d *Dashboard) handleEDA(w http.ResponseWriter, r *http.Request) {
	d.stateMu.RLock()
	report := d.report
	d.stateMu.RUnlock()
	if report == nil {
		writeError(w, http.StatusNotFound, "no EDA report available")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (d *Dashboard) snapshot() []ml.EpochLog {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	return append([]ml.EpochLog(nil), d.history...)
}

func (d *Dashboard) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, d.snapshot())
}

// handleWebSocket registers a client, sends it the history so far and keeps
// the connection until the client goes away.
func (d *Dashboard) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	// The history frame is written under the client lock so no epoch can
	// reach this client before it.
	d.clientsMu.Lock()
	data, err := json.Marshal(Message{Type: MessageHistory, History: d.snapshot()})
	if err == nil {
		err = conn.WriteMessage(websocket.TextMessage, data)
	}
	if err != nil {
		d.clientsMu.Unlock()
		return
	}
	d.clients[conn] = true
	d.clientsMu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	d.clientsMu.Lock()
	delete(d.clients, conn)
	d.clientsMu.Unlock()
}
