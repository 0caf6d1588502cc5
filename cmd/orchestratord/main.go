// Command orchestratord exposes the orchestrator pipeline over HTTP. The
// transport layer is deliberately thin: a single POST /process handler and a
// GET /health probe, wrapped in the usual correlation/tracing middleware.
// Everything about classification, dispatch, safety, explainability, and
// audit lives in the core packages; this file only wires them together.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/clinicalcore/orchestrator/core"
	"github.com/clinicalcore/orchestrator/internal/demohandlers"
	"github.com/clinicalcore/orchestrator/pkg/audit"
	"github.com/clinicalcore/orchestrator/pkg/classifier"
	"github.com/clinicalcore/orchestrator/pkg/explainability"
	"github.com/clinicalcore/orchestrator/pkg/logger"
	"github.com/clinicalcore/orchestrator/pkg/orchestration"
	"github.com/clinicalcore/orchestrator/pkg/safety"
	"github.com/clinicalcore/orchestrator/pkg/telemetry"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	flag.Parse()

	log := logger.NewDefaultLogger()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	tel, err := telemetry.NewOTELPipeline("clinical-orchestrator")
	if err != nil {
		log.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tel.Shutdown(ctx)
	}()

	orch, store, err := build(cfg, log, tel)
	if err != nil {
		log.Error("failed to build orchestrator", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/process", processHandler(orch, log))
	mux.HandleFunc("/health", healthHandler(orch))

	handler := telemetry.CorrelationMiddleware(otelhttp.NewHandler(mux, "orchestratord"))

	srv := &http.Server{Addr: *addr, Handler: handler}

	go func() {
		log.Info("orchestratord listening", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server stopped unexpectedly", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

func loadConfig(path string) (*core.Config, error) {
	if path == "" {
		return core.DefaultConfig(), nil
	}
	return core.LoadConfigFile(path)
}

// build composes the five pipeline components into an Orchestrator,
// following the §6 configuration surface: pattern/table file paths, the
// audit store DSN, deadline, and fallback handler name all come from cfg.
func build(cfg *core.Config, log core.Logger, tel core.Telemetry) (*orchestration.Orchestrator, audit.Store, error) {
	// classifier.LoadPatternsFile takes a single combined file (it holds
	// both emergency_patterns and handler_patterns sections), so either
	// configured path points at the same file; HandlerRulesPath wins if
	// both are set.
	patternFile := cfg.HandlerRulesPath
	if patternFile == "" {
		patternFile = cfg.EmergencyPatternsPath
	}
	patterns, err := classifier.LoadPatternsFile(patternFile)
	if err != nil {
		return nil, nil, err
	}
	clsf := classifier.New(log, classifier.WithPatterns(patterns), classifier.WithTelemetry(tel))

	tables, err := safety.LoadTablesFile(cfg.DisclaimersPath, cfg.ProhibitedPhrasesPath)
	if err != nil {
		return nil, nil, err
	}
	wrapper := safety.New(tables)

	explainer := explainability.New()

	store, err := audit.Open(cfg.AuditStoreDSN)
	if err != nil {
		return nil, nil, err
	}
	auditLog := audit.New(store, log)

	registry := core.NewRegistry(log)
	demohandlers.Default(registry)

	orch := orchestration.New(registry, clsf, wrapper, explainer, auditLog,
		orchestration.WithLogger(log),
		orchestration.WithTelemetry(tel),
		orchestration.WithDeadline(cfg.DefaultDeadlineDuration()),
		orchestration.WithFallbackHandlerName(cfg.FallbackHandlerName),
	)
	return orch, store, nil
}

func processHandler(orch *orchestration.Orchestrator, log core.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req core.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "malformed request body", http.StatusBadRequest)
			return
		}
		if req.Timestamp.IsZero() {
			req.Timestamp = time.Now().UTC()
		}

		resp := orch.Process(r.Context(), req)

		w.Header().Set("Content-Type", "application/json")
		if !resp.Success {
			w.WriteHeader(http.StatusUnprocessableEntity)
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Error("failed to encode response", "error", err)
		}
	}
}

func healthHandler(orch *orchestration.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := orch.HealthCheck()
		w.Header().Set("Content-Type", "application/json")
		if status.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(status)
	}
}
