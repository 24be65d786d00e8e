package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"venuebot/pkg/channel"
	"venuebot/pkg/config"
	"venuebot/pkg/queue"
)

const storeCheckInterval = 30 * time.Second

// Component is one long-running part of the process: the ingress or the worker.
type Component interface {
	Name() string
	Run(ctx context.Context) error
}

// HealthCheck probes the shared queue/session store.
type HealthCheck func(ctx context.Context) error

type Service struct {
	cfg        *config.Config
	log        *slog.Logger
	storeCheck HealthCheck
	components []Component

	mu             sync.RWMutex
	startedAt      time.Time
	storeLastOKAt  time.Time
	storeLastErr   string
	componentState map[string]componentState
}

type componentState struct {
	Running bool   `json:"running"`
	Error   string `json:"error,omitempty"`
}

type statusResponse struct {
	Status        string                    `json:"status"`
	Mode          string                    `json:"mode"`
	UptimeSeconds int64                     `json:"uptime_seconds"`
	StoreLastOKAt string                    `json:"store_last_ok_at,omitempty"`
	StoreLastErr  string                    `json:"store_last_error,omitempty"`
	Components    map[string]componentState `json:"components"`
}

func NewService(cfg *config.Config, components []Component, storeCheck HealthCheck, log *slog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if len(components) == 0 {
		return nil, errors.New("at least one component is required")
	}
	if storeCheck == nil {
		return nil, errors.New("store health check is required")
	}
	if log == nil {
		log = slog.Default()
	}

	states := make(map[string]componentState, len(components))
	for _, component := range components {
		states[component.Name()] = componentState{}
	}

	return &Service{
		cfg:            cfg,
		log:            log.With("component", "gateway.service"),
		storeCheck:     storeCheck,
		components:     components,
		componentState: states,
	}, nil
}

// Run starts every component plus the status server and blocks until ctx ends
// or a component fails. It returns only after every component has stopped.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.startedAt = time.Now().UTC()
	s.mu.Unlock()

	if err := s.checkStoreHealth(runCtx); err != nil {
		// The worker keeps polling through outages; report it and carry on.
		s.log.Warn("Store unavailable at startup", "error", err)
	}

	for _, component := range s.components {
		s.setComponentState(component.Name(), componentState{Running: true})
	}

	var wg sync.WaitGroup

	serverErrors := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.runStatusServer(runCtx, serverErrors)
	}()

	ticker := time.NewTicker(storeCheckInterval)
	defer ticker.Stop()
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				_ = s.checkStoreHealth(runCtx)
			}
		}
	}()

	errCh := make(chan error, len(s.components))
	for _, component := range s.components {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := component.Run(runCtx)
			s.setComponentState(component.Name(), componentState{Running: false, Error: errorString(err)})
			if err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("run %s: %w", component.Name(), err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serverErrors:
	case runErr = <-errCh:
	}

	cancel()
	wg.Wait()
	s.log.Info("Service stopped")

	return runErr
}

// Ingress turns a channel adapter into a Component that pushes every inbound
// message to q.
func Ingress(adapter channel.Adapter, q queue.Queue) Component {
	return &ingress{adapter: adapter, queue: q}
}

type ingress struct {
	adapter channel.Adapter
	queue   queue.Queue
}

func (i *ingress) Name() string {
	return i.adapter.Name()
}

func (i *ingress) Run(ctx context.Context) error {
	return i.adapter.Run(ctx, i.queue.Push)
}

func (s *Service) statusRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// statusAddr is the status server bind address. An unset port falls back
// to the mode's default.
func (s *Service) statusAddr() string {
	host := strings.TrimSpace(s.cfg.Gateway.Host)
	if host == "" {
		host = config.DefaultGatewayHost
	}

	port := s.cfg.Gateway.Port
	if port <= 0 {
		port = config.DefaultPort(s.cfg.Worker.Enabled)
	}

	return host + ":" + strconv.Itoa(port)
}

func (s *Service) runStatusServer(ctx context.Context, errCh chan<- error) {
	addr := s.statusAddr()
	server := &http.Server{
		Addr:              addr,
		Handler:           s.statusRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log.Info("Status server started", "address", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errCh <- fmt.Errorf("start status server: %w", err)
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondStatus(w, http.StatusOK, "ok")
}

func (s *Service) handleReady(w http.ResponseWriter, _ *http.Request) {
	statusCode := http.StatusOK
	status := "ready"
	if !s.isReady() {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	s.respondStatus(w, statusCode, status)
}

func (s *Service) respondStatus(w http.ResponseWriter, statusCode int, status string) {
	payload := s.currentStatus(status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("Failed to write status response", "error", err)
	}
}

func (s *Service) mode() string {
	if s.cfg.Worker.Enabled {
		return "worker"
	}

	return "ingress"
}

func (s *Service) currentStatus(status string) statusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uptime := int64(0)
	if !s.startedAt.IsZero() {
		uptime = int64(time.Since(s.startedAt).Seconds())
	}

	components := make(map[string]componentState, len(s.componentState))
	for name, state := range s.componentState {
		components[name] = state
	}

	storeLastOK := ""
	if !s.storeLastOKAt.IsZero() {
		storeLastOK = s.storeLastOKAt.Format(time.RFC3339)
	}

	return statusResponse{
		Status:        status,
		Mode:          s.mode(),
		UptimeSeconds: uptime,
		StoreLastOKAt: storeLastOK,
		StoreLastErr:  s.storeLastErr,
		Components:    components,
	}
}

// isReady requires every component running and a healthy store.
func (s *Service) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.componentState) == 0 {
		return false
	}

	for _, state := range s.componentState {
		if !state.Running {
			return false
		}
	}

	if s.storeLastOKAt.IsZero() {
		return false
	}

	return s.storeLastErr == ""
}

func (s *Service) checkStoreHealth(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.storeCheck(checkCtx); err != nil {
		s.mu.Lock()
		s.storeLastErr = err.Error()
		s.mu.Unlock()
		return fmt.Errorf("store health check failed: %w", err)
	}

	s.mu.Lock()
	s.storeLastErr = ""
	s.storeLastOKAt = time.Now().UTC()
	s.mu.Unlock()

	return nil
}

func (s *Service) setComponentState(name string, state componentState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.componentState[name] = state
}

func errorString(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}
