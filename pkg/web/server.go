// Package web implements the operator HTTP+WebSocket console for the MME
// core, adapted from the teacher's pkg/web/server.go. The teacher's
// session/alarm/topology/license surface (generic multi-protocol monitoring
// probe) is replaced with a UE-context/procedure-KPI/APN-configuration
// surface; alarms, topology and license endpoints are dropped since this
// core builds no alarm engine, cell topology, or licensing layer (see
// DESIGN.md).
package web

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

//go:embed templates/* static/*
var embeddedFS embed.FS

// Server is the operator console's HTTP+WebSocket server.
type Server struct {
	port          int
	server        *http.Server
	logger        zerolog.Logger
	authService   AuthService
	configManager ConfigManager
	systemMonitor SystemMonitor
	dataProvider  DataProvider
	wsClients     map[*websocket.Conn]bool
	wsClientsMux  sync.RWMutex
	upgrader      websocket.Upgrader
}

// AuthService authenticates operator console logins.
type AuthService interface {
	ValidateToken(token string) (string, string, error) // username, role, error
	Login(username, password string) (string, error)    // token, error
	Logout(token string) error
}

// ConfigManager exposes the static MME configuration (PLMN/APN table) for
// read and limited runtime update.
type ConfigManager interface {
	GetConfig() (map[string]interface{}, error)
	UpdateConfig(updates map[string]interface{}) error
	RestartService() error
	GetAPNConfig(apn string) (map[string]interface{}, error)
	UpdateAPNConfig(apn string, config map[string]interface{}) error
}

// SystemMonitor reports host resource usage.
type SystemMonitor interface {
	GetCPUUsage() float64
	GetMemoryUsage() float64
	GetDiskUsage() (float64, error)
	GetNetworkStats() (map[string]interface{}, error)
	GetProcessStats() (map[string]interface{}, error)
}

// DataProvider exposes UE context, procedure KPIs, and operator accounts.
type DataProvider interface {
	GetKPIs() (map[string]interface{}, error)
	GetUEs(limit int, offset int) ([]map[string]interface{}, error)
	GetUE(imsi string) (map[string]interface{}, error)
	GetProcedureLog(limit int) ([]map[string]interface{}, error)
	GetUsers() ([]map[string]interface{}, error)
	CreateUser(user map[string]interface{}) error
	UpdateUser(username string, updates map[string]interface{}) error
	DeleteUser(username string) error
}

// Config configures the web server.
type Config struct {
	Port          int
	AuthService   AuthService
	ConfigManager ConfigManager
	SystemMonitor SystemMonitor
	DataProvider  DataProvider
	Logger        zerolog.Logger
}

// New creates a new web server.
func New(cfg Config) *Server {
	return &Server{
		port:          cfg.Port,
		logger:        cfg.Logger,
		authService:   cfg.AuthService,
		configManager: cfg.ConfigManager,
		systemMonitor: cfg.SystemMonitor,
		dataProvider:  cfg.DataProvider,
		wsClients:     make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // allow all origins for now
			},
		},
	}
}

// Start registers routes and serves the console until the process exits.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	staticFS, err := fs.Sub(embeddedFS, "static")
	if err != nil {
		return fmt.Errorf("failed to get static FS: %w", err)
	}
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	templatesFS, err := fs.Sub(embeddedFS, "templates")
	if err != nil {
		return fmt.Errorf("failed to get templates FS: %w", err)
	}
	mux.Handle("/", http.FileServer(http.FS(templatesFS)))

	mux.HandleFunc("/api/auth/login", s.handleLogin)
	mux.HandleFunc("/api/auth/logout", s.requireAuth(s.handleLogout))
	mux.HandleFunc("/api/kpi", s.requireAuth(s.handleKPIs))
	mux.HandleFunc("/api/ues", s.requireAuth(s.handleUEs))
	mux.HandleFunc("/api/ues/", s.requireAuth(s.handleUEDetail))
	mux.HandleFunc("/api/procedure-log", s.requireAuth(s.handleProcedureLog))
	mux.HandleFunc("/api/resources", s.requireAuth(s.handleResources))
	mux.HandleFunc("/api/configuration", s.requireAuth(s.requireRole("admin", s.handleConfiguration)))
	mux.HandleFunc("/api/configuration/apns/", s.requireAuth(s.requireRole("admin", s.handleAPNConfig)))
	mux.HandleFunc("/api/system/restart", s.requireAuth(s.requireRole("admin", s.handleSystemRestart)))
	mux.HandleFunc("/api/users", s.requireAuth(s.requireRole("admin", s.handleUsers)))

	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.corsMiddleware(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info().Int("port", s.port).Msg("starting web server")

	go s.broadcastLoop()

	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server and every WebSocket connection.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("stopping web server")

	s.wsClientsMux.Lock()
	for client := range s.wsClients {
		client.Close()
	}
	s.wsClientsMux.Unlock()

	return s.server.Shutdown(ctx)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			s.sendError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			s.sendError(w, http.StatusUnauthorized, "invalid authorization header format")
			return
		}

		username, role, err := s.authService.ValidateToken(parts[1])
		if err != nil {
			s.sendError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyUsername, username)
		ctx = context.WithValue(ctx, ctxKeyRole, role)
		next(w, r.WithContext(ctx))
	}
}

type ctxKey int

const (
	ctxKeyUsername ctxKey = iota
	ctxKeyRole
)

func (s *Server) requireRole(requiredRole string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role, _ := r.Context().Value(ctxKeyRole).(string)

		if role == "admin" {
			next(w, r)
			return
		}

		if role != requiredRole {
			s.sendError(w, http.StatusForbidden, "insufficient permissions")
			return
		}

		next(w, r)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := s.authService.Login(req.Username, req.Password)
	if err != nil {
		s.sendError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	s.sendJSON(w, http.StatusOK, map[string]interface{}{
		"token":   token,
		"message": "login successful",
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	authHeader := r.Header.Get("Authorization")
	token := strings.TrimPrefix(authHeader, "Bearer ")

	if err := s.authService.Logout(token); err != nil {
		s.logger.Warn().Err(err).Msg("failed to logout")
	}

	s.sendJSON(w, http.StatusOK, map[string]string{"message": "logout successful"})
}

func (s *Server) handleKPIs(w http.ResponseWriter, r *http.Request) {
	kpis, err := s.dataProvider.GetKPIs()
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "failed to get KPIs")
		return
	}
	s.sendJSON(w, http.StatusOK, kpis)
}

func (s *Server) handleUEs(w http.ResponseWriter, r *http.Request) {
	ues, err := s.dataProvider.GetUEs(100, 0)
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "failed to get UEs")
		return
	}
	s.sendJSON(w, http.StatusOK, ues)
}

func (s *Server) handleUEDetail(w http.ResponseWriter, r *http.Request) {
	imsi := strings.TrimPrefix(r.URL.Path, "/api/ues/")

	ue, err := s.dataProvider.GetUE(imsi)
	if err != nil {
		s.sendError(w, http.StatusNotFound, "UE not found")
		return
	}
	s.sendJSON(w, http.StatusOK, ue)
}

func (s *Server) handleProcedureLog(w http.ResponseWriter, r *http.Request) {
	entries, err := s.dataProvider.GetProcedureLog(1000)
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "failed to get procedure log")
		return
	}
	s.sendJSON(w, http.StatusOK, entries)
}

func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	resources := map[string]interface{}{
		"cpu":    s.systemMonitor.GetCPUUsage(),
		"memory": s.systemMonitor.GetMemoryUsage(),
	}

	if disk, err := s.systemMonitor.GetDiskUsage(); err == nil {
		resources["disk"] = disk
	}
	if network, err := s.systemMonitor.GetNetworkStats(); err == nil {
		resources["network"] = network
	}
	if process, err := s.systemMonitor.GetProcessStats(); err == nil {
		resources["process"] = process
	}

	s.sendJSON(w, http.StatusOK, resources)
}

func (s *Server) handleConfiguration(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		config, err := s.configManager.GetConfig()
		if err != nil {
			s.sendError(w, http.StatusInternalServerError, "failed to get configuration")
			return
		}
		s.sendJSON(w, http.StatusOK, config)

	case http.MethodPost, http.MethodPut:
		var updates map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
			s.sendError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := s.configManager.UpdateConfig(updates); err != nil {
			s.sendError(w, http.StatusInternalServerError, "failed to update configuration")
			return
		}
		s.sendJSON(w, http.StatusOK, map[string]string{"message": "configuration updated successfully"})

	default:
		s.sendError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleAPNConfig(w http.ResponseWriter, r *http.Request) {
	apn := strings.TrimPrefix(r.URL.Path, "/api/configuration/apns/")

	switch r.Method {
	case http.MethodGet:
		config, err := s.configManager.GetAPNConfig(apn)
		if err != nil {
			s.sendError(w, http.StatusInternalServerError, "failed to get APN config")
			return
		}
		s.sendJSON(w, http.StatusOK, config)

	case http.MethodPost, http.MethodPut:
		var updates map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
			s.sendError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := s.configManager.UpdateAPNConfig(apn, updates); err != nil {
			s.sendError(w, http.StatusInternalServerError, "failed to update APN config")
			return
		}
		s.sendJSON(w, http.StatusOK, map[string]string{"message": "APN config updated"})

	default:
		s.sendError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleSystemRestart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.sendJSON(w, http.StatusOK, map[string]string{"message": "system restart initiated"})

	go func() {
		time.Sleep(2 * time.Second)
		if err := s.configManager.RestartService(); err != nil {
			s.logger.Error().Err(err).Msg("failed to restart service")
		}
	}()
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		users, err := s.dataProvider.GetUsers()
		if err != nil {
			s.sendError(w, http.StatusInternalServerError, "failed to get users")
			return
		}
		s.sendJSON(w, http.StatusOK, users)

	case http.MethodPost:
		var user map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
			s.sendError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := s.dataProvider.CreateUser(user); err != nil {
			s.sendError(w, http.StatusInternalServerError, "failed to create user")
			return
		}
		s.sendJSON(w, http.StatusCreated, map[string]string{"message": "user created successfully"})

	default:
		s.sendError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		s.logger.Warn().Msg("WebSocket connection without token")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if _, _, err := s.authService.ValidateToken(token); err != nil {
		s.logger.Warn().Err(err).Msg("invalid WebSocket token")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return
	}

	s.wsClientsMux.Lock()
	s.wsClients[conn] = true
	s.wsClientsMux.Unlock()

	s.logger.Info().Msg("new WebSocket client connected")

	defer func() {
		s.wsClientsMux.Lock()
		delete(s.wsClients, conn)
		s.wsClientsMux.Unlock()
		conn.Close()
		s.logger.Info().Msg("WebSocket client disconnected")
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Broadcast pushes a message to every connected WebSocket client, e.g. a
// freshly completed EMM/ESM procedure or a paging event.
func (s *Server) Broadcast(messageType string, payload interface{}) {
	message := map[string]interface{}{
		"type":      messageType,
		"payload":   payload,
		"timestamp": time.Now().Unix(),
	}

	data, err := json.Marshal(message)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to marshal WebSocket message")
		return
	}

	s.wsClientsMux.RLock()
	defer s.wsClientsMux.RUnlock()

	for client := range s.wsClients {
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			s.logger.Warn().Err(err).Msg("failed to send WebSocket message")
		}
	}
}

func (s *Server) broadcastLoop() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		resources := map[string]interface{}{
			"cpu":    s.systemMonitor.GetCPUUsage(),
			"memory": s.systemMonitor.GetMemoryUsage(),
		}
		s.Broadcast("resource_update", resources)

		if kpis, err := s.dataProvider.GetKPIs(); err == nil {
			s.Broadcast("kpi_update", kpis)
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":     "healthy",
		"go_version": runtime.Version(),
		"hostname":   getHostname(),
	}
	s.sendJSON(w, http.StatusOK, health)
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func (s *Server) sendError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, map[string]string{"error": message})
}

func getHostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}
