package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/epccore/mme-core/internal/logger"
	"github.com/epccore/mme-core/pkg/analytics"
	"github.com/epccore/mme-core/pkg/auth"
	"github.com/epccore/mme-core/pkg/config"
	"github.com/epccore/mme-core/pkg/crypto"
	"github.com/epccore/mme-core/pkg/database"
	"github.com/epccore/mme-core/pkg/health"
	"github.com/epccore/mme-core/pkg/knowledge"
	"github.com/epccore/mme-core/pkg/monitor"
	"github.com/epccore/mme-core/pkg/nas"
	"github.com/epccore/mme-core/pkg/registry"
	"github.com/epccore/mme-core/pkg/storage"
	"github.com/epccore/mme-core/pkg/ue"
	"github.com/epccore/mme-core/pkg/web"
)

const (
	appName    = "mme-core"
	appVersion = "1.0.0"
)

var (
	configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")
	version    = flag.Bool("version", false, "Print version and exit")
)

// Application holds every long-lived component this core wires together.
// Unlike the teacher's Application, it owns no protocol decoder registry,
// PCAP capture engine, correlation engine, visualization, license manager,
// AI analysis engine, flow reconstructor or subscriber correlator: this
// core speaks no Diameter/GTPv2-C/MAP/CAP/INAP of its own and ingests no
// packet capture, so none of that machinery has a caller here (see
// DESIGN.md).
type Application struct {
	config        *config.Config
	logger        *logger.Logger
	auth          *auth.Service
	db            *database.DB
	storage       *storage.Storage
	health        *health.HealthCheck
	analyticsEng  *analytics.Engine
	knowledgeBase *knowledge.KnowledgeBase
	registry      *registry.Registry
	systemMonitor *monitor.SystemMonitor
	webServer     *web.Server
}

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("%s version %s\n", appName, appVersion)
		os.Exit(0)
	}

	fmt.Printf("🚀 Starting %s v%s\n", appName, appVersion)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	app, err := NewApplication(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to start application: %v\n", err)
		os.Exit(1)
	}

	app.WaitForShutdown()
}

// NewApplication wires config, logging, auth, optional Postgres, CDR
// storage, health, KPI analytics, the cause-code knowledge base, the UE
// registry and the operator console together, in the teacher's
// one-subsystem-at-a-time style.
func NewApplication(cfg *config.Config) (*Application, error) {
	app := &Application{config: cfg}

	fmt.Println("📝 Initializing logger...")
	log, err := logger.New(logger.Config{
		Path:       cfg.Storage.Logs.Path,
		Level:      cfg.Storage.Logs.Level,
		Format:     cfg.Storage.Logs.Format,
		MaxSizeMB:  cfg.Storage.Logs.MaxSizeMB,
		MaxBackups: cfg.Storage.Logs.MaxBackups,
		MaxAgeDays: cfg.Storage.Logs.MaxAgeDays,
		Compress:   cfg.Storage.Logs.Compress,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	app.logger = log
	fmt.Println("  ✅ Logger ready")

	fmt.Println("🔑 Initializing operator auth service...")
	app.auth = auth.NewService(&auth.Config{
		JWTSecret:      cfg.Auth.JWTSecret,
		TokenExpiry:    cfg.Auth.TokenExpiry,
		PasswordMinLen: cfg.Auth.PasswordMinLen,
		AllowLocalAuth: cfg.Auth.AllowLocalAuth,
	})
	app.logger.Info("auth service initialized")
	fmt.Println("  ✅ Auth service ready")

	if cfg.Storage.Postgres.Enabled {
		fmt.Println("🗄️  Connecting to audit/CDR database...")
		db, err := database.New(&database.Config{
			Host:     cfg.Storage.Postgres.Host,
			Port:     cfg.Storage.Postgres.Port,
			Database: cfg.Storage.Postgres.Database,
			User:     cfg.Storage.Postgres.User,
			Password: cfg.Storage.Postgres.Password,
			SSLMode:  cfg.Storage.Postgres.SSLMode,
			MaxConns: cfg.Storage.Postgres.MaxConns,
			MaxIdle:  cfg.Storage.Postgres.MaxIdle,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		app.db = db
		app.logger.Info("database connected and migrated")
		fmt.Println("  ✅ Database ready")
	} else {
		fmt.Println("  ⚠️  Postgres disabled (storage.postgres.enabled: false) — audit log and operator accounts are in-memory only")
	}

	fmt.Println("💾 Initializing CDR storage...")
	stg, err := storage.NewStorage(&storage.Config{
		CDREnabled:    cfg.Storage.CDR.Enabled,
		CDRPath:       cfg.Storage.CDR.Path,
		CDRFields:     cfg.Storage.CDR.Fields,
		RetentionDays: cfg.Storage.CDR.RetentionDays,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize CDR storage: %w", err)
	}
	app.storage = stg
	app.logger.Info("CDR storage initialized")
	fmt.Println("  ✅ CDR storage ready")

	fmt.Println("❤️  Initializing health monitor...")
	app.health = health.NewHealthCheck(&health.Config{
		Enabled:          cfg.Health.Enabled,
		CheckInterval:    time.Duration(cfg.Health.CheckInterval) * time.Second,
		WatchdogEnabled:  cfg.Health.Watchdog.Enabled,
		WatchdogTimeout:  time.Duration(cfg.Health.Watchdog.TimeoutSeconds) * time.Second,
		RestartOnFailure: cfg.Health.Watchdog.RestartOnFailure,
	})
	app.logger.Info("health monitor initialized")
	fmt.Println("  ✅ Health monitor ready")

	fmt.Println("📊 Initializing procedure KPI engine...")
	app.analyticsEng = analytics.NewEngine(&analytics.Config{
		Enabled:             true,
		CalculationInterval: 30 * time.Second,
		FailureThreshold:    5.0,
		LatencyThresholdMs:  2000,
	})
	app.logger.Info("KPI engine initialized")
	fmt.Println("  ✅ KPI engine ready")

	fmt.Println("📚 Loading EMM/ESM cause-code knowledge base...")
	app.knowledgeBase = knowledge.NewKnowledgeBase()
	fmt.Printf("  ✅ Knowledge base ready (%d protocols)\n", len(app.knowledgeBase.ListAllProtocols()))

	fmt.Println("📇 Initializing UE registry...")
	// The HSS/AuC vector source is a genuine external collaborator
	// (spec.md §6, Non-goals E): StaticVectorProvider is a deterministic
	// stand-in, not a certified Milenage/TUAK AuC (see DESIGN.md).
	// RequestCodec (ESM inner-IE decode) has no concrete implementation
	// here for the same reason S1AP/NAS wire codecs don't: decoding those
	// wire formats is an explicit Non-goal, reached only through the
	// pkg/esm.RequestCodec / pkg/nas.Codec interfaces a real transport
	// plugs in at.
	app.registry = registry.New(cfg, "", registry.Collaborators{
		Vectors:       crypto.StaticVectorProvider{},
		KDF:           crypto.StdlibKDF{},
		SecurityCodec: crypto.StdlibKDF{},
		NASPolicy:     nas.PolicyFromConfig(cfg),
	})
	app.logger.Info("UE registry initialized", "apns", len(cfg.APNs))
	fmt.Println("  ✅ UE registry ready")

	app.systemMonitor = monitor.NewSystemMonitor()

	fmt.Println("🌐 Initializing operator console...")
	webCfg := web.Config{
		Port:        cfg.Server.Port,
		AuthService: authAdapter{svc: app.auth},
		ConfigManager: &configAdapter{cfg: cfg},
		SystemMonitor: app.systemMonitor,
		DataProvider: &consoleData{
			cfg: cfg,
			reg: app.registry,
			kpi: app.analyticsEng,
			kb:  app.knowledgeBase,
			db:  app.db,
		},
		Logger: app.logger.Zerolog(),
	}
	app.webServer = web.New(webCfg)
	app.logger.Info("operator console initialized", "port", cfg.Server.Port)
	fmt.Printf("  ✅ Operator console ready on port %d\n", cfg.Server.Port)

	return app, nil
}

// Start brings up the operator console and the web server's background
// broadcast loop.
func (a *Application) Start() error {
	a.logger.Info("starting mme-core", "addr", a.config.GetAddr())
	fmt.Printf("✅ %s started — operator console on http://%s\n", appName, a.config.GetAddr())

	go func() {
		if err := a.webServer.Start(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("operator console failed", err)
		}
	}()

	go a.gaugeLoop()

	return nil
}

// gaugeLoop feeds the health watchdog's active-UE gauge from the registry.
func (a *Application) gaugeLoop() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		a.health.UpdateActiveUEs(int64(a.registry.Count()))
	}
}

// Stop drains the operator console and flushes CDR storage.
func (a *Application) Stop() error {
	a.logger.Info("stopping mme-core")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.webServer.Stop(ctx); err != nil {
		a.logger.Error("operator console shutdown error", err)
	}

	if a.storage != nil {
		a.storage.Close()
	}
	if a.db != nil {
		a.db.Close()
	}

	return nil
}

// WaitForShutdown blocks until SIGINT/SIGTERM, then runs Stop.
func (a *Application) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("🛑 Shutdown signal received")
	if err := a.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error during shutdown: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("👋 Shutdown complete")
}

// authAdapter bridges *auth.Service to web.AuthService: the web package
// talks in (username, role string), the auth package in typed *Session.
type authAdapter struct {
	svc *auth.Service
}

func (a authAdapter) ValidateToken(token string) (string, string, error) {
	sess, err := a.svc.ValidateToken(token)
	if err != nil {
		return "", "", err
	}
	return sess.Username, string(sess.Role), nil
}

func (a authAdapter) Login(username, password string) (string, error) {
	sess, err := a.svc.Authenticate(username, password, "")
	if err != nil {
		return "", err
	}
	return sess.Token, nil
}

func (a authAdapter) Logout(token string) error {
	a.svc.Logout(token)
	return nil
}

// configAdapter bridges *config.Config to web.ConfigManager. Updates are
// applied to the in-memory config only; nothing is written back to the
// YAML file.
type configAdapter struct {
	cfg *config.Config
}

func (c *configAdapter) GetConfig() (map[string]interface{}, error) {
	return map[string]interface{}{
		"plmn":           c.cfg.Network.PLMN,
		"mme_group_id":   c.cfg.Network.MMEGroupID,
		"mme_code":       c.cfg.Network.MMECode,
		"security":       c.cfg.Security,
		"timers":         c.cfg.Timers,
		"paging_retries": c.cfg.Paging.Retries,
	}, nil
}

func (c *configAdapter) UpdateConfig(updates map[string]interface{}) error {
	if v, ok := updates["paging_retries"].(float64); ok {
		c.cfg.Paging.Retries = int(v)
	}
	return nil
}

func (c *configAdapter) RestartService() error {
	return fmt.Errorf("restart not supported: run under a process supervisor")
}

func (c *configAdapter) GetAPNConfig(apn string) (map[string]interface{}, error) {
	entry, ok := c.cfg.FindAPN(apn)
	if !ok {
		return nil, fmt.Errorf("apn %q not found", apn)
	}
	return map[string]interface{}{
		"name":        entry.Name,
		"pdn_type":    entry.PDNType,
		"ipv4_addr":   entry.IPv4Addr,
		"ipv6_prefix": entry.IPv6Prefix,
		"qci":         entry.QCI,
		"bitrate_dl":  entry.BitrateDL,
		"bitrate_ul":  entry.BitrateUL,
	}, nil
}

func (c *configAdapter) UpdateAPNConfig(apn string, updates map[string]interface{}) error {
	entry, ok := c.cfg.FindAPN(apn)
	if !ok {
		return fmt.Errorf("apn %q not found", apn)
	}
	if v, ok := updates["qci"].(float64); ok {
		entry.QCI = int(v)
	}
	return nil
}

// consoleData bridges the UE registry, the KPI engine, the knowledge base
// and (when enabled) the Postgres audit log to web.DataProvider.
type consoleData struct {
	cfg *config.Config
	reg *registry.Registry
	kpi *analytics.Engine
	kb  *knowledge.KnowledgeBase
	db  *database.DB
}

func (c *consoleData) GetKPIs() (map[string]interface{}, error) {
	report := c.kpi.Calculate()
	procs := make(map[string]interface{}, len(report.Procedures))
	for name, m := range report.Procedures {
		procs[name] = map[string]interface{}{
			"total":        m.TotalCount,
			"success":      m.SuccessCount,
			"failure":      m.FailureCount,
			"timeout":      m.TimeoutCount,
			"success_rate": m.SuccessRate,
			"failure_rate": m.FailureRate,
			"latency_avg":  m.LatencyAvg,
			"latency_p95":  m.LatencyP95,
			"latency_p99":  m.LatencyP99,
		}
	}
	return map[string]interface{}{
		"timestamp":    report.Timestamp,
		"active_ues":   c.reg.Count(),
		"procedures":   procs,
		"alert_count":  len(report.Alerts),
	}, nil
}

func (c *consoleData) GetUEs(limit, offset int) ([]map[string]interface{}, error) {
	all := c.reg.All()
	out := make([]map[string]interface{}, 0, len(all))
	for i, h := range all {
		if i < offset {
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, ueSummary(h))
	}
	return out, nil
}

func (c *consoleData) GetUE(imsi string) (map[string]interface{}, error) {
	h, ok := c.reg.LookupIMSI(imsi)
	if !ok {
		return nil, fmt.Errorf("no UE context for imsi %q", imsi)
	}
	return ueSummary(h), nil
}

func ueSummary(h *ue.UEHandler) map[string]interface{} {
	asSec := h.SecurityContextForAS()
	return map[string]interface{}{
		"imsi":            h.IMSI,
		"mme_ue_s1ap_id":  h.S1.MMEUES1APID,
		"enb_ue_s1ap_id":  h.S1.ENBUES1APID,
		"connected":       h.S1.Connected(),
		"eea":             asSec.EEA,
		"eia":             asSec.EIA,
	}
}

func (c *consoleData) GetProcedureLog(limit int) ([]map[string]interface{}, error) {
	if c.db == nil {
		return nil, nil
	}
	conn := c.db.GetConnection()
	rows, err := conn.Query(
		`SELECT imsi, procedure, result, cause_code, duration_ms, start_time
		 FROM ue_procedure_log ORDER BY start_time DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query procedure log: %w", err)
	}
	defer rows.Close()

	var out []map[string]interface{}
	for rows.Next() {
		var imsi, procedure, result string
		var cause sql.NullInt64
		var durationMs sql.NullInt64
		var startTime time.Time
		if err := rows.Scan(&imsi, &procedure, &result, &cause, &durationMs, &startTime); err != nil {
			return nil, fmt.Errorf("scan procedure log row: %w", err)
		}
		entry := map[string]interface{}{
			"imsi":        imsi,
			"procedure":   procedure,
			"result":      result,
			"duration_ms": durationMs.Int64,
			"start_time":  startTime,
		}
		if cause.Valid {
			entry["cause_code"] = cause.Int64
			if ref, err := c.kb.GetErrorCode("ESM", int(cause.Int64)); err == nil {
				entry["cause_description"] = ref.Description
			} else if ref, err := c.kb.GetErrorCode("EMM", int(cause.Int64)); err == nil {
				entry["cause_description"] = ref.Description
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

func (c *consoleData) GetUsers() ([]map[string]interface{}, error) {
	if c.db == nil {
		return nil, nil
	}
	conn := c.db.GetConnection()
	rows, err := conn.Query(`SELECT username, full_name, email, role, enabled FROM user_accounts ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("query user accounts: %w", err)
	}
	defer rows.Close()

	var out []map[string]interface{}
	for rows.Next() {
		var username, fullName, email, role string
		var enabled bool
		if err := rows.Scan(&username, &fullName, &email, &role, &enabled); err != nil {
			return nil, fmt.Errorf("scan user account row: %w", err)
		}
		out = append(out, map[string]interface{}{
			"username":  username,
			"full_name": fullName,
			"email":     email,
			"role":      role,
			"enabled":   enabled,
		})
	}
	return out, nil
}

func (c *consoleData) CreateUser(user map[string]interface{}) error {
	if c.db == nil {
		return fmt.Errorf("operator account storage requires storage.postgres.enabled: true")
	}
	conn := c.db.GetConnection()
	_, err := conn.Exec(
		`INSERT INTO user_accounts (username, password_hash, full_name, email, role, enabled)
		 VALUES ($1, $2, $3, $4, $5, true)`,
		user["username"], user["password_hash"], user["full_name"], user["email"], user["role"])
	return err
}

func (c *consoleData) UpdateUser(username string, updates map[string]interface{}) error {
	if c.db == nil {
		return fmt.Errorf("operator account storage requires storage.postgres.enabled: true")
	}
	conn := c.db.GetConnection()
	if role, ok := updates["role"].(string); ok {
		if _, err := conn.Exec(`UPDATE user_accounts SET role = $1 WHERE username = $2`, role, username); err != nil {
			return err
		}
	}
	if enabled, ok := updates["enabled"].(bool); ok {
		if _, err := conn.Exec(`UPDATE user_accounts SET enabled = $1 WHERE username = $2`, enabled, username); err != nil {
			return err
		}
	}
	return nil
}

func (c *consoleData) DeleteUser(username string) error {
	if c.db == nil {
		return fmt.Errorf("operator account storage requires storage.postgres.enabled: true")
	}
	conn := c.db.GetConnection()
	_, err := conn.Exec(`DELETE FROM user_accounts WHERE username = $1`, username)
	return err
}
