// Package config loads the MME's static tuning surface from a YAML file.
package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete MME configuration tree.
type Config struct {
	Application ApplicationConfig `yaml:"application"`
	Server      ServerConfig      `yaml:"server"`
	Network     NetworkConfig     `yaml:"network"`
	Security    SecurityConfig    `yaml:"security"`
	Timers      TimersConfig      `yaml:"timers"`
	Paging      PagingConfig      `yaml:"paging"`
	APNs        []APNConfig       `yaml:"apns"`
	Storage     StorageConfig     `yaml:"storage"`
	Auth        AuthConfig        `yaml:"auth"`
	Health      HealthConfig      `yaml:"health"`
}

// ApplicationConfig holds process identity.
type ApplicationConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// ServerConfig holds the operator console HTTP listener settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
}

// NetworkConfig holds the serving-network identity used by the KDFs and TAI routing.
type NetworkConfig struct {
	PLMN          string `yaml:"plmn"` // MCC+MNC, e.g. "00101"
	MMEGroupID    int    `yaml:"mme_group_id"`
	MMECode       int    `yaml:"mme_code"`
	Include2GCap  bool   `yaml:"include_2g_cap"`
	EmergencyIMSI bool   `yaml:"allow_emergency_attach_without_imsi"`
}

// SecurityConfig is the NAS security tuning surface (spec.md §6).
type SecurityConfig struct {
	Disabled          bool     `yaml:"disabled"`            // SECNAS_DISABLED
	EnforceMAC        bool     `yaml:"enforce_mac"`         // SECNAS_MAC
	EnforceUL         bool     `yaml:"enforce_ul"`          // SECNAS_UL
	PlaintextBypass   []string `yaml:"plaintext_bypass"`    // SECNAS_PDU_NOSEC
	EEAPriority       []int    `yaml:"eea_priority"`        // SMC_EEA_PRIO
	EIAPriority       []int    `yaml:"eia_priority"`        // SMC_EIA_PRIO
	EEADefault        int      `yaml:"eea_default"`         // SMC_EEA_DEF
	EIADefault        int      `yaml:"eia_default"`         // SMC_EIA_DEF
	SMCDisabled       bool     `yaml:"smc_disabled"`        // SMC_DISABLED
	SMCBypassProc     []string `yaml:"smc_bypass_procedures"` // SMC_DISABLED_PROC
	AuthDisabled      bool     `yaml:"auth_disabled"`       // AUTH_DISABLED
	AuthCadenceTAU    int      `yaml:"auth_cadence_tau"`    // AUTH_TAU
	AuthCadenceDET    int      `yaml:"auth_cadence_det"`    // AUTH_DET
	AuthCadenceSER    int      `yaml:"auth_cadence_ser"`    // AUTH_SER
	StatusPolicyEMM   int      `yaml:"status_policy_emm"`   // STAT_CLEAR (EMM): 0 ignore/1 abort-top/2 abort-all
	StatusPolicyESM   int      `yaml:"status_policy_esm"`   // STAT_CLEAR (ESM): 1/2/3
}

// TimersConfig holds the per-procedure NAS timer values, in seconds.
type TimersConfig struct {
	T3450 int `yaml:"t3450"` // GUTI Reallocation
	T3460 int `yaml:"t3460"` // Authentication / SMC
	T3470 int `yaml:"t3470"` // Identification
	T3485 int `yaml:"t3485"` // ESM Default Bearer Activation
	T3486 int `yaml:"t3486"` // ESM Modification
	T3489 int `yaml:"t3489"` // ESM Info Request
	T3495 int `yaml:"t3495"` // ESM Deactivation
}

// PagingConfig tunes the paging retry loop (spec.md §4.5).
type PagingConfig struct {
	Retries int           `yaml:"retries"` // PAG_RETR
	Wait    time.Duration `yaml:"wait"`    // PAG_WAIT
}

// APNConfig describes one provisioned access point, keyed by Name ("*" is the wildcard entry).
type APNConfig struct {
	Name           string   `yaml:"name"`
	PDNType        string   `yaml:"pdn_type"` // ipv4, ipv6, ipv4v6
	IPv4Addr       string   `yaml:"ipv4_addr"`
	IPv6Prefix     string   `yaml:"ipv6_prefix"`
	QCI            int      `yaml:"qci"`
	ARPPriority    int      `yaml:"arp_priority"`
	ARPPreemptCap  bool     `yaml:"arp_preempt_capability"`
	ARPPreemptVuln bool     `yaml:"arp_preempt_vulnerability"`
	BitrateDL      uint64   `yaml:"bitrate_dl"`
	BitrateUL      uint64   `yaml:"bitrate_ul"`
	DNSv4          []string `yaml:"dns_v4"`
	DNSv6          []string `yaml:"dns_v6"`
	MTU            [2]int   `yaml:"mtu"` // [0]=IPv4 link MTU, [1]=non-IP link MTU
	PAPUsers       map[string]string `yaml:"pap_users"`
	PAPBypass      bool     `yaml:"pap_bypass"`
	CHAPBypass     bool     `yaml:"chap_bypass"`
}

// StorageConfig holds the audit-log persistence settings.
type StorageConfig struct {
	Postgres PostgresConfig `yaml:"postgres"`
	Events   EventConfig    `yaml:"events"`
	CDR      CDRConfig      `yaml:"cdr"`
	Logs     LogConfig      `yaml:"logs"`
}

// CDRConfig controls the rotating per-procedure CDR writer.
type CDRConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Path          string   `yaml:"path"`
	Fields        []string `yaml:"fields"`
	RetentionDays int      `yaml:"retention_days"`
}

// PostgresConfig is the lib/pq connection configuration.
type PostgresConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MaxIdle  int    `yaml:"max_idle"`
}

// EventConfig holds the storage.events section. It is parsed but no
// component reads it: there is no procedure-event trace writer.
type EventConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LogConfig is internal/logger's configuration.
type LogConfig struct {
	Path       string `yaml:"path"`
	Format     string `yaml:"format"`
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// AuthConfig is the operator-console auth service configuration.
type AuthConfig struct {
	JWTSecret      string        `yaml:"jwt_secret"`
	TokenExpiry    time.Duration `yaml:"token_expiry"`
	PasswordMinLen int           `yaml:"password_min_len"`
	AllowLocalAuth bool          `yaml:"allow_local_auth"`
}

// HealthConfig tunes the liveness/readiness watchdog.
type HealthConfig struct {
	Enabled       bool `yaml:"enabled"`
	CheckInterval int  `yaml:"check_interval"`
	Watchdog      struct {
		Enabled          bool `yaml:"enabled"`
		TimeoutSeconds   int  `yaml:"timeout_seconds"`
		RestartOnFailure bool `yaml:"restart_on_failure"`
	} `yaml:"watchdog"`
}

var (
	globalConfig *Config
	configMu     sync.RWMutex
)

// Load reads and parses the YAML configuration at configPath, and sets it as
// the process-global config.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	configMu.Lock()
	globalConfig = &cfg
	configMu.Unlock()

	return &cfg, nil
}

// Get returns the process-global configuration, or nil if Load was never called.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}

// Reload re-reads configPath and swaps the process-global configuration.
func Reload(configPath string) error {
	_, err := Load(configPath)
	return err
}

// Validate checks the invariants the rest of the core assumes hold.
func (c *Config) Validate() error {
	if c.Application.Name == "" {
		return fmt.Errorf("application name is required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if len(c.Network.PLMN) != 5 && len(c.Network.PLMN) != 6 {
		return fmt.Errorf("network.plmn must be 5 or 6 digits, got %q", c.Network.PLMN)
	}
	if len(c.APNs) == 0 {
		return fmt.Errorf("at least one APN entry is required")
	}
	if c.Paging.Retries < 0 {
		return fmt.Errorf("paging.retries must be >= 0")
	}
	return nil
}

// GetAddr returns the operator console listen address in host:port form.
func (c *Config) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// FindAPN resolves name against the configured APN table, falling back to
// the wildcard "*" entry. Mirrors the resolution order in spec.md §4.3 step 1.
func (c *Config) FindAPN(name string) (*APNConfig, bool) {
	var wildcard *APNConfig
	for i := range c.APNs {
		if c.APNs[i].Name == name {
			return &c.APNs[i], true
		}
		if c.APNs[i].Name == "*" {
			wildcard = &c.APNs[i]
		}
	}
	if wildcard != nil {
		return wildcard, true
	}
	return nil, false
}
