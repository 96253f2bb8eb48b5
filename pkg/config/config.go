package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/goran-ethernal/PaymentIndexor/internal/common"
	"github.com/goran-ethernal/PaymentIndexor/internal/logger"
	"github.com/goran-ethernal/PaymentIndexor/internal/types"
)

const (
	// DefaultProviderURL is the Starknet Sepolia DNA endpoint.
	DefaultProviderURL = "wss://sepolia.starknet.a5a.ch"

	// DefaultStartingBlock is the block at which the invoice payment contract was deployed.
	DefaultStartingBlock uint64 = 458_645

	// DefaultContractAddress is the invoice payment contract address.
	DefaultContractAddress = "0x03a94f47433e77630f288054330fb41377ffcc49dacf56568eeba84b017aa633"

	// DefaultRemittanceEventKey is the selector of the Remittance event.
	DefaultRemittanceEventKey = "0x027a12f554d018764f982295090da45b4ff0734785be0982b62c329b9ac38033"
)

// Config represents the complete configuration for the PaymentIndexor.
type Config struct {
	// Provider contains the chain-data provider configuration
	Provider ProviderConfig `yaml:"provider" json:"provider" toml:"provider"`

	// Targets lists the (recipient, asset) pairs to watch
	Targets []TargetConfig `yaml:"targets" json:"targets" toml:"targets"`

	// DB contains database configuration for the ledger
	DB DatabaseConfig `yaml:"db" json:"db" toml:"db"`

	// Retry contains the restart policy applied when the engine faults
	Retry *RetryConfig `yaml:"retry,omitempty" json:"retry,omitempty" toml:"retry,omitempty"`

	// Maintenance contains optional database maintenance settings
	Maintenance *MaintenanceConfig `yaml:"maintenance,omitempty" json:"maintenance,omitempty" toml:"maintenance,omitempty"`

	// Logging contains logging configuration
	Logging *LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty" toml:"logging,omitempty"`

	// Metrics contains Prometheus metrics configuration
	Metrics *MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty" toml:"metrics,omitempty"`

	// API contains the read-only HTTP API configuration
	API *APIConfig `yaml:"api,omitempty" json:"api,omitempty" toml:"api,omitempty"`
}

// ProviderConfig represents the configuration of the chain-data provider stream.
type ProviderConfig struct {
	// URL is the provider WebSocket endpoint
	URL string `yaml:"url" json:"url" toml:"url"`

	// BearerToken authenticates against the provider
	BearerToken string `yaml:"bearer_token" json:"bearer_token" toml:"bearer_token"`

	// StartingBlock is where historical replay begins
	StartingBlock uint64 `yaml:"starting_block" json:"starting_block" toml:"starting_block"`

	// Finality specifies the finality level: "pending", "accepted" or "finalized"
	Finality string `yaml:"finality" json:"finality" toml:"finality"`

	// ContractAddress is the payment contract emitting remittance events
	ContractAddress string `yaml:"contract_address" json:"contract_address" toml:"contract_address"`

	// EventKey is the remittance event selector
	EventKey string `yaml:"event_key" json:"event_key" toml:"event_key"`

	// BatchSize is the maximum number of blocks per data message (0 = provider default)
	BatchSize uint64 `yaml:"batch_size" json:"batch_size" toml:"batch_size"`
}

// ApplyDefaults sets default values for optional provider configuration fields.
func (p *ProviderConfig) ApplyDefaults() {
	setString(&p.URL, DefaultProviderURL)
	setString(&p.Finality, types.FinalityAccepted.String())
	setString(&p.ContractAddress, DefaultContractAddress)
	setString(&p.EventKey, DefaultRemittanceEventKey)
	if p.StartingBlock == 0 {
		p.StartingBlock = DefaultStartingBlock
	}
}

// Validate checks if the provider configuration is valid.
func (p *ProviderConfig) Validate() error {
	if p.URL == "" {
		return fmt.Errorf("provider.url is required")
	}
	if _, err := types.ParseDataFinality(p.Finality); err != nil {
		return fmt.Errorf("provider.finality: %w", err)
	}
	if _, err := types.FeltFromHex(p.ContractAddress); err != nil {
		return fmt.Errorf("provider.contract_address: %w", err)
	}
	if _, err := types.FeltFromHex(p.EventKey); err != nil {
		return fmt.Errorf("provider.event_key: %w", err)
	}
	return nil
}

// TargetConfig is one (recipient, asset) pair to watch.
type TargetConfig struct {
	// Recipient is the payee address
	Recipient string `yaml:"recipient" json:"recipient" toml:"recipient"`

	// Asset is the token contract address
	Asset string `yaml:"asset" json:"asset" toml:"asset"`
}

// RetryConfig is the supervisor's restart policy for a faulted engine.
// Backoff grows by BackoffMultiplier from InitialBackoff up to MaxBackoff.
type RetryConfig struct {
	// MaxAttempts bounds consecutive failed runs; 0 retries forever
	MaxAttempts       int             `yaml:"max_attempts" json:"max_attempts" toml:"max_attempts"`
	InitialBackoff    common.Duration `yaml:"initial_backoff" json:"initial_backoff" toml:"initial_backoff"`
	MaxBackoff        common.Duration `yaml:"max_backoff" json:"max_backoff" toml:"max_backoff"`
	BackoffMultiplier float64         `yaml:"backoff_multiplier" json:"backoff_multiplier" toml:"backoff_multiplier"`
}

func (r *RetryConfig) ApplyDefaults() {
	setDuration(&r.InitialBackoff, time.Second)
	setDuration(&r.MaxBackoff, 30*time.Second) //nolint:mnd
	if r.BackoffMultiplier == 0 {
		r.BackoffMultiplier = 2
	}
}

func (r *RetryConfig) Validate() error {
	switch {
	case r.MaxAttempts < 0:
		return fmt.Errorf("retry.max_attempts must not be negative")
	case r.BackoffMultiplier < 1:
		return fmt.Errorf("retry.backoff_multiplier must be at least 1")
	case r.MaxBackoff.Duration < r.InitialBackoff.Duration:
		return fmt.Errorf("retry.max_backoff must not be lower than retry.initial_backoff")
	}
	return nil
}

var (
	journalModes     = []string{"WAL", "DELETE", "TRUNCATE", "PERSIST", "MEMORY"}
	synchronousModes = []string{"FULL", "NORMAL", "OFF"}
	checkpointModes  = []string{"PASSIVE", "FULL", "RESTART", "TRUNCATE"}
	logLevels        = []string{"debug", "info", "warn", "error"}
)

// DatabaseConfig configures the SQLite file holding the ledger.
type DatabaseConfig struct {
	Path string `yaml:"path" json:"path" toml:"path"`

	// JournalMode must stay WAL when the API reads the ledger while the engine writes
	JournalMode string `yaml:"journal_mode" json:"journal_mode" toml:"journal_mode"`
	Synchronous string `yaml:"synchronous" json:"synchronous" toml:"synchronous"`

	// BusyTimeout is in milliseconds
	BusyTimeout int `yaml:"busy_timeout" json:"busy_timeout" toml:"busy_timeout"`

	// CacheSize follows PRAGMA cache_size: negative is KiB, positive is pages
	CacheSize int `yaml:"cache_size" json:"cache_size" toml:"cache_size"`

	MaxOpenConnections int `yaml:"max_open_connections" json:"max_open_connections" toml:"max_open_connections"`
	MaxIdleConnections int `yaml:"max_idle_connections" json:"max_idle_connections" toml:"max_idle_connections"`
}

func (d *DatabaseConfig) ApplyDefaults() {
	setString(&d.JournalMode, "WAL")
	setString(&d.Synchronous, "NORMAL")
	setInt(&d.BusyTimeout, 5000)      //nolint:mnd
	setInt(&d.CacheSize, 10000)       //nolint:mnd
	setInt(&d.MaxOpenConnections, 25) //nolint:mnd
	setInt(&d.MaxIdleConnections, 5)  //nolint:mnd
}

func (d *DatabaseConfig) Validate() error {
	if d.Path == "" {
		return fmt.Errorf("db.path is required")
	}
	if err := oneOf("db.journal_mode", d.JournalMode, journalModes); err != nil {
		return err
	}
	return oneOf("db.synchronous", d.Synchronous, synchronousModes)
}

// MaintenanceConfig schedules WAL checkpoints and VACUUM on the ledger file.
type MaintenanceConfig struct {
	Enabled         bool            `yaml:"enabled" json:"enabled" toml:"enabled"`
	CheckInterval   common.Duration `yaml:"check_interval" json:"check_interval" toml:"check_interval"`
	VacuumOnStartup bool            `yaml:"vacuum_on_startup" json:"vacuum_on_startup" toml:"vacuum_on_startup"`

	// WALCheckpointMode is one of PASSIVE, FULL, RESTART, TRUNCATE
	WALCheckpointMode string `yaml:"wal_checkpoint_mode" json:"wal_checkpoint_mode" toml:"wal_checkpoint_mode"`
}

func (m *MaintenanceConfig) ApplyDefaults() {
	setDuration(&m.CheckInterval, 30*time.Minute) //nolint:mnd
	setString(&m.WALCheckpointMode, "TRUNCATE")
}

func (m *MaintenanceConfig) Validate() error {
	if m.WALCheckpointMode == "" {
		return nil
	}
	return oneOf("wal_checkpoint_mode", m.WALCheckpointMode, checkpointModes)
}

// LoggingConfig holds the default log level and per-component overrides.
// Components: engine, ledger, provider, supervisor, maintenance, api.
type LoggingConfig struct {
	DefaultLevel    string            `yaml:"default_level" json:"default_level" toml:"default_level"`
	Development     bool              `yaml:"development" json:"development" toml:"development"`
	ComponentLevels map[string]string `yaml:"component_levels,omitempty" json:"component_levels,omitempty" toml:"component_levels,omitempty"` //nolint:lll
}

func (l *LoggingConfig) ApplyDefaults() {
	setString(&l.DefaultLevel, "info")
	if l.ComponentLevels == nil {
		l.ComponentLevels = make(map[string]string)
	}
}

func (l *LoggingConfig) Validate() error {
	if l.DefaultLevel != "" {
		if _, ok := logger.ValidLogLevels[common.Normalize(l.DefaultLevel)]; !ok {
			return oneOf("logging.default_level", l.DefaultLevel, logLevels)
		}
	}

	for component, level := range l.ComponentLevels {
		if _, ok := common.AllComponents[common.Normalize(component)]; !ok {
			return fmt.Errorf("logging.component_levels: unknown component '%s'", component)
		}
		if _, ok := logger.ValidLogLevels[common.Normalize(level)]; !ok {
			return oneOf(fmt.Sprintf("logging.component_levels[%s]", component), level, logLevels)
		}
	}

	return nil
}

// GetComponentLevel returns the component's override, or the default level. Safe on a nil receiver.
func (l *LoggingConfig) GetComponentLevel(component string) string {
	if l != nil {
		if level, ok := l.ComponentLevels[component]; ok {
			return common.Normalize(level)
		}
	}
	return l.GetDefaultLevel()
}

func (l *LoggingConfig) GetDefaultLevel() string {
	if l == nil || l.DefaultLevel == "" {
		return "info"
	}
	return common.Normalize(l.DefaultLevel)
}

func (l *LoggingConfig) IsDevelopment() bool {
	return l != nil && l.Development
}

// MetricsConfig exposes Prometheus metrics over HTTP.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// ListenAddress is "host:port" or ":port"
	ListenAddress string `yaml:"listen_address" json:"listen_address" toml:"listen_address"`
	Path          string `yaml:"path" json:"path" toml:"path"`
}

func (m *MetricsConfig) ApplyDefaults() {
	setString(&m.ListenAddress, ":9090")
	setString(&m.Path, "/metrics")
}

func (m *MetricsConfig) Validate() error {
	if !m.Enabled {
		return nil
	}
	return validateListener(m.ListenAddress, m.Path)
}

func validateListener(address, path string) error {
	switch {
	case address == "":
		return fmt.Errorf("listen_address is required when enabled")
	case path == "":
		return fmt.Errorf("path is required when enabled")
	case !strings.HasPrefix(path, "/"):
		return fmt.Errorf("path must start with '/'")
	}
	return nil
}

func oneOf(field, value string, allowed []string) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return fmt.Errorf("%s: %q must be one of: %s", field, value, strings.Join(allowed, ", "))
}

func setString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func setInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}

func setDuration(dst *common.Duration, def time.Duration) {
	if dst.Duration == 0 {
		*dst = common.NewDuration(def)
	}
}

// APIConfig configures the read-only HTTP API.
type APIConfig struct {
	// Enabled controls whether the API server runs
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// ListenAddress is the address to bind the API server to
	ListenAddress string `yaml:"listen_address" json:"listen_address" toml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout common.Duration `yaml:"read_timeout" json:"read_timeout" toml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the response
	WriteTimeout common.Duration `yaml:"write_timeout" json:"write_timeout" toml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	IdleTimeout common.Duration `yaml:"idle_timeout" json:"idle_timeout" toml:"idle_timeout"`

	// CORS contains cross-origin settings
	CORS CORSConfig `yaml:"cors" json:"cors" toml:"cors"`
}

// CORSConfig configures cross-origin resource sharing.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled" json:"enabled" toml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins" toml:"allowed_origins"`
}

// ApplyDefaults sets default values for optional API configuration fields.
func (a *APIConfig) ApplyDefaults() {
	setString(&a.ListenAddress, ":8080")
	setDuration(&a.ReadTimeout, 15*time.Second)  //nolint:mnd
	setDuration(&a.WriteTimeout, 15*time.Second) //nolint:mnd
	setDuration(&a.IdleTimeout, time.Minute)
	if a.CORS.Enabled && len(a.CORS.AllowedOrigins) == 0 {
		a.CORS.AllowedOrigins = []string{"*"}
	}
}

// Validate checks the API listener when the API is enabled.
func (a *APIConfig) Validate() error {
	if !a.Enabled {
		return nil
	}
	if a.ListenAddress == "" {
		return fmt.Errorf("listen_address is required when enabled")
	}
	return nil
}

// ApplyDefaults sets default values for optional configuration fields.
func (c *Config) ApplyDefaults() {
	c.Provider.ApplyDefaults()
	c.DB.ApplyDefaults()

	if c.Retry != nil {
		c.Retry.ApplyDefaults()
	}
	if c.Maintenance != nil {
		c.Maintenance.ApplyDefaults()
	}
	if c.Logging != nil {
		c.Logging.ApplyDefaults()
	}
	if c.Metrics != nil {
		c.Metrics.ApplyDefaults()
	}
	if c.API != nil {
		c.API.ApplyDefaults()
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := c.Provider.Validate(); err != nil {
		return err
	}

	if len(c.Targets) == 0 {
		return fmt.Errorf("at least one target must be configured")
	}

	seen := make(map[[2]types.Felt]struct{}, len(c.Targets))
	for i, target := range c.Targets {
		recipient, err := types.FeltFromHex(target.Recipient)
		if err != nil {
			return fmt.Errorf("targets[%d].recipient: %w", i, err)
		}
		asset, err := types.FeltFromHex(target.Asset)
		if err != nil {
			return fmt.Errorf("targets[%d].asset: %w", i, err)
		}

		key := [2]types.Felt{recipient, asset}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("targets[%d]: duplicate target (%s, %s)", i, target.Recipient, target.Asset)
		}
		seen[key] = struct{}{}
	}

	if err := c.DB.Validate(); err != nil {
		return err
	}

	if c.Retry != nil {
		if err := c.Retry.Validate(); err != nil {
			return err
		}
	}

	if c.Maintenance != nil {
		if err := c.Maintenance.Validate(); err != nil {
			return fmt.Errorf("maintenance: %w", err)
		}
	}

	if c.Logging != nil {
		if err := c.Logging.Validate(); err != nil {
			return err
		}
	}

	if c.Metrics != nil {
		if err := c.Metrics.Validate(); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	if c.API != nil {
		if err := c.API.Validate(); err != nil {
			return fmt.Errorf("api: %w", err)
		}
	}

	return nil
}
