// Package config loads and validates engram's layered TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"engram/internal/logging"
)

// Config holds all of engram's configuration, one struct per TOML table.
type Config struct {
	General   GeneralConfig   `toml:"general"`
	Tray      TrayConfig      `toml:"tray"`
	Screen    ScreenConfig    `toml:"screen"`
	Audio     AudioConfig     `toml:"audio"`
	Dictation DictationConfig `toml:"dictation"`
	Search    SearchConfig    `toml:"search"`
	Storage   StorageConfig   `toml:"storage"`
	Safety    SafetyConfig    `toml:"safety"`
	Action    ActionConfig    `toml:"action"`
	HTTP      HTTPConfig      `toml:"http"`
	Embedding EmbeddingConfig `toml:"embedding"`
}

// GeneralConfig governs data directory and logging.
type GeneralConfig struct {
	DataDir  string `toml:"data_dir"`
	LogLevel string `toml:"log_level"`
	Debug    bool   `toml:"debug"`
}

// TrayConfig is a placeholder for the (out-of-scope) tray UI collaborator;
// kept so the config file round-trips the original section even though this
// module does not render a tray.
type TrayConfig struct {
	Enabled bool `toml:"enabled"`
}

// ScreenshotStorageConfig governs retained screenshot artifacts.
type ScreenshotStorageConfig struct {
	Format   string `toml:"format"`
	Quality  int    `toml:"quality"`
	MaxCount int    `toml:"max_count"`
}

// ScreenConfig governs the (external) screen capture collaborator's cadence.
type ScreenConfig struct {
	FPS               float64                 `toml:"fps"`
	SaveScreenshots   bool                    `toml:"save_screenshots"`
	ScreenshotStorage ScreenshotStorageConfig `toml:"screenshot_storage"`
}

// PollInterval converts FPS into the capture loop's sleep interval.
func (s ScreenConfig) PollInterval() time.Duration {
	fps := s.FPS
	if fps < 1 {
		fps = 1
	}
	return time.Duration(float64(time.Second) / fps)
}

// AudioConfig governs the (external) audio capture collaborator.
type AudioConfig struct {
	Enabled           bool    `toml:"enabled"`
	ChunkDurationSecs float64 `toml:"chunk_duration_secs"`
	VADAggressiveness int     `toml:"vad_aggressiveness"`
	VADSampleRate     int     `toml:"vad_sample_rate"`
	WhisperModel      string  `toml:"whisper_model"`
}

// DictationConfig governs the (external) dictation collaborator.
type DictationConfig struct {
	Hotkey           string `toml:"hotkey"`
	MaxDurationSecs  float64 `toml:"max_duration_secs"`
	SilenceTimeoutMs int    `toml:"silence_timeout_ms"`
}

// SearchConfig tunes hybrid search and the vector index.
type SearchConfig struct {
	EmbeddingDim   int     `toml:"embedding_dim"`
	DedupThreshold float64 `toml:"dedup_threshold"`
	DefaultLimit   int     `toml:"default_limit"`
	MaxLimit       int     `toml:"max_limit"`
	SemanticWeight float64 `toml:"semantic_weight"`

	// Advisory HNSW parameters, kept in configuration and reported with it;
	// sqlite-vec's vec0 table performs a full scan rather than an HNSW
	// traversal, and no code reads these values.
	HNSWM              int `toml:"hnsw_m"`
	HNSWEfConstruction int `toml:"hnsw_ef_construction"`
	HNSWEfSearch       int `toml:"hnsw_ef_search"`
}

// QuantizationConfig maps storage tiers to vector formats.
type QuantizationConfig struct {
	HotFormat  string `toml:"hot_format"`
	WarmFormat string `toml:"warm_format"`
	ColdFormat string `toml:"cold_format"`
}

// StorageConfig governs tiering and purge.
type StorageConfig struct {
	HotDays            int                `toml:"hot_days"`
	WarmDays           int                `toml:"warm_days"`
	PurgeIntervalHours int                `toml:"purge_interval_hours"`
	Quantization       QuantizationConfig `toml:"quantization"`
}

// SafetyConfig governs the privacy/safety gate.
type SafetyConfig struct {
	PiiDetection        bool     `toml:"pii_detection"` // gates email redaction
	CreditCardRedaction bool     `toml:"credit_card_redaction"`
	SSNRedaction        bool     `toml:"ssn_redaction"`
	PhoneRedaction      bool     `toml:"phone_redaction"`
	CustomDenyPatterns  []string `toml:"custom_deny_patterns"`
}

// AutoApproveConfig lists which passive action types bypass confirmation.
// ShellCommand has no field here: it is never auto-approved regardless.
type AutoApproveConfig struct {
	Reminder     bool `toml:"reminder"`
	Clipboard    bool `toml:"clipboard"`
	Notification bool `toml:"notification"`
	URLOpen      bool `toml:"url_open"`
	QuickNote    bool `toml:"quick_note"`
}

// ActionConfig governs the action engine's confirmation and rate-limit policy.
type ActionConfig struct {
	AutoApprove               AutoApproveConfig `toml:"auto_approve"`
	ConfirmationTTLDays       int               `toml:"confirmation_ttl_days"`
	NotificationRatePerMinute int               `toml:"notification_rate_per_minute"`
	AllowedShellBinaries      []string          `toml:"allowed_shell_binaries"`
	MinIntentConfidence       float64           `toml:"min_intent_confidence"`
}

// HTTPConfig governs the loopback API server.
type HTTPConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// EmbeddingConfig governs the embedding backend. Provider is "genai" (real,
// cloud) or "local" (deterministic hash-based mock, used when no model
// files / API key are configured).
type EmbeddingConfig struct {
	Provider    string `toml:"provider"`
	GenAIAPIKey string `toml:"genai_api_key"`
	GenAIModel  string `toml:"genai_model"`
	TaskType    string `toml:"task_type"`
}

// DefaultConfig returns engram's default configuration.
func DefaultConfig() *Config {
	return &Config{
		General: GeneralConfig{
			DataDir:  "~/.engram",
			LogLevel: "info",
			Debug:    false,
		},
		Tray: TrayConfig{Enabled: true},
		Screen: ScreenConfig{
			FPS:             0.5,
			SaveScreenshots: false,
			ScreenshotStorage: ScreenshotStorageConfig{
				Format:   "webp",
				Quality:  80,
				MaxCount: 1000,
			},
		},
		Audio: AudioConfig{
			Enabled:           false,
			ChunkDurationSecs: 5,
			VADAggressiveness: 2,
			VADSampleRate:     16000,
			WhisperModel:      "base.en",
		},
		Dictation: DictationConfig{
			Hotkey:           "ctrl+shift+space",
			MaxDurationSecs:  120,
			SilenceTimeoutMs: 1500,
		},
		Search: SearchConfig{
			EmbeddingDim:       384,
			DedupThreshold:     0.95,
			DefaultLimit:       20,
			MaxLimit:           200,
			SemanticWeight:     0.6,
			HNSWM:              16,
			HNSWEfConstruction: 100,
			HNSWEfSearch:       50,
		},
		Storage: StorageConfig{
			HotDays:            7,
			WarmDays:           30,
			PurgeIntervalHours: 24,
			Quantization: QuantizationConfig{
				HotFormat:  "f32",
				WarmFormat: "int8",
				ColdFormat: "binary",
			},
		},
		Safety: SafetyConfig{
			PiiDetection:        true,
			CreditCardRedaction: true,
			SSNRedaction:        true,
			PhoneRedaction:      true,
			CustomDenyPatterns:  []string{},
		},
		Action: ActionConfig{
			AutoApprove: AutoApproveConfig{
				Reminder:     false,
				Clipboard:    true,
				Notification: true,
				URLOpen:      false,
				QuickNote:    true,
			},
			ConfirmationTTLDays:       3,
			NotificationRatePerMinute: 5,
			AllowedShellBinaries:      []string{"echo", "open", "xdg-open"},
			MinIntentConfidence:       0.6,
		},
		HTTP: HTTPConfig{
			Host:        "127.0.0.1",
			Port:        7717,
			CORSOrigins: []string{},
		},
		Embedding: EmbeddingConfig{
			Provider:   "local",
			GenAIModel: "gemini-embedding-001",
			TaskType:   "SEMANTIC_SIMILARITY",
		},
	}
}

// Load loads configuration from a TOML file, falling back to defaults if the
// file does not exist, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	logging.ConfigLogDebug("Loading config from: %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.ConfigLog("Config file not found, using defaults: %s", path)
			cfg.applyEnvOverrides()
			cfg.expandDataDir()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.expandDataDir()
	logging.ConfigLog("Config loaded: data_dir=%s embedding_provider=%s", cfg.General.DataDir, cfg.Embedding.Provider)

	return cfg, nil
}

// Save writes the configuration to a TOML file, creating parent directories
// as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open config for write: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return nil
}

// applyEnvOverrides layers environment variables over file-sourced config.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ENGRAM_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil && port > 0 {
			c.HTTP.Port = port
		}
	}
	if dir := os.Getenv("ENGRAM_DATA_DIR"); dir != "" {
		c.General.DataDir = dir
	}
	if key := os.Getenv("GENAI_API_KEY"); key != "" {
		c.Embedding.GenAIAPIKey = key
		if c.Embedding.Provider == "" || c.Embedding.Provider == "local" {
			c.Embedding.Provider = "genai"
		}
	}
}

// expandDataDir expands a leading ~/ to the user's home directory.
func (c *Config) expandDataDir() {
	if len(c.General.DataDir) >= 2 && c.General.DataDir[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err == nil {
			c.General.DataDir = filepath.Join(home, c.General.DataDir[2:])
		}
	}
}

// DBPath returns the path to the relational+FTS database file.
func (c *Config) DBPath() string {
	return filepath.Join(c.General.DataDir, "engram.db")
}

// VectorDBPath returns the path to the vector index database file.
func (c *Config) VectorDBPath() string {
	return filepath.Join(c.General.DataDir, "vectors", fmt.Sprintf("vec_%d.db", c.Search.EmbeddingDim))
}

// TokenPath returns the path to the persisted API auth token.
func (c *Config) TokenPath() string {
	return filepath.Join(c.General.DataDir, ".api_token")
}

// ConfirmationTTL returns the confirmation TTL as a duration.
func (c *Config) ConfirmationTTL() time.Duration {
	return time.Duration(c.Action.ConfirmationTTLDays) * 24 * time.Hour
}

// PurgeInterval returns the tiering purge interval as a duration.
func (c *Config) PurgeInterval() time.Duration {
	return time.Duration(c.Storage.PurgeIntervalHours) * time.Hour
}

// Validate checks invariants that must hold before the core components are
// constructed.
func (c *Config) Validate() error {
	if c.Search.EmbeddingDim <= 0 {
		return fmt.Errorf("search.embedding_dim must be positive")
	}
	if c.Search.DedupThreshold < 0 || c.Search.DedupThreshold > 1 {
		return fmt.Errorf("search.dedup_threshold must be in [0,1]")
	}
	if c.Storage.HotDays < 0 || c.Storage.WarmDays < c.Storage.HotDays {
		return fmt.Errorf("storage.warm_days must be >= storage.hot_days")
	}
	validProviders := map[string]bool{"genai": true, "local": true}
	if !validProviders[c.Embedding.Provider] {
		return fmt.Errorf("invalid embedding provider: %s (valid: genai, local)", c.Embedding.Provider)
	}
	if c.Embedding.Provider == "genai" && c.Embedding.GenAIAPIKey == "" {
		return fmt.Errorf("embedding.genai_api_key required when provider is genai")
	}
	return nil
}
