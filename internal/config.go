package internal

import (
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Vault     VaultConfig       `yaml:"vault"`
	Journal   JournalConfig     `yaml:"journal"`
	Providers ProvidersConfig   `yaml:"providers"`
	NeedsInfo NeedsInfoConfig   `yaml:"needsinfo"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.Journal.Validate(); err != nil {
		return err
	}
	if err := c.Providers.Validate(); err != nil {
		return err
	}
	return c.NeedsInfo.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel string `yaml:"log_level"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.LogLevel, validation.In("", "debug", "info", "warn", "error")),
	)
}

// Level maps the configured log level to slog. Empty means info.
func (c *ApplicationConfig) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// VaultConfig holds the layout of the Markdown vault.
type VaultConfig struct {
	Path           string `yaml:"path"`
	AttachmentsDir string `yaml:"attachments_dir"`
	BackupDir      string `yaml:"backup_dir"`

	// NoteRelative makes embed links relative to the note's directory
	// instead of the vault root.
	NoteRelative bool `yaml:"note_relative"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.AttachmentsDir, validation.Required),
		validation.Field(&c.BackupDir, validation.Required),
	)
}

// JournalConfig holds the run-journal database location.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the journal configuration.
func (c *JournalConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// ProvidersConfig holds per-provider settings. API keys are usually
// injected via environment expansion, e.g. api_key: ${TMDB_API_KEY}.
type ProvidersConfig struct {
	Wikimedia   WikimediaConfig   `yaml:"wikimedia"`
	OpenLibrary OpenLibraryConfig `yaml:"openlibrary"`
	TMDB        TMDBConfig        `yaml:"tmdb"`
	OpenAI      OpenAIConfig      `yaml:"openai"`
}

// Validate validates the provider configuration.
func (c *ProvidersConfig) Validate() error {
	return c.TMDB.Validate()
}

// WikimediaConfig holds Wikimedia Commons settings.
type WikimediaConfig struct {
	BaseURL string `yaml:"base_url"`
}

// OpenLibraryConfig holds Open Library settings.
type OpenLibraryConfig struct {
	BaseURL   string `yaml:"base_url"`
	CoversURL string `yaml:"covers_url"`
}

// TMDBConfig holds TMDb settings. The key may be a v3 API key or a v4
// read-access token.
type TMDBConfig struct {
	APIKey       string `yaml:"api_key"`
	Region       string `yaml:"region"`
	BaseURL      string `yaml:"base_url"`
	ImageBaseURL string `yaml:"image_base_url"`
}

// Validate validates the TMDb configuration.
func (c *TMDBConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Region, validation.Length(2, 2)),
	)
}

// OpenAIConfig holds image-generation settings.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	Size    string `yaml:"size"`
	BaseURL string `yaml:"base_url"`
}

// NeedsInfoConfig holds the completion-tag settings for the metadata fill.
type NeedsInfoConfig struct {
	Tag string `yaml:"tag"`
}

// Validate validates the needs-info configuration.
func (c *NeedsInfoConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Tag, validation.Required),
	); err != nil {
		return err
	}
	if strings.HasPrefix(c.Tag, "#") {
		return fmt.Errorf("needsinfo: tag must not include the # prefix")
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: "info",
		},
		Vault: VaultConfig{
			Path:           "./vault",
			AttachmentsDir: "attachments",
			BackupDir:      ".othala_backups",
		},
		Journal: JournalConfig{
			Path: "./othala.db",
		},
		Providers: ProvidersConfig{
			TMDB: TMDBConfig{
				Region: "US",
			},
			OpenAI: OpenAIConfig{
				Model: "gpt-image-1",
				Size:  "1024x1024",
			},
		},
		NeedsInfo: NeedsInfoConfig{
			Tag: "needsinfo",
		},
	}
}
