// Package config provides configuration loading, validation, and management
// for the bot. Values come from a YAML file, BOT_* environment variables and
// built-in defaults, in that order of precedence (environment wins).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-telegram/bot/models"
	"github.com/spf13/viper"
)

// Scorer backends accepted by matching.scorer.
const (
	ScorerTFIDF  = "tfidf"
	ScorerGemini = "gemini"
)

// ErrValidation wraps every configuration validation failure.
var ErrValidation = errors.New("config validation error")

// Config is the root configuration of the application.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Matching  MatchingConfig  `mapstructure:"matching"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// LoggerConfig controls the slog handler.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// DatabaseConfig points at the SQLite file.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// TelegramConfig holds bot credentials. BotInfo is filled at runtime from getMe.
type TelegramConfig struct {
	Token       string       `mapstructure:"token"         validate:"required"`
	AdminUserID int64        `mapstructure:"admin_user_id" validate:"gte=0"`
	BotInfo     *models.User `mapstructure:"-"`
}

// MatchingConfig tunes the weekly pairing run.
type MatchingConfig struct {
	// FallbackUserID receives the leftover user of an odd-sized run.
	FallbackUserID int64  `mapstructure:"fallback_user_id" validate:"gte=0"`
	Scorer         string `mapstructure:"scorer"           validate:"oneof=tfidf gemini"`
}

// GeminiConfig configures the embedding-based similarity backend.
type GeminiConfig struct {
	APIKey            string `mapstructure:"api_key"`
	EmbeddingModel    string `mapstructure:"embedding_model"     validate:"required"`
	MaxRetries        int    `mapstructure:"max_retries"         validate:"gte=0,lte=10"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=0,lte=60"`
	BatchSize         int    `mapstructure:"batch_size"          validate:"gte=1,lte=100"`
}

// RetryDelay returns the configured delay between retriable API failures.
func (g GeminiConfig) RetryDelay() time.Duration {
	return time.Duration(g.RetryDelaySeconds) * time.Second
}

// SchedulerConfig maps task names to their schedules.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig is a single scheduled task entry. Schedule is a cron expression
// with a leading seconds field.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// MessagesConfig holds every user-visible string. Strings ending in Fmt are
// fmt templates.
type MessagesConfig struct {
	Start                string `mapstructure:"start"                  validate:"required"`
	StartButton          string `mapstructure:"start_button"           validate:"required"`
	StartAcknowledged    string `mapstructure:"start_acknowledged"`
	Info                 string `mapstructure:"info"                   validate:"required"`
	InfoButton           string `mapstructure:"info_button"            validate:"required"`
	InfoAcknowledged     string `mapstructure:"info_acknowledged"`
	Help                 string `mapstructure:"help"                   validate:"required"`
	StartFirst           string `mapstructure:"start_first"            validate:"required"`
	UnknownCommand       string `mapstructure:"unknown_command"        validate:"required"`
	GeneralError         string `mapstructure:"general_error"          validate:"required"`
	NotAuthorized        string `mapstructure:"not_authorized"         validate:"required"`
	AskName              string `mapstructure:"ask_name"               validate:"required"`
	AskNamePhoto         string `mapstructure:"ask_name_photo"`
	AskAge               string `mapstructure:"ask_age"                validate:"required"`
	AskDiscussionTopic   string `mapstructure:"ask_discussion_topic"   validate:"required"`
	AskFunFact           string `mapstructure:"ask_fun_fact"           validate:"required"`
	InputTooLongFmt      string `mapstructure:"input_too_long_fmt"     validate:"required"`
	ProfileSaveError     string `mapstructure:"profile_save_error"     validate:"required"`
	ProfileNotFound      string `mapstructure:"profile_not_found"      validate:"required"`
	ProfilePreviewHeader string `mapstructure:"profile_preview_header" validate:"required"`
	ProfileFmt           string `mapstructure:"profile_fmt"            validate:"required"`
	ContactLinkFmt       string `mapstructure:"contact_link_fmt"       validate:"required"`
	ProfileVisible       string `mapstructure:"profile_visible"        validate:"required"`
	ProfileHidden        string `mapstructure:"profile_hidden"         validate:"required"`
	EditButton           string `mapstructure:"edit_button"            validate:"required"`
	ToggleButton         string `mapstructure:"toggle_button"          validate:"required"`
	SupportPrompt        string `mapstructure:"support_prompt"         validate:"required"`
	SupportTooLongFmt    string `mapstructure:"support_too_long_fmt"   validate:"required"`
	SupportWaitFmt       string `mapstructure:"support_wait_fmt"       validate:"required"`
	SupportResubmitFmt   string `mapstructure:"support_resubmit_fmt"   validate:"required"`
	SupportSent          string `mapstructure:"support_sent"           validate:"required"`
	SupportSaveError     string `mapstructure:"support_save_error"     validate:"required"`
	MatchIntroFmt        string `mapstructure:"match_intro_fmt"        validate:"required"`
	StatsFmt             string `mapstructure:"stats_fmt"              validate:"required"`
	BroadcastUsage       string `mapstructure:"broadcast_usage"        validate:"required"`
	BroadcastQueued      string `mapstructure:"broadcast_queued"       validate:"required"`
	MatchNowDoneFmt      string `mapstructure:"match_now_done_fmt"     validate:"required"`
	MatchNowBusy         string `mapstructure:"match_now_busy"         validate:"required"`
	CmdProfile           string `mapstructure:"cmd_profile"            validate:"required"`
	CmdHelp              string `mapstructure:"cmd_help"               validate:"required"`
	CmdSupport           string `mapstructure:"cmd_support"            validate:"required"`
}

// LoadConfig reads the YAML file at path (a missing file is not an error),
// overlays BOT_* environment variables, applies defaults and validates the
// result.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		slog.Info("Configuration file not found, using defaults and environment", "path", path)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.Debug("Configuration loaded",
		"path", path,
		"log_level", cfg.Logger.Level,
		"db_path", cfg.Database.Path,
		"scorer", cfg.Matching.Scorer,
		"tasks", len(cfg.Scheduler.Tasks))
	return cfg, nil
}

// Validate checks struct tags and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if c.Matching.Scorer == ScorerGemini && c.Gemini.APIKey == "" {
		return fmt.Errorf("%w: gemini.api_key is required when matching.scorer is %q", ErrValidation, ScorerGemini)
	}
	return nil
}
