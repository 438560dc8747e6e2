package config

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/bisicus/segreteriacanti-api/internal/db"
	"github.com/bisicus/segreteriacanti-api/internal/filter"
	"github.com/bisicus/segreteriacanti-api/internal/storage"
	"github.com/bisicus/segreteriacanti-api/internal/tracing"
)

const envPrefix = "SEGRETERIA"

// Config is the full application configuration.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     db.Config          `mapstructure:"database"`
	Storage      storage.Config     `mapstructure:"storage"`
	Uploads      UploadsConfig      `mapstructure:"uploads"`
	Filters      filter.Config      `mapstructure:"filters"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Translations TranslationsConfig `mapstructure:"translations"`
	Tracing      tracing.Config     `mapstructure:"tracing"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// UploadsConfig lists the MIME types accepted per upload field.
type UploadsConfig struct {
	MaxMemory    int64    `mapstructure:"max_memory"`
	Lyrics       []string `mapstructure:"lyrics"`
	Scores       []string `mapstructure:"scores"`
	Audio        []string `mapstructure:"audio"`
	Translations []string `mapstructure:"translations"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TranslationsConfig struct {
	// FilenameSeparator splits the language suffix off an uploaded file name.
	FilenameSeparator string `mapstructure:"filename_separator"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			CORSOrigins:     []string{"http://localhost:3000"},
		},
		Database: db.DefaultConfig(),
		Storage:  storage.DefaultConfig(),
		Uploads: UploadsConfig{
			MaxMemory:    32 << 20,
			Lyrics:       []string{"application/pdf", "text/plain", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
			Scores:       []string{"application/pdf", "image/png", "image/jpeg", "application/vnd.recordare.musicxml+xml"},
			Audio:        []string{"audio/mpeg", "audio/mp3", "audio/wav", "audio/x-wav", "audio/ogg", "audio/flac", "audio/mp4", "audio/x-m4a"},
			Translations: []string{"text/plain", "application/pdf"},
		},
		Filters: filter.DefaultConfig(),
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Translations: TranslationsConfig{
			FilenameSeparator: "_",
		},
		Tracing: tracing.DefaultConfig(),
	}
}

// Flags registers the command-line flags understood by Load.
func Flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "path to a config file (yaml, json or toml)")
	fs.String("addr", "", "listen address")
	fs.String("database-url", "", "postgres connection url")
	fs.String("log-level", "", "log level: debug, info, warn, error")
	fs.String("log-format", "", "log format: json or text")
	fs.Bool("migrate", true, "apply database migrations on startup")
	fs.Bool("strict-filters", false, "reject unknown filter keys")
	fs.Bool("tracing", false, "export trace spans to stdout")
	return fs
}

var flagKeys = map[string]string{
	"addr":           "server.addr",
	"database-url":   "database.url",
	"log-level":      "logging.level",
	"log-format":     "logging.format",
	"migrate":        "database.migrate",
	"strict-filters": "filters.strict",
	"tracing":        "tracing.enabled",
}

// Load parses args, then layers the config file, environment and flags over
// Default. Environment variables use the SEGRETERIA_ prefix with dots turned
// into underscores; DATABASE_URL is honored as well.
func Load(fs *pflag.FlagSet, args []string) (Config, error) {
	if err := fs.Parse(args); err != nil {
		return Config{}, errors.Wrap(err, "parse flags")
	}

	v := viper.New()
	setDefaults(v, Default())

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	explicit, _ := fs.GetString("config")
	if explicit != "" {
		v.SetConfigFile(explicit)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("database.url", envPrefix+"_DATABASE_URL", "DATABASE_URL")

	for flagName, key := range flagKeys {
		flag := fs.Lookup(flagName)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return Config{}, errors.Wrapf(err, "bind flag %s", flagName)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return Config{}, errors.Wrap(err, "read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings the server cannot start with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.URL) == "" && strings.TrimSpace(c.Database.Host) == "" {
		return errors.New("database: url or host is required")
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("server: addr is required")
	}
	if strings.TrimSpace(c.Translations.FilenameSeparator) == "" {
		return errors.New("translations: filename_separator is required")
	}
	return nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", d.Server.IdleTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)

	v.SetDefault("database.url", d.Database.URL)
	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.user", d.Database.User)
	v.SetDefault("database.password", d.Database.Password)
	v.SetDefault("database.dbname", d.Database.DBName)
	v.SetDefault("database.sslmode", d.Database.SSLMode)
	v.SetDefault("database.max_conns", d.Database.MaxConns)
	v.SetDefault("database.min_conns", d.Database.MinConns)
	v.SetDefault("database.migrate", d.Database.Migrate)

	v.SetDefault("storage.tmp", d.Storage.Tmp)
	v.SetDefault("storage.lyrics", d.Storage.Lyrics)
	v.SetDefault("storage.scores", d.Storage.Scores)
	v.SetDefault("storage.tablatures", d.Storage.Tablatures)
	v.SetDefault("storage.recordings", d.Storage.Recordings)
	v.SetDefault("storage.translations", d.Storage.Translations)

	v.SetDefault("uploads.max_memory", d.Uploads.MaxMemory)
	v.SetDefault("uploads.lyrics", d.Uploads.Lyrics)
	v.SetDefault("uploads.scores", d.Uploads.Scores)
	v.SetDefault("uploads.audio", d.Uploads.Audio)
	v.SetDefault("uploads.translations", d.Uploads.Translations)

	ops := d.Filters.Operators
	v.SetDefault("filters.operators.greater_than", ops.GreaterThan)
	v.SetDefault("filters.operators.greater_or_equal", ops.GreaterOrEqual)
	v.SetDefault("filters.operators.less_than", ops.LessThan)
	v.SetDefault("filters.operators.less_or_equal", ops.LessOrEqual)
	v.SetDefault("filters.operators.starts_with", ops.StartsWith)
	v.SetDefault("filters.operators.ends_with", ops.EndsWith)
	v.SetDefault("filters.operators.contains", ops.Contains)
	v.SetDefault("filters.or_markers", d.Filters.OrMarkers)
	v.SetDefault("filters.and_markers", d.Filters.AndMarkers)
	v.SetDefault("filters.match_all_markers", d.Filters.MatchAllMarkers)
	v.SetDefault("filters.not_in_markers", d.Filters.NotInMarkers)
	v.SetDefault("filters.truthy", d.Filters.Truthy)
	v.SetDefault("filters.strict", d.Filters.Strict)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("translations.filename_separator", d.Translations.FilenameSeparator)

	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("tracing.sample_ratio", d.Tracing.SampleRatio)
	v.SetDefault("tracing.pretty", d.Tracing.Pretty)
}
