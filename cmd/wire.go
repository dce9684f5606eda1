package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/chatkit-broker/internal/adapters/httpapi"
	chainstore "github.com/bnema/chatkit-broker/internal/adapters/secrets/chain"
	tomlstorage "github.com/bnema/chatkit-broker/internal/adapters/storage/toml"
	"github.com/bnema/chatkit-broker/internal/adapters/upstream/chatkit"
	"github.com/bnema/chatkit-broker/internal/application"
	"github.com/bnema/chatkit-broker/internal/ports"
	"github.com/bnema/chatkit-broker/internal/widget"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	configDir       = ".config/chatkit"
	envPrefix       = "CHATKIT"
	serverSecretEnv = "OPENAI_API_KEY"
	productionEnv   = "production"
)

type config struct {
	Env               string
	Listen            string
	UpstreamBaseURL   string
	UpstreamTimeout   time.Duration
	Model             string
	Instructions      string
	WorkflowID        string
	AllowClientSecret bool
	SecretKey         string
	SecretsDir        string
	SecretsPass       bool
	RateLimitRPS      float64
	RateLimitBurst    int
	TrustProxy        bool
	WidgetScriptURL   string
	LogLevel          string
	LogFormat         string
}

func (c config) production() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), productionEnv)
}

type app struct {
	cfg         config
	logger      zerolog.Logger
	secretStore ports.SecretStore
	storage     *tomlstorage.Store
	broker      *application.SessionBroker
	devConfig   *application.DevConfigService
}

func wireApp() (*app, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	v, err := loadViper(filepath.Join(homeDir, configDir))
	if err != nil {
		return nil, err
	}
	cfg := readConfig(v, homeDir)

	logger, err := newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	envVars := map[string]string{cfg.SecretKey: serverSecretEnv}
	var secretStore *chainstore.Store
	if cfg.SecretsPass {
		secretStore, err = chainstore.NewEnvPassFile(envVars, cfg.SecretsDir)
	} else {
		secretStore, err = chainstore.NewEnvFile(envVars, cfg.SecretsDir)
	}
	if err != nil {
		return nil, fmt.Errorf("wire secret store chain: %w", err)
	}

	storage, err := tomlstorage.NewStore(v)
	if err != nil {
		return nil, fmt.Errorf("wire local storage: %w", err)
	}

	issuer := chatkit.NewClient(cfg.UpstreamBaseURL, chatkit.NewHTTPClient(cfg.UpstreamTimeout))
	broker := application.NewSessionBroker(secretStore, issuer, application.BrokerConfig{
		SecretKey:         cfg.SecretKey,
		Model:             cfg.Model,
		Instructions:      cfg.Instructions,
		WorkflowID:        cfg.WorkflowID,
		Production:        cfg.production(),
		AllowClientSecret: cfg.AllowClientSecret,
	}, logger)

	return &app{
		cfg:         cfg,
		logger:      logger,
		secretStore: secretStore,
		storage:     storage,
		broker:      broker,
		devConfig:   application.NewDevConfigService(storage, cfg.production(), logger),
	}, nil
}

func loadViper(dir string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(dir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("env", "development")
	v.SetDefault("listen", httpapi.DefaultAddr)
	v.SetDefault("upstream.base_url", chatkit.DefaultBaseURL)
	v.SetDefault("upstream.timeout", 15*time.Second)
	v.SetDefault("session.model", application.DefaultModel)
	v.SetDefault("session.instructions", application.DefaultInstructions)
	v.SetDefault("session.workflow_id", "")
	v.SetDefault("session.allow_client_secret", true)
	v.SetDefault("secrets.key", application.DefaultSecretKey)
	v.SetDefault("secrets.dir", filepath.Join(dir, "secrets"))
	v.SetDefault("secrets.pass", true)
	v.SetDefault("ratelimit.rps", 1.0)
	v.SetDefault("ratelimit.burst", 5)
	v.SetDefault("ratelimit.trust_proxy", false)
	v.SetDefault("widget.script_url", widget.DefaultScriptURL)
	v.SetDefault(tomlstorage.StoragePathKey, filepath.Join(dir, "storage.toml"))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return v, nil
}

func readConfig(v *viper.Viper, homeDir string) config {
	return config{
		Env:               v.GetString("env"),
		Listen:            v.GetString("listen"),
		UpstreamBaseURL:   v.GetString("upstream.base_url"),
		UpstreamTimeout:   v.GetDuration("upstream.timeout"),
		Model:             v.GetString("session.model"),
		Instructions:      v.GetString("session.instructions"),
		WorkflowID:        v.GetString("session.workflow_id"),
		AllowClientSecret: v.GetBool("session.allow_client_secret"),
		SecretKey:         v.GetString("secrets.key"),
		SecretsDir:        expandHome(v.GetString("secrets.dir"), homeDir),
		SecretsPass:       v.GetBool("secrets.pass"),
		RateLimitRPS:      v.GetFloat64("ratelimit.rps"),
		RateLimitBurst:    v.GetInt("ratelimit.burst"),
		TrustProxy:        v.GetBool("ratelimit.trust_proxy"),
		WidgetScriptURL:   v.GetString("widget.script_url"),
		LogLevel:          v.GetString("log.level"),
		LogFormat:         v.GetString("log.format"),
	}
}

func expandHome(path string, homeDir string) string {
	if path == "~" {
		return homeDir
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

func newLogger(out io.Writer, level string, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("parse log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	writer := out
	if format != "json" {
		writer = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(writer).Level(lvl).With().Timestamp().Logger(), nil
}
