package env

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Cfg holds the process configuration after Init.
var Cfg Config

// this is required
var VERSION string

type Config struct {
	MongoURI      string `env:"MONGO_URI, default=mongodb://127.0.0.1:27017"`
	MongoDatabase string `env:"MONGO_DATABASE, default=extci"`
	RedisAddr     string `env:"REDIS_ADDR, default=127.0.0.1:6379"`
	RedisDB       int    `env:"REDIS_DB, default=15"`

	JWTSecret           string `env:"JWT_SECRET"`
	GitHubWebhookSecret string `env:"GITHUB_WEBHOOK_SECRET"`

	// operator seeded at startup when both are set
	OperatorUsername string `env:"OPERATOR_USERNAME"`
	OperatorPassword string `env:"OPERATOR_PASSWORD"`

	DrainMode bool `env:"DRAIN_MODE, default=false"`

	// RepoURL overrides the clone URL announced in push payloads.
	RepoURL string `env:"REPO_URL"`

	Runner Runner `env:",prefix=EXTCI_"`
}

type Runner struct {
	WorkspaceRoot string        `env:"WORKSPACE_ROOT, default=/var/lib/extci/workspaces"`
	LogDir        string        `env:"LOG_DIR, default=/var/log/extci"`
	CacheDir      string        `env:"CACHE_DIR, default=/var/cache/extci"`
	WorkflowFile  string        `env:"WORKFLOW_FILE, default=.extci.yml"`
	QueueSize     int           `env:"QUEUE_SIZE, default=32"`
	JobTimeout    time.Duration `env:"JOB_TIMEOUT, default=30m"`

	CancelInProgress bool `env:"CANCEL_IN_PROGRESS, default=false"`
}

// Init loads the .env file under envRoot (the repo root when empty),
// processes the environment into Cfg and resolves VERSION.
func Init(envRoot string, appVersion string) error {
	if err := loadEnv(envRoot); err != nil {
		return err
	}

	cfg, err := Load(context.Background())
	if err != nil {
		return err
	}
	Cfg = *cfg

	loadVersion(appVersion)
	return nil
}

// Load processes the current environment into a Config.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}

	cfg.GitHubWebhookSecret = strings.TrimSpace(cfg.GitHubWebhookSecret)
	cfg.RepoURL = strings.TrimSpace(cfg.RepoURL)

	return &cfg, nil
}

func loadEnv(envRoot string) error {
	explicit := envRoot != ""
	if !explicit {
		envRoot = repoRoot()
	}

	path := path.Join(envRoot, ".env")
	if _, err := os.Stat(path); err != nil {
		// the repo-root .env is optional, an explicit env root is not
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}

	if err := godotenv.Overload(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func loadVersion(appVersion string) {
	if appVersion != "" {
		VERSION = appVersion
		return
	}

	data, err := os.ReadFile(filepath.Join(repoRoot(), "VERSION"))
	if err != nil {
		VERSION = "unknown"
		return
	}

	trimmed := strings.TrimSpace(string(data))
	if trimmed != "" {
		VERSION = trimmed
	} else {
		VERSION = "unknown"
	}
}

func repoRoot() string {
	_, b, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(b), "../..")
}
