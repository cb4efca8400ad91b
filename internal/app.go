package internal

import (
	"context"
	"os"
	"strings"

	"extci/internal/cache"
	"extci/internal/db"
	"extci/internal/dispatch"
	"extci/internal/env"
	"extci/internal/errmsg"
	"extci/internal/events"
	"extci/internal/githubhooks"
	"extci/internal/jobs"
	jobs_api "extci/internal/jobs/api"
	jobs_db "extci/internal/jobs/db"
	"extci/internal/logging"
	"extci/internal/metrics"
	"extci/internal/models"
	"extci/internal/operators"
	"extci/internal/runner"
	"extci/internal/shell"
	"extci/internal/toolchain"
	"extci/internal/utils"
	"extci/internal/workspace"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Jobs          jobs.Store
	Submitter     githubhooks.Submitter
	Canceler      jobs_api.Canceler
	Auth          *operators.Auth
	WebhookSecret string
}

// NewApp wires every route under /ci.
func NewApp(d Deps) *fiber.App {
	app := fiber.New()

	ci := app.Group("/ci")

	ci.Get("/ping", func(c fiber.Ctx) error {
		return c.SendString("PONG")
	})

	ci.Get("/version", func(c fiber.Ctx) error {
		return c.SendString("v" + env.VERSION)
	})

	ci.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	ci.Use("/github", func(c fiber.Ctx) error {
		if env.Cfg.DrainMode {
			return utils.StatusError(c, errmsg.Draining)
		}
		return c.Next()
	})

	githubhooks.Routes(ci, githubhooks.NewHandler(d.WebhookSecret, d.Submitter))
	operators.Routes(ci, d.Auth)
	jobs_api.Routes(ci, &jobs_api.Handlers{Store: d.Jobs, Canceler: d.Canceler}, d.Auth)

	return app
}

// SetupApp loads configuration, connects the stores and starts the
// dispatcher. The returned dispatcher must be stopped on shutdown.
func SetupApp(deployment string, envRoot string, appVersion string) (*fiber.App, *dispatch.Dispatcher) {
	log := logging.Component("app")

	if err := env.Init(envRoot, appVersion); err != nil {
		log.WithError(err).Fatal("could not load configuration")
	}

	deploy := strings.TrimSpace(deployment)

	if err := db.InitDB(deploy); err != nil {
		log.WithError(err).Fatal("could not connect to MongoDB")
	}

	if err := db.InitCache(); err != nil {
		log.WithError(err).Fatal("could not connect to Redis")
	}

	if db.Events != nil {
		events.Em = events.NewEmitter(db.Events, deploy)
	} else {
		events.Em = nil
	}

	ctx := context.Background()

	jobStore := jobs_db.NewStore(db.Jobs)
	if err := jobStore.EnsureIndexes(ctx); err != nil {
		log.WithError(err).Warn("could not create job indexes")
	}

	operatorStore := operators.NewMongoStore(db.Operators)
	if env.Cfg.OperatorUsername != "" && env.Cfg.OperatorPassword != "" {
		if err := operators.Ensure(ctx, operatorStore, env.Cfg.OperatorUsername, env.Cfg.OperatorPassword); err != nil {
			log.WithError(err).Fatal("could not seed operator")
		}
	}

	if env.Cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET is empty, operator endpoints will reject every token")
	}

	cfg := env.Cfg.Runner
	ws := workspace.New(cfg.WorkspaceRoot, env.Cfg.RepoURL)

	exec := shell.Local{}
	provisioner := toolchain.NewProvisioner(exec)
	provisioner.Log = os.Stderr

	r := &runner.Runner{
		Exec:         exec,
		Provisioner:  provisioner,
		Cache:        cache.New(cfg.CacheDir, cache.NewRedisIndex(db.RDB)),
		Store:        jobStore,
		Checkout:     ws.Checkout,
		WorkflowFile: cfg.WorkflowFile,
		LogDir:       cfg.LogDir,
	}

	d := dispatch.New(r, jobStore, dispatch.Options{
		QueueSize:        cfg.QueueSize,
		Timeout:          cfg.JobTimeout,
		CancelInProgress: cfg.CancelInProgress,
		Workdir:          func(job models.Job) string { return ws.Dir(job) },
	})
	d.Start(ctx)

	app := NewApp(Deps{
		Jobs:          jobStore,
		Submitter:     d,
		Canceler:      d,
		Auth:          operators.NewAuth(env.Cfg.JWTSecret, operatorStore),
		WebhookSecret: env.Cfg.GitHubWebhookSecret,
	})

	return app, d
}
