package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"faculty-eval-service/internal/app"
	"faculty-eval-service/internal/auth"
	"faculty-eval-service/internal/config"
	"faculty-eval-service/internal/domain"
	"faculty-eval-service/internal/infra/memory"
	"faculty-eval-service/internal/infra/postgres"
	redisinfra "faculty-eval-service/internal/infra/redis"
	"faculty-eval-service/internal/logger"
	"faculty-eval-service/internal/seed"
	transport "faculty-eval-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the evaluation API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

type repositories struct {
	users       app.UserRepository
	evaluations app.EvaluationRepository
	questions   app.QuestionRepository
	config      app.ConfigRepository
	loader      app.QuestionLoader
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.File)
	defer log.Sync()
	gin.SetMode(cfg.Server.Mode)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if cfg.JWT.Secret == config.DefaultJWTSecret {
		log.Warn("using development JWT secret; set JWT_SECRET in production")
	}

	repos, closeStores, err := openRepositories(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStores()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return err
		}
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var bank app.QuestionBank
	if redisClient != nil {
		bank = redisinfra.NewQuestionBank(redisClient, repos.loader, config.TTLDuration(cfg.Redis.TTL, quizTTL))
	} else {
		bank = memory.NewQuestionBank(repos.loader, quizTTL)
	}

	hub := app.NewHub()
	var publisher app.Publisher = hub
	runCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()
	if redisClient != nil {
		// Events go through Redis so every instance's dashboards see them.
		publisher = redisinfra.NewEventBus(redisClient)
		relay := redisinfra.NewRelay(redisClient, hub, log)
		go func() {
			if err := relay.Run(runCtx, nil, domain.AdminRoom); err != nil {
				log.Error("event relay stopped", zap.Error(err))
			}
		}()
	}

	tokens := auth.NewTokenManager(cfg.JWT.Secret, config.TTLDuration(cfg.JWT.TTL, auth.DefaultTokenTTL))
	services := transport.Services{
		Users:     app.NewUserService(repos.users, repos.evaluations, tokens, log),
		Questions: app.NewQuestionService(repos.questions, bank, log),
		Evaluations: app.NewEvaluationService(repos.evaluations, repos.users, bank, publisher, app.EvaluationOptions{
			MaxDemoScore: cfg.Scoring.MaxDemoScore,
			Logger:       log,
		}),
		Config: app.NewConfigService(repos.config),
		Hub:    hub,
	}
	router := transport.NewRouter(services, transport.RouterOptions{
		Tokens:      tokens,
		CORSOrigins: cfg.Server.CORSOrigin,
		Logger:      log,
	})

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting evaluation service", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	case err := <-errCh:
		return err
	}

	stopRelay()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openRepositories picks Postgres when configured, otherwise seeded in-memory stores.
func openRepositories(ctx context.Context, cfg config.Config, log *zap.Logger) (repositories, func(), error) {
	if cfg.Postgres.URL == "" {
		questions := memory.NewQuestionStore()
		repos := repositories{
			users:       memory.NewUserStore(),
			evaluations: memory.NewEvaluationStore(),
			questions:   questions,
			config:      memory.NewConfigStore(),
			loader:      questions,
		}
		data, err := seed.Default()
		if err != nil {
			return repositories{}, nil, err
		}
		if _, err := seed.Run(ctx, seed.Stores{Users: repos.users, Questions: repos.questions, Config: repos.config}, data, log); err != nil {
			return repositories{}, nil, err
		}
		log.Warn("postgres not configured; using in-memory stores with demo data")
		return repos, func() {}, nil
	}

	if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
		return repositories{}, nil, err
	}
	db := postgres.Open(cfg.Postgres.URL)
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		db.Close()
		return repositories{}, nil, err
	}
	return newPostgresRepositories(db, pool), func() {
		pool.Close()
		db.Close()
	}, nil
}

func newPostgresRepositories(db *bun.DB, pool *pgxpool.Pool) repositories {
	return repositories{
		users:       postgres.NewUserStore(db),
		evaluations: postgres.NewEvaluationStore(db),
		questions:   postgres.NewQuestionStore(db),
		config:      postgres.NewConfigStore(db),
		loader:      postgres.NewQuestionLoader(pool),
	}
}
