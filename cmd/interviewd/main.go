package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cacheadapter "github.com/prepdeck/interview-api/internal/adapter/cache"
	"github.com/prepdeck/interview-api/internal/config"
	"github.com/prepdeck/interview-api/internal/database"
	httptransport "github.com/prepdeck/interview-api/internal/http"
	"github.com/prepdeck/interview-api/internal/http/handler"
	httpmiddleware "github.com/prepdeck/interview-api/internal/http/middleware"
	"github.com/prepdeck/interview-api/internal/identity"
	apimiddleware "github.com/prepdeck/interview-api/internal/middleware"
	"github.com/prepdeck/interview-api/internal/repository"
	"github.com/prepdeck/interview-api/internal/scoring"
	"github.com/prepdeck/interview-api/internal/scoring/gemini"
	"github.com/prepdeck/interview-api/internal/server"
	"github.com/prepdeck/interview-api/internal/service"
	"github.com/prepdeck/interview-api/internal/session"
	"github.com/prepdeck/interview-api/internal/telemetry"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newSnowflake,
			newPGXPool,
			newUserRepository,
			newInterviewRepository,
			newFeedbackRepository,
			newKeyRepository,
			newRedisClient,
			newRevocationStore,
			newIdentityVerifier,
			newKeyManager,
			newSessionIssuer,
			newSessionAuthenticator,
			newGeminiGenerator,
			newScorer,
			newQuestionPlanner,
			newAuthService,
			newInterviewService,
			newFeedbackService,
			handler.NewAuthHandler,
			handler.NewInterviewHandler,
			newAuthMiddleware,
			newRateLimiter,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, runMigrations, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Production() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func newPGXPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})

	return pool, nil
}

func newUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return repository.NewPostgresUserRepo(pool)
}

func newInterviewRepository(pool *pgxpool.Pool) repository.InterviewRepository {
	return repository.NewPostgresInterviewRepo(pool)
}

func newFeedbackRepository(pool *pgxpool.Pool) repository.FeedbackRepository {
	return repository.NewPostgresFeedbackRepo(pool)
}

func newKeyRepository(pool *pgxpool.Pool) repository.KeyRepository {
	return repository.NewPostgresKeyRepo(pool)
}

func newRedisClient(lc fx.Lifecycle, cfg config.Config) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func newRevocationStore(client redis.UniversalClient) repository.RevocationStore {
	return cacheadapter.NewRedisRevocationStore(client)
}

func newIdentityVerifier(cfg config.Config) *identity.Verifier {
	return identity.NewVerifier(cfg.IdentityIssuer, cfg.IdentityAudience, cfg.IdentityJWKSURL, nil)
}

func newKeyManager(repo repository.KeyRepository) *session.KeyManager {
	return session.NewKeyManager(repo)
}

func newSessionIssuer(manager *session.KeyManager, cfg config.Config) *session.Issuer {
	return session.NewIssuer(manager, cfg.SessionTTL)
}

func newSessionAuthenticator(manager *session.KeyManager, users repository.UserRepository, revocations repository.RevocationStore) *session.Authenticator {
	return session.NewAuthenticator(manager, users, revocations)
}

func newGeminiGenerator(cfg config.Config) (*gemini.Generator, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return gemini.NewGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
}

func newScorer(generator *gemini.Generator, logger *zap.Logger) *scoring.Scorer {
	return scoring.NewScorer(generator, logger)
}

func newQuestionPlanner(generator *gemini.Generator, logger *zap.Logger) *scoring.QuestionPlanner {
	return scoring.NewQuestionPlanner(generator, logger)
}

func newAuthService(users repository.UserRepository, verifier *identity.Verifier, issuer *session.Issuer, authenticator *session.Authenticator, logger *zap.Logger) *service.AuthService {
	return service.NewAuthService(users, verifier, issuer, authenticator, logger)
}

func newInterviewService(interviews repository.InterviewRepository, planner *scoring.QuestionPlanner, node *snowflake.Node, logger *zap.Logger) *service.InterviewService {
	return service.NewInterviewService(interviews, planner, node, logger)
}

func newFeedbackService(scorer *scoring.Scorer, feedback repository.FeedbackRepository, interviews repository.InterviewRepository, node *snowflake.Node, cfg config.Config, logger *zap.Logger) *service.FeedbackService {
	return service.NewFeedbackService(scorer, feedback, interviews, node, cfg.ScoringTimeout, logger)
}

func newAuthMiddleware(authService *service.AuthService) *httpmiddleware.Auth {
	return &httpmiddleware.Auth{Sessions: authService}
}

func newRateLimiter(cfg config.Config) *apimiddleware.RateLimiter {
	return apimiddleware.NewRateLimiter(cfg.RateLimitRPM)
}

func runMigrations(cfg config.Config, logger *zap.Logger) error {
	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations applied")
	return nil
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			logger.Info("http server listening", zap.String("addr", addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
