package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/chayanin-k/walkmate-api/internal/config"
	"github.com/chayanin-k/walkmate-api/internal/handler"
	"github.com/chayanin-k/walkmate-api/internal/mailer"
	"github.com/chayanin-k/walkmate-api/internal/provider"
	"github.com/chayanin-k/walkmate-api/internal/repository"
	"github.com/chayanin-k/walkmate-api/internal/token"
	"github.com/chayanin-k/walkmate-api/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg := config.Load(&logger)
	if cfg.Environment == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mongoClient, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	if err := mongoClient.Ping(ctx, nil); err != nil {
		logger.Fatal().Err(err).Msg("failed to ping mongodb")
	}
	db := mongoClient.Database(cfg.MongoDatabase)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("failed to ping redis")
	}

	userRepo := repository.NewUserMongoRepository(ctx, &logger, db)
	healthRepo := repository.NewHealthDataMongoRepository(ctx, &logger, db)
	otpStore := repository.NewOtpRedisStore(redisClient)
	nonceStore := repository.NewAttestationNonceRedisStore(redisClient)

	sender := mailer.NewMailer(&logger)
	issuer := token.NewIssuer(cfg.Token, token.NewOpaqueRefreshTokenPolicy())

	authUsecase := usecase.NewAuthUsecase(userRepo, healthRepo, otpStore, sender, issuer, cfg.Token)
	passwordResetUsecase := usecase.NewPasswordResetUsecase(userRepo, otpStore, sender, issuer)
	socialAuthUsecase := usecase.NewSocialAuthUsecase(
		userRepo,
		issuer,
		provider.NewFacebookProvider(cfg.Provider.FacebookAppID, cfg.Provider.FacebookAppSecret),
		provider.NewLineProvider(cfg.Provider.LineChannelID),
		provider.NewGoogleProvider(cfg.Provider.GoogleClientID),
		provider.NewAppleProvider(cfg.Provider.AppleClientID),
	)
	attestationUsecase := usecase.NewAttestationUsecase(nonceStore)
	healthUsecase := usecase.NewHealthUsecase(healthRepo)

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:               &logger,
		Issuer:               issuer,
		AuthUsecase:          authUsecase,
		SocialAuthUsecase:    socialAuthUsecase,
		PasswordResetUsecase: passwordResetUsecase,
		AttestationUsecase:   attestationUsecase,
		HealthUsecase:        healthUsecase,
	})

	server := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.ServerAddr).Msg("starting http server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown failed")
	}
	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("mongodb disconnect failed")
	}
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close failed")
	}
}
