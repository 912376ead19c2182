package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"docuchat/internal/ai"
	appsvc "docuchat/internal/app"
	"docuchat/internal/config"
	"docuchat/internal/model"
	mysqlClient "docuchat/internal/platform/mysql"
	rabbitmqClient "docuchat/internal/platform/rabbitmq"
	redisClient "docuchat/internal/platform/redis"
	"docuchat/internal/ratelimit"
	"docuchat/internal/repository"
	"docuchat/internal/worker"
)

type App struct {
	Config     *config.Config
	MySQL      *gorm.DB
	Redis      *redis.Client
	MQConn     *amqp.Connection
	AIClient   *ai.OpenAICompatibleClient
	Embeddings *appsvc.EmbeddingGateway
	Limiter    ratelimit.Limiter

	MessageWorker *worker.MessagePersistWorker
	EmbedWorker   *worker.EmbedWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(
		&model.User{},
		&model.Folder{},
		&model.FolderGrant{},
		&model.Document{},
		&model.Chunk{},
		&model.Conversation{},
		&model.Message{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	aiClient := ai.NewOpenAICompatibleClient()
	embeddings := appsvc.NewEmbeddingGateway(aiClient, ai.EmbeddingConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.EmbeddingModel,
	}, cfg.LLM.EmbeddingDim)

	messageRepo := repository.NewMessageRepository(mysqlDB)
	messageWorker := worker.NewMessagePersistWorker(mqConn, messageRepo, cfg.RabbitMQ.MessagePersistQueue)
	if err := messageWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start message worker failed: %w", err)
	}

	chunkRepo := repository.NewChunkRepository(mysqlDB)
	embedWorker := worker.NewEmbedWorker(mqConn, chunkRepo, embeddings, cfg.RabbitMQ.ChunkEmbedQueue)
	if err := embedWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start embed worker failed: %w", err)
	}

	return &App{
		Config:        cfg,
		MySQL:         mysqlDB,
		Redis:         redisCli,
		MQConn:        mqConn,
		AIClient:      aiClient,
		Embeddings:    embeddings,
		Limiter:       newLimiter(cfg, redisCli),
		MessageWorker: messageWorker,
		EmbedWorker:   embedWorker,
		StartedAt:     time.Now(),
	}, nil
}

func newLimiter(cfg *config.Config, redisCli *redis.Client) ratelimit.Limiter {
	window := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
	if cfg.RateLimit.Backend == "redis" {
		return ratelimit.NewRedisLimiter(redisCli, window, cfg.RateLimit.MaxRequests)
	}
	return ratelimit.NewMemoryLimiter(window, cfg.RateLimit.MaxRequests)
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MessageWorker != nil {
		a.MessageWorker.Close()
	}
	if a.EmbedWorker != nil {
		a.EmbedWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
