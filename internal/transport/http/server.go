package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"docuchat/internal/ai"
	appsvc "docuchat/internal/app"
	"docuchat/internal/bootstrap"
	"docuchat/internal/cache"
	"docuchat/internal/platform/rabbitmq"
	"docuchat/internal/repository"
	"docuchat/internal/transport/http/handler"
	"docuchat/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	userRepo := repository.NewUserRepository(app.MySQL)
	folderRepo := repository.NewFolderRepository(app.MySQL)
	documentRepo := repository.NewDocumentRepository(app.MySQL)
	chunkRepo := repository.NewChunkRepository(app.MySQL)
	conversationRepo := repository.NewConversationRepository(app.MySQL)
	messageRepo := repository.NewMessageRepository(app.MySQL)

	chatCfg := ai.ChatConfig{
		BaseURL: app.Config.LLM.BaseURL,
		APIKey:  app.Config.LLM.APIKey,
		Model:   app.Config.LLM.Model,
	}

	scope := appsvc.NewScopeResolver(folderRepo)
	rewriter := appsvc.NewContextualizer(app.AIClient, chatCfg)
	retriever := appsvc.NewRetriever(app.Embeddings, chunkRepo, documentRepo, app.Config.Retrieval)
	synthesizer := appsvc.NewSynthesizer(app.AIClient, chatCfg)

	historyCache := cache.NewHistoryCache(
		app.Redis,
		time.Duration(app.Config.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(app.Config.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)
	turnPublisher := rabbitmq.NewMessagePublisher(app.MQConn, app.Config.RabbitMQ.MessagePersistQueue)
	embedJobPublisher := rabbitmq.NewEmbedJobPublisher(app.MQConn, app.Config.RabbitMQ.ChunkEmbedQueue)

	authService := appsvc.NewAuthService(
		userRepo,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireMinute)*time.Minute,
	)
	chatService := appsvc.NewChatService(
		userRepo,
		scope,
		rewriter,
		retriever,
		synthesizer,
		app.Limiter,
		conversationRepo,
		messageRepo,
		turnPublisher,
		historyCache,
		app.Config.LLM.MaxContextMessage,
	)
	libraryService := appsvc.NewLibraryService(
		userRepo,
		scope,
		folderRepo,
		documentRepo,
		chunkRepo,
		embedJobPublisher,
	)

	authHandler := handler.NewAuthHandler(authService)
	chatHandler := handler.NewChatHandler(chatService)
	libraryHandler := handler.NewLibraryHandler(libraryService)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(app.Config.Auth.JWTSecret), authHandler.Me)

	chatGroup := v1.Group("/chat")
	chatGroup.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	chatGroup.POST("", chatHandler.Answer)
	chatGroup.POST("/stream", chatHandler.AnswerStream)
	chatGroup.GET("/conversations", chatHandler.ListConversations)
	chatGroup.GET("/history", chatHandler.GetHistory)

	libraryGroup := v1.Group("/library")
	libraryGroup.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	libraryGroup.POST("/folders", libraryHandler.CreateFolder)
	libraryGroup.GET("/folders", libraryHandler.ListFolders)
	libraryGroup.POST("/folders/:id/grants", libraryHandler.GrantFolder)
	libraryGroup.POST("/documents", libraryHandler.CreateDocument)
	libraryGroup.POST("/documents/upload", libraryHandler.UploadPDF)
	libraryGroup.GET("/documents", libraryHandler.ListDocuments)
	libraryGroup.DELETE("/documents/:id", libraryHandler.DeleteDocument)

	return router
}
