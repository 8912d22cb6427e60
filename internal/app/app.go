package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"course_qa_backend/internal/chunker"
	"course_qa_backend/internal/config"
	"course_qa_backend/internal/controller"
	"course_qa_backend/internal/repository"
	"course_qa_backend/internal/service"
	"course_qa_backend/internal/vectorstore"
	"course_qa_backend/pkg/database"
	"course_qa_backend/pkg/logger"
	"course_qa_backend/pkg/monitoring"
	"course_qa_backend/pkg/security"
	"course_qa_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config  *config.Config
	Router  *gin.Engine
	DB      *gorm.DB
	Redis   *redis.Client
	Vectors *vectorstore.Store
}

type repositories struct {
	course     *repository.CourseRepository
	exam       *repository.ExamRepository
	assignment *repository.AssignmentRepository
	document   *repository.DocumentRepository
	chunk      *repository.ChunkRepository
	problem    *repository.ProblemRepository
	question   *repository.QuestionRepository
	log        *repository.RetrievalLogRepository
}

type services struct {
	ai        *service.AIService
	storage   *service.StorageService
	catalog   *service.CatalogService
	ingestion *service.IngestionService
	retrieval *service.RetrievalService
	problem   *service.ProblemService
	qa        *service.QAService
}

type controllers struct {
	course   *controller.CourseController
	exam     *controller.ExamController
	document *controller.DocumentController
	problem  *controller.ProblemController
	question *controller.QuestionController
	ranking  *controller.RankingController
	health   *controller.HealthController
}

func initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		course:     repository.NewCourseRepository(db),
		exam:       repository.NewExamRepository(db),
		assignment: repository.NewAssignmentRepository(db),
		document:   repository.NewDocumentRepository(db),
		chunk:      repository.NewChunkRepository(db),
		problem:    repository.NewProblemRepository(db),
		question:   repository.NewQuestionRepository(db),
		log:        repository.NewRetrievalLogRepository(db),
	}
}

func initServices(repos *repositories, cfg *config.Config, vectors *vectorstore.Store, rdb *redis.Client) *services {
	s := &services{}

	s.ai = service.NewAIService(cfg.AI)
	s.storage = service.NewStorageService(cfg)
	s.catalog = service.NewCatalogService(repos.course, repos.exam, repos.assignment, repos.document, vectors)
	s.ingestion = service.NewIngestionService(
		repos.document, repos.exam, repos.chunk,
		service.NewExtractionService(),
		chunker.New(cfg.Chunking.MaxSize, cfg.Chunking.MinSize, cfg.Chunking.Overlap),
		vectors, s.storage,
	)
	s.retrieval = service.NewRetrievalService(
		repos.log, repos.exam, vectors, rdb,
		time.Duration(cfg.Retrieval.CacheTTLSeconds)*time.Second,
		cfg.Retrieval.TopK,
	)
	s.problem = service.NewProblemService(repos.problem, repos.exam, s.retrieval)
	s.qa = service.NewQAService(repos.question, repos.problem, s.retrieval, s.ai)

	return s
}

func initControllers(s *services, db *gorm.DB, vectors *vectorstore.Store) *controllers {
	return &controllers{
		course:   controller.NewCourseController(s.catalog),
		exam:     controller.NewExamController(s.catalog),
		document: controller.NewDocumentController(s.ingestion, s.catalog),
		problem:  controller.NewProblemController(s.problem, s.retrieval),
		question: controller.NewQuestionController(s.qa),
		ranking:  controller.NewRankingController(s.retrieval),
		health:   controller.NewHealthController(db, vectors),
	}
}

func setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 1000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("initialize database", zap.Error(err))
	}
	if err := database.BackfillDefaultScope(db); err != nil {
		logger.Log.Fatal("backfill default scope", zap.Error(err))
	}

	// Redis only backs the ranking cache; the app runs without it.
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Warn("redis unavailable, ranking cache disabled", zap.Error(err))
			rdb = nil
		}
	}

	ai := service.NewAIService(cfg.AI)
	vectors, err := vectorstore.New(cfg.VectorStore.Dir, ai, cfg.Retrieval.OverfetchFactor)
	if err != nil {
		logger.Log.Fatal("initialize vector store", zap.Error(err))
	}

	app := &App{
		Config:  cfg,
		DB:      db,
		Redis:   rdb,
		Vectors: vectors,
	}

	repos := initRepositories(db)
	svcs := initServices(repos, cfg, vectors, rdb)
	ctls := initControllers(svcs, db, vectors)

	monitoring.Init()

	gin.SetMode(ginMode(cfg.Server.Mode))
	router := gin.Default()
	app.Router = router

	setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("course-qa", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, ctls)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
}

func ginMode(mode string) string {
	switch mode {
	case "debug", "test":
		return mode
	default:
		return gin.ReleaseMode
	}
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		logger.Log.Info("server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Log.Info("server exiting")
	logger.Log.Sync()
}
