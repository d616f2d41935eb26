package app

import (
	"context"
	"course_study_backend/internal/config"
	"course_study_backend/internal/controller"
	"course_study_backend/internal/repository"
	"course_study_backend/internal/service"
	"course_study_backend/internal/util"
	"course_study_backend/pkg/configwatcher"
	"course_study_backend/pkg/database"
	"course_study_backend/pkg/email"
	"course_study_backend/pkg/logger"
	"course_study_backend/pkg/messaging"
	"course_study_backend/pkg/monitoring"
	"course_study_backend/pkg/security"
	"course_study_backend/pkg/session"
	"course_study_backend/pkg/tracing"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const configDir = "configs"

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	RabbitMQ        *messaging.RabbitMQClient
	Sessions        session.Store
	services        *services
	current         atomic.Pointer[config.Config]
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
	cancel          context.CancelFunc
}

type repositories struct {
	user         *repository.UserRepository
	student      *repository.StudentRepository
	course       *repository.CourseRepository
	test         *repository.TestDefinitionRepository
	testInstance *repository.TestInstanceRepository
	view         *repository.ViewRepository
}

type services struct {
	auth       *service.AuthService
	storage    *service.StorageService
	student    *service.StudentService
	course     *service.CourseService
	generator  *service.TestGenerator
	instance   *service.TestInstanceService
	retake     *service.RetakeService
	view       *service.ViewTrackingService
	mailer     *email.SMTPClient
	dispatcher *service.MailDispatcher
}

type controllers struct {
	auth         *controller.AuthController
	course       *controller.CourseController
	courseImport *controller.CourseImportController
	test         *controller.TestController
	retake       *controller.RetakeController
	student      *controller.StudentController
	health       *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// CurrentConfig 热更新后返回最新配置
func (a *App) CurrentConfig() *config.Config {
	return a.current.Load()
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:         repository.NewUserRepository(db),
		student:      repository.NewStudentRepository(db),
		course:       repository.NewCourseRepository(db),
		test:         repository.NewTestDefinitionRepository(db),
		testInstance: repository.NewTestInstanceRepository(db),
		view:         repository.NewViewRepository(db),
	}
}

// notifier 启用 RabbitMQ 时异步发送，否则直接走 SMTP
func (a *App) notifier(mailer *email.SMTPClient, cfg *config.Config) service.Notifier {
	if a.RabbitMQ != nil {
		return service.NewQueueNotifier(a.RabbitMQ, cfg.RabbitMQ.NotificationQueue)
	}
	return service.NewMailNotifier(mailer)
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	clock := util.SystemClock{}
	rnd := util.NewRandomSource(cfg.Course.RandomSeed)
	mailer := email.NewSMTPClient(&cfg.SMTP)
	notifier := a.notifier(mailer, cfg)

	storage := service.NewStorageService(cfg)
	views := service.NewViewTrackingService(repos.view, clock, cfg.Course.MaximumIdleTimeSeconds)
	generator := service.NewTestGenerator(repos.test, repos.testInstance, rnd)
	retake := service.NewRetakeService(repos.testInstance, repos.test, repos.student, repos.user,
		generator, notifier, clock, cfg.Server.PublicURL)

	return &services{
		auth:       service.NewAuthService(repos.user, clock, cfg),
		storage:    storage,
		student:    service.NewStudentService(repos.student, repos.user, storage, notifier, clock, cfg),
		course:     service.NewCourseService(repos.course, repos.test, views, retake, clock, cfg.Course),
		generator:  generator,
		instance:   service.NewTestInstanceService(repos.testInstance, clock),
		retake:     retake,
		view:       views,
		mailer:     mailer,
		dispatcher: service.NewMailDispatcher(mailer),
	}
}

func (a *App) initControllers(s *services) *controllers {
	recorder := controller.NewViewRecorder(s.view, a.Sessions)
	return &controllers{
		auth:         controller.NewAuthController(s.auth),
		course:       controller.NewCourseController(s.course, recorder),
		courseImport: controller.NewCourseImportController(s.course),
		test:         controller.NewTestController(s.course, s.generator, s.instance, recorder),
		retake:       controller.NewRetakeController(s.retake),
		student:      controller.NewStudentController(s.student),
		health:       controller.NewHealthController(a.DB, a.Redis),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) initSessionStore(cfg *config.Config) session.Store {
	if cfg.Session.Store == "memory" {
		logger.Log.Warn("Using in-memory session store; sessions are lost on restart")
		return session.NewMemoryStore(cfg.Session.TTL)
	}
	return session.NewRedisStore(a.Redis, cfg.Session.TTL)
}

// startBackgroundTasks 启动通知队列消费者
func (a *App) startBackgroundTasks(ctx context.Context, s *services) {
	if a.RabbitMQ == nil {
		return
	}
	deliveries, err := a.RabbitMQ.Consume(a.Config.RabbitMQ.NotificationQueue)
	if err != nil {
		logger.Log.Error("Failed to consume notification queue", zap.Error(err))
		return
	}
	go s.dispatcher.Run(ctx, deliveries)
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// release 模式下默认不自动迁移
	if cfg.Server.Mode != "release" || cfg.ForceMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
		logger.Log.Info("Database migrated")
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}
	app.current.Store(cfg)
	if cfg.MigrateOnly {
		return app
	}

	if cfg.Session.Store != "memory" {
		rdb, err := database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
			log.Fatalf("Failed to initialize redis: %v", err)
		}
		app.Redis = rdb
	}

	if cfg.RabbitMQ.Enabled {
		mq, err := messaging.NewRabbitMQClient(&cfg.RabbitMQ)
		if err != nil {
			logger.Log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		if _, err := mq.DeclareQueue(cfg.RabbitMQ.NotificationQueue); err != nil {
			logger.Log.Fatal("Failed to declare notification queue", zap.Error(err))
		}
		app.RabbitMQ = mq
	}

	app.Sessions = app.initSessionStore(cfg)

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg)
	app.services = services
	controllers := app.initControllers(services)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("course-study", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.registerRoutes(router, controllers, services)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.RegisterConfigCallback(func(c *config.Config) {
		logger.SetMode(c.Server.Mode)
	})

	ctx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel
	app.startBackgroundTasks(ctx, services)

	return app
}

// watchConfig 配置变更时替换当前配置并依次回调
func (a *App) watchConfig(ctx context.Context) {
	file := filepath.Join(configDir, "config.yaml")
	err := configwatcher.WatchConfig(ctx, file, func(cfg *config.Config) {
		cfg.ForceMigrate = a.Config.ForceMigrate
		a.current.Store(cfg)
		for _, cb := range a.configCallbacks {
			cb(cfg)
		}
		logger.Log.Info("Config reloaded", zap.String("mode", cfg.Server.Mode))
	})
	if err != nil {
		logger.Log.Error("Config watcher stopped", zap.Error(err))
	}
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	go a.watchConfig(watchCtx)

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	a.Close(ctx)
	logger.Log.Info("Server exiting")
}

// Close 停止后台任务并释放外部连接
func (a *App) Close(ctx context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
	if a.RabbitMQ != nil {
		if err := a.RabbitMQ.Close(); err != nil {
			logger.Log.Warn("Failed to close RabbitMQ", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
}
