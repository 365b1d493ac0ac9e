package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"alcyxob/coaching-app/internal/api"
	"alcyxob/coaching-app/internal/config"
	"alcyxob/coaching-app/internal/logger"
	"alcyxob/coaching-app/internal/notify"
	"alcyxob/coaching-app/internal/repository"
	"alcyxob/coaching-app/internal/repository/memory"
	"alcyxob/coaching-app/internal/repository/mongo"
	"alcyxob/coaching-app/internal/service"
	"alcyxob/coaching-app/internal/storage"
	"alcyxob/coaching-app/internal/worker"
)

// stores is the persistence backend selected by database.driver.
type stores struct {
	users          repository.UserRepository
	questionnaires repository.QuestionnaireRepository
	plans          repository.PlanRepository
	jobs           repository.JobRepository
	tx             repository.Transactor
	close          func()
}

func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load config: %v\n", err)
		os.Exit(1)
	}

	appLog, err := logger.New(cfg.Log.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not build logger: %v\n", err)
		os.Exit(1)
	}
	defer appLog.Sync()
	appLog.Info("starting coaching app server", "database_driver", cfg.Database.Driver, "address", cfg.Server.Address)

	if cfg.JWT.Secret == "" {
		appLog.Fatal("jwt.secret must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Persistence ---
	st, err := openStores(ctx, cfg.Database, appLog)
	if err != nil {
		appLog.Fatal("could not open storage backend", "error", err)
	}
	defer st.close()

	// --- Collaborators ---
	files := openFileStorage(ctx, cfg.S3, appLog)
	notifier := openNotifier(ctx, cfg.Redis, appLog)
	dispatcher, inProcess := newDispatcher(cfg.Worker, appLog)

	// --- Services ---
	tracker := service.NewJobTracker(service.JobTrackerDeps{
		Jobs:           st.jobs,
		Plans:          st.plans,
		Questionnaires: st.questionnaires,
		Tx:             st.tx,
		Dispatcher:     dispatcher,
		Notifier:       notifier,
		Log:            appLog,
	}, service.JobTrackerConfig{
		JobTimeout:      cfg.Generation.JobTimeout,
		DispatchTimeout: cfg.Worker.DispatchTimeout,
		CallbackBaseURL: cfg.Worker.CallbackBaseURL,
	})
	if inProcess != nil {
		inProcess.Bind(tracker)
	}
	lineage := service.NewLineageResolver(st.plans, st.questionnaires)

	svc := api.Services{
		Auth:           service.NewAuthService(st.users, cfg.JWT.Secret, cfg.JWT.Expiration),
		Coach:          service.NewCoachService(st.users),
		Tracker:        tracker,
		Plans:          service.NewPlanService(st.plans, lineage, files, appLog),
		Questionnaires: service.NewQuestionnaireService(st.questionnaires),
		Lineage:        lineage,
		Sessions:       service.NewSessionService(st.questionnaires, st.plans, st.jobs),
	}

	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		tracker.RunSweeper(ctx, cfg.Generation.SweepInterval)
	}()

	// --- HTTP ---
	if cfg.Log.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), api.RequestLogger(appLog))
	api.SetupRoutes(router, cfg.JWT.Secret, cfg.Worker.Token, svc, appLog)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("ListenAndServe error", "error", err)
		}
	}()
	appLog.Info("server listening", "address", cfg.Server.Address)

	<-ctx.Done()
	appLog.Info("shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		appLog.Error("server forced to shutdown", "error", err)
	}
	<-sweeperDone
	tracker.Wait()
	if inProcess != nil {
		inProcess.Wait()
	}
	appLog.Info("server exiting")
}

func openStores(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*stores, error) {
	switch cfg.Driver {
	case "memory":
		log.Warn("using in-memory store; data is lost on restart")
		m := memory.New()
		return &stores{
			users:          m.Users(),
			questionnaires: m.Questionnaires(),
			plans:          m.Plans(),
			jobs:           m.Jobs(),
			tx:             m,
			close:          func() {},
		}, nil
	case "mongo", "":
		client, err := mongo.ConnectDB(cfg.URI)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		db := client.Database(cfg.Name)

		idxCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if err := mongo.EnsureIndexes(idxCtx, db); err != nil {
			_ = mongo.DisconnectDB(client)
			return nil, fmt.Errorf("ensure indexes: %w", err)
		}
		log.Info("database connection established", "database", cfg.Name, "transactions", cfg.Transactions)

		return &stores{
			users:          mongo.NewMongoUserRepository(db),
			questionnaires: mongo.NewMongoQuestionnaireRepository(db),
			plans:          mongo.NewMongoPlanRepository(db),
			jobs:           mongo.NewMongoJobRepository(db),
			tx:             mongo.NewTransactor(client, cfg.Transactions),
			close: func() {
				if err := mongo.DisconnectDB(client); err != nil {
					log.Error("failed to disconnect mongo", "error", err)
				}
			},
		}, nil
	default:
		return nil, fmt.Errorf("unknown database.driver %q", cfg.Driver)
	}
}

func openFileStorage(ctx context.Context, cfg config.S3Config, log *logger.Logger) storage.FileStorage {
	if cfg.BucketName == "" {
		log.Warn("s3.bucket_name not set; plan PDF attachments disabled")
		return storage.Disabled{}
	}
	files, err := storage.NewS3Storage(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialize S3 storage", "error", err)
	}
	return files
}

func openNotifier(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) notify.JobNotifier {
	if cfg.Addr == "" {
		return notify.Noop{}
	}
	rdb, err := notify.Dial(ctx, cfg.Addr)
	if err != nil {
		log.Warn("redis unavailable; job events will not be published", "addr", cfg.Addr, "error", err)
		return notify.Noop{}
	}
	return notify.NewRedisNotifier(rdb, cfg.Channel, log)
}

// newDispatcher returns the in-process worker as its second result when it
// is selected, so main can bind it to the tracker.
func newDispatcher(cfg config.WorkerConfig, log *logger.Logger) (worker.Dispatcher, *worker.InProcess) {
	switch cfg.URL {
	case "":
		log.Warn("worker.url not set; every generation will fail to dispatch")
		return worker.Unconfigured{}, nil
	case config.WorkerInProcess:
		log.Warn("using the in-process echo worker")
		w := worker.NewInProcess(worker.Echo, cfg.InProcessDelay, log)
		return w, w
	default:
		return worker.NewHTTPDispatcher(cfg.URL, cfg.Token, cfg.DispatchTimeout, log), nil
	}
}
