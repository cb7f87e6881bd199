package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/becomepro/backend/internal/articles"
	"github.com/becomepro/backend/internal/auth"
	"github.com/becomepro/backend/internal/config"
	"github.com/becomepro/backend/internal/db"
	"github.com/becomepro/backend/internal/middleware"
	notesBox "github.com/becomepro/backend/internal/notes_box"
	"github.com/becomepro/backend/internal/profile"
	"github.com/becomepro/backend/internal/telemetry/metrics"
	"github.com/becomepro/backend/internal/telemetry/tracing"
	"github.com/becomepro/backend/internal/trainings"
	"github.com/becomepro/backend/pkg"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config *config.Config
	dbPool *pgxpool.Pool

	redisClient  *redis.Client
	loginChecker *auth.LoginChecker
	authService  *auth.Service
	usersRepo    *auth.UsersRepo

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                 *config.Config
	VersionInfo            string
	RedisPassword          string
	TracingEnabled         bool
	SessionCleanupInterval time.Duration
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         params.Config.PostgresHost,
		DBPort:         params.Config.PostgresPort,
		DBName:         params.Config.PostgresDBName,
		TracingEnabled: params.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": params.Config.PostgresDBName},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("backend", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(params.Config.RedisHost, params.Config.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	usersRepo := auth.NewUsersRepo(dbPool)
	authService := auth.NewAuthService(auth.DefaultTTL, usersRepo, rdb)

	cleanupInterval := params.SessionCleanupInterval
	if cleanupInterval == 0 {
		cleanupInterval = 8 * time.Hour
	}
	go func() {
		for range time.Tick(cleanupInterval) {
			authService.ScanAndClean(ctx)
		}
	}()

	otelShutdown, err := tracing.Setup(params.TracingEnabled, "becomepro-backend")
	if err != nil {
		return nil, err
	}

	return &Server{
		config:      params.Config,
		dbPool:      dbPool,
		versionInfo: params.VersionInfo,

		redisClient:  rdb,
		authService:  authService,
		usersRepo:    usersRepo,
		loginChecker: auth.NewLoginChecker(auth.DefaultTTL, rdb),

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))

	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		pkg.WriteTextResponseOK(w, "I am OK, thanks ;)")
	}).Methods("GET").Name("root")
	r.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		pkg.WriteTextResponseOK(w, s.versionInfo)
	}).Methods("GET").Name("version")

	api := r.PathPrefix("/api").Subrouter()

	reqRateLimiter := redis_rate.NewLimiter(s.redisClient)
	authHandler := auth.NewHandler(s.authService, s.metricsManager)
	api.HandleFunc("/register", authHandler.HandleRegister).Methods("POST", "OPTIONS").Name("register")
	api.Handle("/login", middleware.RateLimit(
		reqRateLimiter, "login",
		s.config.LoginRateLimitAllowedPerMin,
		s.metricsManager,
	)(http.HandlerFunc(authHandler.HandleLogin))).Methods("POST", "OPTIONS").Name("login")
	api.HandleFunc("/logout", authHandler.HandleLogout).Methods("POST", "OPTIONS").Name("logout")

	profileHandler := profile.NewHandler(s.usersRepo)
	api.HandleFunc("/profile", profileHandler.HandleGet).Methods("GET", "OPTIONS").Name("get-profile")
	api.HandleFunc("/profile", profileHandler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-profile")

	taxonomyHandler := trainings.NewTaxonomyHandler(trainings.NewTaxonomyRepo(s.dbPool))
	api.HandleFunc("/trainings/categories", taxonomyHandler.HandleListCategories).Methods("GET", "OPTIONS").Name("list-categories")
	api.HandleFunc("/trainings/categories", taxonomyHandler.HandleAddCategory).Methods("POST", "OPTIONS").Name("new-category")
	api.HandleFunc("/trainings/categories/{id}", taxonomyHandler.HandleUpdateCategory).Methods("PUT", "OPTIONS").Name("update-category")
	api.HandleFunc("/trainings/categories/{id}", taxonomyHandler.HandleDeleteCategory).Methods("DELETE", "OPTIONS").Name("delete-category")
	api.HandleFunc("/trainings/exercises", taxonomyHandler.HandleListExercises).Methods("GET", "OPTIONS").Name("list-exercises")
	api.HandleFunc("/trainings/exercises", taxonomyHandler.HandleAddExercise).Methods("POST", "OPTIONS").Name("new-exercise")
	api.HandleFunc("/trainings/exercises/{id}", taxonomyHandler.HandleGetExercise).Methods("GET", "OPTIONS").Name("get-exercise")
	api.HandleFunc("/trainings/exercises/{id}", taxonomyHandler.HandleUpdateExercise).Methods("PUT", "OPTIONS").Name("update-exercise")
	api.HandleFunc("/trainings/exercises/{id}", taxonomyHandler.HandleDeleteExercise).Methods("DELETE", "OPTIONS").Name("delete-exercise")

	sessionsHandler := trainings.NewSessionsHandler(trainings.NewSessionsRepo(s.dbPool), s.metricsManager)
	api.HandleFunc("/trainings/sessions", sessionsHandler.HandleList).Methods("GET", "OPTIONS").Name("list-sessions")
	api.HandleFunc("/trainings/sessions", sessionsHandler.HandleAdd).Methods("POST", "OPTIONS").Name("new-session")
	api.HandleFunc("/trainings/sessions/{id}", sessionsHandler.HandleGet).Methods("GET", "OPTIONS").Name("get-session")
	api.HandleFunc("/trainings/sessions/{id}", sessionsHandler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-session")
	api.HandleFunc("/trainings/sessions/{id}", sessionsHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-session")

	logsHandler := trainings.NewLogsHandler(trainings.NewLogsRepo(s.dbPool))
	api.HandleFunc("/trainings/sessions/{sessionId}/logs", logsHandler.HandleList).Methods("GET", "OPTIONS").Name("list-logs")
	api.HandleFunc("/trainings/sessions/{sessionId}/logs", logsHandler.HandleAdd).Methods("POST", "OPTIONS").Name("new-log")
	api.HandleFunc("/trainings/logs/{id}", logsHandler.HandleGet).Methods("GET", "OPTIONS").Name("get-log")
	api.HandleFunc("/trainings/logs/{id}", logsHandler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-log")
	api.HandleFunc("/trainings/logs/{id}", logsHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-log")

	setsHandler := trainings.NewSetsHandler(trainings.NewSetsRepo(s.dbPool), s.metricsManager)
	api.HandleFunc("/trainings/logs/{logId}/sets", setsHandler.HandleList).Methods("GET", "OPTIONS").Name("list-sets")
	api.HandleFunc("/trainings/logs/{logId}/sets", setsHandler.HandleAdd).Methods("POST", "OPTIONS").Name("new-set")
	api.HandleFunc("/trainings/sets/{id}", setsHandler.HandleGet).Methods("GET", "OPTIONS").Name("get-set")
	api.HandleFunc("/trainings/sets/{id}", setsHandler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-set")
	api.HandleFunc("/trainings/sets/{id}", setsHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-set")

	progressHandler := trainings.NewProgressHandler(trainings.NewAnalyzer(s.dbPool))
	api.HandleFunc("/trainings/progress/history", progressHandler.HandleHistory).Methods("GET", "OPTIONS").Name("progress-history")
	api.HandleFunc("/trainings/progress/volume", progressHandler.HandleVolume).Methods("GET", "OPTIONS").Name("progress-volume")
	api.HandleFunc("/trainings/progress/max", progressHandler.HandleMax).Methods("GET", "OPTIONS").Name("progress-max")

	articlesHandler := articles.NewHandler(articles.NewRepo(s.dbPool))
	api.HandleFunc("/articles", articlesHandler.HandleList).Methods("GET", "OPTIONS").Name("list-articles")
	api.HandleFunc("/articles", articlesHandler.HandleAdd).Methods("POST", "OPTIONS").Name("new-article")
	api.HandleFunc("/articles/{id}", articlesHandler.HandleGet).Methods("GET", "OPTIONS").Name("get-article")
	api.HandleFunc("/articles/{id}", articlesHandler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-article")
	api.HandleFunc("/articles/{id}", articlesHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-article")

	notesHandler := notesBox.NewHandler(notesBox.NewRepo(s.dbPool), s.metricsManager)
	api.HandleFunc("/notes", notesHandler.HandleList).Methods("GET", "OPTIONS").Name("list-notes")
	api.HandleFunc("/notes", notesHandler.HandleUpsert).Methods("POST", "OPTIONS").Name("upsert-note")
	api.HandleFunc("/notes/date/{date}", notesHandler.HandleGetByDate).Methods("GET", "OPTIONS").Name("get-note-by-date")
	api.HandleFunc("/notes/{id}", notesHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-note")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "DELETE", "OPTIONS").Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.loginChecker)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors())
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) Serve(host string, port int) {
	router := s.routerSetup()

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{},
	))
	metricsAddr := net.JoinHostPort(
		s.config.PrometheusMetricsHost,
		strconv.Itoa(s.config.PrometheusMetricsPort),
	)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown http server")
		}
		log.Warnln("server shut down")
	}

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown metrics http server")
		}
		log.Warnln("metrics server shut down")
	}
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
