package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/kakomon/admin/internal/analysis"
	"github.com/kakomon/admin/internal/apiclient"
	"github.com/kakomon/admin/internal/auth"
	"github.com/kakomon/admin/internal/catalog"
	"github.com/kakomon/admin/internal/config"
	"github.com/kakomon/admin/internal/documents"
	"github.com/kakomon/admin/internal/questions"
	"github.com/kakomon/admin/internal/web"
)

// Server is the admin web app.
type Server struct {
	cfg      *config.Config
	log      *zap.Logger
	registry *prometheus.Registry
	client   *apiclient.Client
	analysis *analysis.Service
	render   *web.Renderer
	handler  http.Handler
}

// New wires every page against the configured backend. Background analyses
// live until ctx is cancelled.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Server, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	client := apiclient.New(ClientOptions(cfg), log, reg)
	render, err := web.NewRenderer(cfg.App.Environment, log)
	if err != nil {
		return nil, err
	}

	tracker := analysis.NewTracker()
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "kakomon",
		Name:      "analysis_open_modals",
		Help:      "Analysis modals currently open.",
	}, func() float64 { return float64(tracker.Len()) }))

	s := &Server{
		cfg:      cfg,
		log:      log,
		registry: reg,
		client:   client,
		analysis: analysis.NewService(ctx, client, tracker, log),
		render:   render,
	}
	s.handler = s.routes()
	return s, nil
}

// ClientOptions maps the api section of the config onto client options.
func ClientOptions(cfg *config.Config) apiclient.Options {
	policy := apiclient.DefaultAnalysisPolicy()
	policy.MaxAttempts = cfg.API.AnalysisAttempts
	policy.BaseTimeout = cfg.API.AnalysisBaseTimeout
	policy.RetryAll = cfg.API.RetryAll
	return apiclient.Options{
		BaseURL:  cfg.API.BaseURL,
		Timeout:  cfg.API.Timeout,
		Analysis: policy,
	}
}

func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	codec := auth.NewSessionCodec(s.cfg.Session.Secret, s.cfg.Session.Cookie)

	authHandler := auth.NewHandler(s.render)
	catalogHandler := catalog.NewHandler(s.client, s.render, s.log)
	docHandler := documents.NewHandler(s.client, s.render, s.log)
	questionHandler := questions.NewHandler(questions.NewService(s.client, s.log), s.render, s.log)
	analysisHandler := analysis.NewHandler(s.analysis, s.client, s.render, s.log)

	r := mux.NewRouter()
	r.Use(web.RequestID, web.AccessLog(s.log))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		web.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "backend": s.client.BaseURL()})
	}).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods("GET")

	// Session-aware routes
	app := r.PathPrefix("/").Subrouter()
	app.Use(auth.Middleware(codec, s.log))

	app.HandleFunc("/", authHandler.Home).Methods("GET")
	app.HandleFunc("/login", authHandler.LoginPage).Methods("GET")
	app.HandleFunc("/login", authHandler.Login).Methods("POST")
	app.HandleFunc("/login/guest", authHandler.Guest).Methods("POST")
	app.HandleFunc("/logout", authHandler.Logout).Methods("POST")
	app.HandleFunc("/api/session", authHandler.Session).Methods("GET")

	// Signed-in or guest routes
	session := app.NewRoute().Subrouter()
	session.Use(auth.RequireSession)
	session.HandleFunc("/catalog", catalogHandler.Page).Methods("GET")
	session.HandleFunc("/api/catalog", catalogHandler.API).Methods("GET")
	session.HandleFunc("/pdfs/{id:[0-9]+}/view", docHandler.View).Methods("GET")

	session.HandleFunc("/pdfs/{id:[0-9]+}/analysis", analysisHandler.Start).Methods("POST")
	session.HandleFunc("/analysis", analysisHandler.Modal).Methods("GET")
	session.HandleFunc("/api/analysis", analysisHandler.State).Methods("GET")
	session.HandleFunc("/analysis/close", analysisHandler.Close).Methods("POST")

	session.Handle("/api/pdfs/{id:[0-9]+}/questions", auth.RequireAdmin(http.HandlerFunc(questionHandler.List))).Methods("GET")

	// Admin routes
	admin := session.PathPrefix("/admin").Subrouter()
	admin.Use(auth.RequireAdmin)
	admin.HandleFunc("/upload", docHandler.UploadPage).Methods("GET")
	admin.HandleFunc("/upload/file", docHandler.UploadFile).Methods("POST")
	admin.HandleFunc("/upload/url", docHandler.DownloadURL).Methods("POST")
	admin.HandleFunc("/upload/crawl", docHandler.Crawl).Methods("POST")
	admin.HandleFunc("/pdfs/{id:[0-9]+}/edit", docHandler.Edit).Methods("POST")
	admin.HandleFunc("/pdfs/{id:[0-9]+}/questions", questionHandler.Page).Methods("GET")
	admin.HandleFunc("/pdfs/{id:[0-9]+}/questions", questionHandler.Add).Methods("POST")
	admin.HandleFunc("/pdfs/{id:[0-9]+}/questions/batch", questionHandler.Batch).Methods("POST")
	admin.HandleFunc("/pdfs/{id:[0-9]+}/questions/{qid:[0-9]+}/edit", questionHandler.EditPage).Methods("GET")
	admin.HandleFunc("/pdfs/{id:[0-9]+}/questions/{qid:[0-9]+}/edit", questionHandler.Update).Methods("POST")
	admin.HandleFunc("/pdfs/{id:[0-9]+}/questions/{qid:[0-9]+}/delete", questionHandler.Delete).Methods("POST")
	admin.HandleFunc("/question-types", questionHandler.CreateType).Methods("POST")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.render.Render(w, http.StatusNotFound, "error", web.Page{Title: "ページが見つかりません"})
	})

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Address,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("backend", s.client.BaseURL()),
			zap.String("environment", s.cfg.App.Environment),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	s.log.Info("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.analysis.Wait()
	return nil
}
