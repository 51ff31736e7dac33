// Package server はカリキュラム閲覧と生成パイプラインを HTTP で公開します。
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shouni/artconnect-kit/pkg/config"
	"github.com/shouni/artconnect-kit/pkg/domain"
	"github.com/shouni/artconnect-kit/pkg/draft"
	"github.com/shouni/artconnect-kit/pkg/gallery"
	"github.com/shouni/artconnect-kit/pkg/identity"
	"github.com/shouni/artconnect-kit/pkg/studio"
)

// IdeaSource は授業の英語プロンプトと工作アイデアを提供します。*translator.Translator が満たします。
type IdeaSource interface {
	LessonPrompt(ctx context.Context, lessonTitle, topicTitle string, grade int, cred config.Credential) string
	SuggestIdeas(ctx context.Context, grade int, subject, topic string, cred config.Credential) []domain.IdeaSuggestion
}

// IdeaPreviewer はアイデアの見本画像を生成します。*generator.Generator が満たします。
type IdeaPreviewer interface {
	IdeaPreview(ctx context.Context, title, description string, cred config.Credential) *domain.ImageResponse
}

// Deps はハンドラが使う部品です。Previewer と Gatherer は省略できます。
type Deps struct {
	Curriculum *domain.Curriculum
	Resolver   *config.Resolver
	Ideas      IdeaSource
	Previewer  IdeaPreviewer
	Studio     *studio.Studio
	Gallery    *gallery.Adapter
	Drafts     *draft.Persister
	Issuer     *identity.Issuer
	Gatherer   prometheus.Gatherer
	Logger     *slog.Logger
}

// Options は HTTP サーバの任意設定です。
type Options struct {
	AllowedOrigins []string
	// StreamHeartbeat は SSE のコメント行を送る間隔です。0 なら 25 秒です。
	StreamHeartbeat time.Duration
	// MaxBodyBytes はリクエスト本文の上限です。0 なら DefaultMaxBodyBytes です。
	MaxBodyBytes int64
}

// DefaultMaxBodyBytes はプレビュー画像の data URI を含む保存要求が収まる大きさです。
const DefaultMaxBodyBytes = 16 << 20

// Server は HTTP ハンドラ群です。
type Server struct {
	deps      Deps
	opts      Options
	logger    *slog.Logger
	router    chi.Router
	heartbeat time.Duration
}

// New は Server を生成し、ルーティングを組み立てます。
func New(deps Deps, opts Options) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Gallery == nil {
		deps.Gallery = gallery.NewAdapter(nil, gallery.Options{})
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"https://*", "http://*"}
	}
	s := &Server{
		deps:      deps,
		opts:      opts,
		logger:    logger.With("component", "http"),
		heartbeat: opts.StreamHeartbeat,
	}
	if s.heartbeat <= 0 {
		s.heartbeat = 25 * time.Second
	}
	if s.opts.MaxBodyBytes <= 0 {
		s.opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	s.router = s.routes()
	return s
}

// ServeHTTP は http.Handler を満たします。
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestSize(s.opts.MaxBodyBytes))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(s.deps.Issuer.Authenticate)

	r.Get("/healthz", s.handleHealth)
	gatherer := s.deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/curriculum", s.handleCurriculum)
		r.Route("/lessons/{lessonID}", func(r chi.Router) {
			r.Get("/", s.handleLesson)
			r.Get("/ideas", s.handleLessonIdeas)
			r.Get("/prompt", s.handleLessonPrompt)
		})
		r.Post("/ideas/suggest", s.handleSuggestIdeas)

		r.Post("/auth/anonymous", s.handleSignIn)

		// 利用者ごとの資格情報と下書きを扱うルート
		r.Group(func(r chi.Router) {
			r.Use(identity.RequireUser)
			r.Route("/settings/api-key", func(r chi.Router) {
				r.Get("/", s.handleGetAPIKey)
				r.Put("/", s.handlePutAPIKey)
				r.Delete("/", s.handleDeleteAPIKey)
			})
			r.Post("/prompts/translate", s.handleTranslate)
			r.Post("/images/generate", s.handleGenerate)
			r.Get("/drafts/current", s.handleGetDraft)
			r.Put("/drafts/current", s.handlePutDraft)
		})

		r.Route("/artworks", func(r chi.Router) {
			r.Get("/", s.handleListArtworks)
			r.Get("/stream", s.handleStreamArtworks)
			r.Group(func(r chi.Router) {
				r.Use(identity.RequireUser)
				r.Post("/", s.handleSaveArtwork)
				r.Post("/{id}/visibility", s.handleToggleVisibility)
				r.Delete("/{id}", s.handleDeleteArtwork)
			})
		})
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.InfoContext(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(started),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	cred := s.deps.Resolver.Resolve(r.Context(), "")
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":            "ok",
		"credentialPresent": cred.Present(),
		"credentialSource":  cred.Source,
		"galleryConfigured": s.deps.Gallery.Configured(),
		"authConfigured":    s.deps.Issuer.Configured(),
	})
}

// Run は addr で待ち受け、ctx が終わると猶予付きで停止します。
func Run(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP サーバを起動します", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	logger.Info("HTTP サーバを停止します")
	return srv.Shutdown(shutdownCtx)
}
