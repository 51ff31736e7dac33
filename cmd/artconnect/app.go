package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/shouni/artconnect-kit/pkg/adapters"
	"github.com/shouni/artconnect-kit/pkg/config"
	"github.com/shouni/artconnect-kit/pkg/curriculum"
	"github.com/shouni/artconnect-kit/pkg/domain"
	"github.com/shouni/artconnect-kit/pkg/draft"
	"github.com/shouni/artconnect-kit/pkg/gallery"
	"github.com/shouni/artconnect-kit/pkg/gallery/sqlite"
	"github.com/shouni/artconnect-kit/pkg/generator"
	"github.com/shouni/artconnect-kit/pkg/identity"
	"github.com/shouni/artconnect-kit/pkg/kvstore"
	"github.com/shouni/artconnect-kit/pkg/metrics"
	"github.com/shouni/artconnect-kit/pkg/studio"
	"github.com/shouni/artconnect-kit/pkg/translator"
)

// app は設定から組み立てた部品一式です。
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	registry   *prometheus.Registry
	curriculum *domain.Curriculum
	kv         kvstore.Store
	resolver   *config.Resolver
	translator *translator.Translator
	generator  *generator.Generator
	gallery    *gallery.Adapter
	drafts     *draft.Persister
	studio     *studio.Studio
	issuer     *identity.Issuer
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cur, err := curriculum.Default()
	if err != nil {
		return nil, fmt.Errorf("カリキュラムの読み込みに失敗しました: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	kv, err := kvstore.Open(ctx, kvstore.Options{
		Driver:    cfg.KV.Driver,
		Path:      cfg.KV.Path,
		RedisAddr: cfg.KV.RedisAddr,
		RedisDB:   cfg.KV.RedisDB,
		Prefix:    cfg.KV.Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("KV ストアを開けませんでした: %w", err)
	}

	backend, err := openGallery(ctx, cfg.Store)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}
	if backend == nil {
		logger.Warn("ギャラリーストアが無効です。作品の保存はできません")
	}

	pool := adapters.NewClientPool(nil)
	resolver := config.NewResolver(kv, cfg.Gemini.APIKey, logger)
	tr := translator.New(pool, translator.Options{
		Model:     cfg.Gemini.TextModel,
		CacheSize: cfg.Translator.CacheSize,
		Metrics:   m,
		Logger:    logger,
	})

	providers, err := generator.BuildProviders(cfg.Generator.Providers, pool, cfg.Gemini, cfg.Fallback)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}
	gen, err := generator.New(providers, generator.Options{
		Timeout:     cfg.Generator.RequestTimeout,
		AspectRatio: cfg.Gemini.AspectRatio,
		Metrics:     m,
		Logger:      logger,
	})
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	adapter := gallery.NewAdapter(backend, gallery.Options{Metrics: m, Logger: logger})
	drafts := draft.NewPersister(kv, logger)
	st, err := studio.New(studio.Deps{
		Resolver:   resolver,
		Translator: tr,
		Generator:  gen,
		Gallery:    adapter,
		Drafts:     drafts,
	}, studio.Options{
		RatePerMinute: cfg.Generator.RatePerMinute,
		Burst:         cfg.Generator.Burst,
		Logger:        logger,
	})
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	return &app{
		cfg:        cfg,
		logger:     logger,
		registry:   reg,
		curriculum: cur,
		kv:         kv,
		resolver:   resolver,
		translator: tr,
		generator:  gen,
		gallery:    adapter,
		drafts:     drafts,
		studio:     st,
		issuer:     identity.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
	}, nil
}

// openGallery は設定のドライバでギャラリーストアを開きます。none は nil を返します。
func openGallery(ctx context.Context, cfg config.StoreConfig) (gallery.Backend, error) {
	switch cfg.Driver {
	case "none", "":
		return nil, nil
	case "memory":
		return gallery.NewMemoryBackend(), nil
	case "sqlite":
		return sqlite.NewStore(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("未知のストアドライバです: %q", cfg.Driver)
	}
}

func (a *app) Close() error {
	return errors.Join(a.gallery.Close(), a.kv.Close())
}
