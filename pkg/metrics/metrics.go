// Package metrics は生成パイプラインの Prometheus 指標です。
// すべてのメソッドは nil レシーバでも安全に呼べます。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 翻訳の結果区分
const (
	TranslationCacheHit = "cache_hit"
	TranslationNetwork  = "network"
	TranslationFallback = "fallback"
	TranslationNoKey    = "no_credential"
)

// プロバイダ試行の結果区分
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

type Metrics struct {
	ProviderAttempts   *prometheus.CounterVec
	ProviderDuration   *prometheus.HistogramVec
	Translations       *prometheus.CounterVec
	ArtworksSaved      *prometheus.CounterVec
	GallerySubscribers prometheus.Gauge
}

// New は reg に指標を登録します。reg が nil ならデフォルトレジストリです。
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		ProviderAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "artconnect_image_provider_attempts_total",
			Help: "Image provider attempts by provider and outcome",
		}, []string{"provider", "outcome"}),
		ProviderDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "artconnect_image_provider_duration_seconds",
			Help:    "Latency of image provider calls",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}, []string{"provider"}),
		Translations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "artconnect_translations_total",
			Help: "Prompt translations by outcome",
		}, []string{"outcome"}),
		ArtworksSaved: f.NewCounterVec(prometheus.CounterOpts{
			Name: "artconnect_artworks_saved_total",
			Help: "Artwork save attempts by outcome",
		}, []string{"outcome"}),
		GallerySubscribers: f.NewGauge(prometheus.GaugeOpts{
			Name: "artconnect_gallery_subscribers",
			Help: "Current number of live gallery subscriptions",
		}),
	}
}

func (m *Metrics) ProviderAttempt(provider, outcome string, elapsed time.Duration) {
	if m == nil || m.ProviderAttempts == nil {
		return
	}
	m.ProviderAttempts.WithLabelValues(provider, outcome).Inc()
	if outcome != OutcomeSkipped && m.ProviderDuration != nil {
		m.ProviderDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) Translation(outcome string) {
	if m == nil || m.Translations == nil {
		return
	}
	m.Translations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ArtworkSaved(err error) {
	if m == nil || m.ArtworksSaved == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.ArtworksSaved.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SubscriberAdded() {
	if m == nil || m.GallerySubscribers == nil {
		return
	}
	m.GallerySubscribers.Inc()
}

func (m *Metrics) SubscriberRemoved() {
	if m == nil || m.GallerySubscribers == nil {
		return
	}
	m.GallerySubscribers.Dec()
}
