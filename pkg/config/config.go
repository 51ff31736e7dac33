// Package config はアプリ全体の設定と、APIキーの解決（利用者指定 → 環境既定）を扱います。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/shouni/artconnect-kit/pkg/utils"
)

const envPrefix = "ARTCONNECT_"

// Config は全コンポーネントの設定です。
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	Fallback   FallbackConfig   `yaml:"fallback"`
	Generator  GeneratorConfig  `yaml:"generator"`
	Translator TranslatorConfig `yaml:"translator"`
	Store      StoreConfig      `yaml:"store"`
	KV         KVConfig         `yaml:"kv"`
	Auth       AuthConfig       `yaml:"auth"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
}

type GeminiConfig struct {
	// APIKey は環境で用意された既定キーです。利用者指定のキーが優先されます。
	APIKey      string `yaml:"api_key"`
	TextModel   string `yaml:"text_model"`
	ImagenModel string `yaml:"imagen_model"`
	ImageModel  string `yaml:"image_model"`
	AspectRatio string `yaml:"aspect_ratio"`
}

type FallbackConfig struct {
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	SSRFGuard bool   `yaml:"ssrf_guard"`
}

type GeneratorConfig struct {
	// Providers は試行順のプロバイダ名です（imagen, gemini-image, pollinations）。
	Providers      []string      `yaml:"providers"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RatePerMinute  int           `yaml:"rate_per_minute"`
	Burst          int           `yaml:"burst"`
}

type TranslatorConfig struct {
	// CacheSize が 0 のときはセッション寿命の無期限キャッシュ、正の値なら LRU の上限件数です。
	CacheSize int `yaml:"cache_size"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"` // memory | sqlite | none
	DSN    string `yaml:"dsn"`
}

type KVConfig struct {
	Driver    string `yaml:"driver"` // memory | sqlite | redis
	Path      string `yaml:"path"`
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
	Prefix    string `yaml:"prefix"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// Default は組み込みの既定値です。
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		Log:    LogConfig{Level: "info", Format: "text"},
		Gemini: GeminiConfig{
			TextModel:   "gemini-2.0-flash",
			ImagenModel: "imagen-3.0-generate-001",
			ImageModel:  "gemini-2.5-flash-image",
			AspectRatio: "1:1",
		},
		Fallback: FallbackConfig{
			BaseURL: "https://image.pollinations.ai",
			Model:   "flux",
			Width:   1024,
			Height:  1024,
		},
		Generator: GeneratorConfig{
			Providers:      []string{"imagen", "pollinations"},
			RequestTimeout: 90 * time.Second,
			RatePerMinute:  30,
			Burst:          2,
		},
		Store: StoreConfig{Driver: "sqlite", DSN: "artconnect.db"},
		KV:    KVConfig{Driver: "sqlite", Path: "artconnect-kv.db", Prefix: "artconnect:"},
		Auth:  AuthConfig{TokenTTL: 30 * 24 * time.Hour},
	}
}

// Load は 既定値 → YAML → .env → 環境変数 の順に設定を重ねます。
// path が空なら YAML は読みません。
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗しました: %w", err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), cfg); err != nil {
			return nil, fmt.Errorf("設定ファイルの解析に失敗しました: %w", err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// 既存の環境変数は上書きしない
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf(".env の読み込みに失敗しました (%s): %w", f, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate は設定値の整合性を確認します。
func (c *Config) Validate() error {
	if len(c.Generator.Providers) == 0 {
		return fmt.Errorf("generator.providers must not be empty")
	}
	if c.Generator.RequestTimeout < 0 {
		return fmt.Errorf("generator.request_timeout must not be negative")
	}
	if c.Translator.CacheSize < 0 {
		return fmt.Errorf("translator.cache_size must not be negative")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format: %q", c.Log.Format)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	// 既定キーは VITE_ 付きの旧名も受け付ける
	cfg.Gemini.APIKey = utils.FirstNonEmpty(os.Getenv(envPrefix+"GEMINI_API_KEY"), os.Getenv("GEMINI_API_KEY"), os.Getenv("VITE_GEMINI_API_KEY"), cfg.Gemini.APIKey)

	setString(&cfg.Server.Addr, "ADDR")
	setList(&cfg.Server.AllowedOrigins, "ALLOWED_ORIGINS")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")
	setString(&cfg.Gemini.TextModel, "TEXT_MODEL")
	setString(&cfg.Gemini.ImagenModel, "IMAGEN_MODEL")
	setString(&cfg.Gemini.ImageModel, "IMAGE_MODEL")
	setString(&cfg.Gemini.AspectRatio, "ASPECT_RATIO")
	setString(&cfg.Fallback.BaseURL, "FALLBACK_BASE_URL")
	setString(&cfg.Fallback.Model, "FALLBACK_MODEL")
	setList(&cfg.Generator.Providers, "PROVIDERS")
	setString(&cfg.Store.Driver, "STORE_DRIVER")
	setString(&cfg.Store.DSN, "STORE_DSN")
	setString(&cfg.KV.Driver, "KV_DRIVER")
	setString(&cfg.KV.Path, "KV_PATH")
	setString(&cfg.KV.RedisAddr, "REDIS_ADDR")
	setString(&cfg.KV.Prefix, "KV_PREFIX")
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")

	ints := []struct {
		dst *int
		key string
	}{
		{&cfg.Fallback.Width, "FALLBACK_WIDTH"},
		{&cfg.Fallback.Height, "FALLBACK_HEIGHT"},
		{&cfg.Generator.RatePerMinute, "RATE_PER_MINUTE"},
		{&cfg.Generator.Burst, "RATE_BURST"},
		{&cfg.Translator.CacheSize, "TRANSLATION_CACHE_SIZE"},
		{&cfg.KV.RedisDB, "REDIS_DB"},
	}
	for _, it := range ints {
		if err := setInt(it.dst, it.key); err != nil {
			return err
		}
	}
	if err := setDuration(&cfg.Generator.RequestTimeout, "REQUEST_TIMEOUT"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Auth.TokenTTL, "TOKEN_TTL"); err != nil {
		return err
	}
	if v, ok := lookup("SSRF_GUARD"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sSSRF_GUARD: %w", envPrefix, err)
		}
		cfg.Fallback.SSRFGuard = b
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func setString(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func setList(dst *[]string, key string) {
	v, ok := lookup(key)
	if !ok {
		return
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	*dst = out
}

func setInt(dst *int, key string) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	*dst = d
	return nil
}
