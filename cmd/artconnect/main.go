// Package main は artconnect の CLI です。
//
// サーバの起動:
//
//	artconnect serve --config artconnect.yaml
//
// カリキュラムとアイデアの確認:
//
//	artconnect curriculum --grade 3
//	artconnect ideas G3_T2_L1
//
// 1枚だけ生成して保存:
//
//	artconnect generate G3_T2_L1 "Bữa cơm gia đình" --style Watercolor --out dinner.jpg --save
//
// APIキーは GEMINI_API_KEY（旧名 VITE_GEMINI_API_KEY）で渡します。
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shouni/artconnect-kit/pkg/config"
)

// ldflags で埋め込まれます。
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("コマンドの実行に失敗しました", "error", err)
		os.Exit(1)
	}
}

type rootFlags struct {
	configPath string
	envFile    string
}

func buildRootCmd() *cobra.Command {
	flags := &rootFlags{}
	rootCmd := &cobra.Command{
		Use:          "artconnect",
		Short:        "小学校の図工授業向けカリキュラム閲覧と AI 作画パイプライン",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", os.Getenv("ARTCONNECT_CONFIG"), "YAML 設定ファイルのパス")
	rootCmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "読み込む .env ファイル")

	rootCmd.AddCommand(
		buildServeCmd(flags),
		buildCurriculumCmd(),
		buildIdeasCmd(),
		buildGenerateCmd(flags),
		buildVersionCmd(),
	)
	return rootCmd
}

// loadConfig は設定を読み、ログ出力を設定どおりに切り替えます。
func loadConfig(flags *rootFlags) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(flags.configPath, flags.envFile)
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(cfg.Level))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "バージョンを表示します",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "artconnect %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}
