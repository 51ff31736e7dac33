package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shouni/artconnect-kit/pkg/config"
	"github.com/shouni/artconnect-kit/pkg/curriculum"
	"github.com/shouni/artconnect-kit/pkg/domain"
	"github.com/shouni/artconnect-kit/pkg/imgutil"
	"github.com/shouni/artconnect-kit/pkg/server"
	"github.com/shouni/artconnect-kit/pkg/studio"
)

func buildServeCmd(flags *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "HTTP サーバを起動します",
		Long: `カリキュラム閲覧・翻訳・画像生成・ギャラリーの HTTP API を起動します。
SIGINT / SIGTERM で猶予付きで停止します。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					logger.Warn("ストアのクローズに失敗しました", "error", err)
				}
			}()

			unsubscribe := a.resolver.Subscribe(func(owner string, c config.Credential) {
				logger.Info("資格情報が変更されました", "owner", owner, "source", c.Source, "present", c.Present())
			})
			defer unsubscribe()

			h := server.New(server.Deps{
				Curriculum: a.curriculum,
				Resolver:   a.resolver,
				Ideas:      a.translator,
				Previewer:  a.generator,
				Studio:     a.studio,
				Gallery:    a.gallery,
				Drafts:     a.drafts,
				Issuer:     a.issuer,
				Gatherer:   a.registry,
				Logger:     logger,
			}, server.Options{AllowedOrigins: cfg.Server.AllowedOrigins})

			logger.Info("artconnect を起動します",
				"providers", a.generator.Providers(),
				"store", cfg.Store.Driver,
				"kv", cfg.KV.Driver,
				"credential", a.resolver.Resolve(ctx, "").Source,
			)
			return server.Run(ctx, cfg.Server.Addr, h, logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "待ち受けアドレス（設定より優先）")
	return cmd
}

func buildCurriculumCmd() *cobra.Command {
	var grade int
	cmd := &cobra.Command{
		Use:   "curriculum",
		Short: "組み込みカリキュラムを木構造で表示します",
		RunE: func(cmd *cobra.Command, args []string) error {
			cur, err := curriculum.Default()
			if err != nil {
				return err
			}
			return printCurriculum(cmd.OutOrStdout(), cur, grade)
		},
	}
	cmd.Flags().IntVarP(&grade, "grade", "g", 0, "表示する学年（0 なら全学年）")
	return cmd
}

func printCurriculum(w io.Writer, cur *domain.Curriculum, grade int) error {
	for _, g := range cur.Grades() {
		if grade != 0 && g.Grade != grade {
			continue
		}
		fmt.Fprintf(w, "Lớp %d\n", g.Grade)
		for _, t := range g.Topics {
			fmt.Fprintf(w, "  [%s] %s\n", t.ID, t.Name)
			for _, l := range t.Lessons {
				fmt.Fprintf(w, "    [%s] %s\n", l.ID, l.Name)
			}
		}
	}
	return nil
}

func buildIdeasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ideas <lessonID>",
		Short: "授業のアイデア一覧を表示します",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cur, err := curriculum.Default()
			if err != nil {
				return err
			}
			ref, ok := cur.Lesson(args[0])
			if !ok {
				return fmt.Errorf("授業が見つかりません: %s", args[0])
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s\n", ref.Lesson.Name)
			for _, idea := range curriculum.IdeasForLesson(ref.Lesson.Name) {
				fmt.Fprintf(w, "  [%s] (%s) %s\n", idea.ID, idea.Level, idea.NativeText())
			}
			return nil
		},
	}
}

type generateFlags struct {
	style   string
	ideaID  string
	out     string
	save    bool
	userID  string
	private bool
}

func buildGenerateCmd(flags *rootFlags) *cobra.Command {
	gf := &generateFlags{}
	cmd := &cobra.Command{
		Use:   "generate <lessonID> [nativeText]",
		Short: "翻訳・生成・圧縮を1回実行して画像を書き出します",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(flags)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			native := ""
			if len(args) == 2 {
				native = args[1]
			}
			return runGenerate(ctx, cmd.OutOrStdout(), a, args[0], native, gf)
		},
	}
	cmd.Flags().StringVarP(&gf.style, "style", "s", string(domain.DefaultStyle), "画風")
	cmd.Flags().StringVar(&gf.ideaID, "idea", "", "nativeText の代わりに使うアイデアID")
	cmd.Flags().StringVarP(&gf.out, "out", "o", "artwork.jpg", "書き出す JPEG ファイル")
	cmd.Flags().BoolVar(&gf.save, "save", false, "ギャラリーにも保存する")
	cmd.Flags().StringVar(&gf.userID, "user", "", "保存時の利用者ID（省略時は新しく発行）")
	cmd.Flags().BoolVar(&gf.private, "private", false, "非公開で保存する")
	return cmd
}

func runGenerate(ctx context.Context, w io.Writer, a *app, lessonID, native string, gf *generateFlags) error {
	ref, ok := a.curriculum.Lesson(lessonID)
	if !ok {
		return fmt.Errorf("授業が見つかりません: %s", lessonID)
	}
	style, err := domain.ParseStyle(gf.style)
	if err != nil {
		return err
	}

	uid := gf.userID
	if uid == "" {
		uid = uuid.NewString()
	}

	var d domain.Draft
	if gf.ideaID != "" {
		d, err = a.studio.SelectIdea(ctx, uid, ref, gf.ideaID, style)
	} else {
		d, err = a.studio.Translate(ctx, uid, ref, native, style)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "prompt: %s\n", d.PromptTextEN)

	res, err := a.studio.Generate(ctx, uid, ref, d.PromptTextEN, style)
	if err != nil {
		return err
	}
	compressed, err := imgutil.CompressToDataURI(res.Image.Data, imgutil.DefaultOptions())
	if err != nil {
		return err
	}
	jpegBytes, _, err := imgutil.DecodeDataURI(compressed)
	if err != nil {
		return err
	}
	if err := os.WriteFile(gf.out, jpegBytes, 0o644); err != nil {
		return fmt.Errorf("画像の書き出しに失敗しました: %w", err)
	}
	fmt.Fprintf(w, "provider: %s\nwrote: %s (%d bytes)\n", res.Image.Provider, gf.out, len(jpegBytes))

	if !gf.save {
		return nil
	}
	vis := domain.VisibilityPublic
	if gf.private {
		vis = domain.VisibilityPrivate
	}
	art, err := a.studio.Save(ctx, studio.SaveInput{
		UserID:     uid,
		Lesson:     ref,
		Visibility: vis,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "saved: %s (user %s, %s)\n", art.ID, uid, art.Visibility)
	return nil
}
