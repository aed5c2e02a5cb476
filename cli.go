package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/fachebot/talk-wrapup/internal/config"
	"github.com/fachebot/talk-wrapup/internal/logger"
	"github.com/fachebot/talk-wrapup/internal/model"
	"github.com/fachebot/talk-wrapup/internal/scheduler"
	"github.com/fachebot/talk-wrapup/internal/svc"
	"github.com/fachebot/talk-wrapup/internal/wrapup"
)

func newCLIApp() *cli.App {
	app := &cli.App{
		Name:    "talk-wrapup",
		Usage:   "Turn chat session logs into a transcript and an AI recap",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"f"}, Value: "etc/config.yaml", Usage: "the config file"},
			&cli.StringFlag{Name: "log-level", Value: "debug", Usage: "console log level"},
		},
		Before: func(c *cli.Context) error {
			return logger.SetLevel(c.String("log-level"))
		},
		Commands: []*cli.Command{
			buildCmd(),
			importCmd(),
			runsCmd(),
			watchCmd(),
		},
	}
	// 测试中需要拿到错误返回，不直接退出
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// withService 读取配置并创建服务上下文，执行完毕后关闭
func withService(c *cli.Context, fn func(svcCtx *svc.ServiceContext) error) error {
	cfg, err := config.LoadFromFile(c.String("config"))
	if err != nil {
		return fmt.Errorf("读取配置文件失败, %w", err)
	}

	svcCtx, err := svc.NewServiceContext(c.Context, cfg)
	if err != nil {
		return err
	}
	defer svcCtx.Close()

	return fn(svcCtx)
}

func readEntriesFile(path, session string) ([]*model.EntryData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return model.ReadEntriesJSONL(f, session)
}

func toLogEntries(items []*model.EntryData) []wrapup.LogEntry {
	entries := make([]wrapup.LogEntry, len(items))
	for i, item := range items {
		entries[i] = wrapup.LogEntry{Timestamp: item.Timestamp, UserName: item.UserName, Content: item.Content}
	}
	return entries
}

// buildCmd 从会话或文件生成一次 wrapup
func buildCmd() *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "Write <name>_transcript.log and (optionally) <name>_outline.md",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Required: true, Usage: "Output file name prefix"},
			&cli.StringFlag{Name: "session", Aliases: []string{"s"}, Usage: "Read entries of this session from the store"},
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "Read entries from a JSON lines file"},
			&cli.BoolFlag{Name: "no-outline", Usage: "Only write the transcript"},
		},
		Action: func(c *cli.Context) error {
			session, input := c.String("session"), c.String("input")
			if (session == "") == (input == "") {
				return fmt.Errorf("必须且只能指定 --session 或 --input 其中之一")
			}

			return withService(c, func(svcCtx *svc.ServiceContext) error {
				var entries []wrapup.LogEntry
				if input != "" {
					items, err := readEntriesFile(input, "")
					if err != nil {
						return fmt.Errorf("读取记录文件失败: %w", err)
					}
					entries = toLogEntries(items)
				} else {
					items, err := svcCtx.EntryModel.ListBySession(c.Context, session)
					if err != nil {
						return fmt.Errorf("获取记录失败: %w", err)
					}
					entries = wrapup.FromModel(items)
				}

				name := c.String("name")
				run, err := svcCtx.RunModel.Create(c.Context, name, session)
				if err != nil {
					return fmt.Errorf("创建执行记录失败: %w", err)
				}

				result, err := svcCtx.Builder.Build(c.Context, entries, name, !c.Bool("no-outline"))
				if err != nil {
					if markErr := svcCtx.RunModel.MarkFailed(context.WithoutCancel(c.Context), run.ID, err.Error()); markErr != nil {
						logger.Errorf("[Build] 更新执行记录失败 (id=%s): %v", run.ID, markErr)
					}
					return err
				}

				outlinePath, _ := result.OutlinePath()
				if err := svcCtx.RunModel.MarkCompleted(c.Context, run.ID, result.ChatlogPath, outlinePath, result.Outline.Status.String()); err != nil {
					return err
				}

				fmt.Fprintf(c.App.Writer, "chatlog: %s\n", result.ChatlogPath)
				switch result.Outline.Status {
				case wrapup.OutlineProduced:
					fmt.Fprintf(c.App.Writer, "outline: %s\n", result.Outline.Path)
					if result.Outline.HTMLPath != "" {
						fmt.Fprintf(c.App.Writer, "outline html: %s\n", result.Outline.HTMLPath)
					}
				case wrapup.OutlineSkipped:
					fmt.Fprintln(c.App.Writer, "outline: skipped (no API key configured)")
				}
				return nil
			})
		},
	}
}

// importCmd 将 JSON lines 文件导入存储
func importCmd() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import a JSON lines entry dump into the store",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "session", Aliases: []string{"s"}, Required: true, Usage: "Session the entries belong to"},
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Required: true, Usage: "JSON lines file"},
		},
		Action: func(c *cli.Context) error {
			return withService(c, func(svcCtx *svc.ServiceContext) error {
				items, err := readEntriesFile(c.String("input"), c.String("session"))
				if err != nil {
					return fmt.Errorf("读取记录文件失败: %w", err)
				}
				n, err := svcCtx.EntryModel.CreateBatch(c.Context, items)
				if err != nil {
					return fmt.Errorf("导入记录失败: %w", err)
				}
				logger.Infof("[Import] 会话 %s 导入 %d 条记录", c.String("session"), n)
				fmt.Fprintf(c.App.Writer, "imported: %d\n", n)
				return nil
			})
		},
	}
}

// runsCmd 列出执行记录
func runsCmd() *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "List recorded wrap-up runs",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Required: true, Usage: "Output file name prefix"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Maximum runs to list"},
		},
		Action: func(c *cli.Context) error {
			return withService(c, func(svcCtx *svc.ServiceContext) error {
				runs, err := svcCtx.RunModel.ListByName(c.Context, c.String("name"), c.Int("limit"))
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tSTATUS\tOUTLINE\tCREATED\tERROR")
				for _, r := range runs {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Status, r.OutlineStatus, r.CreatedAt.Format("2006-01-02 15:04:05"), r.ErrorMessage)
				}
				return w.Flush()
			})
		},
	}
}

// watchCmd 按 Schedule 配置定时生成 wrapup，直到收到退出信号
func watchCmd() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Run scheduled wrap-ups until interrupted",
		Action: func(c *cli.Context) error {
			return withService(c, func(svcCtx *svc.ServiceContext) error {
				s := scheduler.NewScheduler(svcCtx.Builder, svcCtx.EntryModel, svcCtx.RunModel, &svcCtx.Config.Schedule)
				if err := s.Start(); err != nil {
					return err
				}

				ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				<-ctx.Done()

				logger.Infof("正在关闭服务...")
				s.Stop()
				logger.Infof("服务已停止")
				return nil
			})
		},
	}
}
