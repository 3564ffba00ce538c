package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/studyd/internal/app"
	"github.com/sandeepkv93/studyd/internal/config"
	"github.com/sandeepkv93/studyd/internal/scheduler"
	"github.com/sandeepkv93/studyd/internal/storage"
	"github.com/sandeepkv93/studyd/internal/update"
	"github.com/sandeepkv93/studyd/internal/views"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", os.Getenv("STUDYD_CONFIG"), "path to a yaml config file")
	logPath := flag.String("log", "", "log file (defaults to stderr for commands, discarded for the dashboard)")
	flag.Parse()

	cfg, err := config.Resolve(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "studyd: invalid config: %v\n", err)
		return 2
	}

	oneShot := flag.NArg() > 0
	logOut := io.Writer(io.Discard)
	if oneShot {
		logOut = os.Stderr
	}
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "studyd: open log: %v\n", err)
			return 1
		}
		defer f.Close()
		logOut = f
	}
	logger := cfg.Logger(logOut)

	repo, err := storage.OpenSQLite(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "studyd: open database: %v\n", err)
		return 1
	}
	defer repo.Close()

	a := app.New(cfg, repo, app.WithLogger(logger))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if oneShot {
		res, err := a.Run(ctx, strings.Join(flag.Args(), " "))
		if err != nil {
			fmt.Fprintln(os.Stderr, app.Describe(err))
			return 1
		}
		out := res.Message
		if res.Markdown {
			out = views.RenderMarkdown(out)
		}
		fmt.Println(out)
		return 0
	}

	engine := scheduler.NewEngine(cfg.SchedulerBuffer)
	engine.Start()
	defer engine.Stop()
	runner := scheduler.NewRunner(engine, logger)

	reminders := make(chan scheduler.Job, 16)
	notify := func(job scheduler.Job) {
		select {
		case reminders <- job:
		default:
			logger.Warn("reminder dropped", "job", job.ID)
		}
	}
	if err := a.AttachJobs(ctx, engine, runner, notify); err != nil {
		logger.Error("queue jobs", "err", err)
	}
	go func() {
		if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("job runner stopped", "err", err)
		}
	}()

	program := tea.NewProgram(update.NewModel(ctx, a, reminders), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "studyd failed: %v\n", err)
		return 1
	}
	return 0
}
