package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"dircal/internal/cal"
	"dircal/internal/config"
	"dircal/internal/export"
	applog "dircal/internal/log"
	"dircal/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	once       bool
	days       int
	backfill   int
	exportPath string
	logLevel   string
}

func main() {
	flags := parseFlags()
	applog.SetLevel(applog.ParseLevel(flags.logLevel))
	applog.Info("dircal starting")

	conf, err := config.Load(flags.configPath)
	if err != nil {
		applog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.days > 0 {
		conf.HorizonDays = flags.days
	}
	if flags.backfill >= 0 {
		conf.BackfillDays = flags.backfill
	}
	if flags.logLevel == "" && conf.LogLevel != "" {
		applog.SetLevel(applog.ParseLevel(conf.LogLevel))
	}

	applog.Info("effective config",
		"listen", conf.Listen,
		"refresh", conf.RefreshCron,
		"horizon_days", conf.HorizonDays,
		"backfill_days", conf.BackfillDays,
		"calendar_count", len(conf.Calendars),
		"once", flags.once,
	)

	if flags.once {
		if err := runOnce(conf, flags.exportPath); err != nil {
			applog.Error("single-shot run failed", err)
			os.Exit(1)
		}
		return
	}

	runServe(conf)
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", defaultConfigPath(), "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Load calendars, print the day view, and exit")
	flag.IntVar(&cfg.days, "days", 0, "Future days to cover (overrides config if > 0)")
	flag.IntVar(&cfg.backfill, "backfill", -1, "Past days to include (overrides config if >= 0)")
	flag.StringVar(&cfg.exportPath, "export", "", "With -once: also write the window as an iCalendar file")
	flag.StringVar(&cfg.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	flag.Parse()

	return cfg
}

func defaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir + "/dircal/config.yaml"
	}
	return "./dircal.yaml"
}

// runOnce loads everything, prints an agenda for the configured window to
// stdout, and optionally writes the same window as an ICS file.
func runOnce(conf *config.Config, exportPath string) error {
	sources := make([]cal.SourceDir, 0, len(conf.Calendars))
	for _, cc := range conf.Calendars {
		if cc.Path == "" {
			continue
		}
		sources = append(sources, cal.SourceDir{Dir: cc.Path, Name: cc.Name})
	}
	if len(sources) == 0 {
		return fmt.Errorf("no calendar directories configured")
	}

	entries := cal.AllEntries(cal.LoadCalendars(sources))

	now := time.Now()
	windowStart := cal.StartOfDay(now.AddDate(0, 0, -conf.BackfillDays))
	windowEnd := cal.StartOfDay(now.AddDate(0, 0, conf.HorizonDays)).Add(24*time.Hour - time.Second)

	days, todayIndex := cal.BuildDayView(entries, windowStart, windowEnd, now)
	printAgenda(days, todayIndex)

	if exportPath != "" {
		f, err := os.Create(exportPath)
		if err != nil {
			return fmt.Errorf("create export file: %w", err)
		}
		defer f.Close()
		if err := export.WriteICS(f, cal.ExpandAll(entries, windowStart, windowEnd)); err != nil {
			return fmt.Errorf("write ICS export: %w", err)
		}
		applog.Info("ICS export written", "path", exportPath)
	}

	return nil
}

func printAgenda(days []cal.Day, todayIndex int) {
	for i, d := range days {
		marker := ""
		if i == todayIndex {
			marker = "  <- today"
		}
		fmt.Printf("%s%s\n", d.Date.Format("2006-01-02 Monday"), marker)

		for _, item := range d.Items {
			occ := item.Occurrence
			when := "all day"
			if !occ.AllDay {
				when = occ.Start.Format("15:04")
				if occ.HasEnd {
					when += "-" + occ.End.Format("15:04")
				}
			} else if item.Span != cal.SpanNone {
				when = "all day (" + item.Span.String() + ")"
			}
			fmt.Printf("  %-22s %s [%s]\n", when, occ.Summary, occ.Calendar)
		}
	}
}

// runServe starts the HTTP server and a cron-driven snapshot refresh, and
// blocks until SIGINT/SIGTERM.
func runServe(conf *config.Config) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		applog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	srv := web.NewServer(conf)

	c := cron.New()
	if _, err := c.AddFunc(conf.RefreshCron, srv.Refresh); err != nil {
		applog.Error("invalid refresh cron spec, periodic reload disabled", err, "spec", conf.RefreshCron)
	} else {
		c.Start()
		defer c.Stop()
	}

	if err := web.StartServer(ctx, srv); err != nil {
		applog.Error("HTTP server stopped", err)
		os.Exit(1)
	}

	applog.Info("dircal exiting")
}
