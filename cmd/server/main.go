package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dimiro1/banner"

	"github.com/coachline/coachline/pkg/analysis"
	openaianalyzer "github.com/coachline/coachline/pkg/analysis/openai"
	"github.com/coachline/coachline/pkg/bridge"
	"github.com/coachline/coachline/pkg/coach"
	"github.com/coachline/coachline/pkg/coachline"
	"github.com/coachline/coachline/pkg/configutil"
	"github.com/coachline/coachline/pkg/logging"
	"github.com/coachline/coachline/pkg/registry"
	"github.com/coachline/coachline/pkg/store"
	"github.com/coachline/coachline/pkg/store/memory"
	"github.com/coachline/coachline/pkg/store/postgres"
	"github.com/coachline/coachline/pkg/stt"
)

const version = "dev"

type postgresSettings struct {
	DSN string `mapstructure:"dsn"`
}

type openAISettings struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := coachline.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	logger := logging.InitLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	printBanner()

	st, err := buildStore(cfg.Store)
	if err != nil {
		logger.Error("store_init_failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	analyzer, err := buildAnalyzer(cfg.Analyzer, logger)
	if err != nil {
		logger.Error("analyzer_init_failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	sttCfg := cfg.Speech.SessionConfig()
	runnerCfg := cfg.Coach.RunnerConfig()
	factory := func(call coach.CallRef) registry.Session {
		runner := analysis.NewRunner(call.CallID, st, analyzer, runnerCfg, logger)
		return stt.NewSession(call, sttCfg, st, runner, logger)
	}
	hub := registry.New(factory, logger)
	br := bridge.New(cfg.Bridge, hub, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := br.Start(ctx); err != nil {
		logger.Error("bridge_start_failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("coachline_ready",
		slog.String("addr", cfg.Bridge.Addr),
		slog.String("environment", cfg.Environment))

	<-ctx.Done()
	logger.Info("shutting_down")
	_ = br.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	hub.CloseAll(shutdownCtx)
}

func buildStore(cfg coachline.ProviderConfig) (store.Store, error) {
	switch cfg.Provider {
	case "postgres":
		var settings postgresSettings
		if err := configutil.DecodeSettings(cfg.Settings, &settings); err != nil {
			return nil, err
		}
		if err := configutil.RequireString(settings.DSN, "store.settings.dsn"); err != nil {
			return nil, err
		}
		return postgres.Open(settings.DSN)
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store provider %q", cfg.Provider)
	}
}

func buildAnalyzer(cfg coachline.ProviderConfig, logger *slog.Logger) (analysis.Analyzer, error) {
	switch cfg.Provider {
	case "openai":
		var settings openAISettings
		if err := configutil.DecodeSettings(cfg.Settings, &settings); err != nil {
			return nil, err
		}
		if err := configutil.RequireString(settings.APIKey, "analyzer.settings.api_key"); err != nil {
			return nil, err
		}
		return openaianalyzer.New(openaianalyzer.Config{
			APIKey:  settings.APIKey,
			Model:   settings.Model,
			BaseURL: settings.BaseURL,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown analyzer provider %q", cfg.Provider)
	}
}

func printBanner() {
	tpl := "{{ .Title \"COACHLINE\" \"\" 0 }}\nVersion: " + version + "\n"
	banner.Init(os.Stdout, true, true, bytes.NewBufferString(tpl))
}
