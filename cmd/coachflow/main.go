package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/peakform/coachflow/pkg/backend"
	"github.com/peakform/coachflow/pkg/config"
	"github.com/peakform/coachflow/pkg/funcexec"
	"github.com/peakform/coachflow/pkg/health"
	"github.com/peakform/coachflow/pkg/metrics"
	"github.com/peakform/coachflow/pkg/orchestrator"
	"github.com/peakform/coachflow/pkg/route"
	"github.com/peakform/coachflow/pkg/store"
)

var (
	backendFlag string
	userFlag    string
	verboseFlag bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "coachflow",
		Short: "Hybrid request orchestration engine for an AI coaching app",
		Long: `Coachflow turns free text into a classified intent, picks the cheapest
	processing strategy able to answer it, streams the response, executes
	any function the model requests, and records routing outcomes.`,
	}

	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "backend to use (openai, anthropic, google, mock)")
	rootCmd.PersistentFlags().StringVar(&userFlag, "user", "local", "user identifier for routing decisions")
	rootCmd.PersistentFlags().BoolVar(&verboseFlag, "verbose", false, "enable debug logging")

	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(routesCmd())
	rootCmd.AddCommand(functionsCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive coaching session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			logger := newLogger()
			cfgStore := config.NewStore(cfg.Settings)
			client, err := selectBackend(cfg)
			if err != nil {
				return err
			}
			logger.Info().Str("backend", client.Name()).Msg("backend selected")

			engine := orchestrator.New(orchestrator.Options{
				ConversationID: "cli",
				UserID:         userFlag,
				Backend:        client,
				Store:          selectStore(cfg),
				Health:         &health.Static{},
				Config:         cfgStore,
				Metrics:        metrics.NewRecorder(logger, cfgStore, nil),
				Logger:         logger,
			})

			fmt.Println("coachflow ready. Type a message, or 'exit' to quit.")
			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					break
				}
				text := strings.TrimSpace(scanner.Text())
				if text == "" {
					continue
				}
				if text == "exit" || text == "quit" {
					break
				}

				if err := engine.ProcessUserMessage(cmd.Context(), text); err != nil {
					// User-facing text is already in the state; the raw
					// error only goes to the log.
					logger.Debug().Err(err).Msg("turn error")
				}
				fmt.Println(engine.State().CurrentResponse)
			}
			return scanner.Err()
		},
	}
}

func routesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes [input]",
		Short: "Show the routing decision for a sample input",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			settings := config.NewStore(cfg.Settings).Snapshot()

			input := strings.Join(args, " ")
			strategy := route.Decide(userFlag, input, nil, route.UserContext{}, settings)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "route:\t%s\n", strategy.Route)
			fmt.Fprintf(w, "reason:\t%s\n", strategy.Reason)
			fmt.Fprintf(w, "fallback:\t%v\n", strategy.FallbackEnabled)
			return w.Flush()
		},
	}
}

func functionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "functions",
		Short: "List the registered functions",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := funcexec.DefaultRegistry()

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tDESCRIPTION")
			for _, def := range registry.Definitions() {
				fmt.Fprintf(w, "%s\t%s\n", def.Name, def.Description)
			}
			return w.Flush()
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change routing configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the current routing configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			settings := cfg.Settings

			pairs := map[string]string{
				"hybrid_enabled":                 fmt.Sprintf("%v", settings.HybridEnabled),
				"hybrid_percentage":              fmt.Sprintf("%.2f", settings.HybridPercentage),
				"forced_route":                   string(settings.ForcedRoute),
				"fallback_enabled":               fmt.Sprintf("%v", settings.FallbackEnabled),
				"direct_ai_timeout_ms":           fmt.Sprintf("%d", settings.DirectAITimeoutMs),
				"token_efficiency_threshold":     fmt.Sprintf("%d", settings.TokenEfficiencyThreshold),
				"nutrition_confidence_threshold": fmt.Sprintf("%.2f", settings.NutritionConfidenceThreshold),
				"request_timeout_ms":             fmt.Sprintf("%d", settings.RequestTimeoutMs),
				"history_limit":                  fmt.Sprintf("%d", settings.HistoryLimit),
				"monitoring_enabled":             fmt.Sprintf("%v", settings.MonitoringEnabled),
			}
			keys := make([]string, 0, len(pairs))
			for k := range pairs {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, k := range keys {
				fmt.Fprintf(w, "%s\t%s\n", k, pairs[k])
			}
			return w.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [key] [value]",
		Short: "Set a routing configuration field (clamped to its safe range)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			cfgStore := config.NewStore(cfg.Settings)
			if err := cfgStore.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := config.SaveSettings(cfg.SettingsPath(), cfgStore.Snapshot()); err != nil {
				return err
			}
			fmt.Printf("saved %s\n", args[0])
			return nil
		},
	})

	return cmd
}

func selectBackend(cfg *config.Config) (backend.Client, error) {
	name := backendFlag
	if name == "" {
		switch {
		case cfg.HasBackend("openai"):
			name = "openai"
		case cfg.HasBackend("anthropic"):
			name = "anthropic"
		case cfg.HasBackend("google"):
			name = "google"
		default:
			name = "mock"
		}
	}

	switch name {
	case "openai":
		return backend.NewOpenAI(cfg.OpenAIAPIKey, "")
	case "anthropic":
		return backend.NewAnthropic(cfg.AnthropicAPIKey, "")
	case "google":
		return backend.NewGoogle(cfg.GoogleAPIKey, "")
	case "mock":
		return backend.NewMock(), nil
	}
	return nil, fmt.Errorf("unknown backend %q", name)
}

func selectStore(cfg *config.Config) store.Store {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(context.Background()).Err(); err == nil {
			return store.NewRedis(client)
		}
	}
	return store.NewMemory()
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verboseFlag {
		level = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}
