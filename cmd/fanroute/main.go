package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zen-systems/fanroute/pkg/adapter"
	"github.com/zen-systems/fanroute/pkg/config"
	"github.com/zen-systems/fanroute/pkg/engine"
	"github.com/zen-systems/fanroute/pkg/registry"
	"github.com/zen-systems/fanroute/pkg/server"
	"github.com/zen-systems/fanroute/pkg/stats"
)

var (
	configFile      string
	temperatureFlag float64
	maxTokensFlag   int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fanroute",
		Short: "LLM routing and aggregation engine",
		Long: `Fanroute routes each prompt to the model best suited for it, or fans
	the prompt out to every configured model in parallel and aggregates the
	responses, either by selecting the judged best answer or by synthesizing
	all answers into one.`,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config file")

	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(bestCmd())
	rootCmd.AddCommand(synthCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(modelsCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func askCmd() *cobra.Command {
	var explainFlag bool

	cmd := &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Route a prompt to the best model and print its answer",
		Long: `Classifies the prompt against every registered model's strengths and
	historical win statistics, then sends it to the selected model.

	Use --explain to also print the routing decision.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngine(nil)
			if err != nil {
				return err
			}

			response, analysis, err := eng.RouteWithMetadata(
				context.Background(), promptMessages(args[0]), completionOpts())
			if err != nil {
				return err
			}

			if explainFlag {
				fmt.Fprintf(os.Stderr, "Selected %s (confidence %.2f): %s\n",
					analysis.SelectedModel, analysis.Confidence, analysis.Reasoning)
			}
			fmt.Println(response)
			return nil
		},
	}

	cmd.Flags().BoolVar(&explainFlag, "explain", false, "print the routing decision to stderr")
	addCompletionFlags(cmd)
	return cmd
}

func bestCmd() *cobra.Command {
	var showMetadata bool

	cmd := &cobra.Command{
		Use:   "best [prompt]",
		Short: "Query every model in parallel and print the judged best answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngine(nil)
			if err != nil {
				return err
			}

			response, metadata, err := eng.ParallelBest(
				context.Background(), promptMessages(args[0]), completionOpts())
			if err != nil {
				return err
			}

			if showMetadata {
				printMetadataJSON(metadata)
			}
			fmt.Println(response)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showMetadata, "metadata", false, "print aggregation metadata to stderr")
	addCompletionFlags(cmd)
	return cmd
}

func synthCmd() *cobra.Command {
	var showMetadata bool

	cmd := &cobra.Command{
		Use:   "synth [prompt]",
		Short: "Query every model in parallel and synthesize one merged answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngine(nil)
			if err != nil {
				return err
			}

			response, metadata, err := eng.ParallelSynthesize(
				context.Background(), promptMessages(args[0]), completionOpts())
			if err != nil {
				return err
			}

			if showMetadata {
				printMetadataJSON(metadata)
			}
			fmt.Println(response)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showMetadata, "metadata", false, "print aggregation metadata to stderr")
	addCompletionFlags(cmd)
	return cmd
}

func analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [prompt]",
		Short: "Show the routing decision for a prompt without calling any model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngine(nil)
			if err != nil {
				return err
			}

			analysis, err := eng.Analyze(context.Background(), args[0])
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(analysis, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}
}

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List registered models and their status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(configFile)
			if err != nil {
				return err
			}
			reg, err := cfg.Registry()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tNAME\tMODEL\tCOST/1K\tSTRENGTHS\tSTATUS")

			for _, key := range reg.Keys() {
				profile, _ := reg.Get(key)
				status := "no key"
				if cfg.HasBackend(profile.Provider) {
					status = "ready"
				}
				name := profile.Key
				if name == reg.DefaultKey() {
					name += " (default)"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t$%.4f\t%s\t%s\n",
					name, profile.Name, profile.QualifiedID(), profile.CostPer1K,
					strings.Join(profile.Strengths, ", "), status)
			}

			return w.Flush()
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the win histogram from the statistics log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(configFile)
			if err != nil {
				return err
			}
			store, err := stats.NewFileStore(cfg.StatsPath)
			if err != nil {
				return err
			}

			summary, err := store.Summarize()
			if err != nil {
				return err
			}
			if len(summary) == 0 {
				fmt.Println("No statistics recorded yet.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CATEGORY\tMODEL\tWINS")

			categories := make([]string, 0, len(summary))
			for category := range summary {
				categories = append(categories, category)
			}
			sort.Strings(categories)

			for _, category := range categories {
				wins := summary[category]
				leader, _ := summary.Leader(category)

				keys := make([]string, 0, len(wins))
				for key := range wins {
					keys = append(keys, key)
				}
				sort.Strings(keys)
				for _, key := range keys {
					marker := ""
					if key == leader {
						marker = " *"
					}
					fmt.Fprintf(w, "%s\t%s\t%d%s\n", category, key, wins[key], marker)
				}
			}

			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Println("\n* most wins in category")
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	var addrFlag string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := zap.NewProduction()
			if err != nil {
				return err
			}
			defer logger.Sync()

			eng, err := buildEngine(logger)
			if err != nil {
				return err
			}

			cfg, err := config.LoadFrom(configFile)
			if err != nil {
				return err
			}
			addr := cfg.ListenAddr
			if addrFlag != "" {
				addr = addrFlag
			}

			logger.Info("listening", zap.String("addr", addr))
			return http.ListenAndServe(addr, server.New(eng, logger))
		},
	}

	cmd.Flags().StringVar(&addrFlag, "addr", "", "listen address (overrides config)")
	return cmd
}

// buildEngine wires config, backends, registry, and the statistics store
// into an engine. Models whose provider has no API key are dropped from the
// registry so fan-out never hits an unconfigured backend.
func buildEngine(logger *zap.Logger) (*engine.Engine, error) {
	cfg, err := config.LoadFrom(configFile)
	if err != nil {
		return nil, err
	}

	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	reg, err = availableModels(cfg, reg)
	if err != nil {
		return nil, err
	}

	client, err := createClient(cfg)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		providers := client.Providers()
		sort.Strings(providers)
		logger.Info("backends registered", zap.Strings("providers", providers))
	}

	store, err := stats.NewFileStore(cfg.StatsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open statistics log: %w", err)
	}

	opts := []engine.Option{engine.WithJudgeModel(cfg.JudgeModel)}
	if logger != nil {
		opts = append(opts, engine.WithLogger(logger))
	}
	return engine.New(client, reg, store, opts...), nil
}

// availableModels keeps only the models whose provider is configured,
// preserving the default key when it survives the filter.
func availableModels(cfg *config.Config, reg *registry.Registry) (*registry.Registry, error) {
	profiles := make([]registry.ModelProfile, 0, reg.Len())
	for _, key := range reg.Keys() {
		profile, _ := reg.Get(key)
		if cfg.HasBackend(profile.Provider) {
			profiles = append(profiles, profile)
		}
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("no API keys configured; set ANTHROPIC_API_KEY, OPENAI_API_KEY, GOOGLE_API_KEY, or DEEPSEEK_API_KEY")
	}

	filtered, err := registry.New(profiles...)
	if err != nil {
		return nil, err
	}
	for _, p := range profiles {
		if p.Key == reg.DefaultKey() {
			return filtered.WithDefault(p.Key)
		}
	}
	return filtered, nil
}

func createClient(cfg *config.Config) (*adapter.MultiClient, error) {
	client := adapter.NewMultiClient()

	if cfg.AnthropicAPIKey != "" {
		b, err := adapter.NewAnthropicBackend(cfg.AnthropicAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create anthropic backend: %w", err)
		}
		client.Register(b)
	}

	if cfg.OpenAIAPIKey != "" {
		b, err := adapter.NewOpenAIBackend(cfg.OpenAIAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai backend: %w", err)
		}
		client.Register(b)
	}

	if cfg.GoogleAPIKey != "" {
		b, err := adapter.NewGoogleBackend(cfg.GoogleAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create google backend: %w", err)
		}
		client.Register(b)
	}

	if cfg.DeepSeekAPIKey != "" {
		b, err := adapter.NewDeepSeekBackend(cfg.DeepSeekAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create deepseek backend: %w", err)
		}
		client.Register(b)
	}

	return client, nil
}

func addCompletionFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&temperatureFlag, "temperature", 0, "sampling temperature (0 uses the backend default)")
	cmd.Flags().IntVar(&maxTokensFlag, "max-tokens", 0, "maximum response tokens (0 uses the backend default)")
}

func completionOpts() adapter.Options {
	opts := adapter.Options{}
	if temperatureFlag > 0 {
		opts[adapter.OptTemperature] = temperatureFlag
	}
	if maxTokensFlag > 0 {
		opts[adapter.OptMaxTokens] = maxTokensFlag
	}
	return opts
}

func promptMessages(prompt string) []adapter.Message {
	return []adapter.Message{{Role: "user", Content: prompt}}
}

func printMetadataJSON(metadata any) {
	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return
	}
	fmt.Fprintln(os.Stderr, string(data))
}
