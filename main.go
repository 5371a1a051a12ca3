package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/jsonc"
	"go.uber.org/zap"

	"auto_ppt_generator/config"
	"auto_ppt_generator/outline"
	"auto_ppt_generator/pptx"
	"auto_ppt_generator/publisher"
	"auto_ppt_generator/server"
)

var (
	verbose    bool
	configPath string
	logger     *zap.Logger
	cfg        config.Config
)

var rootCmd = &cobra.Command{
	Use:   "autoppt",
	Short: "Turn text into a PowerPoint deck styled by an uploaded template",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		if configPath != "" {
			cfg, err = config.LoadFile(configPath)
		} else {
			cfg, err = config.Load()
		}
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	SilenceUsage: true,
}

var (
	textPath     string
	guidance     string
	includeNotes bool
	apiKey       string
	provider     string
	model        string
	baseURL      string
)

var outlineCmd = &cobra.Command{
	Use:   "outline",
	Short: "Print the slide outline for a text file as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		pub, req, err := newRequest()
		if err != nil {
			return err
		}
		o, src := pub.Outline(cmd.Context(), req)
		logger.Debug("outline ready", zap.String("source", string(src)), zap.Int("slides", len(o.Slides)))
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(o)
	},
}

var (
	templatePath string
	outPath      string
	outlinePath  string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a deck from a text file and a .pptx/.potx template",
	RunE: func(cmd *cobra.Command, args []string) error {
		template, err := os.ReadFile(templatePath)
		if err != nil {
			return fmt.Errorf("read template: %w", err)
		}
		var data []byte
		if outlinePath != "" {
			data, err = buildFromOutline(template)
		} else {
			data, err = buildFromText(cmd.Context(), template)
		}
		if err != nil {
			return err
		}
		if err := os.WriteFile(outPath, data, 0o644); err != nil {
			return fmt.Errorf("write deck: %w", err)
		}
		logger.Info("deck written", zap.String("path", outPath), zap.Int("bytes", len(data)))
		return nil
	},
}

var addr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		pub, err := publisher.New(cfg, logger)
		if err != nil {
			return err
		}
		srv, err := server.New(pub, cfg, logger)
		if err != nil {
			return err
		}
		listen := cfg.ServerAddr
		if addr != "" {
			listen = addr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		errc := make(chan error, 1)
		go func() { errc <- srv.Start(listen) }()

		select {
		case err := <-errc:
			srv.Close()
			return err
		case <-ctx.Done():
		}
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errc
	},
}

func newRequest() (*publisher.Publisher, publisher.Request, error) {
	if textPath == "" {
		return nil, publisher.Request{}, errors.New("--text is required")
	}
	text, err := os.ReadFile(textPath)
	if err != nil {
		return nil, publisher.Request{}, fmt.Errorf("read text: %w", err)
	}
	pub, err := publisher.New(cfg, logger)
	if err != nil {
		return nil, publisher.Request{}, err
	}
	key := apiKey
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	return pub, publisher.Request{
		Text:         string(text),
		Guidance:     guidance,
		IncludeNotes: includeNotes,
		APIKey:       key,
		Provider:     provider,
		Model:        model,
		BaseURL:      baseURL,
	}, nil
}

func buildFromText(ctx context.Context, template []byte) ([]byte, error) {
	pub, req, err := newRequest()
	if err != nil {
		return nil, err
	}
	deck, err := pub.Build(ctx, req, template)
	if err != nil {
		return nil, err
	}
	return deck.Result.Data, nil
}

// buildFromOutline assembles a hand-edited outline. Comments and trailing
// commas are allowed in the file.
func buildFromOutline(template []byte) ([]byte, error) {
	raw, err := os.ReadFile(outlinePath)
	if err != nil {
		return nil, fmt.Errorf("read outline: %w", err)
	}
	var o outline.Outline
	if err := json.Unmarshal(jsonc.ToJSON(raw), &o); err != nil {
		return nil, fmt.Errorf("parse outline %s: %w", outlinePath, err)
	}
	o = outline.Normalize(o, includeNotes, cfg.Limits)

	a, err := pptx.Open(template, cfg.Limits)
	if err != nil {
		return nil, err
	}
	profile, err := pptx.Introspect(a)
	if err != nil {
		return nil, err
	}
	res, err := pptx.Assemble(o, profile)
	if err != nil {
		return nil, err
	}
	for _, f := range res.Fallbacks {
		logger.Debug("layout fallback", zap.Stringer("fallback", f))
	}
	return res.Data, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (default: $AUTOPPT_CONFIG or built-in defaults)")

	for _, cmd := range []*cobra.Command{outlineCmd, buildCmd} {
		cmd.Flags().StringVar(&textPath, "text", "", "path to the input text or markdown")
		cmd.Flags().StringVar(&guidance, "guidance", "", "one-line tone or structure guidance")
		cmd.Flags().BoolVar(&includeNotes, "notes", false, "generate speaker notes")
		cmd.Flags().StringVar(&apiKey, "api-key", "", "LLM API key (default: $OPENAI_API_KEY); without one the heuristic outline is used")
		cmd.Flags().StringVar(&provider, "provider", "", "LLM provider (openai, aipipe, deepseek, openrouter)")
		cmd.Flags().StringVar(&model, "model", "", "LLM model name")
		cmd.Flags().StringVar(&baseURL, "base-url", "", "LLM API base URL")
	}

	buildCmd.Flags().StringVar(&templatePath, "template", "", "path to the .pptx or .potx template")
	buildCmd.Flags().StringVarP(&outPath, "out", "o", "deck.pptx", "output path")
	buildCmd.Flags().StringVar(&outlinePath, "outline", "", "assemble this JSON outline instead of planning one")
	_ = buildCmd.MarkFlagRequired("template")

	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server_addr)")

	rootCmd.AddCommand(outlineCmd, buildCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
