package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/0xcro3dile/metarag-go/internal/app"
	"github.com/0xcro3dile/metarag-go/internal/config"
	httpserver "github.com/0xcro3dile/metarag-go/internal/infrastructure/http"
	"github.com/0xcro3dile/metarag-go/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg    *config.AppConfig
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "metarag",
	Short: "metarag - retrieval QA with corpus-wide map/reduce",
	Long: `metarag answers questions over a document corpus.

Each question is classified first. FACT questions are answered from the
top-ranked chunks; META questions about the corpus as a whole run a
classifier-generated instruction over every chunk and reduce the results.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(); err != nil {
			return err
		}

		var err error
		if configPath != "" {
			cfg, err = config.Load(configPath)
		} else {
			cfg, _, err = config.LoadDefault()
		}
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		logger, err = logging.New(cfg.Logging, verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// serveCmd runs the chat API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat API",
	Long: `Starts the HTTP API on server.addr (POST /api/chat, GET /api/health).

With --ingest the documents directory is indexed before the server starts;
with ingest.watch enabled it is kept in sync while the server runs.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// askCmd answers one question from the command line
var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a single question against the indexed corpus",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

// ingestCmd indexes a directory
var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Index every supported document below dir (default: ingest.documents_dir)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIngest,
}

var ingestOnStart bool

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./config.yaml or ~/.config/metarag/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	serveCmd.Flags().BoolVar(&ingestOnStart, "ingest", false, "Index the documents directory before serving")

	rootCmd.AddCommand(serveCmd, askCmd, ingestCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Ingest.PDFServiceURL != "" {
		a.CheckPDFService(ctx)
	}
	if ingestOnStart {
		if _, err := a.Ingest.IngestDir(ctx, cfg.Ingest.DocumentsDir); err != nil {
			return fmt.Errorf("initial ingest: %w", err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	if cfg.Ingest.Watch {
		watcher, err := a.NewWatcher()
		if err != nil {
			return err
		}
		g.Go(func() error {
			return a.Ingest.Watch(ctx, watcher, cfg.Ingest.DocumentsDir)
		})
	}
	g.Go(func() error {
		return httpserver.NewServer(a.Engine, cfg.Server.Addr, logger.Named("http")).Start(ctx)
	})
	return g.Wait()
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	answer, err := a.Engine.Route(ctx, strings.Join(args, " "), nil)
	if err != nil {
		return err
	}
	printAnswer(cmd.OutOrStdout(), answer.Text, string(answer.Kind), answer.IntermediateSteps)
	return nil
}

func printAnswer(w io.Writer, text, kind string, steps []string) {
	fmt.Fprintln(w, strings.TrimSpace(text))
	if !verbose {
		return
	}
	fmt.Fprintf(w, "\n[%s]\n", kind)
	for i, step := range steps {
		fmt.Fprintf(w, "  %d. %s\n", i+1, strings.TrimSpace(step))
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	dir := cfg.Ingest.DocumentsDir
	if len(args) == 1 {
		dir = args[0]
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Ingest.PDFServiceURL != "" {
		a.CheckPDFService(ctx)
	}
	n, err := a.Ingest.IngestDir(ctx, dir)
	if err != nil {
		return err
	}
	chunks, err := a.ChunkCount(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d documents from %s (%d chunks stored)\n", n, dir, chunks)
	return nil
}
