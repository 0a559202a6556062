package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/atelier-editor/atelier/pkg/atelier/ident"
	"github.com/atelier-editor/atelier/pkg/atelier/logging"
	"github.com/atelier-editor/atelier/pkg/server"
	"github.com/atelier-editor/atelier/pkg/workspace/broadcaster"
	"github.com/atelier-editor/atelier/pkg/workspace/engine"
	"github.com/atelier-editor/atelier/pkg/workspace/journal"
	"github.com/atelier-editor/atelier/pkg/workspace/mirror"
	"github.com/atelier-editor/atelier/pkg/workspace/store"
	"github.com/atelier-editor/atelier/pkg/workspace/tabs"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the workspace API server",
	Long: `Start the HTTP server the browser editor talks to. The server owns the
project database and pushes tree updates to connected clients over a
WebSocket stream.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("listen", "", "listen address (default from config)")
	serveCmd.Flags().Bool("mirror", false, "mirror the active project to a scratch directory and watch for edits")
	_ = viper.BindPFlag("server.listen_addr", serveCmd.Flags().Lookup("listen"))
	_ = viper.BindPFlag("mirror.enabled", serveCmd.Flags().Lookup("mirror"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		printError("loading config: %v", err)
		return err
	}

	logCfg := logging.Config{
		Level:      cfg.Logging.Level,
		Path:       cfg.Logging.Path,
		Components: cfg.Logging.Components,
	}
	if viper.GetBool("verbose") {
		logCfg.ConsoleLevel = "debug"
	}
	if err := logging.Init(logCfg); err != nil {
		printError("initializing logging: %v", err)
		return err
	}
	defer func() { _ = logging.Close() }()

	log := logging.Get("serve")

	st, err := store.Open(cfg.DataDir)
	if err != nil {
		printError("opening store: %v", err)
		return err
	}
	defer func() { _ = st.Close() }()

	if err := st.EnsureSchema(); err != nil {
		printError("checking schema: %v", err)
		return err
	}

	bc := broadcaster.New()
	defer bc.Close()

	eng := engine.NewWithBroadcaster(st, ident.UUID{}, bc)
	coord := tabs.New(eng, ident.UUID{})
	go coord.Run(bc.Subscribe())

	var jnl *journal.Journal
	if cfg.Journal.Enabled {
		jnl, err = journal.New(cfg.Journal.Path)
		if err != nil {
			printError("opening journal: %v", err)
			return err
		}
		retention := time.Duration(cfg.Journal.RetentionDays) * 24 * time.Hour
		if removed, err := jnl.Prune(retention); err != nil {
			log.Warn("journal prune failed", "error", err)
		} else if removed > 0 {
			log.Info("pruned journal entries", "removed", removed)
		}
	}

	// Open the most recently modified project so the UI has something to
	// show immediately.
	if summaries, err := st.ListProjectSummaries(); err == nil && len(summaries) > 0 {
		if p, err := st.GetProject(summaries[0].ID); err == nil {
			eng.Load(p)
			log.Info("loaded project", "id", p.ID, "name", p.Name)
		}
	}

	var mir *mirror.Mirror
	if viper.GetBool("mirror.enabled") {
		mir, err = mirror.New(eng, cfg.MirrorDir)
		if err != nil {
			printError("creating mirror: %v", err)
			return err
		}
		defer func() { _ = mir.Close() }()

		if err := mir.Materialize(); err != nil {
			printError("materializing mirror: %v", err)
			return err
		}
		go func() {
			if err := mir.Watch(); err != nil {
				log.Warn("mirror watcher stopped", "error", err)
			}
		}()
		printInfo("Mirroring active project to %s", mir.Dir())
	}

	srv := server.New(eng, coord, st, bc, jnl, server.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Server.ListenAddr)
		printInfo("Listening on http://%s", cfg.Server.ListenAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		printInfo("Shutting down...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			printError("server failed: %v", err)
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	log.Info("server stopped")
	return nil
}
