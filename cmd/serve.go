package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"taskhive/internal/auth"
	"taskhive/internal/chat"
	"taskhive/internal/config"
	"taskhive/internal/db"
	"taskhive/internal/files"
	"taskhive/internal/logging"
	"taskhive/internal/metrics"
	"taskhive/internal/notifications"
	"taskhive/internal/projects"
	"taskhive/internal/server"
	"taskhive/internal/shell"
	"taskhive/internal/tasks"
	"taskhive/internal/users"
	"taskhive/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the taskhive server",
	Long:  `Starts the taskhive server: JSON API, websocket chat and browser pages on one port.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		log := logging.New(level, cfg.Log.Pretty)

		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("creating data dir: %w", err)
		}
		database, err := db.Open(filepath.Join(cfg.DataDir, "taskhive.db"))
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		// Stores and services.
		userStore := users.NewStore(database)
		projectStore := projects.NewStore(database)
		taskStore := tasks.NewStore(database)
		chatStore := chat.NewStore(database)
		noteStore := notifications.NewStore(database)
		fileStore, err := files.NewStore(database, filepath.Join(cfg.DataDir, "uploads"))
		if err != nil {
			return fmt.Errorf("creating file store: %w", err)
		}

		issuer := auth.NewIssuer(cfg.Auth.Secret, time.Duration(cfg.Auth.AccessTTLMinutes)*time.Minute)
		refresh := auth.NewRefreshStore(database, time.Duration(cfg.Auth.RefreshTTLHours)*time.Hour)
		notifier := notifications.NewNotifier(noteStore, log)
		hub := chat.NewHub(log)

		pages, err := web.NewPages()
		if err != nil {
			return fmt.Errorf("rendering pages: %w", err)
		}

		// Feature routers. Everything except registration and login
		// sits behind the token middleware.
		authed := auth.Require(issuer)

		authRouter := chi.NewRouter()
		auth.RegisterRoutes(authRouter, userStore, issuer, refresh)
		authRouter.Group(func(r chi.Router) {
			r.Use(authed)
			users.RegisterRoutes(r, userStore)
			notifications.RegisterRoutes(r, noteStore)
		})

		projectRouter := chi.NewRouter()
		projectRouter.Use(authed)
		projectRouter.Route("/files", func(r chi.Router) {
			files.RegisterRoutes(r, fileStore, cfg.Uploads)
		})
		projects.RegisterRoutes(projectRouter, projectStore)

		taskRouter := chi.NewRouter()
		taskRouter.Use(authed)
		tasks.RegisterRoutes(taskRouter, taskStore, projectStore, notifier)

		chatRouter := chi.NewRouter()
		chatRouter.Use(authed)
		chat.RegisterRoutes(chatRouter, chatStore, projectStore, hub)

		srv := server.New(cfg.Server, log, metrics.New())
		shell.Mount(srv.Router(), shell.Delegates{
			Auth:     authRouter,
			Projects: projectRouter,
			Tasks:    taskRouter,
			Chat:     chatRouter,
		}, pages.Welcome, pages.Help)
		if cfg.Web.DistDir != "" {
			srv.Router().Mount("/assets", web.Dist(cfg.Web.DistDir))
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(srv.Start)
		g.Go(func() error {
			<-ctx.Done()
			log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
