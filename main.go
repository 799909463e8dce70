package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/kushalk47/aarogya-api/api/handlers"
	"github.com/kushalk47/aarogya-api/api/scheduler"
	"github.com/kushalk47/aarogya-api/config"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "aarogya-api",
		Short: "Clinical documentation API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(retryCmd())
	rootCmd.AddCommand(hashPasswordCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server and the extraction retry job",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func retryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry-extractions",
		Short: "Run one retry pass over reports whose extraction failed",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := handlers.App{Config: *config.New()}
			if err := a.Initialize(); err != nil {
				return err
			}
			defer a.Close(context.Background())

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
			defer cancel()
			stats, err := a.Services.Processor.RetryPending(ctx)
			if err != nil {
				return err
			}
			zap.S().Infow("extraction retry complete",
				"processed", stats.Processed,
				"merged", stats.Merged,
				"failed", stats.Failed,
			)
			return nil
		},
	}
}

// hashPasswordCmd prints the bcrypt hash stored in a patient or doctor
// document's password field
func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Generate the bcrypt hash for a login password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hashed, err := bcrypt.GenerateFromPassword([]byte(args[0]), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("failed to generate hash: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(hashed))
			return nil
		},
	}
}

func runServer() error {
	a := handlers.App{Config: *config.New()}
	if err := a.Initialize(); err != nil { //initialize database and router
		return err
	}

	s := scheduler.NewScheduler(a.Services.Processor, a.Config.RetrySchedule, 5*time.Minute)
	if err := s.Start(); err != nil {
		return err
	}
	defer s.Stop()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%v", a.Config.Port),
		Handler: a.Router,
	}
	go func() {
		zap.S().Infow("aarogya-api is up and running",
			"port", a.Config.Port,
			"url", a.Config.BaseUrl,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.S().Fatalw("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zap.S().Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zap.S().Errorw("server shutdown failed", "error", err)
	}
	if err := a.Close(ctx); err != nil {
		zap.S().Warnw("failed to disconnect from database", "error", err)
	}
	zap.S().Info("server stopped")
	return nil
}
