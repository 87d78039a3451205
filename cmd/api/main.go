// @title Policlínico API
// @version 1.0
// @description Registro de pacientes, estadísticas y reportes PDF.
// @BasePath /
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"policlinico/internal/bootstrap"
	"policlinico/internal/config"
	"policlinico/internal/domain/attachments"
	"policlinico/internal/domain/patients"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "policlinico",
		Short:        "Registro de pacientes de la clínica",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(serveCmd(), statsCmd(), exportCmd(), addCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withApp carga config, arma la app y la cierra al terminar.
func withApp(ctx context.Context, fn func(*bootstrap.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := bootstrap.NewLogger(cfg)

	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", map[string]any{"error": err})
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn("close failed", map[string]any{"error": err})
		}
	}()
	return fn(app)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return withApp(ctx, func(app *bootstrap.App) error {
				return serve(ctx, app)
			})
		},
	}
}

func serve(ctx context.Context, app *bootstrap.App) error {
	srv := &http.Server{
		Addr:         app.Config.Addr(),
		Handler:      app.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		app.Logger.Info("starting server", map[string]any{"addr": srv.Addr, "env": app.Config.Env})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	app.Logger.Info("shutting down server", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return <-errc
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print patient statistics as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(app *bootstrap.App) error {
				sum, err := app.Stats.Snapshot(cmd.Context())
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(sum)
			})
		},
	}
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render the statistics report and share it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, _ := cmd.Flags().GetString("out")
			return withApp(cmd.Context(), func(app *bootstrap.App) error {
				rep, err := app.Reports.Generate(cmd.Context())
				if rep.Handle.Key == "" {
					return err
				}
				if err != nil {
					// el PDF quedó guardado aunque compartir haya fallado
					app.Logger.Warn("report not shared", map[string]any{"error": err})
				}

				if out != "" {
					if err := copyBlob(cmd.Context(), app, rep.Handle.Key, out); err != nil {
						return err
					}
					rep.Share.Location = out
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%d bytes, shared=%t)\n", rep.Share.Location, rep.Handle.Size, rep.Share.Shared)
				return nil
			})
		},
	}
	cmd.Flags().String("out", "", "Also write the PDF to this local file")
	return cmd
}

func copyBlob(ctx context.Context, app *bootstrap.App, key, dst string) error {
	rc, _, err := app.Blobs.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}
	defer rc.Close()

	if dir := filepath.Dir(dst); dir != "." {
		if err := app.Fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := app.Fs.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, rc); err != nil {
		_ = f.Close()
		_ = app.Fs.Remove(dst)
		return err
	}
	return f.Close()
}

func addCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a patient from the command line",
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			form := patients.Form{}
			form.FirstName, _ = flags.GetString("first-name")
			form.LastName, _ = flags.GetString("last-name")
			form.Age, _ = flags.GetString("age")
			form.WeightKg, _ = flags.GetString("weight")
			photo, _ := flags.GetString("photo")

			return withApp(cmd.Context(), func(app *bootstrap.App) error {
				var src attachments.Source
				if photo != "" {
					fileSrc, err := attachments.FromURI(app.Fs, photo)
					if err != nil {
						return err
					}
					src = fileSrc
				}
				id, err := app.Patients.Register(cmd.Context(), form, src)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
	cmd.Flags().String("first-name", "", "First name")
	cmd.Flags().String("last-name", "", "Last name")
	cmd.Flags().String("age", "", "Age in years")
	cmd.Flags().String("weight", "", "Weight in kg")
	cmd.Flags().String("photo", "", "Profile image (path or file:// URI)")
	return cmd
}
