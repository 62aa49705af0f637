package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"lyrics-resolver-go/config"
	"lyrics-resolver-go/logcolors"
	"lyrics-resolver-go/services/notifier"
	"lyrics-resolver-go/services/providers"
	"lyrics-resolver-go/services/resolver"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lyrics-resolver",
		Short: "Resolve song lyrics from several providers into one best transcript",
		Long: `lyrics-resolver queries every configured lyrics provider concurrently,
scores each transcript for completeness, merges partial transcripts of the
same song and caches the result.

It runs as an HTTP service (serve) or as a one-shot CLI (resolve, verify).
Configuration is read from the environment and an optional .env file.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(newServeCmd(), newResolveCmd(), newVerifyCmd())
	return cmd
}

// setupLogging uses JSON for the server and readable text for one-shot commands
func setupLogging(c config.Config, server bool) {
	if server {
		log.SetFormatter(&log.JSONFormatter{})
		log.SetOutput(os.Stdout)
	} else {
		// stdout carries the command's result
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
		log.SetOutput(os.Stderr)
	}

	level, err := log.ParseLevel(c.Server.LogLevel)
	if err != nil {
		log.Warnf("%s Invalid LOG_LEVEL %q, using info", logcolors.LogConfig, c.Server.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the lyrics HTTP API",
		Example: `  # Start on the configured PORT (default 8080)
  lyrics-resolver serve

  # Start on a custom port
  lyrics-resolver serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := config.Get()
			if port != "" {
				c.Server.Port = port
			}
			setupLogging(c, true)
			return runServer(cmd.Context(), c)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides PORT)")
	return cmd
}

func runServer(ctx context.Context, c config.Config) error {
	startAlerts(c)

	a, err := newApp(c, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()
	a.startBackground(bgCtx)

	server := &http.Server{
		Addr:              ":" + c.Server.Port,
		Handler:           a.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("%s Server listening on port %s", logcolors.LogServer, c.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	configured, unconfigured := splitProviders(a.registry)
	notifier.PublishServerStarted(c.Server.Port, configured, unconfigured)

	select {
	case <-ctx.Done():
		log.Infof("%s Shutting down server...", logcolors.LogServer)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		log.Infof("%s Server stopped", logcolors.LogServer)
		return nil
	case err := <-serverErr:
		notifier.PublishServerStartupFailed("http", err)
		return fmt.Errorf("server failed: %w", err)
	}
}

func newResolveCmd() *cobra.Command {
	var (
		refresh bool
		verify  bool
		asJSON  bool
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "resolve <artist> <title>",
		Short: "Resolve the lyrics of one song and print them",
		Example: `  lyrics-resolver resolve "Ed Sheeran" "Shape of You"

  # Skip the cache files (useful while a server holds them)
  lyrics-resolver resolve --no-cache --json "Adele" "Hello"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := config.Get()
			setupLogging(c, false)

			a, err := newApp(c, appOptions{Ephemeral: noCache})
			if err != nil {
				return err
			}
			defer a.Close()

			q := providers.Query{Artist: args[0], Title: args[1]}
			res, err := a.engine.Resolve(cmd.Context(), q, resolver.ResolveOptions{Refresh: refresh, Verify: verify})
			if err != nil {
				return err
			}
			return printResolution(cmd.OutOrStdout(), res, asJSON)
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Ignore cached answers")
	cmd.Flags().BoolVar(&verify, "verify", false, "Run the verification chain on the result")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Keep the cache in memory only")
	return cmd
}

func printResolution(w io.Writer, res *providers.ResolutionResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprintf(w, "# source: %s  completeness: %d", res.Source, res.CompletenessScore)
	if res.Merged {
		fmt.Fprint(w, "  (merged)")
	}
	if res.LowConfidence {
		fmt.Fprint(w, "  (low confidence)")
	}
	if res.Verification != nil {
		fmt.Fprintf(w, "  verification: %d%% by %s", res.Verification.Confidence, res.Verification.Verifier)
	}
	fmt.Fprintf(w, "\n\n%s\n", res.Lyrics)
	return nil
}

func newVerifyCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "verify <artist> <title>",
		Short: "Check a transcript against the verification chain",
		Example: `  lyrics-resolver verify --file lyrics.txt "Queen" "Bohemian Rhapsody"
  cat lyrics.txt | lyrics-resolver verify "Queen" "Bohemian Rhapsody"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := config.Get()
			setupLogging(c, false)

			lyrics, err := readLyrics(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}

			a, err := newApp(c, appOptions{Ephemeral: true})
			if err != nil {
				return err
			}
			defer a.Close()

			out := a.engine.Verify(cmd.Context(), args[0], args[1], lyrics)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(VerifyResponse{
				Verification: out,
				Verified:     out.Verified(a.chain.Threshold()),
				Threshold:    a.chain.Threshold(),
				Verifiers:    a.chain.Names(),
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read lyrics from a file instead of stdin")
	return cmd
}

func readLyrics(stdin io.Reader, file string) (string, error) {
	var (
		data []byte
		err  error
	)
	if file != "" && file != "-" {
		data, err = os.ReadFile(file)
	} else {
		data, err = io.ReadAll(stdin)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read lyrics: %w", err)
	}
	if len(data) == 0 {
		return "", errors.New("no lyrics given")
	}
	return string(data), nil
}
