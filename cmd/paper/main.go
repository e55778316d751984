// Command paper runs the paper builder API and checks paper or section
// forms from the command line.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/paperbuilder/paper-builder/backend/go-services/internal/config"
	"github.com/paperbuilder/paper-builder/backend/go-services/internal/paper/validation"
	"github.com/paperbuilder/paper-builder/backend/go-services/internal/server"
	"github.com/paperbuilder/paper-builder/backend/go-services/pkg/logger"
	"github.com/paperbuilder/paper-builder/backend/go-services/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// errInvalid signals a rejected form; the errors were already printed.
var errInvalid = errors.New("validation failed")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errInvalid) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "paper",
		Short:         "Question paper builder",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newValidateCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var (
		port     string
		seed     bool
		idScheme string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the paper API from an in-memory store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			logger.Init(cfg.Log.Level)
			defer logger.Sync()

			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("seed") {
				cfg.Store.Seed = seed
			}
			if cmd.Flags().Changed("id-scheme") {
				cfg.Store.IDScheme = idScheme
			}
			// memory-only: no publishing, limiter stays in process
			cfg.Redis.Host = ""

			metrics.RegisterCollectors(prometheus.DefaultRegisterer)
			srv, err := server.New(cfg, nil)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&port, "port", "5020", "listen port")
	cmd.Flags().BoolVar(&seed, "seed", false, "add the sample mathematics paper on startup")
	cmd.Flags().StringVar(&idScheme, "id-scheme", "uuid", "id scheme: uuid or counter")
	return cmd
}

func newValidateCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:       "validate paper|section",
		Short:     "Validate a JSON form read from --file or stdin",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"paper", "section"},
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			input, err := readForm(in)
			if err != nil {
				return err
			}

			switch args[0] {
			case "paper":
				_, err = validation.ValidatePaper(input)
			case "section":
				_, err = validation.ValidateSection(input)
			}
			return report(cmd.OutOrStdout(), args[0], err)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file (default stdin)")
	return cmd
}

func readForm(r io.Reader) (map[string]any, error) {
	var input map[string]any
	if err := json.NewDecoder(r).Decode(&input); err != nil {
		return nil, fmt.Errorf("decode form: %w", err)
	}
	if input == nil {
		return nil, errors.New("decode form: expected a JSON object")
	}
	return input, nil
}

// report prints one "field: message" line per error in field order.
func report(w io.Writer, form string, err error) error {
	if err == nil {
		fmt.Fprintf(w, "%s: ok\n", form)
		return nil
	}
	fe, ok := validation.AsFieldErrors(err)
	if !ok {
		return err
	}
	fields := make([]string, 0, len(fe))
	for k := range fe {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	for _, k := range fields {
		fmt.Fprintf(w, "%s: %s\n", k, fe[k])
	}
	return errInvalid
}
