package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/objectdag/pkg/config"
	json "github.com/ajitpratap0/objectdag/pkg/json"
	"github.com/ajitpratap0/objectdag/pkg/loader"
	"github.com/ajitpratap0/objectdag/pkg/logger"
	"github.com/ajitpratap0/objectdag/pkg/metrics"
	"github.com/ajitpratap0/objectdag/pkg/observability"
	"github.com/ajitpratap0/objectdag/pkg/serializer"
	"github.com/ajitpratap0/objectdag/pkg/transport/core"
	"github.com/ajitpratap0/objectdag/pkg/transport/kafka"
	"github.com/ajitpratap0/objectdag/pkg/transport/registry"
)

// env holds what every command sets up from the configuration file.
type env struct {
	cfg       *config.Config
	log       *zap.Logger
	collector *metrics.Collector
	shutdown  []func(context.Context) error
}

func setup(configFile string) (*env, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	if err := logger.Init(cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	e := &env{
		cfg: cfg,
		log: logger.Get().With(zap.String("component", "objectdag-cli")),
	}

	shutdownTracing, err := observability.InitTracing(cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	e.shutdown = append(e.shutdown, shutdownTracing)

	if cfg.Metrics.Enabled {
		e.collector = metrics.NewCollector("cli")
		if cfg.Metrics.ListenAddress != "" {
			srv := metrics.NewServer(cfg.Metrics.ListenAddress)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					e.log.Warn("metrics server stopped", zap.Error(err))
				}
			}()
			e.shutdown = append(e.shutdown, srv.Shutdown)
		}
	}
	return e, nil
}

func (e *env) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, fn := range e.shutdown {
		if err := fn(ctx); err != nil {
			e.log.Warn("shutdown failed", zap.Error(err))
		}
	}
	_ = logger.Sync()
}

func newSerializeCommand() *cobra.Command {
	var configFile, inputFile string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "serialize",
		Short: "Serialize a JSON object graph to every configured transport",
		Long: `Serialize reads a JSON object, decomposes it into records and saves them
to every transport in the configuration. Keys starting with a single '@'
mark values that become records of their own. The root id is printed.

Example:
  objectdag serialize --config objectdag.yaml --input model.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(configFile)
			if err != nil {
				return err
			}
			defer e.close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return runSerialize(ctx, e, inputFile, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to configuration YAML file (required)")
	cmd.Flags().StringVarP(&inputFile, "input", "i", "-", "Path to the JSON object graph, or - for stdin")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "Serialization timeout")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func runSerialize(ctx context.Context, e *env, inputFile string, stdin io.Reader, out io.Writer) error {
	data, err := readInput(inputFile, stdin)
	if err != nil {
		return err
	}
	graph, err := json.DecodeOrdered(data)
	if err != nil {
		return fmt.Errorf("failed to parse input: %w", err)
	}

	transports, err := registry.CreateAll(ctx, e.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := core.CloseAll(context.Background(), transports); err != nil {
			e.log.Warn("failed to close transports", zap.Error(err))
		}
	}()

	s := serializer.New(transports,
		serializer.WithLogger(e.log),
		serializer.WithMetrics(e.collector))

	start := time.Now()
	root, err := s.Serialize(ctx, graph)
	if err != nil {
		return err
	}
	e.log.Info("serialization completed",
		zap.String("id", root.ID),
		zap.Int("total_children", root.TotalChildrenCount()),
		zap.Duration("duration", time.Since(start)))

	_, err = fmt.Fprintln(out, root.ID)
	return err
}

func newLoadCommand() *cobra.Command {
	var configFile, transportName string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "load ID",
		Short: "Load an object graph from a transport and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(configFile)
			if err != nil {
				return err
			}
			defer e.close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return runLoad(ctx, e, transportName, args[0], cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to configuration YAML file (required)")
	cmd.Flags().StringVarP(&transportName, "transport", "t", "", "Transport to read from (default: first readable transport)")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "Load timeout")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func runLoad(ctx context.Context, e *env, transportName, id string, out io.Writer) error {
	tc, err := pickTransport(e.cfg, transportName)
	if err != nil {
		return err
	}
	t, err := registry.Create(ctx, tc)
	if err != nil {
		return err
	}
	defer func() {
		if err := core.CloseAll(context.Background(), []core.Transport{t}); err != nil {
			e.log.Warn("failed to close transport", zap.Error(err))
		}
	}()

	reader, ok := t.(core.Reader)
	if !ok {
		return fmt.Errorf("transport %q (%s) cannot read records", tc.Name, tc.Type)
	}

	obj, err := loader.New(reader, loader.WithLogger(e.log)).Load(ctx, id)
	if err != nil {
		return err
	}
	data, err := json.Canonical(loader.ToMap(obj))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

// pickTransport returns the named transport, or the first one whose type
// can read when name is empty.
func pickTransport(cfg *config.Config, name string) (*config.TransportConfig, error) {
	if name != "" {
		tc, ok := cfg.Transport(name)
		if !ok {
			return nil, fmt.Errorf("transport %q is not configured", name)
		}
		return tc, nil
	}
	for _, tc := range cfg.Transports {
		if tc.Type != kafka.TypeName {
			return tc, nil
		}
	}
	return nil, fmt.Errorf("no readable transport configured")
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" || path == "" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("failed to read input %s: %w", path, err)
	}
	return data, nil
}
