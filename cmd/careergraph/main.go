// Command careergraph runs the two phase career workflow from the terminal.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/smallnest/careergraph/career"
	"github.com/smallnest/careergraph/config"
	"github.com/smallnest/careergraph/log"
	"github.com/smallnest/careergraph/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app carries what every command needs after the config is loaded.
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger log.Logger
}

func rootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "careergraph",
		Short: "careergraph: career matching and simulation",
		Long: `careergraph ranks the careers that fit a profile and simulates the one you pick.

"match" runs the first phase and stores a checkpoint. "simulate" resumes that
checkpoint with a selection. "run" does both in one process. Use a file, redis,
postgres or sqlite store when match and simulate run as separate processes.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(matchCmd(a))
	root.AddCommand(simulateCmd(a))
	root.AddCommand(runCmd(a))
	root.AddCommand(graphCmd(a))
	return root
}

func (a *app) load(stderr io.Writer) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.cfg = cfg
	a.logger = cfg.Logger(stderr)
	log.SetDefaultLogger(a.logger)
	return nil
}

func (a *app) pipeline() *career.Pipeline {
	return career.New(a.cfg.PipelineOptions(a.logger)...)
}

func (a *app) orchestrator(ctx context.Context) (*session.Orchestrator, func() error, error) {
	st, closeStore, err := a.cfg.OpenStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	o, err := a.pipeline().Orchestrator(st)
	if err != nil {
		_ = closeStore()
		return nil, nil, err
	}
	return o, closeStore, nil
}

func readProfile(path string) (career.Profile, error) {
	var p career.Profile
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read profile: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return p, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if p.Name == "" && len(p.TechnicalSkills) == 0 && len(p.Interests) == 0 {
		return p, errors.New("profile is empty")
	}
	return p, nil
}

// ─── match ────────────────────────────────────────────────────────────────────

func matchCmd(a *app) *cobra.Command {
	var profilePath, format string

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Rank the careers that fit a profile and store a checkpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := readProfile(profilePath)
			if err != nil {
				return err
			}
			o, closeStore, err := a.orchestrator(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			res, err := o.BeginPhaseOne(cmd.Context(), career.Input(p))
			if err != nil {
				return err
			}
			if a.cfg.Store.Backend == config.BackendMemory {
				a.logger.Warn("memory store: checkpoint %s is lost when this process exits", res.CheckpointID)
			}
			return writeMatches(cmd.OutOrStdout(), format, res.CheckpointID, career.Fits(res.Options))
		},
	}
	cmd.Flags().StringVar(&profilePath, "profile", "", "profile YAML file")
	cmd.Flags().StringVar(&format, "format", formatText, "output format: text, md or json")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}

// ─── simulate ─────────────────────────────────────────────────────────────────

func simulateCmd(a *app) *cobra.Command {
	var (
		checkpointID string
		selection    int
		format       string
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Resume a checkpoint and simulate the selected career",
		RunE: func(cmd *cobra.Command, _ []string) error {
			o, closeStore, err := a.orchestrator(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			final, err := o.ResumePhaseTwo(cmd.Context(), checkpointID, selection)
			if err != nil {
				return err
			}
			return writeSimulation(cmd.OutOrStdout(), format, final)
		},
	}
	cmd.Flags().StringVar(&checkpointID, "checkpoint", "", "checkpoint id printed by match")
	cmd.Flags().IntVar(&selection, "select", 0, "index of the career to simulate")
	cmd.Flags().StringVar(&format, "format", formatText, "output format: text, md, html or json")
	_ = cmd.MarkFlagRequired("checkpoint")
	return cmd
}

// ─── run ──────────────────────────────────────────────────────────────────────

func runCmd(a *app) *cobra.Command {
	var (
		profilePath string
		selection   int
		format      string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Match and simulate in one process",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := readProfile(profilePath)
			if err != nil {
				return err
			}
			o, closeStore, err := a.orchestrator(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			res, err := o.BeginPhaseOne(cmd.Context(), career.Input(p))
			if err != nil {
				return err
			}
			if format == formatText {
				if err := writeMatches(cmd.OutOrStdout(), format, res.CheckpointID, career.Fits(res.Options)); err != nil {
					return err
				}
			}
			final, err := o.ResumePhaseTwo(cmd.Context(), res.CheckpointID, selection)
			if err != nil {
				return err
			}
			return writeSimulation(cmd.OutOrStdout(), format, final)
		},
	}
	cmd.Flags().StringVar(&profilePath, "profile", "", "profile YAML file")
	cmd.Flags().IntVar(&selection, "select", 0, "index of the career to simulate")
	cmd.Flags().StringVar(&format, "format", formatText, "output format: text, md, html or json")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}
