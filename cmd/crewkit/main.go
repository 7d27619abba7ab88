// Package main implements the crewkit CLI: multi-agent development workflow
// runs, agent scorecards, memory maintenance, and conflict resolution.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/crewkit/internal/agent"
	"github.com/fyrsmithlabs/crewkit/internal/artifacts"
	"github.com/fyrsmithlabs/crewkit/internal/config"
	"github.com/fyrsmithlabs/crewkit/internal/evaluation"
	"github.com/fyrsmithlabs/crewkit/internal/logging"
	"github.com/fyrsmithlabs/crewkit/internal/memory"
	"github.com/fyrsmithlabs/crewkit/internal/orchestrator"
	"github.com/fyrsmithlabs/crewkit/internal/schema"
)

var (
	configPath string
	verbose    bool
	version    = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "crewkit",
	Short: "Multi-agent development workflow engine",
	Long: `crewkit coordinates a crew of specialized agents through a staged
development workflow: requirements, architecture, implementation, review,
build/test, integration, and final approval.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.config/crewkit/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(scoresCmd)
	rootCmd.AddCommand(memoryCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(schemasCmd)

	schemasCmd.AddCommand(schemasListCmd)
	schemasCmd.AddCommand(schemasValidateCmd)

	runCmd.Flags().Bool("quick", false, "skip review and build/test stages")

	memoryCmd.AddCommand(memoryStatsCmd)
	memoryCmd.AddCommand(memorySearchCmd)
	memoryCmd.AddCommand(memoryCleanupCmd)
	memoryCleanupCmd.Flags().Float64("threshold", memory.DefaultMinStrength, "strength threshold")
}

// app bundles the wired components behind every command.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *memory.Store
	eval    *evaluation.System
	schemas *schema.Loader
	orch    *orchestrator.Orchestrator
}

func buildApp() (*app, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}

	store, err := memory.NewStore(filepath.Join(cfg.Workspace, "memory"), logger,
		memory.WithMinStrength(cfg.Memory.MinStrength))
	if err != nil {
		return nil, err
	}
	eval, err := evaluation.NewSystem(filepath.Join(cfg.Workspace, "evaluation"), logger)
	if err != nil {
		return nil, err
	}
	schemas, err := schema.NewLoader(cfg.Schemas.Dir, logger)
	if err != nil {
		return nil, err
	}
	registry, err := agent.DefaultCrew(store, eval, logger)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		eval:    eval,
		schemas: schemas,
		orch: orchestrator.New(registry, store, eval, logger,
			orchestrator.WithSchemaLoader(schemas)),
	}, nil
}

var runCmd = &cobra.Command{
	Use:   "run <request>",
	Short: "Run a development workflow for a request",
	Long: `Run the staged development workflow for a natural language request.

Examples:
  crewkit run "Build a REST API for user management"
  crewkit run --quick "Add a health check endpoint"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.logger.Sync()

		workflow := orchestrator.DefaultWorkflow()
		if quick, _ := cmd.Flags().GetBool("quick"); quick {
			workflow = orchestrator.QuickWorkflow()
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		if a.cfg.Schemas.Watch {
			go func() {
				if err := a.schemas.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
					a.logger.Warn("schema watcher stopped", zap.Error(err))
				}
			}()
		}

		result := a.orch.RunWorkflow(ctx, args[0], workflow)
		fmt.Println(result.Summary())
		if !result.Success {
			os.Exit(1)
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <workflow-id>",
	Short: "Show the task states of a workflow",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.logger.Sync()

		if status, ok := a.orch.WorkflowStatus(args[0]); ok {
			return printJSON(status)
		}

		// Finished runs are persisted to project memory; surface the
		// recorded outcome for workflows from earlier invocations.
		entries, err := a.store.Search(args[0], memory.ScopeProject, 5)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			record, ok := entry.Content.(map[string]any)
			if !ok || record["workflow_id"] != args[0] {
				continue
			}
			return printJSON(record)
		}
		return fmt.Errorf("workflow not found: %s", args[0])
	},
}

var scoresCmd = &cobra.Command{
	Use:   "scores",
	Short: "Show agent scorecards and the leaderboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.logger.Sync()

		for _, ranked := range a.eval.Leaderboard() {
			summary := a.eval.Scorecard(ranked.AgentName).Summarize()
			fmt.Printf("%-22s overall %5.1f  success %4.0f%%  autonomy %.1f  tasks %d\n",
				ranked.AgentName, summary.OverallScore, summary.SuccessRate*100,
				summary.AutonomyLevel, summary.TotalTasks)
			for _, rec := range a.eval.Recommendations(ranked.AgentName) {
				fmt.Printf("    - %s\n", rec)
			}
		}
		return nil
	},
}

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect and maintain the shared memory store",
}

var memoryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show memory store statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.logger.Sync()
		return printJSON(a.store.GetStats())
	},
}

var memorySearchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Search memory contents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.logger.Sync()

		entries, err := a.store.Search(args[0], "", 20)
		if err != nil {
			return err
		}
		return printJSON(entries)
	},
}

var memoryCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove memories below a strength threshold",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.logger.Sync()

		threshold, _ := cmd.Flags().GetFloat64("threshold")
		if !cmd.Flags().Changed("threshold") {
			threshold = a.cfg.Memory.MinStrength
		}
		removed, err := a.store.Cleanup(threshold)
		if err != nil {
			return err
		}
		fmt.Printf("removed %d entries\n", removed)
		return nil
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <conflict-id> <resolution>",
	Short: "Resolve an escalated conflict",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.logger.Sync()

		return a.orch.ResolveConflict(args[0], map[string]any{
			"decision": args[1],
		})
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize workspace and mandatory artifacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.logger.Sync()

		if err := config.EnsureConfigDir(); err != nil {
			return err
		}

		artifactStore, err := artifacts.NewStore(filepath.Join(a.cfg.Workspace, "artifacts"), a.logger)
		if err != nil {
			return err
		}
		created, err := artifactStore.InitMandatory("system")
		if err != nil {
			return err
		}
		for _, name := range created {
			fmt.Printf("created %s\n", name)
		}
		if len(created) == 0 {
			fmt.Println("all mandatory artifacts present")
		}
		return nil
	},
}

var schemasCmd = &cobra.Command{
	Use:   "schemas",
	Short: "Inspect contract and artifact schemas",
}

var schemasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List loaded schemas",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.logger.Sync()

		return printJSON(map[string][]string{
			"contracts": a.schemas.ListContracts(),
			"artifacts": a.schemas.ListArtifacts(),
		})
	},
}

var schemasValidateCmd = &cobra.Command{
	Use:   "validate <artifact-schema> <file>",
	Short: "Validate a document against an artifact schema",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.logger.Sync()

		content, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		result := a.schemas.ValidateArtifact(args[0], string(content))
		if err := printJSON(result); err != nil {
			return err
		}
		if !result.Valid {
			os.Exit(1)
		}
		return nil
	},
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
