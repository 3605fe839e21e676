package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"autoqa/internal/config"
	"autoqa/internal/db"
	"autoqa/internal/domain"
	"autoqa/internal/engine"
	"autoqa/internal/migrate"
	"autoqa/internal/repo"
	"autoqa/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "aq",
	Short: "AutoQA CLI",
	Long: `AutoQA runs simulated QA suites against a target URL.
A run moves through running -> generating_tests -> executing_tests and ends
completed or failed. Each run stores its discovered pages, executed test
cases, insights and a step-by-step recording in the workspace database.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("AUTOQA")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(recordingCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage configuration"}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default autoqa.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config")
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSON(cfg)
		},
	}
	return cmd
}

func runCmd() *cobra.Command {
	run := &cobra.Command{Use: "run", Short: "Manage test runs"}
	run.AddCommand(runStartCmd())
	run.AddCommand(runListCmd())
	run.AddCommand(runShowCmd())
	run.AddCommand(runCasesCmd())
	run.AddCommand(runPagesCmd())
	run.AddCommand(runInsightsCmd())
	run.AddCommand(runRecordingsCmd())
	return run
}

func runStartCmd() *cobra.Command {
	var opts engine.StartRunOptions
	var headless bool
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a test run and wait for it to finish",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.URL == "" {
				return fmt.Errorf("--url required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				opts.Headless = &headless
				run, err := e.StartRun(ctx, opts)
				if err != nil {
					return err
				}
				fmt.Println("started run", run.ID)
				e.Wait()
				final, err := e.Repo.GetTestRun(ctx, run.ID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(final)
				}
				printRunTable([]domain.TestRun{final})
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&opts.URL, "url", "", "target URL (required)")
	cmd.Flags().StringVar(&opts.Username, "username", "", "login username")
	cmd.Flags().StringVar(&opts.Password, "password", "", "login password")
	cmd.Flags().StringVar(&opts.OTP, "otp", "", "one-time code for 2FA flows")
	cmd.Flags().StringVar(&opts.Framework, "framework", "", "playwright, cypress or selenium")
	cmd.Flags().StringVar(&opts.Browser, "browser", "", "chromium, firefox or webkit")
	cmd.Flags().StringVar(&opts.Depth, "depth", "", "quick, standard or exhaustive")
	cmd.Flags().StringVar(&opts.TestType, "test-type", "", "test type focus")
	cmd.Flags().StringVar(&opts.AIModel, "ai-model", "", "analysis model")
	cmd.Flags().BoolVar(&headless, "headless", true, "run headless")
	cmd.Flags().StringVar(&opts.DataValidationRules, "data-validation-rules", "", "rules for data validation runs")
	return cmd
}

func runListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List test runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				runs, err := r.ListTestRuns(ctx, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(runs)
				}
				printRunTable(runs)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "max runs to show")
	return cmd
}

func runShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a test run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				run, err := r.GetTestRun(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(run)
			})
		},
	}
	return cmd
}

func runCasesCmd() *cobra.Command {
	var status string
	var limit int
	cmd := &cobra.Command{
		Use:   "cases <run-id>",
		Short: "List a run's executed test cases",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				cases, err := r.ListTestCases(ctx, repo.TestCaseFilters{TestRunID: args[0], Status: status, Limit: limit})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cases)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Name", "Type", "Severity", "Status", "Time (ms)"})
				for _, c := range cases {
					tw.AppendRow(table.Row{c.TestName, c.TestType, c.Severity, c.Status, c.ExecutionTime})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "passed or failed")
	cmd.Flags().IntVar(&limit, "limit", 0, "max cases to show")
	return cmd
}

func runPagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pages <run-id>",
		Short: "List a run's discovered pages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				pages, err := r.ListDiscoveredPages(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(pages)
			})
		},
	}
	return cmd
}

func runInsightsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insights <run-id>",
		Short: "List a run's insights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				insights, err := r.ListInsights(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(insights)
			})
		},
	}
	return cmd
}

func runRecordingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recordings <run-id>",
		Short: "List a run's recordings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				recs, err := r.ListRecordings(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(recs)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Status", "Steps", "Duration (ms)"})
				for _, rec := range recs {
					tw.AppendRow(table.Row{rec.ID, rec.Name, rec.Status, rec.TotalSteps, rec.Duration})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func recordingCmd() *cobra.Command {
	rec := &cobra.Command{Use: "recording", Short: "Inspect recordings"}
	rec.AddCommand(recordingStepsCmd())
	return rec
}

func recordingStepsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "steps <recording-id>",
		Short: "List a recording's steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				steps, err := r.ListRecordingSteps(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(steps)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"#", "Action", "Status", "Time (ms)"})
				for _, s := range steps {
					tw.AppendRow(table.Row{s.StepNumber, s.ActionDescription, s.Status, s.ExecutionTime})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Run audit log",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show a run's audit events",
		RunE: func(cmd *cobra.Command, args []string) error {
			if runID == "" {
				return fmt.Errorf("--run required")
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				events, err := r.ListRunEvents(ctx, runID)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "run id")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg, err := config.LoadOptional(workspace)
			if err != nil {
				return err
			}
			e := engine.New(conn, cfg)
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving AutoQA API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			e.Wait()
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := db.Open(db.Config{Workspace: viper.GetString("workspace")})
			if err != nil {
				return err
			}
			defer conn.Close()
			return migrate.Migrate(conn)
		},
	}
	return cmd
}

func withEngine(ctx context.Context, fn func(context.Context, *engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg)
	return fn(ctx, e)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	conn, err := db.Open(db.Config{Workspace: viper.GetString("workspace")})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func printRunTable(runs []domain.TestRun) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "URL", "Status", "Depth", "Type", "Passed", "Failed", "Total"})
	for _, r := range runs {
		tw.AppendRow(table.Row{r.ID, r.URL, r.Status, r.Depth, r.TestType, r.PassedTests, r.FailedTests, r.TotalTests})
	}
	tw.Render()
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
