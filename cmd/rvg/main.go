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

	"reviewgate/internal/config"
	"reviewgate/internal/db"
	"reviewgate/internal/domain"
	"reviewgate/internal/engine"
	"reviewgate/internal/migrate"
	"reviewgate/internal/repo"
	"reviewgate/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "rvg",
	Short: "ReviewGate CLI",
	Long: `ReviewGate scores AI-generated QA artifacts and gates them behind review SLAs.
- Workspace: a .reviewgate directory holding the database; settings live in the DB.
- Project: owns artifacts, threshold settings, and SLA records.
- Artifacts: AI-generated test cases, plans, suites, and scripts. Each submission
  gets a risk score (0-100) and a level (low/medium/high/critical).
- Auto-approval: low-stakes, high-confidence artifacts skip human review entirely.
- SLA tracking: everything else gets a review deadline scaled to its risk level;
  records move within_sla -> approaching_sla -> breached and can be escalated.
- Event log: diary of every scoring, review, and SLA change ('rvg log tail').`,
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
	viper.SetEnvPrefix("REVIEWGATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	rootCmd.PersistentFlags().String("project", "", "project id")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("project", rootCmd.PersistentFlags().Lookup("project"))
}

func registerCommands() {
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(settingsCmd())
	rootCmd.AddCommand(submitCmd())
	rootCmd.AddCommand(assessCmd())
	rootCmd.AddCommand(artifactCmd())
	rootCmd.AddCommand(slaCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Manage projects"}
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectCreateCmd())
	prj.AddCommand(projectShowCmd())
	return prj
}

func projectListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListProjects(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	return cmd
}

func projectCreateCmd() *cobra.Command {
	var id, name, desc string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create project with default threshold settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.InitProject(ctx, id, name, desc, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "project id")
	cmd.Flags().StringVar(&name, "name", "", "project name (defaults to id)")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func projectShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				projectID, err := resolveProject(ctx, e.Repo)
				if err != nil {
					return err
				}
				p, err := e.Repo.GetProject(ctx, projectID)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	return cmd
}

func settingsCmd() *cobra.Command {
	s := &cobra.Command{
		Use:   "settings",
		Short: "Manage project threshold settings",
		Long:  "Settings hold the risk thresholds, SLA deadline hours per level, auto-approval policy, and escalation chain. Reads fall back to defaults; writes are validated as a whole.",
	}
	s.AddCommand(settingsShowCmd())
	s.AddCommand(settingsSetCmd())
	s.AddCommand(settingsImportCmd())
	s.AddCommand(settingsExportCmd())
	return s
}

func settingsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective settings (stored or defaults)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				projectID, err := resolveProject(ctx, e.Repo)
				if err != nil {
					return err
				}
				s, err := e.GetProjectSettings(ctx, projectID)
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	return cmd
}

func settingsSetCmd() *cobra.Command {
	var patch config.Patch
	var lowT, medT, highT, minConf, warnT int
	var lowH, medH, highH, critH float64
	var autoApprove bool
	var maxRisk string
	var chain []string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update settings fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("low-threshold") {
				patch.LowRiskThreshold = &lowT
			}
			if cmd.Flags().Changed("medium-threshold") {
				patch.MediumRiskThreshold = &medT
			}
			if cmd.Flags().Changed("high-threshold") {
				patch.HighRiskThreshold = &highT
			}
			if cmd.Flags().Changed("low-sla-hours") {
				patch.LowRiskSLAHours = &lowH
			}
			if cmd.Flags().Changed("medium-sla-hours") {
				patch.MediumRiskSLAHours = &medH
			}
			if cmd.Flags().Changed("high-sla-hours") {
				patch.HighRiskSLAHours = &highH
			}
			if cmd.Flags().Changed("critical-sla-hours") {
				patch.CriticalRiskSLAHours = &critH
			}
			if cmd.Flags().Changed("auto-approve") {
				patch.AutoApproveEnabled = &autoApprove
			}
			if cmd.Flags().Changed("auto-approve-max-risk") {
				patch.AutoApproveMaxRisk = &maxRisk
			}
			if cmd.Flags().Changed("auto-approve-min-confidence") {
				patch.AutoApproveMinConfidence = &minConf
			}
			if cmd.Flags().Changed("sla-warning-threshold") {
				patch.SLAWarningThreshold = &warnT
			}
			if cmd.Flags().Changed("escalation-chain") {
				patch.EscalationChain = chain
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				projectID, err := resolveProject(ctx, e.Repo)
				if err != nil {
					return err
				}
				s, err := e.UpdateProjectSettings(ctx, projectID, patch, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	cmd.Flags().IntVar(&lowT, "low-threshold", 0, "low risk upper bound (inclusive)")
	cmd.Flags().IntVar(&medT, "medium-threshold", 0, "medium risk upper bound (inclusive)")
	cmd.Flags().IntVar(&highT, "high-threshold", 0, "high risk upper bound (inclusive)")
	cmd.Flags().Float64Var(&lowH, "low-sla-hours", 0, "SLA hours for low risk")
	cmd.Flags().Float64Var(&medH, "medium-sla-hours", 0, "SLA hours for medium risk")
	cmd.Flags().Float64Var(&highH, "high-sla-hours", 0, "SLA hours for high risk")
	cmd.Flags().Float64Var(&critH, "critical-sla-hours", 0, "SLA hours for critical risk")
	cmd.Flags().BoolVar(&autoApprove, "auto-approve", true, "enable auto-approval")
	cmd.Flags().StringVar(&maxRisk, "auto-approve-max-risk", "", "max level eligible for auto-approval")
	cmd.Flags().IntVar(&minConf, "auto-approve-min-confidence", 0, "min AI confidence for auto-approval")
	cmd.Flags().IntVar(&warnT, "sla-warning-threshold", 0, "warning threshold percent of SLA window")
	cmd.Flags().StringArrayVar(&chain, "escalation-chain", []string{}, "escalation target (repeatable, in order)")
	return cmd
}

func settingsImportCmd() *cobra.Command {
	var filePath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace settings from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := config.FromFile(filePath)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				projectID, err := resolveProject(ctx, e.Repo)
				if err != nil {
					return err
				}
				res, err := e.ImportProjectSettings(ctx, projectID, s, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(res)
			})
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "path to YAML settings")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func settingsExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print effective settings as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				projectID, err := resolveProject(ctx, e.Repo)
				if err != nil {
					return err
				}
				s, err := e.GetProjectSettings(ctx, projectID)
				if err != nil {
					return err
				}
				data, err := s.ToYAML()
				if err != nil {
					return err
				}
				fmt.Print(string(data))
				return nil
			})
		},
	}
	return cmd
}

func submitCmd() *cobra.Command {
	var opts engine.SubmitOptions
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit an artifact for scoring and review gating",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if opts.ProjectID == "" {
					projectID, err := resolveProject(ctx, e.Repo)
					if err != nil {
						return err
					}
					opts.ProjectID = projectID
				}
				res, err := e.SubmitArtifact(ctx, opts)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				a := res.Artifact
				fmt.Printf("Artifact %s: %s (score %d, %s)\n", a.ID, a.Status, a.RiskScore, a.RiskLevel)
				if res.Tracking != nil {
					fmt.Printf("Review deadline: %s (%.1fh)\n", res.Tracking.Deadline, res.Tracking.DeadlineHours)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "artifact id (optional, UUID if omitted)")
	cmd.Flags().StringVar(&opts.ProjectID, "project", "", "project id")
	cmd.Flags().StringVar(&opts.Type, "type", "", "artifact type (test_case, test_plan, test_suite, script)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().IntVar(&opts.AIConfidenceScore, "confidence", 0, "AI confidence score 0-100")
	cmd.Flags().IntVar(&opts.FilesAffected, "files-affected", 1, "number of files affected")
	cmd.Flags().StringVar(&opts.SourceAgent, "source-agent", "", "generating agent identifier")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func assessCmd() *cobra.Command {
	var in engine.AssessInput
	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Score an artifact without persisting anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if in.ProjectID == "" {
					projectID, err := resolveProject(ctx, e.Repo)
					if err != nil {
						return err
					}
					in.ProjectID = projectID
				}
				a, err := e.AssessRisk(ctx, in)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(a)
				}
				fmt.Printf("Risk score: %d (%s)\n", a.RiskScore, a.RiskLevel)
				fmt.Printf("  type=%d confidence=%d scope=%d history=%d\n",
					a.RiskFactors.ArtifactTypeScore, a.RiskFactors.ConfidenceScore, a.RiskFactors.ScopeScore, a.RiskFactors.HistoricalRejectionScore)
				if a.ApprovalRequirements.CanAutoApprove {
					fmt.Printf("Auto-approve: yes (%s)\n", a.ApprovalRequirements.AutoApproveReason)
				} else {
					fmt.Println("Auto-approve: no, requires manual review")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.ProjectID, "project", "", "project id")
	cmd.Flags().StringVar(&in.ArtifactType, "type", "", "artifact type")
	cmd.Flags().IntVar(&in.AIConfidenceScore, "confidence", 0, "AI confidence score 0-100")
	cmd.Flags().IntVar(&in.FilesAffected, "files-affected", 1, "number of files affected")
	cmd.Flags().StringVar(&in.SourceAgent, "source-agent", "", "generating agent identifier")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func artifactCmd() *cobra.Command {
	a := &cobra.Command{Use: "artifact", Short: "Manage artifacts"}
	a.AddCommand(artifactListCmd())
	a.AddCommand(artifactShowCmd())
	a.AddCommand(artifactApproveCmd())
	a.AddCommand(artifactRejectCmd())
	return a
}

func artifactListCmd() *cobra.Command {
	var status, artifactType string
	var page, limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				projectID, err := resolveProject(ctx, e.Repo)
				if err != nil {
					return err
				}
				items, err := e.ListArtifacts(ctx, projectID, status, artifactType, page, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Type", "Title", "Status", "Score", "Level"})
				for _, a := range items {
					tw.AppendRow(table.Row{a.ID, a.Type, a.Title, a.Status, a.RiskScore, a.RiskLevel})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().StringVar(&artifactType, "type", "", "type filter")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", 20, "page size")
	return cmd
}

func artifactShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.GetArtifact(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	return cmd
}

func artifactApproveCmd() *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "approve <id>",
		Short: "Approve artifact and close its SLA record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.ApproveArtifact(ctx, args[0], viper.GetString("actor-id"), note)
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "review note")
	return cmd
}

func artifactRejectCmd() *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject artifact and close its SLA record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.RejectArtifact(ctx, args[0], viper.GetString("actor-id"), note)
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "review note")
	return cmd
}

func slaCmd() *cobra.Command {
	s := &cobra.Command{
		Use:   "sla",
		Short: "SLA tracking and metrics",
		Long:  "SLA records hold the review deadline for each pending artifact. Status flows within_sla -> approaching_sla -> breached; escalation is manual and sticky.",
	}
	s.AddCommand(slaStatusCmd())
	s.AddCommand(slaApproachingCmd())
	s.AddCommand(slaBreachedCmd())
	s.AddCommand(slaEscalateCmd())
	s.AddCommand(slaMetricsCmd())
	s.AddCommand(slaSweepCmd())
	return s
}

func slaStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <artifact-id>",
		Short: "Show live SLA status for an artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.GetSLAStatus(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(s)
				}
				fmt.Printf("Artifact %s: %s (%s risk)\n", s.ArtifactID, s.Status, s.RiskLevel)
				fmt.Printf("Deadline: %s, remaining %s, %.1f%% elapsed\n",
					s.Deadline.Format(time.RFC3339), s.TimeRemaining.Round(time.Minute), s.PercentageElapsed)
				return nil
			})
		},
	}
	return cmd
}

func trackingTable(items []domain.SLATracking) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Artifact", "Level", "Status", "Deadline", "Escalated To"})
	for _, t := range items {
		target := ""
		if t.EscalatedToID != nil {
			target = *t.EscalatedToID
		}
		tw.AppendRow(table.Row{t.ArtifactID, t.RiskLevel, t.Status, t.Deadline, target})
	}
	tw.Render()
}

func slaApproachingCmd() *cobra.Command {
	var page, limit int
	cmd := &cobra.Command{
		Use:   "approaching",
		Short: "List open SLA records not yet breached, most urgent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				projectID, err := resolveProject(ctx, e.Repo)
				if err != nil {
					return err
				}
				items, total, err := e.GetApproachingSLAs(ctx, projectID, page, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"items": items, "total": total})
				}
				trackingTable(items)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", 20, "page size")
	return cmd
}

func slaBreachedCmd() *cobra.Command {
	var page, limit int
	cmd := &cobra.Command{
		Use:   "breached",
		Short: "List SLA records past their deadline",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				projectID, err := resolveProject(ctx, e.Repo)
				if err != nil {
					return err
				}
				items, total, err := e.GetBreachedSLAs(ctx, projectID, page, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"items": items, "total": total})
				}
				trackingTable(items)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", 20, "page size")
	return cmd
}

func slaEscalateCmd() *cobra.Command {
	var target, reason string
	cmd := &cobra.Command{
		Use:   "escalate <artifact-id>",
		Short: "Escalate an artifact to a designated reviewer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.Escalate(ctx, engine.EscalateOptions{
					ArtifactID:    args[0],
					EscalatedToID: target,
					Reason:        reason,
					ActorID:       viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&target, "to", "", "escalation target (defaults to head of escalation chain)")
	cmd.Flags().StringVar(&reason, "reason", "", "escalation reason")
	return cmd
}

func slaMetricsCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "SLA compliance metrics over a trailing window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				projectID, err := resolveProject(ctx, e.Repo)
				if err != nil {
					return err
				}
				m, err := e.GetSLAMetrics(ctx, projectID, days)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(m)
				}
				fmt.Printf("Resolved: %d (within SLA %d, breached %d, escalated %d)\n", m.Total, m.WithinSLA, m.Breached, m.Escalated)
				fmt.Printf("Compliance: %.2f%%, avg resolution %.2fh\n", m.ComplianceRate, m.AverageResolutionHours)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "window in days")
	return cmd
}

func slaSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Re-evaluate open SLA records and send due warnings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				projectID, err := resolveProject(ctx, e.Repo)
				if err != nil {
					return err
				}
				res, err := e.SweepSLAs(ctx, projectID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				if len(res) == 0 {
					fmt.Println("no changes")
					return nil
				}
				for _, r := range res {
					line := fmt.Sprintf("%s: %s -> %s", r.ArtifactID, r.From, r.To)
					if r.Warned {
						line += " (warning sent)"
					}
					fmt.Println(line)
				}
				return nil
			})
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	l := &cobra.Command{
		Use:   "log",
		Short: "Event log",
	}
	l.AddCommand(logTailCmd())
	return l
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				projectID, err := resolveProject(ctx, e.Repo)
				if err != nil {
					return err
				}
				events, err := e.Repo.LatestEvents(ctx, n, projectID, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
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
			e := engine.New(conn)
			authCfg := server.AuthConfig{JWTSecret: os.Getenv("REVIEWGATE_JWT_SECRET")}
			if authCfg.JWTSecret == "" {
				return fmt.Errorf("REVIEWGATE_JWT_SECRET is required for bearer auth")
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
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
			fmt.Printf("Serving ReviewGate API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, engine.New(conn))
}

// resolveProject picks the --project flag when given, otherwise the single
// project in the workspace.
func resolveProject(ctx context.Context, r repo.Repo) (string, error) {
	if target := strings.TrimSpace(viper.GetString("project")); target != "" {
		return target, nil
	}
	p, err := r.SingleProject(ctx)
	if err != nil {
		return "", err
	}
	return p.ID, nil
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
