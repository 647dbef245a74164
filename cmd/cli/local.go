package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tinkerloft/formpilot/internal/app"
	"github.com/tinkerloft/formpilot/internal/config"
	"github.com/tinkerloft/formpilot/internal/confidence"
	"github.com/tinkerloft/formpilot/internal/knowledge"
	"github.com/tinkerloft/formpilot/internal/learning"
	"github.com/tinkerloft/formpilot/internal/model"
	"github.com/tinkerloft/formpilot/internal/notify"
	"github.com/tinkerloft/formpilot/internal/session"
)

var runCmd = &cobra.Command{
	Use:   "run QUESTIONS",
	Short: "Run a session locally",
	Long: "Run a question sheet (YAML file, Markdown file, or directory of Markdown files) " +
		"in this terminal, prompting for any question the engine defers",
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

var classifyCmd = &cobra.Command{
	Use:   "classify TEXT",
	Short: "Classify a question",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runClassify,
}

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Show learning insights",
	Long:  "Summarise maturity, automation readiness and failure clusters from the knowledge file",
	RunE:  runInsights,
}

var thresholdsCmd = &cobra.Command{
	Use:   "thresholds",
	Short: "Show capability thresholds",
	RunE:  runThresholds,
}

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Show learned success patterns",
	RunE:  runPatterns,
}

var mergeCmd = &cobra.Command{
	Use:   "merge [SNAPSHOT...]",
	Short: "Merge session snapshots into the knowledge file",
	Long:  "Merge the given snapshot files, or every *.yaml in knowledge.merge_dir, into the shared knowledge file",
	RunE:  runMerge,
}

func init() {
	runCmd.Flags().String("session-id", "", "Session ID (default: generated)")
	runCmd.Flags().Bool("snapshot", false, "Write learning to a snapshot in knowledge.merge_dir instead of the shared file")

	patternsCmd.Flags().String("capability", "", "Only show patterns for this capability")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(insightsCmd)
	rootCmd.AddCommand(thresholdsCmd)
	rootCmd.AddCommand(patternsCmd)
	rootCmd.AddCommand(mergeCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd)

	questions, err := config.LoadQuestions(args[0])
	if err != nil {
		return err
	}
	if len(questions) == 0 {
		return fmt.Errorf("%s contains no questions", args[0])
	}

	sessionID, _ := cmd.Flags().GetString("session-id")
	if sessionID == "" {
		sessionID = "session-" + uuid.New().String()
	}

	opts := app.Options{Logger: logger}
	snapshot, _ := cmd.Flags().GetBool("snapshot")
	var snapshotPath string
	if snapshot {
		snapshotPath, err = snapshotFile(cfg, sessionID)
		if err != nil {
			return err
		}
		shared, err := knowledge.Load(cfg.Knowledge.Path)
		if err != nil {
			logger.Warn("Knowledge file unreadable, starting from defaults", "path", cfg.Knowledge.Path, "error", err)
			shared = knowledge.NewDocument()
		}
		opts.Store = knowledge.FromDocument(snapshotPath, shared.Clone(), logger)
	}

	rt, err := app.Build(cfg, opts)
	if err != nil {
		return err
	}

	var notifier session.Notifier
	if cfg.Slack.Channel != "" {
		if n, err := notify.NewSlack(cfg.Slack.Channel); err == nil {
			notifier = n
		} else {
			logger.Warn("Slack notifications disabled", "error", err)
		}
	}

	s, err := session.New(sessionID, rt.Deps(session.NewConsoleHuman(cmd.InOrStdin(), cmd.OutOrStdout()), notifier))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Running session %s (%d questions)\n\n", sessionID, len(questions))
	summary := s.Run(ctx, questions)

	if snapshotPath != "" {
		// Outcomes were flushed to the snapshot as they happened; this
		// covers sessions that recorded nothing.
		if err := rt.Store.Snapshot(snapshotPath); err != nil {
			return fmt.Errorf("failed to write snapshot: %w", err)
		}
		fmt.Fprintf(out, "Snapshot written to %s\n", snapshotPath)
	} else if err := rt.Close(); err != nil {
		logger.Warn("Failed to save knowledge", "path", cfg.Knowledge.Path, "error", err)
	}

	if jsonOutput(cmd) {
		return printJSON(out, summary)
	}
	printSummary(out, summary)
	return nil
}

// snapshotFile places a session snapshot under knowledge.merge_dir.
func snapshotFile(cfg *config.Config, sessionID string) (string, error) {
	if cfg.Knowledge.MergeDir == "" {
		return "", fmt.Errorf("--snapshot requires knowledge.merge_dir")
	}
	return knowledge.SnapshotPath(cfg.Knowledge.MergeDir, sessionID), nil
}

func printSummary(w io.Writer, s model.SessionSummary) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTYPE\tCAPABILITY\tCONF\tTHRESH\tRESULT\tVALUE")
	for i, r := range s.Results {
		capName := r.Capability
		if capName == "" {
			capName = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%.2f\t%s\t%s\n",
			i+1, r.Classification.Type, capName, r.Confidence, r.Threshold, resultLabel(r), r.Value)
	}
	tw.Flush()
	fmt.Fprintf(w, "\nTotal: %d  Automated: %d  Deferred: %d  Failed attempts: %d  Learning events: %d\n",
		s.Total, s.Automated, s.Deferred, s.FailedAttempts, s.LearningEvents)
}

func resultLabel(r model.QuestionResult) string {
	switch {
	case r.Attempted && r.Success:
		return "automated"
	case r.Deferred && r.Value != "":
		return "answered"
	case r.Deferred:
		return "deferred"
	case r.Attempted:
		return "failed"
	default:
		return string(r.Reason)
	}
}

func runClassify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cl, err := cfg.NewClassifier()
	if err != nil {
		return err
	}

	c := cl.Classify(strings.Join(args, " "))
	out := cmd.OutOrStdout()
	if jsonOutput(cmd) {
		return printJSON(out, c)
	}
	fmt.Fprintf(out, "Type:       %s\n", c.Type)
	fmt.Fprintf(out, "Category:   %s\n", c.Category)
	fmt.Fprintf(out, "Confidence: %.2f\n", c.Confidence)
	if len(c.Matches) > 0 {
		fmt.Fprintf(out, "Matches:    %s\n", strings.Join(c.Matches, ", "))
	}
	for _, alt := range c.Alternatives {
		fmt.Fprintf(out, "  alt %s %.2f\n", alt.Type, alt.Confidence)
	}
	return nil
}

// loadDocument reads the knowledge file without taking ownership of it.
func loadDocument(cmd *cobra.Command) (*knowledge.Document, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return knowledge.Load(cfg.Knowledge.Path)
}

func runInsights(cmd *cobra.Command, args []string) error {
	doc, err := loadDocument(cmd)
	if err != nil {
		return err
	}
	in := learning.Summarize(doc)
	out := cmd.OutOrStdout()
	if jsonOutput(cmd) {
		return printJSON(out, in)
	}

	fmt.Fprintf(out, "Maturity:             %s\n", in.Maturity)
	fmt.Fprintf(out, "Automation readiness: %.0f%%\n", in.AutomationReadiness)
	fmt.Fprintf(out, "Interventions:        %d\n", in.TotalInterventions)
	fmt.Fprintf(out, "Success patterns:     %d (%d strong)\n", in.SuccessPatterns, in.StrongPatterns)
	fmt.Fprintf(out, "Calibrations:         %d\n", in.Calibrations)
	if in.DominantFailureCategory != "" {
		fmt.Fprintf(out, "Most deferred type:   %s\n", in.DominantFailureCategory)
	}
	if len(in.FailureClusters) > 0 {
		fmt.Fprintln(out, "\nFailure clusters:")
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  TYPE\tELEMENT\tCOUNT\tAVG CONF")
		for _, c := range in.FailureClusters {
			fmt.Fprintf(tw, "  %s\t%s\t%d\t%.2f\n", c.QuestionType, c.Element, c.Count, c.AvgConfidence)
		}
		tw.Flush()
	}
	if len(in.Recommendations) > 0 {
		fmt.Fprintln(out, "\nRecommendations:")
		for _, r := range in.Recommendations {
			fmt.Fprintf(out, "  - %s\n", r)
		}
	}
	return nil
}

func runThresholds(cmd *cobra.Command, args []string) error {
	doc, err := loadDocument(cmd)
	if err != nil {
		return err
	}
	thresholds := make([]model.CapabilityThreshold, 0, len(doc.CapabilityThresholds))
	for _, t := range doc.CapabilityThresholds {
		thresholds = append(thresholds, *t)
	}
	sort.Slice(thresholds, func(i, j int) bool { return thresholds[i].Name < thresholds[j].Name })

	out := cmd.OutOrStdout()
	if jsonOutput(cmd) {
		return printJSON(out, thresholds)
	}
	if len(thresholds) == 0 {
		fmt.Fprintln(out, "No capability has been attempted yet.")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CAPABILITY\tBASE\tADJUST\tSUCCESS\tATTEMPTS\tTREND")
	for _, t := range thresholds {
		fmt.Fprintf(tw, "%s\t%.2f\t%+.3f\t%.0f%%\t%d/%d\t%s\n",
			t.Name, t.BaseThreshold, t.DynamicAdjustment, t.SuccessRate*100, t.SuccessfulAttempts, t.TotalAttempts, t.Trend)
	}
	return tw.Flush()
}

func runPatterns(cmd *cobra.Command, args []string) error {
	doc, err := loadDocument(cmd)
	if err != nil {
		return err
	}
	capFilter, _ := cmd.Flags().GetString("capability")
	var patterns []model.SuccessPattern
	for _, p := range doc.SuccessPatterns {
		if capFilter == "" || p.Capability == capFilter {
			patterns = append(patterns, *p)
		}
	}
	confidence.SortPatterns(patterns)

	out := cmd.OutOrStdout()
	if jsonOutput(cmd) {
		return printJSON(out, patterns)
	}
	if len(patterns) == 0 {
		fmt.Fprintln(out, "No success patterns learned yet.")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CAPABILITY\tTYPE\tSTRATEGY\tSAMPLES\tSTRENGTH\tBOOST")
	for _, p := range patterns {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%.3f\n",
			p.Capability, p.QuestionType, p.Strategy, p.SampleSize, p.Strength, p.ConfidenceBoost)
	}
	return tw.Flush()
}

func runMerge(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd)

	paths := args
	if len(paths) == 0 {
		if cfg.Knowledge.MergeDir == "" {
			return fmt.Errorf("no snapshots given and knowledge.merge_dir is not set")
		}
		paths, err = filepath.Glob(filepath.Join(cfg.Knowledge.MergeDir, "*.yaml"))
		if err != nil {
			return err
		}
		sort.Strings(paths)
	}
	if len(paths) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing to merge.")
		return nil
	}

	store, err := knowledge.Open(cfg.Knowledge.Path, logger)
	if err != nil {
		return fmt.Errorf("cannot merge into %s: %w", cfg.Knowledge.Path, err)
	}
	n, err := store.MergeFrom(paths...)
	fmt.Fprintf(cmd.OutOrStdout(), "Merged %d of %d snapshots into %s\n", n, len(paths), cfg.Knowledge.Path)
	return err
}
