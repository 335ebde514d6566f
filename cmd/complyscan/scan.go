package complyscan

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/complyscan/complyscan/internal/ai"
	"github.com/complyscan/complyscan/internal/audit"
	"github.com/complyscan/complyscan/internal/cost"
	"github.com/complyscan/complyscan/internal/logging"
	"github.com/complyscan/complyscan/internal/report"
	"github.com/complyscan/complyscan/internal/scan"
	"github.com/complyscan/complyscan/internal/types"
)

var (
	flagPath          string
	flagMode          string
	flagFramework     string
	flagInclude       string
	flagExclude       string
	flagMaxBytes      int64
	flagControls      string
	flagCostLimit     float64
	flagMergeWindow   int
	flagKeywords      string
	flagAIModel       string
	flagAIConcurrency int
	flagAIRPM         int
	flagNoCache       bool
	flagYesOverBudget bool
)

func init() {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a codebase for compliance violations",
		RunE:  runScan,
	}
	rootCmd.AddCommand(cmd)

	cmd.Flags().StringVarP(&flagPath, "path", "p", ".", "path to scan")
	cmd.Flags().StringVar(&flagMode, "mode", "", "scan mode: regex_only|smart|analyze_all (default regex_only)")
	cmd.Flags().StringVar(&flagFramework, "framework", "", "force framework: django|flask|express|nextreact")
	cmd.Flags().StringVar(&flagInclude, "include", "", "comma-separated include globs")
	cmd.Flags().StringVar(&flagExclude, "exclude", "", "comma-separated exclude globs")
	cmd.Flags().Int64Var(&flagMaxBytes, "max-bytes", 1<<20, "skip files larger than this")
	cmd.Flags().StringVar(&flagControls, "controls", "", "only check these controls (comma-separated IDs)")
	cmd.Flags().Float64Var(&flagCostLimit, "cost-limit", 0, "pause AI analysis when spend reaches this USD amount (0 = no limit)")
	cmd.Flags().IntVar(&flagMergeWindow, "merge-window", 0, "line distance for merging regex and AI detections")
	cmd.Flags().StringVar(&flagKeywords, "keywords", "", "override smart-mode relevance keywords (comma-separated)")
	cmd.Flags().StringVar(&flagAIModel, "ai-model", "", "AI model to analyze with")
	cmd.Flags().IntVar(&flagAIConcurrency, "ai-concurrency", 0, "concurrent AI analysis calls")
	cmd.Flags().IntVar(&flagAIRPM, "ai-rpm", 0, "max AI analysis calls per minute (0 = unlimited)")
	cmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "disable the AI analysis cache")
	cmd.Flags().BoolVar(&flagYesOverBudget, "yes-over-budget", false, "continue past the cost limit without prompting")
}

func runScan(cmd *cobra.Command, _ []string) error {
	abs, _ := filepath.Abs(flagPath)
	lcfg, gcfg := loadConfigs(abs)
	log := logging.New(flagVerbose)
	defer log.Sync()

	mode := types.ParseScanMode(pickString(flagMode, lcfg.Mode, gcfg.Mode))
	opts := scan.Options{
		Root:             abs,
		Mode:             mode,
		Framework:        types.ParseFramework(pickString(flagFramework, lcfg.Framework, gcfg.Framework)),
		CostLimitUSD:     pickFloat(flagCostLimit, lcfg.CostLimitUSD, gcfg.CostLimitUSD),
		MergeWindow:      pickInt(flagMergeWindow, lcfg.MergeWindow, gcfg.MergeWindow),
		AIConcurrency:    pickInt(flagAIConcurrency, lcfg.AIConcurrency, gcfg.AIConcurrency),
		AIRequestsPerMin: pickInt(flagAIRPM, lcfg.AIRequestsPerMin, gcfg.AIRequestsPerMin),
		NoCache:          pickBool(flagNoCache, lcfg.NoCache, gcfg.NoCache),
		IncludeGlobs:     pickString(flagInclude, lcfg.Include, gcfg.Include),
		ExcludeGlobs:     pickString(flagExclude, lcfg.Exclude, gcfg.Exclude),
		MaxBytes:         pickInt64(flagMaxBytes, lcfg.MaxBytes, gcfg.MaxBytes),
	}
	if ids := pickString(flagControls, lcfg.Controls, gcfg.Controls); ids != "" {
		opts.EnabledControls = splitList(ids)
	}
	if kws := flagKeywords; kws != "" {
		opts.Keywords = splitList(kws)
	} else if len(lcfg.SmartKeywords) > 0 {
		opts.Keywords = lcfg.SmartKeywords
	} else if len(gcfg.SmartKeywords) > 0 {
		opts.Keywords = gcfg.SmartKeywords
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var analyzer ai.Analyzer
	if mode != types.ModeRegexOnly {
		apiKey := os.Getenv("GEMINI_API_KEY")
		if apiKey == "" {
			apiKey = os.Getenv("GOOGLE_API_KEY")
		}
		if apiKey == "" {
			return fmt.Errorf("mode %s needs AI analysis: set GEMINI_API_KEY or GOOGLE_API_KEY, or use --mode regex_only", mode)
		}
		a, err := ai.NewGenAIAnalyzer(ctx, ai.Config{
			APIKey: apiKey,
			Model:  pickString(flagAIModel, lcfg.AIModel, gcfg.AIModel),
			Logger: log,
		})
		if err != nil {
			return err
		}
		analyzer = a
	}

	st, err := openStore(abs, lcfg, gcfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	interactive := !flagJSON && !flagSARIF
	if interactive {
		fmt.Fprintf(os.Stderr, "Scanning %s (mode: %s)...\n", abs, mode)
	}

	o := scan.New(opts, analyzer, st, log)
	start := time.Now()

	type outcome struct {
		res scan.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := o.Run(ctx)
		done <- outcome{res, err}
	}()

	var out outcome
loop:
	for {
		select {
		case p := <-o.Progress():
			if interactive && p.TotalFiles > 0 {
				fmt.Fprintf(os.Stderr, "\r[%d/%d] %.0f%%  %s\x1b[K",
					p.FilesScanned, p.TotalFiles, p.Percentage, p.CurrentFile)
			}
		case gate := <-o.CostGate():
			o.RespondToCostLimit(answerCostGate(gate, interactive))
		case out = <-done:
			break loop
		}
	}
	if interactive {
		fmt.Fprintln(os.Stderr)
	}
	if out.err != nil {
		return fmt.Errorf("scan failed: %w", out.err)
	}
	res := out.res
	duration := time.Since(start)

	for _, e := range res.RuleErrors {
		log.Warn("rule engine error", zap.Error(e))
	}
	for _, e := range res.AIErrors {
		log.Warn("AI analysis error", zap.Error(e))
	}

	al := audit.NewAuditLog(abs)
	rec := audit.CreateScanRecord(abs, res.ScanID, mode, res.Violations, res.Cost, res.FilesScanned, duration)
	if err := al.LogScan(rec); err != nil {
		log.Warn("could not write audit record", zap.Error(err))
	}

	switch {
	case flagSARIF:
		if err := report.WriteSARIF(os.Stdout, res.Violations); err != nil {
			return fmt.Errorf("sarif error: %w", err)
		}
	case flagJSON:
		if err := report.WriteJSON(os.Stdout, res.Violations); err != nil {
			return err
		}
	default:
		report.PrintTable(os.Stdout, res.Violations, report.PrintOptions{
			NoColor:      flagNoColor,
			Duration:     duration,
			FilesScanned: res.FilesScanned,
			Cost:         res.Cost,
		})
	}

	if failOn := resolveFailOn(lcfg, gcfg); report.ShouldFail(res.Violations, failOn) {
		os.Exit(1)
	}
	return nil
}

// answerCostGate resolves a tripped cost limit. Non-interactive runs never
// prompt: they continue only when --yes-over-budget was given.
func answerCostGate(gate cost.Status, interactive bool) bool {
	if flagYesOverBudget {
		return true
	}
	if !interactive {
		fmt.Fprintf(os.Stderr, "cost limit of $%.2f reached ($%.4f spent, %d/%d files analyzed); stopping AI analysis\n",
			gate.Limit, gate.CurrentCost, gate.FilesAnalyzed, gate.TotalFiles)
		return false
	}
	fmt.Fprintf(os.Stderr, "\nCost limit of $%.2f reached ($%.4f spent, %d/%d files analyzed).\nContinue AI analysis without a limit? [y/N] ",
		gate.Limit, gate.CurrentCost, gate.FilesAnalyzed, gate.TotalFiles)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
