package complyscan

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagJSON    bool
	flagSARIF   bool
	flagNoColor bool
	flagVerbose bool
	flagFailOn  string
	flagStore   string

	version = "0.1.0"
)

// rootCmd is the base Cobra command for the complyscan CLI.
var rootCmd = &cobra.Command{
	Use:           "complyscan",
	Short:         "Scan your codebase for compliance violations",
	Long:          "Complyscan checks source code against a compliance control catalog using deterministic rules, optionally augmented by AI analysis under a cost budget.",
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       version,
}

// Execute runs the complyscan CLI. It should be called by the main package.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "emit JSON")
	rootCmd.PersistentFlags().BoolVar(&flagSARIF, "sarif", false, "emit SARIF 2.1.0")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colorized output")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagFailOn, "fail-on", "", "exit non-zero on low|medium|high|critical")
	rootCmd.PersistentFlags().StringVar(&flagStore, "store", "", "path to the violations database (default .complyscan.db in the scan root)")
}
