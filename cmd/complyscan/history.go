package complyscan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/complyscan/complyscan/internal/audit"
)

var flagHistoryPath string

func init() {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past scans from the audit log",
		RunE: func(_ *cobra.Command, _ []string) error {
			abs, _ := filepath.Abs(flagHistoryPath)
			records, err := audit.NewAuditLog(abs).LoadHistory()
			if err != nil {
				fmt.Println("no scan history")
				return nil
			}
			if flagJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}
			for _, r := range records {
				fmt.Printf("%s  %s  mode=%s  violations=%d  files=%d  ai=%d  $%.4f  %s\n",
					r.Timestamp.Format("2006-01-02 15:04"), r.ScanID, r.Mode,
					r.TotalViolations, r.FilesScanned, r.FilesAnalyzedAI,
					r.CostUSD, r.Duration)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&flagHistoryPath, "path", "p", ".", "project root")
	rootCmd.AddCommand(cmd)
}
