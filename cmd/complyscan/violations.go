package complyscan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/complyscan/complyscan/internal/report"
	"github.com/complyscan/complyscan/internal/store"
	"github.com/complyscan/complyscan/internal/types"
)

var (
	flagVioPath    string
	flagVioScanID  string
	flagVioControl string
	flagVioStatus  string
)

func init() {
	cmd := &cobra.Command{
		Use:   "violations",
		Short: "List recorded violations",
		RunE:  runViolations,
	}
	cmd.Flags().StringVarP(&flagVioPath, "path", "p", ".", "project root")
	cmd.Flags().StringVar(&flagVioScanID, "scan", "", "filter by scan ID")
	cmd.Flags().StringVar(&flagVioControl, "control", "", "filter by control ID")
	cmd.Flags().StringVar(&flagVioStatus, "status", "open", "filter by status: open|fixed|dismissed|all")
	rootCmd.AddCommand(cmd)

	dismiss := &cobra.Command{
		Use:   "dismiss <violation-id>",
		Short: "Dismiss a violation as accepted risk or false positive",
		Args:  cobra.ExactArgs(1),
		RunE:  runDismiss,
	}
	dismiss.Flags().StringVarP(&flagVioPath, "path", "p", ".", "project root")
	cmd.AddCommand(dismiss)

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete recorded violations, fixes, and cost data",
		RunE:  runClear,
	}
	clearCmd.Flags().StringVarP(&flagVioPath, "path", "p", ".", "project root")
	clearCmd.Flags().StringVar(&flagVioScanID, "scan", "", "clear only this scan (default: everything)")
	cmd.AddCommand(clearCmd)
}

func runClear(_ *cobra.Command, _ []string) error {
	abs, _ := filepath.Abs(flagVioPath)
	lcfg, gcfg := loadConfigs(abs)
	st, err := openStore(abs, lcfg, gcfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if err := st.Purge(context.Background(), flagVioScanID); err != nil {
		return err
	}
	if flagVioScanID != "" {
		fmt.Printf("cleared scan %s\n", flagVioScanID)
	} else {
		fmt.Println("cleared all recorded scans")
	}
	return nil
}

func runViolations(_ *cobra.Command, _ []string) error {
	abs, _ := filepath.Abs(flagVioPath)
	lcfg, gcfg := loadConfigs(abs)
	st, err := openStore(abs, lcfg, gcfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	filter := store.Filter{
		ScanID:    flagVioScanID,
		ControlID: flagVioControl,
	}
	if flagVioStatus != "" && flagVioStatus != "all" {
		filter.Status = types.ViolationStatus(flagVioStatus)
	}
	vs, err := st.Violations(context.Background(), filter)
	if err != nil {
		return err
	}

	switch {
	case flagSARIF:
		return report.WriteSARIF(os.Stdout, vs)
	case flagJSON:
		return report.WriteJSON(os.Stdout, vs)
	default:
		report.PrintTable(os.Stdout, vs, report.PrintOptions{NoColor: flagNoColor})
		for _, v := range vs {
			fmt.Printf("  %s  %s\n", v.ID, v.Description)
		}
	}
	return nil
}

func runDismiss(_ *cobra.Command, args []string) error {
	abs, _ := filepath.Abs(flagVioPath)
	lcfg, gcfg := loadConfigs(abs)
	st, err := openStore(abs, lcfg, gcfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	id := args[0]
	if err := st.UpdateViolationStatus(context.Background(), id, types.StatusDismissed); err != nil {
		return fmt.Errorf("dismiss %s: %w", id, err)
	}
	fmt.Printf("dismissed %s\n", id)
	return nil
}
