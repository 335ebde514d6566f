package complyscan

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/complyscan/complyscan/internal/apply"
	"github.com/complyscan/complyscan/internal/files"
	"github.com/complyscan/complyscan/internal/fix"
	"github.com/complyscan/complyscan/internal/store"
	"github.com/complyscan/complyscan/internal/types"
)

var (
	flagFixPath      string
	flagFixViolation string
	flagFixScanID    string
	flagFixAuthor    string
	flagFixEmail     string
)

func init() {
	cmd := &cobra.Command{
		Use:   "fix",
		Short: "Generate fix suggestions for open violations",
		RunE:  runFix,
	}
	cmd.Flags().StringVarP(&flagFixPath, "path", "p", ".", "project root")
	cmd.Flags().StringVar(&flagFixViolation, "violation", "", "fix only this violation ID")
	cmd.Flags().StringVar(&flagFixScanID, "scan", "", "fix violations from this scan only")
	rootCmd.AddCommand(cmd)

	applyCmd := &cobra.Command{
		Use:   "apply <fix-id>",
		Short: "Apply a generated fix and commit it",
		Args:  cobra.ExactArgs(1),
		RunE:  runApply,
	}
	applyCmd.Flags().StringVarP(&flagFixPath, "path", "p", ".", "project root")
	applyCmd.Flags().StringVar(&flagFixAuthor, "author", "complyscan", "commit author name")
	applyCmd.Flags().StringVar(&flagFixEmail, "email", "complyscan@localhost", "commit author email")
	cmd.AddCommand(applyCmd)
}

func runFix(_ *cobra.Command, _ []string) error {
	abs, _ := filepath.Abs(flagFixPath)
	lcfg, gcfg := loadConfigs(abs)
	st, err := openStore(abs, lcfg, gcfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	ctx := context.Background()

	var vs []types.Violation
	if flagFixViolation != "" {
		v, err := st.ViolationByID(ctx, flagFixViolation)
		if err != nil {
			return fmt.Errorf("load violation: %w", err)
		}
		vs = []types.Violation{v}
	} else {
		vs, err = st.Violations(ctx, store.Filter{ScanID: flagFixScanID, Status: types.StatusOpen})
		if err != nil {
			return err
		}
	}
	if len(vs) == 0 {
		fmt.Println("no open violations to fix")
		return nil
	}

	fw := types.ParseFramework(pickString("", lcfg.Framework, gcfg.Framework))
	generated, manual := 0, 0
	for _, v := range vs {
		content, err := files.ReadFile(abs, v.FilePath)
		if err != nil {
			fmt.Printf("skipping %s: %v\n", v.FilePath, err)
			continue
		}
		f := fix.Run(v, content, fw)
		if err := st.SaveFix(ctx, f); err != nil {
			return fmt.Errorf("save fix: %w", err)
		}
		if f.TrustLevel == types.TrustManual {
			manual++
			fmt.Printf("%s  %s:%d  manual: %s\n", f.ID, v.FilePath, v.LineNumber, f.Explanation)
			continue
		}
		generated++
		fmt.Printf("%s  %s:%d  [%s]\n", f.ID, v.FilePath, v.LineNumber, v.ControlID)
		fmt.Printf("  - %s\n", f.OriginalCode)
		fmt.Printf("  + %s\n", indentContinuation(f.FixedCode))
		fmt.Printf("  %s\n", f.Explanation)
	}
	fmt.Printf("\n%d fixes generated, %d need manual remediation\n", generated, manual)
	if generated > 0 {
		fmt.Println("review a fix and apply it with: complyscan fix apply <fix-id>")
	}
	return nil
}

func runApply(_ *cobra.Command, args []string) error {
	abs, _ := filepath.Abs(flagFixPath)
	lcfg, gcfg := loadConfigs(abs)
	st, err := openStore(abs, lcfg, gcfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	ctx := context.Background()

	fixID := args[0]
	f, v, err := findFix(ctx, st, fixID)
	if err != nil {
		return err
	}
	if f.AppliedAt != nil {
		return fmt.Errorf("fix %s was already applied in commit %s", fixID, f.GitCommitSHA)
	}

	sha, err := apply.Apply(abs, v, f, apply.Author{Name: flagFixAuthor, Email: flagFixEmail})
	if err != nil {
		switch {
		case errors.Is(err, apply.ErrDirtyWorktree):
			return fmt.Errorf("%w: commit or stash your changes first", err)
		case errors.Is(err, apply.ErrStaleOriginal):
			return fmt.Errorf("%w: re-run the scan and regenerate the fix", err)
		}
		return err
	}
	if err := st.UpdateFixApplied(ctx, fixID, flagFixAuthor, sha); err != nil {
		return fmt.Errorf("record applied fix: %w", err)
	}
	if err := st.UpdateViolationStatus(ctx, v.ID, types.StatusFixed); err != nil {
		return fmt.Errorf("mark violation fixed: %w", err)
	}
	fmt.Printf("applied fix %s in commit %s\n", fixID, sha)
	return nil
}

// findFix locates a fix by ID together with its violation. The store is
// keyed by violation, so this walks open and fixed violations.
func findFix(ctx context.Context, st store.Store, fixID string) (types.Fix, types.Violation, error) {
	for _, status := range []types.ViolationStatus{types.StatusOpen, types.StatusFixed, types.StatusDismissed} {
		vs, err := st.Violations(ctx, store.Filter{Status: status})
		if err != nil {
			return types.Fix{}, types.Violation{}, err
		}
		for _, v := range vs {
			fixes, err := st.FixesForViolation(ctx, v.ID)
			if err != nil {
				return types.Fix{}, types.Violation{}, err
			}
			for _, f := range fixes {
				if f.ID == fixID {
					return f, v, nil
				}
			}
		}
	}
	return types.Fix{}, types.Violation{}, fmt.Errorf("fix %s: %w", fixID, store.ErrNotFound)
}

func indentContinuation(s string) string {
	out := ""
	for i, r := range s {
		out += string(r)
		if r == '\n' && i < len(s)-1 {
			out += "  + "
		}
	}
	return out
}
