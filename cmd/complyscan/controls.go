package complyscan

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/complyscan/complyscan/internal/controls"
)

func init() {
	cmd := &cobra.Command{
		Use:   "controls",
		Short: "List the compliance control catalog",
		RunE: func(_ *cobra.Command, _ []string) error {
			catalog := controls.All()
			if flagJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(catalog)
			}
			for _, c := range catalog {
				fmt.Printf("%-22s %s\n", c.ID, c.Name)
				fmt.Printf("%22s %s\n", "", c.Requirement)
			}
			return nil
		},
	}
	rootCmd.AddCommand(cmd)
}
