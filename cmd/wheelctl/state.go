package main

import (
	"github.com/spf13/cobra"

	"finitefield.org/wheel-of-life/internal/state"
	"finitefield.org/wheel-of-life/internal/wheel"
)

func newStateCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect and rewrite state blobs",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "normalize",
		Short: "Print the canonical form of a state blob",
		Long: `normalize decodes the blob the way the app does (unknown keys dropped,
scores rounded and clamped to 0-10, step clamped) and prints it re-encoded
with an entry for every category and prompt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := wheel.DefaultCatalog()
			s, err := loadState(cmd.Context(), cmd, root.state, c)
			if err != nil {
				return err
			}
			blob, err := state.Encode(s, c)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if _, err := out.Write(blob); err != nil {
				return err
			}
			_, err = out.Write([]byte("\n"))
			return err
		},
	})
	return cmd
}
