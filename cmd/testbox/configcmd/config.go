package configcmd

import (
	"github.com/spf13/cobra"

	"testbox/cmd/testbox/cmdutil"
)

// Cmd returns the "testbox config" command, which prints the effective
// config with defaults filled in.
func Cmd(g *cmdutil.Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := g.Config.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
