package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"testbox/cmd/testbox/cmdutil"
	"testbox/cmd/testbox/configcmd"
	"testbox/cmd/testbox/discovercmd"
	"testbox/cmd/testbox/historycmd"
	"testbox/cmd/testbox/runcmd"
	"testbox/cmd/testbox/ui"
	"testbox/internal/logging"
)

var version = "dev"

func main() {
	if err := logging.Configure(logging.LevelWarn, logging.FormatText); err != nil {
		_, _ = os.Stderr.WriteString("configure logger: " + err.Error() + "\n")
		os.Exit(cmdutil.ExitHarness)
	}

	var g cmdutil.Globals
	root := &cobra.Command{
		Use:           "testbox",
		Short:         "Run JUnit tests inside the containers they declare",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := g.LoadConfig(); err != nil {
				return err
			}
			if err := logging.Configure(g.LogLevel(), g.Config.Log.Format); err != nil {
				return err
			}
			ui.ConfigureInteraction(g.NoInteraction)
			return nil
		},
	}
	g.Bind(root)

	root.AddCommand(runcmd.Cmd(&g))
	root.AddCommand(discovercmd.Cmd(&g))
	root.AddCommand(historycmd.Cmd(&g))
	root.AddCommand(configcmd.Cmd(&g))

	err := root.Execute()
	if err != nil && !errors.Is(err, cmdutil.ErrTestsFailed) {
		fmt.Fprintln(os.Stderr, ui.Mark(ui.ToneFail, "%v", err))
	}
	os.Exit(cmdutil.ExitCode(err))
}
