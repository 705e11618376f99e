package discovercmd

import (
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"testbox/cmd/testbox/cmdutil"
	"testbox/cmd/testbox/ui"
	"testbox/internal/discovery"
	"testbox/internal/manifest"
	"testbox/internal/orchestrate"
	"testbox/internal/pipeline"
	"testbox/internal/suite"
)

// Cmd returns the "testbox discover" command. It prints the tree and the
// containers a run would start, without starting any.
func Cmd(g *cmdutil.Globals) *cobra.Command {
	var (
		manifestPath string
		include      discovery.RegexList
		exclude      discovery.RegexList
	)
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Show the isolated units and the containers they need",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, _, err := cmdutil.LoadManifest(g.Config, manifestPath)
			if err != nil {
				return err
			}
			tree, err := pipeline.Discover(cmd.Context(), pipeline.Request{
				Candidates: m.Candidates(),
				Source:     manifest.NewSource(m),
				Filter:     discovery.Filter{Include: include, Exclude: exclude},
				EngineID:   g.Config.EngineID,
			})
			if err != nil {
				return &cmdutil.ExitError{Code: cmdutil.ExitHarness, Err: err}
			}

			out := cmd.OutOrStdout()
			fmt.Fprint(out, ui.Tree(tree))

			specs, err := orchestrate.CollectSpecs(tree)
			if err != nil {
				return &cmdutil.ExitError{Code: cmdutil.ExitHarness, Err: err}
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, ui.Table([]string{"Container", "Image", "Units"}, containerRows(tree, specs)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "Manifest file (default from config)")
	cmd.Flags().Var(&include, "run", "Only show units whose group#unit name matches (repeatable)")
	cmd.Flags().Var(&exclude, "skip", "Hide units whose group#unit name matches (repeatable)")
	return cmd
}

func containerRows(tree *suite.Tree, specs map[string]string) [][]string {
	units := make(map[string]int, len(specs))
	for _, u := range tree.Units() {
		units[u.Spec().Name]++
	}
	rows := make([][]string, 0, len(specs))
	for _, name := range slices.Sorted(maps.Keys(specs)) {
		rows = append(rows, []string{name, specs[name], strconv.Itoa(units[name])})
	}
	return rows
}
