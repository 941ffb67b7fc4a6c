package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	peerio "github.com/matzehuels/peergraph/pkg/io"
	"github.com/matzehuels/peergraph/pkg/pipeline"
)

// graphCommand creates the graph command.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		svg      bool
		detailed bool
		output   string
	)

	cmd := &cobra.Command{
		Use:   "graph <lockfile>",
		Short: "Render a lockfile as a Graphviz graph",
		Long: `Render a lockfile as a node-link graph. Peer dependency edges are dashed
and root packages have a double border.

Prints Graphviz DOT by default, or SVG with --svg.`,
		Example: `  peergraph graph peergraph-lock.json | dot -Tpng > graph.png
  peergraph graph peergraph-lock.json --svg -o graph.svg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			snap, err := peerio.ImportFile(args[0])
			if err != nil {
				return err
			}

			format := pipeline.FormatDOT
			if svg {
				format = pipeline.FormatSVG
			}
			artifacts, err := pipeline.Render(ctx, snap, pipeline.Options{
				Formats:  []string{format},
				Detailed: detailed,
				Logger:   loggerFromContext(ctx),
			})
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err := cmd.OutOrStdout().Write(artifacts[format])
				return err
			}
			if err := os.WriteFile(output, artifacts[format], 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			printSuccess("Rendered %d packages", snap.Len())
			printFile(output)
			return nil
		},
	}

	cmd.Flags().BoolVar(&svg, "svg", false, "render SVG instead of DOT")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "show copy index and integrity in labels")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	return cmd
}
