package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/paradox-mcp/pkg/pxmcp"
)

const modulePath = "github.com/mesh-intelligence/paradox-mcp"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the paradox-mcp version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "%s v%s\nmodule: %s\n", pxmcp.Name, pxmcp.Version, modulePath)
			return nil
		},
	}
}
