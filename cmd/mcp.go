package cmd

import (
	"github.com/spf13/cobra"

	"github.com/geochange/landchange/internal/mcp"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the landchange MCP server",
	Long: `Launch an MCP server on stdio that lets AI agents initialize the analysis and query
areas, change matrices, indices, climate and the report through standard tools.`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		// Progress lines would corrupt the protocol on stdio
		session, closer, err := buildSession(cfg, nil)
		if err != nil {
			return err
		}
		defer closer()
		return mcp.StartMCPServer(rootCtx, session)
	},
}
