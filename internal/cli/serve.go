package cli

import (
	"github.com/spf13/cobra"
)

func newServeCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the MCP tools over stdio or HTTP",
		Long: "Serve the extract_audio, transcribe_audio and current_datetime tools.\n" +
			"Without --http the server speaks MCP on stdin/stdout; with --http it\n" +
			"exposes MCP at /mcp and a REST surface under /api on the given address.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runServe(cmd.Context())
		},
	}

	bindLoggingFlags(cmd, app)
	bindServeFlags(cmd, app)
	return cmd
}
