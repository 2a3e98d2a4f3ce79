package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// usageErrorMarkers are the cobra parse failures worth a help pointer.
// Runtime failures, such as a download timeout, should not suggest --help.
var usageErrorMarkers = []string{
	"unknown command",
	"unknown flag",
	"unknown shorthand flag",
	"invalid argument",
	"accepts ",
	"requires at least",
	"requires at most",
	"requires between",
	"required flag",
}

// Execute runs the root command against args and returns the process exit
// code.
func Execute(args []string) int {
	return run(args, os.Stdout, os.Stderr)
}

func run(args []string, out, errOut io.Writer) int {
	cmd := NewRootCmd()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(errOut, err)
		if isUsageError(err) {
			fmt.Fprintf(errOut, "Run '%s --help' for usage.\n", helpTarget(cmd, args))
		}
		return 1
	}
	return 0
}

func isUsageError(err error) bool {
	message := strings.ToLower(err.Error())
	for _, marker := range usageErrorMarkers {
		if strings.Contains(message, marker) {
			return true
		}
	}
	return false
}

// helpTarget resolves the deepest registered command the arguments reach, so
// a failing `serve` invocation points at the serve help rather than the root
// help.
func helpTarget(root *cobra.Command, args []string) string {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return root.CommandPath()
	}
	if found, _, err := root.Find(args); err == nil && found != nil {
		return found.CommandPath()
	}
	return root.CommandPath()
}
