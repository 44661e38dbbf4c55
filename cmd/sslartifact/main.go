package main

import (
	"os"

	"github.com/vulntor/sslartifact/cmd/sslartifact/commands"
	"github.com/vulntor/sslartifact/cmd/sslartifact/internal/format"
)

// main runs the sslartifact CLI and exits with the code commands.ExitCode
// assigns to the returned error:
//   - 0: Success, or a scan stopped by a signal (the run can be resumed)
//   - 1: General error
//   - 2: Invalid usage/input
//   - 4: Scanner or job store not found
func main() {
	command := commands.NewCommand()

	err := command.Execute()
	exitCode := commands.ExitCode(err)
	if exitCode == 0 {
		return
	}

	f := format.New(os.Stdout, os.Stderr, format.ModeTable, false, true)
	_ = f.PrintError(err)
	for _, hint := range format.GetSuggestions(commands.ErrorCode(err), "") {
		_, _ = os.Stderr.WriteString("  → " + hint + "\n")
	}
	if exitCode == 2 {
		_, _ = os.Stderr.WriteString("Run 'sslartifact --help' for usage.\n")
	}
	os.Exit(exitCode)
}
