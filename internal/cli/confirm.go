package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// confirm asks a y/N question on stderr. --yes answers for the user; without a
// terminal on stdin the answer is no.
func confirm(cmd *cobra.Command, app *App, prompt string, yes bool) (bool, error) {
	if yes {
		return true, nil
	}
	if !app.stdinIsTTY() {
		return false, nil
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
