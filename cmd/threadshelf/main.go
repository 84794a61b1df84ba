package main

import (
	"fmt"
	"os"
	"strings"

	"threadshelf/internal/cli"
	"threadshelf/internal/config"
)

// directLookup maps an id prefix to the command that shows it.
var directLookup = []struct {
	prefix string
	cmd    []string
}{
	{prefix: "thread-", cmd: []string{"threads", "show"}},
	{prefix: "conv-", cmd: []string{"convs", "show"}},
}

func lookupCommand(s string) []string {
	s = strings.TrimSpace(s)
	for _, d := range directLookup {
		if strings.HasPrefix(s, d.prefix) && len(s) > len(d.prefix) {
			return d.cmd
		}
	}
	return nil
}

func rewriteDirectLookupArgs(argv []string) []string {
	// `threadshelf <thread-id>` works like `threadshelf threads show <thread-id>`,
	// and likewise for conversation ids. Persistent flags may come first, so
	// look for the first positional token rather than argv[1].
	if len(argv) < 2 {
		return argv
	}

	valueFlags := map[string]bool{
		"--dir":       true,
		"--backend":   true,
		"--format":    true,
		"--log-level": true,
	}
	boolFlags := map[string]bool{
		"--pretty": true,
	}

	insert := func(i int, cmd []string) []string {
		out := make([]string, 0, len(argv)+len(cmd))
		out = append(out, argv[:i]...)
		out = append(out, cmd...)
		return append(out, argv[i:]...)
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			if i+1 < len(argv) {
				if cmd := lookupCommand(argv[i+1]); cmd != nil {
					return insert(i+1, cmd)
				}
			}
			return argv
		}

		if strings.HasPrefix(a, "-") {
			if strings.Contains(a, "=") || boolFlags[a] {
				continue
			}
			if valueFlags[a] {
				i++
			}
			// Unknown flags are skipped without consuming a value.
			continue
		}

		if cmd := lookupCommand(a); cmd != nil {
			return insert(i, cmd)
		}
		return argv
	}

	return argv
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, "warning: .env:", err)
	}
	os.Args = rewriteDirectLookupArgs(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
