// Command notiondb runs SQL statements against Notion databases or a local
// SQLite store.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/notiondb/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
