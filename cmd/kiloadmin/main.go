// README: Entry point; dispatches to the cobra command tree.
package main

import (
	"fmt"
	"os"

	"kiloadmin/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
