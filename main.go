// limbrun is a local party game: up to five players steer one body, each
// with their own controller. Build:
//
//	go build -o limbrun .
//
// Press F2 to switch between the debug keyboard and real controllers.
package main

import (
	"context"
	"fmt"
	"os"

	"limbrun/internal/cli"
)

func main() {
	cmd := cli.NewCommand(cli.Variant{
		Use:   "limbrun",
		Short: "A cooperative limb-sync party game for the terminal.",
	})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
