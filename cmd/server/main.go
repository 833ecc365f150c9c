// limbrun-server runs the game headless. Players join as limbs over SSH
// and the game is watched through the inspector. Build:
//
//	go build -o limbrun-server ./cmd/server
//
// Usage:
//
//	./limbrun-server [--pad-addr :2222] [--inspect-addr 127.0.0.1:8080]
//
// Connect one terminal per limb:
//
//	ssh -p 2222 -o StrictHostKeyChecking=no <name>@localhost
package main

import (
	"context"
	"log"

	"limbrun/internal/cli"
)

func main() {
	log.SetFlags(0)
	cmd := cli.NewCommand(cli.Variant{
		Use:      "limbrun-server",
		Short:    "Headless limbrun with SSH controllers and an HTTP inspector.",
		Headless: true,
	})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		log.Fatalf("limbrun-server: %v", err)
	}
}
