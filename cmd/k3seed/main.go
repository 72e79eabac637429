// Package main is the entry point for the k3seed CLI.
//
// k3seed turns a freshly provisioned Linux machine into a running,
// GitOps-managed k3s cluster: it validates operator configuration, writes
// the system configuration the runtime reads at startup, installs the
// supporting tools, establishes the long-lived age keypair, encrypts
// secret material for the version-controlled tree, and hands control to
// Flux.
//
// Commands: bootstrap, doctor, init, version, completion.
package main

import (
	"fmt"
	"os"

	"github.com/jfellner/k3seed/cmd/k3seed/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
