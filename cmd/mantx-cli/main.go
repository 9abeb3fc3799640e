package main

import (
	"github.com/robotalks/mantx/pkg/cli/sh"
	"github.com/robotalks/mantx/pkg/config"

	_ "github.com/robotalks/mantx/pkg/cli/cmds/tx"
)

//go-build: CGO_ENABLED=0

func init() {
	config.SetupFlags()
}

func main() {
	sh.Main()
}
