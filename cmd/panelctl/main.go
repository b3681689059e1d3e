package main

import (
	"os"

	"github.com/edvin/vpanel/internal/panelctl"
)

func main() {
	os.Exit(panelctl.Run(os.Args[1:], os.Stdout, os.Stderr))
}
