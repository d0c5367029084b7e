package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jobapply/jobapply/cmd"
	"github.com/jobapply/jobapply/internal/conf"
	"github.com/jobapply/jobapply/internal/logger"
	"github.com/jobapply/jobapply/internal/telemetry"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	settings := &conf.Settings{}
	rootCmd := cmd.RootCommand(settings, version)

	err := rootCmd.Execute()
	telemetry.Flush(2 * time.Second)
	_ = logger.Global().Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
