package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kakomon/admin/internal/config"
	"github.com/kakomon/admin/internal/logger"
)

func main() {
	var cfgPath string
	var root = &cobra.Command{
		Use:           "kakomon",
		Short:         "Admin tool for the entrance-exam PDF catalogue",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./kakomon.* or ./config/kakomon.*)")

	load := func() (*config.Config, error) { return config.Load(cfgPath) }
	root.AddCommand(
		serveCMD(load),
		catalogCMD(load),
		analyzeCMD(load),
		uploadCMD(load),
		questionsCMD(load),
		loginCMD(load),
		guestCMD(load),
		logoutCMD(load),
		whoamiCMD(load),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type loader func() (*config.Config, error)

// cliLogger keeps command output on stdout and logs on stderr, quieter than
// the server.
func cliLogger(cfg *config.Config) *zap.Logger {
	level := cfg.Log.Level
	if level == "info" {
		level = "warn"
	}
	return logger.NewTo(level, os.Stderr)
}
