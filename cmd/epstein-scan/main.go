package main

import (
	"context"
	"os"

	"github.com/epstein-scan/epstein-scan/internal/app"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	// Version is injected at build time
	Version = "dev"
	// Build is injected at build time
	Build = "unknown"
	// ProgramName is injected at build time
	ProgramName = "epstein-scan"
)

func main() {
	runMain(os.Args, os.Exit)
}

func runMain(args []string, exit func(int)) {
	if err := Execute(Version, Build, ProgramName, args[1:]); err != nil {
		exit(1)
	}
}

// Execute is the entry point for the CLI, extracted for testing
func Execute(version, build, programName string, args []string) error {
	rootCmd := &cobra.Command{
		Use:     programName,
		Short:   "EpsteIn connection scanner",
		Long:    "Cross-references a LinkedIn connections export against the indexed Epstein files and renders a ranked report",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScanWithFlags(cmd.Flags(), version)
		},
	}

	rootCmd.SetVersionTemplate(`{{.Version}}
`)

	app.RegisterScanFlags(rootCmd.Flags())

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServeWithFlags(cmd.Flags(), version)
		},
	}
	app.RegisterScanFlags(serveCmd.Flags())
	app.RegisterServeFlags(serveCmd.Flags())
	rootCmd.AddCommand(serveCmd)

	rootCmd.SetArgs(args)

	return rootCmd.Execute()
}

func runScanWithFlags(flags *pflag.FlagSet, version string) error {
	return app.RunScanWithDeps(context.Background(), app.DefaultRunParams(), flags, version)
}

func runServeWithFlags(flags *pflag.FlagSet, version string) error {
	return app.RunServeWithDeps(context.Background(), app.DefaultRunParams(), flags, version)
}
