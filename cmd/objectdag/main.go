package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ajitpratap0/objectdag/pkg/transport/registry"

	// Import all transports to register them
	_ "github.com/ajitpratap0/objectdag/pkg/transport/disk"
	_ "github.com/ajitpratap0/objectdag/pkg/transport/gcs"
	_ "github.com/ajitpratap0/objectdag/pkg/transport/kafka"
	_ "github.com/ajitpratap0/objectdag/pkg/transport/memory"
	_ "github.com/ajitpratap0/objectdag/pkg/transport/mongodb"
	_ "github.com/ajitpratap0/objectdag/pkg/transport/postgres"
	_ "github.com/ajitpratap0/objectdag/pkg/transport/s3"
	_ "github.com/ajitpratap0/objectdag/pkg/transport/sqlstore"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "objectdag",
		Short: "objectdag - content-addressed object graph storage",
		Long: `objectdag decomposes nested object graphs into content-addressed JSON
records and stores them in one or more transports (disk, SQL databases,
MongoDB, S3, GCS, Kafka).`,
		SilenceUsage: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "objectdag v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "transports",
		Short: "List available transport types",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Available Transports:")
			for _, name := range registry.List() {
				fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", name)
			}
		},
	})

	root.AddCommand(newSerializeCommand(), newLoadCommand())
	return root
}
