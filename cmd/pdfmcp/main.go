// Package main provides the pdfmcp CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/richinex/pdfmcp/cli"
	"github.com/richinex/pdfmcp/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "pdfmcp",
		Short: "PDF tools over the Model Context Protocol",
		Long: `An MCP server exposing PDF tools: metadata, page counts, page selection,
split, merge, encryption, optimization and directory listing.

Documents can be given as local paths (confined to --root directories),
http(s) URLs (private addresses refused), base64 data, or cache keys
returned by earlier calls.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(toolsCmd())
	rootCmd.AddCommand(pagesCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var opts cli.Options
	var allowPrivate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdin/stdout",
		Long: `Run the MCP server over stdio until stdin closes or the process receives
SIGINT or SIGTERM. Logs go to stderr (or --log-file); stdout carries only
protocol messages.

Settings are read from defaults, then --config (YAML or TOML), then PDFMCP_*
environment variables, then these flags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("allow-private") {
				opts.AllowPrivate = &allowPrivate
			}
			return cli.Serve(context.Background(), opts, os.Stdin, os.Stdout)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to a YAML or TOML config file")
	cmd.Flags().StringArrayVar(&opts.Roots, "root", nil, "Directory paths may be read from and written to (repeatable)")
	cmd.Flags().BoolVar(&allowPrivate, "allow-private", false, "Allow downloads from private and internal addresses")
	cmd.Flags().Int64Var(&opts.MaxDownload, "max-download", 0, "Maximum download size in bytes")
	cmd.Flags().IntVar(&opts.CacheEntries, "cache-entries", 0, "Maximum number of cached documents")
	cmd.Flags().Int64Var(&opts.CacheBytes, "cache-bytes", 0, "Maximum total bytes of cached documents")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&opts.LogFile, "log-file", "", "Write logs to this file instead of stderr")

	return cmd
}

func toolsCmd() *cobra.Command {
	var verboseTools bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List available tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.ListTools(cmd.OutOrStdout(), verboseTools)
		},
	}

	cmd.Flags().BoolVarP(&verboseTools, "verbose", "V", false, "Show tool parameters")

	return cmd
}

func pagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "pages [expression] [page-count]",
		Short:   "Evaluate a page-range expression",
		Example: `  pdfmcp pages "1-3,z" 10
  pdfmcp pages "1-z:odd,x5" 12`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid page count %q: %w", args[1], err)
			}
			return cli.Pages(cmd.OutOrStdout(), args[0], count)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", config.Default().Server.Name, version)
		},
	}
}
