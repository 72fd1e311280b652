// Package main provides the zpapi CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zpapi/zpapi/internal/config"
	"github.com/zpapi/zpapi/internal/logging"
	"github.com/zpapi/zpapi/internal/zotero"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	flagAPIKey      string
	flagLibraryID   int
	flagLibraryType string
	flagTag         string
	flagAction      string
	flagFilter      string
	flagIndent      int
	flagHuman       bool
	verbosity       int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "zpapi [files...]",
	Short: "Command-line client for the Zotero web API",
	Long: `zpapi talks to a Zotero library over the web API and prints JSON.

Credentials resolve from, in order: flags, ZOTERO_* environment
variables, the DEFAULT section of zpapi.ini in the working directory,
and ~/.config/zpapi/config.yml.

Examples:
  zpapi --action items --filter '{"tag":"phylogenetics"}'
  zpapi --action collections --human
  zpapi --action saved_search searches.json
  zpapi --library_type group --library_id 12345 --action top`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PreRunE:       validateAction,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(run(cmd.Context(), args))
	},
}

func init() {
	rootCmd.Flags().StringVar(&flagAPIKey, "api_key", "", "Zotero API key")
	rootCmd.Flags().IntVar(&flagLibraryID, "library_id", 0, "Numeric library ID")
	rootCmd.Flags().StringVar(&flagLibraryType, "library_type", "", "Library type: user or group")
	rootCmd.Flags().StringVar(&flagTag, "tag", "", "Restrict item listings to a tag")
	rootCmd.Flags().StringVar(&flagAction, "action", "", "Action to perform (see --help for the list)")
	rootCmd.Flags().StringVar(&flagFilter, "filter", "", "JSON object of request parameters passed through to the API")
	rootCmd.Flags().IntVar(&flagIndent, "indent", 2, "JSON output indentation (0 for compact)")
	rootCmd.Flags().BoolVar(&flagHuman, "human", false, "Render tables instead of JSON")
	rootCmd.Flags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	_ = rootCmd.MarkFlagRequired("action")

	rootCmd.Version = Version
}

// validateAction rejects unknown actions at parse time, before any
// credential resolution or network traffic.
func validateAction(cmd *cobra.Command, args []string) error {
	if _, ok := actions[flagAction]; !ok {
		return fmt.Errorf("invalid --action %q (valid actions: %s)", flagAction, strings.Join(actionNames(), ", "))
	}
	return nil
}

func run(ctx context.Context, files []string) int {
	log := logging.New(verbosity)

	cfg, err := config.Resolve(config.Flags{
		APIKey:      flagAPIKey,
		LibraryID:   flagLibraryID,
		LibraryType: flagLibraryType,
	})
	if err != nil {
		return outputError(ExitConfigError, "%v", err)
	}

	filter, err := buildFilter(flagFilter, flagTag)
	if err != nil {
		return outputError(ExitConfigError, "%v", err)
	}

	client := zotero.NewClient(cfg.LibraryID, zotero.LibraryType(cfg.LibraryType),
		zotero.WithAPIKey(cfg.APIKey),
		zotero.WithLogger(log),
	)

	req := &request{
		filter: filter,
		files:  files,
		print:  newPrinter(os.Stdout, flagIndent, flagHuman),
		log:    log,
	}

	handler, ok := actions[flagAction]
	if !ok {
		// validateAction makes this unreachable; fail hard if the map
		// and the allow-list ever drift apart.
		return outputError(ExitError, "no handler registered for action %q", flagAction)
	}

	if err := handler(ctx, client, req); err != nil {
		return outputError(exitCode(err), "%v", err)
	}
	return ExitSuccess
}

// buildFilter decodes --filter and folds --tag into it. An explicit
// tag in the filter wins over the flag.
func buildFilter(rawFilter, tag string) (zotero.Params, error) {
	filter, err := zotero.ParseFilter(rawFilter)
	if err != nil {
		return nil, err
	}
	if tag != "" && !filter.Has("tag") {
		filter = filter.Set("tag", tag)
	}
	return filter, nil
}

// exitCode maps an action error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case isUsageError(err):
		return ExitConfigError
	default:
		return ExitError
	}
}
