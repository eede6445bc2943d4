package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/routeclient/internal/emitter"
)

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath string
	Force      bool
	Verbose    bool
}

var initRunner = runInit

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a sample routeclient configuration file",
		Long:  "Scaffold a commented routeclient configuration file that documents available generate options.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}
			return initRunner(cmd.Context(), &InitConfig{
				OutputPath: out,
				Force:      force,
				Verbose:    verbose,
			})
		},
	}

	cmd.Flags().String("out", "routeclient.yaml", "Where to write the sample config file")
	cmd.Flags().Bool("force", false, "Overwrite the target file if it already exists")

	return cmd
}

func runInit(ctx context.Context, cfg *InitConfig) error {
	out := strings.TrimSpace(cfg.OutputPath)
	if out == "" {
		out = "routeclient.yaml"
	}
	absPath, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("init: resolve output path: %w", err)
	}

	// The sample carries no generated header, so an existing file is only
	// replaced with --force.
	files := map[string][]byte{
		filepath.Base(absPath): []byte(strings.TrimSpace(sampleConfigYAML) + "\n"),
	}
	if err := emitter.WriteFiles(filepath.Dir(absPath), files, cfg.Force); err != nil {
		if errors.Is(err, emitter.ErrNotGenerated) {
			return newUsageError(fmt.Sprintf("init: %q already exists (use --force to overwrite)", absPath))
		}
		return newUsageError(fmt.Sprintf("init: cannot write %s: %v\nHint: choose a different --out or check directory permissions.", absPath, err))
	}
	slog.DebugContext(ctx, "wrote sample config", "path", absPath)
	fmt.Fprintf(os.Stdout, "Wrote sample config to %s\n", absPath)
	return nil
}

// sampleConfigYAML is a commented example config documenting available options.
const sampleConfigYAML = `# routeclient configuration (YAML)
# All fields are optional. Command-line flags override config values.

# Path or URL to the route table, OpenAPI or Swagger document.
# input: ./routes.yaml

# Target language to emit (go|ts). Defaults to go.
# lang: go

# Output directory. Defaults to the current directory.
# out: ./client

# Go: package name of the generated file (default client).
# package: userapi

# Go: import path of the package holding <Op>Params, <Op>Query, <Op>Body and
# <Op><code> types. TypeScript: module exporting one namespace per operation.
# typesPackage: example.com/app/types

# Name of the generated file (client_gen.go / client.ts).
# fileName: client_gen.go

# Name of the generated client type (Go) or class (TypeScript).
# clientName: Client

# Only include operations with these tags (comma-separated or list).
# includeTags: [public,read]

# Exclude operations with these tags (comma-separated or list).
# excludeTags: [internal]

# Only include these HTTP methods.
# methods: [GET,POST]

# Only include routes matching any of these regular expressions.
# paths: ['^/users']

# Preview planned outputs without writing files.
# dryRun: false

# Replace hand-written files that collide with generated ones.
# force: false

# Regenerate whenever the input file changes (local input only).
# watch: false

# Enable verbose logging.
# verbose: false
`
