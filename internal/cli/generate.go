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
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/routeclient/internal/emitter"
	"github.com/mark3labs/routeclient/internal/emitter/goemitter"
	"github.com/mark3labs/routeclient/internal/emitter/tsemitter"
	"github.com/mark3labs/routeclient/internal/spec"
)

// GenerateConfig captures all inputs that influence the generate command after
// merging defaults, config file values, and CLI overrides.
type GenerateConfig struct {
	Input        string
	Lang         string
	Out          string
	Package      string
	TypesPackage string
	FileName     string
	ClientName   string
	IncludeTags  []string
	ExcludeTags  []string
	Methods      []string
	Paths        []string
	ConfigPath   string
	DryRun       bool
	Force        bool
	Verbose      bool
	Watch        bool
}

func defaultGenerateConfig() GenerateConfig {
	return GenerateConfig{Lang: "go", Out: "."}
}

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a typed client from a route table",
		Long: "Generate a typed client from a route table or an OpenAPI/Swagger document. " +
			"Options can be provided via flags, config files, or defaults.",
		Example: strings.TrimSpace(`  routeclient generate --input routes.yaml --package userapi --out ./userapi
  routeclient generate --input openapi.yaml --lang ts --client-name UserApi --out ./web/src/api
  routeclient --config routeclient.yaml generate --watch`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Verbose && !cmd.Flags().Changed("log-level") {
				initLogging(cmd.ErrOrStderr(), slog.LevelDebug)
			}
			return generateRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("input", "", "Path or URL to the route table, OpenAPI or Swagger document")
	flags.String("lang", "", "Target language to emit (go|ts); defaults to go")
	flags.String("out", "", "Output directory (defaults to the current directory)")
	flags.String("package", "", "Go package name of the generated file (default client)")
	flags.String("types-package", "", "Go import path (or TypeScript module) holding the request and response types")
	flags.String("file-name", "", "Name of the generated client file")
	flags.String("client-name", "", "Name of the generated client type or class")
	flags.StringSlice("include-tags", nil, "Only include operations with these tags")
	flags.StringSlice("exclude-tags", nil, "Exclude operations with these tags")
	flags.StringSlice("methods", nil, "Only include operations using these HTTP methods")
	flags.StringArray("paths", nil, "Only include routes matching this regular expression (repeatable)")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("force", false, "Overwrite existing hand-written files")
	flags.Bool("watch", false, "Regenerate whenever the input file changes")

	return cmd
}

func resolveGenerateConfig(cmd *cobra.Command) (*GenerateConfig, error) {
	cfg := defaultGenerateConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyGenerateConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := applyGenerateFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyGenerateFlagOverrides(flags *pflag.FlagSet, cfg *GenerateConfig) error {
	strs := map[string]*string{
		"input":         &cfg.Input,
		"lang":          &cfg.Lang,
		"out":           &cfg.Out,
		"package":       &cfg.Package,
		"types-package": &cfg.TypesPackage,
		"file-name":     &cfg.FileName,
		"client-name":   &cfg.ClientName,
	}
	for name, dst := range strs {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = strings.TrimSpace(value)
	}

	slices := map[string]*[]string{
		"include-tags": &cfg.IncludeTags,
		"exclude-tags": &cfg.ExcludeTags,
		"methods":      &cfg.Methods,
	}
	for name, dst := range slices {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetStringSlice(name)
		if err != nil {
			return err
		}
		*dst = sanitizeTags(value)
	}
	if flags.Changed("paths") {
		value, err := flags.GetStringArray("paths")
		if err != nil {
			return err
		}
		cfg.Paths = sanitizeTags(value)
	}

	bools := map[string]*bool{
		"dry-run": &cfg.DryRun,
		"force":   &cfg.Force,
		"verbose": &cfg.Verbose,
		"watch":   &cfg.Watch,
	}
	for name, dst := range bools {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*dst = value
	}

	return nil
}

func (c *GenerateConfig) normalize() {
	c.Input = strings.TrimSpace(c.Input)
	c.Lang = strings.ToLower(strings.TrimSpace(c.Lang))
	if c.Lang == "typescript" {
		c.Lang = "ts"
	}
	c.Out = strings.TrimSpace(c.Out)
	if c.Out == "" {
		c.Out = "."
	}
	c.Package = strings.TrimSpace(c.Package)
	c.TypesPackage = strings.TrimSpace(c.TypesPackage)
	c.FileName = strings.TrimSpace(c.FileName)
	c.ClientName = strings.TrimSpace(c.ClientName)
	c.IncludeTags = sanitizeTags(c.IncludeTags)
	c.ExcludeTags = sanitizeTags(c.ExcludeTags)
	c.Methods = sanitizeTags(c.Methods)
	c.Paths = sanitizeTags(c.Paths)
}

func (c *GenerateConfig) validate() error {
	if c.Input == "" {
		return newUsageError("generate: --input is required (set via flag or config file)")
	}

	switch c.Lang {
	case "", "go", "ts":
		if c.Lang == "" {
			c.Lang = "go"
		}
	default:
		return newUsageError(fmt.Sprintf("generate: unsupported --lang %q (allowed: go, ts)", c.Lang))
	}

	overlap := intersect(c.IncludeTags, c.ExcludeTags)
	if len(overlap) > 0 {
		return newUsageError(fmt.Sprintf("generate: include/exclude tags overlap: %s", strings.Join(overlap, ", ")))
	}

	if c.Watch {
		if isRemote(c.Input) {
			return newUsageError("generate: --watch needs a local --input file")
		}
		if c.DryRun {
			return newUsageError("generate: --watch and --dry-run are mutually exclusive")
		}
	}

	return nil
}

func isRemote(input string) bool {
	lower := strings.ToLower(input)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func runGenerate(ctx context.Context, cfg *GenerateConfig) error {
	if err := generateOnce(ctx, cfg); err != nil {
		return err
	}
	if !cfg.Watch {
		return nil
	}
	slog.InfoContext(ctx, "watching for changes", "input", cfg.Input)
	return watchInput(ctx, cfg.Input, watchDebounce, func() error {
		return generateOnce(ctx, cfg)
	})
}

// generateOnce loads the input, applies the filters and runs the emitter for
// cfg.Lang.
func generateOnce(ctx context.Context, cfg *GenerateConfig) error {
	src, err := spec.Load(ctx, cfg.Input, spec.WithLogger(slog.Default()))
	if err != nil {
		return specUsageError(err)
	}
	table, err := src.RouteTable(ctx,
		spec.WithIncludeTags(cfg.IncludeTags),
		spec.WithExcludeTags(cfg.ExcludeTags),
		spec.WithMethods(cfg.Methods),
		spec.WithPathPatterns(cfg.Paths),
	)
	if err != nil {
		return specUsageError(err)
	}
	slog.DebugContext(ctx, "route table loaded", "input", src.Location, "format", src.Format.String(), "operations", len(table.Operations))
	if len(table.Operations) == 0 {
		slog.WarnContext(ctx, "no operations left after filtering", "input", cfg.Input)
	}

	absOut := cfg.Out
	if ap, err := filepath.Abs(cfg.Out); err == nil {
		absOut = ap
	}

	var planned []emitter.PlannedFile
	switch cfg.Lang {
	case "go":
		res, err := goemitter.Emit(ctx, table, goemitter.Options{
			OutDir:       cfg.Out,
			Package:      cfg.Package,
			TypesPackage: cfg.TypesPackage,
			FileName:     cfg.FileName,
			ClientName:   cfg.ClientName,
			Source:       cfg.Input,
			Force:        cfg.Force,
			DryRun:       cfg.DryRun,
			Verbose:      cfg.Verbose,
		})
		if err != nil {
			return wrapOutputError(err, absOut)
		}
		planned = res.Planned
	case "ts":
		res, err := tsemitter.Emit(ctx, table, tsemitter.Options{
			OutDir:      cfg.Out,
			ClassName:   cfg.ClientName,
			TypesModule: cfg.TypesPackage,
			FileName:    cfg.FileName,
			Source:      cfg.Input,
			Force:       cfg.Force,
			DryRun:      cfg.DryRun,
			Verbose:     cfg.Verbose,
		})
		if err != nil {
			return wrapOutputError(err, absOut)
		}
		planned = res.Planned
	default:
		return newUsageError(fmt.Sprintf("generate: unsupported --lang %q (allowed: go, ts)", cfg.Lang))
	}

	if cfg.DryRun {
		printPlan(absOut, planned)
		return nil
	}
	for _, p := range planned {
		if cfg.Verbose || !p.Unchanged {
			slog.InfoContext(ctx, "generated", "file", filepath.Join(absOut, p.RelPath), "bytes", p.Size, "unchanged", p.Unchanged)
		}
	}
	return nil
}

// specUsageError maps structured spec errors into friendly messages.
func specUsageError(err error) error {
	var se *spec.SpecError
	if !errors.As(err, &se) {
		return err
	}
	msg := fmt.Sprintf("spec: %s", strings.TrimPrefix(se.Message, "spec: "))
	if se.Location != "" {
		msg = fmt.Sprintf("%s\nLocation: %s", msg, se.Location)
	}
	if se.JSONPointer != "" {
		msg = fmt.Sprintf("%s\nPointer: %s", msg, se.JSONPointer)
	}
	return newUsageError(msg)
}

func printPlan(outDir string, planned []emitter.PlannedFile) {
	fmt.Fprintf(os.Stdout, "Planned writes to %s (%d files):\n", outDir, len(planned))
	for _, p := range planned {
		if p.Unchanged {
			fmt.Fprintf(os.Stdout, "- %s (unchanged)\n", p.RelPath)
			continue
		}
		fmt.Fprintf(os.Stdout, "- %s\n", p.RelPath)
	}
}

func wrapOutputError(err error, outDir string) error {
	var se *spec.SpecError
	if errors.As(err, &se) {
		return specUsageError(err)
	}
	if errors.Is(err, emitter.ErrNotGenerated) {
		return newUsageError(fmt.Sprintf("output error for %s: %v\nHint: rerun with --force to replace hand-written files.", outDir, err))
	}
	// Provide clearer guidance for common FS failures.
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission") || strings.Contains(lower, "read-only") || strings.Contains(lower, "mkdir") || strings.Contains(lower, "rename") {
		return newUsageError(fmt.Sprintf("output error for %s: %s\nHint: choose a different --out.", outDir, msg))
	}
	return err
}

func sanitizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(a))
	for _, item := range a {
		set[item] = struct{}{}
	}
	var result []string
	for _, item := range b {
		if _, ok := set[item]; ok {
			result = append(result, item)
		}
	}
	return result
}

func applyGenerateConfigFromFile(cfg *GenerateConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
	}

	strs := map[string]*string{
		"input":        &cfg.Input,
		"lang":         &cfg.Lang,
		"out":          &cfg.Out,
		"package":      &cfg.Package,
		"typespackage": &cfg.TypesPackage,
		"filename":     &cfg.FileName,
		"clientname":   &cfg.ClientName,
	}
	lists := map[string]*[]string{
		"includetags": &cfg.IncludeTags,
		"excludetags": &cfg.ExcludeTags,
		"methods":     &cfg.Methods,
		"paths":       &cfg.Paths,
	}
	bools := map[string]*bool{
		"dryrun":  &cfg.DryRun,
		"force":   &cfg.Force,
		"verbose": &cfg.Verbose,
		"watch":   &cfg.Watch,
	}

	for key, value := range raw {
		normalized := normalizeKey(key)
		if dst, ok := strs[normalized]; ok {
			str, err := valueAsString(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			*dst = str
			continue
		}
		if dst, ok := lists[normalized]; ok {
			var list []string
			if normalized == "paths" {
				list, err = valueAsList(value)
			} else {
				list, err = valueAsStringSlice(value)
			}
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			*dst = sanitizeTags(list)
			continue
		}
		if dst, ok := bools[normalized]; ok {
			val, err := valueAsBool(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			*dst = val
			continue
		}
		return newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, key))
	}

	return nil
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsStringSlice(v any) ([]string, error) {
	if s, ok := v.(string); ok {
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
		return splitAndTrim(s), nil
	}
	return valueAsList(v)
}

// valueAsList accepts a list or a single string, which is never split on
// commas (path patterns may contain them).
func valueAsList(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return []string{strings.TrimSpace(val)}, nil
	case []any:
		items := make([]string, 0, len(val))
		for idx, elem := range val {
			str, err := valueAsString(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", idx, err)
			}
			if str != "" {
				items = append(items, str)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		switch trimmed {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n":
			return false, nil
		case "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
