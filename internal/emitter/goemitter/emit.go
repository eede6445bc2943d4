package goemitter

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/routeclient/internal/emitter"
	"github.com/mark3labs/routeclient/internal/spec"
)

// Result returns the planned files and the resolved package name.
type Result struct {
	Package string
	Planned []emitter.PlannedFile
}

// Emit renders the client for table and writes it below opts.OutDir unless
// DryRun is set.
func Emit(ctx context.Context, table *spec.RouteTable, opts Options) (*Result, error) {
	_ = ctx
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("goemitter: OutDir is required")
	}
	src, err := Render(table, opts)
	if err != nil {
		return nil, err
	}
	name := opts.FileName
	if name == "" {
		name = "client_gen.go"
	}
	if !strings.HasSuffix(name, ".go") || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("goemitter: file name %q must be a .go file name", name)
	}
	files := map[string][]byte{name: src}

	pkg := opts.Package
	if pkg == "" {
		pkg = "client"
	}
	res := &Result{Package: pkg, Planned: emitter.Plan(opts.OutDir, files)}
	if opts.DryRun {
		return res, nil
	}
	if err := emitter.WriteFiles(opts.OutDir, files, opts.Force); err != nil {
		return nil, err
	}
	return res, nil
}
