// Package tsemitter renders a TypeScript client on top of axios: one class
// method per operation, typed with the request and response interfaces of
// a types module.
package tsemitter

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"path"
	"strconv"
	"strings"
	"text/template"

	"github.com/mark3labs/routeclient/internal/emitter"
	"github.com/mark3labs/routeclient/internal/spec"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// Options controls how the TypeScript emitter renders a client.
type Options struct {
	OutDir string // required; target directory
	// ClassName of the generated client. Defaults to ApiClient.
	ClassName string
	// TypesModule is imported as a namespace; it must export one namespace
	// per operation id with IParams, IQuery, IBody and I<code> types.
	TypesModule string
	FileName    string // defaults to client.ts
	Source      string
	Force       bool
	DryRun      bool
	Verbose     bool
}

// Result returns the planned files and the resolved class name.
type Result struct {
	ClassName string
	Planned   []emitter.PlannedFile
}

const configType = "TypedRequestConfig"

type fileData struct {
	Source      string
	ClassName   string
	TypesModule string
	TypesAlias  string
	ConfigType  string
	Ops         []opData
}

type opData struct {
	Name     string
	Method   string
	Path     string
	Config   string
	Generics string
	Response string
}

// Emit renders axios-utilities.ts and the client file for table.
func Emit(ctx context.Context, table *spec.RouteTable, opts Options) (*Result, error) {
	_ = ctx
	if table == nil {
		return nil, fmt.Errorf("tsemitter: nil RouteTable")
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("tsemitter: OutDir is required")
	}
	files, className, err := Render(table, opts)
	if err != nil {
		return nil, err
	}
	res := &Result{ClassName: className, Planned: emitter.Plan(opts.OutDir, files)}
	if opts.DryRun {
		return res, nil
	}
	if err := emitter.WriteFiles(opts.OutDir, files, opts.Force); err != nil {
		return nil, err
	}
	return res, nil
}

// Render returns the generated files keyed by relative path.
func Render(table *spec.RouteTable, opts Options) (map[string][]byte, string, error) {
	data := &fileData{
		ClassName:   sanitizeIdent(opts.ClassName),
		TypesModule: opts.TypesModule,
		TypesAlias:  "types",
		ConfigType:  configType,
	}
	if data.ClassName == "" {
		data.ClassName = "ApiClient"
	}
	if data.TypesModule == "" {
		data.TypesModule = "./types"
	}
	if opts.Source != "" {
		data.Source = path.Base(strings.ReplaceAll(opts.Source, "\\", "/"))
	}
	fileName := opts.FileName
	if fileName == "" {
		fileName = "client.ts"
	}
	if !strings.HasSuffix(fileName, ".ts") || strings.ContainsAny(fileName, `/\`) || fileName == "axios-utilities.ts" {
		return nil, "", fmt.Errorf("tsemitter: invalid file name %q", fileName)
	}

	seen := map[string]string{}
	for _, op := range table.Operations {
		key := op.Method + " " + op.Path
		name := sanitizeIdent(op.OperationID)
		if prev, dup := seen[name]; dup {
			return nil, "", &spec.SpecError{Code: spec.DuplicateError, Message: fmt.Sprintf("tsemitter: %s and %s both generate method %s", prev, key, name)}
		}
		seen[name] = key
		data.Ops = append(data.Ops, newOpData(name, op, data.TypesAlias))
	}

	files := map[string][]byte{}
	for tmpl, out := range map[string]string{"axios-utilities.ts.tmpl": "axios-utilities.ts", "client.ts.tmpl": fileName} {
		var buf bytes.Buffer
		if err := templates.ExecuteTemplate(&buf, tmpl, data); err != nil {
			return nil, "", fmt.Errorf("tsemitter: render %s: %w", out, err)
		}
		files[out] = buf.Bytes()
	}
	return files, data.ClassName, nil
}

func newOpData(name string, op spec.Operation, alias string) opData {
	ns := alias + "." + name
	hasParams, hasQuery, hasBody := op.Has(spec.PartParams), op.Has(spec.PartQuery), op.Has(spec.PartBody)

	generics := []string{"never", "never", "never"}
	if hasParams {
		generics[0] = ns + ".IParams"
	}
	if hasQuery {
		generics[1] = ns + ".IQuery"
	}
	if hasBody {
		generics[2] = ns + ".IBody"
	}
	g := strings.Join(generics, ", ")

	// Path params stay optional; query and body are required when declared.
	var required []string
	if hasQuery {
		required = append(required, "'params'")
	}
	if hasBody {
		required = append(required, "'data'")
	}
	cfg := configType + "<" + g + ">"
	if len(required) > 0 {
		cfg = "RequiredBy<" + cfg + ", " + strings.Join(required, " | ") + ">"
	}

	var responses []string
	for _, code := range op.ResponseCodes {
		responses = append(responses, ns+".I"+strconv.Itoa(code))
	}
	resp := strings.Join(responses, " | ")
	if resp == "" {
		resp = "unknown"
	}
	return opData{
		Name:     name,
		Method:   strings.ToLower(op.Method),
		Path:     strings.ReplaceAll(op.Path, "'", "\\'"),
		Config:   cfg,
		Generics: g,
		Response: resp,
	}
}

// sanitizeIdent keeps the characters valid in a TypeScript identifier.
func sanitizeIdent(s string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(s) {
		switch {
		case r == '_' || r == '$' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteRune('_')
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}
