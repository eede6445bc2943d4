package goemitter

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"go/format"
	"go/token"
	"path"
	"strconv"
	"strings"
	"text/template"
	"unicode"

	"github.com/mark3labs/routeclient/internal/spec"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var clientTmpl = template.Must(template.ParseFS(templateFS, "templates/client.go.tmpl"))

type fileData struct {
	Source      string
	Title       string
	Package     string
	ClientName  string
	TypesImport string
	TypesAlias  string
	Qual        string
	Ops         []opData
}

type opData struct {
	Name       string
	SchemasVar string
	Method     string
	Path       string
	Doc        []string
	HasParams  bool
	HasQuery   bool
	HasBody    bool
	Codes      []codeData
}

type codeData struct {
	Code    int
	Literal string
}

// Render returns the gofmt'ed client source for table. The output depends
// only on table and opts.
func Render(table *spec.RouteTable, opts Options) ([]byte, error) {
	if table == nil {
		return nil, fmt.Errorf("goemitter: nil RouteTable")
	}
	data, err := newFileData(table, opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := clientTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("goemitter: render: %w", err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("goemitter: format generated source: %w", err)
	}
	return src, nil
}

func newFileData(table *spec.RouteTable, opts Options) (*fileData, error) {
	pkg := opts.Package
	if pkg == "" {
		pkg = "client"
	}
	if !token.IsIdentifier(pkg) {
		return nil, fmt.Errorf("goemitter: invalid package name %q", pkg)
	}
	clientName := opts.ClientName
	if clientName == "" {
		clientName = "Client"
	}
	if !token.IsIdentifier(clientName) || !token.IsExported(clientName) {
		return nil, fmt.Errorf("goemitter: client name %q must be an exported identifier", clientName)
	}

	data := &fileData{
		Title:      strings.Join(strings.Fields(table.Title), " "),
		Package:    pkg,
		ClientName: clientName,
	}
	if opts.Source != "" {
		data.Source = path.Base(filepathToSlash(opts.Source))
	}
	if imp := strings.TrimSpace(opts.TypesPackage); imp != "" {
		alias := packageAlias(imp)
		data.TypesImport = imp
		data.TypesAlias = alias
		data.Qual = alias + "."
	}

	names := map[string]string{}
	for _, op := range table.Operations {
		name := spec.GoName(op.OperationID)
		key := op.Method + " " + op.Path
		if prev, dup := names[name]; dup {
			return nil, &spec.SpecError{
				Code:    spec.DuplicateError,
				Message: fmt.Sprintf("goemitter: %s and %s both generate method %s", prev, key, name),
			}
		}
		if reservedNames[name] {
			return nil, &spec.SpecError{
				Code:    spec.ValidationError,
				Message: fmt.Sprintf("goemitter: %s: method name %s clashes with apiclient.Client", key, name),
			}
		}
		names[name] = key

		od := opData{
			Name:       name,
			SchemasVar: lowerFirst(name) + "Schemas",
			Method:     op.Method,
			Path:       op.Path,
			HasParams:  op.Has(spec.PartParams),
			HasQuery:   op.Has(spec.PartQuery),
			HasBody:    op.Has(spec.PartBody),
		}
		if s := strings.Join(strings.Fields(op.Summary), " "); s != "" {
			od.Doc = []string{"", s}
		}
		for _, code := range op.ResponseCodes {
			lit, err := schemaLiteral(op.Schema(code))
			if err != nil {
				return nil, &spec.SpecError{
					Code:    spec.ValidationError,
					Message: fmt.Sprintf("goemitter: %s: response %d: %v", key, code, err),
					Cause:   err,
				}
			}
			od.Codes = append(od.Codes, codeData{Code: code, Literal: lit})
		}
		data.Ops = append(data.Ops, od)
	}
	return data, nil
}

// reservedNames are promoted from the embedded *apiclient.Client.
var reservedNames = map[string]bool{"Execute": true, "ValidateResponse": true, "Validator": true}

// schemaLiteral normalizes a JSON schema (sorted keys, no HTML escaping)
// and returns it as a Go string literal.
func schemaLiteral(raw json.RawMessage) (string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	s := strings.TrimSuffix(buf.String(), "\n")
	if strings.ContainsRune(s, '`') {
		return strconv.Quote(s), nil
	}
	return "`" + s + "`", nil
}

// packageAlias derives a package identifier from an import path, skipping
// major version suffixes.
func packageAlias(importPath string) string {
	parts := strings.Split(strings.Trim(importPath, "/"), "/")
	base := parts[len(parts)-1]
	if len(parts) > 1 && len(base) > 1 && base[0] == 'v' && strings.Trim(base[1:], "0123456789") == "" {
		base = parts[len(parts)-2]
	}
	var b strings.Builder
	for _, r := range base {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	alias := b.String()
	if alias == "" || !token.IsIdentifier(alias) || token.IsKeyword(alias) {
		alias = "types"
	}
	return alias
}

func lowerFirst(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

func filepathToSlash(p string) string { return strings.ReplaceAll(p, "\\", "/") }
