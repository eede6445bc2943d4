package goemitter

// Options controls how the Go emitter renders a client.
type Options struct {
	OutDir string // required by Emit; target directory of the generated file
	// Package is the generated package name. Defaults to "client".
	Package string
	// TypesPackage is the import path holding the request and response
	// types (<Op>Params, <Op>Query, <Op>Body, <Op><code>). Empty means the
	// generated package itself.
	TypesPackage string
	FileName     string // defaults to client_gen.go
	ClientName   string // defaults to Client
	// Source names the route table in the generated header. Only its base
	// name is used so output does not depend on the working directory.
	Source  string
	Force   bool // overwrite existing hand-written files
	DryRun  bool // don't write, only plan
	Verbose bool
}
