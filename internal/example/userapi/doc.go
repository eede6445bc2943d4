// Package userapi is a generated client for a small user service. The
// request and response types live in types.go; client_gen.go is produced
// from routes.yaml.
package userapi

//go:generate go run ../../../cmd/routeclient generate --input routes.yaml --package userapi --out .
