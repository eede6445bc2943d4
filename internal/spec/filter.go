package spec

import (
	"fmt"
	"regexp"
	"strings"
)

// BuildOption configures which operations end up in a RouteTable.
type BuildOption func(*buildConfig)

type buildConfig struct {
	includeTags map[string]struct{}
	excludeTags map[string]struct{}
	methods     map[string]struct{}
	pathRes     []*regexp.Regexp
	err         error
}

// WithIncludeTags keeps only operations that have at least one of the given tags.
func WithIncludeTags(tags []string) BuildOption {
	return func(c *buildConfig) {
		for _, t := range tags {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			if c.includeTags == nil {
				c.includeTags = make(map[string]struct{}, len(tags))
			}
			c.includeTags[t] = struct{}{}
		}
	}
}

// WithExcludeTags removes operations that have any of the given tags.
func WithExcludeTags(tags []string) BuildOption {
	return func(c *buildConfig) {
		for _, t := range tags {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			if c.excludeTags == nil {
				c.excludeTags = make(map[string]struct{}, len(tags))
			}
			c.excludeTags[t] = struct{}{}
		}
	}
}

// WithMethods keeps only operations using one of the given HTTP methods.
// Matching is case-insensitive.
func WithMethods(methods []string) BuildOption {
	return func(c *buildConfig) {
		for _, m := range methods {
			m = strings.ToUpper(strings.TrimSpace(m))
			if m == "" {
				continue
			}
			if c.methods == nil {
				c.methods = make(map[string]struct{}, len(methods))
			}
			c.methods[m] = struct{}{}
		}
	}
}

// WithPathPatterns keeps only operations whose route matches at least one
// of the regular expressions. An invalid pattern fails the build.
func WithPathPatterns(patterns []string) BuildOption {
	return func(c *buildConfig) {
		for _, p := range patterns {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			re, err := regexp.Compile(p)
			if err != nil {
				if c.err == nil {
					c.err = &SpecError{Code: InputError, Message: fmt.Sprintf("spec: invalid path pattern %q: %v", p, err), Cause: err}
				}
				continue
			}
			c.pathRes = append(c.pathRes, re)
		}
	}
}

func newBuildConfig(opts []BuildOption) (*buildConfig, error) {
	cfg := &buildConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg, cfg.err
}

func (c *buildConfig) allow(op *Operation) bool {
	if len(c.methods) > 0 {
		if _, ok := c.methods[op.Method]; !ok {
			return false
		}
	}
	if len(c.pathRes) > 0 {
		matched := false
		for _, re := range c.pathRes {
			if re.MatchString(op.Path) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return allowByTags(op.Tags, c)
}

func allowByTags(tags []string, cfg *buildConfig) bool {
	if len(cfg.includeTags) > 0 {
		ok := false
		for _, t := range tags {
			if _, yes := cfg.includeTags[t]; yes {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	for _, t := range tags {
		if _, blocked := cfg.excludeTags[t]; blocked {
			return false
		}
	}
	return true
}

// Filter returns a copy of t holding only the operations allowed by opts.
func (t *RouteTable) Filter(opts ...BuildOption) (*RouteTable, error) {
	cfg, err := newBuildConfig(opts)
	if err != nil {
		return nil, err
	}
	out := &RouteTable{Title: t.Title}
	for i := range t.Operations {
		if cfg.allow(&t.Operations[i]) {
			out.Operations = append(out.Operations, t.Operations[i])
		}
	}
	return out, nil
}
