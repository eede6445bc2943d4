package apiclient

import (
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{([^{}]+)\}`)

// ResolvePath substitutes {name} placeholders in template with the matching
// values of params and elides an unresolved trailing placeholder.
//
// Each key replaces only the first occurrence of its placeholder. A nil value
// substitutes the empty string. Placeholders without a value that are not in
// the last segment are left untouched so the request fails at the transport
// layer instead of silently hitting another route.
//
// Substitution works on the spans of template only, so a value that itself
// looks like a placeholder is inserted literally. Values are not escaped: a
// value containing '?', '#' or '%' changes the meaning of the resulting URL.
// Clients built with WithPathEscaping escape each value instead.
func ResolvePath(template string, params map[string]any) string {
	return resolvePath(template, params, nil)
}

func resolvePath(template string, params map[string]any, escape func(string) string) string {
	var b strings.Builder
	used := make(map[string]bool, len(params))
	last := 0
	for _, m := range placeholderRe.FindAllStringSubmatchIndex(template, -1) {
		literal := template[last:m[0]]
		name := template[m[2]:m[3]]
		last = m[1]
		if v, ok := params[name]; ok && !used[name] {
			used[name] = true
			val := formatValue(v)
			if escape != nil {
				val = escape(val)
			}
			b.WriteString(literal)
			b.WriteString(val)
			continue
		}
		if isOptionalSegment(template, name, m[1]) {
			b.WriteString(strings.TrimSuffix(literal, "/"))
			last = len(template)
			continue
		}
		b.WriteString(literal)
		b.WriteString(template[m[0]:m[1]])
	}
	b.WriteString(template[last:])
	return b.String()
}

// isOptionalSegment reports whether the placeholder ending at end is the last
// segment of template, optionally followed by a single slash.
func isOptionalSegment(template, name string, end int) bool {
	if strings.Contains(name, "/") {
		return false
	}
	rest := template[end:]
	return rest == "" || rest == "/"
}
