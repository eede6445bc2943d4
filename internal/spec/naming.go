package spec

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.Und, cases.NoLower)

// words splits s on any rune that is not a letter or digit.
func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// pascal joins the words of s in PascalCase, keeping inner capitals.
func pascal(s string) string {
	var b strings.Builder
	for _, w := range words(s) {
		b.WriteString(titleCaser.String(w))
	}
	return b.String()
}

// camel is pascal with a lower-cased first rune.
func camel(s string) string {
	p := pascal(s)
	if p == "" {
		return ""
	}
	r := []rune(p)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

// DeriveOperationID builds an operation id for routes that lack one:
// the first path segment, the method, then the remaining segments with
// placeholders rendered as By<Name>. GET /users/{id} gives usersGetById.
func DeriveOperationID(method, path string) string {
	segs := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
	head := "root"
	if len(segs) > 0 && !strings.HasPrefix(segs[0], "{") {
		if c := camel(segs[0]); c != "" {
			head = c
		}
		segs = segs[1:]
	}
	var b strings.Builder
	b.WriteString(head)
	b.WriteString(pascal(strings.ToLower(method)))
	for _, s := range segs {
		if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
			b.WriteString("By")
			b.WriteString(pascal(strings.Trim(s, "{}")))
			continue
		}
		b.WriteString(pascal(s))
	}
	return b.String()
}

// GoName converts an operation id into an exported Go identifier by
// upper-casing its first letter. Characters that are not valid in an
// identifier split words.
func GoName(operationID string) string {
	var b strings.Builder
	for i, w := range words(operationID) {
		if i == 0 {
			r := []rune(w)
			r[0] = unicode.ToUpper(r[0])
			b.WriteString(string(r))
			continue
		}
		b.WriteString(titleCaser.String(w))
	}
	out := b.String()
	if out == "" {
		return "Op"
	}
	if unicode.IsDigit([]rune(out)[0]) {
		out = "Op" + out
	}
	return out
}
