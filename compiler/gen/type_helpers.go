package gen

import (
	"go/token"
	"strings"
	"sync"
	"unicode"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// =============================================================================
// Naming helpers
// =============================================================================

var (
	rules = inflect.NewDefaultRuleset()

	acronymsMu sync.RWMutex
	acronyms   = map[string]struct{}{
		"API": {}, "HTML": {}, "HTTP": {}, "ID": {}, "IP": {}, "JSON": {},
		"SKU": {}, "SQL": {}, "URI": {}, "URL": {}, "UUID": {}, "XML": {},
	}
)

// AddAcronym registers a word that is upper-cased entirely when it appears
// as a segment of a Go identifier.
func AddAcronym(word string) {
	acronymsMu.Lock()
	defer acronymsMu.Unlock()
	acronyms[strings.ToUpper(word)] = struct{}{}
}

func isAcronym(s string) bool {
	acronymsMu.RLock()
	defer acronymsMu.RUnlock()
	_, ok := acronyms[strings.ToUpper(s)]
	return ok
}

// Pascal converts a snake_case entity name to PascalCase. Each segment keeps
// its first letter upper-cased and the rest lower-cased: "user_ID" becomes
// "UserId".
func Pascal(s string) string {
	var b strings.Builder
	for _, seg := range strings.Split(s, "_") {
		b.WriteString(capitalize(seg))
	}
	return b.String()
}

// Camel converts a snake_case entity name to camelCase. The first segment is
// kept as is.
func Camel(s string) string {
	segs := strings.Split(s, "_")
	var b strings.Builder
	b.WriteString(segs[0])
	for _, seg := range segs[1:] {
		b.WriteString(capitalize(seg))
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// goIdent converts a JSON field name to an exported Go identifier, honoring
// registered acronyms: "owner_id" becomes "OwnerID", "_from" becomes "From".
func goIdent(s string) string {
	segs := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var b strings.Builder
	for _, seg := range segs {
		if isAcronym(seg) {
			b.WriteString(strings.ToUpper(seg))
			continue
		}
		r := []rune(seg)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	id := b.String()
	if id == "" || unicode.IsDigit([]rune(id)[0]) {
		id = "F" + id
	}
	return id
}

// plural returns the plural form of a snake_case name. Only the last
// segment is inflected: "user_order" becomes "user_orders".
func plural(s string) string {
	i := strings.LastIndex(s, "_")
	return s[:i+1] + rules.Pluralize(s[i+1:])
}

// title returns a human-readable form of a snake_case name: "user_order"
// becomes "User Order".
func title(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}

// isIdent reports whether s is a valid, non-keyword Go identifier.
func isIdent(s string) bool {
	return token.IsIdentifier(s)
}
