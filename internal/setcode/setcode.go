// Package setcode maps free-form set references, as written by export
// tools, to canonical short set codes.
package setcode

import "strings"

// Normalizer resolves edition names to set codes through an alias table
type Normalizer struct {
	aliases map[string]string
}

var defaultNormalizer = New(nil)

// New creates a Normalizer using the built-in alias table extended (and
// overridden) by extra. Alias names are matched case-insensitively.
func New(extra map[string]string) *Normalizer {
	aliases := make(map[string]string, len(editionAliases)+len(extra))
	for name, code := range editionAliases {
		aliases[strings.ToLower(name)] = strings.ToLower(code)
	}
	for name, code := range extra {
		name = strings.ToLower(strings.TrimSpace(name))
		code = strings.ToLower(strings.TrimSpace(code))
		if name == "" || code == "" {
			continue
		}
		aliases[name] = code
	}

	return &Normalizer{aliases: aliases}
}

// Normalize returns the canonical set code for identifier. Three character
// identifiers are taken to already be codes. Unknown names come back
// lowercased so later fuzzy matching can still use them.
func (n *Normalizer) Normalize(identifier string) string {
	id := strings.ToLower(strings.TrimSpace(identifier))
	if len(id) == 3 {
		return id
	}

	if code, ok := n.aliases[id]; ok {
		return code
	}

	return id
}

// Len returns the number of known aliases
func (n *Normalizer) Len() int {
	return len(n.aliases)
}

// Normalize maps identifier using the built-in alias table
func Normalize(identifier string) string {
	return defaultNormalizer.Normalize(identifier)
}
