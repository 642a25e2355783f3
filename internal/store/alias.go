package store

import "github.com/nlplanner/nlplanner/internal/frontmatter"

// Some header fields have legacy or alternate names. When one side is
// updated the other must stay in sync or repeated partial updates leave
// stale data behind. Mapping: alias → canonical field name.
var fieldAliases = map[string]string{
	"project_id": "project",
}

// syncFieldAliases reconciles aliased fields inside an update map before
// it is merged into a record.
//
// Rules:
//  1. Alias supplied without the canonical field: copy alias → canonical.
//  2. Canonical supplied without the alias: copy canonical → alias only
//     when the alias already exists in the current header. A record that
//     never carried the legacy name does not gain it.
//  3. Both supplied: the canonical value wins and overwrites the alias.
func syncFieldAliases(updates map[string]any, current *frontmatter.Fields) {
	for alias, canonical := range fieldAliases {
		aliasVal, hasAlias := updates[alias]
		canonVal, hasCanonical := updates[canonical]

		switch {
		case hasAlias && hasCanonical:
			updates[alias] = canonVal
		case hasAlias:
			updates[canonical] = aliasVal
		case hasCanonical:
			if current.Has(alias) {
				updates[alias] = canonVal
			}
		}
	}
}
