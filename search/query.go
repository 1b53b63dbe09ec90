// Package search maintains a local full-text index over archived
// messages and answers /find style queries from the chat view.
package search

import (
	"strconv"
	"strings"
)

const defaultLimit = 10

// Query represents the structured parameters of a history search. It
// decouples the raw chat input from the index engine requirements.
type Query struct {
	RawInput string // the original input from the user
	Terms    string // the actual text to search
	RoomID   string // restrict to one room, empty means all
	Sender   string // restrict to one sender display name
	Limit    int    // number of results
}

// ParseQuery extracts command-line style arguments from a raw string.
// Example: /find homework --room class-1 --from "Bob" --limit 5
func ParseQuery(input string) Query {
	query := Query{
		RawInput: input,
		Limit:    defaultLimit,
	}

	parts := strings.Fields(input)
	var textTerms []string

	for i := 0; i < len(parts); i++ {
		part := parts[i]

		if strings.HasPrefix(part, "--") && i+1 < len(parts) {
			key := strings.TrimPrefix(part, "--")
			val, consumed := flagValue(parts[i+1:])

			switch key {
			case "room":
				query.RoomID = val
			case "from":
				query.Sender = val
			case "limit":
				if limit, err := strconv.Atoi(val); err == nil && limit > 0 {
					query.Limit = limit
				}
			}
			i += consumed // skip the value parts in the next iterations
			continue
		}

		// If it's not a flag, it's a search term.
		if !strings.HasPrefix(part, "/") {
			textTerms = append(textTerms, part)
		}
	}

	query.Terms = strings.Join(textTerms, " ")
	return query
}

// flagValue reads the value following a flag. Values wrapped in double
// quotes may span several whitespace separated tokens. It returns the
// unquoted value and the number of tokens consumed.
func flagValue(parts []string) (string, int) {
	first := parts[0]
	if !strings.HasPrefix(first, `"`) {
		return first, 1
	}
	if strings.HasSuffix(first, `"`) && len(first) > 1 {
		return strings.Trim(first, `"`), 1
	}

	joined := []string{strings.TrimPrefix(first, `"`)}
	for i := 1; i < len(parts); i++ {
		if strings.HasSuffix(parts[i], `"`) {
			joined = append(joined, strings.TrimSuffix(parts[i], `"`))
			return strings.Join(joined, " "), i + 1
		}
		joined = append(joined, parts[i])
	}
	return strings.Join(joined, " "), len(parts)
}
