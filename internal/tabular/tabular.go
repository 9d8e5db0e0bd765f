// Package tabular parses fixed-delimiter tabular command output into records.
//
// The parser knows nothing about field semantics. Callers pick the output
// format of the producing command so that Delimiter never appears inside a
// field value; for Docker CLI --format templates a tab satisfies that, since
// Docker strips tabs from names, status text and image references. That choice
// is a contract between this package and the docker facade, not something the
// parser rediscovers per row.
package tabular

import "strings"

// Delimiter separates fields within a row. Must never occur inside a field
// value emitted by the producing command.
const Delimiter = "\t"

// Row is one parsed record: an ordered, fixed-length list of field values.
type Row []string

// Parse splits text into rows of exactly fields values each.
//
// Lines with fewer than fields values are dropped and counted in skipped.
// Blank lines are ignored outright; a line holding only delimiters is not
// blank, it is a row of empty fields. Empty input yields a nil slice and zero
// skips, which is how "the command returned nothing" is told apart from "the
// command returned garbage". Parse never fails: any input produces zero or
// more well-formed rows plus a skip count.
func Parse(text string, fields int) (rows []Row, skipped int) {
	if fields <= 0 {
		return nil, 0
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		// A line of delimiters alone is a row of empty fields, not a blank
		// line; only delimiter-free whitespace is ignored.
		if !strings.Contains(line, Delimiter) && strings.TrimSpace(line) == "" {
			continue
		}

		parts := strings.Split(line, Delimiter)
		if len(parts) < fields {
			skipped++
			continue
		}
		rows = append(rows, Row(parts[:fields]))
	}

	return rows, skipped
}
