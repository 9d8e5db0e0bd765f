package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		input       string
		fields      int
		wantRows    []Row
		wantSkipped int
	}{
		{
			name:   "two well-formed rows",
			input:  "abc123\twebapp\tUp 3 hours\tnginx:latest\ndef456\tdb\tExited (0) 2 minutes ago\tpostgres:16",
			fields: 4,
			wantRows: []Row{
				{"abc123", "webapp", "Up 3 hours", "nginx:latest"},
				{"def456", "db", "Exited (0) 2 minutes ago", "postgres:16"},
			},
			wantSkipped: 0,
		},
		{
			name:        "empty input yields empty sequence",
			input:       "",
			fields:      4,
			wantRows:    nil,
			wantSkipped: 0,
		},
		{
			name:        "whitespace-only input yields empty sequence",
			input:       "\n\n  \n",
			fields:      3,
			wantRows:    nil,
			wantSkipped: 0,
		},
		{
			name:        "short row is skipped and counted",
			input:       "a\tb\tc\nonly-two\tfields\nx\ty\tz",
			fields:      3,
			wantRows:    []Row{{"a", "b", "c"}, {"x", "y", "z"}},
			wantSkipped: 1,
		},
		{
			name:        "extra fields are truncated to the expected count",
			input:       "a\tb\tc\td",
			fields:      3,
			wantRows:    []Row{{"a", "b", "c"}},
			wantSkipped: 0,
		},
		{
			name:        "trailing newline and carriage returns",
			input:       "a\tb\r\nc\td\r\n",
			fields:      2,
			wantRows:    []Row{{"a", "b"}, {"c", "d"}},
			wantSkipped: 0,
		},
		{
			name:        "fields can be empty strings",
			input:       "\t\t",
			fields:      3,
			wantRows:    []Row{{"", "", ""}},
			wantSkipped: 0,
		},
		{
			name:        "delimiter-only line between rows is a row of empty fields",
			input:       "a\tb\n\t\nc\td",
			fields:      2,
			wantRows:    []Row{{"a", "b"}, {"", ""}, {"c", "d"}},
			wantSkipped: 0,
		},
		{
			name:        "garbage without delimiters is counted as skipped",
			input:       "this is not tabular output\nneither is this",
			fields:      4,
			wantRows:    nil,
			wantSkipped: 2,
		},
		{
			name:        "non-positive field count yields nothing",
			input:       "a\tb",
			fields:      0,
			wantRows:    nil,
			wantSkipped: 0,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rows, skipped := Parse(tt.input, tt.fields)
			assert.Equal(t, tt.wantRows, rows)
			assert.Equal(t, tt.wantSkipped, skipped)
		})
	}
}
