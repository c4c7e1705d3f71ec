package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/Emberfield/autodoc/internal/boundary"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// recordTable renders records as a terminal table.
func recordTable(records []boundary.Record) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle()
		}).
		Headers("KIND", "NAME", "LOCATION", "PARAMS", "RETURNS", "SCORE", "ENDPOINT")

	for _, r := range records {
		name := r.Name
		if r.IsAsync {
			name = "async " + name
		}
		returns := ""
		if r.ReturnType != nil {
			returns = *r.ReturnType
		}
		endpoint := ""
		if r.IsAPIEndpoint {
			endpoint = "yes"
			if r.EndpointPath != nil {
				endpoint = *r.EndpointPath
			}
		}
		t.Row(
			r.EntityType,
			name,
			fmt.Sprintf("%s:%d", r.FilePath, r.LineNumber),
			strings.Join(r.Parameters, ", "),
			returns,
			strconv.Itoa(r.ComplexityScore),
			endpoint,
		)
	}
	return t.String()
}
