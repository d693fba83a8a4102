// Package recipients resolves the TO/CC/BCC address groups from the
// externally maintained recipient list.
package recipients

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/telhawk-systems/telhawk-reporting/internal/models"
)

// Source identifies one recipient list: a CSV with three parallel columns
// TO, CC, BCC, editable outside the tool. The source is handed in explicitly
// at resolve time; no ambient lookup, no addresses anywhere in code.
type Source struct {
	Path string
}

// Resolve reads the source and returns the recipient group. Resolution is
// pure: the same source content always yields the same group. The TO column
// must end up non-empty; an addressless message never reaches the mailer.
func Resolve(src Source) (models.RecipientGroup, error) {
	file, err := os.Open(src.Path)
	if err != nil {
		return models.RecipientGroup{}, &models.RecipientResolutionError{Source: src.Path, Err: err}
	}
	defer file.Close()

	return ResolveReader(src.Path, file)
}

// ResolveReader resolves from any reader with the same tabular shape. name
// appears in errors only.
func ResolveReader(name string, r io.Reader) (models.RecipientGroup, error) {
	reader := csv.NewReader(r)
	// Operator-maintained files often have ragged rows.
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return models.RecipientGroup{}, &models.RecipientResolutionError{Source: name, Err: err}
	}
	if len(rows) == 0 {
		return models.RecipientGroup{}, &models.RecipientResolutionError{Source: name, Err: fmt.Errorf("source is empty")}
	}

	idx := map[string]int{}
	for i, col := range rows[0] {
		idx[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, key := range []string{"to", "cc", "bcc"} {
		if _, ok := idx[key]; !ok {
			return models.RecipientGroup{}, &models.RecipientResolutionError{Source: name, Err: fmt.Errorf("missing required column: %s", key)}
		}
	}

	data := rows[1:]
	group := models.RecipientGroup{
		To:  column(data, idx["to"]),
		CC:  column(data, idx["cc"]),
		BCC: column(data, idx["bcc"]),
	}

	if len(group.To) == 0 {
		return models.RecipientGroup{}, &models.RecipientResolutionError{Source: name, Err: models.ErrNoRecipients}
	}

	return group, nil
}

// column walks one column top-down and stops at the first blank cell, so the
// three columns may have different lengths. A value below a blank cell is
// unreachable. Whitespace-only cells are dropped without ending the column.
func column(rows [][]string, idx int) []string {
	var out []string
	for _, row := range rows {
		var cell string
		if idx < len(row) {
			cell = row[idx]
		}
		if cell == "" {
			break
		}
		addr := strings.TrimSpace(cell)
		if addr == "" {
			continue
		}
		out = append(out, addr)
	}
	return out
}
