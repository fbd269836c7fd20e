package google

import (
	"fmt"
	"strings"

	ports "fintrack/internal/sheets"
)

// indexRows maps the ID in column A to its 1-based row number. The header row
// and blank cells are skipped; a duplicated ID keeps its first row.
func indexRows(values [][]interface{}) map[string]int {
	index := make(map[string]int, len(values))
	for i, row := range values {
		id := strings.TrimSpace(safeGet(toStrings(row), 0))
		if id == "" || (i == 0 && strings.EqualFold(id, ports.Header[0])) {
			continue
		}
		if _, seen := index[id]; seen {
			continue
		}
		index[id] = i + 1
	}
	return index
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = fmt.Sprint(v)
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
