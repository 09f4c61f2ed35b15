package settlement

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"settlement/internal/domain"
)

// Field is a logical input column.
type Field string

const (
	FieldEntityID   Field = "entity_id"
	FieldStart      Field = "start"
	FieldEnd        Field = "end"
	FieldCoverage   Field = "coverage"
	FieldStatusCode Field = "status_code"
)

// RequiredFields lists the logical columns every batch must carry, in report order.
var RequiredFields = []Field{FieldEntityID, FieldStart, FieldEnd, FieldCoverage, FieldStatusCode}

// DefaultAliases are the header labels accepted for each logical field.
// Matching ignores surrounding whitespace and ASCII case.
var DefaultAliases = map[Field][]string{
	FieldEntityID:   {"기사이이디", "기사아이디", "보험사 기사아이디", "driver_id", "entity_id"},
	FieldStart:      {"시작시간", "start", "start_time", "started_at"},
	FieldEnd:        {"종료시간", "end", "end_time", "ended_at"},
	FieldCoverage:   {"담보", "coverage", "category"},
	FieldStatusCode: {"보험사 정산 상태 정보", "status", "status_code"},
}

// Columns maps each logical field to its index in the input header.
type Columns map[Field]int

// ResolveColumns locates the required fields in headers. When several headers
// match one field the first wins. A *ValidationError lists every field that
// could not be found.
func ResolveColumns(headers []string) (Columns, error) {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		key := headerKey(h)
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	cols := make(Columns, len(RequiredFields))
	var missing []string
	for _, field := range RequiredFields {
		found := false
		for _, alias := range DefaultAliases[field] {
			if i, ok := index[headerKey(alias)]; ok {
				cols[field] = i
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, string(field))
		}
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Missing: missing}
	}
	return cols, nil
}

// RecordsFromTable converts a header plus data rows into trip records.
// Short rows are padded with empty cells.
func RecordsFromTable(headers []string, rows [][]any) ([]domain.TripRecord, error) {
	cols, err := ResolveColumns(headers)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptyInput
	}

	records := make([]domain.TripRecord, 0, len(rows))
	for i, row := range rows {
		cell := func(f Field) any {
			if idx := cols[f]; idx < len(row) {
				return row[idx]
			}
			return nil
		}

		fields := make(map[string]any, len(headers))
		for j, h := range headers {
			if j < len(row) {
				fields[h] = row[j]
			}
		}

		records = append(records, domain.TripRecord{
			Row:        i,
			EntityID:   CellString(cell(FieldEntityID)),
			RawStart:   cell(FieldStart),
			RawEnd:     cell(FieldEnd),
			Coverage:   CellString(cell(FieldCoverage)),
			StatusCode: CellString(cell(FieldStatusCode)),
			Fields:     fields,
		})
	}
	return records, nil
}

// CellString renders a table cell as trimmed text. Integral numbers are
// printed without a fractional part.
func CellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		return t.Format(timestampLayout)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func headerKey(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}
