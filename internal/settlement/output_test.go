package settlement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputSchema_DefaultTables(t *testing.T) {
	e := newTestEngine(t, nil)
	res := run(t, e, [][]any{
		{"T1", "D1", "2025-11-01 09:00:00", "2025-11-01 09:30:00", "대인1지원", "00"},
		{"T2", "D1", "2025-11-01 09:15:00", "2025-11-01 09:45:00", "대인1지원", "00"},
		{"T3", "D1", "bad", "2025-11-01 09:45:00", "대인1지원", "01"},
	})
	schema := DefaultOutputSchema()

	detail := schema.DetailTable(res.Detail)
	require.Len(t, detail, 4)
	assert.Equal(t, "기사이이디", detail[0][0])
	assert.Equal(t, []string{"D1", "2025-11-01 09:15:00", "2025-11-01 09:45:00", "대인1지원", "00", "정상", "30",
		"2025-11-01", "2025-11-01", "20251101", "true", "false", "true", "3.28", "98"}, detail[2])
	// Unparseable timestamps are echoed raw and the duration cell stays empty.
	assert.Equal(t, "bad", detail[3][1])
	assert.Equal(t, "", detail[3][6])

	summary := schema.SummaryTable(res.Summary)
	require.Len(t, summary, 2)
	assert.Equal(t, []string{"기사이이디", "보험사기준영업일_calc", "보험사기준영업일_date", "총운행시간_분(합산)",
		"중복운행시간_분", "정산운행시간_분(중복차감)", "운행건수(정산대상)", "운행(분)_자차포함", "운행(분)_자차미포함",
		"중복운행(분)_자차포함", "중복운행(분)_자차미포함", "인접중복(분)_자차", "인접중복(분)_자차미포함", "보험료_계산"}, summary[0])
	assert.Equal(t, []string{"D1", "20251101", "2025-11-01", "60", "15", "45", "2", "60", "60", "15", "15", "0", "15", "147"}, summary[1])

	merged := schema.MergedTable(res.Merged)
	require.Len(t, merged, 2)
	assert.Equal(t, []string{"D1", "20251101", "2025-11-01", "1", "2025-11-01 09:00:00", "2025-11-01 09:45:00", "45"}, merged[1])
}

func TestOutputSchema_CustomColumns(t *testing.T) {
	e := newTestEngine(t, nil)
	res := run(t, e, [][]any{
		{"T1", "D1", "2025-11-01 09:00:00", "2025-11-01 09:30:00", "대물", "00"},
	})

	schema := OutputSchema{
		Detail: []Column{
			{Field: InputFieldPrefix + "보험사 운행 ID", Name: "trip"},
			{Field: "premium", Name: "premium"},
			{Field: "no_such_field", Name: "blank"},
		},
	}

	detail := schema.DetailTable(res.Detail)
	assert.Equal(t, [][]string{{"trip", "premium", "blank"}, {"T1", "110", ""}}, detail)
	assert.Equal(t, [][]string{{}, {}}, schema.SummaryTable(res.Summary))
}
