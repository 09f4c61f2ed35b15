package settlement

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveColumns_Aliases(t *testing.T) {
	cols, err := ResolveColumns([]string{"Driver_ID", " start_time ", "end", "coverage", "status"})
	require.NoError(t, err)

	assert.Equal(t, 0, cols[FieldEntityID])
	assert.Equal(t, 1, cols[FieldStart])
	assert.Equal(t, 2, cols[FieldEnd])
	assert.Equal(t, 3, cols[FieldCoverage])
	assert.Equal(t, 4, cols[FieldStatusCode])
}

func TestResolveColumns_AlternateDriverLabel(t *testing.T) {
	cols, err := ResolveColumns([]string{"기사아이디", "시작시간", "종료시간", "담보", "보험사 정산 상태 정보"})
	require.NoError(t, err)
	assert.Equal(t, 0, cols[FieldEntityID])
}

func TestResolveColumns_Missing(t *testing.T) {
	_, err := ResolveColumns([]string{"기사이이디", "시작시간", "종료시간"})

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"coverage", "status_code"}, ve.Missing)
	assert.Equal(t, "missing required fields: coverage, status_code", ve.Error())
}

func TestRecordsFromTable(t *testing.T) {
	records, err := RecordsFromTable(workbookHeaders, [][]any{
		{"T1", " D1 ", "2025-11-01 09:00:00", "2025-11-01 09:30:00", "대물 ", json.Number("0")},
		{"T2", "D2", "2025-11-01 09:00:00"},
	})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, 0, records[0].Row)
	assert.Equal(t, "D1", records[0].EntityID)
	assert.Equal(t, "대물", records[0].Coverage)
	assert.Equal(t, "0", records[0].StatusCode)
	assert.Equal(t, "T1", records[0].Fields["보험사 운행 ID"])

	assert.Equal(t, 1, records[1].Row)
	assert.Nil(t, records[1].RawEnd)
	assert.Equal(t, "", records[1].Coverage)
}

func TestRecordsFromTable_Empty(t *testing.T) {
	_, err := RecordsFromTable(workbookHeaders, nil)
	assert.True(t, errors.Is(err, ErrEmptyInput))
}

func TestCellString(t *testing.T) {
	assert.Equal(t, "", CellString(nil))
	assert.Equal(t, "00", CellString(" 00 "))
	assert.Equal(t, "12", CellString(12.0))
	assert.Equal(t, "1.5", CellString(1.5))
	assert.Equal(t, "7", CellString(7))
}
