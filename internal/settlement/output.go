package settlement

import (
	"strconv"
	"strings"
	"time"

	"settlement/internal/domain"
)

const timestampLayout = "2006-01-02 15:04:05"

// InputFieldPrefix selects an original input cell in a detail column:
// "input:보험사 운행 ID" emits that header's value unchanged.
const InputFieldPrefix = "input:"

// Column binds a logical output field to the column name it is emitted under.
type Column struct {
	Field string
	Name  string
}

// OutputSchema lists the emitted columns of each result table in order.
// A logical field not listed is not emitted.
type OutputSchema struct {
	Detail  []Column
	Summary []Column
	Merged  []Column
}

// DefaultOutputSchema reproduces the column names of the settlement workbook.
func DefaultOutputSchema() OutputSchema {
	return OutputSchema{
		Detail: []Column{
			{"entity_id", "기사이이디"},
			{"start", "시작시간"},
			{"end", "종료시간"},
			{"coverage", "담보"},
			{"status_code", "보험사 정산 상태 정보"},
			{"status_label", "상태"},
			{"duration_minutes", "전체 운행시간 (분단위)"},
			{"calendar_day", "보험사기준영업일"},
			{"platform_day", "배민기준영업일"},
			{"business_day_key", "보험사기준영업일_calc"},
			{"payable", "is_payable"},
			{"self_insured", "is_self_car"},
			{"overlaps_previous", "is_overlap_with_prev"},
			{"rate", "담보_요율"},
			{"premium", "보험료_계산"},
		},
		Summary: []Column{
			{"entity_id", "기사이이디"},
			{"business_day_key", "보험사기준영업일_calc"},
			{"business_day", "보험사기준영업일_date"},
			{"total_minutes", "총운행시간_분(합산)"},
			{"overlap_minutes", "중복운행시간_분"},
			{"settled_minutes", "정산운행시간_분(중복차감)"},
			{"record_count", "운행건수(정산대상)"},
			{"minutes_including_self_insured", "운행(분)_자차포함"},
			{"minutes_excluding_self_insured", "운행(분)_자차미포함"},
			{"overlap_minutes", "중복운행(분)_자차포함"},
			{"overlap_excluding_self_insured_minutes", "중복운행(분)_자차미포함"},
			{"self_insured_overlap_minutes", "인접중복(분)_자차"},
			{"standard_overlap_minutes", "인접중복(분)_자차미포함"},
			{"premium", "보험료_계산"},
		},
		Merged: []Column{
			{"entity_id", "기사이이디"},
			{"business_day_key", "보험사기준영업일_calc"},
			{"business_day", "보험사기준영업일_date"},
			{"seq", "merged_seq"},
			{"start", "merged_start"},
			{"end", "merged_end"},
			{"duration_minutes", "merged_duration_min"},
		},
	}
}

// DetailTable renders detail rows, header first.
func (s OutputSchema) DetailTable(rows []domain.DetailRow) [][]string {
	table := [][]string{header(s.Detail)}
	for i := range rows {
		row := &rows[i]
		line := make([]string, len(s.Detail))
		for j, col := range s.Detail {
			line[j] = detailValue(row, col.Field)
		}
		table = append(table, line)
	}
	return table
}

// SummaryTable renders daily summary rows, header first.
func (s OutputSchema) SummaryTable(rows []domain.DailySummaryRow) [][]string {
	table := [][]string{header(s.Summary)}
	for _, row := range rows {
		line := make([]string, len(s.Summary))
		for j, col := range s.Summary {
			line[j] = summaryValue(row, col.Field)
		}
		table = append(table, line)
	}
	return table
}

// MergedTable renders merged-interval audit rows, header first.
func (s OutputSchema) MergedTable(rows []domain.MergedInterval) [][]string {
	table := [][]string{header(s.Merged)}
	for _, row := range rows {
		line := make([]string, len(s.Merged))
		for j, col := range s.Merged {
			line[j] = mergedValue(row, col.Field)
		}
		table = append(table, line)
	}
	return table
}

func header(cols []Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

func detailValue(row *domain.DetailRow, field string) string {
	if name, ok := strings.CutPrefix(field, InputFieldPrefix); ok {
		return CellString(row.Record.Fields[name])
	}
	switch field {
	case "row":
		return strconv.Itoa(row.Record.Row)
	case "entity_id":
		return row.Record.EntityID
	case "start":
		if row.Start == nil {
			return CellString(row.Record.RawStart)
		}
		return formatTime(*row.Start)
	case "end":
		if row.End == nil {
			return CellString(row.Record.RawEnd)
		}
		return formatTime(*row.End)
	case "coverage":
		return row.Record.Coverage
	case "status_code":
		return row.Record.StatusCode
	case "status_label":
		return row.StatusLabel
	case "duration_minutes":
		if row.DurationMinutes == nil {
			return ""
		}
		return strconv.FormatInt(*row.DurationMinutes, 10)
	case "calendar_day":
		return row.CalendarDay
	case "platform_day":
		return row.PlatformDay
	case "business_day":
		return row.BusinessDay
	case "business_day_key":
		return row.BusinessDayKey
	case "payable":
		return strconv.FormatBool(row.Payable)
	case "self_insured":
		return strconv.FormatBool(row.SelfInsured)
	case "overlaps_previous":
		return strconv.FormatBool(row.OverlapsPrevious)
	case "rate":
		return strconv.FormatFloat(row.Rate, 'f', -1, 64)
	case "premium":
		return strconv.FormatInt(row.Premium, 10)
	default:
		return ""
	}
}

func summaryValue(row domain.DailySummaryRow, field string) string {
	switch field {
	case "entity_id":
		return row.EntityID
	case "business_day":
		return row.BusinessDay
	case "business_day_key":
		return DayKey(row.BusinessDay)
	case "total_minutes":
		return strconv.FormatInt(row.TotalMinutes, 10)
	case "overlap_minutes":
		return strconv.FormatInt(row.OverlapMinutes, 10)
	case "settled_minutes":
		return strconv.FormatInt(row.SettledMinutes, 10)
	case "record_count":
		return strconv.Itoa(row.RecordCount)
	case "minutes_including_self_insured":
		return strconv.FormatInt(row.MinutesIncludingSelfInsured, 10)
	case "minutes_excluding_self_insured":
		return strconv.FormatInt(row.MinutesExcludingSelfInsured, 10)
	case "overlap_excluding_self_insured_minutes":
		return strconv.FormatInt(row.OverlapExcludingSelfInsuredMinutes, 10)
	case "self_insured_overlap_minutes":
		return strconv.FormatInt(row.SelfInsuredOverlapMinutes, 10)
	case "standard_overlap_minutes":
		return strconv.FormatInt(row.StandardOverlapMinutes, 10)
	case "premium":
		return strconv.FormatInt(row.Premium, 10)
	default:
		return ""
	}
}

func mergedValue(row domain.MergedInterval, field string) string {
	switch field {
	case "entity_id":
		return row.EntityID
	case "business_day":
		return row.BusinessDay
	case "business_day_key":
		return DayKey(row.BusinessDay)
	case "seq":
		return strconv.Itoa(row.Seq)
	case "start":
		return formatTime(row.Start)
	case "end":
		return formatTime(row.End)
	case "duration_minutes":
		return strconv.FormatInt(row.DurationMinutes, 10)
	default:
		return ""
	}
}

func formatTime(t time.Time) string {
	return t.Format(timestampLayout)
}
