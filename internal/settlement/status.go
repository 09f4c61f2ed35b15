package settlement

import (
	"strings"

	"settlement/internal/domain"
)

// StatusFilter decides which upstream settlement statuses are payable.
type StatusFilter struct {
	accepted map[string]struct{}
	labels   map[string]string
}

// NewStatusFilter builds a filter from the known statuses. Codes are trimmed.
func NewStatusFilter(statuses []domain.SettlementStatus) *StatusFilter {
	f := &StatusFilter{
		accepted: make(map[string]struct{}),
		labels:   make(map[string]string),
	}
	for _, s := range statuses {
		code := strings.TrimSpace(s.Code)
		if s.Label != "" {
			f.labels[code] = s.Label
		}
		if s.Payable {
			f.accepted[code] = struct{}{}
		}
	}
	return f
}

// IsPayable reports whether code is in the accepted set.
func (f *StatusFilter) IsPayable(code string) bool {
	_, ok := f.accepted[strings.TrimSpace(code)]
	return ok
}

// Label returns the display label of code, or the trimmed code itself.
func (f *StatusFilter) Label(code string) string {
	code = strings.TrimSpace(code)
	if label, ok := f.labels[code]; ok {
		return label
	}
	return code
}
