package models

// ItemFailure records why one item of a batch was not processed.
type ItemFailure struct {
	Item   string `json:"item"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// BatchReport summarises a partial-failure batch: every item is attempted.
type BatchReport struct {
	Total        int           `json:"total"`
	SuccessCount int           `json:"success_count"`
	Failures     []ItemFailure `json:"failures"`
}

// Succeed records one successful item.
func (b *BatchReport) Succeed() {
	b.Total++
	b.SuccessCount++
}

// Fail records one failed item.
func (b *BatchReport) Fail(item, code, reason string) {
	b.Total++
	b.Failures = append(b.Failures, ItemFailure{Item: item, Code: code, Reason: reason})
}

// Merge folds failures gathered before the batch ran (e.g. identity failures) into the report.
func (b *BatchReport) Merge(failures []ItemFailure) {
	b.Total += len(failures)
	b.Failures = append(b.Failures, failures...)
}
