package model

// CommitOutcome 单行提交结果，逐行记录，绝不静默丢弃
type CommitOutcome struct {
	RowNumber   int    `json:"rowNumber"`
	AdmissionNo string `json:"admissionNo"`
	Success     bool   `json:"success"`
	CreatedID   string `json:"createdId,omitempty"`
	Error       string `json:"error,omitempty"`
	Retryable   bool   `json:"retryable,omitempty"` // 超时等瞬时失败，可单行重试
}

// CommitSummary 批次提交汇总
type CommitSummary struct {
	Total     int             `json:"total"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Outcomes  []CommitOutcome `json:"outcomes"`
}
