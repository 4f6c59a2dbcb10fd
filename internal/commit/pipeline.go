package commit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"admitflow/internal/document"
	"admitflow/internal/model"
	"admitflow/internal/schema"
)

// StudentRecord 提交给学籍创建方的单行数据
type StudentRecord struct {
	AdmissionNo string                   `json:"admissionNo"`
	Fields      map[string]string        `json:"fields"`
	Documents   map[string]model.FileRef `json:"documents"` // 栏位ID -> 文件引用
}

// StudentCreator 学籍创建协作方
//
// 返回新建记录标识；失败必须是结构化错误（重复报名号 / 校验拒绝 / 瞬时故障）。
type StudentCreator interface {
	Create(ctx context.Context, rec *StudentRecord) (string, error)
}

// DuplicateError 报名号已存在
type DuplicateError struct {
	AdmissionNo string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("报名号已存在: %s", e.AdmissionNo)
}

// TransportError 网络/超时等瞬时故障，单行可重试
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("提交学籍时发生瞬时故障: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// CommitItem 一个待提交行：行数据加上已解析的材料引用
type CommitItem struct {
	Row       *model.ParsedRow
	Documents map[string]model.FileRef
}

// 不可提交原因文案
const (
	reasonInvalid      = "存在校验错误"
	reasonMissingSlots = "必交材料未齐"
)

// Eligible 计算可提交集合
//
// 规则：invalid 行排除；必交栏位未分配的行无论校验状态如何一律排除
// （含转学情形下的转学证明）。排除原因逐行回报。
func Eligible(
	rows []*model.ParsedRow,
	assignments map[int]map[string]model.DocumentAssignment,
) (items []CommitItem, excluded map[int]string) {
	excluded = make(map[int]string)

	for _, row := range rows {
		if row.Status == model.RowInvalid {
			excluded[row.RowNumber] = reasonInvalid
			continue
		}

		slots := document.ResolveSlots(row.Data)
		bySlot := assignments[row.RowNumber]
		asg := make(map[string]model.DocumentAssignment, len(bySlot))
		for k, v := range bySlot {
			asg[k] = v
		}
		if missing := document.MissingRequired(slots, asg); len(missing) > 0 {
			excluded[row.RowNumber] = reasonMissingSlots
			continue
		}

		docs := make(map[string]model.FileRef, len(asg))
		for slotID, a := range asg {
			docs[slotID] = a.Ref
		}
		items = append(items, CommitItem{Row: row, Documents: docs})
	}
	return items, excluded
}

// ProgressEvent 提交进度事件
type ProgressEvent struct {
	Type      string      `json:"type"` // start/row_done/done
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Pipeline 提交流水线
//
// 逐行独立提交：单行失败（含协作方超时）只记入该行结果，既不中止批次，
// 也不影响其他行在途的提交。有限并发由 workers 控制。
type Pipeline struct {
	creator StudentCreator
	workers int
	timeout time.Duration
}

// NewPipeline 创建流水线
func NewPipeline(creator StudentCreator, workers int, timeout time.Duration) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Pipeline{creator: creator, workers: workers, timeout: timeout}
}

// Run 执行批次提交，返回进度通道；汇总随 done 事件给出
func (p *Pipeline) Run(ctx context.Context, items []CommitItem) <-chan ProgressEvent {
	events := make(chan ProgressEvent, len(items)+2)

	go func() {
		defer close(events)
		summary := p.run(ctx, items, events)
		events <- ProgressEvent{
			Type:      "done",
			Message:   fmt.Sprintf("提交完成: 成功 %d 行, 失败 %d 行", summary.Succeeded, summary.Failed),
			Data:      summary,
			Timestamp: time.Now(),
		}
	}()

	return events
}

// RunAndCollect 同步执行并返回汇总
func (p *Pipeline) RunAndCollect(ctx context.Context, items []CommitItem) *model.CommitSummary {
	var summary *model.CommitSummary
	for event := range p.Run(ctx, items) {
		if event.Type == "done" {
			summary = event.Data.(*model.CommitSummary)
		}
	}
	return summary
}

func (p *Pipeline) run(ctx context.Context, items []CommitItem, events chan<- ProgressEvent) *model.CommitSummary {
	events <- ProgressEvent{
		Type:      "start",
		Message:   fmt.Sprintf("开始提交 %d 行", len(items)),
		Timestamp: time.Now(),
	}

	var (
		mu       sync.Mutex
		outcomes = make([]model.CommitOutcome, 0, len(items))
		wg       sync.WaitGroup
		sem      = make(chan struct{}, p.workers)
	)

	for _, item := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(item CommitItem) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome := p.submitOne(ctx, item)

			mu.Lock()
			outcomes = append(outcomes, outcome)
			mu.Unlock()

			events <- ProgressEvent{
				Type:      "row_done",
				Message:   fmt.Sprintf("第 %d 行提交%s", outcome.RowNumber, resultWord(outcome.Success)),
				Data:      outcome,
				Timestamp: time.Now(),
			}
		}(item)
	}
	wg.Wait()

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].RowNumber < outcomes[j].RowNumber })

	summary := &model.CommitSummary{
		Total:    len(outcomes),
		Outcomes: outcomes,
	}
	for _, o := range outcomes {
		if o.Success {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	return summary
}

// submitOne 提交单行，失败转结构化结果
func (p *Pipeline) submitOne(ctx context.Context, item CommitItem) model.CommitOutcome {
	admissionNo := item.Row.Data[schema.KeyAdmissionNo]
	outcome := model.CommitOutcome{
		RowNumber:   item.Row.RowNumber,
		AdmissionNo: admissionNo,
	}

	rowCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	rec := &StudentRecord{
		AdmissionNo: admissionNo,
		Fields:      item.Row.Data,
		Documents:   item.Documents,
	}

	createdID, err := p.creator.Create(rowCtx, rec)
	if err != nil {
		outcome.Error = err.Error()
		outcome.Retryable = isRetryable(err)
		return outcome
	}

	outcome.Success = true
	outcome.CreatedID = createdID
	return outcome
}

// isRetryable 超时与瞬时故障可按行重试
func isRetryable(err error) bool {
	var transport *TransportError
	if errors.As(err, &transport) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func resultWord(success bool) string {
	if success {
		return "成功"
	}
	return "失败"
}
