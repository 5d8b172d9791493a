package service

import "context"

// ProgressStage - этап выполнения батча.
type ProgressStage string

const (
	ProgressStarted   ProgressStage = "started"
	ProgressItem      ProgressStage = "item"
	ProgressCompleted ProgressStage = "completed"
)

// ProgressEvent описывает ход батча для подписчиков.
type ProgressEvent struct {
	Stage      ProgressStage `json:"stage"`
	BatchID    string        `json:"batchId"`
	Operation  string        `json:"operation"`
	Index      int           `json:"index,omitempty"`
	Total      int           `json:"total"`
	Success    *bool         `json:"success,omitempty"`
	ErrorKind  string        `json:"errorKind,omitempty"`
	Successful int           `json:"successful"`
	Failed     int           `json:"failed"`
}

// ProgressReporter получает события батча. Вызывается синхронно из цикла батча,
// поэтому реализация не должна блокироваться.
type ProgressReporter interface {
	ReportProgress(ctx context.Context, event ProgressEvent)
}

type nopProgressReporter struct{}

func (nopProgressReporter) ReportProgress(context.Context, ProgressEvent) {}
