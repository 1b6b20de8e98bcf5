package pipeline

// EventKind is the kind of a progress event
type EventKind string

// Stage-level events carry a Stage; artifact-level events leave it empty.
const (
	EventStarted   EventKind = "started"
	EventCompleted EventKind = "completed"
	EventFailed    EventKind = "failed"
	EventSkipped   EventKind = "skipped"
	EventWritten   EventKind = "written"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	RunID    string    `json:"run_id,omitempty"`
	Artifact string    `json:"artifact"`
	Stage    Role      `json:"stage,omitempty"`
	Model    string    `json:"model,omitempty"`
	Index    int       `json:"index"`
	Total    int       `json:"total"`
	Event    EventKind `json:"event"`
	Chars    int       `json:"chars,omitempty"`
	Message  string    `json:"message,omitempty"`
	Content  string    `json:"content,omitempty"`
}

// Observer receives progress events. Presentation is entirely its concern.
type Observer interface {
	OnProgress(event ProgressEvent)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(event ProgressEvent)

// OnProgress calls f(event)
func (f ObserverFunc) OnProgress(event ProgressEvent) {
	f(event)
}

// MultiObserver fans an event out to several observers in order
type MultiObserver []Observer

// OnProgress forwards event to every non-nil observer
func (m MultiObserver) OnProgress(event ProgressEvent) {
	for _, o := range m {
		if o != nil {
			o.OnProgress(event)
		}
	}
}

type nopObserver struct{}

func (nopObserver) OnProgress(ProgressEvent) {}
