package job

import "time"

// State is the lifecycle position of a single job.
type State string

const (
	StateQueued      State = "queued"
	StateDownloading State = "downloading"
	StateFinished    State = "finished"
	StateError       State = "error"
	// StateUnknown is what readers see for an id the store does not hold.
	StateUnknown State = "unknown"
)

// Terminal reports whether no further transitions can follow.
func (s State) Terminal() bool { return s == StateFinished || s == StateError }

// Progress is a snapshot reported while a job is downloading.
type Progress struct {
	Percent    float64 `json:"percent"`
	Speed      string  `json:"speed"`
	BytesTotal int64   `json:"bytes_total"`
	BytesDone  int64   `json:"bytes_done"`
}

// Status is the record kept for every submitted job, single or batch item.
type Status struct {
	ID          string    `json:"id"`
	State       State     `json:"state"`
	Progress    *Progress `json:"progress,omitempty"`
	ResultPath  string    `json:"result_path,omitempty"`
	ErrorDetail string    `json:"error_detail,omitempty"`

	Title      string     `json:"title,omitempty"`
	FormatID   string     `json:"format_id,omitempty"`
	BatchID    string     `json:"batch_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Meta is the submission-time information stored with a new job.
type Meta struct {
	Title    string
	FormatID string
	BatchID  string
}

// Patch is a partial status update. Zero fields are left untouched.
type Patch struct {
	State       State
	Progress    *Progress
	ResultPath  string
	ErrorDetail string
}

// Downloading builds a progress patch.
func Downloading(p Progress) Patch { return Patch{State: StateDownloading, Progress: &p} }

// Finished builds the success patch.
func Finished(path string) Patch { return Patch{State: StateFinished, ResultPath: path} }

// Failed builds the failure patch.
func Failed(err error) Patch {
	detail := "unknown error"
	if err != nil {
		detail = err.Error()
	}
	return Patch{State: StateError, ErrorDetail: detail}
}

// BatchState is the aggregate state of a batch.
type BatchState string

const (
	BatchProcessing BatchState = "processing"
	BatchFinished   BatchState = "finished"
	BatchUnknown    BatchState = "unknown"
)

// Outcome is the terminal result of one batch item.
type Outcome struct {
	State       State  `json:"state"`
	ResultPath  string `json:"result_path,omitempty"`
	ErrorDetail string `json:"error_detail,omitempty"`
}

// BatchStatus aggregates the outcomes of every item in a batch.
type BatchStatus struct {
	ID         string             `json:"id"`
	Total      int                `json:"total"`
	Completed  int                `json:"completed"`
	State      BatchState         `json:"state"`
	Items      map[string]Outcome `json:"items"`
	FormatID   string             `json:"format_id,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	FinishedAt *time.Time         `json:"finished_at,omitempty"`
}

func unknownStatus(id string) Status { return Status{ID: id, State: StateUnknown} }

func unknownBatch(id string) BatchStatus {
	return BatchStatus{ID: id, State: BatchUnknown, Items: map[string]Outcome{}}
}
