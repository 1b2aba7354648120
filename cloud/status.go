package cloud

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/carbocation/ensemblefit/logging"
	"github.com/carbocation/pfx"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// JobStatus is the state written to the status table.
type JobStatus string

const (
	Running   JobStatus = "RUNNING"
	Completed JobStatus = "COMPLETED"
	Failed    JobStatus = "FAILED"
)

// Workflow names the kind of run a status record belongs to.
const (
	WorkflowAssignment = "ensemblefit"
	WorkflowMatrix     = "matrixgen"
)

// StatusRecord is one row of the status table. Every record gets its own
// JobID, suffixed with a random UUID, so a job's history is append-only.
type StatusRecord struct {
	UserID       string `bigquery:"user_id"`
	JobID        string `bigquery:"job_id"`
	MessageID    string `bigquery:"message_id"`
	Timestamp    int64  `bigquery:"timestamp"`
	TimestampISO string `bigquery:"timestamp_iso"`
	JobStatus    string `bigquery:"job_status"`
	Workflow     string `bigquery:"workflow"`
	Message      string `bigquery:"message"`
}

// NewStatusRecord builds a record stamped at now. Timestamp is in
// milliseconds since the epoch.
func NewStatusRecord(userID, jobID, messageID string, status JobStatus, workflow, message string, now time.Time) StatusRecord {
	return StatusRecord{
		UserID:       userID,
		JobID:        fmt.Sprintf("%s_%s", jobID, uuid.NewString()),
		MessageID:    messageID,
		Timestamp:    now.UnixMilli(),
		TimestampISO: now.Format(time.RFC3339Nano),
		JobStatus:    string(status),
		Workflow:     workflow,
		Message:      message,
	}
}

// RowPutter is satisfied by *bigquery.Inserter.
type RowPutter interface {
	Put(ctx context.Context, src interface{}) error
}

// StatusTable appends status records for one job.
type StatusTable struct {
	Rows      RowPutter
	UserID    string
	JobID     string
	MessageID string
	Workflow  string

	now   func() time.Time
	close func() error
}

// NewStatusTable connects to project.dataset.table.
func NewStatusTable(ctx context.Context, project, dataset, table string, opts ...option.ClientOption) (*StatusTable, error) {
	client, err := bigquery.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, pfx.Err(err)
	}

	return &StatusTable{
		Rows:     client.Dataset(dataset).Table(table).Inserter(),
		Workflow: WorkflowAssignment,
		close:    client.Close,
	}, nil
}

func (t *StatusTable) Close() error {
	if t == nil || t.close == nil {
		return nil
	}

	return t.close()
}

// Record appends a status record. A nil *StatusTable records nothing.
func (t *StatusTable) Record(ctx context.Context, status JobStatus, message string) error {
	if t == nil || t.Rows == nil {
		return nil
	}

	now := time.Now
	if t.now != nil {
		now = t.now
	}

	rec := NewStatusRecord(t.UserID, t.JobID, t.MessageID, status, t.Workflow, message, now())
	logging.New("cloud").Info("recording job status", "job_id", t.JobID, "status", status, "workflow", t.Workflow)

	if err := t.Rows.Put(ctx, &rec); err != nil {
		return pfx.Err(fmt.Errorf("job %s: status %s: %w", t.JobID, status, err))
	}

	return nil
}
