package cloud

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestSplitPath(t *testing.T) {
	for _, tc := range []struct {
		in             string
		bucket, object string
		wantErr        bool
	}{
		{"gs://bucket/a/b.txt", "bucket", "a/b.txt", false},
		{"gs://bucket", "bucket", "", false},
		{"gs://bucket/", "bucket", "", false},
		{"gs:///object", "", "", true},
		{"/local/path", "", "", true},
	} {
		bucket, object, err := SplitPath(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("SplitPath(%s) error = %v", tc.in, err)
			continue
		}
		if bucket != tc.bucket || object != tc.object {
			t.Errorf("SplitPath(%s) = %s, %s", tc.in, bucket, object)
		}
	}
}

func TestJoin(t *testing.T) {
	if got := Join("gs://bucket/results/", "user", "job", "x.txt"); got != "gs://bucket/results/user/job/x.txt" {
		t.Errorf("Join = %s", got)
	}
	if got := Join("gs://bucket", "x.txt"); got != "gs://bucket/x.txt" {
		t.Errorf("Join = %s", got)
	}
}

func TestLocalPathsNeedNoClient(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matrix.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	var s *Storage
	got, err := s.Fetch(context.Background(), path, t.TempDir())
	if err != nil || got != path {
		t.Fatalf("Fetch = %s, %v", got, err)
	}

	r, size, err := s.Open(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	b, _ := io.ReadAll(r)
	if size != 5 || string(b) != "hello" {
		t.Errorf("Open = %q (%d bytes)", b, size)
	}

	if _, err := s.Fetch(context.Background(), "gs://bucket/matrix.txt", t.TempDir()); err == nil {
		t.Error("expected an error without a storage client")
	}
}

type recordingPutter struct {
	rows []StatusRecord
	err  error
}

func (p *recordingPutter) Put(ctx context.Context, src interface{}) error {
	if p.err != nil {
		return p.err
	}
	p.rows = append(p.rows, *src.(*StatusRecord))
	return nil
}

func TestStatusTableRecord(t *testing.T) {
	rows := &recordingPutter{}
	stamp := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	table := &StatusTable{
		Rows:      rows,
		UserID:    "u1",
		JobID:     "job7",
		MessageID: "m1",
		Workflow:  WorkflowAssignment,
		now:       func() time.Time { return stamp },
	}

	ctx := context.Background()
	for _, s := range []JobStatus{Running, Completed} {
		if err := table.Record(ctx, s, ""); err != nil {
			t.Fatal(err)
		}
	}

	if len(rows.rows) != 2 {
		t.Fatalf("got %d rows", len(rows.rows))
	}
	first := rows.rows[0]
	if !strings.HasPrefix(first.JobID, "job7_") || first.JobID == rows.rows[1].JobID {
		t.Errorf("job ids %s, %s", first.JobID, rows.rows[1].JobID)
	}
	first.JobID = ""
	want := StatusRecord{
		UserID:       "u1",
		MessageID:    "m1",
		Timestamp:    stamp.UnixMilli(),
		TimestampISO: "2024-03-01T12:00:00Z",
		JobStatus:    "RUNNING",
		Workflow:     "ensemblefit",
	}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Error(diff)
	}

	rows.err = errors.New("quota")
	if err := table.Record(ctx, Failed, "boom"); err == nil {
		t.Error("expected the insert error")
	}

	var none *StatusTable
	if err := none.Record(ctx, Failed, "ignored"); err != nil {
		t.Errorf("nil table: %v", err)
	}
}
