package statusapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/carbocation/ensemblefit/checkpoint"
	"github.com/carbocation/ensemblefit/metrics"
	"github.com/google/go-cmp/cmp"
)

type fakeSource struct {
	history map[string][]checkpoint.StateRecord
	err     error
}

func (f fakeSource) Latest() ([]checkpoint.StateRecord, error) {
	if f.err != nil {
		return nil, f.err
	}

	var out []checkpoint.StateRecord
	for _, id := range []string{"MutSignatures_refit", "Sigminer_refit"} {
		if h := f.history[id]; len(h) > 0 {
			out = append(out, h[len(h)-1])
		}
	}

	return out, nil
}

func (f fakeSource) History(taskID string) ([]checkpoint.StateRecord, error) {
	return f.history[taskID], f.err
}

func get(t *testing.T, h http.Handler, path string, v interface{}) int {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
	if v != nil && rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
			t.Fatalf("%s: %v\n%s", path, err, rec.Body.String())
		}
	}

	return rec.Code
}

func TestTasks(t *testing.T) {
	src := fakeSource{history: map[string][]checkpoint.StateRecord{
		"Sigminer_refit": {
			{TaskID: "Sigminer_refit", State: "running", Attempt: 1},
			{TaskID: "Sigminer_refit", State: "succeeded"},
		},
		"MutSignatures_refit": {
			{TaskID: "MutSignatures_refit", State: "failed", Attempt: 3, Message: "boom"},
		},
	}}
	h := Router(src, "")

	var latest []checkpoint.StateRecord
	if code := get(t, h, "/tasks", &latest); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	want := []checkpoint.StateRecord{
		{TaskID: "MutSignatures_refit", State: "failed", Attempt: 3, Message: "boom"},
		{TaskID: "Sigminer_refit", State: "succeeded"},
	}
	if diff := cmp.Diff(want, latest); diff != "" {
		t.Error(diff)
	}

	var history []checkpoint.StateRecord
	if code := get(t, h, "/tasks/Sigminer_refit", &history); code != http.StatusOK || len(history) != 2 {
		t.Errorf("history: status %d, %d records", code, len(history))
	}

	if code := get(t, h, "/tasks/nope", nil); code != http.StatusNotFound {
		t.Errorf("unknown task: status %d", code)
	}
	if code := get(t, h, "/metrics", nil); code != http.StatusNotFound {
		t.Errorf("metrics without output: status %d", code)
	}
	if code := get(t, h, "/healthz", nil); code != http.StatusOK {
		t.Errorf("healthz: status %d", code)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/tasks", nil))
	if rec.Code == http.StatusOK {
		t.Error("POST should not be served")
	}
}

func TestSourceErrors(t *testing.T) {
	h := Router(fakeSource{err: errors.New("database is locked")}, "")
	if code := get(t, h, "/tasks", nil); code != http.StatusInternalServerError {
		t.Errorf("status %d", code)
	}
}

func TestMetrics(t *testing.T) {
	dir := t.TempDir()
	h := Router(fakeSource{}, dir)

	if code := get(t, h, "/metrics", nil); code != http.StatusNotFound {
		t.Errorf("before write: status %d", code)
	}

	rows := []metrics.Row{{Tool: "Sigminer", Strategy: "Refit", Signatures: 4, MeanSignaturesPerSample: 2.5, MeanAssigned: metrics.Defined(0.9), MeanCosine: metrics.Defined(0.97)}}
	if err := metrics.WriteRows(filepath.Join(dir, metrics.FileName), rows); err != nil {
		t.Fatal(err)
	}

	var got []map[string]interface{}
	if code := get(t, h, "/metrics", &got); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if len(got) != 1 || got[0]["tool"] != "Sigminer" || got[0]["mean_assigned"] != 0.9 {
		t.Errorf("metrics = %v", got)
	}
}
