// Package statusapi serves a read-only JSON view of a job's checkpoint: the
// latest state of every task, one task's history, and the metrics table once
// it has been written.
package statusapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/carbocation/ensemblefit/checkpoint"
	"github.com/carbocation/ensemblefit/logging"
	"github.com/carbocation/ensemblefit/metrics"
	"github.com/gorilla/mux"
	"github.com/interpose/middleware"
	"github.com/justinas/alice"
)

// Source is satisfied by *checkpoint.Store.
type Source interface {
	Latest() ([]checkpoint.StateRecord, error)
	History(taskID string) ([]checkpoint.StateRecord, error)
}

type handler struct {
	source Source
	output string
}

// Router builds the API. output is the job's output directory; it may be
// empty, in which case /metrics is always 404.
func Router(source Source, output string) http.Handler {
	router := mux.NewRouter()
	GET := router.Methods("GET", "HEAD").Subrouter()

	h := handler{source: source, output: output}

	GET.HandleFunc("/healthz", h.Health)
	GET.HandleFunc("/tasks", h.Tasks).Name("tasks")
	GET.HandleFunc("/tasks/{task_id}", h.Task).Name("task")
	GET.HandleFunc("/metrics", h.Metrics).Name("metrics")

	standard := alice.New(
		// Log all requests to STDOUT
		middleware.GorillaLog(),
	)

	return standard.Then(router)
}

func (h handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h handler) Tasks(w http.ResponseWriter, r *http.Request) {
	records, err := h.source.Latest()
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}
	if records == nil {
		records = []checkpoint.StateRecord{}
	}

	writeJSON(w, http.StatusOK, records)
}

func (h handler) Task(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["task_id"]

	records, err := h.source.History(taskID)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}
	if len(records) == 0 {
		httpError(w, http.StatusNotFound, fmt.Errorf("no task %q", taskID))
		return
	}

	writeJSON(w, http.StatusOK, records)
}

func (h handler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.output == "" {
		httpError(w, http.StatusNotFound, errors.New("no output directory configured"))
		return
	}

	path := filepath.Join(h.output, metrics.FileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		httpError(w, http.StatusNotFound, errors.New("metrics have not been written yet"))
		return
	}

	rows, err := metrics.ReadRows(path)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, rows)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		logging.New("statusapi").Warn("could not write response", "error", err)
	}
}

func httpError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		logging.New("statusapi").Error("request failed", "error", err)
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}
