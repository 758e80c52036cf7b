// internal/server/handlers.go
package server

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/valpere/ActivityScrapexter/internal/output"
	"github.com/valpere/ActivityScrapexter/internal/record"
	"github.com/valpere/ActivityScrapexter/internal/report"
	"github.com/valpere/ActivityScrapexter/internal/scroll"
	"github.com/valpere/ActivityScrapexter/internal/session"
)

// StartRequest is the optional body of POST /api/v1/sessions.
type StartRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// StartResponse answers a start request.
type StartResponse struct {
	Started bool   `json:"started"`
	State   string `json:"state"`
	Range   string `json:"range,omitempty"`
	Message string `json:"message"`
}

// LastSummary describes the last extraction without its records.
type LastSummary struct {
	Method   string    `json:"method"`
	Scraped  int       `json:"scraped"`
	InRange  int       `json:"in_range"`
	Status   string    `json:"status"`
	Warning  string    `json:"warning,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	Range    string    `json:"range"`
	Finished time.Time `json:"finished"`
}

// StatusResponse is the body of GET /api/v1/status.
type StatusResponse struct {
	State    string       `json:"state"`
	PoolSize int          `json:"pool_size"`
	Last     *LastSummary `json:"last,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	rng := s.defaultRange()

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if len(bytes.TrimSpace(body)) > 0 {
		var req StartRequest
		if err := sonic.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		if req.Start != "" || req.End != "" {
			rng, err = record.ParseDateRange(req.Start, req.End, s.loc)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		}
	}

	results, started := s.sessions.Start(s.baseCtx, rng)
	if !started {
		state := s.sessions.State()
		msg := "a session is already running; stop requested"
		if state == scroll.StateFinishing {
			msg = "a session is finishing; its records are being extracted"
		}
		writeJSON(w, http.StatusConflict, StartResponse{
			State:   state.String(),
			Message: msg,
		})
		return
	}

	go func() {
		if res, ok := <-results; ok && res != nil {
			s.logger.WithField("records", len(res.Records)).Info(res.Status)
		}
	}()

	writeJSON(w, http.StatusAccepted, StartResponse{
		Started: true,
		State:   s.sessions.State().String(),
		Range:   rng.String(),
		Message: "session started",
	})
}

func (s *Server) stopSession(w http.ResponseWriter, r *http.Request) {
	s.sessions.Stop()
	writeJSON(w, http.StatusAccepted, map[string]string{
		"state":   s.sessions.State().String(),
		"message": "stop requested",
	})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		State:    s.sessions.State().String(),
		PoolSize: s.sessions.PoolSize(),
	}
	if last := s.sessions.LastResult(); last != nil {
		resp.Last = summarize(last)
	}
	writeJSON(w, http.StatusOK, resp)
}

func summarize(res *session.Result) *LastSummary {
	return &LastSummary{
		Method:   string(res.Method),
		Scraped:  res.Scraped,
		InRange:  len(res.Records),
		Status:   res.Status,
		Warning:  res.Warning,
		Reason:   string(res.Reason),
		Range:    res.Range,
		Finished: res.Finished,
	}
}

// lastRecords returns the last result's records, narrowed by the optional
// start/end query parameters.
func (s *Server) lastRecords(r *http.Request) ([]record.DisplayRecord, *session.Result, int, error) {
	last := s.sessions.LastResult()
	if last == nil {
		return nil, nil, http.StatusNotFound, fmt.Errorf("no extraction has completed yet")
	}

	q := r.URL.Query()
	start, end := q.Get("start"), q.Get("end")
	if start == "" && end == "" {
		return last.Records, last, http.StatusOK, nil
	}

	rng, err := record.ParseDateRange(start, end, s.loc)
	if err != nil {
		return nil, nil, http.StatusBadRequest, err
	}
	return record.Filter(last.Records, rng, s.loc), last, http.StatusOK, nil
}

func (s *Server) records(w http.ResponseWriter, r *http.Request) {
	records, _, status, err := s.lastRecords(r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := output.EncodeJSON(&buf, records); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) clearRecords(w http.ResponseWriter, r *http.Request) {
	s.sessions.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) report(w http.ResponseWriter, r *http.Request) {
	records, _, status, err := s.lastRecords(r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	stats := report.Compute(records)
	if strings.EqualFold(r.URL.Query().Get("format"), "text") {
		opts := report.DefaultRenderOptions()
		opts.Twelve = r.URL.Query().Get("clock") == "12"
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		report.Render(w, stats, records, opts)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	format, err := output.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !format.Streamable() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("format %s cannot be downloaded", format))
		return
	}

	records, last, status, err := s.lastRecords(r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := output.WriteTo(&buf, format, records); err != nil {
		s.metrics.RecordOutputError(string(format))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.metrics.RecordOutputSuccess(string(format), len(records))

	name := output.DefaultFileName(last.DateRange, format)
	w.Header().Set("Content-Type", output.GetMimeType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	_, _ = w.Write(buf.Bytes())
}
