package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"feetax/internal/core"
	"feetax/internal/ingest"
	"feetax/internal/log"
	"feetax/internal/services"
	"feetax/internal/store"
)

type ingestResponse struct {
	BatchID   string                 `json:"batchId"`
	TotalRows int                    `json:"totalRows"`
	Accepted  int                    `json:"accepted"`
	Rejected  int                    `json:"rejected"`
	Errors    []core.ValidationError `json:"errors"`
	Summary   *core.Summary          `json:"summary"`
}

func newIngestResponse(res ingest.Result, st store.State) ingestResponse {
	errs := res.Errors
	if errs == nil {
		errs = []core.ValidationError{}
	}
	return ingestResponse{
		BatchID:   res.BatchID,
		TotalRows: res.TotalRows,
		Accepted:  res.Accepted(),
		Rejected:  res.Rejected(),
		Errors:    errs,
		Summary:   st.Summary,
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.maxUpload {
		s.writeError(w, r, log.OpUpload, &http.MaxBytesError{Limit: s.maxUpload})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeError(w, r, log.OpUpload, err)
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "expected multipart form with a file field"})
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "missing file field"})
		return
	}
	defer f.Close()

	res, err := s.svc.ImportFile(r.Context(), hdr.Filename, f)
	if err != nil {
		s.writeError(w, r, log.OpUpload, err)
		return
	}
	writeJSON(w, http.StatusOK, newIngestResponse(res, s.svc.Store().Snapshot()))
}

func (s *Server) handleImportSheets(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.ImportSheets(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpIngest, err)
		return
	}
	writeJSON(w, http.StatusOK, newIngestResponse(res, s.svc.Store().Snapshot()))
}

type recordsResponse struct {
	Records   []core.StudentRecord `json:"records"`
	Count     int                  `json:"count"`
	Revision  uint64               `json:"revision"`
	LastBatch *store.BatchInfo     `json:"lastBatch,omitempty"`
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	st := s.svc.Store().Snapshot()
	records := st.Records
	if records == nil {
		records = []core.StudentRecord{}
	}
	writeJSON(w, http.StatusOK, recordsResponse{
		Records:   records,
		Count:     len(records),
		Revision:  st.Revision,
		LastBatch: st.LastBatch,
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Store().Clear(r.Context()); err != nil {
		s.writeError(w, r, log.OpClear, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	sum, err := s.svc.Store().Reprocess(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpProcess, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	var b core.TimeBucketing
	if v := strings.TrimSpace(r.URL.Query().Get("bucketing")); v != "" {
		parsed, err := core.ParseTimeBucketing(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		b = parsed
	}
	sum, ok := s.svc.Summary(b)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no data loaded"})
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := services.ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if !s.svc.Store().Snapshot().HasData() {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no data loaded"})
		return
	}
	// Buffer so a failed encode can still produce an error response.
	var buf bytes.Buffer
	if _, err := s.svc.Export(r.Context(), &buf, format); err != nil {
		s.writeError(w, r, log.OpExport, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, format.FileName()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Store().Snapshot().Settings)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch core.SettingsPatch
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid settings payload: " + err.Error()})
		return
	}
	next, err := s.svc.Store().UpdateSettings(r.Context(), patch)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, next)
}

func (s *Server) handleGetUI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Store().Snapshot().UI)
}

func (s *Server) handleToggleAnalytics(w http.ResponseWriter, r *http.Request) {
	ui, err := s.svc.Store().ToggleAnalytics(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, ui)
}

func (s *Server) handleToggleSettings(w http.ResponseWriter, r *http.Request) {
	ui, err := s.svc.Store().ToggleSettings(r.Context())
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, ui)
}
