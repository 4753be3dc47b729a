package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	minutesErrors "github.com/harunnryd/minutes/internal/errors"
	"github.com/harunnryd/minutes/internal/events"
	"github.com/harunnryd/minutes/internal/idempotency"
	"github.com/harunnryd/minutes/internal/logger"
	"github.com/harunnryd/minutes/internal/meeting"
	"github.com/harunnryd/minutes/internal/transcribe"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{"status": "ok"}
	if s.health != nil {
		components := s.health(r.Context())
		for _, c := range components {
			if !c.Healthy {
				resp["status"] = "degraded"
				break
			}
		}
		resp["components"] = components
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"tools": s.agent.Tools()})
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if s.transcriber == nil {
		writeDetail(w, http.StatusServiceUnavailable, "transcription is not configured")
		return
	}

	// room for the multipart envelope around the audio part
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			writeError(r.Context(), w, err)
			return
		}
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "missing form file \"file\"")
		return
	}
	defer file.Close()

	if err := transcribe.CheckContentType(header.Header.Get("Content-Type")); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	transcript, err := s.transcriber.Transcribe(r.Context(), file, header.Filename)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"transcript": transcript})
}

type analyzeRequest struct {
	Transcript string `json:"transcript"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAnalyzeBody)).Decode(&req); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			writeError(r.Context(), w, err)
			return
		}
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Transcript) == "" {
		writeDetail(w, http.StatusBadRequest, "Transcript is empty")
		return
	}

	key := strings.TrimSpace(r.Header.Get(idempotency.HeaderKey))
	if key != "" && s.idem != nil {
		claim, err := s.idem.Claim(key, idempotency.Fingerprint(req.Transcript), s.idemTTL)
		if err != nil {
			slog.Warn("Failed to persist idempotency keys", append(logger.Attrs(r.Context()), "error", err)...)
		}
		switch claim {
		case idempotency.Duplicate:
			writeError(r.Context(), w, minutesErrors.Conflict("a request with this Idempotency-Key was already accepted"))
			return
		case idempotency.Mismatch:
			writeError(r.Context(), w, minutesErrors.InvalidInput("Idempotency-Key was already used for a different transcript"))
			return
		}
	}

	// The run keeps the request's trace ID but not its cancellation.
	runCtx := context.WithoutCancel(r.Context())
	stream, err := s.agent.Analyze(runCtx, req.Transcript)
	if err != nil {
		if key != "" && s.idem != nil {
			_ = s.idem.Release(key)
		}
		writeError(r.Context(), w, err)
		return
	}

	var framer events.Writer
	if wantsSSE(r) {
		w.Header().Set("Content-Type", events.ContentTypeSSE)
		w.Header().Set("Connection", "keep-alive")
		framer = events.NewSSEWriter(w)
	} else {
		w.Header().Set("Content-Type", events.ContentTypeNDJSON)
		framer = events.NewNDJSONWriter(w)
	}
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	out := &deadlineWriter{
		next:    framer,
		rc:      http.NewResponseController(w),
		timeout: s.streamTimeout,
	}
	if err := events.Pump(r.Context(), stream, out); err != nil {
		slog.Info("Client left before the run finished", append(logger.Attrs(r.Context()), "error", err)...)
	}
}

func wantsSSE(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), events.ContentTypeSSE)
}

// deadlineWriter pushes the connection's write deadline forward before each
// event so a long run is not cut off by the server-wide WriteTimeout.
type deadlineWriter struct {
	next    events.Writer
	rc      *http.ResponseController
	timeout time.Duration
}

func (d *deadlineWriter) WriteEvent(e events.Event) error {
	if err := d.rc.SetWriteDeadline(time.Now().Add(d.timeout)); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return d.next.WriteEvent(e)
}

type listResponse struct {
	Meetings []meeting.Summary `json:"meetings"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

func (s *Server) handleListMeetings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "limit must be an integer")
		return
	}
	offset, err := intParam(q.Get("offset"))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "offset must be an integer")
		return
	}

	filter := meeting.Filter{Search: q.Get("search"), Limit: limit, Offset: offset}.Normalize()
	summaries, err := s.store.List(r.Context(), filter)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Meetings: summaries, Limit: filter.Limit, Offset: filter.Offset})
}

func (s *Server) handleGetMeeting(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteMeeting(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDownloadResult(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "result index must be an integer")
		return
	}

	rec, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	artifact, err := rec.ResultArtifact(index)
	if err != nil {
		writeError(r.Context(), w, minutesErrors.NotFound(err.Error()))
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifact.Body)
}

func intParam(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
