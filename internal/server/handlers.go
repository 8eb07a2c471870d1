package server

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/swing-coach/internal/analyzer"
	"github.com/sells-group/swing-coach/internal/imaging"
	"github.com/sells-group/swing-coach/internal/model"
	"github.com/sells-group/swing-coach/internal/store"
)

const maxFormValueBytes = 64 << 10

type analyzeResponse struct {
	ID        string    `json:"id"`
	Analysis  string    `json:"analysis"`
	Rating    *int      `json:"rating,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Message   string    `json:"message"`
}

type historyItem struct {
	ID          string           `json:"id"`
	CreatedAt   time.Time        `json:"created_at"`
	Summary     string           `json:"summary,omitempty"`
	Rating      *int             `json:"rating,omitempty"`
	Positions   []model.Position `json:"positions"`
	Thumbnail   string           `json:"thumbnail,omitempty"`
	Club        string           `json:"club,omitempty"`
	ShotOutcome string           `json:"shot_outcome,omitempty"`
}

type historyResponse struct {
	Total  int           `json:"total"`
	Swings []historyItem `json:"swings"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) error {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "swing-coach",
	})
	return nil
}

func (s *Server) handleInferenceHealth(w http.ResponseWriter, r *http.Request) error {
	probe := s.client.TestConnection(r.Context(), s.cfg.Anthropic.Model, s.cfg.Anthropic.ProbeMaxTokens)
	if !probe.Success {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":  "inference self-test failed",
			"detail": probe.ErrorMessage,
		})
		return nil
	}
	writeJSON(w, http.StatusOK, probe)
	return nil
}

// handleAnalyze accepts a multipart form with up to four image parts named
// after swing positions plus optional annotation fields, and runs the full
// analysis pipeline. Part order on the wire becomes upload order.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) error {
	mr, err := r.MultipartReader()
	if err != nil {
		return eris.Wrap(errBadRequest, "multipart form data is required")
	}

	maxImageBytes := int64(s.cfg.Image.MaxSizeMB) << 20
	var uploads []analyzer.Upload
	var ann model.Annotation

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return eris.Wrap(errBadRequest, "malformed multipart form")
		}

		name := part.FormName()
		if pos, ok := model.ParsePosition(name); ok && part.FileName() != "" {
			// One extra byte so the validator can tell an at-limit
			// image from an oversized one.
			data, err := io.ReadAll(io.LimitReader(part, maxImageBytes+1))
			part.Close()
			if err != nil {
				return eris.Wrapf(errBadRequest, "read %s image", name)
			}
			uploads = append(uploads, analyzer.Upload{
				Position:    pos,
				ContentType: part.Header.Get("Content-Type"),
				Data:        data,
			})
			continue
		}

		value, err := io.ReadAll(io.LimitReader(part, maxFormValueBytes))
		part.Close()
		if err != nil {
			return eris.Wrapf(errBadRequest, "read %s field", name)
		}
		switch name {
		case "club":
			ann.Club = strings.TrimSpace(string(value))
		case "shot_outcome":
			ann.ShotOutcome = strings.TrimSpace(string(value))
		case "focus_area":
			ann.FocusArea = strings.TrimSpace(string(value))
		case "notes":
			ann.Notes = strings.TrimSpace(string(value))
		}
	}

	if len(uploads) == 0 {
		return eris.Wrap(errBadRequest, "at least one image is required for analysis")
	}

	res, err := s.analyzer.Analyze(r.Context(), analyzer.Request{
		Uploads:    uploads,
		Annotation: ann,
		RequestID:  r.Header.Get("X-Request-ID"),
	})
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, analyzeResponse{
		ID:        res.ID,
		Analysis:  res.Analysis,
		Rating:    res.Rating,
		Summary:   res.Summary,
		CreatedAt: res.CreatedAt,
		Message:   "Swing analyzed successfully",
	})
	return nil
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) error {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	records, err := s.store.List(r.Context(), limit, offset)
	if err != nil {
		return err
	}
	total, err := s.store.Count(r.Context())
	if err != nil {
		return err
	}

	items := make([]historyItem, 0, len(records))
	for _, rec := range records {
		items = append(items, historyItem{
			ID:          rec.ID,
			CreatedAt:   rec.CreatedAt,
			Summary:     rec.Summary,
			Rating:      rec.Rating,
			Positions:   rec.Positions,
			Thumbnail:   s.thumbnail(rec),
			Club:        rec.Club,
			ShotOutcome: rec.ShotOutcome,
		})
	}

	writeJSON(w, http.StatusOK, historyResponse{Total: total, Swings: items})
	return nil
}

// thumbnail downscales the first analyzed image. Soft-fails to the original
// payload, or to empty when the record has no images.
func (s *Server) thumbnail(rec model.AnalysisRecord) string {
	for _, pos := range rec.Positions {
		if img, ok := rec.Images[pos]; ok {
			edge := s.cfg.Image.ThumbnailMax
			return imaging.Thumbnail(img, edge, edge).Data
		}
	}
	return ""
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "id")
	rec, err := s.store.Get(r.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, rec)
	return nil
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "id")
	deleted, err := s.store.Delete(r.Context(), id)
	if err != nil {
		return err
	}
	if !deleted {
		return eris.Wrapf(store.ErrNotFound, "swing %s", id)
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Swing deleted successfully",
		"id":      id,
	})
	return nil
}

func (s *Server) handleDebugSessions(w http.ResponseWriter, r *http.Request) error {
	limit := queryInt(r, "limit", 10)
	if limit > 50 {
		limit = 50
	}
	sessions := s.recorder.Recent(limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(sessions),
		"sessions": sessions,
	})
	return nil
}

func (s *Server) handleDebugSession(w http.ResponseWriter, r *http.Request) error {
	requestID := chi.URLParam(r, "requestID")
	sess, ok := s.recorder.Get(requestID)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{
			"found":   false,
			"message": "no session found with request_id: " + requestID,
		})
		return nil
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"found":   true,
		"session": sess,
	})
	return nil
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
