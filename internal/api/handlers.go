package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"boombot/pkg/boombot"
)

// maxBodyBytes bounds request bodies; format requests carry whole model outputs.
const maxBodyBytes = 1 << 20

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) getSectors(w http.ResponseWriter, r *http.Request) {
	vocab := h.advisor.Matcher().Vocabulary()
	writeJSON(w, http.StatusOK, sectorsResponse{
		Sectors:    vocab.SortedSectors(),
		Synonyms:   vocab.Synonyms(),
		Qualifiers: vocab.Qualifiers(),
	})
}

func (h *handler) validateSector(w http.ResponseWriter, r *http.Request) {
	var payload validateSectorPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.advisor.CheckSector(payload.Text))
}

func (h *handler) formatResponse(w http.ResponseWriter, r *http.Request) {
	var payload formatPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, boombot.ParseResponse(payload.Text))
}

func (h *handler) recommend(w http.ResponseWriter, r *http.Request) {
	var payload recommendPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	if strings.TrimSpace(payload.Sector) == "" {
		writeBadRequest(w, r, "sector is required")
		return
	}

	reply, err := h.advisor.Recommend(r.Context(), payload.Sector)
	if err != nil {
		writeErrorResponse(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, normalizeReply(reply))
}

func (h *handler) recommendStream(w http.ResponseWriter, r *http.Request) {
	var payload recommendPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	if strings.TrimSpace(payload.Sector) == "" {
		writeBadRequest(w, r, "sector is required")
		return
	}
	// Reject unknown sectors with a plain status before the stream opens.
	if check := h.advisor.Matcher().Match(payload.Sector); !check.Matched {
		writeErrorResponse(w, r, http.StatusUnprocessableEntity,
			boombot.NewError(boombot.ErrCodeInvalidSector, "unrecognized sector: "+strings.TrimSpace(payload.Sector)))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErrorResponse(w, r, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}

	initSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	requestID := middleware.GetReqID(r.Context())
	if err := writeSSEEvent(w, flusher, "progress", map[string]any{
		"stage":      "start",
		"sector":     strings.TrimSpace(payload.Sector),
		"request_id": requestID,
	}); err != nil {
		h.logger.Warn("recommendation stream write failed", "stage", "start", "err", err)
		return
	}

	reply, err := h.advisor.RecommendStream(r.Context(), payload.Sector, func(delta string) error {
		if delta == "" {
			return nil
		}
		return writeSSEEvent(w, flusher, "delta", map[string]string{"text": delta})
	})
	if err != nil {
		h.logger.Error("recommendation stream failed",
			"request_id", requestID,
			"sector", payload.Sector,
			"code", boombot.CodeOf(err),
			"err", err,
		)
		_ = writeSSEEvent(w, flusher, "error", map[string]string{
			"error":      err.Error(),
			"error_code": string(boombot.CodeOf(err)),
			"hint":       boombot.ErrorMessage(err),
		})
		_ = writeSSEEvent(w, flusher, "done", map[string]any{"ok": false})
		return
	}

	_ = writeSSEEvent(w, flusher, "result", normalizeReply(reply))
	_ = writeSSEEvent(w, flusher, "done", map[string]any{"ok": true})
}

func initSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

func writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte("event: " + event + "\n")); err != nil {
		return err
	}
	if _, err := w.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

// Helpers.

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return err
	}
	return nil
}

func normalizeReply(reply *boombot.Reply) *boombot.Reply {
	if reply.Recommendations == nil {
		reply.Recommendations = []boombot.Recommendation{}
	}
	return reply
}
