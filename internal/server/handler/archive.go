package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alanyoungcy/sorbot/internal/domain"
)

// archivePrefix is the only key space the API exposes; the bucket may hold
// other tenants' objects. Client-supplied keys are relative to it.
const archivePrefix = "archive/"

// ArchiveHandler serves the cold-storage browsing endpoints over the
// objects the archiver wrote.
type ArchiveHandler struct {
	reader domain.BlobReader
	logger *slog.Logger
}

// NewArchiveHandler creates an ArchiveHandler.
func NewArchiveHandler(reader domain.BlobReader, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{reader: reader, logger: logHandler(logger, "archive")}
}

// ListObjects responds with the archived objects under a prefix relative to
// the archive root, e.g. "executions/2025-01-02/".
// GET /api/archive?prefix=
func (h *ArchiveHandler) ListObjects(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	if strings.Contains(prefix, "..") {
		writeError(w, http.StatusBadRequest, "invalid prefix")
		return
	}

	infos, err := h.reader.List(r.Context(), archivePrefix+prefix)
	if err != nil {
		h.logger.Error("archive listing failed", slog.String("prefix", prefix), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "archive listing failed")
		return
	}
	if infos == nil {
		infos = []domain.BlobInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"prefix":  archivePrefix + prefix,
		"objects": infos,
	})
}

// GetObject streams one archived JSONL object. The key is relative to the
// archive root, e.g. "executions/2025-01-02/1735787045000000006.jsonl".
// GET /api/archive/{key...}
func (h *ArchiveHandler) GetObject(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" || strings.Contains(key, "..") {
		writeError(w, http.StatusBadRequest, "invalid archive key")
		return
	}

	body, err := h.reader.Get(r.Context(), archivePrefix+key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "archive object not found")
			return
		}
		h.logger.Error("archive fetch failed", slog.String("key", key), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "archive fetch failed")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/x-ndjson")
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("archive stream interrupted", slog.String("key", key), slog.String("error", err.Error()))
	}
}
