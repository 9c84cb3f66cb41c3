package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dgallion1/docseg/internal/qagen"
	"github.com/dgallion1/docseg/internal/sink"
	"github.com/dgallion1/docseg/internal/store"
	"github.com/go-chi/chi/v5"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// handleListDocuments pages through stored documents, newest first.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := defaultListLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxListLimit)
	}
	offset := 0
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			jsonError(w, "offset must be a non-negative integer", http.StatusBadRequest)
			return
		}
		offset = n
	}

	docs, err := s.store.ListDocuments(r.Context(), limit, offset)
	if err != nil {
		jsonError(w, "failed to list documents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if docs == nil {
		docs = []store.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs, "limit": limit, "offset": offset})
}

func (s *Server) handleDocumentSegments(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	recs, err := s.store.Segments(r.Context(), docID)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to read segments: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []store.SegmentRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"doc_id": docID, "segments": recs})
}

// handleDocumentQA returns stored pairs. format=list yields the
// [{"question": "answer"}, ...] layout of generated_qa.json.
func (s *Server) handleDocumentQA(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	ctx := r.Context()
	if _, err := s.store.GetDocument(ctx, docID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "document not found", http.StatusNotFound)
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	pairs, err := s.store.QAPairs(ctx, docID)
	if err != nil {
		jsonError(w, "failed to read pairs: "+err.Error(), http.StatusInternalServerError)
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "json":
		if pairs == nil {
			pairs = []store.QAPair{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"doc_id": docID, "pairs": pairs})
	case "list":
		list := make([]qagen.Pair, len(pairs))
		for i, p := range pairs {
			list[i] = qagen.Pair{Question: p.Question, Answer: p.Answer}
		}
		data, err := qagen.EncodePairs(list)
		if err != nil {
			jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	default:
		jsonError(w, `format must be "json" or "list"`, http.StatusBadRequest)
	}
}

// handleDeleteDocument removes a document with its segments and pairs, and
// its pathstore mirror when one is configured.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	ctx := r.Context()

	if err := s.store.DeleteDocument(ctx, docID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "document not found", http.StatusNotFound)
			return
		}
		jsonError(w, "failed to delete: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := map[string]any{"doc_id": docID, "deleted": true}
	if s.pathstore != nil {
		err := s.pathstore.DeleteNode(ctx, sink.DocumentKey(docID), true)
		if err != nil {
			s.log.Warn("mirror delete failed", "doc_id", docID, "error", err)
		}
		resp["mirror_deleted"] = err == nil
	}
	writeJSON(w, http.StatusOK, resp)
}
