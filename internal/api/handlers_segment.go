package api

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/dgallion1/docseg/internal/parser"
	"github.com/dgallion1/docseg/internal/pipeline"
	"github.com/dgallion1/docseg/internal/render"
	"github.com/dgallion1/docseg/internal/segment"
	"github.com/dgallion1/docseg/internal/store"
	"github.com/google/uuid"
)

type segmentResponse struct {
	DocID        string           `json:"doc_id,omitempty"`
	Filename     string           `json:"filename"`
	Title        string           `json:"title"`
	ContentHash  string           `json:"content_hash"`
	SegmentCount int              `json:"segment_count"`
	Segments     segment.Document `json:"segments"`
	Texts        []string         `json:"texts"`
	Markdown     string           `json:"markdown,omitempty"`
}

// handleSegment parses an upload and returns its segments synchronously.
// mode=display adds a Markdown rendering; store=true persists the result.
func (s *Server) handleSegment(w http.ResponseWriter, r *http.Request) {
	style, ok := s.styleParam(w, r)
	if !ok {
		return
	}
	filename, data, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	prep, err := pipeline.Prepare(filename, data, s.parseOptions())
	if err != nil {
		s.log.Warn("segment failed", "filename", filename, "error", err)
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	resp := segmentResponse{
		Filename:     filename,
		Title:        prep.Title,
		ContentHash:  prep.ContentHash,
		SegmentCount: len(prep.Segments),
		Segments:     prep.Segments,
		Texts:        prep.Segments.Texts(),
	}
	if resp.Segments == nil {
		resp.Segments = segment.Document{}
		resp.Texts = []string{}
	}
	if style.Name == render.DisplayStyle.Name {
		resp.Markdown = render.Markdown(prep.Doc.Blocks)
	}

	if persist, _ := strconv.ParseBool(r.FormValue("store")); persist {
		docID := uuid.NewString()
		ctx := r.Context()
		err := s.store.SaveSegmented(ctx, store.Document{
			ID:          docID,
			Filename:    filename,
			Title:       prep.Title,
			ContentHash: prep.ContentHash,
		}, prep.Segments)
		if err != nil {
			s.log.Error("store segments failed", "filename", filename, "error", err)
			jsonError(w, "failed to store segments", http.StatusInternalServerError)
			return
		}
		resp.DocID = docID
		s.log.Info("stored segmented document", "doc_id", docID, "segments", len(prep.Segments))
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleRender returns the whole upload as flat text or Markdown.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	style, ok := s.styleParam(w, r)
	if !ok {
		return
	}
	filename, data, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	p, err := parser.ForFileWith(filename, s.parseOptions())
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	doc, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		s.log.Warn("render failed", "filename", filename, "error", err)
		jsonError(w, "parse: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	rd := render.New(style)
	writeJSON(w, http.StatusOK, map[string]any{
		"filename": filename,
		"title":    render.Flat.Inlines(doc.TitleInlines()),
		"mode":     style.Name,
		"text":     rd.Blocks(doc.Blocks),
	})
}

// styleParam reads the mode query or form value.
func (s *Server) styleParam(w http.ResponseWriter, r *http.Request) (render.Style, bool) {
	style, ok := render.StyleByName(r.URL.Query().Get("mode"))
	if !ok {
		jsonError(w, `mode must be "flat" or "display"`, http.StatusBadRequest)
	}
	return style, ok
}

func (s *Server) parseOptions() parser.Options {
	return parser.Options{PDFFallbackPdftotext: s.cfg.PDFFallbackPdftotext}
}
