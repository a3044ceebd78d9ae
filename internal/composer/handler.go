package composer

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/campusboard/bulletin/internal/apperr"
	"github.com/campusboard/bulletin/internal/httpx"
	"github.com/campusboard/bulletin/internal/model"
	"github.com/campusboard/bulletin/internal/repository"
	"github.com/campusboard/bulletin/internal/sse"
	"github.com/campusboard/bulletin/internal/upload"
)

// maxUploadBytes bounds a single draft media upload.
const maxUploadBytes = 32 << 20

// Handler exposes the draft editing API. Drafts live server-side; submit
// runs the draft through the upload pipeline and into the announcement
// store in one step.
type Handler struct {
	repo     Repository
	pipeline *upload.Pipeline
	store    repository.AnnouncementRepository
	clients  *sse.Clients
}

func NewHandler(repo Repository, pipeline *upload.Pipeline, store repository.AnnouncementRepository, clients *sse.Clients) *Handler {
	return &Handler{
		repo:     repo,
		pipeline: pipeline,
		store:    store,
		clients:  clients,
	}
}

// RegisterRoutes mounts the draft API. The gate middleware wraps every
// mutation route; drafts are composition state, so reading one requires the
// same rights as writing it.
func (h *Handler) RegisterRoutes(mux *http.ServeMux, requireMutate func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("POST /api/drafts", requireMutate(h.handleCreateDraft))
	mux.HandleFunc("GET /api/drafts/{id}", requireMutate(h.handleGetDraft))
	mux.HandleFunc("DELETE /api/drafts/{id}", requireMutate(h.handleDeleteDraft))
	mux.HandleFunc("POST /api/drafts/{id}/text", requireMutate(h.handleText))
	mux.HandleFunc("POST /api/drafts/{id}/link", requireMutate(h.handleLink))
	mux.HandleFunc("POST /api/drafts/{id}/media", requireMutate(h.handleMedia))
	mux.HandleFunc("DELETE /api/drafts/{id}/blocks/{index}", requireMutate(h.handleRemoveBlock))
	mux.HandleFunc("POST /api/drafts/{id}/submit", requireMutate(h.handleSubmit))
}

func (h *Handler) draftFromRequest(w http.ResponseWriter, r *http.Request) (*Draft, bool) {
	draft, err := h.repo.GetDraft(DraftID(r.PathValue("id")))
	if err != nil {
		httpx.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "draft not found"})
		return nil, false
	}
	return draft, true
}

func (h *Handler) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	draft, err := h.repo.CreateDraft()
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]string{"id": string(draft.ID)})
}

func (h *Handler) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	draft, ok := h.draftFromRequest(w, r)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"id":            draft.ID,
		"contentBlocks": draft.Blocks(),
	})
}

func (h *Handler) handleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.DeleteDraft(DraftID(r.PathValue("id"))); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleText(w http.ResponseWriter, r *http.Request) {
	draft, ok := h.draftFromRequest(w, r)
	if !ok {
		return
	}

	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.WriteError(w, r, apperr.Validation("invalid request body"))
		return
	}

	draft.AppendText(body.Content)
	if err := h.repo.SaveDraft(draft); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLink(w http.ResponseWriter, r *http.Request) {
	draft, ok := h.draftFromRequest(w, r)
	if !ok {
		return
	}

	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.WriteError(w, r, apperr.Validation("invalid request body"))
		return
	}

	if err := draft.InsertLink(body.URL); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.repo.SaveDraft(draft); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMedia(w http.ResponseWriter, r *http.Request) {
	draft, ok := h.draftFromRequest(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpx.WriteError(w, r, apperr.Validation("invalid multipart form"))
		return
	}

	kind := model.BlockKind(r.FormValue("kind"))

	var files []model.LocalBinary
	for _, header := range r.MultipartForm.File["files"] {
		f, err := header.Open()
		if err != nil {
			httpx.WriteError(w, r, apperr.Validation("unreadable file part %q", header.Filename))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			httpx.WriteError(w, r, apperr.Validation("unreadable file part %q", header.Filename))
			return
		}
		files = append(files, model.LocalBinary{
			Filename: header.Filename,
			MimeType: header.Header.Get("Content-Type"),
			Data:     data,
		})
	}

	rejected, err := draft.InsertMedia(files, kind)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.repo.SaveDraft(draft); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	// Partial success: rejected files are reported, not fatal.
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"accepted": len(files) - len(rejected),
		"rejected": rejected,
	})
}

func (h *Handler) handleRemoveBlock(w http.ResponseWriter, r *http.Request) {
	draft, ok := h.draftFromRequest(w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		httpx.WriteError(w, r, apperr.Validation("invalid block index %q", r.PathValue("index")))
		return
	}

	if err := draft.RemoveAt(index); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.repo.SaveDraft(draft); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	draft, ok := h.draftFromRequest(w, r)
	if !ok {
		return
	}

	blocks, parts, err := draft.ToSubmission()
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	resolved, err := h.pipeline.Resolve(r.Context(), blocks, parts)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	id, err := h.store.Create(resolved)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	if err := h.repo.DeleteDraft(draft.ID); err != nil {
		composerLogger.Warn().Err(err).Str("draft_id", string(draft.ID)).Msg("Failed to drop submitted draft")
	}

	h.clients.Broadcast("created")

	composerLogger.Info().
		Str("draft_id", string(draft.ID)).
		Str("announcement_id", string(id)).
		Msg("Draft submitted")

	httpx.WriteJSON(w, http.StatusCreated, map[string]string{"id": string(id)})
}
