package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/simplereader/simplereader/internal/admin"
	"github.com/simplereader/simplereader/internal/api/models"
	"github.com/simplereader/simplereader/internal/api/response"
	"github.com/simplereader/simplereader/internal/publication"
)

// PublicationHandler handles publication management.
type PublicationHandler struct {
	admin        *admin.Service
	publications *publication.Service
	logger       zerolog.Logger
}

// NewPublicationHandler creates a new PublicationHandler.
func NewPublicationHandler(adminService *admin.Service, publications *publication.Service, logger zerolog.Logger) *PublicationHandler {
	return &PublicationHandler{
		admin:        adminService,
		publications: publications,
		logger:       logger,
	}
}

// ListPublications handles GET /v1/admin/publications.
func (h *PublicationHandler) ListPublications(w http.ResponseWriter, r *http.Request) {
	pubs, err := h.publications.List(r.Context())
	if err != nil {
		writeAdminError(w, r, h.logger, err)
		return
	}

	list := models.PublicationList{Items: make([]models.Publication, 0, len(pubs))}
	for _, p := range pubs {
		list.Items = append(list.Items, toPublicationModel(p))
	}
	response.JSON(w, r, http.StatusOK, list)
}

// GetPublication handles GET /v1/admin/publications/{publicationId}.
func (h *PublicationHandler) GetPublication(w http.ResponseWriter, r *http.Request) {
	p, err := h.publications.Get(r.Context(), chi.URLParam(r, "publicationId"))
	if err != nil {
		writeAdminError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toPublicationModel(p))
}

// CreatePublication handles POST /v1/admin/publications - publish and optionally broadcast.
func (h *PublicationHandler) CreatePublication(w http.ResponseWriter, r *http.Request) {
	var req models.PublishRequest
	if !response.Decode(w, r, &req, false) {
		return
	}

	input := publication.CreateInput{
		Title:            req.Title,
		ShortDescription: req.ShortDescription,
		Category:         req.Category,
		PreviewURL:       req.PreviewURL,
		PDFURL:           req.PDFURL,
		SizeBytes:        req.SizeBytes,
	}
	if req.ReleaseDate != nil {
		input.ReleaseDate = time.Time(*req.ReleaseDate)
	}

	out, err := h.admin.Publish(r.Context(), input, req.Notify, req.Message)
	if err != nil {
		writeAdminError(w, r, h.logger, err)
		return
	}
	response.Created(w, r, "/v1/admin/publications/"+out.Publication.ID, toActionResponse(out, false))
}

// UpdatePublication handles PUT /v1/admin/publications/{publicationId}.
func (h *PublicationHandler) UpdatePublication(w http.ResponseWriter, r *http.Request) {
	var req models.UpdatePublicationRequest
	if !response.Decode(w, r, &req, false) {
		return
	}

	input := publication.UpdateInput{
		Title:            req.Title,
		ShortDescription: req.ShortDescription,
		PreviewURL:       req.PreviewURL,
		PDFURL:           req.PDFURL,
		FileSize:         req.FileSize,
		Category:         req.Category,
	}
	if req.ReleaseDate != nil {
		releaseDate := time.Time(*req.ReleaseDate)
		input.ReleaseDate = &releaseDate
	}

	out, err := h.admin.UpdatePublication(r.Context(), chi.URLParam(r, "publicationId"), input)
	if err != nil {
		writeAdminError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toActionResponse(out, false))
}

// DeletePublication handles DELETE /v1/admin/publications/{publicationId}.
func (h *PublicationHandler) DeletePublication(w http.ResponseWriter, r *http.Request) {
	out, err := h.admin.DeletePublication(r.Context(), chi.URLParam(r, "publicationId"))
	if err != nil {
		writeAdminError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toActionResponse(out, false))
}
