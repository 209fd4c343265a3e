package api

import (
	"errors"
	"mime"
	"net/http"
	"strconv"

	"olh/internal/server/service"

	"github.com/labstack/echo/v4"
)

type reasonBody struct {
	Reason string `json:"reason"`
}

type voteBody struct {
	VoteType string `json:"voteType"`
}

// HandleUpload handles POST /api/materials/upload.
// Accepts a multipart form with a "material" file field and the metadata fields.
func (h *Handler) HandleUpload(c echo.Context) error {
	in := service.UploadInput{
		Title:          c.FormValue("title"),
		Subject:        c.FormValue("subject"),
		Description:    c.FormValue("description"),
		Source:         c.FormValue("source"),
		RegulationYear: c.FormValue("regulationYear"),
		MaterialType:   c.FormValue("materialType"),
		LinkedRequest:  c.FormValue("linkedRequest"),
	}

	fileHeader, err := c.FormFile("material")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		return badRequest(c, "invalid multipart form")
	default:
		src, err := fileHeader.Open()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"error": "failed to read uploaded file",
			})
		}
		defer src.Close()

		in.Filename = fileHeader.Filename
		in.Size = fileHeader.Size
		in.File = src
	}

	m, err := h.materials.Upload(c.Request().Context(), principal(c), in)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

// HandleListMaterials handles GET /api/materials.
// Lists approved materials; subject, regulationYear, materialType and q filter.
func (h *Handler) HandleListMaterials(c echo.Context) error {
	materials, err := h.materials.List(c.Request().Context(), service.BrowseFilter{
		Subject:        c.QueryParam("subject"),
		RegulationYear: c.QueryParam("regulationYear"),
		MaterialType:   c.QueryParam("materialType"),
		Query:          c.QueryParam("q"),
	})
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, materials)
}

// HandleGetMaterial handles GET /api/materials/:id.
func (h *Handler) HandleGetMaterial(c echo.Context) error {
	m, err := h.materials.Get(c.Request().Context(), principal(c), c.Param("id"))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// HandleDownload handles GET /api/materials/:id/download.
// Streams the stored file as an attachment.
func (h *Handler) HandleDownload(c echo.Context) error {
	dl, err := h.materials.Download(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapServiceError(c, err)
	}
	defer dl.Content.Close()

	res := c.Response()
	res.Header().Set(echo.HeaderContentDisposition,
		mime.FormatMediaType("attachment", map[string]string{"filename": dl.Filename}))
	if dl.Size > 0 {
		res.Header().Set(echo.HeaderContentLength, strconv.FormatInt(dl.Size, 10))
	}
	contentType := dl.ContentType
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	return c.Stream(http.StatusOK, contentType, dl.Content)
}

// HandleView handles PATCH /api/materials/:id/view.
func (h *Handler) HandleView(c echo.Context) error {
	views, err := h.materials.RecordView(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"views": views})
}

// HandleVote handles POST /api/materials/:id/vote.
func (h *Handler) HandleVote(c echo.Context) error {
	var body voteBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	m, err := h.materials.Vote(c.Request().Context(), principal(c), c.Param("id"), body.VoteType)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// HandleToggleFavorite handles POST /api/materials/:id/favorite.
func (h *Handler) HandleToggleFavorite(c echo.Context) error {
	m, err := h.materials.ToggleFavorite(c.Request().Context(), principal(c), c.Param("id"))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// HandleFavorites handles GET /api/materials/favorites/my.
func (h *Handler) HandleFavorites(c echo.Context) error {
	materials, err := h.materials.Favorites(c.Request().Context(), principal(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, materials)
}

// HandleReport handles POST /api/materials/:id/report.
func (h *Handler) HandleReport(c echo.Context) error {
	var body reasonBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := h.materials.Report(c.Request().Context(), principal(c), c.Param("id"), body.Reason); err != nil {
		return mapServiceError(c, err)
	}
	return message(c, "report submitted successfully")
}

// HandleDeleteMaterial handles DELETE /api/materials/:id.
func (h *Handler) HandleDeleteMaterial(c echo.Context) error {
	if err := h.materials.Delete(c.Request().Context(), principal(c), c.Param("id")); err != nil {
		return mapServiceError(c, err)
	}
	return message(c, "material deleted successfully")
}

// --- Moderation ---

// HandlePending handles GET /api/materials/pending/all.
func (h *Handler) HandlePending(c echo.Context) error {
	materials, err := h.moderation.Pending(c.Request().Context(), principal(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, materials)
}

// HandleReported handles GET /api/materials/reports/all.
func (h *Handler) HandleReported(c echo.Context) error {
	materials, err := h.moderation.Reported(c.Request().Context(), principal(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, materials)
}

// HandleApprove handles PATCH /api/materials/:id/approve.
func (h *Handler) HandleApprove(c echo.Context) error {
	m, err := h.moderation.Approve(c.Request().Context(), principal(c), c.Param("id"))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// HandleReject handles PATCH /api/materials/:id/reject.
// The material and its file are deleted after the uploader is notified.
func (h *Handler) HandleReject(c echo.Context) error {
	var body reasonBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := h.moderation.Reject(c.Request().Context(), principal(c), c.Param("id"), body.Reason); err != nil {
		return mapServiceError(c, err)
	}
	return message(c, "material rejected and deleted")
}

// HandleIgnoreReports handles PATCH /api/materials/:id/ignore-reports.
func (h *Handler) HandleIgnoreReports(c echo.Context) error {
	m, err := h.moderation.IgnoreReports(c.Request().Context(), principal(c), c.Param("id"))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}
