package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"lotpulse/internal/dataprocessing"
	apierrors "lotpulse/internal/errors"
	lpmiddleware "lotpulse/internal/middleware"
	"lotpulse/internal/services"
)

// ReportHandler handles session, view and export requests with RFC 7807 errors
type ReportHandler struct {
	service        ReportServiceInterface
	validator      *lpmiddleware.Validator
	errorHandler   *apierrors.ErrorHandler
	logger         *slog.Logger
	maxUploadBytes int64
}

// NewReportHandler creates a new report handler. maxUploadBytes caps request
// bodies; zero leaves them unlimited.
func NewReportHandler(service ReportServiceInterface, validator *lpmiddleware.Validator, errorHandler *apierrors.ErrorHandler, maxUploadBytes int64, logger *slog.Logger) *ReportHandler {
	if validator == nil {
		validator = lpmiddleware.NewValidator()
	}
	return &ReportHandler{
		service:        service,
		validator:      validator,
		errorHandler:   errorHandler,
		logger:         logger.With(slog.String("component", "report_handler")),
		maxUploadBytes: maxUploadBytes,
	}
}

// Routes returns the report routes, to be mounted under /api
func (h *ReportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes adds the report routes to r
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.With(h.uploadLimit()...).Post("/", h.Upload)
		r.Get("/", h.List)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.Delete)
			r.With(h.uploadLimit()...).Put("/file", h.Replace)
			r.Get("/lots", h.Lots)
			r.Get("/views", h.Views)
			r.Get("/views/{view}", h.View)
			r.Get("/export", h.Export)
		})
	})

	r.With(h.uploadLimit()...).Post("/render", h.Render)
}

// uploadLimit caps request bodies on the routes that accept files
func (h *ReportHandler) uploadLimit() []func(http.Handler) http.Handler {
	if h.maxUploadBytes <= 0 {
		return nil
	}
	return []func(http.Handler) http.Handler{lpmiddleware.MaxBodySize(h.maxUploadBytes)}
}

// Upload handles POST /api/sessions
func (h *ReportHandler) Upload(w http.ResponseWriter, r *http.Request) {
	name, data, err := readUpload(r)
	if err != nil {
		h.fail(w, r, "failed to read upload", err)
		return
	}

	summary, err := h.service.Upload(r.Context(), name, data)
	if err != nil {
		h.fail(w, r, "failed to load upload", err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("%s/%s", strings.TrimSuffix(r.URL.Path, "/"), summary.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   summary,
	})
}

// List handles GET /api/sessions
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	list := h.service.List(r.Context())
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   list,
		"count":  len(list),
	})
}

// GetSession handles GET /api/sessions/{id}
func (h *ReportHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Session(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "failed to get session", err)
		return
	}
	h.success(w, r, summary)
}

// Replace handles PUT /api/sessions/{id}/file
func (h *ReportHandler) Replace(w http.ResponseWriter, r *http.Request) {
	name, data, err := readUpload(r)
	if err != nil {
		h.fail(w, r, "failed to read upload", err)
		return
	}

	summary, err := h.service.Replace(r.Context(), chi.URLParam(r, "id"), name, data)
	if err != nil {
		h.fail(w, r, "failed to replace upload", err)
		return
	}
	h.success(w, r, summary)
}

// Delete handles DELETE /api/sessions/{id}
func (h *ReportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "failed to delete session", err)
		return
	}
	render.NoContent(w, r)
}

// Lots handles GET /api/sessions/{id}/lots
func (h *ReportHandler) Lots(w http.ResponseWriter, r *http.Request) {
	lots, err := h.service.Lots(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "failed to list lots", err)
		return
	}
	h.success(w, r, lots)
}

// Views handles GET /api/sessions/{id}/views
func (h *ReportHandler) Views(w http.ResponseWriter, r *http.Request) {
	q, err := bindViewQuery(r.URL.Query())
	if err == nil {
		err = h.validator.ValidateStruct(q)
	}
	if err != nil {
		h.fail(w, r, "invalid view query", err)
		return
	}

	views, err := h.service.Views(r.Context(), chi.URLParam(r, "id"), q)
	if err != nil {
		h.fail(w, r, "failed to render views", err)
		return
	}
	h.success(w, r, views)
}

// View handles GET /api/sessions/{id}/views/{view}
func (h *ReportHandler) View(w http.ResponseWriter, r *http.Request) {
	q, err := bindViewQuery(r.URL.Query())
	if err == nil {
		err = h.validator.ValidateStruct(q)
	}
	if err != nil {
		h.fail(w, r, "invalid view query", err)
		return
	}

	rows, err := h.service.View(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "view"), q)
	if err != nil {
		h.fail(w, r, "failed to render view", err)
		return
	}
	h.success(w, r, rows)
}

// Export handles GET /api/sessions/{id}/export
func (h *ReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	q, err := bindExportQuery(r.URL.Query())
	if err == nil {
		err = h.validator.ValidateStruct(q)
	}
	if err != nil {
		h.fail(w, r, "invalid export query", err)
		return
	}

	file, err := h.service.Export(r.Context(), chi.URLParam(r, "id"), q)
	if err != nil {
		h.fail(w, r, "failed to export report", err)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Data); err != nil {
		h.logger.WarnContext(r.Context(), "failed to write export",
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	}
}

// Render handles POST /api/render
func (h *ReportHandler) Render(w http.ResponseWriter, r *http.Request) {
	q, err := bindRenderQuery(r.URL.Query())
	if err == nil {
		err = h.validator.ValidateStruct(q)
	}
	if err != nil {
		h.fail(w, r, "invalid render query", err)
		return
	}

	name, data, err := readUpload(r)
	if err != nil {
		h.fail(w, r, "failed to read upload", err)
		return
	}
	if q.FileName == "" {
		q.FileName = name
	}

	resp, err := h.service.Render(r.Context(), data, q)
	if err != nil {
		h.fail(w, r, "failed to render upload", err)
		return
	}
	h.success(w, r, resp)
}

func (h *ReportHandler) success(w http.ResponseWriter, r *http.Request, data interface{}) {
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   data,
	})
}

func (h *ReportHandler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.DebugContext(r.Context(), msg,
		slog.String("error", err.Error()),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
	h.errorHandler.HandleError(w, r, toAPIError(err))
}

// toAPIError maps service errors to API errors. Unknown errors pass through
// and become 500 problems.
func toAPIError(err error) error {
	var apiErr *apierrors.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, services.ErrSessionNotFound):
		return apierrors.ErrSessionNotFound
	case errors.Is(err, services.ErrEmptyUpload):
		return apierrors.ErrEmptyUpload
	case errors.Is(err, services.ErrUploadTooLarge):
		return apierrors.ErrUploadTooLarge
	case errors.Is(err, services.ErrSessionLimit):
		return apierrors.ErrSessionLimit
	case errors.Is(err, services.ErrUnsupportedFormat):
		return apierrors.ErrValidation("format", err.Error())
	case errors.Is(err, services.ErrInvalidQuery):
		return apierrors.InvalidRequestWithError(err)
	case errors.Is(err, dataprocessing.ErrUnreadableInput):
		return apierrors.UnreadableUploadError(err)
	}
	return err
}
