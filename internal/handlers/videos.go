package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vidtube/backend/internal/apperror"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/videos"
)

// VideoHandler provides endpoints for publishing and browsing videos.
type VideoHandler struct {
	Videos  VideoService
	Uploads UploadLimits
}

type updateVideoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// List handles GET /api/v1/videos.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	page, err := intParam(query.Get("page"), "page")
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	limit, err := intParam(query.Get("limit"), "limit")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	result, err := h.Videos.List(ctx, videos.ListQuery{
		Page:     page,
		Limit:    limit,
		Query:    query.Get("query"),
		SortBy:   query.Get("sortBy"),
		SortType: query.Get("sortType"),
		UserID:   query.Get("userId"),
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondData(ctx, w, http.StatusOK, result, "videos fetched successfully")
}

// Publish handles POST /api/v1/videos.
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	form, err := readMultipart(w, r, h.Uploads.Dir, map[string]int64{
		"videoFile": h.Uploads.MaxVideoBytes,
		"thumbnail": h.Uploads.MaxImageBytes,
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	var duration float64
	if raw := strings.TrimSpace(form.value("duration")); raw != "" {
		duration, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			form.discard()
			respondError(ctx, w, apperror.BadRequest("duration must be a number"))
			return
		}
	}

	video, err := h.Videos.Publish(ctx, videos.PublishInput{
		OwnerID:     auth.UserIDFromContext(ctx),
		Title:       form.value("title"),
		Description: form.value("description"),
		Duration:    duration,
		VideoFile:   form.file("videoFile"),
		Thumbnail:   form.file("thumbnail"),
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondData(ctx, w, http.StatusCreated, video, "video published successfully")
}

// Get handles GET /api/v1/videos/{videoId}.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	details, err := h.Videos.Get(ctx, chi.URLParam(r, "videoId"), auth.UserIDFromContext(ctx))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondData(ctx, w, http.StatusOK, details, "video fetched successfully")
}

// Update handles PATCH /api/v1/videos/{videoId}. It accepts multipart with an
// optional thumbnail, or plain JSON.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	in := videos.UpdateInput{
		VideoID: chi.URLParam(r, "videoId"),
		ActorID: auth.UserIDFromContext(ctx),
	}

	if isMultipart(r) {
		form, err := readMultipart(w, r, h.Uploads.Dir, map[string]int64{"thumbnail": h.Uploads.MaxImageBytes})
		if err != nil {
			respondError(ctx, w, err)
			return
		}
		in.Title = form.value("title")
		in.Description = form.value("description")
		in.Thumbnail = form.file("thumbnail")
	} else {
		var req updateVideoRequest
		if err := decodeJSON(w, r, &req); err != nil {
			respondError(ctx, w, err)
			return
		}
		in.Title = req.Title
		in.Description = req.Description
	}

	video, err := h.Videos.Update(ctx, in)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondData(ctx, w, http.StatusOK, video, "video updated successfully")
}

// Delete handles DELETE /api/v1/videos/{videoId}.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.Videos.Delete(ctx, chi.URLParam(r, "videoId"), auth.UserIDFromContext(ctx)); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondData(ctx, w, http.StatusOK, nil, "video deleted successfully")
}

// TogglePublish handles PATCH /api/v1/videos/toggle/publish/{videoId}.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	video, err := h.Videos.TogglePublish(ctx, chi.URLParam(r, "videoId"), auth.UserIDFromContext(ctx))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondData(ctx, w, http.StatusOK, video, "publish status toggled successfully")
}

// intParam parses an optional positive query value. An absent value yields 0
// so the service applies its default.
func intParam(raw, name string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.BadRequest(name + " must be an integer")
	}
	if n < 1 {
		return 0, apperror.BadRequest(name + " must be a positive number")
	}
	return n, nil
}
