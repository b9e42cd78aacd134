// Package web is the thin HTTP/JSON surface over the core: feed,
// watch, upload, owner mutations, and profile listings.
package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"clipstream/internal/identity"
	"clipstream/internal/upload"
	"clipstream/internal/video"
	"clipstream/internal/view"
)

const sessionCookie = "session_id"

type server struct {
	store    video.Store
	uploader *upload.Coordinator
	guard    *video.Guard
	sink     view.Sink
	sessions *view.SessionRegistry
	log      *slog.Logger

	mux *http.ServeMux
}

func NewServer(store video.Store, uploader *upload.Coordinator, guard *video.Guard, sink view.Sink, log *slog.Logger) *server {
	if log == nil {
		log = slog.Default()
	}
	return &server{
		store:    store,
		uploader: uploader,
		guard:    guard,
		sink:     sink,
		sessions: view.NewSessionRegistry(),
		log:      log,
	}
}

func (s *server) Handler() http.Handler {
	s.mux = http.NewServeMux()

	s.mux.HandleFunc("/api/videos", s.handleFeed)
	s.mux.HandleFunc("/api/videos/", s.handleVideo)
	s.mux.HandleFunc("/api/upload", s.handleUpload)
	s.mux.HandleFunc("/api/users/", s.handleUserVideos)

	return s.corsMiddleware(identity.Middleware(s.sessionMiddleware(s.mux)))
}

// API response structures
type apiVideoResponse struct {
	Id           string  `json:"id"`
	OwnerId      string  `json:"ownerId"`
	Title        string  `json:"title"`
	Description  *string `json:"description"`
	VideoUrl     string  `json:"videoUrl"`
	ThumbnailUrl *string `json:"thumbnailUrl"`
	IsPublic     bool    `json:"isPublic"`
	ViewsCount   int64   `json:"viewsCount"`
	CreatedAt    string  `json:"createdAt"`
}

type apiVideosListResponse struct {
	Data  []apiVideoResponse `json:"data"`
	Total int                `json:"total"`
}

type apiErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func toAPIVideo(v *video.Video) apiVideoResponse {
	return apiVideoResponse{
		Id:           v.ID,
		OwnerId:      v.OwnerID,
		Title:        v.Title,
		Description:  v.Description,
		VideoUrl:     v.VideoURL,
		ThumbnailUrl: v.ThumbnailURL,
		IsPublic:     v.IsPublic,
		ViewsCount:   v.ViewsCount,
		CreatedAt:    v.CreatedAt.Format(time.RFC3339),
	}
}

// handleFeed handles GET /api/videos - list public videos, newest first
func (s *server) handleFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	videos, err := s.store.ListPublic(r.Context())
	if err != nil {
		s.log.Error("failed to list videos", "error", err)
		s.sendJSONError(w, "failed to list videos", http.StatusInternalServerError)
		return
	}

	data := make([]apiVideoResponse, 0, len(videos))
	for i := range videos {
		data = append(data, toAPIVideo(&videos[i]))
	}

	s.sendJSON(w, apiVideosListResponse{Data: data, Total: len(data)}, http.StatusOK)
}

// handleVideo dispatches /api/videos/{id} and /api/videos/{id}/visibility.
func (s *server) handleVideo(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/videos/")
	parts := strings.Split(rest, "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		switch r.Method {
		case http.MethodGet:
			s.handleWatch(w, r, parts[0])
		case http.MethodDelete:
			s.handleDelete(w, r, parts[0])
		default:
			s.sendJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	case len(parts) == 2 && parts[1] == "visibility":
		if r.Method != http.MethodPost {
			s.sendJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleVisibility(w, r, parts[0])
	default:
		s.sendJSONError(w, "video ID required", http.StatusBadRequest)
	}
}

// handleWatch returns a single video after the access check, recording
// a view once per session.
func (s *server) handleWatch(w http.ResponseWriter, r *http.Request, videoID string) {
	rec, err := s.store.Get(r.Context(), videoID)
	if err != nil {
		s.log.Error("failed to read video", "video_id", videoID, "error", err)
		s.sendJSONError(w, "failed to read video", http.StatusInternalServerError)
		return
	}
	if rec == nil {
		s.sendJSONError(w, "video not found", http.StatusNotFound)
		return
	}

	viewer, _ := identity.FromContext(r.Context())
	gate := view.NewGate(s.sessions.Session(sessionID(r)), s.sink, s.log)
	if err := gate.AuthorizeAndRecord(r.Context(), rec, viewer); err != nil {
		if errors.Is(err, video.ErrPrivateVideo) {
			s.sendJSONError(w, "this video is private", http.StatusForbidden)
			return
		}
		s.log.Error("access check failed", "video_id", videoID, "error", err)
		s.sendJSONError(w, "failed to read video", http.StatusInternalServerError)
		return
	}

	s.sendJSON(w, toAPIVideo(rec), http.StatusOK)
}

// handleUpload handles POST /api/upload - multipart upload of a video
// with optional thumbnail.
func (s *server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(100 << 20); err != nil { // 100 MB limit for video uploads
		s.sendJSONError(w, "invalid form data", http.StatusBadRequest)
		return
	}

	videoAsset, err := formAsset(r, "video")
	if err != nil {
		s.sendJSONError(w, "missing video field", http.StatusBadRequest)
		return
	}

	thumbAsset, err := formAsset(r, "thumbnail")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		s.sendJSONError(w, "invalid thumbnail field", http.StatusBadRequest)
		return
	}
	if err := upload.CheckThumbnail(thumbAsset); err != nil {
		s.sendJSONError(w, "thumbnail must be an image", http.StatusBadRequest)
		return
	}

	isPublic := true
	if v := r.FormValue("is_public"); v != "" {
		isPublic = v == "true" || v == "1"
	}

	req := upload.Request{
		Video:       videoAsset,
		Thumbnail:   thumbAsset,
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		IsPublic:    isPublic,
	}

	created, err := s.uploader.Submit(r.Context(), req, func(pct int) {
		s.log.Debug("upload progress", "percent", pct)
	})
	if err != nil {
		s.sendUploadError(w, err)
		return
	}

	s.sendJSON(w, toAPIVideo(created), http.StatusCreated)
}

func (s *server) sendUploadError(w http.ResponseWriter, err error) {
	var transferErr *upload.TransferError
	switch {
	case errors.Is(err, video.ErrUnauthenticated):
		s.sendJSONError(w, "please sign in to upload videos", http.StatusUnauthorized)
	case errors.Is(err, video.ErrInvalidAsset):
		s.sendJSONError(w, "a video file is required", http.StatusBadRequest)
	case errors.Is(err, video.ErrValidation):
		s.sendJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &transferErr):
		s.sendJSONError(w, transferErr.Stage+" upload failed", http.StatusInternalServerError)
	default:
		s.sendJSONError(w, "failed to upload video", http.StatusInternalServerError)
	}
}

// handleVisibility handles POST /api/videos/{id}/visibility - owner-only
// privacy toggle.
func (s *server) handleVisibility(w http.ResponseWriter, r *http.Request, videoID string) {
	var body struct {
		IsPublic bool `json:"isPublic"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.sendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	rec, viewer, ok := s.fetchForMutation(w, r, videoID)
	if !ok {
		return
	}

	if err := s.guard.SetVisibility(r.Context(), rec, viewer, body.IsPublic); err != nil {
		if errors.Is(err, video.ErrUnauthorized) {
			s.sendJSONError(w, "only the owner can change visibility", http.StatusForbidden)
			return
		}
		s.log.Error("failed to update visibility", "video_id", videoID, "error", err)
		s.sendJSONError(w, "failed to update visibility", http.StatusInternalServerError)
		return
	}

	s.sendJSON(w, toAPIVideo(rec), http.StatusOK)
}

// handleDelete handles DELETE /api/videos/{id} - owner-only removal.
// Stored assets are not cascaded (see cmd/admin for explicit purge).
func (s *server) handleDelete(w http.ResponseWriter, r *http.Request, videoID string) {
	rec, viewer, ok := s.fetchForMutation(w, r, videoID)
	if !ok {
		return
	}

	if err := s.guard.Delete(r.Context(), rec, viewer); err != nil {
		if errors.Is(err, video.ErrUnauthorized) {
			s.sendJSONError(w, "only the owner can delete this video", http.StatusForbidden)
			return
		}
		s.log.Error("failed to delete video", "video_id", videoID, "error", err)
		s.sendJSONError(w, "failed to delete video", http.StatusInternalServerError)
		return
	}

	s.sendJSON(w, map[string]interface{}{
		"success": true,
		"id":      videoID,
	}, http.StatusOK)
}

// handleUserVideos handles GET /api/users/{id}/videos - a user's
// videos, private ones included only for the owner themselves.
func (s *server) handleUserVideos(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/users/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "videos" {
		s.sendJSONError(w, "user ID required", http.StatusBadRequest)
		return
	}
	ownerID := parts[0]

	viewer, _ := identity.FromContext(r.Context())
	videos, err := s.store.ListByOwner(r.Context(), ownerID, viewer == ownerID)
	if err != nil {
		s.log.Error("failed to list user videos", "owner_id", ownerID, "error", err)
		s.sendJSONError(w, "failed to list videos", http.StatusInternalServerError)
		return
	}

	data := make([]apiVideoResponse, 0, len(videos))
	for i := range videos {
		data = append(data, toAPIVideo(&videos[i]))
	}

	s.sendJSON(w, apiVideosListResponse{Data: data, Total: len(data)}, http.StatusOK)
}

// fetchForMutation loads the record and the caller's identity for an
// owner-gated operation, writing the error response itself on failure.
func (s *server) fetchForMutation(w http.ResponseWriter, r *http.Request, videoID string) (*video.Video, string, bool) {
	rec, err := s.store.Get(r.Context(), videoID)
	if err != nil {
		s.log.Error("failed to read video", "video_id", videoID, "error", err)
		s.sendJSONError(w, "failed to read video", http.StatusInternalServerError)
		return nil, "", false
	}
	if rec == nil {
		s.sendJSONError(w, "video not found", http.StatusNotFound)
		return nil, "", false
	}

	viewer, ok := identity.FromContext(r.Context())
	if !ok {
		s.sendJSONError(w, "authentication required", http.StatusUnauthorized)
		return nil, "", false
	}

	return rec, viewer, true
}

func formAsset(r *http.Request, field string) (*upload.Asset, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	return &upload.Asset{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// sessionMiddleware assigns a session cookie so view de-duplication is
// scoped to one browsing session.
func (s *server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie(sessionCookie); err != nil {
			sid := uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    sid,
				Path:     "/",
				HttpOnly: true,
			})
			r.AddCookie(&http.Cookie{Name: sessionCookie, Value: sid})
		}
		next.ServeHTTP(w, r)
	})
}

func sessionID(r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return "anonymous"
}

// CORS middleware to allow frontend requests
func (s *server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-ID")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Helper functions for JSON responses
func (s *server) sendJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *server) sendJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}
