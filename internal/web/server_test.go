package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipstream/internal/identity"
	"clipstream/internal/upload"
	"clipstream/internal/video"
	"clipstream/internal/view"
)

// memStore is an in-memory video.Store for handler tests.
type memStore struct {
	videos map[string]*video.Video
	views  []video.ViewEvent
	nextID int
}

var _ video.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{videos: map[string]*video.Video{}}
}

func (s *memStore) Insert(ctx context.Context, v *video.Video) (*video.Video, error) {
	s.nextID++
	created := *v
	created.ID = fmt.Sprintf("vid-%d", s.nextID)
	s.videos[created.ID] = &created
	copied := created
	return &copied, nil
}

func (s *memStore) Get(ctx context.Context, id string) (*video.Video, error) {
	v, ok := s.videos[id]
	if !ok {
		return nil, nil
	}
	copied := *v
	return &copied, nil
}

func (s *memStore) ListPublic(ctx context.Context) ([]video.Video, error) {
	var result []video.Video
	for _, v := range s.videos {
		if v.IsPublic {
			result = append(result, *v)
		}
	}
	return result, nil
}

func (s *memStore) ListByOwner(ctx context.Context, ownerID string, includePrivate bool) ([]video.Video, error) {
	var result []video.Video
	for _, v := range s.videos {
		if v.OwnerID != ownerID {
			continue
		}
		if !v.IsPublic && !includePrivate {
			continue
		}
		result = append(result, *v)
	}
	return result, nil
}

func (s *memStore) SetVisibility(ctx context.Context, id string, public bool) error {
	v, ok := s.videos[id]
	if !ok {
		return video.ErrNotFound
	}
	v.IsPublic = public
	return nil
}

func (s *memStore) Delete(ctx context.Context, id string) error {
	if _, ok := s.videos[id]; !ok {
		return video.ErrNotFound
	}
	delete(s.videos, id)
	return nil
}

func (s *memStore) InsertViewEvent(ctx context.Context, ev video.ViewEvent) error {
	s.views = append(s.views, ev)
	if v, ok := s.videos[ev.VideoID]; ok {
		v.ViewsCount++
	}
	return nil
}

type nopBlobStore struct{}

func (nopBlobStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	return nil
}

func (nopBlobStore) PublicURL(key string) string { return "https://cdn.test/" + key }

func (nopBlobStore) DeletePrefix(ctx context.Context, prefix string) error { return nil }

func newTestServer(store *memStore) http.Handler {
	uploader := upload.NewCoordinator(identity.ContextProvider{}, store, nopBlobStore{}, nopBlobStore{}, nil)
	guard := video.NewGuard(store, nil)
	srv := NewServer(store, uploader, guard, view.NewStoreSink(store), nil)
	return srv.Handler()
}

func seedVideo(store *memStore, ownerID string, public bool) *video.Video {
	created, _ := store.Insert(context.Background(), &video.Video{
		OwnerID:  ownerID,
		Title:    "clip",
		VideoURL: "https://cdn.test/" + ownerID + "/clip.mp4",
		IsPublic: public,
	})
	return created
}

func doJSON(t *testing.T, handler http.Handler, req *http.Request, out interface{}) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if out != nil {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), out))
	}
	return rr
}

func TestFeedListsOnlyPublicVideos(t *testing.T) {
	store := newMemStore()
	seedVideo(store, "owner-1", true)
	seedVideo(store, "owner-1", false)
	handler := newTestServer(store)

	var resp apiVideosListResponse
	rr := doJSON(t, handler, httptest.NewRequest(http.MethodGet, "/api/videos", nil), &resp)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Data, 1)
	assert.True(t, resp.Data[0].IsPublic)
}

func TestWatchPublicVideoAnonymous(t *testing.T) {
	store := newMemStore()
	created := seedVideo(store, "owner-1", true)
	handler := newTestServer(store)

	var resp apiVideoResponse
	rr := doJSON(t, handler, httptest.NewRequest(http.MethodGet, "/api/videos/"+created.ID, nil), &resp)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, created.ID, resp.Id)

	require.Len(t, store.views, 1)
	assert.Nil(t, store.views[0].ViewerID, "anonymous views carry no viewer id")
}

func TestWatchCountsOncePerSession(t *testing.T) {
	store := newMemStore()
	created := seedVideo(store, "owner-1", true)
	handler := newTestServer(store)

	session := &http.Cookie{Name: sessionCookie, Value: "sess-1"}
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/videos/"+created.ID, nil)
		req.AddCookie(session)
		rr := doJSON(t, handler, req, nil)
		require.Equal(t, http.StatusOK, rr.Code)
	}
	assert.Len(t, store.views, 1)

	// A different browsing session counts again.
	req := httptest.NewRequest(http.MethodGet, "/api/videos/"+created.ID, nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "sess-2"})
	doJSON(t, handler, req, nil)
	assert.Len(t, store.views, 2)
}

func TestWatchAssignsSessionCookie(t *testing.T) {
	store := newMemStore()
	created := seedVideo(store, "owner-1", true)
	handler := newTestServer(store)

	rr := doJSON(t, handler, httptest.NewRequest(http.MethodGet, "/api/videos/"+created.ID, nil), nil)

	cookies := rr.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, sessionCookie, cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)
}

func TestWatchPrivateVideoAccess(t *testing.T) {
	tests := []struct {
		name       string
		viewer     string
		wantStatus int
	}{
		{name: "anonymous forbidden", viewer: "", wantStatus: http.StatusForbidden},
		{name: "non-owner forbidden", viewer: "viewer-2", wantStatus: http.StatusForbidden},
		{name: "owner allowed", viewer: "owner-1", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			created := seedVideo(store, "owner-1", false)
			handler := newTestServer(store)

			req := httptest.NewRequest(http.MethodGet, "/api/videos/"+created.ID, nil)
			if tt.viewer != "" {
				req.Header.Set("X-User-ID", tt.viewer)
			}
			rr := doJSON(t, handler, req, nil)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus != http.StatusOK {
				assert.Empty(t, store.views, "denied requests must not record views")
			}
		})
	}
}

func TestWatchUnknownVideo(t *testing.T) {
	handler := newTestServer(newMemStore())

	rr := doJSON(t, handler, httptest.NewRequest(http.MethodGet, "/api/videos/missing", nil), nil)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func uploadBody(t *testing.T, videoType, thumbType string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)

	addFile := func(field, filename, contentType string) {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = io.Copy(part, strings.NewReader("payload"))
		require.NoError(t, err)
	}

	addFile("video", "clip.mp4", videoType)
	if thumbType != "" {
		addFile("thumbnail", "cover.png", thumbType)
	}
	require.NoError(t, mw.WriteField("title", "my clip"))
	require.NoError(t, mw.WriteField("description", "a demo"))
	require.NoError(t, mw.Close())

	return buf, mw.FormDataContentType()
}

func TestUploadSuccess(t *testing.T) {
	store := newMemStore()
	handler := newTestServer(store)

	body, contentType := uploadBody(t, "video/mp4", "image/png")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User-ID", "user-1")

	var resp apiVideoResponse
	rr := doJSON(t, handler, req, &resp)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "user-1", resp.OwnerId)
	assert.Equal(t, "my clip", resp.Title)
	assert.True(t, resp.IsPublic, "visibility defaults to public")
	require.NotNil(t, resp.ThumbnailUrl)
	assert.Len(t, store.videos, 1)
}

func TestUploadRequiresAuthentication(t *testing.T) {
	store := newMemStore()
	handler := newTestServer(store)

	body, contentType := uploadBody(t, "video/mp4", "")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)

	rr := doJSON(t, handler, req, nil)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Empty(t, store.videos)
}

func TestUploadRejectsNonImageThumbnail(t *testing.T) {
	store := newMemStore()
	handler := newTestServer(store)

	body, contentType := uploadBody(t, "video/mp4", "text/html")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User-ID", "user-1")

	rr := doJSON(t, handler, req, nil)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, store.videos)
}

func TestUploadRejectsNonVideoAsset(t *testing.T) {
	store := newMemStore()
	handler := newTestServer(store)

	body, contentType := uploadBody(t, "application/pdf", "")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User-ID", "user-1")

	rr := doJSON(t, handler, req, nil)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestVisibilityOwnerOnly(t *testing.T) {
	tests := []struct {
		name       string
		viewer     string
		wantStatus int
		wantPublic bool
	}{
		{name: "owner toggles", viewer: "owner-1", wantStatus: http.StatusOK, wantPublic: false},
		{name: "non-owner forbidden", viewer: "viewer-2", wantStatus: http.StatusForbidden, wantPublic: true},
		{name: "anonymous unauthorized", viewer: "", wantStatus: http.StatusUnauthorized, wantPublic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			created := seedVideo(store, "owner-1", true)
			handler := newTestServer(store)

			req := httptest.NewRequest(http.MethodPost, "/api/videos/"+created.ID+"/visibility",
				strings.NewReader(`{"isPublic": false}`))
			if tt.viewer != "" {
				req.Header.Set("X-User-ID", tt.viewer)
			}
			rr := doJSON(t, handler, req, nil)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantPublic, store.videos[created.ID].IsPublic)
		})
	}
}

func TestDeleteOwnerOnly(t *testing.T) {
	tests := []struct {
		name       string
		viewer     string
		wantStatus int
		wantGone   bool
	}{
		{name: "owner deletes", viewer: "owner-1", wantStatus: http.StatusOK, wantGone: true},
		{name: "non-owner forbidden", viewer: "viewer-2", wantStatus: http.StatusForbidden},
		{name: "anonymous unauthorized", viewer: "", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			created := seedVideo(store, "owner-1", true)
			handler := newTestServer(store)

			req := httptest.NewRequest(http.MethodDelete, "/api/videos/"+created.ID, nil)
			if tt.viewer != "" {
				req.Header.Set("X-User-ID", tt.viewer)
			}
			rr := doJSON(t, handler, req, nil)

			assert.Equal(t, tt.wantStatus, rr.Code)
			_, exists := store.videos[created.ID]
			assert.Equal(t, !tt.wantGone, exists)
		})
	}
}

func TestUserVideosHidesPrivateFromOthers(t *testing.T) {
	store := newMemStore()
	seedVideo(store, "owner-1", true)
	seedVideo(store, "owner-1", false)
	handler := newTestServer(store)

	var asOther apiVideosListResponse
	req := httptest.NewRequest(http.MethodGet, "/api/users/owner-1/videos", nil)
	req.Header.Set("X-User-ID", "viewer-2")
	doJSON(t, handler, req, &asOther)
	assert.Equal(t, 1, asOther.Total)

	var asOwner apiVideosListResponse
	req = httptest.NewRequest(http.MethodGet, "/api/users/owner-1/videos", nil)
	req.Header.Set("X-User-ID", "owner-1")
	doJSON(t, handler, req, &asOwner)
	assert.Equal(t, 2, asOwner.Total)
}

func TestCORSPreflight(t *testing.T) {
	handler := newTestServer(newMemStore())

	req := httptest.NewRequest(http.MethodOptions, "/api/videos", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
}
