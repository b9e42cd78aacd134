package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	id, ok := FromContext(context.Background())
	assert.False(t, ok)
	assert.Empty(t, id)

	ctx := WithIdentity(context.Background(), "user-1")
	id, ok = FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "user-1", id)
}

func TestMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		header string
		wantID string
		wantOK bool
	}{
		{name: "header attached", header: "user-1", wantID: "user-1", wantOK: true},
		{name: "missing header is anonymous", header: "", wantOK: false},
		{name: "whitespace header is anonymous", header: "   ", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotID string
			var gotOK bool
			handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotID, gotOK = FromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("X-User-ID", tt.header)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.wantOK, gotOK)
			assert.Equal(t, tt.wantID, gotID)
		})
	}
}
