package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudboost/cloudboost-api/internal/httputil"
)

func TestRequestSizeLimit(t *testing.T) {
	maxSize := int64(100)

	handler := RequestSizeLimit(maxSize)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Message string `json:"message"`
		}
		if !httputil.Decode(w, r, &body) {
			return
		}
		httputil.JSON(w, http.StatusOK, body)
	}))

	tests := []struct {
		name       string
		padding    int
		wantStatus int
	}{
		{"small body accepted", 30, http.StatusOK},
		{"near limit accepted", 70, http.StatusOK},
		{"too large rejected", 150, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := []byte(`{"message":"` + string(bytes.Repeat([]byte("a"), tt.padding)) + `"}`)
			req := httptest.NewRequest(http.MethodPost, "/communication/send-message", bytes.NewReader(body))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("got status %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}
