package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudboost/cloudboost-api/pkg/domain"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", domain.Required("name"), http.StatusBadRequest},
		{"not found", domain.ErrCustomerNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("load: %w", domain.ErrDealNotFound), http.StatusNotFound},
		{"conflict", domain.ErrEmailTaken, http.StatusConflict},
		{"domain taken", domain.ErrTenantDomainTaken, http.StatusBadRequest},
		{"credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{"locked", domain.ErrAccountLocked, http.StatusForbidden},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusFor(tt.err); got != tt.want {
				t.Errorf("StatusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestServiceError(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		message string
	}{
		{domain.ErrEmailTaken, http.StatusConflict, "Email already registered"},
		{domain.NewValidationError("email", "Invalid email format"), http.StatusBadRequest, "Invalid email format"},
		{fmt.Errorf("db down"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		ServiceError(w, nil, tt.err)
		if w.Code != tt.status {
			t.Errorf("status = %d, want %d", w.Code, tt.status)
		}
		var body ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if body.Error != tt.message {
			t.Errorf("error = %q, want %q", body.Error, tt.message)
		}
	}
}

func TestDecode(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name       string
		body       string
		limit      int64
		wantOK     bool
		wantStatus int
	}{
		{"valid", `{"name":"x"}`, 1024, true, http.StatusOK},
		{"empty", ``, 1024, false, http.StatusBadRequest},
		{"malformed", `{"name":`, 1024, false, http.StatusBadRequest},
		{"too large", `{"name":"` + strings.Repeat("a", 100) + `"}`, 10, false, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			r.Body = http.MaxBytesReader(w, r.Body, tt.limit)
			if ok := Decode(w, r, &v); ok != tt.wantOK {
				t.Fatalf("Decode() = %v, want %v", ok, tt.wantOK)
			}
			if !tt.wantOK && w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestPageFromQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?page=3&per_page=500", nil)
	p := PageFromQuery(r, 20)
	if p.Page != 3 || p.PerPage != 100 {
		t.Errorf("PageFromQuery() = %+v", p)
	}
	r = httptest.NewRequest(http.MethodGet, "/?page=x", nil)
	p = PageFromQuery(r, 20)
	if p.Page != 1 || p.PerPage != 20 {
		t.Errorf("PageFromQuery() = %+v", p)
	}
}
