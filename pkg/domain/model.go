package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base carries the columns every table shares.
type Base struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when the caller did not.
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// TenantScoped is embedded by every row owned by a tenant.
type TenantScoped struct {
	Base
	TenantID uuid.UUID `gorm:"type:uuid;index;not null" json:"tenant_id"`
}

// JSONMap is a free-form JSON object column.
type JSONMap map[string]any

// Page describes a page request.
type Page struct {
	Page    int
	PerPage int
}

// NewPage clamps page and perPage into sane bounds.
func NewPage(page, perPage, defaultPerPage int) Page {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > 100 {
		perPage = 100
	}
	return Page{Page: page, PerPage: perPage}
}

// Offset returns the row offset of the page.
func (p Page) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Pagination is the pagination block returned by list endpoints.
type Pagination struct {
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
	Pages   int   `json:"pages"`
	HasNext bool  `json:"has_next"`
	HasPrev bool  `json:"has_prev"`
}

// NewPagination computes the pagination block for total rows.
func NewPagination(p Page, total int64) Pagination {
	pages := int(math.Ceil(float64(total) / float64(p.PerPage)))
	return Pagination{
		Page:    p.Page,
		PerPage: p.PerPage,
		Total:   total,
		Pages:   pages,
		HasNext: p.Page < pages,
		HasPrev: p.Page > 1,
	}
}
