package domain

import (
	"testing"
	"time"
)

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name      string
		page      Page
		total     int64
		wantPages int
		wantNext  bool
		wantPrev  bool
	}{
		{"empty", NewPage(1, 10, 10), 0, 0, false, false},
		{"single page", NewPage(1, 10, 10), 7, 1, false, false},
		{"first of many", NewPage(1, 10, 10), 25, 3, true, false},
		{"middle", NewPage(2, 10, 10), 25, 3, true, true},
		{"last", NewPage(3, 10, 10), 25, 3, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPagination(tt.page, tt.total)
			if p.Pages != tt.wantPages {
				t.Errorf("Pages = %d, want %d", p.Pages, tt.wantPages)
			}
			if p.HasNext != tt.wantNext {
				t.Errorf("HasNext = %v, want %v", p.HasNext, tt.wantNext)
			}
			if p.HasPrev != tt.wantPrev {
				t.Errorf("HasPrev = %v, want %v", p.HasPrev, tt.wantPrev)
			}
		})
	}
}

func TestNewPage_Clamps(t *testing.T) {
	p := NewPage(0, 0, 20)
	if p.Page != 1 || p.PerPage != 20 {
		t.Errorf("NewPage(0, 0, 20) = %+v, want page 1 per_page 20", p)
	}
	p = NewPage(3, 500, 20)
	if p.PerPage != 100 {
		t.Errorf("PerPage = %d, want 100", p.PerPage)
	}
	if p.Offset() != 200 {
		t.Errorf("Offset = %d, want 200", p.Offset())
	}
}

func TestUser_IsLocked(t *testing.T) {
	future := time.Now().Add(time.Minute)
	past := time.Now().Add(-time.Minute)

	if (&User{}).IsLocked() {
		t.Error("user without lock should not be locked")
	}
	if !(&User{LockedUntil: &future}).IsLocked() {
		t.Error("user locked until the future should be locked")
	}
	if (&User{LockedUntil: &past}).IsLocked() {
		t.Error("expired lock should not lock the user")
	}
}

func TestDeal_WeightedValue(t *testing.T) {
	d := &Deal{Value: 5000, Probability: 40}
	if got := d.WeightedValue(); got != 2000 {
		t.Errorf("WeightedValue = %v, want 2000", got)
	}
}

func TestMessage_IsDue(t *testing.T) {
	now := time.Now()
	later := now.Add(time.Hour)
	earlier := now.Add(-time.Hour)

	tests := []struct {
		name string
		msg  Message
		want bool
	}{
		{"queued without schedule", Message{Status: MessageQueued}, true},
		{"queued in the past", Message{Status: MessageQueued, ScheduledAt: &earlier}, true},
		{"queued in the future", Message{Status: MessageQueued, ScheduledAt: &later}, false},
		{"already sent", Message{Status: MessageSent}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.IsDue(now); got != tt.want {
				t.Errorf("IsDue = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	err := Required("email")
	if err.Error() != "email is required" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !IsValidation(err) {
		t.Error("IsValidation should be true")
	}
}
