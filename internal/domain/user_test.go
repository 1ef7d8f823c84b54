package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestFormatGender(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"male", "Male"},
		{"MALE", "Male"},
		{"Female", "Female"},
		{"non-binary", "Non Binary"},
		{"genderqueer", "Genderqueer"},
		{"two spirit", "Two Spirit"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := FormatGender(tt.in); got != tt.want {
			t.Errorf("FormatGender(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewPage(t *testing.T) {
	tests := []struct {
		name           string
		total          int64
		page, pageSize int
		wantNext       *int
		wantPages      int
	}{
		{"first of many", 45, 1, 20, intPtr(2), 3},
		{"exact last page", 40, 2, 20, nil, 2},
		{"short last page", 45, 3, 20, nil, 3},
		{"empty", 0, 1, 20, nil, 0},
		{"single full page", 20, 1, 20, nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPage[int](nil, tt.total, tt.page, tt.pageSize)
			if p.Data == nil {
				t.Error("Data should never be nil")
			}
			if p.TotalPages != tt.wantPages {
				t.Errorf("TotalPages = %d; want %d", p.TotalPages, tt.wantPages)
			}
			switch {
			case tt.wantNext == nil && p.Next != nil:
				t.Errorf("Next = %d; want nil", *p.Next)
			case tt.wantNext != nil && (p.Next == nil || *p.Next != *tt.wantNext):
				t.Errorf("Next = %v; want %d", p.Next, *tt.wantNext)
			}
			if p.HasNext() != (tt.wantNext != nil) {
				t.Errorf("HasNext() = %v", p.HasNext())
			}
		})
	}
}

func TestPageJSON_NullNext(t *testing.T) {
	raw, err := json.Marshal(NewPage([]string{"a"}, 1, 1, 20))
	if err != nil {
		t.Fatalf("marshal page: %v", err)
	}
	if !strings.Contains(string(raw), `"next":null`) {
		t.Errorf("expected next to be null on the last page, got %s", raw)
	}
}

func TestSummaryOf(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	u := &User{
		BaseModel:   BaseModel{ID: 7, CreatedAt: created},
		FirstName:   "Ann",
		LastName:    "Smith",
		Email:       "ann@example.com",
		City:        "Springfield",
		ZipCode:     "12345",
		DateOfBirth: "1990-01-02",
		Gender:      "Female",
		IsActive:    true,
	}

	s := SummaryOf(u)
	if s.Name != "Ann Smith" {
		t.Errorf("Name = %q", s.Name)
	}
	if s.Address.City != "Springfield" || s.Address.ZipCode != "12345" {
		t.Errorf("unexpected address %+v", s.Address)
	}
	if s.ID != 7 || !s.CreatedAt.Equal(created) || !s.IsActive {
		t.Errorf("unexpected summary %+v", s)
	}
}

func TestUserDetail_LastLoginDisplay(t *testing.T) {
	d := UserDetail{}
	if got := d.LastLoginDisplay(); got != "Never" {
		t.Errorf("LastLoginDisplay() = %q; want Never", got)
	}

	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local)
	d.LastLogin = &at
	if got := d.LastLoginDisplay(); got != "2024-05-06 07:08:09" {
		t.Errorf("LastLoginDisplay() = %q", got)
	}
}

func TestUserDetail_InputRoundTrip(t *testing.T) {
	d := UserDetail{
		FirstName:   "Ann",
		LastName:    "Smith",
		Email:       "ann@example.com",
		Address:     Address{Address: "1 Main St", City: "Springfield", ZipCode: "12345", Country: "US"},
		DateOfBirth: "1990-01-02",
		Gender:      "Female",
		IsActive:    false,
	}

	in := d.Input()
	if in.Gender != "female" {
		t.Errorf("Gender = %q; want lower-cased", in.Gender)
	}
	if in.Active() {
		t.Error("Active() should reflect the stored flag")
	}

	p := in.Patch()
	if p.Empty() {
		t.Fatal("full patch should not be empty")
	}
	if p.City == nil || *p.City != "Springfield" {
		t.Errorf("patch city = %v", p.City)
	}
	if p.IsActive == nil || *p.IsActive {
		t.Errorf("patch is_active = %v", p.IsActive)
	}
}

func TestUserInput_ActiveDefault(t *testing.T) {
	if !(UserInput{}).Active() {
		t.Error("nil IsActive should mean active")
	}
	if !(UserPatch{}).Empty() {
		t.Error("zero patch should be empty")
	}
}

func intPtr(n int) *int { return &n }
