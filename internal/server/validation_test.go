package server

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"planning-poker/internal/estimation"
)

func TestValidateName(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "Ada", want: "Ada"},
		{in: "  Jean   Luc  ", want: "Jean Luc"},
		{in: "Éloïse", want: "Éloïse"},
		{in: "o'neil.j@team-2", want: "o'neil.j@team-2"},
		{in: "", wantErr: true},
		{in: "   ", wantErr: true},
		{in: "<script>", wantErr: true},
		{in: strings.Repeat("é", maxNameLength), want: strings.Repeat("é", maxNameLength)},
		{in: strings.Repeat("é", maxNameLength+1), wantErr: true},
	}
	for _, tc := range cases {
		got, err := validateName(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("validateName(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("validateName(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestValidatePhaseID(t *testing.T) {
	if got, err := validatePhaseID(" qa-prepa "); err != nil || got != "qa-prepa" {
		t.Fatalf("expected trimmed phase, got %q, %v", got, err)
	}
	for _, bad := range []string{"", "qa prepa", "phase/1", "phasé", strings.Repeat("a", maxPhaseIDLength+1)} {
		if _, err := validatePhaseID(bad); err == nil {
			t.Fatalf("validatePhaseID(%q): expected error", bad)
		}
	}
}

func TestStatusForError(t *testing.T) {
	cases := map[error]int{
		errSessionNotFound:           http.StatusNotFound,
		estimation.ErrEmptyName:      http.StatusBadRequest,
		estimation.ErrInvalidValue:   http.StatusBadRequest,
		estimation.ErrNameTaken:      http.StatusConflict,
		estimation.ErrRevealed:       http.StatusConflict,
		estimation.ErrNotParticipant: http.StatusForbidden,
		estimation.ErrAdminRequired:  http.StatusForbidden,
		estimation.ErrAdminDenied:    http.StatusUnauthorized,
		errors.New("boom"):           http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got := statusForError(err); got != want {
			t.Fatalf("statusForError(%v) = %d, want %d", err, got, want)
		}
	}
}

func TestBuildPagination(t *testing.T) {
	page := buildPagination(2, 10, 25)
	if page.TotalPages != 3 || !page.HasPrev || !page.HasNext || page.PrevPage != 1 || page.NextPage != 3 {
		t.Fatalf("unexpected pagination %#v", page)
	}
	empty := buildPagination(1, 50, 0)
	if empty.TotalPages != 1 || empty.HasPrev || empty.HasNext {
		t.Fatalf("unexpected empty pagination %#v", empty)
	}
}
