package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestCodeFor(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("start: %w", ErrUnauthorized), CodeUnauthorized},
		{fmt.Errorf("join: %w", ErrStreamUnavailable), CodeStreamUnavailable},
		{ErrInvalidRole, CodeInvalidRole},
		{ErrNotFound, CodeNotFound},
		{ErrRateLimited, CodeRateLimited},
		{ErrIdentityEmpty, CodeBadRequest},
		{ErrIdentityTooLong, CodeBadRequest},
		{errors.New("boom"), CodeInternal},
	}
	for _, tt := range tests {
		if got := CodeFor(tt.err); got != tt.want {
			t.Errorf("CodeFor(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestParseRole(t *testing.T) {
	for _, s := range []string{"broadcaster", "observer"} {
		if r, err := ParseRole(s); err != nil || string(r) != s {
			t.Errorf("ParseRole(%q) = %v, %v", s, r, err)
		}
	}
	for _, s := range []string{"", "unset", "Observer", "admin"} {
		if _, err := ParseRole(s); !errors.Is(err, ErrInvalidRole) {
			t.Errorf("ParseRole(%q) error = %v, want ErrInvalidRole", s, err)
		}
	}
}

func TestNewIdentity(t *testing.T) {
	if _, err := NewIdentity(""); !errors.Is(err, ErrIdentityEmpty) {
		t.Errorf("NewIdentity(\"\") error = %v", err)
	}
	if _, err := NewIdentity(strings.Repeat("x", MaxIdentityLen+1)); !errors.Is(err, ErrIdentityTooLong) {
		t.Errorf("NewIdentity(long) error = %v", err)
	}
	if id, err := NewIdentity(strings.Repeat("x", MaxIdentityLen)); err != nil || len(id) != MaxIdentityLen {
		t.Errorf("NewIdentity(max) = %v, %v", id, err)
	}
}

func TestNewSessionRecord(t *testing.T) {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := Session{Identity: "alice", ConnID: "c1", StartedAt: started, IsLive: true}
	rec := NewSessionRecord(s, started.Add(90*time.Second), "hi ", ReasonExplicit)
	if rec.DurationMS != 90000 {
		t.Errorf("duration_ms = %d, want 90000", rec.DurationMS)
	}
	if rec.Identity != "alice" || rec.Transcript != "hi " || rec.Reason != ReasonExplicit {
		t.Errorf("record = %+v", rec)
	}
}
