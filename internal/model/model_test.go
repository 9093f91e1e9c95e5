package model

import (
	"strings"
	"testing"
)

func TestNewRecording_FileNameDerivedFromID(t *testing.T) {
	rec := NewRecording()

	if rec.ID == "" {
		t.Fatal("ID should not be empty")
	}
	if !strings.HasPrefix(rec.ID, IDPrefix) {
		t.Errorf("ID = %q, want prefix %q", rec.ID, IDPrefix)
	}
	if rec.FileName != rec.ID+".mp4" {
		t.Errorf("FileName = %q, want %q", rec.FileName, rec.ID+".mp4")
	}
	if rec.HasAddress() {
		t.Error("new recording should not have an address")
	}
}

func TestNewID_UniqueWithinMillisecond(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := NewID()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q after %d generations", id, i)
		}
		seen[id] = struct{}{}
	}
}

func TestNewID_SortsByCreation(t *testing.T) {
	first := NewID()
	second := NewID()
	if first >= second {
		t.Errorf("expected %q < %q", first, second)
	}
}

func TestKeys(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"object", ObjectKey("recording-1.mp4"), "recordings/recording-1.mp4"},
		{"metadata", MetadataKey("recording-1"), "recordings/recording-1"},
		{"thumbnail", ThumbnailKey("recording-1"), "thumbnails/recording-1.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestIDFromFileName(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"recording-1.mp4", "recording-1", true},
		{"recordings/recording-2.mp4", "recording-2", true},
		{"recording-3.webm", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := IDFromFileName(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("IDFromFileName(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
