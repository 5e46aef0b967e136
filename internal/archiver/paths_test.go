package archiver

import (
	"path/filepath"
	"testing"
	"time"

	"camarchive/internal/protect"
)

func TestFootagePath(t *testing.T) {
	camera := protect.Camera{ID: "c1", Name: "Front Door"}
	seg := Segment{
		Camera: camera,
		Start:  time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
		End:    time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}

	got := footagePath("/archive", seg, false, true)
	want := filepath.Join("/archive", "Front_Door_2024-05-01T08.00.00_2024-05-01T09.00.00.mp4")
	if got != want {
		t.Errorf("footagePath() = %q, want %q", got, want)
	}
}

func TestFootagePathSubfolders(t *testing.T) {
	camera := protect.Camera{ID: "c1", Name: "Garage"}
	seg := Segment{
		Camera: camera,
		Start:  time.Date(2024, 5, 1, 23, 30, 0, 0, time.UTC),
		End:    time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
	}

	got := footagePath("/archive", seg, true, true)
	want := filepath.Join("/archive", "2024", "05", "01", "Garage",
		"Garage_2024-05-01T23.30.00_2024-05-02T00.00.00.mp4")
	if got != want {
		t.Errorf("footagePath() = %q, want %q", got, want)
	}
}

func TestSnapshotPath(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 30, 0, time.UTC)

	got := snapshotPath("/archive", "Yard Cam", ts, true, true)
	want := filepath.Join("/archive", "2024", "05", "01", "Yard_Cam", "Yard_Cam_2024-05-01T12.00.30.jpg")
	if got != want {
		t.Errorf("snapshotPath() = %q, want %q", got, want)
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"spaces", "Front Door", "Front_Door"},
		{"slash", "cam/one", "cam_one"},
		{"windows reserved", `a:b*c?d"e<f>g|h`, "a_b_c_d_e_f_g_h"},
		{"clean", "Garage", "Garage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeName(tt.input); got != tt.expected {
				t.Errorf("sanitizeName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRenderTimeUTC(t *testing.T) {
	loc := time.FixedZone("plus2", 2*60*60)
	local := time.Date(2024, 5, 1, 10, 0, 0, 0, loc)

	utc := renderTime(local, true)
	if utc.Hour() != 8 {
		t.Errorf("renderTime(utc) hour = %d, want 8", utc.Hour())
	}
}
