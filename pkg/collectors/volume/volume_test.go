package volume

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// fakeMixer returns a fixed level or error.
type fakeMixer struct {
	level Level
	err   error
	got   Control
}

func (f *fakeMixer) PlaybackVolume(ctx context.Context, c Control) (Level, error) {
	f.got = c
	return f.level, f.err
}

const sgetOutput = `Simple mixer control 'Master',0
  Capabilities: pvolume pswitch pswitch-joined
  Playback channels: Front Left - Front Right
  Limits: Playback 0 - 65536
  Mono:
  Front Left: Playback 39321 [60%] [on]
  Front Right: Playback 26214 [40%] [on]
`

const sgetMonoOutput = `Simple mixer control 'Master',0
  Capabilities: pvolume pvolume-joined pswitch pswitch-joined
  Playback channels: Mono
  Limits: Playback 0 - 87
  Mono: Playback 74 [85%] [-9.75dB] [on]
`

func TestRound5(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 0}, {1, 0}, {2, 0}, {3, 5}, {4, 5}, {5, 5},
		{7, 5}, {8, 10}, {42, 40}, {43, 45}, {97, 95}, {98, 100}, {100, 100},
	}
	for _, tt := range tests {
		if got := Round5(tt.in); got != tt.want {
			t.Errorf("Round5(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestRound5Idempotent(t *testing.T) {
	for p := 0; p <= 100; p += 5 {
		if got := Round5(p); got != p {
			t.Errorf("Round5(%d) = %d, want unchanged", p, got)
		}
	}
	for p := 0; p <= 100; p++ {
		once := Round5(p)
		if twice := Round5(once); twice != once {
			t.Errorf("Round5(Round5(%d)) = %d, want %d", p, twice, once)
		}
	}
}

func TestPercentMonotonic(t *testing.T) {
	prev := -1
	for cur := int64(0); cur <= 65536; cur += 97 {
		got := Percent(Level{Current: cur, Min: 0, Max: 65536})
		if got < prev {
			t.Fatalf("Percent not monotonic at %d: %d < %d", cur, got, prev)
		}
		if got < 0 || got > 100 || got%5 != 0 {
			t.Fatalf("Percent(%d) = %d, want multiple of 5 in [0,100]", cur, got)
		}
		prev = got
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		name  string
		level Level
		want  int
	}{
		{"min", Level{Current: 0, Min: 0, Max: 87}, 0},
		{"max", Level{Current: 87, Min: 0, Max: 87}, 100},
		{"mid", Level{Current: 39321, Min: 0, Max: 65536}, 60},
		{"offset range", Level{Current: -20, Min: -40, Max: 0}, 50},
		{"zero range", Level{Current: 0, Min: 5, Max: 5}, 0},
		{"above max clamps", Level{Current: 200, Min: 0, Max: 100}, 100},
		{"below min clamps", Level{Current: -5, Min: 0, Max: 100}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Percent(tt.level); got != tt.want {
				t.Errorf("Percent(%+v) = %d, want %d", tt.level, got, tt.want)
			}
		})
	}
}

func TestParseSget(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    Level
		wantErr bool
	}{
		{"stereo", sgetOutput, Level{Current: 39321, Min: 0, Max: 65536}, false},
		{"mono", sgetMonoOutput, Level{Current: 74, Min: 0, Max: 87}, false},
		{"bare limits", "  Limits: 0 - 31\n  Front Left: Playback 12 [39%]\n", Level{Current: 12, Max: 31}, false},
		{"switch only", "Simple mixer control 'Beep',0\n  Capabilities: pswitch\n  Mono: Playback [on]\n", Level{}, true},
		{"empty", "", Level{}, true},
		{"malformed limits", "  Limits: Playback zero to ten\n", Level{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSget([]byte(tt.out))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSget() err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSget() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestProbeCollect(t *testing.T) {
	m := &fakeMixer{level: Level{Current: 74, Min: 0, Max: 87}}
	p := New(m, DefaultControl())

	got, err := p.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	if got != "85" {
		t.Errorf("Collect() = %q, want %q", got, "85")
	}
	if m.got != DefaultControl() {
		t.Errorf("mixer queried %+v, want %+v", m.got, DefaultControl())
	}
}

func TestProbeCollectFailure(t *testing.T) {
	p := New(&fakeMixer{err: ErrNoControl}, DefaultControl())

	got, err := p.Collect(context.Background())
	if !errors.Is(err, ErrNoControl) {
		t.Errorf("Collect() err = %v, want ErrNoControl", err)
	}
	if got != "-1" {
		t.Errorf("Collect() = %q, want %q", got, "-1")
	}
	if p.Placeholder() != "-1" {
		t.Errorf("Placeholder() = %q, want -1", p.Placeholder())
	}
}

// writeScript installs a fake amixer in a temp dir.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "amixer")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestAmixerPlaybackVolume(t *testing.T) {
	bin := writeScript(t, "cat <<'EOF'\n"+sgetMonoOutput+"EOF\n")

	level, err := Amixer{Path: bin}.PlaybackVolume(context.Background(), DefaultControl())
	if err != nil {
		t.Fatalf("PlaybackVolume() error: %v", err)
	}
	if level != (Level{Current: 74, Min: 0, Max: 87}) {
		t.Errorf("PlaybackVolume() = %+v", level)
	}
}

func TestAmixerMissingControl(t *testing.T) {
	bin := writeScript(t, "echo \"amixer: Unable to find simple control 'Master',0\" >&2\nexit 1\n")

	_, err := Amixer{Path: bin}.PlaybackVolume(context.Background(), DefaultControl())
	if !errors.Is(err, ErrNoControl) {
		t.Errorf("err = %v, want ErrNoControl", err)
	}
}

func TestAmixerMissingBinary(t *testing.T) {
	_, err := Amixer{Path: filepath.Join(t.TempDir(), "nope")}.PlaybackVolume(context.Background(), DefaultControl())
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestAmixerHonorsContext(t *testing.T) {
	bin := writeScript(t, "exec sleep 5\n")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Amixer{Path: bin}.PlaybackVolume(ctx, DefaultControl())
	if err == nil {
		t.Fatal("expected error on timeout")
	}
	if time.Since(start) > 3*time.Second {
		t.Error("PlaybackVolume did not return promptly after cancellation")
	}
}
