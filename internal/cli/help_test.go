package cli

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestClampWidth(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{40, 72},
		{72, 72},
		{85, 85},
		{100, 100},
		{200, 100},
	}
	for _, tt := range tests {
		if got := clampWidth(tt.in); got != tt.want {
			t.Errorf("clampWidth(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSupportsUnicode(t *testing.T) {
	t.Setenv("TERM", "xterm-256color")
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_CTYPE", "")

	t.Setenv("LANG", "en_US.UTF-8")
	if !supportsUnicode() {
		t.Error("UTF-8 locale not detected")
	}

	t.Setenv("LANG", "C")
	if supportsUnicode() {
		t.Error("C locale should not report unicode")
	}

	t.Setenv("TERM", "dumb")
	t.Setenv("LANG", "en_US.UTF-8")
	if supportsUnicode() {
		t.Error("dumb terminal should not report unicode")
	}
}

func TestDetectWidthEnvFallback(t *testing.T) {
	t.Setenv("COLUMNS", "95")
	if w := detectWidth(); w != 95 && w <= 0 {
		t.Errorf("detectWidth() = %d", w)
	}
}

func TestGradientTextPlainWithoutUnicode(t *testing.T) {
	t.Setenv("TERM", "dumb")
	t.Setenv("LANG", "C")
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_CTYPE", "")

	got := gradientText("hello", []lipgloss.Color{colorMauve, colorBlue})
	if got != "hello" {
		t.Errorf("gradientText without unicode = %q, want plain text", got)
	}
}

func TestBulletContainsCommandAndDescription(t *testing.T) {
	got := bullet("hookguard check", "classify a command")
	if !strings.Contains(got, "hookguard check") || !strings.Contains(got, "classify a command") {
		t.Errorf("bullet output %q missing parts", got)
	}
}

func TestRenderSectionStripsIconsForASCII(t *testing.T) {
	got := renderSection(false, "🔷 SETUP (once per machine)", []string{"line"})
	if strings.Contains(got, "🔷") {
		t.Errorf("ASCII section kept icon: %q", got)
	}
	if !strings.Contains(got, "SETUP") {
		t.Errorf("section header missing: %q", got)
	}
}
