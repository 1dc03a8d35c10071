package voice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sabith-07/WISE/internal/domain"
)

func TestDetectorMatch(t *testing.T) {
	tests := []struct {
		name  string
		fuzzy int
		text  string
		want  bool
	}{
		{"exact", 0, "help", true},
		{"case insensitive", 0, "Somebody HELP me", true},
		{"substring", 0, "helpful stranger", true},
		{"absent", 0, "hello there", false},
		{"near miss without fuzzy", 0, "halp", false},
		{"near miss with fuzzy", 1, "halp me", true},
		{"too far with fuzzy", 1, "yellow", false},
		{"single letters skipped", 3, "a b c", false},
		{"empty", 1, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector("help", tt.fuzzy)
			assert.Equal(t, tt.want, d.Match(tt.text))
		})
	}
}

func TestDetectorDefaultsKeyword(t *testing.T) {
	d := NewDetector("  ", -1)
	assert.Equal(t, "help", d.Keyword())
	assert.True(t, d.Match("HELP"))
}

func TestCapabilityGate(t *testing.T) {
	tests := []struct {
		availability domain.Availability
		want         domain.PermissionResult
	}{
		{domain.Available, domain.PermissionGranted},
		{domain.Unknown, domain.PermissionGranted},
		{domain.Unavailable, domain.PermissionUnsupported},
	}
	for _, tt := range tests {
		got, _ := CapabilityGate{Microphone: tt.availability}.RequestMicrophone(context.Background())
		assert.Equal(t, tt.want, got, string(tt.availability))
	}
}

func TestFFmpegGateMissingBinary(t *testing.T) {
	gate := FFmpegGate{Capture: NewFFmpegCapture("wise-no-such-ffmpeg-binary")}
	got, err := gate.RequestMicrophone(context.Background())
	assert.Equal(t, domain.PermissionUnsupported, got)
	assert.ErrorIs(t, err, domain.ErrUnsupportedCapability)
}
