package voice

import (
	"context"
	"errors"
	"time"

	"github.com/Sabith-07/WISE/internal/domain"
)

// PermissionGate asks for microphone access.
type PermissionGate interface {
	RequestMicrophone(ctx context.Context) (domain.PermissionResult, error)
}

// GateFunc adapts a function to PermissionGate.
type GateFunc func(ctx context.Context) (domain.PermissionResult, error)

func (f GateFunc) RequestMicrophone(ctx context.Context) (domain.PermissionResult, error) {
	return f(ctx)
}

// CapabilityGate answers from the startup capability probe. Remote clients
// prompt the user themselves, so an unknown capability counts as granted.
type CapabilityGate struct {
	Microphone domain.Availability
}

func (g CapabilityGate) RequestMicrophone(context.Context) (domain.PermissionResult, error) {
	if g.Microphone == domain.Unavailable {
		return domain.PermissionUnsupported, domain.ErrUnsupportedCapability
	}
	return domain.PermissionGranted, nil
}

// FFmpegGate opens the capture device briefly and releases it at once. A
// missing ffmpeg binary is unsupported; a device that cannot be opened is
// treated as denied.
type FFmpegGate struct {
	Capture *FFmpegCapture
	Audio   AudioConfig
	Timeout time.Duration
}

func (g FFmpegGate) RequestMicrophone(ctx context.Context) (domain.PermissionResult, error) {
	if g.Capture == nil || !g.Capture.Available() {
		return domain.PermissionUnsupported, domain.ErrUnsupportedCapability
	}

	timeout := g.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stream, err := g.Capture.Start(ctx, g.Audio)
	if err != nil {
		return domain.PermissionDenied, errors.Join(domain.ErrPermissionDenied, err)
	}
	_ = stream.Stop()
	return domain.PermissionGranted, nil
}
