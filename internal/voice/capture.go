package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// AudioConfig describes how the microphone is captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

func (c AudioConfig) withDefaults() AudioConfig {
	if c.SampleRate <= 0 {
		c.SampleRate = 16000
	}
	if c.Channels <= 0 {
		c.Channels = 1
	}
	if c.InputFormat == "" {
		c.InputFormat = "pulse"
	}
	if c.InputDevice == "" {
		c.InputDevice = "default"
	}
	return c
}

// AudioStream is a live capture of raw s16le PCM.
type AudioStream interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture opens the microphone.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioStream, error)
}

// FFmpegCapture streams microphone audio through an ffmpeg child process.
type FFmpegCapture struct {
	command string
	// settle is how long ffmpeg must stay up before capture counts as started.
	settle time.Duration
}

func NewFFmpegCapture(command string) *FFmpegCapture {
	if command == "" {
		command = "ffmpeg"
	}
	return &FFmpegCapture{command: command, settle: 250 * time.Millisecond}
}

// Available reports whether the ffmpeg binary can be found.
func (c *FFmpegCapture) Available() bool {
	_, err := exec.LookPath(c.command)
	return err == nil
}

func (c *FFmpegCapture) Start(ctx context.Context, cfg AudioConfig) (AudioStream, error) {
	cfg = cfg.withDefaults()

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.InputFormat,
		"-i", cfg.InputDevice,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-f", "s16le",
		"-",
	}

	cmd := exec.CommandContext(ctx, c.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	select {
	case err := <-waitErr:
		if err != nil {
			return nil, fmt.Errorf("ffmpeg exited before capture started: %w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, errors.New("ffmpeg exited before capture started")
	case <-time.After(c.settle):
	}

	return &ffmpegStream{
		stdout:  stdout,
		stderr:  &stderr,
		process: cmd.Process,
		waitErr: waitErr,
	}, nil
}

type ffmpegStream struct {
	stdout io.ReadCloser
	stderr *bytes.Buffer

	process *os.Process
	waitErr <-chan error

	stopOnce sync.Once
	stopErr  error
}

func (s *ffmpegStream) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

func (s *ffmpegStream) Close() error {
	return s.Stop()
}

// Stop interrupts ffmpeg and kills it if it does not exit promptly.
func (s *ffmpegStream) Stop() error {
	s.stopOnce.Do(func() {
		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}

		select {
		case err, ok := <-s.waitErr:
			if ok {
				s.stopErr = exitErr(err)
			}
		case <-time.After(1200 * time.Millisecond):
			if s.process != nil {
				_ = s.process.Kill()
			}
			if err, ok := <-s.waitErr; ok {
				s.stopErr = exitErr(err)
			}
		}

		if err := s.stdout.Close(); err != nil && !errors.Is(err, os.ErrClosed) && s.stopErr == nil {
			s.stopErr = err
		}
		if s.stopErr != nil && s.stderr.Len() > 0 {
			s.stopErr = fmt.Errorf("%w: %s", s.stopErr, strings.TrimSpace(s.stderr.String()))
		}
	})
	return s.stopErr
}

// exitErr drops the non-zero exit status ffmpeg reports when interrupted.
func exitErr(err error) error {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return nil
	}
	return err
}
