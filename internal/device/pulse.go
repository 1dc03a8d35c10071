package device

import (
	"sync"
	"time"
)

// Pulse turns a one-shot Commander into a Vibrator that repeats the pattern
// every cycle until stopped.
type Pulse struct {
	cmd   Commander
	cycle time.Duration

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewPulse returns a Pulse that re-issues the pattern every cycle. A cycle of
// zero or less uses the pattern's total length.
func NewPulse(cmd Commander, cycle time.Duration) *Pulse {
	return &Pulse{cmd: cmd, cycle: cycle}
}

// Start begins vibrating. Calling Start while running replaces the pattern.
func (p *Pulse) Start(pattern []time.Duration) error {
	p.halt()

	if err := p.cmd.Vibrate(pattern); err != nil {
		return err
	}

	cycle := p.cycle
	if cycle <= 0 {
		for _, d := range pattern {
			cycle += d
		}
	}
	if cycle <= 0 {
		return nil
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	p.mu.Lock()
	p.stop = stop
	p.done = done
	p.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(cycle)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				_ = p.cmd.Vibrate(pattern)
			}
		}
	}()
	return nil
}

// Stop ends the pattern and cancels any vibration in progress.
func (p *Pulse) Stop() error {
	p.halt()
	return p.cmd.Vibrate(nil)
}

// Running reports whether a pattern is repeating.
func (p *Pulse) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stop != nil
}

func (p *Pulse) halt() {
	p.mu.Lock()
	stop, done := p.stop, p.done
	p.stop, p.done = nil, nil
	p.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}
