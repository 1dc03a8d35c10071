// Package health tracks component failures and reports liveness with host
// statistics.
package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Status is the health of one component or of the whole process.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusFailed   Status = "failed"
)

// ComponentReport is the health of one outbound component (sms, ai, alert,
// voice).
type ComponentReport struct {
	Name     string    `json:"name"`
	Status   Status    `json:"status"`
	Failures int       `json:"failures"`
	LastErr  string    `json:"lastError,omitempty"`
	LastFail time.Time `json:"lastFailure,omitempty"`
}

// HostStats is a small slice of host information.
type HostStats struct {
	Hostname    string  `json:"hostname"`
	OS          string  `json:"os"`
	Platform    string  `json:"platform"`
	Uptime      uint64  `json:"uptimeSec"`
	MemTotal    uint64  `json:"memTotal"`
	MemUsedPerc float64 `json:"memUsedPercent"`
}

// Report is the /api/health payload.
type Report struct {
	Status     Status            `json:"status"`
	Uptime     float64           `json:"uptimeSec"`
	Clients    int               `json:"clients"`
	Components []ComponentReport `json:"components"`
	Host       *HostStats        `json:"host,omitempty"`
}

type component struct {
	failures int
	lastErr  string
	lastFail time.Time
}

// Checker counts consecutive failures per component. A component with any
// failure is degraded; at threshold it is failed.
type Checker struct {
	started   time.Time
	threshold int
	clients   func() int

	mu         sync.Mutex
	components map[string]*component
}

func NewChecker(threshold int, clients func() int) *Checker {
	if threshold <= 0 {
		threshold = 3
	}
	return &Checker{
		started:    time.Now(),
		threshold:  threshold,
		clients:    clients,
		components: make(map[string]*component),
	}
}

// Record notes the outcome of one call to the named component.
func (c *Checker) Record(name string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	comp, ok := c.components[name]
	if !ok {
		comp = &component{}
		c.components[name] = comp
	}
	if err == nil {
		comp.failures = 0
		comp.lastErr = ""
		return
	}
	comp.failures++
	comp.lastErr = err.Error()
	comp.lastFail = time.Now()
}

// Report builds the health payload. Host stats are best effort.
func (c *Checker) Report(ctx context.Context) Report {
	r := Report{
		Status: StatusHealthy,
		Uptime: time.Since(c.started).Seconds(),
	}
	if c.clients != nil {
		r.Clients = c.clients()
	}

	c.mu.Lock()
	for name, comp := range c.components {
		cr := ComponentReport{
			Name:     name,
			Status:   c.status(comp.failures),
			Failures: comp.failures,
			LastErr:  comp.lastErr,
			LastFail: comp.lastFail,
		}
		r.Components = append(r.Components, cr)
		r.Status = worse(r.Status, cr.Status)
	}
	c.mu.Unlock()
	sort.Slice(r.Components, func(i, j int) bool { return r.Components[i].Name < r.Components[j].Name })

	r.Host = hostStats(ctx)
	return r
}

func (c *Checker) status(failures int) Status {
	switch {
	case failures >= c.threshold:
		return StatusFailed
	case failures > 0:
		return StatusDegraded
	default:
		return StatusHealthy
	}
}

func worse(a, b Status) Status {
	rank := map[Status]int{StatusHealthy: 0, StatusDegraded: 1, StatusFailed: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

func hostStats(ctx context.Context) *HostStats {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return nil
	}
	hs := &HostStats{
		Hostname: info.Hostname,
		OS:       info.OS,
		Platform: info.Platform,
		Uptime:   info.Uptime,
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		hs.MemTotal = vm.Total
		hs.MemUsedPerc = vm.UsedPercent
	}
	return hs
}
