package depthcloud

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Counter names recorded by the point cloud systems.
const (
	CounterDraws   = "pointcloud.draws"
	CounterSources = "pointcloud.sources"
	CounterPoints  = "pointcloud.points"
	CounterCameras = "render.cameras"
)

type Profiler struct {
	Scopes     map[string]time.Duration
	StartTimes map[string]time.Time
	Counts     map[string]int
	Order      []string
}

func NewProfiler() *Profiler {
	return &Profiler{
		Scopes:     make(map[string]time.Duration),
		StartTimes: make(map[string]time.Time),
		Counts:     make(map[string]int),
		Order:      make([]string, 0),
	}
}

func (p *Profiler) BeginScope(name string) {
	p.StartTimes[name] = time.Now()
	// Keep insertion order for display
	if !slices.Contains(p.Order, name) {
		p.Order = append(p.Order, name)
	}
}

func (p *Profiler) EndScope(name string) {
	if start, ok := p.StartTimes[name]; ok {
		p.Scopes[name] = time.Since(start)
	}
}

func (p *Profiler) SetCount(name string, count int) {
	p.Counts[name] = count
}

func (p *Profiler) Count(name string) int {
	return p.Counts[name]
}

func (p *Profiler) Reset() {
	// Keep Order, reset times
	for k := range p.Scopes {
		p.Scopes[k] = 0
	}
}

func (p *Profiler) GetStatsString() string {
	var sb strings.Builder

	sb.WriteString("Timings (CPU):\n")
	for _, name := range p.Order {
		ms := float64(p.Scopes[name].Microseconds()) / 1000.0
		sb.WriteString(fmt.Sprintf("  %-18s: %.2f ms\n", name, ms))
	}

	sb.WriteString("\nStats:\n")
	for _, k := range slices.Sorted(maps.Keys(p.Counts)) {
		sb.WriteString(fmt.Sprintf("  %-18s: %d\n", k, p.Counts[k]))
	}

	return sb.String()
}

// ProfilerModule times every stage and logs the stats at debug level every
// ReportEvery frames. Zero disables the report.
type ProfilerModule struct {
	ReportEvery uint64
}

type profilerReport struct {
	every uint64
}

func (mod ProfilerModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(NewProfiler(), &profilerReport{every: mod.ReportEvery})
	cmd.UseSystem(System(profilerReportSystem).InStage(Finale))
}

func profilerReportSystem(p *Profiler, report *profilerReport, cmd *Commands) {
	if report.every == 0 || cmd.app.frames%report.every != report.every-1 {
		return
	}
	log := cmd.Logger()
	if log.DebugEnabled() {
		log.Debugf("frame %d\n%s", cmd.app.frames+1, p.GetStatsString())
	}
}
