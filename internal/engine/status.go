package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/map-harvest/harvest/pkg/models"
)

// logKeep bounds the in-memory activity log exposed over the status API.
// Older lines fall off; full history goes to the structured logger.
const logKeep = 50

// reporter tracks live engine state and a rolling activity log.
// All methods are safe for concurrent use.
type reporter struct {
	mu sync.Mutex

	running   bool
	runID     string
	category  string
	district  string
	processed int
	started   *time.Time
	lines     []string

	log zerolog.Logger
}

func newReporter(log zerolog.Logger) *reporter {
	return &reporter{log: log}
}

func (r *reporter) start(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.running = true
	r.runID = runID
	r.category = ""
	r.district = ""
	r.processed = 0
	r.started = &now
	r.lines = nil
}

func (r *reporter) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	r.category = ""
	r.district = ""
}

func (r *reporter) setJob(category, district string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.category = category
	r.district = district
}

func (r *reporter) addProcessed(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed += n
}

// logf appends a timestamped line to the rolling log and mirrors it to
// the structured logger.
func (r *reporter) logf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	r.mu.Lock()
	line := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), msg)
	r.lines = append(r.lines, line)
	if len(r.lines) > logKeep {
		r.lines = r.lines[len(r.lines)-logKeep:]
	}
	r.mu.Unlock()

	r.log.Info().Msg(msg)
}

func (r *reporter) snapshot() models.EngineStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := models.EngineStatus{
		Running:         r.running,
		RunID:           r.runID,
		CurrentCategory: r.category,
		CurrentDistrict: r.district,
		ProcessedCount:  r.processed,
		Logs:            append([]string(nil), r.lines...),
	}
	if r.started != nil {
		t := *r.started
		st.StartTime = &t
	}
	return st
}
