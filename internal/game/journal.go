package game

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yohamta/donburi"
	"golang.org/x/time/rate"

	"fleet-combat/internal/config"
)

const (
	BatchFlushSize           = 64                     // Events per batch write
	BatchFlushInterval       = 100 * time.Millisecond // How often to flush
	InstigatorLimiterCleanup = 5 * time.Minute        // Cleanup interval for instigator limiters
)

// Journal is a bounded, rate-limited, append-only record of combat events.
// Recording never blocks the tick: events that exceed a limit or find the
// buffer full are dropped and counted.
type Journal struct {
	buffer *Ring[Event]
	seq    uint64 // atomic

	// Rate limiting keeps one busy ship from flooding the journal
	globalLimiter      *rate.Limiter
	instigatorLimiters sync.Map // map[uint64]*instigatorLimiterEntry
	perInstigator      rate.Limit

	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	file   *os.File
	out    *bufio.Writer
	fileMu sync.Mutex

	droppedCount uint64 // atomic
	totalCount   uint64 // atomic
	writtenCount uint64 // atomic
}

type instigatorLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed atomic.Int64 // unix nano
}

// JournalStats is the monitoring view of the journal.
type JournalStats struct {
	Total   uint64 `json:"total"`
	Dropped uint64 `json:"dropped"`
	Written uint64 `json:"written"`
	Pending int    `json:"pending"`
	Running bool   `json:"running"`
}

// NewJournal creates a stopped journal. Record is a no-op until Start.
func NewJournal(cfg config.JournalConfig) *Journal {
	size := cfg.BufferSize
	if size <= 0 {
		size = 1024
	}
	global := cfg.MaxEventsPerSecond
	if global <= 0 {
		global = 5000
	}
	per := cfg.MaxPerInstigator
	if per <= 0 {
		per = 50
	}
	return &Journal{
		buffer:        NewRing[Event](size),
		globalLimiter: rate.NewLimiter(rate.Limit(global), max(global/10, 1)),
		perInstigator: rate.Limit(per),
		stopChan:      make(chan struct{}),
	}
}

// Start opens path for append and begins the async writer. An empty path
// keeps events in memory only; they are drained and discarded.
func (j *Journal) Start(path string) error {
	if j == nil || j.running.Load() {
		return nil
	}

	if path != "" {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		j.file = file
		j.out = bufio.NewWriter(file)
	}

	j.running.Store(true)
	j.writerWg.Add(2)
	go j.writerLoop()
	go j.cleanupLoop()
	return nil
}

// Stop flushes pending events and closes the file.
func (j *Journal) Stop() {
	if j == nil {
		return
	}
	j.stopOnce.Do(func() {
		j.running.Store(false)
		close(j.stopChan)
		j.writerWg.Wait()

		j.fileMu.Lock()
		if j.out != nil {
			j.out.Flush()
		}
		if j.file != nil {
			j.file.Close()
		}
		j.fileMu.Unlock()
	})
}

// Record appends an event. source is the root instigator charged against
// the per-instigator limit; 0 skips that limit. Returns false when the
// event was dropped or the journal is not running.
func (j *Journal) Record(t EventType, tick uint64, source donburi.Entity, payload any) bool {
	if j == nil || !j.running.Load() {
		return false
	}

	if !j.globalLimiter.Allow() {
		atomic.AddUint64(&j.droppedCount, 1)
		return false
	}
	if source != 0 && !j.instigatorLimiter(uint64(source)).Allow() {
		atomic.AddUint64(&j.droppedCount, 1)
		return false
	}

	event := NewEvent(t, tick, uint64(source), payload)
	event.Sequence = atomic.AddUint64(&j.seq, 1)
	if !j.buffer.TryPush(event) {
		atomic.AddUint64(&j.droppedCount, 1)
		return false
	}
	atomic.AddUint64(&j.totalCount, 1)
	return true
}

func (j *Journal) instigatorLimiter(id uint64) *rate.Limiter {
	now := time.Now().UnixNano()
	if v, ok := j.instigatorLimiters.Load(id); ok {
		e := v.(*instigatorLimiterEntry)
		e.lastUsed.Store(now)
		return e.limiter
	}

	entry := &instigatorLimiterEntry{
		limiter: rate.NewLimiter(j.perInstigator, max(int(j.perInstigator)/10, 1)),
	}
	entry.lastUsed.Store(now)
	actual, _ := j.instigatorLimiters.LoadOrStore(id, entry)
	return actual.(*instigatorLimiterEntry).limiter
}

// writerLoop batches and writes events to disk asynchronously
func (j *Journal) writerLoop() {
	defer j.writerWg.Done()

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	batch := make([]Event, BatchFlushSize)
	for {
		select {
		case <-j.stopChan:
			for j.flush(batch) > 0 {
			}
			return
		case <-ticker.C:
			j.flush(batch)
		}
	}
}

// cleanupLoop removes stale instigator limiters; ships die constantly.
func (j *Journal) cleanupLoop() {
	defer j.writerWg.Done()

	ticker := time.NewTicker(InstigatorLimiterCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-j.stopChan:
			return
		case <-ticker.C:
			j.cleanupLimiters(time.Now().Add(-InstigatorLimiterCleanup))
		}
	}
}

func (j *Journal) cleanupLimiters(cutoff time.Time) {
	j.instigatorLimiters.Range(func(key, value any) bool {
		if value.(*instigatorLimiterEntry).lastUsed.Load() < cutoff.UnixNano() {
			j.instigatorLimiters.Delete(key)
		}
		return true
	})
}

// flush drains up to one batch and writes it as newline-delimited JSON.
func (j *Journal) flush(batch []Event) int {
	n := j.buffer.DrainTo(batch)
	if n == 0 {
		return 0
	}

	j.fileMu.Lock()
	defer j.fileMu.Unlock()

	if j.out != nil {
		for _, event := range batch[:n] {
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			j.out.Write(data)
			j.out.WriteByte('\n')
		}
		j.out.Flush()
	}
	atomic.AddUint64(&j.writtenCount, uint64(n))
	return n
}

// Stats returns journal metrics.
func (j *Journal) Stats() JournalStats {
	if j == nil {
		return JournalStats{}
	}
	return JournalStats{
		Total:   atomic.LoadUint64(&j.totalCount),
		Dropped: atomic.LoadUint64(&j.droppedCount),
		Written: atomic.LoadUint64(&j.writtenCount),
		Pending: j.buffer.Len(),
		Running: j.running.Load(),
	}
}
