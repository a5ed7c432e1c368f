package pipeline

// LoadLevel classifies live pool occupancy into coarse bands.
type LoadLevel string

const (
	LoadLow    LoadLevel = "LOW"
	LoadMedium LoadLevel = "MEDIUM"
	LoadHigh   LoadLevel = "HIGH"
)

// WorkerPool bounds the number of concurrently executing runs. A channel
// semaphore carries the occupancy, so reads need no extra locking.
type WorkerPool struct {
	slots chan struct{}
}

// NewWorkerPool creates a pool with the given maximum concurrent runs.
func NewWorkerPool(maxConcurrent int) *WorkerPool {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &WorkerPool{slots: make(chan struct{}, maxConcurrent)}
}

// TryAcquire claims a slot without blocking.
func (p *WorkerPool) TryAcquire() bool {
	select {
	case p.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release frees a slot claimed by TryAcquire.
func (p *WorkerPool) Release() {
	select {
	case <-p.slots:
	default:
	}
}

// Active reports how many runs currently hold a slot.
func (p *WorkerPool) Active() int { return len(p.slots) }

// Max reports the pool capacity.
func (p *WorkerPool) Max() int { return cap(p.slots) }

// Load classifies the current occupancy: below 50% LOW, 50 to 79% MEDIUM,
// 80% and above HIGH.
func (p *WorkerPool) Load() LoadLevel {
	return ClassifyLoad(p.Active(), p.Max())
}

// ClassifyLoad derives a load band from current and maximum counts.
func ClassifyLoad(current, maximum int) LoadLevel {
	if maximum <= 0 {
		return LoadHigh
	}
	pct := current * 100 / maximum
	switch {
	case pct < 50:
		return LoadLow
	case pct < 80:
		return LoadMedium
	default:
		return LoadHigh
	}
}
