package analytics

// RollingWindow is a fixed-capacity ring buffer over the most recent values.
type RollingWindow struct {
	windowSize int
	values     []float64
	index      int
	count      int
	sum        float64
}

func NewRollingWindow(size int) *RollingWindow {
	if size < 1 {
		size = 1
	}

	return &RollingWindow{
		windowSize: size,
		values:     make([]float64, size),
	}
}

// Add pushes value, evicting the oldest one once the window is full.
func (rw *RollingWindow) Add(value float64) {
	if rw.count == rw.windowSize {
		rw.sum -= rw.values[rw.index]
	} else {
		rw.count++
	}

	rw.values[rw.index] = value
	rw.sum += value
	rw.index = (rw.index + 1) % rw.windowSize
}

func (rw *RollingWindow) Average() float64 {
	if rw.count == 0 {
		return 0.0
	}
	return rw.sum / float64(rw.count)
}

// Len returns how many values the window currently holds.
func (rw *RollingWindow) Len() int {
	return rw.count
}

// Values returns the held values oldest first.
func (rw *RollingWindow) Values() []float64 {
	out := make([]float64, 0, rw.count)
	start := 0
	if rw.count == rw.windowSize {
		start = rw.index
	}

	for i := 0; i < rw.count; i++ {
		out = append(out, rw.values[(start+i)%rw.windowSize])
	}

	return out
}
