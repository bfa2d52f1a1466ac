package cli

import (
	"os"
	"sync"

	"golang.org/x/term"
	"gopkg.in/cheggaaa/pb.v1"
)

// ShowProgress reports whether progress bars should be drawn, which is
// only the case when stderr is a terminal.
func ShowProgress() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// NewCountBar returns a started bar counting total items, or nil when
// progress is hidden. All methods of the returned bar are nil-safe
// through the Bar helpers below.
func NewCountBar(total int, prefix string) *pb.ProgressBar {
	if !ShowProgress() || total <= 0 {
		return nil
	}
	bar := pb.New(total).Prefix(prefix)
	bar.Output = os.Stderr
	bar.ShowSpeed = false
	return bar.Start()
}

// PercentBar tracks 0-100 progress reported by long-running steps.
type PercentBar struct {
	bar *pb.ProgressBar
}

// NewPercentBar returns a started percentage bar; nil-safe when hidden.
func NewPercentBar(prefix string) *PercentBar {
	if !ShowProgress() {
		return &PercentBar{}
	}
	bar := pb.New(100).Prefix(prefix)
	bar.Output = os.Stderr
	bar.ShowCounters = false
	return &PercentBar{bar: bar.Start()}
}

// Update moves the bar to percent and shows message after it.
func (p *PercentBar) Update(percent int, message string) {
	if p.bar == nil {
		return
	}
	p.bar.Postfix(" " + message)
	p.bar.Set(percent)
}

// Finish completes the bar.
func (p *PercentBar) Finish() {
	if p.bar != nil {
		p.bar.Finish()
	}
}

// BytePool draws one byte-counting bar per concurrent transfer.
type BytePool struct {
	mu   sync.Mutex
	pool *pb.Pool
	bars map[string]*pb.ProgressBar
}

// NewBytePool starts an empty pool, or returns an inert pool when
// progress is hidden.
func NewBytePool() *BytePool {
	p := &BytePool{bars: make(map[string]*pb.ProgressBar)}
	if !ShowProgress() {
		return p
	}
	p.pool = pb.NewPool()
	p.pool.Output = os.Stderr
	if err := p.pool.Start(); err != nil {
		p.pool = nil
	}
	return p
}

// Track returns a callback updating the bar called name. total is the
// expected size in bytes, -1 when unknown.
func (p *BytePool) Track(name string) func(written, total int64) {
	return func(written, total int64) {
		if p.pool == nil {
			return
		}
		p.mu.Lock()
		bar, ok := p.bars[name]
		if !ok {
			bar = pb.New64(max(total, 0)).Prefix(name + " ")
			bar.SetUnits(pb.U_BYTES)
			bar.ShowSpeed = true
			p.bars[name] = bar
			p.pool.Add(bar)
		}
		p.mu.Unlock()
		if total > 0 {
			bar.SetTotal64(total)
		}
		bar.Set64(written)
	}
}

// Stop finishes every bar and stops redrawing.
func (p *BytePool) Stop() {
	if p.pool == nil {
		return
	}
	p.mu.Lock()
	for _, bar := range p.bars {
		bar.Finish()
	}
	p.mu.Unlock()
	_ = p.pool.Stop()
}
