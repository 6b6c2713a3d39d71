// Package progress renders a single-line download progress bar.
package progress

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultWidth = 40
	fillChar     = "="
)

// Bar tracks transferred bytes and redraws itself on an interval.
// Add is safe for concurrent use by ranged workers.
type Bar struct {
	name     string
	total    atomic.Int64
	done     atomic.Int64
	width    int
	out      io.Writer
	interval time.Duration
	start    time.Time
	now      func() time.Time

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// New creates a bar. A total <= 0 means unknown size.
func New(out io.Writer, name string, total int64, interval time.Duration) *Bar {
	b := &Bar{
		name:     name,
		width:    defaultWidth,
		out:      out,
		interval: interval,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	b.total.Store(total)
	b.start = b.now()
	return b
}

// SetTotal updates the expected size once it becomes known.
func (b *Bar) SetTotal(total int64) {
	b.total.Store(total)
}

// Add records n more bytes.
func (b *Bar) Add(n int64) {
	b.done.Add(n)
}

// Write implements io.Writer so the bar can sit in an io.TeeReader.
func (b *Bar) Write(p []byte) (int, error) {
	b.Add(int64(len(p)))
	return len(p), nil
}

// Start redraws the bar until ctx is done or Finish is called.
func (b *Bar) Start(ctx context.Context) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-b.stop:
				return
			case <-ticker.C:
				b.render()
			}
		}
	}()
}

// Finish stops redrawing and prints the final state followed by a newline.
func (b *Bar) Finish() {
	b.once.Do(func() {
		close(b.stop)
		b.wg.Wait()
		b.render()
		fmt.Fprintln(b.out)
	})
}

func (b *Bar) render() {
	fmt.Fprint(b.out, "\r"+b.Line())
}

// Line returns the current bar text without control characters.
func (b *Bar) Line() string {
	done := b.done.Load()
	total := b.total.Load()
	elapsed := int(b.now().Sub(b.start).Seconds())

	if total <= 0 {
		return fmt.Sprintf("%s %s %ds", b.name, FormatSize(done), elapsed)
	}

	ratio := float64(done) / float64(total)
	if ratio > 1 {
		ratio = 1
	}
	filled := int(ratio * float64(b.width))
	bar := strings.Repeat(fillChar, filled) + strings.Repeat(" ", b.width-filled)

	return fmt.Sprintf("%s %5.1f%% [%s] %s/%s %ds",
		b.name, ratio*100, bar, FormatSize(done), FormatSize(total), elapsed)
}

// FormatSize renders a byte count with a binary unit.
func FormatSize(n int64) string {
	const unit = 1024
	switch {
	case n < unit:
		return fmt.Sprintf("%dB", n)
	case n < unit*unit:
		return fmt.Sprintf("%.2fKB", float64(n)/unit)
	case n < unit*unit*unit:
		return fmt.Sprintf("%.2fMB", float64(n)/(unit*unit))
	default:
		return fmt.Sprintf("%.2fGB", float64(n)/(unit*unit*unit))
	}
}
