package pipeline

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
)

// Terminal reports whether f is an interactive terminal. Progress lines are only
// useful there.
func Terminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// progress prints "label: done/total [pct%]" on one carriage-returned line.
type progress struct {
	w     io.Writer
	label string
	total int
	n     int
	mu    sync.Mutex
}

func (p *Pipeline) newProgress(label string, total int) *progress {
	if p.progress == nil || total == 0 {
		return nil
	}

	return &progress{w: p.progress, label: label, total: total}
}

func (b *progress) step() {
	if b == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.n++
	fmt.Fprintf(b.w, "\r%s: %d/%d [%.2f%%]", b.label, b.n, b.total, float64(b.n)*100/float64(b.total))
}

func (b *progress) done() {
	if b == nil {
		return
	}

	fmt.Fprintln(b.w)
}
