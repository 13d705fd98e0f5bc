package commands

import (
	"fmt"
	"io"
	"sync"

	"github.com/nuagevault/nuagevault/internal/upload"
)

// progressStep is the minimum percentage change between two printed lines
const progressStep = 25

// progressPrinter prints upload progress for several files sharing one writer.
// Uploads run in parallel, so every callback goes through mu.
type progressPrinter struct {
	out  io.Writer
	mu   sync.Mutex
	last map[string]int
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out, last: map[string]int{}}
}

// For returns the callback for one file
func (p *progressPrinter) For(name string) upload.Progress {
	return func(sent, total int64) {
		if total <= 0 {
			return
		}
		pct := int(sent * 100 / total)
		if pct > 100 {
			pct = 100
		}

		p.mu.Lock()
		defer p.mu.Unlock()

		last := p.last[name]
		if pct-last < progressStep && (pct < 100 || last == 100) {
			return
		}
		p.last[name] = pct
		fmt.Fprintf(p.out, "  %s: %d/%d bytes (%d%%)\n", name, sent, total, pct)
	}
}
