package session

import (
	"strings"
	"sync"
)

const (
	// OutputBufferMaxSize caps the output retained per session.
	OutputBufferMaxSize = 1 << 20

	// joinThreshold bounds chunk-list growth: every joinThreshold appends
	// the list collapses to a single chunk.
	joinThreshold = 100
)

// TruncationMarker is appended once when a buffer hits its cap.
const TruncationMarker = "\n[output truncated - buffer limit reached]"

// BoundedBuffer accumulates PTY output up to a fixed cap. Appends are
// O(1): chunks go on a list with a running byte counter and the list is
// collapsed periodically. When the cap is reached the head of the stream
// is kept (audit-trail semantics), the remainder of the offending chunk
// is cut to fit, a truncation marker is appended and the buffer refuses
// further data. The truncated flag is sticky.
type BoundedBuffer struct {
	mu        sync.Mutex
	chunks    []string
	size      int
	max       int
	appends   int
	truncated bool
}

// NewBoundedBuffer creates a buffer retaining at most max bytes of
// payload plus the truncation marker. A non-positive max falls back to
// OutputBufferMaxSize.
func NewBoundedBuffer(max int) *BoundedBuffer {
	if max <= 0 {
		max = OutputBufferMaxSize
	}
	return &BoundedBuffer{max: max}
}

// Append adds data to the buffer. Once the buffer is truncated all
// further data is dropped; callers keep streaming it to live listeners,
// it simply stops being retained here.
func (b *BoundedBuffer) Append(data string) {
	if data == "" {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.truncated {
		return
	}

	if b.size+len(data) > b.max {
		if keep := b.max - b.size; keep > 0 {
			b.chunks = append(b.chunks, data[:keep])
			b.size = b.max
		}
		b.chunks = append(b.chunks, TruncationMarker)
		b.size += len(TruncationMarker)
		b.truncated = true
		return
	}

	b.chunks = append(b.chunks, data)
	b.size += len(data)

	b.appends++
	if b.appends >= joinThreshold {
		b.collapseLocked()
	}
}

// String returns the retained output, marker included when truncated.
func (b *BoundedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.collapseLocked()
	if len(b.chunks) == 0 {
		return ""
	}
	return b.chunks[0]
}

// Len returns the retained size in bytes, marker included.
func (b *BoundedBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Truncated reports whether the cap was ever hit.
func (b *BoundedBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}

// Flush collapses the chunk list to a single chunk. Called once on
// session exit so the final read is a plain string copy.
func (b *BoundedBuffer) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.collapseLocked()
}

func (b *BoundedBuffer) collapseLocked() {
	if len(b.chunks) > 1 {
		b.chunks = []string{strings.Join(b.chunks, "")}
	}
	b.appends = 0
}
