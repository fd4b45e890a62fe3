package log

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// RawLogger records every HID report handed to the transport.
type RawLogger interface {
	Log(link string, report string, data []byte)
}

type rawLogger struct {
	w   io.Writer
	mu  sync.Mutex
	now func() time.Time
}

// NewRaw creates a RawLogger writing one line per report to w.
// A nil writer yields a logger that discards everything.
func NewRaw(w io.Writer) RawLogger {
	return &rawLogger{w: w, now: time.Now}
}

// Log writes a timestamped hex dump of data, e.g.
// "2026/01/02 15:04:05 AA:BB:CC:DD:EE:FF#1 movement 3 bytes: fb bf ff".
func (r *rawLogger) Log(link string, report string, data []byte) {
	if r.w == nil || len(data) == 0 {
		return
	}
	line := fmt.Sprintf("%s %s %s %d bytes: %s\n",
		r.now().Format("2006/01/02 15:04:05"), link, report, len(data), HexDump(data))

	r.mu.Lock()
	_, _ = io.WriteString(r.w, line)
	r.mu.Unlock()
}

// HexDump formats data as space separated lowercase hex pairs.
func HexDump(data []byte) string {
	const hexdigits = "0123456789abcdef"
	var sb strings.Builder
	sb.Grow(len(data) * 3)
	for i, b := range data {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteByte(hexdigits[b>>4])
		sb.WriteByte(hexdigits[b&0x0f])
	}
	return sb.String()
}
