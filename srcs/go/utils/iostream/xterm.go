package iostream

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/lsds/kungfu-ddp/srcs/go/utils/xterm"
)

var stdMu sync.Mutex

type prefixWriter struct {
	prefix string
	w      io.Writer
}

func (x prefixWriter) Write(bs []byte) (int, error) {
	stdMu.Lock()
	defer stdMu.Unlock()
	fmt.Fprintf(x.w, "[%s] %s", x.prefix, string(bs))
	return len(bs), nil
}

// NewXTermRedirector prefixes each line with the colored worker name.
func NewXTermRedirector(name string, c xterm.Color) *StdWriters {
	if c == nil {
		c = xterm.NoColor
	}
	return &StdWriters{
		Stdout: prefixWriter{
			prefix: c.S(name),
			w:      os.Stdout,
		},
		Stderr: prefixWriter{
			prefix: c.S(name) + "::" + xterm.Warn.S("stderr"),
			w:      os.Stderr,
		},
	}
}
