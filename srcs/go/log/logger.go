// Package log is the leveled logger used across the runtime. It keeps the
// printf-style call sites of the original logger and writes through klog.
package log

import (
	"flag"
	"fmt"
	"io"

	"github.com/lsds/kungfu-ddp/srcs/go/kungfu/config"
	"k8s.io/klog/v2"
)

type Level int32

const (
	Debug Level = iota
	Info
	Warn
	Error
)

const debugVerbosity klog.Level = 1

var flags = flag.NewFlagSet("klog", flag.ContinueOnError)

func init() {
	klog.InitFlags(flags)
	if config.LogLevel == `DEBUG` {
		SetLevel(Debug)
	}
}

// SetLevel only distinguishes Debug from the rest, klog always emits Info and above.
func SetLevel(l Level) {
	v := "0"
	if l <= Debug {
		v = fmt.Sprint(int(debugVerbosity))
	}
	flags.Set("v", v)
}

// SetOutput redirects all severities to w instead of stderr.
func SetOutput(w io.Writer) {
	flags.Set("logtostderr", "false")
	flags.Set("alsologtostderr", "false")
	flags.Set("one_output", "true")
	klog.SetOutput(w)
}

func Debugf(format string, v ...interface{}) {
	if klog.V(debugVerbosity).Enabled() {
		klog.InfoDepth(1, fmt.Sprintf(format, v...))
	}
}

func Infof(format string, v ...interface{}) {
	klog.InfoDepth(1, fmt.Sprintf(format, v...))
}

func Warnf(format string, v ...interface{}) {
	klog.WarningDepth(1, fmt.Sprintf(format, v...))
}

func Errorf(format string, v ...interface{}) {
	klog.ErrorDepth(1, fmt.Sprintf(format, v...))
}

// Exitf logs at error level, flushes and exits with status 1.
func Exitf(format string, v ...interface{}) {
	klog.ExitDepth(1, fmt.Sprintf(format, v...))
}

func Flush() {
	klog.Flush()
}
