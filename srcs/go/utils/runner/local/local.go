package local

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/lsds/kungfu-ddp/srcs/go/log"
	"github.com/lsds/kungfu-ddp/srcs/go/proc"
	"github.com/lsds/kungfu-ddp/srcs/go/utils/iostream"
	"github.com/lsds/kungfu-ddp/srcs/go/utils/xterm"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

type Runner struct {
	Name          string
	Color         xterm.Color
	LogDir        string
	LogFilePrefix string
	VerboseLog    bool
}

func (r Runner) defaultRedirectors() []*iostream.StdWriters {
	var redirectors []*iostream.StdWriters
	if r.VerboseLog {
		redirectors = append(redirectors, iostream.NewXTermRedirector(r.Name, r.Color))
	}
	if len(r.LogFilePrefix) > 0 {
		redirectors = append(redirectors, iostream.NewFileRedirector(filepath.Join(r.LogDir, r.LogFilePrefix)))
	}
	return redirectors
}

// Run starts cmd and waits for it. The process is killed when ctx is done.
func (r Runner) Run(ctx context.Context, cmd *exec.Cmd) error {
	return runWith(ctx, r.defaultRedirectors(), cmd)
}

func runWith(ctx context.Context, redirectors []*iostream.StdWriters, cmd *exec.Cmd) error {
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}
	results := iostream.StdReaders{Stdout: stdout, Stderr: stderr}
	if err := cmd.Start(); err != nil {
		return err
	}
	ioDone := results.Stream(redirectors...)
	done := make(chan error, 1)
	go func() {
		// pipes must be drained before cmd.Wait closes them
		if err := ioDone.Wait(); err != nil {
			log.Warnf("reading output of %s: %v", cmd.Path, err)
		}
		done <- cmd.Wait()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		cmd.Process.Kill()
		<-done
		return ctx.Err()
	}
}

// RunAll runs every process and waits for all of them. The first failure
// kills the remaining processes.
func RunAll(ctx context.Context, ps []proc.Proc, verboseLog bool) error {
	g, ctx := errgroup.WithContext(ctx)
	var fail int32
	for i, p := range ps {
		i, p := i, p
		g.Go(func() error {
			r := &Runner{
				Name:          p.Name,
				Color:         xterm.WorkerColors.Choose(i),
				VerboseLog:    verboseLog,
				LogFilePrefix: strings.Replace(p.Name, "/", "-", -1),
				LogDir:        p.LogDir,
			}
			t0 := time.Now()
			if err := r.Run(ctx, p.Cmd()); err != nil {
				log.Errorf("#<%s> exited with error: %v, took %s", p.Name, err, time.Since(t0))
				atomic.AddInt32(&fail, 1)
				return errors.Wrapf(err, "#<%s>", p.Name)
			}
			log.Debugf("#<%s> finished successfully, took %s", p.Name, time.Since(t0))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrapf(err, "%d tasks failed", atomic.LoadInt32(&fail))
	}
	return nil
}
