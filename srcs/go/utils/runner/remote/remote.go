package remote

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/lsds/kungfu-ddp/srcs/go/log"
	"github.com/lsds/kungfu-ddp/srcs/go/proc"
	"github.com/lsds/kungfu-ddp/srcs/go/utils/iostream"
	"github.com/lsds/kungfu-ddp/srcs/go/utils/ssh"
	"github.com/lsds/kungfu-ddp/srcs/go/utils/xterm"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// RemoteRunAll runs every process over ssh on its Hostname.
func RemoteRunAll(ctx context.Context, user string, ps []proc.Proc, verboseLog bool, logDir string) error {
	g, ctx := errgroup.WithContext(ctx)
	var fail int32
	for i, p := range ps {
		i, p := i, p
		g.Go(func() error {
			t0 := time.Now()
			config := ssh.Config{
				Host: p.Hostname,
				User: user,
			}
			client, err := ssh.New(config)
			if err != nil {
				log.Errorf("#<%s> failed to new SSH Client with config: %v: %v", p.Name, config, err)
				atomic.AddInt32(&fail, 1)
				return errors.Wrapf(err, "#<%s>", p.Name)
			}
			defer client.Close()
			var redirectors []*iostream.StdWriters
			if verboseLog {
				redirectors = append(redirectors, iostream.NewXTermRedirector(p.Name, xterm.WorkerColors.Choose(i)))
			}
			redirectors = append(redirectors, iostream.NewFileRedirector(filepath.Join(logDir, p.Name)))
			if err := client.Watch(ctx, p.Script(), redirectors); err != nil {
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
