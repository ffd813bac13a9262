package peer

import (
	"context"
	"sync"
	"time"

	"github.com/lsds/kungfu-ddp/srcs/go/kungfu/config"
	"github.com/lsds/kungfu-ddp/srcs/go/kungfu/env"
	"github.com/lsds/kungfu-ddp/srcs/go/kungfu/execution"
	"github.com/lsds/kungfu-ddp/srcs/go/kungfu/session"
	"github.com/lsds/kungfu-ddp/srcs/go/log"
	"github.com/lsds/kungfu-ddp/srcs/go/plan"
	"github.com/lsds/kungfu-ddp/srcs/go/rchannel/client"
	"github.com/lsds/kungfu-ddp/srcs/go/rchannel/handler"
	"github.com/lsds/kungfu-ddp/srcs/go/rchannel/server"
	"github.com/lsds/kungfu-ddp/srcs/go/utils"
	"github.com/pkg/errors"
)

// Peer is this process's membership in the process group.
type Peer struct {
	sync.Mutex

	config *env.Config
	router *handler.Router
	client *client.Client
	server *server.Server

	currentSession *session.Session
}

func New(cfg *env.Config) *Peer {
	token := cfg.Token()
	router := handler.NewRouter()
	return &Peer{
		config: cfg,
		router: router,
		client: client.New(cfg.Self, token),
		server: server.New(cfg.Self, router, token),
	}
}

var ErrJoinTimeout = errors.New("timed out joining the process group")

// Start joins the group: it serves, waits for every peer to answer a ping, then
// runs a barrier. It gives up after the join timeout of the config.
func (p *Peer) Start(ctx context.Context) error {
	if config.EnableStallDetection {
		defer utils.InstallStallDetector("peer.Start", 3*time.Second).Stop()
	}
	ctx, cancel := context.WithTimeout(ctx, p.config.JoinTimeout)
	defer cancel()
	t0 := time.Now()
	if !p.config.Single() {
		if err := p.server.Start(); err != nil {
			return errors.Wrapf(err, "listen on %s", p.config.Self)
		}
	}
	sess, err := session.New(p.config.Strategy, p.config.Self, p.config.InitPeers, p.client, p.router.Collective)
	if err != nil {
		return err
	}
	var wait execution.PeerFunc = func(target plan.PeerID) error {
		n, ok := p.client.Wait(ctx, target)
		if !ok {
			return errors.Errorf("#<%s> unreachable after %d pings", target, n)
		}
		if n > 0 {
			log.Debugf("#<%s> is up after pinged %d times", target, n+1)
		}
		return nil
	}
	if err := wait.Par(p.others()); err != nil {
		return errors.Wrapf(ErrJoinTimeout, "%v", err)
	}
	if err := sess.BarrierContext(ctx); err != nil {
		if ctx.Err() != nil {
			return errors.Wrapf(ErrJoinTimeout, "after %s: %v", time.Since(t0), err)
		}
		return errors.Wrap(err, "join barrier")
	}
	log.Debugf("joined %s after %s", utils.Pluralize(sess.Size(), "peer", "peers"), time.Since(t0))
	p.Lock()
	p.currentSession = sess
	p.Unlock()
	return nil
}

func (p *Peer) others() plan.PeerList {
	var ps plan.PeerList
	for _, q := range p.config.InitPeers {
		if q != p.config.Self {
			ps = append(ps, q)
		}
	}
	return ps
}

// CurrentSession returns the session created by Start, or nil before it.
func (p *Peer) CurrentSession() *session.Session {
	p.Lock()
	defer p.Unlock()
	return p.currentSession
}

func (p *Peer) Close() error {
	p.server.Close()
	return p.client.Close()
}
