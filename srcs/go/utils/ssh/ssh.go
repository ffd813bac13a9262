// Package ssh runs worker commands on remote hosts over golang.org/x/crypto/ssh.
package ssh

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/lsds/kungfu-ddp/srcs/go/utils/iostream"
	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
)

var defaultTimeout = 8 * time.Second

// Config is a pair of user and host
type Config struct {
	User string
	Host string
}

func withDefaultPort(host string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, "22")
}

func withDefaultUser(name string) string {
	if len(name) == 0 {
		if u, err := user.Current(); err == nil {
			return u.Username
		}
	}
	return name
}

func (c Config) complete() Config {
	return Config{
		User: withDefaultUser(c.User),
		Host: withDefaultPort(c.Host),
	}
}

// Client is a wrapper for ssh.Client
type Client struct {
	config Config
	client *ssh.Client
}

// New dials cfg.Host with the key at ~/.ssh/id_rsa.
func New(cfg Config) (*Client, error) {
	cfg = cfg.complete()
	key, err := defaultKey()
	if err != nil {
		return nil, errors.Wrap(err, "load ssh key")
	}
	client, err := ssh.Dial("tcp", cfg.Host, &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(key)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         defaultTimeout,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", cfg.Host)
	}
	return &Client{config: cfg, client: client}, nil
}

func (c *Client) String() string {
	return fmt.Sprintf("%s@%s", c.config.User, c.config.Host)
}

// Watch runs cmd remotely and streams its output into redirectors.
func (c *Client) Watch(ctx context.Context, cmd string, redirectors []*iostream.StdWriters) error {
	session, err := c.client.NewSession()
	if err != nil {
		return err
	}
	defer session.Close()
	stdout, err := session.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := session.StderrPipe()
	if err != nil {
		return err
	}
	// A pty makes the remote process receive SIGHUP when the session closes.
	if err := session.RequestPty("xterm", 80, 40, nil); err != nil {
		return err
	}
	results := iostream.StdReaders{Stdout: stdout, Stderr: stderr}
	ioDone := results.Stream(redirectors...)
	if err := session.Start(cmd); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		ioDone.Wait()
		done <- session.Wait()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		session.Signal(ssh.SIGTERM)
		return ctx.Err()
	}
}

func defaultKey() (ssh.Signer, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	buf, err := os.ReadFile(filepath.Join(home, ".ssh", "id_rsa"))
	if err != nil {
		return nil, err
	}
	return ssh.ParsePrivateKey(buf)
}

func (c *Client) Close() error {
	return c.client.Close()
}
