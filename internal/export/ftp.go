package export

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/url"
	"path"
	"time"

	"github.com/jlaffaye/ftp"
)

const ftpTimeout = 30 * time.Second

// FTPPublisher uploads export files to a directory on an FTP server.
type FTPPublisher struct {
	Addr     string
	User     string
	Password string
	Dir      string
	Timeout  time.Duration
}

// ParseFTPURL reads ftp://[user[:password]@]host[:port][/dir]. Without
// credentials the anonymous account is used.
func ParseFTPURL(raw string) (*FTPPublisher, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse ftp url: %w", err)
	}
	if u.Scheme != "ftp" {
		return nil, fmt.Errorf("parse ftp url: unsupported scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("parse ftp url: missing host")
	}
	p := &FTPPublisher{Addr: u.Host, User: "anonymous", Password: "anonymous", Dir: u.Path, Timeout: ftpTimeout}
	if u.Port() == "" {
		p.Addr = u.Host + ":21"
	}
	if u.User != nil {
		p.User = u.User.Username()
		p.Password, _ = u.User.Password()
	}
	if p.Dir == "" {
		p.Dir = "/"
	}
	return p, nil
}

// Publish stores data as name in the publisher's directory and returns the
// remote path.
func (p *FTPPublisher) Publish(ctx context.Context, name string, data []byte) (string, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = ftpTimeout
	}
	conn, err := ftp.Dial(p.Addr, ftp.DialWithTimeout(timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("ftp dial: %w", err)
	}
	defer conn.Quit()

	if err := conn.Login(p.User, p.Password); err != nil {
		return "", fmt.Errorf("ftp login: %w", err)
	}

	remote := path.Join(p.Dir, name)
	if err := conn.Stor(remote, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("ftp stor %s: %w", remote, err)
	}
	log.Printf("export: published %s (%d bytes) to %s", remote, len(data), p.Addr)
	return remote, nil
}
