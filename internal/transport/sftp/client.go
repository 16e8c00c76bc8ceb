// Package sftp delivers export files to the remote ERP drop folder.
package sftp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"time"

	sftpgo "github.com/pkg/sftp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"

	"github.com/mct-integration/orderbridge/internal/config"
)

// Uploader writes one file into the configured remote folder.
type Uploader interface {
	Upload(ctx context.Context, filename string, data []byte) error
}

// Module provides the SFTP uploader to Fx.
var Module = fx.Provide(NewClient)

// Client dials the drop folder per upload. Send cycles are minutes apart, so
// holding a connection open between them buys nothing.
type Client struct {
	cfg    config.SFTP
	logger *zap.Logger
}

// NewClient builds an SFTP uploader from configuration.
func NewClient(cfg config.Config, logger *zap.Logger) (Uploader, error) {
	return &Client{cfg: cfg.SFTP, logger: logger}, nil
}

// Upload connects, ensures the target folder exists, and writes the file.
func (c *Client) Upload(ctx context.Context, filename string, data []byte) error {
	if c.cfg.Host == "" {
		return errors.New("sftp host not configured")
	}
	if filename == "" {
		return errors.New("empty filename")
	}

	sshClient, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("dial sftp: %w", err)
	}
	defer sshClient.Close()

	client, err := sftpgo.NewClient(sshClient)
	if err != nil {
		return fmt.Errorf("open sftp session: %w", err)
	}
	defer client.Close()

	remote := filename
	if c.cfg.FolderPath != "" {
		if err := client.MkdirAll(c.cfg.FolderPath); err != nil {
			return fmt.Errorf("ensure remote folder %s: %w", c.cfg.FolderPath, err)
		}
		remote = path.Join(c.cfg.FolderPath, filename)
	}

	f, err := client.Create(remote)
	if err != nil {
		return fmt.Errorf("create %s: %w", remote, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", remote, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", remote, err)
	}

	c.logger.Info("uploaded export file",
		zap.String("file", remote),
		zap.Int("bytes", len(data)))

	return nil
}

func (c *Client) dial(ctx context.Context) (*ssh.Client, error) {
	auth, err := c.authMethods()
	if err != nil {
		return nil, err
	}

	timeout := c.cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	sshCfg := &ssh.ClientConfig{
		User:            c.cfg.User,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}

	addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)
	return ssh.Dial("tcp", addr, sshCfg)
}

func (c *Client) authMethods() ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if c.cfg.PrivateKeyFile != "" {
		key, err := os.ReadFile(c.cfg.PrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read private key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if c.cfg.Password != "" {
		methods = append(methods, ssh.Password(c.cfg.Password))
	}
	if len(methods) == 0 {
		return nil, errors.New("no sftp credentials configured")
	}
	return methods, nil
}
