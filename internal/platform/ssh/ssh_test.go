package ssh

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// generateTestKey returns a PEM encoded ed25519 private key.
func generateTestKey(t *testing.T) []byte {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	block, err := ssh.MarshalPrivateKey(priv, "")
	require.NoError(t, err)
	return pem.EncodeToMemory(block)
}

// execResult is what the fake server answers to an exec request.
type execResult struct {
	output string
	status uint32
}

// fakeServer is a minimal SSH server that records exec requests.
type fakeServer struct {
	listener net.Listener
	config   *ssh.ServerConfig
	respond  func(command string, stdin []byte) execResult

	mu       sync.Mutex
	commands []string
	stdins   [][]byte
	conns    int
}

func newFakeServer(t *testing.T, respond func(command string, stdin []byte) execResult) *fakeServer {
	t.Helper()

	_, hostKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	hostSigner, err := ssh.NewSignerFromKey(hostKey)
	require.NoError(t, err)

	config := &ssh.ServerConfig{
		PublicKeyCallback: func(ssh.ConnMetadata, ssh.PublicKey) (*ssh.Permissions, error) {
			return &ssh.Permissions{}, nil
		},
	}
	config.AddHostKey(hostSigner)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &fakeServer{listener: listener, config: config, respond: respond}
	go s.serve()
	t.Cleanup(func() { _ = listener.Close() })
	return s
}

func (s *fakeServer) port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

func (s *fakeServer) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *fakeServer) handleConn(nc net.Conn) {
	_, chans, reqs, err := ssh.NewServerConn(nc, s.config)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conns++
	s.mu.Unlock()

	go ssh.DiscardRequests(reqs)
	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			_ = newChannel.Reject(ssh.UnknownChannelType, "unsupported")
			continue
		}
		channel, requests, err := newChannel.Accept()
		if err != nil {
			continue
		}
		go s.handleSession(channel, requests)
	}
}

func (s *fakeServer) handleSession(channel ssh.Channel, requests <-chan *ssh.Request) {
	defer func() { _ = channel.Close() }()
	for req := range requests {
		if req.Type != "exec" {
			_ = req.Reply(false, nil)
			continue
		}
		var payload struct{ Command string }
		if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
			_ = req.Reply(false, nil)
			return
		}
		_ = req.Reply(true, nil)

		stdin, _ := io.ReadAll(channel)
		s.mu.Lock()
		s.commands = append(s.commands, payload.Command)
		s.stdins = append(s.stdins, stdin)
		s.mu.Unlock()

		result := s.respond(payload.Command, stdin)
		_, _ = channel.Write([]byte(result.output))
		_, _ = channel.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{result.status}))
		return
	}
}

func (s *fakeServer) recorded() ([]string, [][]byte, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...), append([][]byte(nil), s.stdins...), s.conns
}

func newTestClient(t *testing.T, s *fakeServer, sudo bool) *Client {
	t.Helper()
	client, err := NewClient(&Config{
		Host:       "127.0.0.1",
		Port:       s.port(),
		User:       "deploy",
		PrivateKey: generateTestKey(t),
		Sudo:       sudo,
		MaxRetries: 1,
		RetryDelay: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewClient_Defaults(t *testing.T) {
	t.Parallel()

	client, err := NewClient(&Config{
		Host:       "192.0.2.10",
		User:       "root",
		PrivateKey: generateTestKey(t),
	})

	require.NoError(t, err)
	assert.Equal(t, defaultPort, client.config.Port)
	assert.Equal(t, defaultDialTimeout, client.config.DialTimeout)
	assert.Equal(t, defaultMaxRetries, client.config.MaxRetries)
	assert.Equal(t, defaultRetryDelay, client.config.RetryDelay)
	assert.NotNil(t, client.config.HostKeyCallback)
	assert.Equal(t, "192.0.2.10:22", client.Address())
}

func TestNewClient_DoesNotMutateConfig(t *testing.T) {
	t.Parallel()

	cfg := &Config{Host: "192.0.2.10", User: "root", PrivateKey: generateTestKey(t)}
	_, err := NewClient(cfg)

	require.NoError(t, err)
	assert.Zero(t, cfg.Port)
	assert.Nil(t, cfg.HostKeyCallback)
}

func TestNewClient_Errors(t *testing.T) {
	t.Parallel()
	key := generateTestKey(t)

	tests := []struct {
		name    string
		cfg     *Config
		wantErr string
	}{
		{name: "nil config", cfg: nil, wantErr: "config cannot be nil"},
		{name: "empty host", cfg: &Config{User: "root", PrivateKey: key}, wantErr: "config host cannot be empty"},
		{name: "empty user", cfg: &Config{Host: "h", PrivateKey: key}, wantErr: "config user cannot be empty"},
		{name: "empty key", cfg: &Config{Host: "h", User: "root"}, wantErr: "config private key cannot be empty"},
		{name: "invalid key", cfg: &Config{Host: "h", User: "root", PrivateKey: []byte("invalid key")}, wantErr: "failed to parse private key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewClient(tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestClient_Execute(t *testing.T) {
	t.Parallel()
	server := newFakeServer(t, func(string, []byte) execResult {
		return execResult{output: "ok\n"}
	})
	client := newTestClient(t, server, false)

	out, err := client.Execute(context.Background(), "uptime")
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)

	_, err = client.Execute(context.Background(), "hostname")
	require.NoError(t, err)

	commands, _, conns := server.recorded()
	assert.Equal(t, []string{"uptime", "hostname"}, commands)
	assert.Equal(t, 1, conns, "connection is reused")
}

func TestClient_Execute_Sudo(t *testing.T) {
	t.Parallel()
	server := newFakeServer(t, func(string, []byte) execResult { return execResult{} })
	client := newTestClient(t, server, true)

	_, err := client.Execute(context.Background(), "echo 'hi'")
	require.NoError(t, err)

	commands, _, _ := server.recorded()
	require.Len(t, commands, 1)
	assert.Equal(t, `sudo -n sh -c 'echo '"'"'hi'"'"''`, commands[0])
}

func TestClient_Execute_NonZeroExit(t *testing.T) {
	t.Parallel()
	server := newFakeServer(t, func(string, []byte) execResult {
		return execResult{output: "boom", status: 2}
	})
	client := newTestClient(t, server, false)

	out, err := client.Execute(context.Background(), "false")

	require.Error(t, err)
	assert.Equal(t, "boom", out)
	assert.Contains(t, err.Error(), "command failed on 127.0.0.1")
	var exitErr *ssh.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.ExitStatus())
}

func TestClient_Upload(t *testing.T) {
	t.Parallel()
	server := newFakeServer(t, func(string, []byte) execResult { return execResult{} })
	client := newTestClient(t, server, false)

	err := client.Upload(context.Background(), "/etc/tradefleet/monitor.env", []byte("PORT=9100\n"), 0o640)
	require.NoError(t, err)

	commands, stdins, _ := server.recorded()
	require.Len(t, commands, 1)
	assert.Equal(t, "umask 077 && cat > '/etc/tradefleet/monitor.env' && chmod 0640 '/etc/tradefleet/monitor.env'", commands[0])
	assert.Equal(t, "PORT=9100\n", string(stdins[0]))
}

func TestClient_ConnectFailure(t *testing.T) {
	t.Parallel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	client, err := NewClient(&Config{
		Host:        "127.0.0.1",
		Port:        port,
		User:        "deploy",
		PrivateKey:  generateTestKey(t),
		MaxRetries:  1,
		RetryDelay:  time.Millisecond,
		DialTimeout: time.Second,
	})
	require.NoError(t, err)

	_, err = client.Execute(context.Background(), "uptime")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to establish SSH connection to 127.0.0.1:"+strconv.Itoa(port))
}

func TestClient_CloseWithoutConnection(t *testing.T) {
	t.Parallel()
	client, err := NewClient(&Config{Host: "h", User: "root", PrivateKey: generateTestKey(t)})
	require.NoError(t, err)
	assert.NoError(t, client.Close())
}

func TestLoadPrivateKey(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".ssh"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".ssh", "id_ed25519"), []byte("key"), 0o600))

	data, err := LoadPrivateKey("~/.ssh/id_ed25519")
	require.NoError(t, err)
	assert.Equal(t, "key", string(data))

	_, err = LoadPrivateKey(filepath.Join(home, "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read private key")
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/deploy")

	tests := map[string]string{
		"~":              "/home/deploy",
		"~/.ssh/id":      "/home/deploy/.ssh/id",
		"/keys/id":       "/keys/id",
		"relative/id":    "relative/id",
		"~other/.ssh/id": "~other/.ssh/id",
	}
	for in, want := range tests {
		got, err := ExpandHome(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}

func TestQuote(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "'plain'", Quote("plain"))
	assert.Equal(t, `'it'"'"'s'`, Quote("it's"))
}
