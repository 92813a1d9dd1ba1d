package daemon

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"
)

// IPC command names.
const (
	CmdStatus  = "STATUS"
	CmdHealth  = "HEALTH"
	CmdRefresh = "REFRESH"
)

// SocketName is the socket file created in the state directory.
const SocketName = "pulse-bar.sock"

// IPCHandler processes incoming IPC commands.
type IPCHandler interface {
	HandleCommand(cmd string, args []string) (string, error)
}

// IPCServer listens on a Unix domain socket for line-based text commands
// and returns JSON responses.
//
// Protocol:
//   - Client sends a single line: COMMAND [arg ...]
//   - Server responds with one JSON line.
//   - Commands: STATUS, HEALTH, REFRESH
type IPCServer struct {
	socketPath string
	handler    IPCHandler
	listener   net.Listener
	wg         sync.WaitGroup
	done       chan struct{}
	stopOnce   sync.Once
}

// NewIPCServer creates an IPC server that will listen on socketPath and
// dispatch commands to handler.
func NewIPCServer(socketPath string, handler IPCHandler) *IPCServer {
	return &IPCServer{
		socketPath: socketPath,
		handler:    handler,
		done:       make(chan struct{}),
	}
}

// Start begins listening for connections on the Unix socket. The socket file
// is created with mode 0600. A stale socket at the path is removed first.
func (s *IPCServer) Start() error {
	os.Remove(s.socketPath)

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.socketPath, err)
	}

	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		ln.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}

	s.listener = ln

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop closes the listener, waits for active connections to finish, and
// removes the socket file.
func (s *IPCServer) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.listener != nil {
			s.listener.Close()
		}
		s.wg.Wait()
		os.Remove(s.socketPath)
	})
}

// Bounds of the pause after a failed Accept (for example EMFILE).
const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

func (s *IPCServer) acceptLoop() {
	defer s.wg.Done()

	var backoff time.Duration
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if backoff == 0 {
				backoff = minAcceptBackoff
			} else {
				backoff = min(2*backoff, maxAcceptBackoff)
			}
			t := time.NewTimer(backoff)
			select {
			case <-s.done:
				t.Stop()
				return
			case <-t.C:
				continue
			}
		}
		backoff = 0

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// handleConn reads one command line, dispatches it and writes the response.
func (s *IPCServer) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(5 * time.Second))

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return
	}

	line := strings.TrimSpace(scanner.Text())
	if line == "" {
		return
	}

	cmd, args := parseIPCCommand(line)

	response, err := s.handler.HandleCommand(cmd, args)
	if err != nil {
		data, _ := json.Marshal(map[string]string{"error": err.Error()})
		fmt.Fprintf(conn, "%s\n", data)
		return
	}

	// Non-JSON responses are sent as-is.
	if compacted, cerr := compactJSON(response); cerr == nil {
		response = compacted
	}

	fmt.Fprintf(conn, "%s\n", response)
}

// parseIPCCommand splits a command line into an upper-cased command name and
// its positional arguments.
func parseIPCCommand(line string) (string, []string) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return "", nil
	}
	return strings.ToUpper(parts[0]), parts[1:]
}

// IPCClient connects to a running daemon via Unix socket to send commands.
type IPCClient struct {
	socketPath string
	timeout    time.Duration
}

// NewIPCClient creates a client that will connect to the daemon at socketPath.
func NewIPCClient(socketPath string) *IPCClient {
	return &IPCClient{socketPath: socketPath, timeout: 5 * time.Second}
}

// SendCommand sends a text command to the daemon and returns the response
// line. Each call uses a fresh connection.
func (c *IPCClient) SendCommand(ctx context.Context, cmd string) (string, error) {
	var d net.Dialer
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return "", fmt.Errorf("connect to daemon: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if _, err := fmt.Fprintf(conn, "%s\n", cmd); err != nil {
		return "", fmt.Errorf("send command: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("read response: %w", err)
		}
		return "", fmt.Errorf("empty response from daemon")
	}

	return scanner.Text(), nil
}

// compactJSON removes whitespace from JSON to produce a single-line string
// suitable for line-based IPC transport.
func compactJSON(s string) (string, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(s)); err != nil {
		return "", err
	}
	return buf.String(), nil
}
