package mpv

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	ipcAttempts = 3
	ipcDelay    = 100 * time.Millisecond
	ipcTimeout  = time.Second
)

var errPropertyUnavailable = errors.New("property unavailable")

type ipcRequest struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

type ipcResponse struct {
	Data      any    `json:"data"`
	Error     string `json:"error"`
	RequestID int64  `json:"request_id"`
	Event     string `json:"event"`
}

// ipcClient sends newline-delimited JSON commands to the mpv IPC socket, one
// connection per command. Calls are serialized.
type ipcClient struct {
	socketPath string
	attempts   uint
	delay      time.Duration
	timeout    time.Duration

	mu     sync.Mutex
	nextID int64
}

func newIPCClient(socketPath string) *ipcClient {
	return &ipcClient{
		socketPath: socketPath,
		attempts:   ipcAttempts,
		delay:      ipcDelay,
		timeout:    ipcTimeout,
	}
}

// command runs one IPC command. Transport errors are retried; errors
// reported by mpv are not.
func (c *ipcClient) command(args ...any) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID

	var data any
	err := retry.Do(
		func() error {
			d, err := c.roundTrip(id, args)
			if err != nil {
				return err
			}
			data = d
			return nil
		},
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("ipc %v: %w", args[0], err)
	}
	return data, nil
}

func (c *ipcClient) roundTrip(id int64, args []any) (any, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	payload, err := json.Marshal(ipcRequest{Command: args, RequestID: id})
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("marshal: %w", err))
	}
	if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}
	if _, err := conn.Write(append(payload, '\n')); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	// mpv interleaves events with replies
	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		var resp ipcResponse
		if err := json.Unmarshal(sc.Bytes(), &resp); err != nil {
			return nil, retry.Unrecoverable(fmt.Errorf("unmarshal: %w", err))
		}
		if resp.Event != "" || resp.RequestID != id {
			continue
		}
		switch resp.Error {
		case "", "success":
			return resp.Data, nil
		case errPropertyUnavailable.Error():
			return nil, retry.Unrecoverable(errPropertyUnavailable)
		default:
			return nil, retry.Unrecoverable(fmt.Errorf("mpv error: %s", resp.Error))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return nil, errors.New("read: connection closed")
}
