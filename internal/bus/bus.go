// Package bus is the control channel between the CLI and the daemon: a unix
// socket carrying single-byte commands, plus the daemon pid file.
package bus

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const SockName = "control.sock"
const PidName = "voxbridge.pid"
const ProtoVer = "0.2"

const dirName = "voxbridge"

// Commands understood by the daemon. Each is sent as the byte followed by a
// newline and answered with one line.
const (
	CmdToggle  byte = 't'
	CmdCancel  byte = 'c'
	CmdStatus  byte = 's'
	CmdReplay  byte = 'p'
	CmdSwap    byte = 'w'
	CmdVersion byte = 'v'
	CmdQuit    byte = 'q'
	CmdReset   byte = 'r'
	// CmdHistory is answered with a STATUS line carrying a JSON array.
	CmdHistory      byte = 'h'
	CmdClearHistory byte = 'H'
)

// Reply prefixes.
const (
	ReplyOK     = "OK"
	ReplyStatus = "STATUS"
	ReplyErr    = "ERR"
)

const replyTimeout = 10 * time.Second

type socketManager struct {
	path string
}

type pidManager struct {
	path string
}

func runtimeDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, dirName), nil
}

func getSockPath() (string, error) {
	dir, err := runtimeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SockName), nil
}

func getPidPath() (string, error) {
	dir, err := runtimeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, PidName), nil
}

// SockPath is ~/.cache/voxbridge/control.sock.
func SockPath() (string, error) {
	return getSockPath()
}

// PidPath is ~/.cache/voxbridge/voxbridge.pid.
func PidPath() (string, error) {
	return getPidPath()
}

func newSocketManager() (*socketManager, error) {
	p, err := getSockPath()
	if err != nil {
		return nil, err
	}
	return &socketManager{path: p}, nil
}

func newPidManager() (*pidManager, error) {
	p, err := getPidPath()
	if err != nil {
		return nil, err
	}
	return &pidManager{path: p}, nil
}

func (s *socketManager) listen() (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return nil, err
	}
	_ = os.Remove(s.path) // stale socket from last run
	return net.Listen("unix", s.path)
}

func (s *socketManager) dial() (net.Conn, error) {
	return net.Dial("unix", s.path)
}

func (s *socketManager) send(cmd byte) (string, error) {
	c, err := s.dial()
	if err != nil {
		return "", err
	}
	defer c.Close()

	_ = c.SetDeadline(time.Now().Add(replyTimeout))
	if _, err := c.Write([]byte{cmd, '\n'}); err != nil {
		return "", err
	}
	return bufio.NewReader(c).ReadString('\n')
}

func (p *pidManager) create() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(p.path, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

func (p *pidManager) remove() error {
	err := os.Remove(p.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// checkExisting fails when the pid file names a live process. Stale and
// unreadable pid files are removed.
func (p *pidManager) checkExisting() error {
	data, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		_ = os.Remove(p.path)
		return nil
	}
	if !p.isProcessAlive(pid) {
		_ = os.Remove(p.path)
		return nil
	}
	return fmt.Errorf("daemon already running with PID %d", pid)
}

func (p *pidManager) isProcessAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	// EPERM means the process exists but belongs to someone else.
	return err == nil || err == syscall.EPERM
}

func Listen() (net.Listener, error) {
	sm, err := newSocketManager()
	if err != nil {
		return nil, err
	}
	return sm.listen()
}

func Dial() (net.Conn, error) {
	sm, err := newSocketManager()
	if err != nil {
		return nil, err
	}
	return sm.dial()
}

// SendCommand sends cmd to the running daemon and returns its reply line.
func SendCommand(cmd byte) (string, error) {
	sm, err := newSocketManager()
	if err != nil {
		return "", err
	}
	return sm.send(cmd)
}

// ParseReply splits a reply line into its prefix and payload. ERR replies
// come back as an error.
func ParseReply(line string) (kind, payload string, err error) {
	line = strings.TrimRight(line, "\n")
	kind, payload, _ = strings.Cut(line, " ")
	switch kind {
	case ReplyOK, ReplyStatus:
		return kind, payload, nil
	case ReplyErr:
		return kind, payload, fmt.Errorf("daemon: %s", payload)
	default:
		return kind, payload, fmt.Errorf("daemon: unexpected reply %q", line)
	}
}

func CheckExistingDaemon() error {
	pm, err := newPidManager()
	if err != nil {
		return err
	}
	return pm.checkExisting()
}

func CreatePidFile() error {
	pm, err := newPidManager()
	if err != nil {
		return err
	}
	return pm.create()
}

func RemovePidFile() error {
	pm, err := newPidManager()
	if err != nil {
		return err
	}
	return pm.remove()
}
