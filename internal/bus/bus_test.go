package bus

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// isolate points the runtime directory at a temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", dir)
	return dir
}

func TestPidManager(t *testing.T) {
	pm := &pidManager{path: filepath.Join(t.TempDir(), PidName)}

	t.Run("create and remove", func(t *testing.T) {
		if err := pm.create(); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		data, err := os.ReadFile(pm.path)
		if err != nil {
			t.Fatalf("read pid file: %v", err)
		}
		if string(data) != strconv.Itoa(os.Getpid()) {
			t.Errorf("pid file contains %q", data)
		}
		if err := pm.remove(); err != nil {
			t.Fatalf("remove failed: %v", err)
		}
		if _, err := os.Stat(pm.path); !os.IsNotExist(err) {
			t.Error("pid file should be gone")
		}
		if err := pm.remove(); err != nil {
			t.Errorf("removing a missing pid file should not fail: %v", err)
		}
	})

	tests := []struct {
		name     string
		content  string
		wantErr  bool
		wantKept bool
	}{
		{"no pid file", "", false, false},
		{"live process", strconv.Itoa(os.Getpid()), true, true},
		{"stale pid", "999999", false, false},
		{"garbage", "not-a-pid", false, false},
		{"negative pid", "-4", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_ = os.Remove(pm.path)
			if tt.content != "" {
				if err := os.WriteFile(pm.path, []byte(tt.content), 0o600); err != nil {
					t.Fatal(err)
				}
			}
			err := pm.checkExisting()
			if (err != nil) != tt.wantErr {
				t.Fatalf("checkExisting() error = %v, wantErr %v", err, tt.wantErr)
			}
			_, statErr := os.Stat(pm.path)
			if kept := statErr == nil; kept != tt.wantKept {
				t.Errorf("pid file kept = %v, want %v", kept, tt.wantKept)
			}
		})
	}
}

func TestIsProcessAlive(t *testing.T) {
	pm := &pidManager{}
	if !pm.isProcessAlive(os.Getpid()) {
		t.Error("current process should be alive")
	}
	if pm.isProcessAlive(999999) {
		t.Error("pid 999999 should not be alive")
	}
}

// serve answers each command with the reply from replies, or ERR.
func serve(t *testing.T, ln net.Listener, replies map[byte]string) {
	t.Helper()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				line, err := bufio.NewReader(c).ReadString('\n')
				if err != nil || len(line) < 1 {
					return
				}
				if r, ok := replies[line[0]]; ok {
					fmt.Fprint(c, r+"\n")
					return
				}
				fmt.Fprintf(c, "ERR unknown=%q\n", line[0])
			}(c)
		}
	}()
}

func TestSocketManager(t *testing.T) {
	sm := &socketManager{path: filepath.Join(t.TempDir(), SockName)}

	t.Run("dial without listener", func(t *testing.T) {
		if _, err := sm.dial(); err == nil {
			t.Error("dial should fail when nothing listens")
		}
	})

	t.Run("send", func(t *testing.T) {
		ln, err := sm.listen()
		if err != nil {
			t.Fatalf("listen failed: %v", err)
		}
		defer ln.Close()
		serve(t, ln, map[byte]string{
			CmdToggle:  "OK recording",
			CmdVersion: "STATUS proto=" + ProtoVer,
		})

		tests := []struct {
			cmd  byte
			want string
		}{
			{CmdToggle, "OK recording\n"},
			{CmdVersion, "STATUS proto=" + ProtoVer + "\n"},
			{'x', "ERR unknown='x'\n"},
		}
		for _, tt := range tests {
			got, err := sm.send(tt.cmd)
			if err != nil {
				t.Fatalf("send(%c) failed: %v", tt.cmd, err)
			}
			if got != tt.want {
				t.Errorf("send(%c) = %q, want %q", tt.cmd, got, tt.want)
			}
		}
	})

	t.Run("listen replaces stale socket", func(t *testing.T) {
		if err := os.WriteFile(sm.path, []byte("stale"), 0o600); err != nil {
			t.Fatal(err)
		}
		ln, err := sm.listen()
		if err != nil {
			t.Fatalf("listen over stale socket failed: %v", err)
		}
		ln.Close()
	})
}

func TestParseReply(t *testing.T) {
	tests := []struct {
		line        string
		wantKind    string
		wantPayload string
		wantErr     bool
	}{
		{"OK recording\n", ReplyOK, "recording", false},
		{"STATUS {\"state\":\"idle\"}\n", ReplyStatus, "{\"state\":\"idle\"}", false},
		{"OK\n", ReplyOK, "", false},
		{"ERR busy\n", ReplyErr, "busy", true},
		{"HELLO\n", "HELLO", "", true},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.line), func(t *testing.T) {
			kind, payload, err := ParseReply(tt.line)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseReply() error = %v, wantErr %v", err, tt.wantErr)
			}
			if kind != tt.wantKind || payload != tt.wantPayload {
				t.Errorf("ParseReply() = %q, %q", kind, payload)
			}
		})
	}
}

func TestPaths(t *testing.T) {
	dir := isolate(t)

	sp, err := SockPath()
	if err != nil {
		t.Fatalf("SockPath failed: %v", err)
	}
	if sp != filepath.Join(dir, "voxbridge", SockName) {
		t.Errorf("SockPath = %s", sp)
	}

	pp, err := PidPath()
	if err != nil {
		t.Fatalf("PidPath failed: %v", err)
	}
	if pp != filepath.Join(dir, "voxbridge", PidName) {
		t.Errorf("PidPath = %s", pp)
	}
}

func TestPublicAPI(t *testing.T) {
	isolate(t)

	if err := CheckExistingDaemon(); err != nil {
		t.Errorf("CheckExistingDaemon with no pid file: %v", err)
	}
	if err := CreatePidFile(); err != nil {
		t.Fatalf("CreatePidFile failed: %v", err)
	}
	if err := CheckExistingDaemon(); err == nil {
		t.Error("CheckExistingDaemon should see this process")
	}
	if err := RemovePidFile(); err != nil {
		t.Fatalf("RemovePidFile failed: %v", err)
	}

	if _, err := SendCommand(CmdStatus); err == nil {
		t.Error("SendCommand should fail without a daemon")
	}

	ln, err := Listen()
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer ln.Close()
	serve(t, ln, map[byte]string{CmdSwap: "OK en -> fr"})

	got, err := SendCommand(CmdSwap)
	if err != nil {
		t.Fatalf("SendCommand failed: %v", err)
	}
	if got != "OK en -> fr\n" {
		t.Errorf("SendCommand = %q", got)
	}
}
