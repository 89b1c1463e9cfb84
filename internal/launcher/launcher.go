// Package launcher starts and reaches the background RPC daemon, the Go
// analogue of original_source/src/rpc/launcher.rs and fs_launcher.rs: a
// thin CLI command execs a detached daemon process and hands it the
// normalized password over an environment variable rather than a pipe or
// socket, then polls until the daemon answers.
package launcher

import (
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"github.com/cicero-ai/nyx/internal/nyxerr"
)

var log = logging.Logger("nyx-launcher")

// hashEnv and dbfileEnv are the handoff variables set only in the spawned
// child's environment, the analogue of NYX_LAUNCH_HASH/NYX_LAUNCH_DBFILE.
const (
	hashEnv   = "NYX_LAUNCH_HASH"
	dbfileEnv = "NYX_LAUNCH_DBFILE"
)

// passthroughFlags is the whitelist of flags launcher.rs forwards from the
// parent invocation to the spawned daemon child.
var passthroughFlags = map[string]bool{
	"-f": true, "--dbfile": true,
	"-h": true, "--host": true,
	"-p": true, "--port": true,
	"-t": true, "--timeout": true,
	"-c": true, "--cb-timeout": true,
	"-m": true, "--mount-dir": true,
}

// Ping reports whether a daemon is already listening on host:port, the
// analogue of launcher.rs's ping().
func Ping(host string, port uint16) bool {
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Launch spawns a detached daemon child bound to host:port, handing it
// dbfile and the normalized password over the environment, then blocks
// until the daemon answers a ping or the attempt times out. logPath is
// where the child's stdout/stderr are appended, the analogue of
// launcher.rs opening "nyx.log". mountDir, if non-empty, is checked for a
// stale mount left behind by a crashed prior daemon and unmounted first.
func Launch(host string, port uint16, dbfile string, nPassword [32]byte, mountDir, logPath string) error {
	if Ping(host, port) {
		log.Info("an existing daemon is running, closing it first")
		closeExisting(host, port)
		time.Sleep(300 * time.Millisecond)
	}

	if mountDir != "" && IsMountPoint(mountDir) {
		if err := Unmount(mountDir); err != nil {
			return err
		}
	}

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nyxerr.Wrap(nyxerr.Io, err)
	}
	defer logFile.Close()

	args := forwardedArgs(os.Args[1:])
	args = append(args, "-d")

	cmd := exec.Command(os.Args[0], args...)
	cmd.Stdin = nil
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Env = append(os.Environ(),
		hashEnv+"="+base64.StdEncoding.EncodeToString(nPassword[:]),
		dbfileEnv+"="+dbfile,
	)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return nyxerr.Wrapf(nyxerr.Rpc, err, "unable to start RPC daemon")
	}

	started := false
	for i := 0; i < 25; i++ {
		time.Sleep(200 * time.Millisecond)
		if Ping(host, port) {
			started = true
			break
		}
	}
	if !started {
		return nyxerr.New(nyxerr.Rpc, "unable to start nyx daemon, check the log file for details")
	}

	if mountDir != "" {
		checkMountSuccessful(mountDir)
	}
	return nil
}

// forwardedArgs filters parent os.Args down to the whitelisted
// daemon-relevant flags and their values, the analogue of launcher.rs's
// cmd_args loop.
func forwardedArgs(args []string) []string {
	var out []string
	includeNext := false
	for _, a := range args {
		if includeNext {
			out = append(out, a)
			includeNext = false
			continue
		}
		if passthroughFlags[a] {
			out = append(out, a)
			includeNext = true
		}
	}
	return out
}

// closeExisting asks a running daemon to shut down so a new one can take
// its place; failures are ignored, not fatal, since db.close exits the
// daemon without a reply and the old daemon may already be mid-shutdown.
func closeExisting(host string, port uint16) {
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	client := &http.Client{Timeout: time.Second}
	resp, err := client.Post("http://"+addr+"/", "application/json",
		strings.NewReader(`{"id":0,"method":"db.close","params":[]}`))
	if err != nil {
		return
	}
	resp.Body.Close()
}

// ReadHandoff reads back the password/dbfile the parent process set for
// this child, the analogue of launcher.rs's start_daemon env var reads.
// The daemon command calls this once at startup, then the caller should
// unset both variables immediately.
func ReadHandoff() (dbfile string, nPassword [32]byte, err error) {
	hashed, ok := os.LookupEnv(hashEnv)
	if !ok {
		return "", nPassword, nyxerr.New(nyxerr.Generic, "missing "+hashEnv+" environment variable")
	}
	dbfile, ok = os.LookupEnv(dbfileEnv)
	if !ok {
		return "", nPassword, nyxerr.New(nyxerr.Generic, "missing "+dbfileEnv+" environment variable")
	}

	raw, err := base64.StdEncoding.DecodeString(hashed)
	if err != nil {
		return "", nPassword, nyxerr.Wrap(nyxerr.Generic, err)
	}
	if len(raw) != 32 {
		return "", nPassword, nyxerr.New(nyxerr.Generic, "invalid password handoff length")
	}
	copy(nPassword[:], raw)
	return dbfile, nPassword, nil
}

// ClearHandoff removes the handoff environment variables once the daemon
// has read them, so they never show up in /proc/<pid>/environ afterward.
func ClearHandoff() {
	os.Unsetenv(hashEnv)
	os.Unsetenv(dbfileEnv)
}

// IsMountPoint reports whether path is currently mounted, the analogue of
// fs_launcher.rs's is_mount_point (Linux /proc/mounts only; the daemon's
// FUSE support itself is Linux/macOS-oriented per spec.md's non-goals
// around platform breadth).
func IsMountPoint(path string) bool {
	data, err := os.ReadFile("/proc/mounts")
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == path {
			return true
		}
	}
	return false
}

// Unmount clears an orphaned mount point left by a crashed prior daemon,
// the analogue of fs_launcher.rs's unmount().
func Unmount(path string) error {
	if err := exec.Command("fusermount", "-u", path).Run(); err == nil {
		return nil
	}
	if err := exec.Command("umount", path).Run(); err != nil {
		return nyxerr.Newf(nyxerr.Io, "failed to unmount %s, please run: umount %s", path, path)
	}
	time.Sleep(100 * time.Millisecond)
	return nil
}

// checkMountSuccessful warns, but does not fail, if the ssh_keys
// subdirectory never appeared under mountDir, the analogue of
// fs_launcher.rs's check_mount_successful.
func checkMountSuccessful(mountDir string) {
	if _, err := os.Stat(mountDir + "/ssh_keys"); err == nil {
		return
	}
	log.Warn("unable to mount FUSE point; ssh_keys filesystem access will be unavailable")
}
