package launcher

import (
	"net"
	"testing"
)

func TestForwardedArgsKeepsOnlyWhitelistedFlags(t *testing.T) {
	args := []string{"create", "-f", "/tmp/container.nyx", "--verbose", "-p", "9000", "--bogus", "value"}
	got := forwardedArgs(args)
	want := []string{"-f", "/tmp/container.nyx", "-p", "9000"}

	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestForwardedArgsKeepsTrailingFlagWithNoValue(t *testing.T) {
	got := forwardedArgs([]string{"-h"})
	if len(got) != 1 || got[0] != "-h" {
		t.Fatalf("expected just the flag itself with no value to consume, got %v", got)
	}
}

func TestPingFalseWhenNothingListening(t *testing.T) {
	if Ping("127.0.0.1", 1) {
		t.Fatal("expected Ping to fail against a port nothing is listening on")
	}
}

func TestPingTrueWhenListening(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to open listener: %v", err)
	}
	defer ln.Close()

	addr := ln.Addr().(*net.TCPAddr)
	if !Ping("127.0.0.1", uint16(addr.Port)) {
		t.Fatal("expected Ping to succeed against an open listener")
	}
}

func TestIsMountPointFalseForUnmountedPath(t *testing.T) {
	if IsMountPoint("/this/path/is/definitely/not/a/mount/point/xyz") {
		t.Fatal("expected IsMountPoint to be false for a path never mounted")
	}
}
