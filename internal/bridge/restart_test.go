package bridge

import (
	"errors"
	"testing"
)

func TestExecRestarterReexecsSelf(t *testing.T) {
	var gotPath string
	var gotArgs []string
	r := NewExecRestarter()
	r.Args = []string{"switch-bridge", "--poll", "5ms"}
	r.exec = func(path string, args, env []string) error {
		gotPath, gotArgs = path, args
		return nil
	}

	if err := r.Restart(ReasonWatchdog); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/proc/self/exe" {
		t.Errorf("path: got %q, want /proc/self/exe", gotPath)
	}
	if len(gotArgs) != 3 || gotArgs[2] != "5ms" {
		t.Errorf("args not preserved: %v", gotArgs)
	}
}

func TestExecRestarterWrapsError(t *testing.T) {
	errExec := errors.New("permission denied")
	r := NewExecRestarter()
	r.exec = func(string, []string, []string) error { return errExec }

	err := r.Restart(ReasonFactoryReset)
	if !errors.Is(err, errExec) {
		t.Errorf("expected wrapped exec error, got %v", err)
	}
}

func TestExitRestarterUsesTempFailCode(t *testing.T) {
	code := -1
	r := NewExitRestarter()
	r.exit = func(c int) { code = c }

	r.Restart(ReasonWiFiRecovered)
	if code != ExitRestartCode {
		t.Errorf("exit code: got %d, want %d", code, ExitRestartCode)
	}
}

func TestFakeRestarterRecords(t *testing.T) {
	f := &FakeRestarter{}
	var _ Restarter = f
	f.Restart("a")
	f.Restart("b")
	if len(f.Reasons) != 2 || f.Reasons[1] != "b" {
		t.Errorf("unexpected reasons: %v", f.Reasons)
	}
}
