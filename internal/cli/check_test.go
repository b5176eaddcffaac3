package cli

import (
	"errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func runCheckWith(t *testing.T, command string) (string, error) {
	t.Helper()
	defer resetGlobalFlags()
	resetGlobalFlags()
	flagProjectDir = t.TempDir()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("HOOKGUARD_OUTPUT", "")

	var gotErr error
	cmd := &cobra.Command{
		Use:           "check",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			gotErr = runCheck(cmd, command)
			return gotErr
		},
	}
	_, stderr, _ := executeCommand(cmd)
	return stderr, gotErr
}

func TestCheckDeniesAndExitsNonzero(t *testing.T) {
	stderr, err := runCheckWith(t, "rm -rf /")
	if !errors.Is(err, errDenied) {
		t.Fatalf("err = %v, want errDenied", err)
	}
	if !strings.Contains(stderr, "deny: Recursive delete from root") {
		t.Errorf("stderr %q missing deny line", stderr)
	}
}

func TestCheckAllowsCleanCommand(t *testing.T) {
	stderr, err := runCheckWith(t, "ls -la")
	if err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
	if !strings.Contains(stderr, "allow: ls -la") {
		t.Errorf("stderr %q missing allow line", stderr)
	}
}

func TestCheckPrintsCautionNotes(t *testing.T) {
	stderr, err := runCheckWith(t, "git push --force")
	if err != nil {
		t.Fatalf("err = %v, want nil for caution", err)
	}
	if !strings.Contains(stderr, "allow with caution") {
		t.Errorf("stderr %q missing caution header", stderr)
	}
	if !strings.Contains(stderr, "Git force push") {
		t.Errorf("stderr %q missing caution note", stderr)
	}
}
