package runner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/holoconf/holo"
)

// RunExec runs an Exec action inside the isolated environment FixedEnv
// describes, layering the action's own env and cwd overrides on top, and
// returns its captured stdout.
func RunExec(ctx context.Context, a holo.Action, out string, env map[string]string, cwd string) (string, error) {
	merged := FixedEnv(out)
	for k, v := range env {
		merged[k] = v
	}

	envSlice := make([]string, 0, len(merged))
	for k, v := range merged {
		envSlice = append(envSlice, k+"="+v)
	}

	if cwd == "" {
		cwd = out
	}

	cmd := exec.Command(a.Bin, a.Args...)
	cmd.Env = envSlice
	cmd.Dir = cwd

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		code := -1
		var exitErr *exec.ExitError
		if ok := asExitError(err, &exitErr); ok {
			code = exitErr.ExitCode()
		}
		return "", &holo.CmdFailedError{Cmd: commandLine(a), Code: code}
	}
	return stdout.String(), nil
}

func asExitError(err error, target **exec.ExitError) bool {
	ee, ok := err.(*exec.ExitError)
	if !ok {
		return false
	}
	*target = ee
	return true
}

func commandLine(a holo.Action) string {
	s := a.Bin
	for _, arg := range a.Args {
		s += " " + arg
	}
	return s
}

// TruncatedStderr returns up to n bytes of stderr for use in drift/check
// diagnostics, never the full buffer.
func TruncatedStderr(stderr []byte, n int) string {
	if len(stderr) <= n {
		return string(stderr)
	}
	return fmt.Sprintf("%s... (truncated)", stderr[:n])
}
