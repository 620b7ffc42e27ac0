package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/holoconf/holo"
)

func TestRunActionWriteFileRecordsOutput(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(dir, nil, nil)

	a := holo.Action{Type: holo.ActionWriteFile, Path: "$${out}/hello.txt", Contents: "hi"}
	out, err := RunAction(context.Background(), nil, a, dir, t.TempDir(), r)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "hello.txt"), out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "hi", string(data))

	prior, err := r.Action(0)
	require.NoError(t, err)
	require.Equal(t, out, prior)
}

func TestRunActionExecCapturesStdout(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(dir, nil, nil)

	a := holo.Action{Type: holo.ActionExec, Bin: "/bin/echo", Args: []string{"hello"}}
	out, err := RunAction(context.Background(), nil, a, dir, t.TempDir(), r)
	require.NoError(t, err)
	require.Equal(t, "hello\n", out)
}

func TestRunActionExecFailureIsCmdFailed(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(dir, nil, nil)

	a := holo.Action{Type: holo.ActionExec, Bin: "/bin/false"}
	_, err := RunAction(context.Background(), nil, a, dir, t.TempDir(), r)
	require.Error(t, err)
	var cmdFailed *holo.CmdFailedError
	require.ErrorAs(t, err, &cmdFailed)
}

func TestRunActionChainsActionPlaceholder(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(dir, nil, nil)

	first := holo.Action{Type: holo.ActionWriteFile, Path: "$${out}/a.txt", Contents: "A"}
	_, err := RunAction(context.Background(), nil, first, dir, t.TempDir(), r)
	require.NoError(t, err)

	second := holo.Action{Type: holo.ActionWriteFile, Path: "$${out}/b.txt", Contents: "ref=$${action:0}"}
	out, err := RunAction(context.Background(), nil, second, dir, t.TempDir(), r)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Contains(t, string(data), filepath.Join(dir, "a.txt"))
}

func TestResolveOutputsExpandsOut(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(dir, nil, nil)
	resolved, err := ResolveOutputs(map[string]string{"bin": "$${out}/bin"}, r)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "bin"), resolved["bin"])
}
