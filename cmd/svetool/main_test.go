package main

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/onet/v3/log"
)

func TestMain(m *testing.M) {
	log.MainTest(m)
}

type tool struct {
	t   *testing.T
	db  string
	out *bytes.Buffer
}

func (tl *tool) run(args ...string) (string, error) {
	app := newApp()
	tl.out.Reset()
	app.Writer = tl.out
	base := []string{"svetool", "--level", "insecure", "--db", tl.db}
	err := app.Run(append(base, args...))
	return strings.TrimSpace(tl.out.String()), err
}

func newTool(t *testing.T) (*tool, func()) {
	dir, err := ioutil.TempDir("", "svetool")
	require.NoError(t, err)
	return &tool{t: t, db: filepath.Join(dir, "keys.db"), out: &bytes.Buffer{}}, func() {
		os.RemoveAll(dir)
	}
}

func TestTool_EncryptDecrypt(t *testing.T) {
	tl, done := newTool(t)
	defer done()

	out, err := tl.run("cryptosystem", "--name", "election", "--bits", "128")
	require.NoError(t, err)
	require.Contains(t, out, "election: 128 bits")

	fp, err := tl.run("keypair", "--cs", "election", "--name", "alice")
	require.NoError(t, err)
	require.Len(t, fp, 64)
	_, err = tl.run("keypair", "--cs", "election", "--name", "bob")
	require.NoError(t, err)

	id, err := tl.run("encrypt", "--key", "alice", "--text", "hello world", "--pad", "32")
	require.NoError(t, err)

	text, err := tl.run("decrypt", "--key", "alice", "--id", id)
	require.NoError(t, err)
	require.Equal(t, "hello world", text)

	_, err = tl.run("decrypt", "--key", "bob", "--id", id)
	require.Error(t, err)
	_, err = tl.run("decrypt", "--key", "alice", "--id", "not-an-id")
	require.Error(t, err)
	_, err = tl.run("decrypt", "--key", "alice")
	require.Error(t, err)
}

func TestTool_Threshold(t *testing.T) {
	tl, done := newTool(t)
	defer done()

	_, err := tl.run("cs", "--name", "election", "--bits", "128")
	require.NoError(t, err)
	out, err := tl.run("threshold", "--cs", "election", "--trustees", "3", "--threshold", "2", "--text", "ballot")
	require.NoError(t, err)
	require.Equal(t, "ballot", out)

	_, err = tl.run("threshold", "--cs", "election", "--trustees", "2", "--threshold", "3")
	require.Error(t, err)
}

func TestTool_Params(t *testing.T) {
	tl, done := newTool(t)
	defer done()

	out, err := tl.run("params")
	require.NoError(t, err)
	require.Contains(t, out, `level = "insecure"`)

	cfg := filepath.Join(filepath.Dir(tl.db), "params.toml")
	require.NoError(t, ioutil.WriteFile(cfg, []byte(strings.Replace(out, "default_bit_size = 128", "default_bit_size = 136", 1)), 0600))
	app := newApp()
	buf := &bytes.Buffer{}
	app.Writer = buf
	require.NoError(t, app.Run([]string{"svetool", "--config", cfg, "params"}))
	require.Contains(t, buf.String(), "default_bit_size = 136")
}
