package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wbrown/piecewise/resources"
	"github.com/wbrown/piecewise/types"
)

func writeTestModel(t *testing.T) string {
	t.Helper()
	pieces := [][]byte{}
	for _, piece := range []string{
		"a", "b", "o", "▁", "▁hell", "▁hello", "▁there"} {
		pieces = append(pieces, []byte(piece))
	}
	model, err := resources.NewModel(pieces,
		[]float32{-5, -5, -4, -3, -2, -1, -1}, nil)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "test.pwv")
	require.NoError(t, resources.SaveModel(path, model))
	return path
}

func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeTexts(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"),
		[]byte("hello there\n\nhello\n"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.txt"),
		[]byte("there"), 0644))
	return dir
}

func TestEncodeArgs(t *testing.T) {
	model := writeTestModel(t)
	out, err := runCmd(t, "", "encode", "--model-path", model, "--pieces",
		"hello", "there")
	require.NoError(t, err)
	assert.Equal(t, "[0 7 8 1]\n|▁hello|▁there\n", out)
}

func TestEncodeStdin(t *testing.T) {
	model := writeTestModel(t)
	out, err := runCmd(t, "hello\n: he\nthere", "encode",
		"--model-path", model)
	require.NoError(t, err)
	assert.Equal(t,
		"[0 7 1]\n4\t▁hell\t-2.0000\n5\t▁hello\t-1.0000\n[0 8 1]\n", out)
}

func TestEncodeUnmatched(t *testing.T) {
	model := writeTestModel(t)
	_, err := runCmd(t, "", "encode", "--model-path", model, "xyz")
	assert.Error(t, err)
}

func TestEncodeMissingModel(t *testing.T) {
	_, err := runCmd(t, "", "encode", "--model-path",
		filepath.Join(t.TempDir(), "missing.pwv"), "hello")
	assert.Error(t, err)
}

func TestBatchAndDecode(t *testing.T) {
	model := writeTestModel(t)
	dir := writeTexts(t)

	out, err := runCmd(t, "", "batch", "--model-path", model, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a.json")+"\n"+
		filepath.Join(dir, "sub", "b.json")+"\n", out)

	data, err := os.ReadFile(filepath.Join(dir, "a.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `[[0,7,8,1],[0,7,1]]`, string(data))

	out, err = runCmd(t, "", "decode", "--model-path", model,
		filepath.Join(dir, "a.json"))
	require.NoError(t, err)
	assert.Equal(t, "hello there\nhello\n", out)
}

func TestBatchBinaryFormats(t *testing.T) {
	model := writeTestModel(t)
	for _, format := range []string{"bin16", "bin32", "msgpack", "cbor"} {
		t.Run(format, func(t *testing.T) {
			dir := writeTexts(t)
			_, err := runCmd(t, "", "batch", "--model-path", model,
				"--batch-format", format, dir)
			require.NoError(t, err)

			path := filepath.Join(dir, "a"+formatExt(format))
			out, err := runCmd(t, "", "decode", "--model-path", model,
				"--format", format, path)
			require.NoError(t, err)
			assert.Equal(t, "hello there\nhello\n", out)
		})
	}
}

func TestBatchContextWindow(t *testing.T) {
	model := writeTestModel(t)
	dir := writeTexts(t)
	outDir := filepath.Join(t.TempDir(), "out")

	_, err := runCmd(t, "", "batch", "--model-path", model, "--context", "6",
		"--batch-output-dir", outDir, dir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(outDir, "a.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `[[7,8,1,0,7,1]]`, string(data))

	data, err = os.ReadFile(filepath.Join(outDir, "sub", "b.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `[[0,8,1,1,1,1]]`, string(data))
}

func TestBatchErrors(t *testing.T) {
	model := writeTestModel(t)
	_, err := runCmd(t, "", "batch", "--model-path", model,
		"--batch-format", "xml", writeTexts(t))
	assert.ErrorContains(t, err, "unknown format")

	_, err = runCmd(t, "", "batch", "--model-path", model, t.TempDir())
	assert.ErrorContains(t, err, "does not contain any .txt files")
}

func TestDecodeStdinBinary(t *testing.T) {
	model := writeTestModel(t)
	codes := types.Codes{0, 7, 1, 0, 8}
	bin, err := codes.ToBinUint16()
	require.NoError(t, err)

	out, err := runCmd(t, string(*bin), "decode", "--model-path", model,
		"--format", "bin16")
	require.NoError(t, err)
	assert.Equal(t, "hello\nthere\n", out)
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "piecewise.toml")
	out, err := runCmd(t, "", "config", "init", "--cache-size", "17", path)
	require.NoError(t, err)
	assert.Equal(t, path+"\n", out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "size = 17")

	_, err = runCmd(t, "", "config", "init", path)
	assert.ErrorContains(t, err, "already exists")
	_, err = runCmd(t, "", "config", "init", "--force", path)
	assert.NoError(t, err)
}

func TestSplitAtEnd(t *testing.T) {
	lines := splitAtEnd(types.Codes{0, 5, 1, 0, 6, 1, 0}, 1)
	assert.Equal(t, []types.Codes{{0, 5, 1}, {0, 6, 1}, {0}}, lines)
	assert.Empty(t, splitAtEnd(nil, 1))
}

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "a b:c\nd", sanitizeText("a\tb  :c\r\n\n\n  d  "))
	assert.Equal(t, "line one\nline two", sanitizeText(`line one\nline two`))
}
