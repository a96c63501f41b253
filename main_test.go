package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunStdinToStdout(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(nil, strings.NewReader(`(cut (line (vec2 0 0) (vec2 10 0)) :feed 100 :power 50)`), &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, stderr.String())
	}
	want := "G21\nG90\nM3 S50\nG1 X10.000 Y0.000 F100.0\nM5\nM2\n"
	if stdout.String() != want {
		t.Errorf("program = %q, want %q", stdout.String(), want)
	}
}

func TestRunFilesAndMachine(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "plate.nc")

	var stdout, stderr bytes.Buffer
	code := run([]string{
		"-in", "examples/plate.kerf",
		"-out", out,
		"-profile", "examples/grbl-g17.json",
		"-envelope", "examples/bed-300x200.json",
		"-optimize", "-iterations", "4", "-seed", "3",
		"-stats",
	}, strings.NewReader(""), &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, stderr.String())
	}
	if stdout.Len() != 0 {
		t.Errorf("stdout should be empty with -out, got %q", stdout.String())
	}

	program, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.HasPrefix(string(program), "G21\nG90\nG17\nG94\n") {
		t.Errorf("program head = %q", string(program)[:min(len(program), 40)])
	}
	if !strings.HasSuffix(string(program), "M2\n; end of job\n") {
		t.Errorf("program should end with the profile footer")
	}
	for _, want := range []string{"segments 13 compiled 13", "travel "} {
		if !strings.Contains(stderr.String(), want) {
			t.Errorf("stats missing %q in:\n%s", want, stderr.String())
		}
	}
}

func TestRunJSON(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-json", "-in", "examples/wave.kerf"}, nil, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, stderr.String())
	}
	var res CompileResult
	if err := json.Unmarshal(stdout.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Segments != 4 || res.Compiled != 4 || res.Program == "" {
		t.Errorf("result = %d segments, %d compiled", res.Segments, res.Compiled)
	}
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		source string
		code   int
		stderr string
	}{
		{"unknown flag", []string{"-bogus"}, "", 2, "flag provided but not defined"},
		{"missing input", []string{"-in", "does-not-exist.kerf"}, "", 1, "read job"},
		{"missing profile", []string{"-profile", "nope.json"}, "", 1, "read profile"},
		{"script error", nil, `(cut 5)`, 1, "error:"},
		{"empty job", nil, "", 1, "no segments"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(tt.args, strings.NewReader(tt.source), &stdout, &stderr)
			if code != tt.code {
				t.Errorf("exit code = %d, want %d", code, tt.code)
			}
			if !strings.Contains(stderr.String(), tt.stderr) {
				t.Errorf("stderr %q does not contain %q", stderr.String(), tt.stderr)
			}
			if stdout.Len() != 0 {
				t.Errorf("unexpected stdout %q", stdout.String())
			}
		})
	}
}

func TestRunWarningsAreReported(t *testing.T) {
	dir := t.TempDir()
	env := filepath.Join(dir, "small.json")
	if err := os.WriteFile(env, []byte(`{"width": 20, "depth": 20}`), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	source := "(cut (line (vec2 0 0) (vec2 10 0)))\n(cut (line (vec2 0 5) (vec2 40 5)))\n"
	code := run([]string{"-envelope", env}, strings.NewReader(source), &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), "warning: segment 1") || !strings.Contains(stderr.String(), "out-of-bounds") {
		t.Errorf("stderr = %q", stderr.String())
	}
	if strings.Contains(stdout.String(), "X40.000") {
		t.Error("out-of-bounds segment was emitted")
	}
}

// failingFile is an output file that fails on write or close, like a full
// disk.
type failingFile struct {
	buf                bytes.Buffer
	writeErr, closeErr error
}

func (f *failingFile) Write(p []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	return f.buf.Write(p)
}

func (f *failingFile) Close() error { return f.closeErr }

func TestRunOutputFailures(t *testing.T) {
	tests := []struct {
		name string
		file *failingFile
	}{
		{"close fails", &failingFile{closeErr: errors.New("no space left on device")}},
		{"write fails", &failingFile{writeErr: errors.New("no space left on device")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := createFile
			t.Cleanup(func() { createFile = orig })
			createFile = func(string) (io.WriteCloser, error) { return tt.file, nil }

			var stdout, stderr bytes.Buffer
			code := run([]string{"-out", "part.nc"}, strings.NewReader(`(cut (line (vec2 0 0) (vec2 1 0)))`), &stdout, &stderr)
			if code != 1 {
				t.Errorf("exit code = %d, want 1", code)
			}
			if !strings.Contains(stderr.String(), "no space left on device") {
				t.Errorf("stderr = %q", stderr.String())
			}
		})
	}
}
