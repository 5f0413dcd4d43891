package main

import (
	"bytes"
	"os"
	"testing"
)

// testEnv returns an Environment with buffered output and only vars visible.
func testEnv(vars map[string]string) (*Environment, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	env := &Environment{
		Stdout: &stdout,
		Stderr: &stderr,
		LookupEnv: func(key string) (string, bool) {
			v, ok := vars[key]
			return v, ok
		},
		Environ: func() []string {
			out := make([]string, 0, len(vars))
			for k, v := range vars {
				out = append(out, k+"="+v)
			}
			return out
		},
	}
	return env, &stdout, &stderr
}

func TestDefaultEnv(t *testing.T) {
	t.Parallel()

	env := DefaultEnv()

	if env.Stdout != os.Stdout {
		t.Error("Stdout should be os.Stdout")
	}
	if env.Stderr != os.Stderr {
		t.Error("Stderr should be os.Stderr")
	}
	if env.LookupEnv == nil || env.Environ == nil {
		t.Fatal("environment accessors should be set")
	}
}
