package main

import (
	"io"
	"os"
)

// Environment holds injectable dependencies for testability.
// Process environment access goes through LookupEnv and Environ so tests can
// run in parallel without t.Setenv.
type Environment struct {
	Stdout    io.Writer
	Stderr    io.Writer
	LookupEnv func(key string) (string, bool)
	Environ   func() []string
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		LookupEnv: os.LookupEnv,
		Environ:   os.Environ,
	}
}
