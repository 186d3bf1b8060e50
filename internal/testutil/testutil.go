// Package testutil provides shared test helpers for faultline.
//
// All helpers accept [testing.TB] for compatibility with both tests and
// benchmarks. Functions that halt the test on failure use [require] from
// testify; functions that record failures without stopping use [assert].
//
// Every helper calls t.Helper() so that test failure messages report the
// caller's file and line number rather than this package's.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StricklySoft/faultline/pkg/flerr"
)

// RequireErrorCode halts the test if err is nil, is not a *flerr.Error,
// or does not carry the expected error code.
//
// Example:
//
//	_, err := store.Get(ctx, "missing")
//	testutil.RequireErrorCode(t, err, flerr.CodeStoreNotFound)
func RequireErrorCode(t testing.TB, err error, code flerr.Code, msgAndArgs ...any) {
	t.Helper()
	require.Error(t, err, msgAndArgs...)
	flErr, ok := flerr.AsError(err)
	require.True(t, ok, "expected *flerr.Error, got %T: %v", err, err)
	require.Equal(t, code, flErr.Code,
		"error code mismatch: got %q, want %q (message: %s)",
		flErr.Code, code, flErr.Message)
}

// AssertErrorCode records a test failure (without halting) if err is nil,
// is not a *flerr.Error, or does not carry the expected error code.
// Use this in table-driven tests where you want to check all rows.
func AssertErrorCode(t testing.TB, err error, code flerr.Code, msgAndArgs ...any) bool {
	t.Helper()
	if !assert.Error(t, err, msgAndArgs...) {
		return false
	}
	flErr, ok := flerr.AsError(err)
	if !assert.True(t, ok, "expected *flerr.Error, got %T: %v", err, err) {
		return false
	}
	return assert.Equal(t, code, flErr.Code,
		"error code mismatch: got %q, want %q (message: %s)",
		flErr.Code, code, flErr.Message)
}

// TempConfigFile creates a temporary file with the given content and
// extension (e.g., ".yaml") inside t.TempDir(). The file is automatically
// cleaned up when the test finishes.
//
// The file is created with mode 0600 (owner read/write only) following
// the principle of least privilege for configuration files.
func TempConfigFile(t testing.TB, content, ext string) string {
	t.Helper()
	dir := t.TempDir()
	name := "config" + ext
	path := filepath.Join(dir, name)
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err, "failed to write temp config file %s", path)
	return path
}
