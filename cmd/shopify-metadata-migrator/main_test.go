package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRun_ExitCodes(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		code        int
		stdout      string
		stderr      string
		emptyStdout bool
	}{
		{
			name:   "help",
			args:   []string{"--help"},
			code:   0,
			stderr: "Usage: shopify-metadata-migrator",
		},
		{
			name:   "version",
			args:   []string{"--version"},
			code:   0,
			stdout: "shopify-metadata-migrator dev",
		},
		{
			name:        "nothing selected",
			args:        []string{"-s", "a", "-S", "b", "-t", "c", "-T", "d"},
			code:        1,
			stderr:      "Please specify --metafields and/or --metaobjects",
			emptyStdout: true,
		},
		{
			name:        "metafields without owner types",
			args:        []string{"-s", "a", "-S", "b", "-t", "c", "-T", "d", "--metafields"},
			code:        1,
			stderr:      "--shopifyObjectTypes is required",
			emptyStdout: true,
		},
		{
			name:   "unknown flag",
			args:   []string{"--bogus"},
			code:   1,
			stderr: "flag provided but not defined",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(tc.args, &stdout, &stderr)
			if code != tc.code {
				t.Errorf("exit code = %d, want %d (stderr: %s)", code, tc.code, stderr.String())
			}
			if tc.stdout != "" && !strings.Contains(stdout.String(), tc.stdout) {
				t.Errorf("stdout = %q, want it to contain %q", stdout.String(), tc.stdout)
			}
			if tc.stderr != "" && !strings.Contains(stderr.String(), tc.stderr) {
				t.Errorf("stderr = %q, want it to contain %q", stderr.String(), tc.stderr)
			}
			if tc.emptyStdout && stdout.Len() != 0 {
				t.Errorf("configuration errors must not print a summary, got %q", stdout.String())
			}
		})
	}
}
