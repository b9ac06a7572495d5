package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	transfererrors "github.com/input-output-hk/catalyst-forge-libs/storage/transfer/errors"
)

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "simple file", path: "report.txt"},
		{name: "nested file", path: "docs/2026/q2/report.txt"},
		{name: "unicode name", path: "docs/résumé.pdf"},
		{name: "max length", path: strings.Repeat("a", 1024)},
		{name: "empty", path: "", wantErr: true},
		{name: "too long", path: strings.Repeat("a", 1025), wantErr: true},
		{name: "dot segment", path: "docs/./report.txt", wantErr: true},
		{name: "dot-dot segment", path: "docs/../report.txt", wantErr: true},
		{name: "leading dot-dot", path: "../report.txt", wantErr: true},
		{name: "bare dot-dot", path: "..", wantErr: true},
		{name: "dotfile is fine", path: "docs/.gitignore"},
		{name: "null byte", path: "docs/bad\x00.txt", wantErr: true},
		{name: "newline", path: "docs/bad\n.txt", wantErr: true},
		{name: "trailing separator", path: "docs/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				assert.ErrorIs(t, err, transfererrors.ErrInvalidPath)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "report.txt", want: "report.txt"},
		{path: "docs/report.txt", want: "report.txt"},
		{path: "a/b/c/d.bin", want: "d.bin"},
		{path: "docs/", want: ""},
		{path: "", want: ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FileName(tt.path), "path %q", tt.path)
	}
}
