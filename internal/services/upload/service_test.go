package upload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	svc := NewService([]string{"application/pdf"})

	tests := []struct {
		name  string
		files []File
		want  bool
	}{
		{
			name:  "Empty collection is valid",
			files: nil,
			want:  true,
		},
		{
			name: "All PDFs",
			files: []File{
				{Name: "a.pdf", MIME: "application/pdf"},
				{Name: "b.pdf", MIME: "application/pdf"},
			},
			want: true,
		},
		{
			name: "One unsupported file rejects the collection",
			files: []File{
				{Name: "a.pdf", MIME: "application/pdf"},
				{Name: "b.png", MIME: "image/png"},
			},
			want: false,
		},
		{
			name: "Missing declared type is rejected",
			files: []File{
				{Name: "a.pdf", MIME: ""},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.Validate(tt.files))
		})
	}
}

func TestValidateWiderAllowList(t *testing.T) {
	svc := NewService([]string{"application/pdf", "image/png"})

	ok := svc.Validate([]File{
		{Name: "a.pdf", MIME: "application/pdf"},
		{Name: "b.png", MIME: "image/png"},
	})
	assert.True(t, ok)
}

func TestDetectMIME(t *testing.T) {
	svc := NewService([]string{"application/pdf"})

	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\n%fake document\n"), 0o600))

	mime, err := svc.DetectMIME(path)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", mime)
}

func TestDetectMIMEMissingFile(t *testing.T) {
	svc := NewService([]string{"application/pdf"})

	_, err := svc.DetectMIME(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
