package upload

import (
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowed(t *testing.T) {
	tests := []struct {
		filename string
		want     bool
	}{
		{"digit.png", true},
		{"digit.PNG", true},
		{"photo.jpg", true},
		{"photo.JpEg", true},
		{"anim.gif", true},
		{"archive.tar.png", true},
		{"digit", false},
		{"digit.bmp", false},
		{"png", false},
		{"digit.png.exe", false},
		{"digit.", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, Allowed(tt.filename))
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		header  *multipart.FileHeader
		wantErr error
	}{
		{name: "no file part", header: nil, wantErr: ErrMissingFile},
		{name: "empty filename", header: &multipart.FileHeader{Filename: ""}, wantErr: ErrMissingFile},
		{name: "no extension", header: &multipart.FileHeader{Filename: "digit"}, wantErr: ErrDisallowedExtension},
		{name: "bad extension", header: &multipart.FileHeader{Filename: "digit.txt"}, wantErr: ErrDisallowedExtension},
		{name: "valid", header: &multipart.FileHeader{Filename: "digit.png"}, wantErr: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.header)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My cool movie.mov", "My_cool_movie.mov"},
		{"../../../etc/passwd", "etc_passwd"},
		{`..\windows\digit.png`, "windows_digit.png"},
		{"i contain cool ümläuts.txt", "i_contain_cool_umlauts.txt"},
		{"７.png", "7.png"},
		{"画像.png", "png"},
		{"  .hidden.png ", "hidden.png"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestStoredNameKeepsExtension(t *testing.T) {
	assert.Equal(t, "digit.png", StoredName("digit.png"))
	assert.Equal(t, "upload.png", StoredName("画像.png"))
	assert.Equal(t, "upload.jpeg", StoredName("数字.JPEG"))
}

func TestStoreSaveAndRemove(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	store := NewStore(dir, false)

	path, err := store.Save("../my digit.png", strings.NewReader("data"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "my_digit.png"), path)
	assert.Equal(t, store.Path("../my digit.png"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "data", string(content))

	require.NoError(t, store.Remove(path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Remove(path), "removing twice is not an error")
}

func TestStoreKeepFiles(t *testing.T) {
	store := NewStore(t.TempDir(), true)

	path, err := store.Save("digit.gif", strings.NewReader("gif"))
	require.NoError(t, err)
	require.NoError(t, store.Remove(path))

	_, err = os.Stat(path)
	assert.NoError(t, err)
}
