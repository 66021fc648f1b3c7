package upload

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const fallbackName = "upload"

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// Sanitize reduces an untrusted client filename to a safe single path
// component: ASCII only, no separators, whitespace collapsed to "_".
// It may return "".
func Sanitize(filename string) string {
	decomposed := norm.NFKD.String(filename)

	var b strings.Builder
	for _, r := range decomposed {
		if r < 0x80 {
			b.WriteRune(r)
		}
	}
	name := b.String()
	name = strings.NewReplacer("/", " ", `\`, " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}

// StoredName is the name a validated upload is written under. Names that
// lose their extension to sanitising fall back to "upload.<ext>".
func StoredName(filename string) string {
	name := Sanitize(filename)
	if Allowed(name) {
		return name
	}
	ext, _ := Extension(filename)
	return fallbackName + "." + ext
}

// Store writes uploads under a single directory. Unless keep is set, Remove
// deletes the file once the request is done with it.
type Store struct {
	dir  string
	keep bool
}

func NewStore(dir string, keep bool) *Store {
	return &Store{dir: dir, keep: keep}
}

func (s *Store) Dir() string {
	return s.dir
}

// Path is the deterministic destination for an uploaded filename.
func (s *Store) Path(filename string) string {
	return filepath.Join(s.dir, StoredName(filename))
}

func (s *Store) Save(filename string, data io.Reader) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	path := s.Path(filename)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, data); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

func (s *Store) Remove(path string) error {
	if s.keep {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
