package linkshortener

import (
	"bufio"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

// Snapshotter syncs a Store with durable storage.
type Snapshotter interface {
	// Load adds the persisted mappings to s. A snapshot that does not
	// exist yet is not an error.
	Load(s *Store) error
	// Save replaces the persisted mappings with the contents of s.
	Save(s *Store) error
}

// maxLineSize bounds a single persisted line, key and URL included.
const maxLineSize = 1 << 20

// TextFile persists a Store as "key,longURL" lines in a plain text file.
type TextFile struct {
	Path string
}

// compile-time assertion that we implement Snapshotter
var _ Snapshotter = TextFile{}

// Load reads f.Path into s. Lines without a comma are skipped. Entries read
// before an I/O error stay in s.
func (f TextFile) Load(s *Store) error {
	file, err := os.Open(f.Path)
	if err != nil {
		if xerrors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return countFailure("load", xerrors.Errorf("could not open mappings file: %w", err))
	}
	defer file.Close()

	entries, err := ReadEntries(file)
	for _, e := range entries {
		s.Put(e.Key, e.LongURL)
	}
	if err != nil {
		return countFailure("load", xerrors.Errorf("error loading %s: %w", f.Path, err))
	}

	return nil
}

// Save writes all entries of s to a temporary file next to f.Path, then
// renames it over f.Path.
func (f TextFile) Save(s *Store) error {
	err := writeFileAtomic(f.Path, func(w io.Writer) error {
		return WriteEntries(w, s.Entries())
	})
	if err != nil {
		return countFailure("save", xerrors.Errorf("error saving %s: %w", f.Path, err))
	}
	return nil
}

func writeFileAtomic(path string, write func(w io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return xerrors.Errorf("could not create temporary file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Chmod(0o644); err != nil {
		return xerrors.Errorf("could not set file mode: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return xerrors.Errorf("could not close temporary file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return xerrors.Errorf("could not replace mappings file: %w", err)
	}

	return nil
}

// ReadEntries parses "key,longURL" lines. Only the first comma separates the
// fields, so URLs may contain commas. Either field may be empty. Lines
// without a comma are skipped. On a read error the entries parsed so far are
// returned along with the error.
func ReadEntries(r io.Reader) ([]Entry, error) {
	var entries []Entry

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		key, longURL, ok := strings.Cut(scanner.Text(), ",")
		if !ok {
			continue
		}
		entries = append(entries, Entry{Key: key, LongURL: longURL})
	}

	if err := scanner.Err(); err != nil {
		return entries, xerrors.Errorf("error reading mappings: %w", err)
	}

	return entries, nil
}

// WriteEntries writes one "key,longURL" line per entry.
func WriteEntries(w io.Writer, entries []Entry) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		bw.WriteString(e.Key)
		bw.WriteByte(',')
		bw.WriteString(e.LongURL)
		bw.WriteByte('\n')
	}

	// bufio.Writer keeps the first write error and returns it here
	if err := bw.Flush(); err != nil {
		return xerrors.Errorf("error writing mappings: %w", err)
	}

	return nil
}

// Autosave saves s to snap every interval until ctx is done. Ticks where s
// did not change since the last successful save are skipped; a store that
// was loaded before Autosave started is saved once on the first tick.
// Failed saves are logged and retried on the next tick.
func Autosave(ctx context.Context, s *Store, snap Snapshotter, interval time.Duration, logger *zap.Logger) error {
	if interval <= 0 {
		return xerrors.Errorf("autosave interval must be positive, got %s", interval)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var saved uint64 // a fresh Store is at revision 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			rev := s.Revision()
			if rev == saved {
				continue
			}
			if err := snap.Save(s); err != nil {
				logger.Warn("autosave failed", zap.Error(err))
				continue
			}
			saved = rev
			logger.Debug("autosaved mappings", zap.Int("entries", s.Len()))
		}
	}
}

func countFailure(op string, err error) error {
	snapshotFailures.WithLabelValues(op).Inc()
	return err
}
