package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/sauerbraten/linkshortener"
)

const menuText = `
=== Link Shortener ===
1. Shorten URL
2. Expand URL
3. View Mappings
4. Save Mappings
5. Exit
`

// menu is the interactive prompt. It reads one answer per line from in.
type menu struct {
	store  *linkshortener.Store
	snap   linkshortener.Snapshotter
	in     io.Reader
	out    io.Writer
	logger *zap.Logger
}

// run loops until the user picks "Exit", in reaches EOF, or ctx is done.
// Saving on exit is left to the caller.
func (m *menu) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel() // releases the reader goroutine

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(m.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	prompt := func(text string) (string, bool) {
		fmt.Fprint(m.out, text)
		select {
		case <-ctx.Done():
			return "", false
		case line, ok := <-lines:
			return strings.TrimSpace(line), ok
		}
	}

	for {
		fmt.Fprint(m.out, menuText)
		choice, ok := prompt("Enter your choice: ")
		if !ok {
			return nil
		}

		switch choice {
		case "1":
			longURL, ok := prompt("Enter the long URL: ")
			if !ok {
				return nil
			}
			m.shorten(longURL)
		case "2":
			shortURL, ok := prompt("Enter the short URL: ")
			if !ok {
				return nil
			}
			m.expand(shortURL)
		case "3":
			m.list()
		case "4":
			save(m.store, m.snap, m.out, m.logger)
		case "5":
			return nil
		default:
			fmt.Fprintln(m.out, "Invalid choice! Please try again.")
		}
	}
}

func (m *menu) shorten(longURL string) {
	if longURL == "" {
		fmt.Fprintln(m.out, "Error: URL must not be empty!")
		return
	}

	key, err := m.store.Shorten(longURL)
	if err != nil {
		m.logger.Error("could not shorten URL", zap.String("url", longURL), zap.Error(err))
		fmt.Fprintf(m.out, "Error: %v\n", err)
		return
	}

	fmt.Fprintf(m.out, "Shortened URL: %s\n", m.store.ShortURL(key))
}

func (m *menu) expand(shortURL string) {
	longURL, err := m.store.Expand(shortURL)
	if err != nil {
		if xerrors.Is(err, linkshortener.ErrNotFound) {
			fmt.Fprintln(m.out, "Error: Invalid short URL!")
			return
		}
		fmt.Fprintf(m.out, "Error: %v\n", err)
		return
	}

	fmt.Fprintf(m.out, "Original URL: %s\n", longURL)
}

func (m *menu) list() {
	fmt.Fprintln(m.out, "\n=== URL Mappings ===")
	for _, e := range m.store.Entries() {
		fmt.Fprintf(m.out, "%s -> %s\n", m.store.ShortURL(e.Key), e.LongURL)
	}
}

// save writes s to snap and reports the outcome on out. Failures are logged,
// never fatal.
func save(s *linkshortener.Store, snap linkshortener.Snapshotter, out io.Writer, logger *zap.Logger) {
	if err := snap.Save(s); err != nil {
		logger.Error("could not save mappings", zap.Error(err))
		fmt.Fprintf(out, "Error saving mappings: %v\n", err)
		return
	}

	logger.Debug("saved mappings", zap.Int("entries", s.Len()))
	fmt.Fprintln(out, "Mappings saved successfully!")
}
