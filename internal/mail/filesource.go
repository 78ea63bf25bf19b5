package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileSource reads exported messages from a directory of JSON files, one
// Message per file, named <message id>.json. It stands in for a real mail
// provider: useful for local runs against an inbox export and for
// integration testing.
type FileSource struct {
	dir string
}

func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// List returns refs for all stored messages, newest first. A non-empty
// query is applied as a case-insensitive substring match on subject and
// sender; provider-specific query syntax is not interpreted.
func (s *FileSource) List(ctx context.Context, query string) ([]Ref, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading message directory: %w", err)
	}

	query = strings.ToLower(strings.TrimSpace(query))

	var msgs []Message
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err := s.read(entry.Name())
		if err != nil {
			return nil, err
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(m.Subject), query) &&
			!strings.Contains(strings.ToLower(m.Sender), query) {
			continue
		}
		msgs = append(msgs, m)
	}

	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Date.After(msgs[j].Date) })

	refs := make([]Ref, len(msgs))
	for i, m := range msgs {
		refs[i] = Ref{ID: m.ID, ThreadID: m.ThreadID}
	}
	return refs, nil
}

// Fetch returns the full message for one ref.
func (s *FileSource) Fetch(ctx context.Context, ref Ref) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}
	return s.read(ref.ID + ".json")
}

func (s *FileSource) read(name string) (Message, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return Message{}, fmt.Errorf("reading message file %s: %w", name, err)
	}
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("parsing message file %s: %w", name, err)
	}
	if m.ID == "" {
		m.ID = strings.TrimSuffix(name, ".json")
	}
	return m, nil
}

var _ Source = (*FileSource)(nil)
