// Package session binds a primary JSON file and its sidecar to a table
// state, and implements the open, save, persist and reload flows.
package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/witanlabs/jsheet/internal/fsutil"
	"github.com/witanlabs/jsheet/internal/jsonio"
	"github.com/witanlabs/jsheet/internal/sheet"
	"github.com/witanlabs/jsheet/internal/sheeterr"
	"github.com/witanlabs/jsheet/internal/sidecar"
	"github.com/witanlabs/jsheet/internal/table"
)

// Session is not safe for concurrent use.
type Session struct {
	Path  string
	State *table.State

	// SidecarErr is set when the sidecar existed but could not be read.
	// The data is still loaded, with empty metadata.
	SidecarErr error

	lastHash string
}

// Open loads path and its sidecar.
func Open(path string) (*Session, error) {
	s := &Session{Path: path, State: table.New()}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenOrCreate is Open, except that a missing primary file starts an empty
// sheet which the first Save creates.
func OpenOrCreate(path string) (*Session, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return &Session{Path: path, State: table.New()}, nil
	}
	return Open(path)
}

func (s *Session) load() error {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return sheeterr.Wrap(sheeterr.KindIO, s.Path, err)
	}
	data, err := jsonio.Decode(raw)
	if err != nil {
		var se *sheeterr.Error
		if errors.As(err, &se) && se.Path == "" {
			se.Path = s.Path
		}
		return err
	}

	meta, err := sidecar.Load(s.Path, data)
	s.SidecarErr = nil
	if err != nil {
		s.SidecarErr = err
		meta = nil
	}
	s.State.Replace(data, meta)
	s.lastHash = fsutil.HashBytes(raw)
	return nil
}

// Save exports the rows to the primary file and then writes the sidecar
// keyed against what was exported. Nothing is written if export fails.
func (s *Session) Save() error {
	rows, err := s.State.ExportData()
	if err != nil {
		return err
	}
	raw, err := jsonio.Encode(rows)
	if err != nil {
		return sheeterr.Wrap(sheeterr.KindExport, s.Path, err)
	}
	if err := fsutil.WriteFileAtomic(s.Path, raw, 0o644); err != nil {
		return sheeterr.Wrap(sheeterr.KindIO, s.Path, err)
	}
	s.lastHash = fsutil.HashBytes(raw)
	if err := sidecar.Save(s.Path, s.State.MetaForSave(), rows); err != nil {
		return fmt.Errorf("data saved but sidecar failed: %w", err)
	}
	s.SidecarErr = nil
	return nil
}

// PersistMeta writes only the sidecar, keyed against the live rows.
func (s *Session) PersistMeta() error {
	if err := sidecar.Save(s.Path, s.State.MetaForSave(), s.State.Data()); err != nil {
		return err
	}
	s.SidecarErr = nil
	return nil
}

// Reload re-reads the primary file after an external edit. Metadata is
// carried across by row key, or by position when no key is set. History
// and view state are reset.
func (s *Session) Reload() error {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return sheeterr.Wrap(sheeterr.KindIO, s.Path, err)
	}
	data, err := jsonio.Decode(raw)
	if err != nil {
		var se *sheeterr.Error
		if errors.As(err, &se) && se.Path == "" {
			se.Path = s.Path
		}
		return err
	}
	meta, err := sidecar.Realign(s.State.MetaForSave(), s.State.Data(), data)
	if err != nil {
		return fmt.Errorf("carrying metadata across reload: %w", err)
	}
	s.State.Replace(data, meta)
	s.lastHash = fsutil.HashBytes(raw)
	return nil
}

// LastHash is the content hash of the primary file as last read or
// written by this session.
func (s *Session) LastHash() string { return s.lastHash }

// ChangedOnDisk reports whether the primary file now differs from what
// this session last read or wrote.
func (s *Session) ChangedOnDisk() (bool, error) {
	h, err := fsutil.HashFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return h != s.lastHash, nil
}

// Rows is a convenience for callers that only need the live data.
func (s *Session) Rows() []sheet.Row { return s.State.Data() }
