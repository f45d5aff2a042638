package table

import (
	"fmt"

	"github.com/tiendc/go-deepcopy"

	"github.com/witanlabs/jsheet/internal/sheet"
)

type snapshot struct {
	Data []sheet.Row
	Meta *sheet.Meta
	Sort *SortSpec
}

// clone returns a deep copy of src. Every type cloned here has only
// exported fields, which deepcopy can always copy.
func clone[T any](src T) T {
	var dst T
	if err := deepcopy.Copy(&dst, src); err != nil {
		panic(fmt.Sprintf("table: deep copy of %T: %v", src, err))
	}
	return dst
}

func (s *State) snapshot() snapshot {
	return clone(snapshot{Data: s.data, Meta: s.meta, Sort: s.sort})
}

func (s *State) pushUndo() {
	s.undo = append(s.undo, s.snapshot())
	s.redo = nil
}

func (s *State) restore(snap snapshot) {
	s.data = snap.Data
	s.meta = snap.Meta
	if s.meta == nil {
		s.meta = &sheet.Meta{}
	}
	s.sort = snap.Sort
}

// Undo restores the state before the last mutation.
func (s *State) Undo() bool {
	if len(s.undo) == 0 {
		return false
	}
	entry := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	s.redo = append(s.redo, s.snapshot())
	s.restore(entry)
	return true
}

// Redo reapplies the last undone mutation.
func (s *State) Redo() bool {
	if len(s.redo) == 0 {
		return false
	}
	entry := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]
	s.undo = append(s.undo, s.snapshot())
	s.restore(entry)
	return true
}

func (s *State) CanUndo() bool { return len(s.undo) > 0 }
func (s *State) CanRedo() bool { return len(s.redo) > 0 }
