package client

import (
	"encoding/json"

	"github.com/witanlabs/jsheet/internal/sheet"
)

// Request is one call from a client. Rows are 0-based on the wire.
type Request struct {
	ID   string          `json:"id"`
	Op   string          `json:"op"`
	Args json.RawMessage `json:"args,omitempty"`
}

// ErrorBody describes a failed call. Kind is one of the sheet error kinds
// (io, parse, schema, formula, coercion, export) or "request" for a
// malformed call.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Message is any frame sent by the server: a response when ID is set, an
// event when Event is set.
type Message struct {
	ID     string          `json:"id,omitempty"`
	OK     bool            `json:"ok,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ErrorBody      `json:"error,omitempty"`

	Event  string `json:"event,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Server events.
const (
	EventReloaded = "reloaded"
	EventSaved    = "saved"
	EventChanged  = "changed"
)

// SortView is the active sort as reported in a snapshot.
type SortView struct {
	Column string `json:"column"`
	Order  string `json:"order"`
}

type FilterView struct {
	Column string `json:"column"`
	Query  string `json:"query"`
}

type CellRef struct {
	Row    int    `json:"row"`
	Column string `json:"column"`
}

// Snapshot is the full view of a served sheet.
type Snapshot struct {
	Path      string              `json:"path"`
	Columns   []string            `json:"columns"`
	Rows      []sheet.Row         `json:"rows"`
	Visible   []int               `json:"visible"`
	Formulas  []map[string]string `json:"formulas,omitempty"`
	Styles    []map[string]string `json:"styles,omitempty"`
	Summaries map[string]string   `json:"summaries,omitempty"`
	Types     map[string]string   `json:"types,omitempty"`
	Comments  []string            `json:"comment_columns,omitempty"`
	RowKey    string              `json:"row_key,omitempty"`
	Frozen    int                 `json:"frozen_columns,omitempty"`
	Sort      *SortView           `json:"sort,omitempty"`
	Filter    *FilterView         `json:"filter,omitempty"`
	Search    string              `json:"search,omitempty"`
	Matches   []CellRef           `json:"matches,omitempty"`
	CanUndo   bool                `json:"can_undo"`
	CanRedo   bool                `json:"can_redo"`
	Warning   string              `json:"warning,omitempty"`
}

// CellArgs addresses a cell. For set_cell, Input is parsed like typed text
// and takes precedence over Value.
type CellArgs struct {
	Row        int             `json:"row"`
	Column     string          `json:"column"`
	Input      *string         `json:"input,omitempty"`
	Value      json.RawMessage `json:"value,omitempty"`
	Formula    string          `json:"formula,omitempty"`
	Color      string          `json:"color,omitempty"`
	Background string          `json:"background,omitempty"`
}

// EditArgs is one entry of apply_edits. A non-nil Formula makes it a
// formula edit.
type EditArgs struct {
	Row     int             `json:"row"`
	Column  string          `json:"column"`
	Value   json.RawMessage `json:"value,omitempty"`
	Formula *string         `json:"formula,omitempty"`
}

type SkippedEdit struct {
	Index  int    `json:"index"`
	Reason string `json:"reason,omitempty"`
}

type EditsResult struct {
	Changed int           `json:"changed"`
	Skipped []SkippedEdit `json:"skipped,omitempty"`
}

// ChangedResult reports whether a mutating call changed anything.
type ChangedResult struct {
	Changed bool `json:"changed"`
	Row     *int `json:"row,omitempty"`
}
