package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/witanlabs/jsheet/client"
	"github.com/witanlabs/jsheet/internal/coerce"
	"github.com/witanlabs/jsheet/internal/sheet"
	"github.com/witanlabs/jsheet/internal/sheeterr"
	"github.com/witanlabs/jsheet/internal/table"
	"github.com/witanlabs/jsheet/internal/value"
)

const kindRequest = "request"

// requestError is a malformed or unsatisfiable call, as opposed to a
// sheet error.
type requestError struct{ msg string }

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

func errUnknownOp(op string) error { return badRequest("unknown op %q", op) }

func failure(id string, err error) client.Message {
	kind := kindRequest
	if k, ok := sheeterr.KindOf(err); ok {
		kind = string(k)
	}
	return client.Message{ID: id, Error: &client.ErrorBody{Kind: kind, Message: err.Error()}}
}

func encodeResult(result any) (json.RawMessage, error) {
	if result == nil {
		return nil, nil
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return raw, nil
}

func decodeArgs(raw json.RawMessage, dst any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return badRequest("invalid args: %v", err)
	}
	return nil
}

func decodeValue(raw json.RawMessage) (value.Value, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return value.Null(), nil
	}
	var v value.Value
	if err := json.Unmarshal(raw, &v); err != nil {
		return value.Value{}, badRequest("invalid value: %v", err)
	}
	return v, nil
}

type handler struct {
	fn func(s *Server, args json.RawMessage) (any, error)
	// event is broadcast to other clients after a successful call.
	event string
}

var ops map[string]handler

func init() {
	changed := client.EventChanged
	ops = map[string]handler{
		"snapshot":      {fn: opSnapshot},
		"set_cell":      {fn: opSetCell, event: changed},
		"set_formula":   {fn: opSetFormula, event: changed},
		"clear_formula": {fn: opClearFormula, event: changed},
		"apply_edits":   {fn: opApplyEdits, event: changed},
		"add_row":       {fn: opAddRow, event: changed},
		"insert_row":    {fn: opInsertRow, event: changed},
		"delete_row":    {fn: opDeleteRow, event: changed},
		"add_column":    {fn: opAddColumn, event: changed},
		"delete_column": {fn: opDeleteColumn, event: changed},
		"sort":          {fn: opSort, event: changed},
		"filter":        {fn: opFilter},
		"clear_filter":  {fn: opClearFilter},
		"search":        {fn: opSearch},
		"undo":          {fn: opUndo, event: changed},
		"redo":          {fn: opRedo, event: changed},
		"set_type":      {fn: opSetType, event: changed},
		"set_summary":   {fn: opSetSummary, event: changed},
		"set_style":     {fn: opSetStyle, event: changed},
		"clear_style":   {fn: opClearStyle, event: changed},
		"set_rule":      {fn: opSetRule, event: changed},
		"add_cond":      {fn: opAddCond, event: changed},
		"remove_cond":   {fn: opRemoveCond, event: changed},
		"set_comment":   {fn: opSetComment, event: changed},
		"set_frozen":    {fn: opSetFrozen, event: changed},
		"set_order":     {fn: opSetOrder, event: changed},
		"set_row_key":   {fn: opSetRowKey, event: changed},
		"eval":          {fn: opEval},
		"save":          {fn: opSave, event: client.EventSaved},
		"persist":       {fn: opPersist},
	}
}

// OpNames lists the supported ops.
func OpNames() []string {
	names := make([]string, 0, len(ops))
	for name := range ops {
		names = append(names, name)
	}
	return names
}

func changedResult(ok bool) client.ChangedResult { return client.ChangedResult{Changed: ok} }

func opSnapshot(s *Server, _ json.RawMessage) (any, error) {
	return BuildSnapshot(s.sess.Path, s.sess.State, s.sess.SidecarErr), nil
}

func opSetCell(s *Server, raw json.RawMessage) (any, error) {
	var a client.CellArgs
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	var ok bool
	var err error
	if a.Input != nil {
		ok, err = s.sess.State.SetCellFromInput(a.Row, a.Column, *a.Input)
	} else {
		v, verr := decodeValue(a.Value)
		if verr != nil {
			return nil, verr
		}
		ok, err = s.sess.State.SetCellValue(a.Row, a.Column, v)
	}
	if err != nil {
		return nil, err
	}
	return changedResult(ok), nil
}

func opSetFormula(s *Server, raw json.RawMessage) (any, error) {
	var a client.CellArgs
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	ok, err := s.sess.State.SetCellFormula(a.Row, a.Column, a.Formula)
	if err != nil {
		return nil, err
	}
	return changedResult(ok), nil
}

func opClearFormula(s *Server, raw json.RawMessage) (any, error) {
	var a client.CellArgs
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	return changedResult(s.sess.State.RemoveCellFormula(a.Row, a.Column)), nil
}

func opApplyEdits(s *Server, raw json.RawMessage) (any, error) {
	var a struct {
		Edits []client.EditArgs `json:"edits"`
	}
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	edits := make([]table.CellEdit, len(a.Edits))
	for i, e := range a.Edits {
		if e.Formula != nil {
			edits[i] = table.FormulaEdit(e.Row, e.Column, *e.Formula)
			continue
		}
		v, err := decodeValue(e.Value)
		if err != nil {
			return nil, fmt.Errorf("edit %d: %w", i, err)
		}
		edits[i] = table.ValueEdit(e.Row, e.Column, v)
	}
	n, skipped := s.sess.State.ApplyCellEdits(edits)
	out := client.EditsResult{Changed: n}
	for _, sk := range skipped {
		reason := "unchanged"
		if sk.Err != nil {
			reason = sk.Err.Error()
		}
		out.Skipped = append(out.Skipped, client.SkippedEdit{Index: sk.Index, Reason: reason})
	}
	return out, nil
}

func opAddRow(s *Server, _ json.RawMessage) (any, error) {
	row := s.sess.State.AddRow()
	return client.ChangedResult{Changed: true, Row: &row}, nil
}

func opInsertRow(s *Server, raw json.RawMessage) (any, error) {
	var a struct {
		Row int `json:"row"`
	}
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	if !s.sess.State.InsertRow(a.Row) {
		return nil, badRequest("row %d out of range", a.Row)
	}
	return client.ChangedResult{Changed: true, Row: &a.Row}, nil
}

func opDeleteRow(s *Server, raw json.RawMessage) (any, error) {
	var a struct {
		Row int `json:"row"`
	}
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	return changedResult(s.sess.State.DeleteRow(a.Row)), nil
}

type columnArgs struct {
	Column string `json:"column"`
}

func opAddColumn(s *Server, raw json.RawMessage) (any, error) {
	var a columnArgs
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	return changedResult(s.sess.State.AddColumn(a.Column)), nil
}

func opDeleteColumn(s *Server, raw json.RawMessage) (any, error) {
	var a columnArgs
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	return changedResult(s.sess.State.DeleteColumn(a.Column)), nil
}

func opSort(s *Server, raw json.RawMessage) (any, error) {
	var a struct {
		Column string `json:"column"`
		Order  string `json:"order"`
	}
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	switch strings.ToLower(a.Order) {
	case "":
		return changedResult(s.sess.State.SortByColumnToggle(a.Column)), nil
	case "asc":
		return changedResult(s.sess.State.SortBy(a.Column, table.Asc)), nil
	case "desc":
		return changedResult(s.sess.State.SortBy(a.Column, table.Desc)), nil
	}
	return nil, badRequest("order must be asc, desc or empty, got %q", a.Order)
}

func opFilter(s *Server, raw json.RawMessage) (any, error) {
	var a struct {
		Column string `json:"column"`
		Query  string `json:"query"`
	}
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	s.sess.State.SetFilter(a.Column, a.Query)
	return struct {
		Visible []int `json:"visible"`
	}{s.sess.State.VisibleRows()}, nil
}

func opClearFilter(s *Server, _ json.RawMessage) (any, error) {
	s.sess.State.ClearFilter()
	return nil, nil
}

func opSearch(s *Server, raw json.RawMessage) (any, error) {
	var a struct {
		Query string `json:"query"`
	}
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	s.sess.State.SetSearch(a.Query)
	return struct {
		Matches []client.CellRef `json:"matches"`
	}{cellRefs(s.sess.State.SearchMatches())}, nil
}

func opUndo(s *Server, _ json.RawMessage) (any, error) {
	return changedResult(s.sess.State.Undo()), nil
}

func opRedo(s *Server, _ json.RawMessage) (any, error) {
	return changedResult(s.sess.State.Redo()), nil
}

func opSetType(s *Server, raw json.RawMessage) (any, error) {
	var a struct {
		Column string `json:"column"`
		Type   string `json:"type"`
	}
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	var t coerce.ColumnType
	if a.Type != "" {
		var err error
		if t, err = coerce.ParseType(a.Type); err != nil {
			return nil, badRequest("%v", err)
		}
	}
	s.sess.State.SetColumnType(a.Column, t)
	return nil, nil
}

func opSetSummary(s *Server, raw json.RawMessage) (any, error) {
	var a struct {
		Column  string `json:"column"`
		Summary string `json:"summary"`
	}
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	var k sheet.SummaryKind
	if a.Summary != "" {
		var err error
		if k, err = sheet.ParseSummaryKind(a.Summary); err != nil {
			return nil, badRequest("%v", err)
		}
	}
	s.sess.State.SetSummaryKind(a.Column, k)
	return nil, nil
}

func opSetStyle(s *Server, raw json.RawMessage) (any, error) {
	var a client.CellArgs
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	return changedResult(s.sess.State.SetCellStyle(a.Row, a.Column, a.Color, a.Background)), nil
}

func opClearStyle(s *Server, raw json.RawMessage) (any, error) {
	var a client.CellArgs
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	return changedResult(s.sess.State.ClearCellStyle(a.Row, a.Column)), nil
}

func opSetRule(s *Server, raw json.RawMessage) (any, error) {
	var a struct {
		Column string      `json:"column"`
		Rule   coerce.Rule `json:"rule"`
	}
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	s.sess.State.SetValidationRule(a.Column, a.Rule)
	return nil, nil
}

func opAddCond(s *Server, raw json.RawMessage) (any, error) {
	var cf sheet.ConditionalFormat
	if err := decodeArgs(raw, &cf); err != nil {
		return nil, err
	}
	if err := s.sess.State.AddConditionalFormat(cf); err != nil {
		return nil, badRequest("%v", err)
	}
	return nil, nil
}

func opRemoveCond(s *Server, raw json.RawMessage) (any, error) {
	var a struct {
		Index int `json:"index"`
	}
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	return changedResult(s.sess.State.RemoveConditionalFormat(a.Index)), nil
}

func opSetComment(s *Server, raw json.RawMessage) (any, error) {
	var a struct {
		Column  string `json:"column"`
		Comment bool   `json:"comment"`
	}
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	return changedResult(s.sess.State.SetCommentColumn(a.Column, a.Comment)), nil
}

func opSetFrozen(s *Server, raw json.RawMessage) (any, error) {
	var a struct {
		Columns int `json:"columns"`
	}
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	s.sess.State.SetFrozenColumns(a.Columns)
	return nil, nil
}

func opSetOrder(s *Server, raw json.RawMessage) (any, error) {
	var a struct {
		Columns []string `json:"columns"`
	}
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	s.sess.State.SetColumnOrder(a.Columns)
	return nil, nil
}

func opSetRowKey(s *Server, raw json.RawMessage) (any, error) {
	var a columnArgs
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	if err := s.sess.State.SetRowKey(a.Column); err != nil {
		return nil, badRequest("%v", err)
	}
	return nil, nil
}

func opEval(s *Server, raw json.RawMessage) (any, error) {
	var a client.CellArgs
	if err := decodeArgs(raw, &a); err != nil {
		return nil, err
	}
	var v value.Value
	if a.Formula != "" {
		var err error
		if v, err = s.sess.State.EvalFormula(a.Row, a.Formula); err != nil {
			return nil, err
		}
	} else {
		var ok bool
		if v, ok = s.sess.State.CellValue(a.Row, a.Column); !ok {
			return nil, badRequest("no value at row %d column %q", a.Row, a.Column)
		}
	}
	return struct {
		Value   value.Value `json:"value"`
		Display string      `json:"display"`
	}{v, v.Display()}, nil
}

func opSave(s *Server, _ json.RawMessage) (any, error) {
	if err := s.sess.Save(); err != nil {
		return nil, err
	}
	s.log.Info("saved", "path", s.sess.Path)
	return nil, nil
}

func opPersist(s *Server, _ json.RawMessage) (any, error) {
	return nil, s.sess.PersistMeta()
}

func cellRefs(refs []table.CellRef) []client.CellRef {
	if refs == nil {
		return nil
	}
	out := make([]client.CellRef, len(refs))
	for i, r := range refs {
		out[i] = client.CellRef{Row: r.Row, Column: r.Column}
	}
	return out
}
