package sheeterr

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"message only", New(KindFormula, "unexpected token %q", ")"), `formula error: unexpected token ")"`},
		{"with path", Wrap(KindIO, "data.json", fs.ErrNotExist), "io error: data.json: file does not exist"},
		{"message and cause", &Error{Kind: KindParse, Msg: "bad sidecar", Err: errors.New("eof")}, "parse error: bad sidecar: eof"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	base := Wrap(KindIO, "x.json", fs.ErrPermission)
	wrapped := fmt.Errorf("open sheet: %w", base)

	if !Is(wrapped, KindIO) {
		t.Fatalf("expected io kind through wrapping")
	}
	if Is(wrapped, KindParse) {
		t.Fatalf("did not expect parse kind")
	}
	if !errors.Is(wrapped, fs.ErrPermission) {
		t.Fatalf("expected underlying cause to be reachable")
	}
	if _, ok := KindOf(errors.New("plain")); ok {
		t.Fatalf("plain errors have no kind")
	}
}
