package util

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestToString(t *testing.T) {
	tests := []struct {
		in     any
		want   string
		wantOK bool
	}{
		{"99.5", "99.5", true},
		{json.Number("99.50"), "99.50", true},
		{12.5, "", false},
		{nil, "", false},
	}
	for _, tt := range tests {
		got, ok := ToString(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ToString(%#v) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestToFloat64(t *testing.T) {
	tests := []struct {
		in     any
		want   float64
		wantOK bool
	}{
		{json.Number("45"), 45, true},
		{" 80.5 ", 80.5, true},
		{int64(7), 7, true},
		{"n/a", 0, false},
		{true, 0, false},
	}
	for _, tt := range tests {
		got, ok := ToFloat64(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ToFloat64(%#v) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestFormatFloat(t *testing.T) {
	if got := FormatFloat(45); got != "45" {
		t.Errorf("FormatFloat(45) = %q", got)
	}
	if got := FormatFloat(99.5); got != "99.5" {
		t.Errorf("FormatFloat(99.5) = %q", got)
	}
}

func TestDecodeJSON_RejectsTrailingContent(t *testing.T) {
	var v map[string]any
	if err := DecodeJSON([]byte(`{"a":1} {"b":2}`), &v); err == nil {
		t.Fatal("expected error for trailing content")
	}
	if err := DecodeJSON([]byte(`{"a":1}`+"\n"), &v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := v["a"].(json.Number); !ok {
		t.Errorf("expected json.Number, got %T", v["a"])
	}
}

func TestReadAllLimit(t *testing.T) {
	b, err := ReadAllLimit(strings.NewReader("abcdef"), 3)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
	if string(b) != "abc" {
		t.Errorf("ReadAllLimit = %q, want abc", b)
	}

	b, err = ReadAllLimit(strings.NewReader("abc"), 3)
	if err != nil {
		t.Fatalf("exact size: unexpected error: %v", err)
	}
	if string(b) != "abc" {
		t.Errorf("ReadAllLimit = %q, want abc", b)
	}
}
