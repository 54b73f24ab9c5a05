package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRenderTable_Plain(t *testing.T) {
	cols := []column{{title: "Name"}, {title: "Size", right: true}}
	out := renderTable(cols, [][]string{{"alpha", "7"}, {"beta"}, {"gamma", "12", "extra"}}, false)

	if strings.Contains(out, "\x1b[") {
		t.Errorf("plain table contains escape sequences:\n%s", out)
	}
	if !strings.Contains(out, "Name") || !strings.Contains(out, "Size") {
		t.Errorf("header case not preserved:\n%s", out)
	}
	if strings.Contains(out, "extra") {
		t.Errorf("cell past the last column was rendered:\n%s", out)
	}
	if !strings.Contains(out, "    7 │") {
		t.Errorf("right-aligned cell not padded on the left:\n%s", out)
	}
	if got := strings.Count(out, "\n") + 1; got != 7 {
		t.Errorf("table has %d lines, want 7:\n%s", got, out)
	}
}

func TestRenderTable_Colorized(t *testing.T) {
	out := renderTable(infoColumns, [][]string{{"Title", "Night Train"}}, true)
	if !strings.Contains(out, "\x1b[") {
		t.Errorf("colorized table has no escape sequences:\n%s", out)
	}
	if !strings.Contains(out, "Night Train") {
		t.Errorf("missing cell:\n%s", out)
	}
}

func TestRenderTable_WrapsLongCells(t *testing.T) {
	cols := []column{{title: "Title", maxWidth: 10}}
	out := renderTable(cols, [][]string{{"a very long chapter title"}}, false)
	for _, line := range strings.Split(out, "\n") {
		if n := len([]rune(line)); n > 14 {
			t.Errorf("line %q is %d runes wide, want at most 14", line, n)
		}
	}
}

func TestRenderTable_NoColumns(t *testing.T) {
	if out := renderTable(nil, [][]string{{"x"}}, false); out != "" {
		t.Errorf("renderTable(nil) = %q, want empty", out)
	}
}

func TestShouldColorize_NonTerminal(t *testing.T) {
	if shouldColorize(&bytes.Buffer{}) {
		t.Error("shouldColorize(buffer) = true")
	}
}
