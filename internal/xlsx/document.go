// Package xlsx builds minimal single-sheet Office Open XML workbooks.
//
// A Document is an in-memory tree: a shared-string table plus rows of
// cells. WriteTo packages it; nothing about the zip layout leaks into how
// rows are built, so the two halves can be tested apart.
package xlsx

import (
	"strconv"
	"strings"
)

type CellKind int

const (
	KindString CellKind = iota
	KindNumber
)

// Cell is either a shared-string reference or a number. For numbers Value
// is the literal written into <v>, for strings it is the text itself.
type Cell struct {
	Kind  CellKind
	Value string
}

func String(s string) Cell { return Cell{Kind: KindString, Value: s} }

func Int(v int64) Cell { return Cell{Kind: KindNumber, Value: strconv.FormatInt(v, 10)} }

// Float formats v with prec fractional digits.
func Float(v float64, prec int) Cell {
	return Cell{Kind: KindNumber, Value: strconv.FormatFloat(v, 'f', prec, 64)}
}

// SharedStrings interns text values. Indexes follow first-seen order.
type SharedStrings struct {
	index map[string]int
	list  []string
	refs  int
}

func NewSharedStrings() *SharedStrings {
	return &SharedStrings{index: make(map[string]int)}
}

// Add returns the index of s, appending it if it is new. Every call counts
// as one reference.
func (ss *SharedStrings) Add(s string) int {
	ss.refs++
	if i, ok := ss.index[s]; ok {
		return i
	}
	i := len(ss.list)
	ss.index[s] = i
	ss.list = append(ss.list, s)
	return i
}

func (ss *SharedStrings) Strings() []string { return ss.list }

// Unique is the number of distinct strings.
func (ss *SharedStrings) Unique() int { return len(ss.list) }

// Count is the number of references made through Add.
func (ss *SharedStrings) Count() int { return ss.refs }

type Document struct {
	sheetName string
	strings   *SharedStrings
	rows      [][]Cell
	// sst index per string cell, parallel to rows
	refs [][]int
}

// NewDocument returns an empty workbook with one sheet. The name is cut to
// what spreadsheet applications accept.
func NewDocument(sheetName string) *Document {
	return &Document{
		sheetName: cleanSheetName(sheetName),
		strings:   NewSharedStrings(),
	}
}

func (d *Document) SheetName() string { return d.sheetName }

func (d *Document) SharedStrings() *SharedStrings { return d.strings }

func (d *Document) Rows() [][]Cell { return d.rows }

// AddRow appends one row, interning its string cells in order.
func (d *Document) AddRow(cells ...Cell) {
	row := make([]Cell, len(cells))
	copy(row, cells)

	refs := make([]int, len(cells))
	for i, c := range row {
		refs[i] = -1
		if c.Kind == KindString {
			refs[i] = d.strings.Add(c.Value)
		}
	}
	d.rows = append(d.rows, row)
	d.refs = append(d.refs, refs)
}

// AddStringRow appends a row made of string cells only, e.g. a header.
func (d *Document) AddStringRow(values ...string) {
	cells := make([]Cell, len(values))
	for i, v := range values {
		cells[i] = String(v)
	}
	d.AddRow(cells...)
}

// ColumnName converts a 1-based column index to its letters: 1 → A,
// 26 → Z, 27 → AA. It returns "" for index < 1.
func ColumnName(index int) string {
	if index < 1 {
		return ""
	}
	var buf [8]byte
	i := len(buf)
	for index > 0 {
		index--
		i--
		buf[i] = byte('A' + index%26)
		index /= 26
	}
	return string(buf[i:])
}

// ColumnIndex is the inverse of ColumnName. It returns 0 for anything that
// is not a run of upper-case letters.
func ColumnIndex(name string) int {
	if name == "" {
		return 0
	}
	n := 0
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c < 'A' || c > 'Z' {
			return 0
		}
		n = n*26 + int(c-'A'+1)
	}
	return n
}

const maxSheetNameLen = 31

func cleanSheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	name = strings.Trim(name, "'")

	if r := []rune(name); len(r) > maxSheetNameLen {
		name = string(r[:maxSheetNameLen])
	}
	if name == "" {
		return "Sheet1"
	}
	return name
}
