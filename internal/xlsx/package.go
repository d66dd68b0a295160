package xlsx

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ContentType is the MIME type of a .xlsx file.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	partContentTypes  = "[Content_Types].xml"
	partRootRels      = "_rels/.rels"
	partWorkbook      = "xl/workbook.xml"
	partWorkbookRels  = "xl/_rels/workbook.xml.rels"
	partSheet         = "xl/worksheets/sheet1.xml"
	partSharedStrings = "xl/sharedStrings.xml"
	partStyles        = "xl/styles.xml"

	xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"
	nsMain    = "http://schemas.openxmlformats.org/spreadsheetml/2006/main"
	nsRels    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsPkgRels = "http://schemas.openxmlformats.org/package/2006/relationships"
)

const contentTypesXML = xmlHeader +
	`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/xl/workbook.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"/>` +
	`<Override PartName="/xl/worksheets/sheet1.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"/>` +
	`<Override PartName="/xl/sharedStrings.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.sharedStrings+xml"/>` +
	`<Override PartName="/xl/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.styles+xml"/>` +
	`</Types>`

const rootRelsXML = xmlHeader +
	`<Relationships xmlns="` + nsPkgRels + `">` +
	`<Relationship Id="rId1" Type="` + nsRels + `/officeDocument" Target="xl/workbook.xml"/>` +
	`</Relationships>`

const workbookRelsXML = xmlHeader +
	`<Relationships xmlns="` + nsPkgRels + `">` +
	`<Relationship Id="rId1" Type="` + nsRels + `/worksheet" Target="worksheets/sheet1.xml"/>` +
	`<Relationship Id="rId2" Type="` + nsRels + `/sharedStrings" Target="sharedStrings.xml"/>` +
	`<Relationship Id="rId3" Type="` + nsRels + `/styles" Target="styles.xml"/>` +
	`</Relationships>`

const stylesXML = xmlHeader +
	`<styleSheet xmlns="` + nsMain + `">` +
	`<fonts count="1"><font><sz val="11"/><name val="Calibri"/></font></fonts>` +
	`<fills count="2"><fill><patternFill patternType="none"/></fill><fill><patternFill patternType="gray125"/></fill></fills>` +
	`<borders count="1"><border><left/><right/><top/><bottom/><diagonal/></border></borders>` +
	`<cellStyleXfs count="1"><xf numFmtId="0" fontId="0" fillId="0" borderId="0"/></cellStyleXfs>` +
	`<cellXfs count="1"><xf numFmtId="0" fontId="0" fillId="0" borderId="0" xfId="0"/></cellXfs>` +
	`<cellStyles count="1"><cellStyle name="Normal" xfId="0" builtinId="0"/></cellStyles>` +
	`</styleSheet>`

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// WriteTo writes the workbook as a zip package.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)

	parts := []struct {
		name string
		body string
	}{
		{partContentTypes, contentTypesXML},
		{partRootRels, rootRelsXML},
		{partWorkbook, d.workbookXML()},
		{partWorkbookRels, workbookRelsXML},
		{partSheet, d.sheetXML()},
		{partSharedStrings, d.sharedStringsXML()},
		{partStyles, stylesXML},
	}
	for _, p := range parts {
		f, err := zw.Create(p.name)
		if err != nil {
			return cw.n, fmt.Errorf("xlsx: create %s: %w", p.name, err)
		}
		if _, err := io.WriteString(f, p.body); err != nil {
			return cw.n, fmt.Errorf("xlsx: write %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return cw.n, fmt.Errorf("xlsx: close: %w", err)
	}
	return cw.n, nil
}

func (d *Document) workbookXML() string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<workbook xmlns="` + nsMain + `" xmlns:r="` + nsRels + `"><sheets><sheet name="`)
	escape(&b, d.sheetName)
	b.WriteString(`" sheetId="1" r:id="rId1"/></sheets></workbook>`)
	return b.String()
}

func (d *Document) sheetXML() string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<worksheet xmlns="` + nsMain + `"><sheetData>`)
	for i, row := range d.rows {
		rowNum := strconv.Itoa(i + 1)
		b.WriteString(`<row r="` + rowNum + `">`)
		for j, c := range row {
			ref := ColumnName(j+1) + rowNum
			if c.Kind == KindNumber {
				b.WriteString(`<c r="` + ref + `"><v>`)
				escape(&b, c.Value)
				b.WriteString(`</v></c>`)
				continue
			}
			b.WriteString(`<c r="` + ref + `" t="s"><v>` + strconv.Itoa(d.refs[i][j]) + `</v></c>`)
		}
		b.WriteString(`</row>`)
	}
	b.WriteString(`</sheetData></worksheet>`)
	return b.String()
}

func (d *Document) sharedStringsXML() string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<sst xmlns="` + nsMain + `" count="` + strconv.Itoa(d.strings.Count()) +
		`" uniqueCount="` + strconv.Itoa(d.strings.Unique()) + `">`)
	for _, s := range d.strings.Strings() {
		b.WriteString(`<si><t xml:space="preserve">`)
		escape(&b, s)
		b.WriteString(`</t></si>`)
	}
	b.WriteString(`</sst>`)
	return b.String()
}

func escape(b *strings.Builder, s string) {
	// strings.Builder never fails to write
	_ = xml.EscapeText(b, []byte(s))
}
