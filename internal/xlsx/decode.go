package xlsx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

type xmlWorkbook struct {
	Sheets []struct {
		Name string `xml:"name,attr"`
	} `xml:"sheets>sheet"`
}

type xmlSST struct {
	Items []struct {
		T string `xml:"t"`
	} `xml:"si"`
}

type xmlWorksheet struct {
	Rows []struct {
		R     int `xml:"r,attr"`
		Cells []struct {
			R string `xml:"r,attr"`
			T string `xml:"t,attr"`
			V string `xml:"v"`
		} `xml:"c"`
	} `xml:"sheetData>row"`
}

// Decode reads a package produced by WriteTo back into a Document, resolving
// shared-string references. Only the first sheet is read.
func Decode(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("xlsx: open package: %w", err)
	}

	var wb xmlWorkbook
	if err := readPart(zr, partWorkbook, &wb); err != nil {
		return nil, err
	}
	if len(wb.Sheets) == 0 {
		return nil, fmt.Errorf("xlsx: workbook has no sheets")
	}

	var sst xmlSST
	if err := readPart(zr, partSharedStrings, &sst); err != nil {
		return nil, err
	}

	var ws xmlWorksheet
	if err := readPart(zr, partSheet, &ws); err != nil {
		return nil, err
	}

	doc := NewDocument(wb.Sheets[0].Name)
	for i, row := range ws.Rows {
		if row.R != i+1 {
			return nil, fmt.Errorf("xlsx: row %d out of order (r=%d)", i+1, row.R)
		}
		var cells []Cell
		for _, c := range row.Cells {
			col := ColumnIndex(strings.TrimSuffix(c.R, strconv.Itoa(row.R)))
			if col < 1 {
				return nil, fmt.Errorf("xlsx: bad cell reference %q", c.R)
			}
			for len(cells) < col-1 {
				cells = append(cells, String(""))
			}
			switch c.T {
			case "s":
				idx, err := strconv.Atoi(c.V)
				if err != nil || idx < 0 || idx >= len(sst.Items) {
					return nil, fmt.Errorf("xlsx: cell %s: bad shared string index %q", c.R, c.V)
				}
				cells = append(cells, String(sst.Items[idx].T))
			case "", "n":
				cells = append(cells, Cell{Kind: KindNumber, Value: c.V})
			default:
				return nil, fmt.Errorf("xlsx: cell %s: unsupported type %q", c.R, c.T)
			}
		}
		doc.AddRow(cells...)
	}
	return doc, nil
}

func readPart(zr *zip.Reader, name string, v any) error {
	f, err := zr.Open(name)
	if err != nil {
		return fmt.Errorf("xlsx: open %s: %w", name, err)
	}
	defer f.Close()

	body, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("xlsx: read %s: %w", name, err)
	}
	if err := xml.Unmarshal(body, v); err != nil {
		return fmt.Errorf("xlsx: parse %s: %w", name, err)
	}
	return nil
}
