package testutil

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

// FixtureSlide describes one slide of a generated deck. A shape's lines
// become separate paragraphs.
type FixtureSlide struct {
	Shapes []string
	Group  []string // shapes nested in a group shape, after Shapes
	Table  [][]string
}

// FixtureSheet describes one worksheet of a generated workbook. Nil values
// leave the cell empty.
type FixtureSheet struct {
	Name string
	Rows [][]any
}

const slideHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>`

const slideFooter = `</p:spTree></p:cSld></p:sld>`

// PPTXBytes renders slides as a minimal .pptx archive. order lists 1-based
// slide part numbers in presentation order; nil keeps part order.
func PPTXBytes(t testing.TB, slides []FixtureSlide, order []int) []byte {
	t.Helper()

	if order == nil {
		for i := range slides {
			order = append(order, i+1)
		}
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	write := func(name, content string) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("creating %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}

	var ids, rels strings.Builder
	for i, n := range order {
		fmt.Fprintf(&ids, `<p:sldId id="%d" r:id="rId%d"/>`, 256+i, n+1)
	}
	for i := range slides {
		fmt.Fprintf(&rels, `<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide%d.xml"/>`, i+2, i+1)
	}

	write("ppt/presentation.xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:presentation xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:sldIdLst>`+ids.String()+`</p:sldIdLst></p:presentation>`)
	write("ppt/_rels/presentation.xml.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+rels.String()+`</Relationships>`)

	for i, s := range slides {
		write(fmt.Sprintf("ppt/slides/slide%d.xml", i+1), SlideXML(s))
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("closing pptx: %v", err)
	}
	return buf.Bytes()
}

// SlideXML renders one slide part.
func SlideXML(s FixtureSlide) string {
	var b strings.Builder
	b.WriteString(slideHeader)
	for _, text := range s.Shapes {
		writeShape(&b, text)
	}
	if len(s.Group) > 0 {
		b.WriteString(`<p:grpSp><p:nvGrpSpPr><p:cNvPr id="90" name="Group"/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>`)
		for _, text := range s.Group {
			writeShape(&b, text)
		}
		b.WriteString(`</p:grpSp>`)
	}
	if len(s.Table) > 0 {
		b.WriteString(`<p:graphicFrame><a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/table"><a:tbl>`)
		for _, row := range s.Table {
			b.WriteString(`<a:tr h="370840">`)
			for _, cell := range row {
				b.WriteString(`<a:tc><a:txBody><a:bodyPr/>`)
				writeParagraphs(&b, cell)
				b.WriteString(`</a:txBody></a:tc>`)
			}
			b.WriteString(`</a:tr>`)
		}
		b.WriteString(`</a:tbl></a:graphicData></a:graphic></p:graphicFrame>`)
	}
	b.WriteString(slideFooter)
	return b.String()
}

func writeShape(b *strings.Builder, text string) {
	b.WriteString(`<p:sp><p:nvSpPr><p:cNvPr id="2" name="Shape"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/>`)
	writeParagraphs(b, text)
	b.WriteString(`</p:txBody></p:sp>`)
}

func writeParagraphs(b *strings.Builder, text string) {
	for _, line := range strings.Split(text, "\n") {
		b.WriteString(`<a:p><a:r><a:rPr lang="en-US"/><a:t>`)
		_ = xml.EscapeText(b, []byte(line))
		b.WriteString(`</a:t></a:r></a:p>`)
	}
}

// WritePPTX writes a generated deck into dir and returns its path.
func WritePPTX(t testing.TB, dir, name string, slides ...FixtureSlide) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, PPTXBytes(t, slides, nil), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

// XLSXBytes renders sheets as an .xlsx workbook.
func XLSXBytes(t testing.TB, sheets ...FixtureSheet) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.Name); err != nil {
				t.Fatalf("renaming sheet: %v", err)
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			t.Fatalf("creating sheet %s: %v", s.Name, err)
		}

		for r, row := range s.Rows {
			for c, v := range row {
				if v == nil {
					continue
				}
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					t.Fatalf("cell name: %v", err)
				}
				if err := f.SetCellValue(s.Name, cell, v); err != nil {
					t.Fatalf("setting %s!%s: %v", s.Name, cell, err)
				}
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("encoding xlsx: %v", err)
	}
	return buf.Bytes()
}

// WriteXLSX writes a generated workbook into dir and returns its path.
func WriteXLSX(t testing.TB, dir, name string, sheets ...FixtureSheet) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, XLSXBytes(t, sheets...), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}
