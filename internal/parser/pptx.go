package parser

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/deck-auditor/backend/internal/models"
)

const (
	nsPresentationML = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsDrawingML      = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsRelationships  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

	presentationPart = "ppt/presentation.xml"
	presentationRels = "ppt/_rels/presentation.xml.rels"
)

var slidePartRegex = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// PPTXReader reads OOXML slide decks.
type PPTXReader struct{}

func NewPPTXReader() *PPTXReader {
	return &PPTXReader{}
}

func (r *PPTXReader) Name() string {
	return "pptx"
}

func (r *PPTXReader) CanRead(fileName string) bool {
	return hasExtension(fileName, ".pptx")
}

func (r *PPTXReader) ReadPresentation(filePath, fileName string) (*models.Presentation, error) {
	zr, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening pptx: %w", err)
	}
	defer zr.Close()

	parts := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		parts[f.Name] = f
	}

	order := slideOrder(parts)
	if len(order) == 0 {
		return nil, fmt.Errorf("no slides found in %s", fileName)
	}

	pres := &models.Presentation{Name: fileName, Slides: make([]models.Slide, 0, len(order))}
	for i, name := range order {
		slide, err := readSlide(parts[name])
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		slide.Number = i + 1
		slide.Title = fmt.Sprintf("Slide %d", slide.Number)
		if len(slide.Shapes) > 0 {
			slide.Title = slide.Shapes[0]
		}
		pres.Slides = append(pres.Slides, slide)
	}
	return pres, nil
}

type presentationXML struct {
	SlideIDs []struct {
		RelID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
}

type relationshipsXML struct {
	Relationships []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// slideOrder lists slide part names in presentation order. It follows the
// deck's slide id list and falls back to numeric part order.
func slideOrder(parts map[string]*zip.File) []string {
	if order, err := declaredSlideOrder(parts); err == nil && len(order) > 0 {
		return order
	}

	type numbered struct {
		name string
		n    int
	}
	var found []numbered
	for name := range parts {
		m := slidePartRegex.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		found = append(found, numbered{name, n})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })

	order := make([]string, len(found))
	for i, f := range found {
		order[i] = f.name
	}
	return order
}

func declaredSlideOrder(parts map[string]*zip.File) ([]string, error) {
	presPart, ok := parts[presentationPart]
	if !ok {
		return nil, errors.New("missing presentation part")
	}
	relsPart, ok := parts[presentationRels]
	if !ok {
		return nil, errors.New("missing presentation relationships")
	}

	var pres presentationXML
	if err := decodePart(presPart, &pres); err != nil {
		return nil, err
	}
	var rels relationshipsXML
	if err := decodePart(relsPart, &rels); err != nil {
		return nil, err
	}

	targets := make(map[string]string, len(rels.Relationships))
	for _, rel := range rels.Relationships {
		targets[rel.ID] = rel.Target
	}

	var order []string
	for _, id := range pres.SlideIDs {
		target, ok := targets[id.RelID]
		if !ok {
			continue
		}
		name := resolvePartName(target)
		if _, ok := parts[name]; ok {
			order = append(order, name)
		}
	}
	return order, nil
}

func resolvePartName(target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join("ppt", target)
}

func decodePart(f *zip.File, v any) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return xml.NewDecoder(rc).Decode(v)
}

// textBuilder collects the runs of one text body, one line per paragraph.
type textBuilder struct {
	sb         strings.Builder
	paragraphs int
}

func (b *textBuilder) paragraph() {
	if b.paragraphs > 0 {
		b.sb.WriteByte('\n')
	}
	b.paragraphs++
}

func (b *textBuilder) String() string {
	return strings.TrimSpace(b.sb.String())
}

// readSlide streams one slide part. Shapes (including those nested in
// groups) are collected in document order; table cells go to their table.
func readSlide(f *zip.File) (models.Slide, error) {
	var slide models.Slide

	rc, err := f.Open()
	if err != nil {
		return slide, err
	}
	defer rc.Close()

	var (
		shape  *textBuilder
		table  *models.Table
		row    []string
		cell   *textBuilder
		inText bool
	)
	target := func() *textBuilder {
		if cell != nil {
			return cell
		}
		return shape
	}

	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return slide, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name {
			case xml.Name{Space: nsPresentationML, Local: "sp"}:
				shape = &textBuilder{}
			case xml.Name{Space: nsDrawingML, Local: "tbl"}:
				table = &models.Table{}
			case xml.Name{Space: nsDrawingML, Local: "tr"}:
				row = []string{}
			case xml.Name{Space: nsDrawingML, Local: "tc"}:
				cell = &textBuilder{}
			case xml.Name{Space: nsDrawingML, Local: "p"}:
				if b := target(); b != nil {
					b.paragraph()
				}
			case xml.Name{Space: nsDrawingML, Local: "br"}:
				if b := target(); b != nil {
					b.sb.WriteByte('\n')
				}
			case xml.Name{Space: nsDrawingML, Local: "t"}:
				inText = true
			}

		case xml.EndElement:
			switch t.Name {
			case xml.Name{Space: nsPresentationML, Local: "sp"}:
				if shape != nil {
					if text := shape.String(); text != "" {
						slide.Shapes = append(slide.Shapes, text)
					}
				}
				shape = nil
			case xml.Name{Space: nsDrawingML, Local: "tbl"}:
				if table != nil {
					slide.Tables = append(slide.Tables, *table)
				}
				table = nil
			case xml.Name{Space: nsDrawingML, Local: "tr"}:
				if table != nil {
					table.Rows = append(table.Rows, row)
				}
				row = nil
			case xml.Name{Space: nsDrawingML, Local: "tc"}:
				if cell != nil {
					row = append(row, cell.String())
				}
				cell = nil
			case xml.Name{Space: nsDrawingML, Local: "t"}:
				inText = false
			}

		case xml.CharData:
			if inText {
				if b := target(); b != nil {
					b.sb.Write(t)
				}
			}
		}
	}
	return slide, nil
}
