// ABOUTME: Text extraction for Word, Excel/ODS and PowerPoint attachments
// ABOUTME: OOXML packages are read as zip+xml, legacy OLE containers via mscfb

package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode"

	"github.com/richardlehane/mscfb"
	"github.com/xuri/excelize/v2"
)

// extractDocx pulls paragraph text out of a modern Word document.
func (i *Ingestor) extractDocx(data []byte, filename string) (string, error) {
	if err := i.checkSize(data, filename); err != nil {
		return "", err
	}

	doc, err := readZipEntry(data, "word/document.xml")
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %v", ErrParse, filename, err)
	}

	text, err := collectXMLText(doc, "t", "p")
	if err != nil {
		return "", fmt.Errorf("%w: parsing %s: %v", ErrParse, filename, err)
	}
	return strings.TrimSpace(text), nil
}

// extractPptx pulls slide text out of a modern PowerPoint document,
// one block per slide in slide order.
func (i *Ingestor) extractPptx(data []byte, filename string) (string, error) {
	if err := i.checkSize(data, filename); err != nil {
		return "", err
	}

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %v", ErrParse, filename, err)
	}

	var slides []*zip.File
	for _, f := range reader.File {
		if strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml") {
			slides = append(slides, f)
		}
	}
	// Slide file names embed their ordinal; shorter names sort first so
	// slide2 comes before slide10.
	sort.Slice(slides, func(a, b int) bool {
		if len(slides[a].Name) != len(slides[b].Name) {
			return len(slides[a].Name) < len(slides[b].Name)
		}
		return slides[a].Name < slides[b].Name
	})

	var out strings.Builder
	for idx, f := range slides {
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("%w: opening slide in %s: %v", ErrParse, filename, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("%w: reading slide in %s: %v", ErrParse, filename, err)
		}

		text, err := collectXMLText(content, "t", "p")
		if err != nil {
			return "", fmt.Errorf("%w: parsing slide in %s: %v", ErrParse, filename, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if out.Len() > 0 {
			out.WriteString("\n\n")
		}
		out.WriteString(fmt.Sprintf("--- Slide %d ---\n", idx+1))
		out.WriteString(text)
	}
	return out.String(), nil
}

// extractXlsx renders every sheet of a modern Excel workbook as
// tab-separated rows.
func (i *Ingestor) extractXlsx(data []byte, filename string) (string, error) {
	if err := i.checkSize(data, filename); err != nil {
		return "", err
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: opening %s: %v", ErrParse, filename, err)
	}
	defer f.Close()

	var out strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("%w: reading sheet %s of %s: %v", ErrParse, sheet, filename, err)
		}
		if out.Len() > 0 {
			out.WriteString("\n\n")
		}
		out.WriteString(fmt.Sprintf("--- Sheet: %s ---\n", sheet))
		for _, row := range rows {
			out.WriteString(strings.Join(row, "\t"))
			out.WriteString("\n")
		}
	}
	return strings.TrimSpace(out.String()), nil
}

// extractLegacySpreadsheet handles both .xls (OLE container) and .ods
// (OpenDocument zip) payloads, distinguished by their magic bytes.
func (i *Ingestor) extractLegacySpreadsheet(data []byte, filename string) (string, error) {
	if err := i.checkSize(data, filename); err != nil {
		return "", err
	}

	if bytes.HasPrefix(data, []byte("PK")) {
		// OpenDocument spreadsheet
		content, err := readZipEntry(data, "content.xml")
		if err != nil {
			return "", fmt.Errorf("%w: reading %s: %v", ErrParse, filename, err)
		}
		text, err := collectXMLText(content, "p", "table-row")
		if err != nil {
			return "", fmt.Errorf("%w: parsing %s: %v", ErrParse, filename, err)
		}
		return strings.TrimSpace(text), nil
	}

	return i.extractOLEStream(data, filename, "Workbook", "Book")
}

// extractLegacyWord recovers text from a .doc OLE container.
func (i *Ingestor) extractLegacyWord(data []byte, filename string) (string, error) {
	if err := i.checkSize(data, filename); err != nil {
		return "", err
	}
	return i.extractOLEStream(data, filename, "WordDocument")
}

// extractLegacyPowerPoint recovers text from a .ppt OLE container.
func (i *Ingestor) extractLegacyPowerPoint(data []byte, filename string) (string, error) {
	if err := i.checkSize(data, filename); err != nil {
		return "", err
	}
	return i.extractOLEStream(data, filename, "PowerPoint Document")
}

// extractOLEStream opens a legacy OLE compound file and scrapes printable
// text from the first of the named streams that exists. Legacy binary
// formats interleave text with layout records; this is a best-effort
// recovery, not a full format parser.
func (i *Ingestor) extractOLEStream(data []byte, filename string, streamNames ...string) (string, error) {
	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: opening %s: %v", ErrParse, filename, err)
	}

	wanted := make(map[string]bool, len(streamNames))
	for _, name := range streamNames {
		wanted[name] = true
	}

	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if !wanted[entry.Name] {
			continue
		}
		raw, err := io.ReadAll(entry)
		if err != nil {
			return "", fmt.Errorf("%w: reading stream %s of %s: %v", ErrParse, entry.Name, filename, err)
		}
		return scrapePrintableText(raw), nil
	}

	return "", fmt.Errorf("%w: no document stream found in %s", ErrParse, filename)
}

// readZipEntry returns the contents of a single named entry in a zip payload.
func readZipEntry(data []byte, name string) ([]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	for _, f := range reader.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("entry %s not found", name)
}

// collectXMLText streams an XML document and concatenates the character data
// of every element whose local name is textElem, inserting a newline whenever
// an element named breakElem closes.
func collectXMLText(doc []byte, textElem, breakElem string) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(doc))
	var out strings.Builder
	depth := 0 // nesting depth of textElem elements

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == textElem {
				depth++
			}
		case xml.EndElement:
			if t.Name.Local == textElem && depth > 0 {
				depth--
			}
			if t.Name.Local == breakElem {
				out.WriteString("\n")
			}
		case xml.CharData:
			if depth > 0 {
				out.Write(t)
			}
		}
	}
	return out.String(), nil
}

// scrapePrintableText keeps runs of printable characters long enough to look
// like prose. UTF-16LE (the common legacy Office text encoding) is detected
// by the density of zero high bytes; otherwise the stream is read as
// single-byte text.
func scrapePrintableText(raw []byte) string {
	const minRun = 8

	var out strings.Builder
	flush := func(run []rune) {
		if len(run) >= minRun {
			if out.Len() > 0 {
				out.WriteString("\n")
			}
			out.WriteString(strings.TrimSpace(string(run)))
		}
	}

	var run []rune
	if looksUTF16LE(raw) {
		for i := 0; i+1 < len(raw); i += 2 {
			r := rune(uint16(raw[i]) | uint16(raw[i+1])<<8)
			if isPrintableRune(r) {
				run = append(run, r)
				continue
			}
			flush(run)
			run = nil
		}
	} else {
		for _, b := range raw {
			r := rune(b)
			if isPrintableRune(r) {
				run = append(run, r)
				continue
			}
			flush(run)
			run = nil
		}
	}
	flush(run)

	return out.String()
}

// looksUTF16LE reports whether at least a third of the odd-position bytes are
// zero, the signature of Latin text stored as UTF-16LE.
func looksUTF16LE(raw []byte) bool {
	if len(raw) < 4 {
		return false
	}
	zeros, total := 0, 0
	for i := 1; i < len(raw); i += 2 {
		total++
		if raw[i] == 0 {
			zeros++
		}
	}
	return zeros*3 >= total
}

func isPrintableRune(r rune) bool {
	return r == ' ' || r == '\t' || unicode.IsPrint(r) && r < 0xFFFD
}
