// ABOUTME: Minimal PPTX artifact writer for the powerpoint output flag
// ABOUTME: One slide per blank-line-separated paragraph block

package respond

import (
	"fmt"
	"strings"
)

const pptxRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="ppt/presentation.xml"/>
</Relationships>`

// renderPptx packages the content as a slide deck. Blank lines split slides;
// the first line of each block is the slide title.
func renderPptx(content string) ([]byte, error) {
	blocks := splitBlocks(content)
	if len(blocks) == 0 {
		blocks = []string{content}
	}

	parts := map[string]string{
		"_rels/.rels": pptxRels,
	}

	var contentTypes strings.Builder
	contentTypes.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	contentTypes.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	contentTypes.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	contentTypes.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	contentTypes.WriteString(`<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>`)

	var sldIds, presRels strings.Builder
	for i, block := range blocks {
		num := i + 1
		name := fmt.Sprintf("ppt/slides/slide%d.xml", num)
		parts[name] = slideXML(block)
		contentTypes.WriteString(fmt.Sprintf(
			`<Override PartName="/%s" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>`, name))
		sldIds.WriteString(fmt.Sprintf(`<p:sldId id="%d" r:id="rId%d"/>`, 255+num, num))
		presRels.WriteString(fmt.Sprintf(
			`<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide%d.xml"/>`, num, num))
	}
	contentTypes.WriteString(`</Types>`)

	parts["[Content_Types].xml"] = contentTypes.String()
	parts["ppt/presentation.xml"] = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<p:presentation xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"` +
		` xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">` +
		`<p:sldIdLst>` + sldIds.String() + `</p:sldIdLst>` +
		`<p:sldSz cx="9144000" cy="6858000"/></p:presentation>`
	parts["ppt/_rels/presentation.xml.rels"] = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		presRels.String() + `</Relationships>`

	return writePackage(parts)
}

// slideXML renders one paragraph block as a single text-box slide.
func slideXML(block string) string {
	var paras strings.Builder
	for _, line := range strings.Split(block, "\n") {
		paras.WriteString(`<a:p><a:r><a:t>`)
		paras.WriteString(escapeXML(line))
		paras.WriteString(`</a:t></a:r></a:p>`)
	}
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"` +
		` xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">` +
		`<p:cSld><p:spTree>` +
		`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>` +
		`<p:sp><p:nvSpPr><p:cNvPr id="2" name="Content"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>` +
		`<p:spPr><a:xfrm><a:off x="457200" y="457200"/><a:ext cx="8229600" cy="5943600"/></a:xfrm>` +
		`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr>` +
		`<p:txBody><a:bodyPr wrap="square"/><a:lstStyle/>` + paras.String() + `</p:txBody>` +
		`</p:sp></p:spTree></p:cSld></p:sld>`
}

// splitBlocks splits content on blank lines, dropping empty blocks.
func splitBlocks(content string) []string {
	var blocks []string
	for _, block := range strings.Split(content, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			blocks = append(blocks, block)
		}
	}
	return blocks
}
