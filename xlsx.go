package streamxlsx

import (
	"strconv"
	"strings"
)

// Fixed OOXML part paths and scaffolding.
const (
	xmlProlog = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
`

	contentTypesPath  = "[Content_Types].xml"
	rootRelsPath      = "_rels/.rels"
	workbookPath      = "xl/workbook.xml"
	workbookRelsPath  = "xl/_rels/workbook.xml.rels"
	sharedStringsPath = "xl/sharedStrings.xml"
	stylesPath        = "xl/styles.xml"

	relsXML = xmlProlog + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="xl/workbook.xml"/>
</Relationships>`
)

// sheetPath returns the part path for a 1-based sheet ordinal.
func sheetPath(ordinal int) string {
	return "xl/worksheets/sheet" + strconv.Itoa(ordinal) + ".xml"
}

// generateContentTypesXML generates the [Content_Types].xml with one
// override per worksheet part plus the fixed workbook, styles and
// shared-strings overrides.
func generateContentTypesXML(sheetCount int) string {
	var b strings.Builder
	b.WriteString(xmlProlog)
	b.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/xl/workbook.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"/>
<Override PartName="/xl/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.styles+xml"/>
<Override PartName="/xl/sharedStrings.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.sharedStrings+xml"/>
`)
	for i := 1; i <= sheetCount; i++ {
		b.WriteString(`<Override PartName="/xl/worksheets/sheet`)
		b.WriteString(strconv.Itoa(i))
		b.WriteString(`.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"/>
`)
	}
	b.WriteString(`</Types>`)
	return b.String()
}

// generateWorkbookXML generates xl/workbook.xml declaring the sheets in the
// order they were added. Sheet ids and relationship ids both follow the
// 1-based ordinal.
func generateWorkbookXML(names []string) string {
	var b strings.Builder
	b.WriteString(xmlProlog)
	b.WriteString(`<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<sheets>`)
	for i, name := range names {
		b.WriteString(`<sheet name="`)
		b.Write(appendEscaped(nil, name))
		b.WriteString(`" sheetId="`)
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(`" r:id="rId`)
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(`"/>
`)
	}
	b.WriteString(`</sheets>
</workbook>`)
	return b.String()
}

// generateWorkbookRelsXML generates xl/_rels/workbook.xml.rels. Sheets take
// rId1..rIdN; shared strings and styles follow.
func generateWorkbookRelsXML(sheetCount int) string {
	var b strings.Builder
	b.WriteString(xmlProlog)
	b.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
`)
	for i := 1; i <= sheetCount; i++ {
		n := strconv.Itoa(i)
		b.WriteString(`<Relationship Id="rId`)
		b.WriteString(n)
		b.WriteString(`" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet`)
		b.WriteString(n)
		b.WriteString(`.xml"/>
`)
	}
	b.WriteString(`<Relationship Id="rId`)
	b.WriteString(strconv.Itoa(sheetCount + 1))
	b.WriteString(`" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/sharedStrings" Target="sharedStrings.xml"/>
<Relationship Id="rId`)
	b.WriteString(strconv.Itoa(sheetCount + 2))
	b.WriteString(`" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
</Relationships>`)
	return b.String()
}

// validateSheetName enforces the format's sheet-name rules: non-empty, at
// most 31 characters, and none of : \ / ? * [ ].
func validateSheetName(name string) error {
	if name == "" {
		return errEmptySheetName
	}
	if len([]rune(name)) > 31 {
		return errLongSheetName
	}
	if strings.ContainsAny(name, `:\/?*[]`) {
		return errBadSheetNameChar
	}
	return nil
}
