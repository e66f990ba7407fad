package streamxlsx

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStyleCatalogShape(t *testing.T) {
	var sheet struct {
		NumFmts struct {
			Count int `xml:"count,attr"`
		} `xml:"numFmts"`
		Fonts struct {
			Count int `xml:"count,attr"`
		} `xml:"fonts"`
		Fills struct {
			Count int `xml:"count,attr"`
		} `xml:"fills"`
		Borders struct {
			Count int `xml:"count,attr"`
		} `xml:"borders"`
		CellXfs struct {
			Count int `xml:"count,attr"`
			Xf    []struct {
				NumFmtID int `xml:"numFmtId,attr"`
			} `xml:"xf"`
		} `xml:"cellXfs"`
	}
	require.NoError(t, xml.Unmarshal([]byte(stylesXML), &sheet))

	assert.Equal(t, int(styleCount), sheet.CellXfs.Count, "one xf per declared style")
	require.Len(t, sheet.CellXfs.Xf, int(styleCount))
	assert.GreaterOrEqual(t, sheet.Fonts.Count, 3)
	assert.GreaterOrEqual(t, sheet.Fills.Count, 5)
	assert.GreaterOrEqual(t, sheet.Borders.Count, 2)

	// The number formats the catalog promises for each style index.
	wantNumFmt := map[Style]int{
		StyleDefault:          0,
		StyleNumberInteger:    3,
		StyleNumberDecimal:    4,
		StyleNumberCurrency:   164,
		StyleNumberPercentage: 10,
		StyleDateDefault:      14,
		StyleDateTimestamp:    165,
	}
	for style, numFmt := range wantNumFmt {
		assert.Equalf(t, numFmt, sheet.CellXfs.Xf[style].NumFmtID, "style %d", style)
	}
}

func TestStyleCatalogDeclaresCustomFormats(t *testing.T) {
	assert.Contains(t, stylesXML, `numFmtId="164"`)
	assert.Contains(t, stylesXML, `numFmtId="165"`)
	assert.True(t, strings.HasPrefix(stylesXML, xmlProlog))
}
