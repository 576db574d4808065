// ABOUTME: XLSX artifact writer for the excel output flag

package respond

import (
	"strings"

	"github.com/xuri/excelize/v2"
)

// renderXlsx builds a workbook from the content, one row per line with cells
// split on tabs. The model is instructed to emit tab-separated rows; content
// without tabs still lands cleanly in column A.
func renderXlsx(content string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	row := 1
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		for col, value := range strings.Split(line, "\t") {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, err
			}
		}
		row++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
