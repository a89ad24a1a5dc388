package reconcile

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadWorkbook(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Voucher No", " Total ", "Total"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"S-1", 1180}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]interface{}{"S-2", 50, 7}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	sheet, err := ReadWorkbook(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, []string{"Voucher No", "Total", "Total (2)"}, sheet.Headers)
	require.Len(t, sheet.Records, 2)
	require.Equal(t, "1180", sheet.Records[0].Get("Total"))
	require.Equal(t, "", sheet.Records[0].Get("Total (2)"))
	require.Equal(t, "7", sheet.Records[1].Get("Total (2)"))
}

func TestReadCSV(t *testing.T) {
	input := "\n\ufeffVoucher No,Date,Total\nS-1,07/04/2024,100\n,,\nS-2,08/04/2024\n"
	sheet, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, []string{"Voucher No", "Date", "Total"}, sheet.Headers)
	require.Len(t, sheet.Records, 2)
	require.Equal(t, "", sheet.Records[1].Get("Total"))
}

func TestReadFileRejectsUnknownExtension(t *testing.T) {
	_, err := ReadFile("register.pdf", strings.NewReader(""))
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	require.ErrorIs(t, err, ErrEmptySheet)
}
