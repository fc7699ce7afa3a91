package parser

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestForFile(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"rows.csv", false},
		{"Rows.XLSX", false},
		{"rows.xlsm", false},
		{"rows.htm", false},
		{"rows.txt", false},
		{"rows.pdf", true},
		{"rows", true},
	}
	for _, tt := range tests {
		_, err := ForFile(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ForFile(%q) err = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
		if IsSupportedExtension(tt.name) == tt.wantErr {
			t.Errorf("IsSupportedExtension(%q) disagrees with ForFile", tt.name)
		}
	}
}

func TestCSVParser(t *testing.T) {
	input := "\ufeffName, Email ,Address 2,\nAnn,ann@example.com,,x\n,,\nBob,bob@example.com\n"
	ds, err := (&CSVParser{}).Parse(strings.NewReader(input), "people.csv")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if strings.Join(ds.Columns, "|") != "Name|Email|Address 2" {
		t.Errorf("columns = %q", ds.Columns)
	}
	if len(ds.Records) != 2 {
		t.Fatalf("records = %d, want 2 (blank row skipped)", len(ds.Records))
	}
	if v, _ := ds.Records[0].Get("Email"); v != "ann@example.com" {
		t.Errorf("Email = %q", v)
	}
	if _, ok := ds.Records[0].Get("Address 2"); ok {
		t.Error("empty cell should be null")
	}
	if _, ok := ds.Records[1].Get("Address 2"); ok {
		t.Error("missing cell should be null")
	}
	if ds.Records[1].Len() != 3 {
		t.Errorf("short row fields = %d, want 3", ds.Records[1].Len())
	}
}

func TestCSVParserDuplicateHeaders(t *testing.T) {
	ds, err := (&CSVParser{}).Parse(strings.NewReader("Name,Name,Name\na,b,c\n"), "d.csv")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if strings.Join(ds.Columns, "|") != "Name|Name.1|Name.2" {
		t.Errorf("columns = %q", ds.Columns)
	}
	if v, _ := ds.Records[0].Get("Name.2"); v != "c" {
		t.Errorf("Name.2 = %q", v)
	}
}

func TestXLSXParser(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows := [][]any{
		{"Name", "City", "Address 2"},
		{"Ann", "Oslo", ""},
		{nil, nil, nil},
		{"Bob", "Bergen", "Suite 4"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	ds, err := (&XLSXParser{}).Parse(bytes.NewReader(buf.Bytes()), "people.xlsx")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if ds.Source != "people" {
		t.Errorf("source = %q", ds.Source)
	}
	if strings.Join(ds.Columns, "|") != "Name|City|Address 2" {
		t.Errorf("columns = %q", ds.Columns)
	}
	if len(ds.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(ds.Records))
	}
	if v, _ := ds.Records[1].Get("Address 2"); v != "Suite 4" {
		t.Errorf("Address 2 = %q", v)
	}
}

func TestXLSXParserNotAWorkbook(t *testing.T) {
	if _, err := (&XLSXParser{}).Parse(strings.NewReader("nope"), "x.xlsx"); err == nil {
		t.Error("expected error")
	}
}

func TestHTMLParser(t *testing.T) {
	input := `<html><head><title>Staff</title></head><body>
<p>intro</p>
<table>
  <thead><tr><th>Name</th><th>Email</th></tr></thead>
  <tbody>
    <tr><td>Ann  Lee</td><td>ann@example.com</td></tr>
    <tr><td>Bob</td><td></td></tr>
  </tbody>
</table>
<table><tr><td>ignored</td></tr></table>
</body></html>`
	ds, err := (&HTMLParser{}).Parse(strings.NewReader(input), "staff.html")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if ds.Source != "Staff" {
		t.Errorf("source = %q", ds.Source)
	}
	if len(ds.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(ds.Records))
	}
	if v, _ := ds.Records[0].Get("Name"); v != "Ann Lee" {
		t.Errorf("Name = %q", v)
	}
	if _, ok := ds.Records[1].Get("Email"); ok {
		t.Error("empty cell should be null")
	}
}

func TestHTMLParserFirstRowHeader(t *testing.T) {
	input := `<table><tr><td>Name</td></tr><tr><td>Ann</td></tr></table>`
	ds, err := (&HTMLParser{}).Parse(strings.NewReader(input), "t.html")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(ds.Records) != 1 {
		t.Fatalf("records = %d", len(ds.Records))
	}
	if v, _ := ds.Records[0].Get("Name"); v != "Ann" {
		t.Errorf("Name = %q", v)
	}
}

func TestHTMLParserNoTable(t *testing.T) {
	if _, err := (&HTMLParser{}).Parse(strings.NewReader("<p>hi</p>"), "t.html"); err == nil {
		t.Error("expected error")
	}
}
