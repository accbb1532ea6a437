package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"

	"github.com/cjscld94-cyber/qwer/internal/schema"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadCSVUTF8(t *testing.T) {
	path := writeFile(t, "stations.csv", []byte("역명,노선명,위도,경도\n서울역,1호선,37.5547,126.9706\n시청,1호선,37.5657,126.9769\n"))

	src, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}

	if src.Encoding != "utf-8" {
		t.Errorf("encoding = %q, want utf-8", src.Encoding)
	}
	if src.Rows != 2 {
		t.Errorf("rows = %d, want 2", src.Rows)
	}
	if got := src.Frame.Names(); len(got) != 4 || got[0] != "역명" || got[3] != "경도" {
		t.Errorf("columns = %v, want Korean headers in file order", got)
	}
	if src.SHA256 == "" || len(src.SHA256) != 64 {
		t.Errorf("sha256 = %q, want 64 hex chars", src.SHA256)
	}
}

// TestLoadCSVEUCKR feeds the loader a file genuinely encoded as EUC-KR,
// the encoding most Korean open-data portals still ship. The fixture is
// produced with the same codec family the loader decodes with, so the test
// exercises the real fallback path rather than a hand-crafted byte blob.
func TestLoadCSVEUCKR(t *testing.T) {
	utf8CSV := "역명,위도,경도\n강남,37.4979,127.0276\n"
	encoded, _, err := transform.String(korean.EUCKR.NewEncoder(), utf8CSV)
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	path := writeFile(t, "stations_cp949.csv", []byte(encoded))

	src, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}

	if src.Encoding != "euc-kr" {
		t.Errorf("encoding = %q, want euc-kr", src.Encoding)
	}
	if got := src.Frame.Names()[0]; got != "역명" {
		t.Errorf("first column = %q, want 역명 after decode", got)
	}
	name := src.Frame.Col("역명").Records()[0]
	if name != "강남" {
		t.Errorf("first station = %q, want 강남", name)
	}
}

func TestLoadCSVWithBOM(t *testing.T) {
	body := append([]byte{0xEF, 0xBB, 0xBF}, []byte("name,lat,lon\nA,37.5,127.0\n")...)
	path := writeFile(t, "bom.csv", body)

	src, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}

	if src.Encoding != "utf-8-sig" {
		t.Errorf("encoding = %q, want utf-8-sig", src.Encoding)
	}
	// The BOM must not leak into the first header
	if got := src.Frame.Names()[0]; got != "name" {
		t.Errorf("first column = %q, want name", got)
	}
}

func TestLoadCSVHeaderCleanup(t *testing.T) {
	path := writeFile(t, "messy.csv", []byte(" name , lat ,,lon\nA,37.5,x,127.0\n"))

	src, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}

	names := src.Frame.Names()
	want := []string{"name", "lat", "column_3", "lon"}
	for i, w := range want {
		if names[i] != w {
			t.Errorf("column %d = %q, want %q", i, names[i], w)
		}
	}
}

// TestLoadCSVDuplicateHeaders checks that a repeated header keeps its first
// occurrence intact. Public-data exports sometimes ship the same column
// twice, and the first one must stay resolvable by its original name.
func TestLoadCSVDuplicateHeaders(t *testing.T) {
	path := writeFile(t, "dupe.csv", []byte("역명,위도,위도,경도\n서울역,37.5547,0,126.9706\n"))

	src, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}

	names := src.Frame.Names()
	want := []string{"역명", "위도", "위도.1", "경도"}
	if len(names) != len(want) {
		t.Fatalf("columns = %v, want %v", names, want)
	}
	for i, w := range want {
		if names[i] != w {
			t.Errorf("column %d = %q, want %q", i, names[i], w)
		}
	}
	if got := src.Frame.Col("위도").Records()[0]; got != "37.5547" {
		t.Errorf("위도 cell = %q, want the first occurrence's value", got)
	}

	res, err := schema.Normalize(src.Frame)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if res.Mapping.Latitude != "위도" {
		t.Errorf("latitude resolved to %q, want 위도", res.Mapping.Latitude)
	}
	if res.Stations[0].Latitude != 37.5547 {
		t.Errorf("latitude = %f, want 37.5547 from the first 위도 column", res.Stations[0].Latitude)
	}
}

func TestLoadCSVRaggedRows(t *testing.T) {
	path := writeFile(t, "ragged.csv", []byte("name,lat,lon\nA,37.5\nB,37.6,127.1,extra\n"))

	src, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}

	if src.Rows != 2 {
		t.Fatalf("rows = %d, want 2", src.Rows)
	}
	lons := src.Frame.Col("lon").Records()
	if lons[0] != "" {
		t.Errorf("short row lon = %q, want empty pad", lons[0])
	}
	if lons[1] != "127.1" {
		t.Errorf("long row lon = %q, want 127.1 with extras dropped", lons[1])
	}
}

func TestLoadCSVEmptyFile(t *testing.T) {
	path := writeFile(t, "empty.csv", nil)
	if _, err := LoadCSV(path); err == nil {
		t.Error("expected error for empty file, got nil")
	}
}

func TestSHA256TracksContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.csv")
	if err := os.WriteFile(path, []byte("name,lat,lon\nA,37.5,127.0\n"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	first, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	again, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if first.SHA256 != again.SHA256 {
		t.Errorf("same bytes hashed differently: %s vs %s", first.SHA256, again.SHA256)
	}

	if err := os.WriteFile(path, []byte("name,lat,lon\nA,37.5,127.0\nB,37.6,127.1\n"), 0644); err != nil {
		t.Fatalf("rewrite fixture: %v", err)
	}
	changed, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if changed.SHA256 == first.SHA256 {
		t.Error("content changed but hash did not")
	}
}

func TestLoadXLSX(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]interface{}{
		{"역명", "노선명", "위도", "경도"},
		{"서울역", "1호선", 37.5547, 126.9706},
		{"강남", "2호선", 37.4979, 127.0276},
	}
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			if err := f.SetCellValue("Sheet1", cell, v); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "stations.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save fixture: %v", err)
	}

	src, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if src.Encoding != "xlsx" {
		t.Errorf("encoding = %q, want xlsx", src.Encoding)
	}
	if src.Rows != 2 {
		t.Errorf("rows = %d, want 2", src.Rows)
	}
	lat := src.Frame.Col("위도").Records()[0]
	if !strings.HasPrefix(lat, "37.5") {
		t.Errorf("lat cell = %q, want string form of 37.5547", lat)
	}
}
