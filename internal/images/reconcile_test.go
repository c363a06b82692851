package images

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/qbank/internal/parser"
	"github.com/dgallion1/qbank/internal/record"
)

func encodeTestImage(t *testing.T, format string) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	var err error
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, img, nil)
	default:
		err = png.Encode(&buf, img)
	}
	if err != nil {
		t.Fatalf("encode %s: %v", format, err)
	}
	return buf.Bytes()
}

// buildRecord cleans raw fields the way the assembler does, sharing one
// placeholder sequence across the record.
func buildRecord(id, questionRaw, explanationRaw string) record.Question {
	q := record.Question{ID: id, QuestionRaw: questionRaw, ExplanationRaw: explanationRaw, Options: record.Options{}}
	var srcs, more []string
	q.Question, srcs = parser.CleanHTMLFrom(questionRaw, 0)
	q.Explanation, more = parser.CleanHTMLFrom(explanationRaw, len(srcs))
	q.Images = make([]string, len(srcs)+len(more))
	return q
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", n, err)
		}
	}
}

func TestBuildIndexIsStableAndInjective(t *testing.T) {
	records := []record.Question{
		buildRecord("Q0001", `<img src="http://h/b.png"><img src="http://h/a.png">`, ""),
		buildRecord("Q0002", `<img src="http://h/a.png">`, `<img src="http://other/c.png">`),
	}

	ix := BuildIndex(records)
	if ix.Len() != 3 {
		t.Fatalf("expected 3 distinct names, got %d", ix.Len())
	}
	want := []string{"b.png", "a.png", "c.png"}
	if got := ix.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	again := BuildIndex(records)
	if !reflect.DeepEqual(again.Names(), ix.Names()) {
		t.Fatalf("expected same mapping on rebuild, got %v", again.Names())
	}
	if n, ok := ix.LookupSource("http://elsewhere/a.png"); !ok || n != 1 {
		t.Fatalf("expected a.png -> 1, got %d ok=%v", n, ok)
	}
}

func TestReconcileLiteral(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "0.png", "1.png", "notes.txt", "cover.png")

	records := []record.Question{
		{ID: "Q0001", Question: "see [IMAGE:0]", Explanation: "and [IMAGE:2]"},
	}
	rep, err := Reconcile(records, dir, nil)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if rep.Mode != "literal" {
		t.Fatalf("expected literal mode, got %q", rep.Mode)
	}
	if !reflect.DeepEqual(rep.Required, []int{0, 2}) {
		t.Fatalf("expected required [0 2], got %v", rep.Required)
	}
	if !reflect.DeepEqual(rep.Found, []int{0, 1}) {
		t.Fatalf("expected found [0 1], got %v", rep.Found)
	}
	if !reflect.DeepEqual(rep.Missing, []int{2}) {
		t.Fatalf("expected missing [2], got %v", rep.Missing)
	}
	if !reflect.DeepEqual(rep.Extra, []int{1}) {
		t.Fatalf("expected extra [1], got %v", rep.Extra)
	}
	if rep.OK() {
		t.Fatal("expected report to flag mismatches")
	}
}

func TestReconcileMissingDirIsEmpty(t *testing.T) {
	records := []record.Question{{ID: "Q0001", Question: "[IMAGE:0]"}}
	rep, err := Reconcile(records, filepath.Join(t.TempDir(), "nope"), nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(rep.Found) != 0 || !reflect.DeepEqual(rep.Missing, []int{0}) {
		t.Fatalf("expected nothing found and [0] missing, got found=%v missing=%v", rep.Found, rep.Missing)
	}
}

func TestReconcileRoundTrip(t *testing.T) {
	pngBytes := encodeTestImage(t, "png")
	jpegBytes := encodeTestImage(t, "jpeg")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, ".jpg") {
			w.Write(jpegBytes)
			return
		}
		w.Write(pngBytes)
	}))
	defer srv.Close()

	records := []record.Question{
		buildRecord("Q0001", `<p>one<img src="`+srv.URL+`/a.png"></p>`, `<img src="`+srv.URL+`/b.jpg">`),
		buildRecord("Q0002", `<img src="`+srv.URL+`/b.jpg"><img src="`+srv.URL+`/c.png">`, ""),
	}

	srcDir := t.TempDir()
	storeDir := t.TempDir()
	r := NewResolver(srcDir, 5*time.Second, testLogger())
	for i := range records {
		for n, src := range RecordSources(&records[i]) {
			path, ok := r.Resolve(context.Background(), src)
			if !ok {
				t.Fatalf("resolve %s failed", src)
			}
			records[i].Images[n] = path
		}
	}

	ix := BuildIndex(records)
	res, err := BuildStore(ix, srcDir, storeDir, testLogger())
	if err != nil {
		t.Fatalf("build store: %v", err)
	}
	if res.Copied != 3 || res.Converted != 1 || len(res.Missing) != 0 {
		t.Fatalf("expected copied=3 converted=1 missing=0, got %+v", res)
	}
	converted, err := os.ReadFile(filepath.Join(storeDir, "1.png"))
	if err != nil {
		t.Fatalf("read converted: %v", err)
	}
	if !bytes.HasPrefix(converted, pngMagic) {
		t.Fatal("expected jpeg to be re-encoded as png")
	}

	rep, err := Reconcile(records, storeDir, ix)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !rep.OK() {
		t.Fatalf("expected clean round trip, got:\n%s", rep.Summary())
	}
	if !reflect.DeepEqual(rep.Required, []int{0, 1, 2}) {
		t.Fatalf("expected required [0 1 2], got %v", rep.Required)
	}
}

func TestReconcileMappedCountsUnmapped(t *testing.T) {
	records := []record.Question{
		{ID: "Q0001", QuestionRaw: `<img src="http://h/a.png">`, Question: "[IMAGE:0] [IMAGE:3]"},
	}
	ix := BuildIndex(records)
	rep, err := Reconcile(records, t.TempDir(), ix)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if rep.Unmapped != 1 {
		t.Fatalf("expected 1 unmapped placeholder, got %d", rep.Unmapped)
	}
	if !reflect.DeepEqual(rep.Missing, []int{0}) {
		t.Fatalf("expected missing [0], got %v", rep.Missing)
	}
}

func TestSummaryTruncatesLongLists(t *testing.T) {
	rep := Report{Mode: "literal"}
	for i := 0; i < 25; i++ {
		rep.Missing = append(rep.Missing, i)
	}
	s := rep.Summary()
	if !strings.Contains(s, "missing: 25") {
		t.Fatalf("expected missing count in summary, got:\n%s", s)
	}
	if !strings.Contains(s, "(5 more)") {
		t.Fatalf("expected truncation marker, got:\n%s", s)
	}
	if strings.Contains(s, " 20,") {
		t.Fatalf("expected index 20 to be cut, got:\n%s", s)
	}
}

func TestLocalizeCopiesIndexedImages(t *testing.T) {
	records := []record.Question{
		buildRecord("Q0001", `<img src="http://h/a.png">`, `<img src="http://h/gone.png">`),
	}
	ix := BuildIndex(records)

	storeDir := t.TempDir()
	writeFiles(t, storeDir, "0.png")
	outDir := t.TempDir()

	res, err := Localize(records, ix, storeDir, outDir, testLogger())
	if err != nil {
		t.Fatalf("localize: %v", err)
	}
	if res.Copied != 1 || res.Missing != 1 {
		t.Fatalf("expected copied=1 missing=1, got %+v", res)
	}
	want := []string{"images/q_0001_img0.png", ""}
	if !reflect.DeepEqual(records[0].LocalImages, want) {
		t.Fatalf("expected %v, got %v", want, records[0].LocalImages)
	}
	if _, err := os.Stat(filepath.Join(outDir, "images", "q_0001_img0.png")); err != nil {
		t.Fatalf("expected localized file: %v", err)
	}
}

func TestLocalizeTwiceReplacesLocalImages(t *testing.T) {
	records := []record.Question{
		buildRecord("Q0001", `<img src="http://h/a.png">`, ""),
	}
	ix := BuildIndex(records)
	storeDir := t.TempDir()
	writeFiles(t, storeDir, "0.png")
	outDir := t.TempDir()

	for i := 0; i < 2; i++ {
		if _, err := Localize(records, ix, storeDir, outDir, testLogger()); err != nil {
			t.Fatalf("localize pass %d: %v", i+1, err)
		}
	}
	want := []string{"images/q_0001_img0.png"}
	if !reflect.DeepEqual(records[0].LocalImages, want) {
		t.Fatalf("expected %v after two passes, got %v", want, records[0].LocalImages)
	}
}

func TestDownloadSkipsPresentFiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("img"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	writeFiles(t, dir, "old.png")
	records := []record.Question{
		{ID: "Q0001", QuestionRaw: `<img src="` + srv.URL + `/old.png"><img src="` + srv.URL + `/new.png">`},
		{ID: "Q0002", OptionsRaw: `A、<img src="` + srv.URL + `/new.png">`},
	}

	r := NewResolver(dir, 5*time.Second, testLogger())
	res := Download(context.Background(), records, r)
	if res.Needed != 2 || res.Downloaded != 1 || res.Present != 1 || res.Unavailable != 0 {
		t.Fatalf("expected needed=2 downloaded=1 present=1, got %+v", res)
	}
}
