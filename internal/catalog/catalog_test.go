package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const assetsJSON = `{
  "wood_floor": {"name": "Wood Floor", "type": 1, "categories": ["wood", "floor"]},
  "sunset_sky": {"name": "Sunset Sky", "type": 0, "categories": ["outdoor", "sky"]},
  "old_chair":  {"name": "Old Wooden Chair", "type": 2, "categories": ["furniture", "wood"]}
}`

const filesJSON = `{
  "hdri": {
    "1k": {"hdr": {"url": "https://dl.polyhaven.org/sunset_1k.hdr", "size": 10}},
    "4k": {"hdr": {"url": "https://dl.polyhaven.org/sunset_4k.hdr", "size": 40}}
  },
  "tonemapped": {"url": "https://dl.polyhaven.org/sunset.jpg"}
}`

func polyHavenServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.URL.RequestURI())
		switch {
		case r.URL.Path == "/assets":
			w.Write([]byte(assetsJSON))
		case r.URL.Path == "/files/sunset_sky":
			w.Write([]byte(filesJSON))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func testClient(srv *httptest.Server) *PolyHaven {
	return &PolyHaven{BaseURL: srv.URL, Client: srv.Client()}
}

// --- PolyHaven ---

func TestPolyHaven_Search(t *testing.T) {
	srv, seen := polyHavenServer(t)
	p := testClient(srv)

	items, err := p.Search(context.Background(), "WOOD", "textures", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(items) != 2 || items[0].ID != "old_chair" || items[1].ID != "wood_floor" {
		t.Fatalf("items = %+v", items)
	}
	if items[1].Data.Type != "texture" {
		t.Errorf("type = %q, want texture", items[1].Data.Type)
	}
	if (*seen)[0] != "/assets?t=textures" {
		t.Errorf("request = %s", (*seen)[0])
	}

	limited, _ := p.Search(context.Background(), "", "all", 1)
	if len(limited) != 1 {
		t.Errorf("limit ignored: %d items", len(limited))
	}
}

func TestPolyHaven_Categories(t *testing.T) {
	srv, _ := polyHavenServer(t)
	cats, err := testClient(srv).Categories(context.Background(), "")
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	want := "floor,furniture,outdoor,sky,wood"
	if got := strings.Join(cats, ","); got != want {
		t.Errorf("categories = %s, want %s", got, want)
	}
}

func TestPolyHaven_FilesAndPick(t *testing.T) {
	srv, _ := polyHavenServer(t)
	p := testClient(srv)

	files, err := p.Files(context.Background(), "sunset_sky")
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	pick, ok := PickDownload(files, "", "")
	if !ok || pick.Format != "hdri" || pick.Resolution != "1k" || !strings.HasSuffix(pick.URL, "sunset_1k.hdr") {
		t.Errorf("default pick = %+v", pick)
	}
	pick, _ = PickDownload(files, "4k", "auto")
	if pick.Resolution != "4k" || !strings.HasSuffix(pick.URL, "sunset_4k.hdr") {
		t.Errorf("4k pick = %+v", pick)
	}

	_, err = p.Files(context.Background(), "missing")
	var se *StatusError
	if err == nil || !asStatus(err, &se) || se.Code != http.StatusNotFound {
		t.Errorf("missing asset err = %v", err)
	}
}

func asStatus(err error, target **StatusError) bool {
	se, ok := err.(*StatusError)
	if ok {
		*target = se
	}
	return ok
}

// --- Searcher ---

func mkfile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSearch_DegradesFailingSource(t *testing.T) {
	root := t.TempDir()
	mkfile(t, filepath.Join(root, "assets", "models", "dragon.glb"))

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer broken.Close()

	s := &Searcher{PolyHaven: testClient(broken)}
	results, failed := s.Search(context.Background(), root, Query{Text: "dragon", Limit: 10})
	if len(failed) != 1 || failed[0].Source != SourcePolyHaven {
		t.Fatalf("failed = %+v", failed)
	}
	if len(results) != 2 {
		t.Fatalf("results = %+v", results)
	}
	if results[0].Source != SourceLocal || results[0].URL != "assets/models/dragon.glb" || results[0].Type != TypeModel {
		t.Errorf("best result = %+v", results[0])
	}
}

func TestSearch_FiltersTypeAndSource(t *testing.T) {
	root := t.TempDir()
	mkfile(t, filepath.Join(root, "assets", "wood.png"))
	mkfile(t, filepath.Join(root, "assets", "wood.mp3"))
	srv, seen := polyHavenServer(t)

	s := &Searcher{PolyHaven: testClient(srv)}
	results, failed := s.Search(context.Background(), root, Query{
		Text: "wood", Sources: []string{SourceLocal, SourcePolyHaven}, Type: TypeTexture,
	})
	if len(failed) != 0 {
		t.Fatalf("failed = %+v", failed)
	}
	for _, r := range results {
		if r.Type != TypeTexture || r.Source == SourcePolyPizza {
			t.Errorf("unexpected result %+v", r)
		}
	}
	if len(results) != 4 {
		t.Errorf("got %d results, want 4: %+v", len(results), results)
	}
	if (*seen)[0] != "/assets?t=textures" {
		t.Errorf("polyhaven queried with %s", (*seen)[0])
	}
}

func TestScanLocal_DepthLimit(t *testing.T) {
	root := t.TempDir()
	mkfile(t, filepath.Join(root, "assets", "a", "b", "c", "ok.glb"))
	mkfile(t, filepath.Join(root, "assets", "a", "b", "c", "d", "deep.glb"))

	results, err := ScanLocal(root)
	if err != nil {
		t.Fatalf("ScanLocal: %v", err)
	}
	if len(results) != 1 || results[0].Name != "ok.glb" {
		t.Errorf("results = %+v", results)
	}

	none, err := ScanLocal(t.TempDir())
	if err != nil || len(none) != 0 {
		t.Errorf("missing assets dir: %v %v", none, err)
	}
}

func TestRank(t *testing.T) {
	ranked := Rank([]Result{
		{Name: "Big Red Dragon"},
		{Name: "dragon"},
		{Name: "castle", Description: "dragon lair"},
		{Name: "dragonfly"},
	}, "dragon")
	order := []string{"dragon", "dragonfly", "Big Red Dragon", "castle"}
	for i, name := range order {
		if ranked[i].Name != name {
			t.Fatalf("rank %d = %s (%d), want %s", i, ranked[i].Name, ranked[i].Score, name)
		}
	}
	if ranked[0].Score != 185 || ranked[3].Score != 5 {
		t.Errorf("scores = %d, %d", ranked[0].Score, ranked[3].Score)
	}
}

// --- Download ---

func TestFileName(t *testing.T) {
	tests := []struct{ url, explicit, want string }{
		{"https://x.test/models/robot.glb?v=2", "", "robot.glb"},
		{"https://x.test/", "", "download.bin"},
		{"https://x.test/a.glb", "../../etc/passwd", "passwd"},
		{"https://x.test/a.glb", "my model.glb", "my_model.glb"},
	}
	for _, tt := range tests {
		if got := FileName(tt.url, tt.explicit); got != tt.want {
			t.Errorf("FileName(%q, %q) = %q, want %q", tt.url, tt.explicit, got, tt.want)
		}
	}
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/gone" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("glTF-binary"))
	}))
	defer srv.Close()

	orig := httpClient
	httpClient = srv.Client()
	defer func() { httpClient = orig }()

	dest := filepath.Join(t.TempDir(), "assets", "robot.glb")
	got, err := Download(context.Background(), srv.URL+"/robot.glb", dest)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if got.Bytes != int64(len("glTF-binary")) {
		t.Errorf("bytes = %d", got.Bytes)
	}
	if b, _ := os.ReadFile(dest); string(b) != "glTF-binary" {
		t.Errorf("content = %q", b)
	}

	if _, err := Download(context.Background(), srv.URL+"/gone", dest+".2"); err == nil {
		t.Error("expected error for 404")
	}
	if _, err := os.Stat(dest + ".2"); !os.IsNotExist(err) {
		t.Error("failed download left a file behind")
	}
}

func TestFormatBytes(t *testing.T) {
	if got := FormatBytes(512); got != "512 B" {
		t.Errorf("512 = %s", got)
	}
	if got := FormatBytes(1536); got != "1.5 KB" {
		t.Errorf("1536 = %s", got)
	}
}
