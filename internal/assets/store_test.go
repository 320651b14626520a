package assets

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/storage"
)

func testStore(t *testing.T, noteRelative bool) (*Store, storage.Provider) {
	t.Helper()
	fs, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return NewStore(fs, "attachments", noteRelative), fs
}

func TestMaterialize_FromURL(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}))
	defer srv.Close()

	s, fs := testStore(t, false)
	asset := &models.ResolvedAsset{
		Marker: models.Marker{Kind: models.KindImage, Query: "red fox"},
		URL:    srv.URL + "/whatever",
	}
	stored, err := s.Materialize(context.Background(), asset)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if stored.RelPath != "attachments/red-fox.png" {
		t.Errorf("RelPath = %q", stored.RelPath)
	}
	data, err := fs.Read(stored.RelPath)
	if err != nil {
		t.Fatalf("Read stored: %v", err)
	}
	if string(data) != string(png) {
		t.Errorf("stored bytes mismatch")
	}
}

func TestMaterialize_FromBytes(t *testing.T) {
	s, _ := testStore(t, false)
	asset := &models.ResolvedAsset{
		Marker: models.Marker{Kind: models.KindAIImage, Query: "a fox in snow"},
		Data:   []byte{0x89, 'P', 'N', 'G'},
		MIME:   "image/png",
	}
	stored, err := s.Materialize(context.Background(), asset)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if stored.RelPath != "attachments/a-fox-in-snow.png" {
		t.Errorf("RelPath = %q", stored.RelPath)
	}
}

func TestMaterialize_CollisionSuffix(t *testing.T) {
	s, _ := testStore(t, false)
	asset := func() *models.ResolvedAsset {
		return &models.ResolvedAsset{
			Marker: models.Marker{Kind: models.KindAIImage, Query: "fox"},
			Data:   []byte{1},
			MIME:   "image/png",
		}
	}

	first, err := s.Materialize(context.Background(), asset())
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	second, err := s.Materialize(context.Background(), asset())
	if err != nil {
		t.Fatalf("Materialize second: %v", err)
	}
	if first.RelPath != "attachments/fox.png" || second.RelPath != "attachments/fox-2.png" {
		t.Errorf("paths = %q, %q", first.RelPath, second.RelPath)
	}
}

func TestMaterialize_ExtensionFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No usable content type; extension must come from the URL.
		w.Header().Set("Content-Type", "application/octet-stream")
		fmt.Fprint(w, "gif-bytes")
	}))
	defer srv.Close()

	s, _ := testStore(t, false)
	asset := &models.ResolvedAsset{
		Marker: models.Marker{Kind: models.KindImage, Query: "banner"},
		URL:    srv.URL + "/images/banner.GIF",
	}
	stored, err := s.Materialize(context.Background(), asset)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if stored.RelPath != "attachments/banner.gif" {
		t.Errorf("RelPath = %q", stored.RelPath)
	}
}

func TestMaterialize_FallbackExtension(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "bytes")
	}))
	defer srv.Close()

	s, _ := testStore(t, false)
	asset := &models.ResolvedAsset{
		Marker: models.Marker{Kind: models.KindImage, Query: "mystery"},
		URL:    srv.URL + "/asset",
	}
	stored, err := s.Materialize(context.Background(), asset)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if stored.RelPath != "attachments/mystery.jpg" {
		t.Errorf("RelPath = %q", stored.RelPath)
	}
}

func TestPlanPath_NoWrites(t *testing.T) {
	s, fs := testStore(t, false)
	asset := &models.ResolvedAsset{
		Marker: models.Marker{Kind: models.KindImage, Query: "red fox"},
		URL:    "https://example.com/fox.png",
	}
	p, err := s.PlanPath(asset)
	if err != nil {
		t.Fatalf("PlanPath: %v", err)
	}
	if p != "attachments/red-fox.png" {
		t.Errorf("path = %q", p)
	}
	if exists, _ := fs.Exists(p); exists {
		t.Error("PlanPath must not create files")
	}
}

func TestPlanPath_CollisionSuffixWithinRun(t *testing.T) {
	s, _ := testStore(t, false)
	asset := func() *models.ResolvedAsset {
		return &models.ResolvedAsset{
			Marker: models.Marker{Kind: models.KindImage, Query: "red fox"},
			URL:    "https://example.com/fox.png",
		}
	}

	first, err := s.PlanPath(asset())
	if err != nil {
		t.Fatalf("PlanPath: %v", err)
	}
	second, err := s.PlanPath(asset())
	if err != nil {
		t.Fatalf("PlanPath second: %v", err)
	}
	if first != "attachments/red-fox.png" || second != "attachments/red-fox-2.png" {
		t.Errorf("paths = %q, %q", first, second)
	}

	// A fresh run predicts the same names again.
	s.ResetPlan()
	again, err := s.PlanPath(asset())
	if err != nil {
		t.Fatalf("PlanPath after reset: %v", err)
	}
	if again != "attachments/red-fox.png" {
		t.Errorf("path after reset = %q", again)
	}
}

func TestLinkPath(t *testing.T) {
	vaultRel, _ := testStore(t, false)
	if got := vaultRel.LinkPath("attachments/fox.png", "sub/dir/note.md"); got != "attachments/fox.png" {
		t.Errorf("vault-relative link = %q", got)
	}

	noteRel, _ := testStore(t, true)
	if got := noteRel.LinkPath("attachments/fox.png", "sub/dir/note.md"); got != "../../attachments/fox.png" {
		t.Errorf("note-relative link = %q", got)
	}
	if got := noteRel.LinkPath("attachments/fox.png", "note.md"); got != "attachments/fox.png" {
		t.Errorf("root note link = %q", got)
	}
}
