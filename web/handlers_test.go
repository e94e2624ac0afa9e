package web

import (
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"
)

// writeTestMesh drops a minimal valid mesh file into dir: header, null
// array pointers and an empty gamecube payload right after it.
func writeTestMesh(t *testing.T, dir, name string) {
	t.Helper()
	b := make([]byte, 0x8c+0x20)
	copy(b, "webmesh")
	binary.BigEndian.PutUint32(b[0x84:], 0x8c)
	if err := os.WriteFile(filepath.Join(dir, name), b, 0666); err != nil {
		t.Fatal(err)
	}
}

func meshRequest(file string) *http.Request {
	r := httptest.NewRequest("GET", "/", nil)
	return mux.SetURLVars(r, map[string]string{"file": file})
}

func TestHandlerAjaxList(t *testing.T) {
	ServerDirectory = t.TempDir()
	writeTestMesh(t, ServerDirectory, "b.ape")
	writeTestMesh(t, ServerDirectory, "a.APE")
	writeTestMesh(t, ServerDirectory, "skipped.bin")

	w := httptest.NewRecorder()
	HandlerAjaxList(w, httptest.NewRequest("GET", "/json/list", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var files []string
	if err := json.Unmarshal(w.Body.Bytes(), &files); err != nil {
		t.Fatalf("response is not json: %v", err)
	}
	if len(files) != 2 || files[0] != "a.APE" || files[1] != "b.ape" {
		t.Errorf("listed files = %v", files)
	}
}

func TestHandlerAjaxMesh(t *testing.T) {
	ServerDirectory = t.TempDir()
	writeTestMesh(t, ServerDirectory, "m.ape")

	w := httptest.NewRecorder()
	HandlerAjaxMesh(w, meshRequest("m.ape"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var view struct {
		Name     string
		Platform string
	}
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("response is not json: %v", err)
	}
	if view.Name != "webmesh" || view.Platform != "gamecube" {
		t.Errorf("document view = %+v", view)
	}
}

func TestHandlerDumpMeshJson(t *testing.T) {
	ServerDirectory = t.TempDir()
	writeTestMesh(t, ServerDirectory, "m.ape")

	w := httptest.NewRecorder()
	HandlerDumpMeshJson(w, meshRequest("m.ape"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	disposition := w.Header().Get("Content-Disposition")
	if !strings.Contains(disposition, "webmesh.json") {
		t.Errorf("Content-Disposition = %q", disposition)
	}
	if !strings.Contains(w.Body.String(), "\"Name\": \"webmesh\"") {
		t.Errorf("dump body:\n%s", w.Body.String())
	}
}

func TestHandlerBrokenMeshIs500(t *testing.T) {
	ServerDirectory = t.TempDir()
	// Too short for the header, load must fail
	if err := os.WriteFile(filepath.Join(ServerDirectory, "bad.ape"), make([]byte, 8), 0666); err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	HandlerAjaxMesh(w, meshRequest("bad.ape"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, expected 500", w.Code)
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("error response is not json: %v", err)
	}
	if body.Error == "" {
		t.Error("error response carries no reason")
	}
}
