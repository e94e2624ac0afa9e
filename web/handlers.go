package web

import (
	"bytes"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mogaika/ape_browser/pack/ape"
	"github.com/mogaika/ape_browser/utils/gltfutils"
	"github.com/mogaika/ape_browser/webutils"
)

func HandlerAjaxList(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(ServerDirectory)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}

	files := make([]string, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".ape") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	webutils.WriteJson(w, files)
}

func openServerMesh(r *http.Request) (*ape.Document, error) {
	// Base strips any path the client smuggled into the file variable
	file := filepath.Base(mux.Vars(r)["file"])
	return ape.LoadFile(filepath.Join(ServerDirectory, file))
}

type ajaxMesh struct {
	Name         string
	Platform     string
	Segments     []ape.Segment
	Bones        []ape.Bone
	Lights       []ape.Light
	Materials    []ape.Material
	TexLayers    []ape.TexLayerID
	LodDistances []float32
	Warnings     []string
}

func meshView(d *ape.Document) *ajaxMesh {
	return &ajaxMesh{
		Name:         d.Name,
		Platform:     d.Platform().String(),
		Segments:     d.Segments(),
		Bones:        d.Bones(),
		Lights:       d.Lights(),
		Materials:    d.Materials(),
		TexLayers:    d.TexLayers(),
		LodDistances: d.LodDistances(),
		Warnings:     d.Warnings(),
	}
}

func HandlerAjaxMesh(w http.ResponseWriter, r *http.Request) {
	d, err := openServerMesh(r)
	if err != nil {
		log.Printf("[web] Error loading mesh: %v", err)
		webutils.WriteError(w, err)
		return
	}

	webutils.WriteJson(w, meshView(d))
}

func HandlerDumpMeshJson(w http.ResponseWriter, r *http.Request) {
	d, err := openServerMesh(r)
	if err != nil {
		log.Printf("[web] Error loading mesh: %v", err)
		webutils.WriteError(w, err)
		return
	}

	webutils.WriteJsonFile(w, meshView(d), d.Name)
}

func HandlerDumpMeshObj(w http.ResponseWriter, r *http.Request) {
	d, err := openServerMesh(r)
	if err != nil {
		log.Printf("[web] Error loading mesh: %v", err)
		webutils.WriteError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := d.ExportObj(&buf); err != nil {
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteFile(w, &buf, d.Name+".obj")
}

func HandlerDumpMeshGLTF(w http.ResponseWriter, r *http.Request) {
	d, err := openServerMesh(r)
	if err != nil {
		log.Printf("[web] Error loading mesh: %v", err)
		webutils.WriteError(w, err)
		return
	}

	doc, err := d.ExportGLTF()
	if err != nil {
		webutils.WriteError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := gltfutils.ExportBinary(&buf, doc); err != nil {
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteFile(w, &buf, d.Name+".glb")
}

func HandlerDumpMeshRaw(w http.ResponseWriter, r *http.Request) {
	file := filepath.Base(mux.Vars(r)["file"])
	f, err := os.Open(filepath.Join(ServerDirectory, file))
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	defer f.Close()

	webutils.WriteFile(w, f, file)
}
