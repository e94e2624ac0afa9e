package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/mogaika/ape_browser/config"
	"github.com/mogaika/ape_browser/pack/ape"
	"github.com/mogaika/ape_browser/utils"
	"github.com/mogaika/ape_browser/utils/gltfutils"
	"github.com/mogaika/ape_browser/web"
)

func exportMesh(file, objOut, gltfOut string) error {
	d, err := ape.LoadFile(file)
	if err != nil {
		return err
	}

	for _, warning := range d.Warnings() {
		log.Printf("Warning: %v", warning)
	}

	if objOut != "" {
		f, err := os.Create(objOut)
		if err != nil {
			return err
		}
		defer f.Close()
		return d.ExportObj(f)
	}

	if gltfOut != "" {
		doc, err := d.ExportGLTF()
		if err != nil {
			return err
		}
		f, err := os.Create(gltfOut)
		if err != nil {
			return err
		}
		defer f.Close()
		return gltfutils.ExportBinary(f, doc)
	}

	utils.Dump(d)
	return nil
}

func main() {
	var addr, dir, file, objOut, gltfOut, encoding string
	var listEncodings bool
	flag.StringVar(&addr, "i", ":8000", "Address of server")
	flag.StringVar(&dir, "dir", "", "Path to folder with mesh files, serves a web browser over them")
	flag.StringVar(&file, "file", "", "Single mesh file to inspect or export")
	flag.StringVar(&objOut, "obj", "", "Export -file as wavefront obj to this path")
	flag.StringVar(&gltfOut, "gltf", "", "Export -file as binary gltf to this path")
	flag.StringVar(&encoding, "enc", "", "Name buffer encoding override (see -listencodings)")
	flag.BoolVar(&listEncodings, "listencodings", false, "Print supported name encodings and exit")
	flag.Parse()

	if listEncodings {
		for _, name := range config.ListEncodings() {
			fmt.Println(name)
		}
		return
	}

	if encoding != "" {
		if err := config.SetEncoding(encoding); err != nil {
			log.Fatal(err)
		}
	}

	if file != "" {
		if err := exportMesh(file, objOut, gltfOut); err != nil {
			log.Fatal(err)
		}
		return
	}

	if dir == "" {
		flag.PrintDefaults()
		return
	}

	if err := web.StartServer(addr, dir); err != nil {
		log.Fatal(err)
	}
}
