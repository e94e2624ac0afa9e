package web

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

var ServerDirectory string

func StartServer(addr string, dir string) error {
	ServerDirectory = dir

	r := mux.NewRouter()
	r.HandleFunc("/json/list", HandlerAjaxList)
	r.HandleFunc("/json/mesh/{file}", HandlerAjaxMesh)
	r.HandleFunc("/dump/mesh/{file}/json", HandlerDumpMeshJson)
	r.HandleFunc("/dump/mesh/{file}/obj", HandlerDumpMeshObj)
	r.HandleFunc("/dump/mesh/{file}/gltf", HandlerDumpMeshGLTF)
	r.HandleFunc("/dump/mesh/{file}", HandlerDumpMeshRaw)

	h := handlers.LoggingHandler(os.Stdout, handlers.RecoveryHandler()(r))

	log.Printf("[web] Starting server %v", addr)

	return http.ListenAndServe(addr, h)
}
