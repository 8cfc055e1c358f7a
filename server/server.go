package server

import (
	"crypto/tls"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/serisow/lecahier/handlers"
	"github.com/serisow/lecahier/pipeline"
	"github.com/serisow/lecahier/retrieval"
	"github.com/urfave/negroni"
	"golang.org/x/crypto/acme/autocert"
)

type Config struct {
	Domains      []string
	CertCacheDir string
	HTTPPort     string
	HTTPSPort    string
	IdleTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Dependencies carries the constructed collaborators the routes need.
type Dependencies struct {
	Orchestrator *pipeline.Orchestrator
	Store        handlers.ArtifactStore
	Collection   handlers.CollectionReader
	Engine       *retrieval.Engine
	Logger       *slog.Logger
	UploadDir    string
	Debug        bool
}

func SetupRoutes(deps Dependencies) *mux.Router {
	r := mux.NewRouter()

	notebookHandler := handlers.NewNotebookHandler(deps.Orchestrator, deps.Store, deps.Logger, deps.UploadDir)
	r.HandleFunc("/documents/process", notebookHandler.ProcessDocument).Methods("POST")
	r.HandleFunc("/documents/runs/{run_id}", notebookHandler.GetRunStatus).Methods("GET")

	collectionHandler := handlers.NewCollectionHandler(deps.Collection, deps.Logger)
	r.HandleFunc("/documents", collectionHandler.ListDocuments).Methods("GET")
	r.HandleFunc("/documents/stats", collectionHandler.GetStats).Methods("GET")

	askHandler := handlers.NewAskHandler(deps.Engine, deps.Logger, deps.Debug)
	r.Handle("/ask", askHandler).Methods("POST")

	return r
}

// ServeProduction builds the server when we operate in a production environment.
func ServeProduction(n *negroni.Negroni, cfg Config) {
	// Configure autocert settings
	autocertManager := autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(cfg.Domains...),
		Cache:      autocert.DirCache(cfg.CertCacheDir),
	}

	// Listen for HTTP requests on port 80 in a new goroutine. Use
	// autocertManager.HTTPHandler(nil) as the handler. This will send ACME
	// "http-01" challenge responses as necessary, and 302 redirect all other
	// requests to HTTPS.
	go func() {
		srv := &http.Server{
			Addr:         ":80",
			Handler:      autocertManager.HTTPHandler(nil),
			IdleTimeout:  time.Minute,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		}

		err := srv.ListenAndServe()
		log.Fatal(err)
	}()

	// Configure the TLS config to use the autocertManager.GetCertificate function.
	tlsConfig := &tls.Config{
		GetCertificate:           autocertManager.GetCertificate,
		PreferServerCipherSuites: true,
		CurvePreferences:         []tls.CurveID{tls.X25519, tls.CurveP256},
	}

	srv := &http.Server{
		Addr:         ":443",
		Handler:      n,
		TLSConfig:    tlsConfig,
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	err := srv.ListenAndServeTLS("", "") // Key and cert provided automatically by autocert.
	log.Fatal(err)
}

// ServeDevelopment starts the server when we operate in a dev environment.
func ServeDevelopment(s *http.Server) {
	log.Fatal(s.ListenAndServe())
}
