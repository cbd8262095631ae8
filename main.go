package main

import (
	"collabdoc-server/core"
	"collabdoc-server/handlers/api/documents"
	"collabdoc-server/handlers/api/files"
	"collabdoc-server/handlers/websocket"
	"collabdoc-server/stores"
	"collabdoc-server/stores/memory"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func setupRouter(documentStore core.DocumentStore, fileStore core.FileStore, hub *websocket.Hub) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"message": "Collabdoc API"})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	r.Route("/api/documents", func(r chi.Router) {
		r.Post("/", documents.HandleCreate(documentStore))
		r.Get("/", documents.HandleList(documentStore))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", documents.HandleGet(documentStore))
			r.Put("/", documents.HandleUpdate(documentStore))
			r.Delete("/", documents.HandleDelete(documentStore))
		})
	})

	r.Get("/api/rooms", func(w http.ResponseWriter, r *http.Request) {
		type roomInfo struct {
			ID    string `json:"id"`
			Users int    `json:"users"`
		}

		activeRooms := hub.ActiveRooms()
		roomList := make([]roomInfo, 0, len(activeRooms))
		for id, count := range activeRooms {
			roomList = append(roomList, roomInfo{ID: id, Users: count})
		}

		sort.Slice(roomList, func(i, j int) bool {
			if roomList[i].Users == roomList[j].Users {
				return roomList[i].ID < roomList[j].ID
			}
			return roomList[i].Users > roomList[j].Users
		})

		render.JSON(w, r, roomList)
	})

	r.Post("/upload", files.HandleUpload(fileStore))
	r.Get("/files", files.HandleList(fileStore))
	r.Get("/files/{id}/content", files.HandleGetContent(fileStore))

	r.Get("/ws/{documentID}", websocket.ServeWS(hub))

	return r
}

func waitForShutdown() {
	exit := make(chan struct{})
	signalC := make(chan os.Signal, 1)

	signal.Notify(signalC, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		for s := range signalC {
			switch s {
			case os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT:
				close(exit)
				return
			}
		}
	}()

	<-exit
	logrus.Info("Shutting down...")
	os.Exit(0)
}

func main() {
	logLevel := flag.String("loglevel", "info", "Set the logging level: debug, info, warn, error, fatal, panic")
	listenAddr := flag.String("listen", ":3002", "Set the server listen address")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Debug("No .env file loaded")
	}

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level: %v\n", err)
		os.Exit(1)
	}
	logrus.SetLevel(level)

	documentStore := memory.NewDocumentStore()
	fileStore := stores.GetFileStore()

	hub := websocket.NewHub(documentStore)
	go hub.Run()

	r := setupRouter(documentStore, fileStore, hub)

	logrus.WithField("addr", *listenAddr).Info("starting server")
	go func() {
		if err := http.ListenAndServe(*listenAddr, r); err != nil {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	logrus.Debug("Server is running in the background")
	waitForShutdown()
}
