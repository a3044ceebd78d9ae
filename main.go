package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/campusboard/bulletin/internal/apperr"
	"github.com/campusboard/bulletin/internal/auth"
	"github.com/campusboard/bulletin/internal/composer"
	"github.com/campusboard/bulletin/internal/config"
	"github.com/campusboard/bulletin/internal/db"
	"github.com/campusboard/bulletin/internal/httpx"
	"github.com/campusboard/bulletin/internal/logger"
	"github.com/campusboard/bulletin/internal/model"
	"github.com/campusboard/bulletin/internal/repository"
	"github.com/campusboard/bulletin/internal/routes"
	"github.com/campusboard/bulletin/internal/sse"
	"github.com/campusboard/bulletin/internal/upload"
)

// maxSubmissionBytes bounds one multipart submission, blocks and binaries included.
const maxSubmissionBytes = 64 << 20

var annRepo repository.AnnouncementRepository

var pipeline *upload.Pipeline

var gate *auth.Gate

var clients = sse.NewClients()

var l zerolog.Logger

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "Error loading .env file")
	}

	if err := config.LoadConfig("config.yaml"); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	cfg := config.AppConfig

	l = logger.New(cfg.Logging.Level)
	config.SetLogger(l)
	db.SetLogger(l)
	repository.SetLogger(l)
	upload.SetLogger(l)
	auth.SetLogger(l)
	composer.SetLogger(l)

	database := db.NewSQLite(cfg.Storage.DBPath)
	if err := database.InitDB(); err != nil {
		l.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer database.Close()

	annRepo = repository.NewDBAnnouncementRepository(database)

	var blobStore upload.BlobStore
	var uploadsDir string
	switch cfg.Storage.Backend {
	case "s3":
		store, err := upload.NewS3BlobStore(
			os.Getenv("AWS_ACCESS_KEY_ID"),
			os.Getenv("AWS_SECRET_ACCESS_KEY"),
			cfg.Storage.S3.Endpoint,
			cfg.Storage.S3.Bucket,
		)
		if err != nil {
			l.Fatal().Err(err).Msg("Failed to initialize S3 blob store")
		}
		blobStore = store
	default:
		store, err := upload.NewFSBlobStore(cfg.Storage.UploadsDir)
		if err != nil {
			l.Fatal().Err(err).Msg("Failed to initialize uploads dir")
		}
		blobStore = store
		uploadsDir = store.Dir()
	}
	pipeline = upload.NewPipeline(blobStore)

	sessions := auth.NewSessionStore(time.Duration(cfg.Auth.SessionTTLMinutes) * time.Minute)
	gate = auth.NewGate(cfg.Auth.ContributorHash, cfg.Auth.AdminHash, sessions)

	mux := newMux(uploadsDir)

	handler := gate.WithSessionRole()(secureHeaders(mux.ServeHTTP))

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	l.Info().Str("addr", addr).Str("site", cfg.Site.Name).Msg("Server listening")
	l.Fatal().Err(http.ListenAndServe(addr, handler)).Msg("Server stopped")
}

func newMux(uploadsDir string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc(routes.Robots, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(config.HCType, "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("User-agent: *\nDisallow:"))
	})

	// Reads are open to everyone, including anonymous visitors.
	mux.HandleFunc(routes.AnnouncementsList, serveAnnouncements)
	mux.HandleFunc(routes.Events, eventsHandler)

	// Mutations are enforced server-side, whatever the client claims.
	mux.HandleFunc(routes.AnnouncementsCreate, gate.RequireMutate(handleCreateAnnouncement))
	mux.HandleFunc(routes.AnnouncementsDelete, gate.RequireMutate(handleDeleteAnnouncement))

	mux.HandleFunc(routes.Login, handleLogin)
	mux.HandleFunc(routes.Logout, handleLogout)

	if uploadsDir != "" {
		mux.Handle(routes.Uploads, http.StripPrefix(routes.Uploads, http.FileServer(http.Dir(uploadsDir))))
	}

	composerHandler := composer.NewHandler(composer.NewMemoryRepository(), pipeline, annRepo, clients)
	composerHandler.RegisterRoutes(mux, gate.RequireMutate)

	return mux
}

type announcementJSON struct {
	ID            model.AnnouncementID `json:"id"`
	ContentBlocks []model.ContentBlock `json:"contentBlocks"`
	CreatedAt     time.Time            `json:"createdAt"`
}

func serveAnnouncements(w http.ResponseWriter, r *http.Request) {
	anns, err := annRepo.ListAll()
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	out := make([]announcementJSON, 0, len(anns))
	for _, ann := range anns {
		out = append(out, announcementJSON{
			ID:            ann.ID,
			ContentBlocks: ann.Blocks,
			CreatedAt:     ann.CreatedAt,
		})
	}

	body, err := json.Marshal(out)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	hash, err := annRepo.FeedHash()
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	w.Header().Set(config.HCType, config.CTypeJSON)
	w.Header().Set(config.HETag, hash)
	w.Header().Set(config.HCacheControl, "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// handleCreateAnnouncement accepts the one-shot multipart submission: a
// contentBlocks JSON field plus binary parts in placeholder order.
func handleCreateAnnouncement(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxSubmissionBytes); err != nil {
		httpx.WriteError(w, r, apperr.Validation("invalid multipart request"))
		return
	}

	blocks, err := model.DecodeBlocks([]byte(r.FormValue("contentBlocks")))
	if err != nil {
		httpx.WriteError(w, r, apperr.Validation("invalid contentBlocks JSON"))
		return
	}

	var parts []upload.Part
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["files"] {
			f, err := header.Open()
			if err != nil {
				httpx.WriteError(w, r, apperr.Validation("unreadable file part %q", header.Filename))
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				httpx.WriteError(w, r, apperr.Validation("unreadable file part %q", header.Filename))
				return
			}
			parts = append(parts, upload.Part{Filename: header.Filename, Data: data})
		}
	}

	resolved, err := pipeline.Resolve(r.Context(), blocks, parts)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if len(resolved) == 0 {
		httpx.WriteError(w, r, apperr.Validation("announcement has no content"))
		return
	}

	id, err := annRepo.Create(resolved)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	clients.Broadcast("created")

	httpx.WriteJSON(w, http.StatusCreated, map[string]string{"id": string(id)})
}

func handleDeleteAnnouncement(w http.ResponseWriter, r *http.Request) {
	id := model.AnnouncementID(r.PathValue("id"))

	if err := annRepo.Delete(id); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	clients.Broadcast("deleted")

	w.WriteHeader(http.StatusNoContent)
}

func handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Secret string `json:"secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.WriteError(w, r, apperr.Validation("invalid request body"))
		return
	}

	role, token, err := gate.Login(body.Secret)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     config.CookieSession,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"role": string(role)})
}

func handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(config.CookieSession); err == nil {
		gate.Logout(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:   config.CookieSession,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	w.WriteHeader(http.StatusNoContent)
}

func eventsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(config.HCType, "text/event-stream")
	w.Header().Set(config.HCacheControl, "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	fmt.Fprintf(w, "event: connected\ndata: SSE connection established\n\n")
	flusher.Flush()

	client := &sse.Client{
		Msg: make(chan string),
	}

	clients.Add(client)
	l.Debug().Msg("New SSE client connected")

	defer func() {
		clients.Delete(client)
		l.Debug().Msg("SSE client disconnected")
	}()

	notify := r.Context().Done()
	for {
		select {
		case msg := <-client.Msg:
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		case <-notify:
			return
		}
	}
}

func secureHeaders(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "deny")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-XSS-Protection", "1; mode=block")

		h(w, r)
	}
}
