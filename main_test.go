package main

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/campusboard/bulletin/internal/auth"
	"github.com/campusboard/bulletin/internal/model"
	"github.com/campusboard/bulletin/internal/repository"
	"github.com/campusboard/bulletin/internal/sse"
	"github.com/campusboard/bulletin/internal/upload"
)

const (
	testContributorPass = "faculty-lounge"
	testAdminPass       = "registrar-office"
)

func setupServer(t *testing.T) http.Handler {
	t.Helper()

	annRepo = repository.NewMemoryAnnouncementRepository()

	store, err := upload.NewFSBlobStore(t.TempDir())
	if err != nil {
		t.Fatalf("creating blob store: %v", err)
	}
	pipeline = upload.NewPipeline(store)

	contributorHash, err := auth.HashSecret(testContributorPass)
	if err != nil {
		t.Fatalf("hashing contributor pass: %v", err)
	}
	adminHash, err := auth.HashSecret(testAdminPass)
	if err != nil {
		t.Fatalf("hashing admin pass: %v", err)
	}
	sessions := auth.NewSessionStore(time.Hour)
	gate = auth.NewGate(contributorHash, adminHash, sessions)

	clients = sse.NewClients()

	mux := newMux(store.Dir())
	return gate.WithSessionRole()(secureHeaders(mux.ServeHTTP))
}

func login(t *testing.T, handler http.Handler, secret string) *http.Cookie {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"secret": secret})
	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("login with %q: got status %d, want %d", secret, rec.Code, http.StatusOK)
	}
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "session" {
			return cookie
		}
	}
	t.Fatal("login response set no session cookie")
	return nil
}

func multipartSubmission(t *testing.T, blocks []model.ContentBlock, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)

	encoded, err := model.EncodeBlocks(blocks)
	if err != nil {
		t.Fatalf("encoding blocks: %v", err)
	}
	if err := mw.WriteField("contentBlocks", string(encoded)); err != nil {
		t.Fatalf("writing contentBlocks field: %v", err)
	}
	for name, data := range files {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("creating file part: %v", err)
		}
		fw.Write(data)
	}
	mw.Close()
	return buf, mw.FormDataContentType()
}

func TestLoginRoles(t *testing.T) {
	handler := setupServer(t)

	tests := []struct {
		name       string
		secret     string
		wantStatus int
		wantRole   string
	}{
		{"empty secret is a student", "", http.StatusOK, "student"},
		{"contributor pass is faculty", testContributorPass, http.StatusOK, "faculty"},
		{"admin pass is admin", testAdminPass, http.StatusOK, "admin"},
		{"wrong pass is rejected", "not-a-pass", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(map[string]string{"secret": tt.secret})
			req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantRole == "" {
				return
			}
			var resp map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decoding response: %v", err)
			}
			if resp["role"] != tt.wantRole {
				t.Errorf("got role %q, want %q", resp["role"], tt.wantRole)
			}
		})
	}
}

func TestMutationGating(t *testing.T) {
	handler := setupServer(t)

	body, ctype := multipartSubmission(t, []model.ContentBlock{model.TextBlock("hi")}, nil)

	t.Run("anonymous create is unauthorized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/announcements", body)
		req.Header.Set("Content-Type", ctype)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("got status %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("student create is forbidden", func(t *testing.T) {
		cookie := login(t, handler, "")

		body, ctype := multipartSubmission(t, []model.ContentBlock{model.TextBlock("hi")}, nil)
		req := httptest.NewRequest(http.MethodPost, "/api/announcements", body)
		req.Header.Set("Content-Type", ctype)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Errorf("got status %d, want %d", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("student delete is forbidden", func(t *testing.T) {
		cookie := login(t, handler, "")

		req := httptest.NewRequest(http.MethodDelete, "/api/announcements/some-id", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Errorf("got status %d, want %d", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("anonymous list is allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/announcements", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("got status %d, want %d", rec.Code, http.StatusOK)
		}
	})
}

func TestAnnouncementLifecycle(t *testing.T) {
	handler := setupServer(t)
	cookie := login(t, handler, testContributorPass)

	blocks := []model.ContentBlock{
		model.TextBlock("Lab closed Friday"),
		model.LinkBlock("https://campus.example.edu/notices"),
		model.TextBlock(""),
		{Kind: model.BlockImage, Content: model.Placeholder},
		model.TextBlock(""),
	}
	files := map[string][]byte{"map.png": []byte("png-bytes")}

	var createdID string

	t.Run("create", func(t *testing.T) {
		body, ctype := multipartSubmission(t, blocks, files)
		req := httptest.NewRequest(http.MethodPost, "/api/announcements", body)
		req.Header.Set("Content-Type", ctype)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("got status %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var resp map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		createdID = resp["id"]
		if createdID == "" {
			t.Fatal("create returned empty id")
		}
	})

	t.Run("list shows resolved blocks", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/announcements", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("got status %d, want %d", rec.Code, http.StatusOK)
		}
		if rec.Header().Get("ETag") == "" {
			t.Error("list response has no ETag")
		}

		var anns []announcementJSON
		if err := json.NewDecoder(rec.Body).Decode(&anns); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if len(anns) != 1 {
			t.Fatalf("got %d announcements, want 1", len(anns))
		}
		got := anns[0]
		if string(got.ID) != createdID {
			t.Errorf("got id %q, want %q", got.ID, createdID)
		}
		// Trailing empty text is trimmed; the interior one survives.
		if len(got.ContentBlocks) != 4 {
			t.Fatalf("got %d blocks, want 4", len(got.ContentBlocks))
		}
		img := got.ContentBlocks[3]
		if img.Kind != model.BlockImage {
			t.Errorf("got kind %q, want %q", img.Kind, model.BlockImage)
		}
		if img.Content == model.Placeholder || img.Content == "" {
			t.Errorf("image content %q was not resolved to a stored reference", img.Content)
		}
	})

	t.Run("uploaded binary is served", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/announcements", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		var anns []announcementJSON
		if err := json.NewDecoder(rec.Body).Decode(&anns); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		ref := anns[0].ContentBlocks[3].Content

		fileReq := httptest.NewRequest(http.MethodGet, ref, nil)
		fileRec := httptest.NewRecorder()
		handler.ServeHTTP(fileRec, fileReq)

		if fileRec.Code != http.StatusOK {
			t.Fatalf("GET %s: got status %d, want %d", ref, fileRec.Code, http.StatusOK)
		}
		if fileRec.Body.String() != "png-bytes" {
			t.Errorf("got body %q, want original bytes", fileRec.Body.String())
		}
	})

	t.Run("delete", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/announcements/"+createdID, nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("got status %d, want %d", rec.Code, http.StatusNoContent)
		}

		listReq := httptest.NewRequest(http.MethodGet, "/api/announcements", nil)
		listRec := httptest.NewRecorder()
		handler.ServeHTTP(listRec, listReq)

		var anns []announcementJSON
		if err := json.NewDecoder(listRec.Body).Decode(&anns); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if len(anns) != 0 {
			t.Errorf("got %d announcements after delete, want 0", len(anns))
		}
	})

	t.Run("delete unknown id still succeeds", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/announcements/never-existed", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("got status %d, want %d", rec.Code, http.StatusNoContent)
		}
	})
}

func TestCreateAnnouncementRejectsBadInput(t *testing.T) {
	handler := setupServer(t)
	cookie := login(t, handler, testContributorPass)

	t.Run("malformed contentBlocks JSON", func(t *testing.T) {
		buf := &bytes.Buffer{}
		mw := multipart.NewWriter(buf)
		mw.WriteField("contentBlocks", "{not json")
		mw.Close()

		req := httptest.NewRequest(http.MethodPost, "/api/announcements", buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("got status %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("placeholder count does not match file parts", func(t *testing.T) {
		blocks := []model.ContentBlock{
			{Kind: model.BlockImage, Content: model.Placeholder},
			{Kind: model.BlockFile, Content: model.Placeholder},
		}
		body, ctype := multipartSubmission(t, blocks, map[string][]byte{"only-one.png": []byte("x")})

		req := httptest.NewRequest(http.MethodPost, "/api/announcements", body)
		req.Header.Set("Content-Type", ctype)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("got status %d, want %d: %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})

	t.Run("empty submission", func(t *testing.T) {
		body, ctype := multipartSubmission(t, []model.ContentBlock{model.TextBlock("")}, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/announcements", body)
		req.Header.Set("Content-Type", ctype)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("got status %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})
}

func TestLogout(t *testing.T) {
	handler := setupServer(t)
	cookie := login(t, handler, testContributorPass)

	req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusNoContent)
	}

	// The revoked session no longer authorizes mutations.
	body, ctype := multipartSubmission(t, []model.ContentBlock{model.TextBlock("hi")}, nil)
	mutReq := httptest.NewRequest(http.MethodPost, "/api/announcements", body)
	mutReq.Header.Set("Content-Type", ctype)
	mutReq.AddCookie(cookie)
	mutRec := httptest.NewRecorder()
	handler.ServeHTTP(mutRec, mutReq)

	if mutRec.Code != http.StatusUnauthorized {
		t.Errorf("got status %d, want %d", mutRec.Code, http.StatusUnauthorized)
	}
}

func TestSecureHeaders(t *testing.T) {
	handler := setupServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/announcements", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	want := map[string]string{
		"X-Frame-Options":        "deny",
		"X-Content-Type-Options": "nosniff",
	}
	for header, value := range want {
		if got := rec.Header().Get(header); got != value {
			t.Errorf("header %s: got %q, want %q", header, got, value)
		}
	}
}
