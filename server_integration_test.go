package main

import (
	"bytes"
	"encoding/json"
	"image/color"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
)

// helper to perform requests with auth token
func performRequest(r http.Handler, method, path string, body io.Reader, token string, contentType string) *httptest.ResponseRecorder {
	// allow callers to pass nil for body safely
	req, _ := http.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func setupTestServer(t *testing.T) *gin.Engine {
	// integration tests are opt-in. Set DB_DSN_TEST=1 and DB_DSN to run them.
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	gin.SetMode(gin.TestMode)
	initDB()
	tmp := t.TempDir()
	_ = os.Setenv("UPLOAD_BASE", tmp)
	seedDB()
	r := gin.Default()
	setupRoutes(r)
	return r
}

func TestFullFlow(t *testing.T) {
	r := setupTestServer(t)

	// 1. Register user
	regBody, _ := json.Marshal(map[string]string{"username": "user1", "password": "secret1"})
	resp := performRequest(r, http.MethodPost, "/register", bytes.NewBuffer(regBody), "", "application/json")
	if resp.Code != 200 && resp.Code != 409 {
		b := resp.Body.String()
		t.Fatalf("register failed status=%d body=%s", resp.Code, b)
	}

	// 2. Login
	loginBody, _ := json.Marshal(map[string]string{"username": "user1", "password": "secret1"})
	resp = performRequest(r, http.MethodPost, "/login", bytes.NewBuffer(loginBody), "", "application/json")
	if resp.Code != 200 {
		b := resp.Body.String()
		t.Fatalf("login failed status=%d body=%s", resp.Code, b)
	}
	var loginResp map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &loginResp)
	token, _ := loginResp["token"].(string)
	if token == "" {
		t.Fatalf("empty token in login response: %+v", loginResp)
	}

	// 3. Create profile
	profBody, _ := json.Marshal(map[string]string{"name": "User One", "email": "u1@example.com"})
	resp = performRequest(r, http.MethodPost, "/profile", bytes.NewBuffer(profBody), token, "application/json")
	if resp.Code != 200 {
		b := resp.Body.String()
		t.Fatalf("create profile failed status=%d body=%s", resp.Code, b)
	}

	// 4. Upload a page photo (multipart). A blank white page is decodable, so
	// the pipeline runs; whatever tesseract reads (usually nothing) must still
	// yield an entry rather than an error.
	img := imaging.New(400, 200, color.White)
	pngBuf := &bytes.Buffer{}
	if err := imaging.Encode(pngBuf, img, imaging.PNG); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	_ = mw.WriteField("folder", "journal")
	w, _ := mw.CreateFormFile("file", "page1.png")
	_, _ = w.Write(pngBuf.Bytes())
	_ = mw.Close()
	resp = performRequest(r, http.MethodPost, "/uploads", buf, token, mw.FormDataContentType())
	if resp.Code != 200 {
		b := resp.Body.String()
		t.Fatalf("upload failed status=%d body=%s", resp.Code, b)
	}

	// 5. An undecodable upload is kept but marked failed, not a 500.
	buf = &bytes.Buffer{}
	mw = multipart.NewWriter(buf)
	w, _ = mw.CreateFormFile("file", "notes.txt")
	_, _ = w.Write([]byte("this is not an image"))
	_ = mw.Close()
	resp = performRequest(r, http.MethodPost, "/uploads", buf, token, mw.FormDataContentType())
	if resp.Code != 200 {
		b := resp.Body.String()
		t.Fatalf("undecodable upload status=%d body=%s", resp.Code, b)
	}
	var upResp map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &upResp)
	if failed, _ := upResp["failed"].(bool); !failed {
		t.Fatalf("expected undecodable upload to be marked failed: %+v", upResp)
	}

	// 6. Create a manual entry
	mood := 70
	sleep := 7.5
	entBody, _ := json.Marshal(map[string]any{
		"file_name":   "manual-today",
		"free_text":   "Quiet day, long walk in the evening.",
		"mood":        mood,
		"sleep_hours": sleep,
		"activities":  []string{"walk", "reading"},
		"date":        time.Now().Format(time.RFC3339),
	})
	resp = performRequest(r, http.MethodPost, "/entries", bytes.NewBuffer(entBody), token, "application/json")
	if resp.Code != 200 {
		b := resp.Body.String()
		t.Fatalf("create entry failed status=%d body=%s", resp.Code, b)
	}

	// 7. List entries
	resp = performRequest(r, http.MethodGet, "/entries", nil, token, "")
	if resp.Code != 200 {
		b := resp.Body.String()
		t.Fatalf("list entries failed status=%d body=%s", resp.Code, b)
	}

	// 8. Mood summary
	resp = performRequest(r, http.MethodGet, "/entries/mood_summary", nil, token, "")
	if resp.Code != 200 {
		b := resp.Body.String()
		t.Fatalf("mood summary failed status=%d body=%s", resp.Code, b)
	}

	// 9. List uploads
	resp = performRequest(r, http.MethodGet, "/uploads", nil, token, "")
	if resp.Code != 200 {
		b := resp.Body.String()
		t.Fatalf("list uploads failed status=%d body=%s", resp.Code, b)
	}

	// 10. Unauthorized access to protected endpoint should be 401
	unauth := performRequest(r, http.MethodGet, "/entries", nil, "", "")
	if unauth.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unauthorized list entries got %d", unauth.Code)
	}
}

func TestMigrateCommand(t *testing.T) {
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	initDB()
}
