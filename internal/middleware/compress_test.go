package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
)

var snapshotBody = strings.Repeat(`{"i":1,"x":12.5,"y":-3.25,"m":1e30},`, 200)

func bodyHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(snapshotBody))
	})
}

func TestNegotiateEncoding(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"gzip", "gzip"},
		{"gzip, deflate, br", "br"},
		{"br;q=0, gzip", "gzip"},
		{"br;q=0.5", "br"},
		{"identity", ""},
		{"GZIP", "gzip"},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			if got := negotiateEncoding(tt.header); got != tt.want {
				t.Errorf("negotiateEncoding(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestCompress_Brotli(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/snapshots/latest", nil)
	req.Header.Set("Accept-Encoding", "gzip, br")
	rr := httptest.NewRecorder()
	Compress(bodyHandler()).ServeHTTP(rr, req)

	if got := rr.Header().Get("Content-Encoding"); got != "br" {
		t.Fatalf("Content-Encoding = %q, want br", got)
	}
	if rr.Body.Len() >= len(snapshotBody) {
		t.Errorf("compressed body (%d) should be smaller than raw (%d)", rr.Body.Len(), len(snapshotBody))
	}
	decoded, err := io.ReadAll(brotli.NewReader(rr.Body))
	if err != nil {
		t.Fatal(err)
	}
	if string(decoded) != snapshotBody {
		t.Error("brotli round trip changed the body")
	}
}

func TestCompress_Gzip(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/snapshots/latest", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rr := httptest.NewRecorder()
	Compress(bodyHandler()).ServeHTTP(rr, req)

	if got := rr.Header().Get("Content-Encoding"); got != "gzip" {
		t.Fatalf("Content-Encoding = %q, want gzip", got)
	}
	zr, err := gzip.NewReader(rr.Body)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := io.ReadAll(zr)
	if err != nil {
		t.Fatal(err)
	}
	if string(decoded) != snapshotBody {
		t.Error("gzip round trip changed the body")
	}
	if rr.Header().Get("Vary") != "Accept-Encoding" {
		t.Error("Vary header should be set")
	}
}

func TestCompress_Identity(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()
	Compress(bodyHandler()).ServeHTTP(rr, req)

	if rr.Header().Get("Content-Encoding") != "" {
		t.Error("no encoding expected without Accept-Encoding")
	}
	if rr.Body.String() != snapshotBody {
		t.Error("body should pass through unchanged")
	}
}

func TestCompress_SkipsUpgrade(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/ws", nil)
	req.Header.Set("Accept-Encoding", "gzip, br")
	req.Header.Set("Upgrade", "websocket")
	rr := httptest.NewRecorder()

	var wrapped bool
	Compress(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, wrapped = w.(*compressWriter)
	})).ServeHTTP(rr, req)

	if wrapped {
		t.Error("upgrade requests must reach the handler with the raw writer")
	}
}

func TestCompress_PreservesStatus(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/snapshots/99", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rr := httptest.NewRecorder()
	Compress(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{}}`))
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}
