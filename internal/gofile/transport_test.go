package gofile

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestTransport_OpenRange_FromStart(t *testing.T) {
	content := []byte("0123456789")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Range"); got != "bytes=0-" {
			t.Errorf("Range = %q, want %q", got, "bytes=0-")
		}
		if got := r.Header.Get("Cookie"); !strings.Contains(got, "accountToken=tok") {
			t.Errorf("Cookie = %q, want accountToken=tok", got)
		}
		w.Header().Set("Content-Length", fmt.Sprint(len(content)))
		w.Write(content)
	}))
	defer server.Close()

	session := NewSession()
	session.token = "tok"
	transport := NewTransport(session)

	body, total, err := transport.OpenRange(context.Background(), server.URL, 0)
	if err != nil {
		t.Fatalf("OpenRange() error = %v", err)
	}
	defer body.Close()

	if total != int64(len(content)) {
		t.Errorf("total = %d, want %d", total, len(content))
	}

	got, _ := io.ReadAll(body)
	if string(got) != string(content) {
		t.Errorf("body = %q, want %q", got, content)
	}
}

func TestTransport_OpenRange_Resume(t *testing.T) {
	content := []byte("0123456789")
	const offset = 4

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Range"); got != "bytes=4-" {
			t.Errorf("Range = %q, want %q", got, "bytes=4-")
		}
		rest := content[offset:]
		w.Header().Set("Content-Length", fmt.Sprint(len(rest)))
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, len(content)-1, len(content)))
		w.WriteHeader(http.StatusPartialContent)
		w.Write(rest)
	}))
	defer server.Close()

	transport := NewTransport(NewSession())

	body, total, err := transport.OpenRange(context.Background(), server.URL, offset)
	if err != nil {
		t.Fatalf("OpenRange() error = %v", err)
	}
	defer body.Close()

	// Total is reconstructed as offset + remaining length
	if total != int64(len(content)) {
		t.Errorf("total = %d, want %d", total, len(content))
	}

	got, _ := io.ReadAll(body)
	if string(got) != "456789" {
		t.Errorf("body = %q, want %q", got, "456789")
	}
}

func TestTransport_OpenRange_RangeIgnored(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Plain 200 with the whole file despite a non-zero Range
		w.Write([]byte("full content"))
	}))
	defer server.Close()

	transport := NewTransport(NewSession())

	_, _, err := transport.OpenRange(context.Background(), server.URL, 5)
	if err == nil {
		t.Fatal("OpenRange() should fail when the server ignores a resume Range")
	}
}

func TestTransport_OpenRange_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	transport := NewTransport(NewSession())

	_, _, err := transport.OpenRange(context.Background(), server.URL, 0)
	if err == nil {
		t.Fatal("OpenRange() should fail on 404")
	}
}

func TestTransport_Options(t *testing.T) {
	var gotUA, gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotHeader = r.Header.Get("X-Custom")
	}))
	defer server.Close()

	transport := NewTransport(NewSession(),
		WithTimeout(5*time.Second),
		WithUserAgent("test-agent/1.0"),
		WithHeader("X-Custom", "value"),
	)

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	resp, err := transport.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	resp.Body.Close()

	if gotUA != "test-agent/1.0" {
		t.Errorf("User-Agent = %q, want %q", gotUA, "test-agent/1.0")
	}
	if gotHeader != "value" {
		t.Errorf("X-Custom = %q, want %q", gotHeader, "value")
	}
}
