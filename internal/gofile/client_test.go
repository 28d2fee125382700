package gofile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newTestClient wires a client, transport and session against the given
// handler, with auth endpoints served from the same fake server.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/accounts", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"ok","data":{"token":"testtoken"}}`)
	})
	mux.HandleFunc("/global.js", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `appdata.wt = "testwt";`)
	})
	mux.HandleFunc("/contents/", handler)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	session := NewSession(
		WithAccountsURL(server.URL+"/accounts"),
		WithAssetURL(server.URL+"/global.js"),
	)
	transport := NewTransport(session)
	client := NewClient(transport, WithAPIBase(server.URL))

	return client, server
}

func TestClient_FetchContent_Folder(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer testtoken" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer testtoken")
		}
		if got := r.Header.Get("X-Website-Token"); got != "testwt" {
			t.Errorf("X-Website-Token = %q, want %q", got, "testwt")
		}
		fmt.Fprint(w, `{"status":"ok","data":{
			"type":"folder","name":"My Folder",
			"children":{
				"id-b":{"type":"file","name":"b.txt","link":"http://x/b","size":2},
				"id-a":{"type":"folder","name":"sub"},
				"id-c":{"name":"c.txt","link":"http://x/c"}
			}}}`)
	})

	node, err := client.FetchContent(context.Background(), "root123", "")
	if err != nil {
		t.Fatalf("FetchContent() error = %v", err)
	}

	if node.Type != NodeFolder || node.Name != "My Folder" || node.ID != "root123" {
		t.Errorf("node = %+v, want folder My Folder root123", node)
	}

	// Children must come back in the order the API sent them
	wantIDs := []string{"id-b", "id-a", "id-c"}
	if len(node.Children) != len(wantIDs) {
		t.Fatalf("len(Children) = %d, want %d", len(node.Children), len(wantIDs))
	}
	for i, want := range wantIDs {
		if node.Children[i].ID != want {
			t.Errorf("Children[%d].ID = %q, want %q", i, node.Children[i].ID, want)
		}
	}

	// Missing type means file
	if node.Children[2].Type != NodeFile {
		t.Errorf("child without type = %q, want file", node.Children[2].Type)
	}
}

func TestClient_FetchContent_ContentsFallback(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"ok","data":{
			"type":"folder","name":"Old Shape",
			"contents":{
				"f1":{"type":"file","name":"one.bin","link":"http://x/1"}
			}}}`)
	})

	node, err := client.FetchContent(context.Background(), "old1", "")
	if err != nil {
		t.Fatalf("FetchContent() error = %v", err)
	}

	if len(node.Children) != 1 || node.Children[0].Name != "one.bin" {
		t.Errorf("contents fallback not applied: %+v", node.Children)
	}
}

func TestClient_FetchContent_EmptyFolder(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"ok","data":{"type":"folder","name":"Empty"}}`)
	})

	node, err := client.FetchContent(context.Background(), "empty1", "")
	if err != nil {
		t.Fatalf("FetchContent() error = %v, empty folder is not an error", err)
	}
	if len(node.Children) != 0 {
		t.Errorf("len(Children) = %d, want 0", len(node.Children))
	}
}

func TestClient_FetchContent_APIError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"error-somethingBroke"}`)
	})

	_, err := client.FetchContent(context.Background(), "bad1", "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("FetchContent() error = %v, want *APIError", err)
	}
	if apiErr.Status != "error-somethingBroke" {
		t.Errorf("Status = %q", apiErr.Status)
	}
}

func TestClient_FetchContent_NotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"error-notFound"}`)
	})

	_, err := client.FetchContent(context.Background(), "missing", "")
	if !errors.Is(err, ErrContentNotFound) {
		t.Errorf("FetchContent() error = %v, want ErrContentNotFound", err)
	}
}

func TestClient_FetchContent_PasswordRequired(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"ok","data":{"type":"folder","name":"Locked","passwordStatus":"passwordRequired"}}`)
	})

	_, err := client.FetchContent(context.Background(), "locked1", "")
	if !errors.Is(err, ErrPassword) {
		t.Fatalf("FetchContent() error = %v, want ErrPassword", err)
	}

	var pwErr *PasswordError
	if !errors.As(err, &pwErr) || pwErr.Status != "passwordRequired" {
		t.Errorf("error = %v, want PasswordError{passwordRequired}", err)
	}
}

func TestClient_FetchContent_PasswordHashed(t *testing.T) {
	sum := sha256.Sum256([]byte("hunter2"))
	wantHash := hex.EncodeToString(sum[:])

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("password"); got != wantHash {
			t.Errorf("password query = %q, want %q", got, wantHash)
		}
		fmt.Fprint(w, `{"status":"ok","data":{"type":"file","name":"f.bin","link":"http://x/f"}}`)
	})

	if _, err := client.FetchContent(context.Background(), "pw1", "hunter2"); err != nil {
		t.Fatalf("FetchContent() error = %v", err)
	}
}

func TestDecodeChildren_PreservesOrder(t *testing.T) {
	raw := []byte(`{"z":{"name":"z.txt"},"a":{"name":"a.txt"},"m":{"name":"m.txt"}}`)

	children, err := decodeChildren(raw)
	if err != nil {
		t.Fatalf("decodeChildren() error = %v", err)
	}

	want := []string{"z", "a", "m"}
	for i, id := range want {
		if children[i].ID != id {
			t.Errorf("children[%d].ID = %q, want %q", i, children[i].ID, id)
		}
	}
}

func TestDecodeChildren_NullAndEmpty(t *testing.T) {
	for _, raw := range []string{"", "null", "{}"} {
		children, err := decodeChildren([]byte(raw))
		if err != nil {
			t.Errorf("decodeChildren(%q) error = %v", raw, err)
		}
		if len(children) != 0 {
			t.Errorf("decodeChildren(%q) = %d children, want 0", raw, len(children))
		}
	}
}
