package memory

import (
	"bytes"
	"context"
	"testing"
)

func TestBlobStorePutObject(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	uri, err := store.PutObject(context.Background(), "pages/u1/abc.html", "text/html", bytes.NewReader([]byte("content")))
	if err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}
	if uri != "memory://pages/u1/abc.html" {
		t.Fatalf("unexpected uri %s", uri)
	}

	data, contentType, ok := store.Object("pages/u1/abc.html")
	if !ok || string(data) != "content" || contentType != "text/html" {
		t.Fatalf("unexpected object: ok=%v data=%q type=%q", ok, data, contentType)
	}
	data[0] = 'C'
	again, _, _ := store.Object("pages/u1/abc.html")
	if string(again) != "content" {
		t.Fatalf("expected stored copy to be immutable, got %q", again)
	}
	if _, _, ok := store.Object("missing"); ok {
		t.Fatal("expected missing object")
	}
}
