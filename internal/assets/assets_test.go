package assets

import (
	"context"
	"strings"
	"testing"
)

func TestDataURIStore(t *testing.T) {
	url, err := DataURIStore{}.Put(context.Background(), "", []byte("hello"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if url != "data:image/png;base64,aGVsbG8=" {
		t.Fatalf("unexpected data uri %q", url)
	}
	if _, err := (DataURIStore{}).Put(context.Background(), "image/png", nil); err == nil {
		t.Fatal("expected empty asset to be rejected")
	}
}

func TestObjectKeyAndURL(t *testing.T) {
	key := objectKey("image/png")
	if !strings.HasPrefix(key, "generated/") || !strings.HasSuffix(key, ".png") {
		t.Fatalf("unexpected key %q", key)
	}
	if other := objectKey("image/png"); other == key {
		t.Fatal("expected unique object keys")
	}
	if got := objectKey("image/jpeg"); !strings.HasSuffix(got, ".jpg") {
		t.Fatalf("expected .jpg suffix, got %q", got)
	}
	if got := objectURL("http://cdn.local/", "assets", "generated/a.png"); got != "http://cdn.local/assets/generated/a.png" {
		t.Fatalf("unexpected url %q", got)
	}
}
