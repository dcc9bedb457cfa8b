package engage

import (
	"context"
	"testing"
)

func TestExtractTextPrefersRenderedText(t *testing.T) {
	item := &fakeItem{
		text: "  rendered   text  ",
		html: "<p>markup text</p>",
	}
	if got := ExtractText(context.Background(), item); got != "rendered text" {
		t.Fatalf("got %q, want %q", got, "rendered text")
	}
}

func TestExtractTextFallsBackToHTML(t *testing.T) {
	item := &fakeItem{
		html: "<div><p>Hello <b>world</b> &amp; friends</p></div>",
	}
	if got := ExtractText(context.Background(), item); got != "Hello world & friends" {
		t.Fatalf("got %q, want %q", got, "Hello world & friends")
	}
}

func TestExtractTextEmptyWhenNothing(t *testing.T) {
	item := &fakeItem{}
	if got := ExtractText(context.Background(), item); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}
