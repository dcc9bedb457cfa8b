package generation

import (
	"fmt"
	"testing"
)

func TestFingerprintNormalizes(t *testing.T) {
	a := Fingerprint("Hello   World\n\tagain")
	b := Fingerprint("hello world again")
	if a != b {
		t.Fatalf("got %q and %q, want equal fingerprints", a, b)
	}
}

func TestFingerprintTruncates(t *testing.T) {
	long := ""
	for i := 0; i < 40; i++ {
		long += "abcdefghij "
	}
	fp := Fingerprint(long)
	if got := len([]rune(fp)); got != fingerprintLen {
		t.Fatalf("got %d runes, want %d", got, fingerprintLen)
	}
}

func TestReplyCacheEvictsOldestInsertion(t *testing.T) {
	c := NewReplyCache(50)
	for i := 0; i < 50; i++ {
		c.Put(fmt.Sprintf("key-%d", i), "reply")
	}
	if got := c.Len(); got != 50 {
		t.Fatalf("got %d entries, want 50", got)
	}

	// The 51st insertion evicts exactly the oldest entry.
	c.Put("key-50", "reply")
	if got := c.Len(); got != 50 {
		t.Fatalf("got %d entries after eviction, want 50", got)
	}
	if _, ok := c.Get("key-0"); ok {
		t.Fatal("oldest entry survived eviction")
	}
	if _, ok := c.Get("key-1"); !ok {
		t.Fatal("second-oldest entry was evicted")
	}
	if _, ok := c.Get("key-50"); !ok {
		t.Fatal("newest entry missing")
	}
}

func TestReplyCacheUpdateKeepsPosition(t *testing.T) {
	c := NewReplyCache(2)
	c.Put("a", "one")
	c.Put("b", "two")
	c.Put("a", "one-updated") // update, not reinsertion

	c.Put("c", "three") // evicts "a", still the oldest insertion
	if _, ok := c.Get("a"); ok {
		t.Fatal("updated key escaped insertion-order eviction")
	}
	if v, ok := c.Get("b"); !ok || v != "two" {
		t.Fatalf("got %q/%v, want two/true", v, ok)
	}
}

func TestReplyCacheGetDoesNotReorder(t *testing.T) {
	c := NewReplyCache(2)
	c.Put("a", "one")
	c.Put("b", "two")
	c.Get("a") // a read must not refresh "a"

	c.Put("c", "three")
	if _, ok := c.Get("a"); ok {
		t.Fatal("read refreshed an entry, cache behaves like LRU")
	}
}
