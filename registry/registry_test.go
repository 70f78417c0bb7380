package registry

import "testing"

func TestLookupKnownLanguageReturnsUsableFactory(t *testing.T) {
	f, err := Lookup("python")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a := f()
	if a == nil {
		t.Fatal("expected a non-nil adapter from the factory")
	}
}

func TestLookupUnknownLanguageReturnsError(t *testing.T) {
	_, err := Lookup("cobol")
	if err == nil {
		t.Fatal("expected an error for an unregistered language tag")
	}
	if _, ok := err.(*ErrUnknownLanguage); !ok {
		t.Errorf("expected *ErrUnknownLanguage, got %T", err)
	}
}

func TestNewConstructsFreshAdapterPerCall(t *testing.T) {
	a1, err := New("ruby")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a2, err := New("ruby")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a1 == a2 {
		t.Error("expected New to construct a fresh adapter instance each call")
	}
}

func TestLanguagesListsAllFifteenAdapters(t *testing.T) {
	langs := Languages()
	if len(langs) != 15 {
		t.Errorf("expected 15 registered languages, got %d: %v", len(langs), langs)
	}
}
