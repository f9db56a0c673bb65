package frameworks

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestLoadLibraryValid(t *testing.T) {
	lib, err := LoadLibrary(filepath.Join("testdata", "valid"))
	if err != nil {
		t.Fatalf("LoadLibrary: %v", err)
	}

	got := SortedCodes(lib)
	want := []string{"ORG-demo", "common-base"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("codes = %v, want %v", got, want)
	}

	demo := lib["ORG-demo"]
	if demo.Metadata.FrameworkCode != "ORG-demo" {
		t.Errorf("framework code = %q", demo.Metadata.FrameworkCode)
	}
	leaf := demo.Structure[0].Children[0]
	if leaf.ID != "1:1.1" || leaf.DisplayID != "1.1" {
		t.Errorf("leaf not qualified: id=%q display=%q", leaf.ID, leaf.DisplayID)
	}
	if lib["common-base"].Metadata.Visible() {
		t.Errorf("common-base should be hidden from selection")
	}
	if !demo.Metadata.Visible() {
		t.Errorf("ORG-demo should be visible")
	}
}

func TestLoadLibraryMissingDependencyFails(t *testing.T) {
	_, err := LoadLibrary(filepath.Join("testdata", "missingdep"))
	if err == nil {
		t.Fatalf("expected error for missing dependency")
	}
	if !strings.Contains(err.Error(), "never-loaded") {
		t.Errorf("error does not name the missing dependency: %v", err)
	}
}

func TestLoadLibraryInvalidNodeFails(t *testing.T) {
	_, err := LoadLibrary(filepath.Join("testdata", "badnode"))
	if err == nil {
		t.Fatalf("expected error for node without text")
	}
	if !strings.Contains(err.Error(), "text is required") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadLibraryEmptyDirFails(t *testing.T) {
	if _, err := LoadLibrary(t.TempDir()); err == nil {
		t.Fatalf("expected error for directory without frameworks")
	}
}
