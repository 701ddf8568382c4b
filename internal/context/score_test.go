package context

import "testing"

func TestMatchBareOrGlobBareNameSuffix(t *testing.T) {
	if !matchBareOrGlob("go.mod", "go.mod") {
		t.Error("expected exact bare match")
	}
	if !matchBareOrGlob("go.mod", "sub/dir/go.mod") {
		t.Error("expected suffix bare match")
	}
	if matchBareOrGlob("go.mod", "go.modx") {
		t.Error("did not expect partial suffix match")
	}
}

func TestMatchBareOrGlobDoubleStar(t *testing.T) {
	if !matchBareOrGlob("**/node_modules/**", "a/b/node_modules/c/d.js") {
		t.Error("expected ** to match any depth")
	}
	if matchBareOrGlob("**/node_modules/**", "a/b/other/c/d.js") {
		t.Error("did not expect match outside node_modules")
	}
}

func TestMatchBareOrGlobSingleSegmentStar(t *testing.T) {
	if !matchBareOrGlob("*.go", "main.go") {
		t.Error("expected *.go to match a top-level file")
	}
	if !matchBareOrGlob("*.go", "cmd/termai/main.go") {
		t.Error("expected *.go to match by base name fallback")
	}
}

func TestClassifyFileType(t *testing.T) {
	cases := map[string]string{
		"main.go":              fileTypeSource,
		"handler_test.go":      fileTypeTest,
		"pkg/tests/fixture.go": fileTypeTest,
		"go.mod":               fileTypeConfig,
		"config.yaml":          fileTypeConfig,
		"README.md":            fileTypeDocs,
		"LICENSE":              fileTypeOther,
	}
	for path, want := range cases {
		if got := classifyFileType(path); got != want {
			t.Errorf("classifyFileType(%q) = %q, want %q", path, got, want)
		}
	}
}
