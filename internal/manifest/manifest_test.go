package manifest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"testbox/internal/discovery"
)

func TestLoadFormatsAgree(t *testing.T) {
	y, err := Load(filepath.Join("testdata", "suite.yaml"))
	if err != nil {
		t.Fatalf("Load(yaml) error = %v", err)
	}
	tm, err := Load(filepath.Join("testdata", "suite.toml"))
	if err != nil {
		t.Fatalf("Load(toml) error = %v", err)
	}
	if diff := cmp.Diff(y.Candidates(), tm.Candidates()); diff != "" {
		t.Fatalf("yaml and toml candidates differ (-yaml +toml):\n%s", diff)
	}
}

func TestCandidates(t *testing.T) {
	m, err := Load(filepath.Join("testdata", "suite.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	got := m.Candidates()
	if len(got) != 3 {
		t.Fatalf("Candidates() len = %d, want 3", len(got))
	}
	want := discovery.GroupCandidate{
		ID:     "com.example.cache.CacheTest",
		Public: true,
		Units: []discovery.UnitCandidate{
			{Name: "evictsOldest", Public: true},
			{Name: "runsLocally", Public: true},
			{Name: "counter", Public: true, ReturnsValue: true},
		},
	}
	if diff := cmp.Diff(want, got[1]); diff != "" {
		t.Fatalf("Candidates()[1] mismatch (-want +got):\n%s", diff)
	}
	if !got[2].Abstract {
		t.Fatal("expected BaseTest to be abstract")
	}
}

func TestSourceDrivesDiscovery(t *testing.T) {
	m, err := Load(filepath.Join("testdata", "suite.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	b := discovery.NewBuilder(discovery.NewRegistry(NewSource(m)))
	tree, err := b.Discover(context.Background(), m.Candidates())
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	var got []string
	for _, u := range tree.Units() {
		got = append(got, u.FullyQualifiedName()+"@"+u.Spec().Name)
	}
	want := []string{
		"com.example.db.RepositoryTest#insertsRow@junit-cl",
		"com.example.db.RepositoryTest#deletesRow@junit-cl",
		"com.example.cache.CacheTest#evictsOldest@redis-box",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("units mismatch (-want +got):\n%s", diff)
	}
}

func TestRepeatedClassWithSameIsolationMerges(t *testing.T) {
	data := "classes:\n" +
		"  - id: A\n    isolated: {container: c1, image: imgA}\n    methods: [{name: a}]\n" +
		"  - id: A\n    isolated: {container: c1, image: imgA}\n    methods: [{name: b}]\n"
	m, err := Parse([]byte(data), FormatYAML)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	tree, err := discovery.NewBuilder(discovery.NewRegistry(NewSource(m))).Discover(context.Background(), m.Candidates())
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	var got []string
	for _, u := range tree.Units() {
		got = append(got, u.FullyQualifiedName()+"@"+u.Spec().String())
	}
	want := []string{"A#a@c1 (imgA)", "A#b@c1 (imgA)"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("units mismatch (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
	}{
		{"missing class id", "classes:\n  - methods: [{name: a}]\n", FormatYAML},
		{"missing method name", "classes:\n  - id: A\n    methods: [{static: true}]\n", FormatYAML},
		{"unknown yaml key", "classes:\n  - id: A\n    colour: red\n", FormatYAML},
		{"unknown toml key", "[[classes]]\nid = \"A\"\ncolour = \"red\"\n", FormatTOML},
		{"bad format", "", Format("ini")},
		{
			"class isolated twice",
			"classes:\n" +
				"  - id: A\n    isolated: {container: c1, image: imgA}\n    methods: [{name: a}]\n" +
				"  - id: A\n    isolated: {container: c1, image: imgB}\n    methods: [{name: b}]\n",
			FormatYAML,
		},
		{
			"method isolated twice",
			"[[classes]]\nid = \"A\"\n" +
				"[[classes.methods]]\nname = \"a\"\nisolated = {container = \"c1\", image = \"imgA\"}\n" +
				"[[classes]]\nid = \"A\"\n" +
				"[[classes.methods]]\nname = \"a\"\nisolated = {container = \"c2\", image = \"imgA\"}\n",
			FormatTOML,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data), tt.format); err == nil {
				t.Fatal("Parse() expected error")
			}
		})
	}
}

func TestFormatOf(t *testing.T) {
	for path, want := range map[string]Format{"a.yaml": FormatYAML, "b.YML": FormatYAML, "c.toml": FormatTOML} {
		got, err := FormatOf(path)
		if err != nil || got != want {
			t.Errorf("FormatOf(%q) = %q, %v; want %q", path, got, err, want)
		}
	}
	if _, err := FormatOf("suite.json"); err == nil {
		t.Error("FormatOf(json) expected error")
	}
}
