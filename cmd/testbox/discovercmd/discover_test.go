package discovercmd

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"testbox/internal/suite"
)

func TestContainerRows(t *testing.T) {
	tree := suite.NewTree("")
	groupSpec := suite.ContainerSpec{Name: "idle", Image: "img0"}
	g, _ := tree.AddGroup("G", &groupSpec)
	g.AddUnit("a", suite.ContainerSpec{Name: "c1", Image: "img1"})
	g.AddUnit("b", suite.ContainerSpec{Name: "c1", Image: "img1"})

	got := containerRows(tree, map[string]string{"c1": "img1", "idle": "img0"})
	want := [][]string{{"c1", "img1", "2"}, {"idle", "img0", "0"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("containerRows() mismatch (-want +got):\n%s", diff)
	}
}
