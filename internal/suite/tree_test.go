package suite

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTreeIdentifiers(t *testing.T) {
	tree := NewTree("")
	g, created := tree.AddGroup("vec.myproject.EmployeeOnDockerTest", nil)
	if !created {
		t.Fatal("AddGroup() created = false, want true")
	}
	u, _ := g.AddUnit("computeSalary", ContainerSpec{Name: "junit-cl", Image: "junit-console-launcher"})

	if got, want := tree.ID(), "[engine:testbox]"; got != want {
		t.Fatalf("tree.ID() = %q, want %q", got, want)
	}
	if got, want := g.ID(), "[engine:testbox]/[class:vec.myproject.EmployeeOnDockerTest]"; got != want {
		t.Fatalf("group.ID() = %q, want %q", got, want)
	}
	if got, want := u.ID(), g.ID()+"/[method:computeSalary]"; got != want {
		t.Fatalf("unit.ID() = %q, want %q", got, want)
	}
	if got, want := u.FullyQualifiedName(), "vec.myproject.EmployeeOnDockerTest#computeSalary"; got != want {
		t.Fatalf("FullyQualifiedName() = %q, want %q", got, want)
	}
}

func TestAddGroupAndUnitAreIdempotent(t *testing.T) {
	tree := NewTree("engine")
	spec := ContainerSpec{Name: "c1", Image: "img"}

	g1, _ := tree.AddGroup("a.B", &spec)
	g2, created := tree.AddGroup("a.B", nil)
	if created || g1 != g2 {
		t.Fatalf("AddGroup() second call created=%v same=%v, want existing group", created, g1 == g2)
	}

	if _, ok := g1.AddUnit("m", spec); !ok {
		t.Fatal("AddUnit() first call = false, want true")
	}
	if _, ok := g1.AddUnit("m", ContainerSpec{Name: "other", Image: "x"}); ok {
		t.Fatal("AddUnit() duplicate = true, want false")
	}
	if tree.Len() != 1 {
		t.Fatalf("tree.Len() = %d, want 1", tree.Len())
	}
	if got := g1.Units()[0].Spec(); !got.Equal(spec) {
		t.Fatalf("unit spec = %v, want first spec %v", got, spec)
	}
}

func TestGroupSpecIsCopied(t *testing.T) {
	tree := NewTree("engine")
	spec := ContainerSpec{Name: "c1", Image: "img"}
	g, _ := tree.AddGroup("a.B", &spec)
	spec.Image = "mutated"

	got, ok := g.ContainerSpec()
	if !ok || got.Image != "img" {
		t.Fatalf("group spec = %v, %v, want c1 (img)", got, ok)
	}
}

func TestWalkOrder(t *testing.T) {
	tree := NewTree("engine")
	a, _ := tree.AddGroup("A", nil)
	a.AddUnit("a1", ContainerSpec{Name: "c", Image: "i"})
	a.AddUnit("a2", ContainerSpec{Name: "c", Image: "i"})
	b, _ := tree.AddGroup("B", nil)
	b.AddUnit("b1", ContainerSpec{Name: "c", Image: "i"})

	var got []string
	err := Walk(tree, func(n Node) error {
		got = append(got, n.Kind().String()+":"+n.DisplayName())
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	want := []string{"root:engine", "group:A", "unit:a1", "unit:a2", "group:B", "unit:b1"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Walk() order mismatch (-want +got):\n%s", diff)
	}
}

func TestWalkStopsOnError(t *testing.T) {
	tree := NewTree("engine")
	g, _ := tree.AddGroup("A", nil)
	g.AddUnit("a1", ContainerSpec{Name: "c", Image: "i"})
	g.AddUnit("a2", ContainerSpec{Name: "c", Image: "i"})

	stop := errors.New("stop")
	visited := 0
	err := Walk(tree, func(n Node) error {
		visited++
		if n.Kind() == KindUnit {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Fatalf("Walk() error = %v, want stop", err)
	}
	if visited != 3 {
		t.Fatalf("visited = %d, want 3", visited)
	}
}

func TestRemoveEmptyGroups(t *testing.T) {
	tree := NewTree("engine")
	tree.AddGroup("empty", nil)
	g, _ := tree.AddGroup("full", nil)
	g.AddUnit("m", ContainerSpec{Name: "c", Image: "i"})

	tree.RemoveEmptyGroups()

	if len(tree.Groups()) != 1 || tree.Groups()[0].Identifier() != "full" {
		t.Fatalf("groups = %v, want [full]", tree.Groups())
	}
	if _, ok := tree.Group("empty"); ok {
		t.Fatal("Group(empty) found after removal")
	}
}

func TestContainerSpecValidate(t *testing.T) {
	tests := []struct {
		name    string
		spec    ContainerSpec
		wantErr bool
	}{
		{name: "valid", spec: ContainerSpec{Name: "junit-cl", Image: "junit-console-launcher"}},
		{name: "missing name", spec: ContainerSpec{Image: "img"}, wantErr: true},
		{name: "missing image", spec: ContainerSpec{Name: "c1"}, wantErr: true},
		{name: "bad name", spec: ContainerSpec{Name: "has space", Image: "img"}, wantErr: true},
		{name: "leading dash", spec: ContainerSpec{Name: "-c", Image: "img"}, wantErr: true},
		{name: "padded name", spec: ContainerSpec{Name: " c1", Image: "img"}, wantErr: true},
		{name: "trailing newline", spec: ContainerSpec{Name: "c1\n", Image: "img"}, wantErr: true},
		{name: "padded image", spec: ContainerSpec{Name: "c1", Image: "img "}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestContainerSpecEqual(t *testing.T) {
	a := ContainerSpec{Name: "c1", Image: "imgA"}
	if !a.Equal(ContainerSpec{Name: "c1", Image: "imgA"}) {
		t.Fatal("Equal() = false for identical specs")
	}
	if a.Equal(ContainerSpec{Name: "c1", Image: "imgB"}) {
		t.Fatal("Equal() = true for differing images")
	}
}
