package module

import (
	"context"
	"reflect"
	"strings"
	"sync"
	"testing"

	perr "connectors/internal/platform/errors"
	phttp "connectors/internal/platform/net/http"
)

type RunnerPort interface{ Run() int }

type runner struct{ v int }

func (r runner) Run() int { return r.v }

type fakeModule struct {
	name    string
	ports   any
	migErr  error
	migrate *[]string
}

func (m fakeModule) Name() string             { return m.name }
func (m fakeModule) Ports() any               { return m.ports }
func (m fakeModule) MountRoutes(phttp.Router) {}

type migModule struct{ fakeModule }

func (m migModule) Migrate(context.Context) error {
	*m.migrate = append(*m.migrate, m.name)
	return m.migErr
}

func TestPortsOf(t *testing.T) {
	type Ports struct {
		Runner RunnerPort
		Count  int
		hidden RunnerPort
	}
	cases := []struct {
		name  string
		ports any
		want  int
		ok    bool
	}{
		{"nil", nil, 0, false},
		{"direct", RunnerPort(runner{42}), 42, true},
		{"bundle field", Ports{Runner: runner{7}}, 7, true},
		{"bundle pointer", &Ports{Runner: runner{8}}, 8, true},
		{"nil bundle pointer", (*Ports)(nil), 0, false},
		{"unexported only", Ports{hidden: runner{1}}, 0, false},
		{"not a struct", 123, 0, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := PortsOf[RunnerPort](fakeModule{name: c.name, ports: c.ports})
			if ok != c.ok {
				t.Fatalf("ok = %v, want %v", ok, c.ok)
			}
			if ok && got.Run() != c.want {
				t.Fatalf("Run() = %d, want %d", got.Run(), c.want)
			}
		})
	}
}

func TestMustPortsOf(t *testing.T) {
	if got := MustPortsOf[RunnerPort](fakeModule{name: "poller", ports: runner{9}}); got.Run() != 9 {
		t.Fatalf("MustPortsOf = %d", got.Run())
	}
	defer func() {
		msg, _ := recover().(string)
		if !strings.Contains(msg, "poller") || !strings.Contains(msg, "requested port not found") {
			t.Fatalf("panic message = %q", msg)
		}
	}()
	_ = MustPortsOf[RunnerPort](fakeModule{name: "poller"})
}

func TestMigrateAll(t *testing.T) {
	var order []string
	mods := []Module{
		migModule{fakeModule{name: "checkpoint", migrate: &order}},
		fakeModule{name: "status"},
		migModule{fakeModule{name: "archive", migrate: &order}},
	}
	if err := MigrateAll(context.Background(), mods...); err != nil {
		t.Fatalf("MigrateAll: %v", err)
	}
	if !reflect.DeepEqual(order, []string{"checkpoint", "archive"}) {
		t.Fatalf("order = %v", order)
	}

	order = nil
	boom := perr.Unavailablef("pg down")
	mods[0] = migModule{fakeModule{name: "checkpoint", migrate: &order, migErr: boom}}
	err := MigrateAll(context.Background(), mods...)
	e, ok := perr.As(err)
	if !ok || e.Op() != "checkpoint.migrate" || e.Code() != perr.ErrorCodeUnavailable {
		t.Fatalf("err = %v", err)
	}
	if len(order) != 1 {
		t.Fatalf("migration continued after failure: %v", order)
	}
}

func TestRegistry(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	Register(fakeModule{name: "poller", ports: runner{1}})
	Register(fakeModule{name: "checkpoint", ports: "store"})

	got, ok := PortsAs[runner]("poller")
	if !ok || got.v != 1 {
		t.Fatalf("PortsAs poller = %v %v", got, ok)
	}
	if _, ok := PortsAs[runner]("checkpoint"); ok {
		t.Fatalf("wrong type should not assert")
	}
	if _, ok := PortsAs[runner]("missing"); ok {
		t.Fatalf("missing name should not be found")
	}
	if !reflect.DeepEqual(Names(), []string{"checkpoint", "poller"}) {
		t.Fatalf("Names = %v", Names())
	}

	Register(fakeModule{name: "poller", ports: runner{2}})
	if got, _ := PortsAs[runner]("poller"); got.v != 2 {
		t.Fatalf("re-register did not replace: %v", got)
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Register(fakeModule{name: "status", ports: runner{i}})
			_, _ = PortsAs[runner]("status")
		}()
	}
	wg.Wait()
	if _, ok := PortsAs[runner]("status"); !ok {
		t.Fatalf("expected a value after concurrent writes")
	}
}
