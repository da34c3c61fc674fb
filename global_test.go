package coop

import (
	"errors"
	"testing"
	"time"
)

func TestGlobalRuntime_Lifecycle(t *testing.T) {
	InitGlobalRuntime(nil)
	first := GlobalRuntime()
	InitGlobalRuntime(nil)

	if GlobalRuntime() != first {
		t.Fatal("second InitGlobalRuntime replaced the runtime")
	}
	if first.Name() != "global" {
		t.Errorf("Name() = %q, want global", first.Name())
	}

	ShutdownGlobalRuntime()
	ShutdownGlobalRuntime()

	if !first.IsClosed() {
		t.Error("runtime not closed after ShutdownGlobalRuntime")
	}
	defer func() {
		if recover() == nil {
			t.Error("GlobalRuntime() after shutdown did not panic")
		}
	}()
	GlobalRuntime()
}

func TestGlobalRuntime_PackageHelpers(t *testing.T) {
	InitGlobalRuntime(nil)
	defer ShutdownGlobalRuntime()

	var order []string
	if err := Spawn(Do(func() { order = append(order, "spawned") })); err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}
	Tick()

	err := BlockOn(Do(func() {
		SpawnAfter(Do(func() { order = append(order, "deferred") }), 5*time.Millisecond)
		order = append(order, "blocked")
	}))
	if err != nil {
		t.Fatalf("BlockOn() error = %v", err)
	}

	want := []string{"spawned", "blocked", "deferred"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestGlobalRuntime_SpawnAfterShutdown(t *testing.T) {
	InitGlobalRuntime(nil)
	rt := GlobalRuntime()
	ShutdownGlobalRuntime()

	if err := rt.Spawn(Do(func() {})); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("Spawn() error = %v, want %v", err, ErrChannelClosed)
	}
}
