package ws

import (
	"fmt"
	"sync"
	"testing"
)

func TestRegistry_AddFirst(t *testing.T) {
	r := NewRegistry()

	if !r.Add(1, "conn-a") {
		t.Error("Add() first connection should return true")
	}
	if r.Add(1, "conn-b") {
		t.Error("Add() second connection should return false")
	}
	if r.Add(1, "conn-c") {
		t.Error("Add() third connection should return false")
	}
	if !r.IsOnline(1) {
		t.Error("IsOnline() = false, want true")
	}
}

func TestRegistry_RemoveLast(t *testing.T) {
	r := NewRegistry()
	r.Add(1, "conn-a")
	r.Add(1, "conn-b")
	r.Add(1, "conn-c")

	if r.Remove(1, "conn-a") {
		t.Error("Remove() with two connections left should return false")
	}
	if r.Remove(1, "conn-b") {
		t.Error("Remove() with one connection left should return false")
	}
	if !r.Remove(1, "conn-c") {
		t.Error("Remove() emptying the set should return true")
	}
	if r.IsOnline(1) {
		t.Error("IsOnline() = true after last remove, want false")
	}
}

func TestRegistry_RemoveUnknown(t *testing.T) {
	r := NewRegistry()

	if r.Remove(1, "never-added") {
		t.Error("Remove() of unknown user should return false")
	}

	r.Add(1, "conn-a")
	if r.Remove(1, "other-conn") {
		t.Error("Remove() of unknown connection should return false")
	}
	if !r.IsOnline(1) {
		t.Error("IsOnline() should still be true")
	}
}

func TestRegistry_ReAddAfterEmpty(t *testing.T) {
	r := NewRegistry()
	r.Add(1, "conn-a")
	r.Remove(1, "conn-a")

	// Reconnects are fresh: first transition fires again.
	if !r.Add(1, "conn-b") {
		t.Error("Add() after going offline should return true again")
	}
}

func TestRegistry_Snapshot(t *testing.T) {
	r := NewRegistry()

	if got := r.Snapshot(); len(got) != 0 {
		t.Errorf("Snapshot() of empty registry = %v, want empty", got)
	}

	r.Add(3, "c3")
	r.Add(1, "c1a")
	r.Add(1, "c1b")
	r.Add(2, "c2")

	got := r.Snapshot()
	want := []uint{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("Snapshot() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Snapshot() = %v, want %v", got, want)
		}
	}

	if r.Count() != 3 {
		t.Errorf("Count() = %d, want 3", r.Count())
	}
}

func TestRegistry_ConcurrentAddRemove(t *testing.T) {
	r := NewRegistry()
	const conns = 50

	var wg sync.WaitGroup
	firsts := make(chan bool, conns)
	for i := 0; i < conns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			firsts <- r.Add(1, fmt.Sprintf("conn-%d", i))
		}(i)
	}
	wg.Wait()
	close(firsts)

	// Exactly one concurrent Add may observe the 0→1 transition.
	firstCount := 0
	for f := range firsts {
		if f {
			firstCount++
		}
	}
	if firstCount != 1 {
		t.Errorf("concurrent Add() produced %d first transitions, want 1", firstCount)
	}

	lasts := make(chan bool, conns)
	for i := 0; i < conns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			lasts <- r.Remove(1, fmt.Sprintf("conn-%d", i))
		}(i)
	}
	wg.Wait()
	close(lasts)

	lastCount := 0
	for l := range lasts {
		if l {
			lastCount++
		}
	}
	if lastCount != 1 {
		t.Errorf("concurrent Remove() produced %d last transitions, want 1", lastCount)
	}
	if r.IsOnline(1) {
		t.Error("IsOnline() = true after all removes, want false")
	}
}

func TestRegistry_InterleavedUsers(t *testing.T) {
	r := NewRegistry()
	const users = 10
	const connsPerUser = 5

	var wg sync.WaitGroup
	for u := uint(1); u <= users; u++ {
		for c := 0; c < connsPerUser; c++ {
			wg.Add(1)
			go func(u uint, c int) {
				defer wg.Done()
				id := fmt.Sprintf("u%d-c%d", u, c)
				r.Add(u, id)
				if c%2 == 0 {
					r.Remove(u, id)
				}
			}(u, c)
		}
	}
	wg.Wait()

	// Odd-numbered connections stay registered, so every user remains online.
	for u := uint(1); u <= users; u++ {
		if !r.IsOnline(u) {
			t.Errorf("IsOnline(%d) = false, want true", u)
		}
	}
	if got := r.Count(); got != users {
		t.Errorf("Count() = %d, want %d", got, users)
	}
}
