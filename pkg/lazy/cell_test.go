package lazy

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestGetOrCreate_Once(t *testing.T) {
	t.Parallel()

	var cell Cell[int]
	var calls atomic.Int32

	create := func() (int, error) {
		calls.Add(1)
		return 42, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := cell.GetOrCreate(create)
			if err != nil || v != 42 {
				t.Errorf("GetOrCreate = %d, %v", v, err)
			}
		}()
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("create ran %d times, want 1", calls.Load())
	}
}

func TestGetOrCreate_RetryAfterFailure(t *testing.T) {
	t.Parallel()

	var cell Cell[string]
	boom := errors.New("boom")
	attempts := 0

	create := func() (string, error) {
		attempts++
		if attempts == 1 {
			return "", boom
		}
		return "ok", nil
	}

	if _, err := cell.GetOrCreate(create); !errors.Is(err, boom) {
		t.Fatalf("first call err = %v, want boom", err)
	}
	v, err := cell.GetOrCreate(create)
	if err != nil || v != "ok" {
		t.Fatalf("second call = %q, %v", v, err)
	}
}

func TestReset(t *testing.T) {
	t.Parallel()

	var cell Cell[int]
	if _, set := cell.Reset(); set {
		t.Error("reset of an empty cell reported a value")
	}

	_, _ = cell.GetOrCreate(func() (int, error) { return 1, nil })
	old, set := cell.Reset()
	if !set || old != 1 {
		t.Fatalf("Reset = %d, %v", old, set)
	}

	v, _ := cell.GetOrCreate(func() (int, error) { return 2, nil })
	if v != 2 {
		t.Errorf("after reset GetOrCreate = %d, want 2", v)
	}
}
