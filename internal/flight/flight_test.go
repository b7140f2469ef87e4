package flight_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/huzilerz/session-core/internal/errors"
	"github.com/huzilerz/session-core/internal/flight"
)

func TestDoShared(t *testing.T) {

	var (
		group   flight.Group[string]
		calls   atomic.Int32
		started = make(chan struct{})
		release = make(chan struct{})
	)

	fn := func(context.Context) (string, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return "token-1", nil
	}

	const callers = 8
	var (
		wg      sync.WaitGroup
		results [callers]string
		faults  [callers]error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], faults[0] = group.Do(context.Background(), "refresh", fn)
	}()
	<-started // the ticket is outstanding

	var entered sync.WaitGroup
	for i := 1; i < callers; i++ {
		wg.Add(1)
		entered.Add(1)
		go func(i int) {
			defer wg.Done()
			entered.Done()
			results[i], faults[i] = group.Do(context.Background(), "refresh", fn)
		}(i)
	}
	entered.Wait()
	time.Sleep(100 * time.Millisecond) // let every caller join the ticket
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("executions = %d, want 1", n)
	}
	for i := range results {
		if faults[i] != nil {
			t.Errorf("caller %d error = %v", i, faults[i])
		}
		if results[i] != "token-1" {
			t.Errorf("caller %d result = %q, want %q", i, results[i], "token-1")
		}
	}
}

func TestDoFailurePropagates(t *testing.T) {

	var (
		group   flight.Group[string]
		started = make(chan struct{})
		release = make(chan struct{})
	)
	fault := errors.Unauthorized(errors.Message("refresh rejected"))

	var (
		wg   sync.WaitGroup
		errs [2]error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[0] = group.Do(context.Background(), "refresh", func(context.Context) (string, error) {
			close(started)
			<-release
			return "", fault
		})
	}()
	<-started

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[1] = group.Do(context.Background(), "refresh", func(context.Context) (string, error) {
			t.Error("second execution must not run")
			return "", nil
		})
	}()
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, err := range errs {
		if err == nil {
			t.Errorf("caller %d error = nil, want %v", i, fault)
		}
	}
}

func TestDoSequentialRestarts(t *testing.T) {

	var (
		group flight.Group[int]
		calls int
	)
	for want := 1; want <= 3; want++ {
		got, err := group.Do(context.Background(), "op", func(context.Context) (int, error) {
			calls++
			return calls, nil
		})
		if err != nil {
			t.Fatalf("Do() error = %v", err)
		}
		if got != want {
			t.Errorf("Do() = %d, want %d", got, want)
		}
	}
}
