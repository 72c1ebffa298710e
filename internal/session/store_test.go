package session

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/salesline-ai/salesline/internal/profile"
	"github.com/salesline-ai/salesline/internal/provider"
)

// both store implementations must satisfy the same contract.
func eachStore(t *testing.T, fn func(t *testing.T, st Store)) {
	t.Helper()

	t.Run("memory", func(t *testing.T) {
		st := NewMemoryStore()
		defer st.Shutdown()
		fn(t, st)
	})

	t.Run("sqlite", func(t *testing.T) {
		st, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
		if err != nil {
			t.Fatalf("NewSQLiteStore: %v", err)
		}
		defer st.Shutdown()
		fn(t, st)
	})
}

func staticLookup() (profile.Profile, error) {
	return profile.DefaultProfile(), nil
}

func TestGetOrCreate_LookupOncePerSession(t *testing.T) {
	eachStore(t, func(t *testing.T, st Store) {
		calls := 0
		lookup := func() (profile.Profile, error) {
			calls++
			return profile.Profile{Name: "Dana"}, nil
		}

		s, created, err := st.GetOrCreate("C1", lookup)
		if err != nil {
			t.Fatalf("GetOrCreate: %v", err)
		}
		if !created {
			t.Error("expected created=true on first call")
		}
		if s.State != StateActive {
			t.Errorf("new session state = %q, want active", s.State)
		}
		if s.Profile.Name != "Dana" {
			t.Errorf("profile not attached: %+v", s.Profile)
		}

		s2, created, err := st.GetOrCreate("C1", lookup)
		if err != nil {
			t.Fatalf("second GetOrCreate: %v", err)
		}
		if created {
			t.Error("expected created=false on second call")
		}
		if s2.Profile.Name != "Dana" {
			t.Errorf("profile changed on re-get: %+v", s2.Profile)
		}
		if calls != 1 {
			t.Errorf("lookup invoked %d times, want exactly 1", calls)
		}
	})
}

func TestGetOrCreate_LookupErrorCreatesNothing(t *testing.T) {
	eachStore(t, func(t *testing.T, st Store) {
		boom := errors.New("crm unavailable")
		_, _, err := st.GetOrCreate("C1", func() (profile.Profile, error) {
			return profile.Profile{}, boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected lookup error, got %v", err)
		}
		if _, err := st.Get("C1"); !errors.Is(err, ErrUnknownSession) {
			t.Errorf("session must not exist after failed lookup, got %v", err)
		}
	})
}

func TestAppend_UnknownSession(t *testing.T) {
	eachStore(t, func(t *testing.T, st Store) {
		err := st.Append("never-created", Turn{Role: provider.RoleUser, Text: "hi"})
		if !errors.Is(err, ErrUnknownSession) {
			t.Errorf("Append on unknown id: got %v, want ErrUnknownSession", err)
		}
	})
}

func TestReplaceTurns_RoundTrip(t *testing.T) {
	eachStore(t, func(t *testing.T, st Store) {
		if _, _, err := st.GetOrCreate("C1", staticLookup); err != nil {
			t.Fatal(err)
		}

		turns := []Turn{
			{Role: provider.RoleSystem, Text: "persona"},
			{Role: provider.RoleAssistant, Text: "hello"},
			{Role: provider.RoleUser, Text: "tell me more"},
		}
		if err := st.ReplaceTurns("C1", turns); err != nil {
			t.Fatalf("ReplaceTurns: %v", err)
		}

		s, err := st.Get("C1")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if len(s.Turns) != 3 {
			t.Fatalf("got %d turns, want 3", len(s.Turns))
		}
		for i, want := range turns {
			if s.Turns[i] != want {
				t.Errorf("turn %d = %+v, want %+v", i, s.Turns[i], want)
			}
		}
	})
}

func TestReplaceTurns_NoInterleavingUnderConcurrency(t *testing.T) {
	eachStore(t, func(t *testing.T, st Store) {
		if _, _, err := st.GetOrCreate("C1", staticLookup); err != nil {
			t.Fatal(err)
		}

		// Writers replace the full sequence with internally consistent
		// batches; readers must only ever observe one complete batch.
		const writers = 4
		const rounds = 25

		var wg sync.WaitGroup
		for w := 0; w < writers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for r := 0; r < rounds; r++ {
					tag := fmt.Sprintf("w%d-r%d", w, r)
					batch := []Turn{
						{Role: provider.RoleUser, Text: tag},
						{Role: provider.RoleAssistant, Text: tag},
					}
					if err := st.ReplaceTurns("C1", batch); err != nil {
						t.Errorf("ReplaceTurns: %v", err)
						return
					}
				}
			}(w)
		}

		done := make(chan struct{})
		go func() {
			defer close(done)
			wg.Wait()
		}()

		for {
			select {
			case <-done:
				return
			default:
			}
			s, err := st.Get("C1")
			if err != nil {
				t.Fatalf("Get during writes: %v", err)
			}
			if len(s.Turns) == 2 && s.Turns[0].Text != s.Turns[1].Text {
				t.Fatalf("interleaved write observed: %+v", s.Turns)
			}
		}
	})
}

func TestClose_Idempotent(t *testing.T) {
	eachStore(t, func(t *testing.T, st Store) {
		if _, _, err := st.GetOrCreate("C1", staticLookup); err != nil {
			t.Fatal(err)
		}

		for i := 0; i < 3; i++ {
			if err := st.Close("C1"); err != nil {
				t.Fatalf("Close #%d: %v", i+1, err)
			}
		}
		s, err := st.Get("C1")
		if err != nil {
			t.Fatal(err)
		}
		if !s.Closed() {
			t.Errorf("state = %q, want closed", s.State)
		}

		// Unknown ids are a tolerated no-op.
		if err := st.Close("never-created"); err != nil {
			t.Errorf("Close on unknown id: %v", err)
		}
	})
}

func TestResetAll(t *testing.T) {
	eachStore(t, func(t *testing.T, st Store) {
		for _, id := range []string{"C1", "C2", "C3"} {
			if _, _, err := st.GetOrCreate(id, staticLookup); err != nil {
				t.Fatal(err)
			}
		}
		if err := st.ResetAll(); err != nil {
			t.Fatalf("ResetAll: %v", err)
		}
		for _, id := range []string{"C1", "C2", "C3"} {
			if _, err := st.Get(id); !errors.Is(err, ErrUnknownSession) {
				t.Errorf("session %s survived reset: %v", id, err)
			}
		}
	})
}

func TestPurgeClosed(t *testing.T) {
	eachStore(t, func(t *testing.T, st Store) {
		if _, _, err := st.GetOrCreate("open", staticLookup); err != nil {
			t.Fatal(err)
		}
		if _, _, err := st.GetOrCreate("closed", staticLookup); err != nil {
			t.Fatal(err)
		}
		if err := st.Close("closed"); err != nil {
			t.Fatal(err)
		}

		// keep=0 purges anything closed before now.
		time.Sleep(10 * time.Millisecond)
		n, err := st.PurgeClosed(0)
		if err != nil {
			t.Fatalf("PurgeClosed: %v", err)
		}
		if n != 1 {
			t.Errorf("purged %d sessions, want 1", n)
		}
		if _, err := st.Get("open"); err != nil {
			t.Errorf("active session purged: %v", err)
		}
		if _, err := st.Get("closed"); !errors.Is(err, ErrUnknownSession) {
			t.Errorf("closed session not purged: %v", err)
		}
	})
}

func TestLock_SerializesSameCall(t *testing.T) {
	eachStore(t, func(t *testing.T, st Store) {
		unlock := st.Lock("C1")

		acquired := make(chan struct{})
		go func() {
			u := st.Lock("C1")
			close(acquired)
			u()
		}()

		select {
		case <-acquired:
			t.Fatal("second Lock acquired while first still held")
		case <-time.After(50 * time.Millisecond):
		}

		// A different call id must not block.
		u2 := st.Lock("C2")
		u2()

		unlock()
		select {
		case <-acquired:
		case <-time.After(time.Second):
			t.Fatal("second Lock never acquired after release")
		}
	})
}
