package state

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCreatesDefault(t *testing.T) {
	st := NewStore(time.Minute)
	s := st.Get("whatsapp:+573001234567")
	require.NotNil(t, s)
	assert.Equal(t, "whatsapp:+573001234567", s.UserID)
	assert.Equal(t, FlowNone, s.CurrentFlow)
	assert.Equal(t, StepNone, s.Step)
	assert.Equal(t, 1, st.Len())
}

func TestGetReturnsSameEntry(t *testing.T) {
	st := NewStore(time.Minute)
	a := st.Get("u1")
	a.CurrentFlow = FlowReservation
	a.Step = StepGuestNames
	b := st.Get("u1")
	assert.Equal(t, FlowReservation, b.CurrentFlow)
	assert.Equal(t, StepGuestNames, b.Step)
}

func TestTTLEviction(t *testing.T) {
	st := NewStore(5 * time.Minute)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return base }

	s := st.Get("u1")
	s.CurrentFlow = FlowReservation

	// Within the TTL the entry survives.
	st.now = func() time.Time { return base.Add(4 * time.Minute) }
	assert.Equal(t, FlowReservation, st.Get("u1").CurrentFlow)

	// Idle past the TTL the entry is evicted lazily on next access.
	st.now = func() time.Time { return base.Add(10 * time.Minute) }
	assert.Equal(t, FlowNone, st.Get("u1").CurrentFlow)
}

func TestSweepEvictsOnlyIdleEntries(t *testing.T) {
	st := NewStore(5 * time.Minute)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return base }
	st.Get("idle")

	st.now = func() time.Time { return base.Add(4 * time.Minute) }
	st.Get("fresh")

	st.now = func() time.Time { return base.Add(6 * time.Minute) }
	st.Sweep()
	assert.Equal(t, 1, st.Len())
}

func TestInvalidateIdempotent(t *testing.T) {
	st := NewStore(time.Minute)
	st.Get("u1").CurrentFlow = FlowReservation

	st.Invalidate("u1")
	assert.Equal(t, 0, st.Len())
	st.Invalidate("u1") // second eviction is a no-op
	assert.Equal(t, 0, st.Len())

	// A miss looks exactly like a fresh user.
	assert.Equal(t, FlowNone, st.Get("u1").CurrentFlow)
}

func TestInvalidateAll(t *testing.T) {
	st := NewStore(time.Minute)
	st.Get("u1")
	st.Get("u2")
	st.Get("u3")
	require.Equal(t, 3, st.Len())
	st.InvalidateAll()
	assert.Equal(t, 0, st.Len())
}

func TestPut(t *testing.T) {
	st := NewStore(time.Minute)
	s := New("u1")
	s.CurrentFlow = FlowMenu
	st.Put("u1", s)
	assert.Equal(t, FlowMenu, st.Get("u1").CurrentFlow)
}

func TestDoSerializesSameKey(t *testing.T) {
	st := NewStore(time.Minute)
	const n = 200
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			st.Do("u1", func(s *State) {
				s.Draft.CantidadHuespedes++
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, n, st.Get("u1").Draft.CantidadHuespedes)
}

func TestDoDistinctKeysInParallel(t *testing.T) {
	st := NewStore(time.Minute)
	release := make(chan struct{})
	entered := make(chan struct{})

	go st.Do("a", func(*State) {
		close(entered)
		<-release
	})
	<-entered

	// A second key must not be blocked by the first one's critical section.
	done := make(chan struct{})
	go st.Do("b", func(*State) { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("access to a different key blocked")
	}
	close(release)
}

func TestRoundTrip(t *testing.T) {
	entrada := time.Date(2026, 12, 22, 0, 0, 0, 0, time.UTC)
	salida := time.Date(2026, 12, 24, 0, 0, 0, 0, time.UTC)
	states := []*State{
		New("fresh"),
		{
			UserID:      "mid-flow",
			CurrentFlow: FlowReservation,
			Step:        StepContactEmail,
			Draft: Draft{
				NombresHuespedes:  []string{"Juan Pérez", "María González"},
				CantidadHuespedes: 2,
				Domo:              "Antares",
				FechaEntrada:      &entrada,
				FechaSalida:       &salida,
				NumeroContacto:    "+573001234567",
			},
			LastActivity: time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC),
		},
		{
			UserID:                 "waiting",
			CurrentFlow:            FlowReservation,
			Step:                   StepExitDate,
			WaitingForAvailability: true,
			LastActivity:           time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC),
		},
	}
	for _, want := range states {
		data, err := want.Encode()
		require.NoError(t, err)
		got, err := Decode(data)
		require.NoError(t, err)
		assert.Equal(t, want, got, "state %s", want.UserID)
	}
}
