package threadsafe

import (
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/incoplex/reflection"
)

type record struct {
	ID   int
	Name string
}

func TestEngineMarshalUnmarshalRoundTrip(t *testing.T) {
	reflection.Register[record]()
	e := New()
	data, err := e.Marshal(record{ID: 1, Name: "a"})
	require.NoError(t, err)
	got, err := e.Unmarshal(data, reflect.TypeOf(record{}))
	require.NoError(t, err)
	require.Equal(t, record{ID: 1, Name: "a"}, got)
}

func TestSerializeDeserializeGenericHelpers(t *testing.T) {
	reflection.Register[record]()
	e := New()
	data, err := Serialize(e, record{ID: 2, Name: "b"})
	require.NoError(t, err)
	got, err := Deserialize[record](e, data)
	require.NoError(t, err)
	require.Equal(t, record{ID: 2, Name: "b"}, got)
}

// TestEngineConcurrentUse exercises the sync.Pool borrowing under
// concurrent load, the scenario this wrapper exists for.
func TestEngineConcurrentUse(t *testing.T) {
	reflection.Register[record]()
	e := New()

	var wg sync.WaitGroup
	results := make(chan record, 50)
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			data, err := e.Marshal(record{ID: n, Name: "r"})
			if err != nil {
				errs <- err
				return
			}
			got, err := e.Unmarshal(data, reflect.TypeOf(record{}))
			if err != nil {
				errs <- err
				return
			}
			results <- got.(record)
		}(i)
	}
	wg.Wait()
	close(errs)
	close(results)

	for err := range errs {
		require.NoError(t, err)
	}
	seen := make(map[int]bool, 50)
	for r := range results {
		require.Equal(t, "r", r.Name)
		seen[r.ID] = true
	}
	require.Len(t, seen, 50)
}
