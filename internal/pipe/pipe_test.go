package pipe

import (
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	value int
}

func sourceOf(values ...int) Source[record] {
	return func() ([]*record, error) {
		records := make([]*record, 0, len(values))
		for _, v := range values {
			records = append(records, &record{value: v})
		}
		return records, nil
	}
}

func collectSink(mu *sync.Mutex, out *[]int) Sink[record] {
	return func(r *record) error {
		mu.Lock()
		defer mu.Unlock()
		*out = append(*out, r.value)
		return nil
	}
}

func TestPipeMapFilterSink(t *testing.T) {
	p := New(sourceOf(1, 2, 3, 4, 5))
	p.Map(func(r *record) (*record, error) {
		r.value *= 2
		return r, nil
	})
	p.Filter(func(r *record) bool {
		return r.value > 4
	})

	mu := &sync.Mutex{}
	results := []int{}
	err := p.Sink(collectSink(mu, &results))

	require.NoError(t, err)
	slices.Sort(results)
	assert.Equal(t, []int{6, 8, 10}, results)
}

func TestPipeFanOutExpandsRecords(t *testing.T) {
	p := New(sourceOf(1, 2))
	p.FanOut(func(r *record) ([]*record, error) {
		return []*record{
			{value: r.value * 10},
			{value: r.value*10 + 1},
		}, nil
	})

	mu := &sync.Mutex{}
	results := []int{}
	err := p.Sink(collectSink(mu, &results))

	require.NoError(t, err)
	slices.Sort(results)
	assert.Equal(t, []int{10, 11, 20, 21}, results)
}

func TestPipeChannelStageStreamsRecords(t *testing.T) {
	p := New(sourceOf(3))
	p.Channel(func(r *record, stopCh <-chan struct{}, outCh chan<- *record) error {
		for i := 0; i < r.value; i++ {
			SendRecords([]*record{{value: i}}, outCh, stopCh)
		}
		return nil
	})

	mu := &sync.Mutex{}
	results := []int{}
	err := p.Sink(collectSink(mu, &results))

	require.NoError(t, err)
	slices.Sort(results)
	assert.Equal(t, []int{0, 1, 2}, results)
}

func TestPipeSourceErrorPropagates(t *testing.T) {
	boom := errors.New("source failed")
	p := New(func() ([]*record, error) {
		return nil, boom
	})

	err := p.Sink(func(r *record) error { return nil })

	assert.ErrorIs(t, err, boom)
}

func TestPipeStageErrorStopsPipeline(t *testing.T) {
	boom := errors.New("stage failed")
	p := New(sourceOf(1, 2, 3))
	p.Map(func(r *record) (*record, error) {
		if r.value == 2 {
			return nil, boom
		}
		return r, nil
	})

	err := p.Sink(func(r *record) error { return nil })

	assert.ErrorIs(t, err, boom)
}

func TestPipeSinkTimeoutStopsStalledPipeline(t *testing.T) {
	p := New(sourceOf(1))
	p.Channel(func(r *record, stopCh <-chan struct{}, outCh chan<- *record) error {
		<-stopCh
		return nil
	})

	start := time.Now()
	err := p.SinkWithTimeout(func(r *record) error { return nil }, 50*time.Millisecond)

	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestPipeStopIsIdempotent(t *testing.T) {
	p := New(sourceOf(1))
	p.Stop()
	p.Stop()
}
