package state

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SetOutputNotifiesBeforeReturn(t *testing.T) {
	s := New()
	var events []Event
	s.Subscribe(func(e Event) { events = append(events, e) })

	s.SetOutput("hello")

	require.Len(t, events, 1)
	assert.Equal(t, Event{Field: FieldOutput, Value: "hello"}, events[0])
	assert.Equal(t, "hello", s.Output())
}

func TestStore_AppendOutput(t *testing.T) {
	s := New()
	var last Event
	s.Subscribe(func(e Event) { last = e })

	s.SetOutput("No duniter on the system")
	s.AppendOutput("\nNo duniter services on the system")

	assert.Equal(t, "No duniter on the system\nNo duniter services on the system", s.Output())
	assert.Equal(t, s.Output(), last.Value)
}

func TestStore_SetConfig(t *testing.T) {
	s := New()
	var fields []Field
	s.Subscribe(func(e Event) { fields = append(fields, e.Field) })

	s.SetConfig("DUNITER_NODE_NAME=alice")

	assert.Equal(t, "DUNITER_NODE_NAME=alice", s.Config())
	assert.Empty(t, s.Output())
	assert.Equal(t, []Field{FieldConfig}, fields)
}

func TestStore_SubscribersInOrder(t *testing.T) {
	s := New()
	var order []int
	s.Subscribe(func(Event) { order = append(order, 1) })
	s.Subscribe(func(Event) { order = append(order, 2) })

	s.SetOutput("x")

	assert.Equal(t, []int{1, 2}, order)
}

func TestStore_Unsubscribe(t *testing.T) {
	s := New()
	calls := 0
	cancel := s.Subscribe(func(Event) { calls++ })
	other := 0
	s.Subscribe(func(Event) { other++ })

	s.SetOutput("a")
	cancel()
	cancel()
	s.SetOutput("b")

	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, other)
}

func TestStore_ConcurrentWrites(t *testing.T) {
	s := New()
	var mu sync.Mutex
	count := 0
	s.Subscribe(func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AppendOutput("x")
		}()
	}
	wg.Wait()

	assert.Len(t, s.Output(), 50)
	assert.Equal(t, 50, count)
}

func TestField_String(t *testing.T) {
	assert.Equal(t, "output", FieldOutput.String())
	assert.Equal(t, "config", FieldConfig.String())
}
