package notify

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"katydid-async-validation/pkg/validation/core"
)

// recorder 记录收到的事件
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnEvent(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func TestDispatcher_DeliversInOrder(t *testing.T) {
	d := NewDispatcher()
	rec := &recorder{}
	d.Subscribe(rec)

	d.ValidatingChanged(true)
	d.PropertyChanged(core.PropertyHasErrors)
	d.ErrorsChanged("Age")
	d.PropertyChanged("Age")
	d.ValidatingChanged(false)

	assert.Equal(t, []Event{
		{Kind: EventValidatingChanged, Name: core.PropertyIsValidating, Validating: true},
		{Kind: EventPropertyChanged, Name: core.PropertyHasErrors},
		{Kind: EventErrorsChanged, Name: "Age"},
		{Kind: EventPropertyChanged, Name: "Age"},
		{Kind: EventValidatingChanged, Name: core.PropertyIsValidating},
	}, rec.Events())
}

func TestDispatcher_MultipleSubscribersAndUnsubscribe(t *testing.T) {
	d := NewDispatcher()
	first := &recorder{}
	second := &recorder{}

	unsubscribeFirst := d.Subscribe(first)
	d.Subscribe(second)
	assert.Equal(t, 2, d.Len())

	d.PropertyChanged("Name")
	unsubscribeFirst()
	unsubscribeFirst()
	d.PropertyChanged("Age")

	assert.Len(t, first.Events(), 1)
	assert.Len(t, second.Events(), 2)
	assert.Equal(t, 1, d.Len())
}

func TestDispatcher_NilListener(t *testing.T) {
	d := NewDispatcher()
	unsubscribe := d.Subscribe(nil)
	unsubscribe()
	assert.Equal(t, 0, d.Len())
}

// TestDispatcher_SubscribeFromCallback 回调中订阅不会死锁
func TestDispatcher_SubscribeFromCallback(t *testing.T) {
	d := NewDispatcher()
	late := &recorder{}

	var once sync.Once
	d.Subscribe(ListenerFunc(func(event Event) {
		once.Do(func() {
			d.Subscribe(late)
		})
	}))

	done := make(chan struct{})
	go func() {
		d.PropertyChanged("Name")
		d.PropertyChanged("Age")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatch deadlocked")
	}

	// 在第一次分发中注册的监听器只会收到后续事件
	assert.Equal(t, []Event{{Kind: EventPropertyChanged, Name: "Age"}}, late.Events())
}

func TestDispatcher_ListenerPanicIsContained(t *testing.T) {
	obsCore, logs := observer.New(zap.ErrorLevel)
	d := NewDispatcher(WithLogger(zap.New(obsCore)))
	rec := &recorder{}

	d.Subscribe(ListenerFunc(func(Event) { panic("boom") }))
	d.Subscribe(rec)

	require.NotPanics(t, func() { d.PropertyChanged("Name") })
	assert.Len(t, rec.Events(), 1)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "listener panic", logs.All()[0].Message)
}

func TestDispatcher_SubscribeHelpers(t *testing.T) {
	d := NewDispatcher()

	var nameCalls, anyCalls, hasErrorsCalls int
	var errorKeys []core.FieldKey
	var validating []bool

	d.SubscribeProperty("Name", func() { nameCalls++ })
	d.SubscribeProperties(func() { anyCalls++ }, "Name", "Age")
	d.SubscribeErrorsChanged(func(key core.FieldKey) { errorKeys = append(errorKeys, key) })
	d.SubscribeHasErrorsChanged(func() { hasErrorsCalls++ })
	d.SubscribeIsValidatingChanged(func(v bool) { validating = append(validating, v) })

	d.ValidatingChanged(true)
	d.PropertyChanged(core.PropertyHasErrors)
	d.ErrorsChanged("Name")
	d.PropertyChanged("Name")
	d.ErrorsChanged("Age")
	d.PropertyChanged("Age")
	d.PropertyChanged("Email")
	d.ValidatingChanged(false)

	assert.Equal(t, 1, nameCalls, "errors-changed for Name must not count as property change")
	assert.Equal(t, 2, anyCalls)
	assert.Equal(t, 1, hasErrorsCalls)
	assert.Equal(t, []core.FieldKey{"Name", "Age"}, errorKeys)
	assert.Equal(t, []bool{true, false}, validating)
}

func TestDispatcher_SubscribePropertyMatchesIsValidating(t *testing.T) {
	d := NewDispatcher()
	calls := 0
	d.SubscribeProperty(core.PropertyIsValidating, func() { calls++ })

	d.ValidatingChanged(true)
	d.ValidatingChanged(false)

	assert.Equal(t, 2, calls)
}

func TestDispatcher_SubscribeHelpersIgnoreInvalidInput(t *testing.T) {
	d := NewDispatcher()

	d.SubscribeProperty("Name", nil)
	d.SubscribeProperties(func() {})
	d.SubscribeProperties(nil, "Name")
	d.SubscribeErrorsChanged(nil)
	d.SubscribeIsValidatingChanged(nil)

	assert.Equal(t, 0, d.Len())
}

func TestDispatcher_Stream(t *testing.T) {
	d := NewDispatcher()
	ctx, cancel := context.WithCancel(context.Background())

	ch := d.Stream(ctx, 8)
	d.ErrorsChanged("Age")
	d.PropertyChanged("Age")

	assert.Equal(t, Event{Kind: EventErrorsChanged, Name: "Age"}, <-ch)
	assert.Equal(t, Event{Kind: EventPropertyChanged, Name: "Age"}, <-ch)

	cancel()
	require.Eventually(t, func() bool { return d.Len() == 0 }, time.Second, 10*time.Millisecond)

	_, ok := <-ch
	assert.False(t, ok, "stream must be closed after context cancel")

	require.NotPanics(t, func() { d.PropertyChanged("Name") })
}

func TestDispatcher_StreamDropsWhenFull(t *testing.T) {
	d := NewDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := d.Stream(ctx, 1)
	d.PropertyChanged("first")
	d.PropertyChanged("second")

	assert.Equal(t, "first", (<-ch).Name)
	select {
	case event := <-ch:
		t.Fatalf("unexpected event %v", event)
	default:
	}
}

func TestEventKind_String(t *testing.T) {
	assert.Equal(t, "property_changed", EventPropertyChanged.String())
	assert.Equal(t, "errors_changed", EventErrorsChanged.String())
	assert.Equal(t, "validating_changed", EventValidatingChanged.String())
	assert.Equal(t, "unknown", EventKind(99).String())
}

func TestEvent_JSON(t *testing.T) {
	data, err := json.Marshal(Event{Kind: EventErrorsChanged, Name: "Email"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"errors_changed","name":"Email"}`, string(data))
}
