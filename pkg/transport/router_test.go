package transport

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/enhance/internal/errors"
	"github.com/vango-dev/enhance/pkg/state"
)

type recordingSyncer struct{ keys []string }

func (s *recordingSyncer) Publish(key string, _ any) { s.keys = append(s.keys, key) }

type recordingNotifier struct{ paths []string }

func (n *recordingNotifier) Notify(path string) { n.paths = append(n.paths, path) }

func decode(t *testing.T, frame string) Message {
	t.Helper()
	msg, err := Decode([]byte(frame))
	require.NoError(t, err)
	return msg
}

func TestEncodeDecode(t *testing.T) {
	frame, err := Encode(TypeHMRUpdate, HMRUpdate{Path: "pages/index.html", Timestamp: 42})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"hmr:update","data":{"path":"pages/index.html","timestamp":42}}`, string(frame))

	msg := decode(t, string(frame))
	var u HMRUpdate
	require.NoError(t, msg.Payload(&u))
	assert.Equal(t, HMRUpdate{Path: "pages/index.html", Timestamp: 42}, u)
}

func TestDecodeMalformed(t *testing.T) {
	for _, frame := range []string{`not json`, `{"data":{}}`, `[]`} {
		_, err := Decode([]byte(frame))
		assert.Equal(t, "E062", errors.Code(err), frame)
	}

	_, err := Encode(TypeStateUpdate, StateUpdate{Key: "k", Value: make(chan int)})
	assert.Equal(t, "E062", errors.Code(err))
}

func TestRouterStateUpdateDoesNotEcho(t *testing.T) {
	syncer := &recordingSyncer{}
	store := state.New(state.Config{Syncer: syncer})
	var changes []state.Change
	store.Subscribe("count", func(c state.Change) { changes = append(changes, c) })
	r := NewRouter(RouterConfig{Store: store})

	require.NoError(t, r.Handle(decode(t, `{"type":"state:update","data":{"key":"count","value":3}}`)))

	assert.Equal(t, 3.0, store.Get("count"))
	assert.Len(t, changes, 1)
	assert.Empty(t, syncer.keys)

	// Local writes still publish.
	store.Set("count", 4.0)
	assert.Equal(t, []string{"count"}, syncer.keys)
}

func TestRouterBatchUpdate(t *testing.T) {
	syncer := &recordingSyncer{}
	store := state.New(state.Config{Syncer: syncer})
	r := NewRouter(RouterConfig{Store: store})

	batch := BatchUpdate{Updates: []StateUpdate{{Key: "a", Value: "x"}, {Key: "", Value: 1}, {Key: "b", Value: []any{"y"}}}}
	data, err := json.Marshal(batch)
	require.NoError(t, err)

	require.NoError(t, r.Handle(Message{Type: TypeBatchUpdate, Data: data}))
	assert.Equal(t, "x", store.Get("a"))
	assert.Equal(t, []any{"y"}, store.Get("b"))
	assert.Equal(t, []string{"a", "b"}, store.Keys())
	assert.Empty(t, syncer.keys)
}

func TestRouterHMRUpdate(t *testing.T) {
	n := &recordingNotifier{}
	r := NewRouter(RouterConfig{HMR: n})

	require.NoError(t, r.Handle(decode(t, `{"type":"hmr:update","data":{"path":"a.html","timestamp":1}}`)))
	assert.Equal(t, []string{"a.html"}, n.paths)
}

func TestRouterErrors(t *testing.T) {
	r := NewRouter(RouterConfig{Store: state.New(state.Config{})})

	tests := []struct {
		name  string
		frame string
		code  string
	}{
		{"unknown type", `{"type":"presence:join","data":{}}`, "E061"},
		{"missing data", `{"type":"state:update"}`, "E062"},
		{"bad payload", `{"type":"hmr:update","data":"oops"}`, "E062"},
		{"missing key", `{"type":"state:update","data":{"value":1}}`, "E062"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Handle(decode(t, tt.frame))
			assert.Equal(t, tt.code, errors.Code(err))
		})
	}
}
