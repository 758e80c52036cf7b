// internal/interceptor/interceptor_test.go
package interceptor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptEmbedsQuotedValues(t *testing.T) {
	script, err := Script(`batch"execute`, "forward")
	require.NoError(t, err)

	assert.Contains(t, script, `var endpoint = "batch\"execute";`)
	assert.Contains(t, script, `var binding = "forward";`)
	assert.NotContains(t, script, "__ENDPOINT__")
	assert.NotContains(t, script, "__BINDING__")
	assert.Contains(t, script, "response.clone()")
}

func TestScriptDefaults(t *testing.T) {
	script, err := Script("", "")
	require.NoError(t, err)

	assert.Contains(t, script, `"`+DefaultEndpointPattern+`"`)
	assert.Contains(t, script, `"`+DefaultBinding+`"`)
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches("https://gemini.google.com/_/BardChatUi/data/batchexecute?rpcids=x", ""))
	assert.False(t, Matches("https://gemini.google.com/app", ""))
	assert.True(t, Matches("/api/history", "history"))
}

func TestHandleBindingDeliversExactlyOnce(t *testing.T) {
	port := NewPort()
	f := NewForwarder("bind", port, nil)

	ok := f.HandleBinding("bind", `{"kind":"payload","payload":"body","source":"xhr","url":"/batchexecute"}`)

	require.True(t, ok)
	require.Equal(t, 1, port.Len())
	msg, err := port.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Message{Kind: KindPayload, Payload: "body", Source: "xhr", URL: "/batchexecute"}, msg)
	assert.Equal(t, 0, port.Len())
}

func TestHandleBindingDropsBadInput(t *testing.T) {
	port := NewPort()
	f := NewForwarder("bind", port, nil)

	assert.False(t, f.HandleBinding("other", `{"kind":"payload"}`))
	assert.False(t, f.HandleBinding("bind", `not json`))
	assert.False(t, f.HandleBinding("bind", `{"kind":"surprise","payload":"x"}`))
	assert.Equal(t, 0, port.Len())
}

func TestHandleBindingAfterClose(t *testing.T) {
	port := NewPort()
	f := NewForwarder("", port, nil)
	port.Close()

	assert.False(t, f.HandleBinding(DefaultBinding, `{"kind":"ready"}`))
}

func TestPortPreservesOrder(t *testing.T) {
	port := NewPort()
	for _, p := range []string{"a", "b", "c"} {
		require.True(t, port.Send(Message{Kind: KindPayload, Payload: p}))
	}

	var got []string
	for i := 0; i < 3; i++ {
		msg, err := port.Receive(context.Background())
		require.NoError(t, err)
		got = append(got, msg.Payload)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestPortReceiveWaits(t *testing.T) {
	port := NewPort()
	done := make(chan Message, 1)
	go func() {
		msg, err := port.Receive(context.Background())
		if err == nil {
			done <- msg
		}
	}()

	time.Sleep(20 * time.Millisecond)
	port.Send(Message{Kind: KindPayload, Payload: "late"})

	select {
	case msg := <-done:
		assert.Equal(t, "late", msg.Payload)
	case <-time.After(time.Second):
		t.Fatal("receiver was not woken")
	}
}

func TestPortCloseDrainsThenFails(t *testing.T) {
	port := NewPort()
	port.Send(Message{Payload: "queued"})
	port.Close()
	port.Close()

	msg, err := port.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "queued", msg.Payload)

	_, err = port.Receive(context.Background())
	assert.ErrorIs(t, err, ErrPortClosed)
	assert.False(t, port.Send(Message{}))
}

func TestPortReceiveContextCancel(t *testing.T) {
	port := NewPort()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := port.Receive(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPortConcurrentSend(t *testing.T) {
	port := NewPort()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				port.Send(Message{Kind: KindPayload})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000, port.Len())
}
