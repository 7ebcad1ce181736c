package chat_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/muurk/devicechat/internal/chat"
	"github.com/muurk/devicechat/internal/chat/chattest"
	"github.com/muurk/devicechat/internal/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func catalog(ids ...string) []device.Device {
	var out []device.Device
	for _, id := range ids {
		d, _ := device.Lookup(id)
		out = append(out, d)
	}
	return out
}

func TestProxy_SendBeforeStart(t *testing.T) {
	proxy := chat.NewProxy(&chattest.Client{}, chat.ProxyOptions{}, zap.NewNop())

	reply, err := proxy.Send(context.Background(), "hello")
	assert.ErrorIs(t, err, chat.ErrNoSession)
	assert.Empty(t, reply)
}

func TestProxy_StartSession(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	client := &chattest.Client{}
	proxy := chat.NewProxy(client, chat.ProxyOptions{}, zap.New(core))

	proxy.StartSession(context.Background(), catalog("pixel-8-pro", "jbl-charge-5"))

	session := client.Last()
	require.NotNil(t, session)
	assert.Equal(t, chat.DefaultModel, session.Model)
	assert.Equal(t, chat.SystemInstruction("Pixel 8 Pro, JBL Charge 5"), session.SystemInstruction)

	started := logs.FilterMessage("Chat session started").All()
	require.Len(t, started, 1)
	assert.Equal(t, "Pixel 8 Pro, JBL Charge 5", started[0].ContextMap()["devices"])
}

func TestProxy_StartSessionReplaces(t *testing.T) {
	client := &chattest.Client{}
	proxy := chat.NewProxy(client, chat.ProxyOptions{Model: "gemini-2.5-pro"}, zap.NewNop())

	proxy.StartSession(context.Background(), catalog("pixel-8-pro"))
	proxy.StartSession(context.Background(), catalog("galaxy-watch-6"))

	_, err := proxy.Send(context.Background(), "ping")
	require.NoError(t, err)

	sessions := client.Sessions()
	require.Len(t, sessions, 2)
	assert.Empty(t, sessions[0].Sent(), "old session must not receive sends")
	assert.Equal(t, []string{"ping"}, sessions[1].Sent())
	assert.Equal(t, "gemini-2.5-pro", sessions[1].Model)
}

func TestProxy_SendSuccess(t *testing.T) {
	proxy := chat.NewProxy(&chattest.Client{}, chat.ProxyOptions{}, zap.NewNop())
	proxy.StartSession(context.Background(), catalog("pixel-8-pro"))

	reply, err := proxy.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", reply)
}

func TestProxy_SendFailureReturnsFallback(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	client := &chattest.Client{
		Reply: func(context.Context, string) (string, error) {
			return "", &chat.APIError{Kind: chat.KindServer, StatusCode: 500}
		},
	}
	proxy := chat.NewProxy(client, chat.ProxyOptions{}, zap.New(core))
	proxy.StartSession(context.Background(), catalog("pixel-8-pro"))

	reply, err := proxy.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, chat.FallbackMessage, reply)

	failures := logs.FilterMessage("Chat request failed").All()
	require.Len(t, failures, 1)
	assert.Equal(t, zapcore.ErrorLevel, failures[0].Level)
	assert.Contains(t, failures[0].ContextMap()["hint"], "HTTP 500")
}

func TestProxy_SendStream(t *testing.T) {
	client := &chattest.Client{
		Chunks: 3,
		Reply: func(context.Context, string) (string, error) {
			return "Battery at 80 percent.", nil
		},
	}
	proxy := chat.NewProxy(client, chat.ProxyOptions{}, zap.NewNop())
	proxy.StartSession(context.Background(), catalog("pixel-8-pro"))

	var parts []string
	reply, err := proxy.SendStream(context.Background(), "status?", func(d string) {
		parts = append(parts, d)
	})
	require.NoError(t, err)
	assert.Equal(t, "Battery at 80 percent.", reply)
	assert.Len(t, parts, 3)
	assert.Equal(t, reply, chattest.Join(parts))
}

func TestProxy_SendStreamFailure(t *testing.T) {
	client := &chattest.Client{
		Reply: func(context.Context, string) (string, error) {
			return "", errors.New("connection reset")
		},
	}
	proxy := chat.NewProxy(client, chat.ProxyOptions{}, zap.NewNop())
	proxy.StartSession(context.Background(), catalog("pixel-8-pro"))

	reply, err := proxy.SendStream(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, chat.FallbackMessage, reply)
}

func TestProxy_EndSession(t *testing.T) {
	proxy := chat.NewProxy(&chattest.Client{}, chat.ProxyOptions{}, zap.NewNop())
	proxy.StartSession(context.Background(), catalog("pixel-8-pro"))
	proxy.EndSession()

	_, err := proxy.Send(context.Background(), "hi")
	assert.ErrorIs(t, err, chat.ErrNoSession)

	// Ending twice is harmless
	proxy.EndSession()
}

func TestProxy_ConcurrentSends(t *testing.T) {
	proxy := chat.NewProxy(&chattest.Client{}, chat.ProxyOptions{}, zap.NewNop())
	proxy.StartSession(context.Background(), catalog("pixel-8-pro"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reply, err := proxy.Send(context.Background(), "x")
			assert.NoError(t, err)
			assert.Equal(t, "echo: x", reply)
		}()
	}
	wg.Wait()
}
