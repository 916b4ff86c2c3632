package handler

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/worthym330/voice-agent/internal/callstore"
	"github.com/worthym330/voice-agent/internal/clients/telephony"
	"github.com/worthym330/voice-agent/internal/observability"
	"github.com/worthym330/voice-agent/internal/voicecall/processor"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func newStreamTestServer(t *testing.T) (*httptest.Server, *callstore.Store, chan struct{}) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := observability.NewLogger()
	store := callstore.New(logger)

	composer := processor.NewComposer("https://agent.example.com/api/callback/twilio/voice",
		processor.ProjectDetails{
			CompanyName:   "Sunrise Estates",
			StartingPrice: "₹55 lakhs",
			UnitTypes:     "1BHK–3BHK",
		})
	dialogue := processor.New(store, &fakeAI{reply: "ok"},
		&fakePlacer{placed: telephony.PlacedCall{Sid: "CAout", Status: "queued"}},
		fakeRecorder{}, nil, composer,
		processor.Settings{TwilioPhoneNumber: "+15550001111"}, logger)

	h := New(dialogue, Options{
		PublicURL:       "https://agent.example.com",
		TwilioAuthToken: "auth-token",
	}, logger)

	handlerDone := make(chan struct{})
	router := gin.New()
	router.GET("/api/conversation/:call_sid/stream", func(c *gin.Context) {
		h.HandleStreamConversation(c)
		close(handlerDone)
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, store, handlerDone
}

func dialStream(t *testing.T, srv *httptest.Server, callSid string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/conversation/" + callSid + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial stream: %v", err)
	}
	return conn
}

func TestStreamConversationDeliversLiveEntries(t *testing.T) {
	srv, store, _ := newStreamTestServer(t)
	ctx := context.Background()
	store.GetOrCreate(ctx, "CA1")

	conn := dialStream(t, srv, "CA1")
	defer conn.Close()

	store.AppendLog(ctx, "CA1", callstore.SpeakerUser, "hello there")

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var entry callstore.CallLogEntry
	if err := conn.ReadJSON(&entry); err != nil {
		t.Fatalf("failed to read entry: %v", err)
	}
	if entry.Text != "hello there" || entry.Speaker != callstore.SpeakerUser {
		t.Errorf("unexpected entry: %+v", entry)
	}
}

func TestStreamConversationStopsWhenClientDisconnects(t *testing.T) {
	srv, store, handlerDone := newStreamTestServer(t)
	ctx := context.Background()
	store.GetOrCreate(ctx, "CA1")

	conn := dialStream(t, srv, "CA1")
	conn.Close()

	// Nothing is ever written on a silent call, so the handler must notice
	// the disconnect through its read loop.
	select {
	case <-handlerDone:
	case <-time.After(2 * time.Second):
		t.Fatal("stream handler did not stop after the client disconnected")
	}
}
