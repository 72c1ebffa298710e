package tunnel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDiscover_PrefersHTTPS(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tunnels":[
			{"public_url":"http://abc.ngrok.app","proto":"http"},
			{"public_url":"https://abc.ngrok.app","proto":"https"}
		]}`))
	}))
	defer ts.Close()

	url, err := Discover(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if url != "https://abc.ngrok.app" {
		t.Errorf("url = %q, want the https tunnel", url)
	}
}

func TestDiscover_NoTunnels(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tunnels":[]}`))
	}))
	defer ts.Close()

	if _, err := Discover(context.Background(), ts.URL); err == nil {
		t.Error("expected error when no tunnels are active")
	}
}

func TestDiscover_AgentDown(t *testing.T) {
	ts := httptest.NewServer(nil)
	ts.Close()

	if _, err := Discover(context.Background(), ts.URL); err == nil {
		t.Error("expected error when agent is unreachable")
	}
}
