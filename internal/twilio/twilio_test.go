package twilio

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newFakeAPI(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	c, err := New(Config{
		AccountSID: "AC123",
		AuthToken:  "secret",
		BaseURL:    ts.URL,
		HTTPClient: ts.Client(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestPlaceCall(t *testing.T) {
	var gotPath string
	var gotForm map[string][]string

	c := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if user, pass, ok := r.BasicAuth(); !ok || user != "AC123" || pass != "secret" {
			t.Errorf("bad basic auth: %s/%s", user, pass)
		}
		gotPath = r.URL.Path
		_ = r.ParseForm()
		gotForm = r.PostForm

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"CA42","to":"+15550002222","from":"+15550001111","status":"queued"}`))
	})

	call, err := c.PlaceCall(context.Background(), PlaceCallParams{
		To:             "+15550002222",
		From:           "+15550001111",
		VoiceURL:       "https://example.ngrok.app/voice",
		StatusCallback: "https://example.ngrok.app/call-status",
		Timeout:        25,
	})
	if err != nil {
		t.Fatalf("PlaceCall: %v", err)
	}
	if call.SID != "CA42" || call.Status != "queued" {
		t.Errorf("call = %+v", call)
	}
	if gotPath != "/Accounts/AC123/Calls.json" {
		t.Errorf("path = %q", gotPath)
	}
	for key, want := range map[string]string{
		"To":             "+15550002222",
		"From":           "+15550001111",
		"Url":            "https://example.ngrok.app/voice",
		"StatusCallback": "https://example.ngrok.app/call-status",
		"Timeout":        "25",
	} {
		if got := gotForm[key]; len(got) != 1 || got[0] != want {
			t.Errorf("form[%s] = %v, want %q", key, got, want)
		}
	}
	if len(gotForm["StatusCallbackEvent"]) == 0 {
		t.Error("no StatusCallbackEvent values sent")
	}
}

func TestHangupCall(t *testing.T) {
	c := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Accounts/AC123/Calls/CA42.json" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = r.ParseForm()
		if got := r.PostFormValue("Status"); got != "completed" {
			t.Errorf("Status = %q, want completed", got)
		}
		_, _ = w.Write([]byte(`{"sid":"CA42","status":"completed"}`))
	})

	call, err := c.HangupCall(context.Background(), "CA42")
	if err != nil {
		t.Fatalf("HangupCall: %v", err)
	}
	if call.Status != "completed" {
		t.Errorf("status = %q", call.Status)
	}
}

func TestAPIError(t *testing.T) {
	c := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number","status":400}`))
	})

	_, err := c.PlaceCall(context.Background(), PlaceCallParams{To: "bogus", From: "+15550001111"})
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *twilio.Error", err)
	}
	if apiErr.Code != 21211 {
		t.Errorf("code = %d, want 21211", apiErr.Code)
	}
}

func TestNew_RequiresCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")

	if _, err := New(Config{}); err == nil {
		t.Error("expected error without credentials")
	}
	if _, err := New(Config{AccountSID: "AC123"}); err == nil {
		t.Error("expected error without auth token")
	}
}
