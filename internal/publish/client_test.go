package publish_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"photodesk/internal/publish"
	"photodesk/internal/services"
)

func TestCreateSendsPayload(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auto-create" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"downloadUrl":"https://studio.example/d/abc"}`))
	}))
	defer srv.Close()

	client := publish.NewClient(srv.URL+"/", "secret", time.Second)
	resp, err := client.Create(context.Background(), publish.Request{
		CustomerName: "김민수", ShootDate: "2026-02-13", Type: "retouched", URL: "https://s3/x.zip",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if resp.DownloadURL != "https://studio.example/d/abc" {
		t.Fatalf("unexpected response %+v", resp)
	}
	want := map[string]string{
		"customerName": "김민수", "shootDate": "2026-02-13", "type": "retouched",
		"originalUrl": "", "retouchedUrl": "https://s3/x.zip", "videoUrl": "", "calendarUrl": "",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("field %s = %q, want %q", k, got[k], v)
		}
	}
}

func TestCreateNon200IsFailure(t *testing.T) {
	cases := []struct {
		status int
		marker error
	}{
		{http.StatusCreated, services.ErrExternalService},
		{http.StatusUnauthorized, services.ErrExternalService},
		{http.StatusBadGateway, services.ErrTransient},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(`{"downloadUrl":"https://studio.example/d/abc"}`))
		}))
		_, err := publish.NewClient(srv.URL, "k", time.Second).Create(context.Background(), publish.Request{CustomerName: "kim"})
		srv.Close()
		if !errors.Is(err, tc.marker) {
			t.Fatalf("status %d: expected %v, got %v", tc.status, tc.marker, err)
		}
	}
}

func TestCreateEmptyDownloadURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"downloadUrl":"  "}`))
	}))
	defer srv.Close()
	if _, err := publish.NewClient(srv.URL, "k", time.Second).Create(context.Background(), publish.Request{}); err == nil {
		t.Fatal("expected empty downloadUrl to fail")
	}
}

func TestCreateTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	_, err := publish.NewClient(srv.URL, "k", 50*time.Millisecond).Create(context.Background(), publish.Request{})
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}
