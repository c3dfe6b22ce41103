package views

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
)

func TestWebhookInvalidatorPostsPaths(t *testing.T) {
	var (
		gotAuth  string
		gotPaths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var body struct {
			Paths []string `json:"paths"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		gotPaths = body.Paths
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	invalidator := WebhookInvalidator{URL: srv.URL, Token: "tok", Client: srv.Client()}
	if err := invalidator.Revalidate(context.Background(), "/elections", "/elections/el-1"); err != nil {
		t.Fatalf("revalidate: %v", err)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("unexpected authorization %q", gotAuth)
	}
	if len(gotPaths) != 2 || gotPaths[1] != "/elections/el-1" {
		t.Fatalf("unexpected paths %v", gotPaths)
	}
}

func TestWebhookInvalidatorReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	invalidator := WebhookInvalidator{URL: srv.URL, Client: srv.Client()}
	if err := invalidator.Revalidate(context.Background(), "/elections"); err == nil {
		t.Fatal("expected an error on 502")
	}
}

func TestWebhookInvalidatorWithoutURLIsNoop(t *testing.T) {
	if err := (WebhookInvalidator{}).Revalidate(context.Background(), "/elections"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}
