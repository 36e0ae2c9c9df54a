package insight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAIProviderComplete(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" || r.Header.Get("Authorization") != "Bearer sk-test" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"criticality\":\"High\"}"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("sk-test", srv.URL)
	out, err := p.Complete(context.Background(), Prompt{Text: "hello", Fields: analysisFields})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out != `{"criticality":"High"}` {
		t.Fatalf("unexpected content %q", out)
	}
	if got.ResponseFormat == nil || got.ResponseFormat.Type != "json_object" || len(got.Messages) != 2 {
		t.Fatalf("unexpected request %+v", got)
	}
	if !strings.Contains(got.Messages[0].Content, "fulfillmentPrediction") {
		t.Fatalf("system prompt must list the answer keys: %q", got.Messages[0].Content)
	}
}

func TestOpenAIProviderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Header.Get("Authorization") {
		case "Bearer bad":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
		default:
			_, _ = w.Write([]byte(`{"choices":[]}`))
		}
	}))
	defer srv.Close()

	_, err := NewOpenAIProvider("bad", srv.URL).Complete(context.Background(), Prompt{Text: "x"})
	if err == nil || !strings.Contains(err.Error(), "invalid api key") {
		t.Fatalf("expected api error, got %v", err)
	}
	_, err = NewOpenAIProvider("good", srv.URL).Complete(context.Background(), Prompt{Text: "x"})
	if err == nil || !strings.Contains(err.Error(), "empty choices") {
		t.Fatalf("expected empty choices error, got %v", err)
	}
}

func TestCleanJSONString(t *testing.T) {
	tests := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```{\"a\":1}```":         `{"a":1}`,
		"  {\"a\":1}  ":           `{"a":1}`,
	}
	for in, want := range tests {
		if got := cleanJSONString(in); got != want {
			t.Errorf("cleanJSONString(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestObjectSchema(t *testing.T) {
	if objectSchema(nil) != nil {
		t.Fatalf("no fields means no schema")
	}
	s := objectSchema(forecastFields)
	if len(s.Properties) != 4 || len(s.Required) != 4 {
		t.Fatalf("unexpected schema %+v", s)
	}
}
