package apiclient

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSummarizeBody(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"empty", "  ", "<empty>"},
		{"json compacted", "{\n  \"error\": \"nope\"\n}", `{"error":"nope"}`},
		{"html title", "<!DOCTYPE html><html><head><title> Not Found </title></head><body></body></html>", "Not Found"},
		{"html heading", "<html><body><h1>Bad Gateway</h1></body></html>", "Bad Gateway"},
		{"text", "upstream timeout", "upstream timeout"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := summarizeBody([]byte(tc.body)); got != tc.want {
				t.Fatalf("summarizeBody = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSummarizeBodyTruncates(t *testing.T) {
	got := summarizeBody([]byte(strings.Repeat("x", 2000)))
	if len(got) != maxSummaryLen+3 || !strings.HasSuffix(got, "...") {
		t.Fatalf("unexpected truncation length %d", len(got))
	}
}

func TestSummarizeBodyTruncatesOnRuneBoundary(t *testing.T) {
	body := strings.Repeat("a", maxSummaryLen-1) + strings.Repeat("é", 100)
	got := summarizeBody([]byte(body))
	if !utf8.ValidString(got) {
		t.Fatalf("summary is not valid UTF-8: %q", got[len(got)-8:])
	}
	if want := strings.Repeat("a", maxSummaryLen-1) + "..."; got != want {
		t.Fatalf("unexpected summary tail %q", got[len(got)-8:])
	}
}

func TestHTTPStatusErrorMessage(t *testing.T) {
	err := &HTTPStatusError{Method: "GET", URL: "https://api.example.test/users", StatusCode: 404, Body: []byte(`{"error": "missing"}`)}
	want := `GET request to https://api.example.test/users returned status code 404: {"error":"missing"}`
	if err.Error() != want {
		t.Fatalf("Error() = %q", err.Error())
	}
}
