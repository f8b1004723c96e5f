package registry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/obentoo/nugetwatch/internal/common/httpclient"
)

// =============================================================================
// Generators
// =============================================================================

func genPackageID() gopter.Gen {
	return gen.RegexMatch(`^[A-Z][a-z]{2,8}(\.[A-Z][a-z]{2,8}){0,2}$`)
}

func genVersion() gopter.Gen {
	return gen.RegexMatch(`^[0-9]{1,2}\.[0-9]{1,2}\.[0-9]{1,3}(-beta[0-9])?$`)
}

// genNoise generates ids that never equal the target: they all carry a suffix
func genNoise() gopter.Gen {
	return gen.SliceOfN(5, gen.RegexMatch(`^[A-Z][a-z]{2,8}\.Extensions[0-9]?$`))
}

// swapCase flips the letter case of every rune
func swapCase(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 32)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + 32)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func noiseRecords(ids []string) []Package {
	records := make([]Package, 0, len(ids))
	for _, id := range ids {
		records = append(records, Package{ID: id, Version: "9.9.9"})
	}
	return records
}

// =============================================================================
// Property-Based Tests
// =============================================================================

func TestSelectExactProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("single case-insensitive match returns its version", prop.ForAll(
		func(id, version string, noise []string, position int) bool {
			records := noiseRecords(noise)
			pos := position % (len(records) + 1)
			match := Package{ID: swapCase(id), Version: version}
			records = append(records[:pos], append([]Package{match}, records[pos:]...)...)

			pkg, found, err := SelectExact(records, id)
			return err == nil && found && pkg.Version == version
		},
		genPackageID(),
		genVersion(),
		genNoise(),
		gen.IntRange(0, 10),
	))

	properties.Property("no exact match is absence, not an error", prop.ForAll(
		func(id string, noise []string) bool {
			_, found, err := SelectExact(noiseRecords(noise), id)
			return err == nil && !found
		},
		genPackageID(),
		genNoise(),
	))

	properties.Property("two or more exact matches fail as ambiguous", prop.ForAll(
		func(id, v1, v2 string, noise []string) bool {
			records := noiseRecords(noise)
			records = append(records, Package{ID: id, Version: v1})
			records = append([]Package{{ID: strings.ToLower(id), Version: v2}}, records...)

			_, found, err := SelectExact(records, id)
			return errors.Is(err, ErrAmbiguousMatch) && !found
		},
		genPackageID(),
		genVersion(),
		genVersion(),
		genNoise(),
	))

	properties.TestingRun(t)
}

// =============================================================================
// Unit Tests
// =============================================================================

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	hc := httpclient.New()
	hc.SetHTTPClient(server.Client())
	return NewClient(server.URL+"/query", hc)
}

func writeResults(w http.ResponseWriter, records ...Package) {
	json.NewEncoder(w).Encode(SearchResponse{TotalHits: len(records), Data: records})
}

func TestQueryURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		id   string
		want url.Values
	}{
		{
			name: "plain base",
			base: "https://azuresearch-usnc.nuget.org/query",
			id:   "Newtonsoft.Json",
			want: url.Values{"q": {"Newtonsoft.Json"}, "prerelease": {"true"}},
		},
		{
			name: "base with existing parameters",
			base: "https://search.example.com/query?semVerLevel=2.0.0",
			id:   "Serilog",
			want: url.Values{"q": {"Serilog"}, "prerelease": {"true"}, "semVerLevel": {"2.0.0"}},
		},
		{
			name: "id needing escaping",
			base: "https://search.example.com/query",
			id:   "My Package&x=1",
			want: url.Values{"q": {"My Package&x=1"}, "prerelease": {"true"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := QueryURL(tt.base, tt.id)
			if err != nil {
				t.Fatalf("QueryURL failed: %v", err)
			}
			u, err := url.Parse(got)
			if err != nil {
				t.Fatalf("QueryURL produced invalid URL %q: %v", got, err)
			}
			if u.Query().Encode() != tt.want.Encode() {
				t.Errorf("query = %q, want %q", u.Query().Encode(), tt.want.Encode())
			}
		})
	}
}

func TestLookupSendsQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("q") != "Newtonsoft.Json" {
			t.Errorf("unexpected q %q", r.URL.Query().Get("q"))
		}
		if r.URL.Query().Get("prerelease") != "true" {
			t.Errorf("prerelease should be requested")
		}
		writeResults(w,
			Package{ID: "Newtonsoft.Json.Bson", Version: "1.0.2"},
			Package{ID: "newtonsoft.json", Version: "13.0.4-beta1"},
		)
	})

	version, found, err := client.Lookup(context.Background(), "Newtonsoft.Json")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if !found {
		t.Fatal("expected package to be found")
	}
	if version != "13.0.4-beta1" {
		t.Errorf("expected 13.0.4-beta1, got %s", version)
	}
}

func TestLookupNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeResults(w, Package{ID: "Newtonsoft.Json.Bson", Version: "1.0.2"})
	})

	version, found, err := client.Lookup(context.Background(), "Newtonsoft.Json")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if found || version != "" {
		t.Errorf("expected not found, got %q found=%v", version, found)
	}
}

func TestLookupEmptyData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"totalHits":0,"data":[]}`))
	})

	_, found, err := client.Lookup(context.Background(), "Anything")
	if err != nil || found {
		t.Errorf("expected clean not found, got found=%v err=%v", found, err)
	}
}

func TestLookupAmbiguous(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeResults(w,
			Package{ID: "Polly", Version: "8.0.0"},
			Package{ID: "POLLY", Version: "7.2.4"},
		)
	})

	_, _, err := client.Lookup(context.Background(), "polly")
	if !errors.Is(err, ErrAmbiguousMatch) {
		t.Errorf("expected ErrAmbiguousMatch, got %v", err)
	}
}

func TestLookupMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not JSON", `<html>oops</html>`},
		{"missing data", `{"totalHits":1}`},
		{"null data", `{"data":null}`},
		{"data not an array", `{"data":{"id":"Polly"}}`},
		{"matched record without version", `{"data":[{"id":"Polly"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})

			_, _, err := client.Lookup(context.Background(), "Polly")
			if !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("expected ErrMalformedResponse, got %v", err)
			}
		})
	}
}

func TestLookupTransportFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, _, err := client.Lookup(context.Background(), "Polly")
	if !errors.Is(err, ErrRequestFailed) {
		t.Errorf("expected ErrRequestFailed, got %v", err)
	}
	if !errors.Is(err, httpclient.ErrUnexpectedStatus) {
		t.Errorf("expected wrapped ErrUnexpectedStatus, got %v", err)
	}
}

func TestLookupUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	client := NewClient(base, nil)
	_, _, err := client.Lookup(context.Background(), "Polly")
	if !errors.Is(err, ErrRequestFailed) {
		t.Errorf("expected ErrRequestFailed, got %v", err)
	}
}
