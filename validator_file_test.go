package dcv

import (
	"context"
	"testing"
	"time"

	"github.com/synqronlabs/dcv/challenge"
	"github.com/synqronlabs/dcv/dns"
	"github.com/synqronlabs/dcv/fetch"
	"github.com/synqronlabs/dcv/mpic"
)

func TestFileValidator_Prepare_CandidateURLs(t *testing.T) {
	testCases := []struct {
		name     string
		config   Config
		filename string
		want     []string
	}{
		{
			name:   "default filename with https fallback",
			config: Config{FileCheckHTTPS: true},
			want: []string{
				"http://example.com/.well-known/pki-validation/fileauth.txt",
				"https://example.com/.well-known/pki-validation/fileauth.txt",
			},
		},
		{
			name:   "http only",
			config: Config{},
			want: []string{
				"http://example.com/.well-known/pki-validation/fileauth.txt",
			},
		},
		{
			name:     "request filename overrides default",
			config:   Config{FileDefaultFilename: "other.txt"},
			filename: "custom.txt",
			want: []string{
				"http://example.com/.well-known/pki-validation/custom.txt",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e := testEngine(t, tc.config)
			prep, errs := e.File().Prepare(context.Background(), FilePreparationRequest{
				Domain:        "example.com",
				Filename:      tc.filename,
				ChallengeType: ChallengeRandomValue,
			})
			if errs != nil {
				t.Fatalf("unexpected errors: %v", errs.Codes())
			}
			if len(prep.URLs) != len(tc.want) {
				t.Fatalf("urls = %v, want %v", prep.URLs, tc.want)
			}
			for i := range tc.want {
				if prep.URLs[i] != tc.want[i] {
					t.Errorf("url[%d] = %q, want %q", i, prep.URLs[i], tc.want[i])
				}
			}
		})
	}
}

func TestFileValidator_Prepare_RejectsWildcard(t *testing.T) {
	e := testEngine(t, Config{})

	prep, errs := e.File().Prepare(context.Background(), FilePreparationRequest{
		Domain:        "*.example.com",
		ChallengeType: ChallengeRandomValue,
	})
	if prep != nil {
		t.Fatal("expected nil preparation")
	}
	assertCodes(t, errs, CodeDomainWildcardNotAllowed)
}

func TestFileValidator_Validate_Success(t *testing.T) {
	value := "zb6fvg2hq8lmKwAtT0rP3cD5nX9jY1eS"
	e := testEngine(t, Config{
		Fetcher: &fetch.MockFetcher{
			Responses: map[string]*fetch.Result{
				"http://example.com/.well-known/pki-validation/fileauth.txt": {
					StatusCode: 200,
					Body:       value + "\n",
				},
			},
		},
	})

	ev, errs := e.File().Validate(context.Background(), FileValidationRequest{
		Domain:        "example.com",
		ChallengeType: ChallengeRandomValue,
		RandomValue:   value,
		State:         freshState("example.com", MethodFile),
	})
	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs.Codes())
	}
	if ev.FileURL != "http://example.com/.well-known/pki-validation/fileauth.txt" {
		t.Errorf("file url = %q", ev.FileURL)
	}
	if ev.Method != MethodFile || ev.RandomValue != value {
		t.Errorf("unexpected evidence: %+v", ev)
	}
}

func TestFileValidator_Validate_HTTPSFallback(t *testing.T) {
	value := "zb6fvg2hq8lmKwAtT0rP3cD5nX9jY1eS"
	e := testEngine(t, Config{
		FileCheckHTTPS: true,
		Fetcher: &fetch.MockFetcher{
			Responses: map[string]*fetch.Result{
				// http 404s; https serves the challenge.
				"https://example.com/.well-known/pki-validation/fileauth.txt": {
					StatusCode: 200,
					Body:       value,
				},
			},
		},
	})

	ev, errs := e.File().Validate(context.Background(), FileValidationRequest{
		Domain:        "example.com",
		ChallengeType: ChallengeRandomValue,
		RandomValue:   value,
		State:         freshState("example.com", MethodFile),
	})
	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs.Codes())
	}
	if ev.FileURL != "https://example.com/.well-known/pki-validation/fileauth.txt" {
		t.Errorf("file url = %q", ev.FileURL)
	}
}

func TestFileValidator_Validate_HTTPCatchAllFallsThroughToHTTPS(t *testing.T) {
	value := "zb6fvg2hq8lmKwAtT0rP3cD5nX9jY1eS"
	e := testEngine(t, Config{
		FileCheckHTTPS: true,
		Fetcher: &fetch.MockFetcher{
			Responses: map[string]*fetch.Result{
				// http 200s on any path with a catch-all page; only https
				// serves the challenge.
				"http://example.com/.well-known/pki-validation/fileauth.txt": {
					StatusCode: 200,
					Body:       "<html>catch-all page</html>",
				},
				"https://example.com/.well-known/pki-validation/fileauth.txt": {
					StatusCode: 200,
					Body:       value + "\n",
				},
			},
		},
	})

	ev, errs := e.File().Validate(context.Background(), FileValidationRequest{
		Domain:        "example.com",
		ChallengeType: ChallengeRandomValue,
		RandomValue:   value,
		State:         freshState("example.com", MethodFile),
	})
	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs.Codes())
	}
	if ev.FileURL != "https://example.com/.well-known/pki-validation/fileauth.txt" {
		t.Errorf("file url = %q, want the https candidate", ev.FileURL)
	}
}

func TestFileValidator_Validate_TokenFallsThroughCatchAllBody(t *testing.T) {
	key := []byte("9AZFEmOBXCUrT7Cs")
	token, err := challenge.GenerateToken(key, "salt-value", time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	e := testEngine(t, Config{
		FileCheckHTTPS: true,
		Fetcher: &fetch.MockFetcher{
			Responses: map[string]*fetch.Result{
				"http://example.com/.well-known/pki-validation/fileauth.txt": {
					StatusCode: 200,
					Body:       "<html>catch-all page</html>",
				},
				"https://example.com/.well-known/pki-validation/fileauth.txt": {
					StatusCode: 200,
					Body:       token,
				},
			},
		},
	})

	ev, errs := e.File().Validate(context.Background(), FileValidationRequest{
		Domain:        "example.com",
		ChallengeType: ChallengeRequestToken,
		TokenKey:      key,
		TokenValue:    "salt-value",
		State:         freshState("example.com", MethodFile),
	})
	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs.Codes())
	}
	if ev.RequestToken != token {
		t.Errorf("request token = %q, want %q", ev.RequestToken, token)
	}
	if ev.FileURL != "https://example.com/.well-known/pki-validation/fileauth.txt" {
		t.Errorf("file url = %q, want the https candidate", ev.FileURL)
	}
}

func TestFileValidator_Validate_NotFound(t *testing.T) {
	e := testEngine(t, Config{FileCheckHTTPS: true})

	ev, errs := e.File().Validate(context.Background(), FileValidationRequest{
		Domain:        "example.com",
		ChallengeType: ChallengeRandomValue,
		RandomValue:   "v",
		State:         freshState("example.com", MethodFile),
	})
	if ev != nil {
		t.Fatal("expected failure")
	}
	assertCodes(t, errs, CodeFileFetchNotFound)
}

func TestFileValidator_Validate_ValueMissingFromBody(t *testing.T) {
	e := testEngine(t, Config{
		Fetcher: &fetch.MockFetcher{
			Responses: map[string]*fetch.Result{
				"http://example.com/.well-known/pki-validation/fileauth.txt": {
					StatusCode: 200,
					Body:       "something else entirely",
				},
			},
		},
	})

	ev, errs := e.File().Validate(context.Background(), FileValidationRequest{
		Domain:        "example.com",
		ChallengeType: ChallengeRandomValue,
		RandomValue:   "zb6fvg2hq8lmKwAtT0rP3cD5nX9jY1eS",
		State:         freshState("example.com", MethodFile),
	})
	if ev != nil {
		t.Fatal("expected failure")
	}
	assertCodes(t, errs, CodeRandomValueNotFound)
}

func TestFileValidator_Validate_RequestToken(t *testing.T) {
	key := []byte("9AZFEmOBXCUrT7Cs")
	token, err := challenge.GenerateToken(key, "salt-value", time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	url := "http://example.com/.well-known/pki-validation/fileauth.txt"
	fetcher := &fetch.MockFetcher{
		Responses: map[string]*fetch.Result{
			url: {StatusCode: 200, Body: "token: " + token},
		},
	}

	e := testEngine(t, Config{
		Fetcher: fetcher,
		SecondaryAgents: []mpic.Agent{
			mpic.NewLocalAgent("eu-west", &dns.MockResolver{}, fetcher),
		},
		EnforceCorroboration: true,
		CorroborationQuorum:  1,
	})

	ev, errs := e.File().Validate(context.Background(), FileValidationRequest{
		Domain:        "example.com",
		ChallengeType: ChallengeRequestToken,
		TokenKey:      key,
		TokenValue:    "salt-value",
		State:         freshState("example.com", MethodFile),
	})
	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs.Codes())
	}
	if ev.RequestToken != token {
		t.Errorf("request token = %q, want %q", ev.RequestToken, token)
	}
	if ev.FileURL != url {
		t.Errorf("file url = %q", ev.FileURL)
	}
}

func TestFileValidator_Validate_RejectsWildcard(t *testing.T) {
	e := testEngine(t, Config{})

	ev, errs := e.File().Validate(context.Background(), FileValidationRequest{
		Domain:        "*.example.com",
		ChallengeType: ChallengeRandomValue,
		RandomValue:   "v",
		State:         freshState("*.example.com", MethodFile),
	})
	if ev != nil {
		t.Fatal("expected failure")
	}
	assertCodes(t, errs, CodeDomainWildcardNotAllowed)
}
