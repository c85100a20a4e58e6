package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestValidateScrapeURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"https ok", "https://shop.example.com/products/desk", false},
		{"http ok", "http://shop.example.com/", false},
		{"ftp scheme", "ftp://example.com/file", true},
		{"file scheme", "file:///etc/passwd", true},
		{"localhost", "http://localhost:8080/admin", true},
		{"localhost mixed case", "http://LocalHost/", true},
		{"mdns suffix", "http://printer.local/", true},
		{"loopback v4", "http://127.0.0.1/", true},
		{"loopback v6", "http://[::1]/", true},
		{"private 10", "http://10.0.0.5/", true},
		{"private 172", "http://172.16.1.1/", true},
		{"private 192", "http://192.168.1.1/metadata", true},
		{"link local", "http://169.254.169.254/latest/meta-data", true},
		{"unspecified", "http://0.0.0.0/", true},
		{"missing host", "http:///path", true},
		{"public ip ok", "http://93.184.216.34/", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateScrapeURL(tt.url)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidURL) {
					t.Errorf("ValidateScrapeURL(%q) = %v, want ErrInvalidURL", tt.url, err)
				}
				return
			}
			if err != nil {
				t.Errorf("ValidateScrapeURL(%q) = %v, want nil", tt.url, err)
			}
		})
	}
}

func TestFetchExtractsProductInfo(t *testing.T) {
	page := `<html><head>
		<title>Ergo Desk V2 | MegaShop</title>
		<meta property="og:title" content="Ergo Desk V2">
		<meta name="description" content="A standing desk that remembers your height.">
	</head><body>
		<h1>Ergo Desk V2</h1>
		<p>Over 2,400 five-star reviews from happy customers.</p>
	</body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	info, err := NewProductScraper().Fetch(context.Background(), srv.URL+"/products/ergo-desk-v2")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if !info.FetchSuccess {
		t.Error("FetchSuccess = false, want true")
	}
	if info.Name != "Ergo Desk V2" {
		t.Errorf("Name = %q, want og:title value", info.Name)
	}
	if info.Description != "A standing desk that remembers your height." {
		t.Errorf("Description = %q, want meta description", info.Description)
	}
	if !strings.Contains(info.Reviews, "reviews") {
		t.Errorf("Reviews = %q, want review sentence", info.Reviews)
	}
}

func TestFetchNon2xxFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	if _, err := NewProductScraper().Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for 403 response")
	}
}

func TestFetchFallsBackToTitleTag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>  Plain Title  </title></head><body>hello</body></html>`))
	}))
	defer srv.Close()

	info, err := NewProductScraper().Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if info.Name != "Plain Title" {
		t.Errorf("Name = %q, want title tag value", info.Name)
	}
}

func TestFallbackFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://shop.example.com/products/ergo-desk-v2", "ergo desk v2"},
		{"https://shop.example.com/p/blue_running_shoes.html", "blue running shoes"},
		{"https://shop.example.com/", "shop.example.com"},
		{"https://www.example.com/products/", "example.com"},
	}

	for _, tt := range tests {
		info := FallbackFromURL(tt.url)
		if info.FetchSuccess {
			t.Errorf("FallbackFromURL(%q).FetchSuccess = true, want false", tt.url)
		}
		if info.Name != tt.want {
			t.Errorf("FallbackFromURL(%q).Name = %q, want %q", tt.url, info.Name, tt.want)
		}
		if info.URL != tt.url {
			t.Errorf("URL = %q, want %q", info.URL, tt.url)
		}
	}
}
