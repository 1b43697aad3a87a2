package resources

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

func isValidUrl(toTest string) bool {
	if _, err := url.ParseRequestURI(toTest); err != nil {
		return false
	}
	u, err := url.Parse(toTest)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func newRequest(method, uri, auth string) (*http.Request, error) {
	req, err := http.NewRequest(method, uri, nil)
	if err != nil {
		return nil, err
	}
	if auth != "" {
		req.Header.Add("Authorization", "Bearer "+auth)
	}
	return req, nil
}

// FetchHTTP opens a remote resource with optional bearer token auth.
func FetchHTTP(client *http.Client, uri, auth string) (io.ReadCloser, error) {
	req, err := newRequest(http.MethodGet, uri, auth)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: HTTP status code %d", uri,
			resp.StatusCode)
	}
	return resp.Body, nil
}

// SizeHTTP asks a remote server for the size of a resource.
func SizeHTTP(client *http.Client, uri, auth string) (uint64, error) {
	req, err := newRequest(http.MethodHead, uri, auth)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("HEAD %s: HTTP status code %d", uri,
			resp.StatusCode)
	}
	size, err := strconv.ParseUint(resp.Header.Get("Content-Length"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("HEAD %s: bad Content-Length: %w", uri, err)
	}
	return size, nil
}
