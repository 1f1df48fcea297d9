//go:build integration

package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
)

// remotePost is a JSONPlaceholder post.
type remotePost struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	UserID int    `json:"userId"`
}

// fakeRemote mimics the JSONPlaceholder /posts endpoint. Pushed posts are
// recorded but, like the real service, never become part of the listing.
type fakeRemote struct {
	*httptest.Server

	mu      sync.Mutex
	posts   []remotePost
	pushed  []remotePost
	failing bool
}

func newFakeRemote() *fakeRemote {
	f := &fakeRemote{}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /posts", f.list)
	mux.HandleFunc("POST /posts", f.create)

	f.Server = httptest.NewServer(mux)

	return f
}

func (f *fakeRemote) setPosts(posts []remotePost) {
	f.mu.Lock()
	f.posts = posts
	f.mu.Unlock()
}

func (f *fakeRemote) setFailing(v bool) {
	f.mu.Lock()
	f.failing = v
	f.mu.Unlock()
}

func (f *fakeRemote) pushedTitles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	titles := make([]string, len(f.pushed))
	for i, p := range f.pushed {
		titles[i] = p.Title
	}

	return titles
}

func (f *fakeRemote) list(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failing {
		http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
		return
	}

	posts := f.posts
	if limit, err := strconv.Atoi(r.URL.Query().Get("_limit")); err == nil && limit < len(posts) {
		posts = posts[:limit]
	}

	if posts == nil {
		posts = []remotePost{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(posts)
}

func (f *fakeRemote) create(w http.ResponseWriter, r *http.Request) {
	var p remotePost
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	failing := f.failing
	if !failing {
		f.pushed = append(f.pushed, p)
	}
	f.mu.Unlock()

	if failing {
		http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
		return
	}

	p.ID = 101

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(p)
}
