/*
Package web serves a built site.

The handler returned by Handler layers these middlewares around a file
server for the output directory:

	custom headers
	  expiry headers, shorter for pages than for assets
	    gzip compression
	      error pages such as 404.html and 500.html
	        file server
*/
package web

import (
	"io/fs"
	"log"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/NYTimes/gziphandler"
)

// Options controls the response headers of Handler.
type Options struct {
	PageExpires  time.Duration     // Expiry of pages; 0 sends no Expires header
	AssetExpires time.Duration     // Expiry of everything else
	Headers      map[string]string // Added to every response
	ErrorPages   map[int]string    // Error pages by status; nil means DefaultErrorPages
}

// Handler returns an http.Handler serving the files of fsys.
func Handler(fsys fs.FS, opts Options) http.Handler {
	return HeaderHandler(
		ExpiresHandler(
			gziphandler.GzipHandler(
				ErrorHandler(http.FileServer(http.FS(fsys)), fsys, opts.ErrorPages),
			),
			opts.PageExpires,
			opts.AssetExpires,
		),
		opts.Headers)
}

// HeaderHandler sets headers on every response before calling h.
func HeaderHandler(h http.Handler, headers map[string]string) http.Handler {
	if len(headers) == 0 {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, v := range headers {
			w.Header().Set(k, v)
		}
		h.ServeHTTP(w, r)
	})
}

// ExpiresHandler sets an Expires header of pageExpires for pages and of
// assetExpires for other files.
func ExpiresHandler(h http.Handler, pageExpires, assetExpires time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		expiry := assetExpires
		if IsPage(r.URL.Path) {
			expiry = pageExpires
		}
		if expiry != 0 {
			w.Header().Set("Expires", time.Now().Add(expiry).UTC().Format(http.TimeFormat))
		}
		h.ServeHTTP(w, r)
	})
}

// IsPage reports whether a request path names a rendered page rather than
// a static asset. Pages live in directories of their own, so their paths
// end in a slash, end in .html, or end in a segment whose index.html is
// served. The sitemap counts as a page.
func IsPage(p string) bool {
	if p == "" || p[len(p)-1] == '/' || p == "/sitemap.txt" {
		return true
	}
	switch path.Ext(p) {
	case "", ".html", ".md":
		return true
	}
	return false
}

// DefaultErrorPages maps status codes to the pages a build may write for
// them.
var DefaultErrorPages = map[int]string{
	http.StatusNotFound:            "404.html",
	http.StatusInternalServerError: "500.html",
}

// ErrorHandler replaces the body of responses from h whose status has an
// entry in pages with that file from fsys, when the file exists. A nil
// pages uses DefaultErrorPages.
func ErrorHandler(h http.Handler, fsys fs.FS, pages map[int]string) http.Handler {
	if pages == nil {
		pages = DefaultErrorPages
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(&errorPageWriter{ResponseWriter: w, fsys: fsys, pages: pages}, r)
	})
}

// errorPageWriter sends an error page in place of the body h writes.
type errorPageWriter struct {
	http.ResponseWriter
	fsys  fs.FS
	pages map[int]string
	sent  bool // error page sent; later writes are dropped
}

func (w *errorPageWriter) WriteHeader(statusCode int) {
	if !w.sent {
		if page, err := w.errorPage(statusCode); err == nil {
			h := w.Header()
			h.Set("Content-Type", "text/html; charset=utf-8")
			h.Set("Content-Length", strconv.Itoa(len(page)))
			h.Del("X-Content-Type-Options")
			w.ResponseWriter.WriteHeader(statusCode)
			w.sent = true
			if _, err := w.ResponseWriter.Write(page); err != nil {
				log.Printf("ErrorHandler: %s", err)
			}
			return
		}
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *errorPageWriter) Write(b []byte) (int, error) {
	if w.sent {
		return len(b), nil
	}
	return w.ResponseWriter.Write(b)
}

// errorPage reads the page configured for statusCode.
func (w *errorPageWriter) errorPage(statusCode int) ([]byte, error) {
	name, ok := w.pages[statusCode]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return fs.ReadFile(w.fsys, name)
}
