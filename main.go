package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ancientlore/cachefs"
	"github.com/facebookgo/flagenv"
	"github.com/golang/groupcache"
	"github.com/olinlibrary/hackingthelibrary/site"
	"github.com/olinlibrary/hackingthelibrary/web"
)

// main is where it all begins. 😀
func main() {
	// Setup flags
	var (
		fRoot              = flag.String("root", ".", "Root of web site.")
		fConfig            = flag.String("config", site.ConfigFile, "Site configuration file, relative to the root.")
		fOut               = flag.String("out", "", "Output directory; overrides the configured output.")
		fServe             = flag.Bool("serve", false, "Serve the output directory after building.")
		fPort              = flag.Int("port", 8080, "Port to listen on.")
		fReadTimeout       = flag.Duration("readtimeout", 10*time.Second, "HTTP server read timeout.")
		fReadHeaderTimeout = flag.Duration("readheadertimeout", 5*time.Second, "HTTP server read header timeout.")
		fWriteTimeout      = flag.Duration("writetimeout", 30*time.Second, "HTTP server write timeout.")
		fCacheSize         = flag.Int64("cachesize", 10*1024*1024, "Size of the file cache in bytes.")
		fCacheDuration     = flag.Duration("cacheduration", time.Minute, "Time before cached files are read again.")
	)
	flag.Parse()
	flagenv.Parse()

	// Switch to site folder
	err := os.Chdir(*fRoot)
	if err != nil {
		log.Printf("Cannot switch to root %q: %s", *fRoot, err)
		os.Exit(1)
	}
	base, err := os.Getwd()
	if err != nil {
		log.Printf("Cannot locate root %q: %s", *fRoot, err)
		os.Exit(1)
	}
	log.Printf("Changed to %q directory", base)
	siteFS := os.DirFS(".")

	// Read configuration
	cfg, err := site.LoadConfig(siteFS, *fConfig)
	if err != nil {
		log.Printf("Cannot load configuration: %s", err)
		os.Exit(2)
	}
	out := cfg.Output
	if *fOut != "" {
		out = *fOut
	}

	// Build the site; an interrupt cancels the build and later stops the server
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	start := time.Now()
	report, err := (&site.Builder{Config: cfg, FS: siteFS, Base: base, Out: out}).Build(ctx)
	if err != nil {
		stop()
		log.Printf("Build failed: %s", err)
		os.Exit(3)
	}
	log.Printf("Built %d pages from %d Markdown files, copied %d files into %q in %s (custom templates: %t)",
		report.Pages, report.Nodes, report.Files, out, time.Since(start).Round(time.Millisecond), report.CustomTemplates)
	if !*fServe {
		stop()
		return
	}

	// Setup groupcache (no peers) and the cached output file system
	groupcache.RegisterPeerPicker(func() groupcache.PeerPicker { return groupcache.NoPeers{} })
	outFS := cachefs.New(os.DirFS(out), &cachefs.Config{
		GroupName:   "public",
		SizeInBytes: *fCacheSize,
		Duration:    *fCacheDuration,
	})

	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", *fPort),
		Handler: web.Handler(outFS, web.Options{
			PageExpires:  time.Duration(cfg.Serve.Expires),
			AssetExpires: time.Duration(cfg.Serve.StaticExpires),
			Headers:      cfg.Serve.Headers,
		}),
		ReadTimeout:       *fReadTimeout,
		WriteTimeout:      *fWriteTimeout,
		ReadHeaderTimeout: *fReadHeaderTimeout,
	}
	err = serve(ctx, srv)
	stop()
	if err != nil {
		log.Printf("HTTP server: %v", err)
		os.Exit(4)
	}
	log.Print("Goodbye.")
}

// serve runs srv until ctx is done, then gives open requests ten seconds
// to finish.
func serve(ctx context.Context, srv *http.Server) error {
	errc := make(chan error, 1)
	go func() {
		log.Printf("Listening for requests on %s", srv.Addr)
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
