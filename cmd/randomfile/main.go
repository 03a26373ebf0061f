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
	"strings"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"randomfile/internal/config"
	"randomfile/internal/httpserver"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if len(os.Args) > 1 && os.Args[1] == "passwd" {
		passwdCmd(os.Args[2:])
		return
	}

	var (
		addr      = flag.String("addr", "0.0.0.0:5000", "listen address")
		root      = flag.String("root", envOr("BASE_PATH", "data"), "music library root (ignored with -config)")
		stateDir  = flag.String("state", "", "state dir for blobs and cover thumbnails (default: <root>/.randomfile)")
		assetsDir = flag.String("assets", "", "directory holding randomfile.wasm and wasm_exec.js")
		cfgPath   = flag.String("config", "", "path to config json (optional)")
	)
	flag.Parse()

	var cfg config.Config
	if *cfgPath != "" {
		b, err := os.ReadFile(*cfgPath)
		if err != nil {
			log.Fatalf("read config: %v", err)
		}
		if cfg, err = config.Parse(b); err != nil {
			log.Fatalf("%v", err)
		}
		if cfg.AssetsDir == "" {
			cfg.AssetsDir = *assetsDir
		}
	} else {
		if strings.TrimSpace(*root) == "" {
			log.Fatalf("missing -root (or provide -config)")
		}
		cfg.Root = *root
		cfg.StateDir = *stateDir
		cfg.AssetsDir = *assetsDir
	}

	srv, err := httpserver.New(httpserver.Options{Config: cfg})
	if err != nil {
		log.Fatalf("server init: %v", err)
	}
	defer srv.Close()

	hs := &http.Server{
		Addr:              *addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := hs.Shutdown(shutdown); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("randomfile listening on http://%s (root=%s)", *addr, cfg.Root)
	log.Printf("webdav endpoint: http://%s/dav/  (use BasicAuth if configured)", *addr)
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("listen: %v", err)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func passwdCmd(args []string) {
	fs := flag.NewFlagSet("passwd", flag.ExitOnError)
	var (
		password = fs.String("p", "", "password (required)")
		cost     = fs.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	)
	_ = fs.Parse(args)
	if *password == "" {
		fmt.Fprintln(os.Stderr, "usage: randomfile passwd -p <password>")
		os.Exit(2)
	}
	if *cost < bcrypt.MinCost || *cost > bcrypt.MaxCost {
		fmt.Fprintf(os.Stderr, "invalid cost %d (min=%d max=%d)\n", *cost, bcrypt.MinCost, bcrypt.MaxCost)
		os.Exit(2)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(*password), *cost)
	if err != nil {
		log.Fatalf("bcrypt: %v", err)
	}
	fmt.Println(string(h))
}
