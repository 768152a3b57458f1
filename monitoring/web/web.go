// Package web holds the page served by the cache monitor.
package web

import (
	"embed"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
)

// DevModeEnv is the environment variable that makes the monitor serve the
// pages from the source tree instead of the embedded copy.
const DevModeEnv = "UNICACHE_MONITOR_DEV"

//go:embed dist/*
var embedded embed.FS

// GetAssets returns the file system the monitor page is served from.
func GetAssets() http.FileSystem {
	if devMode() {
		dir := sourceDistDir()
		log.Printf("monitor dev mode, serving pages from %s", dir)

		return http.Dir(dir)
	}

	dist, err := fs.Sub(embedded, "dist")
	if err != nil {
		log.Panic(err)
	}

	return http.FS(dist)
}

func sourceDistDir() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		log.Panic("cannot locate the web package source")
	}

	return filepath.Join(filepath.Dir(file), "dist")
}

func devMode() bool {
	on, err := strconv.ParseBool(os.Getenv(DevModeEnv))

	return err == nil && on
}
