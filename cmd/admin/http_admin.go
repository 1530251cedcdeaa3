package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)

	u := strings.TrimRight(strings.TrimSpace(*baseURL), "/") + "/admin/v1/state"
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Get(u)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	finish(resp)
}

func spawnCmd(args []string) {
	fs := flag.NewFlagSet("spawn", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	kind := fs.String("kind", "", "mob kind")
	x := fs.Int("x", 0, "x")
	z := fs.Int("z", 0, "z")
	_ = fs.Parse(args)

	if strings.TrimSpace(*kind) == "" {
		fmt.Fprintln(os.Stderr, "missing -kind")
		os.Exit(2)
	}
	body, _ := json.Marshal(map[string]any{"kind": *kind, "x": *x, "z": *z})
	u := strings.TrimRight(strings.TrimSpace(*baseURL), "/") + "/admin/v1/spawn"
	cl := &http.Client{Timeout: 10 * time.Second}
	resp, err := cl.Post(u, "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	finish(resp)
}

func despawnCmd(args []string) {
	fs := flag.NewFlagSet("despawn", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	id := fs.String("id", "", "mob id")
	_ = fs.Parse(args)

	if strings.TrimSpace(*id) == "" {
		fmt.Fprintln(os.Stderr, "missing -id")
		os.Exit(2)
	}
	u := strings.TrimRight(strings.TrimSpace(*baseURL), "/") + "/admin/v1/despawn?id=" + url.QueryEscape(*id)
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Post(u, "", nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	finish(resp)
}

func finish(resp *http.Response) {
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if len(b) > 0 {
		fmt.Println(string(b))
	} else {
		fmt.Println(resp.Status)
	}
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}
