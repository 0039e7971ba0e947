package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

func main() {
	baseURL := flag.String("server", envOr("ANIBRIDGE_SERVER_URL", "http://127.0.0.1:8080"), "URL du serveur (ex: http://127.0.0.1:8080)")
	timeout := flag.Duration("timeout", 10*time.Second, "Timeout HTTP")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	client := &http.Client{Timeout: *timeout}

	switch args[0] {
	case "health":
		get(client, *baseURL+"/api/v1/health")
	case "version":
		get(client, *baseURL+"/api/v1/version")
	case "providers":
		get(client, *baseURL+"/api/v1/providers")
	case "continue":
		get(client, *baseURL+"/api/v1/continue-watching")
	case "session":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: anibridge session [status|next|previous|stop]")
			os.Exit(2)
		}
		switch args[1] {
		case "status":
			get(client, *baseURL+"/api/v1/session")
		case "next":
			post(client, *baseURL+"/api/v1/session/next", nil)
		case "previous":
			post(client, *baseURL+"/api/v1/session/previous", nil)
		case "stop":
			post(client, *baseURL+"/api/v1/session/stop", nil)
		default:
			fmt.Fprintln(os.Stderr, "Commande session inconnue:", args[1])
			os.Exit(2)
		}
	default:
		fmt.Fprintln(os.Stderr, "Commande inconnue:", args[0])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: anibridge [health|version|providers|continue|session <status|next|previous|stop>]")
}

func get(client *http.Client, url string) {
	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Erreur:", err)
		os.Exit(1)
	}
	dump(resp)
}

func post(client *http.Client, url string, body []byte) {
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintln(os.Stderr, "Erreur:", err)
		os.Exit(1)
	}
	dump(resp)
}

func dump(resp *http.Response) {
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	var pretty any
	if err := json.Unmarshal(b, &pretty); err == nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(pretty)
		if resp.StatusCode >= 400 {
			os.Exit(1)
		}
		return
	}

	os.Stdout.Write(b)
	os.Stdout.Write([]byte("\n"))
	if resp.StatusCode >= 400 {
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
