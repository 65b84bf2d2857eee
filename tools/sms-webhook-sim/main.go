// Command sms-webhook-sim is a local stand-in for an SMS gateway webhook.
// Point the notification service's SMS_WEBHOOK_URL at it and every message
// the service would text out is printed to stdout instead.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

func main() {
	var (
		addr  = flag.String("addr", getenv("ADDR", ":9090"), "listen address")
		token = flag.String("token", getenv("SMS_WEBHOOK_TOKEN", ""), "expected bearer token (empty disables the check)")
		fail  = flag.String("fail-suffix", getenv("FAIL_SUFFIX", ""), "reject numbers with this suffix, for testing FAILED paths")
	)
	flag.Parse()

	http.HandleFunc("/sms", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if *token != "" && r.Header.Get("Authorization") != "Bearer "+*token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var payload struct {
			To   string `json:"to"`
			Body string `json:"body"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "bad payload", http.StatusBadRequest)
			return
		}
		if *fail != "" && strings.HasSuffix(payload.To, *fail) {
			fmt.Printf("%s REJECTED to=%s body=%q\n", time.Now().UTC().Format(time.RFC3339), payload.To, payload.Body)
			http.Error(w, "simulated gateway failure", http.StatusBadGateway)
			return
		}

		fmt.Printf("%s DELIVERED to=%s body=%q\n", time.Now().UTC().Format(time.RFC3339), payload.To, payload.Body)
		w.WriteHeader(http.StatusNoContent)
	})

	fmt.Fprintf(os.Stderr, "sms-webhook-sim listening on %s\n", *addr)
	if err := http.ListenAndServe(*addr, nil); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
