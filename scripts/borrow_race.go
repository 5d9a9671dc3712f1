//go:build ignore
// +build ignore

// Manual concurrency stress test for the borrow endpoint.
//
// Usage:
//
//	go run ./scripts/borrow_race.go <book_id> <token1> [token2 ...]
//
// Or via environment variables:
//
//	BOOK_ID=<uuid> TOKENS=<t1>,<t2>,... go run ./scripts/borrow_race.go
//
// What it does:
//  1. Fires one goroutine per session token, all attempting to borrow the same
//     book simultaneously.
//  2. Prints how many borrows committed vs. were rejected.
//  3. Exactly one borrow must succeed when the book starts on the shelf; the
//     versioned commit rejects every other attempt.
//
// Prerequisites:
//   - Server running; one unborrowed book; one logged-in reader per token
//     (POST /login to obtain tokens).

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

const defaultServerAddr = "http://localhost:8080"

type borrowResult struct {
	Token      string
	StatusCode int
	Message    string
	Err        error
}

func main() {
	serverAddr := os.Getenv("SERVER_ADDR")
	if serverAddr == "" {
		serverAddr = defaultServerAddr
	}

	bookID := os.Getenv("BOOK_ID")
	var tokens []string
	if env := os.Getenv("TOKENS"); env != "" {
		tokens = strings.Split(env, ",")
	}

	args := os.Args[1:]
	if len(args) >= 1 {
		bookID = args[0]
	}
	if len(args) >= 2 {
		tokens = args[1:]
	}

	if bookID == "" || len(tokens) == 0 {
		log.Fatal("Usage: BOOK_ID=<uuid> TOKENS=<t1,t2,...> go run ./scripts/borrow_race.go\n" +
			"  or: go run ./scripts/borrow_race.go <book_id> <token1> [token2 ...]")
	}

	fmt.Printf("=== Borrow Race Test ===\n")
	fmt.Printf("Server  : %s\n", serverAddr)
	fmt.Printf("Book    : %s\n", bookID)
	fmt.Printf("Readers : %d\n\n", len(tokens))

	results := make([]borrowResult, len(tokens))
	var wg sync.WaitGroup

	// Barrier so all requests leave at once.
	start := make(chan struct{})

	for i, token := range tokens {
		wg.Add(1)
		go func(idx int, t string) {
			defer wg.Done()
			<-start
			results[idx] = attemptBorrow(serverAddr, bookID, strings.TrimSpace(t))
		}(i, token)
	}

	fmt.Println("Firing all requests simultaneously...")
	close(start)

	wg.Wait()
	fmt.Print("All requests completed.\n\n")

	var borrowed, rejected, failures int
	for i, r := range results {
		switch {
		case r.Err != nil:
			failures++
			fmt.Printf("  [ERR ] reader=%d err=%v\n", i+1, r.Err)
		case r.StatusCode == http.StatusOK:
			borrowed++
			fmt.Printf("  [BORR] reader=%d status=%d\n", i+1, r.StatusCode)
		case r.StatusCode == http.StatusConflict:
			rejected++
			fmt.Printf("  [REJ ] reader=%d status=%d message=%s\n", i+1, r.StatusCode, r.Message)
		default:
			failures++
			fmt.Printf("  [FAIL] reader=%d status=%d message=%s\n", i+1, r.StatusCode, r.Message)
		}
	}

	fmt.Printf("\n--- Summary ---\n")
	fmt.Printf("Borrowed : %d\n", borrowed)
	fmt.Printf("Rejected : %d\n", rejected)
	fmt.Printf("Failures : %d\n", failures)
	fmt.Printf("Total    : %d\n\n", len(tokens))

	if borrowed != 1 {
		fmt.Printf("[WARNING] expected exactly 1 committed borrow, got %d — the versioned commit is broken.\n", borrowed)
		os.Exit(1)
	}
	if failures > 0 {
		fmt.Printf("[WARNING] %d request(s) failed — check server logs for details.\n", failures)
		os.Exit(1)
	}
	fmt.Println("Invariant holds: exactly one borrow committed.")
}

// attemptBorrow sends POST /books/{bookID}/borrow with the given session token.
func attemptBorrow(serverAddr, bookID, token string) borrowResult {
	url := fmt.Sprintf("%s/books/%s/borrow", serverAddr, bookID)

	req, err := http.NewRequest(http.MethodPost, url, nil)
	if err != nil {
		return borrowResult{Token: token, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return borrowResult{Token: token, Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	var parsed map[string]interface{}
	message := ""
	if err := json.Unmarshal(raw, &parsed); err == nil {
		if m, ok := parsed["error"].(string); ok {
			message = m
		}
	}

	return borrowResult{
		Token:      token,
		StatusCode: resp.StatusCode,
		Message:    message,
	}
}
