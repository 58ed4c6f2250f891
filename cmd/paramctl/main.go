// Command paramctl is a small client for the stairguard HTTP API: read the
// live parameter set, apply tuning changes, and inspect the classifier state
// from a laptop while the robot is driving.
//
// Usage:
//
//	paramctl [-monitor URL] get
//	paramctl [-monitor URL] set name=value [name=value ...]
//	paramctl [-monitor URL] state
//	paramctl [-monitor URL] transitions [-limit N]
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

func main() {
	monitorURL := flag.String("monitor", "http://localhost:8000", "Base URL for the stairguard monitor")
	limit := flag.Int("limit", 20, "Number of transitions to fetch")
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	var err error
	switch args[0] {
	case "get":
		err = getParams(client, *monitorURL)
	case "set":
		err = setParams(client, *monitorURL, args[1:])
	case "state":
		err = getState(client, *monitorURL)
	case "transitions":
		err = getTransitions(client, *monitorURL, *limit)
	default:
		log.Fatalf("unknown command %q", args[0])
	}
	if err != nil {
		log.Fatalf("%s: %v", args[0], err)
	}
}

func getParams(client *http.Client, baseURL string) error {
	var set map[string]float64
	if err := getJSON(client, baseURL+"/params", &set); err != nil {
		return err
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%-28s %g\n", name, set[name])
	}
	return nil
}

func setParams(client *http.Client, baseURL string, pairs []string) error {
	if len(pairs) == 0 {
		return fmt.Errorf("no name=value pairs given")
	}
	partial := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("expected name=value, got %q", pair)
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", name, err)
		}
		partial[name] = v
	}

	data, err := json.Marshal(partial)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, baseURL+"/params", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var result struct {
		Applied  map[string]float64 `json:"applied"`
		Rejected map[string]string  `json:"rejected"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode response (HTTP %d): %w", resp.StatusCode, err)
	}
	for name, v := range result.Applied {
		fmt.Printf("applied  %-28s %g\n", name, v)
	}
	for name, reason := range result.Rejected {
		fmt.Printf("rejected %-28s %s\n", name, reason)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("no parameters applied (HTTP %d)", resp.StatusCode)
	}
	return nil
}

func getState(client *http.Client, baseURL string) error {
	resp, err := client.Get(baseURL + "/state")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		fmt.Println("no classification published yet")
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		return err
	}
	fmt.Println(pretty.String())
	return nil
}

func getTransitions(client *http.Client, baseURL string, limit int) error {
	url := fmt.Sprintf("%s/transitions?limit=%d", baseURL, limit)
	var transitions []struct {
		From  string    `json:"from_label"`
		To    string    `json:"to_label"`
		Cycle int64     `json:"cycle"`
		At    time.Time `json:"at"`
	}
	if err := getJSON(client, url, &transitions); err != nil {
		return err
	}
	if len(transitions) == 0 {
		fmt.Println("no transitions recorded")
		return nil
	}
	for _, t := range transitions {
		fmt.Printf("%s  cycle %-8d %s -> %s\n", t.At.Format(time.RFC3339), t.Cycle, t.From, t.To)
	}
	return nil
}

func getJSON(client *http.Client, url string, out any) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
