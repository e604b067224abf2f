// Package main is a hook that greets recognized people out loud.
// It uses say on macOS and espeak elsewhere.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// Event is the input written by the hook executor.
type Event struct {
	Type   string          `json:"event"`
	Name   string          `json:"name"`
	Config json.RawMessage `json:"config"`
}

// Response is the output read by the hook executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type settings struct {
	Greeting string `json:"greeting"`
	Welcome  string `json:"welcome"`
}

func main() {
	var ev Event
	if err := json.NewDecoder(os.Stdin).Decode(&ev); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode event: %v", err))
		return
	}

	s := settings{Greeting: "Hello, %s", Welcome: "Welcome, %s. You are enrolled."}
	if len(ev.Config) > 0 {
		if err := json.Unmarshal(ev.Config, &s); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid config: %v", err))
			return
		}
	}

	var text string
	switch ev.Type {
	case "identified":
		text = fmt.Sprintf(s.Greeting, ev.Name)
	case "enrolled":
		text = fmt.Sprintf(s.Welcome, ev.Name)
	default:
		writeErrorResponse(fmt.Sprintf("unknown event: %s", ev.Type))
		return
	}

	if err := speak(text); err != nil {
		writeErrorResponse(fmt.Sprintf("speak failed: %v", err))
		return
	}

	data, _ := json.Marshal(map[string]string{"spoken": text})
	json.NewEncoder(os.Stdout).Encode(Response{Success: true, Data: data})
}

func speak(text string) error {
	name := "espeak"
	if runtime.GOOS == "darwin" {
		name = "say"
	}
	output, err := exec.Command(name, text).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

func writeErrorResponse(msg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: msg})
}
