// Command whois asks a running skelid responder who is in front of the
// sensor.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ayusman/skelid/internal/responder"
)

func main() {
	addr := flag.String("addr", "tcp://127.0.0.1:2804", "responder endpoint")
	timeout := flag.Duration("timeout", responder.DefaultTimeout, "how long to wait for a reply")
	request := flag.String("request", responder.Query, "request payload")
	flag.Parse()

	name, err := responder.Ask(context.Background(), *addr, *request, *timeout)
	if err != nil {
		log.Fatalf("whois: %v", err)
	}

	if name == "" {
		fmt.Println("Nobody recognized")
		os.Exit(1)
	}
	fmt.Println(name)
}
