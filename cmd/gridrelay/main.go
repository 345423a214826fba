package main

import (
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/Comcast/gridbus/bus"
	"github.com/Comcast/gridbus/util"
)

func main() {

	var (
		port           = flag.String("p", ":8800", "port (host:port) for the relay")
		token          = flag.String("token", "", "bearer token required on every request")
		pendingTimeout = flag.Duration("pending", 30*time.Second, "how long a command may wait for its result")
		pollTimeout    = flag.Duration("poll", 10*time.Second, "how long a poll may block")
	)

	flag.BoolVar(&util.Logging, "v", false, "log lots of wonderful things")

	flag.Parse()

	if *token == "" {
		log.Fatal("refusing to relay without a -token")
	}

	r := bus.NewRelay(*token)
	r.PendingTimeout = *pendingTimeout
	r.PollTimeout = *pollTimeout

	s := &http.Server{
		Addr:    *port,
		Handler: r.Handler(),

		// No ReadTimeout/WriteTimeout: both /command and /poll
		// hold their connections open on purpose.
		MaxHeaderBytes: 1 << 20,
	}

	log.Printf("relay on %s", *port)
	log.Fatal(s.ListenAndServe())
}
