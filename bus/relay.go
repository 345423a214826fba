/* Copyright 2026 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package bus

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Comcast/gridbus/protocol"
	"github.com/Comcast/gridbus/util"
)

// Relay queues commands for a workbook host that cannot accept inbound
// connections.  A caller POSTs a command to /command; the host long
// polls /poll, executes, and POSTs the result to /result; the relay
// then completes the caller's original request, matched strictly by
// requestId.
//
// The price is one polling interval of latency.  The prize is reaching
// a sandboxed process with no listening socket.
type Relay struct {
	// Token is the bearer token every request must carry.
	Token string

	// PendingTimeout bounds how long a caller's command may sit
	// unanswered (queued, or polled but never resulted) before
	// the relay gives up with a transport error.
	PendingTimeout time.Duration

	// PollTimeout bounds how long /poll blocks waiting for work.
	PollTimeout time.Duration

	sync.Mutex
	queue   []protocol.Command
	waiters map[string]chan protocol.Result
	sigs    *Signals
}

func NewRelay(token string) *Relay {
	return &Relay{
		Token:          token,
		PendingTimeout: 30 * time.Second,
		PollTimeout:    10 * time.Second,
		waiters:        make(map[string]chan protocol.Result, 8),
		sigs:           NewSignals(),
	}
}

// Handler returns the relay's HTTP handler.
func (r *Relay) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/command", r.handleCommand)
	mux.HandleFunc("/poll", r.handlePoll)
	mux.HandleFunc("/result", r.handleResult)
	mux.HandleFunc("/ping", func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprintf(w, "\"pong\"\n")
	})
	return mux
}

func (r *Relay) authed(w http.ResponseWriter, req *http.Request) bool {
	auth := req.Header.Get("Authorization")
	tok := strings.TrimPrefix(auth, "Bearer ")
	if auth == "" || tok == auth || tok != r.Token {
		w.WriteHeader(http.StatusUnauthorized)
		writeJSON(w, protocol.Errf("", "unauthorized"))
		return false
	}
	return true
}

// handleCommand accepts one command from a caller and blocks until the
// host posts its result or the pending timeout passes.
func (r *Relay) handleCommand(w http.ResponseWriter, req *http.Request) {
	if !r.authed(w, req) {
		return
	}

	js, err := ioutil.ReadAll(req.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, protocol.Errf("", "ReadAll error %v", err))
		return
	}

	var cmd protocol.Command
	if err := json.Unmarshal(js, &cmd); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, protocol.Errf("", "bad command: %v", err))
		return
	}
	if cmd.RequestID == "" {
		cmd.RequestID = util.Gensym(16)
	}
	// The host never needs the caller's credential.
	cmd.AuthToken = ""

	resultC := make(chan protocol.Result, 1)

	r.Lock()
	if _, dup := r.waiters[cmd.RequestID]; dup {
		r.Unlock()
		w.WriteHeader(http.StatusConflict)
		writeJSON(w, protocol.Errf(cmd.RequestID, "duplicate requestId"))
		return
	}
	r.waiters[cmd.RequestID] = resultC
	r.queue = append(r.queue, cmd)
	r.Unlock()
	r.sigs.Signal()

	timer := time.NewTimer(r.PendingTimeout)
	defer timer.Stop()

	select {
	case res := <-resultC:
		writeJSON(w, res)
	case <-timer.C:
		r.drop(cmd.RequestID)
		w.WriteHeader(http.StatusGatewayTimeout)
		writeJSON(w, protocol.Errf(cmd.RequestID, "relay timeout"))
	case <-req.Context().Done():
		r.drop(cmd.RequestID)
	}
}

// handlePoll hands the host everything queued, blocking up to
// PollTimeout when the queue is empty.
func (r *Relay) handlePoll(w http.ResponseWriter, req *http.Request) {
	if !r.authed(w, req) {
		return
	}

	timeout := r.PollTimeout
	if d, err := time.ParseDuration(req.FormValue("timeout")); err == nil {
		timeout = d
	}

	cmds := r.take()
	if len(cmds) == 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-req.Context().Done():
		case <-timer.C:
		case <-r.sigs.C():
			cmds = r.take()
		}
	}

	if cmds == nil {
		cmds = []protocol.Command{}
	}
	writeJSON(w, cmds)
}

// handleResult matches a host result back to its waiting caller.
func (r *Relay) handleResult(w http.ResponseWriter, req *http.Request) {
	if !r.authed(w, req) {
		return
	}

	js, err := ioutil.ReadAll(req.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, protocol.Errf("", "ReadAll error %v", err))
		return
	}

	var res protocol.Result
	if err := json.Unmarshal(js, &res); err != nil || res.RequestID == "" {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, protocol.Errf("", "bad result"))
		return
	}

	r.Lock()
	c, have := r.waiters[res.RequestID]
	delete(r.waiters, res.RequestID)
	r.Unlock()

	if !have {
		// The caller timed out or hung up before the host
		// answered.  Nothing to complete.
		log.Printf("Relay result for unknown request %s", res.RequestID)
		w.WriteHeader(http.StatusGone)
		writeJSON(w, protocol.Errf(res.RequestID, "no such pending request"))
		return
	}

	c <- res
	writeJSON(w, map[string]interface{}{"success": true})
}

func (r *Relay) take() []protocol.Command {
	r.Lock()
	cmds := r.queue
	r.queue = nil
	r.Unlock()
	return cmds
}

func (r *Relay) drop(requestID string) {
	r.Lock()
	delete(r.waiters, requestID)
	for i, cmd := range r.queue {
		if cmd.RequestID == requestID {
			r.queue = append(r.queue[:i], r.queue[i+1:]...)
			break
		}
	}
	r.Unlock()
}

func writeJSON(w http.ResponseWriter, x interface{}) {
	w.Header().Set("Content-Type", "application/json")
	js, err := json.Marshal(&x)
	if err != nil {
		js = []byte(`{"success":false,"error":"marshal error"}`)
	}
	fmt.Fprintf(w, "%s\n", js)
}

// Nothings is a channel of nothing.
//
// A Nothings can be used as a semaphore.
type Nothings chan struct{}

// Signals is sort of a sequence of semaphores that can report when new
// work has arrived.
type Signals struct {
	sync.Mutex
	c Nothings
}

func NewSignals() *Signals {
	return &Signals{
		c: make(Nothings),
	}
}

// Signal tells the Signals that something has happened.
func (s *Signals) Signal() {
	s.Lock()
	close(s.c)
	s.c = make(Nothings)
	s.Unlock()
}

// C returns a channel that is closed upon a Signal().
func (s *Signals) C() Nothings {
	s.Lock()
	c := s.c
	s.Unlock()
	return c
}
