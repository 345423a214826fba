package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/Comcast/gridbus/protocol"
	"github.com/Comcast/gridbus/util"
)

// Poller is the workbook host's side of the relay transport.
//
// On a fixed interval it asks the relay for queued commands, executes
// each through the bus (so dispatch stays on the single in-process
// path), and posts the results back.
type Poller struct {
	RelayURL string
	Token    string

	// Interval between polls.  Defaults to 100ms.
	Interval time.Duration

	// PollTimeout is how long each poll may block server-side.
	PollTimeout time.Duration

	Bus *Bus

	jar *Jar
}

func NewPoller(relayURL, token string, b *Bus) *Poller {
	jar, err := NewJar()
	if err != nil {
		// cookiejar.New can't actually fail with these options.
		panic(err)
	}
	return &Poller{
		RelayURL:    relayURL,
		Token:       token,
		Interval:    100 * time.Millisecond,
		PollTimeout: 5 * time.Second,
		Bus:         b,
		jar:         jar,
	}
}

// Run polls until the context is canceled.
func (p *Poller) Run(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.poll(ctx); err != nil {
				log.Printf("Poller poll error %v", err)
			}
		}
	}
}

func (p *Poller) poll(ctx context.Context) error {
	req := &HTTPRequest{
		Method:    "GET",
		URL:       fmt.Sprintf("%s/poll?timeout=%s", p.RelayURL, p.PollTimeout),
		Token:     p.Token,
		CookieJar: p.jar,
	}

	var cmds []protocol.Command
	err := req.Do(ctx, func(ctx context.Context, resp *HTTPResponse) error {
		if resp.Error != nil {
			return resp.Error
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("poll status %s", resp.Status)
		}
		return json.Unmarshal([]byte(resp.Body), &cmds)
	})
	if err != nil {
		return err
	}

	for _, cmd := range cmds {
		if cmd.RequestID == "" {
			cmd.RequestID = util.Gensym(16)
		}
		res, err := p.Bus.Execute(ctx, cmd)
		if err != nil {
			res = protocol.Errf(cmd.RequestID, "%s", err)
		}
		if err := p.report(ctx, res); err != nil {
			log.Printf("Poller report error %v for %s", err, cmd.RequestID)
		}
	}

	return nil
}

func (p *Poller) report(ctx context.Context, res protocol.Result) error {
	js, err := json.Marshal(&res)
	if err != nil {
		return err
	}

	req := &HTTPRequest{
		Method:    "POST",
		URL:       p.RelayURL + "/result",
		Body:      string(js),
		Token:     p.Token,
		CookieJar: p.jar,
	}

	return req.Do(ctx, func(ctx context.Context, resp *HTTPResponse) error {
		if resp.Error != nil {
			return resp.Error
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("result status %s", resp.Status)
		}
		return nil
	})
}
