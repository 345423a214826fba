package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/Comcast/gridbus/bus"
	"github.com/Comcast/gridbus/protocol"
	"github.com/Comcast/gridbus/util"
)

// gridctl sends one command to a relay and prints the result.
//
//	gridctl -relay http://localhost:8800 -token secret setCell '{"ref":"A1","content":"10"}'
//	gridctl -relay http://localhost:8800 -token secret getCellValue '{"ref":"A1"}'
func main() {

	var (
		relayURL  = flag.String("relay", "http://localhost:8800", "relay base URL")
		token     = flag.String("token", "", "bearer token")
		requestID = flag.String("id", "", "request id (generated if empty)")
	)

	flag.BoolVar(&util.Logging, "v", false, "log lots of wonderful things")

	flag.Parse()

	args := flag.Args()
	if len(args) < 1 || 2 < len(args) {
		fmt.Fprintf(os.Stderr, "usage: gridctl [flags] COMMAND [PARAMS-JSON]\n")
		fmt.Fprintf(os.Stderr, "commands: %v\n", protocol.Names())
		os.Exit(1)
	}

	cmd := protocol.Command{
		Name:      args[0],
		RequestID: *requestID,
	}
	if cmd.RequestID == "" {
		cmd.RequestID = util.Gensym(16)
	}
	if len(args) == 2 {
		if err := json.Unmarshal([]byte(args[1]), &cmd.Params); err != nil {
			log.Fatalf("bad params: %v", err)
		}
	}

	js, err := json.Marshal(&cmd)
	if err != nil {
		log.Fatal(err)
	}

	req := &bus.HTTPRequest{
		Method: "POST",
		URL:    *relayURL + "/command",
		Body:   string(js),
		Token:  *token,
		Debug:  util.Logging,
	}

	err = req.Do(context.Background(), func(ctx context.Context, resp *bus.HTTPResponse) error {
		if resp.Error != nil {
			return resp.Error
		}
		fmt.Println(resp.Body)

		var res protocol.Result
		if err := json.Unmarshal([]byte(resp.Body), &res); err == nil && !res.Success {
			os.Exit(1)
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}
}
