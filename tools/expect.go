package tools

import (
	"context"
	"fmt"
	"io/ioutil"
	"time"

	"github.com/Comcast/gridbus/bus"
	. "github.com/Comcast/gridbus/util/testutil"

	"gopkg.in/yaml.v2"
)

// Step is one command to send and the response to require.
type Step struct {
	// Doc is an opaque documentation string.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// Command is the command name to send.
	Command string `json:"command" yaml:"command"`

	// Params are the command's params.
	Params map[string]interface{} `json:"params,omitempty" yaml:"params,omitempty"`

	// Success is the success flag the response must carry.
	Success bool `json:"success" yaml:"success"`

	// Result, when given, must subset-match the response result:
	// maps may carry extra keys in the response; everything else
	// compares by JSON equality.
	Result interface{} `json:"result,omitempty" yaml:"result,omitempty"`

	// Error, when given, must equal the response error exactly.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	// Timeout is the optional per-step timeout.
	// Session.DefaultTimeout is the default value.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Session is mostly a sequence of Steps run against a bus.
type Session struct {
	// Doc is an opaque documentation string.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	Steps []Step `json:"steps" yaml:"steps"`

	// DefaultTimeout is the default timeout for each Step.
	DefaultTimeout time.Duration `json:"defaultTimeout,omitempty" yaml:"defaultTimeout,omitempty"`
}

// LoadSession parses a YAML session file.
func LoadSession(filename string) (*Session, error) {
	bs, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseSession(bs)
}

// ParseSession parses YAML session source.
func ParseSession(src []byte) (*Session, error) {
	var s Session
	if err := yaml.Unmarshal(src, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Run sends each step's command through the bus and checks the
// response.  The first mismatch is the error.
func (s *Session) Run(ctx context.Context, b *bus.Bus) error {
	timeout := s.DefaultTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	for i, step := range s.Steps {
		to := step.Timeout
		if to <= 0 {
			to = timeout
		}
		sctx, cancel := context.WithTimeout(ctx, to)
		resp, err := b.Call(sctx, bus.Envelope{
			Command: step.Command,
			Params:  canonParams(step.Params),
		})
		cancel()
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", i, step.Command, err)
		}

		if resp.Success != step.Success {
			return fmt.Errorf("step %d (%s): success %v, wanted %v (error: %s)",
				i, step.Command, resp.Success, step.Success, resp.Error)
		}
		if step.Error != "" && resp.Error != step.Error {
			return fmt.Errorf("step %d (%s): error '%s', wanted '%s'",
				i, step.Command, resp.Error, step.Error)
		}
		if step.Result != nil && !Subsets(step.Result, resp.Result) {
			return fmt.Errorf("step %d (%s): result %s, wanted %s",
				i, step.Command, JS(resp.Result), JS(step.Result))
		}
	}

	return nil
}

// Subsets reports whether want subset-matches got after JSON
// canonicalization: for maps, every key in want must subset-match in
// got; everything else compares by JSON rendering.
func Subsets(want, got interface{}) bool {
	w := Dwimjs(JS(canonValue(want)))
	g := Dwimjs(JS(canonValue(got)))
	return subsets(w, g)
}

func subsets(want, got interface{}) bool {
	wm, is := want.(map[string]interface{})
	if !is {
		return JS(want) == JS(got)
	}
	gm, is := got.(map[string]interface{})
	if !is {
		return false
	}
	for k, wv := range wm {
		gv, have := gm[k]
		if !have || !subsets(wv, gv) {
			return false
		}
	}
	return true
}

// canonParams pushes YAML's map[interface{}]interface{} decoding into
// the map[string]interface{} the protocol wants.
func canonParams(params map[string]interface{}) map[string]interface{} {
	if params == nil {
		return nil
	}
	m, is := canonValue(params).(map[string]interface{})
	if !is {
		return params
	}
	return m
}

// canonValue rewrites YAML's map[interface{}]interface{} values so
// they can pass through encoding/json.
func canonValue(x interface{}) interface{} {
	switch vv := x.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(vv))
		for k, v := range vv {
			m[fmt.Sprintf("%v", k)] = canonValue(v)
		}
		return m
	case map[string]interface{}:
		m := make(map[string]interface{}, len(vv))
		for k, v := range vv {
			m[k] = canonValue(v)
		}
		return m
	case []interface{}:
		acc := make([]interface{}, len(vv))
		for i, v := range vv {
			acc[i] = canonValue(v)
		}
		return acc
	default:
		return x
	}
}
