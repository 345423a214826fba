package main

import (
	"context"
	"io/ioutil"
	"log"

	"github.com/Comcast/gridbus/bus"
	"github.com/Comcast/gridbus/util"
	. "github.com/Comcast/gridbus/util/testutil"

	"github.com/jsccast/yaml"
)

// Config is gridd's YAML configuration.
type Config struct {
	// Name is the workbook name (and the storage key).
	Name string `yaml:"name"`

	// SetupScript, when given, is stored on the workbook and
	// executed once at boot.
	SetupScript string `yaml:"setupScript"`

	// Cells are initial cells (ref to content), applied at boot
	// through ordinary setCell commands.
	Cells map[string]string `yaml:"cells"`

	DBFile   string `yaml:"dbFile"`
	HTTPPort string `yaml:"httpPort"`

	RelayURL       string `yaml:"relay"`
	Token          string `yaml:"token"`
	PollIntervalMS int    `yaml:"pollIntervalMS"`

	MQTTBroker   string `yaml:"mqttBroker"`
	MQTTClientID string `yaml:"mqttClientId"`
}

func LoadConfig(filename string) (*Config, error) {
	cfg := &Config{
		Name:         "workbook",
		MQTTClientID: "gridd",
	}
	if filename == "" {
		return cfg, nil
	}
	bs, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(bs, cfg); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = "workbook"
	}
	return cfg, nil
}

// Override applies non-empty command-line values over the file.
func (cfg *Config) Override(name, dbFile, httpPort, relayURL, token string) {
	if name != "" {
		cfg.Name = name
	}
	if dbFile != "" {
		cfg.DBFile = dbFile
	}
	if httpPort != "" {
		cfg.HTTPPort = httpPort
	}
	if relayURL != "" {
		cfg.RelayURL = relayURL
	}
	if token != "" {
		cfg.Token = token
	}
}

// Boot applies the config's setup script and initial cells through the
// bus, so booting looks exactly like remote traffic.
func (cfg *Config) Boot(ctx context.Context, b *bus.Bus) {
	if cfg.SetupScript != "" {
		cfg.call(ctx, b, "setSetupScript", map[string]interface{}{
			"script": cfg.SetupScript,
		})
		cfg.call(ctx, b, "executeSetupScript", nil)
	}

	for ref, content := range cfg.Cells {
		cfg.call(ctx, b, "setCell", map[string]interface{}{
			"ref":     ref,
			"content": content,
		})
	}
}

func (cfg *Config) call(ctx context.Context, b *bus.Bus, command string, params map[string]interface{}) {
	resp, err := b.Call(ctx, bus.Envelope{
		Command: command,
		Params:  params,
	})
	if err != nil {
		log.Printf("gridd boot %s error %v", command, err)
		return
	}
	if !resp.Success {
		log.Printf("gridd boot %s failed: %s", command, resp.Error)
		return
	}
	util.Logf("gridd boot %s %s", command, JS(resp.Result))
}
