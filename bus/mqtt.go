package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/Comcast/gridbus/protocol"
	"github.com/Comcast/gridbus/util"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTTransport pairs a command topic with a response topic on a
// broker.  Callers publish protocol.Commands (carrying their bearer
// token in the payload, since MQTT has no per-message headers) to
// CommandTopic; results come back on ResponseTopic, correlated by
// requestId.
type MQTTTransport struct {
	Broker   string
	ClientID string

	CommandTopic  string
	ResponseTopic string

	// Token must match each command's authToken.
	Token string

	// Quiesce is the disconnection quiescence in milliseconds.
	Quiesce uint

	QoS byte

	Bus *Bus

	client mqtt.Client
}

func NewMQTTTransport(broker, clientID string, b *Bus) *MQTTTransport {
	return &MQTTTransport{
		Broker:        broker,
		ClientID:      clientID,
		CommandTopic:  "gridbus/commands",
		ResponseTopic: "gridbus/responses",
		Quiesce:       100,
		Bus:           b,
	}
}

// Run connects, subscribes, and serves until the context is canceled.
func (t *MQTTTransport) Run(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(t.Broker)
	opts.SetClientID(t.ClientID)
	opts.SetKeepAlive(10 * time.Second)

	t.client = mqtt.NewClient(opts)
	if tok := t.client.Connect(); tok.Wait() && tok.Error() != nil {
		return fmt.Errorf("MQTT connect: %w", tok.Error())
	}

	handler := func(client mqtt.Client, msg mqtt.Message) {
		var cmd protocol.Command
		if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
			t.publish(protocol.Errf("", "bad command: %v", err))
			return
		}

		if t.Token != "" && cmd.AuthToken != t.Token {
			t.publish(protocol.Errf(cmd.RequestID, "unauthorized"))
			return
		}
		if cmd.RequestID == "" {
			cmd.RequestID = util.Gensym(16)
		}

		res, err := t.Bus.Execute(ctx, cmd)
		if err != nil {
			res = protocol.Errf(cmd.RequestID, "%s", err)
		}
		t.publish(res)
	}

	if tok := t.client.Subscribe(t.CommandTopic, t.QoS, handler); tok.Wait() && tok.Error() != nil {
		return fmt.Errorf("MQTT subscribe %s: %w", t.CommandTopic, tok.Error())
	}

	log.Printf("MQTTTransport serving %s -> %s on %s", t.CommandTopic, t.ResponseTopic, t.Broker)

	<-ctx.Done()
	t.client.Disconnect(t.Quiesce)
	return ctx.Err()
}

func (t *MQTTTransport) publish(res protocol.Result) {
	js, err := json.Marshal(&res)
	if err != nil {
		log.Printf("MQTTTransport marshal error %v", err)
		return
	}
	if tok := t.client.Publish(t.ResponseTopic, t.QoS, false, js); tok.Wait() && tok.Error() != nil {
		log.Printf("MQTTTransport publish error %v", tok.Error())
	}
}
