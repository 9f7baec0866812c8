// Command telemetry-client posts one sensor reading to the relay's CoAP
// gateway, the way the vehicle firmware does.
package main

import (
	"bytes"
	"context"
	"flag"
	"time"

	"com.aiac.relay/pkg/core/store/sensors"
	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/fxamacker/cbor/v2"
	"github.com/plgd-dev/go-coap/v2/message"
	"github.com/plgd-dev/go-coap/v2/udp"
)

func main() {
	log.SetHandler(cli.Default)

	addr := flag.String("addr", "127.0.0.1:5688", "gateway address")
	temperature := flag.Float64("temperature", 32.5, "battery temperature")
	position := flag.String("position", "A1", "current position")
	battery := flag.String("battery", "ok", "battery status")
	lights := flag.Bool("lights", false, "lights on")
	flag.Parse()

	payload, err := cbor.Marshal(sensors.SensorData{
		BatteryTemperature: *temperature,
		CurrentPosition:    *position,
		BatteryStatus:      *battery,
		LightsOn:           *lights,
	})
	if err != nil {
		log.Fatalf("Error encoding payload: %v", err)
	}

	co, err := udp.Dial(*addr)
	if err != nil {
		log.Fatalf("Error dialing: %v", err)
	}
	defer co.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	resp, err := co.Post(ctx, "/sensor", message.AppCBOR, bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("Error sending request: %v", err)
	}
	log.Infof("Response: %v", resp.Code())
}
