// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/physic"

	"github.com/relabs-tech/forcetorque/internal/config"
	"github.com/relabs-tech/forcetorque/internal/publish"
	"github.com/relabs-tech/forcetorque/internal/wrench"
)

// RunConsoleMQTT prints every wrench the producer publishes over MQTT until
// interrupted.
func RunConsoleMQTT() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Info().Str("broker", cfg.MQTTBroker).Msg("console: connected to MQTT broker")

	topic := publish.MQTTTopic(cfg.PublishKey)
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		w, err := wrench.Decode(msg.Payload())
		if err != nil {
			log.Warn().Err(err).Str("topic", msg.Topic()).Msg("console: bad payload")
			return
		}
		fmt.Println(formatPhysical(w))
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Info().Str("topic", topic).Msg("console: subscribed")

	done := make(chan struct{})
	release := stopOnSignal(func() { close(done) })
	defer release()
	<-done
	return nil
}

func newtons(v float64) physic.Force {
	return physic.Force(v * float64(physic.Newton))
}

// formatPhysical prints forces with SI prefixes and torques in N·m.
func formatPhysical(w wrench.Wrench) string {
	f, t := w.Force(), w.Torque()
	return fmt.Sprintf(
		"[FT] Fx=%-10s Fy=%-10s Fz=%-10s  Tx=%+.4fN·m Ty=%+.4fN·m Tz=%+.4fN·m",
		newtons(f[0]), newtons(f[1]), newtons(f[2]), t[0], t[1], t[2],
	)
}
