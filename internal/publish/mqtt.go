// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package publish

import (
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/forcetorque/internal/wrench"
)

// MQTTSink publishes retained QoS 0 messages so late subscribers get the
// latest wrench immediately.
type MQTTSink struct {
	client mqtt.Client
}

// NewMQTTSink connects to broker.
func NewMQTTSink(broker, clientID string) (*MQTTSink, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	log.Info().Str("broker", broker).Str("client_id", clientID).Msg("publish: connected to MQTT")
	return &MQTTSink{client: client}, nil
}

func (s *MQTTSink) Publish(key string, w wrench.Wrench) error {
	payload, err := wrench.Encode(w)
	if err != nil {
		return err
	}
	topic := MQTTTopic(key)
	if token := s.client.Publish(topic, 0, true, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, token.Error())
	}
	return nil
}

func (s *MQTTSink) Close() error {
	s.client.Disconnect(250)
	return nil
}
