// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package publish

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/forcetorque/internal/wrench"
)

type NATSSink struct {
	nc *nats.Conn
}

// NewNATSSink connects to url.
func NewNATSSink(url string) (*NATSSink, error) {
	nc, err := nats.Connect(url,
		nats.Name("forcetorque-producer"),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	log.Info().Str("url", url).Msg("publish: connected to NATS")
	return &NATSSink{nc: nc}, nil
}

func (s *NATSSink) Publish(key string, w wrench.Wrench) error {
	payload, err := wrench.Encode(w)
	if err != nil {
		return err
	}
	subject := NATSSubject(key)
	if err := s.nc.Publish(subject, payload); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

func (s *NATSSink) Close() error {
	if err := s.nc.Drain(); err != nil {
		s.nc.Close()
		return err
	}
	return nil
}
