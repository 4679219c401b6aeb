// Package publisher pushes per-block status frames to NATS for renderer
// clients to consume.
package publisher

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"tram-simulator/internal/geo"
)

type NATSPublisher struct {
	nc          *nats.Conn
	logSubjects bool
	metrics     PublisherMetrics
}

// PublisherMetrics decouples the publisher from the metrics package.
type PublisherMetrics interface {
	FramePublishedInc()
	FramePublishErrInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

func NewNATSPublisher(url string, logSubjects bool, m PublisherMetrics) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("tram-simulator"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Warn().Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Info().Msg("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Info().Msg("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return &NATSPublisher{nc: nc, logSubjects: logSubjects, metrics: m}, nil
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}

// FrameMessage is one block's state at one simulated minute. Position and
// Bearing are omitted when the block has no geographic position.
type FrameMessage struct {
	BlockID   string     `json:"blockId"`
	LineID    string     `json:"lineId"`
	ServiceID string     `json:"serviceId"`
	Status    string     `json:"status"`
	Position  *geo.Point `json:"position,omitempty"`
	Bearing   *float64   `json:"bearing,omitempty"`
	SimMinute int        `json:"simMinute"`
	Clock     string     `json:"clock"`
	Timestamp time.Time  `json:"timestamp"`
}

// PublishFrame publishes a frame on "tram.<line>.<block>".
func (p *NATSPublisher) PublishFrame(msg FrameMessage) error {
	subject := fmt.Sprintf("tram.%s.%s", subjectToken(msg.LineID), subjectToken(msg.BlockID))
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if p.logSubjects {
		log.Debug().Str("subject", subject).Msg("nats publish")
	}
	start := time.Now()
	err = p.nc.Publish(subject, b)
	if p.metrics != nil {
		p.metrics.PublishObserve(time.Since(start))
		if err != nil {
			p.metrics.FramePublishErrInc()
		} else {
			p.metrics.FramePublishedInc()
		}
	}
	return err
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
