package notification

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// successRates are the simulated delivery success probabilities per channel.
var successRates = map[string]float64{
	ChannelWhatsApp: 0.95,
	ChannelEmail:    0.92,
	ChannelSMS:      0.98,
	ChannelVoice:    0.85,
}

// SuccessRate returns the simulated success probability of channel.
func SuccessRate(channel string) float64 {
	if r, ok := successRates[channel]; ok {
		return r
	}
	return 0.9
}

// Simulator fakes provider deliveries. A fixed seed makes outcomes reproducible.
type Simulator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewSimulator creates a simulator. seed 0 seeds from the clock.
func NewSimulator(seed int64) *Simulator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulator{
		rng: rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1|1)),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Deliver simulates msg and records reason as the simulation cause.
func (s *Simulator) Deliver(msg Message, reason string) *Delivery {
	s.mu.Lock()
	roll := s.rng.Float64()
	duration := 30 + s.rng.IntN(150)
	s.mu.Unlock()

	now := s.now()
	d := &Delivery{
		Provider:         ProviderSimulation,
		ExternalID:       fmt.Sprintf("sim_%s_%d", msg.Channel, now.UnixNano()),
		Simulated:        true,
		SimulationReason: reason,
		SentAt:           now,
	}

	if roll < SuccessRate(msg.Channel) {
		d.Status = StatusDelivered
		if msg.Channel == ChannelVoice {
			d.Answered = true
			d.DurationSeconds = duration
		}
	} else {
		d.Status = StatusFailed
		d.Error = "simulated delivery failure"
	}
	return d
}
