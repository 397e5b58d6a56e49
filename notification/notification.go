package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"api-monitor/model"
)

var ErrChannelInactive = errors.New("Channel is not active")

// Alert is the channel-independent view of one notification.
type Alert struct {
	MonitorName string
	MonitorURL  string
	Status      model.MonitorStatus
	Message     string
	SentAt      time.Time
}

func (a Alert) statusText() string {
	if a.Status == model.StatusDown {
		return "DOWN"
	}
	return "UP"
}

// Sender delivers alerts for one channel type.
type Sender interface {
	Type() model.ChannelType
	Send(ctx context.Context, channel *model.NotificationChannel, alert Alert) error
}

// Dispatcher routes alerts to the sender registered for a channel's type.
type Dispatcher struct {
	mu      sync.RWMutex
	senders map[model.ChannelType]Sender
	now     func() time.Time
}

func NewDispatcher(senders ...Sender) *Dispatcher {
	d := &Dispatcher{
		senders: make(map[model.ChannelType]Sender),
		now:     time.Now,
	}
	for _, s := range senders {
		d.Register(s)
	}
	return d
}

// Register installs s, replacing any sender for the same type.
func (d *Dispatcher) Register(s Sender) {
	d.mu.Lock()
	d.senders[s.Type()] = s
	d.mu.Unlock()
}

func (d *Dispatcher) Send(ctx context.Context, channel *model.NotificationChannel, m *model.Monitor, status model.MonitorStatus, message string) error {
	if !channel.IsActive {
		return ErrChannelInactive
	}

	d.mu.RLock()
	sender, ok := d.senders[channel.Type]
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("Unknown channel type: %s", channel.Type)
	}

	return sender.Send(ctx, channel, Alert{
		MonitorName: m.Name,
		MonitorURL:  m.URL,
		Status:      status,
		Message:     message,
		SentAt:      d.now(),
	})
}
