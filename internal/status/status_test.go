package status

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/naturalys/internal/db"
	"github.com/naturalys/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weekdayOnly() *db.StoreSettings {
	return &db.StoreSettings{
		OpenWeekdays:     true,
		WeekdayOpenTime:  "08:00",
		WeekdayCloseTime: "18:00",
	}
}

func at(day, hour, minute int) time.Time {
	// 2024-03-04 是周一
	return time.Date(2024, 3, 4+day, hour, minute, 0, 0, time.UTC)
}

func TestEvaluate(t *testing.T) {
	full := weekdayOnly()
	full.OpenSaturday = true
	full.SaturdayOpenTime = "09:00"
	full.SaturdayCloseTime = "13:00"

	cases := []struct {
		name     string
		settings *db.StoreSettings
		now      time.Time
		open     bool
		message  string
	}{
		{"nil settings", nil, at(1, 10, 0), false, "🔴 Horário não disponível"},
		{"tuesday morning", weekdayOnly(), at(1, 10, 0), true, "🟢 Aberto agora!"},
		{"opening minute", weekdayOnly(), at(1, 8, 0), true, "🟢 Aberto agora!"},
		{"closing minute", weekdayOnly(), at(1, 18, 0), false, "🔴 Fechado no momento (Abrimos amanhã às 08:00)"},
		{"tuesday evening", weekdayOnly(), at(1, 19, 0), false, "🔴 Fechado no momento (Abrimos amanhã às 08:00)"},
		{"before opening", weekdayOnly(), at(1, 7, 30), false, "🔴 Fechado no momento (Abrimos às 08:00)"},
		{"friday evening skips weekend", weekdayOnly(), at(4, 19, 0), false, "🔴 Fechado no momento (Abrimos segunda às 08:00)"},
		{"friday evening with saturday", full, at(4, 19, 0), false, "🔴 Fechado no momento (Abrimos amanhã às 09:00)"},
		{"saturday open", full, at(5, 12, 59), true, "🟢 Aberto agora!"},
		{"saturday closed", weekdayOnly(), at(5, 10, 0), false, "🔴 Fechado aos sábados (Abrimos segunda às 08:00)"},
		{"sunday closed", weekdayOnly(), at(6, 10, 0), false, "🔴 Fechado aos domingos (Abrimos amanhã às 08:00)"},
		{"never open", &db.StoreSettings{}, at(2, 10, 0), false, "🔴 Fechado no momento"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(tc.settings, tc.now)
			assert.Equal(t, tc.open, got.Open)
			assert.Equal(t, tc.message, got.Message)
		})
	}
}

func TestEvaluateReportsNextOpening(t *testing.T) {
	got := Evaluate(weekdayOnly(), at(4, 20, 0))
	assert.Equal(t, "segunda", got.NextOpenDay)
	assert.Equal(t, "08:00", got.NextOpenTime)
}

type recorder struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (r *recorder) Publish(e realtime.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestMonitorPublishesOnFlip(t *testing.T) {
	settings := weekdayOnly()
	pub := &recorder{}
	m := NewMonitor(func() *db.StoreSettings { return settings }, time.UTC, time.Minute, pub, nil)

	now := at(1, 7, 59)
	m.now = func() time.Time { return now }

	m.tick()
	assert.False(t, m.Last().Open)
	assert.Equal(t, 0, pub.len(), "first evaluation only seeds the state")

	now = at(1, 8, 0)
	m.tick()
	require.True(t, m.Last().Open)
	require.Equal(t, 1, pub.len())
	assert.Equal(t, Table, pub.events[0].Table)

	m.tick()
	assert.Equal(t, 1, pub.len(), "no event without a change")
}

func TestMonitorRunStopsWithContext(t *testing.T) {
	m := NewMonitor(func() *db.StoreSettings { return nil }, nil, 0, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
	assert.Equal(t, "🔴 Horário não disponível", m.Current().Message)
}

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	loc, err = LoadLocation("Not/AZone")
	assert.Error(t, err)
	assert.Equal(t, time.UTC, loc)
}
