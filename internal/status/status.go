package status

import (
	"fmt"
	"time"

	"github.com/naturalys/internal/db"
)

const (
	msgOpen        = "🟢 Aberto agora!"
	msgUnavailable = "🔴 Horário não disponível"
	msgClosed      = "🔴 Fechado no momento"
)

var weekdayNames = map[time.Weekday]string{
	time.Sunday:    "domingo",
	time.Monday:    "segunda",
	time.Tuesday:   "terça",
	time.Wednesday: "quarta",
	time.Thursday:  "quinta",
	time.Friday:    "sexta",
	time.Saturday:  "sábado",
}

// Status 是某一时刻的营业状态
type Status struct {
	Open         bool   `json:"open"`
	Message      string `json:"message"`
	NextOpenDay  string `json:"next_open_day,omitempty"`
	NextOpenTime string `json:"next_open_time,omitempty"`
}

type window struct {
	open        bool
	start, stop string
}

// windowFor 按 工作日 / 周六 / 周日 分组返回当天的营业时间
func windowFor(s *db.StoreSettings, day time.Weekday) window {
	switch day {
	case time.Saturday:
		return window{s.OpenSaturday, s.SaturdayOpenTime, s.SaturdayCloseTime}
	case time.Sunday:
		return window{s.OpenSunday, s.SundayOpenTime, s.SundayCloseTime}
	default:
		return window{s.OpenWeekdays, s.WeekdayOpenTime, s.WeekdayCloseTime}
	}
}

// Evaluate 计算 now 时刻的营业状态，now 应已转换为门店时区。
// 时间按 "HH:MM" 字符串比较，营业区间为 [open, close)。
func Evaluate(settings *db.StoreSettings, now time.Time) Status {
	if settings == nil {
		return Status{Message: msgUnavailable}
	}

	clock := now.Format("15:04")
	today := now.Weekday()
	w := windowFor(settings, today)

	if w.open {
		if clock >= w.start && clock < w.stop {
			return Status{Open: true, Message: msgOpen}
		}
		if clock < w.start {
			return Status{
				Message:      fmt.Sprintf("%s (Abrimos às %s)", msgClosed, w.start),
				NextOpenDay:  weekdayNames[today],
				NextOpenTime: w.start,
			}
		}
	}

	prefix := msgClosed
	if !w.open {
		switch today {
		case time.Sunday:
			prefix = "🔴 Fechado aos domingos"
		case time.Saturday:
			prefix = "🔴 Fechado aos sábados"
		}
	}

	offset, day, next, ok := nextOpening(settings, today)
	if !ok {
		return Status{Message: prefix}
	}

	label := weekdayNames[day]
	if offset == 1 {
		label = "amanhã"
	}
	return Status{
		Message:      fmt.Sprintf("%s (Abrimos %s às %s)", prefix, label, next.start),
		NextOpenDay:  weekdayNames[day],
		NextOpenTime: next.start,
	}
}

// nextOpening 从明天开始向后查找第一个营业日
func nextOpening(settings *db.StoreSettings, today time.Weekday) (int, time.Weekday, window, bool) {
	for offset := 1; offset <= 7; offset++ {
		day := time.Weekday((int(today) + offset) % 7)
		if w := windowFor(settings, day); w.open && w.start != "" {
			return offset, day, w, true
		}
	}
	return 0, 0, window{}, false
}
