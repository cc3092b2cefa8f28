package utils

import (
	"time"

	"habitus/config"
)

// WeekStart 返回 t 所在周的周一 00:00:00（t 所属时区的本地日历）
// 周界线统一以周一为起点，夏令时切换由 time.Date 归一
func WeekStart(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // time.Sunday == 0，按 ISO 周记为 7
	}

	monday := t.AddDate(0, 0, -(weekday - 1))
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, t.Location())
}

// DaysBetween 返回 from 到 to 之间的整日数，不足一日舍去
// to 早于 from 时返回负数
func DaysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

// LoadLocation 解析 IANA 时区名，失败时回退到默认时区，再失败回退 UTC
func LoadLocation(name string) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}

	if loc, err := time.LoadLocation(config.Cfg.DefaultTimezone); err == nil {
		return loc
	}

	return time.UTC
}
