package service

import (
	"math"
	"strconv"
	"time"
)

// siteZone 是所有日期分桶使用的固定时区。
// Dhaka 为 UTC+6 且无夏令时，使用 FixedZone 避免对系统 tzdata 的依赖。
var siteZone = time.FixedZone("Asia/Dhaka", 6*60*60)

func monthKey(t time.Time) string {
	return t.In(siteZone).Format("2006-01")
}

func dayKey(t time.Time) string {
	return t.In(siteZone).Format("2006-01-02")
}

func startOfDay(t time.Time) time.Time {
	lt := t.In(siteZone)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, siteZone)
}

func startOfMonth(t time.Time) time.Time {
	lt := t.In(siteZone)
	return time.Date(lt.Year(), lt.Month(), 1, 0, 0, 0, 0, siteZone)
}

func previousMonthKey(t time.Time) string {
	return monthKey(startOfMonth(t).AddDate(0, 0, -1))
}

// percentChange 统一的环比口径：双方为零记 0，基期为零而当期非零记 +100，
// 其余按 (当期-基期)/基期×100。
func percentChange(previous, current float64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return (current - previous) / previous * 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// formatChange 将环比值格式化为 "+12.5%"、"0%"、"-3.1%" 形式，保留一位小数，
// 整数值不带小数位。
func formatChange(v float64) string {
	rounded := round1(v)
	s := strconv.FormatFloat(rounded, 'f', -1, 64)
	if rounded > 0 {
		s = "+" + s
	}
	return s + "%"
}
