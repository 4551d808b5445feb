// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: форматирование денег (пайсы → рупии) и длительностей.
package common

import (
	"fmt"
	"time"
)

// FormatRupees форматирует сумму в пайсах в строку с рупиями.
// Баланс храним в int64 пайсах, чтобы не трогать float для денег.
//
// Примеры:
//
//	FormatRupees(347)   → "₹3.47"
//	FormatRupees(5000)  → "₹50.00"
//	FormatRupees(-6000) → "-₹60.00"
func FormatRupees(paise int64) string {
	sign := ""
	if paise < 0 {
		sign = "-"
		paise = -paise
	}
	return fmt.Sprintf("%s₹%d.%02d", sign, paise/100, paise%100)
}

// FormatWait форматирует оставшееся время ожидания в виде "23h 15m".
// Длительности меньше минуты округляем вверх до минуты, чтобы
// пользователь не видел "0m" при активном кулдауне.
func FormatWait(d time.Duration) string {
	if d < time.Minute {
		d = time.Minute
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

// FormatDateTime форматирует время в формат "02.01.2006 15:04".
// Используется в админских выборках.
func FormatDateTime(t time.Time) string {
	return t.UTC().Format("02.01.2006 15:04")
}
