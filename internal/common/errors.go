// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях бота.
// Эти ошибки позволяют обработчикам различать типы проблем
// и отправлять пользователю понятные сообщения.
package common

import "errors"

// Ошибки леджера и движка наград
var (
	// ErrUserNotFound — пользователь не найден в леджере
	ErrUserNotFound = errors.New("пользователь не найден")
	// ErrInvalidAmount — некорректная сумма (ноль или отрицательная)
	ErrInvalidAmount = errors.New("сумма должна быть положительной")
)

// Ошибки админки
var (
	// ErrNotAdmin — команда доступна только администратору
	ErrNotAdmin = errors.New("у вас нет прав администратора")
)

// Ошибки рекламного сервера
var (
	// ErrTokenInvalid — токен просмотра неизвестен, истёк или уже использован
	ErrTokenInvalid = errors.New("токен просмотра недействителен")
	// ErrAdNotFound — рекламы с таким id нет в каталоге
	ErrAdNotFound = errors.New("реклама не найдена")
)
