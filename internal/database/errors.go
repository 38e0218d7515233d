package database

import "errors"

var (
	// ErrNotFound — запись отсутствует в БД.
	ErrNotFound = errors.New("record not found")

	// ErrConcurrentModification — версия записи изменилась между чтением и записью.
	ErrConcurrentModification = errors.New("booking was modified concurrently")

	// ErrInvalidTransition — переход статуса невозможен из текущего состояния.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInsufficientFunds — на балансе не хватает средств для операции.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateTask — задача с таким dedup ключом уже есть в очереди.
	ErrDuplicateTask = errors.New("notify task already queued")
)
