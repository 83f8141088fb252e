package models

import "errors"

// Общие ошибки приложения.
var (
	ErrJobNotFound   = errors.New("generation job not found")
	ErrStoryNotFound = errors.New("story not found")

	ErrInvalidInput = errors.New("invalid input data")

	// ErrInvalidTransition означает попытку перевести задачу в статус, недопустимый из текущего.
	ErrInvalidTransition = errors.New("invalid job status transition")

	// ErrStoryCorrupted означает нарушение целостности сохраненного дерева (например, нет корня).
	ErrStoryCorrupted = errors.New("story tree is corrupted")

	// ErrPersistence оборачивает любые ошибки хранилища при записи дерева.
	ErrPersistence = errors.New("persistence failure")

	// ErrDispatchFailed означает, что задачу не удалось передать воркеру.
	ErrDispatchFailed = errors.New("failed to dispatch generation job")
)
