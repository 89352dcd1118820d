// Package kv предоставляет простое хранилище "ключ - значение" для состояния приложения
package kv

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store хранит значения по ключу. Запись перезаписывает значение целиком,
// одновременная запись из нескольких процессов не координируется.
type Store interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Close() error
}

// FileStore хранит каждый ключ в отдельном файле каталога
type FileStore struct {
	dir string
}

// NewFileStore создает хранилище в каталоге dir, создавая его при необходимости
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("ошибка создания каталога состояния: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Get читает значение ключа; отсутствие ключа не является ошибкой
func (s *FileStore) Get(key string) ([]byte, bool, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("ошибка чтения ключа %s: %w", key, err)
	}
	return data, true, nil
}

// Set записывает значение через временный файл, чтобы не оставить обрезанную запись
func (s *FileStore) Set(key string, value []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "."+key+"-*")
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("ошибка записи ключа %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("ошибка записи ключа %s: %w", key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("ошибка сохранения ключа %s: %w", key, err)
	}
	return nil
}

// Delete удаляет ключ; удаление отсутствующего ключа не является ошибкой
func (s *FileStore) Delete(key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления ключа %s: %w", key, err)
	}
	return nil
}

// Close ничего не делает: файлы не держатся открытыми
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("недопустимый ключ: %q", key)
	}
	return filepath.Join(s.dir, key+".yaml"), nil
}
