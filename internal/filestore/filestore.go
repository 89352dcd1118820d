// Package filestore хранит импортированные пользователем аудиофайлы по имени
package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultPrefix префикс ключей файлов в хранилище
const DefaultPrefix = "localMusicFile_"

// File содержимое файла вместе с его именем
type File struct {
	Name string
	Data []byte
}

// Store хранилище файлов. Имя - единственный ключ, версий нет.
// Get сообщает об отсутствии файла через ok == false, а не через ошибку.
type Store interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) (data []byte, ok bool, err error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]File, error)
}

// DirStore хранит файлы в каталоге на диске
type DirStore struct {
	dir    string
	prefix string
}

// NewDirStore создает хранилище в каталоге dir
func NewDirStore(dir, prefix string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("ошибка создания каталога файлов: %w", err)
	}
	return &DirStore{dir: dir, prefix: prefix}, nil
}

// Put сохраняет файл, перезаписывая существующий
func (s *DirStore) Put(ctx context.Context, name string, data []byte) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("ошибка записи файла %s: %w", name, err)
	}
	return nil
}

// Get читает файл по имени
func (s *DirStore) Get(ctx context.Context, name string) ([]byte, bool, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("ошибка чтения файла %s: %w", name, err)
	}
	return data, true, nil
}

// Delete удаляет файл; отсутствие файла не является ошибкой
func (s *DirStore) Delete(ctx context.Context, name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления файла %s: %w", name, err)
	}
	return nil
}

// List возвращает все файлы хранилища в порядке имен
func (s *DirStore) List(ctx context.Context) ([]File, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения каталога файлов: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), s.prefix) {
			continue
		}
		names = append(names, strings.TrimPrefix(entry.Name(), s.prefix))
	}
	sort.Strings(names)

	files := make([]File, 0, len(names))
	for _, name := range names {
		data, ok, err := s.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		if ok {
			files = append(files, File{Name: name, Data: data})
		}
	}
	return files, nil
}

func (s *DirStore) path(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, s.prefix+name), nil
}

// ValidateName проверяет, что имя файла можно использовать как ключ
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("недопустимое имя файла: %q", name)
	}
	return nil
}
