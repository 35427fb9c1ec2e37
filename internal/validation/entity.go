package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ErrInvalid оборачивает все ошибки валидации, чтобы их можно было проверить через errors.Is
var ErrInvalid = errors.New("invalid input")

// IDPattern определяет допустимый формат идентификатора сущности
// Латинские буквы, цифры, дефис и нижнее подчеркивание. Длина: 1-64 символа
var IDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// PreferenceKeyPattern определяет допустимый формат ключа настройки
// Дополнительно разрешена точка для иерархических ключей ("ui.theme")
var PreferenceKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,64}$`)

const (
	// MaxTitleLen максимальная длина заголовка документа (в символах)
	MaxTitleLen = 256
	// MaxFolderNameLen максимальная длина имени папки (в символах)
	MaxFolderNameLen = 128
	// MinPassphraseLen минимальная длина пароля для зашифрованного экспорта
	MinPassphraseLen = 12
)

// ValidateID проверяет идентификатор сущности
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: id cannot be empty", ErrInvalid)
	}

	if !IDPattern.MatchString(id) {
		return fmt.Errorf("%w: id can only contain letters, numbers, '-' and '_' (max 64)", ErrInvalid)
	}

	return nil
}

// ValidateTitle проверяет заголовок документа
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title cannot be empty", ErrInvalid)
	}

	if utf8.RuneCountInString(title) > MaxTitleLen {
		return fmt.Errorf("%w: title must not exceed %d characters", ErrInvalid, MaxTitleLen)
	}

	return nil
}

// ValidateFolderName проверяет имя папки
// Имя не может содержать '/', он используется при выводе путей
func ValidateFolderName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: folder name cannot be empty", ErrInvalid)
	}

	if utf8.RuneCountInString(name) > MaxFolderNameLen {
		return fmt.Errorf("%w: folder name must not exceed %d characters", ErrInvalid, MaxFolderNameLen)
	}

	if strings.Contains(name, "/") {
		return fmt.Errorf("%w: folder name cannot contain '/'", ErrInvalid)
	}

	return nil
}

// ValidatePreferenceKey проверяет ключ пользовательской настройки
func ValidatePreferenceKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: preference key cannot be empty", ErrInvalid)
	}

	if !PreferenceKeyPattern.MatchString(key) {
		return fmt.Errorf("%w: preference key can only contain letters, numbers, '.', '-' and '_' (max 64)", ErrInvalid)
	}

	return nil
}

// ValidatePassphrase проверяет минимальные требования к паролю экспорта
// Минимум 12 символов
func ValidatePassphrase(passphrase string) error {
	if passphrase == "" {
		return fmt.Errorf("%w: passphrase cannot be empty", ErrInvalid)
	}

	if len(passphrase) < MinPassphraseLen {
		return fmt.Errorf("%w: passphrase must be at least %d characters long", ErrInvalid, MinPassphraseLen)
	}

	return nil
}
