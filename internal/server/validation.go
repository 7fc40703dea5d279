package server

import (
	"fmt"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	maxNameLength     = 32
	maxPasswordLength = 128
	maxPhaseIDLength  = 64
)

var validatorOnce sync.Once

func registerValidators() {
	validatorOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = engine.RegisterValidation("name", func(fl validator.FieldLevel) bool {
			_, err := validateName(fl.Field().String())
			return err == nil
		})
		_ = engine.RegisterValidation("phase", func(fl validator.FieldLevel) bool {
			_, err := validatePhaseID(fl.Field().String())
			return err == nil
		})
	})
}

func validateName(name string) (string, error) {
	trimmed := normalizeText(name)
	if trimmed == "" {
		return "", fmt.Errorf("name is required")
	}
	if utf8.RuneCountInString(trimmed) > maxNameLength {
		return "", fmt.Errorf("name must be %d characters or fewer", maxNameLength)
	}
	if !isSafeText(trimmed) {
		return "", fmt.Errorf("name contains unsupported characters")
	}
	return trimmed, nil
}

func validatePhaseID(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return "", fmt.Errorf("phase is required")
	}
	if len(trimmed) > maxPhaseIDLength {
		return "", fmt.Errorf("phase must be %d characters or fewer", maxPhaseIDLength)
	}
	for _, r := range trimmed {
		if r > 127 {
			return "", fmt.Errorf("phase contains unsupported characters")
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			continue
		}
		return "", fmt.Errorf("phase contains unsupported characters")
	}
	return trimmed, nil
}

func normalizeText(text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	return strings.Join(fields, " ")
}

// isSafeText accepts letters (accented ones included), digits, spaces and a
// small set of punctuation.
func isSafeText(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		switch r {
		case ' ', '-', '_', '\'', '.', '@':
			continue
		default:
			return false
		}
	}
	return true
}
