package errors

import (
	"errors"
	"fmt"
)

var (
	// Session errors
	ErrAuthNotReady = errors.New("identity provider not initialized")
	ErrNoSession    = errors.New("no active session")

	// Editor errors
	ErrNoRecord              = errors.New("no record selected")
	ErrAccreditationRequired = errors.New("accreditation flag is required")
	ErrInvalidValue          = errors.New("invalid value")

	// Backing store errors
	ErrRead  = errors.New("spreadsheet read failed")
	ErrWrite = errors.New("spreadsheet write failed")
)

// Messages shown to the operator, keyed by sentinel.
var messages = map[error]string{
	ErrAuthNotReady:          "No se pudo inicializar Google. Revisa las credenciales de OAuth.",
	ErrNoSession:             "Debes iniciar sesión con Google antes de continuar.",
	ErrNoRecord:              "Debes seleccionar un registro desde los filtros antes de guardar.",
	ErrAccreditationRequired: "Debes seleccionar una opción en '¿Se Acredita Visita?' antes de guardar.",
	ErrInvalidValue:          "Valor no válido.",
	ErrRead:                  "Ocurrió un error al cargar los registros.",
	ErrWrite:                 "Ocurrió un error al actualizar el registro.",
}

// UserMessage returns the operator-facing text for err, falling back to the
// write failure message for anything unclassified.
func UserMessage(err error) string {
	for sentinel, msg := range messages {
		if errors.Is(err, sentinel) {
			return msg
		}
	}
	return messages[ErrWrite]
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
