package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation      ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload  ErrCode = "INVALID_PAYLOAD"
	ErrNoThemeSelected ErrCode = "NO_THEME_SELECTED"
	ErrInvalidCount    ErrCode = "INVALID_COUNT"
	ErrInvalidType     ErrCode = "INVALID_TYPE"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrDraftNotFound   ErrCode = "DRAFT_NOT_FOUND"
	ErrSessionNotFound ErrCode = "SESSION_NOT_FOUND"
	ErrSpecConsumed    ErrCode = "SPEC_ALREADY_SUBMITTED"

	// ─── Exam session ──────────────────────────────────────────────────
	ErrIndexOutOfRange        ErrCode = "INDEX_OUT_OF_RANGE"
	ErrSessionNotReady        ErrCode = "SESSION_NOT_READY"
	ErrFinishInProgress       ErrCode = "FINISH_IN_PROGRESS"
	ErrThemeSelectionDisabled ErrCode = "THEME_SELECTION_DISABLED"
	ErrUnknownQuestion        ErrCode = "UNKNOWN_QUESTION"
	ErrInvalidChoice          ErrCode = "INVALID_CHOICE"
	ErrAttemptFinished        ErrCode = "ATTEMPT_FINISHED"
	ErrNoQuestions            ErrCode = "NO_QUESTIONS"

	// ─── Remote store ──────────────────────────────────────────────────
	ErrRemote             ErrCode = "REMOTE_ERROR"
	ErrServiceUnavailable ErrCode = "SERVICE_UNAVAILABLE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "La validación ha fallado. Revisa los datos enviados."
	case ErrInvalidPayload:
		return "El cuerpo de la petición no es válido."
	case ErrNoThemeSelected:
		return "Selecciona al menos un tema."
	case ErrInvalidCount:
		return "El número de preguntas debe estar entre 5 y 70."
	case ErrInvalidType:
		return "Tipo de examen desconocido."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Recurso no encontrado."
	case ErrDraftNotFound:
		return "La configuración de examen no existe o ya fue enviada."
	case ErrSessionNotFound:
		return "No hay ninguna sesión activa para este intento."
	case ErrSpecConsumed:
		return "Esta configuración de examen ya fue enviada."

	// ─── Exam session ──────────────────────────────────────────────────
	case ErrIndexOutOfRange:
		return "El número de pregunta está fuera de rango."
	case ErrSessionNotReady:
		return "La sesión de examen no está lista."
	case ErrFinishInProgress:
		return "El examen ya se está finalizando."
	case ErrThemeSelectionDisabled:
		return "Este tipo de examen no permite elegir temas."
	case ErrUnknownQuestion:
		return "La pregunta no pertenece a este examen."
	case ErrInvalidChoice:
		return "La opción elegida no existe."
	case ErrAttemptFinished:
		return "Este intento ya está finalizado."
	case ErrNoQuestions:
		return "El examen no tiene preguntas."

	// ─── Remote store ──────────────────────────────────────────────────
	case ErrRemote:
		return "El servicio de exámenes ha rechazado la operación."
	case ErrServiceUnavailable:
		return "El servicio de exámenes no está disponible. Inténtalo de nuevo."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Demasiadas peticiones. Inténtalo más tarde."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Error interno del servidor."
	default:
		return "Se ha producido un error inesperado."
	}
}
