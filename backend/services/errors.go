package services

// Таксономия ошибок ядра. Все они ожидаемые и восстановимые на стороне
// клиента; инфраструктурные сбои хранилища сюда не относятся и
// пробрасываются как есть.

const (
	CodeDuplicateActiveSession = "DuplicateActiveSession"
	CodeAlreadyTaken           = "AlreadyTaken"
	CodeSlotUnavailable        = "SlotUnavailable"
	CodeNotEligible            = "NotEligible"
)

// ValidationError - некорректный ввод, вина вызывающего
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string { return e.Message }

func NewValidationError(msg string) error {
	return &ValidationError{Message: msg}
}

// ConflictError - бизнес-правило не прошло из-за текущего состояния;
// клиенту стоит перечитать состояние, а не повторять вслепую
type ConflictError struct {
	Code    string
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func NewConflictError(code, msg string) error {
	return &ConflictError{Code: code, Message: msg}
}

// NotFoundError - неизвестный id либо валидное "ничего нет"
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

func NewNotFoundError(msg string) error {
	return &NotFoundError{Message: msg}
}

// StateError - операция недопустима из текущего статуса
type StateError struct {
	Message string
}

func (e *StateError) Error() string { return e.Message }

func NewStateError(msg string) error {
	return &StateError{Message: msg}
}
