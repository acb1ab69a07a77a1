package services

import (
	"context"
	"errors"

	"project/backend/event"
	"project/backend/models"
	"project/backend/storage"
)

type SlotService struct {
	Store  storage.Store
	Events *event.EventPublisher
}

func NewSlotService(store storage.Store, events *event.EventPublisher) *SlotService {
	return &SlotService{Store: store, Events: events}
}

type SpeakingResultInput struct {
	McqLevel       string `json:"mcqLevel"`
	SpeakingLevel  string `json:"speakingLevel"`
	FinalLevel     string `json:"finalLevel"`
	OverrideReason string `json:"overrideReason"`
	Feedback       string `json:"feedback"`
}

func (svc *SlotService) ListAvailable(ctx context.Context, f storage.SlotFilter) ([]models.SpeakingSlot, error) {
	return svc.Store.ListAvailableSlots(ctx, f)
}

// Book бронирует свободный слот за сессией. Захват слота и перевод
// сессии в SPEAKING_SCHEDULED - два условных UPDATE в одной
// транзакции: проигравший гонку за слот получает SlotUnavailable,
// а сессия, которая одновременно бронирует второй слот, откатывает
// захват через NotEligible.
func (svc *SlotService) Book(ctx context.Context, slotID, sessionID, studentID string) (*models.SpeakingSlot, error) {
	if slotID == "" || sessionID == "" || studentID == "" {
		return nil, NewValidationError("slotId, sessionId and studentId are required")
	}

	var booked *models.SpeakingSlot
	err := svc.Store.Transaction(ctx, func(tx storage.Store) error {
		sess, err := tx.GetSession(ctx, sessionID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return NewConflictError(CodeNotEligible, "test session not found")
			}
			return err
		}
		if sess.StudentID != studentID {
			return NewConflictError(CodeNotEligible, "this session does not belong to you")
		}
		if sess.Status != models.SessionMcqCompleted {
			return NewConflictError(CodeNotEligible,
				"speaking evaluation can only be booked after the MCQ part is completed")
		}

		claimed, err := tx.ClaimSlot(ctx, slotID, studentID, sessionID)
		if err != nil {
			return err
		}
		if !claimed {
			return NewConflictError(CodeSlotUnavailable, "slot is no longer available")
		}

		advanced, err := tx.UpdateSessionStatus(ctx, sessionID,
			[]models.SessionStatus{models.SessionMcqCompleted}, models.SessionSpeakingScheduled)
		if err != nil {
			return err
		}
		if !advanced {
			return NewConflictError(CodeNotEligible,
				"speaking evaluation can only be booked after the MCQ part is completed")
		}

		booked, err = tx.GetSlot(ctx, slotID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if svc.Events != nil {
		svc.Events.Publish("placement.slot.booked", map[string]interface{}{
			"slotId":    slotID,
			"sessionId": sessionID,
			"studentId": studentID,
		})
	}
	return booked, nil
}

// Cancel - компенсирующая транзакция: слот освобождается, сессия
// возвращается в MCQ_COMPLETED и может бронировать заново. Повторная
// отмена не находит брони и завершается NotFound без побочных эффектов.
func (svc *SlotService) Cancel(ctx context.Context, slotID, sessionID string) error {
	err := svc.Store.Transaction(ctx, func(tx storage.Store) error {
		released, err := tx.ReleaseSlot(ctx, slotID, sessionID)
		if err != nil {
			return err
		}
		if !released {
			return NewNotFoundError("booking not found for this session")
		}

		reverted, err := tx.UpdateSessionStatus(ctx, sessionID,
			[]models.SessionStatus{models.SessionSpeakingScheduled}, models.SessionMcqCompleted)
		if err != nil {
			return err
		}
		if !reverted {
			return NewStateError("session is not awaiting a speaking evaluation")
		}
		return nil
	})
	if err != nil {
		return err
	}

	if svc.Events != nil {
		svc.Events.Publish("placement.slot.cancelled", map[string]interface{}{
			"slotId":    slotID,
			"sessionId": sessionID,
		})
	}
	return nil
}

// SubmitResult фиксирует итог устной части. Сервер сам пересчитывает
// рекомендуемый уровень как min(mcq, speaking); отличающийся finalLevel
// принимается только с явной причиной и сохраняется вместе с ней.
func (svc *SlotService) SubmitResult(ctx context.Context, slotID, sessionID string, in SpeakingResultInput) error {
	mcqLevel, err := models.ParseLevel(in.McqLevel)
	if err != nil {
		return NewValidationError(err.Error())
	}
	speakingLevel, err := models.ParseLevel(in.SpeakingLevel)
	if err != nil {
		return NewValidationError(err.Error())
	}
	finalLevel, err := models.ParseLevel(in.FinalLevel)
	if err != nil {
		return NewValidationError(err.Error())
	}

	suggested := models.SuggestFinalLevel(mcqLevel, speakingLevel)
	if finalLevel != suggested && in.OverrideReason == "" {
		return NewValidationError(
			"finalLevel does not match the suggested level; provide overrideReason to override")
	}

	result := &models.SpeakingResult{
		McqLevel:       mcqLevel,
		SpeakingLevel:  speakingLevel,
		FinalLevel:     finalLevel,
		SuggestedLevel: suggested,
		OverrideReason: in.OverrideReason,
		Feedback:       in.Feedback,
	}

	err = svc.Store.Transaction(ctx, func(tx storage.Store) error {
		slot, err := tx.GetSlot(ctx, slotID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return NewNotFoundError("speaking slot not found")
			}
			return err
		}

		completed, err := tx.CompleteSlot(ctx, slotID, sessionID, result)
		if err != nil {
			return err
		}
		if !completed {
			return NewNotFoundError("slot is not booked for this session")
		}

		advanced, err := tx.UpdateSessionStatus(ctx, sessionID,
			[]models.SessionStatus{models.SessionSpeakingScheduled}, models.SessionSpeakingCompleted)
		if err != nil {
			return err
		}
		if !advanced {
			return NewStateError("session is not awaiting a speaking evaluation")
		}

		// итоговый уровень становится текущим уровнем студента
		if slot.StudentID != nil {
			if err = tx.SetStudentLevel(ctx, *slot.StudentID, finalLevel); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if svc.Events != nil {
		svc.Events.Publish("placement.slot.completed", map[string]interface{}{
			"slotId":     slotID,
			"sessionId":  sessionID,
			"finalLevel": finalLevel,
		})
	}
	return nil
}

func (svc *SlotService) ForTeacher(ctx context.Context, teacherID string) ([]models.SpeakingSlot, error) {
	if _, err := svc.Store.GetTeacher(ctx, teacherID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, NewNotFoundError("teacher not found")
		}
		return nil, err
	}
	return svc.Store.ListSlotsByTeacher(ctx, teacherID)
}
