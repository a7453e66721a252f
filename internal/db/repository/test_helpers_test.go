package repository

import (
	"time"

	"github.com/google/uuid"

	"github.com/gokatarajesh/code-battle/internal/battle"
)

func uuidFromByte(b byte) uuid.UUID {
	var arr [16]byte
	arr[15] = b
	return uuid.UUID(arr)
}

func sampleBattle() *battle.Battle {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &battle.Battle{
		ID:       uuidFromByte(1),
		RoomCode: "482913",
		Config: battle.Config{
			Name:                 "Friday duel",
			Description:          "warm up",
			QuestionsNumber:      3,
			Difficulty:           battle.DifficultyEasy,
			Mode:                 battle.ModeQuality,
			IsSameLanguage:       true,
			AllowedLanguages:     []string{"go"},
			TimeLimitPerQuestion: 300,
		},
		CreatedBy: battle.Participant{ID: battle.NewParticipantID(uuidFromByte(2)), Name: "ada"},
		Status:    battle.StatusWaiting,
		Questions: []battle.AssignedQuestion{},
		CreatedAt: created,
		UpdatedAt: created,
	}
}
