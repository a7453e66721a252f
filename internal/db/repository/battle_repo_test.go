package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/code-battle/internal/battle"
	"github.com/gokatarajesh/code-battle/internal/db/queries"
)

type mockBattleStore struct {
	mock.Mock
}

func (m *mockBattleStore) InsertBattle(ctx context.Context, arg queries.Battle) error {
	return m.Called(ctx, arg).Error(0)
}

func (m *mockBattleStore) GetBattle(ctx context.Context, id pgtype.UUID) (queries.Battle, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(queries.Battle), args.Error(1)
}

func (m *mockBattleStore) GetBattleByRoomCode(ctx context.Context, roomCode string) (queries.Battle, error) {
	args := m.Called(ctx, roomCode)
	return args.Get(0).(queries.Battle), args.Error(1)
}

func (m *mockBattleStore) ListBattles(ctx context.Context) ([]queries.Battle, error) {
	args := m.Called(ctx)
	return args.Get(0).([]queries.Battle), args.Error(1)
}

func (m *mockBattleStore) UpdateBattle(ctx context.Context, arg queries.Battle) (int64, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockBattleStore) BattleExists(ctx context.Context, id pgtype.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockBattleStore) DeleteBattle(ctx context.Context, id pgtype.UUID) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockBattleStore) RoomCodeActive(ctx context.Context, roomCode string) (bool, error) {
	args := m.Called(ctx, roomCode)
	return args.Bool(0), args.Error(1)
}

func TestBattleRepository_CreateSetsVersion(t *testing.T) {
	store := new(mockBattleStore)
	repo := NewBattleRepository(store)
	b := sampleBattle()

	store.On("InsertBattle", mock.Anything, mock.MatchedBy(func(row queries.Battle) bool {
		return row.Version == 1 && row.RoomCode == "482913" && !row.ChallengerID.Valid
	})).Return(nil)

	require.NoError(t, repo.Create(context.Background(), b))
	assert.Equal(t, int64(1), b.Version)
	store.AssertExpectations(t)
}

func TestBattleRepository_CreateRoomCodeCollision(t *testing.T) {
	store := new(mockBattleStore)
	repo := NewBattleRepository(store)

	store.On("InsertBattle", mock.Anything, mock.Anything).
		Return(&pgconn.PgError{Code: "23505", ConstraintName: "battles_active_room_code_idx"})

	err := repo.Create(context.Background(), sampleBattle())
	assert.ErrorIs(t, err, battle.ErrRoomCodeTaken)
}

func TestBattleRepository_RoundTrip(t *testing.T) {
	store := new(mockBattleStore)
	repo := NewBattleRepository(store)

	b := sampleBattle()
	completed := b.CreatedAt.Add(10 * time.Minute)
	b.Challenger = &battle.Participant{ID: battle.NewParticipantID(uuidFromByte(3)), Name: "grace"}
	b.ChallengerConnectionID = "conn-2"
	b.Status = battle.StatusCompleted
	b.Questions = []battle.AssignedQuestion{
		{ID: "q1", Status: battle.QuestionCompleted},
		{ID: "q2", Status: battle.QuestionCompleted},
		{ID: "q3", Status: battle.QuestionCompleted},
	}
	b.CurrentQuestionIndex = 3
	b.ChallengerScore = 2
	b.CreatorScore = 1
	b.Winner = b.Challenger.ID
	b.CompletedAt = &completed
	b.Version = 7

	row, err := toBattleRow(b)
	require.NoError(t, err)
	store.On("GetBattle", mock.Anything, pgUUID(b.ID)).Return(row, nil)

	got, err := repo.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, b, got)
}

func TestBattleRepository_RoundTripKeepsFormerChallenger(t *testing.T) {
	store := new(mockBattleStore)
	repo := NewBattleRepository(store)

	b := sampleBattle()
	b.Status = battle.StatusInProgress
	b.Questions = []battle.AssignedQuestion{
		{ID: "q1", Status: battle.QuestionCompleted},
		{ID: "q2", Status: battle.QuestionInProgress},
		{ID: "q3", Status: battle.QuestionNotStarted},
	}
	b.CurrentQuestionIndex = 1
	b.ChallengerScore = 1
	b.FormerChallenger = &battle.Participant{ID: battle.NewParticipantID(uuidFromByte(4)), Name: "grace"}

	row, err := toBattleRow(b)
	require.NoError(t, err)
	assert.False(t, row.ChallengerID.Valid)
	assert.True(t, row.FormerChallengerID.Valid)
	store.On("GetBattle", mock.Anything, pgUUID(b.ID)).Return(row, nil)

	got, err := repo.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Challenger)
	require.NotNil(t, got.FormerChallenger)
	assert.True(t, got.FormerChallenger.ID.Equal(b.FormerChallenger.ID))
	assert.Equal(t, "grace", got.FormerChallenger.Name)
}

func TestBattleRepository_GetNotFound(t *testing.T) {
	store := new(mockBattleStore)
	repo := NewBattleRepository(store)
	store.On("GetBattleByRoomCode", mock.Anything, "000000").Return(queries.Battle{}, pgx.ErrNoRows)

	_, err := repo.GetByRoomCode(context.Background(), "000000")
	assert.ErrorIs(t, err, battle.ErrRecordNotFound)
}

func TestBattleRepository_UpdateBumpsVersion(t *testing.T) {
	store := new(mockBattleStore)
	repo := NewBattleRepository(store)
	b := sampleBattle()
	b.Version = 3

	store.On("UpdateBattle", mock.Anything, mock.MatchedBy(func(row queries.Battle) bool {
		return row.Version == 3
	})).Return(int64(1), nil)

	require.NoError(t, repo.Update(context.Background(), b))
	assert.Equal(t, int64(4), b.Version)
	store.AssertExpectations(t)
}

func TestBattleRepository_UpdateStaleWrite(t *testing.T) {
	store := new(mockBattleStore)
	repo := NewBattleRepository(store)
	b := sampleBattle()
	b.Version = 3

	store.On("UpdateBattle", mock.Anything, mock.Anything).Return(int64(0), nil)
	store.On("BattleExists", mock.Anything, pgUUID(b.ID)).Return(true, nil)

	err := repo.Update(context.Background(), b)
	assert.ErrorIs(t, err, battle.ErrStaleWrite)
	assert.Equal(t, int64(3), b.Version)
}

func TestBattleRepository_UpdateMissing(t *testing.T) {
	store := new(mockBattleStore)
	repo := NewBattleRepository(store)

	store.On("UpdateBattle", mock.Anything, mock.Anything).Return(int64(0), nil)
	store.On("BattleExists", mock.Anything, mock.Anything).Return(false, nil)

	err := repo.Update(context.Background(), sampleBattle())
	assert.ErrorIs(t, err, battle.ErrRecordNotFound)
}

func TestBattleRepository_Delete(t *testing.T) {
	store := new(mockBattleStore)
	repo := NewBattleRepository(store)
	id := uuidFromByte(9)

	store.On("DeleteBattle", mock.Anything, pgUUID(id)).Return(int64(0), nil).Once()
	assert.ErrorIs(t, repo.Delete(context.Background(), id), battle.ErrRecordNotFound)

	store.On("DeleteBattle", mock.Anything, pgUUID(id)).Return(int64(0), errors.New("conn reset")).Once()
	assert.ErrorContains(t, repo.Delete(context.Background(), id), "conn reset")
}

func TestBattleRepository_List(t *testing.T) {
	store := new(mockBattleStore)
	repo := NewBattleRepository(store)

	row, err := toBattleRow(sampleBattle())
	require.NoError(t, err)
	store.On("ListBattles", mock.Anything).Return([]queries.Battle{row, row}, nil)
	store.On("RoomCodeActive", mock.Anything, "482913").Return(true, nil)

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 2)

	inUse, err := repo.RoomCodeInUse(context.Background(), "482913")
	require.NoError(t, err)
	assert.True(t, inUse)
}
