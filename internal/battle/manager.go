package battle

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

const (
	createLockKey          = "create"
	defaultRoomCodeRetries = 10
)

// No-op reasons reported by progress operations.
const (
	ReasonAlreadyResolved = "question already resolved"
	ReasonNotInProgress   = "battle not in progress"
)

var errRoomCodeCollision = errors.New("room code collision")

// QuestionPool supplies candidate question ids for a difficulty tier.
type QuestionPool interface {
	IDsByDifficulty(ctx context.Context, difficulty string) ([]string, error)
}

// Options customises a Manager. Zero values pick production defaults.
type Options struct {
	Locker          Locker
	Now             func() time.Time
	RoomCode        func() string
	RoomCodeRetries int
	KnownLanguage   func(string) bool
	Shuffle         func(n int, swap func(i, j int))
}

// Manager owns the battle state machine. Every mutation runs under the
// per-battle lock and is persisted with a single versioned write.
type Manager struct {
	store  Store
	pool   QuestionPool
	locker Locker
	logger zerolog.Logger

	now           func() time.Time
	newCode       func() string
	codeRetries   uint64
	knownLanguage func(string) bool
	shuffle       func(n int, swap func(i, j int))
}

func NewManager(store Store, pool QuestionPool, logger zerolog.Logger, opts Options) *Manager {
	if opts.Locker == nil {
		opts.Locker = NewKeyedLocker()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RoomCode == nil {
		opts.RoomCode = randomRoomCode
	}
	if opts.RoomCodeRetries <= 0 {
		opts.RoomCodeRetries = defaultRoomCodeRetries
	}
	if opts.Shuffle == nil {
		opts.Shuffle = rand.Shuffle
	}
	return &Manager{
		store:         store,
		pool:          pool,
		locker:        opts.Locker,
		logger:        logger.With().Str("component", "battle_manager").Logger(),
		now:           opts.Now,
		newCode:       opts.RoomCode,
		codeRetries:   uint64(opts.RoomCodeRetries - 1),
		knownLanguage: opts.KnownLanguage,
		shuffle:       opts.Shuffle,
	}
}

// randomRoomCode returns six digits with a non-zero leading digit.
func randomRoomCode() string {
	return fmt.Sprintf("%06d", 100000+rand.IntN(900000))
}

// CreateBattle validates req and persists a waiting battle with a fresh room code.
func (m *Manager) CreateBattle(ctx context.Context, req CreateRequest, creator Participant) (*Battle, error) {
	if creator.ID.IsZero() {
		return nil, validationError("createdBy", "creator identity is required")
	}
	cfg, err := req.Validate(m.knownLanguage)
	if err != nil {
		return nil, err
	}

	unlock, err := m.locker.Lock(ctx, createLockKey)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var created *Battle
	backoff := retry.WithMaxRetries(m.codeRetries, retry.NewConstant(time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		code := m.newCode()
		inUse, err := m.store.RoomCodeInUse(ctx, code)
		if err != nil {
			return fmt.Errorf("check room code: %w", err)
		}
		if inUse {
			return retry.RetryableError(errRoomCodeCollision)
		}

		now := m.now()
		b := &Battle{
			ID:        uuid.New(),
			RoomCode:  code,
			Config:    cfg,
			CreatedBy: creator,
			Status:    StatusWaiting,
			Questions: []AssignedQuestion{},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := m.store.Create(ctx, b); err != nil {
			if errors.Is(err, ErrRoomCodeTaken) {
				return retry.RetryableError(errRoomCodeCollision)
			}
			return fmt.Errorf("create battle: %w", err)
		}
		created = b
		return nil
	})
	if errors.Is(err, errRoomCodeCollision) {
		return nil, conflict("could not allocate a unique room code")
	}
	if err != nil {
		return nil, err
	}

	m.logger.Info().
		Str("battle_id", created.ID.String()).
		Str("room_code", created.RoomCode).
		Str("user_id", creator.ID.String()).
		Msg("battle created")
	return created, nil
}

// AttachResult describes how a connection was bound to a battle.
type AttachResult struct {
	Battle             *Battle
	Side               Side
	PairComplete       bool
	NotifyCreator      bool
	Reconnected        bool
	PreviousConnection string
}

// AttachParticipant binds connID for who to the battle behind roomCode.
// The creator identity always takes the creator side. The first other
// identity becomes the challenger; any further identity is refused.
func (m *Manager) AttachParticipant(ctx context.Context, roomCode, connID string, who Participant) (*AttachResult, error) {
	if connID == "" {
		return nil, validationError("connectionId", "connection id is required")
	}
	if who.ID.IsZero() {
		return nil, validationError("userId", "participant identity is required")
	}
	id, err := m.resolve(ctx, roomCode)
	if err != nil {
		return nil, err
	}

	res := &AttachResult{}
	b, err := m.mutate(ctx, id, func(b *Battle) (bool, error) {
		if b.Status == StatusCompleted {
			return false, conflict("battle already completed")
		}

		switch {
		case b.CreatedBy.ID.Equal(who.ID):
			res.Side = SideCreator
			res.PreviousConnection = b.CreatorConnectionID
			res.Reconnected = b.CreatorConnectionID != ""
			b.CreatorConnectionID = connID
			res.PairComplete = b.ChallengerConnectionID != ""
		case b.Challenger != nil && b.Challenger.ID.Equal(who.ID):
			res.Side = SideChallenger
			res.PreviousConnection = b.ChallengerConnectionID
			res.Reconnected = b.ChallengerConnectionID != ""
			b.ChallengerConnectionID = connID
			res.PairComplete = b.CreatorConnectionID != ""
			res.NotifyCreator = res.PairComplete && !res.Reconnected
		case b.Challenger == nil:
			returning := b.FormerChallenger != nil && b.FormerChallenger.ID.Equal(who.ID)
			if b.Status != StatusWaiting && !returning {
				return false, conflict("battle already in progress")
			}
			challenger := who
			b.Challenger = &challenger
			b.FormerChallenger = nil
			b.ChallengerConnectionID = connID
			res.Side = SideChallenger
			res.Reconnected = returning
			res.PairComplete = b.CreatorConnectionID != ""
			res.NotifyCreator = res.PairComplete
		default:
			return false, conflict("battle is full")
		}
		return res.PreviousConnection != connID, nil
	})
	if err != nil {
		return nil, err
	}
	res.Battle = b

	m.logger.Info().
		Str("battle_id", b.ID.String()).
		Str("room_code", b.RoomCode).
		Str("user_id", who.ID.String()).
		Str("conn_id", connID).
		Str("side", string(res.Side)).
		Bool("pair_complete", res.PairComplete).
		Msg("participant attached")
	return res, nil
}

// StartResult reports the outcome of a start request.
type StartResult struct {
	Battle         *Battle
	AlreadyStarted bool
}

// StartBattle starts the battle behind roomCode on behalf of requester.
func (m *Manager) StartBattle(ctx context.Context, roomCode string, requester ParticipantID) (*StartResult, error) {
	id, err := m.resolve(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	return m.StartBattleByID(ctx, id, requester)
}

// StartBattleByID assigns questions and moves a waiting battle to in-progress.
// A repeated start while already in progress is a no-op.
func (m *Manager) StartBattleByID(ctx context.Context, id uuid.UUID, requester ParticipantID) (*StartResult, error) {
	res := &StartResult{}
	b, err := m.mutate(ctx, id, func(b *Battle) (bool, error) {
		if !b.CreatedBy.ID.Equal(requester) {
			return false, forbidden("only the creator can start the battle")
		}
		switch b.Status {
		case StatusInProgress:
			res.AlreadyStarted = true
			return false, nil
		case StatusCompleted:
			return false, conflict("battle already completed")
		}
		if b.ChallengerConnectionID == "" {
			return false, conflict("waiting for a challenger to join")
		}

		picked, err := m.pickQuestions(ctx, b.Difficulty, b.QuestionsNumber)
		if err != nil {
			return false, err
		}
		b.Questions = make([]AssignedQuestion, len(picked))
		for i, qid := range picked {
			b.Questions[i] = AssignedQuestion{ID: qid, Status: QuestionNotStarted}
		}
		b.Questions[0].Status = QuestionInProgress
		b.CurrentQuestionIndex = 0
		b.CreatorScore = 0
		b.ChallengerScore = 0
		b.Status = StatusInProgress
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	res.Battle = b

	if res.AlreadyStarted {
		m.logger.Debug().Str("battle_id", b.ID.String()).Msg("duplicate start ignored")
	} else {
		m.logger.Info().
			Str("battle_id", b.ID.String()).
			Str("room_code", b.RoomCode).
			Int("questions", len(b.Questions)).
			Msg("battle started")
	}
	return res, nil
}

func (m *Manager) pickQuestions(ctx context.Context, difficulty Difficulty, n int) ([]string, error) {
	ids, err := m.pool.IDsByDifficulty(ctx, string(difficulty))
	if err != nil {
		return nil, fmt.Errorf("load question pool: %w", err)
	}
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) < n {
		return nil, insufficientContent(fmt.Sprintf("only %d %s questions available, %d required", len(unique), difficulty, n))
	}
	m.shuffle(len(unique), func(i, j int) { unique[i], unique[j] = unique[j], unique[i] })
	return unique[:n], nil
}

// ProgressResult reports the effect of a submission or expiry.
type ProgressResult struct {
	Battle        *Battle
	Applied       bool
	Reason        string
	Completed     bool
	ResolvedIndex int
}

// RecordCorrectSubmission awards the question at questionIndex to side.
// Only the first call for the current index applies; later ones are no-ops.
func (m *Manager) RecordCorrectSubmission(ctx context.Context, roomCode string, side Side, questionIndex int) (*ProgressResult, error) {
	if side != SideCreator && side != SideChallenger {
		return nil, validationError("side", "unknown side")
	}
	return m.progress(ctx, roomCode, questionIndex, func(b *Battle) error {
		if side == SideChallenger && b.Challenger == nil {
			return forbidden("challenger slot is empty")
		}
		if side == SideCreator {
			b.CreatorScore++
		} else {
			b.ChallengerScore++
		}
		return nil
	})
}

// ExpireQuestion abandons the question at questionIndex without scoring.
func (m *Manager) ExpireQuestion(ctx context.Context, roomCode string, questionIndex int) (*ProgressResult, error) {
	return m.progress(ctx, roomCode, questionIndex, func(*Battle) error { return nil })
}

func (m *Manager) progress(ctx context.Context, roomCode string, questionIndex int, apply func(*Battle) error) (*ProgressResult, error) {
	id, err := m.resolve(ctx, roomCode)
	if err != nil {
		return nil, err
	}

	res := &ProgressResult{ResolvedIndex: questionIndex}
	b, err := m.mutate(ctx, id, func(b *Battle) (bool, error) {
		if b.Status != StatusInProgress {
			res.Reason = ReasonNotInProgress
			return false, nil
		}
		if b.CurrentQuestionIndex != questionIndex {
			res.Reason = ReasonAlreadyResolved
			return false, nil
		}
		if err := apply(b); err != nil {
			return false, err
		}
		m.advance(b)
		res.Applied = true
		res.Completed = b.Status == StatusCompleted
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	res.Battle = b

	if res.Completed {
		m.logCompleted(b)
	}
	if !res.Applied {
		m.logger.Debug().
			Str("battle_id", b.ID.String()).
			Int("question_index", questionIndex).
			Str("reason", res.Reason).
			Msg("progress ignored")
	}
	return res, nil
}

func (m *Manager) advance(b *Battle) {
	b.Questions[b.CurrentQuestionIndex].Status = QuestionCompleted
	b.CurrentQuestionIndex++
	if b.CurrentQuestionIndex < len(b.Questions) {
		b.Questions[b.CurrentQuestionIndex].Status = QuestionInProgress
		return
	}
	m.complete(b)
}

func (m *Manager) complete(b *Battle) {
	now := m.now()
	b.Status = StatusCompleted
	b.CompletedAt = &now
	switch {
	case b.CreatorScore > b.ChallengerScore:
		b.Winner = b.CreatedBy.ID
	case b.ChallengerScore > b.CreatorScore && b.ChallengerOfRecord() != nil:
		b.Winner = b.ChallengerOfRecord().ID
	default:
		b.Winner = ParticipantID{}
	}
}

func (m *Manager) logCompleted(b *Battle) {
	m.logger.Info().
		Str("battle_id", b.ID.String()).
		Str("room_code", b.RoomCode).
		Int("creator_score", b.CreatorScore).
		Int("challenger_score", b.ChallengerScore).
		Str("winner", b.Winner.String()).
		Msg("battle completed")
}

// CompleteResult reports the outcome of an explicit completion.
type CompleteResult struct {
	Battle           *Battle
	AlreadyCompleted bool
}

// CompleteWithScores finishes an in-progress battle with client-reported scores.
func (m *Manager) CompleteWithScores(ctx context.Context, id uuid.UUID, requester ParticipantID, scores Scores) (*CompleteResult, error) {
	if scores.Creator < 0 || scores.Challenger < 0 {
		return nil, validationError("scores", "scores must not be negative")
	}
	res := &CompleteResult{}
	b, err := m.mutate(ctx, id, func(b *Battle) (bool, error) {
		if _, ok := b.SideOf(requester); !ok {
			return false, forbidden("only participants can complete the battle")
		}
		switch b.Status {
		case StatusCompleted:
			res.AlreadyCompleted = true
			return false, nil
		case StatusWaiting:
			return false, conflict("battle has not started")
		}
		if scores.Creator+scores.Challenger > b.QuestionsNumber {
			return false, validationError("scores", fmt.Sprintf("total exceeds %d questions", b.QuestionsNumber))
		}
		b.CreatorScore = scores.Creator
		b.ChallengerScore = scores.Challenger
		for i := range b.Questions {
			b.Questions[i].Status = QuestionCompleted
		}
		b.CurrentQuestionIndex = len(b.Questions)
		m.complete(b)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	res.Battle = b
	if !res.AlreadyCompleted {
		m.logCompleted(b)
	}
	return res, nil
}

// DetachResult reports the effect of a participant leaving.
type DetachResult struct {
	Battle    *Battle
	Side      Side
	Deleted   bool
	Abandoned bool
}

// DetachParticipant releases connID from the battle behind roomCode. A
// departing creator deletes a battle that has not completed; a departing
// challenger only vacates its slot.
func (m *Manager) DetachParticipant(ctx context.Context, roomCode, connID string) (*DetachResult, error) {
	id, err := m.resolve(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	return m.detach(ctx, id, func(b *Battle) (Side, error) {
		side, ok := b.SideOfConnection(connID)
		if !ok {
			return "", notFound("connection is not attached to this battle")
		}
		return side, nil
	})
}

// LeaveByID removes the requesting challenger from the battle.
func (m *Manager) LeaveByID(ctx context.Context, id uuid.UUID, requester ParticipantID) (*DetachResult, error) {
	return m.detach(ctx, id, func(b *Battle) (Side, error) {
		side, ok := b.SideOf(requester)
		if !ok {
			return "", forbidden("not a participant of this battle")
		}
		if side == SideCreator {
			return "", forbidden("the creator must delete the battle instead of leaving")
		}
		return side, nil
	})
}

func (m *Manager) detach(ctx context.Context, id uuid.UUID, sideOf func(*Battle) (Side, error)) (*DetachResult, error) {
	unlock, err := m.locker.Lock(ctx, id.String())
	if err != nil {
		return nil, err
	}
	defer unlock()

	b, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	side, err := sideOf(b)
	if err != nil {
		return nil, err
	}

	res := &DetachResult{Side: side}
	next := b.Clone()
	switch {
	case side == SideCreator && b.Status != StatusCompleted:
		if err := m.store.Delete(ctx, id); err != nil {
			if errors.Is(err, ErrRecordNotFound) {
				return nil, notFound("battle not found")
			}
			return nil, fmt.Errorf("delete battle: %w", err)
		}
		res.Deleted = true
		res.Battle = b
		m.logger.Info().Str("battle_id", id.String()).Str("room_code", b.RoomCode).Msg("creator left, battle removed")
		return res, nil
	case side == SideCreator:
		next.CreatorConnectionID = ""
	case b.Status == StatusCompleted:
		next.ChallengerConnectionID = ""
	default:
		res.Abandoned = b.Status == StatusInProgress
		if res.Abandoned {
			next.FormerChallenger = next.Challenger
		}
		next.Challenger = nil
		next.ChallengerConnectionID = ""
	}

	if err := m.save(ctx, next); err != nil {
		return nil, err
	}
	res.Battle = next
	m.logger.Info().
		Str("battle_id", id.String()).
		Str("side", string(side)).
		Bool("abandoned", res.Abandoned).
		Msg("participant detached")
	return res, nil
}

// Get returns the battle with id.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*Battle, error) {
	return m.load(ctx, id)
}

// GetByRoomCode returns the battle currently holding code.
func (m *Manager) GetByRoomCode(ctx context.Context, code string) (*Battle, error) {
	b, err := m.store.GetByRoomCode(ctx, code)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, notFound("battle not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get battle by room code: %w", err)
	}
	return b, nil
}

func (m *Manager) List(ctx context.Context) ([]*Battle, error) {
	battles, err := m.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list battles: %w", err)
	}
	return battles, nil
}

// Delete removes a battle. Only its creator may do so.
func (m *Manager) Delete(ctx context.Context, id uuid.UUID, requester ParticipantID) (*Battle, error) {
	unlock, err := m.locker.Lock(ctx, id.String())
	if err != nil {
		return nil, err
	}
	defer unlock()

	b, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.CreatedBy.ID.Equal(requester) {
		return nil, forbidden("only the creator can delete the battle")
	}
	if err := m.store.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, notFound("battle not found")
		}
		return nil, fmt.Errorf("delete battle: %w", err)
	}
	m.logger.Info().Str("battle_id", id.String()).Str("room_code", b.RoomCode).Msg("battle deleted")
	return b, nil
}

func (m *Manager) resolve(ctx context.Context, roomCode string) (uuid.UUID, error) {
	b, err := m.GetByRoomCode(ctx, roomCode)
	if err != nil {
		return uuid.Nil, err
	}
	return b.ID, nil
}

func (m *Manager) load(ctx context.Context, id uuid.UUID) (*Battle, error) {
	b, err := m.store.Get(ctx, id)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, notFound("battle not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get battle: %w", err)
	}
	return b, nil
}

func (m *Manager) save(ctx context.Context, b *Battle) error {
	b.UpdatedAt = m.now()
	if err := m.store.Update(ctx, b); err != nil {
		switch {
		case errors.Is(err, ErrStaleWrite):
			return conflict("battle was modified concurrently")
		case errors.Is(err, ErrRecordNotFound):
			return notFound("battle not found")
		}
		return fmt.Errorf("update battle: %w", err)
	}
	return nil
}

// mutate runs fn on a copy of the battle under its lock and persists the
// copy when fn reports a change. The stored record is untouched on error.
func (m *Manager) mutate(ctx context.Context, id uuid.UUID, fn func(*Battle) (bool, error)) (*Battle, error) {
	unlock, err := m.locker.Lock(ctx, id.String())
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	next := current.Clone()
	changed, err := fn(next)
	if err != nil {
		return nil, err
	}
	if !changed {
		return current, nil
	}
	if next.Status.rank() < current.Status.rank() {
		return nil, fmt.Errorf("battle %s: status cannot move from %s back to %s", id, current.Status, next.Status)
	}
	if err := m.save(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}
