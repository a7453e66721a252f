package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/code-battle/internal/battle"
	"github.com/gokatarajesh/code-battle/internal/judge"
	"github.com/gokatarajesh/code-battle/internal/leaderboard"
	"github.com/gokatarajesh/code-battle/internal/logging"
	"github.com/gokatarajesh/code-battle/internal/metrics"
	"github.com/gokatarajesh/code-battle/internal/question"
	"github.com/gokatarajesh/code-battle/internal/room"
	ws "github.com/gokatarajesh/code-battle/pkg/http/ws"
)

const roomClosedCreatorLeft = "creator left the battle"

// Judge grades a submission against test cases.
type Judge interface {
	Evaluate(ctx context.Context, sub judge.Submission, cases []judge.Case) (judge.Verdict, error)
}

// ResultRecorder stores finished battles in the standings.
type ResultRecorder interface {
	RecordResult(ctx context.Context, res leaderboard.Result) error
}

// Client is one authenticated websocket connection.
type Client struct {
	ConnID      string
	Participant battle.Participant
}

// Options wires the Coordinator's optional collaborators.
type Options struct {
	Leaderboard ResultRecorder
	Metrics     *metrics.Collector
}

// Coordinator turns client actions into Manager calls and fans the
// resulting events out to the room.
type Coordinator struct {
	manager     *battle.Manager
	broadcaster *room.Broadcaster
	registry    *room.Registry
	rooms       battle.Locker
	questions   question.Pool
	judge       Judge
	results     ResultRecorder
	metrics     *metrics.Collector
	logger      zerolog.Logger
}

func NewCoordinator(manager *battle.Manager, broadcaster *room.Broadcaster, questions question.Pool, j Judge, logger zerolog.Logger, opts Options) *Coordinator {
	return &Coordinator{
		manager:     manager,
		broadcaster: broadcaster,
		registry:    broadcaster.Registry(),
		rooms:       battle.NewKeyedLocker(),
		questions:   questions,
		judge:       j,
		results:     opts.Leaderboard,
		metrics:     opts.Metrics,
		logger:      logger.With().Str("component", "session").Logger(),
	}
}

// CreateBattle registers a new waiting battle for creator.
func (c *Coordinator) CreateBattle(ctx context.Context, req battle.CreateRequest, creator battle.Participant) (*battle.Battle, error) {
	b, err := c.manager.CreateBattle(ctx, req, creator)
	if err != nil {
		return nil, err
	}
	c.metrics.BattleCreated()
	return b, nil
}

// Join attaches the client to the battle behind roomCode and sends it the
// authoritative battle state.
func (c *Coordinator) Join(ctx context.Context, cl Client, roomCode string) error {
	res, err := c.attach(ctx, cl, roomCode)
	if err != nil {
		return c.fail(cl, err)
	}
	b := res.Battle

	state := ws.BattleStatePayload{
		RoomCode:     b.RoomCode,
		ConnectionID: cl.ConnID,
		Side:         string(res.Side),
		IsCreator:    res.Side == battle.SideCreator,
		Battle:       b,
	}
	if current, ok := b.CurrentQuestion(); ok {
		if q, err := c.publicQuestion(ctx, current.ID); err == nil {
			state.Question = q
		}
	}
	c.sendTo(cl.ConnID, ws.TypeBattleState, state)

	if res.NotifyCreator && b.Challenger != nil {
		c.toSide(b.RoomCode, battle.SideCreator, ws.TypeOpponentJoined, ws.OpponentJoinedPayload{
			RoomCode: b.RoomCode,
			Opponent: player(*b.Challenger),
			Side:     string(battle.SideChallenger),
		})
	}
	return nil
}

// attach stores the connection on the battle and binds it in the registry
// while holding the room lock, so the registry ends on the same connection
// as the stored battle when one identity joins from two connections at once.
func (c *Coordinator) attach(ctx context.Context, cl Client, roomCode string) (*battle.AttachResult, error) {
	unlock, err := c.rooms.Lock(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	defer unlock()

	res, err := c.manager.AttachParticipant(ctx, roomCode, cl.ConnID, cl.Participant)
	if err != nil {
		return nil, err
	}
	if displaced := c.registry.Bind(res.Battle.RoomCode, res.Side, cl.ConnID); displaced != "" {
		c.logger.Debug().Str("room_code", res.Battle.RoomCode).Str("conn_id", displaced).Msg("connection replaced")
	}
	return res, nil
}

// Start begins the battle behind roomCode on behalf of the client.
func (c *Coordinator) Start(ctx context.Context, cl Client, roomCode string) error {
	res, err := c.manager.StartBattle(ctx, roomCode, cl.Participant.ID)
	if err != nil {
		return c.fail(cl, err)
	}
	if res.AlreadyStarted {
		// Resend the current question so a retrying creator is not left blank.
		c.sendQuestion(ctx, res.Battle, cl.ConnID)
		return nil
	}
	c.announceStart(ctx, res.Battle)
	return nil
}

// StartByID is the REST form of Start.
func (c *Coordinator) StartByID(ctx context.Context, id uuid.UUID, requester battle.ParticipantID) (*battle.Battle, error) {
	res, err := c.manager.StartBattleByID(ctx, id, requester)
	if err != nil {
		return nil, err
	}
	if !res.AlreadyStarted {
		c.announceStart(ctx, res.Battle)
	}
	return res.Battle, nil
}

func (c *Coordinator) announceStart(ctx context.Context, b *battle.Battle) {
	c.metrics.BattleStarted()
	c.sendQuestion(ctx, b, "")
	c.toSide(b.RoomCode, battle.SideChallenger, ws.TypeRedirectToBattle, ws.RedirectPayload{
		RoomCode: b.RoomCode,
		BattleID: b.ID.String(),
	})
}

// Submit grades a solution for the current question. A pass is recorded
// with compare-and-set semantics so only the first correct answer scores.
func (c *Coordinator) Submit(ctx context.Context, cl Client, req ws.SubmitSolutionPayload) error {
	slot, err := c.slotFor(cl, req.RoomCode)
	if err != nil {
		return c.fail(cl, err)
	}
	b, err := c.manager.GetByRoomCode(ctx, req.RoomCode)
	if err != nil {
		return c.fail(cl, err)
	}

	result := ws.SubmissionResultPayload{RoomCode: b.RoomCode, QuestionIndex: req.QuestionIndex}
	current, ok := b.CurrentQuestion()
	if !ok || b.CurrentQuestionIndex != req.QuestionIndex {
		result.Stale = true
		result.Message = battle.ReasonAlreadyResolved
		if b.Status != battle.StatusInProgress {
			result.Message = battle.ReasonNotInProgress
		}
		c.sendTo(cl.ConnID, ws.TypeSubmissionResult, result)
		return nil
	}

	q, err := c.questions.Get(ctx, current.ID)
	if err != nil {
		return c.fail(cl, fmt.Errorf("load question %s: %w", current.ID, err))
	}
	if err := checkLanguage(b, q, req.Language); err != nil {
		return c.fail(cl, err)
	}

	start := time.Now()
	verdict, err := c.judge.Evaluate(ctx, judge.Submission{Language: req.Language, SourceCode: req.SourceCode}, judgeCases(q))
	elapsed := time.Since(start).Seconds()
	if err != nil {
		c.metrics.Submission(metrics.ResultError, elapsed)
		reqLog := logging.FromContext(ctx)
		reqLog.Warn().Err(err).Str("room_code", b.RoomCode).Msg("judge failed")
		result.Retry = true
		result.Message = "could not evaluate submission, try again"
		c.sendTo(cl.ConnID, ws.TypeSubmissionResult, result)
		return nil
	}
	result.PassedCases = verdict.PassedCases
	result.TotalCases = verdict.TotalCases
	if !verdict.Passed {
		c.metrics.Submission(metrics.ResultFailed, elapsed)
		result.Retry = true
		c.sendTo(cl.ConnID, ws.TypeSubmissionResult, result)
		return nil
	}
	c.metrics.Submission(metrics.ResultPassed, elapsed)

	progress, err := c.manager.RecordCorrectSubmission(ctx, b.RoomCode, slot.Side, req.QuestionIndex)
	if err != nil {
		return c.fail(cl, err)
	}
	result.Passed = true
	if !progress.Applied {
		c.metrics.StaleSubmission()
		result.Stale = true
		result.Message = progress.Reason
		c.sendTo(cl.ConnID, ws.TypeSubmissionResult, result)
		return nil
	}
	c.sendTo(cl.ConnID, ws.TypeSubmissionResult, result)

	after := progress.Battle
	c.broadcast(after.RoomCode, ws.TypeScoreUpdate, ws.ScoreUpdatePayload{
		RoomCode: after.RoomCode,
		Scores:   scores(after),
	})
	scorer := after.ParticipantAt(slot.Side)
	awarded := ws.PointAwardedPayload{
		RoomCode:      after.RoomCode,
		QuestionIndex: progress.ResolvedIndex,
		Side:          string(slot.Side),
	}
	if scorer != nil {
		awarded.UserID = scorer.ID.String()
	}
	c.broadcast(after.RoomCode, ws.TypePointAwarded, awarded)
	c.advance(ctx, progress)
	return nil
}

// Expire resolves the current question without a point when its timer runs out.
func (c *Coordinator) Expire(ctx context.Context, cl Client, req ws.QuestionExpiredPayload) error {
	if _, err := c.slotFor(cl, req.RoomCode); err != nil {
		return c.fail(cl, err)
	}
	progress, err := c.manager.ExpireQuestion(ctx, req.RoomCode, req.QuestionIndex)
	if err != nil {
		return c.fail(cl, err)
	}
	if !progress.Applied {
		// The other client's timer fired first.
		return nil
	}
	c.advance(ctx, progress)
	return nil
}

func (c *Coordinator) advance(ctx context.Context, progress *battle.ProgressResult) {
	if progress.Completed {
		c.announceCompletion(ctx, progress.Battle)
		return
	}
	c.sendQuestion(ctx, progress.Battle, "")
}

// CompleteByID is the REST completion path with client-reported scores.
func (c *Coordinator) CompleteByID(ctx context.Context, id uuid.UUID, requester battle.ParticipantID, s battle.Scores) (*battle.Battle, error) {
	res, err := c.manager.CompleteWithScores(ctx, id, requester, s)
	if err != nil {
		return nil, err
	}
	if !res.AlreadyCompleted {
		c.announceCompletion(ctx, res.Battle)
	}
	return res.Battle, nil
}

// announceCompletion tells each side whether it won and records the result.
func (c *Coordinator) announceCompletion(ctx context.Context, b *battle.Battle) {
	for _, side := range []battle.Side{battle.SideCreator, battle.SideChallenger} {
		p := b.ParticipantAt(side)
		payload := ws.BattleCompletedPayload{
			RoomCode: b.RoomCode,
			BattleID: b.ID.String(),
			IsTie:    b.IsTie(),
			WinnerID: b.Winner.String(),
			Scores:   scores(b),
		}
		if p != nil {
			payload.IsWinner = !b.Winner.IsZero() && b.Winner.Equal(p.ID)
		}
		c.toSide(b.RoomCode, side, ws.TypeBattleCompleted, payload)
	}

	c.metrics.BattleCompleted(b.IsTie())
	c.recordResult(ctx, b)
}

func (c *Coordinator) recordResult(ctx context.Context, b *battle.Battle) {
	challenger := b.ChallengerOfRecord()
	if c.results == nil || challenger == nil {
		return
	}
	res := leaderboard.Result{
		BattleID: b.ID,
		Winner:   b.Winner.UUID(),
		Players: []leaderboard.Player{
			{UserID: b.CreatedBy.ID.UUID(), DisplayName: b.CreatedBy.Name, Points: b.CreatorScore},
			{UserID: challenger.ID.UUID(), DisplayName: challenger.Name, Points: b.ChallengerScore},
		},
	}
	if err := c.results.RecordResult(context.WithoutCancel(ctx), res); err != nil {
		c.logger.Warn().Err(err).Str("battle_id", b.ID.String()).Msg("leaderboard update failed")
	}
}

// Leave detaches the client from roomCode at its request.
func (c *Coordinator) Leave(ctx context.Context, cl Client, roomCode string) error {
	if err := c.detach(ctx, roomCode, cl.ConnID); err != nil {
		return c.fail(cl, err)
	}
	return nil
}

// Disconnect cleans up after a dropped connection. Connections that were
// never bound, or were already replaced, are ignored.
func (c *Coordinator) Disconnect(ctx context.Context, connID string) {
	slot, ok := c.registry.Lookup(connID)
	if !ok {
		return
	}
	err := c.detach(ctx, slot.RoomCode, connID)
	if err != nil && !errors.Is(err, battle.ErrNotFound) {
		c.logger.Warn().Err(err).Str("conn_id", connID).Str("room_code", slot.RoomCode).Msg("disconnect cleanup failed")
	}
	c.registry.Unbind(connID)
}

func (c *Coordinator) detach(ctx context.Context, roomCode, connID string) error {
	unlock, err := c.rooms.Lock(ctx, roomCode)
	if err != nil {
		return err
	}
	defer unlock()

	res, err := c.manager.DetachParticipant(ctx, roomCode, connID)
	if err != nil {
		return err
	}
	c.afterDetach(res)
	return nil
}

// LeaveByID is the REST leave path for the challenger.
func (c *Coordinator) LeaveByID(ctx context.Context, id uuid.UUID, requester battle.ParticipantID) (*battle.Battle, error) {
	before, err := c.manager.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	unlock, err := c.rooms.Lock(ctx, before.RoomCode)
	if err != nil {
		return nil, err
	}
	defer unlock()

	res, err := c.manager.LeaveByID(ctx, id, requester)
	if err != nil {
		return nil, err
	}
	if before.ChallengerConnectionID != "" {
		c.registry.Unbind(before.ChallengerConnectionID)
	}
	c.afterDetach(res)
	return res.Battle, nil
}

func (c *Coordinator) afterDetach(res *battle.DetachResult) {
	b := res.Battle
	if res.Deleted {
		c.broadcaster.CloseRoom(b.RoomCode, c.message(ws.TypeRoomClosed, ws.RoomClosedPayload{
			RoomCode: b.RoomCode,
			Reason:   roomClosedCreatorLeft,
		}))
		return
	}
	if connID := c.registry.Connection(b.RoomCode, res.Side); connID != "" {
		c.registry.Unbind(connID)
	}
	c.toSide(b.RoomCode, res.Side.Other(), ws.TypeOpponentLeft, ws.OpponentLeftPayload{
		RoomCode: b.RoomCode,
		Side:     string(res.Side),
		Status:   string(b.Status),
	})
}

// DeleteByID removes a battle for its creator and closes the room.
func (c *Coordinator) DeleteByID(ctx context.Context, id uuid.UUID, requester battle.ParticipantID) error {
	b, err := c.manager.Delete(ctx, id, requester)
	if err != nil {
		return err
	}
	c.broadcaster.CloseRoom(b.RoomCode, c.message(ws.TypeRoomClosed, ws.RoomClosedPayload{
		RoomCode: b.RoomCode,
		Reason:   "battle deleted",
	}))
	return nil
}

// Relay forwards a client-authored event to the opponent. The server never
// reads scores from relayed payloads.
func (c *Coordinator) Relay(cl Client, msg ws.Message, roomCode string) error {
	if _, err := c.slotFor(cl, roomCode); err != nil {
		return c.fail(cl, err)
	}
	c.broadcaster.ToOthers(roomCode, cl.ConnID, ws.Message{Type: msg.Type, Payload: msg.Payload})
	return nil
}

// Manager exposes the lifecycle manager for read paths.
func (c *Coordinator) Manager() *battle.Manager { return c.manager }

func (c *Coordinator) slotFor(cl Client, roomCode string) (room.Slot, error) {
	slot, ok := c.registry.Lookup(cl.ConnID)
	if !ok || slot.RoomCode != roomCode {
		return room.Slot{}, errNotInRoom
	}
	return slot, nil
}

// sendQuestion pushes the current question to the room, or to connID only.
func (c *Coordinator) sendQuestion(ctx context.Context, b *battle.Battle, connID string) {
	current, ok := b.CurrentQuestion()
	if !ok {
		return
	}
	q, err := c.publicQuestion(ctx, current.ID)
	if err != nil {
		c.logger.Error().Err(err).Str("battle_id", b.ID.String()).Str("question_id", current.ID).Msg("question unavailable")
		return
	}
	payload := ws.NewQuestionPayload{
		RoomCode:         b.RoomCode,
		Index:            b.CurrentQuestionIndex,
		Total:            len(b.Questions),
		TimeLimitSeconds: b.TimeLimitPerQuestion,
		Question:         q,
	}
	if connID != "" {
		c.sendTo(connID, ws.TypeNewQuestion, payload)
		return
	}
	c.broadcast(b.RoomCode, ws.TypeNewQuestion, payload)
}

func (c *Coordinator) publicQuestion(ctx context.Context, id string) (question.Question, error) {
	q, err := c.questions.Get(ctx, id)
	if err != nil {
		return question.Question{}, err
	}
	return q.Public(), nil
}

// fail reports err to the caller only and returns it for logging.
func (c *Coordinator) fail(cl Client, err error) error {
	c.sendTo(cl.ConnID, ws.TypeError, ws.ErrorPayload{Code: errorCode(err), Message: clientMessage(err)})
	return err
}

func (c *Coordinator) message(msgType string, payload interface{}) ws.Message {
	msg, err := ws.NewMessage(msgType, payload)
	if err != nil {
		c.logger.Error().Err(err).Str("type", msgType).Msg("encode event")
	}
	return msg
}

func (c *Coordinator) sendTo(connID, msgType string, payload interface{}) {
	c.broadcaster.ToConnection(connID, c.message(msgType, payload))
}

func (c *Coordinator) broadcast(roomCode, msgType string, payload interface{}) {
	c.broadcaster.ToRoom(roomCode, c.message(msgType, payload))
}

func (c *Coordinator) toSide(roomCode string, side battle.Side, msgType string, payload interface{}) {
	c.broadcaster.ToSide(roomCode, side, c.message(msgType, payload))
}

func checkLanguage(b *battle.Battle, q *question.Question, lang string) error {
	if !judge.SupportsLanguage(lang) {
		return fmt.Errorf("%w: %q is not supported", errLanguageNotAllowed, lang)
	}
	if !b.AllowsLanguage(lang) {
		return fmt.Errorf("%w: this battle only accepts %v", errLanguageNotAllowed, b.AllowedLanguages)
	}
	if len(q.AllowedLanguages) > 0 {
		for _, l := range q.AllowedLanguages {
			if l == lang {
				return nil
			}
		}
		return fmt.Errorf("%w: this question only accepts %v", errLanguageNotAllowed, q.AllowedLanguages)
	}
	return nil
}

func judgeCases(q *question.Question) []judge.Case {
	cases := make([]judge.Case, 0, len(q.TestCases))
	for _, tc := range q.TestCases {
		cases = append(cases, judge.Case{Input: tc.Input, Expected: tc.ExpectedOutput})
	}
	return cases
}

func scores(b *battle.Battle) ws.Scores {
	return ws.Scores{Creator: b.CreatorScore, Challenger: b.ChallengerScore}
}

func player(p battle.Participant) ws.Player {
	return ws.Player{UserID: p.ID.String(), Name: p.Name}
}
