package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/code-battle/internal/battle"
	"github.com/gokatarajesh/code-battle/internal/judge"
	"github.com/gokatarajesh/code-battle/internal/leaderboard"
	"github.com/gokatarajesh/code-battle/internal/question"
	"github.com/gokatarajesh/code-battle/internal/room"
	httperrors "github.com/gokatarajesh/code-battle/pkg/http/errors"
	ws "github.com/gokatarajesh/code-battle/pkg/http/ws"
)

type recordingSender struct {
	mu   sync.Mutex
	sent map[string][]ws.Message
}

func (s *recordingSender) SendTo(connID string, msg ws.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent[connID] = append(s.sent[connID], msg)
	return nil
}

func (s *recordingSender) types(connID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, m := range s.sent[connID] {
		out = append(out, m.Type)
	}
	return out
}

// last decodes the newest message of msgType sent to connID.
func (s *recordingSender) last(t *testing.T, connID, msgType string, dst interface{}) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.sent[connID]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == msgType {
			require.NoError(t, json.Unmarshal(msgs[i].Payload, dst))
			return
		}
	}
	t.Fatalf("no %s sent to %s; got %v", msgType, connID, s.typesLocked(connID))
}

func (s *recordingSender) typesLocked(connID string) []string {
	var out []string
	for _, m := range s.sent[connID] {
		out = append(out, m.Type)
	}
	return out
}

func (s *recordingSender) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = map[string][]ws.Message{}
}

// scriptedJudge grades by source text: "pass", "fail" or "boom".
type scriptedJudge struct {
	gate func()
}

func (j *scriptedJudge) Evaluate(_ context.Context, sub judge.Submission, cases []judge.Case) (judge.Verdict, error) {
	if j.gate != nil {
		j.gate()
	}
	switch sub.SourceCode {
	case "pass":
		return judge.Verdict{Passed: true, PassedCases: len(cases), TotalCases: len(cases)}, nil
	case "boom":
		return judge.Verdict{}, errors.New("judge unavailable")
	default:
		return judge.Verdict{PassedCases: 0, TotalCases: len(cases)}, nil
	}
}

type recordedResults struct {
	mu      sync.Mutex
	results []leaderboard.Result
}

func (r *recordedResults) RecordResult(_ context.Context, res leaderboard.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
	return nil
}

type harness struct {
	coord   *Coordinator
	sender  *recordingSender
	judge   *scriptedJudge
	results *recordedResults
	creator Client
	rival   Client
}

func testBank(t *testing.T) *question.FileBank {
	t.Helper()
	var qs []question.Question
	for i := 0; i < 5; i++ {
		qs = append(qs, question.Question{
			ID:         fmt.Sprintf("easy-%d", i),
			Title:      fmt.Sprintf("Problem %d", i),
			Difficulty: question.DifficultyEasy,
			TestCases: []question.TestCase{
				{Input: "1", ExpectedOutput: "1", Visible: true},
				{Input: "2", ExpectedOutput: "2"},
			},
		})
	}
	qs[2].AllowedLanguages = []string{"go"}
	bank, err := question.NewFileBank(qs)
	require.NoError(t, err)
	return bank
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	bank := testBank(t)
	manager := battle.NewManager(battle.NewMemoryStore(), bank, zerolog.Nop(), battle.Options{
		KnownLanguage: judge.SupportsLanguage,
		Shuffle:       func(int, func(i, j int)) {},
	})
	sender := &recordingSender{sent: map[string][]ws.Message{}}
	broadcaster := room.NewBroadcaster(room.NewRegistry(nil, zerolog.Nop()), sender, zerolog.Nop())
	h := &harness{
		sender:  sender,
		judge:   &scriptedJudge{},
		results: &recordedResults{},
		creator: Client{ConnID: "c1", Participant: battle.Participant{ID: battle.NewParticipantID(uuid.New()), Name: "ada"}},
		rival:   Client{ConnID: "c2", Participant: battle.Participant{ID: battle.NewParticipantID(uuid.New()), Name: "grace"}},
	}
	h.coord = NewCoordinator(manager, broadcaster, bank, h.judge, zerolog.Nop(), Options{Leaderboard: h.results})
	return h
}

func createRequest(mode string) battle.CreateRequest {
	return battle.CreateRequest{
		BattleName:      "Friday duel",
		Description:     "arrays only",
		QuestionsNumber: 3,
		Difficulty:      "easy",
		Mode:            mode,
	}
}

// paired creates a battle and joins both sides.
func (h *harness) paired(t *testing.T, mode string) *battle.Battle {
	t.Helper()
	ctx := context.Background()
	b, err := h.coord.CreateBattle(ctx, createRequest(mode), h.creator.Participant)
	require.NoError(t, err)
	require.NoError(t, h.coord.Join(ctx, h.creator, b.RoomCode))
	require.NoError(t, h.coord.Join(ctx, h.rival, b.RoomCode))
	return b
}

func (h *harness) started(t *testing.T, mode string) *battle.Battle {
	t.Helper()
	b := h.paired(t, mode)
	require.NoError(t, h.coord.Start(context.Background(), h.creator, b.RoomCode))
	h.sender.reset()
	return b
}

func (h *harness) submit(t *testing.T, cl Client, code string, idx int, source string) {
	t.Helper()
	err := h.coord.Submit(context.Background(), cl, ws.SubmitSolutionPayload{
		RoomCode:      code,
		QuestionIndex: idx,
		Language:      "go",
		SourceCode:    source,
	})
	require.NoError(t, err)
}

func (h *harness) battle(t *testing.T, code string) *battle.Battle {
	t.Helper()
	b, err := h.coord.Manager().GetByRoomCode(context.Background(), code)
	require.NoError(t, err)
	return b
}

func TestCoordinator_JoinNotifiesCreatorOnce(t *testing.T) {
	h := newHarness(t)
	b := h.paired(t, "time")

	assert.Equal(t, []string{ws.TypeBattleState, ws.TypeOpponentJoined}, h.sender.types("c1"))
	assert.Equal(t, []string{ws.TypeBattleState}, h.sender.types("c2"))

	var joined ws.OpponentJoinedPayload
	h.sender.last(t, "c1", ws.TypeOpponentJoined, &joined)
	assert.Equal(t, "grace", joined.Opponent.Name)

	var state ws.BattleStatePayload
	h.sender.last(t, "c2", ws.TypeBattleState, &state)
	assert.Equal(t, "challenger", state.Side)
	assert.False(t, state.IsCreator)

	// A reconnecting challenger does not re-announce itself.
	again := Client{ConnID: "c2b", Participant: h.rival.Participant}
	require.NoError(t, h.coord.Join(context.Background(), again, b.RoomCode))
	assert.Equal(t, []string{ws.TypeBattleState, ws.TypeOpponentJoined}, h.sender.types("c1"))
}

func TestCoordinator_ThirdIdentityIsRejected(t *testing.T) {
	h := newHarness(t)
	b := h.paired(t, "time")

	intruder := Client{ConnID: "c3", Participant: battle.Participant{ID: battle.NewParticipantID(uuid.New())}}
	err := h.coord.Join(context.Background(), intruder, b.RoomCode)
	assert.ErrorIs(t, err, battle.ErrConflict)

	var payload ws.ErrorPayload
	h.sender.last(t, "c3", ws.TypeError, &payload)
	assert.Equal(t, httperrors.ErrCodeBattleConflict, payload.Code)
}

func TestCoordinator_StartBroadcastsFirstQuestion(t *testing.T) {
	h := newHarness(t)
	b := h.paired(t, "time")
	h.sender.reset()

	require.NoError(t, h.coord.Start(context.Background(), h.creator, b.RoomCode))
	assert.Equal(t, []string{ws.TypeNewQuestion}, h.sender.types("c1"))
	assert.Equal(t, []string{ws.TypeNewQuestion, ws.TypeRedirectToBattle}, h.sender.types("c2"))

	var q ws.NewQuestionPayload
	h.sender.last(t, "c2", ws.TypeNewQuestion, &q)
	assert.Equal(t, 0, q.Index)
	assert.Equal(t, 3, q.Total)
	raw, err := json.Marshal(q.Question)
	require.NoError(t, err)
	var pub question.Question
	require.NoError(t, json.Unmarshal(raw, &pub))
	assert.Len(t, pub.TestCases, 1, "hidden cases must not reach clients")

	// A repeated start only answers the caller.
	h.sender.reset()
	require.NoError(t, h.coord.Start(context.Background(), h.creator, b.RoomCode))
	assert.Equal(t, []string{ws.TypeNewQuestion}, h.sender.types("c1"))
	assert.Empty(t, h.sender.types("c2"))
}

func TestCoordinator_ChallengerCannotStart(t *testing.T) {
	h := newHarness(t)
	b := h.paired(t, "time")

	err := h.coord.Start(context.Background(), h.rival, b.RoomCode)
	assert.ErrorIs(t, err, battle.ErrForbidden)
	assert.Equal(t, battle.StatusWaiting, h.battle(t, b.RoomCode).Status)
}

func TestCoordinator_CorrectSubmissionScores(t *testing.T) {
	h := newHarness(t)
	b := h.started(t, "time")

	h.submit(t, h.rival, b.RoomCode, 0, "pass")

	assert.Equal(t,
		[]string{ws.TypeSubmissionResult, ws.TypeScoreUpdate, ws.TypePointAwarded, ws.TypeNewQuestion},
		h.sender.types("c2"))
	assert.Equal(t,
		[]string{ws.TypeScoreUpdate, ws.TypePointAwarded, ws.TypeNewQuestion},
		h.sender.types("c1"))

	var scores ws.ScoreUpdatePayload
	h.sender.last(t, "c1", ws.TypeScoreUpdate, &scores)
	assert.Equal(t, ws.Scores{Creator: 0, Challenger: 1}, scores.Scores)

	var awarded ws.PointAwardedPayload
	h.sender.last(t, "c1", ws.TypePointAwarded, &awarded)
	assert.Equal(t, "challenger", awarded.Side)
	assert.Equal(t, h.rival.Participant.ID.String(), awarded.UserID)

	after := h.battle(t, b.RoomCode)
	assert.Equal(t, 1, after.CurrentQuestionIndex)
	assert.Equal(t, 1, after.ChallengerScore)
}

func TestCoordinator_LateSubmissionIsStale(t *testing.T) {
	h := newHarness(t)
	b := h.started(t, "time")

	h.submit(t, h.rival, b.RoomCode, 0, "pass")
	h.sender.reset()
	h.submit(t, h.creator, b.RoomCode, 0, "pass")

	var res ws.SubmissionResultPayload
	h.sender.last(t, "c1", ws.TypeSubmissionResult, &res)
	assert.True(t, res.Stale)
	assert.Empty(t, h.sender.types("c2"))
	assert.Equal(t, 0, h.battle(t, b.RoomCode).CreatorScore)
}

func TestCoordinator_SimultaneousCorrectSubmissionsScoreOnce(t *testing.T) {
	h := newHarness(t)
	b := h.started(t, "time")

	var arrived sync.WaitGroup
	arrived.Add(2)
	h.judge.gate = func() {
		arrived.Done()
		arrived.Wait()
	}

	var wg sync.WaitGroup
	for _, cl := range []Client{h.creator, h.rival} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.coord.Submit(context.Background(), cl, ws.SubmitSolutionPayload{
				RoomCode: b.RoomCode, QuestionIndex: 0, Language: "go", SourceCode: "pass",
			}))
		}()
	}
	wg.Wait()

	after := h.battle(t, b.RoomCode)
	assert.Equal(t, 1, after.CreatorScore+after.ChallengerScore)
	assert.Equal(t, 1, after.CurrentQuestionIndex)

	var r1, r2 ws.SubmissionResultPayload
	h.sender.last(t, "c1", ws.TypeSubmissionResult, &r1)
	h.sender.last(t, "c2", ws.TypeSubmissionResult, &r2)
	assert.True(t, r1.Stale != r2.Stale, "exactly one submission must be stale")
}

func TestCoordinator_FailedSubmissionAllowsRetry(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{name: "wrong answer", source: "fail"},
		{name: "judge error", source: "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			b := h.started(t, "time")

			h.submit(t, h.creator, b.RoomCode, 0, tt.source)

			var res ws.SubmissionResultPayload
			h.sender.last(t, "c1", ws.TypeSubmissionResult, &res)
			assert.False(t, res.Passed)
			assert.True(t, res.Retry)
			assert.Empty(t, h.sender.types("c2"))
			assert.Equal(t, 0, h.battle(t, b.RoomCode).CurrentQuestionIndex)
		})
	}
}

func TestCoordinator_SubmissionLanguageChecks(t *testing.T) {
	h := newHarness(t)
	b := h.started(t, "time")

	err := h.coord.Submit(context.Background(), h.creator, ws.SubmitSolutionPayload{
		RoomCode: b.RoomCode, QuestionIndex: 0, Language: "cobol", SourceCode: "pass",
	})
	assert.ErrorIs(t, err, errLanguageNotAllowed)

	var payload ws.ErrorPayload
	h.sender.last(t, "c1", ws.TypeError, &payload)
	assert.Equal(t, httperrors.ErrCodeLanguageNotAllowed, payload.Code)

	// easy-2 only accepts go.
	h.submit(t, h.creator, b.RoomCode, 0, "pass")
	h.submit(t, h.creator, b.RoomCode, 1, "pass")
	err = h.coord.Submit(context.Background(), h.creator, ws.SubmitSolutionPayload{
		RoomCode: b.RoomCode, QuestionIndex: 2, Language: "python", SourceCode: "pass",
	})
	assert.ErrorIs(t, err, errLanguageNotAllowed)
}

func TestCoordinator_SubmitRequiresRoomBinding(t *testing.T) {
	h := newHarness(t)
	b := h.started(t, "time")

	stranger := Client{ConnID: "c9", Participant: h.creator.Participant}
	err := h.coord.Submit(context.Background(), stranger, ws.SubmitSolutionPayload{
		RoomCode: b.RoomCode, QuestionIndex: 0, Language: "go", SourceCode: "pass",
	})
	assert.ErrorIs(t, err, errNotInRoom)
	assert.Equal(t, 0, h.battle(t, b.RoomCode).CreatorScore)
}

func TestCoordinator_FinalQuestionCompletesBattle(t *testing.T) {
	h := newHarness(t)
	b := h.started(t, "time")

	h.submit(t, h.creator, b.RoomCode, 0, "pass")
	h.submit(t, h.rival, b.RoomCode, 1, "pass")
	h.submit(t, h.creator, b.RoomCode, 2, "pass")

	var mine, theirs ws.BattleCompletedPayload
	h.sender.last(t, "c1", ws.TypeBattleCompleted, &mine)
	h.sender.last(t, "c2", ws.TypeBattleCompleted, &theirs)
	assert.True(t, mine.IsWinner)
	assert.False(t, theirs.IsWinner)
	assert.False(t, mine.IsTie)
	assert.Equal(t, ws.Scores{Creator: 2, Challenger: 1}, mine.Scores)
	assert.Equal(t, h.creator.Participant.ID.String(), theirs.WinnerID)

	after := h.battle(t, b.RoomCode)
	assert.Equal(t, battle.StatusCompleted, after.Status)

	require.Len(t, h.results.results, 1)
	assert.Equal(t, h.creator.Participant.ID.UUID(), h.results.results[0].Winner)
	assert.Len(t, h.results.results[0].Players, 2)
}

func TestCoordinator_ExpireAdvancesOnce(t *testing.T) {
	h := newHarness(t)
	b := h.started(t, "quality")
	ctx := context.Background()

	expire := ws.QuestionExpiredPayload{RoomCode: b.RoomCode, QuestionIndex: 0}
	require.NoError(t, h.coord.Expire(ctx, h.creator, expire))
	require.NoError(t, h.coord.Expire(ctx, h.rival, expire))

	assert.Equal(t, []string{ws.TypeNewQuestion}, h.sender.types("c1"))
	after := h.battle(t, b.RoomCode)
	assert.Equal(t, 1, after.CurrentQuestionIndex)
	assert.Equal(t, 0, after.CreatorScore+after.ChallengerScore)
}

func TestCoordinator_ExpiringEveryQuestionEndsInTie(t *testing.T) {
	h := newHarness(t)
	b := h.started(t, "quality")

	for i := 0; i < 3; i++ {
		require.NoError(t, h.coord.Expire(context.Background(), h.creator, ws.QuestionExpiredPayload{RoomCode: b.RoomCode, QuestionIndex: i}))
	}

	var done ws.BattleCompletedPayload
	h.sender.last(t, "c2", ws.TypeBattleCompleted, &done)
	assert.True(t, done.IsTie)
	assert.False(t, done.IsWinner)
	assert.Empty(t, done.WinnerID)
}

func TestCoordinator_ChallengerDisconnectVacatesSlot(t *testing.T) {
	h := newHarness(t)
	b := h.paired(t, "time")
	h.sender.reset()

	h.coord.Disconnect(context.Background(), "c2")

	var left ws.OpponentLeftPayload
	h.sender.last(t, "c1", ws.TypeOpponentLeft, &left)
	assert.Equal(t, "challenger", left.Side)
	assert.Equal(t, string(battle.StatusWaiting), left.Status)

	after := h.battle(t, b.RoomCode)
	assert.Nil(t, after.Challenger)
	assert.Empty(t, after.ChallengerConnectionID)

	// A second disconnect for the same connection is a no-op.
	h.coord.Disconnect(context.Background(), "c2")
	assert.Len(t, h.sender.types("c1"), 1)
}

func TestCoordinator_ChallengerReconnectsMidBattle(t *testing.T) {
	h := newHarness(t)
	b := h.started(t, "time")
	ctx := context.Background()

	h.submit(t, h.rival, b.RoomCode, 0, "pass")
	h.coord.Disconnect(ctx, "c2")
	var left ws.OpponentLeftPayload
	h.sender.last(t, "c1", ws.TypeOpponentLeft, &left)
	assert.Equal(t, string(battle.StatusInProgress), left.Status)

	back := Client{ConnID: "c3", Participant: h.rival.Participant}
	require.NoError(t, h.coord.Join(ctx, back, b.RoomCode))

	var state ws.BattleStatePayload
	h.sender.last(t, "c3", ws.TypeBattleState, &state)
	assert.Equal(t, "challenger", state.Side)
	assert.NotNil(t, state.Question)
	var joined ws.OpponentJoinedPayload
	h.sender.last(t, "c1", ws.TypeOpponentJoined, &joined)
	assert.Equal(t, "grace", joined.Opponent.Name)
	assert.Equal(t, "c3", h.coord.registry.Connection(b.RoomCode, battle.SideChallenger))

	h.submit(t, back, b.RoomCode, 1, "pass")
	after := h.battle(t, b.RoomCode)
	assert.Equal(t, 2, after.ChallengerScore)
	assert.Equal(t, 2, after.CurrentQuestionIndex)
}

func TestCoordinator_DepartedChallengerKeepsWinningScore(t *testing.T) {
	h := newHarness(t)
	b := h.started(t, "time")

	h.submit(t, h.rival, b.RoomCode, 0, "pass")
	h.submit(t, h.rival, b.RoomCode, 1, "pass")
	h.coord.Disconnect(context.Background(), "c2")
	h.submit(t, h.creator, b.RoomCode, 2, "pass")

	var done ws.BattleCompletedPayload
	h.sender.last(t, "c1", ws.TypeBattleCompleted, &done)
	assert.False(t, done.IsTie)
	assert.False(t, done.IsWinner)
	assert.Equal(t, h.rival.Participant.ID.String(), done.WinnerID)
	assert.Equal(t, ws.Scores{Creator: 1, Challenger: 2}, done.Scores)

	require.Len(t, h.results.results, 1)
	assert.Equal(t, h.rival.Participant.ID.UUID(), h.results.results[0].Winner)
	assert.Len(t, h.results.results[0].Players, 2)
}

func TestCoordinator_RacingJoinsAgreeOnConnection(t *testing.T) {
	h := newHarness(t)
	b := h.paired(t, "time")
	ctx := context.Background()

	for round := 0; round < 25; round++ {
		var wg sync.WaitGroup
		for _, connID := range []string{fmt.Sprintf("a%d", round), fmt.Sprintf("b%d", round)} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, h.coord.Join(ctx, Client{ConnID: connID, Participant: h.rival.Participant}, b.RoomCode))
			}()
		}
		wg.Wait()

		stored := h.battle(t, b.RoomCode)
		assert.Equal(t, stored.ChallengerConnectionID, h.coord.registry.Connection(b.RoomCode, battle.SideChallenger), "round %d", round)
	}
}

func TestCoordinator_CreatorLeaveClosesRoom(t *testing.T) {
	h := newHarness(t)
	b := h.paired(t, "time")
	h.sender.reset()

	require.NoError(t, h.coord.Leave(context.Background(), h.creator, b.RoomCode))

	var closed ws.RoomClosedPayload
	h.sender.last(t, "c2", ws.TypeRoomClosed, &closed)
	assert.Equal(t, b.RoomCode, closed.RoomCode)

	_, err := h.coord.Manager().Get(context.Background(), b.ID)
	assert.ErrorIs(t, err, battle.ErrNotFound)

	err = h.coord.Relay(h.rival, ws.Message{Type: ws.TypeScoreUpdate}, b.RoomCode)
	assert.ErrorIs(t, err, errNotInRoom)
}

func TestCoordinator_ReplacedConnectionDisconnectIsIgnored(t *testing.T) {
	h := newHarness(t)
	b := h.paired(t, "time")

	again := Client{ConnID: "c2b", Participant: h.rival.Participant}
	require.NoError(t, h.coord.Join(context.Background(), again, b.RoomCode))
	h.sender.reset()

	h.coord.Disconnect(context.Background(), "c2")

	assert.Empty(t, h.sender.types("c1"))
	after := h.battle(t, b.RoomCode)
	require.NotNil(t, after.Challenger)
	assert.Equal(t, "c2b", after.ChallengerConnectionID)
}

func TestCoordinator_RelayReachesOpponentOnly(t *testing.T) {
	h := newHarness(t)
	b := h.started(t, "time")

	payload, err := json.Marshal(ws.RelayPayload{RoomCode: b.RoomCode, Data: json.RawMessage(`{"typing":true}`)})
	require.NoError(t, err)
	msg := ws.Message{Type: ws.TypeScoreUpdate, Payload: payload}

	require.NoError(t, h.coord.Relay(h.creator, msg, b.RoomCode))
	assert.Empty(t, h.sender.types("c1"))
	assert.Equal(t, []string{ws.TypeScoreUpdate}, h.sender.types("c2"))

	// Relayed scores never touch stored state.
	assert.Equal(t, 0, h.battle(t, b.RoomCode).ChallengerScore)
}

func TestCoordinator_RESTFlows(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	t.Run("leave by id", func(t *testing.T) {
		b := h.paired(t, "time")
		h.sender.reset()

		_, err := h.coord.LeaveByID(ctx, b.ID, h.creator.Participant.ID)
		assert.ErrorIs(t, err, battle.ErrForbidden)

		after, err := h.coord.LeaveByID(ctx, b.ID, h.rival.Participant.ID)
		require.NoError(t, err)
		assert.Nil(t, after.Challenger)
		assert.Contains(t, h.sender.types("c1"), ws.TypeOpponentLeft)
		require.NoError(t, h.coord.DeleteByID(ctx, b.ID, h.creator.Participant.ID))
	})

	t.Run("complete by id", func(t *testing.T) {
		b := h.paired(t, "time")
		_, err := h.coord.StartByID(ctx, b.ID, h.creator.Participant.ID)
		require.NoError(t, err)
		h.sender.reset()

		done, err := h.coord.CompleteByID(ctx, b.ID, h.rival.Participant.ID, battle.Scores{Creator: 1, Challenger: 2})
		require.NoError(t, err)
		assert.True(t, done.Winner.Equal(h.rival.Participant.ID))
		assert.Contains(t, h.sender.types("c1"), ws.TypeBattleCompleted)

		// Repeating is idempotent and does not notify again.
		h.sender.reset()
		_, err = h.coord.CompleteByID(ctx, b.ID, h.rival.Participant.ID, battle.Scores{Creator: 5, Challenger: 0})
		require.NoError(t, err)
		assert.Empty(t, h.sender.types("c1"))
	})

	t.Run("delete by id", func(t *testing.T) {
		b := h.paired(t, "time")
		h.sender.reset()

		assert.ErrorIs(t, h.coord.DeleteByID(ctx, b.ID, h.rival.Participant.ID), battle.ErrForbidden)
		require.NoError(t, h.coord.DeleteByID(ctx, b.ID, h.creator.Participant.ID))
		assert.Equal(t, []string{ws.TypeRoomClosed}, h.sender.types("c2"))
	})
}
