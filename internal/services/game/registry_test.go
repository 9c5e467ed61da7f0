package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/fourinarow/internal/dependencies/mocks"
	"github.com/mcoot/fourinarow/internal/events"
	"github.com/mcoot/fourinarow/internal/model"
	"github.com/mcoot/fourinarow/internal/services/archive"
	"github.com/mcoot/fourinarow/internal/services/board"
	"github.com/mcoot/fourinarow/internal/services/bot"
	"github.com/mcoot/fourinarow/internal/storage/memory"
	"github.com/mcoot/fourinarow/internal/testutil"
)

type RegistrySuite struct {
	suite.Suite
	storage   *memory.Storage
	clock     *mocks.MockClock
	random    *mocks.MockRandom
	publisher *mocks.MockPublisher
	notifier  *testutil.RecordingNotifier
	registry  *Registry
	ctx       context.Context
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.publisher = mocks.NewMockPublisher()
	s.notifier = &testutil.RecordingNotifier{}
	s.registry = NewRegistry(
		archive.New(s.storage, testutil.NopLogger()),
		s.publisher,
		bot.NewHeuristicStrategy(s.random),
		s.clock,
		s.random,
		testutil.NopLogger(),
		DefaultConfig(),
	)
	s.registry.SetNotifier(s.notifier)
	s.ctx = context.Background()
}

func (s *RegistrySuite) create(bAutomated bool) *model.Session {
	b := model.PlayerID("bob")
	if bAutomated {
		b = "ShadowWolf"
	}
	sess, err := s.registry.CreateSession(s.ctx, "alice", b, bAutomated)
	s.Require().NoError(err)
	return sess
}

func (s *RegistrySuite) move(id model.SessionID, player model.PlayerID, col int) *MoveOutcome {
	out, err := s.registry.SubmitMove(s.ctx, id, player, col)
	s.Require().NoError(err)
	return out
}

// setBoard replaces a live session's board and turn
func (s *RegistrySuite) setBoard(id model.SessionID, b *model.Board, turn model.Side) {
	ls := s.registry.live(id)
	s.Require().NotNil(ls)
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.session.Board = b
	ls.session.Turn = turn
}

func parse(rows ...string) *model.Board {
	b := model.NewBoard()
	for r, line := range rows {
		for c, ch := range line {
			switch ch {
			case 'A':
				b.Cells[r][c] = model.SideA
			case 'B':
				b.Cells[r][c] = model.SideB
			}
		}
	}
	return b
}

// CreateSession tests

func (s *RegistrySuite) TestCreateSession() {
	s.random.QueueUUID("session-1")
	sess := s.create(false)

	s.Equal(model.SessionID("session-1"), sess.ID)
	s.Equal(model.PlayerID("alice"), sess.PlayerA.ID)
	s.Equal(model.SideA, sess.PlayerA.Side)
	s.Equal(model.PlayerID("bob"), sess.PlayerB.ID)
	s.Equal(model.SideA, sess.Turn)
	s.Equal(model.SessionStatusInProgress, sess.Status)
	s.Equal(0, sess.Board.DiscCount())
	s.Equal(1, s.registry.ActiveSessions())

	got, ok := s.registry.GetSessionByParticipant("bob")
	s.Require().True(ok)
	s.Equal(sess.ID, got.ID)

	s.Equal(1, s.notifier.StartedCount())
	s.registry.Wait()
	s.Equal(1, s.publisher.Count(events.TopicSessionStarted))
}

func (s *RegistrySuite) TestCreateSessionDoesNotIndexAutomatedParticipant() {
	s.create(true)

	_, ok := s.registry.GetSessionByParticipant("alice")
	s.True(ok)
	_, ok = s.registry.GetSessionByParticipant("ShadowWolf")
	s.False(ok)
}

func (s *RegistrySuite) TestCreateSessionRejectsSamePlayer() {
	_, err := s.registry.CreateSession(s.ctx, "alice", "alice", false)
	s.ErrorIs(err, model.ErrInvalidPlayerID)
}

func (s *RegistrySuite) TestCreateSessionRejectsPlayerAlreadyInSession() {
	s.random.QueueUUID("session-1")
	first, err := s.registry.CreateSession(s.ctx, "host", "SwiftFox", true)
	s.Require().NoError(err)

	_, err = s.registry.CreateSession(s.ctx, "joiner", "host", false)
	s.ErrorIs(err, model.ErrAlreadyInSession)

	s.Equal(1, s.registry.ActiveSessions())
	got, ok := s.registry.GetSessionByParticipant("host")
	s.Require().True(ok)
	s.Equal(first.ID, got.ID)
	_, ok = s.registry.GetSessionByParticipant("joiner")
	s.False(ok)
	s.Equal(1, s.notifier.StartedCount())
}

func (s *RegistrySuite) TestCreateSessionOverwritesStaleIndexEntry() {
	s.registry.index["alice"] = "gone"

	sess := s.create(false)

	got, ok := s.registry.GetSessionByParticipant("alice")
	s.Require().True(ok)
	s.Equal(sess.ID, got.ID)
}

func (s *RegistrySuite) TestCreateSessionAfterCompletion() {
	sess := s.create(false)
	s.Require().NoError(s.registry.ForceForfeit(s.ctx, sess.ID, "alice", model.EndReasonForfeit))

	s.create(false)
	s.Equal(1, s.registry.ActiveSessions())
}

func (s *RegistrySuite) TestReturnedSessionIsASnapshot() {
	sess := s.create(false)
	sess.Board.Cells[5][0] = model.SideB

	got, err := s.registry.GetSession(sess.ID)
	s.Require().NoError(err)
	s.Equal(0, got.Board.DiscCount())
}

// SubmitMove validation tests

func (s *RegistrySuite) TestSubmitMoveUnknownSession() {
	_, err := s.registry.SubmitMove(s.ctx, "missing", "alice", 0)
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *RegistrySuite) TestSubmitMoveNotAParticipant() {
	sess := s.create(false)
	_, err := s.registry.SubmitMove(s.ctx, sess.ID, "mallory", 0)
	s.ErrorIs(err, model.ErrNotAParticipant)
}

func (s *RegistrySuite) TestSubmitMoveNotYourTurn() {
	sess := s.create(false)
	_, err := s.registry.SubmitMove(s.ctx, sess.ID, "bob", 0)
	s.ErrorIs(err, model.ErrNotYourTurn)
}

func (s *RegistrySuite) TestSubmitMoveBoardErrorsMutateNothing() {
	sess := s.create(false)

	_, err := s.registry.SubmitMove(s.ctx, sess.ID, "alice", 9)
	s.ErrorIs(err, model.ErrInvalidColumn)

	s.setBoard(sess.ID, parse("A......", "B......", "A......", "B......", "A......", "B......"), model.SideA)
	_, err = s.registry.SubmitMove(s.ctx, sess.ID, "alice", 0)
	s.ErrorIs(err, model.ErrColumnFull)

	got, err := s.registry.GetSession(sess.ID)
	s.Require().NoError(err)
	s.Equal(model.SideA, got.Turn)
	s.Empty(got.Moves)
	s.Equal(6, got.Board.DiscCount())
	s.Equal(0, s.notifier.UpdateCount())
}

// SubmitMove flow tests

func (s *RegistrySuite) TestTurnsAlternate() {
	sess := s.create(false)

	out := s.move(sess.ID, "alice", 3)
	s.Equal(5, out.Move.Row)
	s.Equal(model.SideB, out.NextTurn)
	s.Equal(board.OutcomeContinue, out.Outcome)

	out = s.move(sess.ID, "bob", 3)
	s.Equal(4, out.Move.Row)
	s.Equal(model.SideA, out.NextTurn)

	_, err := s.registry.SubmitMove(s.ctx, sess.ID, "bob", 3)
	s.ErrorIs(err, model.ErrNotYourTurn)

	got, err := s.registry.GetSession(sess.ID)
	s.Require().NoError(err)
	s.Len(got.Moves, 2)
	s.Equal(2, s.notifier.UpdateCount())
	s.Equal(model.SideA, s.notifier.Updates[1].Turn)
	s.Equal(3, s.notifier.Updates[1].LastMove.Column)
}

func (s *RegistrySuite) TestWinCompletesSession() {
	sess := s.create(false)
	for col := 0; col < 3; col++ {
		s.move(sess.ID, "alice", col)
		s.move(sess.ID, "bob", col)
	}
	out := s.move(sess.ID, "alice", 3)

	s.Equal(board.OutcomeWin, out.Outcome)
	s.Equal(model.PlayerID("alice"), out.Winner)
	s.Equal(model.EndReasonHorizontal, out.Reason)
	s.Equal([]model.Position{{Row: 5, Col: 0}, {Row: 5, Col: 1}, {Row: 5, Col: 2}, {Row: 5, Col: 3}}, out.WinningCells)

	// removed from the live map and the index
	_, err := s.registry.GetSession(sess.ID)
	s.ErrorIs(err, model.ErrSessionNotFound)
	_, ok := s.registry.GetSessionByParticipant("alice")
	s.False(ok)
	_, ok = s.registry.GetSessionByParticipant("bob")
	s.False(ok)
	s.Equal(0, s.registry.ActiveSessions())

	// board update precedes the end notification
	last := s.notifier.Updates[len(s.notifier.Updates)-1]
	s.True(last.IsOver)
	end := s.notifier.LastEnded()
	s.Require().NotNil(end)
	s.Equal(model.PlayerID("alice"), end.Winner)
	s.Equal(model.EndReasonHorizontal, end.Reason)
	s.Len(end.WinningCells, 4)

	s.registry.Wait()
	rec, err := s.storage.GetGameRecord(s.ctx, sess.ID)
	s.Require().NoError(err)
	s.Equal(model.PlayerID("alice"), rec.Winner)
	s.Len(rec.Moves, 7)
	s.Equal(1, s.publisher.Count(events.TopicSessionEnded))
	s.Equal(7, s.publisher.Count(events.TopicMoveMade))

	stats, err := s.storage.GetPlayerStats(s.ctx, "bob")
	s.Require().NoError(err)
	s.Equal(1, stats.GamesLost)
}

func (s *RegistrySuite) TestCompletionAfterShutdownArchivesInline() {
	sess := s.create(false)
	s.registry.Shutdown()

	s.Require().NoError(s.registry.ForceForfeit(s.ctx, sess.ID, "bob", model.EndReasonForfeit))

	rec, err := s.storage.GetGameRecord(s.ctx, sess.ID)
	s.Require().NoError(err)
	s.Equal(model.PlayerID("alice"), rec.Winner)
	s.Equal(1, s.publisher.Count(events.TopicSessionEnded))
}

func (s *RegistrySuite) TestMoveAfterCompletionIsRejected() {
	sess := s.create(false)
	s.Require().NoError(s.registry.ForceForfeit(s.ctx, sess.ID, "bob", model.EndReasonForfeit))

	_, err := s.registry.SubmitMove(s.ctx, sess.ID, "alice", 0)
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *RegistrySuite) TestCompletedSessionRejectsLateMove() {
	sess := s.create(false)
	ls := s.registry.live(sess.ID)
	s.Require().NoError(s.registry.ForceForfeit(s.ctx, sess.ID, "bob", model.EndReasonForfeit))

	// a caller that looked the session up before it completed
	ls.mu.Lock()
	_, err := s.registry.applyMoveLocked(ls, "alice", 0)
	ls.mu.Unlock()
	s.ErrorIs(err, model.ErrSessionNotInProgress)
}

func (s *RegistrySuite) TestDrawOnLastCell() {
	sess := s.create(false)
	b := parse(
		".BABABA",
		"ABABABA",
		"BABABAB",
		"BABABAB",
		"ABABABA",
		"ABABABA",
	)
	s.setBoard(sess.ID, b, model.SideA)

	out := s.move(sess.ID, "alice", 0)
	s.Equal(board.OutcomeDraw, out.Outcome)
	s.Equal(model.EndReasonDraw, out.Reason)

	end := s.notifier.LastEnded()
	s.Require().NotNil(end)
	s.Empty(end.Winner)
	s.Equal(model.EndReasonDraw, end.Reason)

	s.registry.Wait()
	stats, err := s.storage.GetPlayerStats(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(1, stats.GamesDrawn)
}

func (s *RegistrySuite) TestConcurrentMovesOnlyOneSucceeds() {
	sess := s.create(false)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.registry.SubmitMove(s.ctx, sess.ID, "alice", i)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			s.ErrorIs(err, model.ErrNotYourTurn)
		}
	}
	s.Equal(1, succeeded)
}

// Automated participant tests

func (s *RegistrySuite) TestBotMovesAfterDelay() {
	sess := s.create(true)

	s.move(sess.ID, "alice", 3)
	s.Equal(1, s.clock.PendingTimers())

	s.clock.Advance(500 * time.Millisecond)
	got, err := s.registry.GetSession(sess.ID)
	s.Require().NoError(err)
	s.Len(got.Moves, 1)

	s.clock.Advance(500 * time.Millisecond)
	got, err = s.registry.GetSession(sess.ID)
	s.Require().NoError(err)
	s.Require().Len(got.Moves, 2)
	s.Equal(model.PlayerID("ShadowWolf"), got.Moves[1].Player)
	s.Equal(2, got.Moves[1].Column) // first centre column
	s.Equal(model.SideA, got.Turn)
	s.Equal(0, s.clock.PendingTimers())
}

func (s *RegistrySuite) TestBotWinCompletesSession() {
	sess := s.create(true)
	s.setBoard(sess.ID, parse(
		".......",
		".......",
		".......",
		"......B",
		"A.....B",
		"A.....B",
	), model.SideA)

	s.move(sess.ID, "alice", 0)
	s.clock.Advance(time.Second)

	end := s.notifier.LastEnded()
	s.Require().NotNil(end)
	s.Equal(model.PlayerID("ShadowWolf"), end.Winner)
	s.Equal(model.EndReasonVertical, end.Reason)
	s.Equal(0, s.registry.ActiveSessions())

	s.registry.Wait()
	_, err := s.storage.GetPlayerStats(s.ctx, "ShadowWolf")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *RegistrySuite) TestForfeitCancelsPendingBotMove() {
	sess := s.create(true)
	s.move(sess.ID, "alice", 3)
	s.Equal(1, s.clock.PendingTimers())

	s.registry.MarkConnection("alice", false)
	s.Require().NoError(s.registry.ForceForfeit(s.ctx, sess.ID, "alice", model.EndReasonOpponentDisconnected))
	s.Equal(0, s.clock.PendingTimers())

	updates := s.notifier.UpdateCount()
	s.clock.Advance(time.Minute)
	s.Equal(updates, s.notifier.UpdateCount())
}

// ForceForfeit tests

func (s *RegistrySuite) TestForceForfeitAwardsOpponent() {
	sess := s.create(false)
	s.move(sess.ID, "alice", 0)

	s.registry.MarkConnection("alice", false)
	err := s.registry.ForceForfeit(s.ctx, sess.ID, "alice", model.EndReasonOpponentDisconnected)
	s.Require().NoError(err)

	end := s.notifier.LastEnded()
	s.Require().NotNil(end)
	s.Equal(model.PlayerID("bob"), end.Winner)
	s.Equal(model.EndReasonOpponentDisconnected, end.Reason)
	_, err = s.registry.GetSession(sess.ID)
	s.ErrorIs(err, model.ErrSessionNotFound)
	_, ok := s.registry.GetSessionByParticipant("alice")
	s.False(ok)

	s.registry.Wait()
	rec, err := s.storage.GetGameRecord(s.ctx, sess.ID)
	s.Require().NoError(err)
	s.Equal(model.EndReasonOpponentDisconnected, rec.EndReason)
}

func (s *RegistrySuite) TestForceForfeitIsIdempotent() {
	sess := s.create(false)

	s.registry.MarkConnection("alice", false)
	s.registry.MarkConnection("bob", false)
	s.Require().NoError(s.registry.ForceForfeit(s.ctx, sess.ID, "alice", model.EndReasonOpponentDisconnected))
	s.Require().NoError(s.registry.ForceForfeit(s.ctx, sess.ID, "bob", model.EndReasonOpponentDisconnected))
	s.Require().NoError(s.registry.ForceForfeit(s.ctx, "missing", "bob", model.EndReasonOpponentDisconnected))

	s.Equal(1, s.notifier.EndedCount())
	s.Equal(model.PlayerID("bob"), s.notifier.LastEnded().Winner)
}

func (s *RegistrySuite) TestDisconnectForfeitSkippedAfterReconnect() {
	sess := s.create(false)
	s.registry.MarkConnection("alice", false)
	s.registry.MarkConnection("alice", true)

	s.Require().NoError(s.registry.ForceForfeit(s.ctx, sess.ID, "alice", model.EndReasonOpponentDisconnected))

	s.Equal(0, s.notifier.EndedCount())
	got, err := s.registry.GetSession(sess.ID)
	s.Require().NoError(err)
	s.True(got.IsInProgress())
}

func (s *RegistrySuite) TestResignDoesNotNeedDisconnect() {
	sess := s.create(false)

	s.Require().NoError(s.registry.ForceForfeit(s.ctx, sess.ID, "alice", model.EndReasonForfeit))

	s.Require().NotNil(s.notifier.LastEnded())
	s.Equal(model.PlayerID("bob"), s.notifier.LastEnded().Winner)
	s.Equal(model.EndReasonForfeit, s.notifier.LastEnded().Reason)
}

func (s *RegistrySuite) TestForceForfeitNonParticipant() {
	sess := s.create(false)
	err := s.registry.ForceForfeit(s.ctx, sess.ID, "mallory", model.EndReasonForfeit)
	s.ErrorIs(err, model.ErrNotAParticipant)
	s.Equal(1, s.registry.ActiveSessions())
}

// Index tests

func (s *RegistrySuite) TestGetSessionByParticipantSelfHeals() {
	s.registry.index["ghost"] = "gone"

	_, ok := s.registry.GetSessionByParticipant("ghost")
	s.False(ok)

	s.registry.indexMu.RLock()
	_, stillThere := s.registry.index["ghost"]
	s.registry.indexMu.RUnlock()
	s.False(stillThere)
}

func (s *RegistrySuite) TestMarkConnection() {
	sess := s.create(false)

	id, ok := s.registry.MarkConnection("bob", false)
	s.Require().True(ok)
	s.Equal(sess.ID, id)

	got, err := s.registry.GetSession(sess.ID)
	s.Require().NoError(err)
	s.Equal(model.ConnectionDisconnected, got.PlayerB.Connection)
	s.Require().NotNil(got.PlayerB.DisconnectedAt)

	_, ok = s.registry.MarkConnection("bob", true)
	s.True(ok)
	got, err = s.registry.GetSession(sess.ID)
	s.Require().NoError(err)
	s.Equal(model.ConnectionConnected, got.PlayerB.Connection)
	s.Nil(got.PlayerB.DisconnectedAt)

	_, ok = s.registry.MarkConnection("nobody", false)
	s.False(ok)
}

// Side effect failure tests

type failingArchiver struct{}

func (failingArchiver) Archive(context.Context, *model.GameRecord) error {
	return errors.New("disk on fire")
}

func (s *RegistrySuite) TestArchiveAndPublishFailuresAreSwallowed() {
	logger, logs := testutil.CaptureLogger()
	s.publisher.Err = errors.New("bus down")
	registry := NewRegistry(failingArchiver{}, s.publisher, bot.NewRandomStrategy(s.random), s.clock, s.random, logger, DefaultConfig())

	sess, err := registry.CreateSession(s.ctx, "alice", "bob", false)
	s.Require().NoError(err)
	s.Require().NoError(registry.ForceForfeit(s.ctx, sess.ID, "bob", model.EndReasonForfeit))
	registry.Wait()

	s.Equal(0, registry.ActiveSessions())
	s.Contains(logs.String(), "archive failed")
	s.Contains(logs.String(), "publish failed")
	s.Contains(logs.String(), "disk on fire")
}
