package store

import (
	"path/filepath"
	"slackr-server/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "slackr.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// seed creates two users, a channel owned by the first and one message in it.
func seed(t *testing.T, s *Store) (owner, other, channelID, messageID int) {
	t.Helper()
	u1, err := s.CreateUser("luke", "Luke", "password1")
	require.NoError(t, err)
	u2, err := s.CreateUser("leia", "Leia", "password2")
	require.NoError(t, err)

	ch, err := s.CreateChannel("general", true, u1.ID)
	require.NoError(t, err)

	msg, err := s.CreateMessage(ch.ID, u1.ID, "Hello Luke!")
	require.NoError(t, err)

	return u1.ID, u2.ID, ch.ID, msg.MessageID
}

func TestCreateUser(t *testing.T) {
	s := newTestStore(t)

	u, err := s.CreateUser("luke", "Luke", "password1")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.True(t, s.ValidatePassword(u, "password1"))
	assert.False(t, s.ValidatePassword(u, "nope"))

	_, err = s.CreateUser("luke", "Other", "password2")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = s.GetUserByID(999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestCreateMessageRequiresMembership(t *testing.T) {
	s := newTestStore(t)
	_, other, channelID, _ := seed(t, s)

	_, err := s.CreateMessage(channelID, other, "hi")
	assert.ErrorIs(t, err, ErrNotMember)

	require.NoError(t, s.JoinChannel(channelID, other))
	msg, err := s.CreateMessage(channelID, other, "hi")
	require.NoError(t, err)
	assert.Len(t, msg.Reacts, len(DefaultReactIDs))
}

func TestReact(t *testing.T) {
	s := newTestStore(t)
	owner, _, channelID, messageID := seed(t, s)

	got, err := s.React(messageID, 1, owner)
	require.NoError(t, err)
	assert.Equal(t, channelID, got)

	msg, err := s.GetMessage(messageID, owner)
	require.NoError(t, err)
	require.Len(t, msg.Reacts, 4)
	assert.Equal(t, 1, msg.Reacts[0].ReactID)
	assert.Equal(t, []int{owner}, msg.Reacts[0].UIDs)
	assert.True(t, msg.Reacts[0].IsThisUserReacted)
	assert.Empty(t, msg.Reacts[1].UIDs)
	assert.False(t, msg.Reacts[1].IsThisUserReacted)
}

func TestReactSameMessageDifferentUsers(t *testing.T) {
	s := newTestStore(t)
	owner, other, channelID, messageID := seed(t, s)
	require.NoError(t, s.JoinChannel(channelID, other))

	_, err := s.React(messageID, 1, owner)
	require.NoError(t, err)
	_, err = s.React(messageID, 1, other)
	require.NoError(t, err)

	msg, err := s.GetMessage(messageID, owner)
	require.NoError(t, err)
	assert.Equal(t, []int{owner, other}, msg.Reacts[0].UIDs)
	assert.True(t, msg.Reacts[0].IsThisUserReacted)
}

func TestReactErrors(t *testing.T) {
	s := newTestStore(t)
	owner, other, _, messageID := seed(t, s)

	tests := []struct {
		name      string
		messageID int
		reactID   int
		userID    int
		want      error
	}{
		{"missing message", 999, 1, owner, ErrMessageNotFound},
		{"not a member", messageID, 1, other, ErrNotMember},
		{"invalid react id", messageID, 9, owner, ErrInvalidReact},
		{"zero react id", messageID, 0, owner, ErrInvalidReact},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.React(tt.messageID, tt.reactID, tt.userID)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := s.React(messageID, 2, owner)
	require.NoError(t, err)
	_, err = s.React(messageID, 2, owner)
	assert.ErrorIs(t, err, ErrAlreadyReacted)
}

func TestUnreact(t *testing.T) {
	s := newTestStore(t)
	owner, other, channelID, messageID := seed(t, s)
	require.NoError(t, s.JoinChannel(channelID, other))

	_, err := s.Unreact(messageID, 1, owner)
	assert.ErrorIs(t, err, ErrNotReacted)

	_, err = s.React(messageID, 1, owner)
	require.NoError(t, err)
	_, err = s.React(messageID, 1, other)
	require.NoError(t, err)

	_, err = s.Unreact(messageID, 1, owner)
	require.NoError(t, err)

	msg, err := s.GetMessage(messageID, owner)
	require.NoError(t, err)
	assert.Equal(t, []int{other}, msg.Reacts[0].UIDs)
	assert.False(t, msg.Reacts[0].IsThisUserReacted)
}

func TestCustomReactCatalog(t *testing.T) {
	s, err := NewWithReacts(filepath.Join(t.TempDir(), "slackr.db"), []int{7})
	require.NoError(t, err)
	defer s.Close()

	owner, _, _, messageID := seed(t, s)

	_, err = s.React(messageID, 1, owner)
	assert.ErrorIs(t, err, ErrInvalidReact)
	_, err = s.React(messageID, 7, owner)
	require.NoError(t, err)

	msg, err := s.GetMessage(messageID, owner)
	require.NoError(t, err)
	require.Len(t, msg.Reacts, 1)
	assert.Equal(t, 7, msg.Reacts[0].ReactID)
}

func TestGetChannelMessages(t *testing.T) {
	s := newTestStore(t)
	owner, other, channelID, first := seed(t, s)

	for i := 0; i < MessagePageSize; i++ {
		_, err := s.CreateMessage(channelID, owner, "spam")
		require.NoError(t, err)
	}

	page, err := s.GetChannelMessages(channelID, owner, 0)
	require.NoError(t, err)
	assert.Len(t, page.Messages, MessagePageSize)
	assert.Equal(t, MessagePageSize, page.End)
	assert.Greater(t, page.Messages[0].MessageID, page.Messages[1].MessageID)

	page, err = s.GetChannelMessages(channelID, owner, MessagePageSize)
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, first, page.Messages[0].MessageID)
	assert.Equal(t, -1, page.End)

	_, err = s.GetChannelMessages(channelID, owner, MessagePageSize+2)
	assert.ErrorIs(t, err, ErrStartTooHigh)

	_, err = s.GetChannelMessages(channelID, other, 0)
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestGetReactsForMessagesViewer(t *testing.T) {
	s := newTestStore(t)
	owner, other, channelID, messageID := seed(t, s)
	require.NoError(t, s.JoinChannel(channelID, other))

	_, err := s.React(messageID, 3, other)
	require.NoError(t, err)

	asOwner, err := s.GetReactsForMessages([]int{messageID}, owner)
	require.NoError(t, err)
	asOther, err := s.GetReactsForMessages([]int{messageID}, other)
	require.NoError(t, err)

	assert.Equal(t, []int{other}, asOwner[messageID][2].UIDs)
	assert.False(t, asOwner[messageID][2].IsThisUserReacted)
	assert.True(t, asOther[messageID][2].IsThisUserReacted)

	empty, err := s.GetReactsForMessages(nil, owner)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGetChannelIDsForUser(t *testing.T) {
	s := newTestStore(t)
	owner, other, channelID, _ := seed(t, s)

	ids, err := s.GetChannelIDsForUser(owner)
	require.NoError(t, err)
	assert.Equal(t, []int{channelID}, ids)

	ids, err = s.GetChannelIDsForUser(other)
	require.NoError(t, err)
	assert.Empty(t, ids)

	members, err := s.GetChannelMembers(channelID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, owner, members[0].ID)
}

func TestRemoveMessageDropsReacts(t *testing.T) {
	s := newTestStore(t)
	owner, other, channelID, messageID := seed(t, s)
	require.NoError(t, s.JoinChannel(channelID, other))

	_, err := s.React(messageID, 1, owner)
	require.NoError(t, err)
	_, err = s.React(messageID, 2, other)
	require.NoError(t, err)

	_, err = s.RemoveMessage(messageID, other)
	assert.ErrorIs(t, err, ErrNotOwner)

	got, err := s.RemoveMessage(messageID, owner)
	require.NoError(t, err)
	assert.Equal(t, channelID, got)

	var reacts int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM reacts WHERE message_id = ?`, messageID).Scan(&reacts))
	assert.Zero(t, reacts)

	_, err = s.React(messageID, 1, owner)
	assert.ErrorIs(t, err, ErrMessageNotFound)
	_, err = s.GetMessage(messageID, owner)
	assert.ErrorIs(t, err, ErrMessageNotFound)
	_, err = s.RemoveMessage(messageID, owner)
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestEditMessage(t *testing.T) {
	s := newTestStore(t)
	owner, other, channelID, _ := seed(t, s)
	require.NoError(t, s.JoinChannel(channelID, other))

	msg, err := s.CreateMessage(channelID, other, "typo")
	require.NoError(t, err)

	// the channel owner may edit anyone's message
	_, removed, err := s.EditMessage(msg.MessageID, owner, "fixed")
	require.NoError(t, err)
	assert.False(t, removed)

	got, err := s.GetMessage(msg.MessageID, other)
	require.NoError(t, err)
	assert.Equal(t, "fixed", got.Message)

	_, removed, err = s.EditMessage(msg.MessageID, other, "")
	require.NoError(t, err)
	assert.True(t, removed)
	_, err = s.GetMessage(msg.MessageID, other)
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestEditMessageByStranger(t *testing.T) {
	s := newTestStore(t)
	_, other, channelID, messageID := seed(t, s)
	require.NoError(t, s.JoinChannel(channelID, other))

	_, _, err := s.EditMessage(messageID, other, "mine now")
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestPinMessage(t *testing.T) {
	s := newTestStore(t)
	owner, other, channelID, messageID := seed(t, s)
	require.NoError(t, s.JoinChannel(channelID, other))

	_, err := s.UnpinMessage(messageID, owner)
	assert.ErrorIs(t, err, ErrNotPinned)
	_, err = s.PinMessage(messageID, other)
	assert.ErrorIs(t, err, ErrNotOwner)

	got, err := s.PinMessage(messageID, owner)
	require.NoError(t, err)
	assert.Equal(t, channelID, got)

	msg, err := s.GetMessage(messageID, other)
	require.NoError(t, err)
	assert.True(t, msg.IsPinned)

	_, err = s.PinMessage(messageID, owner)
	assert.ErrorIs(t, err, ErrAlreadyPinned)

	_, err = s.UnpinMessage(messageID, owner)
	require.NoError(t, err)
	msg, err = s.GetMessage(messageID, other)
	require.NoError(t, err)
	assert.False(t, msg.IsPinned)

	_, err = s.PinMessage(999, owner)
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestListChannels(t *testing.T) {
	s := newTestStore(t)
	owner, other, channelID, _ := seed(t, s)
	second, err := s.CreateChannel("random", true, other)
	require.NoError(t, err)

	mine, err := s.ListChannels(owner)
	require.NoError(t, err)
	assert.Equal(t, []models.ChannelSummary{{ID: channelID, Name: "general"}}, mine)

	all, err := s.ListAllChannels()
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, second.ID, all[1].ID)
}

func TestRevokeToken(t *testing.T) {
	s := newTestStore(t)
	owner, _, _, _ := seed(t, s)

	revoked, err := s.IsTokenRevoked("abc")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, s.RevokeToken("abc", owner, time.Now().Add(time.Hour)))
	require.NoError(t, s.RevokeToken("abc", owner, time.Now().Add(time.Hour)))
	revoked, err = s.IsTokenRevoked("abc")
	require.NoError(t, err)
	assert.True(t, revoked)

	// expired entries are pruned on the next revoke
	require.NoError(t, s.RevokeToken("old", owner, time.Now().Add(-time.Hour)))
	require.NoError(t, s.RevokeToken("new", owner, time.Now().Add(time.Hour)))
	revoked, err = s.IsTokenRevoked("old")
	require.NoError(t, err)
	assert.False(t, revoked)
}
