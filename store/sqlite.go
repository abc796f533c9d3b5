package store

import (
	"database/sql"
	"errors"
	"fmt"
	"slackr-server/models"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"
)

// MessagePageSize is the number of messages returned per channel page.
const MessagePageSize = 50

// DefaultReactIDs are the react ids every message carries.
var DefaultReactIDs = []int{1, 2, 3, 4}

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUsernameTaken   = errors.New("username already taken")
	ErrChannelNotFound = errors.New("channel not found")
	ErrMessageNotFound = errors.New("message does not exist")
	ErrNotMember       = errors.New("user is not in channel")
	ErrInvalidReact    = errors.New("invalid react_id")
	ErrAlreadyReacted  = errors.New("user has already reacted to this message")
	ErrNotReacted      = errors.New("user has not reacted to this message")
	ErrStartTooHigh    = errors.New("start value is too high")
	ErrNotOwner        = errors.New("user is not creator or owner")
	ErrAlreadyPinned   = errors.New("message is already pinned")
	ErrNotPinned       = errors.New("message is not pinned")
)

type Store struct {
	db       *sql.DB
	reactIDs []int
}

func New(dbPath string) (*Store, error) {
	return NewWithReacts(dbPath, DefaultReactIDs)
}

// NewWithReacts opens the database with a custom set of valid react ids.
func NewWithReacts(dbPath string, reactIDs []int) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers anyway
	db.SetMaxOpenConns(1)

	store := &Store{db: db, reactIDs: append([]int(nil), reactIDs...)}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		display_name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		status TEXT DEFAULT 'offline',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS channels (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		is_public BOOLEAN DEFAULT TRUE,
		created_by INTEGER REFERENCES users(id),
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS channel_members (
		channel_id INTEGER REFERENCES channels(id) ON DELETE CASCADE,
		user_id INTEGER REFERENCES users(id),
		joined_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (channel_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		channel_id INTEGER NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
		user_id INTEGER NOT NULL REFERENCES users(id),
		message TEXT NOT NULL,
		is_pinned BOOLEAN DEFAULT FALSE,
		time_created INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_channel ON messages(channel_id);
	CREATE INDEX IF NOT EXISTS idx_channel_members_user ON channel_members(user_id);

	CREATE TABLE IF NOT EXISTS reacts (
		message_id INTEGER NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
		react_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL REFERENCES users(id),
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (message_id, react_id, user_id)
	);

	CREATE INDEX IF NOT EXISTS idx_reacts_message ON reacts(message_id);

	CREATE TABLE IF NOT EXISTS revoked_tokens (
		token_id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id),
		expires_at DATETIME NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ReactIDs returns the valid react ids in catalog order.
func (s *Store) ReactIDs() []int {
	return append([]int(nil), s.reactIDs...)
}

func (s *Store) IsValidReact(reactID int) bool {
	for _, id := range s.reactIDs {
		if id == reactID {
			return true
		}
	}
	return false
}

// User operations

func (s *Store) CreateUser(username, displayName, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		Status:       "online",
		CreatedAt:    time.Now(),
	}

	res, err := s.db.Exec(`
		INSERT INTO users (username, display_name, password_hash, status, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, user.Username, user.DisplayName, user.PasswordHash, user.Status, user.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	user.ID = int(id)
	return user, nil
}

func (s *Store) GetUserByUsername(username string) (*models.User, error) {
	return s.scanUser(s.db.QueryRow(`
		SELECT id, username, display_name, password_hash, status, created_at
		FROM users WHERE username = ?
	`, username))
}

func (s *Store) GetUserByID(id int) (*models.User, error) {
	return s.scanUser(s.db.QueryRow(`
		SELECT id, username, display_name, password_hash, status, created_at
		FROM users WHERE id = ?
	`, id))
}

func (s *Store) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Username, &user.DisplayName, &user.PasswordHash, &user.Status, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Store) UpdateUserStatus(userID int, status string) error {
	_, err := s.db.Exec("UPDATE users SET status = ? WHERE id = ?", status, userID)
	return err
}

// RevokeToken marks a token id as logged out. Expired entries are pruned on
// the way.
func (s *Store) RevokeToken(tokenID string, userID int, expiresAt time.Time) error {
	if _, err := s.db.Exec(`DELETE FROM revoked_tokens WHERE expires_at < ?`, time.Now().UTC()); err != nil {
		return err
	}
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO revoked_tokens (token_id, user_id, expires_at) VALUES (?, ?, ?)
	`, tokenID, userID, expiresAt.UTC())
	return err
}

func (s *Store) IsTokenRevoked(tokenID string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM revoked_tokens WHERE token_id = ?`, tokenID).Scan(&count)
	return count > 0, err
}

func (s *Store) ValidatePassword(user *models.User, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	return err == nil
}

// Channel operations

// CreateChannel creates a channel and makes its creator the first member.
func (s *Store) CreateChannel(name string, isPublic bool, createdBy int) (*models.Channel, error) {
	channel := &models.Channel{
		Name:      name,
		IsPublic:  isPublic,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO channels (name, is_public, created_by, created_at)
		VALUES (?, ?, ?, ?)
	`, channel.Name, channel.IsPublic, channel.CreatedBy, channel.CreatedAt)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	channel.ID = int(id)

	if _, err := tx.Exec(`INSERT INTO channel_members (channel_id, user_id) VALUES (?, ?)`, channel.ID, createdBy); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return channel, nil
}

func (s *Store) GetChannel(id int) (*models.Channel, error) {
	channel := &models.Channel{}
	err := s.db.QueryRow(`
		SELECT id, name, is_public, created_by, created_at FROM channels WHERE id = ?
	`, id).Scan(&channel.ID, &channel.Name, &channel.IsPublic, &channel.CreatedBy, &channel.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChannelNotFound
	}
	if err != nil {
		return nil, err
	}
	return channel, nil
}

func (s *Store) JoinChannel(channelID, userID int) error {
	if _, err := s.GetChannel(channelID); err != nil {
		return err
	}
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO channel_members (channel_id, user_id) VALUES (?, ?)
	`, channelID, userID)
	return err
}

// ListChannels returns the channels userID belongs to.
func (s *Store) ListChannels(userID int) ([]models.ChannelSummary, error) {
	return s.listChannels(`
		SELECT c.id, c.name FROM channels c
		JOIN channel_members cm ON c.id = cm.channel_id
		WHERE cm.user_id = ?
		ORDER BY c.id
	`, userID)
}

func (s *Store) ListAllChannels() ([]models.ChannelSummary, error) {
	return s.listChannels(`SELECT id, name FROM channels ORDER BY id`)
}

func (s *Store) listChannels(query string, args ...interface{}) ([]models.ChannelSummary, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	channels := []models.ChannelSummary{}
	for rows.Next() {
		var c models.ChannelSummary
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		channels = append(channels, c)
	}
	return channels, rows.Err()
}

func (s *Store) IsMember(channelID, userID int) (bool, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM channel_members WHERE channel_id = ? AND user_id = ?
	`, channelID, userID).Scan(&count)
	return count > 0, err
}

// GetChannelIDsForUser lists the channels userID belongs to.
func (s *Store) GetChannelIDsForUser(userID int) ([]int, error) {
	rows, err := s.db.Query(`SELECT channel_id FROM channel_members WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) GetChannelMembers(channelID int) ([]models.User, error) {
	rows, err := s.db.Query(`
		SELECT u.id, u.username, u.display_name, u.status, u.created_at
		FROM users u
		JOIN channel_members cm ON u.id = cm.user_id
		WHERE cm.channel_id = ?
		ORDER BY u.username
	`, channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName, &u.Status, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Message operations

// CreateMessage stores a message; the sender must be a member of the channel.
func (s *Store) CreateMessage(channelID, userID int, content string) (*models.Message, error) {
	if _, err := s.GetChannel(channelID); err != nil {
		return nil, err
	}
	member, err := s.IsMember(channelID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrNotMember
	}

	msg := &models.Message{
		ChannelID:   channelID,
		UserID:      userID,
		Message:     content,
		TimeCreated: time.Now().Unix(),
	}

	res, err := s.db.Exec(`
		INSERT INTO messages (channel_id, user_id, message, time_created)
		VALUES (?, ?, ?, ?)
	`, msg.ChannelID, msg.UserID, msg.Message, msg.TimeCreated)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	msg.MessageID = int(id)
	msg.Reacts = s.emptyReacts()
	return msg, nil
}

// GetMessage loads a message with its reacts as seen by viewerID.
func (s *Store) GetMessage(id, viewerID int) (*models.Message, error) {
	msg := &models.Message{}
	err := s.db.QueryRow(`
		SELECT id, channel_id, user_id, message, is_pinned, time_created
		FROM messages WHERE id = ?
	`, id).Scan(&msg.MessageID, &msg.ChannelID, &msg.UserID, &msg.Message, &msg.IsPinned, &msg.TimeCreated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}

	reacts, err := s.GetReactsForMessages([]int{id}, viewerID)
	if err != nil {
		return nil, err
	}
	msg.Reacts = reacts[id]
	return msg, nil
}

// RemoveMessage deletes a message and its reacts. Only the sender or the
// channel owner may remove it. It returns the message's channel.
func (s *Store) RemoveMessage(messageID, userID int) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	channelID, err := checkAuthorOrOwner(tx, messageID, userID)
	if err != nil {
		return 0, err
	}
	if _, err := tx.Exec(`DELETE FROM reacts WHERE message_id = ?`, messageID); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(`DELETE FROM messages WHERE id = ?`, messageID); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return channelID, nil
}

// EditMessage replaces a message's text. An empty text removes the message,
// in which case removed is true.
func (s *Store) EditMessage(messageID, userID int, content string) (channelID int, removed bool, err error) {
	if content == "" {
		channelID, err = s.RemoveMessage(messageID, userID)
		return channelID, err == nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, false, err
	}
	defer tx.Rollback()

	channelID, err = checkAuthorOrOwner(tx, messageID, userID)
	if err != nil {
		return 0, false, err
	}
	if _, err := tx.Exec(`UPDATE messages SET message = ? WHERE id = ?`, content, messageID); err != nil {
		return 0, false, err
	}

	if err := tx.Commit(); err != nil {
		return 0, false, err
	}
	return channelID, false, nil
}

func checkAuthorOrOwner(tx *sql.Tx, messageID, userID int) (int, error) {
	var channelID, authorID, ownerID int
	err := tx.QueryRow(`
		SELECT m.channel_id, m.user_id, c.created_by
		FROM messages m JOIN channels c ON c.id = m.channel_id
		WHERE m.id = ?
	`, messageID).Scan(&channelID, &authorID, &ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrMessageNotFound
	}
	if err != nil {
		return 0, err
	}
	if userID != authorID && userID != ownerID {
		return 0, ErrNotOwner
	}
	return channelID, nil
}

// PinMessage marks a message as pinned. Only the channel owner may pin.
func (s *Store) PinMessage(messageID, userID int) (int, error) {
	return s.setPinned(messageID, userID, true)
}

func (s *Store) UnpinMessage(messageID, userID int) (int, error) {
	return s.setPinned(messageID, userID, false)
}

func (s *Store) setPinned(messageID, userID int, pinned bool) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var channelID, ownerID int
	var isPinned bool
	err = tx.QueryRow(`
		SELECT m.channel_id, m.is_pinned, c.created_by
		FROM messages m JOIN channels c ON c.id = m.channel_id
		WHERE m.id = ?
	`, messageID).Scan(&channelID, &isPinned, &ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrMessageNotFound
	}
	if err != nil {
		return 0, err
	}

	switch {
	case pinned && isPinned:
		return 0, ErrAlreadyPinned
	case !pinned && !isPinned:
		return 0, ErrNotPinned
	case userID != ownerID:
		return 0, ErrNotOwner
	}

	if _, err := tx.Exec(`UPDATE messages SET is_pinned = ? WHERE id = ?`, pinned, messageID); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return channelID, nil
}

// GetChannelMessages returns up to MessagePageSize messages starting at
// index start, newest first. End is -1 once the oldest message is included.
func (s *Store) GetChannelMessages(channelID, viewerID, start int) (*models.ChannelMessagesResponse, error) {
	if _, err := s.GetChannel(channelID); err != nil {
		return nil, err
	}
	member, err := s.IsMember(channelID, viewerID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrNotMember
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM messages WHERE channel_id = ?`, channelID).Scan(&total); err != nil {
		return nil, err
	}
	if start < 0 || start > total {
		return nil, ErrStartTooHigh
	}

	rows, err := s.db.Query(`
		SELECT id, channel_id, user_id, message, is_pinned, time_created
		FROM messages WHERE channel_id = ?
		ORDER BY id DESC
		LIMIT ? OFFSET ?
	`, channelID, MessagePageSize, start)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.Message{}
	var ids []int
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.MessageID, &m.ChannelID, &m.UserID, &m.Message, &m.IsPinned, &m.TimeCreated); err != nil {
			return nil, err
		}
		messages = append(messages, m)
		ids = append(ids, m.MessageID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	reacts, err := s.GetReactsForMessages(ids, viewerID)
	if err != nil {
		return nil, err
	}
	for i := range messages {
		messages[i].Reacts = reacts[messages[i].MessageID]
	}

	end := start + MessagePageSize
	if total < end {
		end = -1
	}

	return &models.ChannelMessagesResponse{
		Messages: messages,
		Start:    start,
		End:      end,
	}, nil
}

// Reaction operations

// React adds userID's reaction of kind reactID to a message and returns the
// channel the message belongs to.
func (s *Store) React(messageID, reactID, userID int) (int, error) {
	return s.mutateReact(messageID, reactID, userID, true)
}

// Unreact removes userID's reaction of kind reactID from a message and
// returns the channel the message belongs to.
func (s *Store) Unreact(messageID, reactID, userID int) (int, error) {
	return s.mutateReact(messageID, reactID, userID, false)
}

func (s *Store) mutateReact(messageID, reactID, userID int, add bool) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var channelID int
	err = tx.QueryRow(`SELECT channel_id FROM messages WHERE id = ?`, messageID).Scan(&channelID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrMessageNotFound
	}
	if err != nil {
		return 0, err
	}

	var members int
	if err := tx.QueryRow(`
		SELECT COUNT(*) FROM channel_members WHERE channel_id = ? AND user_id = ?
	`, channelID, userID).Scan(&members); err != nil {
		return 0, err
	}
	if members == 0 {
		return 0, ErrNotMember
	}

	if !s.IsValidReact(reactID) {
		return 0, ErrInvalidReact
	}

	var existing int
	if err := tx.QueryRow(`
		SELECT COUNT(*) FROM reacts WHERE message_id = ? AND react_id = ? AND user_id = ?
	`, messageID, reactID, userID).Scan(&existing); err != nil {
		return 0, err
	}

	if add {
		if existing > 0 {
			return 0, ErrAlreadyReacted
		}
		_, err = tx.Exec(`
			INSERT INTO reacts (message_id, react_id, user_id, created_at) VALUES (?, ?, ?, ?)
		`, messageID, reactID, userID, time.Now())
	} else {
		if existing == 0 {
			return 0, ErrNotReacted
		}
		_, err = tx.Exec(`
			DELETE FROM reacts WHERE message_id = ? AND react_id = ? AND user_id = ?
		`, messageID, reactID, userID)
	}
	if err != nil {
		return 0, fmt.Errorf("write react: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return channelID, nil
}

// GetReactsForMessages builds the full react list of every message in
// messageIDs. Each list has one entry per valid react id, in catalog order.
func (s *Store) GetReactsForMessages(messageIDs []int, viewerID int) (map[int]models.ReactionList, error) {
	result := make(map[int]models.ReactionList, len(messageIDs))
	if len(messageIDs) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(messageIDs))
	args := make([]interface{}, len(messageIDs))
	for i, id := range messageIDs {
		placeholders[i] = "?"
		args[i] = id
		result[id] = s.emptyReacts()
	}

	rows, err := s.db.Query(`
		SELECT message_id, react_id, user_id
		FROM reacts
		WHERE message_id IN (`+strings.Join(placeholders, ",")+`)
		ORDER BY message_id, react_id, created_at, rowid
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var messageID, reactID, userID int
		if err := rows.Scan(&messageID, &reactID, &userID); err != nil {
			return nil, err
		}
		list := result[messageID]
		for i := range list {
			if list[i].ReactID != reactID {
				continue
			}
			list[i].UIDs = append(list[i].UIDs, userID)
			if userID == viewerID {
				list[i].IsThisUserReacted = true
			}
			break
		}
	}

	return result, rows.Err()
}

func (s *Store) emptyReacts() models.ReactionList {
	list := make(models.ReactionList, len(s.reactIDs))
	for i, id := range s.reactIDs {
		list[i] = models.ReactionEntry{ReactID: id, UIDs: []int{}}
	}
	return list
}
