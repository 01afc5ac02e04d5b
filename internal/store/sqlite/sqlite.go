package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/dkurbatov/huddle/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and applies the schema.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single writer connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (*store.User, error) {
	query := `
		INSERT INTO users (username, password_hash)
		VALUES (?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, username, passwordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("user %q: %w", username, store.ErrDuplicate)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	return s.getUser(ctx, "id = ?", id)
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	return s.getUser(ctx, "username = ?", username)
}

func (s *SQLiteStore) getUser(ctx context.Context, where string, arg any) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, device_token, created_at, updated_at
		FROM users
		WHERE ` + where
	var user store.User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.DeviceToken,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// SetDeviceToken stores or replaces the user's push token.
func (s *SQLiteStore) SetDeviceToken(ctx context.Context, userID int64, token string) error {
	query := `
		UPDATE users
		SET device_token = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query, token, userID)
	if err != nil {
		return fmt.Errorf("update device token: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user %d: %w", userID, store.ErrNotFound)
	}

	return nil
}

// ==== RoomStore implementation ====

// GetOrCreateDirectRoom returns the unique direct room for the unordered pair,
// creating it on first use. A lost insert race is resolved by re-fetching.
func (s *SQLiteStore) GetOrCreateDirectRoom(ctx context.Context, userA, userB int64) (*store.Room, error) {
	directKey := store.DirectKey(userA, userB)

	room, err := s.getRoomByDirectKey(ctx, directKey)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("check existing direct room: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	roomName := fmt.Sprintf("dm-%d-%d", userA, userB)
	query := `
		INSERT INTO rooms (name, is_group, owner_id, direct_key)
		VALUES (?, 0, NULL, ?)
	`
	result, err := tx.ExecContext(ctx, query, roomName, directKey)
	if err != nil {
		if isUniqueViolation(err) {
			// Another caller created the room between the lookup and the
			// insert; the constraint makes this safe to re-fetch. Roll back
			// first so the re-fetch does not wait on the tx's connection.
			_ = tx.Rollback()
			return s.getRoomByDirectKey(ctx, directKey)
		}
		return nil, fmt.Errorf("insert direct room: %w", err)
	}

	roomID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	memberQuery := `
		INSERT INTO room_participants (room_id, user_id)
		VALUES (?, ?)
	`
	for _, uid := range []int64{userA, userB} {
		if _, err := tx.ExecContext(ctx, memberQuery, roomID, uid); err != nil {
			return nil, fmt.Errorf("add participant %d: %w", uid, err)
		}
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return s.getRoomByDirectKey(ctx, directKey)
		}
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return s.GetRoomByID(ctx, roomID)
}

// CreateGroupRoom creates an owned group room with the given initial participants.
// The owner is always included even if absent from participantIDs.
func (s *SQLiteStore) CreateGroupRoom(ctx context.Context, name string, ownerID int64, participantIDs []int64) (*store.Room, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("room name: %w", store.ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO rooms (name, is_group, owner_id)
		VALUES (?, 1, ?)
	`
	result, err := tx.ExecContext(ctx, query, name, ownerID)
	if err != nil {
		return nil, fmt.Errorf("insert room: %w", err)
	}

	roomID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	memberQuery := `
		INSERT OR IGNORE INTO room_participants (room_id, user_id)
		VALUES (?, ?)
	`
	members := append([]int64{ownerID}, participantIDs...)
	for _, uid := range members {
		if _, err := tx.ExecContext(ctx, memberQuery, roomID, uid); err != nil {
			return nil, fmt.Errorf("add participant %d: %w", uid, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return s.GetRoomByID(ctx, roomID)
}

// GetRoomByID retrieves a room by ID.
func (s *SQLiteStore) GetRoomByID(ctx context.Context, id int64) (*store.Room, error) {
	query := `
		SELECT id, name, is_group, owner_id, direct_key, created_at, updated_at
		FROM rooms
		WHERE id = ?
	`
	return s.scanRoom(s.db.QueryRowContext(ctx, query, id))
}

func (s *SQLiteStore) getRoomByDirectKey(ctx context.Context, directKey string) (*store.Room, error) {
	query := `
		SELECT id, name, is_group, owner_id, direct_key, created_at, updated_at
		FROM rooms
		WHERE direct_key = ?
	`
	return s.scanRoom(s.db.QueryRowContext(ctx, query, directKey))
}

func (s *SQLiteStore) scanRoom(row *sql.Row) (*store.Room, error) {
	var room store.Room
	var ownerID sql.NullInt64
	var directKey sql.NullString
	err := row.Scan(
		&room.ID,
		&room.Name,
		&room.IsGroup,
		&ownerID,
		&directKey,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("room: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query room: %w", err)
	}

	if ownerID.Valid {
		room.OwnerID = &ownerID.Int64
	}
	if directKey.Valid {
		room.DirectKey = &directKey.String
	}

	return &room, nil
}

// AddParticipant adds a user to a room. No-op if already a participant.
func (s *SQLiteStore) AddParticipant(ctx context.Context, roomID, userID int64) error {
	if _, err := s.GetRoomByID(ctx, roomID); err != nil {
		return err
	}

	query := `
		INSERT OR IGNORE INTO room_participants (room_id, user_id)
		VALUES (?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, roomID, userID); err != nil {
		return fmt.Errorf("insert participant: %w", err)
	}

	return nil
}

// RemoveParticipant removes a user from a room. No-op if absent.
func (s *SQLiteStore) RemoveParticipant(ctx context.Context, roomID, userID int64) error {
	if _, err := s.GetRoomByID(ctx, roomID); err != nil {
		return err
	}

	query := `
		DELETE FROM room_participants
		WHERE room_id = ? AND user_id = ?
	`
	if _, err := s.db.ExecContext(ctx, query, roomID, userID); err != nil {
		return fmt.Errorf("delete participant: %w", err)
	}

	return nil
}

// IsParticipant reports whether the user is currently in the room.
func (s *SQLiteStore) IsParticipant(ctx context.Context, roomID, userID int64) (bool, error) {
	query := `
		SELECT 1 FROM room_participants
		WHERE room_id = ? AND user_id = ?
	`
	var exists int
	err := s.db.QueryRowContext(ctx, query, roomID, userID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query participant: %w", err)
	}

	return true, nil
}

// ListParticipants lists room members with their device tokens.
func (s *SQLiteStore) ListParticipants(ctx context.Context, roomID int64) ([]*store.Participant, error) {
	query := `
		SELECT u.id, u.username, u.device_token
		FROM room_participants rp
		JOIN users u ON u.id = rp.user_id
		WHERE rp.room_id = ?
		ORDER BY rp.joined_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	var participants []*store.Participant
	for rows.Next() {
		var p store.Participant
		if err := rows.Scan(&p.ID, &p.Username, &p.DeviceToken); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, &p)
	}

	return participants, rows.Err()
}

// DeleteRoom deletes a group room with its participants and messages.
// Only the owner may delete; direct rooms cannot be deleted.
func (s *SQLiteStore) DeleteRoom(ctx context.Context, roomID, requesterID int64) error {
	room, err := s.GetRoomByID(ctx, roomID)
	if err != nil {
		return err
	}

	if !room.IsGroup {
		return fmt.Errorf("direct room %d cannot be deleted: %w", roomID, store.ErrInvalidOperation)
	}
	if room.OwnerID == nil || *room.OwnerID != requesterID {
		return fmt.Errorf("user %d is not the owner of room %d: %w", requesterID, roomID, store.ErrForbidden)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, q := range []string{
		`DELETE FROM messages WHERE room_id = ?`,
		`DELETE FROM room_participants WHERE room_id = ?`,
		`DELETE FROM rooms WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, roomID); err != nil {
			return fmt.Errorf("delete room data: %w", err)
		}
	}

	return tx.Commit()
}

// SearchRooms lists group rooms matching the optional name filter.
func (s *SQLiteStore) SearchRooms(ctx context.Context, name string, page, limit int) ([]*store.Room, int, error) {
	where := `is_group = 1`
	args := []any{}
	if name != "" {
		where += ` AND name LIKE ?`
		args = append(args, "%"+name+"%")
	}

	return s.listRooms(ctx, where, args, page, limit)
}

// ListRoomsForUser lists rooms the user participates in.
func (s *SQLiteStore) ListRoomsForUser(ctx context.Context, userID int64, page, limit int) ([]*store.Room, int, error) {
	where := `id IN (SELECT room_id FROM room_participants WHERE user_id = ?)`
	return s.listRooms(ctx, where, []any{userID}, page, limit)
}

func (s *SQLiteStore) listRooms(ctx context.Context, where string, args []any, page, limit int) ([]*store.Room, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM rooms WHERE ` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count rooms: %w", err)
	}

	query := `
		SELECT id, name, is_group, owner_id, direct_key, created_at, updated_at
		FROM rooms
		WHERE ` + where + `
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, (page-1)*limit)...)
	if err != nil {
		return nil, 0, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*store.Room
	for rows.Next() {
		var room store.Room
		var ownerID sql.NullInt64
		var directKey sql.NullString
		if err := rows.Scan(&room.ID, &room.Name, &room.IsGroup, &ownerID, &directKey, &room.CreatedAt, &room.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan room: %w", err)
		}
		if ownerID.Valid {
			room.OwnerID = &ownerID.Int64
		}
		if directKey.Valid {
			room.DirectKey = &directKey.String
		}
		rooms = append(rooms, &room)
	}

	return rooms, total, rows.Err()
}

// ==== MessageStore implementation ====

// AppendMessage persists a message against an existing room.
func (s *SQLiteStore) AppendMessage(ctx context.Context, roomID, authorID int64, content string) (*store.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("message content: %w", store.ErrValidation)
	}

	if _, err := s.GetRoomByID(ctx, roomID); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO messages (room_id, user_id, content)
		VALUES (?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, roomID, authorID, content)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	msgQuery := `
		SELECT id, room_id, user_id, content, created_at, updated_at
		FROM messages
		WHERE id = ?
	`
	var msg store.Message
	err = s.db.QueryRowContext(ctx, msgQuery, id).Scan(
		&msg.ID,
		&msg.RoomID,
		&msg.UserID,
		&msg.Content,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("query message: %w", err)
	}

	return &msg, nil
}

// ListRoomMessages retrieves room messages in chronological order with offset
// pagination, plus the total count.
func (s *SQLiteStore) ListRoomMessages(ctx context.Context, roomID int64, page, limit int) ([]*store.Message, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM messages WHERE room_id = ?`
	if err := s.db.QueryRowContext(ctx, countQuery, roomID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	query := `
		SELECT id, room_id, user_id, content, created_at, updated_at
		FROM messages
		WHERE room_id = ?
		ORDER BY id ASC
		LIMIT ? OFFSET ?
	`
	rows, err := s.db.QueryContext(ctx, query, roomID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		var msg store.Message
		if err := rows.Scan(&msg.ID, &msg.RoomID, &msg.UserID, &msg.Content, &msg.CreatedAt, &msg.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &msg)
	}

	return messages, total, rows.Err()
}
