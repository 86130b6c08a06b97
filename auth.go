// User registration and sessions.
//
// Users live in the reserved _auth collection as ordinary documents:
//
//	{"username": "alice", "password": "$2a$10$..."}
//
// The password field holds a bcrypt digest, never the plain text. The
// collection's schema (username a required unique string, password a
// required string) is declared when the DB opens and again after Reset.
//
// A session is just membership in an in-memory set owned by the DB. It is
// not persisted, has no expiry, and disappears on Logout, Reset or Close.
package mingledb

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthCollection is the collection that stores registered users.
const AuthCollection = "_auth"

var authSchema = Schema{
	{Field: "username", Rule: Rule{Type: TypeString, Required: true, Unique: true}},
	{Field: "password", Rule: Rule{Type: TypeString, Required: true}},
}

type sessions struct {
	mu    sync.Mutex
	users map[string]struct{}
}

func (s *sessions) add(user string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users == nil {
		s.users = make(map[string]struct{})
	}
	s.users[user] = struct{}{}
}

func (s *sessions) remove(user string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, user)
}

func (s *sessions) has(user string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[user]
	return ok
}

func (s *sessions) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.users)
}

// Register stores a new user with a bcrypt digest of password. It returns
// ErrUsernameExists if the name is taken. The existence check and the
// insert happen under one collection lock, so two concurrent
// registrations of the same name cannot both succeed.
func (db *DB) Register(username, password string) error {
	if username == "" {
		return fmt.Errorf("register: %w: empty username", ErrInvalidValue)
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(password), db.config.PasswordCost)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}

	c, err := db.acquire(AuthCollection, LockExclusive)
	if err != nil {
		return err
	}
	defer db.release(c)

	if err := db.ensure(c); err != nil {
		return err
	}
	_, users, err := db.readAll(c)
	if err != nil {
		return err
	}
	if _, ok := findUser(users, username); ok {
		return ErrUsernameExists
	}

	doc := D("username", username, "password", string(digest))
	if err := validate(db.schema(AuthCollection), doc, users); err != nil {
		db.logRejected(AuthCollection, err)
		return err
	}
	if err := db.append(c, doc); err != nil {
		return err
	}
	db.log.Info("user registered", zap.String("user", username))
	return nil
}

// Login checks the password and marks the user authenticated. An unknown
// user and a wrong password both return ErrAuthenticationFailed. A failed
// login leaves any existing session in place.
func (db *DB) Login(username, password string) error {
	c, err := db.acquire(AuthCollection, LockShared)
	if err != nil {
		return err
	}
	_, users, err := db.readAll(c)
	db.release(c)
	if err != nil {
		return err
	}

	user, ok := findUser(users, username)
	if !ok {
		db.log.Warn("login failed", zap.String("user", username), zap.String("reason", "unknown user"))
		return ErrAuthenticationFailed
	}
	digest, _ := user.Get("password")
	hash, _ := digest.AsString()
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		reason := "wrong password"
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			reason = err.Error()
		}
		db.log.Warn("login failed", zap.String("user", username), zap.String("reason", reason))
		return ErrAuthenticationFailed
	}

	db.sessions.add(username)
	return nil
}

// IsAuthenticated reports whether username has logged in and not logged
// out since.
func (db *DB) IsAuthenticated(username string) bool {
	return db.sessions.has(username)
}

// Logout ends the user's session. Logging out a user without a session
// does nothing.
func (db *DB) Logout(username string) {
	db.sessions.remove(username)
}

func findUser(users []Document, username string) (Document, bool) {
	for _, u := range users {
		if name, _ := u.Get("username"); name.Equal(String(username)) {
			return u, true
		}
	}
	return nil, false
}
