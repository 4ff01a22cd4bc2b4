package auth

import (
	"context"
	"errors"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// BcryptCost is the work factor used for new password hashes.
const BcryptCost = 10

// ErrMismatchedHashAndPassword is returned when a password does not match its hash.
var ErrMismatchedHashAndPassword = errors.New("password does not match")

// PasswordHasher hashes and compares passwords on a bounded pool so bcrypt
// work cannot starve unrelated requests of CPU.
type PasswordHasher struct {
	sem  *semaphore.Weighted
	cost int
	// dummy is compared against when no user exists so both login failure
	// paths spend similar time.
	dummy []byte
}

// NewPasswordHasher creates a hasher allowing workers concurrent bcrypt
// operations. workers <= 0 means runtime.GOMAXPROCS(0).
func NewPasswordHasher(workers int) *PasswordHasher {
	return newPasswordHasher(workers, BcryptCost)
}

// NewPasswordHasherWithCost is NewPasswordHasher with an explicit bcrypt cost.
func NewPasswordHasherWithCost(workers, cost int) *PasswordHasher {
	return newPasswordHasher(workers, cost)
}

func newPasswordHasher(workers, cost int) *PasswordHasher {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	return &PasswordHasher{
		sem:   semaphore.NewWeighted(int64(workers)),
		cost:  cost,
		dummy: dummy,
	}
}

// Hash generates a salted bcrypt hash.
func (h *PasswordHasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Compare validates that password matches hash.
func (h *PasswordHasher) Compare(ctx context.Context, hash, password string) error {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer h.sem.Release(1)

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}

// CompareDummy burns one comparison against a fixed hash. It always fails.
func (h *PasswordHasher) CompareDummy(ctx context.Context, password string) {
	_ = h.Compare(ctx, string(h.dummy), password)
}
