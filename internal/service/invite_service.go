package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"gptcatalog/internal/model"
	"gptcatalog/internal/repository"
)

// MaxInviteBatch caps a single Generate call.
const MaxInviteBatch = 1000

const inviteCodeBytes = 6

// ErrInvalidBatchSize is returned when Generate is asked for a non-positive
// or oversized batch.
var ErrInvalidBatchSize = errors.New("invite batch size must be between 1 and 1000")

// InviteService issues invite codes out of band.
type InviteService interface {
	// Generate creates n unused codes. ttl <= 0 means the codes never expire.
	Generate(ctx context.Context, n int, ttl time.Duration) ([]model.InviteCode, error)
}

type inviteService struct {
	invites repository.InviteRepository
	now     func() time.Time
}

// NewInviteService creates a new invite service.
func NewInviteService(invites repository.InviteRepository) InviteService {
	return &inviteService{invites: invites, now: time.Now}
}

func (s *inviteService) Generate(ctx context.Context, n int, ttl time.Duration) ([]model.InviteCode, error) {
	if n <= 0 || n > MaxInviteBatch {
		return nil, ErrInvalidBatchSize
	}

	var expiresAt *time.Time
	if ttl > 0 {
		t := s.now().Add(ttl).UTC()
		expiresAt = &t
	}

	codes := make([]model.InviteCode, 0, n)
	seen := make(map[string]struct{}, n)
	for len(codes) < n {
		code, err := newInviteCode()
		if err != nil {
			return nil, fmt.Errorf("generate invite code: %w", err)
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, model.InviteCode{Code: code, ExpiresAt: expiresAt})
	}

	if err := s.invites.CreateBatch(ctx, codes); err != nil {
		return nil, fmt.Errorf("store invite codes: %w", err)
	}
	return codes, nil
}

func newInviteCode() (string, error) {
	buf := make([]byte, inviteCodeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}
