// Copyright (c) 2026 Vendra. All rights reserved.
// Author: platform-security@vendra.app

package sec

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MinHashCost is the lowest bcrypt work factor the platform accepts.
const MinHashCost = 10

// Hasher hashes and verifies passwords with bcrypt at a configured work factor.
//
// # Review Process
//
// Changing the work factor affects login latency fleet-wide and must be
// reviewed by the security team.
type Hasher struct {
	cost int
}

// NewHasher creates a Hasher. Costs below [MinHashCost] are raised to it.
func NewHasher(cost int) *Hasher {
	if cost < MinHashCost {
		cost = MinHashCost
	}
	return &Hasher{cost: cost}
}

// Hash hashes a plain-text password. The plaintext is never logged or stored.
func (h *Hasher) Hash(plainTextPassword string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), h.cost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// Verify compares a plain-text password with its stored hash.
//
// It returns false — never an error — for malformed stored hashes, so a
// corrupt credential record is indistinguishable from a wrong password in
// both error and timing behavior.
func (h *Hasher) Verify(plainTextPassword, existingHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), []byte(plainTextPassword))
	return err == nil
}
