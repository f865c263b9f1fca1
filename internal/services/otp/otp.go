// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package otp generates the six-digit one-time codes mailed to users.
package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"
)

const (
	// Min is the smallest code that can be issued.
	Min = 100000
	// Max is the largest code that can be issued.
	Max = 999999
	// Length is the number of digits in every code.
	Length = 6
)

var span = big.NewInt(Max - Min + 1)

// Generate returns a uniformly random code in [Min, Max].
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return strconv.FormatInt(n.Int64()+Min, 10), nil
}

// ExpiresAt returns the expiry instant for a code issued at now.
func ExpiresAt(now time.Time, ttl time.Duration) time.Time {
	return now.Add(ttl).UTC()
}

// Valid reports whether s has the shape of an issued code.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return false
	}
	return n >= Min && n <= Max
}
