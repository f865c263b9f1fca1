// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"unicode"
)

//go:embed common_passwords.txt
var commonPasswordList []byte

var commonPasswords = loadCommonPasswords(commonPasswordList)

func loadCommonPasswords(data []byte) map[string]struct{} {
	set := make(map[string]struct{})
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if pw := strings.ToLower(strings.TrimSpace(scanner.Text())); pw != "" {
			set[pw] = struct{}{}
		}
	}
	return set
}

// bcrypt ignores everything past 72 bytes and x/crypto rejects such input.
const maxPasswordBytes = 72

// PasswordPolicy decides which passwords may be stored.
type PasswordPolicy struct {
	MinLength       int
	CheckCommon     bool
	CheckSimilarity bool
}

// DefaultPasswordPolicy returns the policy used for signup and password reset.
func DefaultPasswordPolicy() *PasswordPolicy {
	return &PasswordPolicy{
		MinLength:       6,
		CheckCommon:     true,
		CheckSimilarity: true,
	}
}

// Check returns one message per violated rule. An empty result means the
// password is acceptable. The email is used for the similarity check.
func (p *PasswordPolicy) Check(password, email string) []string {
	var problems []string

	if len(password) < p.MinLength {
		problems = append(problems, fmt.Sprintf("Password must be at least %d characters long.", p.MinLength))
	}
	if len(password) > maxPasswordBytes {
		problems = append(problems, fmt.Sprintf("Password must be at most %d bytes long.", maxPasswordBytes))
	}
	if isEntirelyNumeric(password) {
		problems = append(problems, "Password cannot be entirely numeric.")
	}
	if p.CheckCommon && isCommonPassword(password) {
		problems = append(problems, "This password is too common. Please choose a more secure password.")
	}
	if p.CheckSimilarity && isSimilarToEmail(password, email) {
		problems = append(problems, "Password is too similar to your email address.")
	}

	return problems
}

func isEntirelyNumeric(password string) bool {
	for _, r := range password {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return password != ""
}

func isCommonPassword(password string) bool {
	_, ok := commonPasswords[strings.ToLower(password)]
	return ok
}

// isSimilarToEmail compares the password with the full address and with its local part.
func isSimilarToEmail(password, email string) bool {
	if email == "" || password == "" {
		return false
	}
	pw := strings.ToLower(password)
	candidates := []string{strings.ToLower(email)}
	if local, _, ok := strings.Cut(candidates[0], "@"); ok && len(local) >= 3 {
		candidates = append(candidates, local)
	}

	for _, c := range candidates {
		if strings.Contains(pw, c) || strings.Contains(c, pw) {
			return true
		}
		if similarity(pw, c) > 0.7 {
			return true
		}
	}
	return false
}

func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	return float64(longestCommonSubsequence(a, b)) / float64(max(len(a), len(b)))
}

func longestCommonSubsequence(a, b string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
