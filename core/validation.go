// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
	"strings"
	"time"
)

// ValidateText validates text before it is appended to the log.
func ValidateText(text string) error {
	if text == "" {
		return ErrEmptyContent
	}
	return nil
}

// ValidateEntry validates an Entry according to domain rules.
//
// Validation rules:
//   - Offset must not be negative
//   - Length must be at least 2 (one byte of text plus the newline)
//   - SpeakerType must be valid (Human or AI)
//   - Timestamp must not be in the future
//
// NOT validated (populated later):
//   - Vector (empty until the embedding processor runs)
//   - ID (0 until assigned by the repository)
func ValidateEntry(entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is nil", ErrInvalidEntry)
	}

	if entry.Offset < 0 || entry.Length < 2 {
		return fmt.Errorf("%w: %w: offset=%d length=%d", ErrInvalidEntry, ErrInvalidLocator, entry.Offset, entry.Length)
	}

	if err := ValidateSpeakerType(entry.Speaker); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}

	if !IsValidTimestamp(entry.Timestamp) {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, ErrInvalidTimestamp)
	}

	return nil
}

// ValidateSpeakerType validates that a SpeakerType has a valid value.
func ValidateSpeakerType(speaker SpeakerType) error {
	if speaker != SpeakerTypeHuman && speaker != SpeakerTypeAI {
		return fmt.Errorf("%w: value %d", ErrInvalidSpeakerType, speaker)
	}
	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}

// CheckText strips the record delimiter from raw, as read from the log at the
// entry's locator, and verifies the result against the entry's digest.
func CheckText(entry *Entry, raw string) (string, error) {
	text := strings.TrimSuffix(raw, "\n")
	if DigestOf(text) != entry.Digest {
		return "", fmt.Errorf("%w: entry %d at offset %d", ErrDigestMismatch, entry.Id, entry.Offset)
	}
	return text, nil
}
