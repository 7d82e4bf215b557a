package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Minutes is a duration in whole minutes. Stored data may contain numbers,
// numeric strings or garbage from older versions; decoding is lenient and
// maps anything unparseable to zero instead of failing the whole blob.
type Minutes int

// UnmarshalJSON accepts a JSON number or a numeric string. Anything else
// decodes to zero; it never returns an error.
func (m *Minutes) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*m = Minutes(math.Round(f))
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil {
			*m = Minutes(math.Round(f))
			return nil
		}
	}
	*m = 0
	return nil
}

// WorkRecord is one finished work session.
type WorkRecord struct {
	ID        int64   `json:"id"`
	Date      string  `json:"date"`      // 2006-01-02
	StartTime string  `json:"startTime"` // 15:04
	EndTime   string  `json:"endTime"`   // 15:04
	Duration  Minutes `json:"duration"`
	Content   string  `json:"content"`
	Type      string  `json:"type"`
}

// RecordPatch carries a partial update for a WorkRecord. Nil fields are
// left unchanged.
type RecordPatch struct {
	Date      *string
	StartTime *string
	EndTime   *string
	Duration  *int
	Content   *string
	Type      *string
}

// Apply merges the non-nil patch fields into the record.
func (p RecordPatch) Apply(r *WorkRecord) {
	if p.Date != nil {
		r.Date = *p.Date
	}
	if p.StartTime != nil {
		r.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		r.EndTime = *p.EndTime
	}
	if p.Duration != nil {
		r.Duration = Minutes(*p.Duration)
	}
	if p.Content != nil {
		r.Content = *p.Content
	}
	if p.Type != nil {
		r.Type = *p.Type
	}
}

// ValidateRecord checks a manually entered record against the configured
// settings. Stop-generated records bypass this; they may legitimately
// round down to zero minutes.
func ValidateRecord(r WorkRecord, s Settings) error {
	if strings.TrimSpace(r.Content) == "" {
		return fmt.Errorf("content must not be empty: %w", ErrValidation)
	}
	if err := validateDate(r.Date); err != nil {
		return err
	}
	if err := validateClock(r.StartTime); err != nil {
		return err
	}
	if err := validateClock(r.EndTime); err != nil {
		return err
	}
	if !s.HasWorkType(r.Type) {
		return fmt.Errorf("unknown work type %q: %w", r.Type, ErrValidation)
	}
	if r.Duration <= 0 {
		return fmt.Errorf("duration must be positive: %w", ErrInvalidState)
	}
	return nil
}

// Validate checks the set fields of a patch the same way ValidateRecord
// checks a full record.
func (p RecordPatch) Validate(s Settings) error {
	if p.Content != nil && strings.TrimSpace(*p.Content) == "" {
		return fmt.Errorf("content must not be empty: %w", ErrValidation)
	}
	if p.Date != nil {
		if err := validateDate(*p.Date); err != nil {
			return err
		}
	}
	if p.StartTime != nil {
		if err := validateClock(*p.StartTime); err != nil {
			return err
		}
	}
	if p.EndTime != nil {
		if err := validateClock(*p.EndTime); err != nil {
			return err
		}
	}
	if p.Type != nil && !s.HasWorkType(*p.Type) {
		return fmt.Errorf("unknown work type %q: %w", *p.Type, ErrValidation)
	}
	if p.Duration != nil && *p.Duration <= 0 {
		return fmt.Errorf("duration must be positive: %w", ErrInvalidState)
	}
	return nil
}

func validateDate(s string) error {
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return fmt.Errorf("bad date %q, want YYYY-MM-DD: %w", s, ErrValidation)
	}
	return nil
}

func validateClock(s string) error {
	if _, err := time.Parse("15:04", s); err != nil {
		return fmt.Errorf("bad time %q, want HH:MM: %w", s, ErrValidation)
	}
	return nil
}
