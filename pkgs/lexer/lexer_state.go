package lexer

import (
	"fmt"
)

// LexerMode represents the set of token patterns currently active
type LexerMode int

const (
	// ModeKey is the initial mode: keys, '=', comments and layout
	ModeKey LexerMode = iota

	// ModeValue is entered after '=': quoted or bare values, comments, spaces
	ModeValue
)

// maxModeDepth bounds the stack: the grammar never nests value positions
const maxModeDepth = 2

// String returns a human-readable mode name
func (m LexerMode) String() string {
	switch m {
	case ModeKey:
		return "Key"
	case ModeValue:
		return "Value"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// ModeStack manages lexer mode transitions.
// The bottom element is always ModeKey and is never popped.
type ModeStack struct {
	modes []LexerMode
}

// NewModeStack creates a stack holding only the initial key mode
func NewModeStack() *ModeStack {
	modes := make([]LexerMode, 1, maxModeDepth)
	modes[0] = ModeKey
	return &ModeStack{modes: modes}
}

// Current returns the active mode
func (s *ModeStack) Current() LexerMode {
	return s.modes[len(s.modes)-1]
}

// Depth returns the number of modes on the stack (1 in key position)
func (s *ModeStack) Depth() int {
	return len(s.modes)
}

// Push enters a new mode
func (s *ModeStack) Push(mode LexerMode) error {
	if len(s.modes) >= maxModeDepth {
		return fmt.Errorf("mode stack overflow: cannot push %s while in %s", mode, s.Current())
	}
	s.modes = append(s.modes, mode)
	return nil
}

// Pop restores the previous mode
func (s *ModeStack) Pop() (LexerMode, error) {
	if len(s.modes) <= 1 {
		return s.Current(), fmt.Errorf("mode stack underflow")
	}
	mode := s.modes[len(s.modes)-1]
	s.modes = s.modes[:len(s.modes)-1]
	return mode, nil
}

// Reset returns to the initial key mode
func (s *ModeStack) Reset() {
	s.modes = s.modes[:1]
}

// HandleToken applies the transition attached to a token type and returns
// the resulting mode: '=' pushes value mode, any value token pops it.
func (s *ModeStack) HandleToken(tokenType TokenType) (LexerMode, error) {
	switch {
	case tokenType == AFFECTATION:
		if err := s.Push(ModeValue); err != nil {
			return s.Current(), err
		}
	case IsValueToken(tokenType):
		if _, err := s.Pop(); err != nil {
			return s.Current(), err
		}
	}
	return s.Current(), nil
}
