package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByKind(t *testing.T) {
	err := Newf(RoomFull, "room %s is full", "ABCD")

	assert.ErrorIs(t, err, ErrRoomFull)
	assert.NotErrorIs(t, err, ErrRoomNotFound)

	wrapped := fmt.Errorf("join room: %w", err)
	assert.ErrorIs(t, wrapped, ErrRoomFull)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, NotYourTurn, KindOf(fmt.Errorf("answer: %w", ErrNotYourTurn)))
	assert.Equal(t, Internal, KindOf(errors.New("boom")))
}

func TestFromHidesInternalDetails(t *testing.T) {
	e := From(errors.New("pq: connection refused"))

	assert.Equal(t, Internal, e.Kind)
	assert.NotContains(t, e.Message, "pq")

	assert.Same(t, ErrJobNotFound, From(ErrJobNotFound))
}
