package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/backtester/internal/domain"
)

func TestHold_OpensOnceThenWaits(t *testing.T) {
	h := NewHold()

	m, err := h.Tick(false, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.MotionOpen, m)

	m, err = h.Tick(true, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.MotionNone, m)
}

func TestNew_ByName(t *testing.T) {
	s, err := New("", DefaultLinRegParams())
	require.NoError(t, err)
	assert.Equal(t, NameLinReg, NameOf(s))

	s, err = New(NameHold, LinRegParams{})
	require.NoError(t, err)
	assert.Equal(t, NameHold, NameOf(s))

	_, err = New("martingale", DefaultLinRegParams())
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	_, err = New(NameLinReg, LinRegParams{})
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

type anonymous struct{}

func (anonymous) Tick(bool, []float64, []float64) (domain.Motion, error) {
	return domain.MotionNone, nil
}

func TestNameOf_FallsBackToType(t *testing.T) {
	assert.Equal(t, "strategy.anonymous", NameOf(anonymous{}))
}
