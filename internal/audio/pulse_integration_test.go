//go:build integration

package audio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSinksIntegration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	sinks, err := NewPulse().Sinks(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, sinks)

	_, err = Default(sinks)
	require.NoError(t, err)
}
