package tool

import (
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestGenerateUUIDV7(t *testing.T) {
	id, err := uuid.Parse(GenerateUUIDV7())
	require.NoError(t, err)
	require.Equal(t, uuid.Version(7), id.Version())
}

func TestGenerateOrderNumber(t *testing.T) {
	n := GenerateOrderNumber(time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC))
	require.Regexp(t, regexp.MustCompile(`^P20260301-[0-9A-F]{8}$`), n)
	require.NotEqual(t, n, GenerateOrderNumber(time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)))
}
