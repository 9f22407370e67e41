package cloudinary

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestPublicIDKeepsExtensionAndStampsTime(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	require.Equal(t, "grades-20260304T050607.csv", PublicID("grades.csv", at))
	require.Equal(t, "Week-3-Grades-20260304T050607.xlsx", PublicID("Week 3 Grades.XLSX", at))
	require.Equal(t, "export-20260304T050607", PublicID("!!!", at))
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{CloudName: "demo"}, zerolog.Nop())
	require.Error(t, err)
}
