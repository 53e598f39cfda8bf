package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"NewsVideoPipeline/internal/domain"
)

func TestParseSteps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    domain.StepRange
		wantErr bool
	}{
		{in: "", want: domain.FullRange()},
		{in: "4", want: domain.StepRange{Start: domain.StageVideo, End: domain.StageVideo}},
		{in: "2-5", want: domain.StepRange{Start: domain.StageScript, End: domain.StageThumbnail}},
		{in: " 1 - 8 ", want: domain.FullRange()},
		{in: "0", wantErr: true},
		{in: "9", wantErr: true},
		{in: "5-2", wantErr: true},
		{in: "x", wantErr: true},
		{in: "2-", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseSteps(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseDay(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("IST", 5*3600+1800)
	day, err := parseDay("", loc)
	require.NoError(t, err)
	require.True(t, day.IsZero())

	day, err = parseDay(" 2024-03-01 ", loc)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, loc), day)
	require.Equal(t, "2024-03-01", domain.RunID(day))

	_, err = parseDay("01/03/2024", loc)
	require.ErrorContains(t, err, "YYYY-MM-DD")
}

func TestExtractCode(t *testing.T) {
	t.Parallel()

	code, err := extractCode("  4/abc \n", "s1")
	require.NoError(t, err)
	require.Equal(t, "4/abc", code)

	code, err = extractCode("http://localhost/?state=s1&code=4%2Fxyz&scope=a", "s1")
	require.NoError(t, err)
	require.Equal(t, "4/xyz", code)

	_, err = extractCode("http://localhost/?state=other&code=4", "s1")
	require.Error(t, err)

	_, err = extractCode("\n", "s1")
	require.Error(t, err)
}

func TestCommandsRegistered(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	require.Subset(t, names, []string{"run", "serve", "auth", "news", "runs", "health", "channel"})
}
